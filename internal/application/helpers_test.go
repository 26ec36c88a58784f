package application

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// fakeStore is an in-memory ConfigStore recording every save.
type fakeStore struct {
	mu        sync.Mutex
	snapshot  domainRepo.Snapshot
	saveCount int
	saveErr   error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		snapshot: domainRepo.Snapshot{
			Pools:   make(map[int64]entity.EndpointPool),
			APIKeys: make(map[string]string),
		},
	}
}

func (f *fakeStore) Load(_ context.Context) (domainRepo.Snapshot, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.snapshot.Clone(), nil
}

func (f *fakeStore) Save(_ context.Context, snapshot domainRepo.Snapshot) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.saveErr != nil {
		return f.saveErr
	}
	f.snapshot = snapshot.Clone()
	f.saveCount++
	return nil
}

func (f *fakeStore) saves() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.saveCount
}

// fakeProber scripts probe outcomes per URL; unknown URLs succeed.
type fakeProber struct {
	mu       sync.Mutex
	results  map[entity.RPCURL]entity.ProbeResult
	latency  map[entity.RPCURL]time.Duration
	probeLog []entity.RPCURL
}

func newFakeProber() *fakeProber {
	return &fakeProber{
		results: make(map[entity.RPCURL]entity.ProbeResult),
		latency: make(map[entity.RPCURL]time.Duration),
	}
}

func (f *fakeProber) fail(url entity.RPCURL, kind entity.ErrorKind) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[url] = entity.ProbeResult{
		OK:   false,
		Kind: kind,
		Err:  errors.New(string(kind) + ": " + url.String()),
	}
}

func (f *fakeProber) succeed(url entity.RPCURL, latency time.Duration) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.latency[url] = latency
}

func (f *fakeProber) Probe(_ context.Context, url entity.RPCURL, _ int64) entity.ProbeResult {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.probeLog = append(f.probeLog, url)
	if result, ok := f.results[url]; ok {
		return result
	}
	latency := f.latency[url]
	if latency == 0 {
		latency = 10 * time.Millisecond
	}
	return entity.ProbeResult{OK: true, Latency: latency}
}

func (f *fakeProber) probes() []entity.RPCURL {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]entity.RPCURL, len(f.probeLog))
	copy(out, f.probeLog)
	return out
}

// fakeReader scripts single-endpoint reads per URL.
type fakeReader struct {
	mu       sync.Mutex
	balances map[entity.RPCURL]*big.Int
	errs     map[entity.RPCURL]error
	tokens   map[entity.RPCURL]entity.TokenInfo
	raw      map[entity.RPCURL]*big.Int
}

func newFakeReader() *fakeReader {
	return &fakeReader{
		balances: make(map[entity.RPCURL]*big.Int),
		errs:     make(map[entity.RPCURL]error),
		tokens:   make(map[entity.RPCURL]entity.TokenInfo),
		raw:      make(map[entity.RPCURL]*big.Int),
	}
}

func (f *fakeReader) NativeBalance(_ context.Context, url entity.RPCURL, _ string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if balance, ok := f.balances[url]; ok {
		return balance, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) TokenBalance(_ context.Context, url entity.RPCURL, _, _ string) (*big.Int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return nil, err
	}
	if raw, ok := f.raw[url]; ok {
		return raw, nil
	}
	return big.NewInt(0), nil
}

func (f *fakeReader) TokenInfo(_ context.Context, url entity.RPCURL, token string) (entity.TokenInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err, ok := f.errs[url]; ok {
		return entity.TokenInfo{}, err
	}
	if info, ok := f.tokens[url]; ok {
		return info, nil
	}
	return entity.TokenInfo{Address: token, Name: "Test Token", Symbol: "TST", Decimals: 18}, nil
}

// fakeRegistry serves a scripted directory and counts fetches.
type fakeRegistry struct {
	mu         sync.Mutex
	chains     []entity.Chain
	err        error
	fetchCount int
}

func (f *fakeRegistry) FetchDirectory(ctx context.Context) ([]entity.Chain, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.fetchCount++
	if f.err != nil {
		return nil, f.err
	}
	return f.chains, nil
}

func (f *fakeRegistry) fetches() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.fetchCount
}

// fakeExplorer scripts source lookups.
type fakeExplorer struct {
	sourcifySource  entity.ContractSource
	sourcifyErr     error
	etherscanSource entity.ContractSource
	etherscanErr    error
	etherscanKey    string
}

func (f *fakeExplorer) FromSourcify(_ context.Context, _ int64, _ string) (entity.ContractSource, error) {
	if f.sourcifyErr != nil {
		return entity.ContractSource{}, f.sourcifyErr
	}
	return f.sourcifySource, nil
}

func (f *fakeExplorer) FromEtherscan(_ context.Context, _ int64, _, apiKey string) (entity.ContractSource, error) {
	f.etherscanKey = apiKey
	if f.etherscanErr != nil {
		return entity.ContractSource{}, f.etherscanErr
	}
	return f.etherscanSource, nil
}

func testConfig() config.Config {
	return config.Config{
		RPC: config.RPCConfig{
			ProbeTimeout:   time.Second,
			ScanTimeout:    time.Second,
			SetTimeout:     time.Second,
			RequestTimeout: time.Second,
			MaxWorkers:     4,
			CandidateLimit: 5,
		},
		Registry: config.RegistryConfig{
			URL:      "http://registry.test",
			CacheTTL: time.Hour,
		},
	}
}

type testEnv struct {
	service  *Service
	store    *fakeStore
	prober   *fakeProber
	reader   *fakeReader
	registry *fakeRegistry
	explorer *fakeExplorer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		store:    newFakeStore(),
		prober:   newFakeProber(),
		reader:   newFakeReader(),
		registry: &fakeRegistry{},
		explorer: &fakeExplorer{},
	}

	service, err := NewService(
		context.Background(),
		env.store,
		env.registry,
		env.explorer,
		env.prober,
		env.reader,
		zap.NewNop(),
		testConfig(),
	)
	require.NoError(t, err)
	env.service = service
	return env
}
