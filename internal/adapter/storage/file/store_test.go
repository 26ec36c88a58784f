package file

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	dir := t.TempDir()
	store, err := NewStore(config.StorageConfig{
		Path:     filepath.Join(dir, "rail_config.yaml"),
		LockPath: filepath.Join(dir, "rail_config.lock"),
	}, zap.NewNop())
	require.NoError(t, err)
	return store
}

func TestLoad_MissingFileYieldsEmptySnapshot(t *testing.T) {
	store := newTestStore(t)

	snapshot, err := store.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, snapshot.Pools)
	assert.Empty(t, snapshot.APIKeys)
	assert.NotNil(t, snapshot.Pools)
	assert.NotNil(t, snapshot.APIKeys)
}

func TestSaveLoad_Roundtrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	latency := int64(42)
	healthy := true
	snapshot := domainRepo.Snapshot{
		Pools: map[int64]entity.EndpointPool{
			1: {
				ChainID: 1,
				Primary: entity.Endpoint{
					URL:       "https://eth.llamarpc.com",
					LatencyMs: &latency,
					Healthy:   &healthy,
				},
				Backups: []entity.Endpoint{
					{URL: "https://rpc.flashbots.net"},
				},
			},
			56: {
				ChainID: 56,
				Primary: entity.Endpoint{URL: "https://bsc-dataseed1.bnbchain.org"},
			},
		},
		APIKeys: map[string]string{"etherscan": "SECRET1234"},
	}

	require.NoError(t, store.Save(ctx, snapshot))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)

	require.Len(t, loaded.Pools, 2)
	pool := loaded.Pools[1]
	assert.Equal(t, int64(1), pool.ChainID)
	assert.Equal(t, entity.RPCURL("https://eth.llamarpc.com"), pool.Primary.URL)
	require.NotNil(t, pool.Primary.LatencyMs)
	assert.Equal(t, int64(42), *pool.Primary.LatencyMs)
	require.NotNil(t, pool.Primary.Healthy)
	assert.True(t, *pool.Primary.Healthy)
	require.Len(t, pool.Backups, 1)
	assert.Equal(t, entity.RPCURL("https://rpc.flashbots.net"), pool.Backups[0].URL)

	assert.Equal(t, "SECRET1234", loaded.APIKeys["etherscan"])
}

func TestSave_ReplacesPreviousDocument(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := domainRepo.Snapshot{
		Pools: map[int64]entity.EndpointPool{
			1: {ChainID: 1, Primary: entity.Endpoint{URL: "https://a.example.com"}},
		},
		APIKeys: map[string]string{},
	}
	require.NoError(t, store.Save(ctx, first))

	second := domainRepo.Snapshot{
		Pools: map[int64]entity.EndpointPool{
			137: {ChainID: 137, Primary: entity.Endpoint{URL: "https://polygon.example.com"}},
		},
		APIKeys: map[string]string{},
	}
	require.NoError(t, store.Save(ctx, second))

	loaded, err := store.Load(ctx)
	require.NoError(t, err)
	require.Len(t, loaded.Pools, 1)
	assert.Contains(t, loaded.Pools, int64(137))
}

func TestSave_LeavesNoTempFile(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.Save(context.Background(), domainRepo.Snapshot{
		Pools:   map[int64]entity.EndpointPool{},
		APIKeys: map[string]string{},
	}))

	_, err := os.Stat(store.path + ".tmp")
	assert.True(t, os.IsNotExist(err))
}

func TestLoad_CorruptFile(t *testing.T) {
	store := newTestStore(t)
	require.NoError(t, os.WriteFile(store.path, []byte("rpcs: [not: valid"), 0o644))

	_, err := store.Load(context.Background())
	require.Error(t, err)
}

func TestLoad_FillsChainIDFromMapKey(t *testing.T) {
	store := newTestStore(t)

	// A document written by hand may omit chain_id inside the pool.
	doc := `rpcs:
  42161:
    primary:
      url: https://arb1.arbitrum.io/rpc
`
	require.NoError(t, os.WriteFile(store.path, []byte(doc), 0o644))

	loaded, err := store.Load(context.Background())
	require.NoError(t, err)
	require.Contains(t, loaded.Pools, int64(42161))
	assert.Equal(t, int64(42161), loaded.Pools[42161].ChainID)
}
