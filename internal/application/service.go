package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/XVM-Systems/RAIL/internal/application/port"
	"github.com/XVM-Systems/RAIL/internal/config"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	domainRepo "github.com/XVM-Systems/RAIL/internal/domain/repository"
	domainService "github.com/XVM-Systems/RAIL/internal/domain/service"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Compile-time check to ensure rpcService implements port.RPCService
var _ port.RPCService = (*Service)(nil)

// Service orchestrates endpoint pools, failover execution and registry
// lookups. Pool state lives in memory and is mirrored to the config store
// after every successful mutation.
type Service struct {
	store    domainRepo.ConfigStore
	registry domainRepo.RegistrySource
	explorer domainRepo.SourceExplorer
	prober   domainService.Prober
	reader   domainService.Reader
	logger   *zap.Logger
	cfg      config.Config

	// mu guards snapshot and chainLocks. Per-chain mutation ordering is
	// enforced by the chain lock; mu is only held for map access.
	mu         sync.Mutex
	snapshot   domainRepo.Snapshot
	chainLocks map[int64]*sync.Mutex

	dirCache   *cache.Cache
	fetchGroup singleflight.Group
}

// NewService creates the service and loads the persisted snapshot.
func NewService(
	ctx context.Context,
	store domainRepo.ConfigStore,
	registry domainRepo.RegistrySource,
	explorer domainRepo.SourceExplorer,
	prober domainService.Prober,
	reader domainService.Reader,
	logger *zap.Logger,
	cfg config.Config,
) (*Service, error) {
	snapshot, err := store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load config snapshot: %w", err)
	}
	if snapshot.Pools == nil {
		snapshot.Pools = make(map[int64]entity.EndpointPool)
	}
	if snapshot.APIKeys == nil {
		snapshot.APIKeys = make(map[string]string)
	}

	return &Service{
		store:      store,
		registry:   registry,
		explorer:   explorer,
		prober:     prober,
		reader:     reader,
		logger:     logger.Named("RPCService"),
		cfg:        cfg,
		snapshot:   snapshot,
		chainLocks: make(map[int64]*sync.Mutex),
		dirCache:   cache.New(cache.NoExpiration, 0),
	}, nil
}

// chainLock returns the mutex serializing mutations for one chain.
func (s *Service) chainLock(chainID int64) *sync.Mutex {
	s.mu.Lock()
	defer s.mu.Unlock()
	lock, ok := s.chainLocks[chainID]
	if !ok {
		lock = &sync.Mutex{}
		s.chainLocks[chainID] = lock
	}
	return lock
}

// getPool returns a snapshot copy of the pool for chainID.
func (s *Service) getPool(chainID int64) (entity.EndpointPool, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	pool, ok := s.snapshot.Pools[chainID]
	if !ok {
		return entity.EndpointPool{}, false
	}
	return pool.Clone(), true
}

// setPool replaces the stored pool for chainID.
func (s *Service) setPool(chainID int64, pool entity.EndpointPool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.snapshot.Pools[chainID] = pool
}

// persist mirrors the in-memory snapshot to the config store. Persistence
// failures are logged, not propagated: the in-memory mutation already
// succeeded and the next save will retry the full snapshot anyway.
func (s *Service) persist(ctx context.Context) {
	s.mu.Lock()
	snapshot := s.snapshot.Clone()
	s.mu.Unlock()

	if err := s.store.Save(ctx, snapshot); err != nil {
		s.logger.Error("Failed to persist config snapshot", zap.Error(err))
	}
}
