package application

import (
	"context"
	"fmt"
	"sort"

	"github.com/XVM-Systems/RAIL/internal/application/port"
	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"

	"go.uber.org/zap"
)

// SetPrimary verifies rawURL serves chainID and installs it as the pool's
// primary, leaving backups untouched. The pool is created on first success.
// A URL already serving as a backup is rejected; use Rotate to promote it.
func (s *Service) SetPrimary(ctx context.Context, chainID int64, rawURL string) (port.SetResult, error) {
	rpcURL, err := entity.NewRPCURL(rawURL)
	if err != nil {
		return port.SetResult{}, fmt.Errorf("%w: %v", domain.ErrInvalidEndpointURL, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetSetTimeout())
	defer cancel()

	result := s.prober.Probe(probeCtx, rpcURL, chainID)
	if !result.OK {
		s.logger.Debug("SetPrimary probe failed",
			zap.Int64("chainId", chainID),
			zap.String("url", rawURL),
			zap.String("kind", string(result.Kind)),
		)
		return port.SetResult{}, result.Err
	}

	latencyMs := result.Latency.Milliseconds()
	healthy := true

	lock := s.chainLock(chainID)
	lock.Lock()
	pool, ok := s.getPool(chainID)
	if !ok {
		pool = entity.EndpointPool{ChainID: chainID}
	}
	for _, b := range pool.Backups {
		if b.URL == rpcURL {
			lock.Unlock()
			return port.SetResult{}, fmt.Errorf("%w: %s is already a backup", domain.ErrDuplicateEndpoint, rawURL)
		}
	}
	pool.Primary = entity.Endpoint{
		URL:       rpcURL,
		LatencyMs: &latencyMs,
		Healthy:   &healthy,
	}
	s.setPool(chainID, pool)
	lock.Unlock()

	s.persist(ctx)
	s.logger.Info("Primary RPC set",
		zap.Int64("chainId", chainID),
		zap.String("url", rawURL),
		zap.Int64("latencyMs", latencyMs),
	)

	return port.SetResult{ChainID: chainID, URL: rpcURL, LatencyMs: latencyMs}, nil
}

// AddBackup verifies rawURL and appends it to the pool's backups.
func (s *Service) AddBackup(ctx context.Context, chainID int64, rawURL string) (entity.EndpointPool, error) {
	rpcURL, err := entity.NewRPCURL(rawURL)
	if err != nil {
		return entity.EndpointPool{}, fmt.Errorf("%w: %v", domain.ErrInvalidEndpointURL, err)
	}

	probeCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetSetTimeout())
	defer cancel()

	result := s.prober.Probe(probeCtx, rpcURL, chainID)
	if !result.OK {
		s.logger.Debug("AddBackup probe failed",
			zap.Int64("chainId", chainID),
			zap.String("url", rawURL),
			zap.String("kind", string(result.Kind)),
		)
		return entity.EndpointPool{}, result.Err
	}

	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	pool, ok := s.getPool(chainID)
	if !ok || pool.Primary.URL == "" {
		return entity.EndpointPool{}, fmt.Errorf("%w: chain %d", domain.ErrNoPrimaryConfigured, chainID)
	}
	if pool.Contains(rpcURL) {
		return entity.EndpointPool{}, fmt.Errorf("%w: %s", domain.ErrDuplicateEndpoint, rawURL)
	}
	if len(pool.Backups) >= entity.MaxBackups {
		return entity.EndpointPool{}, fmt.Errorf("%w: chain %d already has %d backups",
			domain.ErrPoolFull, chainID, len(pool.Backups))
	}

	latencyMs := result.Latency.Milliseconds()
	healthy := true
	pool.Backups = append(pool.Backups, entity.Endpoint{
		URL:       rpcURL,
		LatencyMs: &latencyMs,
		Healthy:   &healthy,
	})
	s.setPool(chainID, pool)

	s.persist(ctx)
	s.logger.Info("Backup RPC added",
		zap.Int64("chainId", chainID),
		zap.String("url", rawURL),
		zap.Int("backupCount", len(pool.Backups)),
	)
	return pool.Clone(), nil
}

// Rotate moves the first backup to the primary slot and demotes the old
// primary to the end of the backups. Rotation is a manual override and does
// not re-probe.
func (s *Service) Rotate(ctx context.Context, chainID int64) (entity.EndpointPool, error) {
	lock := s.chainLock(chainID)
	lock.Lock()
	defer lock.Unlock()

	pool, ok := s.getPool(chainID)
	if !ok {
		return entity.EndpointPool{}, fmt.Errorf("%w: chain %d", domain.ErrNoRPCConfigured, chainID)
	}
	if len(pool.Backups) == 0 {
		return entity.EndpointPool{}, fmt.Errorf("%w: chain %d", domain.ErrNoBackupsAvailable, chainID)
	}

	oldPrimary := pool.Primary
	pool.Primary = pool.Backups[0]
	pool.Backups = append(pool.Backups[1:], oldPrimary)
	s.setPool(chainID, pool)

	s.persist(ctx)
	s.logger.Info("Pool rotated",
		zap.Int64("chainId", chainID),
		zap.String("newPrimary", pool.Primary.URL.String()),
	)
	return pool.Clone(), nil
}

// promote swaps url into the primary slot after a successful failover read.
// The displaced primary moves to the front of the backups; overflow drops
// the last backup. Promoting the current primary, or a URL no longer in the
// pool, is a no-op.
func (s *Service) promote(ctx context.Context, chainID int64, url entity.RPCURL) {
	lock := s.chainLock(chainID)
	lock.Lock()

	pool, ok := s.getPool(chainID)
	if !ok || pool.Primary.URL == url {
		lock.Unlock()
		return
	}

	var promoted entity.Endpoint
	found := false
	remaining := make([]entity.Endpoint, 0, len(pool.Backups))
	for _, b := range pool.Backups {
		if b.URL == url {
			promoted = b
			found = true
			continue
		}
		remaining = append(remaining, b)
	}
	if !found {
		// The pool changed under a concurrent mutation; nothing to promote.
		lock.Unlock()
		return
	}

	pool.Backups = append([]entity.Endpoint{pool.Primary}, remaining...)
	if len(pool.Backups) > entity.MaxBackups {
		pool.Backups = pool.Backups[:entity.MaxBackups]
	}
	pool.Primary = promoted
	s.setPool(chainID, pool)
	lock.Unlock()

	s.persist(ctx)
	s.logger.Info("Endpoint promoted to primary",
		zap.Int64("chainId", chainID),
		zap.String("url", url.String()),
	)
}

// Delete removes the entire pool entry for chainID.
func (s *Service) Delete(ctx context.Context, chainID int64) error {
	lock := s.chainLock(chainID)
	lock.Lock()

	s.mu.Lock()
	_, ok := s.snapshot.Pools[chainID]
	if ok {
		delete(s.snapshot.Pools, chainID)
	}
	s.mu.Unlock()
	lock.Unlock()

	if !ok {
		return fmt.Errorf("%w: chain %d", domain.ErrNoRPCConfigured, chainID)
	}

	s.persist(ctx)
	s.logger.Info("Pool deleted", zap.Int64("chainId", chainID))
	return nil
}

// List returns a read-only snapshot of every pool, ordered by chain ID.
func (s *Service) List(_ context.Context) []entity.EndpointPool {
	s.mu.Lock()
	pools := make([]entity.EndpointPool, 0, len(s.snapshot.Pools))
	for _, pool := range s.snapshot.Pools {
		pools = append(pools, pool.Clone())
	}
	s.mu.Unlock()

	sort.Slice(pools, func(i, j int) bool { return pools[i].ChainID < pools[j].ChainID })
	return pools
}
