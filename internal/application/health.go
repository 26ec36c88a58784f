package application

import (
	"context"
	"fmt"
	"sync"

	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"

	"go.uber.org/zap"
)

// Report probes every member of the pool for chainID concurrently and
// returns their statuses in pool order (primary first). The pool itself is
// never mutated; this is the observability counterpart of Execute.
func (s *Service) Report(ctx context.Context, chainID int64) ([]entity.EndpointHealth, error) {
	pool, ok := s.getPool(chainID)
	if !ok || pool.Primary.URL == "" {
		return nil, fmt.Errorf("%w: chain %d", domain.ErrNoRPCConfigured, chainID)
	}

	members := pool.Members()
	report := make([]entity.EndpointHealth, len(members))

	var wg sync.WaitGroup
	for i, member := range members {
		wg.Add(1)
		go func(index int, endpoint entity.Endpoint) {
			defer wg.Done()

			probeCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetProbeTimeout())
			defer cancel()

			result := s.prober.Probe(probeCtx, endpoint.URL, chainID)
			report[index] = entity.EndpointHealth{Endpoint: endpoint, Result: result}
		}(i, member)
	}
	wg.Wait()

	healthyCount := 0
	for _, h := range report {
		if h.Result.OK {
			healthyCount++
		}
	}
	s.logger.Debug("Health report complete",
		zap.Int64("chainId", chainID),
		zap.Int("members", len(report)),
		zap.Int("healthy", healthyCount),
	)
	return report, nil
}
