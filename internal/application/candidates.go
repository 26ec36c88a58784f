package application

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"

	cache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"
)

// directoryCacheKey indexes the single process-wide registry entry.
const directoryCacheKey = "chain_directory"

// registryEntry memoizes one directory fetch. Freshness is checked against
// the configured TTL rather than go-cache expiry so a stale entry survives
// as a fallback when a refetch fails.
type registryEntry struct {
	FetchedAt time.Time
	Chains    []entity.Chain
}

// GetCandidates returns verified RPC suggestions for chainID, ranked by
// ascending probe latency and capped at the configured limit. It never
// writes to any endpoint pool.
func (s *Service) GetCandidates(ctx context.Context, chainID int64) ([]entity.Candidate, error) {
	chains, err := s.directory(ctx)
	if err != nil {
		return nil, err
	}

	var urls []entity.RPCURL
	chainFound := false
	for i := range chains {
		if chains[i].ChainID != chainID {
			continue
		}
		chainFound = true
		for _, rpcURL := range chains[i].RPC {
			if rpcURL.IsTemplated() {
				continue
			}
			urls = append(urls, rpcURL)
		}
	}
	if !chainFound {
		return nil, fmt.Errorf("%w: chain %d", domain.ErrChainNotFound, chainID)
	}

	verified := s.scanCandidates(ctx, chainID, urls)

	limit := s.cfg.RPC.CandidateLimit
	if limit > 0 && len(verified) > limit {
		verified = verified[:limit]
	}

	s.logger.Info("Candidate scan finished",
		zap.Int64("chainId", chainID),
		zap.Int("scanned", len(urls)),
		zap.Int("verified", len(verified)),
	)
	return verified, nil
}

// directory returns the memoized chain directory, refetching when the TTL
// has lapsed. Concurrent refreshes collapse into a single in-flight fetch;
// a failed refetch falls back to the stale entry when one exists.
func (s *Service) directory(ctx context.Context) ([]entity.Chain, error) {
	ttl := s.cfg.Registry.GetCacheTTL()

	if x, found := s.dirCache.Get(directoryCacheKey); found {
		if entry, ok := x.(registryEntry); ok && time.Since(entry.FetchedAt) < ttl {
			s.logger.Debug("Registry cache hit")
			return entry.Chains, nil
		}
	}

	// The flight is shared between callers, so it must not die with whichever
	// caller happened to start it.
	fetchCtx := context.WithoutCancel(ctx)

	v, err, _ := s.fetchGroup.Do(directoryCacheKey, func() (interface{}, error) {
		// Another caller may have refreshed while this one waited on the flight.
		if x, found := s.dirCache.Get(directoryCacheKey); found {
			if entry, ok := x.(registryEntry); ok && time.Since(entry.FetchedAt) < ttl {
				return entry.Chains, nil
			}
		}

		chains, fetchErr := s.registry.FetchDirectory(fetchCtx)
		if fetchErr != nil {
			if x, found := s.dirCache.Get(directoryCacheKey); found {
				if entry, ok := x.(registryEntry); ok {
					s.logger.Warn("Registry refetch failed, serving stale directory",
						zap.Time("fetchedAt", entry.FetchedAt),
						zap.Error(fetchErr),
					)
					return entry.Chains, nil
				}
			}
			return nil, fmt.Errorf("%w: %v", domain.ErrRegistryUnavailable, fetchErr)
		}

		s.dirCache.Set(directoryCacheKey, registryEntry{
			FetchedAt: time.Now(),
			Chains:    chains,
		}, cache.NoExpiration)
		return chains, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]entity.Chain), nil
}

// scanCandidates probes urls against chainID with a fixed-size worker pool
// and returns the survivors ordered by latency. Ties keep directory order.
func (s *Service) scanCandidates(ctx context.Context, chainID int64, urls []entity.RPCURL) []entity.Candidate {
	type scanResult struct {
		index   int
		ok      bool
		latency time.Duration
	}

	results := make([]scanResult, len(urls))
	jobChan := make(chan int, len(urls))
	scanTimeout := s.cfg.RPC.GetScanTimeout()

	numWorkers := s.cfg.RPC.MaxWorkers
	if numWorkers <= 0 {
		numWorkers = 10
	}
	if len(urls) < numWorkers {
		numWorkers = len(urls)
	}

	var wg sync.WaitGroup
	for w := 0; w < numWorkers; w++ {
		wg.Add(1)
		go func(workerID int) {
			defer wg.Done()
			for index := range jobChan {
				select {
				case <-ctx.Done():
					return
				default:
				}

				probeCtx, cancel := context.WithTimeout(ctx, scanTimeout)
				probe := s.prober.Probe(probeCtx, urls[index], chainID)
				cancel()

				results[index] = scanResult{
					index:   index,
					ok:      probe.OK,
					latency: probe.Latency,
				}
			}
		}(w)
	}

	for i := range urls {
		jobChan <- i
	}
	close(jobChan)
	wg.Wait()

	var verified []entity.Candidate
	order := make([]scanResult, 0, len(results))
	for _, r := range results {
		if r.ok {
			order = append(order, r)
		}
	}
	sort.SliceStable(order, func(i, j int) bool { return order[i].latency < order[j].latency })

	for _, r := range order {
		verified = append(verified, entity.Candidate{
			URL:       urls[r.index],
			LatencyMs: r.latency.Milliseconds(),
		})
	}
	return verified
}
