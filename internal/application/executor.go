package application

import (
	"context"
	"errors"
	"fmt"

	"github.com/XVM-Systems/RAIL/internal/domain"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"go.uber.org/zap"
)

// Operation is a single-endpoint read. The executor decides which pool
// member it runs against; the closure captures any typed result.
type Operation func(ctx context.Context, endpoint entity.RPCURL) error

// Execute runs op against the pool for chainID: primary first, then backups
// in stored order, each attempt under its own timeout. The first endpoint to
// succeed is promoted to primary if it was not already. When every member
// fails the ordered per-endpoint failure kinds are returned in an
// AllEndpointsFailedError; order is never mutated on failure.
func (s *Service) Execute(ctx context.Context, chainID int64, op Operation) (entity.RPCURL, error) {
	pool, ok := s.getPool(chainID)
	if !ok || pool.Primary.URL == "" {
		return "", fmt.Errorf("%w: chain %d", domain.ErrNoRPCConfigured, chainID)
	}

	members := pool.Members()
	attempts := make([]domain.AttemptFailure, 0, len(members))

	for _, member := range members {
		attemptCtx, cancel := context.WithTimeout(ctx, s.cfg.RPC.GetRequestTimeout())
		err := op(attemptCtx, member.URL)
		cancel()

		if err == nil {
			if member.URL != pool.Primary.URL {
				s.promote(ctx, chainID, member.URL)
			}
			return member.URL, nil
		}

		kind := classifyAttemptError(err)
		attempts = append(attempts, domain.AttemptFailure{
			URL:  member.URL,
			Kind: kind,
			Err:  err,
		})
		s.logger.Debug("Execute attempt failed",
			zap.Int64("chainId", chainID),
			zap.String("url", member.URL.String()),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)

		if ctx.Err() != nil {
			break
		}
	}

	return "", &domain.AllEndpointsFailedError{ChainID: chainID, Attempts: attempts}
}

// classifyAttemptError maps an attempt failure onto a probe-style error kind.
func classifyAttemptError(err error) entity.ErrorKind {
	switch {
	case errors.Is(err, apperrors.ErrTimeout), errors.Is(err, context.DeadlineExceeded):
		return entity.ErrorKindTimeout
	case errors.Is(err, apperrors.ErrChainMismatch):
		return entity.ErrorKindChainMismatch
	case errors.Is(err, apperrors.ErrMalformedResponse):
		return entity.ErrorKindMalformedResponse
	default:
		return entity.ErrorKindUnreachable
	}
}
