package domain

import (
	"errors"
	"fmt"
	"strings"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
)

var (
	// ErrNoRPCConfigured means no pool exists for the requested chain.
	ErrNoRPCConfigured = errors.New("no RPC configured for chain")

	// ErrNoPrimaryConfigured means a backup was offered before any primary was set.
	ErrNoPrimaryConfigured = errors.New("no primary RPC configured for chain")

	// ErrNoBackupsAvailable means rotation was requested on a pool without backups.
	ErrNoBackupsAvailable = errors.New("no backup RPCs available")

	// ErrPoolFull means the pool already carries the maximum number of backups.
	ErrPoolFull = errors.New("endpoint pool is full")

	// ErrDuplicateEndpoint means the URL already exists in the pool.
	ErrDuplicateEndpoint = errors.New("endpoint already present in pool")

	// ErrAllEndpointsFailed means every pool member failed an execute attempt.
	ErrAllEndpointsFailed = errors.New("all endpoints failed")

	// ErrRegistryUnavailable means the chain registry could not be fetched and
	// no cached copy exists to fall back on.
	ErrRegistryUnavailable = errors.New("chain registry unavailable")

	// ErrChainNotFound means the requested chain was not found in the registry.
	ErrChainNotFound = errors.New("chain not found in registry")

	// ErrInvalidEndpointURL means the offered URL is not a usable RPC endpoint.
	ErrInvalidEndpointURL = errors.New("invalid endpoint url")

	// ErrAPIKeyNotFound means no key is stored for the requested service.
	ErrAPIKeyNotFound = errors.New("api key not found")

	// ErrSourceNotFound means neither source service had verified code for the contract.
	ErrSourceNotFound = errors.New("contract source not found")
)

// AttemptFailure records one failed execute attempt against a pool member.
type AttemptFailure struct {
	URL  entity.RPCURL    `json:"url"`
	Kind entity.ErrorKind `json:"kind"`
	Err  error            `json:"-"`
}

// AllEndpointsFailedError aggregates the ordered per-endpoint failures of a
// pool-wide execute. It wraps ErrAllEndpointsFailed so callers can match it
// with errors.Is.
type AllEndpointsFailedError struct {
	ChainID  int64
	Attempts []AttemptFailure
}

func (e *AllEndpointsFailedError) Error() string {
	parts := make([]string, len(e.Attempts))
	for i, a := range e.Attempts {
		parts[i] = fmt.Sprintf("%s (%s)", a.URL, a.Kind)
	}
	return fmt.Sprintf("all %d endpoints failed for chain %d: %s",
		len(e.Attempts), e.ChainID, strings.Join(parts, ", "))
}

func (e *AllEndpointsFailedError) Unwrap() error {
	return ErrAllEndpointsFailed
}
