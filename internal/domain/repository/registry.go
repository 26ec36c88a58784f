package repository

import (
	"context"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
)

// RegistrySource fetches the public chain directory from its upstream source.
type RegistrySource interface {
	// FetchDirectory retrieves the full directory of chains and their declared RPC URLs.
	FetchDirectory(ctx context.Context) ([]entity.Chain, error)
}

// SourceExplorer fetches verified contract source code from an external
// verification service.
type SourceExplorer interface {
	// FromSourcify queries the Sourcify repository for the contract's files.
	FromSourcify(ctx context.Context, chainID int64, address string) (entity.ContractSource, error)

	// FromEtherscan queries the Etherscan v2 API using the given key.
	FromEtherscan(ctx context.Context, chainID int64, address, apiKey string) (entity.ContractSource, error)
}
