package service

import (
	"context"
	"math/big"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
)

// Prober performs a bounded-time connectivity + identity check against a
// candidate URL. A probe never mutates shared state.
type Prober interface {
	Probe(ctx context.Context, rpcURL entity.RPCURL, expectedChainID int64) entity.ProbeResult
}

// Reader issues single-endpoint read calls against a specific RPC URL.
// Failover across pool members is layered on top by the executor.
type Reader interface {
	// NativeBalance returns the native token balance of address, in wei.
	NativeBalance(ctx context.Context, rpcURL entity.RPCURL, address string) (*big.Int, error)

	// TokenBalance returns the raw ERC-20 balanceOf(holder) amount for token.
	TokenBalance(ctx context.Context, rpcURL entity.RPCURL, token, holder string) (*big.Int, error)

	// TokenInfo reads name, symbol and decimals from an ERC-20 contract.
	TokenInfo(ctx context.Context, rpcURL entity.RPCURL, token string) (entity.TokenInfo, error)
}
