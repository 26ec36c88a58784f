package port

import (
	"context"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
)

// SetResult reports a successful primary replacement and the latency the
// verification probe measured.
type SetResult struct {
	ChainID   int64         `json:"chainId"`
	URL       entity.RPCURL `json:"url"`
	LatencyMs int64         `json:"latencyMs"`
}

// BalanceResult is a native balance read, served by one pool member.
type BalanceResult struct {
	ChainID  int64         `json:"chainId"`
	Address  string        `json:"address"`
	Wei      string        `json:"wei"`
	Ether    string        `json:"ether"`
	ServedBy entity.RPCURL `json:"servedBy"`
}

// TokenBalanceResult is an ERC-20 balance read, served by one pool member.
type TokenBalanceResult struct {
	ChainID   int64         `json:"chainId"`
	Token     string        `json:"token"`
	Holder    string        `json:"holder"`
	Raw       string        `json:"raw"`
	Formatted string        `json:"formatted"`
	Symbol    string        `json:"symbol"`
	Decimals  uint8         `json:"decimals"`
	ServedBy  entity.RPCURL `json:"servedBy"`
}

// RPCService is the interface the delivery layer programs against: pool
// management, failover reads, health reporting, registry suggestions, API
// key bookkeeping and contract source lookup. Every failure path resolves
// to a tagged error value.
type RPCService interface {
	SetPrimary(ctx context.Context, chainID int64, rawURL string) (SetResult, error)
	AddBackup(ctx context.Context, chainID int64, rawURL string) (entity.EndpointPool, error)
	Rotate(ctx context.Context, chainID int64) (entity.EndpointPool, error)
	Delete(ctx context.Context, chainID int64) error
	List(ctx context.Context) []entity.EndpointPool

	Report(ctx context.Context, chainID int64) ([]entity.EndpointHealth, error)
	GetCandidates(ctx context.Context, chainID int64) ([]entity.Candidate, error)

	GetNativeBalance(ctx context.Context, chainID int64, address string) (BalanceResult, error)
	GetTokenBalance(ctx context.Context, chainID int64, token, holder string) (TokenBalanceResult, error)
	GetTokenInfo(ctx context.Context, chainID int64, token string) (entity.TokenInfo, error)
	GetContractSource(ctx context.Context, chainID int64, address string) (entity.ContractSource, error)

	SetAPIKey(ctx context.Context, service, key string) error
	DeleteAPIKey(ctx context.Context, service string) error
	ListAPIKeys(ctx context.Context) map[string]string
}
