package registry

import (
	dto "github.com/XVM-Systems/RAIL/internal/adapter/registry/dto"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"

	"go.uber.org/zap"
)

// toDomainChains converts raw directory entries into domain chains, dropping
// RPC URLs that fail validation.
func toDomainChains(rawChains []dto.ChainRaw, logger *zap.Logger) []entity.Chain {
	if rawChains == nil {
		return nil
	}
	domainChains := make([]entity.Chain, 0, len(rawChains))
	for _, raw := range rawChains {
		var domainRPCs []entity.RPCURL
		if raw.RPC != nil {
			domainRPCs = make([]entity.RPCURL, 0, len(raw.RPC))
			for _, rpcStr := range raw.RPC {
				rpcURL, err := entity.NewRPCURL(rpcStr)
				if err != nil {
					if logger != nil {
						logger.Warn("Skipping invalid RPC URL during mapping",
							zap.String("rawUrl", rpcStr),
							zap.Int64("chainId", raw.ChainID),
							zap.Error(err))
					}
					continue
				}
				domainRPCs = append(domainRPCs, rpcURL)
			}
		}

		domainChains = append(domainChains, entity.Chain{
			Name:      raw.Name,
			Chain:     raw.Chain,
			ShortName: raw.ShortName,
			ChainID:   raw.ChainID,
			NetworkID: raw.NetworkID,
			RPC:       domainRPCs,
			Currency: entity.Currency{
				Name:     raw.Currency.Name,
				Symbol:   raw.Currency.Symbol,
				Decimals: raw.Currency.Decimals,
			},
			InfoURL: raw.InfoURL,
		})
	}
	return domainChains
}
