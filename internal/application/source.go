package application

import (
	"context"

	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	"github.com/XVM-Systems/RAIL/internal/pkg/ethaddr"

	"go.uber.org/zap"
)

// etherscanService is the API key slot consulted for the Etherscan fallback.
const etherscanService = "etherscan"

// GetContractSource fetches verified source code for a contract, trying
// Sourcify first and falling back to Etherscan when a key is stored.
func (s *Service) GetContractSource(ctx context.Context, chainID int64, address string) (entity.ContractSource, error) {
	checksummed, err := ethaddr.Parse(address)
	if err != nil {
		return entity.ContractSource{}, err
	}

	source, sourcifyErr := s.explorer.FromSourcify(ctx, chainID, checksummed.Hex())
	if sourcifyErr == nil {
		s.logger.Debug("Contract source served by Sourcify",
			zap.Int64("chainId", chainID),
			zap.String("address", checksummed.Hex()),
		)
		return source, nil
	}

	apiKey, hasKey := s.apiKey(etherscanService)
	if !hasKey {
		s.logger.Debug("Sourcify miss and no etherscan key stored",
			zap.Int64("chainId", chainID),
			zap.String("address", checksummed.Hex()),
			zap.Error(sourcifyErr),
		)
		return entity.ContractSource{}, sourcifyErr
	}

	source, etherscanErr := s.explorer.FromEtherscan(ctx, chainID, checksummed.Hex(), apiKey)
	if etherscanErr != nil {
		s.logger.Debug("Both source services failed",
			zap.Int64("chainId", chainID),
			zap.String("address", checksummed.Hex()),
			zap.NamedError("sourcify", sourcifyErr),
			zap.NamedError("etherscan", etherscanErr),
		)
		return entity.ContractSource{}, etherscanErr
	}

	s.logger.Debug("Contract source served by Etherscan",
		zap.Int64("chainId", chainID),
		zap.String("address", checksummed.Hex()),
	)
	return source, nil
}
