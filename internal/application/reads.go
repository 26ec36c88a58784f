package application

import (
	"context"
	"math/big"
	"strings"

	"github.com/XVM-Systems/RAIL/internal/application/port"
	"github.com/XVM-Systems/RAIL/internal/domain/entity"
	"github.com/XVM-Systems/RAIL/internal/pkg/ethaddr"

	"go.uber.org/zap"
)

// GetNativeBalance reads the native token balance of address on chainID,
// failing over across the pool.
func (s *Service) GetNativeBalance(ctx context.Context, chainID int64, address string) (port.BalanceResult, error) {
	checksummed, err := ethaddr.Parse(address)
	if err != nil {
		return port.BalanceResult{}, err
	}

	var balance *big.Int
	servedBy, err := s.Execute(ctx, chainID, func(ctx context.Context, endpoint entity.RPCURL) error {
		wei, readErr := s.reader.NativeBalance(ctx, endpoint, checksummed.Hex())
		if readErr != nil {
			return readErr
		}
		balance = wei
		return nil
	})
	if err != nil {
		return port.BalanceResult{}, err
	}

	s.logger.Debug("Native balance read",
		zap.Int64("chainId", chainID),
		zap.String("address", checksummed.Hex()),
		zap.String("servedBy", servedBy.String()),
	)
	return port.BalanceResult{
		ChainID:  chainID,
		Address:  checksummed.Hex(),
		Wei:      balance.String(),
		Ether:    formatUnits(balance, 18),
		ServedBy: servedBy,
	}, nil
}

// GetTokenBalance reads the ERC-20 balance of holder for token on chainID,
// failing over across the pool. Decimals and symbol are read from the same
// endpoint that served the balance.
func (s *Service) GetTokenBalance(ctx context.Context, chainID int64, token, holder string) (port.TokenBalanceResult, error) {
	tokenAddr, err := ethaddr.Parse(token)
	if err != nil {
		return port.TokenBalanceResult{}, err
	}
	holderAddr, err := ethaddr.Parse(holder)
	if err != nil {
		return port.TokenBalanceResult{}, err
	}

	var (
		raw  *big.Int
		info entity.TokenInfo
	)
	servedBy, err := s.Execute(ctx, chainID, func(ctx context.Context, endpoint entity.RPCURL) error {
		amount, readErr := s.reader.TokenBalance(ctx, endpoint, tokenAddr.Hex(), holderAddr.Hex())
		if readErr != nil {
			return readErr
		}
		meta, readErr := s.reader.TokenInfo(ctx, endpoint, tokenAddr.Hex())
		if readErr != nil {
			return readErr
		}
		raw = amount
		info = meta
		return nil
	})
	if err != nil {
		return port.TokenBalanceResult{}, err
	}

	return port.TokenBalanceResult{
		ChainID:   chainID,
		Token:     tokenAddr.Hex(),
		Holder:    holderAddr.Hex(),
		Raw:       raw.String(),
		Formatted: formatUnits(raw, info.Decimals),
		Symbol:    info.Symbol,
		Decimals:  info.Decimals,
		ServedBy:  servedBy,
	}, nil
}

// GetTokenInfo reads ERC-20 metadata for token on chainID.
func (s *Service) GetTokenInfo(ctx context.Context, chainID int64, token string) (entity.TokenInfo, error) {
	tokenAddr, err := ethaddr.Parse(token)
	if err != nil {
		return entity.TokenInfo{}, err
	}

	var info entity.TokenInfo
	_, err = s.Execute(ctx, chainID, func(ctx context.Context, endpoint entity.RPCURL) error {
		meta, readErr := s.reader.TokenInfo(ctx, endpoint, tokenAddr.Hex())
		if readErr != nil {
			return readErr
		}
		info = meta
		return nil
	})
	if err != nil {
		return entity.TokenInfo{}, err
	}
	return info, nil
}

// formatUnits renders value as a decimal string scaled down by decimals,
// with trailing fractional zeros trimmed.
func formatUnits(value *big.Int, decimals uint8) string {
	if decimals == 0 {
		return value.String()
	}

	divisor := new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(decimals)), nil)
	quotient, remainder := new(big.Int).QuoRem(value, divisor, new(big.Int))

	if remainder.Sign() == 0 {
		return quotient.String()
	}

	frac := remainder.String()
	frac = strings.Repeat("0", int(decimals)-len(frac)) + frac
	frac = strings.TrimRight(frac, "0")
	return quotient.String() + "." + frac
}
