package ethaddr

import (
	"fmt"

	"github.com/XVM-Systems/RAIL/internal/pkg/apperrors"

	"github.com/ethereum/go-ethereum/common"
)

// Parse validates a 0x-prefixed hex address and returns its EIP-55
// checksummed form.
func Parse(address string) (common.Address, error) {
	if !common.IsHexAddress(address) {
		return common.Address{}, fmt.Errorf("%w: invalid address '%s'", apperrors.ErrInvalidInput, address)
	}
	return common.HexToAddress(address), nil
}
