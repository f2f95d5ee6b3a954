// Package token implements the transfer-fee calculators for fee-on-transfer
// mints. Fee configuration lives in the mint registry; mints without an entry
// are treated as fee-free.
package token

import (
	"context"
	"fmt"
	"math/bits"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// maxFeeBasisPoints is the largest representable fee rate; a mint configured
// at this rate always charges its flat maximum fee.
const maxFeeBasisPoints = 10_000

// Calculator implements domain.FeeCalculator against a mint registry.
type Calculator struct {
	mints domain.MintStore
}

// NewCalculator creates a Calculator reading fee configs from the given store.
func NewCalculator(mints domain.MintStore) *Calculator {
	return &Calculator{mints: mints}
}

// TransferFee returns the fee withheld when preFeeAmount is transferred,
// rounding up and capping at the mint's maximum fee.
func (c *Calculator) TransferFee(ctx context.Context, mint common.Hash, preFeeAmount uint64) (uint64, error) {
	info, err := c.mints.Get(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("token: mint config %s: %w", mint.Hex(), err)
	}
	if info.TransferFeeBP == 0 {
		return 0, nil
	}
	if info.TransferFeeBP >= maxFeeBasisPoints {
		return info.MaxFee, nil
	}
	fee, err := ceilDiv(preFeeAmount, info.TransferFeeBP, maxFeeBasisPoints)
	if err != nil {
		return 0, err
	}
	return min(fee, info.MaxFee), nil
}

// InverseTransferFee returns the fee to add on top of postFeeAmount so the
// recipient nets postFeeAmount.
func (c *Calculator) InverseTransferFee(ctx context.Context, mint common.Hash, postFeeAmount uint64) (uint64, error) {
	info, err := c.mints.Get(ctx, mint)
	if err != nil {
		return 0, fmt.Errorf("token: mint config %s: %w", mint.Hex(), err)
	}
	if info.TransferFeeBP == 0 {
		return 0, nil
	}
	if info.TransferFeeBP >= maxFeeBasisPoints {
		return info.MaxFee, nil
	}
	fee, err := ceilDiv(postFeeAmount, info.TransferFeeBP, maxFeeBasisPoints-info.TransferFeeBP)
	if err != nil {
		return 0, err
	}
	return min(fee, info.MaxFee), nil
}

// ceilDiv computes ceil(a*b/den) with a 128-bit intermediate.
func ceilDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrArithmetic
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, domain.ErrOverflow
	}
	q, rem := bits.Div64(hi, lo, den)
	if rem > 0 {
		if q == ^uint64(0) {
			return 0, domain.ErrOverflow
		}
		q++
	}
	return q, nil
}

// Compile-time interface check.
var _ domain.FeeCalculator = (*Calculator)(nil)
