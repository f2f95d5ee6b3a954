package domain

import (
	"context"

	"github.com/ethereum/go-ethereum/common"
)

// FeeCalculator answers how much of a transfer a fee-on-transfer mint keeps.
// Both methods return zero for non-fee-bearing mints.
type FeeCalculator interface {
	// TransferFee returns the fee charged when preFeeAmount is sent.
	TransferFee(ctx context.Context, mint common.Hash, preFeeAmount uint64) (uint64, error)
	// InverseTransferFee returns the fee that must be added on top of
	// postFeeAmount for the recipient to receive postFeeAmount net.
	InverseTransferFee(ctx context.Context, mint common.Hash, postFeeAmount uint64) (uint64, error)
}
