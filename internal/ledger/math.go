// Package ledger holds the settlement, fee, payout and reward arithmetic.
// Everything here is pure: 64-bit inputs, 128-bit intermediates, truncating
// division, and an explicit error instead of silent clamping or saturation —
// a clamp would misstate ledger balances.
package ledger

import (
	"math/bits"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

const (
	// BasisPoints is the denominator for all percentage math; 10000 bp = 100%.
	BasisPoints = 10_000

	// PayoutScale is the fixed-point scale for the proportional payout
	// fraction computed at claim time.
	PayoutScale = 1_000_000_000_000

	// SecondsPerYear prorates the reward APR.
	SecondsPerYear = 31_536_000
)

// mulDiv computes a*b/den with a 128-bit intermediate and floor division.
// It fails with ErrArithmetic on a zero denominator and ErrOverflow when the
// quotient does not fit in 64 bits.
func mulDiv(a, b, den uint64) (uint64, error) {
	if den == 0 {
		return 0, domain.ErrArithmetic
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= den {
		return 0, domain.ErrOverflow
	}
	q, _ := bits.Div64(hi, lo, den)
	return q, nil
}

// CheckedAdd adds with overflow detection.
func CheckedAdd(a, b uint64) (uint64, error) {
	sum, carry := bits.Add64(a, b, 0)
	if carry != 0 {
		return 0, domain.ErrOverflow
	}
	return sum, nil
}

// CheckedSub subtracts, failing instead of wrapping on underflow.
func CheckedSub(a, b uint64) (uint64, error) {
	diff, borrow := bits.Sub64(a, b, 0)
	if borrow != 0 {
		return 0, domain.ErrArithmetic
	}
	return diff, nil
}
