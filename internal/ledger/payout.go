package ledger

import (
	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// WinFraction returns the PayoutScale-scaled fraction of their stake a winning
// bettor receives on a successful market: reward_base / total staked on the
// winning answer. A zero winner total cannot be divided by and fails with
// ErrArithmetic.
func WinFraction(rewardBase, winnerTotal uint64) (uint64, error) {
	return mulDiv(rewardBase, PayoutScale, winnerTotal)
}

// RefundFraction is the full-refund fraction used when a market is adjourned.
func RefundFraction() uint64 {
	return PayoutScale
}

// Receive converts a stake amount and a scaled fraction into the tokens owed,
// flooring.
func Receive(amount, fraction uint64) (uint64, error) {
	return mulDiv(amount, fraction, PayoutScale)
}

// Deduct subtracts a claim payout from the market's remaining stake. An
// underflow here means the fee/reward-base accounting was violated upstream;
// it is reported, never clamped.
func Deduct(m *domain.Market, receive uint64) error {
	remaining, err := CheckedSub(m.RemainingStake, receive)
	if err != nil {
		return err
	}
	m.RemainingStake = remaining
	return nil
}
