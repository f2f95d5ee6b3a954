package ledger

import (
	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// Fees is the result of settling a market: both amounts are paid out of the
// market vault immediately at resolution.
type Fees struct {
	Creator  uint64 // flat creator fee plus the percentage cut
	Platform uint64
}

// ValidateFeeConfig enforces the drafting invariant
// creator_fee_bp + platform_fee_bp <= 10000.
func ValidateFeeConfig(creatorBP, platformBP uint64) error {
	sum, err := CheckedAdd(creatorBP, platformBP)
	if err != nil {
		return domain.ErrInvalidFeeConfig
	}
	if sum > BasisPoints {
		return domain.ErrInvalidFeeConfig
	}
	return nil
}

// SettleFees runs the resolution-time fee deduction against the market's
// snapshotted RemainingStake:
//
//	creator_fee = flat + remaining * creator_bp / 10000
//	platform_fee = remaining * platform_bp / 10000
//	reward_base = remaining - creator_fee - platform_fee
//
// RemainingStake is reduced by the creator fee; RewardBase is what winners
// split proportionally at claim time. Any arithmetic failure aborts the
// settlement with no mutation.
func SettleFees(m *domain.Market) (Fees, error) {
	remaining := m.RemainingStake

	pctCreator, err := mulDiv(remaining, m.CreatorFeeBP, BasisPoints)
	if err != nil {
		return Fees{}, err
	}
	creatorFee, err := CheckedAdd(m.CreatorFeeFlat, pctCreator)
	if err != nil {
		return Fees{}, err
	}
	platformFee, err := mulDiv(remaining, m.PlatformFeeBP, BasisPoints)
	if err != nil {
		return Fees{}, err
	}

	rewardBase, err := CheckedSub(remaining, creatorFee)
	if err != nil {
		return Fees{}, err
	}
	rewardBase, err = CheckedSub(rewardBase, platformFee)
	if err != nil {
		return Fees{}, err
	}

	newRemaining, err := CheckedSub(m.RemainingStake, creatorFee)
	if err != nil {
		return Fees{}, err
	}

	m.RemainingStake = newRemaining
	m.RewardBase = rewardBase
	return Fees{Creator: creatorFee, Platform: platformFee}, nil
}
