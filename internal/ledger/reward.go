package ledger

import (
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// RewardAmount computes the time-accrued APR reward for a stake held from
// createTime until finishTime:
//
//	floor(amount * apr_bp / 10000 * staked_seconds / seconds_per_year)
//
// Every bettor accrues this for the duration their funds were locked,
// independent of whether the bet won. It fails with ErrInvalidTimeRange when
// finishTime precedes createTime.
func RewardAmount(amount, aprBP uint64, createTime, finishTime time.Time) (uint64, error) {
	if finishTime.Before(createTime) {
		return 0, domain.ErrInvalidTimeRange
	}
	stakedSeconds := uint64(finishTime.Unix() - createTime.Unix())

	annual, err := mulDiv(amount, aprBP, BasisPoints)
	if err != nil {
		return 0, err
	}
	return mulDiv(annual, stakedSeconds, SecondsPerYear)
}
