package ledger

import (
	"errors"
	"testing"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

func TestRewardAmount(t *testing.T) {
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name   string
		amount uint64
		aprBP  uint64
		held   time.Duration
		want   uint64
	}{
		// 10000 staked at 10% APR for a full year.
		{"full year", 10_000, 1_000, 365 * 24 * time.Hour, 1_000},
		// Half a year accrues half the annual reward.
		{"half year", 10_000, 1_000, 365 * 12 * time.Hour, 500},
		{"zero duration", 10_000, 1_000, 0, 0},
		{"zero apr", 10_000, 0, 365 * 24 * time.Hour, 0},
		{"zero amount", 0, 1_000, 365 * 24 * time.Hour, 0},
		// Sub-unit accrual floors to zero.
		{"one second small stake", 100, 1_000, time.Second, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RewardAmount(tt.amount, tt.aprBP, base, base.Add(tt.held))
			if err != nil {
				t.Fatalf("RewardAmount: %v", err)
			}
			if got != tt.want {
				t.Errorf("RewardAmount = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestRewardAmount_FinishBeforeCreate(t *testing.T) {
	base := time.Date(2025, time.March, 1, 0, 0, 0, 0, time.UTC)
	_, err := RewardAmount(100, 1_000, base, base.Add(-time.Second))
	if !errors.Is(err, domain.ErrInvalidTimeRange) {
		t.Fatalf("RewardAmount = %v, want ErrInvalidTimeRange", err)
	}
}

func TestRetrieveAvailable(t *testing.T) {
	now := time.Date(2026, time.January, 1, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name    string
		market  domain.Market
		wantErr error
	}{
		{
			"success past cooldown",
			domain.Market{Status: domain.MarketStatusSuccess, SucceededAt: now.Add(-SuccessRetrieveAfter - time.Hour)},
			nil,
		},
		{
			"success within cooldown",
			domain.Market{Status: domain.MarketStatusSuccess, SucceededAt: now.Add(-SuccessRetrieveAfter)},
			domain.ErrRetrieveTooEarly,
		},
		{
			"adjourned past cooldown",
			domain.Market{Status: domain.MarketStatusAdjourned, AdjournedAt: now.Add(-AdjournRetrieveAfter - time.Hour)},
			nil,
		},
		{
			"adjourned within cooldown",
			domain.Market{Status: domain.MarketStatusAdjourned, AdjournedAt: now.Add(-time.Hour)},
			domain.ErrRetrieveTooEarly,
		},
		{
			"not terminal",
			domain.Market{Status: domain.MarketStatusFinished},
			domain.ErrRetrieveNotTerminal,
		},
		{
			"draft",
			domain.Market{Status: domain.MarketStatusDraft},
			domain.ErrRetrieveNotTerminal,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := RetrieveAvailable(tt.market, now)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("RetrieveAvailable = %v, want %v", err, tt.wantErr)
			}
		})
	}
}
