package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

func TestPlaceBet_Gates(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	ctx := context.Background()

	if err := f.admin.DraftMarket(ctx, testOwner, DraftMarketParams{Key: 1, Title: "x"}); err != nil {
		t.Fatalf("DraftMarket: %v", err)
	}
	if err := f.admin.AddAnswers(ctx, testOwner, 1, []uint64{1}); err != nil {
		t.Fatalf("AddAnswers: %v", err)
	}

	f.deposit(testStakeMint, testVoter, 1_000)

	// Draft markets do not accept stakes.
	err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 100)
	if !errors.Is(err, domain.ErrMarketNotApproved) {
		t.Fatalf("bet on draft = %v, want ErrMarketNotApproved", err)
	}

	if err := f.admin.ApproveMarket(ctx, testOwner, 1); err != nil {
		t.Fatalf("ApproveMarket: %v", err)
	}

	// Unregistered answers are rejected.
	err = f.betting.PlaceBet(ctx, testVoter, 1, 42, 100)
	if !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Fatalf("bet on unknown answer = %v, want ErrAnswerNotFound", err)
	}

	// An unfunded voter cannot stake.
	err = f.betting.PlaceBet(ctx, testVoterB, 1, 1, 100)
	if !errors.Is(err, domain.ErrInsufficientFunds) {
		t.Fatalf("unfunded bet = %v, want ErrInsufficientFunds", err)
	}

	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 100); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
}

func TestPlaceBet_Accumulates(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 1, 1)
	ctx := context.Background()

	f.deposit(testStakeMint, testVoter, 1_000)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 300); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	firstStakeAt := f.now
	f.advance(time.Hour)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 200); err != nil {
		t.Fatalf("repeat PlaceBet: %v", err)
	}

	bet := f.state().bets[betID{testVoter, 1, 1}]
	if bet.Amount != 500 {
		t.Errorf("bet amount = %d, want 500", bet.Amount)
	}
	// The accrual clock restarts on every top-up.
	if !bet.CreatedAt.After(firstStakeAt) {
		t.Errorf("bet timestamp not refreshed: %v", bet.CreatedAt)
	}
	if got := f.state().answers[1][1].TotalStaked; got != 500 {
		t.Errorf("answer total = %d, want 500", got)
	}
	if got := f.market(t, 1).TotalStaked; got != 500 {
		t.Errorf("market total = %d, want 500", got)
	}
}

// TestPlaceBet_FeeOnTransfer pins the stake-side asymmetry: the voter is
// debited the gross amount minus the transfer fee, while the gross amount is
// credited to the bet record and both running totals.
func TestPlaceBet_FeeOnTransfer(t *testing.T) {
	f := newFixture(t, flatFeeCalculator{fee: 10})
	f.initConfig(t, 0)
	f.draftApproved(t, 1, 1)
	ctx := context.Background()

	f.deposit(testStakeMint, testVoter, 1_000)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 600); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if got := f.balance(testStakeMint, testVoter); got != 410 {
		t.Errorf("voter balance = %d, want 410", got)
	}
	if got := f.balance(testStakeMint, f.market(t, 1).Vault()); got != 590 {
		t.Errorf("vault balance = %d, want 590", got)
	}
	if got := f.state().bets[betID{testVoter, 1, 1}].Amount; got != 600 {
		t.Errorf("bet amount = %d, want gross 600", got)
	}
	if got := f.market(t, 1).TotalStaked; got != 600 {
		t.Errorf("market total = %d, want gross 600", got)
	}
}

// settleScenario stakes 600/5400 on the winning answer and 4000 on the loser,
// then finishes and resolves the market with answer 1 as the winner.
func settleScenario(t *testing.T, f *fixture) {
	t.Helper()
	ctx := context.Background()
	f.draftApproved(t, 1, 1, 2)

	f.deposit(testStakeMint, testVoter, 600)
	f.deposit(testStakeMint, testVoterB, 9_400)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 600); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if err := f.betting.PlaceBet(ctx, testVoterB, 1, 1, 5_400); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if err := f.betting.PlaceBet(ctx, testVoterB, 1, 2, 4_000); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	f.advance(365 * 12 * time.Hour) // half a year on the books
	if err := f.admin.FinishMarket(ctx, testOwner, 1); err != nil {
		t.Fatalf("FinishMarket: %v", err)
	}
	if err := f.admin.ResolveSuccess(ctx, testOwner, 1, 1); err != nil {
		t.Fatalf("ResolveSuccess: %v", err)
	}
}

func TestClaim_WinnerPayoutAndReward(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 1_000) // 10% APR
	settleScenario(t, f)
	ctx := context.Background()

	rewardVault := domain.PlatformConfig{}.RewardVault()
	f.deposit(testRewardMint, rewardVault, 1_000_000)

	res, err := f.betting.Claim(ctx, testVoter, 1, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	// 600 of the 6000-token winning pool claims 600 * (9300/6000) = 930.
	if res.Payout != 930 {
		t.Errorf("payout = %d, want 930", res.Payout)
	}
	// 600 staked at 10% APR for half a year accrues 30.
	if res.Reward != 30 {
		t.Errorf("reward = %d, want 30", res.Reward)
	}
	if got := f.balance(testStakeMint, testVoter); got != 930 {
		t.Errorf("voter stake balance = %d, want 930", got)
	}
	if got := f.balance(testRewardMint, testVoter); got != 30 {
		t.Errorf("voter reward balance = %d, want 30", got)
	}

	bet := f.state().bets[betID{testVoter, 1, 1}]
	if bet.Amount != 0 {
		t.Errorf("bet amount after claim = %d, want 0", bet.Amount)
	}
	if !bet.Claimed() {
		t.Error("bet not marked claimed")
	}
	if got := f.market(t, 1).RemainingStake; got != 9_500-930 {
		t.Errorf("remaining = %d, want %d", got, 9_500-930)
	}
}

// TestClaim_LoserGetsRewardOnly pins that a losing bet pays no stake share but
// still accrues the time-weighted reward.
func TestClaim_LoserGetsRewardOnly(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 1_000)
	settleScenario(t, f)
	ctx := context.Background()

	f.deposit(testRewardMint, domain.PlatformConfig{}.RewardVault(), 1_000_000)

	res, err := f.betting.Claim(ctx, testVoterB, 1, 2)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Payout != 0 {
		t.Errorf("loser payout = %d, want 0", res.Payout)
	}
	// 4000 staked at 10% APR for half a year accrues 200.
	if res.Reward != 200 {
		t.Errorf("loser reward = %d, want 200", res.Reward)
	}
	if got := f.state().bets[betID{testVoterB, 1, 2}].Amount; got != 0 {
		t.Errorf("losing bet amount = %d, want zeroed", got)
	}
}

func TestClaim_DoubleClaimIsNoOp(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 1_000)
	settleScenario(t, f)
	ctx := context.Background()

	f.deposit(testRewardMint, domain.PlatformConfig{}.RewardVault(), 1_000_000)

	if _, err := f.betting.Claim(ctx, testVoter, 1, 1); err != nil {
		t.Fatalf("first claim: %v", err)
	}
	balAfterFirst := f.balance(testStakeMint, testVoter)
	rewardAfterFirst := f.balance(testRewardMint, testVoter)
	remainingAfterFirst := f.market(t, 1).RemainingStake

	res, err := f.betting.Claim(ctx, testVoter, 1, 1)
	if err != nil {
		t.Fatalf("second claim: %v", err)
	}
	if res.Payout != 0 || res.Reward != 0 {
		t.Errorf("second claim = %+v, want zero", res)
	}
	if f.balance(testStakeMint, testVoter) != balAfterFirst {
		t.Error("second claim moved stake tokens")
	}
	if f.balance(testRewardMint, testVoter) != rewardAfterFirst {
		t.Error("second claim moved reward tokens")
	}
	if f.market(t, 1).RemainingStake != remainingAfterFirst {
		t.Error("second claim changed remaining stake")
	}
}

func TestClaim_RequiresTerminalMarket(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 1, 1)
	ctx := context.Background()

	f.deposit(testStakeMint, testVoter, 100)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 100); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if _, err := f.betting.Claim(ctx, testVoter, 1, 1); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("claim on approved = %v, want ErrMarketNotResolved", err)
	}

	if err := f.admin.FinishMarket(ctx, testOwner, 1); err != nil {
		t.Fatalf("FinishMarket: %v", err)
	}
	if _, err := f.betting.Claim(ctx, testVoter, 1, 1); !errors.Is(err, domain.ErrMarketNotResolved) {
		t.Errorf("claim on finished = %v, want ErrMarketNotResolved", err)
	}
}

func TestClaim_AdjournRefundsInFull(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 1, 1, 2)
	ctx := context.Background()

	f.deposit(testStakeMint, testVoter, 600)
	f.deposit(testStakeMint, testVoterB, 4_000)
	if err := f.betting.PlaceBet(ctx, testVoter, 1, 1, 600); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}
	if err := f.betting.PlaceBet(ctx, testVoterB, 1, 2, 4_000); err != nil {
		t.Fatalf("PlaceBet: %v", err)
	}

	if err := f.admin.FinishMarket(ctx, testOwner, 1); err != nil {
		t.Fatalf("FinishMarket: %v", err)
	}
	if err := f.admin.AdjournMarket(ctx, testOwner, 1); err != nil {
		t.Fatalf("AdjournMarket: %v", err)
	}

	res, err := f.betting.Claim(ctx, testVoter, 1, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Payout != 600 {
		t.Errorf("refund = %d, want full 600", res.Payout)
	}
	if got := f.balance(testStakeMint, testVoter); got != 600 {
		t.Errorf("voter balance = %d, want 600", got)
	}

	res, err = f.betting.Claim(ctx, testVoterB, 1, 2)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Payout != 4_000 {
		t.Errorf("refund = %d, want full 4000", res.Payout)
	}

	// Everything refunded: the vault is drained and remaining is zero.
	if got := f.balance(testStakeMint, f.market(t, 1).Vault()); got != 0 {
		t.Errorf("vault balance = %d, want 0", got)
	}
	if got := f.market(t, 1).RemainingStake; got != 0 {
		t.Errorf("remaining = %d, want 0", got)
	}
}

// TestClaim_PayoutTransferFee pins the claim-side fee handling: the remaining
// stake is reduced by the gross share while the voter receives the share minus
// the transfer fee.
func TestClaim_PayoutTransferFee(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	settleScenario(t, f)
	ctx := context.Background()

	// Swap the fee calculator in for the claim only; stakes above went in
	// fee-free so the vault holds the full gross pot.
	f.betting.fees = flatFeeCalculator{fee: 10}

	res, err := f.betting.Claim(ctx, testVoter, 1, 1)
	if err != nil {
		t.Fatalf("Claim: %v", err)
	}
	if res.Payout != 930 {
		t.Errorf("payout = %d, want gross 930", res.Payout)
	}
	if got := f.balance(testStakeMint, testVoter); got != 920 {
		t.Errorf("voter balance = %d, want net 920", got)
	}
	if got := f.market(t, 1).RemainingStake; got != 9_500-930 {
		t.Errorf("remaining = %d, want reduced by gross", got)
	}
}

// TestClaim_Conservation checks that after every claim on a successful market
// the tokens paid out never exceed the reward base, so the vault cannot be
// overdrawn.
func TestClaim_Conservation(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	settleScenario(t, f)
	ctx := context.Background()

	var paid uint64
	for _, c := range []struct {
		voter     common.Hash
		answerKey uint64
	}{
		{testVoter, 1},
		{testVoterB, 1},
		{testVoterB, 2},
	} {
		res, err := f.betting.Claim(ctx, c.voter, 1, c.answerKey)
		if err != nil {
			t.Fatalf("Claim(%x, %d): %v", c.voter[31], c.answerKey, err)
		}
		paid += res.Payout
	}

	if paid > 9_300 {
		t.Errorf("total payouts %d exceed reward base 9300", paid)
	}
	// Winner pool 6000 splits the 9300 base exactly: 930 + 8370.
	if paid != 9_300 {
		t.Errorf("total payouts = %d, want 9300", paid)
	}
	if got := f.market(t, 1).RemainingStake; got != 200 {
		t.Errorf("remaining = %d, want the 200 platform fee residue", got)
	}
}
