package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// relayPayload renders a valid relay document targeting the given market and
// answer, staking the given amount from chain 43114.
func relayPayload(marketKey, answerKey, amount uint64) []byte {
	array := func(fill byte) string {
		parts := make([]string, 32)
		for i := range parts {
			parts[i] = fmt.Sprintf("%d", fill)
		}
		return "[" + strings.Join(parts, ",") + "]"
	}
	return []byte(fmt.Sprintf(`{
		"marketKey": "%x",
		"answerKey": "%x",
		"createTime": "6155df00",
		"chainId": 43114,
		"tokens": "%x",
		"voterWalletAddress": %s,
		"tokenAddress": %s
	}`, marketKey, answerKey, amount, array(7), array(9)))
}

func TestIngestMessage(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 122, 2)
	ctx := context.Background()

	if err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 1_000)); err != nil {
		t.Fatalf("IngestMessage: %v", err)
	}

	bet, ok := f.state().crossBets[deliveryID{43114, 55}]
	if !ok {
		t.Fatal("cross-chain bet not recorded")
	}
	if bet.MarketKey != 122 || bet.AnswerKey != 2 || bet.Amount != 1_000 {
		t.Errorf("bet = %+v, want market 122 answer 2 amount 1000", bet)
	}
	for i := 0; i < 32; i++ {
		if bet.VoterWallet[i] != 7 {
			t.Fatalf("voter wallet byte %d = %d, want 7", i, bet.VoterWallet[i])
		}
	}
}

// TestIngestMessage_NoLedgerCredit pins that relayed stakes live on the
// cross-chain ledger only: the answer registry and the market totals stay
// untouched, matching the origin-chain escrow accounting.
func TestIngestMessage_NoLedgerCredit(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 122, 2)
	ctx := context.Background()

	if err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 1_000)); err != nil {
		t.Fatalf("IngestMessage: %v", err)
	}

	if got := f.market(t, 122).TotalStaked; got != 0 {
		t.Errorf("market total = %d, want 0 after relayed bet", got)
	}
	if got := f.state().answers[122][2].TotalStaked; got != 0 {
		t.Errorf("answer total = %d, want 0 after relayed bet", got)
	}
}

func TestIngestMessage_ReplayRejected(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 122, 2)
	ctx := context.Background()

	if err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 1_000)); err != nil {
		t.Fatalf("first delivery: %v", err)
	}
	err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 2_000))
	if !errors.Is(err, domain.ErrAlreadyProcessed) {
		t.Fatalf("replay = %v, want ErrAlreadyProcessed", err)
	}

	// The first record stands; the replay changed nothing.
	if got := len(f.state().crossBets); got != 1 {
		t.Errorf("cross-chain bet count = %d, want 1", got)
	}
	if got := f.state().crossBets[deliveryID{43114, 55}].Amount; got != 1_000 {
		t.Errorf("recorded amount = %d, want the original 1000", got)
	}

	// A different sequence from the same chain is accepted.
	if err := f.relay.IngestMessage(ctx, 56, relayPayload(122, 2, 2_000)); err != nil {
		t.Fatalf("next sequence: %v", err)
	}
}

// TestIngestMessage_FailureReleasesSequence verifies that a delivery rejected
// by a state gate does not consume its replay slot.
func TestIngestMessage_FailureReleasesSequence(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	ctx := context.Background()

	if err := f.admin.DraftMarket(ctx, testOwner, DraftMarketParams{Key: 122, Title: "x"}); err != nil {
		t.Fatalf("DraftMarket: %v", err)
	}
	if err := f.admin.AddAnswers(ctx, testOwner, 122, []uint64{2}); err != nil {
		t.Fatalf("AddAnswers: %v", err)
	}

	// Draft markets reject relayed stakes.
	err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 1_000))
	if !errors.Is(err, domain.ErrMarketNotApproved) {
		t.Fatalf("relay on draft = %v, want ErrMarketNotApproved", err)
	}

	// Once the market opens, the same sequence goes through: the failed
	// delivery left no replay mark behind.
	if err := f.admin.ApproveMarket(ctx, testOwner, 122); err != nil {
		t.Fatalf("ApproveMarket: %v", err)
	}
	if err := f.relay.IngestMessage(ctx, 55, relayPayload(122, 2, 1_000)); err != nil {
		t.Fatalf("retry after approval: %v", err)
	}
}

func TestIngestMessage_UnknownTargets(t *testing.T) {
	f := newFixture(t, feeFreeCalculator{})
	f.initConfig(t, 0)
	f.draftApproved(t, 122, 2)
	ctx := context.Background()

	err := f.relay.IngestMessage(ctx, 55, relayPayload(999, 2, 1_000))
	if !errors.Is(err, domain.ErrNotFound) {
		t.Errorf("unknown market = %v, want ErrNotFound", err)
	}
	err = f.relay.IngestMessage(ctx, 56, relayPayload(122, 9, 1_000))
	if !errors.Is(err, domain.ErrAnswerNotFound) {
		t.Errorf("unknown answer = %v, want ErrAnswerNotFound", err)
	}
	err = f.relay.IngestMessage(ctx, 57, []byte(`{"marketKey": 122}`))
	if !errors.Is(err, domain.ErrInvalidMessage) {
		t.Errorf("malformed payload = %v, want ErrInvalidMessage", err)
	}
}
