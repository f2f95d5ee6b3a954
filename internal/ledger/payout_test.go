package ledger

import (
	"errors"
	"testing"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// TestWinFraction_Scenario continues the canonical settlement: reward base
// 9300, winning answer pool 6000, a 600-token stake claims 930.
func TestWinFraction_Scenario(t *testing.T) {
	fraction, err := WinFraction(9_300, 6_000)
	if err != nil {
		t.Fatalf("WinFraction: %v", err)
	}

	receive, err := Receive(600, fraction)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if receive != 930 {
		t.Errorf("receive = %d, want 930", receive)
	}
}

func TestWinFraction_ZeroWinnerPool(t *testing.T) {
	if _, err := WinFraction(9_300, 0); !errors.Is(err, domain.ErrArithmetic) {
		t.Fatalf("WinFraction with zero pool = %v, want ErrArithmetic", err)
	}
}

func TestReceive_FloorsTowardZero(t *testing.T) {
	// reward base 100 over a pool of 3: each unit stake claims floor(100/3).
	fraction, err := WinFraction(100, 3)
	if err != nil {
		t.Fatalf("WinFraction: %v", err)
	}
	receive, err := Receive(1, fraction)
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if receive != 33 {
		t.Errorf("receive = %d, want 33", receive)
	}
}

// TestReceive_NeverExceedsBase checks that the sum of floored claims never
// pays out more than the reward base.
func TestReceive_NeverExceedsBase(t *testing.T) {
	cases := []struct {
		rewardBase uint64
		stakes     []uint64
	}{
		{9_300, []uint64{600, 5_400}},
		{100, []uint64{1, 1, 1}},
		{7, []uint64{2, 5}},
		{1 << 50, []uint64{3, 1 << 30, 12345}},
	}

	for _, tc := range cases {
		var winnerTotal uint64
		for _, s := range tc.stakes {
			winnerTotal += s
		}
		fraction, err := WinFraction(tc.rewardBase, winnerTotal)
		if err != nil {
			t.Fatalf("WinFraction(%d, %d): %v", tc.rewardBase, winnerTotal, err)
		}

		var paid uint64
		for _, s := range tc.stakes {
			receive, err := Receive(s, fraction)
			if err != nil {
				t.Fatalf("Receive(%d): %v", s, err)
			}
			paid += receive
		}
		if paid > tc.rewardBase {
			t.Errorf("base=%d stakes=%v: paid %d exceeds base", tc.rewardBase, tc.stakes, paid)
		}
	}
}

func TestRefundFraction_IsWhole(t *testing.T) {
	receive, err := Receive(600, RefundFraction())
	if err != nil {
		t.Fatalf("Receive: %v", err)
	}
	if receive != 600 {
		t.Errorf("refund = %d, want full 600", receive)
	}
}

func TestDeduct(t *testing.T) {
	m := domain.Market{RemainingStake: 1_000}
	if err := Deduct(&m, 930); err != nil {
		t.Fatalf("Deduct: %v", err)
	}
	if m.RemainingStake != 70 {
		t.Errorf("remaining = %d, want 70", m.RemainingStake)
	}

	if err := Deduct(&m, 71); !errors.Is(err, domain.ErrArithmetic) {
		t.Fatalf("over-deduct = %v, want ErrArithmetic", err)
	}
	if m.RemainingStake != 70 {
		t.Errorf("remaining mutated on failed deduct: %d", m.RemainingStake)
	}
}

func TestCheckedMath(t *testing.T) {
	if _, err := CheckedAdd(^uint64(0), 1); !errors.Is(err, domain.ErrOverflow) {
		t.Errorf("CheckedAdd overflow = %v, want ErrOverflow", err)
	}
	if sum, err := CheckedAdd(2, 3); err != nil || sum != 5 {
		t.Errorf("CheckedAdd(2,3) = %d, %v", sum, err)
	}
	if _, err := CheckedSub(1, 2); !errors.Is(err, domain.ErrArithmetic) {
		t.Errorf("CheckedSub underflow = %v, want ErrArithmetic", err)
	}
	if diff, err := CheckedSub(5, 3); err != nil || diff != 2 {
		t.Errorf("CheckedSub(5,3) = %d, %v", diff, err)
	}
}

// TestMulDiv_LargeIntermediate checks that a product overflowing 64 bits still
// divides correctly through the 128-bit intermediate.
func TestMulDiv_LargeIntermediate(t *testing.T) {
	// (2^63) * 4 / 8 = 2^61 overflows a 64-bit product but not the quotient.
	got, err := mulDiv(1<<63, 4, 8)
	if err != nil {
		t.Fatalf("mulDiv: %v", err)
	}
	if got != 1<<61 {
		t.Errorf("mulDiv = %d, want %d", got, uint64(1)<<61)
	}

	if _, err := mulDiv(1<<63, 4, 1); !errors.Is(err, domain.ErrOverflow) {
		t.Errorf("oversized quotient = %v, want ErrOverflow", err)
	}
	if _, err := mulDiv(1, 1, 0); !errors.Is(err, domain.ErrArithmetic) {
		t.Errorf("zero denominator = %v, want ErrArithmetic", err)
	}
}
