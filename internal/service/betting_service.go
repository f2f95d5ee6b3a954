package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
	"github.com/predixlabs/forecast-ledger/internal/ledger"
)

// BettingService handles the native stake and claim paths.
type BettingService struct {
	tx     domain.TxRunner
	fees   domain.FeeCalculator
	events *EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewBettingService creates a BettingService.
func NewBettingService(tx domain.TxRunner, fees domain.FeeCalculator, events *EventPublisher, logger *slog.Logger) *BettingService {
	return &BettingService{
		tx:     tx,
		fees:   fees,
		events: events,
		logger: logger.With(slog.String("component", "betting")),
		now:    time.Now,
	}
}

// PlaceBet stakes amount on an answer of an approved market. The voter is
// debited the gross amount minus the mint's transfer fee, while the gross
// amount is what gets credited to the bet record and the running totals: the
// protocol absorbs fee-on-transfer losses rather than under-crediting the
// bettor. A repeat stake on the same (voter, answer) pair accumulates into the
// existing record and refreshes its timestamp.
func (b *BettingService) PlaceBet(ctx context.Context, voter common.Hash, marketKey, answerKey, amount uint64) error {
	err := b.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if m.Status != domain.MarketStatusApproved {
			return domain.ErrMarketNotApproved
		}
		if _, err := s.Answers.Get(ctx, marketKey, answerKey); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrAnswerNotFound
			}
			return fmt.Errorf("service: load answer %d: %w", answerKey, err)
		}

		fee, err := b.fees.InverseTransferFee(ctx, m.StakeMint, amount)
		if err != nil {
			return fmt.Errorf("service: transfer fee: %w", err)
		}
		debit, err := ledger.CheckedSub(amount, fee)
		if err != nil {
			return err
		}
		if err := s.Balances.Transfer(ctx, m.StakeMint, voter, m.Vault(), debit); err != nil {
			return fmt.Errorf("service: escrow stake: %w", err)
		}

		bet, err := s.Bets.GetForUpdate(ctx, voter, marketKey, answerKey)
		switch {
		case errors.Is(err, domain.ErrNotFound):
			bet = domain.Bet{Voter: voter, MarketKey: marketKey, AnswerKey: answerKey}
		case err != nil:
			return fmt.Errorf("service: load bet: %w", err)
		}
		bet.Amount, err = ledger.CheckedAdd(bet.Amount, amount)
		if err != nil {
			return err
		}
		bet.CreatedAt = b.now().UTC()
		if err := s.Bets.Upsert(ctx, bet); err != nil {
			return fmt.Errorf("service: store bet: %w", err)
		}

		if err := s.Answers.AddStake(ctx, marketKey, answerKey, amount); err != nil {
			return fmt.Errorf("service: credit answer %d: %w", answerKey, err)
		}
		m.TotalStaked, err = ledger.CheckedAdd(m.TotalStaked, amount)
		if err != nil {
			return err
		}
		m.UpdatedAt = b.now().UTC()
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	b.events.Emit(ctx, domain.EventBetPlaced, domain.BetPlaced{
		Voter:     voter,
		MarketKey: marketKey,
		AnswerKey: answerKey,
		Amount:    amount,
	})
	return nil
}

// ClaimResult reports what a claim paid out.
type ClaimResult struct {
	Payout uint64 `json:"payout"`
	Reward uint64 `json:"reward"`
}

// Claim settles one bet on a resolved market. On success, a winning bet
// receives its proportional share of the reward base and a losing bet receives
// nothing; on adjourn, every bet is refunded in full. Either way the bet's
// amount is zeroed, which makes a second claim a no-op. The time-accrued APR
// reward is paid from the shared reward vault using the stake amount and
// timestamp as they were before zeroing, win or lose.
func (b *BettingService) Claim(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (ClaimResult, error) {
	var res ClaimResult
	err := b.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		res = ClaimResult{}

		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if !m.IsTerminal() {
			return domain.ErrMarketNotResolved
		}
		bet, err := s.Bets.GetForUpdate(ctx, voter, marketKey, answerKey)
		if err != nil {
			return fmt.Errorf("service: load bet: %w", err)
		}
		if bet.Amount == 0 {
			// Already claimed (or never funded): pay nothing, mutate nothing.
			return nil
		}
		stake := bet.Amount

		var receive uint64
		switch {
		case m.Status == domain.MarketStatusSuccess && bet.AnswerKey == m.WinningAnswer:
			winner, err := s.Answers.Get(ctx, marketKey, m.WinningAnswer)
			if err != nil {
				return fmt.Errorf("service: load winning answer: %w", err)
			}
			fraction, err := ledger.WinFraction(m.RewardBase, winner.TotalStaked)
			if err != nil {
				return err
			}
			receive, err = ledger.Receive(stake, fraction)
			if err != nil {
				return err
			}
		case m.Status == domain.MarketStatusAdjourned:
			if _, err := s.Answers.Get(ctx, marketKey, bet.AnswerKey); err != nil {
				if errors.Is(err, domain.ErrNotFound) {
					return domain.ErrInvalidAnswerKey
				}
				return fmt.Errorf("service: load answer %d: %w", bet.AnswerKey, err)
			}
			receive, err = ledger.Receive(stake, ledger.RefundFraction())
			if err != nil {
				return err
			}
		}

		if receive > 0 {
			if err := ledger.Deduct(&m, receive); err != nil {
				return fmt.Errorf("service: deduct payout: %w", err)
			}
			fee, err := b.fees.InverseTransferFee(ctx, m.StakeMint, receive)
			if err != nil {
				return fmt.Errorf("service: transfer fee: %w", err)
			}
			net, err := ledger.CheckedSub(receive, fee)
			if err != nil {
				return err
			}
			if err := s.Balances.Transfer(ctx, m.StakeMint, m.Vault(), voter, net); err != nil {
				return fmt.Errorf("service: pay claim: %w", err)
			}
		}

		now := b.now().UTC()
		bet.Amount = 0
		bet.ClaimedAt = now
		if err := s.Bets.Upsert(ctx, bet); err != nil {
			return fmt.Errorf("service: store bet: %w", err)
		}

		reward, err := ledger.RewardAmount(stake, cfg.RewardAPRBP, bet.CreatedAt, m.FinishedAt)
		if err != nil {
			return fmt.Errorf("service: reward: %w", err)
		}
		if reward > 0 {
			if err := s.Balances.Transfer(ctx, cfg.RewardMint, cfg.RewardVault(), voter, reward); err != nil {
				return fmt.Errorf("service: pay reward: %w", err)
			}
		}

		m.UpdatedAt = now
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		res = ClaimResult{Payout: receive, Reward: reward}
		return nil
	})
	if err != nil {
		return ClaimResult{}, err
	}

	if res.Payout > 0 {
		b.events.Emit(ctx, domain.EventTokenClaimed, domain.TokenClaimed{
			Receiver:  voter,
			MarketKey: marketKey,
			AnswerKey: answerKey,
			Amount:    res.Payout,
		})
	}
	if res.Reward > 0 {
		b.events.Emit(ctx, domain.EventRewardClaimed, domain.RewardClaimed{
			Receiver: voter,
			Amount:   res.Reward,
		})
	}
	return res, nil
}
