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

// AdminService drives the platform config lifecycle and the market state
// machine. Every mutating entry point is gated on the stored config owner
// before any state changes.
type AdminService struct {
	tx     domain.TxRunner
	events *EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewAdminService creates an AdminService.
func NewAdminService(tx domain.TxRunner, events *EventPublisher, logger *slog.Logger) *AdminService {
	return &AdminService{
		tx:     tx,
		events: events,
		logger: logger.With(slog.String("component", "admin")),
		now:    time.Now,
	}
}

// requireOwner is the authorization gate shared by every admin-only operation.
func requireOwner(cfg domain.PlatformConfig, caller common.Hash) error {
	if !cfg.Initialized || cfg.Owner != caller {
		return domain.ErrUnauthorized
	}
	return nil
}

// InitializeConfigParams carries the initial platform configuration.
type InitializeConfigParams struct {
	Owner             common.Hash
	RewardMint        common.Hash
	RewardAPRBP       uint64
	ServiceFeeAccount common.Hash
	TreasuryAccount   common.Hash
}

// InitializeConfig creates the singleton platform config. A second call fails
// with ErrAlreadyInitialized.
func (a *AdminService) InitializeConfig(ctx context.Context, p InitializeConfigParams) error {
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		_, err := s.Config.Get(ctx)
		if err == nil {
			return domain.ErrAlreadyInitialized
		}
		if !errors.Is(err, domain.ErrNotInitialized) {
			return fmt.Errorf("service: load config: %w", err)
		}
		cfg := domain.PlatformConfig{
			Initialized:       true,
			Owner:             p.Owner,
			RewardMint:        p.RewardMint,
			RewardAPRBP:       p.RewardAPRBP,
			ServiceFeeAccount: p.ServiceFeeAccount,
			TreasuryAccount:   p.TreasuryAccount,
			UpdatedAt:         a.now().UTC(),
		}
		if err := s.Config.Put(ctx, cfg); err != nil {
			return fmt.Errorf("service: store config: %w", err)
		}
		return nil
	})
	if err != nil {
		return err
	}
	a.logger.InfoContext(ctx, "platform config initialized",
		slog.String("owner", p.Owner.Hex()),
	)
	return nil
}

// UpdateOwner hands platform ownership to a new identity.
func (a *AdminService) UpdateOwner(ctx context.Context, caller, newOwner common.Hash) error {
	return a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		cfg.Owner = newOwner
		cfg.UpdatedAt = a.now().UTC()
		if err := s.Config.Put(ctx, cfg); err != nil {
			return fmt.Errorf("service: store config: %w", err)
		}
		return nil
	})
}

// SetAccounts updates the fee-collection identities. Nil fields are left
// unchanged.
func (a *AdminService) SetAccounts(ctx context.Context, caller common.Hash, serviceFee, treasury *common.Hash) error {
	return a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		if serviceFee != nil {
			cfg.ServiceFeeAccount = *serviceFee
		}
		if treasury != nil {
			cfg.TreasuryAccount = *treasury
		}
		cfg.UpdatedAt = a.now().UTC()
		if err := s.Config.Put(ctx, cfg); err != nil {
			return fmt.Errorf("service: store config: %w", err)
		}
		return nil
	})
}

// UpdateRewardConfig updates the reward mint and/or APR. Nil fields are left
// unchanged.
func (a *AdminService) UpdateRewardConfig(ctx context.Context, caller common.Hash, rewardMint *common.Hash, aprBP *uint64) error {
	return a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		if rewardMint != nil {
			cfg.RewardMint = *rewardMint
		}
		if aprBP != nil {
			cfg.RewardAPRBP = *aprBP
		}
		cfg.UpdatedAt = a.now().UTC()
		if err := s.Config.Put(ctx, cfg); err != nil {
			return fmt.Errorf("service: store config: %w", err)
		}
		return nil
	})
}

// DraftMarketParams carries the fields of a new market.
type DraftMarketParams struct {
	Key            uint64
	Creator        common.Hash
	StakeMint      common.Hash
	Title          string
	CreatorFeeFlat uint64
	CreatorFeeBP   uint64
	PlatformFeeBP  uint64
}

// DraftMarket creates a market in the draft state with an empty answer
// registry.
func (a *AdminService) DraftMarket(ctx context.Context, caller common.Hash, p DraftMarketParams) error {
	if p.Title == "" || len(p.Title) > domain.MaxTitleLen {
		return domain.ErrInvalidTitle
	}
	if err := ledger.ValidateFeeConfig(p.CreatorFeeBP, p.PlatformFeeBP); err != nil {
		return err
	}

	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		now := a.now().UTC()
		m := domain.Market{
			Key:            p.Key,
			Creator:        p.Creator,
			StakeMint:      p.StakeMint,
			Title:          p.Title,
			Status:         domain.MarketStatusDraft,
			CreatorFeeFlat: p.CreatorFeeFlat,
			CreatorFeeBP:   p.CreatorFeeBP,
			PlatformFeeBP:  p.PlatformFeeBP,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := s.Markets.Create(ctx, m); err != nil {
			return fmt.Errorf("service: create market %d: %w", p.Key, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.events.Emit(ctx, domain.EventMarketDrafted, domain.MarketDrafted{
		MarketKey:     p.Key,
		Creator:       p.Creator,
		Title:         p.Title,
		CreatorFee:    p.CreatorFeeFlat,
		CreatorFeeBP:  p.CreatorFeeBP,
		PlatformFeeBP: p.PlatformFeeBP,
	})
	return nil
}

// AddAnswers appends a batch of answer keys to a market's registry. The batch
// is all-or-nothing: a single duplicate or a registry overflow rolls the whole
// call back. An empty batch is a no-op and emits nothing.
func (a *AdminService) AddAnswers(ctx context.Context, caller common.Hash, marketKey uint64, answerKeys []uint64) error {
	if len(answerKeys) == 0 {
		return nil
	}
	seen := make(map[uint64]struct{}, len(answerKeys))
	for _, k := range answerKeys {
		if _, dup := seen[k]; dup {
			return domain.ErrAnswerExists
		}
		seen[k] = struct{}{}
	}

	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		if _, err := s.Markets.GetForUpdate(ctx, marketKey); err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		count, err := s.Answers.Count(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: count answers: %w", err)
		}
		if count+len(answerKeys) > domain.MaxAnswers {
			return domain.ErrMaxAnswersReached
		}
		for _, k := range answerKeys {
			if err := s.Answers.Add(ctx, domain.Answer{MarketKey: marketKey, Key: k}); err != nil {
				return fmt.Errorf("service: add answer %d: %w", k, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.events.Emit(ctx, domain.EventAnswerAdded, domain.AnswerAdded{
		MarketKey:  marketKey,
		NewAnswers: answerKeys,
	})
	return nil
}

// ApproveMarket opens a market for betting. The transition is unconditional;
// it records the approval timestamp.
func (a *AdminService) ApproveMarket(ctx context.Context, caller common.Hash, marketKey uint64) error {
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		now := a.now().UTC()
		m.Status = domain.MarketStatusApproved
		m.ApprovedAt = now
		m.UpdatedAt = now
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.events.Emit(ctx, domain.EventMarketApproved, domain.MarketApproved{MarketKey: marketKey})
	return nil
}

// FinishMarket closes betting and snapshots the settlement base: the market's
// remaining stake becomes its total staked amount.
func (a *AdminService) FinishMarket(ctx context.Context, caller common.Hash, marketKey uint64) error {
	var finished domain.MarketFinished
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if m.Status != domain.MarketStatusApproved {
			return domain.ErrMarketNotApproved
		}
		now := a.now().UTC()
		m.Status = domain.MarketStatusFinished
		m.FinishedAt = now
		m.RemainingStake = m.TotalStaked
		m.UpdatedAt = now
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		finished = domain.MarketFinished{
			MarketKey:      marketKey,
			FinishedAt:     now,
			RemainingStake: m.RemainingStake,
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.events.Emit(ctx, domain.EventMarketFinished, finished)
	return nil
}

// ResolveSuccess declares the winning answer, settles fees out of the market
// vault and leaves the reward base in escrow for proportional claims.
func (a *AdminService) ResolveSuccess(ctx context.Context, caller common.Hash, marketKey, winningAnswer uint64) error {
	var success domain.MarketSuccess
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if m.Status != domain.MarketStatusFinished {
			return domain.ErrMarketNotFinished
		}
		if _, err := s.Answers.Get(ctx, marketKey, winningAnswer); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrWinnerNotRegistered
			}
			return fmt.Errorf("service: load answer %d: %w", winningAnswer, err)
		}

		fees, err := ledger.SettleFees(&m)
		if err != nil {
			return fmt.Errorf("service: settle market %d: %w", marketKey, err)
		}
		vault := m.Vault()
		if err := s.Balances.Transfer(ctx, m.StakeMint, vault, m.Creator, fees.Creator); err != nil {
			return fmt.Errorf("service: pay creator fee: %w", err)
		}
		if err := s.Balances.Transfer(ctx, m.StakeMint, vault, cfg.ServiceFeeAccount, fees.Platform); err != nil {
			return fmt.Errorf("service: pay platform fee: %w", err)
		}

		now := a.now().UTC()
		m.Status = domain.MarketStatusSuccess
		m.SucceededAt = now
		m.WinningAnswer = winningAnswer
		m.UpdatedAt = now
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		success = domain.MarketSuccess{
			MarketKey:      marketKey,
			AnswerKey:      winningAnswer,
			CreatorFee:     fees.Creator,
			PlatformFee:    fees.Platform,
			RemainingStake: m.RemainingStake,
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.logger.InfoContext(ctx, "market resolved",
		slog.Uint64("market_key", marketKey),
		slog.Uint64("winning_answer", winningAnswer),
		slog.Uint64("creator_fee", success.CreatorFee),
		slog.Uint64("platform_fee", success.PlatformFee),
	)
	a.events.Emit(ctx, domain.EventMarketSuccess, success)
	return nil
}

// AdjournMarket voids the event. No fees are deducted; the full remaining
// stake stays refundable at claim time.
func (a *AdminService) AdjournMarket(ctx context.Context, caller common.Hash, marketKey uint64) error {
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if m.Status != domain.MarketStatusFinished {
			return domain.ErrMarketNotFinished
		}
		now := a.now().UTC()
		m.Status = domain.MarketStatusAdjourned
		m.AdjournedAt = now
		m.UpdatedAt = now
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		return nil
	})
	if err != nil {
		return err
	}

	a.events.Emit(ctx, domain.EventMarketAdjourned, domain.MarketAdjourned{MarketKey: marketKey})
	return nil
}

// RetrieveRemainder sweeps a terminal market's unclaimed stake to the treasury
// once the status-specific cooldown has elapsed. It returns the amount swept.
func (a *AdminService) RetrieveRemainder(ctx context.Context, caller common.Hash, marketKey uint64) (uint64, error) {
	var swept uint64
	err := a.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		cfg, err := s.Config.Get(ctx)
		if err != nil {
			return fmt.Errorf("service: load config: %w", err)
		}
		if err := requireOwner(cfg, caller); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, marketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", marketKey, err)
		}
		if err := ledger.RetrieveAvailable(m, a.now()); err != nil {
			return err
		}
		swept = m.RemainingStake
		if err := s.Balances.Transfer(ctx, m.StakeMint, m.Vault(), cfg.TreasuryAccount, swept); err != nil {
			return fmt.Errorf("service: sweep remainder: %w", err)
		}
		m.RemainingStake = 0
		m.UpdatedAt = a.now().UTC()
		if err := s.Markets.Update(ctx, m); err != nil {
			return fmt.Errorf("service: update market %d: %w", marketKey, err)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	a.events.Emit(ctx, domain.EventRemainderRetrieved, domain.RemainderRetrieved{
		MarketKey: marketKey,
		Amount:    swept,
	})
	return swept, nil
}
