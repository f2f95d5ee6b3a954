package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
	"github.com/predixlabs/forecast-ledger/internal/relay"
)

// RelayService ingests authenticated cross-chain bet messages. The transport
// verifies signatures before delivery; here the payload is decoded, deduplicated
// by (chain id, sequence) and recorded as a cross-chain bet.
type RelayService struct {
	tx     domain.TxRunner
	events *EventPublisher
	logger *slog.Logger
	now    func() time.Time
}

// NewRelayService creates a RelayService.
func NewRelayService(tx domain.TxRunner, events *EventPublisher, logger *slog.Logger) *RelayService {
	return &RelayService{
		tx:     tx,
		events: events,
		logger: logger.With(slog.String("component", "relay")),
		now:    time.Now,
	}
}

// IngestMessage applies one relayed bet delivery. The replay mark and the bet
// record are created in the same transaction, so a duplicate delivery of the
// same (chain id, sequence) fails with ErrAlreadyProcessed and mutates
// nothing.
//
// The relayed stake is recorded on the cross-chain ledger only; it does not
// feed the answer registry or market totals, mirroring the settlement
// contract's origin-chain accounting.
func (r *RelayService) IngestMessage(ctx context.Context, sequence uint64, raw []byte) error {
	p, err := relay.Decode(raw)
	if err != nil {
		return err
	}

	bet := domain.CrossChainBet{
		ChainID:      p.ChainID,
		Sequence:     sequence,
		MarketKey:    p.MarketKey,
		AnswerKey:    p.AnswerKey,
		VoterWallet:  p.VoterWallet,
		TokenAddress: p.TokenAddress,
		Amount:       p.Amount,
		CreatedAt:    p.CreatedAt,
	}

	err = r.tx.InTx(ctx, func(ctx context.Context, s domain.Stores) error {
		if err := s.Replays.Mark(ctx, p.ChainID, sequence); err != nil {
			return err
		}
		m, err := s.Markets.GetForUpdate(ctx, p.MarketKey)
		if err != nil {
			return fmt.Errorf("service: load market %d: %w", p.MarketKey, err)
		}
		if m.Status != domain.MarketStatusApproved {
			return domain.ErrMarketNotApproved
		}
		if _, err := s.Answers.Get(ctx, p.MarketKey, p.AnswerKey); err != nil {
			if errors.Is(err, domain.ErrNotFound) {
				return domain.ErrAnswerNotFound
			}
			return fmt.Errorf("service: load answer %d: %w", p.AnswerKey, err)
		}
		if err := s.CrossChainBets.Create(ctx, bet); err != nil {
			return fmt.Errorf("service: create cross-chain bet: %w", err)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, domain.ErrAlreadyProcessed) {
			r.logger.WarnContext(ctx, "duplicate relay delivery",
				slog.Uint64("chain_id", uint64(p.ChainID)),
				slog.Uint64("sequence", sequence),
			)
		}
		return err
	}

	r.events.Emit(ctx, domain.EventBetCrossChainPlaced, domain.BetCrossChainPlaced{
		ChainID:     p.ChainID,
		Sequence:    sequence,
		MarketKey:   p.MarketKey,
		AnswerKey:   p.AnswerKey,
		VoterWallet: p.VoterWallet,
		Amount:      p.Amount,
	})
	return nil
}
