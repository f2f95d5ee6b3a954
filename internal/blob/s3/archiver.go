package s3blob

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
	"github.com/predixlabs/forecast-ledger/internal/ledger"
)

// Narrow store interfaces required by the archiver. The pool-bound postgres
// stores satisfy these implicitly; the archiver only needs read access.

// MarketArchiveStore provides read access to settled markets.
type MarketArchiveStore interface {
	ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Market, error)
}

// AnswerArchiveStore provides read access to a market's answer registry.
type AnswerArchiveStore interface {
	List(ctx context.Context, marketKey uint64) ([]domain.Answer, error)
}

// BetArchiveStore provides read access to a market's native bets.
type BetArchiveStore interface {
	ListByMarket(ctx context.Context, marketKey uint64) ([]domain.Bet, error)
}

// CrossChainArchiveStore provides read access to a market's relayed bets.
type CrossChainArchiveStore interface {
	ListByMarket(ctx context.Context, marketKey uint64) ([]domain.CrossChainBet, error)
}

// Snapshot is the archived representation of one settled market.
type Snapshot struct {
	Market         domain.Market         `json:"market"`
	Answers        []domain.Answer       `json:"answers"`
	Bets           []domain.Bet          `json:"bets"`
	CrossChainBets []domain.CrossChainBet `json:"cross_chain_bets"`
	ArchivedAt     time.Time             `json:"archived_at"`
}

// Archiver periodically snapshots settled markets whose retrieval window has
// elapsed to object storage. The sweep runs under a distributed lock so that
// only one instance archives at a time; markets that already have a snapshot
// are skipped, making the sweep idempotent.
type Archiver struct {
	writer    *Writer
	reader    *Reader
	markets   MarketArchiveStore
	answers   AnswerArchiveStore
	bets      BetArchiveStore
	crossBets CrossChainArchiveStore
	locks     domain.LockManager
	logger    *slog.Logger
	interval  time.Duration
	batchSize int
	now       func() time.Time
}

// NewArchiver creates an Archiver sweeping every interval, at most batchSize
// markets per sweep.
func NewArchiver(
	writer *Writer,
	reader *Reader,
	markets MarketArchiveStore,
	answers AnswerArchiveStore,
	bets BetArchiveStore,
	crossBets CrossChainArchiveStore,
	locks domain.LockManager,
	logger *slog.Logger,
	interval time.Duration,
	batchSize int,
) *Archiver {
	return &Archiver{
		writer:    writer,
		reader:    reader,
		markets:   markets,
		answers:   answers,
		bets:      bets,
		crossBets: crossBets,
		locks:     locks,
		logger:    logger.With(slog.String("component", "archiver")),
		interval:  interval,
		batchSize: batchSize,
		now:       time.Now,
	}
}

// Run sweeps on a ticker until the context is cancelled.
func (a *Archiver) Run(ctx context.Context) error {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	a.logger.InfoContext(ctx, "archival sweep started",
		slog.Duration("interval", a.interval),
	)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			if err := a.Sweep(ctx); err != nil {
				a.logger.ErrorContext(ctx, "archival sweep failed",
					slog.String("error", err.Error()),
				)
			}
		}
	}
}

// Sweep archives one batch of eligible markets. It is a no-op when another
// instance holds the sweep lock.
func (a *Archiver) Sweep(ctx context.Context) error {
	unlock, err := a.locks.Acquire(ctx, "archive-sweep", 5*time.Minute)
	if err != nil {
		if errors.Is(err, domain.ErrLockHeld) {
			a.logger.DebugContext(ctx, "sweep lock held elsewhere, skipping")
			return nil
		}
		return fmt.Errorf("s3blob: acquire sweep lock: %w", err)
	}
	defer unlock()

	now := a.now()
	// The adjourn window is the shorter of the two cooldowns; the per-market
	// check below enforces the longer success window.
	cutoff := now.Add(-ledger.AdjournRetrieveAfter)
	markets, err := a.markets.ListTerminalBefore(ctx, cutoff, a.batchSize)
	if err != nil {
		return fmt.Errorf("s3blob: list settled markets: %w", err)
	}

	for _, m := range markets {
		if ledger.RetrieveAvailable(m, now) != nil {
			continue
		}
		if err := a.archiveMarket(ctx, m, now); err != nil {
			a.logger.ErrorContext(ctx, "archive market failed",
				slog.Uint64("market_key", m.Key),
				slog.String("error", err.Error()),
			)
		}
	}
	return nil
}

// archiveMarket writes one market snapshot unless one already exists.
func (a *Archiver) archiveMarket(ctx context.Context, m domain.Market, now time.Time) error {
	path := snapshotPath(m.Key)

	exists, err := a.reader.Exists(ctx, path)
	if err != nil {
		return fmt.Errorf("check snapshot %s: %w", path, err)
	}
	if exists {
		return nil
	}

	answers, err := a.answers.List(ctx, m.Key)
	if err != nil {
		return fmt.Errorf("list answers: %w", err)
	}
	bets, err := a.bets.ListByMarket(ctx, m.Key)
	if err != nil {
		return fmt.Errorf("list bets: %w", err)
	}
	crossBets, err := a.crossBets.ListByMarket(ctx, m.Key)
	if err != nil {
		return fmt.Errorf("list cross-chain bets: %w", err)
	}

	snap := Snapshot{
		Market:         m,
		Answers:        answers,
		Bets:           bets,
		CrossChainBets: crossBets,
		ArchivedAt:     now.UTC(),
	}
	data, err := json.Marshal(snap)
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}

	if err := a.writer.Put(ctx, path, bytes.NewReader(data), "application/json"); err != nil {
		return fmt.Errorf("upload snapshot: %w", err)
	}

	a.logger.InfoContext(ctx, "market archived",
		slog.Uint64("market_key", m.Key),
		slog.String("path", path),
		slog.Int("bets", len(bets)),
	)
	return nil
}

// snapshotPath builds the object key for a market snapshot.
func snapshotPath(marketKey uint64) string {
	return fmt.Sprintf("markets/%d/snapshot.json", marketKey)
}
