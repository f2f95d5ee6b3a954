package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// BetStore implements domain.BetStore using PostgreSQL.
type BetStore struct {
	db DBTX
}

// NewBetStore creates a BetStore.
func NewBetStore(db DBTX) *BetStore {
	return &BetStore{db: db}
}

var _ domain.BetStore = (*BetStore)(nil)

const betCols = `voter, market_key, answer_key, amount, created_at, claimed_at`

// Get retrieves one bet record.
func (s *BetStore) Get(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (domain.Bet, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE voter = $1 AND market_key = $2 AND answer_key = $3`,
		voter.Bytes(), int64(marketKey), int64(answerKey))
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: get bet: %w", err)
	}
	return b, nil
}

// GetForUpdate retrieves a bet and locks its row for the rest of the enclosing
// transaction. Two concurrent claims against the same record serialize here,
// so the second always observes the zeroed amount.
func (s *BetStore) GetForUpdate(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (domain.Bet, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE voter = $1 AND market_key = $2 AND answer_key = $3 FOR UPDATE`,
		voter.Bytes(), int64(marketKey), int64(answerKey))
	b, err := scanBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Bet{}, domain.ErrNotFound
		}
		return domain.Bet{}, fmt.Errorf("postgres: lock bet: %w", err)
	}
	return b, nil
}

// Upsert inserts a new bet record or replaces an existing one.
func (s *BetStore) Upsert(ctx context.Context, b domain.Bet) error {
	const query = `
		INSERT INTO bets (` + betCols + `)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (voter, market_key, answer_key) DO UPDATE SET
			amount     = EXCLUDED.amount,
			created_at = EXCLUDED.created_at,
			claimed_at = EXCLUDED.claimed_at`

	_, err := s.db.Exec(ctx, query,
		b.Voter.Bytes(), int64(b.MarketKey), int64(b.AnswerKey),
		int64(b.Amount), b.CreatedAt, timePtr(b.ClaimedAt),
	)
	if err != nil {
		return fmt.Errorf("postgres: upsert bet: %w", err)
	}
	return nil
}

// ListByMarket returns every bet on a market.
func (s *BetStore) ListByMarket(ctx context.Context, marketKey uint64) ([]domain.Bet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+betCols+` FROM bets WHERE market_key = $1 ORDER BY created_at`,
		int64(marketKey))
	if err != nil {
		return nil, fmt.Errorf("postgres: list bets for market %d: %w", marketKey, err)
	}
	return collectBets(rows)
}

// ListByVoter returns one voter's bets on a market.
func (s *BetStore) ListByVoter(ctx context.Context, voter common.Hash, marketKey uint64) ([]domain.Bet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+betCols+` FROM bets
		 WHERE voter = $1 AND market_key = $2 ORDER BY answer_key`,
		voter.Bytes(), int64(marketKey))
	if err != nil {
		return nil, fmt.Errorf("postgres: list voter bets: %w", err)
	}
	return collectBets(rows)
}

func collectBets(rows pgx.Rows) ([]domain.Bet, error) {
	defer rows.Close()

	var bets []domain.Bet
	for rows.Next() {
		b, err := scanBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: bet rows: %w", err)
	}
	return bets, nil
}

func scanBet(row pgx.Row) (domain.Bet, error) {
	var (
		b                     domain.Bet
		voter                 []byte
		marketKey, answerKey  int64
		amount                int64
		claimedAt             *time.Time
	)
	err := row.Scan(&voter, &marketKey, &answerKey, &amount, &b.CreatedAt, &claimedAt)
	if err != nil {
		return domain.Bet{}, err
	}
	b.Voter = common.BytesToHash(voter)
	b.MarketKey = uint64(marketKey)
	b.AnswerKey = uint64(answerKey)
	b.Amount = uint64(amount)
	b.ClaimedAt = timeVal(claimedAt)
	return b, nil
}
