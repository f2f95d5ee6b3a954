package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// AnswerStore implements domain.AnswerStore using PostgreSQL.
type AnswerStore struct {
	db DBTX
}

// NewAnswerStore creates an AnswerStore.
func NewAnswerStore(db DBTX) *AnswerStore {
	return &AnswerStore{db: db}
}

var _ domain.AnswerStore = (*AnswerStore)(nil)

// Add appends one answer to a market's registry; a duplicate key fails with
// ErrAnswerExists.
func (s *AnswerStore) Add(ctx context.Context, a domain.Answer) error {
	const query = `
		INSERT INTO answers (market_key, answer_key, total_staked)
		VALUES ($1, $2, $3)`

	_, err := s.db.Exec(ctx, query,
		int64(a.MarketKey), int64(a.Key), int64(a.TotalStaked))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAnswerExists
		}
		return fmt.Errorf("postgres: add answer %d/%d: %w", a.MarketKey, a.Key, err)
	}
	return nil
}

// Get retrieves one answer.
func (s *AnswerStore) Get(ctx context.Context, marketKey, answerKey uint64) (domain.Answer, error) {
	const query = `
		SELECT total_staked FROM answers
		WHERE market_key = $1 AND answer_key = $2`

	var staked int64
	err := s.db.QueryRow(ctx, query, int64(marketKey), int64(answerKey)).Scan(&staked)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Answer{}, domain.ErrNotFound
		}
		return domain.Answer{}, fmt.Errorf("postgres: get answer %d/%d: %w", marketKey, answerKey, err)
	}
	return domain.Answer{MarketKey: marketKey, Key: answerKey, TotalStaked: uint64(staked)}, nil
}

// List returns a market's registry in key order.
func (s *AnswerStore) List(ctx context.Context, marketKey uint64) ([]domain.Answer, error) {
	const query = `
		SELECT answer_key, total_staked FROM answers
		WHERE market_key = $1 ORDER BY answer_key`

	rows, err := s.db.Query(ctx, query, int64(marketKey))
	if err != nil {
		return nil, fmt.Errorf("postgres: list answers for market %d: %w", marketKey, err)
	}
	defer rows.Close()

	var answers []domain.Answer
	for rows.Next() {
		var key, staked int64
		if err := rows.Scan(&key, &staked); err != nil {
			return nil, fmt.Errorf("postgres: scan answer: %w", err)
		}
		answers = append(answers, domain.Answer{
			MarketKey:   marketKey,
			Key:         uint64(key),
			TotalStaked: uint64(staked),
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list answers rows: %w", err)
	}
	return answers, nil
}

// Count returns the registry size.
func (s *AnswerStore) Count(ctx context.Context, marketKey uint64) (int, error) {
	var count int
	err := s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM answers WHERE market_key = $1`, int64(marketKey)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("postgres: count answers for market %d: %w", marketKey, err)
	}
	return count, nil
}

// AddStake credits an answer's running total.
func (s *AnswerStore) AddStake(ctx context.Context, marketKey, answerKey, amount uint64) error {
	const query = `
		UPDATE answers SET total_staked = total_staked + $3
		WHERE market_key = $1 AND answer_key = $2`

	tag, err := s.db.Exec(ctx, query, int64(marketKey), int64(answerKey), int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: add stake to answer %d/%d: %w", marketKey, answerKey, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}
