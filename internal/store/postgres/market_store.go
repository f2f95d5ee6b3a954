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

// MarketStore implements domain.MarketStore using PostgreSQL.
type MarketStore struct {
	db DBTX
}

// NewMarketStore creates a MarketStore.
func NewMarketStore(db DBTX) *MarketStore {
	return &MarketStore{db: db}
}

var _ domain.MarketStore = (*MarketStore)(nil)

const marketCols = `key, creator, stake_mint, title, status,
	creator_fee_flat, creator_fee_bp, platform_fee_bp,
	approved_at, finished_at, adjourned_at, succeeded_at,
	total_staked, remaining_stake, winning_answer, reward_base,
	created_at, updated_at`

// Create inserts a new market; a key collision fails with ErrMarketExists.
func (s *MarketStore) Create(ctx context.Context, m domain.Market) error {
	const query = `
		INSERT INTO markets (` + marketCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`

	_, err := s.db.Exec(ctx, query,
		int64(m.Key), m.Creator.Bytes(), m.StakeMint.Bytes(), m.Title, string(m.Status),
		int64(m.CreatorFeeFlat), int64(m.CreatorFeeBP), int64(m.PlatformFeeBP),
		timePtr(m.ApprovedAt), timePtr(m.FinishedAt), timePtr(m.AdjournedAt), timePtr(m.SucceededAt),
		int64(m.TotalStaked), int64(m.RemainingStake), int64(m.WinningAnswer), int64(m.RewardBase),
		m.CreatedAt, m.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrMarketExists
		}
		return fmt.Errorf("postgres: create market %d: %w", m.Key, err)
	}
	return nil
}

// Get retrieves a market by key.
func (s *MarketStore) Get(ctx context.Context, key uint64) (domain.Market, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE key = $1`, int64(key))
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: get market %d: %w", key, err)
	}
	return m, nil
}

// GetForUpdate retrieves a market and locks its row for the rest of the
// enclosing transaction.
func (s *MarketStore) GetForUpdate(ctx context.Context, key uint64) (domain.Market, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+marketCols+` FROM markets WHERE key = $1 FOR UPDATE`, int64(key))
	m, err := scanMarket(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.Market{}, domain.ErrNotFound
		}
		return domain.Market{}, fmt.Errorf("postgres: lock market %d: %w", key, err)
	}
	return m, nil
}

// Update rewrites every mutable column of an existing market.
func (s *MarketStore) Update(ctx context.Context, m domain.Market) error {
	const query = `
		UPDATE markets SET
			title           = $2,
			status          = $3,
			approved_at     = $4,
			finished_at     = $5,
			adjourned_at    = $6,
			succeeded_at    = $7,
			total_staked    = $8,
			remaining_stake = $9,
			winning_answer  = $10,
			reward_base     = $11,
			updated_at      = $12
		WHERE key = $1`

	tag, err := s.db.Exec(ctx, query,
		int64(m.Key), m.Title, string(m.Status),
		timePtr(m.ApprovedAt), timePtr(m.FinishedAt), timePtr(m.AdjournedAt), timePtr(m.SucceededAt),
		int64(m.TotalStaked), int64(m.RemainingStake), int64(m.WinningAnswer), int64(m.RewardBase),
		m.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: update market %d: %w", m.Key, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// ListTerminalBefore returns resolved markets whose terminal timestamp is
// older than the cutoff, oldest first.
func (s *MarketStore) ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]domain.Market, error) {
	const query = `
		SELECT ` + marketCols + ` FROM markets
		WHERE (status = 'success' AND succeeded_at < $1)
		   OR (status = 'adjourned' AND adjourned_at < $1)
		ORDER BY COALESCE(succeeded_at, adjourned_at)
		LIMIT $2`

	rows, err := s.db.Query(ctx, query, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list terminal markets: %w", err)
	}
	defer rows.Close()

	var markets []domain.Market
	for rows.Next() {
		m, err := scanMarket(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan terminal market: %w", err)
		}
		markets = append(markets, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list terminal markets rows: %w", err)
	}
	return markets, nil
}

// scanMarket scans one market row.
func scanMarket(row pgx.Row) (domain.Market, error) {
	var (
		m                                                  domain.Market
		key, feeFlat, creatorBP, platformBP                int64
		totalStaked, remainingStake, winningAnswer, reward int64
		creator, stakeMint                                 []byte
		status                                             string
		approvedAt, finishedAt, adjournedAt, succeededAt   *time.Time
	)
	err := row.Scan(
		&key, &creator, &stakeMint, &m.Title, &status,
		&feeFlat, &creatorBP, &platformBP,
		&approvedAt, &finishedAt, &adjournedAt, &succeededAt,
		&totalStaked, &remainingStake, &winningAnswer, &reward,
		&m.CreatedAt, &m.UpdatedAt,
	)
	if err != nil {
		return domain.Market{}, err
	}
	m.Key = uint64(key)
	m.Creator = common.BytesToHash(creator)
	m.StakeMint = common.BytesToHash(stakeMint)
	m.Status = domain.MarketStatus(status)
	m.CreatorFeeFlat = uint64(feeFlat)
	m.CreatorFeeBP = uint64(creatorBP)
	m.PlatformFeeBP = uint64(platformBP)
	m.ApprovedAt = timeVal(approvedAt)
	m.FinishedAt = timeVal(finishedAt)
	m.AdjournedAt = timeVal(adjournedAt)
	m.SucceededAt = timeVal(succeededAt)
	m.TotalStaked = uint64(totalStaked)
	m.RemainingStake = uint64(remainingStake)
	m.WinningAnswer = uint64(winningAnswer)
	m.RewardBase = uint64(reward)
	return m, nil
}
