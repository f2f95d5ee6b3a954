package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// ConfigStore implements domain.PlatformConfigStore using PostgreSQL. The
// table holds at most one row, enforced by a constant primary key.
type ConfigStore struct {
	db DBTX
}

// NewConfigStore creates a ConfigStore.
func NewConfigStore(db DBTX) *ConfigStore {
	return &ConfigStore{db: db}
}

var _ domain.PlatformConfigStore = (*ConfigStore)(nil)

// Get returns the singleton config, or ErrNotInitialized when the row is
// absent.
func (s *ConfigStore) Get(ctx context.Context) (domain.PlatformConfig, error) {
	const query = `
		SELECT owner_identity, reward_mint, reward_apr_bp,
		       service_fee_account, treasury_account, updated_at
		FROM platform_config WHERE id = 1`

	var (
		cfg                                    domain.PlatformConfig
		owner, rewardMint, serviceFee, treasury []byte
		aprBP                                  int64
	)
	err := s.db.QueryRow(ctx, query).Scan(
		&owner, &rewardMint, &aprBP, &serviceFee, &treasury, &cfg.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.PlatformConfig{}, domain.ErrNotInitialized
		}
		return domain.PlatformConfig{}, fmt.Errorf("postgres: get config: %w", err)
	}
	cfg.Initialized = true
	cfg.Owner = common.BytesToHash(owner)
	cfg.RewardMint = common.BytesToHash(rewardMint)
	cfg.RewardAPRBP = uint64(aprBP)
	cfg.ServiceFeeAccount = common.BytesToHash(serviceFee)
	cfg.TreasuryAccount = common.BytesToHash(treasury)
	return cfg, nil
}

// Put inserts or replaces the singleton config row.
func (s *ConfigStore) Put(ctx context.Context, cfg domain.PlatformConfig) error {
	const query = `
		INSERT INTO platform_config (
			id, owner_identity, reward_mint, reward_apr_bp,
			service_fee_account, treasury_account, updated_at
		) VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			owner_identity      = EXCLUDED.owner_identity,
			reward_mint         = EXCLUDED.reward_mint,
			reward_apr_bp       = EXCLUDED.reward_apr_bp,
			service_fee_account = EXCLUDED.service_fee_account,
			treasury_account    = EXCLUDED.treasury_account,
			updated_at          = EXCLUDED.updated_at`

	_, err := s.db.Exec(ctx, query,
		cfg.Owner.Bytes(), cfg.RewardMint.Bytes(), int64(cfg.RewardAPRBP),
		cfg.ServiceFeeAccount.Bytes(), cfg.TreasuryAccount.Bytes(), cfg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: put config: %w", err)
	}
	return nil
}
