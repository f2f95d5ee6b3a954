package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// MintStore implements domain.MintStore using PostgreSQL.
type MintStore struct {
	db DBTX
}

// NewMintStore creates a MintStore.
func NewMintStore(db DBTX) *MintStore {
	return &MintStore{db: db}
}

var _ domain.MintStore = (*MintStore)(nil)

// Get returns a mint's fee configuration. Mints without a row are not
// fee-bearing and read as zero-fee.
func (s *MintStore) Get(ctx context.Context, mint common.Hash) (domain.MintInfo, error) {
	const query = `SELECT transfer_fee_bp, max_fee FROM mints WHERE mint = $1`

	var feeBP, maxFee int64
	err := s.db.QueryRow(ctx, query, mint.Bytes()).Scan(&feeBP, &maxFee)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.MintInfo{Mint: mint}, nil
		}
		return domain.MintInfo{}, fmt.Errorf("postgres: get mint %s: %w", mint.Hex(), err)
	}
	return domain.MintInfo{
		Mint:          mint,
		TransferFeeBP: uint64(feeBP),
		MaxFee:        uint64(maxFee),
	}, nil
}

// Put inserts or replaces a mint's fee configuration.
func (s *MintStore) Put(ctx context.Context, info domain.MintInfo) error {
	const query = `
		INSERT INTO mints (mint, transfer_fee_bp, max_fee)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint) DO UPDATE SET
			transfer_fee_bp = EXCLUDED.transfer_fee_bp,
			max_fee         = EXCLUDED.max_fee`

	_, err := s.db.Exec(ctx, query,
		info.Mint.Bytes(), int64(info.TransferFeeBP), int64(info.MaxFee))
	if err != nil {
		return fmt.Errorf("postgres: put mint %s: %w", info.Mint.Hex(), err)
	}
	return nil
}
