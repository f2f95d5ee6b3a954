package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// BalanceStore implements domain.BalanceStore on a balances table keyed by
// (mint, holder). A transfer is a conditional debit plus an upsert credit in
// the enclosing transaction, so it is atomic with the ledger mutation that
// triggered it.
type BalanceStore struct {
	db DBTX
}

// NewBalanceStore creates a BalanceStore.
func NewBalanceStore(db DBTX) *BalanceStore {
	return &BalanceStore{db: db}
}

var _ domain.BalanceStore = (*BalanceStore)(nil)

// Transfer moves amount from one holder to another. A zero amount is a no-op
// success; a debit exceeding the source balance fails with
// ErrInsufficientFunds.
func (s *BalanceStore) Transfer(ctx context.Context, mint, from, to common.Hash, amount uint64) error {
	if amount == 0 {
		return nil
	}

	const debit = `
		UPDATE balances SET amount = amount - $3
		WHERE mint = $1 AND holder = $2 AND amount >= $3`

	tag, err := s.db.Exec(ctx, debit, mint.Bytes(), from.Bytes(), int64(amount))
	if err != nil {
		return fmt.Errorf("postgres: debit %s: %w", from.Hex(), err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrInsufficientFunds
	}

	if err := s.credit(ctx, mint, to, amount); err != nil {
		return fmt.Errorf("postgres: credit %s: %w", to.Hex(), err)
	}
	return nil
}

// Deposit credits a holder without a matching debit. Operational tooling only.
func (s *BalanceStore) Deposit(ctx context.Context, mint, to common.Hash, amount uint64) error {
	if amount == 0 {
		return nil
	}
	if err := s.credit(ctx, mint, to, amount); err != nil {
		return fmt.Errorf("postgres: deposit to %s: %w", to.Hex(), err)
	}
	return nil
}

// Balance returns a holder's balance; absent rows read as zero.
func (s *BalanceStore) Balance(ctx context.Context, mint, holder common.Hash) (uint64, error) {
	const query = `SELECT amount FROM balances WHERE mint = $1 AND holder = $2`

	var amount int64
	err := s.db.QueryRow(ctx, query, mint.Bytes(), holder.Bytes()).Scan(&amount)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("postgres: balance of %s: %w", holder.Hex(), err)
	}
	return uint64(amount), nil
}

func (s *BalanceStore) credit(ctx context.Context, mint, to common.Hash, amount uint64) error {
	const query = `
		INSERT INTO balances (mint, holder, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (mint, holder) DO UPDATE SET
			amount = balances.amount + EXCLUDED.amount`

	_, err := s.db.Exec(ctx, query, mint.Bytes(), to.Bytes(), int64(amount))
	return err
}
