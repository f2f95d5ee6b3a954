package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// DBTX is the querying surface shared by *pgxpool.Pool and pgx.Tx, letting the
// same store code run against the pool (reads) or inside a transaction
// (ledger mutations).
type DBTX interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// NewStores binds every store to the given querying surface.
func NewStores(db DBTX) domain.Stores {
	return domain.Stores{
		Config:         NewConfigStore(db),
		Markets:        NewMarketStore(db),
		Answers:        NewAnswerStore(db),
		Bets:           NewBetStore(db),
		CrossChainBets: NewCrossChainBetStore(db),
		Replays:        NewReplayStore(db),
		Balances:       NewBalanceStore(db),
		Mints:          NewMintStore(db),
	}
}

// TxRunner implements domain.TxRunner on a pgx connection pool. Each call runs
// fn inside one database transaction: the commit is the ledger-atomicity
// boundary, and SELECT ... FOR UPDATE row locks taken inside fn serialize
// concurrent operations on the same market or bet.
type TxRunner struct {
	pool *pgxpool.Pool
}

// NewTxRunner creates a TxRunner on the given pool.
func NewTxRunner(pool *pgxpool.Pool) *TxRunner {
	return &TxRunner{pool: pool}
}

// InTx runs fn in one transaction, committing on nil and rolling back on
// error. Domain sentinel errors pass through unwrapped so callers can match
// them with errors.Is.
func (r *TxRunner) InTx(ctx context.Context, fn func(ctx context.Context, s domain.Stores) error) error {
	return pgx.BeginTxFunc(ctx, r.pool, pgx.TxOptions{}, func(tx pgx.Tx) error {
		return fn(ctx, NewStores(tx))
	})
}

var _ domain.TxRunner = (*TxRunner)(nil)

// isUniqueViolation reports whether err is a primary-key or unique-index
// conflict.
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// timePtr maps the domain's zero-time convention onto a nullable column.
func timePtr(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

// timeVal is the inverse of timePtr.
func timeVal(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
