package domain

import (
	"context"
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// PlatformConfigStore persists the singleton administrative record.
type PlatformConfigStore interface {
	// Get returns the config, or ErrNotInitialized when no record exists.
	Get(ctx context.Context) (PlatformConfig, error)
	Put(ctx context.Context, cfg PlatformConfig) error
}

// MarketStore persists markets. GetForUpdate must lock the row for the
// duration of the enclosing transaction so concurrent operations on the same
// market serialize.
type MarketStore interface {
	Create(ctx context.Context, m Market) error
	Get(ctx context.Context, key uint64) (Market, error)
	GetForUpdate(ctx context.Context, key uint64) (Market, error)
	Update(ctx context.Context, m Market) error
	// ListTerminalBefore returns resolved markets whose terminal timestamp is
	// older than the cutoff. Used by the archival sweep.
	ListTerminalBefore(ctx context.Context, cutoff time.Time, limit int) ([]Market, error)
}

// AnswerStore persists the per-market answer registry.
type AnswerStore interface {
	Add(ctx context.Context, a Answer) error
	Get(ctx context.Context, marketKey, answerKey uint64) (Answer, error)
	List(ctx context.Context, marketKey uint64) ([]Answer, error)
	Count(ctx context.Context, marketKey uint64) (int, error)
	AddStake(ctx context.Context, marketKey, answerKey, amount uint64) error
}

// BetStore persists native bet records.
type BetStore interface {
	Get(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (Bet, error)
	GetForUpdate(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (Bet, error)
	Upsert(ctx context.Context, b Bet) error
	ListByMarket(ctx context.Context, marketKey uint64) ([]Bet, error)
	ListByVoter(ctx context.Context, voter common.Hash, marketKey uint64) ([]Bet, error)
}

// CrossChainBetStore persists relayed bet records.
type CrossChainBetStore interface {
	Create(ctx context.Context, b CrossChainBet) error
	Get(ctx context.Context, chainID uint16, sequence uint64) (CrossChainBet, error)
	ListByMarket(ctx context.Context, marketKey uint64) ([]CrossChainBet, error)
}

// ReplayStore is the idempotency-key store for the message relay. Mark is a
// check-and-set: it records (chainID, sequence) as consumed, or returns
// ErrAlreadyProcessed if a prior delivery already did. It runs inside the
// same transaction as the bet mutation, so the pair is atomic.
type ReplayStore interface {
	Mark(ctx context.Context, chainID uint16, sequence uint64) error
}

// BalanceStore is the token-transfer capability. Transfer debits and credits
// within the enclosing transaction; a zero-amount transfer is a no-op success;
// an over-debit fails with ErrInsufficientFunds.
type BalanceStore interface {
	Transfer(ctx context.Context, mint, from, to common.Hash, amount uint64) error
	// Deposit credits a holder out of thin air. Operational tooling only;
	// there is no API surface for it.
	Deposit(ctx context.Context, mint, to common.Hash, amount uint64) error
	Balance(ctx context.Context, mint, holder common.Hash) (uint64, error)
}

// MintStore persists per-mint transfer-fee configuration. Get returns a
// zero-fee MintInfo for unknown mints.
type MintStore interface {
	Get(ctx context.Context, mint common.Hash) (MintInfo, error)
	Put(ctx context.Context, info MintInfo) error
}

// Stores bundles every store bound to one transaction (or to the bare pool
// for read-only use).
type Stores struct {
	Config         PlatformConfigStore
	Markets        MarketStore
	Answers        AnswerStore
	Bets           BetStore
	CrossChainBets CrossChainBetStore
	Replays        ReplayStore
	Balances       BalanceStore
	Mints          MintStore
}

// TxRunner executes fn inside one atomic transaction. Every ledger operation
// runs through InTx: either all of its state mutations and transfers commit,
// or none do.
type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context, s Stores) error) error
}
