package postgres

import (
	"context"
	"fmt"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// ReplayStore implements domain.ReplayStore using PostgreSQL. The receipt row
// is inserted inside the same transaction as the bet mutation: committing the
// pair is what makes a relay delivery exactly-once.
type ReplayStore struct {
	db DBTX
}

// NewReplayStore creates a ReplayStore.
func NewReplayStore(db DBTX) *ReplayStore {
	return &ReplayStore{db: db}
}

var _ domain.ReplayStore = (*ReplayStore)(nil)

// Mark records (chainID, sequence) as consumed, failing with
// ErrAlreadyProcessed if a prior delivery already holds the receipt.
func (s *ReplayStore) Mark(ctx context.Context, chainID uint16, sequence uint64) error {
	const query = `
		INSERT INTO relay_receipts (chain_id, sequence)
		VALUES ($1, $2)`

	_, err := s.db.Exec(ctx, query, int16(chainID), int64(sequence))
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyProcessed
		}
		return fmt.Errorf("postgres: mark relay receipt %d/%d: %w", chainID, sequence, err)
	}
	return nil
}
