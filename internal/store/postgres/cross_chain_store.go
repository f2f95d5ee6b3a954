package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/ethereum/go-ethereum/common"
	"github.com/jackc/pgx/v5"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// CrossChainBetStore implements domain.CrossChainBetStore using PostgreSQL.
type CrossChainBetStore struct {
	db DBTX
}

// NewCrossChainBetStore creates a CrossChainBetStore.
func NewCrossChainBetStore(db DBTX) *CrossChainBetStore {
	return &CrossChainBetStore{db: db}
}

var _ domain.CrossChainBetStore = (*CrossChainBetStore)(nil)

const crossChainCols = `chain_id, sequence, market_key, answer_key,
	voter_wallet, token_address, amount, created_at`

// Create records one relayed bet. The (chain_id, sequence) primary key means
// a duplicate delivery that somehow bypassed the replay mark still cannot
// produce a second record.
func (s *CrossChainBetStore) Create(ctx context.Context, b domain.CrossChainBet) error {
	const query = `
		INSERT INTO cross_chain_bets (` + crossChainCols + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`

	_, err := s.db.Exec(ctx, query,
		int16(b.ChainID), int64(b.Sequence), int64(b.MarketKey), int64(b.AnswerKey),
		b.VoterWallet.Bytes(), b.TokenAddress.Bytes(), int64(b.Amount), b.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrAlreadyProcessed
		}
		return fmt.Errorf("postgres: create cross-chain bet %d/%d: %w", b.ChainID, b.Sequence, err)
	}
	return nil
}

// Get retrieves one relayed bet by its delivery key.
func (s *CrossChainBetStore) Get(ctx context.Context, chainID uint16, sequence uint64) (domain.CrossChainBet, error) {
	row := s.db.QueryRow(ctx,
		`SELECT `+crossChainCols+` FROM cross_chain_bets
		 WHERE chain_id = $1 AND sequence = $2`,
		int16(chainID), int64(sequence))
	b, err := scanCrossChainBet(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.CrossChainBet{}, domain.ErrNotFound
		}
		return domain.CrossChainBet{}, fmt.Errorf("postgres: get cross-chain bet %d/%d: %w", chainID, sequence, err)
	}
	return b, nil
}

// ListByMarket returns every relayed bet on a market.
func (s *CrossChainBetStore) ListByMarket(ctx context.Context, marketKey uint64) ([]domain.CrossChainBet, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+crossChainCols+` FROM cross_chain_bets
		 WHERE market_key = $1 ORDER BY chain_id, sequence`,
		int64(marketKey))
	if err != nil {
		return nil, fmt.Errorf("postgres: list cross-chain bets for market %d: %w", marketKey, err)
	}
	defer rows.Close()

	var bets []domain.CrossChainBet
	for rows.Next() {
		b, err := scanCrossChainBet(rows)
		if err != nil {
			return nil, fmt.Errorf("postgres: scan cross-chain bet: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: cross-chain bet rows: %w", err)
	}
	return bets, nil
}

func scanCrossChainBet(row pgx.Row) (domain.CrossChainBet, error) {
	var (
		b                    domain.CrossChainBet
		chainID              int16
		sequence             int64
		marketKey, answerKey int64
		amount               int64
		wallet, token        []byte
	)
	err := row.Scan(&chainID, &sequence, &marketKey, &answerKey, &wallet, &token, &amount, &b.CreatedAt)
	if err != nil {
		return domain.CrossChainBet{}, err
	}
	b.ChainID = uint16(chainID)
	b.Sequence = uint64(sequence)
	b.MarketKey = uint64(marketKey)
	b.AnswerKey = uint64(answerKey)
	b.VoterWallet = common.BytesToHash(wallet)
	b.TokenAddress = common.BytesToHash(token)
	b.Amount = uint64(amount)
	return b, nil
}
