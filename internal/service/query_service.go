package service

import (
	"context"
	"fmt"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// QueryService serves read-only lookups. It runs against pool-bound stores;
// reads take no row locks.
type QueryService struct {
	stores domain.Stores
}

// NewQueryService creates a QueryService over pool-bound stores.
func NewQueryService(stores domain.Stores) *QueryService {
	return &QueryService{stores: stores}
}

// GetMarket returns one market by key.
func (q *QueryService) GetMarket(ctx context.Context, key uint64) (domain.Market, error) {
	m, err := q.stores.Markets.Get(ctx, key)
	if err != nil {
		return domain.Market{}, fmt.Errorf("service: load market %d: %w", key, err)
	}
	return m, nil
}

// ListAnswers returns a market's answer registry in key order.
func (q *QueryService) ListAnswers(ctx context.Context, marketKey uint64) ([]domain.Answer, error) {
	answers, err := q.stores.Answers.List(ctx, marketKey)
	if err != nil {
		return nil, fmt.Errorf("service: list answers for market %d: %w", marketKey, err)
	}
	return answers, nil
}

// GetBet returns one native bet record.
func (q *QueryService) GetBet(ctx context.Context, voter common.Hash, marketKey, answerKey uint64) (domain.Bet, error) {
	b, err := q.stores.Bets.Get(ctx, voter, marketKey, answerKey)
	if err != nil {
		return domain.Bet{}, fmt.Errorf("service: load bet: %w", err)
	}
	return b, nil
}

// ListBets returns every native bet on a market.
func (q *QueryService) ListBets(ctx context.Context, marketKey uint64) ([]domain.Bet, error) {
	bets, err := q.stores.Bets.ListByMarket(ctx, marketKey)
	if err != nil {
		return nil, fmt.Errorf("service: list bets for market %d: %w", marketKey, err)
	}
	return bets, nil
}

// ListBetsByVoter returns one voter's bets on a market.
func (q *QueryService) ListBetsByVoter(ctx context.Context, voter common.Hash, marketKey uint64) ([]domain.Bet, error) {
	bets, err := q.stores.Bets.ListByVoter(ctx, voter, marketKey)
	if err != nil {
		return nil, fmt.Errorf("service: list voter bets: %w", err)
	}
	return bets, nil
}

// ListCrossChainBets returns every relayed bet on a market.
func (q *QueryService) ListCrossChainBets(ctx context.Context, marketKey uint64) ([]domain.CrossChainBet, error) {
	bets, err := q.stores.CrossChainBets.ListByMarket(ctx, marketKey)
	if err != nil {
		return nil, fmt.Errorf("service: list cross-chain bets for market %d: %w", marketKey, err)
	}
	return bets, nil
}
