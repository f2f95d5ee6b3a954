package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Event types emitted to the signal bus. Off-chain indexers reconstruct the
// ledger state from these without replaying the settlement logic.
const (
	EventMarketDrafted       = "market_drafted"
	EventMarketApproved      = "market_approved"
	EventMarketFinished      = "market_finished"
	EventMarketSuccess       = "market_success"
	EventMarketAdjourned     = "market_adjourned"
	EventAnswerAdded         = "answer_added"
	EventBetPlaced           = "bet_placed"
	EventBetCrossChainPlaced = "bet_cross_chain_placed"
	EventTokenClaimed        = "token_claimed"
	EventRewardClaimed       = "reward_claimed"
	EventRemainderRetrieved  = "remainder_retrieved"
)

// Event is the envelope published for every ledger mutation.
type Event struct {
	Type string    `json:"type"`
	At   time.Time `json:"at"`
	Data any       `json:"data"`
}

type MarketDrafted struct {
	MarketKey     uint64      `json:"market_key"`
	Creator       common.Hash `json:"creator"`
	Title         string      `json:"title"`
	CreatorFee    uint64      `json:"creator_fee"`
	CreatorFeeBP  uint64      `json:"creator_fee_bp"`
	PlatformFeeBP uint64      `json:"platform_fee_bp"`
}

type MarketApproved struct {
	MarketKey uint64 `json:"market_key"`
}

type MarketFinished struct {
	MarketKey      uint64    `json:"market_key"`
	FinishedAt     time.Time `json:"finished_at"`
	RemainingStake uint64    `json:"remaining_stake"`
}

type MarketSuccess struct {
	MarketKey      uint64 `json:"market_key"`
	AnswerKey      uint64 `json:"answer_key"`
	CreatorFee     uint64 `json:"creator_fee"`
	PlatformFee    uint64 `json:"platform_fee"`
	RemainingStake uint64 `json:"remaining_stake"`
}

type MarketAdjourned struct {
	MarketKey uint64 `json:"market_key"`
}

type AnswerAdded struct {
	MarketKey  uint64   `json:"market_key"`
	NewAnswers []uint64 `json:"new_answers"`
}

type BetPlaced struct {
	Voter     common.Hash `json:"voter"`
	MarketKey uint64      `json:"market_key"`
	AnswerKey uint64      `json:"answer_key"`
	Amount    uint64      `json:"amount"`
}

type BetCrossChainPlaced struct {
	ChainID     uint16      `json:"chain_id"`
	Sequence    uint64      `json:"sequence"`
	MarketKey   uint64      `json:"market_key"`
	AnswerKey   uint64      `json:"answer_key"`
	VoterWallet common.Hash `json:"voter_wallet"`
	Amount      uint64      `json:"amount"`
}

type TokenClaimed struct {
	Receiver  common.Hash `json:"receiver"`
	MarketKey uint64      `json:"market_key"`
	AnswerKey uint64      `json:"answer_key"`
	Amount    uint64      `json:"amount"`
}

type RewardClaimed struct {
	Receiver common.Hash `json:"receiver"`
	Amount   uint64      `json:"amount"`
}

type RemainderRetrieved struct {
	MarketKey uint64 `json:"market_key"`
	Amount    uint64 `json:"amount"`
}
