package domain

import (
	"encoding/binary"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// MarketStatus represents the lifecycle state of a market. Transitions are
// monotonic: draft -> approved -> finished -> {success, adjourned}.
type MarketStatus string

const (
	MarketStatusDraft     MarketStatus = "draft"
	MarketStatusApproved  MarketStatus = "approved"
	MarketStatusFinished  MarketStatus = "finished"
	MarketStatusSuccess   MarketStatus = "success"
	MarketStatusAdjourned MarketStatus = "adjourned"
)

// MaxTitleLen bounds market titles.
const MaxTitleLen = 100

// Market is one predictable event with mutually exclusive outcomes. Stakes
// accumulate while the market is approved; once finished, RemainingStake is
// snapshotted from TotalStaked and becomes the settlement base.
type Market struct {
	Key            uint64
	Creator        common.Hash
	StakeMint      common.Hash
	Title          string
	Status         MarketStatus
	CreatorFeeFlat uint64 // flat creator fee, added on top of the percentage cut
	CreatorFeeBP   uint64 // basis points of RemainingStake
	PlatformFeeBP  uint64 // basis points of RemainingStake
	ApprovedAt     time.Time
	FinishedAt     time.Time
	AdjournedAt    time.Time
	SucceededAt    time.Time
	TotalStaked    uint64
	RemainingStake uint64
	WinningAnswer  uint64
	RewardBase     uint64
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// IsTerminal reports whether the market has been resolved one way or the
// other. No status transition leaves a terminal state.
func (m Market) IsTerminal() bool {
	return m.Status == MarketStatusSuccess || m.Status == MarketStatusAdjourned
}

// Vault returns the escrow identity holding this market's staked tokens.
// It is derived from the market key, so every market has its own vault.
func (m Market) Vault() common.Hash {
	var key [8]byte
	binary.BigEndian.PutUint64(key[:], m.Key)
	return crypto.Keccak256Hash([]byte("market-vault"), key[:])
}

// Answer is one possible outcome of a market, tracking the stake accumulated
// on it. Answers are append-only; there is no removal operation.
type Answer struct {
	MarketKey   uint64
	Key         uint64
	TotalStaked uint64
}

// MaxAnswers bounds the registry size per market.
const MaxAnswers = 200
