package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
)

// Bet is a native stake placed on one answer by one identity. Repeated stakes
// on the same (voter, market, answer) triple accumulate into one record; the
// record's amount is zeroed when the claim settles, which is what makes a
// second claim a no-op.
type Bet struct {
	Voter     common.Hash
	MarketKey uint64
	AnswerKey uint64
	Amount    uint64
	CreatedAt time.Time // last stake time; the reward accrual clock starts here
	ClaimedAt time.Time // zero until the bet has been claimed
}

// Claimed reports whether the bet has already been settled.
func (b Bet) Claimed() bool {
	return !b.ClaimedAt.IsZero()
}

// CrossChainBet mirrors Bet for stakes that arrived through the verified
// message relay. It is keyed by (chain id, relay sequence), which doubles as
// the replay-protection key: at most one record ever exists per delivery.
type CrossChainBet struct {
	ChainID      uint16
	Sequence     uint64
	MarketKey    uint64
	AnswerKey    uint64
	VoterWallet  common.Hash // origin-chain wallet, opaque 32 bytes
	TokenAddress common.Hash // origin-chain token, opaque 32 bytes
	Amount       uint64
	CreatedAt    time.Time
}
