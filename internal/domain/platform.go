package domain

import (
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// PlatformConfig is the singleton administrative record. The owner is the only
// identity allowed to drive market lifecycles, and the reward fields configure
// the time-accrued APR top-up paid out at claim time.
type PlatformConfig struct {
	Initialized       bool
	Owner             common.Hash
	RewardMint        common.Hash
	RewardAPRBP       uint64 // annual reward rate in basis points
	ServiceFeeAccount common.Hash // platform fee recipient
	TreasuryAccount   common.Hash // destination for retrieved remainders
	UpdatedAt         time.Time
}

// RewardVault returns the escrow identity holding the reward pool. Stake
// escrow lives in per-market vaults; the reward pool is shared.
func (c PlatformConfig) RewardVault() common.Hash {
	return crypto.Keccak256Hash([]byte("reward-vault"))
}

// MintInfo carries a mint's transfer-fee configuration. A mint with a zero
// TransferFeeBP is not fee-bearing and all fee calculations return zero.
type MintInfo struct {
	Mint          common.Hash
	TransferFeeBP uint64
	MaxFee        uint64
}
