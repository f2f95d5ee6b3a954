// Package relay decodes authenticated cross-chain bet payloads. Signature
// verification happens upstream in the message transport; by the time a
// payload reaches this package it is trusted but possibly malformed.
package relay

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// Payload is the decoded body of a relayed bet. Numeric fields travel as
// unprefixed hex strings; the origin addresses travel as raw 32-byte arrays
// and stay opaque.
type Payload struct {
	MarketKey    uint64
	AnswerKey    uint64
	ChainID      uint16
	CreatedAt    time.Time
	VoterWallet  common.Hash
	TokenAddress common.Hash
	Amount       uint64
}

// wirePayload mirrors the relay JSON document.
type wirePayload struct {
	MarketKey  *string `json:"marketKey"`
	AnswerKey  *string `json:"answerKey"`
	CreateTime *string `json:"createTime"`
	ChainID    *uint64 `json:"chainId"`
	Tokens     *string `json:"tokens"`

	RawVoterWallet  []json.Number `json:"voterWalletAddress"`
	RawTokenAddress []json.Number `json:"tokenAddress"`
}

// Decode parses a relayed bet payload. Any absent or malformed required field
// fails with domain.ErrInvalidMessage.
func Decode(raw []byte) (Payload, error) {
	var w wirePayload
	if err := json.Unmarshal(raw, &w); err != nil {
		return Payload{}, fmt.Errorf("relay: decode payload: %w", domain.ErrInvalidMessage)
	}

	marketKey, err := hexField("marketKey", w.MarketKey)
	if err != nil {
		return Payload{}, err
	}
	answerKey, err := hexField("answerKey", w.AnswerKey)
	if err != nil {
		return Payload{}, err
	}
	createTime, err := hexField("createTime", w.CreateTime)
	if err != nil {
		return Payload{}, err
	}
	amount, err := hexField("tokens", w.Tokens)
	if err != nil {
		return Payload{}, err
	}

	if w.ChainID == nil || *w.ChainID > 0xFFFF {
		return Payload{}, fmt.Errorf("relay: field chainId: %w", domain.ErrInvalidMessage)
	}

	voter, err := addressField("voterWalletAddress", w.RawVoterWallet)
	if err != nil {
		return Payload{}, err
	}
	token, err := addressField("tokenAddress", w.RawTokenAddress)
	if err != nil {
		return Payload{}, err
	}

	return Payload{
		MarketKey:    marketKey,
		AnswerKey:    answerKey,
		ChainID:      uint16(*w.ChainID),
		CreatedAt:    time.Unix(int64(createTime), 0).UTC(),
		VoterWallet:  voter,
		TokenAddress: token,
		Amount:       amount,
	}, nil
}

// hexField parses an unprefixed hex string like "6155df00".
func hexField(name string, v *string) (uint64, error) {
	if v == nil {
		return 0, fmt.Errorf("relay: field %s: %w", name, domain.ErrInvalidMessage)
	}
	n, err := strconv.ParseUint(*v, 16, 64)
	if err != nil {
		return 0, fmt.Errorf("relay: field %s: %w", name, domain.ErrInvalidMessage)
	}
	return n, nil
}

// addressField converts a 32-entry byte array into an opaque identity.
func addressField(name string, raw []json.Number) (common.Hash, error) {
	if len(raw) != common.HashLength {
		return common.Hash{}, fmt.Errorf("relay: field %s: %w", name, domain.ErrInvalidMessage)
	}
	var h common.Hash
	for i, n := range raw {
		b, err := strconv.ParseUint(n.String(), 10, 8)
		if err != nil {
			return common.Hash{}, fmt.Errorf("relay: field %s: %w", name, domain.ErrInvalidMessage)
		}
		h[i] = byte(b)
	}
	return h, nil
}
