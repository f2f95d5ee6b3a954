package relay

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// byteArrayJSON renders a 32-entry decimal byte array the way relayers encode
// origin-chain addresses.
func byteArrayJSON(fill byte) string {
	parts := make([]string, 32)
	for i := range parts {
		parts[i] = fmt.Sprintf("%d", fill)
	}
	return "[" + strings.Join(parts, ",") + "]"
}

func validPayloadJSON() string {
	return `{
		"marketKey": "7a",
		"answerKey": "02",
		"createTime": "6155df00",
		"chainId": 43114,
		"tokens": "03e8",
		"voterWalletAddress": ` + byteArrayJSON(7) + `,
		"tokenAddress": ` + byteArrayJSON(9) + `
	}`
}

func TestDecode(t *testing.T) {
	p, err := Decode([]byte(validPayloadJSON()))
	if err != nil {
		t.Fatalf("Decode: %v", err)
	}

	if p.MarketKey != 122 {
		t.Errorf("market key = %d, want 122", p.MarketKey)
	}
	if p.AnswerKey != 2 {
		t.Errorf("answer key = %d, want 2", p.AnswerKey)
	}
	if p.ChainID != 43114 {
		t.Errorf("chain id = %d, want 43114", p.ChainID)
	}
	if p.Amount != 1000 {
		t.Errorf("amount = %d, want 1000", p.Amount)
	}
	wantCreated := time.Unix(0x6155df00, 0).UTC()
	if !p.CreatedAt.Equal(wantCreated) {
		t.Errorf("created at = %v, want %v", p.CreatedAt, wantCreated)
	}
	for i := 0; i < 32; i++ {
		if p.VoterWallet[i] != 7 {
			t.Fatalf("voter wallet byte %d = %d, want 7", i, p.VoterWallet[i])
		}
		if p.TokenAddress[i] != 9 {
			t.Fatalf("token address byte %d = %d, want 9", i, p.TokenAddress[i])
		}
	}
}

func TestDecode_Malformed(t *testing.T) {
	mutate := func(field string, value any) []byte {
		var doc map[string]json.RawMessage
		if err := json.Unmarshal([]byte(validPayloadJSON()), &doc); err != nil {
			t.Fatalf("setup: %v", err)
		}
		if value == nil {
			delete(doc, field)
		} else {
			raw, err := json.Marshal(value)
			if err != nil {
				t.Fatalf("setup: %v", err)
			}
			doc[field] = raw
		}
		out, err := json.Marshal(doc)
		if err != nil {
			t.Fatalf("setup: %v", err)
		}
		return out
	}

	tests := []struct {
		name string
		raw  []byte
	}{
		{"not json", []byte("{")},
		{"missing marketKey", mutate("marketKey", nil)},
		{"missing answerKey", mutate("answerKey", nil)},
		{"missing createTime", mutate("createTime", nil)},
		{"missing chainId", mutate("chainId", nil)},
		{"missing tokens", mutate("tokens", nil)},
		{"missing voter wallet", mutate("voterWalletAddress", nil)},
		{"non-hex marketKey", mutate("marketKey", "zz")},
		{"prefixed hex rejected", mutate("tokens", "0x3e8")},
		{"chainId too large", mutate("chainId", 70000)},
		{"short address array", mutate("voterWalletAddress", []int{1, 2, 3})},
		{"address byte out of range", mutate("tokenAddress", append(make([]int, 31), 300))},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Decode(tt.raw); !errors.Is(err, domain.ErrInvalidMessage) {
				t.Fatalf("Decode = %v, want ErrInvalidMessage", err)
			}
		})
	}
}
