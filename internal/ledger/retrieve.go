package ledger

import (
	"time"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// Retrieval cooldowns: successful markets leave a long window for winners to
// claim; adjourned markets can be swept sooner.
const (
	SuccessRetrieveAfter = 180 * 24 * time.Hour
	AdjournRetrieveAfter = 30 * 24 * time.Hour
)

// RetrieveAvailable checks whether the admin may sweep the market's unclaimed
// remainder: the market must be terminal and the status-specific cooldown
// since the terminal timestamp must have elapsed.
func RetrieveAvailable(m domain.Market, now time.Time) error {
	switch m.Status {
	case domain.MarketStatusSuccess:
		if now.Sub(m.SucceededAt) <= SuccessRetrieveAfter {
			return domain.ErrRetrieveTooEarly
		}
	case domain.MarketStatusAdjourned:
		if now.Sub(m.AdjournedAt) <= AdjournRetrieveAfter {
			return domain.ErrRetrieveTooEarly
		}
	default:
		return domain.ErrRetrieveNotTerminal
	}
	return nil
}
