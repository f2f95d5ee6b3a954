package handler

import (
	"log/slog"
	"net/http"

	"github.com/predixlabs/forecast-ledger/internal/service"
)

// MarketHandler serves read-only market lookups.
type MarketHandler struct {
	query  *service.QueryService
	logger *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(query *service.QueryService, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{
		query:  query,
		logger: logHandler(logger, "market"),
	}
}

// GetMarket returns one market by key.
// GET /api/markets/{key}
func (h *MarketHandler) GetMarket(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	m, err := h.query.GetMarket(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

// ListAnswers returns a market's answer registry.
// GET /api/markets/{key}/answers
func (h *MarketHandler) ListAnswers(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	answers, err := h.query.ListAnswers(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"answers":    answers,
	})
}

// ListBets returns every native bet on a market.
// GET /api/markets/{key}/bets
func (h *MarketHandler) ListBets(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bets, err := h.query.ListBets(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"bets":       bets,
	})
}

// ListVoterBets returns one voter's bets on a market.
// GET /api/markets/{key}/bets/{voter}
func (h *MarketHandler) ListVoterBets(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	voter, err := hexDecode32(r.PathValue("voter"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid voter: "+err.Error())
		return
	}

	bets, err := h.query.ListBetsByVoter(r.Context(), voter, key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key": key,
		"voter":      voter,
		"bets":       bets,
	})
}

// ListCrossChainBets returns every relayed bet on a market.
// GET /api/markets/{key}/cross-chain-bets
func (h *MarketHandler) ListCrossChainBets(w http.ResponseWriter, r *http.Request) {
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	bets, err := h.query.ListCrossChainBets(r.Context(), key)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"market_key":       key,
		"cross_chain_bets": bets,
	})
}
