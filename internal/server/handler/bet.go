package handler

import (
	"log/slog"
	"net/http"

	"github.com/predixlabs/forecast-ledger/internal/service"
)

// BetHandler exposes the voter-facing betting operations. The voter identity
// comes from the caller header; no admin token is required.
type BetHandler struct {
	betting *service.BettingService
	logger  *slog.Logger
}

// NewBetHandler creates a BetHandler.
func NewBetHandler(betting *service.BettingService, logger *slog.Logger) *BetHandler {
	return &BetHandler{
		betting: betting,
		logger:  logHandler(logger, "bet"),
	}
}

type placeBetRequest struct {
	AnswerKey uint64 `json:"answer_key"`
	Amount    uint64 `json:"amount"`
}

// PlaceBet stakes tokens on an answer of an approved market.
// POST /api/markets/{key}/bets
func (h *BetHandler) PlaceBet(w http.ResponseWriter, r *http.Request) {
	voter, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req placeBetRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.Amount == 0 {
		writeError(w, http.StatusBadRequest, "amount must be positive")
		return
	}

	if err := h.betting.PlaceBet(r.Context(), voter, key, req.AnswerKey, req.Amount); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"market_key": key,
		"answer_key": req.AnswerKey,
		"amount":     req.Amount,
	})
}

type claimRequest struct {
	AnswerKey uint64 `json:"answer_key"`
}

// Claim settles a voter's position on a resolved market, paying out the win
// share or refund plus the time-weighted reward. Claiming an already-settled
// position succeeds and pays nothing.
// POST /api/markets/{key}/claims
func (h *BetHandler) Claim(w http.ResponseWriter, r *http.Request) {
	voter, err := callerIdentity(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	key, err := pathKey(r, "key")
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var req claimRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	result, err := h.betting.Claim(r.Context(), voter, key, req.AnswerKey)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, result)
}
