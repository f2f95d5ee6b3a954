package handler

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/predixlabs/forecast-ledger/internal/service"
)

// RelayHandler accepts cross-chain bet messages forwarded by a relayer.
type RelayHandler struct {
	relay  *service.RelayService
	logger *slog.Logger
}

// NewRelayHandler creates a RelayHandler.
func NewRelayHandler(relay *service.RelayService, logger *slog.Logger) *RelayHandler {
	return &RelayHandler{
		relay:  relay,
		logger: logHandler(logger, "relay"),
	}
}

type relayMessageRequest struct {
	Sequence uint64          `json:"sequence"`
	Message  json.RawMessage `json:"message"`
}

// IngestMessage records one relayed bet. Replays of an already-processed
// (chain, sequence) pair are rejected with a conflict.
// POST /api/relay/messages
func (h *RelayHandler) IngestMessage(w http.ResponseWriter, r *http.Request) {
	var req relayMessageRequest
	if err := decodeBody(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if len(req.Message) == 0 {
		writeError(w, http.StatusBadRequest, "message is required")
		return
	}

	if err := h.relay.IngestMessage(r.Context(), req.Sequence, req.Message); err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"sequence": req.Sequence,
		"status":   "recorded",
	})
}
