package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/ethereum/go-ethereum/common"

	"github.com/predixlabs/forecast-ledger/internal/domain"
)

// callerHeader carries the caller's 32-byte identity as hex. The gateway in
// front of this service authenticates the identity; here it is trusted input.
const callerHeader = "X-Caller-Identity"

// writeJSON marshals v as JSON and writes it to the response with the given
// HTTP status code. If marshaling fails, it falls back to a plain-text 500.
func writeJSON(w http.ResponseWriter, status int, v any) {
	data, err := json.Marshal(v)
	if err != nil {
		http.Error(w, `{"error":"internal server error"}`, http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	w.Write(data)
}

// writeError sends a JSON-formatted error response.
func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// writeDomainError maps domain sentinel errors onto HTTP status codes. Errors
// without a mapping are treated as internal and their detail is not exposed.
func writeDomainError(w http.ResponseWriter, logger *slog.Logger, r *http.Request, err error) {
	switch {
	case errors.Is(err, domain.ErrUnauthorized):
		writeError(w, http.StatusForbidden, domain.ErrUnauthorized.Error())
	case errors.Is(err, domain.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAnswerNotFound),
		errors.Is(err, domain.ErrWinnerNotRegistered),
		errors.Is(err, domain.ErrInvalidAnswerKey):
		writeError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, domain.ErrAlreadyInitialized),
		errors.Is(err, domain.ErrMarketExists),
		errors.Is(err, domain.ErrAnswerExists),
		errors.Is(err, domain.ErrAlreadyProcessed),
		errors.Is(err, domain.ErrMarketNotApproved),
		errors.Is(err, domain.ErrMarketNotFinished),
		errors.Is(err, domain.ErrMarketNotResolved),
		errors.Is(err, domain.ErrRetrieveNotTerminal),
		errors.Is(err, domain.ErrRetrieveTooEarly),
		errors.Is(err, domain.ErrInsufficientFunds):
		writeError(w, http.StatusConflict, err.Error())
	case errors.Is(err, domain.ErrNotInitialized),
		errors.Is(err, domain.ErrInvalidTitle),
		errors.Is(err, domain.ErrInvalidFeeConfig),
		errors.Is(err, domain.ErrMaxAnswersReached),
		errors.Is(err, domain.ErrInvalidMessage):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, domain.ErrOverflow),
		errors.Is(err, domain.ErrArithmetic),
		errors.Is(err, domain.ErrInvalidTimeRange):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path),
			slog.String("error", err.Error()),
		)
		writeError(w, http.StatusInternalServerError, "internal server error")
	}
}

// decodeBody parses a JSON request body into dst.
func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

// pathKey extracts a named uint64 path parameter using Go 1.22+ built-in
// routing (http.Request.PathValue).
func pathKey(r *http.Request, name string) (uint64, error) {
	v := r.PathValue(name)
	key, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s %q", name, v)
	}
	return key, nil
}

// callerIdentity extracts the caller's identity from the request header.
func callerIdentity(r *http.Request) (common.Hash, error) {
	v := r.Header.Get(callerHeader)
	if v == "" {
		return common.Hash{}, fmt.Errorf("missing %s header", callerHeader)
	}
	b, err := hexDecode32(v)
	if err != nil {
		return common.Hash{}, fmt.Errorf("invalid %s header: %w", callerHeader, err)
	}
	return b, nil
}

// hexDecode32 parses a 32-byte hex value with or without a 0x prefix.
func hexDecode32(s string) (common.Hash, error) {
	if len(s) >= 2 && s[0] == '0' && (s[1] == 'x' || s[1] == 'X') {
		s = s[2:]
	}
	if len(s) != common.HashLength*2 {
		return common.Hash{}, fmt.Errorf("want %d hex characters, got %d", common.HashLength*2, len(s))
	}
	return common.HexToHash(s), nil
}

// logHandler is a convenience to attach slog fields in handler code.
func logHandler(logger *slog.Logger, handler string) *slog.Logger {
	return logger.With(slog.String("handler", handler))
}
