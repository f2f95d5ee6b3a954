package middleware

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"

	"golang.org/x/crypto/pbkdf2"
)

// pbkdf2Iterations matches the count used when deriving the stored token hash.
const pbkdf2Iterations = 100_000

// Auth returns middleware that validates requests to admin routes using a
// Bearer token in the Authorization header or a static key in the X-API-Key
// header. The presented token is stretched with PBKDF2-SHA256 and compared in
// constant time against the configured hash, so the configuration never holds
// the plaintext token. If tokenHashHex is empty, authentication is disabled.
// Only paths under /api/admin/ are guarded; voter and relay routes pass
// through.
func Auth(tokenHashHex, saltHex string) (func(http.Handler) http.Handler, error) {
	if tokenHashHex == "" {
		return func(next http.Handler) http.Handler { return next }, nil
	}

	wantHash, err := hex.DecodeString(tokenHashHex)
	if err != nil {
		return nil, fmt.Errorf("middleware: decode api token hash: %w", err)
	}
	salt, err := hex.DecodeString(saltHex)
	if err != nil {
		return nil, fmt.Errorf("middleware: decode api token salt: %w", err)
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !strings.HasPrefix(r.URL.Path, "/api/admin/") {
				next.ServeHTTP(w, r)
				return
			}

			token := extractToken(r)
			if token == "" {
				writeUnauthorized(w, "missing authentication token")
				return
			}

			got := pbkdf2.Key([]byte(token), salt, pbkdf2Iterations, len(wantHash), sha256.New)
			if subtle.ConstantTimeCompare(got, wantHash) != 1 {
				writeUnauthorized(w, "invalid authentication token")
				return
			}

			next.ServeHTTP(w, r)
		})
	}, nil
}

// extractToken looks for a token in the Authorization header (Bearer scheme)
// or in the X-API-Key header.
func extractToken(r *http.Request) string {
	if auth := r.Header.Get("Authorization"); auth != "" {
		parts := strings.SplitN(auth, " ", 2)
		if len(parts) == 2 && strings.EqualFold(parts[0], "Bearer") {
			return strings.TrimSpace(parts[1])
		}
	}

	if key := r.Header.Get("X-API-Key"); key != "" {
		return strings.TrimSpace(key)
	}

	return ""
}

// writeUnauthorized sends a 401 response with a JSON error body.
func writeUnauthorized(w http.ResponseWriter, msg string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusUnauthorized)
	w.Write([]byte(`{"error":"` + msg + `"}`))
}
