package server

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/predixlabs/forecast-ledger/internal/server/handler"
	"github.com/predixlabs/forecast-ledger/internal/server/middleware"
	"github.com/predixlabs/forecast-ledger/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port         int
	CORSOrigins  []string
	APITokenHash string // hex PBKDF2-SHA256 digest; if empty, auth is disabled
	APITokenSalt string // hex salt used when deriving APITokenHash
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// Handlers aggregates all HTTP handlers that the server needs to register.
type Handlers struct {
	Health  *handler.HealthHandler
	Admin   *handler.AdminHandler
	Markets *handler.MarketHandler
	Bets    *handler.BetHandler
	Relay   *handler.RelayHandler
}

// Server is the HTTP + WebSocket API server for the settlement ledger.
type Server struct {
	httpServer *http.Server
	mux        *http.ServeMux
	logger     *slog.Logger
}

// NewServer creates a new Server with all routes registered on the ServeMux.
// It wires up middleware (logging, CORS, auth) and attaches the WebSocket hub.
func NewServer(cfg Config, handlers Handlers, wsHub *ws.Hub, logger *slog.Logger) (*Server, error) {
	mux := http.NewServeMux()

	// Health check (no auth required).
	mux.HandleFunc("GET /api/health", handlers.Health.HealthCheck)

	// Platform config lifecycle. Guarded by the API-token middleware; the
	// owner gate runs in the service layer.
	mux.HandleFunc("POST /api/admin/config", handlers.Admin.Initialize)
	mux.HandleFunc("PUT /api/admin/config/owner", handlers.Admin.UpdateOwner)
	mux.HandleFunc("PUT /api/admin/config/accounts", handlers.Admin.SetAccounts)
	mux.HandleFunc("PUT /api/admin/config/reward", handlers.Admin.UpdateReward)

	// Market lifecycle.
	mux.HandleFunc("POST /api/admin/markets", handlers.Admin.DraftMarket)
	mux.HandleFunc("POST /api/admin/markets/{key}/answers", handlers.Admin.AddAnswers)
	mux.HandleFunc("POST /api/admin/markets/{key}/approve", handlers.Admin.Approve)
	mux.HandleFunc("POST /api/admin/markets/{key}/finish", handlers.Admin.Finish)
	mux.HandleFunc("POST /api/admin/markets/{key}/resolve", handlers.Admin.Resolve)
	mux.HandleFunc("POST /api/admin/markets/{key}/adjourn", handlers.Admin.Adjourn)
	mux.HandleFunc("POST /api/admin/markets/{key}/retrieve", handlers.Admin.Retrieve)

	// Voter-facing betting endpoints.
	mux.HandleFunc("POST /api/markets/{key}/bets", handlers.Bets.PlaceBet)
	mux.HandleFunc("POST /api/markets/{key}/claims", handlers.Bets.Claim)

	// Cross-chain relay ingestion.
	mux.HandleFunc("POST /api/relay/messages", handlers.Relay.IngestMessage)

	// Read-only lookups.
	mux.HandleFunc("GET /api/markets/{key}", handlers.Markets.GetMarket)
	mux.HandleFunc("GET /api/markets/{key}/answers", handlers.Markets.ListAnswers)
	mux.HandleFunc("GET /api/markets/{key}/bets", handlers.Markets.ListBets)
	mux.HandleFunc("GET /api/markets/{key}/bets/{voter}", handlers.Markets.ListVoterBets)
	mux.HandleFunc("GET /api/markets/{key}/cross-chain-bets", handlers.Markets.ListCrossChainBets)

	// WebSocket endpoint.
	if wsHub != nil {
		mux.HandleFunc("GET /ws", wsHub.HandleWS)
	}

	// Build the middleware chain.
	var h http.Handler = mux

	auth, err := middleware.Auth(cfg.APITokenHash, cfg.APITokenSalt)
	if err != nil {
		return nil, fmt.Errorf("server: build auth middleware: %w", err)
	}
	h = auth(h)

	h = middleware.Logging(logger)(h)
	h = corsMiddleware(cfg.CORSOrigins)(h)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      h,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}

	return &Server{
		httpServer: srv,
		mux:        mux,
		logger:     logger,
	}, nil
}

// Start begins listening for HTTP requests. It blocks until the server
// encounters an error or is shut down.
func (s *Server) Start() error {
	s.logger.Info("server: starting",
		slog.String("addr", s.httpServer.Addr),
	)
	if err := s.httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown gracefully shuts down the server, waiting for in-flight requests
// to complete within the given context deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("server: shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}

// corsMiddleware returns middleware that sets CORS headers for the allowed
// origins. If no origins are specified, it defaults to allowing all origins.
func corsMiddleware(allowedOrigins []string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin := r.Header.Get("Origin")

			if origin != "" {
				allowed := len(allowedOrigins) == 0 // allow all if none specified
				for _, o := range allowedOrigins {
					if strings.EqualFold(o, "*") || strings.EqualFold(o, origin) {
						allowed = true
						break
					}
				}

				if allowed {
					w.Header().Set("Access-Control-Allow-Origin", origin)
					w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
					w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization, X-API-Key, X-Caller-Identity")
					w.Header().Set("Access-Control-Max-Age", "86400")
				}
			}

			// Handle preflight requests.
			if r.Method == http.MethodOptions {
				w.WriteHeader(http.StatusNoContent)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
