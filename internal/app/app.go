// Package app provides the top-level application lifecycle for the forecast
// ledger daemon. It wires together all dependencies (stores, cache, blob
// storage, services, notifications) and runs the HTTP/WebSocket server plus
// the background workers until shutdown.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/predixlabs/forecast-ledger/internal/config"
	"github.com/predixlabs/forecast-ledger/internal/server"
	"github.com/predixlabs/forecast-ledger/internal/server/handler"
	"github.com/predixlabs/forecast-ledger/internal/server/ws"
)

// shutdownTimeout bounds the graceful HTTP drain on exit.
const shutdownTimeout = 10 * time.Second

// App is the root application object. It owns the configuration, logger, and a
// list of cleanup functions that are called in reverse order on shutdown.
type App struct {
	cfg     *config.Config
	logger  *slog.Logger
	closers []func()
}

// New creates a new App from the given configuration and logger.
func New(cfg *config.Config, logger *slog.Logger) *App {
	return &App{
		cfg:    cfg,
		logger: logger.With(slog.String("component", "app")),
	}
}

// Run is the main entry point. It wires all dependencies, starts the server
// and background workers, and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "starting application",
		slog.String("log_level", a.cfg.LogLevel),
		slog.Int("port", a.cfg.Server.Port),
		slog.Bool("archive_enabled", a.cfg.Archive.Enabled),
	)

	deps, cleanup, err := Wire(ctx, a.cfg, a.logger)
	if err != nil {
		return fmt.Errorf("app: wire dependencies: %w", err)
	}
	a.closers = append(a.closers, cleanup)

	hub := ws.NewHub(deps.SignalBus, a.logger)

	handlers := server.Handlers{
		Health: handler.NewHealthHandler(a.logger, map[string]handler.Pinger{
			"postgres": deps.Postgres.Pool(),
			"redis":    deps.Redis,
		}),
		Admin:   handler.NewAdminHandler(deps.Admin, a.logger),
		Markets: handler.NewMarketHandler(deps.Query, a.logger),
		Bets:    handler.NewBetHandler(deps.Betting, a.logger),
		Relay:   handler.NewRelayHandler(deps.Relay, a.logger),
	}

	srv, err := server.NewServer(server.Config{
		Port:         a.cfg.Server.Port,
		CORSOrigins:  a.cfg.Server.CORSOrigins,
		APITokenHash: a.cfg.Server.APITokenHash,
		APITokenSalt: a.cfg.Server.APITokenSalt,
		ReadTimeout:  a.cfg.Server.ReadTimeout.Duration,
		WriteTimeout: a.cfg.Server.WriteTimeout.Duration,
		IdleTimeout:  a.cfg.Server.IdleTimeout.Duration,
	}, handlers, hub, a.logger)
	if err != nil {
		return fmt.Errorf("app: build server: %w", err)
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if err := hub.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
			return fmt.Errorf("app: ws hub: %w", err)
		}
		return nil
	})

	if deps.Watcher != nil {
		g.Go(func() error {
			if err := deps.Watcher.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: notify watcher: %w", err)
			}
			return nil
		})
	}

	if deps.Archiver != nil {
		g.Go(func() error {
			if err := deps.Archiver.Run(gctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("app: archiver: %w", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		return srv.Start()
	})

	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	return g.Wait()
}

// Close tears down all resources in reverse registration order. It is safe to
// call multiple times; subsequent calls are no-ops.
func (a *App) Close() {
	a.logger.Info("shutting down application")
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
