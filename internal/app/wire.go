package app

import (
	"context"
	"fmt"
	"log/slog"

	s3blob "github.com/predixlabs/forecast-ledger/internal/blob/s3"
	"github.com/predixlabs/forecast-ledger/internal/cache/redis"
	"github.com/predixlabs/forecast-ledger/internal/config"
	"github.com/predixlabs/forecast-ledger/internal/domain"
	"github.com/predixlabs/forecast-ledger/internal/notify"
	"github.com/predixlabs/forecast-ledger/internal/service"
	"github.com/predixlabs/forecast-ledger/internal/store/postgres"
	"github.com/predixlabs/forecast-ledger/internal/token"
)

// Dependencies bundles every constructed component the daemon needs. It is
// built by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Persistence
	Postgres *postgres.Client
	Stores   domain.Stores // pool-bound, read-only use
	Tx       domain.TxRunner

	// Redis
	Redis       *redis.Client
	SignalBus   domain.SignalBus
	LockManager domain.LockManager

	// Services
	Admin   *service.AdminService
	Betting *service.BettingService
	Relay   *service.RelayService
	Query   *service.QueryService

	// Background workers
	Archiver *s3blob.Archiver
	Watcher  *notify.Watcher
}

// Wire constructs all concrete dependency implementations from the given
// configuration and returns them together with a cleanup function that should
// be called on shutdown to release resources.
func Wire(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Dependencies, func(), error) {
	var closers []func()
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	deps := &Dependencies{}

	// --- PostgreSQL ---
	pgClient, err := postgres.New(ctx, postgres.ClientConfig{
		DSN:      cfg.Postgres.DSN,
		Host:     cfg.Postgres.Host,
		Port:     cfg.Postgres.Port,
		Database: cfg.Postgres.Database,
		User:     cfg.Postgres.User,
		Password: cfg.Postgres.Password,
		SSLMode:  cfg.Postgres.SSLMode,
		MaxConns: cfg.Postgres.PoolMaxConns,
		MinConns: cfg.Postgres.PoolMinConns,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: postgres: %w", err)
	}
	closers = append(closers, pgClient.Close)

	if cfg.Postgres.RunMigrations {
		if err := pgClient.RunMigrations(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: postgres migrations: %w", err)
		}
	}

	pool := pgClient.Pool()
	deps.Postgres = pgClient
	deps.Stores = postgres.NewStores(pool)
	deps.Tx = postgres.NewTxRunner(pool)

	// --- Redis ---
	redisClient, err := redis.New(ctx, redis.ClientConfig{
		Addr:       cfg.Redis.Addr,
		Password:   cfg.Redis.Password,
		DB:         cfg.Redis.DB,
		PoolSize:   cfg.Redis.PoolSize,
		MaxRetries: cfg.Redis.MaxRetries,
		TLSEnabled: cfg.Redis.TLSEnabled,
	})
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("wire: redis: %w", err)
	}
	closers = append(closers, func() { _ = redisClient.Close() })

	deps.Redis = redisClient
	deps.SignalBus = redis.NewSignalBus(redisClient)
	deps.LockManager = redis.NewLockManager(redisClient)

	// --- Services ---
	events := service.NewEventPublisher(deps.SignalBus, logger)
	fees := token.NewCalculator(deps.Stores.Mints)

	deps.Admin = service.NewAdminService(deps.Tx, events, logger)
	deps.Betting = service.NewBettingService(deps.Tx, fees, events, logger)
	deps.Relay = service.NewRelayService(deps.Tx, events, logger)
	deps.Query = service.NewQueryService(deps.Stores)

	// --- Archival (optional) ---
	if cfg.Archive.Enabled {
		s3Client, err := s3blob.New(ctx, s3blob.ClientConfig{
			Endpoint:       cfg.Archive.Endpoint,
			Region:         cfg.Archive.Region,
			Bucket:         cfg.Archive.Bucket,
			AccessKey:      cfg.Archive.AccessKey,
			SecretKey:      cfg.Archive.SecretKey,
			UseSSL:         true,
			ForcePathStyle: cfg.Archive.ForcePathStyle,
		})
		if err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("wire: s3: %w", err)
		}
		closers = append(closers, func() { _ = s3Client.Close() })

		deps.Archiver = s3blob.NewArchiver(
			s3blob.NewWriter(s3Client),
			s3blob.NewReader(s3Client),
			deps.Stores.Markets,
			deps.Stores.Answers,
			deps.Stores.Bets,
			deps.Stores.CrossChainBets,
			deps.LockManager,
			logger,
			cfg.Archive.SweepInterval.Duration,
			cfg.Archive.BatchSize,
		)
	}

	// --- Notifications ---
	var senders []notify.Sender
	if cfg.Notify.TelegramToken != "" && cfg.Notify.TelegramChatID != "" {
		senders = append(senders, notify.NewTelegramSender(
			cfg.Notify.TelegramToken,
			cfg.Notify.TelegramChatID,
		))
	}
	if cfg.Notify.DiscordWebhookURL != "" {
		senders = append(senders, notify.NewDiscordSender(cfg.Notify.DiscordWebhookURL))
	}
	if len(senders) > 0 {
		notifier := notify.NewNotifier(senders, cfg.Notify.Events, logger)
		deps.Watcher = notify.NewWatcher(deps.SignalBus, notifier, logger)
	}

	return deps, cleanup, nil
}
