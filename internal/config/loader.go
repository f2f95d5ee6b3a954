package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies FORECAST_* environment variable overrides, and
// returns the final Config. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		return nil, err
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known FORECAST_* environment variables and
// overwrites the corresponding Config fields when a variable is set. This lets
// operators inject secrets at deploy time without touching the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Server ──
	setInt(&cfg.Server.Port, "FORECAST_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "FORECAST_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APITokenHash, "FORECAST_SERVER_API_TOKEN_HASH")
	setStr(&cfg.Server.APITokenSalt, "FORECAST_SERVER_API_TOKEN_SALT")

	// ── Postgres ──
	setStr(&cfg.Postgres.DSN, "FORECAST_POSTGRES_DSN")
	setStr(&cfg.Postgres.Host, "FORECAST_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "FORECAST_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "FORECAST_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "FORECAST_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "FORECAST_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "FORECAST_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "FORECAST_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "FORECAST_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "FORECAST_POSTGRES_RUN_MIGRATIONS")

	// ── Redis ──
	setStr(&cfg.Redis.Addr, "FORECAST_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "FORECAST_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "FORECAST_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "FORECAST_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "FORECAST_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "FORECAST_REDIS_TLS_ENABLED")

	// ── Archive ──
	setBool(&cfg.Archive.Enabled, "FORECAST_ARCHIVE_ENABLED")
	setStr(&cfg.Archive.Endpoint, "FORECAST_ARCHIVE_ENDPOINT")
	setStr(&cfg.Archive.Region, "FORECAST_ARCHIVE_REGION")
	setStr(&cfg.Archive.Bucket, "FORECAST_ARCHIVE_BUCKET")
	setStr(&cfg.Archive.AccessKey, "FORECAST_ARCHIVE_ACCESS_KEY")
	setStr(&cfg.Archive.SecretKey, "FORECAST_ARCHIVE_SECRET_KEY")
	setBool(&cfg.Archive.ForcePathStyle, "FORECAST_ARCHIVE_FORCE_PATH_STYLE")
	setDuration(&cfg.Archive.SweepInterval, "FORECAST_ARCHIVE_SWEEP_INTERVAL")
	setInt(&cfg.Archive.BatchSize, "FORECAST_ARCHIVE_BATCH_SIZE")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "FORECAST_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "FORECAST_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "FORECAST_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "FORECAST_NOTIFY_EVENTS")

	// ── Top-level ──
	setStr(&cfg.LogLevel, "FORECAST_LOG_LEVEL")
}

// ---------------------------------------------------------------------------
// Typed env-var helpers. Each only mutates the target when the environment
// variable is present and non-empty.
// ---------------------------------------------------------------------------

func setStr(dst *string, key string) {
	if v := os.Getenv(key); v != "" {
		*dst = v
	}
}

func setInt(dst *int, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			*dst = n
		}
	}
}

func setBool(dst *bool, key string) {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			*dst = b
		}
	}
}

func setDuration(dst *duration, key string) {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			dst.Duration = d
		}
	}
}

func setStringSlice(dst *[]string, key string) {
	if v := os.Getenv(key); v != "" {
		parts := strings.Split(v, ",")
		cleaned := make([]string, 0, len(parts))
		for _, p := range parts {
			p = strings.TrimSpace(p)
			if p != "" {
				cleaned = append(cleaned, p)
			}
		}
		if len(cleaned) > 0 {
			*dst = cleaned
		}
	}
}
