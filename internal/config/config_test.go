package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	if err := cfg.Validate(); err != nil {
		t.Fatalf("default config does not validate: %v", err)
	}
}

func TestLoad_MergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
log_level = "debug"

[server]
port = 9090
read_timeout = "5s"

[postgres]
database = "ledger_test"

[archive]
enabled = true
sweep_interval = "30m"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.LogLevel != "debug" {
		t.Errorf("log level = %q, want debug", cfg.LogLevel)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout.Duration != 5*time.Second {
		t.Errorf("read timeout = %v, want 5s", cfg.Server.ReadTimeout.Duration)
	}
	if cfg.Postgres.Database != "ledger_test" {
		t.Errorf("database = %q, want ledger_test", cfg.Postgres.Database)
	}
	if cfg.Archive.SweepInterval.Duration != 30*time.Minute {
		t.Errorf("sweep interval = %v, want 30m", cfg.Archive.SweepInterval.Duration)
	}

	// Untouched fields keep their defaults.
	if cfg.Redis.Addr != "localhost:6379" {
		t.Errorf("redis addr = %q, want default", cfg.Redis.Addr)
	}
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("postgres host = %q, want default", cfg.Postgres.Host)
	}
}

func TestLoad_EnvOverridesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
[server]
port = 9090

[redis]
addr = "file:6379"
`
	if err := os.WriteFile(path, []byte(data), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	t.Setenv("FORECAST_SERVER_PORT", "7070")
	t.Setenv("FORECAST_REDIS_ADDR", "env:6379")
	t.Setenv("FORECAST_POSTGRES_PASSWORD", "s3cret")
	t.Setenv("FORECAST_POSTGRES_RUN_MIGRATIONS", "false")
	t.Setenv("FORECAST_NOTIFY_EVENTS", "market_success, bet_placed")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Server.Port != 7070 {
		t.Errorf("port = %d, want env override 7070", cfg.Server.Port)
	}
	if cfg.Redis.Addr != "env:6379" {
		t.Errorf("redis addr = %q, want env override", cfg.Redis.Addr)
	}
	if cfg.Postgres.Password != "s3cret" {
		t.Errorf("password = %q, want env value", cfg.Postgres.Password)
	}
	if cfg.Postgres.RunMigrations {
		t.Error("run_migrations = true, want env override false")
	}
	want := []string{"market_success", "bet_placed"}
	if len(cfg.Notify.Events) != len(want) {
		t.Fatalf("notify events = %v, want %v", cfg.Notify.Events, want)
	}
	for i := range want {
		if cfg.Notify.Events[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, cfg.Notify.Events[i], want[i])
		}
	}
}

func TestValidate_CollectsAllErrors(t *testing.T) {
	cfg := Defaults()
	cfg.LogLevel = "verbose"
	cfg.Server.Port = 0
	cfg.Server.APITokenHash = "abcd" // salt missing
	cfg.Redis.Addr = ""
	cfg.Archive.Enabled = true
	cfg.Archive.Bucket = ""
	cfg.Notify.TelegramToken = "tok" // chat id missing

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate passed an invalid config")
	}
	for _, want := range []string{
		"log_level",
		"server: port",
		"api_token_hash and api_token_salt",
		"redis: addr",
		"archive: bucket",
		"telegram_token and telegram_chat_id",
	} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("validation error missing %q:\n%v", want, err)
		}
	}
}

func TestValidate_DSNSkipsHostChecks(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.DSN = "postgres://u:p@db:5432/ledger"
	cfg.Postgres.Host = ""
	cfg.Postgres.Database = ""
	if err := cfg.Validate(); err != nil {
		t.Fatalf("DSN-only config does not validate: %v", err)
	}
}
