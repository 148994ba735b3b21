package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsValidate(t *testing.T) {
	cfg := Defaults()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "server", cfg.Mode)
	assert.Equal(t, time.Minute, cfg.Agent.CycleInterval.Duration)
	assert.Equal(t, 1.0, cfg.Reinvest.Threshold)
	assert.Equal(t, 5, cfg.Reinvest.MaxSubAgents)
}

func TestValidateCollectsEveryProblem(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "trade"
	cfg.LogLevel = "loud"
	cfg.Wallet.Ephemeral = false
	cfg.Pricing.TradingSignals = 0
	cfg.Arbitrage.Venues = []string{"binance"}

	err := cfg.Validate()
	require.Error(t, err)
	msg := err.Error()
	assert.Contains(t, msg, `unknown mode "trade"`)
	assert.Contains(t, msg, `unknown log_level "loud"`)
	assert.Contains(t, msg, "wallet: one of private_key")
	assert.Contains(t, msg, "pricing: trading_signals must be > 0")
	assert.Contains(t, msg, "arbitrage: at least two venues")
}

func TestValidateEncryptedKeyNeedsPassword(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.EncryptedKeyPath = "/tmp/key.json"
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "key_password is required")
}

func TestValidateUnknownVenue(t *testing.T) {
	cfg := Defaults()
	cfg.Arbitrage.Venues = []string{"binance", "kraken"}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), `unknown venue "kraken"`)
}

func TestValidatePostgresOnlyWhenEnabled(t *testing.T) {
	cfg := Defaults()
	cfg.Postgres.Host = ""
	require.NoError(t, cfg.Validate())

	cfg.Postgres.Enabled = true
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "postgres: host must not be empty")

	cfg.Postgres.DSN = "postgres://u:p@db:5432/econagent"
	assert.NoError(t, cfg.Validate())
}

func TestValidateSimulateSkipsOracleURLs(t *testing.T) {
	cfg := Defaults()
	cfg.Mode = "simulate"
	cfg.Oracle.CoinGeckoURL = ""
	cfg.Oracle.FearGreedURL = ""
	assert.NoError(t, cfg.Validate())

	cfg.Simulate.Payments = 0
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "simulate: payments must be >= 1")
}

func TestLoadMergesFileOverDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.toml")
	data := `
mode = "agent"

[agent]
tokens = ["ethereum"]
cycle_interval = "15s"

[reinvest]
threshold = 2.5

[simulate.prices]
ethereum = 2500.0
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "agent", cfg.Mode)
	assert.Equal(t, []string{"ethereum"}, cfg.Agent.Tokens)
	assert.Equal(t, 15*time.Second, cfg.Agent.CycleInterval.Duration)
	assert.Equal(t, 2.5, cfg.Reinvest.Threshold)
	assert.Equal(t, 0.3, cfg.Reinvest.SpawnCost)
	assert.Equal(t, 2500.0, cfg.Simulate.Prices["ethereum"])
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.toml"))
	require.NoError(t, err)
	assert.Equal(t, Defaults().Server.Port, cfg.Server.Port)
}

func TestLoadRejectsMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.toml")
	require.NoError(t, os.WriteFile(path, []byte("mode = "), 0o600))
	_, err := Load(path)
	assert.Error(t, err)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("ECONAGENT_MODE", "simulate")
	t.Setenv("ECONAGENT_AGENT_TOKENS", " ethereum, ,bitcoin ")
	t.Setenv("ECONAGENT_AGENT_CYCLE_INTERVAL", "5s")
	t.Setenv("ECONAGENT_REINVEST_MAX_SUB_AGENTS", "3")
	t.Setenv("ECONAGENT_REDIS_ENABLED", "true")
	t.Setenv("ECONAGENT_SIMULATE_SEED", "42")
	t.Setenv("ECONAGENT_SERVER_PORT", "not-a-number")

	cfg := Defaults()
	applyEnvOverrides(&cfg)

	assert.Equal(t, "simulate", cfg.Mode)
	assert.Equal(t, []string{"ethereum", "bitcoin"}, cfg.Agent.Tokens)
	assert.Equal(t, 5*time.Second, cfg.Agent.CycleInterval.Duration)
	assert.Equal(t, 3, cfg.Reinvest.MaxSubAgents)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, uint64(42), cfg.Simulate.Seed)
	assert.Equal(t, 8000, cfg.Server.Port, "unparsable values are ignored")
}

func TestRedactedConfig(t *testing.T) {
	cfg := Defaults()
	cfg.Wallet.PrivateKey = "0xabc"
	cfg.Payment.ReceiptSecret = "s3cret"
	cfg.Server.APIKey = "key"
	cfg.Postgres.DSN = "postgres://u:p@h/db"
	cfg.Notify.TelegramToken = "tok"

	out := RedactedConfig(&cfg)
	assert.Equal(t, "***", out.Wallet.PrivateKey)
	assert.Equal(t, "***", out.Payment.ReceiptSecret)
	assert.Equal(t, "***", out.Server.APIKey)
	assert.Equal(t, "***", out.Postgres.DSN)
	assert.Equal(t, "***", out.Notify.TelegramToken)
	assert.Empty(t, out.Wallet.KeyPassword, "empty secrets stay empty")

	assert.Equal(t, "0xabc", cfg.Wallet.PrivateKey)
	out.Agent.Tokens[0] = "changed"
	out.Simulate.Prices["ethereum"] = 1
	assert.Equal(t, "ethereum", cfg.Agent.Tokens[0])
	assert.Equal(t, 3000.0, cfg.Simulate.Prices["ethereum"])
}
