package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Load reads a TOML configuration file at path, merges it on top of the
// built-in defaults, applies ECONAGENT_* environment variable overrides, and
// returns the final Config. A missing file is not an error: the defaults and
// environment are used as-is. The returned Config has NOT been validated; the
// caller should invoke Config.Validate() after Load.
func Load(path string) (*Config, error) {
	cfg := Defaults()

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	// Load .env file if present (silently ignore if missing).
	_ = godotenv.Load()

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

// applyEnvOverrides reads well-known ECONAGENT_* environment variables and
// overwrites the corresponding Config fields when a variable is set (i.e. not
// empty). This lets operators inject secrets at deploy time without touching
// the TOML file.
func applyEnvOverrides(cfg *Config) {
	// ── Wallet ──
	setStr(&cfg.Wallet.PrivateKey, "ECONAGENT_WALLET_PRIVATE_KEY")
	setStr(&cfg.Wallet.EncryptedKeyPath, "ECONAGENT_WALLET_ENCRYPTED_KEY_PATH")
	setStr(&cfg.Wallet.KeyPassword, "ECONAGENT_WALLET_KEY_PASSWORD")
	setBool(&cfg.Wallet.Ephemeral, "ECONAGENT_WALLET_EPHEMERAL")

	// ── Agent ──
	setStr(&cfg.Agent.ID, "ECONAGENT_AGENT_ID")
	setStringSlice(&cfg.Agent.Tokens, "ECONAGENT_AGENT_TOKENS")
	setDuration(&cfg.Agent.CycleInterval, "ECONAGENT_AGENT_CYCLE_INTERVAL")
	setFloat64(&cfg.Agent.AutoExecuteCapital, "ECONAGENT_AGENT_AUTO_EXECUTE_CAPITAL")

	// ── Reinvest ──
	setFloat64(&cfg.Reinvest.Threshold, "ECONAGENT_REINVEST_THRESHOLD")
	setFloat64(&cfg.Reinvest.SpawnCost, "ECONAGENT_REINVEST_SPAWN_COST")
	setFloat64(&cfg.Reinvest.UpgradeCost, "ECONAGENT_REINVEST_UPGRADE_COST")
	setInt(&cfg.Reinvest.MaxSubAgents, "ECONAGENT_REINVEST_MAX_SUB_AGENTS")

	// ── Pricing ──
	setFloat64(&cfg.Pricing.MarketAnalysis, "ECONAGENT_PRICING_MARKET_ANALYSIS")
	setFloat64(&cfg.Pricing.TradingSignals, "ECONAGENT_PRICING_TRADING_SIGNALS")
	setFloat64(&cfg.Pricing.ArbitrageScan, "ECONAGENT_PRICING_ARBITRAGE_SCAN")
	setFloat64(&cfg.Pricing.YieldOptimization, "ECONAGENT_PRICING_YIELD_OPTIMIZATION")

	// ── Oracle ──
	setStr(&cfg.Oracle.CoinGeckoURL, "ECONAGENT_ORACLE_COINGECKO_URL")
	setStr(&cfg.Oracle.CoinGeckoAPIKey, "ECONAGENT_ORACLE_COINGECKO_API_KEY")
	setStr(&cfg.Oracle.FearGreedURL, "ECONAGENT_ORACLE_FEARGREED_URL")
	setStr(&cfg.Oracle.DefiLlamaURL, "ECONAGENT_ORACLE_DEFILLAMA_URL")
	setDuration(&cfg.Oracle.QuoteTTL, "ECONAGENT_ORACLE_QUOTE_TTL")
	setDuration(&cfg.Oracle.RequestTimeout, "ECONAGENT_ORACLE_REQUEST_TIMEOUT")
	setFloat64(&cfg.Oracle.RatePerSec, "ECONAGENT_ORACLE_RATE_PER_SEC")
	setInt(&cfg.Oracle.Burst, "ECONAGENT_ORACLE_BURST")

	// ── Arbitrage ──
	setStringSlice(&cfg.Arbitrage.Venues, "ECONAGENT_ARBITRAGE_VENUES")
	setFloat64(&cfg.Arbitrage.MinSpread, "ECONAGENT_ARBITRAGE_MIN_SPREAD")
	setFloat64(&cfg.Arbitrage.ExecMinSpread, "ECONAGENT_ARBITRAGE_EXEC_MIN_SPREAD")
	setStringSlice(&cfg.Arbitrage.FailingVenues, "ECONAGENT_ARBITRAGE_FAILING_VENUES")

	// ── Yield ──
	setBool(&cfg.Yield.UseAnalytics, "ECONAGENT_YIELD_USE_ANALYTICS")

	// ── Payment ──
	setFloat64(&cfg.Payment.StartingBalance, "ECONAGENT_PAYMENT_STARTING_BALANCE")
	setFloat64(&cfg.Payment.TreasuryBalance, "ECONAGENT_PAYMENT_TREASURY_BALANCE")
	setStr(&cfg.Payment.ReceiptSecret, "ECONAGENT_PAYMENT_RECEIPT_SECRET")

	// ── Redis ──
	setBool(&cfg.Redis.Enabled, "ECONAGENT_REDIS_ENABLED")
	setStr(&cfg.Redis.Addr, "ECONAGENT_REDIS_ADDR")
	setStr(&cfg.Redis.Password, "ECONAGENT_REDIS_PASSWORD")
	setInt(&cfg.Redis.DB, "ECONAGENT_REDIS_DB")
	setInt(&cfg.Redis.PoolSize, "ECONAGENT_REDIS_POOL_SIZE")
	setInt(&cfg.Redis.MaxRetries, "ECONAGENT_REDIS_MAX_RETRIES")
	setBool(&cfg.Redis.TLSEnabled, "ECONAGENT_REDIS_TLS_ENABLED")
	setStr(&cfg.Redis.KeyPrefix, "ECONAGENT_REDIS_KEY_PREFIX")

	// ── Postgres ──
	setBool(&cfg.Postgres.Enabled, "ECONAGENT_POSTGRES_ENABLED")
	setStr(&cfg.Postgres.DSN, "ECONAGENT_POSTGRES_DSN")
	setStr(&cfg.Postgres.DSN, "DATABASE_URL") // compatibility alias
	setStr(&cfg.Postgres.Host, "ECONAGENT_POSTGRES_HOST")
	setInt(&cfg.Postgres.Port, "ECONAGENT_POSTGRES_PORT")
	setStr(&cfg.Postgres.Database, "ECONAGENT_POSTGRES_DATABASE")
	setStr(&cfg.Postgres.User, "ECONAGENT_POSTGRES_USER")
	setStr(&cfg.Postgres.Password, "ECONAGENT_POSTGRES_PASSWORD")
	setStr(&cfg.Postgres.SSLMode, "ECONAGENT_POSTGRES_SSL_MODE")
	setInt(&cfg.Postgres.PoolMaxConns, "ECONAGENT_POSTGRES_POOL_MAX_CONNS")
	setInt(&cfg.Postgres.PoolMinConns, "ECONAGENT_POSTGRES_POOL_MIN_CONNS")
	setBool(&cfg.Postgres.RunMigrations, "ECONAGENT_POSTGRES_RUN_MIGRATIONS")

	// ── Server ──
	setBool(&cfg.Server.Enabled, "ECONAGENT_SERVER_ENABLED")
	setInt(&cfg.Server.Port, "ECONAGENT_SERVER_PORT")
	setStringSlice(&cfg.Server.CORSOrigins, "ECONAGENT_SERVER_CORS_ORIGINS")
	setStr(&cfg.Server.APIKey, "ECONAGENT_SERVER_API_KEY")
	setInt(&cfg.Server.RateLimit, "ECONAGENT_SERVER_RATE_LIMIT")
	setDuration(&cfg.Server.RateLimitWindow, "ECONAGENT_SERVER_RATE_LIMIT_WINDOW")

	// ── Notify ──
	setStr(&cfg.Notify.TelegramToken, "ECONAGENT_NOTIFY_TELEGRAM_TOKEN")
	setStr(&cfg.Notify.TelegramChatID, "ECONAGENT_NOTIFY_TELEGRAM_CHAT_ID")
	setStr(&cfg.Notify.DiscordWebhookURL, "ECONAGENT_NOTIFY_DISCORD_WEBHOOK_URL")
	setStringSlice(&cfg.Notify.Events, "ECONAGENT_NOTIFY_EVENTS")

	// ── Simulate ──
	setInt(&cfg.Simulate.Payments, "ECONAGENT_SIMULATE_PAYMENTS")
	setStr(&cfg.Simulate.Payer, "ECONAGENT_SIMULATE_PAYER")
	setUint64(&cfg.Simulate.Seed, "ECONAGENT_SIMULATE_SEED")

	// ── Top-level ──
	setStr(&cfg.Mode, "ECONAGENT_MODE")
	setStr(&cfg.LogLevel, "ECONAGENT_LOG_LEVEL")
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

func setUint64(dst *uint64, key string) {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			*dst = n
		}
	}
}

func setFloat64(dst *float64, key string) {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			*dst = f
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
