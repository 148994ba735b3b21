// Package config defines the top-level configuration for the economic agent
// and provides validation helpers.
package config

import (
	"fmt"
	"strings"
	"time"
)

// Config is the root configuration structure. Fields are populated from a TOML
// file and then optionally overridden by ECONAGENT_* environment variables.
type Config struct {
	Wallet    WalletConfig    `toml:"wallet"`
	Agent     AgentConfig     `toml:"agent"`
	Reinvest  ReinvestConfig  `toml:"reinvest"`
	Pricing   PricingConfig   `toml:"pricing"`
	Oracle    OracleConfig    `toml:"oracle"`
	Arbitrage ArbitrageConfig `toml:"arbitrage"`
	Yield     YieldConfig     `toml:"yield"`
	Payment   PaymentConfig   `toml:"payment"`
	Redis     RedisConfig     `toml:"redis"`
	Postgres  PostgresConfig  `toml:"postgres"`
	Server    ServerConfig    `toml:"server"`
	Notify    NotifyConfig    `toml:"notify"`
	Simulate  SimulateConfig  `toml:"simulate"`
	Mode      string          `toml:"mode"`
	LogLevel  string          `toml:"log_level"`
}

// WalletConfig holds the parent agent's key material. Exactly one source is
// used: private_key, then encrypted_key_path, then an ephemeral key.
type WalletConfig struct {
	PrivateKey       string `toml:"private_key"`
	EncryptedKeyPath string `toml:"encrypted_key_path"`
	KeyPassword      string `toml:"key_password"`
	Ephemeral        bool   `toml:"ephemeral"`
}

// AgentConfig holds the autonomous cycle parameters.
type AgentConfig struct {
	ID                 string   `toml:"id"`
	Tokens             []string `toml:"tokens"`
	CycleInterval      duration `toml:"cycle_interval"`
	AutoExecuteCapital float64  `toml:"auto_execute_capital"`
}

// ReinvestConfig mirrors reinvest.Policy.
type ReinvestConfig struct {
	Threshold             float64 `toml:"threshold"`
	SpawnCost             float64 `toml:"spawn_cost"`
	UpgradeCost           float64 `toml:"upgrade_cost"`
	MaxSubAgents          int     `toml:"max_sub_agents"`
	UpgradeBelowSubAgents int     `toml:"upgrade_below_sub_agents"`
	UpgradeAboveEarnings  float64 `toml:"upgrade_above_earnings"`
}

// PricingConfig is the fee charged per service.
type PricingConfig struct {
	MarketAnalysis    float64 `toml:"market_analysis"`
	TradingSignals    float64 `toml:"trading_signals"`
	ArbitrageScan     float64 `toml:"arbitrage_scan"`
	YieldOptimization float64 `toml:"yield_optimization"`
}

// OracleConfig holds upstream data-source endpoints and the gateway's
// caching, rate-limit and circuit-breaker settings.
type OracleConfig struct {
	CoinGeckoURL    string   `toml:"coingecko_url"`
	CoinGeckoAPIKey string   `toml:"coingecko_api_key"`
	FearGreedURL    string   `toml:"feargreed_url"`
	DefiLlamaURL    string   `toml:"defillama_url"`
	DefiLlamaTTL    duration `toml:"defillama_ttl"`
	QuoteTTL        duration `toml:"quote_ttl"`
	RequestTimeout  duration `toml:"request_timeout"`
	RatePerSec      float64  `toml:"rate_per_sec"`
	Burst           int      `toml:"burst"`
	BreakerFailures int      `toml:"breaker_failures"`
	BreakerCooldown duration `toml:"breaker_cooldown"`
}

// ArbitrageConfig holds the cross-venue arbitrage evaluator parameters.
type ArbitrageConfig struct {
	Venues        []string `toml:"venues"`
	MinSpread     float64  `toml:"min_spread"`
	ExecMinSpread float64  `toml:"exec_min_spread"`
	FeeRate       float64  `toml:"fee_rate"`
	Slippage      float64  `toml:"slippage"`
	// FailingVenues makes the simulated swapper reject swaps on these venues.
	FailingVenues []string `toml:"failing_venues"`
}

// YieldConfig toggles live analytics enrichment for the yield evaluator.
type YieldConfig struct {
	UseAnalytics bool `toml:"use_analytics"`
}

// PaymentConfig configures the simulated payment rail.
type PaymentConfig struct {
	StartingBalance float64 `toml:"starting_balance"`
	TreasuryBalance float64 `toml:"treasury_balance"`
	ReceiptSecret   string  `toml:"receipt_secret"`
}

// RedisConfig holds Redis connection parameters. When disabled the agent
// falls back to in-process caches, locks and event bus.
type RedisConfig struct {
	Enabled    bool   `toml:"enabled"`
	Addr       string `toml:"addr"`
	Password   string `toml:"password"`
	DB         int    `toml:"db"`
	PoolSize   int    `toml:"pool_size"`
	MaxRetries int    `toml:"max_retries"`
	TLSEnabled bool   `toml:"tls_enabled"`
	KeyPrefix  string `toml:"key_prefix"`
}

// PostgresConfig holds PostgreSQL connection parameters for the audit,
// execution and sub-agent journals.
type PostgresConfig struct {
	Enabled       bool   `toml:"enabled"`
	DSN           string `toml:"dsn"`
	Host          string `toml:"host"`
	Port          int    `toml:"port"`
	Database      string `toml:"database"`
	User          string `toml:"user"`
	Password      string `toml:"password"`
	SSLMode       string `toml:"ssl_mode"`
	PoolMaxConns  int    `toml:"pool_max_conns"`
	PoolMinConns  int    `toml:"pool_min_conns"`
	RunMigrations bool   `toml:"run_migrations"`
}

// SimulateConfig drives the offline simulate mode.
type SimulateConfig struct {
	Payments int     `toml:"payments"`
	Payer    string  `toml:"payer"`
	Seed     uint64  `toml:"seed"`
	MaxSkew  float64 `toml:"max_skew"`
	// Prices seeds the synthetic market, keyed by token.
	Prices map[string]float64 `toml:"prices"`
}

// duration is a wrapper around time.Duration that supports TOML string decoding
// (e.g. "5m", "30s").
type duration struct {
	time.Duration
}

// UnmarshalText implements encoding.TextUnmarshaler so the TOML decoder can
// parse duration strings like "5m" or "30s".
func (d *duration) UnmarshalText(text []byte) error {
	var err error
	d.Duration, err = time.ParseDuration(string(text))
	return err
}

// MarshalText implements encoding.TextMarshaler for round-trip encoding.
func (d duration) MarshalText() ([]byte, error) {
	return []byte(d.Duration.String()), nil
}

// ServerConfig holds HTTP server parameters.
type ServerConfig struct {
	Enabled         bool     `toml:"enabled"`
	Port            int      `toml:"port"`
	CORSOrigins     []string `toml:"cors_origins"`
	APIKey          string   `toml:"api_key"`
	RateLimit       int      `toml:"rate_limit"`
	RateLimitWindow duration `toml:"rate_limit_window"`
}

// NotifyConfig holds notification channel credentials.
type NotifyConfig struct {
	TelegramToken     string   `toml:"telegram_token"`
	TelegramChatID    string   `toml:"telegram_chat_id"`
	DiscordWebhookURL string   `toml:"discord_webhook_url"`
	Events            []string `toml:"events"`
}

// Defaults returns a Config populated with reasonable default values.
// These match the values in config.example.toml.
func Defaults() Config {
	return Config{
		Wallet: WalletConfig{
			Ephemeral: true,
		},
		Agent: AgentConfig{
			Tokens:        []string{"ethereum", "bitcoin", "solana"},
			CycleInterval: duration{time.Minute},
		},
		Reinvest: ReinvestConfig{
			Threshold:             1.0,
			SpawnCost:             0.3,
			UpgradeCost:           0.5,
			MaxSubAgents:          5,
			UpgradeBelowSubAgents: 2,
			UpgradeAboveEarnings:  10,
		},
		Pricing: PricingConfig{
			MarketAnalysis:    0.10,
			TradingSignals:    0.05,
			ArbitrageScan:     0.20,
			YieldOptimization: 0.15,
		},
		Oracle: OracleConfig{
			CoinGeckoURL:    "https://api.coingecko.com/api/v3",
			FearGreedURL:    "https://api.alternative.me",
			DefiLlamaURL:    "https://yields.llama.fi",
			DefiLlamaTTL:    duration{10 * time.Minute},
			QuoteTTL:        duration{30 * time.Second},
			RequestTimeout:  duration{8 * time.Second},
			RatePerSec:      2,
			Burst:           5,
			BreakerFailures: 5,
			BreakerCooldown: duration{30 * time.Second},
		},
		Arbitrage: ArbitrageConfig{
			Venues:        []string{"binance", "coinbase", "okx"},
			MinSpread:     0.005,
			ExecMinSpread: 0.003,
			FeeRate:       0.003,
			Slippage:      0.005,
		},
		Yield: YieldConfig{
			UseAnalytics: true,
		},
		Payment: PaymentConfig{
			StartingBalance: 100,
			TreasuryBalance: 10,
		},
		Redis: RedisConfig{
			Enabled:    false,
			Addr:       "localhost:6379",
			DB:         0,
			PoolSize:   20,
			MaxRetries: 3,
			TLSEnabled: false,
			KeyPrefix:  "econagent:",
		},
		Postgres: PostgresConfig{
			Enabled:       false,
			Host:          "localhost",
			Port:          5432,
			Database:      "econagent",
			User:          "postgres",
			SSLMode:       "disable",
			PoolMaxConns:  10,
			PoolMinConns:  2,
			RunMigrations: true,
		},
		Server: ServerConfig{
			Enabled:         true,
			Port:            8000,
			CORSOrigins:     []string{"http://localhost:3000", "http://localhost:5173"},
			RateLimit:       120,
			RateLimitWindow: duration{time.Minute},
		},
		Notify: NotifyConfig{
			Events: []string{"subagent_spawned", "funding_pending", "agent_upgraded", "arbitrage_unwind"},
		},
		Simulate: SimulateConfig{
			Payments: 40,
			Payer:    "0x00000000000000000000000000000000000000a1",
			Seed:     7,
			MaxSkew:  0.01,
			Prices: map[string]float64{
				"ethereum": 3000,
				"bitcoin":  60000,
				"solana":   150,
			},
		},
		Mode:     "server",
		LogLevel: "info",
	}
}

// validModes enumerates the accepted values for Config.Mode.
var validModes = map[string]bool{
	"server":   true,
	"agent":    true,
	"simulate": true,
}

// validLogLevels enumerates the accepted values for Config.LogLevel.
var validLogLevels = map[string]bool{
	"debug": true,
	"info":  true,
	"warn":  true,
	"error": true,
}

// validVenues enumerates the venue names the arbitrage evaluator can query.
var validVenues = map[string]bool{
	"binance":  true,
	"coinbase": true,
	"okx":      true,
}

// Validate checks Config for obviously invalid or missing values and returns a
// combined error describing every problem found.
func (c *Config) Validate() error {
	var errs []string

	// Mode
	mode := strings.ToLower(c.Mode)
	if !validModes[mode] {
		errs = append(errs, fmt.Sprintf("unknown mode %q (valid: server, agent, simulate)", c.Mode))
	}

	// LogLevel
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		errs = append(errs, fmt.Sprintf("unknown log_level %q (valid: debug, info, warn, error)", c.LogLevel))
	}

	// Wallet
	if c.Wallet.PrivateKey == "" && c.Wallet.EncryptedKeyPath == "" && !c.Wallet.Ephemeral {
		errs = append(errs, "wallet: one of private_key, encrypted_key_path or ephemeral must be set")
	}
	if c.Wallet.EncryptedKeyPath != "" && c.Wallet.KeyPassword == "" {
		errs = append(errs, "wallet: key_password is required when encrypted_key_path is set")
	}

	// Agent
	if len(c.Agent.Tokens) == 0 {
		errs = append(errs, "agent: tokens must not be empty")
	}
	if c.Agent.CycleInterval.Duration <= 0 {
		errs = append(errs, "agent: cycle_interval must be > 0")
	}
	if c.Agent.AutoExecuteCapital < 0 {
		errs = append(errs, "agent: auto_execute_capital must be >= 0")
	}

	// Reinvest
	if c.Reinvest.Threshold <= 0 {
		errs = append(errs, "reinvest: threshold must be > 0")
	}
	if c.Reinvest.SpawnCost <= 0 {
		errs = append(errs, "reinvest: spawn_cost must be > 0")
	}
	if c.Reinvest.UpgradeCost <= 0 {
		errs = append(errs, "reinvest: upgrade_cost must be > 0")
	}
	if c.Reinvest.MaxSubAgents < 0 {
		errs = append(errs, "reinvest: max_sub_agents must be >= 0")
	}

	// Pricing
	prices := []struct {
		name  string
		value float64
	}{
		{"market_analysis", c.Pricing.MarketAnalysis},
		{"trading_signals", c.Pricing.TradingSignals},
		{"arbitrage_scan", c.Pricing.ArbitrageScan},
		{"yield_optimization", c.Pricing.YieldOptimization},
	}
	for _, p := range prices {
		if !(p.value > 0) {
			errs = append(errs, fmt.Sprintf("pricing: %s must be > 0", p.name))
		}
	}

	// Oracle (live upstreams are not used in simulate mode)
	if mode != "simulate" {
		if c.Oracle.CoinGeckoURL == "" {
			errs = append(errs, "oracle: coingecko_url must not be empty")
		}
		if c.Oracle.FearGreedURL == "" {
			errs = append(errs, "oracle: feargreed_url must not be empty")
		}
	}
	if c.Oracle.RatePerSec <= 0 {
		errs = append(errs, "oracle: rate_per_sec must be > 0")
	}
	if c.Oracle.Burst < 1 {
		errs = append(errs, "oracle: burst must be >= 1")
	}
	if c.Oracle.BreakerFailures < 1 {
		errs = append(errs, "oracle: breaker_failures must be >= 1")
	}

	// Arbitrage
	if len(c.Arbitrage.Venues) < 2 {
		errs = append(errs, "arbitrage: at least two venues are required")
	}
	for _, v := range c.Arbitrage.Venues {
		if !validVenues[strings.ToLower(strings.TrimSpace(v))] {
			errs = append(errs, fmt.Sprintf("arbitrage: unknown venue %q (valid: binance, coinbase, okx)", v))
		}
	}
	if c.Arbitrage.MinSpread < 0 || c.Arbitrage.ExecMinSpread < 0 {
		errs = append(errs, "arbitrage: spreads must be >= 0")
	}
	if c.Arbitrage.FeeRate < 0 || c.Arbitrage.FeeRate >= 1 {
		errs = append(errs, "arbitrage: fee_rate must be in [0, 1)")
	}
	if c.Arbitrage.Slippage < 0 || c.Arbitrage.Slippage >= 1 {
		errs = append(errs, "arbitrage: slippage must be in [0, 1)")
	}

	// Payment
	if c.Payment.StartingBalance < 0 || c.Payment.TreasuryBalance < 0 {
		errs = append(errs, "payment: balances must be >= 0")
	}

	// Redis
	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			errs = append(errs, "redis: addr must not be empty")
		}
		if c.Redis.PoolSize < 1 {
			errs = append(errs, "redis: pool_size must be >= 1")
		}
	}

	// Postgres
	if c.Postgres.Enabled {
		if strings.TrimSpace(c.Postgres.DSN) == "" {
			if c.Postgres.Host == "" {
				errs = append(errs, "postgres: host must not be empty (or set postgres.dsn)")
			}
			if c.Postgres.Port <= 0 || c.Postgres.Port > 65535 {
				errs = append(errs, fmt.Sprintf("postgres: port must be 1-65535, got %d", c.Postgres.Port))
			}
			if c.Postgres.Database == "" {
				errs = append(errs, "postgres: database must not be empty")
			}
		}
		if c.Postgres.PoolMaxConns < 1 {
			errs = append(errs, "postgres: pool_max_conns must be >= 1")
		}
		if c.Postgres.PoolMinConns < 0 {
			errs = append(errs, "postgres: pool_min_conns must be >= 0")
		}
		if c.Postgres.PoolMinConns > c.Postgres.PoolMaxConns {
			errs = append(errs, "postgres: pool_min_conns must not exceed pool_max_conns")
		}
	}

	// Server
	if c.Server.Enabled && mode == "server" {
		if c.Server.Port <= 0 || c.Server.Port > 65535 {
			errs = append(errs, fmt.Sprintf("server: port must be 1-65535, got %d", c.Server.Port))
		}
		if c.Server.RateLimit > 0 && c.Server.RateLimitWindow.Duration <= 0 {
			errs = append(errs, "server: rate_limit_window must be > 0 when rate_limit is set")
		}
	}

	// Simulate
	if mode == "simulate" {
		if c.Simulate.Payments < 1 {
			errs = append(errs, "simulate: payments must be >= 1")
		}
		if c.Simulate.Payer == "" {
			errs = append(errs, "simulate: payer must not be empty")
		}
		if len(c.Simulate.Prices) == 0 {
			errs = append(errs, "simulate: prices must not be empty")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("config validation failed:\n  - %s", strings.Join(errs, "\n  - "))
	}
	return nil
}
