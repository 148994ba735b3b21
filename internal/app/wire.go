package app

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/alanyoungcy/econagent/internal/agent"
	"github.com/alanyoungcy/econagent/internal/cache/memory"
	"github.com/alanyoungcy/econagent/internal/cache/redis"
	"github.com/alanyoungcy/econagent/internal/config"
	"github.com/alanyoungcy/econagent/internal/crypto"
	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/ledger"
	"github.com/alanyoungcy/econagent/internal/metrics"
	"github.com/alanyoungcy/econagent/internal/notify"
	"github.com/alanyoungcy/econagent/internal/oracle"
	"github.com/alanyoungcy/econagent/internal/payment"
	"github.com/alanyoungcy/econagent/internal/platform/coingecko"
	"github.com/alanyoungcy/econagent/internal/platform/defillama"
	"github.com/alanyoungcy/econagent/internal/platform/feargreed"
	"github.com/alanyoungcy/econagent/internal/platform/sim"
	"github.com/alanyoungcy/econagent/internal/platform/venues"
	"github.com/alanyoungcy/econagent/internal/reinvest"
	"github.com/alanyoungcy/econagent/internal/service"
	"github.com/alanyoungcy/econagent/internal/store/postgres"
	"github.com/alanyoungcy/econagent/internal/strategy"
)

// Dependencies bundles every component the application modes need. It is
// constructed by Wire and torn down by the returned cleanup function.
type Dependencies struct {
	// Stores (nil when postgres is disabled)
	AuditStore     domain.AuditStore
	ExecutionStore domain.ExecutionStore
	SubAgentStore  domain.SubAgentStore

	// Caches, locks and events
	QuoteCache  domain.QuoteCache
	RateLimiter domain.RateLimiter
	LockManager domain.LockManager
	EventBus    domain.EventBus
	History     domain.EventHistory

	// Payments and identity
	Signer  *crypto.Signer
	Rail    *payment.SimulatedRail
	Wallets *crypto.Wallets

	// Market data; Sim is set only in simulate mode.
	Oracle *oracle.Gateway
	Sim    *sim.Market

	Agent      *agent.Agent
	Dispatcher *service.Dispatcher
	Metrics    *metrics.Recorder
	Notifier   *notify.Notifier
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
	fail := func(err error) (*Dependencies, func(), error) {
		cleanup()
		return nil, nil, err
	}

	simulate := strings.EqualFold(cfg.Mode, "simulate")
	deps := &Dependencies{Metrics: metrics.New()}

	// --- PostgreSQL journals ---
	if cfg.Postgres.Enabled {
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
		}, logger)
		if err != nil {
			return fail(fmt.Errorf("wire: postgres: %w", err))
		}
		closers = append(closers, pgClient.Close)

		if cfg.Postgres.RunMigrations {
			if err := pgClient.RunMigrations(ctx); err != nil {
				return fail(fmt.Errorf("wire: postgres migrations: %w", err))
			}
		}

		journals := pgClient.Journals()
		deps.AuditStore = journals.Audit
		deps.ExecutionStore = journals.Executions
		deps.SubAgentStore = journals.SubAgents
	}

	// --- Redis, or in-process equivalents ---
	if cfg.Redis.Enabled {
		redisClient, err := redis.New(ctx, redis.ClientConfig{
			Addr:       cfg.Redis.Addr,
			Password:   cfg.Redis.Password,
			DB:         cfg.Redis.DB,
			PoolSize:   cfg.Redis.PoolSize,
			MaxRetries: cfg.Redis.MaxRetries,
			TLSEnabled: cfg.Redis.TLSEnabled,
			KeyPrefix:  cfg.Redis.KeyPrefix,
		})
		if err != nil {
			return fail(fmt.Errorf("wire: redis: %w", err))
		}
		closers = append(closers, func() { _ = redisClient.Close() })

		bus := redis.NewEventBus(redisClient)
		deps.QuoteCache = redis.NewQuoteCache(redisClient)
		deps.RateLimiter = redis.NewRateLimiter(redisClient)
		deps.LockManager = redis.NewLockManager(redisClient)
		deps.EventBus = bus
		deps.History = bus
	} else {
		bus := memory.NewEventBus(200)
		deps.QuoteCache = memory.NewQuoteCache()
		deps.RateLimiter = memory.NewRateLimiter()
		deps.LockManager = memory.NewLockManager()
		deps.EventBus = bus
		deps.History = bus
	}

	// --- Wallet and payment rail ---
	key, err := crypto.LoadKey(crypto.KeySource{
		PrivateKey:   cfg.Wallet.PrivateKey,
		KeystorePath: cfg.Wallet.EncryptedKeyPath,
		Password:     cfg.Wallet.KeyPassword,
		Ephemeral:    cfg.Wallet.Ephemeral,
	})
	if err != nil {
		return fail(fmt.Errorf("wire: wallet: %w", err))
	}
	deps.Signer = crypto.NewSigner(key)
	deps.Wallets = crypto.NewWallets()
	deps.Rail = payment.NewSimulatedRail(payment.RailConfig{
		StartingBalance: cfg.Payment.StartingBalance,
		TreasuryBalance: cfg.Payment.TreasuryBalance,
	}, deps.Signer, logger)
	swapper := payment.NewSimulatedSwapper(cfg.Arbitrage.FailingVenues, logger)

	// --- Market data ---
	var (
		prices    domain.PriceSource
		sentiment domain.SentimentSource
		analytics domain.YieldAnalytics
		venueSrcs []domain.VenuePriceSource
	)
	if simulate {
		deps.Sim = sim.NewMarket(cfg.Simulate.Seed, cfg.Simulate.Prices)
		prices, sentiment = deps.Sim, deps.Sim
		for _, name := range cfg.Arbitrage.Venues {
			venueSrcs = append(venueSrcs, deps.Sim.Venue(strings.ToLower(name), cfg.Simulate.MaxSkew))
		}
	} else {
		prices = coingecko.NewClient(cfg.Oracle.CoinGeckoURL, cfg.Oracle.CoinGeckoAPIKey)
		sentiment = feargreed.NewClient(cfg.Oracle.FearGreedURL)
		if cfg.Yield.UseAnalytics {
			analytics = defillama.NewClient(cfg.Oracle.DefiLlamaURL, cfg.Oracle.DefiLlamaTTL.Duration)
		}
		venueSrcs, err = venues.New(cfg.Arbitrage.Venues)
		if err != nil {
			return fail(fmt.Errorf("wire: %w", err))
		}
	}
	deps.Oracle = oracle.New(oracle.Config{
		QuoteTTL:        cfg.Oracle.QuoteTTL.Duration,
		RequestTimeout:  cfg.Oracle.RequestTimeout.Duration,
		RatePerSec:      cfg.Oracle.RatePerSec,
		Burst:           cfg.Oracle.Burst,
		BreakerFailures: uint32(cfg.Oracle.BreakerFailures),
		BreakerCooldown: cfg.Oracle.BreakerCooldown.Duration,
	}, prices, sentiment, deps.QuoteCache, deps.Metrics, logger)

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
	deps.Notifier = notify.NewNotifier(senders, cfg.Notify.Events, logger)

	// --- Agent core ---
	policy := reinvest.Policy{
		Threshold:             cfg.Reinvest.Threshold,
		SpawnCost:             cfg.Reinvest.SpawnCost,
		UpgradeCost:           cfg.Reinvest.UpgradeCost,
		MaxSubAgents:          cfg.Reinvest.MaxSubAgents,
		UpgradeBelowSubAgents: cfg.Reinvest.UpgradeBelowSubAgents,
		UpgradeAboveEarnings:  cfg.Reinvest.UpgradeAboveEarnings,
	}
	if err := policy.Validate(); err != nil {
		return fail(fmt.Errorf("wire: %w", err))
	}

	agentID := cfg.Agent.ID
	if agentID == "" {
		agentID = "agent-" + strings.ToLower(deps.Signer.Address()[2:10])
	}
	led := ledger.New()
	manager := reinvest.NewManager(reinvest.ManagerConfig{
		Policy:       policy,
		Ledger:       led,
		Rail:         deps.Rail,
		Wallets:      deps.Wallets,
		ParentID:     agentID,
		ParentWallet: deps.Signer.Address(),
		Logger:       logger,
	})

	deps.Agent = agent.New(agent.Config{
		ID:                 agentID,
		Wallet:             deps.Signer.Address(),
		Tokens:             cfg.Agent.Tokens,
		CycleInterval:      cfg.Agent.CycleInterval.Duration,
		AutoExecuteCapital: cfg.Agent.AutoExecuteCapital,
	}, agent.Deps{
		Ledger:   led,
		Reinvest: manager,
		Arbitrage: strategy.NewArbitrage(strategy.ArbitrageConfig{
			MinSpread:     cfg.Arbitrage.MinSpread,
			ExecMinSpread: cfg.Arbitrage.ExecMinSpread,
			FeeRate:       cfg.Arbitrage.FeeRate,
			Slippage:      cfg.Arbitrage.Slippage,
		}, venueSrcs, swapper, logger),
		Yield:         strategy.NewYield(nil, analytics, logger),
		Market:        deps.Oracle,
		Bus:           deps.EventBus,
		Locks:         deps.LockManager,
		Audit:         deps.AuditStore,
		Executions:    deps.ExecutionStore,
		SubAgentStore: deps.SubAgentStore,
		Notifier:      deps.Notifier,
		Metrics:       deps.Metrics,
		Logger:        logger,
	})

	// --- Service dispatcher ---
	pricing := service.Pricing{
		domain.ServiceMarketAnalysis:    cfg.Pricing.MarketAnalysis,
		domain.ServiceTradingSignals:    cfg.Pricing.TradingSignals,
		domain.ServiceArbitrageScan:     cfg.Pricing.ArbitrageScan,
		domain.ServiceYieldOptimization: cfg.Pricing.YieldOptimization,
	}
	if err := pricing.Validate(); err != nil {
		return fail(fmt.Errorf("wire: pricing: %w", err))
	}
	deps.Dispatcher = service.NewDispatcher(
		deps.Agent, deps.Rail, pricing,
		crypto.NewReceipts(cfg.Payment.ReceiptSecret),
		deps.Metrics, logger,
	)

	return deps, cleanup, nil
}
