// Package oracle is the gateway between the agent and its market data
// sources. It caches quotes, serves stale data when upstreams fail, and
// guards each upstream with a rate limiter and a circuit breaker.
package oracle

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/metrics"
)

// Config tunes the gateway. Zero values take defaults.
type Config struct {
	QuoteTTL        time.Duration // 30s
	RequestTimeout  time.Duration // 8s
	RatePerSec      float64       // upstream calls per second, 2
	Burst           int           // 5
	BreakerFailures uint32        // consecutive failures before opening, 5
	BreakerCooldown time.Duration // 30s
}

func (c Config) withDefaults() Config {
	if c.QuoteTTL <= 0 {
		c.QuoteTTL = 30 * time.Second
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 8 * time.Second
	}
	if c.RatePerSec <= 0 {
		c.RatePerSec = 2
	}
	if c.Burst <= 0 {
		c.Burst = 5
	}
	if c.BreakerFailures == 0 {
		c.BreakerFailures = 5
	}
	if c.BreakerCooldown <= 0 {
		c.BreakerCooldown = 30 * time.Second
	}
	return c
}

var (
	_ domain.PriceSource     = (*Gateway)(nil)
	_ domain.SentimentSource = (*Gateway)(nil)
)

// Gateway implements PriceSource and SentimentSource on top of upstream
// sources.
type Gateway struct {
	cfg       Config
	prices    domain.PriceSource
	sentiment domain.SentimentSource
	cache     domain.QuoteCache

	priceCB     *gobreaker.CircuitBreaker
	sentimentCB *gobreaker.CircuitBreaker
	limiter     *rate.Limiter

	mu            sync.Mutex
	lastSentiment map[string]float64

	metrics *metrics.Recorder
	logger  *slog.Logger
}

// New creates a gateway. sentiment may be nil, in which case every token
// reads as neutral.
func New(cfg Config, prices domain.PriceSource, sentiment domain.SentimentSource, cache domain.QuoteCache, rec *metrics.Recorder, logger *slog.Logger) *Gateway {
	cfg = cfg.withDefaults()
	g := &Gateway{
		cfg:           cfg,
		prices:        prices,
		sentiment:     sentiment,
		cache:         cache,
		limiter:       rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.Burst),
		lastSentiment: make(map[string]float64),
		metrics:       rec,
		logger:        logger.With(slog.String("component", "oracle")),
	}
	g.priceCB = g.newBreaker("price")
	g.sentimentCB = g.newBreaker("sentiment")
	return g
}

func (g *Gateway) newBreaker(source string) *gobreaker.CircuitBreaker {
	failures := g.cfg.BreakerFailures
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        source,
		MaxRequests: 1,
		Timeout:     g.cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, domain.ErrNotFound)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			g.logger.Warn("oracle circuit breaker state change",
				slog.String("source", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			g.metrics.SetBreakerOpen(name, to == gobreaker.StateOpen)
		},
	})
}

// GetQuote returns a cached quote younger than QuoteTTL, otherwise fetches
// a fresh one. When the upstream fails or is throttled the last cached
// quote is returned regardless of age.
func (g *Gateway) GetQuote(ctx context.Context, token string) (domain.Quote, error) {
	token = normalizeToken(token)
	if token == "" {
		return domain.Quote{}, fmt.Errorf("oracle: quote: %w: empty token", domain.ErrInvalidRequest)
	}

	cached, cacheErr := g.cache.GetQuote(ctx, token)
	haveCached := cacheErr == nil
	if haveCached && time.Since(cached.FetchedAt) < g.cfg.QuoteTTL {
		g.metrics.RecordOracle("price", "hit")
		return cached, nil
	}
	if cacheErr != nil && !errors.Is(cacheErr, domain.ErrNotFound) {
		g.logger.WarnContext(ctx, "quote cache read failed",
			slog.String("token", token),
			slog.String("error", cacheErr.Error()),
		)
	}

	if !g.limiter.Allow() {
		if haveCached {
			g.metrics.RecordOracle("price", "stale")
			return cached, nil
		}
		g.metrics.RecordOracle("price", "error")
		return domain.Quote{}, fmt.Errorf("oracle: quote %s: %w", token, domain.ErrRateLimited)
	}

	q, err := g.fetchQuote(ctx, token)
	if err != nil {
		if haveCached {
			g.logger.WarnContext(ctx, "price source failed, serving stale quote",
				slog.String("token", token),
				slog.Duration("age", time.Since(cached.FetchedAt)),
				slog.String("error", err.Error()),
			)
			g.metrics.RecordOracle("price", "stale")
			return cached, nil
		}
		g.metrics.RecordOracle("price", "error")
		if errors.Is(err, domain.ErrNotFound) {
			return domain.Quote{}, fmt.Errorf("oracle: quote %s: %w", token, err)
		}
		return domain.Quote{}, fmt.Errorf("oracle: quote %s: %w: %v", token, domain.ErrUpstreamUnavailable, err)
	}

	q.Token = token
	if q.FetchedAt.IsZero() {
		q.FetchedAt = time.Now().UTC()
	}
	if err := g.cache.SetQuote(ctx, q); err != nil {
		g.logger.WarnContext(ctx, "quote cache write failed",
			slog.String("token", token),
			slog.String("error", err.Error()),
		)
	}
	g.metrics.RecordOracle("price", "fetched")
	return q, nil
}

func (g *Gateway) fetchQuote(ctx context.Context, token string) (domain.Quote, error) {
	cctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	res, err := g.priceCB.Execute(func() (interface{}, error) {
		return g.prices.GetQuote(cctx, token)
	})
	if err != nil {
		return domain.Quote{}, err
	}
	q, ok := res.(domain.Quote)
	if !ok {
		return domain.Quote{}, fmt.Errorf("oracle: unexpected quote type %T", res)
	}
	if q.Price <= 0 {
		return domain.Quote{}, fmt.Errorf("oracle: non-positive price for %s", token)
	}
	return q, nil
}

// GetSentiment returns the upstream sentiment clamped to [-1, 1]. On
// failure it returns the last reading for token, or 0 if there is none.
func (g *Gateway) GetSentiment(ctx context.Context, token string) (float64, error) {
	token = normalizeToken(token)
	if g.sentiment == nil {
		return 0, nil
	}

	cctx, cancel := context.WithTimeout(ctx, g.cfg.RequestTimeout)
	defer cancel()
	res, err := g.sentimentCB.Execute(func() (interface{}, error) {
		return g.sentiment.GetSentiment(cctx, token)
	})

	g.mu.Lock()
	defer g.mu.Unlock()
	if err != nil {
		last, ok := g.lastSentiment[token]
		g.logger.DebugContext(ctx, "sentiment source failed, using fallback",
			slog.String("token", token),
			slog.Bool("have_last", ok),
			slog.String("error", err.Error()),
		)
		g.metrics.RecordOracle("sentiment", "default")
		return last, nil
	}
	s, _ := res.(float64)
	s = clampUnit(s)
	g.lastSentiment[token] = s
	g.metrics.RecordOracle("sentiment", "fetched")
	return s, nil
}

// Snapshot combines a quote and a sentiment reading.
func (g *Gateway) Snapshot(ctx context.Context, token string) (domain.MarketSnapshot, error) {
	q, err := g.GetQuote(ctx, token)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	s, err := g.GetSentiment(ctx, token)
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return domain.SnapshotFromQuote(q, s), nil
}

func normalizeToken(t string) string {
	return strings.ToLower(strings.TrimSpace(t))
}

func clampUnit(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	if v > 1 {
		return 1
	}
	if v < -1 {
		return -1
	}
	return v
}
