// Package sim provides a synthetic market used by simulate mode and when
// no upstream data sources are configured.
package sim

import (
	"context"
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// DefaultPrices seeds the random walk.
var DefaultPrices = map[string]float64{
	"bitcoin":  65000,
	"ethereum": 2500,
	"solana":   150,
}

// Market is a random-walk price and sentiment generator.
type Market struct {
	mu     sync.Mutex
	rng    *rand.Rand
	prices map[string]float64
	open   map[string]float64
	step   float64 // max relative move per quote
}

var (
	_ domain.PriceSource     = (*Market)(nil)
	_ domain.SentimentSource = (*Market)(nil)
)

// NewMarket creates a market seeded with prices (DefaultPrices when nil).
func NewMarket(seed uint64, prices map[string]float64) *Market {
	if prices == nil {
		prices = DefaultPrices
	}
	m := &Market{
		rng:    rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)),
		prices: make(map[string]float64, len(prices)),
		open:   make(map[string]float64, len(prices)),
		step:   0.02,
	}
	for k, v := range prices {
		m.prices[strings.ToLower(k)] = v
		m.open[strings.ToLower(k)] = v
	}
	return m
}

// GetQuote advances token's walk one step and returns the new quote.
func (m *Market) GetQuote(_ context.Context, token string) (domain.Quote, error) {
	key := strings.ToLower(token)
	m.mu.Lock()
	defer m.mu.Unlock()

	p, ok := m.prices[key]
	if !ok {
		return domain.Quote{}, fmt.Errorf("sim: unknown token %q: %w", token, domain.ErrNotFound)
	}
	p *= 1 + (m.rng.Float64()*2-1)*m.step
	m.prices[key] = p

	return domain.Quote{
		Token:          token,
		Price:          p,
		Volume24h:      p * (1e3 + m.rng.Float64()*1e5),
		PriceChange24h: (p - m.open[key]) / m.open[key] * 100,
		Liquidity:      p * (1e4 + m.rng.Float64()*1e6),
		FetchedAt:      time.Now().UTC(),
	}, nil
}

// GetSentiment returns a uniform reading in [-1, 1].
func (m *Market) GetSentiment(_ context.Context, _ string) (float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.rng.Float64()*2 - 1, nil
}

// Price returns the current walk price without advancing it.
func (m *Market) Price(token string) (float64, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.prices[strings.ToLower(token)]
	return p, ok
}

// skew returns a random relative offset in [-limit, limit].
func (m *Market) skew(limit float64) float64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return (m.rng.Float64()*2 - 1) * limit
}

// Venue is a synthetic exchange quoting the market price with noise.
type Venue struct {
	name    string
	market  *Market
	maxSkew float64
}

var _ domain.VenuePriceSource = (*Venue)(nil)

// Venue returns a venue whose quotes deviate from the walk by up to maxSkew.
func (m *Market) Venue(name string, maxSkew float64) *Venue {
	return &Venue{name: name, market: m, maxSkew: maxSkew}
}

func (v *Venue) Name() string { return v.name }

func (v *Venue) GetPrice(_ context.Context, token string) (float64, error) {
	p, ok := v.market.Price(token)
	if !ok {
		return 0, fmt.Errorf("sim/%s: unknown token %q: %w", v.name, token, domain.ErrNotFound)
	}
	return p * (1 + v.market.skew(v.maxSkew)), nil
}
