package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/alanyoungcy/econagent/internal/domain"
)

const yieldRiskPenalty = 50

// Protocol is a catalog entry for a yield-bearing protocol. DefaultAPY and
// the TVL range are used when live analytics are unavailable.
type Protocol struct {
	Name       string
	Token      string
	Risk       float64
	DefaultAPY float64
	MinTVL     float64
	MaxTVL     float64
}

// DefaultCatalog is the built-in protocol list, ordered by static risk.
var DefaultCatalog = []Protocol{
	{Name: "aave-v3", Token: "USDC", Risk: 0.15, DefaultAPY: 3.8, MinTVL: 8e9, MaxTVL: 12e9},
	{Name: "compound-v3", Token: "USDC", Risk: 0.2, DefaultAPY: 4.5, MinTVL: 1e9, MaxTVL: 3e9},
	{Name: "lido", Token: "ETH", Risk: 0.25, DefaultAPY: 3.2, MinTVL: 2e10, MaxTVL: 3e10},
	{Name: "curve-dex", Token: "USDC", Risk: 0.4, DefaultAPY: 6.5, MinTVL: 1.5e9, MaxTVL: 2.5e9},
	{Name: "convex-finance", Token: "CRV", Risk: 0.5, DefaultAPY: 9.0, MinTVL: 1e9, MaxTVL: 2e9},
	{Name: "uniswap-v3", Token: "ETH", Risk: 0.55, DefaultAPY: 12.0, MinTVL: 3e9, MaxTVL: 5e9},
	{Name: "gmx", Token: "ETH", Risk: 0.75, DefaultAPY: 18.0, MinTVL: 4e8, MaxTVL: 7e8},
	{Name: "pendle", Token: "ETH", Risk: 0.8, DefaultAPY: 22.0, MinTVL: 2e9, MaxTVL: 4e9},
}

// Yield ranks catalog protocols for a principal and risk tolerance.
type Yield struct {
	catalog   []Protocol
	analytics domain.YieldAnalytics
	randFloat func() float64
	logger    *slog.Logger
}

// NewYield creates a yield evaluator. A nil catalog uses DefaultCatalog; a
// nil analytics source always falls back to catalog defaults.
func NewYield(catalog []Protocol, analytics domain.YieldAnalytics, logger *slog.Logger) *Yield {
	if catalog == nil {
		catalog = DefaultCatalog
	}
	return &Yield{
		catalog:   catalog,
		analytics: analytics,
		randFloat: rand.Float64,
		logger:    logger.With(slog.String("strategy", "yield")),
	}
}

// Optimize returns the protocols admitted by tol, enriched with live APY and
// TVL where available, ranked by APY*multiplier - risk*50 descending.
func (y *Yield) Optimize(ctx context.Context, amount float64, tol domain.RiskTolerance) ([]domain.YieldOpportunity, error) {
	if amount <= 0 || math.IsNaN(amount) || math.IsInf(amount, 0) {
		return nil, fmt.Errorf("yield: optimize: %w", domain.ErrInvalidAmount)
	}
	tol, err := domain.ParseRiskTolerance(string(tol))
	if err != nil {
		return nil, fmt.Errorf("yield: optimize: %w", err)
	}

	maxRisk := tol.MaxRisk()
	var opps []domain.YieldOpportunity
	for _, p := range y.catalog {
		if p.Risk > maxRisk {
			continue
		}
		apy, tvl, estimated := y.enrich(ctx, p)
		opps = append(opps, domain.YieldOpportunity{
			Protocol:        p.Name,
			Token:           p.Token,
			APY:             apy,
			TVL:             tvl,
			Risk:            p.Risk,
			EstimatedReturn: amount * apy / 100,
			Estimated:       estimated,
		})
	}

	mult := tol.Multiplier()
	sort.SliceStable(opps, func(i, j int) bool {
		return yieldRank(opps[i], mult) > yieldRank(opps[j], mult)
	})
	return opps, nil
}

func yieldRank(o domain.YieldOpportunity, mult float64) float64 {
	return o.APY*mult - o.Risk*yieldRiskPenalty
}

// enrich fetches live APY/TVL, falling back to the catalog default APY and a
// TVL sampled from the protocol's range.
func (y *Yield) enrich(ctx context.Context, p Protocol) (apy, tvl float64, estimated bool) {
	if y.analytics != nil {
		apy, tvl, err := y.analytics.GetPool(ctx, p.Name, p.Token)
		if err == nil && apy > 0 && !math.IsNaN(apy) && !math.IsInf(apy, 0) {
			return apy, tvl, false
		}
		if err != nil {
			y.logger.DebugContext(ctx, "yield analytics unavailable, using estimate",
				slog.String("protocol", p.Name),
				slog.String("error", err.Error()),
			)
		}
	}
	return p.DefaultAPY, p.MinTVL + y.randFloat()*(p.MaxTVL-p.MinTVL), true
}
