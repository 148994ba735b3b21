package strategy

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/econagent/internal/domain"
)

const (
	defaultArbMinSpread     = 0.005
	defaultArbExecMinSpread = 0.003
	defaultArbFeeRate       = 0.003
	defaultArbSlippage      = 0.005

	arbBaseRisk      = 0.3
	arbExecutionRisk = 0.2
	arbLiquidityCap  = 0.4
)

// ArbitrageConfig tunes detection and execution thresholds. Zero values take
// the defaults.
type ArbitrageConfig struct {
	MinSpread     float64 // relative spread required to report a pair
	ExecMinSpread float64 // relative spread required at execution time
	FeeRate       float64 // flat round-trip fee
	Slippage      float64 // haircut applied to trade size
}

func (c ArbitrageConfig) withDefaults() ArbitrageConfig {
	if c.MinSpread <= 0 {
		c.MinSpread = defaultArbMinSpread
	}
	if c.ExecMinSpread <= 0 {
		c.ExecMinSpread = defaultArbExecMinSpread
	}
	if c.FeeRate <= 0 {
		c.FeeRate = defaultArbFeeRate
	}
	if c.Slippage <= 0 {
		c.Slippage = defaultArbSlippage
	}
	return c
}

// Arbitrage finds and executes cross-venue price gaps.
type Arbitrage struct {
	cfg     ArbitrageConfig
	venues  []domain.VenuePriceSource
	swapper domain.Swapper
	logger  *slog.Logger
}

// NewArbitrage creates an arbitrage evaluator over venues. The swapper is
// only needed by Execute and may be nil for scan-only use.
func NewArbitrage(cfg ArbitrageConfig, venues []domain.VenuePriceSource, swapper domain.Swapper, logger *slog.Logger) *Arbitrage {
	return &Arbitrage{
		cfg:     cfg.withDefaults(),
		venues:  venues,
		swapper: swapper,
		logger:  logger.With(slog.String("strategy", "arbitrage")),
	}
}

// Venues returns the configured venue names in discovery order.
func (a *Arbitrage) Venues() []string {
	names := make([]string, len(a.venues))
	for i, v := range a.venues {
		names[i] = v.Name()
	}
	return names
}

type venuePrice struct {
	venue string
	price float64
	ok    bool
}

// FindOpportunities prices each token on every venue and returns the pairs
// whose relative spread exceeds MinSpread, ordered by estimated profit.
// Venues that fail to quote are skipped for that token.
func (a *Arbitrage) FindOpportunities(ctx context.Context, tokens []string) ([]domain.ArbitrageOpportunity, error) {
	var opps []domain.ArbitrageOpportunity
	for _, token := range tokens {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		prices := a.fetchAll(ctx, token)
		now := time.Now().UTC()

		for i := 0; i < len(prices); i++ {
			if !prices[i].ok {
				continue
			}
			for j := i + 1; j < len(prices); j++ {
				if !prices[j].ok {
					continue
				}
				pa, pb := prices[i].price, prices[j].price
				if relativeSpread(pa, pb) <= a.cfg.MinSpread {
					continue
				}
				diff := math.Abs(pa - pb)
				opps = append(opps, domain.ArbitrageOpportunity{
					ID:              uuid.NewString(),
					Token:           token,
					VenueA:          prices[i].venue,
					VenueB:          prices[j].venue,
					PriceA:          pa,
					PriceB:          pb,
					PriceDifference: diff,
					EstimatedProfit: diff * (1 - a.cfg.FeeRate),
					Risk:            ArbitrageRisk(diff),
					DetectedAt:      now,
				})
			}
		}
	}

	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].EstimatedProfit > opps[j].EstimatedProfit
	})
	return opps, nil
}

// fetchAll queries every venue concurrently. The result keeps venue order.
func (a *Arbitrage) fetchAll(ctx context.Context, token string) []venuePrice {
	out := make([]venuePrice, len(a.venues))
	g, gctx := errgroup.WithContext(ctx)
	for i, v := range a.venues {
		out[i].venue = v.Name()
		g.Go(func() error {
			p, err := v.GetPrice(gctx, token)
			if err != nil {
				a.logger.DebugContext(ctx, "venue quote failed",
					slog.String("venue", v.Name()),
					slog.String("token", token),
					slog.String("error", err.Error()),
				)
				return nil
			}
			if !validPrice(p) {
				return nil
			}
			out[i].price = p
			out[i].ok = true
			return nil
		})
	}
	_ = g.Wait()
	return out
}

// ArbitrageRisk scores a price gap: base risk, a liquidity proxy growing
// with the gap, and a fixed execution risk, capped at 1.
func ArbitrageRisk(diff float64) float64 {
	return math.Min(arbBaseRisk+math.Min(diff/10, arbLiquidityCap)+arbExecutionRisk, 1.0)
}

// Execute re-verifies opp against live prices and, if still profitable,
// buys on the cheaper venue and sells on the dearer one. Failures are
// reported in the returned execution, never as an error.
func (a *Arbitrage) Execute(ctx context.Context, opp domain.ArbitrageOpportunity, capital float64) domain.ArbitrageExecution {
	res := domain.ArbitrageExecution{OpportunityID: opp.ID, Token: opp.Token}
	fail := func(format string, args ...any) domain.ArbitrageExecution {
		res.Error = fmt.Sprintf(format, args...)
		a.logger.WarnContext(ctx, "arbitrage execution rejected",
			slog.String("opportunity_id", opp.ID),
			slog.String("token", opp.Token),
			slog.String("reason", res.Error),
		)
		return res
	}

	if capital <= 0 || math.IsNaN(capital) || math.IsInf(capital, 0) {
		return fail("%v: capital must be positive", domain.ErrInvalidAmount)
	}
	if a.swapper == nil {
		return fail("no swapper configured")
	}

	venueA, okA := a.venue(opp.VenueA)
	venueB, okB := a.venue(opp.VenueB)
	if !okA || !okB {
		return fail("%v: venue %q or %q not configured", domain.ErrNotFound, opp.VenueA, opp.VenueB)
	}
	pa, err := venueA.GetPrice(ctx, opp.Token)
	if err != nil {
		return fail("re-fetch %s price: %v", opp.VenueA, err)
	}
	pb, err := venueB.GetPrice(ctx, opp.Token)
	if err != nil {
		return fail("re-fetch %s price: %v", opp.VenueB, err)
	}
	if !validPrice(pa) || !validPrice(pb) {
		return fail("invalid price on re-check (%s=%.6f, %s=%.6f)", opp.VenueA, pa, opp.VenueB, pb)
	}

	buyVenue, buyPrice, sellVenue, sellPrice := opp.VenueA, pa, opp.VenueB, pb
	if pb < pa {
		buyVenue, buyPrice, sellVenue, sellPrice = opp.VenueB, pb, opp.VenueA, pa
	}
	res.BuyVenue, res.SellVenue = buyVenue, sellVenue
	res.VerifiedSpread = relativeSpread(pa, pb)
	if res.VerifiedSpread < a.cfg.ExecMinSpread {
		return fail("%v: spread %.4f%% below %.4f%%", domain.ErrStaleOpportunity,
			res.VerifiedSpread*100, a.cfg.ExecMinSpread*100)
	}

	res.TradeSize = capital * (1 - a.cfg.Slippage)
	units := res.TradeSize / buyPrice
	proceeds := units * sellPrice * (1 - a.cfg.FeeRate)
	res.NetProfit = proceeds - res.TradeSize
	if res.NetProfit <= 0 {
		return fail("%v: net profit %.6f after fees", domain.ErrStaleOpportunity, res.NetProfit)
	}

	buyRef, err := a.swapper.Swap(ctx, buyVenue, opp.Token, domain.SideBuy, units)
	if err != nil {
		return fail("buy leg on %s: %v", buyVenue, err)
	}
	res.BuyLegRef = buyRef

	sellRef, err := a.swapper.Swap(ctx, sellVenue, opp.Token, domain.SideSell, units)
	if err != nil {
		a.logger.ErrorContext(ctx, "arbitrage sell leg failed after buy leg committed",
			slog.String("opportunity_id", opp.ID),
			slog.String("buy_leg_ref", buyRef),
			slog.String("error", err.Error()),
		)
		res.Error = fmt.Sprintf("sell leg on %s: %v (buy leg %s committed, manual unwind required)", sellVenue, err, buyRef)
		return res
	}
	res.SellLegRef = sellRef
	res.Success = true

	a.logger.InfoContext(ctx, "arbitrage executed",
		slog.String("opportunity_id", opp.ID),
		slog.String("token", opp.Token),
		slog.String("buy_venue", buyVenue),
		slog.String("sell_venue", sellVenue),
		slog.Float64("trade_size", res.TradeSize),
		slog.Float64("net_profit", res.NetProfit),
	)
	return res
}

func (a *Arbitrage) venue(name string) (domain.VenuePriceSource, bool) {
	for _, v := range a.venues {
		if v.Name() == name {
			return v, true
		}
	}
	return nil, false
}

// validPrice reports whether p is a positive finite quote.
func validPrice(p float64) bool {
	return p > 0 && !math.IsInf(p, 1)
}

// relativeSpread is |a-b| over the pair's mean price.
func relativeSpread(a, b float64) float64 {
	avg := (a + b) / 2
	if avg <= 0 {
		return 0
	}
	return math.Abs(a-b) / avg
}
