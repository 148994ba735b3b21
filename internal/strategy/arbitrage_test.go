package strategy

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeVenue struct {
	name   string
	mu     sync.Mutex
	prices map[string]float64
	err    error
}

func newVenue(name string, prices map[string]float64) *fakeVenue {
	return &fakeVenue{name: name, prices: prices}
}

func (v *fakeVenue) Name() string { return v.name }

func (v *fakeVenue) GetPrice(_ context.Context, token string) (float64, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.err != nil {
		return 0, v.err
	}
	p, ok := v.prices[token]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

func (v *fakeVenue) set(token string, price float64) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.prices[token] = price
}

type swapCall struct {
	venue string
	side  domain.Side
	size  float64
}

type fakeSwapper struct {
	calls    []swapCall
	failSide domain.Side
}

func (s *fakeSwapper) Swap(_ context.Context, venue, _ string, side domain.Side, size float64) (string, error) {
	s.calls = append(s.calls, swapCall{venue: venue, side: side, size: size})
	if side == s.failSide {
		return "", errors.New("venue rejected order")
	}
	return "0x" + string(side) + "-" + venue, nil
}

func TestArbitrage_FilterThreshold(t *testing.T) {
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{
		newVenue("alpha", map[string]float64{"narrow": 100, "wide": 100}),
		newVenue("beta", map[string]float64{"narrow": 100.3, "wide": 100.6}),
	}, nil, testLogger())

	opps, err := a.FindOpportunities(context.Background(), []string{"narrow", "wide"})
	require.NoError(t, err)
	require.Len(t, opps, 1)

	o := opps[0]
	assert.Equal(t, "wide", o.Token)
	assert.Equal(t, "alpha", o.VenueA)
	assert.Equal(t, "beta", o.VenueB)
	assert.InDelta(t, 0.6, o.PriceDifference, 1e-9)
	assert.InDelta(t, 0.6*0.997, o.EstimatedProfit, 1e-9)
	assert.InDelta(t, 0.3+0.06+0.2, o.Risk, 1e-9)
	assert.NotEmpty(t, o.ID)
	assert.Equal(t, "alpha", o.BuyVenue())
	assert.Equal(t, "beta", o.SellVenue())
}

func TestArbitrage_SortedByProfitAndSkipsFailedVenue(t *testing.T) {
	broken := newVenue("broken", map[string]float64{})
	broken.err = errors.New("timeout")
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{
		newVenue("a", map[string]float64{"eth": 2000, "btc": 60000}),
		broken,
		newVenue("b", map[string]float64{"eth": 2020, "btc": 60600}),
		newVenue("c", map[string]float64{"eth": 2000, "btc": 60000}),
	}, nil, testLogger())

	opps, err := a.FindOpportunities(context.Background(), []string{"eth", "btc"})
	require.NoError(t, err)
	require.Len(t, opps, 4)

	for i := 1; i < len(opps); i++ {
		assert.GreaterOrEqual(t, opps[i-1].EstimatedProfit, opps[i].EstimatedProfit)
	}
	assert.Equal(t, "btc", opps[0].Token)
	// Equal profits keep discovery order: a-b before b-c.
	assert.Equal(t, "a", opps[0].VenueA)
	assert.Equal(t, "b", opps[1].VenueA)
	for _, o := range opps {
		assert.NotEqual(t, "broken", o.VenueA)
		assert.NotEqual(t, "broken", o.VenueB)
	}
}

func TestArbitrageRisk_Capped(t *testing.T) {
	assert.InDelta(t, 0.5, ArbitrageRisk(0), 1e-12)
	assert.InDelta(t, 0.9, ArbitrageRisk(1000), 1e-12)
}

func TestArbitrage_ExecuteRejectsCollapsedSpread(t *testing.T) {
	alpha := newVenue("alpha", map[string]float64{"eth": 100})
	beta := newVenue("beta", map[string]float64{"eth": 100.6})
	sw := &fakeSwapper{}
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

	opps, err := a.FindOpportunities(context.Background(), []string{"eth"})
	require.NoError(t, err)
	require.Len(t, opps, 1)

	beta.set("eth", 100.2)
	res := a.Execute(context.Background(), opps[0], 1000)

	assert.False(t, res.Success)
	assert.Contains(t, res.Error, domain.ErrStaleOpportunity.Error())
	assert.Empty(t, sw.calls)
	assert.Empty(t, res.BuyLegRef)
}

func TestArbitrage_ExecuteRejectsZeroPrice(t *testing.T) {
	alpha := newVenue("alpha", map[string]float64{"eth": 0})
	beta := newVenue("beta", map[string]float64{"eth": 101})
	sw := &fakeSwapper{}
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

	res := a.Execute(context.Background(), domain.ArbitrageOpportunity{ID: "x", Token: "eth", VenueA: "alpha", VenueB: "beta"}, 100)
	assert.False(t, res.Success)
	assert.Empty(t, sw.calls)
}

func TestArbitrage_ExecuteRejectsNonFinitePrice(t *testing.T) {
	for name, bad := range map[string]float64{
		"nan":     math.NaN(),
		"pos_inf": math.Inf(1),
		"neg_inf": math.Inf(-1),
	} {
		t.Run(name, func(t *testing.T) {
			alpha := newVenue("alpha", map[string]float64{"eth": 100})
			beta := newVenue("beta", map[string]float64{"eth": bad})
			sw := &fakeSwapper{}
			a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

			res := a.Execute(context.Background(), domain.ArbitrageOpportunity{ID: "x", Token: "eth", VenueA: "alpha", VenueB: "beta"}, 1000)
			assert.False(t, res.Success)
			assert.Contains(t, res.Error, "invalid price")
			assert.Empty(t, sw.calls)
			assert.Zero(t, res.NetProfit)
		})
	}
}

func TestArbitrage_ExecuteRejectsUnprofitableAfterFees(t *testing.T) {
	// 0.35% spread passes re-verification; a 1% fee turns it into a loss.
	alpha := newVenue("alpha", map[string]float64{"eth": 100})
	beta := newVenue("beta", map[string]float64{"eth": 100.35})
	sw := &fakeSwapper{}
	a := NewArbitrage(ArbitrageConfig{FeeRate: 0.01}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

	res := a.Execute(context.Background(), domain.ArbitrageOpportunity{ID: "x", Token: "eth", VenueA: "alpha", VenueB: "beta"}, 100)
	assert.False(t, res.Success)
	assert.LessOrEqual(t, res.NetProfit, 0.0)
	assert.Empty(t, sw.calls)
}

func TestArbitrage_ExecuteSuccess(t *testing.T) {
	alpha := newVenue("alpha", map[string]float64{"eth": 102})
	beta := newVenue("beta", map[string]float64{"eth": 100})
	sw := &fakeSwapper{}
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

	res := a.Execute(context.Background(), domain.ArbitrageOpportunity{ID: "x", Token: "eth", VenueA: "alpha", VenueB: "beta"}, 1000)
	require.True(t, res.Success, res.Error)
	assert.Equal(t, "beta", res.BuyVenue)
	assert.Equal(t, "alpha", res.SellVenue)
	assert.InDelta(t, 995, res.TradeSize, 1e-9)

	units := 995.0 / 100
	assert.InDelta(t, units*102*0.997-995, res.NetProfit, 1e-9)
	require.Len(t, sw.calls, 2)
	assert.Equal(t, "beta", sw.calls[0].venue)
	assert.Equal(t, domain.SideBuy, sw.calls[0].side)
	assert.InDelta(t, units, sw.calls[0].size, 1e-9)
	assert.Equal(t, "alpha", sw.calls[1].venue)
	assert.Equal(t, domain.SideSell, sw.calls[1].side)
	assert.InDelta(t, units, sw.calls[1].size, 1e-9)
	assert.NotEmpty(t, res.BuyLegRef)
	assert.NotEmpty(t, res.SellLegRef)
}

func TestArbitrage_ExecuteSellLegFailureReportsBuyLeg(t *testing.T) {
	alpha := newVenue("alpha", map[string]float64{"eth": 100})
	beta := newVenue("beta", map[string]float64{"eth": 102})
	sw := &fakeSwapper{failSide: domain.SideSell}
	a := NewArbitrage(ArbitrageConfig{}, []domain.VenuePriceSource{alpha, beta}, sw, testLogger())

	res := a.Execute(context.Background(), domain.ArbitrageOpportunity{ID: "x", Token: "eth", VenueA: "alpha", VenueB: "beta"}, 500)
	assert.False(t, res.Success)
	assert.Equal(t, "0xbuy-alpha", res.BuyLegRef)
	assert.Empty(t, res.SellLegRef)
	assert.Contains(t, res.Error, "manual unwind")
}

func TestMomentumSignal(t *testing.T) {
	sig := MomentumSignal("eth", 2500)
	assert.Equal(t, domain.ActionBuy, sig.Action)
	assert.Equal(t, 0.6, sig.Confidence)
	assert.Equal(t, 2500.0, sig.Price)
}
