package ledger

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

func sum(m map[string]float64) float64 {
	var s float64
	for _, v := range m {
		s += v
	}
	return s
}

func TestLedger_RecordInvariants(t *testing.T) {
	l := New()
	payments := []struct {
		service string
		amount  float64
	}{
		{"market_analysis", 0.1},
		{"trading_signals", 0.05},
		{"market_analysis", 0.1},
		{"yield_optimization", 0.25},
		{"arbitrage_scan", 0},
		{"arbitrage_scan", -3},
	}
	for _, p := range payments {
		l.Record(p.service, p.amount)
		e := l.Earnings()
		assert.InDelta(t, e.TotalEarned, sum(e.ByService), 1e-12)
		assert.InDelta(t, e.TotalEarned-e.Reinvested, e.Available, 1e-12)
	}

	e := l.Earnings()
	assert.InDelta(t, 0.5, e.TotalEarned, 1e-12)
	assert.InDelta(t, 0.2, e.ByService["market_analysis"], 1e-12)
	assert.NotContains(t, e.ByService, "arbitrage_scan")
}

func TestLedger_RecordRejectsBadAmounts(t *testing.T) {
	l := New()
	assert.False(t, l.Record("x", 0))
	assert.False(t, l.Record("x", -1))
	assert.False(t, l.Record("x", math.NaN()))
	assert.False(t, l.Record("x", math.Inf(1)))
	assert.True(t, l.Record("x", 1))
	assert.Equal(t, 1.0, l.TotalEarned())
}

func TestLedger_Debit(t *testing.T) {
	l := New()
	l.Record("market_analysis", 1.2)

	require.NoError(t, l.Debit(0.3))
	e := l.Earnings()
	assert.InDelta(t, 0.3, e.Reinvested, 1e-12)
	assert.InDelta(t, 0.9, e.Available, 1e-12)
	assert.InDelta(t, 1.2, e.TotalEarned, 1e-12)

	err := l.Debit(5)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
	assert.InDelta(t, 0.9, l.Available(), 1e-12)

	assert.ErrorIs(t, l.Debit(-1), domain.ErrInvalidAmount)
}

func TestLedger_EarningsIsACopy(t *testing.T) {
	l := New()
	l.Record("trading_signals", 0.5)

	e := l.Earnings()
	e.ByService["trading_signals"] = 99
	e.ByService["injected"] = 1

	fresh := l.Earnings()
	assert.Equal(t, 0.5, fresh.ByService["trading_signals"])
	assert.NotContains(t, fresh.ByService, "injected")
}
