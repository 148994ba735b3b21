package agent

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/cache/memory"
	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/ledger"
	"github.com/alanyoungcy/econagent/internal/reinvest"
	"github.com/alanyoungcy/econagent/internal/strategy"
)

type fixedMarket struct {
	snap domain.MarketSnapshot
	err  error
}

func (m fixedMarket) Snapshot(_ context.Context, token string) (domain.MarketSnapshot, error) {
	if m.err != nil {
		return domain.MarketSnapshot{}, m.err
	}
	s := m.snap
	s.Token = token
	return s, nil
}

type priceVenue struct {
	name   string
	prices map[string]float64
}

func (v priceVenue) Name() string { return v.name }

func (v priceVenue) GetPrice(_ context.Context, token string) (float64, error) {
	p, ok := v.prices[token]
	if !ok {
		return 0, domain.ErrNotFound
	}
	return p, nil
}

type okSwapper struct{}

func (okSwapper) Swap(_ context.Context, venue, token string, side domain.Side, _ float64) (string, error) {
	return fmt.Sprintf("0x%s-%s-%s", side, venue, token), nil
}

type stubRail struct{ mu sync.Mutex }

func (*stubRail) ChargeForService(context.Context, domain.ServiceKind, string, float64) (string, error) {
	return "0xcharge", nil
}

func (*stubRail) GetBalance(context.Context, string) (float64, error) { return 100, nil }

func (r *stubRail) Transfer(context.Context, string, string, float64) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return "0xfund", nil
}

type counterWallets struct {
	mu sync.Mutex
	n  int
}

func (w *counterWallets) NewWallet() (string, error) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.n++
	return fmt.Sprintf("0x%040d", w.n), nil
}

type memAudit struct {
	mu     sync.Mutex
	events []string
}

func (m *memAudit) Log(_ context.Context, event string, _ map[string]any) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, event)
	return nil
}

func (m *memAudit) List(context.Context, domain.ListOpts) ([]domain.AuditEntry, error) {
	return nil, nil
}

func (m *memAudit) has(event string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, e := range m.events {
		if e == event {
			return true
		}
	}
	return false
}

type fixture struct {
	agent  *Agent
	ledger *ledger.Ledger
	bus    *memory.EventBus
	locks  *memory.LockManager
	audit  *memAudit
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	l := ledger.New()
	bus := memory.NewEventBus(0)
	locks := memory.NewLockManager()
	audit := &memAudit{}

	mgr := reinvest.NewManager(reinvest.ManagerConfig{
		Policy:       reinvest.DefaultPolicy(),
		Ledger:       l,
		Rail:         &stubRail{},
		Wallets:      &counterWallets{},
		ParentID:     "agent-1",
		ParentWallet: "0xparent",
		Logger:       logger,
	})
	venues := []domain.VenuePriceSource{
		priceVenue{name: "alpha", prices: map[string]float64{"ethereum": 100, "bitcoin": 60000}},
		priceVenue{name: "beta", prices: map[string]float64{"ethereum": 101, "bitcoin": 60010}},
	}

	a := New(Config{
		ID:            "agent-1",
		Wallet:        "0xparent",
		Tokens:        []string{"ethereum", "bitcoin"},
		CycleInterval: time.Hour,
	}, Deps{
		Ledger:    l,
		Reinvest:  mgr,
		Arbitrage: strategy.NewArbitrage(strategy.ArbitrageConfig{}, venues, okSwapper{}, logger),
		Yield:     strategy.NewYield(nil, nil, logger),
		Market: fixedMarket{snap: domain.MarketSnapshot{
			Price: 100, PriceChange24h: 50, Volume24h: 2_000_000, Sentiment: 0.5, Liquidity: 20_000_000,
		}},
		Bus:    bus,
		Locks:  locks,
		Audit:  audit,
		Logger: logger,
	})
	return &fixture{agent: a, ledger: l, bus: bus, locks: locks, audit: audit}
}

func assertInvariants(t *testing.T, e domain.Earnings) {
	t.Helper()
	var sum float64
	for _, v := range e.ByService {
		sum += v
	}
	assert.InDelta(t, e.TotalEarned, sum, 1e-9)
	assert.InDelta(t, e.TotalEarned-e.Reinvested, e.Available, 1e-9)
}

func TestRecordPayment_BelowThresholdDoesNotReinvest(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.True(t, f.agent.RecordPayment(ctx, "market_analysis", 0.4))
	assert.True(t, f.agent.RecordPayment(ctx, "trading_signals", 0.5))

	e := f.agent.GetEarnings()
	assert.InDelta(t, 0.9, e.TotalEarned, 1e-9)
	assert.Zero(t, e.Reinvested)
	assert.Empty(t, f.agent.GetSubAgents())
	assertInvariants(t, e)
}

func TestRecordPayment_CrossingThresholdSpawns(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	f.agent.RecordPayment(ctx, "market_analysis", 0.6)
	f.agent.RecordPayment(ctx, "arbitrage_scan", 0.5)

	e := f.agent.GetEarnings()
	assert.InDelta(t, 1.1, e.TotalEarned, 1e-9)
	assert.InDelta(t, 0.3, e.Reinvested, 1e-9)
	assertInvariants(t, e)

	subs := f.agent.GetSubAgents()
	require.Len(t, subs, 1)
	assert.Equal(t, "agent-1", subs[0].ParentID)
	assert.True(t, subs[0].FundingConfirmed)
	assert.True(t, f.audit.has(domain.AuditSubAgentSpawned))
	assert.True(t, f.audit.has(domain.AuditPaymentRecorded))

	events, err := f.bus.Recent(ctx, domain.ChannelReinvestment, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	var ev Event
	require.NoError(t, json.Unmarshal(events[0], &ev))
	assert.Equal(t, EventSubAgentSpawned, ev.Type)
	assert.Equal(t, "agent-1", ev.AgentID)
}

func TestRecordPayment_IgnoresNonPositive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	assert.False(t, f.agent.RecordPayment(ctx, "market_analysis", 0))
	assert.False(t, f.agent.RecordPayment(ctx, "market_analysis", -1))
	assert.Zero(t, f.agent.GetEarnings().TotalEarned)

	events, err := f.bus.Recent(ctx, domain.ChannelEarnings, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestConsiderReinvestment_SecondCallIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.Record("market_analysis", 1.2)

	out, err := f.agent.ConsiderReinvestment(ctx)
	require.NoError(t, err)
	assert.Equal(t, reinvest.ActionSpawn, out.Decision.Action)

	out, err = f.agent.ConsiderReinvestment(ctx)
	require.NoError(t, err)
	assert.Equal(t, reinvest.ActionNone, out.Decision.Action)
	assert.Len(t, f.agent.GetSubAgents(), 1)
	assert.InDelta(t, 0.3, f.agent.GetEarnings().Reinvested, 1e-9)
}

func TestRecordPayment_ConcurrentKeepsInvariants(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			svc := string(domain.ServiceKinds[i%len(domain.ServiceKinds)])
			f.agent.RecordPayment(ctx, svc, 0.25)
		}(i)
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			_, _ = f.agent.ConsiderReinvestment(ctx)
		}
	}()
	wg.Wait()

	e := f.agent.GetEarnings()
	assert.InDelta(t, 25.0, e.TotalEarned, 1e-9)
	assertInvariants(t, e)
	assert.LessOrEqual(t, len(f.agent.GetSubAgents()), 5)
	assert.GreaterOrEqual(t, e.Available, 0.0)
}

func TestGetSubAgents_ReturnsCopy(t *testing.T) {
	f := newFixture(t)
	f.ledger.Record("market_analysis", 2)
	_, err := f.agent.ConsiderReinvestment(context.Background())
	require.NoError(t, err)

	subs := f.agent.GetSubAgents()
	require.Len(t, subs, 1)
	subs[0].Role = "mutated"
	assert.NotEqual(t, "mutated", f.agent.GetSubAgents()[0].Role)

	e := f.agent.GetEarnings()
	e.ByService["market_analysis"] = 99
	assert.InDelta(t, 2.0, f.agent.GetEarnings().ByService["market_analysis"], 1e-9)
}

func TestExecuteArbitrage(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.agent.ExecuteArbitrage(ctx, "missing", 10)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	opps, err := f.agent.FindArbitrageOpportunities(ctx, []string{" Ethereum ", "bitcoin", "ethereum"})
	require.NoError(t, err)
	require.Len(t, opps, 1)
	assert.Equal(t, "ethereum", opps[0].Token)

	_, err = f.agent.ExecuteArbitrage(ctx, opps[0].ID, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	res, err := f.agent.ExecuteArbitrage(ctx, opps[0].ID, 10)
	require.NoError(t, err)
	assert.True(t, res.Success, res.Error)
	assert.Greater(t, res.NetProfit, 0.0)
	assert.True(t, f.audit.has(domain.AuditArbitrageExecuted))

	events, err := f.bus.Recent(ctx, domain.ChannelArbitrage, 10)
	require.NoError(t, err)
	assert.Len(t, events, 2)
}

func TestAnalyzeAndSignals(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	ma, err := f.agent.AnalyzeMarket(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, "ethereum", ma.Snapshot.Token)
	assert.Greater(t, ma.Score, 0.3)
	require.NotEmpty(t, ma.Signals)
	assert.Equal(t, domain.ActionBuy, ma.Signals[0].Action)

	sr, err := f.agent.SignalReport(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, domain.ActionBuy, sr.Momentum.Action)
	assert.InDelta(t, 0.6, sr.Momentum.Confidence, 1e-9)
}

func TestOptimizeYieldFarming(t *testing.T) {
	f := newFixture(t)
	out, err := f.agent.OptimizeYieldFarming(context.Background(), 1000, domain.RiskLow)
	require.NoError(t, err)
	require.NotEmpty(t, out)
	for _, o := range out {
		assert.LessOrEqual(t, o.Risk, 0.3)
	}
}

func TestRunCycle(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	f.ledger.Record("market_analysis", 1.5)

	report := f.agent.RunCycle(ctx)
	assert.False(t, report.Skipped)
	assert.Equal(t, 1, report.Opportunities)
	assert.GreaterOrEqual(t, report.Signals, 2)
	assert.Equal(t, string(reinvest.ActionSpawn), report.Reinvestment)
	assert.False(t, report.Executed)
}

func TestRunCycle_SkipsWhenLockHeld(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	unlock, err := f.locks.Acquire(ctx, f.agent.cycleLockKey(), time.Minute)
	require.NoError(t, err)
	defer unlock()

	report := f.agent.RunCycle(ctx)
	assert.True(t, report.Skipped)
}

func TestRun_StopsOnCancel(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- f.agent.Run(ctx) }()
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
