// Package agent is the economic agent's core. It owns the revenue ledger and
// the reinvestment manager and serializes every operation that touches them
// behind one mutex, whether it comes from a paid request, a manual
// reinvestment check or the autonomous cycle.
package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/ledger"
	"github.com/alanyoungcy/econagent/internal/metrics"
	"github.com/alanyoungcy/econagent/internal/notify"
	"github.com/alanyoungcy/econagent/internal/reinvest"
	"github.com/alanyoungcy/econagent/internal/scoring"
	"github.com/alanyoungcy/econagent/internal/strategy"
)

// MarketData produces market snapshots. The oracle gateway satisfies it.
type MarketData interface {
	Snapshot(ctx context.Context, token string) (domain.MarketSnapshot, error)
}

// Config holds the agent's own parameters.
type Config struct {
	ID     string
	Wallet string
	// Tokens scanned by the autonomous cycle.
	Tokens        []string
	CycleInterval time.Duration
	// AutoExecuteCapital, when positive, makes the cycle execute the best
	// opportunity of each scan with this much capital.
	AutoExecuteCapital float64
}

// Deps are the collaborators of an Agent. Audit, Executions, SubAgentStore,
// Bus, Locks, Notifier and Metrics are optional.
type Deps struct {
	Ledger    *ledger.Ledger
	Reinvest  *reinvest.Manager
	Arbitrage *strategy.Arbitrage
	Yield     *strategy.Yield
	Market    MarketData

	Bus           domain.EventBus
	Locks         domain.LockManager
	Audit         domain.AuditStore
	Executions    domain.ExecutionStore
	SubAgentStore domain.SubAgentStore
	Notifier      *notify.Notifier
	Metrics       *metrics.Recorder
	Logger        *slog.Logger
}

// Agent is safe for concurrent use.
type Agent struct {
	cfg Config

	mu       sync.Mutex // guards ledger and reinvest
	ledger   *ledger.Ledger
	reinvest *reinvest.Manager

	arbitrage *strategy.Arbitrage
	yield     *strategy.Yield
	market    MarketData

	oppMu sync.RWMutex
	opps  map[string]domain.ArbitrageOpportunity // last scan, by ID

	bus        domain.EventBus
	locks      domain.LockManager
	audit      domain.AuditStore
	executions domain.ExecutionStore
	subStore   domain.SubAgentStore
	notifier   *notify.Notifier
	rec        *metrics.Recorder
	logger     *slog.Logger
	started    time.Time
}

// New creates an Agent.
func New(cfg Config, deps Deps) *Agent {
	if cfg.ID == "" {
		cfg.ID = uuid.NewString()
	}
	if cfg.CycleInterval <= 0 {
		cfg.CycleInterval = time.Minute
	}
	return &Agent{
		cfg:        cfg,
		ledger:     deps.Ledger,
		reinvest:   deps.Reinvest,
		arbitrage:  deps.Arbitrage,
		yield:      deps.Yield,
		market:     deps.Market,
		opps:       make(map[string]domain.ArbitrageOpportunity),
		bus:        deps.Bus,
		locks:      deps.Locks,
		audit:      deps.Audit,
		executions: deps.Executions,
		subStore:   deps.SubAgentStore,
		notifier:   deps.Notifier,
		rec:        deps.Metrics,
		logger:     deps.Logger.With(slog.String("component", "agent"), slog.String("agent_id", cfg.ID)),
		started:    time.Now().UTC(),
	}
}

// ID returns the agent identifier.
func (a *Agent) ID() string { return a.cfg.ID }

// Tokens returns the tokens watched by the autonomous cycle.
func (a *Agent) Tokens() []string { return append([]string(nil), a.cfg.Tokens...) }

// RecordPayment credits amount to service and, if the available balance has
// reached the reinvestment threshold, runs one reinvestment check in the
// same critical section. Non-positive amounts are ignored and reported as
// not recorded.
func (a *Agent) RecordPayment(ctx context.Context, service string, amount float64) bool {
	a.mu.Lock()
	if !a.ledger.Record(service, amount) {
		a.mu.Unlock()
		a.logger.WarnContext(ctx, "payment ignored",
			slog.String("service", service),
			slog.Float64("amount", amount),
		)
		return false
	}

	var (
		out    reinvest.Outcome
		err    error
		tried  bool
		policy = a.reinvest.Policy()
	)
	if a.ledger.Available() >= policy.Threshold {
		out, err = a.reinvest.Consider(ctx)
		tried = true
	}
	snap := a.ledger.Earnings()
	subAgents := len(a.reinvest.SubAgents())
	a.mu.Unlock()

	a.logger.InfoContext(ctx, "payment recorded",
		slog.String("service", service),
		slog.Float64("amount", amount),
		slog.Float64("available", snap.Available),
		slog.Float64("total_earned", snap.TotalEarned),
	)
	a.rec.RecordPayment(service, amount)
	a.logAudit(ctx, domain.AuditPaymentRecorded, map[string]any{
		"service": service,
		"amount":  amount,
	})
	a.publish(ctx, domain.ChannelEarnings, EventPayment, snap)

	if tried {
		a.afterReinvest(ctx, out, err, subAgents)
	}
	a.rec.SetLedger(snap.Available, snap.Reinvested)
	return true
}

// ConsiderReinvestment runs one reinvestment check. It is a no-op when the
// available balance is below the threshold, so calling it twice in a row
// without an intervening payment performs at most one action.
func (a *Agent) ConsiderReinvestment(ctx context.Context) (reinvest.Outcome, error) {
	a.mu.Lock()
	var (
		out reinvest.Outcome
		err error
	)
	policy := a.reinvest.Policy()
	if a.ledger.Available() >= policy.Threshold {
		out, err = a.reinvest.Consider(ctx)
	} else {
		out = reinvest.Outcome{Decision: reinvest.Decision{
			Action: reinvest.ActionNone,
			Reason: fmt.Sprintf("available %.4f below threshold %.4f", a.ledger.Available(), policy.Threshold),
		}}
	}
	snap := a.ledger.Earnings()
	subAgents := len(a.reinvest.SubAgents())
	a.mu.Unlock()

	a.afterReinvest(ctx, out, err, subAgents)
	a.rec.SetLedger(snap.Available, snap.Reinvested)
	if err != nil {
		return out, fmt.Errorf("agent: consider reinvestment: %w", err)
	}
	return out, nil
}

// afterReinvest emits the side effects of a reinvestment outcome outside the
// ledger lock.
func (a *Agent) afterReinvest(ctx context.Context, out reinvest.Outcome, err error, subAgents int) {
	if err != nil {
		a.logger.ErrorContext(ctx, "reinvestment failed", slog.String("error", err.Error()))
		return
	}
	a.rec.RecordReinvestment(string(out.Decision.Action), subAgents)

	switch out.Decision.Action {
	case reinvest.ActionSpawn:
		sa := *out.SubAgent
		a.logAudit(ctx, domain.AuditSubAgentSpawned, map[string]any{
			"sub_agent_id":      sa.ID,
			"role":              sa.Role,
			"wallet":            sa.Wallet,
			"balance":           sa.Balance,
			"funding_tx":        sa.FundingTx,
			"funding_confirmed": sa.FundingConfirmed,
		})
		if a.subStore != nil {
			if err := a.subStore.Save(ctx, sa); err != nil {
				a.logger.WarnContext(ctx, "persist sub-agent failed",
					slog.String("sub_agent_id", sa.ID),
					slog.String("error", err.Error()),
				)
			}
		}
		a.notify(ctx, notify.EventSubAgentSpawned, "Sub-agent spawned",
			fmt.Sprintf("%s (%s) wallet %s funded %.4f", sa.ID, sa.Role, sa.Wallet, sa.Balance))
		if !sa.FundingConfirmed {
			a.logAudit(ctx, domain.AuditFundingPlaceholder, map[string]any{
				"sub_agent_id": sa.ID,
				"funding_tx":   sa.FundingTx,
			})
			a.notify(ctx, notify.EventFundingPending, "Sub-agent funding unconfirmed",
				fmt.Sprintf("%s recorded with placeholder %s", sa.ID, sa.FundingTx))
		}
		a.publish(ctx, domain.ChannelReinvestment, EventSubAgentSpawned, sa)
	case reinvest.ActionUpgrade:
		a.logAudit(ctx, domain.AuditAgentUpgraded, map[string]any{
			"cost":     out.Decision.Cost,
			"upgrades": a.upgrades(),
		})
		a.notify(ctx, notify.EventAgentUpgraded, "Agent upgraded",
			fmt.Sprintf("spent %.4f (%s)", out.Decision.Cost, out.Decision.Reason))
		a.publish(ctx, domain.ChannelReinvestment, EventUpgrade, out.Decision)
	}
}

func (a *Agent) upgrades() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reinvest.Upgrades()
}

// GetEarnings returns a copy of the ledger.
func (a *Agent) GetEarnings() domain.Earnings {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.ledger.Earnings()
}

// GetSubAgents returns a copy of the spawned sub-agents in creation order.
func (a *Agent) GetSubAgents() []domain.SubAgent {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.reinvest.SubAgents()
}

// Status summarises the agent for health and dashboard endpoints.
type Status struct {
	ID        string          `json:"id"`
	Wallet    string          `json:"wallet"`
	Uptime    string          `json:"uptime"`
	SubAgents int             `json:"sub_agents"`
	Upgrades  int             `json:"upgrades"`
	Earnings  domain.Earnings `json:"earnings"`
}

// Status returns a point-in-time summary.
func (a *Agent) Status() Status {
	a.mu.Lock()
	defer a.mu.Unlock()
	return Status{
		ID:        a.cfg.ID,
		Wallet:    a.cfg.Wallet,
		Uptime:    time.Since(a.started).Round(time.Second).String(),
		SubAgents: len(a.reinvest.SubAgents()),
		Upgrades:  a.reinvest.Upgrades(),
		Earnings:  a.ledger.Earnings(),
	}
}

// GenerateTradingSignals scores snap and returns one or two signals.
func (a *Agent) GenerateTradingSignals(snap domain.MarketSnapshot) []domain.TradingSignal {
	return scoring.GenerateSignals(snap)
}

// AnalyzeMarket fetches a snapshot for token and scores it.
func (a *Agent) AnalyzeMarket(ctx context.Context, token string) (domain.MarketAnalysis, error) {
	snap, err := a.market.Snapshot(ctx, token)
	if err != nil {
		return domain.MarketAnalysis{}, fmt.Errorf("agent: analyze %s: %w", token, err)
	}
	return domain.MarketAnalysis{
		Snapshot: snap,
		Score:    scoring.Score(scoring.InputFromSnapshot(snap)),
		Signals:  a.GenerateTradingSignals(snap),
	}, nil
}

// SignalReport fetches a snapshot for token and returns the scored signals
// together with the momentum signal.
func (a *Agent) SignalReport(ctx context.Context, token string) (domain.SignalReport, error) {
	snap, err := a.market.Snapshot(ctx, token)
	if err != nil {
		return domain.SignalReport{}, fmt.Errorf("agent: signals %s: %w", token, err)
	}
	report := domain.SignalReport{
		Token:    snap.Token,
		Signals:  a.GenerateTradingSignals(snap),
		Momentum: strategy.MomentumSignal(snap.Token, snap.Price),
	}
	a.publish(ctx, domain.ChannelSignals, EventSignals, report)
	return report, nil
}

// FindArbitrageOpportunities scans tokens across all venues. The result is
// remembered so ExecuteArbitrage can refer to opportunities by ID.
func (a *Agent) FindArbitrageOpportunities(ctx context.Context, tokens []string) ([]domain.ArbitrageOpportunity, error) {
	opps, err := a.arbitrage.FindOpportunities(ctx, normalizeTokens(tokens))
	if err != nil {
		return nil, fmt.Errorf("agent: find arbitrage: %w", err)
	}

	a.oppMu.Lock()
	a.opps = make(map[string]domain.ArbitrageOpportunity, len(opps))
	for _, o := range opps {
		a.opps[o.ID] = o
	}
	a.oppMu.Unlock()

	a.rec.RecordScan(len(opps))
	if len(opps) > 0 {
		a.publish(ctx, domain.ChannelArbitrage, EventOpportunities, opps)
	}
	return opps, nil
}

// Opportunity returns an opportunity from the last scan.
func (a *Agent) Opportunity(id string) (domain.ArbitrageOpportunity, bool) {
	a.oppMu.RLock()
	defer a.oppMu.RUnlock()
	o, ok := a.opps[id]
	return o, ok
}

// ExecuteArbitrage re-verifies and executes a remembered opportunity.
// Execution failures come back in the result; the error is reserved for an
// unknown opportunity or invalid capital.
func (a *Agent) ExecuteArbitrage(ctx context.Context, opportunityID string, capital float64) (domain.ArbitrageExecution, error) {
	if !(capital > 0) {
		return domain.ArbitrageExecution{}, fmt.Errorf("agent: execute arbitrage: %w", domain.ErrInvalidAmount)
	}
	opp, ok := a.Opportunity(opportunityID)
	if !ok {
		return domain.ArbitrageExecution{}, fmt.Errorf("agent: execute arbitrage %s: %w", opportunityID, domain.ErrNotFound)
	}
	return a.execute(ctx, opp, capital), nil
}

func (a *Agent) execute(ctx context.Context, opp domain.ArbitrageOpportunity, capital float64) domain.ArbitrageExecution {
	res := a.arbitrage.Execute(ctx, opp, capital)
	a.rec.RecordExecution(res.Success)

	detail := map[string]any{
		"opportunity_id":  res.OpportunityID,
		"token":           res.Token,
		"buy_venue":       res.BuyVenue,
		"sell_venue":      res.SellVenue,
		"verified_spread": res.VerifiedSpread,
		"net_profit":      res.NetProfit,
		"buy_leg_ref":     res.BuyLegRef,
		"sell_leg_ref":    res.SellLegRef,
	}
	if res.Success {
		a.logAudit(ctx, domain.AuditArbitrageExecuted, detail)
		a.notify(ctx, notify.EventArbitrageSuccess, "Arbitrage executed",
			fmt.Sprintf("%s %s→%s net %.6f", res.Token, res.BuyVenue, res.SellVenue, res.NetProfit))
	} else {
		detail["error"] = res.Error
		a.logAudit(ctx, domain.AuditArbitrageFailed, detail)
		if res.BuyLegRef != "" {
			a.notify(ctx, notify.EventArbitrageUnwind, "Arbitrage needs manual unwind",
				fmt.Sprintf("%s buy leg %s on %s committed: %s", res.Token, res.BuyLegRef, res.BuyVenue, res.Error))
		}
	}

	if a.executions != nil {
		rec := domain.ExecutionRecord{ID: uuid.NewString(), Execution: res, Capital: capital, CreatedAt: time.Now().UTC()}
		if err := a.executions.Save(ctx, rec); err != nil {
			a.logger.WarnContext(ctx, "persist execution failed", slog.String("error", err.Error()))
		}
	}
	a.publish(ctx, domain.ChannelArbitrage, EventExecution, res)
	return res
}

// OptimizeYieldFarming ranks yield opportunities for amount at tolerance.
func (a *Agent) OptimizeYieldFarming(ctx context.Context, amount float64, tolerance domain.RiskTolerance) ([]domain.YieldOpportunity, error) {
	out, err := a.yield.Optimize(ctx, amount, tolerance)
	if err != nil {
		return nil, fmt.Errorf("agent: optimize yield: %w", err)
	}
	return out, nil
}

func (a *Agent) logAudit(ctx context.Context, event string, detail map[string]any) {
	if a.audit == nil {
		return
	}
	detail["agent_id"] = a.cfg.ID
	if err := a.audit.Log(ctx, event, detail); err != nil {
		a.logger.WarnContext(ctx, "audit log failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func (a *Agent) notify(ctx context.Context, event, title, message string) {
	if err := a.notifier.Notify(ctx, event, title, message); err != nil {
		a.logger.WarnContext(ctx, "notification failed",
			slog.String("event", event),
			slog.String("error", err.Error()),
		)
	}
}

func normalizeTokens(tokens []string) []string {
	out := make([]string, 0, len(tokens))
	seen := make(map[string]bool, len(tokens))
	for _, t := range tokens {
		t = strings.ToLower(strings.TrimSpace(t))
		if t == "" || seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out
}

// isLockHeld reports whether err means another replica owns the cycle.
func isLockHeld(err error) bool { return errors.Is(err, domain.ErrLockHeld) }
