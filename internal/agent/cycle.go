package agent

import (
	"context"
	"log/slog"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// cycleLockKey is the lock that elects which replica runs the cycle.
func (a *Agent) cycleLockKey() string { return "agent-cycle:" + a.cfg.Wallet }

// CycleReport summarises one autonomous cycle.
type CycleReport struct {
	Signals       int    `json:"signals"`
	Opportunities int    `json:"opportunities"`
	Executed      bool   `json:"executed"`
	Reinvestment  string `json:"reinvestment"`
	Skipped       bool   `json:"skipped"`
}

// Run executes the autonomous cycle every CycleInterval until ctx is
// cancelled. The first cycle runs immediately.
func (a *Agent) Run(ctx context.Context) error {
	a.logger.InfoContext(ctx, "autonomous cycle started",
		slog.Duration("interval", a.cfg.CycleInterval),
		slog.Any("tokens", a.cfg.Tokens),
	)

	ticker := time.NewTicker(a.cfg.CycleInterval)
	defer ticker.Stop()

	for {
		a.RunCycle(ctx)
		select {
		case <-ctx.Done():
			a.logger.InfoContext(ctx, "autonomous cycle stopped")
			return nil
		case <-ticker.C:
		}
	}
}

// RunCycle performs one pass: signals for each watched token, an arbitrage
// scan, an optional execution of the best opportunity, then a reinvestment
// check. When a lock manager is configured and another holder owns the
// cycle, the pass is skipped.
func (a *Agent) RunCycle(ctx context.Context) CycleReport {
	var report CycleReport
	if ctx.Err() != nil {
		report.Skipped = true
		return report
	}

	if a.locks != nil {
		unlock, err := a.locks.Acquire(ctx, a.cycleLockKey(), a.cfg.CycleInterval)
		if err != nil {
			if isLockHeld(err) {
				a.logger.DebugContext(ctx, "cycle held by another replica")
			} else {
				a.logger.WarnContext(ctx, "cycle lock failed", slog.String("error", err.Error()))
			}
			report.Skipped = true
			return report
		}
		defer unlock()
	}

	start := time.Now()
	for _, token := range a.cfg.Tokens {
		sr, err := a.SignalReport(ctx, token)
		if err != nil {
			a.logger.WarnContext(ctx, "cycle signals failed",
				slog.String("token", token),
				slog.String("error", err.Error()),
			)
			continue
		}
		report.Signals += len(sr.Signals)
	}

	opps, err := a.FindArbitrageOpportunities(ctx, a.cfg.Tokens)
	if err != nil {
		a.logger.WarnContext(ctx, "cycle arbitrage scan failed", slog.String("error", err.Error()))
	}
	report.Opportunities = len(opps)

	if len(opps) > 0 && a.cfg.AutoExecuteCapital > 0 {
		res := a.execute(ctx, opps[0], a.cfg.AutoExecuteCapital)
		report.Executed = res.Success
	}

	out, err := a.ConsiderReinvestment(ctx)
	if err == nil {
		report.Reinvestment = string(out.Decision.Action)
	}

	a.logger.InfoContext(ctx, "cycle complete",
		slog.Int("signals", report.Signals),
		slog.Int("opportunities", report.Opportunities),
		slog.Bool("executed", report.Executed),
		slog.String("reinvestment", report.Reinvestment),
		slog.Duration("took", time.Since(start)),
	)
	a.publish(ctx, domain.ChannelCycle, EventCycle, report)
	return report
}
