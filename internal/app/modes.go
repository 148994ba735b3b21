package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/server"
	"github.com/alanyoungcy/econagent/internal/server/handler"
	"github.com/alanyoungcy/econagent/internal/server/ws"
)

// ServerMode runs the HTTP/websocket API alongside the autonomous cycle.
func (a *App) ServerMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting server mode",
		slog.String("agent_id", deps.Agent.ID()),
		slog.Int("port", a.cfg.Server.Port),
	)

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return deps.Agent.Run(ctx)
	})

	if a.cfg.Server.Enabled {
		a.startHTTPServer(ctx, g, deps)
	} else {
		a.logger.WarnContext(ctx, "server.enabled is false; running the autonomous cycle only")
	}

	return g.Wait()
}

// AgentMode runs only the autonomous cycle.
func (a *App) AgentMode(ctx context.Context, deps *Dependencies) error {
	a.logger.InfoContext(ctx, "starting agent mode",
		slog.String("agent_id", deps.Agent.ID()),
		slog.Duration("cycle_interval", a.cfg.Agent.CycleInterval.Duration),
	)
	return deps.Agent.Run(ctx)
}

// SimulateMode feeds synthetic paid requests through the dispatcher against
// the synthetic market, runs one autonomous cycle and prints a report.
func (a *App) SimulateMode(ctx context.Context, deps *Dependencies, out io.Writer) error {
	a.logger.InfoContext(ctx, "starting simulate mode",
		slog.Int("payments", a.cfg.Simulate.Payments),
		slog.Uint64("seed", a.cfg.Simulate.Seed),
	)

	tokens := a.cfg.Agent.Tokens
	var failed int
	for i := 0; i < a.cfg.Simulate.Payments; i++ {
		if err := ctx.Err(); err != nil {
			return err
		}
		order := domain.ServiceOrder{
			Payer:   a.cfg.Simulate.Payer,
			Request: simulatedRequest(i, tokens),
		}
		if _, err := deps.Dispatcher.Dispatch(ctx, order); err != nil {
			failed++
			a.logger.WarnContext(ctx, "simulated request failed",
				slog.String("service", string(order.Request.Kind())),
				slog.String("error", err.Error()),
			)
		}
	}

	cycle := deps.Agent.RunCycle(ctx)

	payerBalance, err := deps.Rail.GetBalance(ctx, a.cfg.Simulate.Payer)
	if err != nil {
		return fmt.Errorf("simulate: payer balance: %w", err)
	}
	treasury, err := deps.Rail.GetBalance(ctx, deps.Rail.Treasury())
	if err != nil {
		return fmt.Errorf("simulate: treasury balance: %w", err)
	}

	return writeReport(out, simulationReport{
		Requests:     a.cfg.Simulate.Payments,
		Failed:       failed,
		Earnings:     deps.Agent.GetEarnings(),
		SubAgents:    deps.Agent.GetSubAgents(),
		Cycle:        cycle,
		PayerBalance: payerBalance,
		Treasury:     treasury,
	})
}

// simulatedRequest cycles through every service kind.
func simulatedRequest(i int, tokens []string) domain.ServiceRequest {
	token := tokens[i%len(tokens)]
	switch domain.ServiceKinds[i%len(domain.ServiceKinds)] {
	case domain.ServiceMarketAnalysis:
		return domain.MarketAnalysisRequest{Token: token}
	case domain.ServiceTradingSignals:
		return domain.TradingSignalsRequest{Token: token}
	case domain.ServiceArbitrageScan:
		return domain.ArbitrageScanRequest{Tokens: tokens}
	default:
		tolerance := []domain.RiskTolerance{domain.RiskLow, domain.RiskMedium, domain.RiskHigh}[i%3]
		return domain.YieldOptimizationRequest{Amount: 1000, RiskTolerance: tolerance}
	}
}

// startHTTPServer builds the handlers, websocket hub and server and registers
// their goroutines on g.
func (a *App) startHTTPServer(ctx context.Context, g *errgroup.Group, deps *Dependencies) {
	hub := ws.NewHub(deps.EventBus, deps.History, func() any {
		return deps.Agent.Status()
	}, a.base)
	g.Go(func() error {
		return hub.Run(ctx)
	})

	h := server.Handlers{
		Health:   handler.NewHealthHandler(deps.Agent, a.cfg.Mode),
		Services: handler.NewServiceHandler(deps.Dispatcher, a.base),
		Earnings: handler.NewEarningsHandler(deps.Agent, a.base),
		Arb:      handler.NewArbHandler(deps.Agent, deps.ExecutionStore, a.base),
		Market:   handler.NewMarketHandler(deps.Agent, a.base),
		Metrics:  deps.Metrics.Handler(),
	}
	if deps.AuditStore != nil {
		h.Audit = handler.NewAuditHandler(deps.AuditStore, a.base)
	}

	srv := server.NewServer(server.Config{
		Port:            a.cfg.Server.Port,
		CORSOrigins:     a.cfg.Server.CORSOrigins,
		APIKey:          a.cfg.Server.APIKey,
		RateLimit:       a.cfg.Server.RateLimit,
		RateLimitWindow: a.cfg.Server.RateLimitWindow.Duration,
	}, h, hub, deps.RateLimiter, a.base)

	g.Go(func() error {
		if err := srv.Start(); err != nil {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	})
}
