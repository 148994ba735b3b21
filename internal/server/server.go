// Package server exposes the agent over HTTP and websocket.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/server/handler"
	"github.com/alanyoungcy/econagent/internal/server/middleware"
	"github.com/alanyoungcy/econagent/internal/server/ws"
)

// Config holds the HTTP server configuration.
type Config struct {
	Port            int
	CORSOrigins     []string
	APIKey          string // empty disables authentication
	RateLimit       int    // requests per RateLimitWindow per client; 0 disables
	RateLimitWindow time.Duration
}

// Handlers aggregates the HTTP handlers the server registers. Audit and
// Metrics are optional.
type Handlers struct {
	Health   *handler.HealthHandler
	Services *handler.ServiceHandler
	Earnings *handler.EarningsHandler
	Arb      *handler.ArbHandler
	Market   *handler.MarketHandler
	Audit    *handler.AuditHandler
	Metrics  http.Handler
}

// Server is the agent's HTTP + websocket API.
type Server struct {
	httpServer *http.Server
	logger     *slog.Logger
}

// NewServer registers all routes and wraps them in the middleware chain:
// CORS, logging, rate limiting, then auth.
func NewServer(cfg Config, h Handlers, hub *ws.Hub, limiter domain.RateLimiter, logger *slog.Logger) *Server {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /api/health", h.Health.HealthCheck)

	mux.HandleFunc("GET /api/services", h.Services.ListServices)
	mux.HandleFunc("POST /api/services/{kind}", h.Services.Request)

	mux.HandleFunc("GET /api/earnings", h.Earnings.GetEarnings)
	mux.HandleFunc("GET /api/subagents", h.Earnings.ListSubAgents)
	mux.HandleFunc("POST /api/reinvest", h.Earnings.Reinvest)

	mux.HandleFunc("GET /api/arbitrage", h.Arb.Scan)
	mux.HandleFunc("POST /api/arbitrage/execute", h.Arb.Execute)
	mux.HandleFunc("GET /api/arbitrage/executions", h.Arb.ListExecutions)

	mux.HandleFunc("GET /api/signals", h.Market.Signals)
	mux.HandleFunc("GET /api/yield", h.Market.Yield)

	if h.Audit != nil {
		mux.HandleFunc("GET /api/audit", h.Audit.List)
	}
	if h.Metrics != nil {
		mux.Handle("GET /metrics", h.Metrics)
	}
	if hub != nil {
		mux.HandleFunc("GET /ws", hub.HandleWS)
	}

	var root http.Handler = mux
	root = middleware.Auth(cfg.APIKey, "/api/health", "/metrics")(root)
	root = middleware.RateLimit(limiter, cfg.RateLimit, cfg.RateLimitWindow, logger)(root)
	root = middleware.Logging(logger)(root)
	root = middleware.CORS(cfg.CORSOrigins)(root)

	return &Server{
		httpServer: &http.Server{
			Addr:         fmt.Sprintf(":%d", cfg.Port),
			Handler:      root,
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 30 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		logger: logger.With(slog.String("component", "server")),
	}
}

// Handler returns the root handler, middleware included.
func (s *Server) Handler() http.Handler { return s.httpServer.Handler }

// Start listens until the server fails or is shut down.
func (s *Server) Start() error {
	s.logger.Info("starting", slog.String("addr", s.httpServer.Addr))
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("server: listen: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests within ctx's deadline.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		return fmt.Errorf("server: shutdown: %w", err)
	}
	return nil
}
