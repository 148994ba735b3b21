package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// Analyst produces signals and yield rankings.
type Analyst interface {
	SignalReport(ctx context.Context, token string) (domain.SignalReport, error)
	OptimizeYieldFarming(ctx context.Context, amount float64, tolerance domain.RiskTolerance) ([]domain.YieldOpportunity, error)
}

// MarketHandler serves operator views of signals and yield.
type MarketHandler struct {
	analyst Analyst
	logger  *slog.Logger
}

// NewMarketHandler creates a MarketHandler.
func NewMarketHandler(a Analyst, logger *slog.Logger) *MarketHandler {
	return &MarketHandler{analyst: a, logger: logHandler(logger, "market")}
}

// Signals returns the signal report for ?token=.
// GET /api/signals
func (h *MarketHandler) Signals(w http.ResponseWriter, r *http.Request) {
	token := strings.TrimSpace(r.URL.Query().Get("token"))
	if token == "" {
		writeError(w, http.StatusBadRequest, "token is required")
		return
	}
	rep, err := h.analyst.SignalReport(r.Context(), token)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rep)
}

// Yield ranks yield opportunities for ?amount=&risk=.
// GET /api/yield
func (h *MarketHandler) Yield(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	amount, err := strconv.ParseFloat(q.Get("amount"), 64)
	if err != nil || !(amount > 0) {
		writeError(w, http.StatusBadRequest, "amount must be a positive number")
		return
	}
	risk := q.Get("risk")
	if risk == "" {
		risk = string(domain.RiskMedium)
	}
	tol, err := domain.ParseRiskTolerance(risk)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}

	opps, err := h.analyst.OptimizeYieldFarming(r.Context(), amount, tol)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps, "risk_tolerance": tol})
}
