package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/reinvest"
)

// Treasury is the ledger-facing part of the agent.
type Treasury interface {
	GetEarnings() domain.Earnings
	GetSubAgents() []domain.SubAgent
	ConsiderReinvestment(ctx context.Context) (reinvest.Outcome, error)
}

// EarningsHandler serves the ledger, sub-agents and manual reinvestment.
type EarningsHandler struct {
	treasury Treasury
	logger   *slog.Logger
}

// NewEarningsHandler creates an EarningsHandler.
func NewEarningsHandler(t Treasury, logger *slog.Logger) *EarningsHandler {
	return &EarningsHandler{treasury: t, logger: logHandler(logger, "earnings")}
}

// GetEarnings returns the ledger snapshot.
// GET /api/earnings
func (h *EarningsHandler) GetEarnings(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.treasury.GetEarnings())
}

// ListSubAgents returns spawned sub-agents in creation order.
// GET /api/subagents
func (h *EarningsHandler) ListSubAgents(w http.ResponseWriter, r *http.Request) {
	subs := h.treasury.GetSubAgents()
	writeJSON(w, http.StatusOK, map[string]any{"sub_agents": subs, "count": len(subs)})
}

// Reinvest runs one reinvestment check.
// POST /api/reinvest
func (h *EarningsHandler) Reinvest(w http.ResponseWriter, r *http.Request) {
	out, err := h.treasury.ConsiderReinvestment(r.Context())
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"action":    out.Decision.Action,
		"cost":      out.Decision.Cost,
		"reason":    out.Decision.Reason,
		"sub_agent": out.SubAgent,
		"earnings":  h.treasury.GetEarnings(),
	})
}
