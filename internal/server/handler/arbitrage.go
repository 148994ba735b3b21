package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// ArbitrageDesk scans and executes arbitrage.
type ArbitrageDesk interface {
	Tokens() []string
	FindArbitrageOpportunities(ctx context.Context, tokens []string) ([]domain.ArbitrageOpportunity, error)
	ExecuteArbitrage(ctx context.Context, opportunityID string, capital float64) (domain.ArbitrageExecution, error)
}

// ArbHandler serves operator arbitrage endpoints.
type ArbHandler struct {
	desk       ArbitrageDesk
	executions domain.ExecutionStore // optional
	logger     *slog.Logger
}

// NewArbHandler creates an ArbHandler. executions may be nil.
func NewArbHandler(desk ArbitrageDesk, executions domain.ExecutionStore, logger *slog.Logger) *ArbHandler {
	return &ArbHandler{desk: desk, executions: executions, logger: logHandler(logger, "arbitrage")}
}

// Scan lists current opportunities for ?tokens=a,b or the watched tokens.
// GET /api/arbitrage
func (h *ArbHandler) Scan(w http.ResponseWriter, r *http.Request) {
	tokens := splitList(r.URL.Query().Get("tokens"))
	if len(tokens) == 0 {
		tokens = h.desk.Tokens()
	}
	opps, err := h.desk.FindArbitrageOpportunities(r.Context(), tokens)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	if opps == nil {
		opps = []domain.ArbitrageOpportunity{}
	}
	writeJSON(w, http.StatusOK, map[string]any{"opportunities": opps, "count": len(opps)})
}

type executeRequest struct {
	OpportunityID string  `json:"opportunity_id"`
	Capital       float64 `json:"capital"`
}

// Execute re-verifies and executes an opportunity from the last scan. A
// rejected or partial execution is still a 200 with success=false.
// POST /api/arbitrage/execute
func (h *ArbHandler) Execute(w http.ResponseWriter, r *http.Request) {
	var req executeRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body: "+err.Error())
		return
	}
	if req.OpportunityID == "" {
		writeError(w, http.StatusBadRequest, "opportunity_id is required")
		return
	}

	res, err := h.desk.ExecuteArbitrage(r.Context(), req.OpportunityID, req.Capital)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

// ListExecutions returns journaled executions, newest first.
// GET /api/arbitrage/executions
func (h *ArbHandler) ListExecutions(w http.ResponseWriter, r *http.Request) {
	if h.executions == nil {
		writeError(w, http.StatusServiceUnavailable, "execution journal not configured")
		return
	}
	limit := 50
	if v, err := strconv.Atoi(r.URL.Query().Get("limit")); err == nil && v > 0 && v <= 500 {
		limit = v
	}
	recs, err := h.executions.ListRecent(r.Context(), limit)
	if err != nil {
		writeDomainError(w, h.logger, r, err)
		return
	}
	out := make([]map[string]any, 0, len(recs))
	for _, rec := range recs {
		out = append(out, map[string]any{
			"id":         rec.ID,
			"capital":    rec.Capital,
			"created_at": rec.CreatedAt,
			"execution":  rec.Execution,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{"executions": out})
}
