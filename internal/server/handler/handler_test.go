package handler

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/agent"
	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/reinvest"
	"github.com/alanyoungcy/econagent/internal/service"
)

func quietLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

type fakeDispatcher struct {
	last domain.ServiceOrder
	res  domain.ServiceResult
	err  error
}

func (d *fakeDispatcher) Dispatch(_ context.Context, o domain.ServiceOrder) (domain.ServiceResult, error) {
	d.last = o
	return d.res, d.err
}

func (d *fakeDispatcher) Prices() service.Pricing { return service.DefaultPricing() }

type fakeAgent struct {
	earnings domain.Earnings
	subs     []domain.SubAgent
	opps     []domain.ArbitrageOpportunity
	execErr  error
	scanned  []string
}

func (a *fakeAgent) Status() agent.Status { return agent.Status{ID: "agent-1"} }

func (a *fakeAgent) GetEarnings() domain.Earnings { return a.earnings }

func (a *fakeAgent) GetSubAgents() []domain.SubAgent { return a.subs }

func (a *fakeAgent) ConsiderReinvestment(context.Context) (reinvest.Outcome, error) {
	return reinvest.Outcome{Decision: reinvest.Decision{Action: reinvest.ActionUpgrade, Cost: 0.5}}, nil
}

func (a *fakeAgent) Tokens() []string { return []string{"ethereum"} }

func (a *fakeAgent) FindArbitrageOpportunities(_ context.Context, tokens []string) ([]domain.ArbitrageOpportunity, error) {
	a.scanned = tokens
	return a.opps, nil
}

func (a *fakeAgent) ExecuteArbitrage(_ context.Context, id string, capital float64) (domain.ArbitrageExecution, error) {
	if a.execErr != nil {
		return domain.ArbitrageExecution{}, a.execErr
	}
	return domain.ArbitrageExecution{OpportunityID: id, Success: false, Error: "spread fell"}, nil
}

func (a *fakeAgent) SignalReport(_ context.Context, token string) (domain.SignalReport, error) {
	return domain.SignalReport{Token: token}, nil
}

func (a *fakeAgent) OptimizeYieldFarming(_ context.Context, amount float64, tol domain.RiskTolerance) ([]domain.YieldOpportunity, error) {
	return []domain.YieldOpportunity{{Protocol: "aave-v3", Risk: tol.MaxRisk(), EstimatedReturn: amount / 100}}, nil
}

func newMux(a *fakeAgent, d *fakeDispatcher) *http.ServeMux {
	mux := http.NewServeMux()
	svc := NewServiceHandler(d, quietLogger())
	earn := NewEarningsHandler(a, quietLogger())
	arb := NewArbHandler(a, nil, quietLogger())
	mkt := NewMarketHandler(a, quietLogger())
	mux.HandleFunc("GET /api/health", NewHealthHandler(a, "server").HealthCheck)
	mux.HandleFunc("GET /api/services", svc.ListServices)
	mux.HandleFunc("POST /api/services/{kind}", svc.Request)
	mux.HandleFunc("GET /api/earnings", earn.GetEarnings)
	mux.HandleFunc("GET /api/subagents", earn.ListSubAgents)
	mux.HandleFunc("POST /api/reinvest", earn.Reinvest)
	mux.HandleFunc("GET /api/arbitrage", arb.Scan)
	mux.HandleFunc("POST /api/arbitrage/execute", arb.Execute)
	mux.HandleFunc("GET /api/arbitrage/executions", arb.ListExecutions)
	mux.HandleFunc("GET /api/signals", mkt.Signals)
	mux.HandleFunc("GET /api/yield", mkt.Yield)
	return mux
}

func do(t *testing.T, h http.Handler, method, target, body string, hdr map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	for k, v := range hdr {
		req.Header.Set(k, v)
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestServiceRequest(t *testing.T) {
	d := &fakeDispatcher{res: domain.ServiceResult{Kind: domain.ServiceTradingSignals, PaymentRef: "0xref", Price: 0.05}}
	mux := newMux(&fakeAgent{}, d)

	rec := do(t, mux, http.MethodPost, "/api/services/trading_signals", `{"token":"ethereum"}`, map[string]string{PayerHeader: "0xpayer"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "0xref", decode(t, rec)["payment_ref"])
	assert.Equal(t, "0xpayer", d.last.Payer)
	assert.Equal(t, domain.TradingSignalsRequest{Token: "ethereum"}, d.last.Request)
}

func TestServiceRequest_Errors(t *testing.T) {
	tests := []struct {
		name   string
		kind   string
		body   string
		err    error
		res    domain.ServiceResult
		status int
	}{
		{"unknown kind", "weather", `{}`, nil, domain.ServiceResult{}, http.StatusNotFound},
		{"bad json", "market_analysis", `{"token":`, nil, domain.ServiceResult{}, http.StatusBadRequest},
		{"missing payer", "market_analysis", `{"token":"eth"}`, domain.ErrMissingPayer, domain.ServiceResult{}, http.StatusBadRequest},
		{"insufficient", "market_analysis", `{"token":"eth"}`, domain.ErrInsufficientBalance, domain.ServiceResult{}, http.StatusPaymentRequired},
		{"charged then failed", "arbitrage_scan", `{"tokens":["eth"]}`, errors.New("venues down"), domain.ServiceResult{PaymentRef: "0xref"}, http.StatusBadGateway},
		{"internal", "market_analysis", `{"token":"eth"}`, errors.New("boom"), domain.ServiceResult{}, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mux := newMux(&fakeAgent{}, &fakeDispatcher{err: tt.err, res: tt.res})
			rec := do(t, mux, http.MethodPost, "/api/services/"+tt.kind, tt.body, nil)
			assert.Equal(t, tt.status, rec.Code)
		})
	}
}

func TestListServices(t *testing.T) {
	rec := do(t, newMux(&fakeAgent{}, &fakeDispatcher{}), http.MethodGet, "/api/services", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decode(t, rec)["services"], len(domain.ServiceKinds))
}

func TestEarningsAndSubAgents(t *testing.T) {
	a := &fakeAgent{
		earnings: domain.Earnings{TotalEarned: 2, Available: 1.7, Reinvested: 0.3, ByService: map[string]float64{"market_analysis": 2}},
		subs:     []domain.SubAgent{{ID: "s1"}},
	}
	mux := newMux(a, &fakeDispatcher{})

	rec := do(t, mux, http.MethodGet, "/api/earnings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.InDelta(t, 1.7, decode(t, rec)["available"], 1e-9)

	rec = do(t, mux, http.MethodGet, "/api/subagents", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.EqualValues(t, 1, decode(t, rec)["count"])

	rec = do(t, mux, http.MethodPost, "/api/reinvest", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "upgrade", decode(t, rec)["action"])
}

func TestArbitrageEndpoints(t *testing.T) {
	a := &fakeAgent{}
	mux := newMux(a, &fakeDispatcher{})

	rec := do(t, mux, http.MethodGet, "/api/arbitrage?tokens=btc,%20eth", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, []string{"btc", "eth"}, a.scanned)
	assert.EqualValues(t, 0, decode(t, rec)["count"])

	do(t, mux, http.MethodGet, "/api/arbitrage", "", nil)
	assert.Equal(t, []string{"ethereum"}, a.scanned)

	rec = do(t, mux, http.MethodPost, "/api/arbitrage/execute", `{"opportunity_id":"o1","capital":10}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, false, decode(t, rec)["success"])

	rec = do(t, mux, http.MethodPost, "/api/arbitrage/execute", `{"capital":10}`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	a.execErr = domain.ErrNotFound
	rec = do(t, mux, http.MethodPost, "/api/arbitrage/execute", `{"opportunity_id":"gone","capital":10}`, nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, mux, http.MethodGet, "/api/arbitrage/executions", "", nil)
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestMarketEndpoints(t *testing.T) {
	mux := newMux(&fakeAgent{}, &fakeDispatcher{})

	rec := do(t, mux, http.MethodGet, "/api/signals?token=ethereum", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ethereum", decode(t, rec)["token"])

	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/signals", "", nil).Code)

	rec = do(t, mux, http.MethodGet, "/api/yield?amount=1000&risk=low", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "low", decode(t, rec)["risk_tolerance"])

	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/yield?amount=-5", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, mux, http.MethodGet, "/api/yield?amount=5&risk=wild", "", nil).Code)
}

func TestHealth(t *testing.T) {
	rec := do(t, newMux(&fakeAgent{}, &fakeDispatcher{}), http.MethodGet, "/api/health", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "agent-1", body["agent"].(map[string]any)["id"])
}
