// Package service routes paid analysis requests: it validates the typed
// request, charges the payer, credits the ledger and runs the matching
// evaluator.
package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"strings"
	"time"

	"github.com/alanyoungcy/econagent/internal/crypto"
	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/metrics"
)

// Core is the slice of the agent the dispatcher drives.
type Core interface {
	RecordPayment(ctx context.Context, service string, amount float64) bool
	AnalyzeMarket(ctx context.Context, token string) (domain.MarketAnalysis, error)
	SignalReport(ctx context.Context, token string) (domain.SignalReport, error)
	FindArbitrageOpportunities(ctx context.Context, tokens []string) ([]domain.ArbitrageOpportunity, error)
	OptimizeYieldFarming(ctx context.Context, amount float64, tolerance domain.RiskTolerance) ([]domain.YieldOpportunity, error)
}

// Pricing is the fee charged per service kind.
type Pricing map[domain.ServiceKind]float64

// DefaultPricing returns the built-in fee table.
func DefaultPricing() Pricing {
	return Pricing{
		domain.ServiceMarketAnalysis:    0.10,
		domain.ServiceTradingSignals:    0.05,
		domain.ServiceArbitrageScan:     0.20,
		domain.ServiceYieldOptimization: 0.15,
	}
}

// Validate checks that every known service has a positive price.
func (p Pricing) Validate() error {
	var errs []error
	for _, k := range domain.ServiceKinds {
		if v, ok := p[k]; !ok || !(v > 0) {
			errs = append(errs, fmt.Errorf("price for %s must be positive", k))
		}
	}
	return errors.Join(errs...)
}

// Dispatcher handles paid service orders.
type Dispatcher struct {
	core     Core
	rail     domain.PaymentRail
	prices   Pricing
	receipts *crypto.Receipts
	rec      *metrics.Recorder
	logger   *slog.Logger
}

// NewDispatcher creates a Dispatcher. receipts and rec may be nil.
func NewDispatcher(core Core, rail domain.PaymentRail, prices Pricing, receipts *crypto.Receipts, rec *metrics.Recorder, logger *slog.Logger) *Dispatcher {
	return &Dispatcher{
		core:     core,
		rail:     rail,
		prices:   maps.Clone(prices),
		receipts: receipts,
		rec:      rec,
		logger:   logger.With(slog.String("component", "dispatcher")),
	}
}

// Prices returns a copy of the fee table.
func (d *Dispatcher) Prices() Pricing { return maps.Clone(d.prices) }

// Price returns the fee for kind or domain.ErrUnknownService.
func (d *Dispatcher) Price(kind domain.ServiceKind) (float64, error) {
	p, ok := d.prices[kind]
	if !ok {
		return 0, fmt.Errorf("service: %q: %w", kind, domain.ErrUnknownService)
	}
	return p, nil
}

// Dispatch runs one paid order. Invalid orders are rejected before the payer
// is charged. Once the charge succeeds the payment is recorded even if the
// evaluator then fails; in that case the result still carries the payment
// reference alongside the error.
func (d *Dispatcher) Dispatch(ctx context.Context, order domain.ServiceOrder) (domain.ServiceResult, error) {
	if order.Request == nil {
		return domain.ServiceResult{}, fmt.Errorf("service: dispatch: %w: empty request", domain.ErrInvalidRequest)
	}
	kind := order.Request.Kind()
	payer := strings.TrimSpace(order.Payer)
	if payer == "" {
		return domain.ServiceResult{}, fmt.Errorf("service: dispatch %s: %w", kind, domain.ErrMissingPayer)
	}
	price, err := d.Price(kind)
	if err != nil {
		return domain.ServiceResult{}, err
	}
	if err := order.Request.Validate(); err != nil {
		return domain.ServiceResult{}, fmt.Errorf("service: dispatch %s: %w", kind, err)
	}

	start := time.Now()
	ref, err := d.rail.ChargeForService(ctx, kind, payer, price)
	if err != nil {
		d.logger.WarnContext(ctx, "charge failed",
			slog.String("service", string(kind)),
			slog.String("payer", payer),
			slog.String("error", err.Error()),
		)
		return domain.ServiceResult{}, fmt.Errorf("service: charge %s: %w", kind, err)
	}
	d.core.RecordPayment(ctx, string(kind), price)

	res := domain.ServiceResult{Kind: kind, PaymentRef: ref, Price: price}
	if d.receipts.Enabled() {
		res.Receipt = d.receipts.Sign(string(kind), payer, price, ref)
	}

	payload, err := d.evaluate(ctx, order.Request)
	d.rec.ObserveService(string(kind), time.Since(start))
	if err != nil {
		d.logger.ErrorContext(ctx, "evaluation failed after charge",
			slog.String("service", string(kind)),
			slog.String("payment_ref", ref),
			slog.String("error", err.Error()),
		)
		return res, fmt.Errorf("service: evaluate %s: %w", kind, err)
	}
	res.Payload = payload

	d.logger.InfoContext(ctx, "service delivered",
		slog.String("service", string(kind)),
		slog.String("payer", payer),
		slog.Float64("price", price),
		slog.String("payment_ref", ref),
	)
	return res, nil
}

func (d *Dispatcher) evaluate(ctx context.Context, req domain.ServiceRequest) (any, error) {
	switch r := req.(type) {
	case domain.MarketAnalysisRequest:
		return d.core.AnalyzeMarket(ctx, r.Token)
	case domain.TradingSignalsRequest:
		return d.core.SignalReport(ctx, r.Token)
	case domain.ArbitrageScanRequest:
		opps, err := d.core.FindArbitrageOpportunities(ctx, r.Tokens)
		if opps == nil && err == nil {
			opps = []domain.ArbitrageOpportunity{}
		}
		return opps, err
	case domain.YieldOptimizationRequest:
		tol, err := domain.ParseRiskTolerance(string(r.RiskTolerance))
		if err != nil {
			return nil, err
		}
		return d.core.OptimizeYieldFarming(ctx, r.Amount, tol)
	default:
		return nil, fmt.Errorf("%w: %T", domain.ErrUnknownService, req)
	}
}

// DecodeRequest parses the JSON body of a request for kind into its typed
// variant. Unknown fields are rejected.
func DecodeRequest(kind string, body []byte) (domain.ServiceRequest, error) {
	var req domain.ServiceRequest
	switch domain.ServiceKind(strings.ToLower(strings.TrimSpace(kind))) {
	case domain.ServiceMarketAnalysis:
		var r domain.MarketAnalysisRequest
		if err := strictUnmarshal(body, &r); err != nil {
			return nil, err
		}
		req = r
	case domain.ServiceTradingSignals:
		var r domain.TradingSignalsRequest
		if err := strictUnmarshal(body, &r); err != nil {
			return nil, err
		}
		req = r
	case domain.ServiceArbitrageScan:
		var r domain.ArbitrageScanRequest
		if err := strictUnmarshal(body, &r); err != nil {
			return nil, err
		}
		req = r
	case domain.ServiceYieldOptimization:
		var r domain.YieldOptimizationRequest
		if err := strictUnmarshal(body, &r); err != nil {
			return nil, err
		}
		req = r
	default:
		return nil, fmt.Errorf("service: %q: %w", kind, domain.ErrUnknownService)
	}
	return req, nil
}

func strictUnmarshal(body []byte, v any) error {
	if len(strings.TrimSpace(string(body))) == 0 {
		return nil
	}
	dec := json.NewDecoder(strings.NewReader(string(body)))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("service: decode request: %w: %v", domain.ErrInvalidRequest, err)
	}
	return nil
}
