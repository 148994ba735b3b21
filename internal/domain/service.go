package domain

import (
	"fmt"
	"math"
	"strings"
)

// ServiceKind identifies a paid analysis service.
type ServiceKind string

const (
	ServiceMarketAnalysis    ServiceKind = "market_analysis"
	ServiceTradingSignals    ServiceKind = "trading_signals"
	ServiceArbitrageScan     ServiceKind = "arbitrage_scan"
	ServiceYieldOptimization ServiceKind = "yield_optimization"
)

// ServiceKinds lists every service the agent sells.
var ServiceKinds = []ServiceKind{
	ServiceMarketAnalysis,
	ServiceTradingSignals,
	ServiceArbitrageScan,
	ServiceYieldOptimization,
}

// ServiceRequest is implemented by one typed struct per ServiceKind.
type ServiceRequest interface {
	Kind() ServiceKind
	Validate() error
}

// MarketAnalysisRequest asks for a scored market snapshot of one token.
type MarketAnalysisRequest struct {
	Token string `json:"token"`
}

func (MarketAnalysisRequest) Kind() ServiceKind { return ServiceMarketAnalysis }

func (r MarketAnalysisRequest) Validate() error {
	return requireToken(r.Token)
}

// TradingSignalsRequest asks for trading signals on one token.
type TradingSignalsRequest struct {
	Token string `json:"token"`
}

func (TradingSignalsRequest) Kind() ServiceKind { return ServiceTradingSignals }

func (r TradingSignalsRequest) Validate() error {
	return requireToken(r.Token)
}

// ArbitrageScanRequest asks for cross-venue opportunities on a token list.
type ArbitrageScanRequest struct {
	Tokens []string `json:"tokens"`
}

func (ArbitrageScanRequest) Kind() ServiceKind { return ServiceArbitrageScan }

func (r ArbitrageScanRequest) Validate() error {
	if len(r.Tokens) == 0 {
		return fmt.Errorf("%w: tokens must not be empty", ErrInvalidRequest)
	}
	for _, t := range r.Tokens {
		if err := requireToken(t); err != nil {
			return err
		}
	}
	return nil
}

// YieldOptimizationRequest asks for ranked yield opportunities for a principal.
type YieldOptimizationRequest struct {
	Amount        float64       `json:"amount"`
	RiskTolerance RiskTolerance `json:"risk_tolerance"`
}

func (YieldOptimizationRequest) Kind() ServiceKind { return ServiceYieldOptimization }

func (r YieldOptimizationRequest) Validate() error {
	if r.Amount <= 0 || math.IsNaN(r.Amount) || math.IsInf(r.Amount, 0) {
		return fmt.Errorf("%w: amount must be a positive number", ErrInvalidRequest)
	}
	if _, err := ParseRiskTolerance(string(r.RiskTolerance)); err != nil {
		return err
	}
	return nil
}

// ServiceOrder is a paid request: who pays and what they asked for.
type ServiceOrder struct {
	Payer   string
	Request ServiceRequest
}

// ServiceResult is returned by the dispatcher once a request is paid for and
// evaluated.
type ServiceResult struct {
	Kind       ServiceKind `json:"kind"`
	PaymentRef string      `json:"payment_ref"`
	Price      float64     `json:"price"`
	Payload    any         `json:"payload"`
	Receipt    string      `json:"receipt,omitempty"`
}

// MarketAnalysis is the payload of a market_analysis request.
type MarketAnalysis struct {
	Snapshot MarketSnapshot  `json:"snapshot"`
	Score    float64         `json:"score"`
	Signals  []TradingSignal `json:"signals"`
}

func requireToken(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("%w: token must not be empty", ErrInvalidRequest)
	}
	return nil
}

// SignalReport is the payload of a trading_signals request: the scored
// signals plus the momentum evaluator's signal at the same price.
type SignalReport struct {
	Token    string          `json:"token"`
	Signals  []TradingSignal `json:"signals"`
	Momentum TradingSignal   `json:"momentum"`
}
