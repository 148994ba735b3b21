package domain

import (
	"fmt"
	"strings"
)

// RiskTolerance is the caller's appetite for protocol risk.
type RiskTolerance string

const (
	RiskLow    RiskTolerance = "low"
	RiskMedium RiskTolerance = "medium"
	RiskHigh   RiskTolerance = "high"
)

// ParseRiskTolerance normalises s into a RiskTolerance.
func ParseRiskTolerance(s string) (RiskTolerance, error) {
	switch RiskTolerance(strings.ToLower(strings.TrimSpace(s))) {
	case RiskLow:
		return RiskLow, nil
	case RiskMedium:
		return RiskMedium, nil
	case RiskHigh:
		return RiskHigh, nil
	default:
		return "", fmt.Errorf("%w: unknown risk tolerance %q", ErrInvalidRequest, s)
	}
}

// MaxRisk is the highest static protocol risk admitted at this tolerance.
func (r RiskTolerance) MaxRisk() float64 {
	switch r {
	case RiskLow:
		return 0.3
	case RiskMedium:
		return 0.6
	default:
		return 1.0
	}
}

// Multiplier weights APY when ranking yield opportunities.
func (r RiskTolerance) Multiplier() float64 {
	switch r {
	case RiskLow:
		return 0.3
	case RiskMedium:
		return 0.6
	default:
		return 1.0
	}
}

// YieldOpportunity is a ranked yield farming candidate.
type YieldOpportunity struct {
	Protocol        string  `json:"protocol"`
	Token           string  `json:"token"`
	APY             float64 `json:"apy"` // percent
	TVL             float64 `json:"tvl"`
	Risk            float64 `json:"risk"` // [0, 1]
	EstimatedReturn float64 `json:"estimated_return"`
	Estimated       bool    `json:"estimated"` // APY/TVL are fallback values
}
