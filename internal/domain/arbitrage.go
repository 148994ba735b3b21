package domain

import "time"

// ArbitrageOpportunity is a cross-venue price gap for one token. It is valid
// only at DetectedAt and must be re-verified against live prices before any
// execution.
type ArbitrageOpportunity struct {
	ID              string    `json:"id"`
	Token           string    `json:"token"`
	VenueA          string    `json:"venue_a"`
	VenueB          string    `json:"venue_b"`
	PriceA          float64   `json:"price_a"`
	PriceB          float64   `json:"price_b"`
	PriceDifference float64   `json:"price_difference"`
	EstimatedProfit float64   `json:"estimated_profit"` // fee-adjusted
	Risk            float64   `json:"risk"`             // [0, 1]
	DetectedAt      time.Time `json:"detected_at"`
}

// BuyVenue returns the cheaper venue of the pair.
func (o ArbitrageOpportunity) BuyVenue() string {
	if o.PriceA <= o.PriceB {
		return o.VenueA
	}
	return o.VenueB
}

// SellVenue returns the more expensive venue of the pair.
func (o ArbitrageOpportunity) SellVenue() string {
	if o.PriceA <= o.PriceB {
		return o.VenueB
	}
	return o.VenueA
}

// ArbitrageExecution is the structured outcome of an execution attempt.
// Failures are reported here rather than returned as errors so callers can
// see which legs completed. A failed execution with a non-empty BuyLegRef
// means the first leg is committed and needs a manual unwind.
type ArbitrageExecution struct {
	Success        bool    `json:"success"`
	Error          string  `json:"error,omitempty"`
	OpportunityID  string  `json:"opportunity_id"`
	Token          string  `json:"token"`
	BuyVenue       string  `json:"buy_venue,omitempty"`
	SellVenue      string  `json:"sell_venue,omitempty"`
	VerifiedSpread float64 `json:"verified_spread"`
	TradeSize      float64 `json:"trade_size"`
	NetProfit      float64 `json:"net_profit"`
	BuyLegRef      string  `json:"buy_leg_ref,omitempty"`
	SellLegRef     string  `json:"sell_leg_ref,omitempty"`
}

// Side is the direction of a swap leg.
type Side string

const (
	SideBuy  Side = "buy"
	SideSell Side = "sell"
)
