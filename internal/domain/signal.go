package domain

// Action is the recommendation carried by a TradingSignal.
type Action string

const (
	ActionBuy  Action = "buy"
	ActionSell Action = "sell"
	ActionHold Action = "hold"
)

// TradingSignal is a derived recommendation for a token. Signals are never
// persisted.
type TradingSignal struct {
	Action     Action  `json:"action"`
	Token      string  `json:"token"`
	Confidence float64 `json:"confidence"` // [0, 1]
	Price      float64 `json:"price"`
	Rationale  string  `json:"rationale"`
}
