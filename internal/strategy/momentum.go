package strategy

import (
	"fmt"

	"github.com/alanyoungcy/econagent/internal/domain"
)

const momentumConfidence = 0.6

// MomentumSignal returns a single fixed-confidence buy signal at price. It
// does not consult live indicators.
func MomentumSignal(token string, price float64) domain.TradingSignal {
	return domain.TradingSignal{
		Action:     domain.ActionBuy,
		Token:      token,
		Confidence: momentumConfidence,
		Price:      price,
		Rationale:  fmt.Sprintf("momentum entry at %.6f", price),
	}
}
