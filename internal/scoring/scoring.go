// Package scoring maps market inputs to a bounded score and trading signals.
package scoring

import (
	"fmt"
	"math"

	"github.com/alanyoungcy/econagent/internal/domain"
)

const (
	buyThreshold  = 0.3
	sellThreshold = -0.3

	// Scores with magnitude in (buyThreshold, ambiguityCeiling) also emit a
	// hold signal at ambiguityConfidence.
	ambiguityCeiling    = 0.7
	ambiguityConfidence = 0.5

	volumeScale    = 1_000_000
	liquidityScale = 10_000_000
)

// Weights is the fixed weight table applied to the normalised factors.
type Weights struct {
	PriceMomentum float64
	Volume        float64
	Sentiment     float64
	Momentum      float64
	Liquidity     float64
}

// DefaultWeights is the process-wide weight table.
var DefaultWeights = Weights{
	PriceMomentum: 0.30,
	Volume:        0.25,
	Sentiment:     0.20,
	Momentum:      0.15,
	Liquidity:     0.10,
}

// Input holds the raw market factors fed to the engine.
type Input struct {
	Price          float64
	Volume24h      float64
	PriceChange24h float64 // percent
	Liquidity      float64
	Sentiment      float64 // [-1, 1]
}

// InputFromSnapshot extracts scoring inputs from a market snapshot.
func InputFromSnapshot(s domain.MarketSnapshot) Input {
	return Input{
		Price:          s.Price,
		Volume24h:      s.Volume24h,
		PriceChange24h: s.PriceChange24h,
		Liquidity:      s.Liquidity,
		Sentiment:      s.Sentiment,
	}
}

// Factors are the normalised inputs before weighting.
type Factors struct {
	PriceMomentum float64
	Volume        float64
	Sentiment     float64
	Liquidity     float64
}

// Normalize converts raw inputs into factors.
func Normalize(in Input) Factors {
	return Factors{
		PriceMomentum: finite(in.PriceChange24h) / 100,
		Volume:        math.Min(finite(in.Volume24h)/volumeScale, 1),
		Sentiment:     finite(in.Sentiment),
		Liquidity:     math.Min(finite(in.Liquidity)/liquidityScale, 1),
	}
}

// Score returns the weighted score for in, clamped to [-1, 1].
//
// The momentum slot has no indicator of its own and is fed the same
// price-change factor as PriceMomentum.
func (w Weights) Score(in Input) float64 {
	f := Normalize(in)
	s := f.PriceMomentum*w.PriceMomentum +
		f.Volume*w.Volume +
		f.Sentiment*w.Sentiment +
		f.PriceMomentum*w.Momentum +
		f.Liquidity*w.Liquidity
	return clamp(s, -1, 1)
}

// Score scores in with DefaultWeights.
func Score(in Input) float64 {
	return DefaultWeights.Score(in)
}

// ActionFor maps a score to a trading action.
func ActionFor(score float64) domain.Action {
	switch {
	case score > buyThreshold:
		return domain.ActionBuy
	case score < sellThreshold:
		return domain.ActionSell
	default:
		return domain.ActionHold
	}
}

// GenerateSignals scores snap and returns one primary signal, plus a
// secondary hold when the score is only moderately confident.
func GenerateSignals(snap domain.MarketSnapshot) []domain.TradingSignal {
	in := InputFromSnapshot(snap)
	score := Score(in)
	f := Normalize(in)
	conf := math.Abs(score)

	signals := []domain.TradingSignal{{
		Action:     ActionFor(score),
		Token:      snap.Token,
		Confidence: conf,
		Price:      snap.Price,
		Rationale: fmt.Sprintf("score %.3f: price change %.2f%%, volume factor %.2f, sentiment %.2f, liquidity factor %.2f",
			score, snap.PriceChange24h, f.Volume, f.Sentiment, f.Liquidity),
	}}

	if conf > buyThreshold && conf < ambiguityCeiling {
		signals = append(signals, domain.TradingSignal{
			Action:     domain.ActionHold,
			Token:      snap.Token,
			Confidence: ambiguityConfidence,
			Price:      snap.Price,
			Rationale:  fmt.Sprintf("moderate confidence %.3f, consider waiting for confirmation", conf),
		})
	}
	return signals
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// finite maps NaN and infinities to zero so one bad feed value cannot
// poison the score.
func finite(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0
	}
	return v
}
