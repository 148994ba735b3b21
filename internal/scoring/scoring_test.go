package scoring

import (
	"math"
	"testing"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScore_ZeroInputsHold(t *testing.T) {
	score := Score(Input{})
	assert.Equal(t, 0.0, score)

	signals := GenerateSignals(domain.MarketSnapshot{Token: "ethereum", Price: 2000})
	require.Len(t, signals, 1)
	assert.Equal(t, domain.ActionHold, signals[0].Action)
	assert.Equal(t, 0.0, signals[0].Confidence)
	assert.Equal(t, "ethereum", signals[0].Token)
	assert.Equal(t, 2000.0, signals[0].Price)
}

func TestScore_SaturatesAtOne(t *testing.T) {
	in := Input{
		PriceChange24h: 1000,
		Volume24h:      10_000_000,
		Sentiment:      1,
		Liquidity:      50_000_000,
	}
	assert.Equal(t, 1.0, Score(in))

	signals := GenerateSignals(domain.MarketSnapshot{
		Token:          "bitcoin",
		PriceChange24h: 1000,
		Volume24h:      10_000_000,
		Sentiment:      1,
		Liquidity:      50_000_000,
	})
	require.Len(t, signals, 1)
	assert.Equal(t, domain.ActionBuy, signals[0].Action)
	assert.Equal(t, 1.0, signals[0].Confidence)
}

func TestScore_SaturatesAtMinusOne(t *testing.T) {
	score := Score(Input{PriceChange24h: -1000, Sentiment: -1})
	assert.Equal(t, -1.0, score)
	assert.Equal(t, domain.ActionSell, ActionFor(score))
}

func TestScore_WeightedCombination(t *testing.T) {
	in := Input{
		PriceChange24h: 10,        // 0.1
		Volume24h:      500_000,   // 0.5
		Sentiment:      0.5,       // 0.5
		Liquidity:      2_000_000, // 0.2
	}
	want := 0.1*0.30 + 0.5*0.25 + 0.5*0.20 + 0.1*0.15 + 0.2*0.10
	assert.InDelta(t, want, Score(in), 1e-12)
}

func TestScore_NonFiniteInputsIgnored(t *testing.T) {
	in := Input{PriceChange24h: math.NaN(), Volume24h: math.Inf(1), Sentiment: 0.5}
	assert.InDelta(t, 0.1, Score(in), 1e-12)
}

func TestActionFor_Thresholds(t *testing.T) {
	assert.Equal(t, domain.ActionHold, ActionFor(0.3))
	assert.Equal(t, domain.ActionBuy, ActionFor(0.3001))
	assert.Equal(t, domain.ActionHold, ActionFor(-0.3))
	assert.Equal(t, domain.ActionSell, ActionFor(-0.3001))
}

func TestGenerateSignals_ModerateAddsHold(t *testing.T) {
	// 0.25 volume + 0.20 sentiment = 0.45
	snap := domain.MarketSnapshot{Token: "solana", Price: 150, Volume24h: 2_000_000, Sentiment: 1}
	signals := GenerateSignals(snap)

	require.Len(t, signals, 2)
	assert.Equal(t, domain.ActionBuy, signals[0].Action)
	assert.InDelta(t, 0.45, signals[0].Confidence, 1e-12)
	assert.Equal(t, domain.ActionHold, signals[1].Action)
	assert.Equal(t, 0.5, signals[1].Confidence)
	assert.Equal(t, 150.0, signals[1].Price)
}

func TestGenerateSignals_StrongSingle(t *testing.T) {
	// 0.15 + 0.25 + 0.20 + 0.075 + 0.10 = 0.775
	snap := domain.MarketSnapshot{
		Token:          "solana",
		Volume24h:      2_000_000,
		Sentiment:      1,
		Liquidity:      20_000_000,
		PriceChange24h: 50,
	}
	signals := GenerateSignals(snap)
	require.Len(t, signals, 1)
	assert.Equal(t, domain.ActionBuy, signals[0].Action)
	assert.GreaterOrEqual(t, signals[0].Confidence, 0.7)
}
