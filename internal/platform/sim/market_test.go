package sim

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

func TestMarket_QuoteWalksWithinStep(t *testing.T) {
	m := NewMarket(42, map[string]float64{"ethereum": 100})
	ctx := context.Background()

	prev := 100.0
	for i := 0; i < 50; i++ {
		q, err := m.GetQuote(ctx, "ethereum")
		require.NoError(t, err)
		assert.InDelta(t, prev, q.Price, prev*0.02+1e-9)
		assert.Greater(t, q.Volume24h, 0.0)
		prev = q.Price
	}

	_, err := m.GetQuote(ctx, "unknown")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMarket_SentimentAndVenue(t *testing.T) {
	m := NewMarket(7, nil)
	ctx := context.Background()

	s, err := m.GetSentiment(ctx, "bitcoin")
	require.NoError(t, err)
	assert.GreaterOrEqual(t, s, -1.0)
	assert.LessOrEqual(t, s, 1.0)

	v := m.Venue("simdex", 0.01)
	assert.Equal(t, "simdex", v.Name())
	p, err := v.GetPrice(ctx, "bitcoin")
	require.NoError(t, err)
	assert.InDelta(t, 65000, p, 650+1e-6)
}
