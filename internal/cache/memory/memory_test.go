package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

func TestQuoteCache(t *testing.T) {
	ctx := context.Background()
	c := NewQuoteCache()

	_, err := c.GetQuote(ctx, "ethereum")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	q := domain.Quote{Token: "ethereum", Price: 3000, FetchedAt: time.Now()}
	require.NoError(t, c.SetQuote(ctx, q))
	got, err := c.GetQuote(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, q, got)
}

func TestRateLimiter_BurstThenDeny(t *testing.T) {
	ctx := context.Background()
	rl := NewRateLimiter()

	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "client", 3, time.Hour)
		require.NoError(t, err)
		assert.True(t, ok, "request %d", i)
	}
	ok, err := rl.Allow(ctx, "client", 3, time.Hour)
	require.NoError(t, err)
	assert.False(t, ok)

	ok, err = rl.Allow(ctx, "other", 3, time.Hour)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLockManager(t *testing.T) {
	ctx := context.Background()
	lm := NewLockManager()
	now := time.Unix(1_700_000_000, 0)
	lm.clock = func() time.Time { return now }

	unlock, err := lm.Acquire(ctx, "cycle", time.Minute)
	require.NoError(t, err)

	_, err = lm.Acquire(ctx, "cycle", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)

	unlock()
	unlock()
	unlock2, err := lm.Acquire(ctx, "cycle", time.Minute)
	require.NoError(t, err)

	now = now.Add(2 * time.Minute)
	_, err = lm.Acquire(ctx, "cycle", time.Minute)
	require.NoError(t, err, "expired lock is reclaimable")

	// a stale unlock must not release the new holder
	unlock2()
	_, err = lm.Acquire(ctx, "cycle", time.Minute)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
}

func TestEventBus_FanOutAndHistory(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	bus := NewEventBus(2)

	a, err := bus.Subscribe(ctx, domain.ChannelEarnings)
	require.NoError(t, err)
	b, err := bus.Subscribe(ctx, domain.ChannelEarnings)
	require.NoError(t, err)

	for _, p := range []string{"one", "two", "three"} {
		require.NoError(t, bus.Publish(ctx, domain.ChannelEarnings, []byte(p)))
	}

	for _, ch := range []<-chan []byte{a, b} {
		for _, want := range []string{"one", "two", "three"} {
			select {
			case got := <-ch:
				assert.Equal(t, want, string(got))
			case <-time.After(time.Second):
				t.Fatal("timed out waiting for event")
			}
		}
	}

	recent, err := bus.Recent(ctx, domain.ChannelEarnings, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "two", string(recent[0]))
	assert.Equal(t, "three", string(recent[1]))

	empty, err := bus.Recent(ctx, domain.ChannelSignals, 10)
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestEventBus_SubscriptionClosesOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	bus := NewEventBus(0)
	ch, err := bus.Subscribe(ctx, domain.ChannelSignals)
	require.NoError(t, err)

	cancel()
	select {
	case _, ok := <-ch:
		assert.False(t, ok)
	case <-time.After(time.Second):
		t.Fatal("subscription not closed")
	}
	require.NoError(t, bus.Publish(context.Background(), domain.ChannelSignals, []byte("x")))
}
