package redis

import (
	"context"
	"errors"
	"os"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// unreachable returns a client whose every command fails fast.
func unreachable() *Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:        "127.0.0.1:1",
		DialTimeout: 100 * time.Millisecond,
		MaxRetries:  -1,
	})
	return NewFromUnderlying(rdb, "test:")
}

func TestKeyUsesPrefix(t *testing.T) {
	c := NewFromUnderlying(nil, "econagent:")
	assert.Equal(t, "econagent:quote:ethereum", c.Key("quote", "ethereum"))
	assert.Equal(t, "plain", NewFromUnderlying(nil, "").Key("plain"))
}

func TestSlidingWindowScriptEmbedded(t *testing.T) {
	assert.Contains(t, slidingWindowLua, "ZREMRANGEBYSCORE")
	assert.Contains(t, slidingWindowLua, "PEXPIRE")
}

func TestCommandsWrapConnectionErrors(t *testing.T) {
	c := unreachable()
	defer c.Close()
	ctx := context.Background()

	_, err := NewRateLimiter(c).Allow(ctx, "client", 10, time.Minute)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis: rate limit allow client")

	_, err = NewLockManager(c).Acquire(ctx, "cycle", time.Second)
	require.Error(t, err)
	assert.False(t, errors.Is(err, domain.ErrLockHeld))

	assert.Error(t, c.Ping(ctx))
}

// TestLiveRoundTrip runs against a real server when ECONAGENT_TEST_REDIS_ADDR
// is set.
func TestLiveRoundTrip(t *testing.T) {
	addr := os.Getenv("ECONAGENT_TEST_REDIS_ADDR")
	if addr == "" {
		t.Skip("ECONAGENT_TEST_REDIS_ADDR not set")
	}
	ctx := context.Background()
	c, err := New(ctx, ClientConfig{Addr: addr, PoolSize: 2, KeyPrefix: "econagent-test:" + time.Now().Format("150405.000") + ":"})
	require.NoError(t, err)
	defer c.Close()

	qc := NewQuoteCache(c)
	_, err = qc.GetQuote(ctx, "ethereum")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	q := domain.Quote{Token: "ethereum", Price: 2500.5, Volume24h: 1e6, PriceChange24h: -1.5, Liquidity: 2e7, FetchedAt: time.Now().UTC()}
	require.NoError(t, qc.SetQuote(ctx, q))
	got, err := qc.GetQuote(ctx, "ethereum")
	require.NoError(t, err)
	assert.Equal(t, q.Price, got.Price)
	assert.Equal(t, q.PriceChange24h, got.PriceChange24h)
	assert.WithinDuration(t, q.FetchedAt, got.FetchedAt, time.Microsecond)

	lm := NewLockManager(c)
	unlock, err := lm.Acquire(ctx, "cycle", 5*time.Second)
	require.NoError(t, err)
	_, err = lm.Acquire(ctx, "cycle", 5*time.Second)
	assert.ErrorIs(t, err, domain.ErrLockHeld)
	unlock()
	unlock2, err := lm.Acquire(ctx, "cycle", 5*time.Second)
	require.NoError(t, err)
	unlock2()

	rl := NewRateLimiter(c)
	for i := 0; i < 3; i++ {
		ok, err := rl.Allow(ctx, "client", 3, time.Minute)
		require.NoError(t, err)
		assert.True(t, ok)
	}
	ok, err := rl.Allow(ctx, "client", 3, time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)

	bus := NewEventBus(c)
	require.NoError(t, bus.Publish(ctx, domain.ChannelEarnings, []byte(`{"n":1}`)))
	recent, err := bus.Recent(ctx, domain.ChannelEarnings, 5)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.JSONEq(t, `{"n":1}`, string(recent[0]))
}
