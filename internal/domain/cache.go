package domain

import (
	"context"
	"time"
)

// QuoteCache stores the latest quote per token. Get returns the quote with
// its original fetch time so callers can decide whether it is fresh.
type QuoteCache interface {
	SetQuote(ctx context.Context, q Quote) error
	GetQuote(ctx context.Context, token string) (Quote, error)
}

// RateLimiter provides distributed rate limiting.
type RateLimiter interface {
	Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
}

// LockManager provides distributed locking.
type LockManager interface {
	Acquire(ctx context.Context, key string, ttl time.Duration) (unlock func(), err error)
}

// EventBus carries agent events (earnings, reinvestment, signals, arbitrage)
// to interested consumers such as the websocket hub.
type EventBus interface {
	Publish(ctx context.Context, channel string, payload []byte) error
	Subscribe(ctx context.Context, channel string) (<-chan []byte, error)
}

// Event channels published by the agent.
const (
	ChannelEarnings     = "earnings"
	ChannelReinvestment = "reinvestment"
	ChannelSignals      = "signals"
	ChannelArbitrage    = "arbitrage"
	ChannelCycle        = "cycle"
)

// EventHistory returns the most recent payloads published on a channel,
// oldest first, so late websocket clients can catch up.
type EventHistory interface {
	Recent(ctx context.Context, channel string, n int) ([][]byte, error)
}
