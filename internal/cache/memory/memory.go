// Package memory provides process-local implementations of the shared-state
// ports, used when no Redis address is configured.
package memory

import (
	"context"
	"fmt"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// QuoteCache is a map-backed domain.QuoteCache.
type QuoteCache struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
}

// NewQuoteCache creates an empty cache.
func NewQuoteCache() *QuoteCache {
	return &QuoteCache{quotes: make(map[string]domain.Quote)}
}

// SetQuote stores q under its token.
func (c *QuoteCache) SetQuote(_ context.Context, q domain.Quote) error {
	c.mu.Lock()
	c.quotes[q.Token] = q
	c.mu.Unlock()
	return nil
}

// GetQuote returns the stored quote or domain.ErrNotFound.
func (c *QuoteCache) GetQuote(_ context.Context, token string) (domain.Quote, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	q, ok := c.quotes[token]
	if !ok {
		return domain.Quote{}, fmt.Errorf("memory: quote %q: %w", token, domain.ErrNotFound)
	}
	return q, nil
}

// RateLimiter is a token-bucket domain.RateLimiter keyed per caller. A
// bucket holds limit tokens and refills limit per window.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*rate.Limiter
}

// NewRateLimiter creates an empty limiter set.
func NewRateLimiter() *RateLimiter {
	return &RateLimiter{buckets: make(map[string]*rate.Limiter)}
}

// Allow reports whether one more request for key fits.
func (rl *RateLimiter) Allow(_ context.Context, key string, limit int, window time.Duration) (bool, error) {
	if limit <= 0 || window <= 0 {
		return false, nil
	}
	rl.mu.Lock()
	lim, ok := rl.buckets[key]
	if !ok {
		lim = rate.NewLimiter(rate.Limit(float64(limit)/window.Seconds()), limit)
		rl.buckets[key] = lim
	}
	rl.mu.Unlock()
	return lim.Allow(), nil
}

// LockManager is an in-process domain.LockManager with expiring locks.
type LockManager struct {
	mu    sync.Mutex
	held  map[string]time.Time
	clock func() time.Time
}

// NewLockManager creates an empty lock table.
func NewLockManager() *LockManager {
	return &LockManager{held: make(map[string]time.Time), clock: time.Now}
}

// Acquire takes key until unlock is called or ttl passes.
func (lm *LockManager) Acquire(_ context.Context, key string, ttl time.Duration) (func(), error) {
	lm.mu.Lock()
	defer lm.mu.Unlock()

	now := lm.clock()
	if exp, ok := lm.held[key]; ok && now.Before(exp) {
		return nil, domain.ErrLockHeld
	}
	exp := now.Add(ttl)
	lm.held[key] = exp

	var once sync.Once
	return func() {
		once.Do(func() {
			lm.mu.Lock()
			if cur, ok := lm.held[key]; ok && cur.Equal(exp) {
				delete(lm.held, key)
			}
			lm.mu.Unlock()
		})
	}, nil
}

var (
	_ domain.QuoteCache  = (*QuoteCache)(nil)
	_ domain.RateLimiter = (*RateLimiter)(nil)
	_ domain.LockManager = (*LockManager)(nil)
)
