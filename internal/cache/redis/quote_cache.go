package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// quoteRetention bounds how long a quote survives in Redis. Freshness is
// judged by the oracle from the stored fetch time, so this only needs to
// outlive any reasonable upstream outage.
const quoteRetention = 6 * time.Hour

// QuoteCache implements domain.QuoteCache with one hash per token at
// "quote:{token}" holding price, volume, change, liquidity and ts (Unix
// nanoseconds).
type QuoteCache struct {
	c *Client
}

// NewQuoteCache creates a QuoteCache backed by c.
func NewQuoteCache(c *Client) *QuoteCache {
	return &QuoteCache{c: c}
}

func (qc *QuoteCache) key(token string) string { return qc.c.Key("quote", token) }

// SetQuote stores q and refreshes its retention.
func (qc *QuoteCache) SetQuote(ctx context.Context, q domain.Quote) error {
	k := qc.key(q.Token)
	fields := map[string]interface{}{
		"price":     fmtFloat(q.Price),
		"volume":    fmtFloat(q.Volume24h),
		"change":    fmtFloat(q.PriceChange24h),
		"liquidity": fmtFloat(q.Liquidity),
		"ts":        strconv.FormatInt(q.FetchedAt.UnixNano(), 10),
	}
	pipe := qc.c.rdb.TxPipeline()
	pipe.HSet(ctx, k, fields)
	pipe.Expire(ctx, k, quoteRetention)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("redis: set quote %s: %w", q.Token, err)
	}
	return nil
}

// GetQuote returns the stored quote or domain.ErrNotFound.
func (qc *QuoteCache) GetQuote(ctx context.Context, token string) (domain.Quote, error) {
	vals, err := qc.c.rdb.HGetAll(ctx, qc.key(token)).Result()
	if err != nil && err != redis.Nil {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", token, err)
	}
	if len(vals) == 0 {
		return domain.Quote{}, fmt.Errorf("redis: get quote %s: %w", token, domain.ErrNotFound)
	}

	q := domain.Quote{Token: token}
	for field, dst := range map[string]*float64{
		"price":     &q.Price,
		"volume":    &q.Volume24h,
		"change":    &q.PriceChange24h,
		"liquidity": &q.Liquidity,
	} {
		raw, ok := vals[field]
		if !ok {
			return domain.Quote{}, fmt.Errorf("redis: get quote %s: missing %s: %w", token, field, domain.ErrNotFound)
		}
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return domain.Quote{}, fmt.Errorf("redis: parse %s for %s: %w", field, token, err)
		}
		*dst = v
	}

	ts, err := strconv.ParseInt(vals["ts"], 10, 64)
	if err != nil {
		return domain.Quote{}, fmt.Errorf("redis: parse ts for %s: %w", token, err)
	}
	q.FetchedAt = time.Unix(0, ts).UTC()
	return q, nil
}

func fmtFloat(v float64) string { return strconv.FormatFloat(v, 'f', -1, 64) }

var _ domain.QuoteCache = (*QuoteCache)(nil)
