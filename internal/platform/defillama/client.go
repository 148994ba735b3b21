// Package defillama adapts the DefiLlama yields API into yield analytics.
package defillama

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/platform/httpjson"
)

// DefaultBaseURL is the DefiLlama yields API root.
const DefaultBaseURL = "https://yields.llama.fi"

const defaultPoolsTTL = 10 * time.Minute

var _ domain.YieldAnalytics = (*Client)(nil)

// Pool is one row of the /pools listing.
type Pool struct {
	Project string  `json:"project"`
	Symbol  string  `json:"symbol"`
	Chain   string  `json:"chain"`
	APY     float64 `json:"apy"`
	TVLUsd  float64 `json:"tvlUsd"`
}

type poolsResponse struct {
	Status string `json:"status"`
	Data   []Pool `json:"data"`
}

// Client looks up protocol pools. The full listing is large, so it is
// fetched at most once per TTL and shared across lookups.
type Client struct {
	api *httpjson.Client
	ttl time.Duration

	mu        sync.Mutex
	pools     []Pool
	fetchedAt time.Time
}

// NewClient creates a DefiLlama client.
func NewClient(baseURL string, ttl time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if ttl <= 0 {
		ttl = defaultPoolsTTL
	}
	return &Client{
		api: httpjson.New(baseURL, httpjson.Options{
			RatePerSec: 0.2,
			Burst:      1,
			Timeout:    10 * time.Second,
		}),
		ttl: ttl,
	}
}

// GetPool returns APY (percent) and TVL of the largest pool of protocol whose
// symbol contains token.
func (c *Client) GetPool(ctx context.Context, protocol, token string) (float64, float64, error) {
	pools, err := c.listPools(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("defillama: get pool %s/%s: %w", protocol, token, err)
	}
	best, ok := pickPool(pools, protocol, token)
	if !ok {
		return 0, 0, fmt.Errorf("defillama: get pool %s/%s: %w", protocol, token, domain.ErrNotFound)
	}
	return best.APY, best.TVLUsd, nil
}

func (c *Client) listPools(ctx context.Context) ([]Pool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.pools != nil && time.Since(c.fetchedAt) < c.ttl {
		return c.pools, nil
	}

	var resp poolsResponse
	if err := c.api.Get(ctx, "/pools", &resp); err != nil {
		if c.pools != nil {
			return c.pools, nil
		}
		return nil, err
	}
	c.pools = resp.Data
	c.fetchedAt = time.Now()
	return c.pools, nil
}

func pickPool(pools []Pool, protocol, token string) (Pool, bool) {
	protocol = strings.ToLower(protocol)
	token = strings.ToUpper(token)
	var best Pool
	found := false
	for _, p := range pools {
		if strings.ToLower(p.Project) != protocol {
			continue
		}
		if token != "" && !strings.Contains(strings.ToUpper(p.Symbol), token) {
			continue
		}
		if !found || p.TVLUsd > best.TVLUsd {
			best, found = p, true
		}
	}
	return best, found
}
