// Package coingecko adapts the CoinGecko markets API into a price source.
package coingecko

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/platform/httpjson"
)

// DefaultBaseURL is the public CoinGecko API root.
const DefaultBaseURL = "https://api.coingecko.com/api/v3"

var _ domain.PriceSource = (*Client)(nil)

// Client fetches token quotes by CoinGecko coin id (e.g. "ethereum").
type Client struct {
	api *httpjson.Client
}

// NewClient creates a CoinGecko client. apiKey is optional and sent as the
// demo API key header when set.
func NewClient(baseURL, apiKey string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	var hdr http.Header
	if apiKey != "" {
		hdr = http.Header{"x-cg-demo-api-key": []string{apiKey}}
	}
	return &Client{api: httpjson.New(baseURL, httpjson.Options{
		RatePerSec: 0.5, // public tier allows ~30 calls/min
		Burst:      3,
		Timeout:    8 * time.Second,
		Header:     hdr,
	})}
}

type marketRow struct {
	ID                       string  `json:"id"`
	CurrentPrice             float64 `json:"current_price"`
	TotalVolume              float64 `json:"total_volume"`
	PriceChangePercentage24h float64 `json:"price_change_percentage_24h"`
	MarketCap                float64 `json:"market_cap"`
}

// GetQuote returns the latest quote for token. CoinGecko does not report
// order-book depth, so market cap stands in for liquidity.
func (c *Client) GetQuote(ctx context.Context, token string) (domain.Quote, error) {
	id := strings.ToLower(strings.TrimSpace(token))
	params := url.Values{}
	params.Set("vs_currency", "usd")
	params.Set("ids", id)

	var rows []marketRow
	if err := c.api.Get(ctx, "/coins/markets?"+params.Encode(), &rows); err != nil {
		return domain.Quote{}, fmt.Errorf("coingecko: get quote %s: %w", id, err)
	}
	if len(rows) == 0 {
		return domain.Quote{}, fmt.Errorf("coingecko: get quote %s: %w", id, domain.ErrNotFound)
	}
	r := rows[0]
	return domain.Quote{
		Token:          token,
		Price:          r.CurrentPrice,
		Volume24h:      r.TotalVolume,
		PriceChange24h: r.PriceChangePercentage24h,
		Liquidity:      r.MarketCap,
		FetchedAt:      time.Now().UTC(),
	}, nil
}
