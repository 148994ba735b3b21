// Package feargreed adapts the Crypto Fear & Greed index into a sentiment
// source.
package feargreed

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/platform/httpjson"
)

// DefaultBaseURL is the alternative.me API root.
const DefaultBaseURL = "https://api.alternative.me"

var _ domain.SentimentSource = (*Client)(nil)

// Client reads the market-wide fear & greed index. The index is not token
// specific; every token receives the same reading.
type Client struct {
	api *httpjson.Client
}

// NewClient creates a fear & greed client.
func NewClient(baseURL string) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Client{api: httpjson.New(baseURL, httpjson.Options{
		RatePerSec: 1,
		Burst:      2,
		Timeout:    5 * time.Second,
	})}
}

type fngResponse struct {
	Data []struct {
		Value          string `json:"value"`
		Classification string `json:"value_classification"`
	} `json:"data"`
}

// GetSentiment maps the 0-100 index onto [-1, 1].
func (c *Client) GetSentiment(ctx context.Context, _ string) (float64, error) {
	var resp fngResponse
	if err := c.api.Get(ctx, "/fng/?limit=1", &resp); err != nil {
		return 0, fmt.Errorf("feargreed: get index: %w", err)
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("feargreed: get index: %w", domain.ErrNotFound)
	}
	v, err := strconv.ParseFloat(resp.Data[0].Value, 64)
	if err != nil {
		return 0, fmt.Errorf("feargreed: parse index %q: %w", resp.Data[0].Value, err)
	}
	return IndexToSentiment(v), nil
}

// IndexToSentiment converts a 0-100 index to [-1, 1].
func IndexToSentiment(v float64) float64 {
	s := (v - 50) / 50
	if s > 1 {
		return 1
	}
	if s < -1 {
		return -1
	}
	return s
}
