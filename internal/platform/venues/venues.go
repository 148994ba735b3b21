// Package venues implements per-exchange spot price sources used for
// cross-venue arbitrage.
package venues

import (
	"context"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/alanyoungcy/econagent/internal/domain"
	"github.com/alanyoungcy/econagent/internal/platform/httpjson"
)

// DefaultSymbols maps CoinGecko-style token ids onto exchange tickers.
var DefaultSymbols = map[string]string{
	"bitcoin":     "BTC",
	"ethereum":    "ETH",
	"solana":      "SOL",
	"binancecoin": "BNB",
	"cardano":     "ADA",
	"ripple":      "XRP",
	"dogecoin":    "DOGE",
	"avalanche-2": "AVAX",
	"chainlink":   "LINK",
	"polkadot":    "DOT",
}

// Symbol resolves token to a ticker, falling back to the upper-cased token.
func Symbol(token string) string {
	t := strings.ToLower(strings.TrimSpace(token))
	if s, ok := DefaultSymbols[t]; ok {
		return s
	}
	return strings.ToUpper(t)
}

func newAPI(baseURL string) *httpjson.Client {
	return httpjson.New(baseURL, httpjson.Options{
		RatePerSec: 5,
		Burst:      5,
		Timeout:    5 * time.Second,
		MaxRetries: 1,
	})
}

func parsePrice(venue, raw string) (float64, error) {
	p, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return 0, fmt.Errorf("%s: parse price %q: %w", venue, raw, err)
	}
	if !(p > 0) || math.IsInf(p, 0) {
		return 0, fmt.Errorf("%s: unusable price %q: %w", venue, raw, domain.ErrNotFound)
	}
	return p, nil
}

// Binance quotes <SYM>USDT spot prices.
type Binance struct{ api *httpjson.Client }

// NewBinance creates a Binance venue.
func NewBinance(baseURL string) *Binance {
	if baseURL == "" {
		baseURL = "https://api.binance.com"
	}
	return &Binance{api: newAPI(baseURL)}
}

func (b *Binance) Name() string { return "binance" }

func (b *Binance) GetPrice(ctx context.Context, token string) (float64, error) {
	var resp struct {
		Price string `json:"price"`
	}
	if err := b.api.Get(ctx, "/api/v3/ticker/price?symbol="+Symbol(token)+"USDT", &resp); err != nil {
		return 0, fmt.Errorf("binance: get price %s: %w", token, err)
	}
	return parsePrice("binance", resp.Price)
}

// Coinbase quotes <SYM>-USD spot prices.
type Coinbase struct{ api *httpjson.Client }

// NewCoinbase creates a Coinbase venue.
func NewCoinbase(baseURL string) *Coinbase {
	if baseURL == "" {
		baseURL = "https://api.coinbase.com"
	}
	return &Coinbase{api: newAPI(baseURL)}
}

func (c *Coinbase) Name() string { return "coinbase" }

func (c *Coinbase) GetPrice(ctx context.Context, token string) (float64, error) {
	var resp struct {
		Data struct {
			Amount string `json:"amount"`
		} `json:"data"`
	}
	if err := c.api.Get(ctx, "/v2/prices/"+Symbol(token)+"-USD/spot", &resp); err != nil {
		return 0, fmt.Errorf("coinbase: get price %s: %w", token, err)
	}
	return parsePrice("coinbase", resp.Data.Amount)
}

// OKX quotes <SYM>-USDT last trade prices.
type OKX struct{ api *httpjson.Client }

// NewOKX creates an OKX venue.
func NewOKX(baseURL string) *OKX {
	if baseURL == "" {
		baseURL = "https://www.okx.com"
	}
	return &OKX{api: newAPI(baseURL)}
}

func (o *OKX) Name() string { return "okx" }

func (o *OKX) GetPrice(ctx context.Context, token string) (float64, error) {
	var resp struct {
		Code string `json:"code"`
		Data []struct {
			Last string `json:"last"`
		} `json:"data"`
	}
	if err := o.api.Get(ctx, "/api/v5/market/ticker?instId="+Symbol(token)+"-USDT", &resp); err != nil {
		return 0, fmt.Errorf("okx: get price %s: %w", token, err)
	}
	if len(resp.Data) == 0 {
		return 0, fmt.Errorf("okx: get price %s: %w", token, domain.ErrNotFound)
	}
	return parsePrice("okx", resp.Data[0].Last)
}

// New builds venues by name. Unknown names are rejected.
func New(names []string) ([]domain.VenuePriceSource, error) {
	out := make([]domain.VenuePriceSource, 0, len(names))
	for _, n := range names {
		switch strings.ToLower(strings.TrimSpace(n)) {
		case "binance":
			out = append(out, NewBinance(""))
		case "coinbase":
			out = append(out, NewCoinbase(""))
		case "okx":
			out = append(out, NewOKX(""))
		default:
			return nil, fmt.Errorf("venues: unknown venue %q", n)
		}
	}
	return out, nil
}
