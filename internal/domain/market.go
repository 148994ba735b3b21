package domain

import "time"

// Quote is the raw output of a price source for a single token.
type Quote struct {
	Token          string
	Price          float64
	Volume24h      float64
	PriceChange24h float64 // percent
	Liquidity      float64
	FetchedAt      time.Time
}

// MarketSnapshot is the immutable view of a token's market at one instant.
// A snapshot is superseded by the next fetch, never updated in place.
type MarketSnapshot struct {
	Token          string    `json:"token"`
	Price          float64   `json:"price"`
	Volume24h      float64   `json:"volume_24h"`
	PriceChange24h float64   `json:"price_change_24h"`
	Liquidity      float64   `json:"liquidity"`
	Sentiment      float64   `json:"sentiment"` // [-1, 1]
	Timestamp      time.Time `json:"timestamp"`
}

// SnapshotFromQuote builds a MarketSnapshot from a quote and a sentiment
// reading.
func SnapshotFromQuote(q Quote, sentiment float64) MarketSnapshot {
	ts := q.FetchedAt
	if ts.IsZero() {
		ts = time.Now().UTC()
	}
	return MarketSnapshot{
		Token:          q.Token,
		Price:          q.Price,
		Volume24h:      q.Volume24h,
		PriceChange24h: q.PriceChange24h,
		Liquidity:      q.Liquidity,
		Sentiment:      sentiment,
		Timestamp:      ts,
	}
}
