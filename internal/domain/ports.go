package domain

import "context"

// PriceSource supplies price, volume and liquidity for a token.
type PriceSource interface {
	GetQuote(ctx context.Context, token string) (Quote, error)
}

// SentimentSource supplies a sentiment reading in [-1, 1] for a token.
type SentimentSource interface {
	GetSentiment(ctx context.Context, token string) (float64, error)
}

// VenuePriceSource quotes a token on one exchange venue.
type VenuePriceSource interface {
	Name() string
	GetPrice(ctx context.Context, token string) (float64, error)
}

// YieldAnalytics reports live APY (percent) and TVL for a protocol pool.
type YieldAnalytics interface {
	GetPool(ctx context.Context, protocol, token string) (apy, tvl float64, err error)
}

// PaymentRail moves value between addresses and charges for services.
// Every method returns a transaction reference on success.
type PaymentRail interface {
	ChargeForService(ctx context.Context, service ServiceKind, payer string, amount float64) (string, error)
	GetBalance(ctx context.Context, address string) (float64, error)
	Transfer(ctx context.Context, from, to string, amount float64) (string, error)
}

// Swapper executes a single swap leg on a venue and returns its reference.
type Swapper interface {
	Swap(ctx context.Context, venue, token string, side Side, size float64) (string, error)
}

// WalletGenerator creates fresh wallet identities for sub-agents.
type WalletGenerator interface {
	NewWallet() (address string, err error)
}
