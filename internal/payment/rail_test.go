package payment

import (
	"context"
	"io"
	"log/slog"
	"testing"

	ethcrypto "github.com/ethereum/go-ethereum/crypto"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alanyoungcy/econagent/internal/crypto"
	"github.com/alanyoungcy/econagent/internal/domain"
)

const payer = "0x1111111111111111111111111111111111111111"

func testLogger() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

func newTestRail(t *testing.T, cfg RailConfig) *SimulatedRail {
	t.Helper()
	key, err := ethcrypto.GenerateKey()
	require.NoError(t, err)
	return NewSimulatedRail(cfg, crypto.NewSigner(key), testLogger())
}

func TestRail_ChargeMovesFundsToTreasury(t *testing.T) {
	r := newTestRail(t, RailConfig{StartingBalance: 1})
	ctx := context.Background()

	ref, err := r.ChargeForService(ctx, domain.ServiceMarketAnalysis, payer, 0.1)
	require.NoError(t, err)
	assert.Len(t, ref, 66)

	bal, err := r.GetBalance(ctx, payer)
	require.NoError(t, err)
	assert.InDelta(t, 0.9, bal, 1e-12)

	treasury, err := r.GetBalance(ctx, r.Treasury())
	require.NoError(t, err)
	assert.InDelta(t, 0.1, treasury, 1e-12)

	ref2, err := r.ChargeForService(ctx, domain.ServiceMarketAnalysis, payer, 0.1)
	require.NoError(t, err)
	assert.NotEqual(t, ref, ref2)
}

func TestRail_ChargeValidation(t *testing.T) {
	r := newTestRail(t, RailConfig{StartingBalance: 0.05})
	ctx := context.Background()

	_, err := r.ChargeForService(ctx, domain.ServiceTradingSignals, "", 0.1)
	assert.ErrorIs(t, err, domain.ErrMissingPayer)

	_, err = r.ChargeForService(ctx, domain.ServiceTradingSignals, "bob", 0.1)
	assert.ErrorIs(t, err, domain.ErrInvalidAddress)

	_, err = r.ChargeForService(ctx, domain.ServiceTradingSignals, payer, -1)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)

	_, err = r.ChargeForService(ctx, domain.ServiceTradingSignals, payer, 0.1)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestRail_TreasuryTransferIsSigned(t *testing.T) {
	r := newTestRail(t, RailConfig{TreasuryBalance: 1})
	ctx := context.Background()
	child := "0x2222222222222222222222222222222222222222"

	ref, err := r.Transfer(ctx, r.Treasury(), child, 0.3)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	bal, err := r.GetBalance(ctx, child)
	require.NoError(t, err)
	assert.InDelta(t, 0.3, bal, 1e-12)

	_, err = r.Transfer(ctx, r.Treasury(), child, 5)
	assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
}

func TestSwapper(t *testing.T) {
	s := NewSimulatedSwapper([]string{"Binance"}, testLogger())
	ctx := context.Background()

	ref, err := s.Swap(ctx, "okx", "ethereum", domain.SideBuy, 1.5)
	require.NoError(t, err)
	assert.NotEmpty(t, ref)

	_, err = s.Swap(ctx, "binance", "ethereum", domain.SideSell, 1.5)
	assert.Error(t, err)

	_, err = s.Swap(ctx, "okx", "ethereum", domain.SideSell, 0)
	assert.ErrorIs(t, err, domain.ErrInvalidAmount)
}
