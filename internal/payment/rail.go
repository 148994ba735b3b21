// Package payment implements the simulated payment rail and swap venue the
// agent charges, funds and trades through. No transaction ever leaves the
// process; references are keccak hashes of the signed intent.
package payment

import (
	"context"
	"encoding/binary"
	"fmt"
	"log/slog"
	"math"
	"strings"
	"sync"

	"github.com/alanyoungcy/econagent/internal/crypto"
	"github.com/alanyoungcy/econagent/internal/domain"
)

var _ domain.PaymentRail = (*SimulatedRail)(nil)

// RailConfig configures the simulated rail.
type RailConfig struct {
	// StartingBalance is credited to any address the first time it is seen,
	// so demo clients can pay without being funded first.
	StartingBalance float64
	// TreasuryBalance is the parent wallet's opening balance.
	TreasuryBalance float64
}

// SimulatedRail is an in-memory ledger of wallet balances. Service charges
// are credited to the treasury (the agent wallet); transfers out of the
// treasury are signed with the agent key.
type SimulatedRail struct {
	cfg      RailConfig
	signer   *crypto.Signer
	treasury string

	mu       sync.Mutex
	balances map[string]float64
	nonce    uint64

	logger *slog.Logger
}

// NewSimulatedRail creates a rail whose treasury is the signer's address.
func NewSimulatedRail(cfg RailConfig, signer *crypto.Signer, logger *slog.Logger) *SimulatedRail {
	r := &SimulatedRail{
		cfg:      cfg,
		signer:   signer,
		treasury: key(signer.Address()),
		balances: make(map[string]float64),
		logger:   logger.With(slog.String("component", "payment_rail")),
	}
	r.balances[r.treasury] = cfg.TreasuryBalance
	return r
}

// Treasury returns the agent wallet address.
func (r *SimulatedRail) Treasury() string { return r.signer.Address() }

// ChargeForService moves amount from payer to the treasury.
func (r *SimulatedRail) ChargeForService(ctx context.Context, service domain.ServiceKind, payer string, amount float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if strings.TrimSpace(payer) == "" {
		return "", fmt.Errorf("payment: charge %s: %w", service, domain.ErrMissingPayer)
	}
	if !crypto.ValidAddress(payer) {
		return "", fmt.Errorf("payment: charge %s: %w: %q", service, domain.ErrInvalidAddress, payer)
	}
	if !validAmount(amount) {
		return "", fmt.Errorf("payment: charge %s: %w", service, domain.ErrInvalidAmount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	from := key(payer)
	if err := r.move(from, r.treasury, amount); err != nil {
		return "", fmt.Errorf("payment: charge %s to %s: %w", service, payer, err)
	}
	ref := crypto.TxRef([]byte(string(service)), []byte(from), floatBytes(amount), r.nextNonce())

	r.logger.InfoContext(ctx, "service charged",
		slog.String("service", string(service)),
		slog.String("payer", payer),
		slog.Float64("amount", amount),
		slog.String("tx", ref),
	)
	return ref, nil
}

// GetBalance returns the balance of address.
func (r *SimulatedRail) GetBalance(ctx context.Context, address string) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if !crypto.ValidAddress(address) {
		return 0, fmt.Errorf("payment: balance: %w: %q", domain.ErrInvalidAddress, address)
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.balanceLocked(key(address)), nil
}

// Transfer moves amount between addresses. Transfers from the treasury are
// signed with the agent key and the reference is derived from the signature.
func (r *SimulatedRail) Transfer(ctx context.Context, from, to string, amount float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !crypto.ValidAddress(from) || !crypto.ValidAddress(to) {
		return "", fmt.Errorf("payment: transfer: %w", domain.ErrInvalidAddress)
	}
	if !validAmount(amount) {
		return "", fmt.Errorf("payment: transfer: %w", domain.ErrInvalidAmount)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	src, dst := key(from), key(to)
	if err := r.move(src, dst, amount); err != nil {
		return "", fmt.Errorf("payment: transfer %s -> %s: %w", from, to, err)
	}

	nonce := r.nonce
	nonceBytes := r.nextNonce()
	var ref string
	if src == r.treasury {
		sig, err := r.signer.SignTransfer(to, amount, nonce)
		if err != nil {
			// Undo the move; the transfer never happened.
			_ = r.move(dst, src, amount)
			return "", fmt.Errorf("payment: transfer: %w", err)
		}
		ref = crypto.TxRef(sig)
	} else {
		ref = crypto.TxRef([]byte(src), []byte(dst), floatBytes(amount), nonceBytes)
	}

	r.logger.InfoContext(ctx, "transfer settled",
		slog.String("from", from),
		slog.String("to", to),
		slog.Float64("amount", amount),
		slog.String("tx", ref),
	)
	return ref, nil
}

func (r *SimulatedRail) move(from, to string, amount float64) error {
	bal := r.balanceLocked(from)
	if bal < amount {
		return fmt.Errorf("%w: have %.6f, need %.6f", domain.ErrInsufficientBalance, bal, amount)
	}
	r.balances[from] = bal - amount
	r.balances[to] = r.balanceLocked(to) + amount
	return nil
}

// balanceLocked returns the balance of k, opening the account with the
// starting balance on first sight.
func (r *SimulatedRail) balanceLocked(k string) float64 {
	bal, ok := r.balances[k]
	if !ok {
		bal = r.cfg.StartingBalance
		r.balances[k] = bal
	}
	return bal
}

func (r *SimulatedRail) nextNonce() []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], r.nonce)
	r.nonce++
	return b[:]
}

func key(addr string) string { return strings.ToLower(strings.TrimSpace(addr)) }

func floatBytes(v float64) []byte {
	var b [8]byte
	binary.BigEndian.PutUint64(b[:], math.Float64bits(v))
	return b[:]
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
