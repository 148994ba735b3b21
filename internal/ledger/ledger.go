// Package ledger keeps the agent's in-memory revenue accounts.
//
// A Ledger is not safe for concurrent use on its own; the agent serializes
// every mutation. It lives for the process lifetime and is never persisted.
package ledger

import (
	"fmt"
	"maps"
	"math"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// Ledger accumulates earnings by service and tracks reinvested funds.
type Ledger struct {
	total      float64
	byService  map[string]float64
	reinvested float64
}

// New creates an empty ledger.
func New() *Ledger {
	return &Ledger{byService: make(map[string]float64)}
}

// Record credits amount to service. Non-positive or non-finite amounts are
// ignored and Record reports false.
func (l *Ledger) Record(service string, amount float64) bool {
	if !validAmount(amount) {
		return false
	}
	l.total += amount
	l.byService[service] += amount
	return true
}

// Debit moves amount from the available balance to reinvested.
func (l *Ledger) Debit(amount float64) error {
	if !validAmount(amount) {
		return fmt.Errorf("ledger: debit %v: %w", amount, domain.ErrInvalidAmount)
	}
	if avail := l.Available(); amount > avail {
		return fmt.Errorf("ledger: debit %.6f with %.6f available: %w", amount, avail, domain.ErrInsufficientBalance)
	}
	l.reinvested += amount
	return nil
}

// Available is total earned minus reinvested.
func (l *Ledger) Available() float64 {
	return l.total - l.reinvested
}

// TotalEarned is the lifetime sum of recorded payments.
func (l *Ledger) TotalEarned() float64 {
	return l.total
}

// Earnings returns a copy of the ledger state.
func (l *Ledger) Earnings() domain.Earnings {
	return domain.Earnings{
		TotalEarned: l.total,
		ByService:   maps.Clone(l.byService),
		Reinvested:  l.reinvested,
		Available:   l.Available(),
	}
}

func validAmount(v float64) bool {
	return v > 0 && !math.IsNaN(v) && !math.IsInf(v, 0)
}
