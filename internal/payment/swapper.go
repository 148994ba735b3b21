package payment

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/alanyoungcy/econagent/internal/crypto"
	"github.com/alanyoungcy/econagent/internal/domain"
)

var _ domain.Swapper = (*SimulatedSwapper)(nil)

// SimulatedSwapper fills every swap leg immediately. Venues listed in
// failing reject all orders, which lets operators rehearse partial
// executions.
type SimulatedSwapper struct {
	mu      sync.Mutex
	seq     uint64
	failing map[string]bool
	logger  *slog.Logger
}

// NewSimulatedSwapper creates a swapper.
func NewSimulatedSwapper(failing []string, logger *slog.Logger) *SimulatedSwapper {
	f := make(map[string]bool, len(failing))
	for _, v := range failing {
		f[strings.ToLower(strings.TrimSpace(v))] = true
	}
	return &SimulatedSwapper{failing: f, logger: logger.With(slog.String("component", "swapper"))}
}

// Swap fills one leg and returns its reference.
func (s *SimulatedSwapper) Swap(ctx context.Context, venue, token string, side domain.Side, size float64) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if !validAmount(size) {
		return "", fmt.Errorf("swap: %w", domain.ErrInvalidAmount)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failing[strings.ToLower(venue)] {
		return "", fmt.Errorf("swap: %s rejected %s %s: %w", venue, side, token, domain.ErrUpstreamUnavailable)
	}
	s.seq++
	ref := crypto.TxRef([]byte(venue), []byte(token), []byte(side), floatBytes(size), floatBytes(float64(s.seq)))
	s.logger.InfoContext(ctx, "swap filled",
		slog.String("venue", venue),
		slog.String("token", token),
		slog.String("side", string(side)),
		slog.Float64("size", size),
		slog.String("ref", ref),
	)
	return ref, nil
}
