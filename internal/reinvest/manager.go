package reinvest

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// Ledger is the slice of the revenue ledger the manager needs.
type Ledger interface {
	Available() float64
	TotalEarned() float64
	Debit(amount float64) error
}

// roles are assigned to sub-agents round-robin.
var roles = []string{
	"market_analyst",
	"signal_generator",
	"arbitrage_scout",
	"yield_optimizer",
	"momentum_tracker",
}

// Outcome describes what a Consider call did.
type Outcome struct {
	Decision Decision
	SubAgent *domain.SubAgent // set when a sub-agent was spawned
}

// Manager executes reinvestment decisions against a ledger. It is not safe
// for concurrent use; callers serialize access.
type Manager struct {
	policy   Policy
	ledger   Ledger
	rail     domain.PaymentRail
	wallets  domain.WalletGenerator
	parentID string
	funder   string // parent wallet address

	subAgents []domain.SubAgent
	upgrades  int
	now       func() time.Time
	logger    *slog.Logger
}

// ManagerConfig wires a Manager.
type ManagerConfig struct {
	Policy       Policy
	Ledger       Ledger
	Rail         domain.PaymentRail
	Wallets      domain.WalletGenerator
	ParentID     string
	ParentWallet string
	Logger       *slog.Logger
}

// NewManager creates a reinvestment manager.
func NewManager(cfg ManagerConfig) *Manager {
	return &Manager{
		policy:   cfg.Policy,
		ledger:   cfg.Ledger,
		rail:     cfg.Rail,
		wallets:  cfg.Wallets,
		parentID: cfg.ParentID,
		funder:   cfg.ParentWallet,
		now:      func() time.Time { return time.Now().UTC() },
		logger:   cfg.Logger.With(slog.String("component", "reinvest")),
	}
}

// Policy returns the active policy.
func (m *Manager) Policy() Policy { return m.policy }

// Consider evaluates the policy once and performs at most one action.
// Calling it again after the balance drops below the threshold is a no-op.
func (m *Manager) Consider(ctx context.Context) (Outcome, error) {
	d := m.policy.Decide(m.ledger.Available(), len(m.subAgents), m.ledger.TotalEarned())
	out := Outcome{Decision: d}

	switch d.Action {
	case ActionSpawn:
		sa, err := m.spawn(ctx, d.Cost)
		if err != nil {
			return Outcome{Decision: Decision{Action: ActionNone, Reason: err.Error()}}, err
		}
		out.SubAgent = &sa
	case ActionUpgrade:
		if err := m.ledger.Debit(d.Cost); err != nil {
			return Outcome{Decision: Decision{Action: ActionNone, Reason: err.Error()}}, fmt.Errorf("reinvest: upgrade: %w", err)
		}
		m.upgrades++
		m.logger.InfoContext(ctx, "agent upgraded",
			slog.Float64("cost", d.Cost),
			slog.Int("upgrades", m.upgrades),
		)
	}
	return out, nil
}

// spawn creates a sub-agent with a fresh wallet and funds it. A failed
// funding transfer still records the sub-agent, with a placeholder reference
// and FundingConfirmed=false.
func (m *Manager) spawn(ctx context.Context, cost float64) (domain.SubAgent, error) {
	addr, err := m.wallets.NewWallet()
	if err != nil {
		return domain.SubAgent{}, fmt.Errorf("reinvest: spawn: generate wallet: %w", err)
	}
	if err := m.ledger.Debit(cost); err != nil {
		return domain.SubAgent{}, fmt.Errorf("reinvest: spawn: %w", err)
	}

	sa := domain.SubAgent{
		ID:        uuid.NewString(),
		ParentID:  m.parentID,
		Role:      roles[len(m.subAgents)%len(roles)],
		Balance:   cost,
		Status:    domain.SubAgentActive,
		CreatedAt: m.now(),
		Wallet:    addr,
	}

	ref, err := m.rail.Transfer(ctx, m.funder, addr, cost)
	if err != nil {
		sa.FundingTx = "placeholder-" + uuid.NewString()
		m.logger.WarnContext(ctx, "sub-agent funding transfer failed, recorded placeholder reference",
			slog.String("sub_agent_id", sa.ID),
			slog.String("wallet", addr),
			slog.String("funding_tx", sa.FundingTx),
			slog.Bool("funding_confirmed", false),
			slog.String("error", err.Error()),
		)
	} else {
		sa.FundingTx = ref
		sa.FundingConfirmed = true
	}

	m.subAgents = append(m.subAgents, sa)
	m.logger.InfoContext(ctx, "sub-agent spawned",
		slog.String("sub_agent_id", sa.ID),
		slog.String("role", sa.Role),
		slog.String("wallet", sa.Wallet),
		slog.Float64("balance", sa.Balance),
		slog.Bool("funding_confirmed", sa.FundingConfirmed),
	)
	return sa, nil
}

// SubAgents returns a copy of the spawned sub-agents in creation order.
func (m *Manager) SubAgents() []domain.SubAgent {
	out := make([]domain.SubAgent, len(m.subAgents))
	copy(out, m.subAgents)
	return out
}

// Upgrades is the number of upgrades performed.
func (m *Manager) Upgrades() int { return m.upgrades }
