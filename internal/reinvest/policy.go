// Package reinvest decides how the agent reinvests its available balance
// and carries out the chosen action.
package reinvest

import "fmt"

// Action is a reinvestment branch.
type Action string

const (
	ActionNone    Action = "none"
	ActionSpawn   Action = "spawn"
	ActionUpgrade Action = "upgrade"
)

// Policy holds the reinvestment thresholds and costs.
type Policy struct {
	Threshold    float64 // available balance that triggers a check
	SpawnCost    float64
	UpgradeCost  float64
	MaxSubAgents int

	// Upgrades are worthwhile while the agent has fewer than
	// UpgradeBelowSubAgents sub-agents or has earned more than
	// UpgradeAboveEarnings in total.
	UpgradeBelowSubAgents int
	UpgradeAboveEarnings  float64
}

// DefaultPolicy returns the stock reinvestment policy.
func DefaultPolicy() Policy {
	return Policy{
		Threshold:             1.0,
		SpawnCost:             0.3,
		UpgradeCost:           0.5,
		MaxSubAgents:          5,
		UpgradeBelowSubAgents: 2,
		UpgradeAboveEarnings:  10,
	}
}

// Decision is the outcome of evaluating the policy.
type Decision struct {
	Action Action
	Cost   float64
	Reason string
}

// Decide picks at most one action: spawn while under the sub-agent cap,
// otherwise upgrade if the heuristic holds, otherwise nothing.
func (p Policy) Decide(available float64, subAgents int, totalEarned float64) Decision {
	if available < p.Threshold {
		return Decision{Action: ActionNone, Reason: fmt.Sprintf("available %.4f below threshold %.4f", available, p.Threshold)}
	}
	if available >= p.SpawnCost && subAgents < p.MaxSubAgents {
		return Decision{Action: ActionSpawn, Cost: p.SpawnCost, Reason: fmt.Sprintf("%d/%d sub-agents", subAgents, p.MaxSubAgents)}
	}
	if available >= p.UpgradeCost && p.shouldUpgrade(subAgents, totalEarned) {
		return Decision{Action: ActionUpgrade, Cost: p.UpgradeCost, Reason: fmt.Sprintf("sub-agents %d, lifetime earnings %.4f", subAgents, totalEarned)}
	}
	return Decision{Action: ActionNone, Reason: "no branch applies"}
}

func (p Policy) shouldUpgrade(subAgents int, totalEarned float64) bool {
	return subAgents < p.UpgradeBelowSubAgents || totalEarned > p.UpgradeAboveEarnings
}

// Validate reports configuration that would make the policy misbehave.
func (p Policy) Validate() error {
	switch {
	case p.Threshold <= 0:
		return fmt.Errorf("reinvest: threshold must be positive")
	case p.SpawnCost <= 0 || p.UpgradeCost <= 0:
		return fmt.Errorf("reinvest: costs must be positive")
	case p.MaxSubAgents < 0:
		return fmt.Errorf("reinvest: max sub-agents must not be negative")
	}
	return nil
}
