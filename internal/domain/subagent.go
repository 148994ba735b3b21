package domain

import "time"

// SubAgentStatus is the lifecycle state recorded for a sub-agent.
type SubAgentStatus string

const (
	SubAgentActive    SubAgentStatus = "active"
	SubAgentInactive  SubAgentStatus = "inactive"
	SubAgentUpgrading SubAgentStatus = "upgrading"
)

// SubAgent is an inert record of a spawned child agent. Records are created
// by the reinvestment policy and never transition afterwards.
type SubAgent struct {
	ID               string         `json:"id"`
	ParentID         string         `json:"parent_id"`
	Role             string         `json:"role"`
	Balance          float64        `json:"balance"`
	Status           SubAgentStatus `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	Wallet           string         `json:"wallet"`
	FundingTx        string         `json:"funding_tx"`
	FundingConfirmed bool           `json:"funding_confirmed"`
}
