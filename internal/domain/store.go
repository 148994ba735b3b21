package domain

import (
	"context"
	"time"
)

// ListOpts provides pagination and filtering for list queries.
type ListOpts struct {
	Limit  int
	Offset int
	Since  *time.Time
	Until  *time.Time
	Event  string
}

// AuditEntry is a single audit log row.
type AuditEntry struct {
	ID        int64          `json:"id"`
	Event     string         `json:"event"`
	Detail    map[string]any `json:"detail"`
	CreatedAt time.Time      `json:"created_at"`
}

// AuditStore persists an append-only audit journal. The journal is written
// for operators and never replayed into the ledger.
type AuditStore interface {
	Log(ctx context.Context, event string, detail map[string]any) error
	List(ctx context.Context, opts ListOpts) ([]AuditEntry, error)
}

// Audit event names.
const (
	AuditPaymentRecorded    = "payment_recorded"
	AuditSubAgentSpawned    = "subagent_spawned"
	AuditFundingPlaceholder = "funding_placeholder"
	AuditAgentUpgraded      = "agent_upgraded"
	AuditArbitrageExecuted  = "arbitrage_executed"
	AuditArbitrageFailed    = "arbitrage_failed"
)

// ExecutionRecord is a persisted arbitrage execution attempt.
type ExecutionRecord struct {
	ID        string
	Execution ArbitrageExecution
	Capital   float64
	CreatedAt time.Time
}

// ExecutionStore journals arbitrage execution attempts.
type ExecutionStore interface {
	Save(ctx context.Context, rec ExecutionRecord) error
	ListRecent(ctx context.Context, limit int) ([]ExecutionRecord, error)
}

// SubAgentStore journals spawned sub-agent records.
type SubAgentStore interface {
	Save(ctx context.Context, sa SubAgent) error
	List(ctx context.Context, parentID string) ([]SubAgent, error)
}
