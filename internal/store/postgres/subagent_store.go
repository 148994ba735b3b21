package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// SubAgentStore implements domain.SubAgentStore using PostgreSQL. Rows are
// insert-only; sub-agent records never change after creation.
type SubAgentStore struct {
	pool *pgxpool.Pool
}

// NewSubAgentStore creates a new SubAgentStore.
func NewSubAgentStore(pool *pgxpool.Pool) *SubAgentStore {
	return &SubAgentStore{pool: pool}
}

// Save inserts sa. Saving the same ID twice is a no-op.
func (s *SubAgentStore) Save(ctx context.Context, sa domain.SubAgent) error {
	_, err := s.pool.Exec(ctx, `
		INSERT INTO sub_agents (id, parent_id, role, balance, status, wallet, funding_tx, funding_confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		ON CONFLICT (id) DO NOTHING`,
		sa.ID, sa.ParentID, sa.Role, sa.Balance, string(sa.Status), sa.Wallet, sa.FundingTx, sa.FundingConfirmed, sa.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert sub_agent %s: %w", sa.ID, err)
	}
	return nil
}

// List returns sub-agents of parentID in creation order.
func (s *SubAgentStore) List(ctx context.Context, parentID string) ([]domain.SubAgent, error) {
	rows, err := s.pool.Query(ctx, `
		SELECT id, parent_id, role, balance, status, wallet, funding_tx, funding_confirmed, created_at
		FROM sub_agents WHERE parent_id = $1 ORDER BY created_at`, parentID)
	if err != nil {
		return nil, fmt.Errorf("postgres: list sub_agents: %w", err)
	}
	defer rows.Close()

	var out []domain.SubAgent
	for rows.Next() {
		var sa domain.SubAgent
		var status string
		if err := rows.Scan(&sa.ID, &sa.ParentID, &sa.Role, &sa.Balance, &status, &sa.Wallet, &sa.FundingTx, &sa.FundingConfirmed, &sa.CreatedAt); err != nil {
			return nil, fmt.Errorf("postgres: scan sub_agent: %w", err)
		}
		sa.Status = domain.SubAgentStatus(status)
		out = append(out, sa)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list sub_agents rows: %w", err)
	}
	return out, nil
}

var _ domain.SubAgentStore = (*SubAgentStore)(nil)
