package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/alanyoungcy/econagent/internal/domain"
)

// ExecutionStore implements domain.ExecutionStore using PostgreSQL.
type ExecutionStore struct {
	pool *pgxpool.Pool
}

// NewExecutionStore creates a new ExecutionStore.
func NewExecutionStore(pool *pgxpool.Pool) *ExecutionStore {
	return &ExecutionStore{pool: pool}
}

// Save inserts one execution attempt.
func (s *ExecutionStore) Save(ctx context.Context, rec domain.ExecutionRecord) error {
	e := rec.Execution
	_, err := s.pool.Exec(ctx, `
		INSERT INTO arbitrage_executions (id, opportunity_id, token, buy_venue, sell_venue, success, error, capital, verified_spread, trade_size, net_profit, buy_leg_ref, sell_leg_ref, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`,
		rec.ID, e.OpportunityID, e.Token, e.BuyVenue, e.SellVenue, e.Success, e.Error,
		rec.Capital, e.VerifiedSpread, e.TradeSize, e.NetProfit, e.BuyLegRef, e.SellLegRef, rec.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("postgres: insert arbitrage_execution: %w", err)
	}
	return nil
}

// ListRecent returns the newest executions first.
func (s *ExecutionStore) ListRecent(ctx context.Context, limit int) ([]domain.ExecutionRecord, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.pool.Query(ctx, `
		SELECT id, opportunity_id, token, buy_venue, sell_venue, success, error, capital, verified_spread, trade_size, net_profit, buy_leg_ref, sell_leg_ref, created_at
		FROM arbitrage_executions ORDER BY created_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("postgres: list arbitrage_executions: %w", err)
	}
	defer rows.Close()

	var out []domain.ExecutionRecord
	for rows.Next() {
		var rec domain.ExecutionRecord
		e := &rec.Execution
		if err := rows.Scan(
			&rec.ID, &e.OpportunityID, &e.Token, &e.BuyVenue, &e.SellVenue, &e.Success, &e.Error,
			&rec.Capital, &e.VerifiedSpread, &e.TradeSize, &e.NetProfit, &e.BuyLegRef, &e.SellLegRef, &rec.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("postgres: scan arbitrage_execution: %w", err)
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres: list arbitrage_executions rows: %w", err)
	}
	return out, nil
}

var _ domain.ExecutionStore = (*ExecutionStore)(nil)
