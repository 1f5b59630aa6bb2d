package postgres

import (
	"context"
	"fmt"
)

// HealthCheck reports PostgreSQL healthy once the accounts table answers.
// A reachable server with a missing schema is unhealthy.
type HealthCheck struct {
	pool Pool
}

func NewHealthCheck(pool Pool) *HealthCheck {
	return &HealthCheck{pool: pool}
}

func (h *HealthCheck) Name() string { return "postgresql" }

func (h *HealthCheck) Ping(ctx context.Context) error {
	var accounts int64
	if err := h.pool.QueryRow(ctx, `SELECT count(*) FROM accounts`).Scan(&accounts); err != nil {
		return fmt.Errorf("accounts table: %w", err)
	}
	return nil
}
