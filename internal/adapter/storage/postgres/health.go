package postgres

import (
	"context"

	"ton-dice-backend/internal/core/ports"
)

// HealthChecker checks PostgreSQL connectivity.
type HealthChecker struct {
	pool Pool
}

// NewHealthChecker creates a PostgreSQL health checker.
func NewHealthChecker(pool Pool) ports.HealthChecker {
	return &HealthChecker{pool: pool}
}

func (h *HealthChecker) Ping(ctx context.Context) error {
	return h.pool.Ping(ctx)
}

func (h *HealthChecker) Name() string {
	return "postgresql"
}
