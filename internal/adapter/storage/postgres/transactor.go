package postgres

import (
	"context"

	"github.com/jackc/pgx/v5"

	"ton-dice-backend/internal/core/ports"
)

// Transactor starts database transactions for services.
type Transactor struct {
	pool Pool
}

// NewTransactor creates a transactor backed by the given pool.
func NewTransactor(pool Pool) ports.DBTransactor {
	return &Transactor{pool: pool}
}

// Begin starts a new transaction.
func (t *Transactor) Begin(ctx context.Context) (pgx.Tx, error) {
	return t.pool.Begin(ctx)
}
