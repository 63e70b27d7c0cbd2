package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

// PendingBetRepo implements ports.PendingBetRepository using PostgreSQL.
// The table is keyed by account id, so the one-pending-bet-per-account
// invariant is enforced by the primary key.
type PendingBetRepo struct {
	pool Pool
}

// NewPendingBetRepo creates a new pending bet repository.
func NewPendingBetRepo(pool Pool) ports.PendingBetRepository {
	return &PendingBetRepo{pool: pool}
}

func (r *PendingBetRepo) Upsert(ctx context.Context, pb *domain.PendingBet) error {
	query := `
		INSERT INTO pending_bets (account_id, target, amount)
		VALUES ($1, $2, $3)
		ON CONFLICT (account_id)
		DO UPDATE SET target = EXCLUDED.target, amount = EXCLUDED.amount, created_at = NOW()
		RETURNING created_at`

	err := r.pool.QueryRow(ctx, query, pb.AccountID, pb.Target, pb.Amount).Scan(&pb.CreatedAt)
	if err != nil {
		return fmt.Errorf("upserting pending bet: %w", mapError(err))
	}
	return nil
}

func scanPendingBet(row pgx.Row) (*domain.PendingBet, error) {
	var pb domain.PendingBet
	err := row.Scan(&pb.AccountID, &pb.Target, &pb.Amount, &pb.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scanning pending bet: %w", err)
	}
	return &pb, nil
}

func (r *PendingBetRepo) Get(ctx context.Context, accountID string) (*domain.PendingBet, error) {
	query := `SELECT account_id, target, amount, created_at FROM pending_bets WHERE account_id = $1`
	return scanPendingBet(r.pool.QueryRow(ctx, query, accountID))
}

// GetForUpdate locks the pending bet row so a concurrent roll cannot
// consume the same stake twice.
func (r *PendingBetRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.PendingBet, error) {
	query := `SELECT account_id, target, amount, created_at FROM pending_bets WHERE account_id = $1 FOR UPDATE`
	return scanPendingBet(tx.QueryRow(ctx, query, accountID))
}

func (r *PendingBetRepo) Delete(ctx context.Context, tx pgx.Tx, accountID string) error {
	query := `DELETE FROM pending_bets WHERE account_id = $1`

	tag, err := tx.Exec(ctx, query, accountID)
	if err != nil {
		return fmt.Errorf("deleting pending bet: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
