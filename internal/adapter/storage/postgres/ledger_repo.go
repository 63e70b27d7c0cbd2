package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

// LedgerRepo implements ports.LedgerRepository using PostgreSQL. The
// journal is append-only; the partial unique index on external_tx_id is
// the authoritative idempotency guard for deposit credits.
type LedgerRepo struct {
	pool Pool
}

// NewLedgerRepo creates a new ledger repository.
func NewLedgerRepo(pool Pool) ports.LedgerRepository {
	return &LedgerRepo{pool: pool}
}

func (r *LedgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	query := `
		INSERT INTO ledger_entries (id, account_id, kind, amount, external_tx_id, memo)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at`

	err := tx.QueryRow(ctx, query,
		entry.ID, entry.AccountID, entry.Kind, entry.Amount, entry.ExternalTxID, entry.Memo,
	).Scan(&entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("inserting ledger entry: %w", mapError(err))
	}
	return nil
}

func (r *LedgerRepo) SumByAccount(ctx context.Context, accountID string) (int64, int64, error) {
	query := `
		SELECT
			COALESCE(SUM(amount) FILTER (WHERE kind = 'CREDIT'), 0),
			COALESCE(SUM(amount) FILTER (WHERE kind = 'DEBIT'), 0)
		FROM ledger_entries
		WHERE account_id = $1`

	var credits, debits int64
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&credits, &debits)
	if err != nil {
		return 0, 0, fmt.Errorf("summing ledger entries: %w", err)
	}
	return credits, debits, nil
}

func (r *LedgerRepo) HasExternalTxID(ctx context.Context, externalTxID string) (bool, error) {
	query := `SELECT EXISTS (SELECT 1 FROM ledger_entries WHERE external_tx_id = $1)`

	var exists bool
	err := r.pool.QueryRow(ctx, query, externalTxID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("checking external tx id: %w", err)
	}
	return exists, nil
}
