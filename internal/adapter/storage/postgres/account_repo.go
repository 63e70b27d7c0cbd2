package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

// AccountRepo implements ports.AccountRepository using PostgreSQL.
type AccountRepo struct {
	pool Pool
}

// NewAccountRepo creates a new account repository.
func NewAccountRepo(pool Pool) ports.AccountRepository {
	return &AccountRepo{pool: pool}
}

const accountColumns = `id, balance, server_seed_enc, server_seed_hash, client_seed, nonce, created_at, updated_at`

func scanAccount(row pgx.Row) (*domain.Account, error) {
	var a domain.Account
	err := row.Scan(
		&a.ID, &a.Balance, &a.ServerSeedEnc, &a.ServerSeedHash,
		&a.ClientSeed, &a.Nonce, &a.CreatedAt, &a.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, pgx.ErrNoRows
		}
		return nil, fmt.Errorf("scanning account: %w", err)
	}
	return &a, nil
}

func (r *AccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	query := `
		INSERT INTO accounts (id, balance, server_seed_enc, server_seed_hash, client_seed, nonce)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at, updated_at`

	err := tx.QueryRow(ctx, query,
		a.ID, a.Balance, a.ServerSeedEnc, a.ServerSeedHash, a.ClientSeed, a.Nonce,
	).Scan(&a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return fmt.Errorf("creating account: %w", mapError(err))
	}
	return nil
}

func (r *AccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`
	return scanAccount(r.pool.QueryRow(ctx, query, id))
}

// GetByIDForUpdate locks the account row for the duration of the
// transaction. All balance and nonce mutations go through this lock.
func (r *AccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	query := `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	return scanAccount(tx.QueryRow(ctx, query, id))
}

func (r *AccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance int64) error {
	query := `UPDATE accounts SET balance = $1, updated_at = NOW() WHERE id = $2`

	tag, err := tx.Exec(ctx, query, balance, id)
	if err != nil {
		return fmt.Errorf("updating balance: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) UpdateClientSeed(ctx context.Context, id string, clientSeed string) error {
	query := `UPDATE accounts SET client_seed = $1, updated_at = NOW() WHERE id = $2`

	tag, err := r.pool.Exec(ctx, query, clientSeed, id)
	if err != nil {
		return fmt.Errorf("updating client seed: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) RotateSeed(ctx context.Context, tx pgx.Tx, id string, seedEnc, seedHash string) error {
	query := `
		UPDATE accounts
		SET server_seed_enc = $1, server_seed_hash = $2, nonce = 0, updated_at = NOW()
		WHERE id = $3`

	tag, err := tx.Exec(ctx, query, seedEnc, seedHash, id)
	if err != nil {
		return fmt.Errorf("rotating seed: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *AccountRepo) IncrementNonce(ctx context.Context, tx pgx.Tx, id string) error {
	query := `UPDATE accounts SET nonce = nonce + 1, updated_at = NOW() WHERE id = $1`

	tag, err := tx.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("incrementing nonce: %w", mapError(err))
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}
