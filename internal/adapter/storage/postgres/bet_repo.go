package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

// BetRepo implements ports.BetRepository using PostgreSQL. Bets are
// append-only; there is no update or delete path.
type BetRepo struct {
	pool Pool
}

// NewBetRepo creates a new bet repository.
func NewBetRepo(pool Pool) ports.BetRepository {
	return &BetRepo{pool: pool}
}

func (r *BetRepo) Create(ctx context.Context, tx pgx.Tx, bet *domain.BetRecord) error {
	if bet.ID == uuid.Nil {
		bet.ID = uuid.New()
	}

	query := `
		INSERT INTO bets (id, account_id, nonce, target, amount, roll, win, payout, server_seed_hash)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING created_at`

	err := tx.QueryRow(ctx, query,
		bet.ID, bet.AccountID, bet.Nonce, bet.Target, bet.Amount,
		bet.Roll, bet.Win, bet.Payout, bet.ServerSeedHash,
	).Scan(&bet.CreatedAt)
	if err != nil {
		return fmt.Errorf("creating bet record: %w", mapError(err))
	}
	return nil
}

func (r *BetRepo) Stats(ctx context.Context, accountID string) (*domain.BetStats, error) {
	query := `
		SELECT COUNT(*), COUNT(*) FILTER (WHERE win)
		FROM bets
		WHERE account_id = $1`

	var stats domain.BetStats
	err := r.pool.QueryRow(ctx, query, accountID).Scan(&stats.TotalBets, &stats.TotalWins)
	if err != nil {
		return nil, fmt.Errorf("querying bet stats: %w", err)
	}
	return &stats, nil
}

func (r *BetRepo) ListRecent(ctx context.Context, accountID string, limit int) ([]domain.BetRecord, error) {
	query := `
		SELECT id, account_id, nonce, target, amount, roll, win, payout, server_seed_hash, created_at
		FROM bets
		WHERE account_id = $1
		ORDER BY created_at DESC
		LIMIT $2`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing bets: %w", err)
	}
	defer rows.Close()

	var bets []domain.BetRecord
	for rows.Next() {
		var b domain.BetRecord
		err := rows.Scan(
			&b.ID, &b.AccountID, &b.Nonce, &b.Target, &b.Amount,
			&b.Roll, &b.Win, &b.Payout, &b.ServerSeedHash, &b.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("scanning bet record: %w", err)
		}
		bets = append(bets, b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating bet records: %w", err)
	}
	return bets, nil
}
