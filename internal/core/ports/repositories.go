package ports

import (
	"context"

	"ton-dice-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// AccountRepository defines persistence operations for player accounts.
// Methods accepting pgx.Tx are used inside transaction blocks for
// pessimistic locking — conflicting mutations for the same account are
// serialized on the account row.
type AccountRepository interface {
	Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error
	GetByID(ctx context.Context, id string) (*domain.Account, error)
	GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error)
	UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance int64) error
	UpdateClientSeed(ctx context.Context, id string, clientSeed string) error
	// RotateSeed installs a new seed pair and resets the nonce to zero.
	RotateSeed(ctx context.Context, tx pgx.Tx, id string, seedEnc, seedHash string) error
	// IncrementNonce advances the nonce by exactly one.
	IncrementNonce(ctx context.Context, tx pgx.Tx, id string) error
}

// PendingBetRepository defines persistence for the one-per-account staged bet.
type PendingBetRepository interface {
	// Upsert overwrites any existing pending bet (last-bet-wins).
	Upsert(ctx context.Context, pb *domain.PendingBet) error
	Get(ctx context.Context, accountID string) (*domain.PendingBet, error)
	GetForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.PendingBet, error)
	Delete(ctx context.Context, tx pgx.Tx, accountID string) error
}

// BetRepository defines persistence for the append-only bet audit trail.
type BetRepository interface {
	Create(ctx context.Context, tx pgx.Tx, bet *domain.BetRecord) error
	Stats(ctx context.Context, accountID string) (*domain.BetStats, error)
	ListRecent(ctx context.Context, accountID string, limit int) ([]domain.BetRecord, error)
}

// LedgerRepository defines persistence for the append-only journal.
type LedgerRepository interface {
	// Insert appends one entry. An entry whose ExternalTxID already exists
	// in the journal fails with domain.ErrDuplicateExternalTx.
	Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error
	// SumByAccount recomputes total credits and debits from the journal.
	SumByAccount(ctx context.Context, accountID string) (credits int64, debits int64, err error)
	HasExternalTxID(ctx context.Context, externalTxID string) (bool, error)
}

// DBTransactor provides database transaction management.
type DBTransactor interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}
