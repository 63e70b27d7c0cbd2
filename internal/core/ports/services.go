package ports

import (
	"context"
	"time"

	"ton-dice-backend/internal/core/domain"

	"github.com/jackc/pgx/v5"
)

// PlaceBetRequest stages a roll-under wager.
type PlaceBetRequest struct {
	AccountID string
	Target    int
	Amount    int64
}

// BetPreview is returned when a bet is staged.
type BetPreview struct {
	Target          int    `json:"target"`
	Amount          int64  `json:"amount"`
	EdgeBps         int64  `json:"edge_bps"`
	PotentialPayout int64  `json:"potential_payout"`
	ServerSeedHash  string `json:"server_seed_hash"`
}

// RollResult is the settled outcome of a roll.
type RollResult struct {
	Roll           int    `json:"roll"`
	Win            bool   `json:"win"`
	Payout         int64  `json:"payout"`
	NewBalance     int64  `json:"new_balance"`
	Nonce          int64  `json:"nonce"` // the nonce consumed by this roll
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
}

// ProofResult reveals the retiring seed pair and publishes the next commitment.
type ProofResult struct {
	RevealedSeed string `json:"revealed_seed"`
	RevealedHash string `json:"revealed_hash"`
	NewHash      string `json:"new_hash"`
}

// AccountSummary is the player-facing view of an account.
type AccountSummary struct {
	Account    *domain.Account    `json:"account"`
	Stats      *domain.BetStats   `json:"stats"`
	PendingBet *domain.PendingBet `json:"pending_bet,omitempty"`
}

// GameService drives the commit/reveal dice game.
type GameService interface {
	// EnsureAccount returns the account, creating it with a fresh seed
	// pair and the start-balance grant on first interaction.
	EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error)
	SetClientSeed(ctx context.Context, accountID, clientSeed string) error
	PlaceBet(ctx context.Context, req PlaceBetRequest) (*BetPreview, error)
	Roll(ctx context.Context, accountID string) (*RollResult, error)
	RevealAndRotate(ctx context.Context, accountID string) (*ProofResult, error)
	Summary(ctx context.Context, accountID string) (*AccountSummary, error)
	RecentBets(ctx context.Context, accountID string, limit int) ([]domain.BetRecord, error)
}

// CreditRequest is an incoming balance increase. ExternalTxID, when set,
// makes the credit idempotent across the whole journal.
type CreditRequest struct {
	AccountID    string
	Amount       int64
	Memo         string
	ExternalTxID *string
}

// AuditReport compares the materialized balance against the journal sum.
type AuditReport struct {
	AccountID       string `json:"account_id"`
	StoredBalance   int64  `json:"stored_balance"`
	ComputedBalance int64  `json:"computed_balance"`
	Consistent      bool   `json:"consistent"`
}

// LedgerService owns all balance mutations.
type LedgerService interface {
	Credit(ctx context.Context, req CreditRequest) (*domain.CreditOutcome, error)
	Debit(ctx context.Context, accountID string, amount int64, memo string) (int64, error)
	// ApplyBetOutcome writes the stake debit and, when payout > 0, the
	// payout credit plus the balance update inside the caller's
	// transaction, so settlement exposes no intermediate state.
	ApplyBetOutcome(ctx context.Context, tx pgx.Tx, account *domain.Account, stake, payout int64, memo string) (int64, error)
	Audit(ctx context.Context, accountID string) (*AuditReport, error)
}

// TokenClaims are the validated contents of a session token.
type TokenClaims struct {
	AccountID string
}

// TokenService issues and validates player session tokens.
type TokenService interface {
	Generate(accountID string) (string, time.Time, error)
	Validate(token string) (*TokenClaims, error)
}

// EncryptionService protects server seeds at rest.
type EncryptionService interface {
	Encrypt(plaintext string) (string, error)
	Decrypt(ciphertext string) (string, error)
}

// DepositCache is the advisory cross-process marker for applied external
// transactions. It only saves redundant work; the ledger's unique
// constraint remains the authority.
type DepositCache interface {
	Seen(ctx context.Context, externalTxID string) (bool, error)
	Mark(ctx context.Context, externalTxID string, ttl time.Duration) error
}

// DepositFeed is the opaque external source of incoming transactions.
type DepositFeed interface {
	FetchIncoming(ctx context.Context, treasuryAddress string, limit int) ([]domain.DepositEvent, error)
}
