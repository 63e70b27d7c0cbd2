package domain

import (
	"errors"
	"time"
)

// Sentinel errors shared between storage adapters and services.
var (
	// ErrDuplicateExternalTx marks a ledger insert rejected by the
	// unique index on external_tx_id. Callers treat it as
	// "already applied", not as a failure.
	ErrDuplicateExternalTx = errors.New("external transaction already recorded")

	// ErrRetryable marks a transient storage conflict (serialization
	// failure, deadlock) that can be re-attempted against fresh state.
	ErrRetryable = errors.New("retryable storage conflict")
)

// Account is a player account. The identity is an opaque external principal
// id (a wallet address or messenger user id) supplied by the caller.
//
// Invariants: ServerSeedHash == sha256(serverSeed) at all times; Nonce only
// increases between seed rotations; Balance equals the signed sum of the
// account's ledger entries.
type Account struct {
	ID             string    `json:"id"`
	Balance        int64     `json:"balance"`
	ServerSeedEnc  string    `json:"-"` // AES-256-GCM encrypted, revealed only via proof
	ServerSeedHash string    `json:"server_seed_hash"`
	ClientSeed     string    `json:"client_seed"`
	Nonce          int64     `json:"nonce"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PendingBet is the single staged wager for an account, consumed by the
// next roll. At most one exists per account; placing again overwrites it.
type PendingBet struct {
	AccountID string    `json:"account_id"`
	Target    int       `json:"target"` // roll-under target, 1..99
	Amount    int64     `json:"amount"`
	CreatedAt time.Time `json:"created_at"`
}
