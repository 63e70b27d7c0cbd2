package domain

import (
	"time"

	"github.com/google/uuid"
)

// BetRecord is one immutable row of the append-only bet audit trail.
// It captures the nonce consumed and the commitment in force at roll time
// so the outcome can be re-verified once the server seed is revealed.
type BetRecord struct {
	ID             uuid.UUID `json:"id"`
	AccountID      string    `json:"account_id"`
	Nonce          int64     `json:"nonce"`
	Target         int       `json:"target"`
	Amount         int64     `json:"amount"`
	Roll           int       `json:"roll"` // 0..99
	Win            bool      `json:"win"`
	Payout         int64     `json:"payout"` // gross credited amount if win, else 0
	ServerSeedHash string    `json:"server_seed_hash"`
	CreatedAt      time.Time `json:"created_at"`
}

// BetStats aggregates an account's betting history.
type BetStats struct {
	TotalBets int64 `json:"total_bets"`
	TotalWins int64 `json:"total_wins"`
}
