package domain

import (
	"time"

	"github.com/google/uuid"
)

// EntryKind is the direction of a ledger entry.
type EntryKind string

const (
	EntryKindDebit  EntryKind = "DEBIT"
	EntryKindCredit EntryKind = "CREDIT"
)

// LedgerEntry is one immutable record of a balance-affecting event.
// Amount is always positive; the kind carries the sign. ExternalTxID is
// set only for deposit-sourced credits and is unique across the journal,
// which is what makes deposit application idempotent.
type LedgerEntry struct {
	ID           uuid.UUID `json:"id"`
	AccountID    string    `json:"account_id"`
	Kind         EntryKind `json:"kind"`
	Amount       int64     `json:"amount"`
	ExternalTxID *string   `json:"external_tx_id,omitempty"`
	Memo         string    `json:"memo"`
	CreatedAt    time.Time `json:"created_at"`
}

// SignedAmount returns the entry's contribution to the account balance.
func (e *LedgerEntry) SignedAmount() int64 {
	if e.Kind == EntryKindDebit {
		return -e.Amount
	}
	return e.Amount
}

// CreditOutcome is the result of an idempotent credit. Duplicate means the
// external transaction id was already present in the journal and no new
// entry was written; Balance is current either way.
type CreditOutcome struct {
	Balance   int64 `json:"balance"`
	Duplicate bool  `json:"duplicate"`
}
