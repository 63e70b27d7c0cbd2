package domain

import (
	"fmt"
	"strings"
)

// MemoPrefix is the literal first field of a well-formed deposit memo.
const MemoPrefix = "GAME"

// DepositEvent is one incoming transaction observed on the external feed,
// reduced to the fields the reconciler needs.
type DepositEvent struct {
	TxHash string `json:"tx_hash"`
	Amount int64  `json:"amount"` // declared value in smallest chain units
	Memo   string `json:"memo"`
	Source string `json:"source"` // sender address; empty for outgoing records
}

// DepositIntent is the parsed payload of a deposit memo.
type DepositIntent struct {
	AccountID string
	Token     string // opaque; carried for traceability only
}

// ParseMemo parses the structured deposit memo GAME:<accountID>:<token>.
// Exactly three colon-separated fields are required, the first being the
// literal GAME; anything else is malformed.
func ParseMemo(memo string) (*DepositIntent, error) {
	parts := strings.Split(memo, ":")
	if len(parts) != 3 {
		return nil, fmt.Errorf("memo must have exactly 3 colon-separated fields, got %d", len(parts))
	}
	if parts[0] != MemoPrefix {
		return nil, fmt.Errorf("memo must start with %q, got %q", MemoPrefix, parts[0])
	}
	if parts[1] == "" {
		return nil, fmt.Errorf("memo account id is empty")
	}
	if parts[2] == "" {
		return nil, fmt.Errorf("memo token is empty")
	}
	return &DepositIntent{AccountID: parts[1], Token: parts[2]}, nil
}
