package dto

// ConnectRequest is the request body for establishing a player session.
type ConnectRequest struct {
	AccountID string `json:"account_id" binding:"required,min=1,max=64,safe_id"`
}

// ConnectResponse is the response body for a successful connect.
type ConnectResponse struct {
	AccountID      string `json:"account_id"`
	Balance        int64  `json:"balance"`
	ServerSeedHash string `json:"server_seed_hash"`
	ClientSeed     string `json:"client_seed"`
	Nonce          int64  `json:"nonce"`
	Token          string `json:"token"`
	TokenExpiry    int64  `json:"token_expiry"` // Unix timestamp
}

// ClientSeedRequest is the request body for setting the client seed.
type ClientSeedRequest struct {
	ClientSeed string `json:"client_seed" binding:"required,min=1,max=64,safe_id"`
}

// PlaceBetRequest is the request body for staging a bet.
type PlaceBetRequest struct {
	Target int   `json:"target" binding:"required,min=1,max=99"`
	Amount int64 `json:"amount" binding:"required,gt=0"`
}

// VerifyQuery holds the query parameters of a fairness verification.
// Target is optional; when set the win outcome is reported as well.
type VerifyQuery struct {
	ServerSeed string `form:"server_seed" binding:"required,len=64,hexadecimal"`
	ClientSeed string `form:"client_seed" binding:"required,max=64"`
	Nonce      int64  `form:"nonce" binding:"min=0"`
	Expected   string `form:"expected_hash" binding:"omitempty,len=64,hexadecimal"`
	Target     int    `form:"target" binding:"omitempty,min=1,max=99"`
}

// VerifyResponse is the result of an offline fairness verification.
type VerifyResponse struct {
	Roll        int    `json:"roll"`
	SeedHash    string `json:"seed_hash"`
	HashMatches *bool  `json:"hash_matches,omitempty"`
	Win         *bool  `json:"win,omitempty"`
}
