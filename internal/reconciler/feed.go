package reconciler

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

const feedRequestTimeout = 15 * time.Second

// ExplorerFeed implements ports.DepositFeed against a toncenter-compatible
// chain explorer API. The explorer is treated as an untrusted feed: every
// field is validated downstream and a transaction only counts once it
// survives the ledger's unique index.
type ExplorerFeed struct {
	baseURL string
	apiKey  string
	client  *http.Client
	log     zerolog.Logger
}

// NewExplorerFeed creates an explorer-backed deposit feed.
func NewExplorerFeed(baseURL, apiKey string, log zerolog.Logger) *ExplorerFeed {
	return &ExplorerFeed{
		baseURL: baseURL,
		apiKey:  apiKey,
		client:  &http.Client{Timeout: feedRequestTimeout},
		log:     log,
	}
}

type explorerMessage struct {
	Source  string `json:"source"`
	Value   string `json:"value"`
	Message string `json:"message"`
}

type explorerTransaction struct {
	TransactionID struct {
		Hash string `json:"hash"`
	} `json:"transaction_id"`
	InMsg explorerMessage `json:"in_msg"`
}

type explorerResponse struct {
	OK     bool                  `json:"ok"`
	Result []explorerTransaction `json:"result"`
}

// FetchIncoming returns the most recent transactions on the treasury
// address. Records with an unparseable value are skipped with a warning;
// filtering of outgoing and zero-value records is the caller's concern.
func (f *ExplorerFeed) FetchIncoming(ctx context.Context, treasuryAddress string, limit int) ([]domain.DepositEvent, error) {
	endpoint, err := url.Parse(f.baseURL + "/getTransactions")
	if err != nil {
		return nil, fmt.Errorf("building feed url: %w", err)
	}
	q := endpoint.Query()
	q.Set("address", treasuryAddress)
	q.Set("limit", strconv.Itoa(limit))
	endpoint.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("building feed request: %w", err)
	}
	if f.apiKey != "" {
		req.Header.Set("X-API-Key", f.apiKey)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching transactions: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("explorer returned status %d", resp.StatusCode)
	}

	var payload explorerResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decoding explorer response: %w", err)
	}
	if !payload.OK {
		return nil, fmt.Errorf("explorer reported failure")
	}

	events := make([]domain.DepositEvent, 0, len(payload.Result))
	for _, tx := range payload.Result {
		var amount int64
		if tx.InMsg.Value != "" {
			amount, err = strconv.ParseInt(tx.InMsg.Value, 10, 64)
			if err != nil {
				f.log.Warn().Str("tx_hash", tx.TransactionID.Hash).Str("value", tx.InMsg.Value).
					Msg("skipping transaction with unparseable value")
				continue
			}
		}
		events = append(events, domain.DepositEvent{
			TxHash: tx.TransactionID.Hash,
			Amount: amount,
			Memo:   tx.InMsg.Message,
			Source: tx.InMsg.Source,
		})
	}
	return events, nil
}

var _ ports.DepositFeed = (*ExplorerFeed)(nil)
