package integration

import (
	"context"
	"sync"

	"ton-dice-backend/internal/core/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// --- In-Memory Account Repo ---

type inMemoryAccountRepo struct {
	mu       sync.RWMutex
	accounts map[string]*domain.Account
}

func newInMemoryAccountRepo() *inMemoryAccountRepo {
	return &inMemoryAccountRepo{accounts: make(map[string]*domain.Account)}
}

func (r *inMemoryAccountRepo) Create(ctx context.Context, tx pgx.Tx, a *domain.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[a.ID]; ok {
		return domain.ErrDuplicateExternalTx
	}
	cp := *a
	r.accounts[a.ID] = &cp
	return nil
}

func (r *inMemoryAccountRepo) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	a, ok := r.accounts[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *a
	return &cp, nil
}

func (r *inMemoryAccountRepo) GetByIDForUpdate(ctx context.Context, tx pgx.Tx, id string) (*domain.Account, error) {
	return r.GetByID(ctx, id)
}

func (r *inMemoryAccountRepo) UpdateBalance(ctx context.Context, tx pgx.Tx, id string, balance int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Balance = balance
	return nil
}

func (r *inMemoryAccountRepo) UpdateClientSeed(ctx context.Context, id string, clientSeed string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.ClientSeed = clientSeed
	return nil
}

func (r *inMemoryAccountRepo) RotateSeed(ctx context.Context, tx pgx.Tx, id string, seedEnc, seedHash string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.ServerSeedEnc = seedEnc
	a.ServerSeedHash = seedHash
	a.Nonce = 0
	return nil
}

func (r *inMemoryAccountRepo) IncrementNonce(ctx context.Context, tx pgx.Tx, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.accounts[id]
	if !ok {
		return pgx.ErrNoRows
	}
	a.Nonce++
	return nil
}

// --- In-Memory Pending Bet Repo ---

type inMemoryPendingBetRepo struct {
	mu      sync.RWMutex
	pending map[string]*domain.PendingBet
}

func newInMemoryPendingBetRepo() *inMemoryPendingBetRepo {
	return &inMemoryPendingBetRepo{pending: make(map[string]*domain.PendingBet)}
}

func (r *inMemoryPendingBetRepo) Upsert(ctx context.Context, pb *domain.PendingBet) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	cp := *pb
	r.pending[pb.AccountID] = &cp
	return nil
}

func (r *inMemoryPendingBetRepo) Get(ctx context.Context, accountID string) (*domain.PendingBet, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	pb, ok := r.pending[accountID]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	cp := *pb
	return &cp, nil
}

func (r *inMemoryPendingBetRepo) GetForUpdate(ctx context.Context, tx pgx.Tx, accountID string) (*domain.PendingBet, error) {
	return r.Get(ctx, accountID)
}

func (r *inMemoryPendingBetRepo) Delete(ctx context.Context, tx pgx.Tx, accountID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.pending, accountID)
	return nil
}

// --- In-Memory Bet Repo ---

type inMemoryBetRepo struct {
	mu   sync.RWMutex
	bets []domain.BetRecord
}

func newInMemoryBetRepo() *inMemoryBetRepo {
	return &inMemoryBetRepo{}
}

func (r *inMemoryBetRepo) Create(ctx context.Context, tx pgx.Tx, bet *domain.BetRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if bet.ID == uuid.Nil {
		bet.ID = uuid.New()
	}
	r.bets = append(r.bets, *bet)
	return nil
}

func (r *inMemoryBetRepo) Stats(ctx context.Context, accountID string) (*domain.BetStats, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	stats := &domain.BetStats{}
	for _, b := range r.bets {
		if b.AccountID != accountID {
			continue
		}
		stats.TotalBets++
		if b.Win {
			stats.TotalWins++
		}
	}
	return stats, nil
}

func (r *inMemoryBetRepo) ListRecent(ctx context.Context, accountID string, limit int) ([]domain.BetRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var out []domain.BetRecord
	for i := len(r.bets) - 1; i >= 0 && len(out) < limit; i-- {
		if r.bets[i].AccountID == accountID {
			out = append(out, r.bets[i])
		}
	}
	return out, nil
}

// --- In-Memory Ledger Repo ---

type inMemoryLedgerRepo struct {
	mu       sync.RWMutex
	entries  []domain.LedgerEntry
	external map[string]bool
}

func newInMemoryLedgerRepo() *inMemoryLedgerRepo {
	return &inMemoryLedgerRepo{external: make(map[string]bool)}
}

func (r *inMemoryLedgerRepo) Insert(ctx context.Context, tx pgx.Tx, entry *domain.LedgerEntry) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ExternalTxID != nil {
		if r.external[*entry.ExternalTxID] {
			return domain.ErrDuplicateExternalTx
		}
		r.external[*entry.ExternalTxID] = true
	}
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	r.entries = append(r.entries, *entry)
	return nil
}

func (r *inMemoryLedgerRepo) SumByAccount(ctx context.Context, accountID string) (int64, int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var credits, debits int64
	for _, e := range r.entries {
		if e.AccountID != accountID {
			continue
		}
		if e.Kind == domain.EntryKindCredit {
			credits += e.Amount
		} else {
			debits += e.Amount
		}
	}
	return credits, debits, nil
}

func (r *inMemoryLedgerRepo) HasExternalTxID(ctx context.Context, externalTxID string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.external[externalTxID], nil
}

// --- In-Memory Transactor ---

// inMemoryTransactor serializes whole transactions on one mutex, standing in
// for the row locks the real storage takes with SELECT ... FOR UPDATE.
type inMemoryTransactor struct {
	mu sync.Mutex
}

func newInMemoryTransactor() *inMemoryTransactor {
	return &inMemoryTransactor{}
}

func (t *inMemoryTransactor) Begin(ctx context.Context) (pgx.Tx, error) {
	t.mu.Lock()
	return &lockTx{mu: &t.mu}, nil
}

// lockTx is a pgx.Tx stand-in that releases the transactor lock on the
// first Commit or Rollback.
type lockTx struct {
	mu   *sync.Mutex
	once sync.Once
}

func (t *lockTx) release() {
	t.once.Do(t.mu.Unlock)
}

func (t *lockTx) Begin(ctx context.Context) (pgx.Tx, error) { return t, nil }
func (t *lockTx) Commit(ctx context.Context) error          { t.release(); return nil }
func (t *lockTx) Rollback(ctx context.Context) error        { t.release(); return nil }
func (t *lockTx) CopyFrom(ctx context.Context, tableName pgx.Identifier, columnNames []string, rowSrc pgx.CopyFromSource) (int64, error) {
	return 0, nil
}
func (t *lockTx) SendBatch(ctx context.Context, b *pgx.Batch) pgx.BatchResults { return nil }
func (t *lockTx) LargeObjects() pgx.LargeObjects                               { return pgx.LargeObjects{} }
func (t *lockTx) Prepare(ctx context.Context, name, sql string) (*pgconn.StatementDescription, error) {
	return nil, nil
}
func (t *lockTx) Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error) {
	return pgconn.NewCommandTag(""), nil
}
func (t *lockTx) Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
	return nil, nil
}
func (t *lockTx) QueryRow(ctx context.Context, sql string, args ...any) pgx.Row {
	return nil
}
func (t *lockTx) Conn() *pgx.Conn { return nil }
