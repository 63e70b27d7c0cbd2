package service

import (
	"context"
	"testing"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/internal/core/ports/mocks"
	"ton-dice-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
)

type ledgerTestDeps struct {
	svc          *LedgerServiceImpl
	accountRepo  *mocks.MockAccountRepository
	ledgerRepo   *mocks.MockLedgerRepository
	depositCache *mocks.MockDepositCache
	transactor   *mocks.MockDBTransactor
	ctrl         *gomock.Controller
}

func setupLedgerService(t *testing.T) *ledgerTestDeps {
	ctrl := gomock.NewController(t)
	d := &ledgerTestDeps{
		accountRepo:  mocks.NewMockAccountRepository(ctrl),
		ledgerRepo:   mocks.NewMockLedgerRepository(ctrl),
		depositCache: mocks.NewMockDepositCache(ctrl),
		transactor:   mocks.NewMockDBTransactor(ctrl),
		ctrl:         ctrl,
	}
	d.svc = NewLedgerService(d.accountRepo, d.ledgerRepo, d.depositCache, d.transactor, zerolog.Nop())
	return d
}

// mockTx implements pgx.Tx for testing
type mockTx struct{ pgx.Tx }

func (m *mockTx) Rollback(_ context.Context) error { return nil }
func (m *mockTx) Commit(_ context.Context) error   { return nil }

// ==================== Credit Tests ====================

func TestLedgerService_Credit_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	extID := "txhash-1"

	d.depositCache.EXPECT().Seen(ctx, extID).Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 100}, nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryKindCredit, entry.Kind)
			assert.Equal(t, int64(500), entry.Amount)
			require.NotNil(t, entry.ExternalTxID)
			assert.Equal(t, extID, *entry.ExternalTxID)
			return nil
		})
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(600)).Return(nil)
	d.depositCache.EXPECT().Mark(ctx, extID, depositMarkerTTL).Return(nil)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{
		AccountID:    "player-1",
		Amount:       500,
		Memo:         "deposit",
		ExternalTxID: &extID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(600), outcome.Balance)
	assert.False(t, outcome.Duplicate)
}

func TestLedgerService_Credit_DuplicateViaCache(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	extID := "txhash-dup"

	d.depositCache.EXPECT().Seen(ctx, extID).Return(true, nil)
	d.accountRepo.EXPECT().GetByID(ctx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 600}, nil)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{
		AccountID:    "player-1",
		Amount:       500,
		ExternalTxID: &extID,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Duplicate)
	assert.Equal(t, int64(600), outcome.Balance)
}

func TestLedgerService_Credit_DuplicateViaJournal(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	extID := "txhash-dup"

	// Cache missed the marker; the unique index catches the replay.
	d.depositCache.EXPECT().Seen(ctx, extID).Return(false, nil)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 600}, nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(domain.ErrDuplicateExternalTx)
	d.depositCache.EXPECT().Mark(ctx, extID, depositMarkerTTL).Return(nil)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{
		AccountID:    "player-1",
		Amount:       500,
		ExternalTxID: &extID,
	})
	require.NoError(t, err)
	assert.True(t, outcome.Duplicate)
	assert.Equal(t, int64(600), outcome.Balance)
}

func TestLedgerService_Credit_CacheFailureFallsThrough(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	extID := "txhash-2"

	d.depositCache.EXPECT().Seen(ctx, extID).Return(false, assert.AnError)
	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 0}, nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(500)).Return(nil)
	d.depositCache.EXPECT().Mark(ctx, extID, depositMarkerTTL).Return(assert.AnError)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{
		AccountID:    "player-1",
		Amount:       500,
		ExternalTxID: &extID,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(500), outcome.Balance)
}

func TestLedgerService_Credit_NoExternalIDSkipsCache(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 10}, nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(60)).Return(nil)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{AccountID: "player-1", Amount: 50})
	require.NoError(t, err)
	assert.Equal(t, int64(60), outcome.Balance)
}

func TestLedgerService_Credit_InvalidAmount(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	_, err := d.svc.Credit(context.Background(), ports.CreditRequest{AccountID: "player-1", Amount: 0})
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "GAME_001", appErr.Code)
}

func TestLedgerService_Credit_AccountNotFound(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "missing").Return(nil, pgx.ErrNoRows)

	_, err := d.svc.Credit(ctx, ports.CreditRequest{AccountID: "missing", Amount: 50})
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "GAME_004", appErr.Code)
}

func TestLedgerService_Credit_RetriesOnConflict(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil).Times(2)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 0}, nil).Times(2)
	first := d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(domain.ErrRetryable)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).Return(nil).After(first)
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(25)).Return(nil)

	outcome, err := d.svc.Credit(ctx, ports.CreditRequest{AccountID: "player-1", Amount: 25})
	require.NoError(t, err)
	assert.Equal(t, int64(25), outcome.Balance)
}

// ==================== Debit Tests ====================

func TestLedgerService_Debit_Success(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 100}, nil)
	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryKindDebit, entry.Kind)
			assert.Equal(t, int64(40), entry.Amount)
			assert.Nil(t, entry.ExternalTxID)
			return nil
		})
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(60)).Return(nil)

	balance, err := d.svc.Debit(ctx, "player-1", 40, "withdrawal")
	require.NoError(t, err)
	assert.Equal(t, int64(60), balance)
}

func TestLedgerService_Debit_InsufficientFunds(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}

	d.transactor.EXPECT().Begin(ctx).Return(tx, nil)
	d.accountRepo.EXPECT().GetByIDForUpdate(ctx, tx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 30}, nil)

	_, err := d.svc.Debit(ctx, "player-1", 40, "withdrawal")
	require.Error(t, err)
	appErr, ok := err.(*apperror.AppError)
	require.True(t, ok)
	assert.Equal(t, "GAME_002", appErr.Code)
}

// ==================== ApplyBetOutcome Tests ====================

func TestLedgerService_ApplyBetOutcome_Win(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: "player-1", Balance: 1000}

	gomock.InOrder(
		d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
				assert.Equal(t, domain.EntryKindDebit, entry.Kind)
				assert.Equal(t, int64(100), entry.Amount)
				return nil
			}),
		d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
			DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
				assert.Equal(t, domain.EntryKindCredit, entry.Kind)
				assert.Equal(t, int64(198), entry.Amount)
				return nil
			}),
		d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(1098)).Return(nil),
	)

	balance, err := d.svc.ApplyBetOutcome(ctx, tx, account, 100, 198, "bet")
	require.NoError(t, err)
	assert.Equal(t, int64(1098), balance)
}

func TestLedgerService_ApplyBetOutcome_Loss(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()
	tx := &mockTx{}
	account := &domain.Account{ID: "player-1", Balance: 1000}

	d.ledgerRepo.EXPECT().Insert(ctx, tx, gomock.Any()).
		DoAndReturn(func(_ context.Context, _ pgx.Tx, entry *domain.LedgerEntry) error {
			assert.Equal(t, domain.EntryKindDebit, entry.Kind)
			return nil
		})
	d.accountRepo.EXPECT().UpdateBalance(ctx, tx, "player-1", int64(900)).Return(nil)

	balance, err := d.svc.ApplyBetOutcome(ctx, tx, account, 100, 0, "bet")
	require.NoError(t, err)
	assert.Equal(t, int64(900), balance)
}

// ==================== Audit Tests ====================

func TestLedgerService_Audit_Consistent(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.accountRepo.EXPECT().GetByID(ctx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 800}, nil)
	d.ledgerRepo.EXPECT().SumByAccount(ctx, "player-1").Return(int64(1500), int64(700), nil)

	report, err := d.svc.Audit(ctx, "player-1")
	require.NoError(t, err)
	assert.True(t, report.Consistent)
	assert.Equal(t, int64(800), report.StoredBalance)
	assert.Equal(t, int64(800), report.ComputedBalance)
}

func TestLedgerService_Audit_Drift(t *testing.T) {
	d := setupLedgerService(t)
	defer d.ctrl.Finish()

	ctx := context.Background()

	d.accountRepo.EXPECT().GetByID(ctx, "player-1").
		Return(&domain.Account{ID: "player-1", Balance: 850}, nil)
	d.ledgerRepo.EXPECT().SumByAccount(ctx, "player-1").Return(int64(1500), int64(700), nil)

	report, err := d.svc.Audit(ctx, "player-1")
	require.NoError(t, err)
	assert.False(t, report.Consistent)
}
