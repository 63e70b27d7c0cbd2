package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const (
	maxTxRetries     = 3
	depositMarkerTTL = 24 * time.Hour
)

// LedgerServiceImpl implements ports.LedgerService. Every balance change
// goes through a locked account row plus a journal append inside one
// database transaction, so the materialized balance and the journal can
// never drift under concurrency.
type LedgerServiceImpl struct {
	accountRepo  ports.AccountRepository
	ledgerRepo   ports.LedgerRepository
	depositCache ports.DepositCache
	transactor   ports.DBTransactor
	log          zerolog.Logger
}

// NewLedgerService creates a new LedgerServiceImpl.
func NewLedgerService(
	accountRepo ports.AccountRepository,
	ledgerRepo ports.LedgerRepository,
	depositCache ports.DepositCache,
	transactor ports.DBTransactor,
	log zerolog.Logger,
) *LedgerServiceImpl {
	return &LedgerServiceImpl{
		accountRepo:  accountRepo,
		ledgerRepo:   ledgerRepo,
		depositCache: depositCache,
		transactor:   transactor,
		log:          log,
	}
}

// Credit applies an idempotent balance increase. When ExternalTxID is set
// the operation has two idempotency layers: an advisory Redis marker that
// skips redundant work, and the journal's unique index, which is the
// authority. A duplicate is reported as success with Duplicate=true.
func (s *LedgerServiceImpl) Credit(ctx context.Context, req ports.CreditRequest) (*domain.CreditOutcome, error) {
	if req.Amount <= 0 {
		return nil, apperror.ErrInvalidAmount()
	}

	// Layer 1: advisory Redis check. Errors fall through to the database.
	if req.ExternalTxID != nil {
		seen, err := s.depositCache.Seen(ctx, *req.ExternalTxID)
		if err != nil {
			s.log.Warn().Err(err).Str("external_tx_id", *req.ExternalTxID).
				Msg("deposit cache check failed, falling through to DB")
		}
		if seen {
			return s.duplicateOutcome(ctx, req.AccountID)
		}
	}

	var outcome *domain.CreditOutcome
	err := withRetry(ctx, s.log, func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, req.AccountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.ErrNoAccount()
			}
			return fmt.Errorf("lock account: %w", err)
		}

		entry := &domain.LedgerEntry{
			AccountID:    req.AccountID,
			Kind:         domain.EntryKindCredit,
			Amount:       req.Amount,
			ExternalTxID: req.ExternalTxID,
			Memo:         req.Memo,
		}
		if err := s.ledgerRepo.Insert(ctx, dbTx, entry); err != nil {
			if errors.Is(err, domain.ErrDuplicateExternalTx) {
				// Layer 2: already journaled. Current balance is authoritative.
				outcome = &domain.CreditOutcome{Balance: account.Balance, Duplicate: true}
				return nil
			}
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		newBalance := account.Balance + req.Amount
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, req.AccountID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		if err := dbTx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}
		outcome = &domain.CreditOutcome{Balance: newBalance}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if req.ExternalTxID != nil {
		if err := s.depositCache.Mark(ctx, *req.ExternalTxID, depositMarkerTTL); err != nil {
			s.log.Warn().Err(err).Str("external_tx_id", *req.ExternalTxID).
				Msg("deposit cache mark failed")
		}
	}

	s.log.Info().
		Str("account_id", req.AccountID).
		Int64("amount", req.Amount).
		Bool("duplicate", outcome.Duplicate).
		Msg("credit applied")
	return outcome, nil
}

// Debit applies a balance decrease, rejecting overdrafts.
func (s *LedgerServiceImpl) Debit(ctx context.Context, accountID string, amount int64, memo string) (int64, error) {
	if amount <= 0 {
		return 0, apperror.ErrInvalidAmount()
	}

	var newBalance int64
	err := withRetry(ctx, s.log, func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return fmt.Errorf("begin tx: %w", err)
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.ErrNoAccount()
			}
			return fmt.Errorf("lock account: %w", err)
		}

		if account.Balance < amount {
			return apperror.ErrInsufficientFunds()
		}

		entry := &domain.LedgerEntry{
			AccountID: accountID,
			Kind:      domain.EntryKindDebit,
			Amount:    amount,
			Memo:      memo,
		}
		if err := s.ledgerRepo.Insert(ctx, dbTx, entry); err != nil {
			return fmt.Errorf("insert ledger entry: %w", err)
		}

		newBalance = account.Balance - amount
		if err := s.accountRepo.UpdateBalance(ctx, dbTx, accountID, newBalance); err != nil {
			return fmt.Errorf("update balance: %w", err)
		}

		return dbTx.Commit(ctx)
	})
	if err != nil {
		return 0, err
	}
	return newBalance, nil
}

// ApplyBetOutcome journals a settled bet inside the caller's transaction:
// one debit for the stake and, on a win, one credit for the payout, then
// the balance update. The caller holds the account lock and commits.
func (s *LedgerServiceImpl) ApplyBetOutcome(ctx context.Context, tx pgx.Tx, account *domain.Account, stake, payout int64, memo string) (int64, error) {
	debit := &domain.LedgerEntry{
		AccountID: account.ID,
		Kind:      domain.EntryKindDebit,
		Amount:    stake,
		Memo:      memo,
	}
	if err := s.ledgerRepo.Insert(ctx, tx, debit); err != nil {
		return 0, fmt.Errorf("insert stake debit: %w", err)
	}

	newBalance := account.Balance - stake
	if payout > 0 {
		credit := &domain.LedgerEntry{
			AccountID: account.ID,
			Kind:      domain.EntryKindCredit,
			Amount:    payout,
			Memo:      memo,
		}
		if err := s.ledgerRepo.Insert(ctx, tx, credit); err != nil {
			return 0, fmt.Errorf("insert payout credit: %w", err)
		}
		newBalance += payout
	}

	if err := s.accountRepo.UpdateBalance(ctx, tx, account.ID, newBalance); err != nil {
		return 0, fmt.Errorf("update balance: %w", err)
	}
	return newBalance, nil
}

// Audit recomputes the balance from the journal and compares it with the
// materialized account balance.
func (s *LedgerServiceImpl) Audit(ctx context.Context, accountID string) (*ports.AuditReport, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNoAccount()
		}
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}

	credits, debits, err := s.ledgerRepo.SumByAccount(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("sum ledger: %w", err))
	}

	computed := credits - debits
	return &ports.AuditReport{
		AccountID:       accountID,
		StoredBalance:   account.Balance,
		ComputedBalance: computed,
		Consistent:      account.Balance == computed,
	}, nil
}

// duplicateOutcome reports an already-applied credit using the current
// balance.
func (s *LedgerServiceImpl) duplicateOutcome(ctx context.Context, accountID string) (*domain.CreditOutcome, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNoAccount()
		}
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	return &domain.CreditOutcome{Balance: account.Balance, Duplicate: true}, nil
}

// withRetry re-runs fn on transient storage conflicts with a short linear
// backoff, then surfaces the conflict as LEDGER_002.
func withRetry(ctx context.Context, log zerolog.Logger, fn func(ctx context.Context) error) error {
	var err error
	for attempt := 1; attempt <= maxTxRetries; attempt++ {
		err = fn(ctx)
		if err == nil || !errors.Is(err, domain.ErrRetryable) {
			return err
		}
		log.Warn().Err(err).Int("attempt", attempt).Msg("retryable storage conflict")

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(time.Duration(attempt) * 20 * time.Millisecond):
		}
	}
	return apperror.ErrStorageConflict(err)
}
