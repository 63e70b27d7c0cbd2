package service

import (
	"context"
	"errors"
	"fmt"

	"ton-dice-backend/config"
	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
	"ton-dice-backend/pkg/apperror"

	"github.com/jackc/pgx/v5"
	"github.com/rs/zerolog"
)

const maxClientSeedLen = 64

// GameServiceImpl implements ports.GameService: the commit/reveal dice
// game on top of the ledger.
type GameServiceImpl struct {
	accountRepo ports.AccountRepository
	pendingRepo ports.PendingBetRepository
	betRepo     ports.BetRepository
	ledgerSvc   ports.LedgerService
	encSvc      ports.EncryptionService
	fairness    *FairnessEngine
	payout      *PayoutPolicy
	transactor  ports.DBTransactor
	cfg         config.GameConfig
	log         zerolog.Logger
}

// NewGameService creates a new GameServiceImpl.
func NewGameService(
	accountRepo ports.AccountRepository,
	pendingRepo ports.PendingBetRepository,
	betRepo ports.BetRepository,
	ledgerSvc ports.LedgerService,
	encSvc ports.EncryptionService,
	fairness *FairnessEngine,
	payout *PayoutPolicy,
	transactor ports.DBTransactor,
	cfg config.GameConfig,
	log zerolog.Logger,
) *GameServiceImpl {
	return &GameServiceImpl{
		accountRepo: accountRepo,
		pendingRepo: pendingRepo,
		betRepo:     betRepo,
		ledgerSvc:   ledgerSvc,
		encSvc:      encSvc,
		fairness:    fairness,
		payout:      payout,
		transactor:  transactor,
		cfg:         cfg,
		log:         log,
	}
}

// EnsureAccount returns the account for the principal id, creating it on
// first contact with a fresh seed pair and the start-balance grant. The
// grant goes through the ledger under a deterministic external id, so a
// lost race or a retried request can never grant it twice.
func (s *GameServiceImpl) EnsureAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	if accountID == "" {
		return nil, apperror.Validation("account id is required")
	}

	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err == nil {
		return account, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}

	account, err = s.createAccount(ctx, accountID)
	if err != nil {
		return nil, err
	}

	startTxID := "start:" + accountID
	outcome, err := s.ledgerSvc.Credit(ctx, ports.CreditRequest{
		AccountID:    accountID,
		Amount:       s.cfg.StartBalance,
		Memo:         "start balance grant",
		ExternalTxID: &startTxID,
	})
	if err != nil {
		return nil, err
	}
	account.Balance = outcome.Balance

	s.log.Info().Str("account_id", accountID).Int64("balance", account.Balance).
		Msg("account provisioned")
	return account, nil
}

func (s *GameServiceImpl) createAccount(ctx context.Context, accountID string) (*domain.Account, error) {
	seed, err := s.fairness.GenerateServerSeed()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate seed: %w", err))
	}
	hash, err := s.fairness.HashServerSeed(seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash seed: %w", err))
	}
	seedEnc, err := s.encSvc.Encrypt(seed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt seed: %w", err))
	}

	account := &domain.Account{
		ID:             accountID,
		Balance:        0,
		ServerSeedEnc:  seedEnc,
		ServerSeedHash: hash,
		ClientSeed:     accountID, // player-visible default until changed
	}

	dbTx, err := s.transactor.Begin(ctx)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("begin tx: %w", err))
	}
	defer dbTx.Rollback(ctx) //nolint:errcheck

	if err := s.accountRepo.Create(ctx, dbTx, account); err != nil {
		// Lost the creation race: another request inserted the row first.
		if errors.Is(err, domain.ErrDuplicateExternalTx) {
			return s.accountRepo.GetByID(ctx, accountID)
		}
		return nil, apperror.InternalError(fmt.Errorf("create account: %w", err))
	}
	if err := dbTx.Commit(ctx); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("commit tx: %w", err))
	}
	return account, nil
}

// SetClientSeed updates the player-chosen seed half of the roll input.
func (s *GameServiceImpl) SetClientSeed(ctx context.Context, accountID, clientSeed string) error {
	if clientSeed == "" {
		return apperror.Validation("client seed is required")
	}
	if len(clientSeed) > maxClientSeedLen {
		return apperror.Validation(fmt.Sprintf("client seed must be at most %d characters", maxClientSeedLen))
	}

	if err := s.accountRepo.UpdateClientSeed(ctx, accountID, clientSeed); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return apperror.ErrNoAccount()
		}
		return apperror.InternalError(fmt.Errorf("update client seed: %w", err))
	}
	return nil
}

// PlaceBet stages a wager for the next roll. A pending bet is overwritten
// by a newer one; funds are not held until the roll settles.
func (s *GameServiceImpl) PlaceBet(ctx context.Context, req ports.PlaceBetRequest) (*ports.BetPreview, error) {
	if req.Target < 1 || req.Target > 99 {
		return nil, apperror.ErrInvalidTarget()
	}
	if req.Amount < s.cfg.MinBet || req.Amount > s.cfg.MaxBet {
		return nil, apperror.Validation(fmt.Sprintf("bet amount must be between %d and %d", s.cfg.MinBet, s.cfg.MaxBet))
	}

	account, err := s.accountRepo.GetByID(ctx, req.AccountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNoAccount()
		}
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}
	if account.Balance < req.Amount {
		return nil, apperror.ErrInsufficientFunds()
	}

	pb := &domain.PendingBet{
		AccountID: req.AccountID,
		Target:    req.Target,
		Amount:    req.Amount,
	}
	if err := s.pendingRepo.Upsert(ctx, pb); err != nil {
		return nil, apperror.InternalError(fmt.Errorf("stage bet: %w", err))
	}

	edge := s.payout.DynamicEdgeBps(req.Target)
	return &ports.BetPreview{
		Target:          req.Target,
		Amount:          req.Amount,
		EdgeBps:         edge,
		PotentialPayout: s.payout.Payout(req.Amount, req.Target),
		ServerSeedHash:  account.ServerSeedHash,
	}, nil
}

// Roll settles the pending bet in one transaction: the account row is
// locked, the roll derived from the committed seed and the current nonce,
// the stake and any payout journaled, the bet recorded, the pending bet
// consumed, and the nonce advanced. Either all of it commits or none.
func (s *GameServiceImpl) Roll(ctx context.Context, accountID string) (*ports.RollResult, error) {
	var result *ports.RollResult
	err := withRetry(ctx, s.log, func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.ErrNoAccount()
			}
			return fmt.Errorf("lock account: %w", err)
		}

		pending, err := s.pendingRepo.GetForUpdate(ctx, dbTx, accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.ErrNoPendingBet()
			}
			return fmt.Errorf("lock pending bet: %w", err)
		}

		// Balance may have dropped since the bet was staged.
		if account.Balance < pending.Amount {
			return apperror.ErrInsufficientFunds()
		}

		seed, err := s.encSvc.Decrypt(account.ServerSeedEnc)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("decrypt seed: %w", err))
		}

		roll, err := s.fairness.ComputeRoll(seed, account.ClientSeed, account.Nonce)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("compute roll: %w", err))
		}

		win := roll < pending.Target
		var payout int64
		if win {
			payout = s.payout.Payout(pending.Amount, pending.Target)
		}

		memo := fmt.Sprintf("bet target=%d roll=%d nonce=%d", pending.Target, roll, account.Nonce)
		newBalance, err := s.ledgerSvc.ApplyBetOutcome(ctx, dbTx, account, pending.Amount, payout, memo)
		if err != nil {
			return fmt.Errorf("apply bet outcome: %w", err)
		}

		bet := &domain.BetRecord{
			AccountID:      accountID,
			Nonce:          account.Nonce,
			Target:         pending.Target,
			Amount:         pending.Amount,
			Roll:           roll,
			Win:            win,
			Payout:         payout,
			ServerSeedHash: account.ServerSeedHash,
		}
		if err := s.betRepo.Create(ctx, dbTx, bet); err != nil {
			return fmt.Errorf("record bet: %w", err)
		}

		if err := s.pendingRepo.Delete(ctx, dbTx, accountID); err != nil {
			return fmt.Errorf("consume pending bet: %w", err)
		}
		if err := s.accountRepo.IncrementNonce(ctx, dbTx, accountID); err != nil {
			return fmt.Errorf("advance nonce: %w", err)
		}

		if err := dbTx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		result = &ports.RollResult{
			Roll:           roll,
			Win:            win,
			Payout:         payout,
			NewBalance:     newBalance,
			Nonce:          account.Nonce,
			ServerSeedHash: account.ServerSeedHash,
			ClientSeed:     account.ClientSeed,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("account_id", accountID).
		Int("roll", result.Roll).
		Bool("win", result.Win).
		Int64("payout", result.Payout).
		Int64("nonce", result.Nonce).
		Msg("bet settled")
	return result, nil
}

// RevealAndRotate discloses the current server seed so past rolls become
// verifiable, then installs a fresh seed pair, resets the nonce, and
// clears any staged bet.
func (s *GameServiceImpl) RevealAndRotate(ctx context.Context, accountID string) (*ports.ProofResult, error) {
	newSeed, err := s.fairness.GenerateServerSeed()
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("generate seed: %w", err))
	}
	newHash, err := s.fairness.HashServerSeed(newSeed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("hash seed: %w", err))
	}
	newSeedEnc, err := s.encSvc.Encrypt(newSeed)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("encrypt seed: %w", err))
	}

	var proof *ports.ProofResult
	err = withRetry(ctx, s.log, func(ctx context.Context) error {
		dbTx, err := s.transactor.Begin(ctx)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("begin tx: %w", err))
		}
		defer dbTx.Rollback(ctx) //nolint:errcheck

		account, err := s.accountRepo.GetByIDForUpdate(ctx, dbTx, accountID)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return apperror.ErrNoAccount()
			}
			return fmt.Errorf("lock account: %w", err)
		}

		revealed, err := s.encSvc.Decrypt(account.ServerSeedEnc)
		if err != nil {
			return apperror.InternalError(fmt.Errorf("decrypt seed: %w", err))
		}

		if err := s.accountRepo.RotateSeed(ctx, dbTx, accountID, newSeedEnc, newHash); err != nil {
			return fmt.Errorf("rotate seed: %w", err)
		}
		// A bet staged against the retiring commitment must not settle
		// under the new one.
		if err := s.pendingRepo.Delete(ctx, dbTx, accountID); err != nil {
			return fmt.Errorf("clear pending bet: %w", err)
		}
		if err := dbTx.Commit(ctx); err != nil {
			return fmt.Errorf("commit tx: %w", err)
		}

		proof = &ports.ProofResult{
			RevealedSeed: revealed,
			RevealedHash: account.ServerSeedHash,
			NewHash:      newHash,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().Str("account_id", accountID).Msg("server seed revealed and rotated")
	return proof, nil
}

const (
	defaultRecentBets = 20
	maxRecentBets     = 100
)

// RecentBets returns the newest settled bets for an account.
func (s *GameServiceImpl) RecentBets(ctx context.Context, accountID string, limit int) ([]domain.BetRecord, error) {
	if limit <= 0 {
		limit = defaultRecentBets
	}
	if limit > maxRecentBets {
		limit = maxRecentBets
	}

	bets, err := s.betRepo.ListRecent(ctx, accountID, limit)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("list bets: %w", err))
	}
	return bets, nil
}

// Summary returns the player-facing account view.
func (s *GameServiceImpl) Summary(ctx context.Context, accountID string) (*ports.AccountSummary, error) {
	account, err := s.accountRepo.GetByID(ctx, accountID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperror.ErrNoAccount()
		}
		return nil, apperror.InternalError(fmt.Errorf("get account: %w", err))
	}

	stats, err := s.betRepo.Stats(ctx, accountID)
	if err != nil {
		return nil, apperror.InternalError(fmt.Errorf("get bet stats: %w", err))
	}

	summary := &ports.AccountSummary{Account: account, Stats: stats}

	pending, err := s.pendingRepo.Get(ctx, accountID)
	if err == nil {
		summary.PendingBet = pending
	} else if !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperror.InternalError(fmt.Errorf("get pending bet: %w", err))
	}

	return summary, nil
}
