package reconciler

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"ton-dice-backend/config"
	"ton-dice-backend/internal/core/domain"
	"ton-dice-backend/internal/core/ports"
)

// Reconciler polls the external deposit feed and converts on-chain
// transfers carrying a well-formed memo into ledger credits. It is safe to
// run multiple instances and safe to re-see old transactions: the in-memory
// recency set and the Redis marker only trim redundant work, while the
// ledger's unique index guarantees each transaction credits at most once.
type Reconciler struct {
	feed   ports.DepositFeed
	game   ports.GameService
	ledger ports.LedgerService
	cfg    config.ReconcilerConfig
	recent *recencySet
	log    zerolog.Logger
}

// New creates a reconciler.
func New(
	feed ports.DepositFeed,
	game ports.GameService,
	ledger ports.LedgerService,
	cfg config.ReconcilerConfig,
	log zerolog.Logger,
) *Reconciler {
	return &Reconciler{
		feed:   feed,
		game:   game,
		ledger: ledger,
		cfg:    cfg,
		recent: newRecencySet(cfg.RecencySize),
		log:    log,
	}
}

// Run polls until ctx is cancelled. A batch in flight when cancellation
// arrives is finished on a detached, time-bounded context rather than cut
// off halfway.
func (r *Reconciler) Run(ctx context.Context) {
	r.log.Info().
		Str("treasury", r.cfg.TreasuryAddress).
		Dur("interval", r.cfg.PollInterval).
		Msg("deposit reconciler started")

	ticker := time.NewTicker(r.cfg.PollInterval)
	defer ticker.Stop()

	r.pollDetached(ctx)
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("deposit reconciler stopped")
			return
		case <-ticker.C:
			r.pollDetached(ctx)
		}
	}
}

func (r *Reconciler) pollDetached(ctx context.Context) {
	pollCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.cfg.PollInterval)
	defer cancel()
	r.poll(pollCtx)
}

// poll fetches one batch and applies it. A failing record is logged and
// skipped; it must never take the rest of the batch down with it.
func (r *Reconciler) poll(ctx context.Context) {
	events, err := r.feed.FetchIncoming(ctx, r.cfg.TreasuryAddress, r.cfg.BatchLimit)
	if err != nil {
		r.log.Warn().Err(err).Msg("deposit feed fetch failed")
		return
	}

	for _, ev := range events {
		r.process(ctx, ev)
	}
}

func (r *Reconciler) process(ctx context.Context, ev domain.DepositEvent) {
	// Outgoing transfers have no source; zero-value records carry no funds.
	if ev.TxHash == "" || ev.Source == "" || ev.Amount <= 0 {
		return
	}
	if r.recent.Contains(ev.TxHash) {
		return
	}

	intent, err := domain.ParseMemo(ev.Memo)
	if err != nil {
		r.log.Debug().Str("tx_hash", ev.TxHash).Err(err).Msg("ignoring transfer without deposit memo")
		r.recent.Add(ev.TxHash)
		return
	}

	if _, err := r.game.EnsureAccount(ctx, intent.AccountID); err != nil {
		r.log.Warn().Err(err).Str("tx_hash", ev.TxHash).Str("account_id", intent.AccountID).
			Msg("deposit account provisioning failed, will retry")
		return
	}

	txHash := ev.TxHash
	outcome, err := r.ledger.Credit(ctx, ports.CreditRequest{
		AccountID:    intent.AccountID,
		Amount:       ev.Amount,
		Memo:         "chain deposit " + ev.TxHash,
		ExternalTxID: &txHash,
	})
	if err != nil {
		r.log.Warn().Err(err).Str("tx_hash", ev.TxHash).Msg("deposit credit failed, will retry")
		return
	}

	r.recent.Add(ev.TxHash)
	r.log.Info().
		Str("tx_hash", ev.TxHash).
		Str("account_id", intent.AccountID).
		Int64("amount", ev.Amount).
		Bool("duplicate", outcome.Duplicate).
		Msg("deposit reconciled")
}
