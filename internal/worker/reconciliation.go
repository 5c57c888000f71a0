package worker

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"voyagepay/internal/domain"
	"voyagepay/internal/infrastructure/gateway"
	"voyagepay/internal/repo"
	"voyagepay/internal/service"
)

const stuckBatchSize = 50

// ReconciliationWorker finalizes intents stuck in pending. A gateway timeout
// can leave the processor settled while the orchestrator saw an error; the
// gateway's status endpoint is the source of truth for those rows.
type ReconciliationWorker struct {
	db        *sql.DB
	intents   repo.IntentRepo
	txns      repo.TransactionRepo
	receipts  repo.ReceiptRepo
	cards     gateway.CardGateway
	receipt   *service.ReceiptGenerator
	log       *zap.Logger
	interval  time.Duration
	olderThan time.Duration
}

func NewReconciliationWorker(
	db *sql.DB,
	intents repo.IntentRepo,
	txns repo.TransactionRepo,
	receipts repo.ReceiptRepo,
	cards gateway.CardGateway,
	log *zap.Logger,
	interval, olderThan time.Duration,
) *ReconciliationWorker {
	return &ReconciliationWorker{
		db:        db,
		intents:   intents,
		txns:      txns,
		receipts:  receipts,
		cards:     cards,
		receipt:   service.NewReceiptGenerator(),
		log:       log,
		interval:  interval,
		olderThan: olderThan,
	}
}

func (w *ReconciliationWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.log.Info("reconciliation worker started", zap.Duration("interval", w.interval))

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.process(ctx); err != nil {
				w.log.Error("reconciliation pass failed", zap.Error(err))
			}
		}
	}
}

func (w *ReconciliationWorker) process(ctx context.Context) error {
	stuck, err := w.intents.FindStuckPending(ctx, w.olderThan, stuckBatchSize)
	if err != nil {
		return err
	}
	if len(stuck) == 0 {
		return nil
	}

	w.log.Info("found stuck payment intents", zap.Int("count", len(stuck)))

	for i := range stuck {
		intent := &stuck[i]
		if err := w.reconcile(ctx, intent); err != nil {
			w.log.Error("failed to reconcile intent",
				zap.String("intent_id", intent.ID),
				zap.Error(err),
			)
		}
	}
	return nil
}

func (w *ReconciliationWorker) reconcile(ctx context.Context, intent *domain.PaymentIntent) error {
	// Only a card intent with an open provider intent can have settled
	// behind our back. Everything else stuck in pending is abandoned.
	if intent.Method.Kind() == domain.MethodCreditCard && intent.ProviderIntentID != "" {
		charged, err := w.cards.CheckStatus(ctx, intent.ProviderIntentID)
		if err != nil {
			return err // leave it for the next pass
		}
		if charged {
			w.log.Info("recovering ghost settlement", zap.String("intent_id", intent.ID))
			return w.finalize(ctx, intent, domain.IntentCompleted)
		}
	}
	return w.finalize(ctx, intent, domain.IntentFailed)
}

func (w *ReconciliationWorker) finalize(ctx context.Context, intent *domain.PaymentIntent, to domain.IntentStatus) error {
	tx, err := w.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	claimed, err := w.intents.ClaimPending(ctx, tx, intent.ID, to)
	if err != nil {
		return err
	}
	if !claimed {
		return nil // someone else got there first
	}

	if to == domain.IntentCompleted {
		now := time.Now()
		txn := &domain.PaymentTransaction{
			ID:                    domain.NewID(domain.TransactionIDPrefix),
			PaymentIntentID:       intent.ID,
			BookingID:             intent.BookingID,
			UserID:                intent.UserID,
			Amount:                intent.Amount,
			Currency:              intent.Currency,
			Type:                  domain.TxnCharge,
			Status:                domain.TxnCompleted,
			Provider:              domain.ProviderStripe,
			ProviderTransactionID: "recovered",
			ProcessedAt:           &now,
			CreatedAt:             now,
		}
		if err := w.txns.Create(ctx, tx, txn); err != nil {
			return err
		}
		receipt := w.receipt.Generate(intent, txn, nil, now)
		if err := w.receipts.Create(ctx, tx, receipt); err != nil {
			return err
		}
	}
	return tx.Commit()
}
