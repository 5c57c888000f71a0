package service

import (
	"context"
	"database/sql"
	"time"

	"go.uber.org/zap"

	"voyagepay/internal/domain"
	"voyagepay/internal/infrastructure/gateway"
	"voyagepay/internal/locker"
	"voyagepay/internal/repo"
)

const intentLockTTL = 30 * time.Second

type CreateIntentInput struct {
	BookingID string
	UserID    string
	Amount    int64
	Currency  string
	Method    domain.PaymentMethod
	Metadata  map[string]string
}

type ConfirmInput struct {
	// PaymentMethodID is the tokenized card method handed to the gateway.
	PaymentMethodID string
}

type RefundInput struct {
	// Amount in minor units; zero means refund the full original amount.
	Amount int64
	Reason string
}

// Result is the uniform shape every orchestrator operation returns. Errors
// are values here: nothing is thrown past this boundary.
type Result struct {
	Success       bool
	PaymentIntent *domain.PaymentIntent
	Transaction   *domain.PaymentTransaction
	Refunds       []domain.PaymentTransaction
	Receipt       *domain.PaymentReceipt
	Code          domain.ErrorCode
	Error         string
}

type PaymentService interface {
	CreateIntent(ctx context.Context, in CreateIntentInput) Result
	ConfirmIntent(ctx context.Context, userID, intentID string, in ConfirmInput) Result
	RefundIntent(ctx context.Context, userID, intentID string, in RefundInput) Result
	GetIntent(ctx context.Context, userID, intentID string) Result
	ListBookingTransactions(ctx context.Context, userID, bookingID string) ([]domain.PaymentTransaction, error)
}

type paymentService struct {
	db       *sql.DB
	intents  repo.IntentRepo
	txns     repo.TransactionRepo
	receipts repo.ReceiptRepo
	cards    gateway.CardGateway
	ledger   gateway.PointsLedger
	locks    locker.Locker
	receipt  *ReceiptGenerator
	log      *zap.Logger
}

func NewPaymentService(
	db *sql.DB,
	intents repo.IntentRepo,
	txns repo.TransactionRepo,
	receipts repo.ReceiptRepo,
	cards gateway.CardGateway,
	ledger gateway.PointsLedger,
	locks locker.Locker,
	log *zap.Logger,
) PaymentService {
	return &paymentService{
		db:       db,
		intents:  intents,
		txns:     txns,
		receipts: receipts,
		cards:    cards,
		ledger:   ledger,
		locks:    locks,
		receipt:  NewReceiptGenerator(),
		log:      log,
	}
}

func failure(err error) Result {
	return Result{Success: false, Code: domain.CodeOf(err), Error: err.Error()}
}

func (s *paymentService) recoverResult(res *Result) {
	if r := recover(); r != nil {
		s.log.Error("payment operation panicked", zap.Any("panic", r))
		*res = Result{Success: false, Code: domain.CodeUnknown, Error: "internal error"}
	}
}

func validCurrency(c string) bool {
	if len(c) != 3 {
		return false
	}
	for _, r := range c {
		if r < 'A' || r > 'Z' {
			return false
		}
	}
	return true
}

func (s *paymentService) CreateIntent(ctx context.Context, in CreateIntentInput) (res Result) {
	defer s.recoverResult(&res)

	if in.Amount < 0 {
		return failure(domain.ValidationError("amount must not be negative"))
	}
	if !validCurrency(in.Currency) {
		return failure(domain.ValidationError("currency must be a 3-letter ISO-4217 code"))
	}
	if in.BookingID == "" || in.UserID == "" {
		return failure(domain.ValidationError("bookingId and userId are required"))
	}
	if err := in.Method.Validate(); err != nil {
		return failure(err)
	}

	now := time.Now()
	intent := &domain.PaymentIntent{
		ID:        domain.NewID(domain.IntentIDPrefix),
		BookingID: in.BookingID,
		UserID:    in.UserID,
		Amount:    in.Amount,
		Currency:  in.Currency,
		Method:    in.Method,
		Status:    domain.IntentPending,
		Metadata:  in.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if intent.Metadata == nil {
		intent.Metadata = make(map[string]string)
	}

	switch in.Method.Kind() {
	case domain.MethodCreditCard:
		card, _ := in.Method.Card()
		ci, err := s.cards.CreateIntent(ctx, in.Amount, in.Currency, card)
		if err != nil {
			return failure(domain.ProviderError("card gateway", err))
		}
		intent.ProviderIntentID = ci.ProviderIntentID

	case domain.MethodPoints:
		pts, _ := in.Method.Points()
		ref, err := s.openPointsIntent(ctx, in.UserID, pts)
		if err != nil {
			return failure(err)
		}
		intent.ProviderIntentID = ref

	case domain.MethodMixed:
		pts, _ := in.Method.Points()
		pointsValue := pts.CashComponent
		cardAmount := in.Amount - pointsValue
		if cardAmount < 0 {
			return failure(domain.ValidationError("points cash component exceeds the intent amount"))
		}
		// Balance is verified up front; the legs themselves open at confirm,
		// against the split frozen here.
		if err := s.verifyBalance(ctx, in.UserID, pts); err != nil {
			return failure(err)
		}
		intent.FreezeSplit(pointsValue, cardAmount)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failure(err)
	}
	defer tx.Rollback()

	if err := s.intents.Create(ctx, tx, intent); err != nil {
		return failure(err)
	}
	if err := tx.Commit(); err != nil {
		return failure(err)
	}

	s.log.Info("payment intent created",
		zap.String("intent_id", intent.ID),
		zap.String("booking_id", intent.BookingID),
		zap.String("method", string(intent.Method.Kind())),
		zap.Int64("amount", intent.Amount),
	)
	return Result{Success: true, PaymentIntent: intent}
}

// openPointsIntent verifies the ledger balance and opens a points intent.
// No debit happens here; the ledger debits on confirm.
func (s *paymentService) openPointsIntent(ctx context.Context, userID string, pts domain.PointsDetails) (string, error) {
	if err := s.verifyBalance(ctx, userID, pts); err != nil {
		return "", err
	}
	ref, err := s.ledger.CreatePointsIntent(ctx, userID, pts.Program, pts.Points)
	if err != nil {
		return "", domain.ProviderError("points ledger", err)
	}
	return ref, nil
}

func (s *paymentService) verifyBalance(ctx context.Context, userID string, pts domain.PointsDetails) error {
	balance, err := s.ledger.CheckBalance(ctx, userID, pts.Program)
	if err != nil {
		return domain.ProviderError("points ledger", err)
	}
	if balance < pts.Points {
		return domain.InsufficientPointsError(balance, pts.Points)
	}
	return nil
}

func (s *paymentService) ConfirmIntent(ctx context.Context, userID, intentID string, in ConfirmInput) (res Result) {
	defer s.recoverResult(&res)

	acquired, lockValue, err := s.locks.TryLock(ctx, intentLockKey(intentID), intentLockTTL)
	if err != nil {
		return failure(err)
	}
	if !acquired {
		return failure(domain.StateError("another operation is in progress for intent %s", intentID))
	}
	defer s.locks.Unlock(ctx, intentLockKey(intentID), lockValue)

	intent, err := s.loadOwnedIntent(ctx, userID, intentID)
	if err != nil {
		return failure(err)
	}
	if intent.Status != domain.IntentPending {
		return failure(domain.StateError("intent %s is %s, not pending", intentID, intent.Status))
	}

	switch intent.Method.Kind() {
	case domain.MethodCreditCard:
		return s.confirmCard(ctx, intent, in)
	case domain.MethodPoints:
		return s.confirmPoints(ctx, intent)
	default:
		return s.confirmMixed(ctx, intent, in)
	}
}

func (s *paymentService) confirmCard(ctx context.Context, intent *domain.PaymentIntent, in ConfirmInput) Result {
	settlement, err := s.cards.ConfirmIntent(ctx, intent.ProviderIntentID, in.PaymentMethodID)
	if err != nil {
		provErr := domain.ProviderError("card gateway", err)
		if ferr := s.finalizeFailure(ctx, intent, s.failedTxn(intent, intent.Amount, domain.ProviderStripe, domain.TxnCharge, provErr.Message)); ferr != nil {
			return failure(ferr)
		}
		return failure(provErr)
	}
	txn := s.chargeTxn(intent, intent.Amount, domain.ProviderStripe, settlement.ProviderTransactionID, nil)
	return s.finalizeSuccess(ctx, intent, txn, nil)
}

func (s *paymentService) confirmPoints(ctx context.Context, intent *domain.PaymentIntent) Result {
	settlement, err := s.ledger.ConfirmPointsPayment(ctx, intent.ProviderIntentID)
	if err != nil {
		provErr := domain.ProviderError("points ledger", err)
		if ferr := s.finalizeFailure(ctx, intent, s.failedTxn(intent, intent.Amount, domain.ProviderPoints, domain.TxnCharge, provErr.Message)); ferr != nil {
			return failure(ferr)
		}
		return failure(provErr)
	}
	txn := s.chargeTxn(intent, intent.Amount, domain.ProviderPoints, settlement.TransactionRef, &domain.PointsMovement{
		PointsUsed:  settlement.PointsUsed,
		PointsValue: settlement.PointsValue,
	})
	return s.finalizeSuccess(ctx, intent, txn, nil)
}

// confirmMixed settles the points leg first, then the card leg, so the worst
// partial state is "points debited, card untouched" and never a double
// charge. A card failure after the points debit triggers a compensating
// credit-back recorded as a reversal transaction.
func (s *paymentService) confirmMixed(ctx context.Context, intent *domain.PaymentIntent, in ConfirmInput) Result {
	pointsValue, cardAmount, err := intent.FrozenSplit()
	if err != nil {
		return failure(err)
	}
	pts, _ := intent.Method.Points()
	card, _ := intent.Method.Card()

	pointsRef, err := s.ledger.CreatePointsIntent(ctx, intent.UserID, pts.Program, pts.Points)
	if err != nil {
		return s.abortMixedOnPoints(ctx, intent, pointsValue, err)
	}
	settlement, err := s.ledger.ConfirmPointsPayment(ctx, pointsRef)
	if err != nil {
		return s.abortMixedOnPoints(ctx, intent, pointsValue, err)
	}
	pointsTxn := s.chargeTxn(intent, pointsValue, domain.ProviderPoints, settlement.TransactionRef, &domain.PointsMovement{
		PointsUsed:  settlement.PointsUsed,
		PointsValue: pointsValue,
	})

	cardRes, cardErr := s.settleCardLeg(ctx, intent, card, cardAmount, in)
	if cardErr != nil {
		// Points are already debited. Credit them back and surface the card
		// failure; the intent ends up failed with an auditable reversal row.
		reversal := s.compensatePoints(ctx, intent, pointsRef, pts.Points, pointsValue)
		provErr := domain.ProviderError("card gateway", cardErr)
		if ferr := s.finalizeFailure(ctx, intent, pointsTxn, reversal,
			s.failedTxn(intent, cardAmount, domain.ProviderStripe, domain.TxnCharge, provErr.Message)); ferr != nil {
			return failure(ferr)
		}
		return failure(provErr)
	}

	intent.Metadata[domain.MetaPointsIntentRef] = pointsRef
	intent.Metadata[domain.MetaCardIntentID] = cardRes.providerIntentID
	cardTxn := s.chargeTxn(intent, cardAmount, domain.ProviderStripe, cardRes.providerTxnID, nil)
	return s.finalizeSuccess(ctx, intent, cardTxn, pointsTxn)
}

func (s *paymentService) abortMixedOnPoints(ctx context.Context, intent *domain.PaymentIntent, pointsValue int64, cause error) Result {
	provErr := domain.ProviderError("points ledger", cause)
	if ferr := s.finalizeFailure(ctx, intent, s.failedTxn(intent, pointsValue, domain.ProviderPoints, domain.TxnCharge, provErr.Message)); ferr != nil {
		return failure(ferr)
	}
	return failure(provErr)
}

type cardLegResult struct {
	providerIntentID string
	providerTxnID    string
}

func (s *paymentService) settleCardLeg(ctx context.Context, intent *domain.PaymentIntent, card domain.CardDetails, amount int64, in ConfirmInput) (cardLegResult, error) {
	ci, err := s.cards.CreateIntent(ctx, amount, intent.Currency, card)
	if err != nil {
		return cardLegResult{}, err
	}
	settlement, err := s.cards.ConfirmIntent(ctx, ci.ProviderIntentID, in.PaymentMethodID)
	if err != nil {
		return cardLegResult{}, err
	}
	return cardLegResult{providerIntentID: ci.ProviderIntentID, providerTxnID: settlement.ProviderTransactionID}, nil
}

func (s *paymentService) compensatePoints(ctx context.Context, intent *domain.PaymentIntent, pointsRef string, points, pointsValue int64) *domain.PaymentTransaction {
	credit, err := s.ledger.RefundPointsPayment(ctx, pointsRef, points)
	if err != nil {
		// The credit-back itself failed: record it failed so reconciliation
		// and support can see the exposure.
		s.log.Error("points compensation failed",
			zap.String("intent_id", intent.ID),
			zap.Error(err),
		)
		txn := s.failedTxn(intent, pointsValue, domain.ProviderPoints, domain.TxnReversal, err.Error())
		return txn
	}
	now := time.Now()
	return &domain.PaymentTransaction{
		ID:                    domain.NewID(domain.TransactionIDPrefix),
		PaymentIntentID:       intent.ID,
		BookingID:             intent.BookingID,
		UserID:                intent.UserID,
		Amount:                pointsValue,
		Currency:              intent.Currency,
		Type:                  domain.TxnReversal,
		Status:                domain.TxnCompleted,
		Provider:              domain.ProviderPoints,
		ProviderTransactionID: credit.TransactionRef,
		Points:                &domain.PointsMovement{PointsUsed: credit.PointsCredited, PointsValue: pointsValue},
		ProcessedAt:           &now,
		CreatedAt:             now,
	}
}

func (s *paymentService) chargeTxn(intent *domain.PaymentIntent, amount int64, provider domain.Provider, providerTxnID string, points *domain.PointsMovement) *domain.PaymentTransaction {
	now := time.Now()
	return &domain.PaymentTransaction{
		ID:                    domain.NewID(domain.TransactionIDPrefix),
		PaymentIntentID:       intent.ID,
		BookingID:             intent.BookingID,
		UserID:                intent.UserID,
		Amount:                amount,
		Currency:              intent.Currency,
		Type:                  domain.TxnCharge,
		Status:                domain.TxnCompleted,
		Provider:              provider,
		ProviderTransactionID: providerTxnID,
		Points:                points,
		ProcessedAt:           &now,
		CreatedAt:             now,
	}
}

func (s *paymentService) failedTxn(intent *domain.PaymentIntent, amount int64, provider domain.Provider, txnType domain.TransactionType, reason string) *domain.PaymentTransaction {
	return &domain.PaymentTransaction{
		ID:              domain.NewID(domain.TransactionIDPrefix),
		PaymentIntentID: intent.ID,
		BookingID:       intent.BookingID,
		UserID:          intent.UserID,
		Amount:          amount,
		Currency:        intent.Currency,
		Type:            txnType,
		Status:          domain.TxnFailed,
		Provider:        provider,
		FailureReason:   reason,
		CreatedAt:       time.Now(),
	}
}

// finalizeSuccess claims pending -> completed and writes the transactions and
// the receipt in one database transaction. A lost claim means a concurrent
// caller finalized first; the gateway calls are idempotent so nothing was
// double-charged.
func (s *paymentService) finalizeSuccess(ctx context.Context, intent *domain.PaymentIntent, primary, pointsTxn *domain.PaymentTransaction) Result {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failure(err)
	}
	defer tx.Rollback()

	claimed, err := s.intents.ClaimPending(ctx, tx, intent.ID, domain.IntentCompleted)
	if err != nil {
		return failure(err)
	}
	if !claimed {
		return failure(domain.StateError("intent %s was finalized by a concurrent request", intent.ID))
	}
	if err := s.intents.UpdateRefs(ctx, tx, intent); err != nil {
		return failure(err)
	}
	if pointsTxn != nil {
		if err := s.txns.Create(ctx, tx, pointsTxn); err != nil {
			return failure(err)
		}
	}
	if err := s.txns.Create(ctx, tx, primary); err != nil {
		return failure(err)
	}

	receipt := s.receipt.Generate(intent, primary, pointsTxn, time.Now())
	if err := s.receipts.Create(ctx, tx, receipt); err != nil {
		return failure(err)
	}
	if err := tx.Commit(); err != nil {
		return failure(err)
	}

	intent.Status = domain.IntentCompleted
	intent.UpdatedAt = time.Now()
	s.log.Info("payment intent completed",
		zap.String("intent_id", intent.ID),
		zap.String("provider", string(primary.Provider)),
		zap.Int64("amount", intent.Amount),
	)
	return Result{Success: true, PaymentIntent: intent, Transaction: primary, Receipt: receipt}
}

// finalizeFailure claims pending -> failed and records every leg that was
// attempted, including failed legs and reversals.
func (s *paymentService) finalizeFailure(ctx context.Context, intent *domain.PaymentIntent, legs ...*domain.PaymentTransaction) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	claimed, err := s.intents.ClaimPending(ctx, tx, intent.ID, domain.IntentFailed)
	if err != nil {
		return err
	}
	if !claimed {
		return domain.StateError("intent %s was finalized by a concurrent request", intent.ID)
	}
	for _, leg := range legs {
		if leg == nil {
			continue
		}
		if err := s.txns.Create(ctx, tx, leg); err != nil {
			return err
		}
	}
	if err := tx.Commit(); err != nil {
		return err
	}
	intent.Status = domain.IntentFailed
	return nil
}

func (s *paymentService) RefundIntent(ctx context.Context, userID, intentID string, in RefundInput) (res Result) {
	defer s.recoverResult(&res)

	acquired, lockValue, err := s.locks.TryLock(ctx, intentLockKey(intentID), intentLockTTL)
	if err != nil {
		return failure(err)
	}
	if !acquired {
		return failure(domain.StateError("another operation is in progress for intent %s", intentID))
	}
	defer s.locks.Unlock(ctx, intentLockKey(intentID), lockValue)

	intent, err := s.loadOwnedIntent(ctx, userID, intentID)
	if err != nil {
		return failure(err)
	}
	if intent.Status != domain.IntentCompleted {
		return failure(domain.StateError("intent %s is %s, only completed intents can be refunded", intentID, intent.Status))
	}

	refundAmount := in.Amount
	if refundAmount < 0 {
		return failure(domain.ValidationError("refund amount must be positive"))
	}
	if refundAmount == 0 {
		refundAmount = intent.Amount
	}
	// A zero-amount intent has nothing to move on any backend.
	if refundAmount == 0 {
		return failure(domain.ValidationError("nothing to refund on a zero-amount payment"))
	}
	if refundAmount > intent.Amount {
		return failure(domain.ValidationError("refund amount exceeds the original amount"))
	}

	remaining, err := s.remainingRefundable(ctx, intent)
	if err != nil {
		return failure(err)
	}
	if refundAmount > remaining {
		return failure(domain.StateError("refund of %d exceeds the remaining settled balance of %d", refundAmount, remaining))
	}

	if in.Reason != "" {
		s.log.Info("refund requested",
			zap.String("intent_id", intent.ID),
			zap.String("reason", in.Reason),
		)
	}
	legs := s.refundLegs(ctx, intent, refundAmount)

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return failure(err)
	}
	defer tx.Rollback()
	for i := range legs {
		if err := s.txns.Create(ctx, tx, &legs[i]); err != nil {
			return failure(err)
		}
	}
	if err := tx.Commit(); err != nil {
		return failure(err)
	}

	var succeeded []domain.PaymentTransaction
	for _, leg := range legs {
		if leg.Status == domain.TxnCompleted {
			succeeded = append(succeeded, leg)
		}
	}
	// At least one settled leg counts as success; a part-refunded intent is
	// still better for the customer than none, and the failed leg is on
	// record for retry.
	if len(succeeded) == 0 {
		last := legs[len(legs)-1]
		return failure(&domain.Error{Code: domain.CodeProvider, Message: last.FailureReason})
	}

	s.log.Info("payment refunded",
		zap.String("intent_id", intent.ID),
		zap.Int64("amount", refundAmount),
		zap.Int("legs", len(succeeded)),
	)
	return Result{Success: true, PaymentIntent: intent, Transaction: &succeeded[0], Refunds: succeeded}
}

func (s *paymentService) remainingRefundable(ctx context.Context, intent *domain.PaymentIntent) (int64, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()
	refunded, err := s.txns.RefundedTotal(ctx, tx, intent.ID)
	if err != nil {
		return 0, err
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return intent.Amount - refunded, nil
}

// refundLegs issues one refund call per owning backend. Mixed intents split
// the requested amount by the original frozen ratio; a share that rounds to
// zero skips its backend entirely.
func (s *paymentService) refundLegs(ctx context.Context, intent *domain.PaymentIntent, refundAmount int64) []domain.PaymentTransaction {
	switch intent.Method.Kind() {
	case domain.MethodCreditCard:
		return []domain.PaymentTransaction{s.refundCardLeg(ctx, intent, intent.ProviderIntentID, refundAmount)}

	case domain.MethodPoints:
		return []domain.PaymentTransaction{s.refundPointsLeg(ctx, intent, intent.ProviderIntentID, refundAmount)}

	default:
		pointsValue, _, err := intent.FrozenSplit()
		if err != nil {
			return []domain.PaymentTransaction{*s.failedTxn(intent, refundAmount, domain.ProviderStripe, domain.TxnRefund, err.Error())}
		}
		pointsShare := domain.ProportionalShare(pointsValue, intent.Amount, refundAmount)
		cardShare := refundAmount - pointsShare

		var legs []domain.PaymentTransaction
		if pointsShare > 0 {
			legs = append(legs, s.refundPointsLeg(ctx, intent, intent.Metadata[domain.MetaPointsIntentRef], pointsShare))
		}
		if cardShare > 0 {
			legs = append(legs, s.refundCardLeg(ctx, intent, intent.Metadata[domain.MetaCardIntentID], cardShare))
		}
		return legs
	}
}

func (s *paymentService) refundCardLeg(ctx context.Context, intent *domain.PaymentIntent, providerIntentID string, amount int64) domain.PaymentTransaction {
	settlement, err := s.cards.Refund(ctx, providerIntentID, amount)
	if err != nil {
		return *s.failedTxn(intent, amount, domain.ProviderStripe, domain.TxnRefund, err.Error())
	}
	now := time.Now()
	return domain.PaymentTransaction{
		ID:                    domain.NewID(domain.TransactionIDPrefix),
		PaymentIntentID:       intent.ID,
		BookingID:             intent.BookingID,
		UserID:                intent.UserID,
		Amount:                amount,
		Currency:              intent.Currency,
		Type:                  domain.TxnRefund,
		Status:                domain.TxnCompleted,
		Provider:              domain.ProviderStripe,
		ProviderTransactionID: settlement.ProviderTransactionID,
		ProcessedAt:           &now,
		CreatedAt:             now,
	}
}

func (s *paymentService) refundPointsLeg(ctx context.Context, intent *domain.PaymentIntent, pointsRef string, amount int64) domain.PaymentTransaction {
	credit, err := s.ledger.RefundPointsPayment(ctx, pointsRef, amount)
	if err != nil {
		return *s.failedTxn(intent, amount, domain.ProviderPoints, domain.TxnRefund, err.Error())
	}
	now := time.Now()
	return domain.PaymentTransaction{
		ID:                    domain.NewID(domain.TransactionIDPrefix),
		PaymentIntentID:       intent.ID,
		BookingID:             intent.BookingID,
		UserID:                intent.UserID,
		Amount:                amount,
		Currency:              intent.Currency,
		Type:                  domain.TxnRefund,
		Status:                domain.TxnCompleted,
		Provider:              domain.ProviderPoints,
		ProviderTransactionID: credit.TransactionRef,
		Points:                &domain.PointsMovement{PointsUsed: credit.PointsCredited, PointsValue: amount},
		ProcessedAt:           &now,
		CreatedAt:             now,
	}
}

func (s *paymentService) GetIntent(ctx context.Context, userID, intentID string) (res Result) {
	defer s.recoverResult(&res)

	intent, err := s.loadOwnedIntent(ctx, userID, intentID)
	if err != nil {
		return failure(err)
	}
	receipt, err := s.receipts.FindByIntent(ctx, intentID)
	if err != nil {
		return failure(err)
	}
	return Result{Success: true, PaymentIntent: intent, Receipt: receipt}
}

func (s *paymentService) ListBookingTransactions(ctx context.Context, userID, bookingID string) ([]domain.PaymentTransaction, error) {
	txns, err := s.txns.ListByBooking(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	for _, txn := range txns {
		if txn.UserID != userID {
			return nil, domain.ForbiddenError("booking %s does not belong to the caller", bookingID)
		}
	}
	return txns, nil
}

func (s *paymentService) loadOwnedIntent(ctx context.Context, userID, intentID string) (*domain.PaymentIntent, error) {
	intent, err := s.intents.FindByID(ctx, intentID)
	if err != nil {
		return nil, err
	}
	if intent == nil {
		return nil, domain.NotFoundError("payment intent %s not found", intentID)
	}
	if userID != "" && intent.UserID != userID {
		return nil, domain.ForbiddenError("intent %s does not belong to the caller", intentID)
	}
	return intent, nil
}

func intentLockKey(intentID string) string {
	return "payments:intent:" + intentID
}
