package repo

import (
	"context"
	"database/sql"

	json "github.com/goccy/go-json"

	"voyagepay/internal/domain"
)

type TransactionRepo interface {
	Create(ctx context.Context, tx *sql.Tx, txn *domain.PaymentTransaction) error
	FindByID(ctx context.Context, id string) (*domain.PaymentTransaction, error)
	ListByIntent(ctx context.Context, intentID string) ([]domain.PaymentTransaction, error)
	ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentTransaction, error)
	// RefundedTotal sums completed refund transactions for the intent. Read
	// inside the caller's transaction so the ceiling check and the refund
	// write see the same state.
	RefundedTotal(ctx context.Context, tx *sql.Tx, intentID string) (int64, error)
}

type transactionRepo struct {
	db *sql.DB
}

func NewTransactionRepo(db *sql.DB) TransactionRepo {
	return &transactionRepo{db: db}
}

const txnColumns = `id, payment_intent_id, booking_id, user_id, amount, currency, type, status, provider, provider_transaction_id, points_transaction, failure_reason, processed_at, created_at`

func (r *transactionRepo) Create(ctx context.Context, tx *sql.Tx, txn *domain.PaymentTransaction) error {
	var points []byte
	if txn.Points != nil {
		var err error
		points, err = json.Marshal(txn.Points)
		if err != nil {
			return err
		}
	}
	query := `INSERT INTO payment_transactions (` + txnColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)`
	_, err := tx.ExecContext(ctx, query,
		txn.ID,
		txn.PaymentIntentID,
		txn.BookingID,
		txn.UserID,
		txn.Amount,
		txn.Currency,
		txn.Type,
		txn.Status,
		txn.Provider,
		nullString(txn.ProviderTransactionID),
		points,
		nullString(txn.FailureReason),
		txn.ProcessedAt,
		txn.CreatedAt,
	)
	return err
}

func (r *transactionRepo) FindByID(ctx context.Context, id string) (*domain.PaymentTransaction, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+txnColumns+` FROM payment_transactions WHERE id = $1`, id)
	txn, err := scanTransaction(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return txn, nil
}

func (r *transactionRepo) ListByIntent(ctx context.Context, intentID string) ([]domain.PaymentTransaction, error) {
	return r.list(ctx, `SELECT `+txnColumns+` FROM payment_transactions WHERE payment_intent_id = $1 ORDER BY created_at`, intentID)
}

func (r *transactionRepo) ListByBooking(ctx context.Context, bookingID string) ([]domain.PaymentTransaction, error) {
	return r.list(ctx, `SELECT `+txnColumns+` FROM payment_transactions WHERE booking_id = $1 ORDER BY created_at`, bookingID)
}

func (r *transactionRepo) list(ctx context.Context, query, arg string) ([]domain.PaymentTransaction, error) {
	rows, err := r.db.QueryContext(ctx, query, arg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var txns []domain.PaymentTransaction
	for rows.Next() {
		txn, err := scanTransaction(rows)
		if err != nil {
			return nil, err
		}
		txns = append(txns, *txn)
	}
	return txns, rows.Err()
}

func (r *transactionRepo) RefundedTotal(ctx context.Context, tx *sql.Tx, intentID string) (int64, error) {
	var total int64
	err := tx.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(amount), 0) FROM payment_transactions WHERE payment_intent_id = $1 AND type = $2 AND status = $3`,
		intentID, domain.TxnRefund, domain.TxnCompleted,
	).Scan(&total)
	return total, err
}

func scanTransaction(row rowScanner) (*domain.PaymentTransaction, error) {
	var (
		txn                    domain.PaymentTransaction
		points                 []byte
		providerTxnID, failure sql.NullString
		processedAt            sql.NullTime
	)
	err := row.Scan(
		&txn.ID,
		&txn.PaymentIntentID,
		&txn.BookingID,
		&txn.UserID,
		&txn.Amount,
		&txn.Currency,
		&txn.Type,
		&txn.Status,
		&txn.Provider,
		&providerTxnID,
		&points,
		&failure,
		&processedAt,
		&txn.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	if len(points) > 0 {
		txn.Points = &domain.PointsMovement{}
		if err := json.Unmarshal(points, txn.Points); err != nil {
			return nil, err
		}
	}
	txn.ProviderTransactionID = providerTxnID.String
	txn.FailureReason = failure.String
	if processedAt.Valid {
		t := processedAt.Time
		txn.ProcessedAt = &t
	}
	return &txn, nil
}
