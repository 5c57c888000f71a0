package repo

import (
	"context"
	"database/sql"

	json "github.com/goccy/go-json"

	"voyagepay/internal/domain"
)

type ReceiptRepo interface {
	Create(ctx context.Context, tx *sql.Tx, receipt *domain.PaymentReceipt) error
	FindByIntent(ctx context.Context, intentID string) (*domain.PaymentReceipt, error)
}

type receiptRepo struct {
	db *sql.DB
}

func NewReceiptRepo(db *sql.DB) ReceiptRepo {
	return &receiptRepo{db: db}
}

const receiptColumns = `id, payment_intent_id, booking_id, user_id, receipt_number, total_amount, currency, payment_breakdown, payment_method, issued_at, receipt_url`

func (r *receiptRepo) Create(ctx context.Context, tx *sql.Tx, receipt *domain.PaymentReceipt) error {
	breakdown, err := json.Marshal(receipt.Breakdown)
	if err != nil {
		return err
	}
	method, err := json.Marshal(receipt.Method)
	if err != nil {
		return err
	}
	query := `INSERT INTO payment_receipts (` + receiptColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(ctx, query,
		receipt.ID,
		receipt.PaymentIntentID,
		receipt.BookingID,
		receipt.UserID,
		receipt.ReceiptNumber,
		receipt.TotalAmount,
		receipt.Currency,
		breakdown,
		method,
		receipt.IssuedAt,
		nullString(receipt.ReceiptURL),
	)
	return err
}

func (r *receiptRepo) FindByIntent(ctx context.Context, intentID string) (*domain.PaymentReceipt, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+receiptColumns+` FROM payment_receipts WHERE payment_intent_id = $1`, intentID)
	var (
		receipt           domain.PaymentReceipt
		breakdown, method []byte
		receiptURL        sql.NullString
	)
	err := row.Scan(
		&receipt.ID,
		&receipt.PaymentIntentID,
		&receipt.BookingID,
		&receipt.UserID,
		&receipt.ReceiptNumber,
		&receipt.TotalAmount,
		&receipt.Currency,
		&breakdown,
		&method,
		&receipt.IssuedAt,
		&receiptURL,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(breakdown, &receipt.Breakdown); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(method, &receipt.Method); err != nil {
		return nil, err
	}
	receipt.ReceiptURL = receiptURL.String
	return &receipt, nil
}
