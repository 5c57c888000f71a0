package repo

import (
	"context"
	"database/sql"
	"time"

	json "github.com/goccy/go-json"

	"voyagepay/internal/domain"
)

type IntentRepo interface {
	Create(ctx context.Context, tx *sql.Tx, intent *domain.PaymentIntent) error
	FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error)
	// ClaimPending moves a pending intent to the given terminal status in one
	// conditional update. Returns false when the intent was not pending, i.e.
	// a concurrent caller already finalized it.
	ClaimPending(ctx context.Context, tx *sql.Tx, id string, to domain.IntentStatus) (bool, error)
	// UpdateRefs persists provider references and metadata picked up after
	// creation, e.g. the backend legs a mixed confirmation opened.
	UpdateRefs(ctx context.Context, tx *sql.Tx, intent *domain.PaymentIntent) error
	FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.PaymentIntent, error)
}

type intentRepo struct {
	db *sql.DB
}

func NewIntentRepo(db *sql.DB) IntentRepo {
	return &intentRepo{db: db}
}

const intentColumns = `id, booking_id, user_id, amount, currency, payment_method, status, provider_intent_id, metadata, created_at, updated_at`

func (r *intentRepo) Create(ctx context.Context, tx *sql.Tx, intent *domain.PaymentIntent) error {
	method, err := json.Marshal(intent.Method)
	if err != nil {
		return err
	}
	metadata, err := json.Marshal(intent.Metadata)
	if err != nil {
		return err
	}
	query := `INSERT INTO payment_intents (` + intentColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err = tx.ExecContext(ctx, query,
		intent.ID,
		intent.BookingID,
		intent.UserID,
		intent.Amount,
		intent.Currency,
		method,
		intent.Status,
		nullString(intent.ProviderIntentID),
		metadata,
		intent.CreatedAt,
		intent.UpdatedAt,
	)
	return err
}

func (r *intentRepo) FindByID(ctx context.Context, id string) (*domain.PaymentIntent, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+intentColumns+` FROM payment_intents WHERE id = $1`, id)
	intent, err := scanIntent(row)
	if err == sql.ErrNoRows {
		return nil, nil // not found
	}
	if err != nil {
		return nil, err // system error
	}
	return intent, nil
}

func (r *intentRepo) ClaimPending(ctx context.Context, tx *sql.Tx, id string, to domain.IntentStatus) (bool, error) {
	res, err := tx.ExecContext(ctx,
		`UPDATE payment_intents SET status = $2, updated_at = now() WHERE id = $1 AND status = $3`,
		id, to, domain.IntentPending,
	)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n == 1, nil
}

func (r *intentRepo) UpdateRefs(ctx context.Context, tx *sql.Tx, intent *domain.PaymentIntent) error {
	metadata, err := json.Marshal(intent.Metadata)
	if err != nil {
		return err
	}
	_, err = tx.ExecContext(ctx,
		`UPDATE payment_intents SET provider_intent_id = COALESCE($2, provider_intent_id), metadata = $3, updated_at = now() WHERE id = $1`,
		intent.ID, nullString(intent.ProviderIntentID), metadata,
	)
	return err
}

func (r *intentRepo) FindStuckPending(ctx context.Context, olderThan time.Duration, limit int) ([]domain.PaymentIntent, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+intentColumns+` FROM payment_intents WHERE status = $1 AND updated_at < $2 LIMIT $3`,
		domain.IntentPending, time.Now().Add(-olderThan), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var intents []domain.PaymentIntent
	for rows.Next() {
		intent, err := scanIntent(rows)
		if err != nil {
			return nil, err
		}
		intents = append(intents, *intent)
	}
	return intents, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanIntent(row rowScanner) (*domain.PaymentIntent, error) {
	var (
		intent           domain.PaymentIntent
		method, metadata []byte
		providerIntentID sql.NullString
	)
	err := row.Scan(
		&intent.ID,
		&intent.BookingID,
		&intent.UserID,
		&intent.Amount,
		&intent.Currency,
		&method,
		&intent.Status,
		&providerIntentID,
		&metadata,
		&intent.CreatedAt,
		&intent.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if err := json.Unmarshal(method, &intent.Method); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(metadata, &intent.Metadata); err != nil {
		return nil, err
	}
	intent.ProviderIntentID = providerIntentID.String
	return &intent, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
