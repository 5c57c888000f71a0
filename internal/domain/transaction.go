package domain

import "time"

type TransactionType string

const (
	TxnCharge TransactionType = "charge"
	TxnRefund TransactionType = "refund"
	// TxnReversal is a compensating credit-back issued when the card leg of
	// a mixed confirmation fails after the points leg already settled.
	TxnReversal TransactionType = "reversal"
)

type TransactionStatus string

const (
	TxnCompleted TransactionStatus = "completed"
	TxnFailed    TransactionStatus = "failed"
)

type Provider string

const (
	ProviderStripe Provider = "stripe"
	ProviderPoints Provider = "points"
)

// PointsMovement records the ledger side of a points settlement.
type PointsMovement struct {
	PointsUsed  int64 `json:"pointsUsed"`
	PointsValue int64 `json:"pointsValue"`
}

// PaymentTransaction is one settlement event against one backend.
// Append-only: rows are never mutated after creation.
type PaymentTransaction struct {
	ID                    string
	PaymentIntentID       string
	BookingID             string
	UserID                string
	Amount                int64
	Currency              string
	Type                  TransactionType
	Status                TransactionStatus
	Provider              Provider
	ProviderTransactionID string
	Points                *PointsMovement
	FailureReason         string
	ProcessedAt           *time.Time
	CreatedAt             time.Time
}
