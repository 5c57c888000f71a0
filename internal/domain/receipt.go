package domain

import "time"

type PaymentBreakdown struct {
	CashAmount  int64 `json:"cashAmount,omitempty"`
	PointsUsed  int64 `json:"pointsUsed,omitempty"`
	PointsValue int64 `json:"pointsValue,omitempty"`
	Taxes       int64 `json:"taxes"`
	Fees        int64 `json:"fees"`
}

// PaymentReceipt is derived from a completed transaction, immutable once
// issued.
type PaymentReceipt struct {
	ID              string
	PaymentIntentID string
	BookingID       string
	UserID          string
	ReceiptNumber   string
	TotalAmount     int64
	Currency        string
	Breakdown       PaymentBreakdown
	Method          PaymentMethod
	IssuedAt        time.Time
	ReceiptURL      string
}
