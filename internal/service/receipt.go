package service

import (
	"math/rand/v2"
	"time"

	"voyagepay/internal/domain"
)

const receiptSuffixAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// ReceiptGenerator derives an immutable receipt from a settled transaction.
// It never computes fares: taxes and fees stay zero unless the booking
// context supplies them upstream.
type ReceiptGenerator struct{}

func NewReceiptGenerator() *ReceiptGenerator {
	return &ReceiptGenerator{}
}

// Generate builds the receipt for a settlement. primary is the transaction
// the receipt hangs off (the card leg of a mixed settlement); pointsTxn is
// nil unless a points leg settled too.
func (g *ReceiptGenerator) Generate(intent *domain.PaymentIntent, primary, pointsTxn *domain.PaymentTransaction, issuedAt time.Time) *domain.PaymentReceipt {
	breakdown := domain.PaymentBreakdown{}
	if primary.Provider == domain.ProviderStripe {
		breakdown.CashAmount = primary.Amount
	}
	if primary.Points != nil {
		breakdown.PointsUsed = primary.Points.PointsUsed
		breakdown.PointsValue = primary.Points.PointsValue
	}
	if pointsTxn != nil && pointsTxn.Points != nil {
		breakdown.PointsUsed = pointsTxn.Points.PointsUsed
		breakdown.PointsValue = pointsTxn.Points.PointsValue
	}

	return &domain.PaymentReceipt{
		ID:              domain.NewID(domain.ReceiptIDPrefix),
		PaymentIntentID: intent.ID,
		BookingID:       intent.BookingID,
		UserID:          intent.UserID,
		ReceiptNumber:   ReceiptNumber(issuedAt),
		TotalAmount:     intent.Amount,
		Currency:        intent.Currency,
		Breakdown:       breakdown,
		Method:          intent.Method,
		IssuedAt:        issuedAt,
	}
}

// ReceiptNumber formats RCP-YYYYMMDD-XXXXXX with a random uppercase
// alphanumeric suffix.
func ReceiptNumber(issuedAt time.Time) string {
	suffix := make([]byte, 6)
	for i := range suffix {
		suffix[i] = receiptSuffixAlphabet[rand.IntN(len(receiptSuffixAlphabet))]
	}
	return "RCP-" + issuedAt.Format("20060102") + "-" + string(suffix)
}
