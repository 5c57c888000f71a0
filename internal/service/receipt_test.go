package service

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"voyagepay/internal/domain"
)

func TestReceiptNumberFormat(t *testing.T) {
	issued := time.Date(2026, 8, 26, 10, 0, 0, 0, time.UTC)
	pattern := regexp.MustCompile(`^RCP-20260826-[A-Z0-9]{6}$`)
	for i := 0; i < 20; i++ {
		assert.Regexp(t, pattern, ReceiptNumber(issued))
	}
}

func TestGenerateMixedBreakdown(t *testing.T) {
	gen := NewReceiptGenerator()
	intent := &domain.PaymentIntent{
		ID:        "pi_1",
		BookingID: "bk_1",
		UserID:    "usr_1",
		Amount:    30000,
		Currency:  "USD",
	}
	card := &domain.PaymentTransaction{Provider: domain.ProviderStripe, Amount: 15000}
	points := &domain.PaymentTransaction{
		Provider: domain.ProviderPoints,
		Amount:   15000,
		Points:   &domain.PointsMovement{PointsUsed: 15000, PointsValue: 15000},
	}

	receipt := gen.Generate(intent, card, points, time.Now())

	assert.Equal(t, int64(30000), receipt.TotalAmount)
	assert.Equal(t, int64(15000), receipt.Breakdown.CashAmount)
	assert.Equal(t, int64(15000), receipt.Breakdown.PointsUsed)
	assert.Equal(t, int64(15000), receipt.Breakdown.PointsValue)
	assert.Zero(t, receipt.Breakdown.Taxes)
	assert.Zero(t, receipt.Breakdown.Fees)
	assert.Equal(t, "bk_1", receipt.BookingID)
}

func TestGenerateCardOnlyBreakdown(t *testing.T) {
	gen := NewReceiptGenerator()
	intent := &domain.PaymentIntent{ID: "pi_1", Amount: 10000, Currency: "USD"}
	card := &domain.PaymentTransaction{Provider: domain.ProviderStripe, Amount: 10000}

	receipt := gen.Generate(intent, card, nil, time.Now())

	assert.Equal(t, int64(10000), receipt.Breakdown.CashAmount)
	assert.Zero(t, receipt.Breakdown.PointsUsed)
}
