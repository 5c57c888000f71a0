package handler

import (
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"voyagepay/internal/domain"
	"voyagepay/internal/service"
)

type PaymentHandler struct {
	svc service.PaymentService
	log *zap.Logger
}

func NewPaymentHandler(svc service.PaymentService, log *zap.Logger) *PaymentHandler {
	return &PaymentHandler{svc: svc, log: log}
}

type cardDetailsRequest struct {
	Last4       string `json:"last4" binding:"required,len=4,numeric"`
	Brand       string `json:"brand" binding:"required"`
	ExpiryMonth int    `json:"expiryMonth" binding:"required,min=1,max=12"`
	ExpiryYear  int    `json:"expiryYear" binding:"required"`
	HolderName  string `json:"holderName" binding:"required"`
}

type pointsDetailsRequest struct {
	Program       string  `json:"program" binding:"required,program"`
	Points        int64   `json:"points" binding:"required,gt=0"`
	CashComponent float64 `json:"cashComponent" binding:"gte=0"`
}

type paymentMethodRequest struct {
	Type       string                `json:"type" binding:"required,oneof=credit_card points mixed"`
	CreditCard *cardDetailsRequest   `json:"creditCard" binding:"omitempty"`
	Points     *pointsDetailsRequest `json:"points" binding:"omitempty"`
}

type createIntentRequest struct {
	BookingID     string               `json:"bookingId" binding:"required"`
	Amount        float64              `json:"amount" binding:"gte=0"`
	Currency      string               `json:"currency" binding:"required,iso4217"`
	PaymentMethod paymentMethodRequest `json:"paymentMethod" binding:"required"`
	Metadata      map[string]string    `json:"metadata"`
}

type confirmIntentRequest struct {
	PaymentMethodID string `json:"paymentMethodId"`
}

type refundIntentRequest struct {
	Amount float64 `json:"amount" binding:"gte=0"`
	Reason string  `json:"reason"`
}

func (m paymentMethodRequest) toDomain() (domain.PaymentMethod, error) {
	var card *domain.CardDetails
	if m.CreditCard != nil {
		card = &domain.CardDetails{
			Last4:       m.CreditCard.Last4,
			Brand:       m.CreditCard.Brand,
			ExpiryMonth: m.CreditCard.ExpiryMonth,
			ExpiryYear:  m.CreditCard.ExpiryYear,
			HolderName:  m.CreditCard.HolderName,
		}
	}
	var points *domain.PointsDetails
	if m.Points != nil {
		points = &domain.PointsDetails{
			Program:       m.Points.Program,
			Points:        m.Points.Points,
			CashComponent: domain.ToMinor(m.Points.CashComponent),
		}
	}

	switch domain.MethodKind(m.Type) {
	case domain.MethodCreditCard:
		if card == nil {
			return domain.PaymentMethod{}, domain.ValidationError("credit_card method requires creditCard details")
		}
		return domain.CardMethod(*card), nil
	case domain.MethodPoints:
		if points == nil {
			return domain.PaymentMethod{}, domain.ValidationError("points method requires points details")
		}
		return domain.PointsMethod(*points), nil
	default:
		if card == nil || points == nil {
			return domain.PaymentMethod{}, domain.ValidationError("mixed method requires both creditCard and points details")
		}
		return domain.MixedMethod(*card, *points), nil
	}
}

func (h *PaymentHandler) CreateIntent(c *gin.Context) {
	var req createIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	method, err := req.PaymentMethod.toDomain()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}

	res := h.svc.CreateIntent(c.Request.Context(), service.CreateIntentInput{
		BookingID: req.BookingID,
		UserID:    c.GetString(ContextUserID),
		Amount:    domain.ToMinor(req.Amount),
		Currency:  req.Currency,
		Method:    method,
		Metadata:  req.Metadata,
	})
	h.respond(c, http.StatusCreated, res)
}

func (h *PaymentHandler) ConfirmIntent(c *gin.Context) {
	var req confirmIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	res := h.svc.ConfirmIntent(c.Request.Context(), c.GetString(ContextUserID), c.Param("id"), service.ConfirmInput{
		PaymentMethodID: req.PaymentMethodID,
	})
	h.respond(c, http.StatusOK, res)
}

func (h *PaymentHandler) RefundIntent(c *gin.Context) {
	var req refundIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil && err != io.EOF {
		c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		return
	}
	res := h.svc.RefundIntent(c.Request.Context(), c.GetString(ContextUserID), c.Param("id"), service.RefundInput{
		Amount: domain.ToMinor(req.Amount),
		Reason: req.Reason,
	})
	h.respond(c, http.StatusOK, res)
}

func (h *PaymentHandler) GetIntent(c *gin.Context) {
	res := h.svc.GetIntent(c.Request.Context(), c.GetString(ContextUserID), c.Param("id"))
	h.respond(c, http.StatusOK, res)
}

func (h *PaymentHandler) BookingTransactions(c *gin.Context) {
	txns, err := h.svc.ListBookingTransactions(c.Request.Context(), c.GetString(ContextUserID), c.Param("id"))
	if err != nil {
		c.JSON(statusFor(domain.CodeOf(err)), gin.H{"success": false, "error": err.Error()})
		return
	}
	out := make([]gin.H, 0, len(txns))
	for i := range txns {
		out = append(out, transactionJSON(&txns[i]))
	}
	c.JSON(http.StatusOK, gin.H{"success": true, "transactions": out})
}

// StripeWebhook acknowledges processor callbacks. Settlement state is owned
// by the orchestrator's synchronous flow; the event is only logged.
func (h *PaymentHandler) StripeWebhook(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 1<<16))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"received": false})
		return
	}
	h.log.Info("stripe webhook received", zap.Int("bytes", len(body)))
	c.JSON(http.StatusAccepted, gin.H{"received": true})
}

func (h *PaymentHandler) respond(c *gin.Context, okStatus int, res service.Result) {
	if !res.Success {
		c.JSON(statusFor(res.Code), gin.H{"success": false, "error": res.Error})
		return
	}
	body := gin.H{"success": true}
	if res.PaymentIntent != nil {
		body["paymentIntent"] = intentJSON(res.PaymentIntent)
	}
	if res.Transaction != nil {
		body["transaction"] = transactionJSON(res.Transaction)
	}
	if len(res.Refunds) > 0 {
		refunds := make([]gin.H, 0, len(res.Refunds))
		for i := range res.Refunds {
			refunds = append(refunds, transactionJSON(&res.Refunds[i]))
		}
		body["refunds"] = refunds
	}
	if res.Receipt != nil {
		body["receipt"] = receiptJSON(res.Receipt)
	}
	c.JSON(okStatus, body)
}

func statusFor(code domain.ErrorCode) int {
	switch code {
	case domain.CodeValidation, domain.CodeState, domain.CodeInsufficientPoints, domain.CodeProvider:
		return http.StatusBadRequest
	case domain.CodeNotFound:
		return http.StatusNotFound
	case domain.CodeForbidden:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

func intentJSON(pi *domain.PaymentIntent) gin.H {
	return gin.H{
		"id":               pi.ID,
		"bookingId":        pi.BookingID,
		"userId":           pi.UserID,
		"amount":           domain.ToMajor(pi.Amount),
		"currency":         pi.Currency,
		"paymentMethod":    pi.Method,
		"status":           pi.Status,
		"providerIntentId": pi.ProviderIntentID,
		"metadata":         pi.Metadata,
		"createdAt":        pi.CreatedAt.Format(time.RFC3339),
		"updatedAt":        pi.UpdatedAt.Format(time.RFC3339),
	}
}

func transactionJSON(t *domain.PaymentTransaction) gin.H {
	out := gin.H{
		"id":                    t.ID,
		"paymentIntentId":       t.PaymentIntentID,
		"bookingId":             t.BookingID,
		"userId":                t.UserID,
		"amount":                domain.ToMajor(t.Amount),
		"currency":              t.Currency,
		"type":                  t.Type,
		"status":                t.Status,
		"provider":              t.Provider,
		"providerTransactionId": t.ProviderTransactionID,
		"createdAt":             t.CreatedAt.Format(time.RFC3339),
	}
	if t.Points != nil {
		out["pointsTransaction"] = t.Points
	}
	if t.FailureReason != "" {
		out["failureReason"] = t.FailureReason
	}
	if t.ProcessedAt != nil {
		out["processedAt"] = t.ProcessedAt.Format(time.RFC3339)
	}
	return out
}

func receiptJSON(r *domain.PaymentReceipt) gin.H {
	return gin.H{
		"id":              r.ID,
		"paymentIntentId": r.PaymentIntentID,
		"bookingId":       r.BookingID,
		"userId":          r.UserID,
		"receiptNumber":   r.ReceiptNumber,
		"totalAmount":     domain.ToMajor(r.TotalAmount),
		"currency":        r.Currency,
		"paymentBreakdown": gin.H{
			"cashAmount":  domain.ToMajor(r.Breakdown.CashAmount),
			"pointsUsed":  r.Breakdown.PointsUsed,
			"pointsValue": domain.ToMajor(r.Breakdown.PointsValue),
			"taxes":       domain.ToMajor(r.Breakdown.Taxes),
			"fees":        domain.ToMajor(r.Breakdown.Fees),
		},
		"paymentMethod": r.Method,
		"issuedAt":      r.IssuedAt.Format(time.RFC3339),
		"receiptUrl":    r.ReceiptURL,
	}
}
