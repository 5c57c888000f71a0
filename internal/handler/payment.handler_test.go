package handler

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	json "github.com/goccy/go-json"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"voyagepay/internal/domain"
	"voyagepay/internal/service"
)

var testSecret = []byte("test-secret")

type fakePaymentService struct {
	lastCreate  service.CreateIntentInput
	createRes   service.Result
	confirmRes  service.Result
	refundRes   service.Result
	getRes      service.Result
	listTxns    []domain.PaymentTransaction
	listErr     error
	lastUserID  string
	lastIntent  string
	lastBooking string
}

func (f *fakePaymentService) CreateIntent(ctx context.Context, in service.CreateIntentInput) service.Result {
	f.lastCreate = in
	return f.createRes
}

func (f *fakePaymentService) ConfirmIntent(ctx context.Context, userID, intentID string, in service.ConfirmInput) service.Result {
	f.lastUserID, f.lastIntent = userID, intentID
	return f.confirmRes
}

func (f *fakePaymentService) RefundIntent(ctx context.Context, userID, intentID string, in service.RefundInput) service.Result {
	f.lastUserID, f.lastIntent = userID, intentID
	return f.refundRes
}

func (f *fakePaymentService) GetIntent(ctx context.Context, userID, intentID string) service.Result {
	f.lastUserID, f.lastIntent = userID, intentID
	return f.getRes
}

func (f *fakePaymentService) ListBookingTransactions(ctx context.Context, userID, bookingID string) ([]domain.PaymentTransaction, error) {
	f.lastUserID, f.lastBooking = userID, bookingID
	return f.listTxns, f.listErr
}

type healthOK struct{}

func (healthOK) Health() map[string]string { return map[string]string{"status": "up"} }
func (healthOK) Close() error              { return nil }

func newTestRouter(svc service.PaymentService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(svc, healthOK{}, zap.NewNop(), testSecret)
}

func bearerToken(t *testing.T, userID string) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{
		Subject:   userID,
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	signed, err := token.SignedString(testSecret)
	require.NoError(t, err)
	return "Bearer " + signed
}

func doRequest(t *testing.T, r *gin.Engine, method, path, auth, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if auth != "" {
		req.Header.Set("Authorization", auth)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

const createBody = `{
	"bookingId": "bk_1",
	"amount": 100.00,
	"currency": "USD",
	"paymentMethod": {
		"type": "credit_card",
		"creditCard": {"last4":"4242","brand":"visa","expiryMonth":12,"expiryYear":2030,"holderName":"A TRAVELER"}
	}
}`

func TestCreateIntentRequiresAuth(t *testing.T) {
	r := newTestRouter(&fakePaymentService{})
	w := doRequest(t, r, http.MethodPost, "/api/v1/intents", "", createBody)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestCreateIntent(t *testing.T) {
	fake := &fakePaymentService{createRes: service.Result{
		Success:       true,
		PaymentIntent: &domain.PaymentIntent{ID: "pi_1", Amount: 10000, Currency: "USD", Status: domain.IntentPending},
	}}
	r := newTestRouter(fake)

	w := doRequest(t, r, http.MethodPost, "/api/v1/intents", bearerToken(t, "usr_1"), createBody)

	assert.Equal(t, http.StatusCreated, w.Code)
	assert.Equal(t, "usr_1", fake.lastCreate.UserID)
	assert.Equal(t, int64(10000), fake.lastCreate.Amount)
	assert.Equal(t, domain.MethodCreditCard, fake.lastCreate.Method.Kind())

	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	intent := body["paymentIntent"].(map[string]any)
	assert.Equal(t, "pi_1", intent["id"])
	assert.Equal(t, 100.0, intent["amount"])
}

func TestCreateIntentRejectsMalformedBody(t *testing.T) {
	r := newTestRouter(&fakePaymentService{})
	w := doRequest(t, r, http.MethodPost, "/api/v1/intents", bearerToken(t, "usr_1"),
		`{"bookingId":"bk_1","amount":100,"currency":"US","paymentMethod":{"type":"credit_card"}}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCreateIntentRejectsBadProgramSlug(t *testing.T) {
	r := newTestRouter(&fakePaymentService{})
	w := doRequest(t, r, http.MethodPost, "/api/v1/intents", bearerToken(t, "usr_1"), `{
		"bookingId": "bk_1", "amount": 100, "currency": "USD",
		"paymentMethod": {"type": "points", "points": {"program": "Chase UR!", "points": 1000}}
	}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestErrorCodeStatusMapping(t *testing.T) {
	tests := []struct {
		code domain.ErrorCode
		want int
	}{
		{domain.CodeValidation, http.StatusBadRequest},
		{domain.CodeInsufficientPoints, http.StatusBadRequest},
		{domain.CodeState, http.StatusBadRequest},
		{domain.CodeProvider, http.StatusBadRequest},
		{domain.CodeNotFound, http.StatusNotFound},
		{domain.CodeForbidden, http.StatusForbidden},
		{domain.CodeUnknown, http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			fake := &fakePaymentService{getRes: service.Result{Success: false, Code: tt.code, Error: "boom"}}
			r := newTestRouter(fake)
			w := doRequest(t, r, http.MethodGet, "/api/v1/intents/pi_1", bearerToken(t, "usr_1"), "")
			assert.Equal(t, tt.want, w.Code)
		})
	}
}

func TestConfirmIntentPassesCallerAndID(t *testing.T) {
	fake := &fakePaymentService{confirmRes: service.Result{
		Success:       true,
		PaymentIntent: &domain.PaymentIntent{ID: "pi_9", Status: domain.IntentCompleted},
	}}
	r := newTestRouter(fake)

	w := doRequest(t, r, http.MethodPost, "/api/v1/intents/pi_9/confirm", bearerToken(t, "usr_2"), `{"paymentMethodId":"pm_tok"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "usr_2", fake.lastUserID)
	assert.Equal(t, "pi_9", fake.lastIntent)
}

func TestRefundIntentConvertsAmount(t *testing.T) {
	fake := &fakePaymentService{refundRes: service.Result{Success: true}}
	r := newTestRouter(fake)

	w := doRequest(t, r, http.MethodPost, "/api/v1/intents/pi_9/refund", bearerToken(t, "usr_2"), `{"amount": 150.00, "reason": "cancelled"}`)

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "pi_9", fake.lastIntent)
}

func TestBookingTransactions(t *testing.T) {
	fake := &fakePaymentService{listTxns: []domain.PaymentTransaction{
		{ID: "txn_1", Amount: 10000, Type: domain.TxnCharge, Provider: domain.ProviderStripe},
	}}
	r := newTestRouter(fake)

	w := doRequest(t, r, http.MethodGet, "/api/v1/bookings/bk_1/transactions", bearerToken(t, "usr_1"), "")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "bk_1", fake.lastBooking)
	var body map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Len(t, body["transactions"], 1)
}

func TestStripeWebhookIsAcknowledgedWithoutAuth(t *testing.T) {
	r := newTestRouter(&fakePaymentService{})
	w := doRequest(t, r, http.MethodPost, "/webhooks/stripe", "", `{"type":"payment_intent.succeeded"}`)
	assert.Equal(t, http.StatusAccepted, w.Code)
}

func TestHealth(t *testing.T) {
	r := newTestRouter(&fakePaymentService{})
	w := doRequest(t, r, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"status":"up"`)
}
