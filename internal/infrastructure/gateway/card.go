package gateway

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"

	"voyagepay/internal/domain"
)

type CardIntent struct {
	ProviderIntentID string
	Status           string
}

type CardSettlement struct {
	Status                string
	ProviderTransactionID string
}

// CardGateway is the card processor contract. Retry and webhook handling
// live inside the real client; callers see blocking calls that either
// settle or fail.
type CardGateway interface {
	CreateIntent(ctx context.Context, amount int64, currency string, card domain.CardDetails) (CardIntent, error)
	ConfirmIntent(ctx context.Context, providerIntentID, paymentMethodID string) (CardSettlement, error)
	Refund(ctx context.Context, providerIntentID string, amount int64) (CardSettlement, error)
	// CheckStatus reports whether the processor settled the intent,
	// regardless of what the caller saw. Used by reconciliation.
	CheckStatus(ctx context.Context, providerIntentID string) (bool, error)
}

type simCardGateway struct {
	mu      sync.RWMutex
	amounts map[string]int64
	charged map[string]bool
}

// NewSimCardGateway returns an in-memory card processor. Confirm is
// idempotent per provider intent id. A card with last4 0002 is declined,
// matching the common test-card convention.
func NewSimCardGateway() CardGateway {
	return &simCardGateway{
		amounts: make(map[string]int64),
		charged: make(map[string]bool),
	}
}

func (g *simCardGateway) CreateIntent(ctx context.Context, amount int64, currency string, card domain.CardDetails) (CardIntent, error) {
	if card.Last4 == "0002" {
		return CardIntent{}, errors.New("card declined")
	}
	id := "in_" + uuid.NewString()
	g.mu.Lock()
	g.amounts[id] = amount
	g.mu.Unlock()
	return CardIntent{ProviderIntentID: id, Status: "requires_confirmation"}, nil
}

func (g *simCardGateway) ConfirmIntent(ctx context.Context, providerIntentID, paymentMethodID string) (CardSettlement, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, ok := g.amounts[providerIntentID]; !ok {
		return CardSettlement{}, errors.New("no such payment intent")
	}
	if g.charged[providerIntentID] {
		return CardSettlement{Status: "succeeded", ProviderTransactionID: "ch_replayed"}, nil
	}
	g.charged[providerIntentID] = true
	return CardSettlement{Status: "succeeded", ProviderTransactionID: "ch_" + uuid.NewString()}, nil
}

func (g *simCardGateway) Refund(ctx context.Context, providerIntentID string, amount int64) (CardSettlement, error) {
	g.mu.RLock()
	charged := g.charged[providerIntentID]
	g.mu.RUnlock()
	if !charged {
		return CardSettlement{}, errors.New("intent was never captured")
	}
	return CardSettlement{Status: "succeeded", ProviderTransactionID: "re_" + uuid.NewString()}, nil
}

func (g *simCardGateway) CheckStatus(ctx context.Context, providerIntentID string) (bool, error) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.charged[providerIntentID], nil
}
