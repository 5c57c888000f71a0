package domain

import (
	"strconv"
	"time"

	"github.com/google/uuid"
)

type IntentStatus string

const (
	IntentPending   IntentStatus = "pending"
	IntentCompleted IntentStatus = "completed"
	IntentFailed    IntentStatus = "failed"
)

// Metadata keys for the frozen mixed-tender split. The split is computed at
// creation time and never recomputed, because the ledger's point-to-cash
// rate may drift between create and confirm.
const (
	MetaPointsValue = "pointsValue"
	MetaCardAmount  = "creditCardAmount"
)

// Backend references recorded when a mixed settlement opens its legs at
// confirm time; refunds route through them.
const (
	MetaPointsIntentRef = "pointsIntentRef"
	MetaCardIntentID    = "cardIntentId"
)

type PaymentIntent struct {
	ID               string
	BookingID        string
	UserID           string
	Amount           int64
	Currency         string
	Method           PaymentMethod
	Status           IntentStatus
	ProviderIntentID string
	Metadata         map[string]string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// FreezeSplit stores the mixed split into metadata.
func (pi *PaymentIntent) FreezeSplit(pointsValue, cardAmount int64) {
	if pi.Metadata == nil {
		pi.Metadata = make(map[string]string)
	}
	pi.Metadata[MetaPointsValue] = strconv.FormatInt(pointsValue, 10)
	pi.Metadata[MetaCardAmount] = strconv.FormatInt(cardAmount, 10)
}

// FrozenSplit reads the creation-time split back out of metadata.
func (pi *PaymentIntent) FrozenSplit() (pointsValue, cardAmount int64, err error) {
	pv, ok := pi.Metadata[MetaPointsValue]
	if !ok {
		return 0, 0, StateError("intent %s has no frozen points value", pi.ID)
	}
	ca, ok := pi.Metadata[MetaCardAmount]
	if !ok {
		return 0, 0, StateError("intent %s has no frozen card amount", pi.ID)
	}
	pointsValue, err = strconv.ParseInt(pv, 10, 64)
	if err != nil {
		return 0, 0, StateError("intent %s has a corrupt points value %q", pi.ID, pv)
	}
	cardAmount, err = strconv.ParseInt(ca, 10, 64)
	if err != nil {
		return 0, 0, StateError("intent %s has a corrupt card amount %q", pi.ID, ca)
	}
	return pointsValue, cardAmount, nil
}

// NewID builds a prefixed opaque id, e.g. pi_8f14e45f-....
func NewID(prefix string) string {
	return prefix + "_" + uuid.NewString()
}

const (
	IntentIDPrefix      = "pi"
	TransactionIDPrefix = "txn"
	ReceiptIDPrefix     = "rcp"
)
