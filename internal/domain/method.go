package domain

import (
	"fmt"

	json "github.com/goccy/go-json"
)

type MethodKind string

const (
	MethodCreditCard MethodKind = "credit_card"
	MethodPoints     MethodKind = "points"
	MethodMixed      MethodKind = "mixed"
)

type CardDetails struct {
	Last4       string `json:"last4"`
	Brand       string `json:"brand"`
	ExpiryMonth int    `json:"expiryMonth"`
	ExpiryYear  int    `json:"expiryYear"`
	HolderName  string `json:"holderName"`
}

type PointsDetails struct {
	Program string `json:"program"`
	Points  int64  `json:"points"`
	// CashComponent is the minor-unit cash value the points cover. Zero for
	// a pure points tender means the ledger values the points at confirm time.
	CashComponent int64 `json:"cashComponent"`
}

// PaymentMethod is a closed tagged union: exactly one tender shape per kind.
// The zero value is invalid; build one with CardMethod, PointsMethod or
// MixedMethod.
type PaymentMethod struct {
	kind   MethodKind
	card   *CardDetails
	points *PointsDetails
}

func CardMethod(c CardDetails) PaymentMethod {
	return PaymentMethod{kind: MethodCreditCard, card: &c}
}

func PointsMethod(p PointsDetails) PaymentMethod {
	return PaymentMethod{kind: MethodPoints, points: &p}
}

func MixedMethod(c CardDetails, p PointsDetails) PaymentMethod {
	return PaymentMethod{kind: MethodMixed, card: &c, points: &p}
}

func (m PaymentMethod) Kind() MethodKind { return m.kind }

func (m PaymentMethod) Card() (CardDetails, bool) {
	if m.card == nil {
		return CardDetails{}, false
	}
	return *m.card, true
}

func (m PaymentMethod) Points() (PointsDetails, bool) {
	if m.points == nil {
		return PointsDetails{}, false
	}
	return *m.points, true
}

// Validate checks the variant's required sub-fields for its kind.
func (m PaymentMethod) Validate() error {
	switch m.kind {
	case MethodCreditCard:
		if m.card == nil {
			return ValidationError("credit_card method requires creditCard details")
		}
	case MethodPoints:
		if m.points == nil {
			return ValidationError("points method requires points details")
		}
		if m.points.Program == "" || m.points.Points <= 0 {
			return ValidationError("points method requires a program and a positive points count")
		}
		if m.points.CashComponent < 0 {
			return ValidationError("points cash component must not be negative")
		}
	case MethodMixed:
		if m.card == nil || m.points == nil {
			return ValidationError("mixed method requires both creditCard and points details")
		}
		if m.points.Program == "" || m.points.Points <= 0 {
			return ValidationError("mixed method requires a program and a positive points count")
		}
		if m.points.CashComponent < 0 {
			return ValidationError("points cash component must not be negative")
		}
	default:
		return ValidationError("unknown payment method type %q", string(m.kind))
	}
	return nil
}

type methodJSON struct {
	Type       MethodKind     `json:"type"`
	CreditCard *CardDetails   `json:"creditCard,omitempty"`
	Points     *PointsDetails `json:"points,omitempty"`
}

func (m PaymentMethod) MarshalJSON() ([]byte, error) {
	return json.Marshal(methodJSON{Type: m.kind, CreditCard: m.card, Points: m.points})
}

func (m *PaymentMethod) UnmarshalJSON(data []byte) error {
	var raw methodJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	switch raw.Type {
	case MethodCreditCard, MethodPoints, MethodMixed:
	default:
		return fmt.Errorf("unknown payment method type %q", string(raw.Type))
	}
	m.kind = raw.Type
	m.card = raw.CreditCard
	m.points = raw.Points
	return nil
}
