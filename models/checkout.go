package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// SessionStatus is the lifecycle state of a persisted checkout session.
type SessionStatus string

const (
	SessionStatusOpen SessionStatus = "open"
)

// CheckoutSessionItem is a priced line of a store part.
type CheckoutSessionItem struct {
	ProductID   string          `json:"product_id" validate:"required"`
	VariantID   string          `json:"variant_id" validate:"required"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity" validate:"gt=0"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
}

// CheckoutSessionPart groups the priced lines of a single store.
type CheckoutSessionPart struct {
	StoreID      string                `json:"store_id" validate:"required"`
	StoreName    string                `json:"store_name"`
	Items        []CheckoutSessionItem `json:"items" validate:"required,min=1,dive"`
	ItemsTotal   decimal.Decimal       `json:"items_total"`
	ShippingCost decimal.Decimal       `json:"shipping_cost"`
}

// Total returns the part subtotal plus its shipping cost.
func (p CheckoutSessionPart) Total() decimal.Decimal {
	return p.ItemsTotal.Add(p.ShippingCost)
}

// CheckoutSession is the immutable, priced proposal built from a user's cart.
type CheckoutSession struct {
	ID             uuid.UUID             `json:"session_id"`
	Token          string                `json:"token" validate:"required"`
	UserID         string                `json:"user_id" validate:"required"`
	Parts          []CheckoutSessionPart `json:"parts" validate:"required,min=1,dive"`
	Total          decimal.Decimal       `json:"total"`
	Currency       string                `json:"currency" validate:"required,len=3"`
	Status         SessionStatus         `json:"status" validate:"required"`
	IdempotencyKey string                `json:"idempotency_key,omitempty" validate:"max=128"`
	CreatedAt      time.Time             `json:"created_at"`
	ExpiresAt      time.Time             `json:"expires_at"`
}

// Expired reports whether the session can no longer be used for payment.
func (s *CheckoutSession) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

var validate = validator.New()

// ValidateSession checks the structural and monetary invariants of a session
// before it is persisted.
func ValidateSession(s *CheckoutSession) error {
	if s == nil {
		return errors.New("session is nil")
	}
	if s.ID == uuid.Nil {
		return errors.New("session id is empty")
	}
	if err := validate.Struct(s); err != nil {
		return fmt.Errorf("invalid session: %w", err)
	}

	sum := decimal.Zero
	for _, part := range s.Parts {
		if part.ItemsTotal.IsNegative() || part.ShippingCost.IsNegative() {
			return fmt.Errorf("store %s has a negative amount", part.StoreID)
		}
		itemsSum := decimal.Zero
		for _, item := range part.Items {
			itemsSum = itemsSum.Add(item.LineTotal)
		}
		if !itemsSum.Equal(part.ItemsTotal) {
			return fmt.Errorf("store %s items total %s does not match its lines %s", part.StoreID, part.ItemsTotal, itemsSum)
		}
		sum = sum.Add(part.Total())
	}
	if !sum.Equal(s.Total) {
		return fmt.Errorf("session total %s does not match its parts %s", s.Total, sum)
	}
	return nil
}
