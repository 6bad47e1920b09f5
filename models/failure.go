package models

import "github.com/shopspring/decimal"

// FailureKind classifies a single checkout validation problem.
type FailureKind string

const (
	FailureProductUnavailable         FailureKind = "product_unavailable"
	FailureVariantUnavailable         FailureKind = "variant_unavailable"
	FailureInsufficientStock          FailureKind = "insufficient_stock"
	FailureInvalidQuantity            FailureKind = "invalid_quantity"
	FailureStoreMissingShippingPolicy FailureKind = "store_missing_shipping_policy"
	FailureBelowMinimumOrder          FailureKind = "below_minimum_order"
	FailureStoreNotFound              FailureKind = "store_not_found"
	FailureEmptyCart                  FailureKind = "empty_cart"
	FailureUnpopulatedSnapshot        FailureKind = "unpopulated_snapshot"
)

// Internal reports whether the kind signals an upstream contract violation
// rather than a stale or invalid cart.
func (k FailureKind) Internal() bool {
	return k == FailureUnpopulatedSnapshot
}

// ValidationFailure is one problem found while building a checkout session.
// Failures are returned to the caller and never persisted.
type ValidationFailure struct {
	Kind      FailureKind      `json:"kind"`
	ProductID string           `json:"product_id,omitempty"`
	VariantID string           `json:"variant_id,omitempty"`
	StoreID   string           `json:"store_id,omitempty"`
	Available *int             `json:"available,omitempty"`
	Requested *int             `json:"requested,omitempty"`
	Minimum   *decimal.Decimal `json:"minimum,omitempty"`
	Actual    *decimal.Decimal `json:"actual,omitempty"`
}
