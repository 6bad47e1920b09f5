package checkout

import (
	"checkout-service/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// Report accumulates validation failures over a single pipeline run.
// Stages append to it and never return early on an ordinary failure.
type Report struct {
	failures []models.ValidationFailure
}

// Add appends a failure.
func (r *Report) Add(f models.ValidationFailure) {
	r.failures = append(r.failures, f)
}

// Failures returns the recorded failures in the order they were found.
func (r *Report) Failures() []models.ValidationFailure {
	out := make([]models.ValidationFailure, len(r.failures))
	copy(out, r.failures)
	return out
}

// Empty reports whether no failure has been recorded.
func (r *Report) Empty() bool { return len(r.failures) == 0 }

// Len returns the number of recorded failures.
func (r *Report) Len() int { return len(r.failures) }

// Internal reports whether any recorded failure is a contract violation.
func (r *Report) Internal() bool {
	for _, f := range r.failures {
		if f.Kind.Internal() {
			return true
		}
	}
	return false
}

// Kinds lists the failure kinds in order, for logging.
func (r *Report) Kinds() []string {
	kinds := make([]string, 0, len(r.failures))
	for _, f := range r.failures {
		kinds = append(kinds, string(f.Kind))
	}
	return kinds
}

func emptyCart() models.ValidationFailure {
	return models.ValidationFailure{Kind: models.FailureEmptyCart}
}

func unpopulatedSnapshot(item models.CartItem) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:      models.FailureUnpopulatedSnapshot,
		ProductID: hexOrEmpty(item.ProductID),
		VariantID: hexOrEmpty(item.VariantID),
	}
}

func productUnavailable(productID primitive.ObjectID) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:      models.FailureProductUnavailable,
		ProductID: productID.Hex(),
	}
}

func variantUnavailable(productID, variantID primitive.ObjectID) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:      models.FailureVariantUnavailable,
		ProductID: productID.Hex(),
		VariantID: variantID.Hex(),
	}
}

func insufficientStock(productID, variantID primitive.ObjectID, available, requested int) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:      models.FailureInsufficientStock,
		ProductID: productID.Hex(),
		VariantID: variantID.Hex(),
		Available: &available,
		Requested: &requested,
	}
}

func invalidQuantity(productID, variantID primitive.ObjectID, requested int) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:      models.FailureInvalidQuantity,
		ProductID: productID.Hex(),
		VariantID: variantID.Hex(),
		Requested: &requested,
	}
}

func storeNotFound(storeID primitive.ObjectID) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:    models.FailureStoreNotFound,
		StoreID: storeID.Hex(),
	}
}

func storeMissingShippingPolicy(storeID primitive.ObjectID) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:    models.FailureStoreMissingShippingPolicy,
		StoreID: storeID.Hex(),
	}
}

func belowMinimumOrder(storeID primitive.ObjectID, minimum, actual decimal.Decimal) models.ValidationFailure {
	return models.ValidationFailure{
		Kind:    models.FailureBelowMinimumOrder,
		StoreID: storeID.Hex(),
		Minimum: &minimum,
		Actual:  &actual,
	}
}

func hexOrEmpty(id primitive.ObjectID) string {
	if id.IsZero() {
		return ""
	}
	return id.Hex()
}
