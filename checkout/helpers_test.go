package checkout_test

import (
	"context"
	"errors"

	"checkout-service/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// line builds a populated, purchasable cart line for the given store.
func line(storeID primitive.ObjectID, price string, qty, stock int) models.CartItem {
	productID := primitive.NewObjectID()
	variantID := primitive.NewObjectID()
	return models.CartItem{
		ProductID: productID,
		VariantID: variantID,
		Quantity:  qty,
		Product: &models.Product{
			ID:      productID,
			Name:    "product-" + productID.Hex()[18:],
			Status:  models.ProductStatusActive,
			StoreID: storeID,
		},
		Variant: &models.Variant{
			ID:        variantID,
			ProductID: productID,
			Status:    models.VariantStatusActive,
			Price:     dec(price),
			InStock:   stock,
		},
	}
}

func store(id primitive.ObjectID, minimum string, policy *models.ShippingPolicy) models.Store {
	return models.Store{ID: id, Name: "store-" + id.Hex()[18:], MinimumOrder: dec(minimum), DefaultShipping: policy}
}

func flat(price string) *models.ShippingPolicy {
	return &models.ShippingPolicy{Price: dec(price)}
}

func freeAbove(price, threshold string) *models.ShippingPolicy {
	return &models.ShippingPolicy{Price: dec(price), FreeAbove: decPtr(threshold)}
}

// ---- fake store loader ----

type fakeStores struct {
	stores []models.Store
	err    error
	calls  int
	asked  []primitive.ObjectID
}

func (f *fakeStores) FindByIDs(_ context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	f.calls++
	f.asked = ids
	if f.err != nil {
		return nil, f.err
	}
	want := make(map[primitive.ObjectID]bool, len(ids))
	for _, id := range ids {
		want[id] = true
	}
	var out []models.Store
	for _, s := range f.stores {
		if want[s.ID] {
			out = append(out, s)
		}
	}
	return out, nil
}

var errBoom = errors.New("boom")

func kinds(failures []models.ValidationFailure) []models.FailureKind {
	out := make([]models.FailureKind, 0, len(failures))
	for _, f := range failures {
		out = append(out, f.Kind)
	}
	return out
}
