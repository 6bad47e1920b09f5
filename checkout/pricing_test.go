package checkout_test

import (
	"testing"

	"checkout-service/checkout"
	"checkout-service/models"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

func TestShippingPolicy_ThresholdIsInclusive(t *testing.T) {
	policy := freeAbove("6.90", "50.00")

	tests := []struct {
		name       string
		itemsTotal string
		want       string
	}{
		{"exactly at threshold", "50.00", "0"},
		{"one cent below", "49.99", "6.90"},
		{"above threshold", "120.00", "0"},
		{"zero subtotal", "0", "6.90"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := policy.CostFor(dec(tc.itemsTotal))
			assert.True(t, got.Equal(dec(tc.want)), "got %s", got)
		})
	}
}

func TestShippingPolicy_NoThresholdIsFlat(t *testing.T) {
	assert.True(t, flat("10").CostFor(dec("100000")).Equal(dec("10")))
}

func TestPrice_SetsShippingAndTotal(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	sa, sb := store(a, "0", freeAbove("5", "25")), store(b, "0", flat("3.50"))
	parts := []*checkout.DraftPart{
		{StoreID: a, ItemsTotal: dec("25.00"), Store: &sa},
		{StoreID: b, ItemsTotal: dec("24.99"), Store: &sb},
	}

	report := &checkout.Report{}
	total := checkout.Price(parts, checkout.DefaultPricingConfig(), report)

	assert.True(t, report.Empty())
	assert.True(t, parts[0].ShippingCost.IsZero())
	assert.True(t, parts[1].ShippingCost.Equal(dec("3.50")))
	assert.True(t, total.Equal(dec("53.49")))
}

func TestPrice_MissingPolicyLeavesPartUnpriced(t *testing.T) {
	s := primitive.NewObjectID()
	st := store(s, "0", nil)
	parts := []*checkout.DraftPart{{StoreID: s, ItemsTotal: dec("10"), Store: &st}}

	report := &checkout.Report{}
	total := checkout.Price(parts, checkout.DefaultPricingConfig(), report)

	assert.True(t, total.IsZero())
	assert.False(t, parts[0].Priced)
	assert.Equal(t, []models.FailureKind{models.FailureStoreMissingShippingPolicy}, kinds(report.Failures()))
}

func TestPricingConfig_Round(t *testing.T) {
	cfg := checkout.PricingConfig{Currency: "JPY", Scale: 0}
	assert.True(t, cfg.Round(dec("1234.5")).Equal(dec("1235")))
	assert.True(t, checkout.DefaultPricingConfig().Round(dec("0.125")).Equal(dec("0.13")))
}

func TestCheckMinimumOrder_BoundaryIsNotAFailure(t *testing.T) {
	s := primitive.NewObjectID()
	st := store(s, "40", flat("1"))
	parts := []*checkout.DraftPart{{StoreID: s, ItemsTotal: dec("40.00"), Store: &st}}

	report := &checkout.Report{}
	checkout.CheckMinimumOrder(parts, report)

	assert.True(t, report.Empty())
}

func TestResolveMerchants_PairsStores(t *testing.T) {
	a, b := primitive.NewObjectID(), primitive.NewObjectID()
	parts := []*checkout.DraftPart{{StoreID: a}, {StoreID: b}}
	loaded := []models.Store{store(b, "0", flat("1")), store(a, "0", flat("2"))}

	report := &checkout.Report{}
	ok := checkout.ResolveMerchants(parts, loaded, report)

	assert.True(t, ok)
	assert.Equal(t, a, parts[0].Store.ID)
	assert.Equal(t, b, parts[1].Store.ID)
}
