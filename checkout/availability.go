package checkout

import "checkout-service/models"

// checkItem applies the purchasability rules to one populated cart line.
// The first rule that fails wins.
func checkItem(item models.CartItem) (models.ValidationFailure, bool) {
	switch {
	case item.Quantity <= 0:
		return invalidQuantity(item.ProductID, item.VariantID, item.Quantity), false
	case !item.Product.IsActive():
		return productUnavailable(item.ProductID), false
	case !item.Variant.IsActive():
		return variantUnavailable(item.ProductID, item.VariantID), false
	case item.Variant.InStock < item.Quantity:
		return insufficientStock(item.ProductID, item.VariantID, item.Variant.InStock, item.Quantity), false
	}
	return models.ValidationFailure{}, true
}
