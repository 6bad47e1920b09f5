package models

import "go.mongodb.org/mongo-driver/bson/primitive"

// CartItem is one product+variant+quantity entry of a user's cart together with
// the product and variant resolved at read time.
type CartItem struct {
	ProductID primitive.ObjectID `json:"product_id"`
	VariantID primitive.ObjectID `json:"variant_id"`
	Quantity  int                `json:"quantity"`

	Product *Product `json:"product,omitempty"`
	Variant *Variant `json:"variant,omitempty"`
}

// Populated reports whether the item carries resolved product and variant
// snapshots that match the ids it references.
func (i CartItem) Populated() bool {
	if i.Product == nil || i.Variant == nil {
		return false
	}
	return i.Product.ID == i.ProductID && i.Variant.ID == i.VariantID
}
