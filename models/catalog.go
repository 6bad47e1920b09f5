package models

import (
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ProductStatus is the lifecycle state of a product.
type ProductStatus string

const (
	ProductStatusActive   ProductStatus = "active"
	ProductStatusInactive ProductStatus = "inactive"
	ProductStatusDraft    ProductStatus = "draft"
	ProductStatusDeleted  ProductStatus = "deleted"
)

// VariantStatus is the lifecycle state of a single product variant.
type VariantStatus string

const (
	VariantStatusActive          VariantStatus = "active"
	VariantStatusDeleted         VariantStatus = "deleted"
	VariantStatusOutOfProduction VariantStatus = "out_of_production"
)

// Product is the read-time view of a catalog product used during checkout.
type Product struct {
	ID      primitive.ObjectID `json:"_id"`
	Name    string             `json:"name"`
	Status  ProductStatus      `json:"status"`
	StoreID primitive.ObjectID `json:"store_id"`
}

// IsActive reports whether the product can be purchased.
func (p *Product) IsActive() bool {
	return p.Status == ProductStatusActive
}

// Variant is a purchasable configuration of a product with its own price and stock.
type Variant struct {
	ID        primitive.ObjectID `json:"_id"`
	ProductID primitive.ObjectID `json:"product_id"`
	Status    VariantStatus      `json:"status"`
	Price     decimal.Decimal    `json:"price"`
	InStock   int                `json:"in_stock"`
}

// IsActive reports whether the variant can be purchased.
func (v *Variant) IsActive() bool {
	return v.Status == VariantStatusActive
}

// ShippingPolicy is a merchant's flat shipping rate with an optional free-shipping threshold.
type ShippingPolicy struct {
	Price     decimal.Decimal  `json:"price"`
	FreeAbove *decimal.Decimal `json:"free_above,omitempty"`
}

// CostFor returns the shipping cost for a store part with the given item subtotal.
// The threshold is inclusive.
func (p ShippingPolicy) CostFor(itemsTotal decimal.Decimal) decimal.Decimal {
	if p.FreeAbove != nil && itemsTotal.GreaterThanOrEqual(*p.FreeAbove) {
		return decimal.Zero
	}
	return p.Price
}

// Store is a merchant selling products on the platform.
type Store struct {
	ID              primitive.ObjectID `json:"_id"`
	Name            string             `json:"name"`
	MinimumOrder    decimal.Decimal    `json:"minimum_order"`
	DefaultShipping *ShippingPolicy    `json:"default_shipping,omitempty"`
}
