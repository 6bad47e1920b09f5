package checkout

import (
	"checkout-service/models"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DraftItem is an accepted cart line inside a draft part.
type DraftItem struct {
	ProductID   primitive.ObjectID
	VariantID   primitive.ObjectID
	ProductName string
	Quantity    int
	UnitPrice   decimal.Decimal
	LineTotal   decimal.Decimal
}

// DraftPart collects the accepted lines of one store while the pipeline runs.
// It is paired with its Store record by ResolveMerchants and priced by Price.
type DraftPart struct {
	StoreID      primitive.ObjectID
	Items        []DraftItem
	ItemsTotal   decimal.Decimal
	Store        *models.Store
	ShippingCost decimal.Decimal
	Priced       bool
}

// partIndex is an insertion-ordered map of draft parts keyed by store id.
type partIndex struct {
	order []primitive.ObjectID
	parts map[primitive.ObjectID]*DraftPart
}

func newPartIndex() *partIndex {
	return &partIndex{parts: make(map[primitive.ObjectID]*DraftPart)}
}

func (idx *partIndex) get(storeID primitive.ObjectID) *DraftPart {
	if p, ok := idx.parts[storeID]; ok {
		return p
	}
	p := &DraftPart{StoreID: storeID, ItemsTotal: decimal.Zero}
	idx.parts[storeID] = p
	idx.order = append(idx.order, storeID)
	return p
}

// nonEmpty returns parts with at least one accepted line, in first-seen order.
func (idx *partIndex) nonEmpty() []*DraftPart {
	out := make([]*DraftPart, 0, len(idx.order))
	for _, id := range idx.order {
		if p := idx.parts[id]; len(p.Items) > 0 {
			out = append(out, p)
		}
	}
	return out
}

// Partition groups cart lines by store in first-occurrence order, validating
// each line as it goes. Unavailable lines are recorded in the report and left
// out of their part; parts left without any line are dropped.
//
// Line totals and subtotals are exact; rounding is left to the final amounts.
// An empty cart or a line without a resolved snapshot aborts immediately and
// ok is false.
func Partition(items []models.CartItem, report *Report) (parts []*DraftPart, ok bool) {
	if len(items) == 0 {
		report.Add(emptyCart())
		return nil, false
	}
	for _, item := range items {
		if !item.Populated() {
			report.Add(unpopulatedSnapshot(item))
			return nil, false
		}
	}

	idx := newPartIndex()
	for _, item := range items {
		part := idx.get(item.Product.StoreID)
		if f, accepted := checkItem(item); !accepted {
			report.Add(f)
			continue
		}
		lineTotal := item.Variant.Price.Mul(decimal.NewFromInt(int64(item.Quantity)))
		part.Items = append(part.Items, DraftItem{
			ProductID:   item.ProductID,
			VariantID:   item.VariantID,
			ProductName: item.Product.Name,
			Quantity:    item.Quantity,
			UnitPrice:   item.Variant.Price,
			LineTotal:   lineTotal,
		})
		part.ItemsTotal = part.ItemsTotal.Add(lineTotal)
	}
	return idx.nonEmpty(), true
}

// StoreIDs returns the distinct store ids of the parts in part order.
func StoreIDs(parts []*DraftPart) []primitive.ObjectID {
	ids := make([]primitive.ObjectID, 0, len(parts))
	for _, p := range parts {
		ids = append(ids, p.StoreID)
	}
	return ids
}
