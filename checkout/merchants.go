package checkout

import (
	"checkout-service/models"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ResolveMerchants pairs every part with its loaded Store record. The loaded
// slice may omit unknown ids; each missing store is recorded as a failure and
// ok is false, since no part can be priced without its store.
func ResolveMerchants(parts []*DraftPart, stores []models.Store, report *Report) (ok bool) {
	byID := make(map[primitive.ObjectID]*models.Store, len(stores))
	for i := range stores {
		byID[stores[i].ID] = &stores[i]
	}

	ok = true
	for _, p := range parts {
		store, found := byID[p.StoreID]
		if !found {
			report.Add(storeNotFound(p.StoreID))
			ok = false
			continue
		}
		p.Store = store
	}
	return ok
}
