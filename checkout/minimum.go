package checkout

// CheckMinimumOrder records a failure for every part whose item subtotal,
// shipping excluded, is below its store's minimum order value.
func CheckMinimumOrder(parts []*DraftPart, report *Report) {
	for _, p := range parts {
		if p.Store == nil {
			continue
		}
		if p.ItemsTotal.LessThan(p.Store.MinimumOrder) {
			report.Add(belowMinimumOrder(p.StoreID, p.Store.MinimumOrder, p.ItemsTotal))
		}
	}
}
