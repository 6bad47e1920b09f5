package checkout

import "github.com/shopspring/decimal"

// PricingConfig carries the monetary settings the pipeline needs.
type PricingConfig struct {
	Currency string
	// Scale is the number of decimal places shipping costs are rounded to and
	// totals are rendered with.
	Scale int32
}

// DefaultPricingConfig is USD with cent precision.
func DefaultPricingConfig() PricingConfig {
	return PricingConfig{Currency: "USD", Scale: 2}
}

// Round rounds an amount to the configured scale.
func (c PricingConfig) Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(c.Scale)
}

// Price sets the shipping cost of every resolved part and returns the grand
// total of items plus shipping. A part whose store has no shipping policy is
// recorded and left unpriced.
func Price(parts []*DraftPart, cfg PricingConfig, report *Report) decimal.Decimal {
	total := decimal.Zero
	for _, p := range parts {
		if p.Store == nil {
			continue
		}
		policy := p.Store.DefaultShipping
		if policy == nil {
			report.Add(storeMissingShippingPolicy(p.StoreID))
			continue
		}
		p.ShippingCost = cfg.Round(policy.CostFor(p.ItemsTotal))
		p.Priced = true
		total = total.Add(p.ItemsTotal).Add(p.ShippingCost)
	}
	return total
}
