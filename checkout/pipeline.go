package checkout

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ErrHasFailures is returned by Assemble when the proposal failed validation.
var ErrHasFailures = errors.New("checkout has validation failures")

// StoreLoader batch-loads stores, silently omitting unknown ids.
type StoreLoader interface {
	FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error)
}

// Proposal is the outcome of one pipeline run: either priced parts with a
// grand total, or the complete list of failures.
type Proposal struct {
	Parts    []*DraftPart
	Total    decimal.Decimal
	Currency string

	report *Report
}

// OK reports whether the run finished without any failure.
func (p *Proposal) OK() bool { return p.report.Empty() }

// Failures returns every failure found during the run.
func (p *Proposal) Failures() []models.ValidationFailure { return p.report.Failures() }

// Report exposes the underlying failure report.
func (p *Proposal) Report() *Report { return p.report }

// Build runs partitioning, availability, merchant resolution, pricing and the
// minimum order check over a cart snapshot. The returned error is reserved for
// store loading problems; validation problems are carried by the proposal.
func Build(ctx context.Context, items []models.CartItem, stores StoreLoader, cfg PricingConfig) (*Proposal, error) {
	report := &Report{}
	proposal := &Proposal{Total: decimal.Zero, Currency: cfg.Currency, report: report}

	parts, ok := Partition(items, report)
	if !ok || len(parts) == 0 {
		return proposal, nil
	}

	loaded, err := stores.FindByIDs(ctx, StoreIDs(parts))
	if err != nil {
		return nil, fmt.Errorf("load stores: %w", err)
	}
	if !ResolveMerchants(parts, loaded, report) {
		return proposal, nil
	}

	total := Price(parts, cfg, report)
	CheckMinimumOrder(parts, report)

	proposal.Parts = parts
	proposal.Total = total
	return proposal, nil
}

// Assemble turns a successful proposal into a new checkout session owned by
// userID. It does not persist anything.
func (p *Proposal) Assemble(userID string, now time.Time, ttl time.Duration) (*models.CheckoutSession, error) {
	if !p.OK() {
		return nil, ErrHasFailures
	}

	parts := make([]models.CheckoutSessionPart, 0, len(p.Parts))
	for _, dp := range p.Parts {
		items := make([]models.CheckoutSessionItem, 0, len(dp.Items))
		for _, it := range dp.Items {
			items = append(items, models.CheckoutSessionItem{
				ProductID:   it.ProductID.Hex(),
				VariantID:   it.VariantID.Hex(),
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
				UnitPrice:   it.UnitPrice,
				LineTotal:   it.LineTotal,
			})
		}
		part := models.CheckoutSessionPart{
			StoreID:      dp.StoreID.Hex(),
			Items:        items,
			ItemsTotal:   dp.ItemsTotal,
			ShippingCost: dp.ShippingCost,
		}
		if dp.Store != nil {
			part.StoreName = dp.Store.Name
		}
		parts = append(parts, part)
	}

	now = now.UTC()
	session := &models.CheckoutSession{
		ID:        uuid.New(),
		Token:     uuid.NewString(),
		UserID:    userID,
		Parts:     parts,
		Total:     p.Total,
		Currency:  p.Currency,
		Status:    models.SessionStatusOpen,
		CreatedAt: now,
	}
	if ttl > 0 {
		session.ExpiresAt = now.Add(ttl)
	}
	return session, nil
}
