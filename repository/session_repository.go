package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"checkout-service/models"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoSessionRepository stores checkout sessions in the checkout_sessions collection.
type MongoSessionRepository struct {
	collection *mongo.Collection
}

func NewMongoSessionRepository(db *mongo.Database) *MongoSessionRepository {
	return &MongoSessionRepository{collection: db.Collection("checkout_sessions")}
}

type sessionItemDoc struct {
	ProductID   string               `bson:"product_id"`
	VariantID   string               `bson:"variant_id"`
	ProductName string               `bson:"product_name"`
	Quantity    int                  `bson:"quantity"`
	UnitPrice   primitive.Decimal128 `bson:"unit_price"`
	LineTotal   primitive.Decimal128 `bson:"line_total"`
}

type sessionPartDoc struct {
	StoreID      string               `bson:"store_id"`
	StoreName    string               `bson:"store_name"`
	Items        []sessionItemDoc     `bson:"items"`
	ItemsTotal   primitive.Decimal128 `bson:"items_total"`
	ShippingCost primitive.Decimal128 `bson:"shipping_cost"`
}

type sessionDoc struct {
	ID             string               `bson:"_id"`
	Token          string               `bson:"token"`
	UserID         string               `bson:"user_id"`
	Parts          []sessionPartDoc     `bson:"parts"`
	Total          primitive.Decimal128 `bson:"total"`
	Currency       string               `bson:"currency"`
	Status         string               `bson:"status"`
	IdempotencyKey string               `bson:"idempotency_key,omitempty"`
	CreatedAt      time.Time            `bson:"created_at"`
	ExpiresAt      *time.Time           `bson:"expires_at,omitempty"`
}

// EnsureIndexes creates the token and idempotency unique indexes and the TTL
// index that lets MongoDB drop expired sessions.
func (r *MongoSessionRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.collection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetName("token_unique").SetUnique(true),
		},
		{
			Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "idempotency_key", Value: 1}},
			Options: options.Index().
				SetName("user_idempotency_unique").
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"idempotency_key": bson.M{"$type": "string"}}),
		},
		{
			Keys:    bson.D{{Key: "expires_at", Value: 1}},
			Options: options.Index().SetName("expires_at_ttl").SetExpireAfterSeconds(0),
		},
	})
	if err != nil {
		return fmt.Errorf("create checkout_sessions indexes: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) Create(ctx context.Context, session *models.CheckoutSession) error {
	doc, err := newSessionDoc(session)
	if err != nil {
		return err
	}
	if _, err := r.collection.InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return fmt.Errorf("%w: %v", ErrDuplicateSession, err)
		}
		return fmt.Errorf("insert checkout session: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) FindByToken(ctx context.Context, token string) (*models.CheckoutSession, error) {
	return r.findOne(ctx, bson.M{"token": token})
}

func (r *MongoSessionRepository) FindByIdempotencyKey(ctx context.Context, userID, key string) (*models.CheckoutSession, error) {
	return r.findOne(ctx, bson.M{"user_id": userID, "idempotency_key": key})
}

// ReleaseIdempotencyKey unsets the key, which also takes the document out of
// the partial user_idempotency_unique index.
func (r *MongoSessionRepository) ReleaseIdempotencyKey(ctx context.Context, sessionID uuid.UUID) error {
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"_id": sessionID.String()},
		bson.M{"$unset": bson.M{"idempotency_key": ""}},
	)
	if err != nil {
		return fmt.Errorf("release idempotency key: %w", err)
	}
	return nil
}

func (r *MongoSessionRepository) findOne(ctx context.Context, filter bson.M) (*models.CheckoutSession, error) {
	var doc sessionDoc
	err := r.collection.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find checkout session: %w", err)
	}
	return doc.toModel()
}

func newSessionDoc(s *models.CheckoutSession) (*sessionDoc, error) {
	total, err := toDecimal128(s.Total)
	if err != nil {
		return nil, fmt.Errorf("session total: %w", err)
	}
	doc := &sessionDoc{
		ID:             s.ID.String(),
		Token:          s.Token,
		UserID:         s.UserID,
		Total:          total,
		Currency:       s.Currency,
		Status:         string(s.Status),
		IdempotencyKey: s.IdempotencyKey,
		CreatedAt:      s.CreatedAt,
	}
	if !s.ExpiresAt.IsZero() {
		exp := s.ExpiresAt
		doc.ExpiresAt = &exp
	}

	for _, p := range s.Parts {
		pd := sessionPartDoc{StoreID: p.StoreID, StoreName: p.StoreName}
		if pd.ItemsTotal, err = toDecimal128(p.ItemsTotal); err != nil {
			return nil, fmt.Errorf("store %s items total: %w", p.StoreID, err)
		}
		if pd.ShippingCost, err = toDecimal128(p.ShippingCost); err != nil {
			return nil, fmt.Errorf("store %s shipping cost: %w", p.StoreID, err)
		}
		for _, it := range p.Items {
			idoc := sessionItemDoc{
				ProductID:   it.ProductID,
				VariantID:   it.VariantID,
				ProductName: it.ProductName,
				Quantity:    it.Quantity,
			}
			if idoc.UnitPrice, err = toDecimal128(it.UnitPrice); err != nil {
				return nil, fmt.Errorf("variant %s unit price: %w", it.VariantID, err)
			}
			if idoc.LineTotal, err = toDecimal128(it.LineTotal); err != nil {
				return nil, fmt.Errorf("variant %s line total: %w", it.VariantID, err)
			}
			pd.Items = append(pd.Items, idoc)
		}
		doc.Parts = append(doc.Parts, pd)
	}
	return doc, nil
}

func (d *sessionDoc) toModel() (*models.CheckoutSession, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return nil, fmt.Errorf("session id %q: %w", d.ID, err)
	}
	s := &models.CheckoutSession{
		ID:             id,
		Token:          d.Token,
		UserID:         d.UserID,
		Currency:       d.Currency,
		Status:         models.SessionStatus(d.Status),
		IdempotencyKey: d.IdempotencyKey,
		CreatedAt:      d.CreatedAt,
	}
	if d.ExpiresAt != nil {
		s.ExpiresAt = *d.ExpiresAt
	}
	if s.Total, err = fromDecimal128(d.Total); err != nil {
		return nil, fmt.Errorf("session total: %w", err)
	}

	for _, pd := range d.Parts {
		p := models.CheckoutSessionPart{StoreID: pd.StoreID, StoreName: pd.StoreName}
		if p.ItemsTotal, err = fromDecimal128(pd.ItemsTotal); err != nil {
			return nil, err
		}
		if p.ShippingCost, err = fromDecimal128(pd.ShippingCost); err != nil {
			return nil, err
		}
		for _, idoc := range pd.Items {
			it := models.CheckoutSessionItem{
				ProductID:   idoc.ProductID,
				VariantID:   idoc.VariantID,
				ProductName: idoc.ProductName,
				Quantity:    idoc.Quantity,
			}
			if it.UnitPrice, err = fromDecimal128(idoc.UnitPrice); err != nil {
				return nil, err
			}
			if it.LineTotal, err = fromDecimal128(idoc.LineTotal); err != nil {
				return nil, err
			}
			p.Items = append(p.Items, it)
		}
		s.Parts = append(s.Parts, p)
	}
	return s, nil
}
