package repository

import (
	"context"
	"fmt"

	"checkout-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoStoreRepository reads merchants from the stores collection.
type MongoStoreRepository struct {
	collection *mongo.Collection
}

func NewMongoStoreRepository(db *mongo.Database) *MongoStoreRepository {
	return &MongoStoreRepository{collection: db.Collection("stores")}
}

type shippingPolicyDoc struct {
	Price     bson.RawValue `bson:"price"`
	FreeAbove bson.RawValue `bson:"free_above"`
}

type storeDoc struct {
	ID              primitive.ObjectID `bson:"_id"`
	Name            string             `bson:"name"`
	MinimumOrder    bson.RawValue      `bson:"minimum_order"`
	DefaultShipping *shippingPolicyDoc `bson:"default_shipping,omitempty"`
}

func (r *MongoStoreRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	cursor, err := r.collection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("find stores: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []storeDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode stores: %w", err)
	}

	stores := make([]models.Store, 0, len(docs))
	for _, d := range docs {
		s, err := d.toModel()
		if err != nil {
			return nil, fmt.Errorf("store %s: %w", d.ID.Hex(), err)
		}
		stores = append(stores, s)
	}
	return stores, nil
}

func (d storeDoc) toModel() (models.Store, error) {
	s := models.Store{ID: d.ID, Name: d.Name}

	minimum, err := optionalDecimal(d.MinimumOrder)
	if err != nil {
		return s, fmt.Errorf("minimum_order: %w", err)
	}
	if minimum != nil {
		s.MinimumOrder = *minimum
	}

	if d.DefaultShipping != nil {
		price, err := decimalFromRaw(d.DefaultShipping.Price)
		if err != nil {
			return s, fmt.Errorf("default_shipping.price: %w", err)
		}
		freeAbove, err := optionalDecimal(d.DefaultShipping.FreeAbove)
		if err != nil {
			return s, fmt.Errorf("default_shipping.free_above: %w", err)
		}
		s.DefaultShipping = &models.ShippingPolicy{Price: price, FreeAbove: freeAbove}
	}
	return s, nil
}
