package repository

import (
	"context"
	"errors"
	"fmt"

	"checkout-service/models"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// MongoCartRepository reads carts embedded in user documents and resolves
// every line against the products collection in one aggregation.
type MongoCartRepository struct {
	users    *mongo.Collection
	products string
}

func NewMongoCartRepository(db *mongo.Database) *MongoCartRepository {
	return &MongoCartRepository{users: db.Collection("users"), products: "products"}
}

type cartProductDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Name    string             `bson:"name"`
	Status  string             `bson:"status"`
	StoreID primitive.ObjectID `bson:"store_id,omitempty"`
}

type cartVariantDoc struct {
	ID      primitive.ObjectID `bson:"_id,omitempty"`
	Status  string             `bson:"status"`
	Price   bson.RawValue      `bson:"price"`
	InStock int                `bson:"in_stock"`
}

type cartLineDoc struct {
	Position  int64              `bson:"position"`
	ProductID primitive.ObjectID `bson:"product_id"`
	VariantID primitive.ObjectID `bson:"variant_id"`
	Quantity  int                `bson:"quantity"`
	Product   *cartProductDoc    `bson:"product,omitempty"`
	Variant   *cartVariantDoc    `bson:"variant,omitempty"`
}

// cartPipeline unwinds the cart keeping its order, joins each line's product
// and picks the variant the line actually references.
func cartPipeline(userID primitive.ObjectID, products string) mongo.Pipeline {
	return mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": userID}}},
		{{Key: "$project", Value: bson.M{"cart": 1}}},
		{{Key: "$unwind", Value: bson.M{"path": "$cart", "includeArrayIndex": "position"}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         products,
			"localField":   "cart.product_id",
			"foreignField": "_id",
			"as":           "product",
		}}},
		{{Key: "$unwind", Value: bson.M{"path": "$product", "preserveNullAndEmptyArrays": true}}},
		{{Key: "$project", Value: bson.M{
			"_id":        0,
			"position":   1,
			"product_id": "$cart.product_id",
			"variant_id": "$cart.variant_id",
			"quantity":   "$cart.quantity",
			"product": bson.M{
				"_id":      "$product._id",
				"name":     "$product.name",
				"status":   "$product.status",
				"store_id": "$product.store_id",
			},
			"variant": bson.M{"$arrayElemAt": bson.A{
				bson.M{"$filter": bson.M{
					"input": bson.M{"$ifNull": bson.A{"$product.variants", bson.A{}}},
					"as":    "v",
					"cond":  bson.M{"$eq": bson.A{"$$v._id", "$cart.variant_id"}},
				}},
				0,
			}},
		}}},
		{{Key: "$sort", Value: bson.M{"position": 1}}},
	}
}

// LoadPopulatedCart returns the user's cart lines in cart order. Lines whose
// product or variant no longer exist come back without the missing snapshot.
func (r *MongoCartRepository) LoadPopulatedCart(ctx context.Context, userID string) ([]models.CartItem, error) {
	uid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil, ErrUserNotFound
	}

	err = r.users.FindOne(ctx, bson.M{"_id": uid}, options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}

	cursor, err := r.users.Aggregate(ctx, cartPipeline(uid, r.products))
	if err != nil {
		return nil, fmt.Errorf("aggregate cart: %w", err)
	}
	defer cursor.Close(ctx)

	var lines []cartLineDoc
	if err := cursor.All(ctx, &lines); err != nil {
		return nil, fmt.Errorf("decode cart: %w", err)
	}

	items := make([]models.CartItem, 0, len(lines))
	for _, l := range lines {
		item, err := l.toModel()
		if err != nil {
			return nil, fmt.Errorf("cart line %d: %w", l.Position, err)
		}
		items = append(items, item)
	}
	return items, nil
}

func (d cartLineDoc) toModel() (models.CartItem, error) {
	item := models.CartItem{
		ProductID: d.ProductID,
		VariantID: d.VariantID,
		Quantity:  d.Quantity,
	}
	if d.Product != nil && !d.Product.ID.IsZero() {
		item.Product = &models.Product{
			ID:      d.Product.ID,
			Name:    d.Product.Name,
			Status:  models.ProductStatus(d.Product.Status),
			StoreID: d.Product.StoreID,
		}
	}
	if d.Variant != nil && !d.Variant.ID.IsZero() {
		price, err := decimalFromRaw(d.Variant.Price)
		if err != nil {
			return item, fmt.Errorf("variant %s price: %w", d.Variant.ID.Hex(), err)
		}
		item.Variant = &models.Variant{
			ID:        d.Variant.ID,
			ProductID: d.ProductID,
			Status:    models.VariantStatus(d.Variant.Status),
			Price:     price,
			InStock:   d.Variant.InStock,
		}
	}
	return item, nil
}
