package repository

import (
	"context"
	"fmt"

	"checkout-service/models"

	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// DynamoDB caps BatchGetItem at 100 keys per request.
const dynamoBatchSize = 100

const dynamoMaxUnprocessedRetries = 3

// DynamoBatchGetter is the subset of the DynamoDB client used by DynamoStoreRepository.
type DynamoBatchGetter interface {
	BatchGetItem(ctx context.Context, in *dynamodb.BatchGetItemInput, optFns ...func(*dynamodb.Options)) (*dynamodb.BatchGetItemOutput, error)
}

// DynamoStoreRepository reads merchants from a DynamoDB table keyed by
// `store_id` (the hex form of the store ObjectID).
type DynamoStoreRepository struct {
	client DynamoBatchGetter
	table  string
}

func NewDynamoStoreRepository(client DynamoBatchGetter, table string) *DynamoStoreRepository {
	return &DynamoStoreRepository{client: client, table: table}
}

type ddbStore struct {
	StoreID       string                 `dynamodbav:"store_id"`
	Name          string                 `dynamodbav:"name"`
	MinimumOrder  attributevalue.Number  `dynamodbav:"minimum_order,omitempty"`
	ShippingPrice *attributevalue.Number `dynamodbav:"shipping_price,omitempty"`
	FreeAbove     *attributevalue.Number `dynamodbav:"free_above,omitempty"`
}

func (r *DynamoStoreRepository) FindByIDs(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	var stores []models.Store
	for start := 0; start < len(ids); start += dynamoBatchSize {
		end := start + dynamoBatchSize
		if end > len(ids) {
			end = len(ids)
		}
		batch, err := r.getBatch(ctx, ids[start:end])
		if err != nil {
			return nil, err
		}
		stores = append(stores, batch...)
	}
	return stores, nil
}

func (r *DynamoStoreRepository) getBatch(ctx context.Context, ids []primitive.ObjectID) ([]models.Store, error) {
	keys := make([]map[string]types.AttributeValue, 0, len(ids))
	for _, id := range ids {
		key, err := attributevalue.MarshalMap(map[string]string{"store_id": id.Hex()})
		if err != nil {
			return nil, fmt.Errorf("marshal key: %w", err)
		}
		keys = append(keys, key)
	}

	request := map[string]types.KeysAndAttributes{r.table: {Keys: keys}}
	var stores []models.Store
	for attempt := 0; len(request) > 0; attempt++ {
		if attempt > dynamoMaxUnprocessedRetries {
			return nil, fmt.Errorf("dynamodb BatchGetItem left %d keys unprocessed", len(request[r.table].Keys))
		}
		out, err := r.client.BatchGetItem(ctx, &dynamodb.BatchGetItemInput{RequestItems: request})
		if err != nil {
			return nil, fmt.Errorf("dynamodb BatchGetItem failed: %w", err)
		}
		for _, item := range out.Responses[r.table] {
			s, err := storeFromItem(item)
			if err != nil {
				return nil, err
			}
			stores = append(stores, s)
		}
		request = out.UnprocessedKeys
	}
	return stores, nil
}

func storeFromItem(item map[string]types.AttributeValue) (models.Store, error) {
	var ds ddbStore
	if err := attributevalue.UnmarshalMap(item, &ds); err != nil {
		return models.Store{}, fmt.Errorf("unmarshal store: %w", err)
	}
	id, err := primitive.ObjectIDFromHex(ds.StoreID)
	if err != nil {
		return models.Store{}, fmt.Errorf("store id %q: %w", ds.StoreID, err)
	}

	s := models.Store{ID: id, Name: ds.Name, MinimumOrder: decimal.Zero}
	if ds.MinimumOrder != "" {
		if s.MinimumOrder, err = decimal.NewFromString(string(ds.MinimumOrder)); err != nil {
			return s, fmt.Errorf("store %s minimum_order: %w", ds.StoreID, err)
		}
	}
	if ds.ShippingPrice != nil {
		price, err := decimal.NewFromString(string(*ds.ShippingPrice))
		if err != nil {
			return s, fmt.Errorf("store %s shipping_price: %w", ds.StoreID, err)
		}
		policy := &models.ShippingPolicy{Price: price}
		if ds.FreeAbove != nil {
			threshold, err := decimal.NewFromString(string(*ds.FreeAbove))
			if err != nil {
				return s, fmt.Errorf("store %s free_above: %w", ds.StoreID, err)
			}
			policy.FreeAbove = &threshold
		}
		s.DefaultShipping = policy
	}
	return s, nil
}
