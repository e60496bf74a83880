package store

import (
	"context"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"github.com/lensora/tryon-backend/config"
	"github.com/lensora/tryon-backend/models"
	"github.com/lensora/tryon-backend/utils"
)

const productCollection = "products"

// MongoProductStore reads catalog products. The catalog itself is
// written by the storefront's admin service; this store is read-only.
type MongoProductStore struct{}

func NewMongoProductStore() *MongoProductStore {
	return &MongoProductStore{}
}

// GetProductByID returns the product, or (nil, nil) when the id is
// unknown or malformed.
func (s *MongoProductStore) GetProductByID(ctx context.Context, id string) (*models.Product, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var product models.Product
	err = utils.GetCollection(config.MongoDatabase, productCollection).
		FindOne(ctx, bson.M{"_id": objID}).Decode(&product)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return &product, nil
}
