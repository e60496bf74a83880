package store

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lensora/tryon-backend/config"
	"github.com/lensora/tryon-backend/models"
	"github.com/lensora/tryon-backend/utils"
)

const tryOnCollection = "tryons"

const queryTimeout = 10 * time.Second

// MongoSessionStore persists try-on sessions in the tryons collection
type MongoSessionStore struct{}

func NewMongoSessionStore() *MongoSessionStore {
	return &MongoSessionStore{}
}

func (s *MongoSessionStore) collection() *mongo.Collection {
	return utils.GetCollection(config.MongoDatabase, tryOnCollection)
}

// Create inserts the session and fills in its assigned id
func (s *MongoSessionStore) Create(ctx context.Context, session *models.TryOn) error {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	_, err := s.collection().InsertOne(ctx, session)
	if err != nil {
		return fmt.Errorf("failed to save try-on session: %w", err)
	}
	return nil
}

// FindByID returns the session, or (nil, nil) when the id is unknown or
// not a valid object id.
func (s *MongoSessionStore) FindByID(ctx context.Context, id string) (*models.TryOn, error) {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	var session models.TryOn
	err = s.collection().FindOne(ctx, bson.M{"_id": objID}).Decode(&session)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load try-on session: %w", err)
	}
	return &session, nil
}

func (s *MongoSessionStore) Delete(ctx context.Context, id string) error {
	objID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	_, err = s.collection().DeleteOne(ctx, bson.M{"_id": objID})
	if err != nil {
		return fmt.Errorf("failed to delete try-on session: %w", err)
	}
	return nil
}

// ListByUser returns one page of the user's sessions, newest first,
// along with the total count for pagination.
func (s *MongoSessionStore) ListByUser(ctx context.Context, userID string, page, limit int) ([]models.TryOn, int64, error) {
	ctx, cancel := context.WithTimeout(ctx, queryTimeout)
	defer cancel()

	filter := bson.M{"user_id": userID}

	total, err := s.collection().CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count try-on sessions: %w", err)
	}

	findOptions := options.Find()
	findOptions.SetSort(bson.D{{Key: "created_at", Value: -1}}) // Show latest first
	findOptions.SetSkip(int64((page - 1) * limit))
	findOptions.SetLimit(int64(limit))

	cursor, err := s.collection().Find(ctx, filter, findOptions)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list try-on sessions: %w", err)
	}
	defer cursor.Close(ctx)

	var sessions []models.TryOn
	if err := cursor.All(ctx, &sessions); err != nil {
		return nil, 0, fmt.Errorf("failed to decode try-on sessions: %w", err)
	}
	return sessions, total, nil
}
