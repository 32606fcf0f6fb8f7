package mongodb

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
	"ridepair/pkg/database"
)

type chatRepository struct {
	collection *mongo.Collection
}

func NewChatRepository(db *mongo.Database) interfaces.ChatRepository {
	return &chatRepository{
		collection: db.Collection(database.ChatMessagesCollection),
	}
}

func (r *chatRepository) Create(ctx context.Context, message *models.ChatMessage) error {
	if message.ID.IsZero() {
		message.ID = primitive.NewObjectID()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now()
	}

	if _, err := r.collection.InsertOne(ctx, message); err != nil {
		return fmt.Errorf("failed to create chat message: %w", err)
	}
	return nil
}

func (r *chatRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ChatMessage, int64, error) {
	filter := bson.M{"ride_id": rideID}

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count chat messages: %w", err)
	}

	cursor, err := r.collection.Find(ctx, filter, params.FindOptions("created_at", true))
	if err != nil {
		return nil, 0, fmt.Errorf("failed to find chat messages: %w", err)
	}
	defer cursor.Close(ctx)

	var messages []*models.ChatMessage
	if err := cursor.All(ctx, &messages); err != nil {
		return nil, 0, fmt.Errorf("failed to decode chat messages: %w", err)
	}
	return messages, total, nil
}
