package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/utils"
)

type ChatRepository interface {
	Create(ctx context.Context, message *models.ChatMessage) error
	// GetByRideID returns messages oldest first.
	GetByRideID(ctx context.Context, rideID primitive.ObjectID, params *utils.PaginationParams) ([]*models.ChatMessage, int64, error)
}
