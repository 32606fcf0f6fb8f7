package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
)

type EmergencyRepository interface {
	Create(ctx context.Context, alert *models.EmergencyAlert) error
	GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyAlert, error)
	GetByRideID(ctx context.Context, rideID primitive.ObjectID) ([]*models.EmergencyAlert, error)
	Update(ctx context.Context, alert *models.EmergencyAlert) error
}
