package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/pkg/database"
)

type emergencyRepository struct {
	collection *mongo.Collection
}

func NewEmergencyRepository(db *mongo.Database) interfaces.EmergencyRepository {
	return &emergencyRepository{
		collection: db.Collection(database.EmergencyAlertsCollection),
	}
}

func (r *emergencyRepository) Create(ctx context.Context, alert *models.EmergencyAlert) error {
	if alert.ID.IsZero() {
		alert.ID = primitive.NewObjectID()
	}
	if _, err := r.collection.InsertOne(ctx, alert); err != nil {
		return fmt.Errorf("failed to create emergency alert: %w", err)
	}
	return nil
}

func (r *emergencyRepository) GetByID(ctx context.Context, id primitive.ObjectID) (*models.EmergencyAlert, error) {
	var alert models.EmergencyAlert
	if err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&alert); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrAlertNotFound
		}
		return nil, fmt.Errorf("failed to get emergency alert: %w", err)
	}
	return &alert, nil
}

func (r *emergencyRepository) GetByRideID(ctx context.Context, rideID primitive.ObjectID) ([]*models.EmergencyAlert, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"ride_id": rideID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find emergency alerts: %w", err)
	}
	defer cursor.Close(ctx)

	var alerts []*models.EmergencyAlert
	if err := cursor.All(ctx, &alerts); err != nil {
		return nil, fmt.Errorf("failed to decode emergency alerts: %w", err)
	}
	return alerts, nil
}

func (r *emergencyRepository) Update(ctx context.Context, alert *models.EmergencyAlert) error {
	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": alert.ID}, alert)
	if err != nil {
		return fmt.Errorf("failed to update emergency alert: %w", err)
	}
	if result.MatchedCount == 0 {
		return models.ErrAlertNotFound
	}
	return nil
}
