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
	"ridepair/internal/utils"
	"ridepair/pkg/database"
)

type rideStore struct {
	db       *database.MongoDB
	rides    *mongo.Collection
	requests *mongo.Collection
}

func NewRideStore(db *database.MongoDB) interfaces.RideStore {
	return &rideStore{
		db:       db,
		rides:    db.Collection(database.RidesCollection),
		requests: db.Collection(database.RideRequestsCollection),
	}
}

func (s *rideStore) CreateRide(ctx context.Context, ride *models.Ride) error {
	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	ride.Version = 1

	if _, err := s.rides.InsertOne(ctx, ride); err != nil {
		return fmt.Errorf("failed to create ride: %w", err)
	}
	return nil
}

func (s *rideStore) GetRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	var ride models.Ride
	err := s.rides.FindOne(ctx, bson.M{"_id": id}).Decode(&ride)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRideNotFound
		}
		return nil, fmt.Errorf("failed to get ride: %w", err)
	}
	return &ride, nil
}

func (s *rideStore) ListRides(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	query := rideFilterQuery(filter)

	total, err := s.rides.CountDocuments(ctx, query)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count rides: %w", err)
	}

	opts := options.Find().SetSort(bson.D{{Key: "date_time", Value: 1}, {Key: "_id", Value: 1}})
	if params != nil {
		opts.SetSkip(int64(params.GetSkip())).SetLimit(int64(params.GetLimit()))
	}

	cursor, err := s.rides.Find(ctx, query, opts)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list rides: %w", err)
	}
	defer cursor.Close(ctx)

	var rides []*models.Ride
	if err := cursor.All(ctx, &rides); err != nil {
		return nil, 0, fmt.Errorf("failed to decode rides: %w", err)
	}
	return rides, total, nil
}

func rideFilterQuery(f interfaces.RideFilter) bson.M {
	query := bson.M{}
	if len(f.Statuses) > 0 {
		query["status"] = bson.M{"$in": f.Statuses}
	}
	if f.Origin != "" {
		query["origin"] = f.Origin
	}
	if f.VehicleType != "" {
		query["vehicle_type"] = f.VehicleType
	}

	participant := bson.M{}
	if f.ParticipantID != "" {
		participant["$eq"] = f.ParticipantID
	}
	if f.ExcludeParticipant != "" {
		participant["$ne"] = f.ExcludeParticipant
	}
	if len(participant) > 0 {
		query["participant_ids"] = participant
	}
	return query
}

func (s *rideStore) GetRideRequest(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error) {
	var req models.RideRequest
	err := s.requests.FindOne(ctx, bson.M{"_id": id}).Decode(&req)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, models.ErrRequestNotFound
		}
		return nil, fmt.Errorf("failed to get ride request: %w", err)
	}
	return &req, nil
}

func (s *rideStore) ListRideRequests(ctx context.Context, filter interfaces.RideRequestFilter) ([]*models.RideRequest, error) {
	query := bson.M{}
	if filter.RideID != nil {
		query["ride_id"] = *filter.RideID
	}
	if filter.PassengerID != "" {
		query["passenger_id"] = filter.PassengerID
	}
	if len(filter.Statuses) > 0 {
		query["status"] = bson.M{"$in": filter.Statuses}
	}

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	cursor, err := s.requests.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to list ride requests: %w", err)
	}
	defer cursor.Close(ctx)

	var requests []*models.RideRequest
	if err := cursor.All(ctx, &requests); err != nil {
		return nil, fmt.Errorf("failed to decode ride requests: %w", err)
	}
	return requests, nil
}

// Commit applies the batch inside one transaction. A write whose guard does not
// match aborts the whole transaction with models.ErrStaleState.
func (s *rideStore) Commit(ctx context.Context, batch *interfaces.Batch) error {
	for _, w := range batch.Requests {
		if w.Insert && w.Request.ID.IsZero() {
			w.Request.ID = primitive.NewObjectID()
		}
	}

	_, err := s.db.WithTransaction(ctx, func(sessCtx mongo.SessionContext) (interface{}, error) {
		for _, w := range batch.Rides {
			next := w.Ride.Clone()
			next.Version = w.ExpectedVersion + 1

			res, err := s.rides.ReplaceOne(sessCtx, bson.M{"_id": next.ID, "version": w.ExpectedVersion}, next)
			if err != nil {
				return nil, fmt.Errorf("failed to write ride: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, fmt.Errorf("%w: ride %s moved past version %d", models.ErrStaleState, next.ID.Hex(), w.ExpectedVersion)
			}
		}

		for _, w := range batch.Requests {
			if w.Insert {
				if _, err := s.requests.InsertOne(sessCtx, w.Request); err != nil {
					if mongo.IsDuplicateKeyError(err) {
						return nil, models.ErrDuplicateRequest
					}
					return nil, fmt.Errorf("failed to insert ride request: %w", err)
				}
				continue
			}

			res, err := s.requests.ReplaceOne(sessCtx, bson.M{"_id": w.Request.ID, "status": w.ExpectedStatus}, w.Request)
			if err != nil {
				return nil, fmt.Errorf("failed to write ride request: %w", err)
			}
			if res.MatchedCount == 0 {
				return nil, fmt.Errorf("%w: request %s is no longer %s", models.ErrStaleState, w.Request.ID.Hex(), w.ExpectedStatus)
			}
		}
		return nil, nil
	})
	if err != nil {
		return err
	}

	for _, w := range batch.Rides {
		w.Ride.Version = w.ExpectedVersion + 1
	}
	return nil
}
