package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/repositories/interfaces"
	"ridepair/internal/utils"
)

// RideStore keeps rides and join requests in process memory. A single mutex
// covers both maps so that Commit is atomic across them.
type RideStore struct {
	mu       sync.RWMutex
	rides    map[primitive.ObjectID]*models.Ride
	requests map[primitive.ObjectID]*models.RideRequest
}

func NewRideStore() *RideStore {
	return &RideStore{
		rides:    make(map[primitive.ObjectID]*models.Ride),
		requests: make(map[primitive.ObjectID]*models.RideRequest),
	}
}

var _ interfaces.RideStore = (*RideStore)(nil)

func (s *RideStore) CreateRide(ctx context.Context, ride *models.Ride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if ride.ID.IsZero() {
		ride.ID = primitive.NewObjectID()
	}
	ride.Version = 1
	s.rides[ride.ID] = ride.Clone()
	return nil
}

func (s *RideStore) GetRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ride, ok := s.rides[id]
	if !ok {
		return nil, models.ErrRideNotFound
	}
	return ride.Clone(), nil
}

func (s *RideStore) ListRides(ctx context.Context, filter interfaces.RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error) {
	s.mu.RLock()
	var matched []*models.Ride
	for _, ride := range s.rides {
		if matchesRide(ride, filter) {
			matched = append(matched, ride.Clone())
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool {
		if !matched[i].DateTime.Equal(matched[j].DateTime) {
			return matched[i].DateTime.Before(matched[j].DateTime)
		}
		return matched[i].ID.Hex() < matched[j].ID.Hex()
	})

	total := int64(len(matched))
	if params != nil {
		start, end := params.Window(len(matched))
		matched = matched[start:end]
	}
	return matched, total, nil
}

func matchesRide(ride *models.Ride, f interfaces.RideFilter) bool {
	if len(f.Statuses) > 0 && !containsStatus(f.Statuses, ride.Status) {
		return false
	}
	if f.Origin != "" && ride.Origin != f.Origin {
		return false
	}
	if f.ParticipantID != "" && !ride.IsParticipant(f.ParticipantID) {
		return false
	}
	if f.ExcludeParticipant != "" && ride.IsParticipant(f.ExcludeParticipant) {
		return false
	}
	if f.VehicleType != "" && ride.VehicleType != f.VehicleType {
		return false
	}
	return true
}

func containsStatus(statuses []models.RideStatus, s models.RideStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

func (s *RideStore) GetRideRequest(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	req, ok := s.requests[id]
	if !ok {
		return nil, models.ErrRequestNotFound
	}
	return req.Clone(), nil
}

func (s *RideStore) ListRideRequests(ctx context.Context, filter interfaces.RideRequestFilter) ([]*models.RideRequest, error) {
	s.mu.RLock()
	var out []*models.RideRequest
	for _, req := range s.requests {
		if filter.RideID != nil && req.RideID != *filter.RideID {
			continue
		}
		if filter.PassengerID != "" && req.PassengerID != filter.PassengerID {
			continue
		}
		if len(filter.Statuses) > 0 && !containsRequestStatus(filter.Statuses, req.Status) {
			continue
		}
		out = append(out, req.Clone())
	}
	s.mu.RUnlock()

	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID.Hex() < out[j].ID.Hex()
	})
	return out, nil
}

func containsRequestStatus(statuses []models.RideRequestStatus, s models.RideRequestStatus) bool {
	for _, status := range statuses {
		if status == s {
			return true
		}
	}
	return false
}

// Commit checks every guard before applying any write.
func (s *RideStore) Commit(ctx context.Context, batch *interfaces.Batch) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range batch.Rides {
		stored, ok := s.rides[w.Ride.ID]
		if !ok {
			return models.ErrRideNotFound
		}
		if stored.Version != w.ExpectedVersion {
			return fmt.Errorf("%w: ride %s is at version %d, expected %d",
				models.ErrStaleState, w.Ride.ID.Hex(), stored.Version, w.ExpectedVersion)
		}
	}
	for _, w := range batch.Requests {
		stored, ok := s.requests[w.Request.ID]
		if w.Insert {
			if ok && !w.Request.ID.IsZero() {
				return fmt.Errorf("%w: request %s already exists", models.ErrStaleState, w.Request.ID.Hex())
			}
			continue
		}
		if !ok {
			return models.ErrRequestNotFound
		}
		if stored.Status != w.ExpectedStatus {
			return fmt.Errorf("%w: request %s is %s, expected %s",
				models.ErrStaleState, w.Request.ID.Hex(), stored.Status, w.ExpectedStatus)
		}
	}

	for _, w := range batch.Rides {
		w.Ride.Version = w.ExpectedVersion + 1
		s.rides[w.Ride.ID] = w.Ride.Clone()
	}
	for _, w := range batch.Requests {
		if w.Insert && w.Request.ID.IsZero() {
			w.Request.ID = primitive.NewObjectID()
		}
		s.requests[w.Request.ID] = w.Request.Clone()
	}
	return nil
}
