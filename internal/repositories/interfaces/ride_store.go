package interfaces

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/utils"
)

// RideFilter selects rides for listing. Empty fields do not constrain the query.
type RideFilter struct {
	Statuses      []models.RideStatus
	Origin        models.RideOrigin
	ParticipantID string
	// ExcludeParticipant hides rides the given user already takes part in.
	ExcludeParticipant string
	VehicleType        models.VehicleType
}

type RideRequestFilter struct {
	RideID      *primitive.ObjectID
	PassengerID string
	Statuses    []models.RideRequestStatus
}

// RideWrite replaces a ride only if the stored version still equals ExpectedVersion.
// The stored copy ends up with Version = ExpectedVersion + 1.
type RideWrite struct {
	Ride            *models.Ride
	ExpectedVersion int64
}

// RequestWrite inserts a request (Insert) or replaces one whose stored status is
// still ExpectedStatus.
type RequestWrite struct {
	Request        *models.RideRequest
	ExpectedStatus models.RideRequestStatus
	Insert         bool
}

// Batch is committed atomically: either every write lands or none does.
type Batch struct {
	Rides    []RideWrite
	Requests []RequestWrite
}

func (b *Batch) PutRide(ride *models.Ride, expectedVersion int64) {
	b.Rides = append(b.Rides, RideWrite{Ride: ride, ExpectedVersion: expectedVersion})
}

func (b *Batch) PutRequest(req *models.RideRequest, expected models.RideRequestStatus) {
	b.Requests = append(b.Requests, RequestWrite{Request: req, ExpectedStatus: expected})
}

func (b *Batch) InsertRequest(req *models.RideRequest) {
	b.Requests = append(b.Requests, RequestWrite{Request: req, Insert: true})
}

func (b *Batch) Empty() bool {
	return len(b.Rides) == 0 && len(b.Requests) == 0
}

// RideStore is the source of truth for rides and join requests. Commit returns
// models.ErrStaleState when any guard no longer holds.
type RideStore interface {
	CreateRide(ctx context.Context, ride *models.Ride) error
	GetRide(ctx context.Context, id primitive.ObjectID) (*models.Ride, error)
	ListRides(ctx context.Context, filter RideFilter, params *utils.PaginationParams) ([]*models.Ride, int64, error)

	GetRideRequest(ctx context.Context, id primitive.ObjectID) (*models.RideRequest, error)
	ListRideRequests(ctx context.Context, filter RideRequestFilter) ([]*models.RideRequest, error)

	Commit(ctx context.Context, batch *Batch) error
}
