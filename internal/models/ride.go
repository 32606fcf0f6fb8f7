package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideStatus string
type RideOrigin string
type VehicleType string

const (
	RideStatusOffering   RideStatus = "offering"
	RideStatusPending    RideStatus = "pending"
	RideStatusConfirmed  RideStatus = "confirmed"
	RideStatusInProgress RideStatus = "in-progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"

	// RideOriginOffer rides are posted by a driver and start in offering.
	// RideOriginRequest rides are posted by a passenger and start in pending.
	RideOriginOffer   RideOrigin = "offer"
	RideOriginRequest RideOrigin = "request"

	VehicleTypeBike   VehicleType = "Bike"
	VehicleTypeScooty VehicleType = "Scooty"
	VehicleTypeCar    VehicleType = "Car"
)

// Ride is the trip record shared by a driver and a passenger. The "rider" flags
// belong to the driver of the vehicle.
type Ride struct {
	ID                 primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	Origin             RideOrigin         `json:"origin" bson:"origin"`
	DriverID           *string            `json:"driver_id" bson:"driver_id"`
	PassengerID        *string            `json:"passenger_id" bson:"passenger_id"`
	ParticipantIDs     []string           `json:"participant_ids" bson:"participant_ids"`
	Status             RideStatus         `json:"status" bson:"status"`
	FromLocation       string             `json:"from_location" bson:"from_location"`
	ToLocation         string             `json:"to_location" bson:"to_location"`
	DateTime           time.Time          `json:"date_time" bson:"date_time"`
	SharedCost         float64            `json:"shared_cost" bson:"shared_cost"`
	VehicleType        VehicleType        `json:"vehicle_type,omitempty" bson:"vehicle_type,omitempty"`
	Notes              string             `json:"notes,omitempty" bson:"notes,omitempty"`
	RideOTP            string             `json:"ride_otp,omitempty" bson:"ride_otp,omitempty"`
	RetiredOTP         string             `json:"-" bson:"retired_otp,omitempty"`
	OTPVerified        bool               `json:"otp_verified" bson:"otp_verified"`
	RiderStarted       bool               `json:"rider_started" bson:"rider_started"`
	PassengerStarted   bool               `json:"passenger_started" bson:"passenger_started"`
	RiderCompleted     bool               `json:"rider_completed" bson:"rider_completed"`
	PassengerCompleted bool               `json:"passenger_completed" bson:"passenger_completed"`
	AcceptedAt         *time.Time         `json:"accepted_at,omitempty" bson:"accepted_at"`
	StartedAt          *time.Time         `json:"started_at,omitempty" bson:"started_at"`
	CompletedAt        *time.Time         `json:"completed_at,omitempty" bson:"completed_at"`
	CancelledAt        *time.Time         `json:"cancelled_at,omitempty" bson:"cancelled_at"`
	CancelledBy        *string            `json:"cancelled_by,omitempty" bson:"cancelled_by"`
	CancellationReason string             `json:"cancellation_reason,omitempty" bson:"cancellation_reason,omitempty"`
	Version            int64              `json:"version" bson:"version"`
	CreatedAt          time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt          time.Time          `json:"updated_at" bson:"updated_at"`
}

// RideDetails carries the user-supplied part of a new ride.
type RideDetails struct {
	FromLocation string
	ToLocation   string
	DateTime     time.Time
	SharedCost   float64
	VehicleType  VehicleType
	Notes        string
}

func IsValidVehicleType(v VehicleType) bool {
	switch v {
	case VehicleTypeBike, VehicleTypeScooty, VehicleTypeCar:
		return true
	}
	return false
}

func (r *Ride) IsTerminal() bool {
	return r.Status == RideStatusCompleted || r.Status == RideStatusCancelled
}

func (r *Ride) IsOpen() bool {
	return r.Status == RideStatusOffering || r.Status == RideStatusPending
}

func (r *Ride) IsDriver(userID string) bool {
	return r.DriverID != nil && *r.DriverID == userID
}

func (r *Ride) IsPassenger(userID string) bool {
	return r.PassengerID != nil && *r.PassengerID == userID
}

func (r *Ride) IsParticipant(userID string) bool {
	for _, id := range r.ParticipantIDs {
		if id == userID {
			return true
		}
	}
	return false
}

// Counterpart returns the other participant of a matched ride, if any.
func (r *Ride) Counterpart(userID string) (string, bool) {
	switch {
	case r.IsDriver(userID) && r.PassengerID != nil:
		return *r.PassengerID, true
	case r.IsPassenger(userID) && r.DriverID != nil:
		return *r.DriverID, true
	}
	return "", false
}

// ViewFor returns the copy of the ride that viewerID is allowed to see. The ride
// code is disclosed to the passenger only; the driver learns it in person.
func (r *Ride) ViewFor(viewerID string) *Ride {
	c := r.Clone()
	if !r.IsPassenger(viewerID) {
		c.RideOTP = ""
	}
	return c
}

// Clone returns a deep copy so that transitions can be applied without touching
// the record that was read from the store.
func (r *Ride) Clone() *Ride {
	if r == nil {
		return nil
	}
	c := *r
	c.DriverID = cloneString(r.DriverID)
	c.PassengerID = cloneString(r.PassengerID)
	c.CancelledBy = cloneString(r.CancelledBy)
	c.AcceptedAt = cloneTime(r.AcceptedAt)
	c.StartedAt = cloneTime(r.StartedAt)
	c.CompletedAt = cloneTime(r.CompletedAt)
	c.CancelledAt = cloneTime(r.CancelledAt)
	if r.ParticipantIDs != nil {
		c.ParticipantIDs = append([]string(nil), r.ParticipantIDs...)
	}
	return &c
}

func cloneString(s *string) *string {
	if s == nil {
		return nil
	}
	v := *s
	return &v
}

func cloneTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
