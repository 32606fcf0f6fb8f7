package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type RideRequestStatus string

const (
	RideRequestStatusPending   RideRequestStatus = "pending"
	RideRequestStatusAccepted  RideRequestStatus = "accepted"
	RideRequestStatusRejected  RideRequestStatus = "rejected"
	RideRequestStatusCancelled RideRequestStatus = "cancelled"
)

// RideRequest is a passenger's bid to join an offering ride.
type RideRequest struct {
	ID          primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID      primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	PassengerID string             `json:"passenger_id" bson:"passenger_id"`
	Status      RideRequestStatus  `json:"status" bson:"status"`
	Message     string             `json:"message,omitempty" bson:"message,omitempty"`
	RespondedAt *time.Time         `json:"responded_at,omitempty" bson:"responded_at"`
	CreatedAt   time.Time          `json:"created_at" bson:"created_at"`
	UpdatedAt   time.Time          `json:"updated_at" bson:"updated_at"`
}

// IsActive reports whether the request still holds the passenger's place.
func (r *RideRequest) IsActive() bool {
	return r.Status == RideRequestStatusPending || r.Status == RideRequestStatusAccepted
}

func (r *RideRequest) Clone() *RideRequest {
	if r == nil {
		return nil
	}
	c := *r
	c.RespondedAt = cloneTime(r.RespondedAt)
	return &c
}

// Resolve moves a pending request to a final status.
func (r *RideRequest) Resolve(status RideRequestStatus, now time.Time) {
	r.Status = status
	r.RespondedAt = &now
	r.UpdatedAt = now
}
