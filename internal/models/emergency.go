package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type EmergencyStatus string

const (
	EmergencyStatusActive   EmergencyStatus = "active"
	EmergencyStatusResolved EmergencyStatus = "resolved"
)

type EmergencyAlert struct {
	ID               primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID           primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	RaisedBy         string             `json:"raised_by" bson:"raised_by"`
	Message          string             `json:"message" bson:"message"`
	Latitude         *float64           `json:"latitude,omitempty" bson:"latitude"`
	Longitude        *float64           `json:"longitude,omitempty" bson:"longitude"`
	Status           EmergencyStatus    `json:"status" bson:"status"`
	ContactsNotified []string           `json:"contacts_notified" bson:"contacts_notified"`
	CreatedAt        time.Time          `json:"created_at" bson:"created_at"`
	ResolvedAt       *time.Time         `json:"resolved_at,omitempty" bson:"resolved_at"`
}
