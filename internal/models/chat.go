package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ChatMessage is an append-only message scoped to a ride.
type ChatMessage struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	RideID    primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	SenderID  string             `json:"sender_id" bson:"sender_id"`
	Text      string             `json:"text" bson:"text"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}
