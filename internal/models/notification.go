package models

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

type NotificationType string

const (
	NotificationTypeRideRequested NotificationType = "ride_requested"
	NotificationTypeRideAccepted  NotificationType = "ride_accepted"
	NotificationTypeRideRejected  NotificationType = "ride_rejected"
	NotificationTypeRideClaimed   NotificationType = "ride_claimed"
	NotificationTypeRideReopened  NotificationType = "ride_reopened"
	NotificationTypeRideStarted   NotificationType = "ride_started"
	NotificationTypeRideCompleted NotificationType = "ride_completed"
	NotificationTypeRideCancelled NotificationType = "ride_cancelled"
	NotificationTypeEmergency     NotificationType = "emergency_alert"
	NotificationTypeChatMessage   NotificationType = "chat_message"
)

type Notification struct {
	ID        primitive.ObjectID `json:"id" bson:"_id,omitempty"`
	UserID    string             `json:"user_id" bson:"user_id"`
	RideID    primitive.ObjectID `json:"ride_id" bson:"ride_id"`
	Type      NotificationType   `json:"type" bson:"type"`
	Title     string             `json:"title" bson:"title"`
	Message   string             `json:"message" bson:"message"`
	IsRead    bool               `json:"is_read" bson:"is_read"`
	ReadAt    *time.Time         `json:"read_at,omitempty" bson:"read_at"`
	CreatedAt time.Time          `json:"created_at" bson:"created_at"`
}

func NewNotification(userID string, rideID primitive.ObjectID, nType NotificationType, title, message string) *Notification {
	return &Notification{
		UserID:    userID,
		RideID:    rideID,
		Type:      nType,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	}
}
