package handlers

import (
	"context"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/services"
	"ridepair/pkg/logger"
	"ridepair/pkg/websocket"
)

// RideRoomAuthorizer lets a user into ride_<id> rooms of rides they can access.
func RideRoomAuthorizer(rideService services.RideService, log *logger.Logger) websocket.RoomAuthorizer {
	return func(ctx context.Context, userID, roomID string) bool {
		hex, ok := websocket.RideIDFromRoom(roomID)
		if !ok {
			return false
		}
		rideID, err := primitive.ObjectIDFromHex(hex)
		if err != nil {
			return false
		}

		allowed, err := rideService.CanAccess(ctx, userID, rideID)
		if err != nil {
			log.WithError(err).WithField("room", roomID).Debug("room authorization failed")
			return false
		}
		return allowed
	}
}
