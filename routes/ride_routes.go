package routes

import (
	"github.com/gin-gonic/gin"

	handlers "ridepair/internal/handlers/shared"
	"ridepair/pkg/websocket"
)

// SetupRideRoutes sets up the ride lifecycle, chat and emergency routes.
func SetupRideRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, rideHandler *handlers.RideHandler, chatHandler *handlers.ChatHandler, emergencyHandler *handlers.EmergencyHandler) {
	rides := r.Group("/rides")
	rides.Use(auth)
	{
		// Creation and browsing
		rides.POST("/offers", rideHandler.CreateOffer)
		rides.POST("/requests", rideHandler.CreateRideRequest)
		rides.GET("/open", rideHandler.ListOpenRides)
		rides.GET("/mine", rideHandler.ListMyRides)
		rides.GET("/:id", rideHandler.GetRide)
		rides.GET("/:id/access", rideHandler.CanAccess)

		// Matching
		rides.POST("/:id/join", rideHandler.RequestToJoin)
		rides.GET("/:id/join-requests", rideHandler.ListRideRequests)
		rides.POST("/:id/claim", rideHandler.ClaimRide)

		// Trip handshake
		rides.POST("/:id/verify-otp", rideHandler.VerifyOTP)
		rides.POST("/:id/start", rideHandler.ConfirmStart)
		rides.POST("/:id/complete", rideHandler.ConfirmCompletion)
		rides.POST("/:id/cancel", rideHandler.CancelRide)

		// Private channels
		rides.GET("/:id/messages", chatHandler.ListMessages)
		rides.POST("/:id/messages", chatHandler.SendMessage)
		rides.GET("/:id/emergencies", emergencyHandler.ListAlerts)
		rides.POST("/:id/emergencies", emergencyHandler.RaiseAlert)
	}

	emergencies := r.Group("/emergencies")
	emergencies.Use(auth)
	{
		emergencies.POST("/:id/resolve", emergencyHandler.ResolveAlert)
	}
}

// SetupRequestRoutes sets up join request routes.
func SetupRequestRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, requestHandler *handlers.RequestHandler) {
	requests := r.Group("/join-requests")
	requests.Use(auth)
	{
		requests.GET("/mine", requestHandler.ListMyRequests)
		requests.POST("/:id/accept", requestHandler.AcceptRequest)
		requests.POST("/:id/reject", requestHandler.RejectRequest)
		requests.POST("/:id/withdraw", requestHandler.WithdrawRequest)
	}
}

// SetupNotificationRoutes sets up the inbox and push device routes.
func SetupNotificationRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, notificationHandler *handlers.NotificationHandler) {
	notifications := r.Group("/notifications")
	notifications.Use(auth)
	{
		notifications.GET("", notificationHandler.ListNotifications)
		notifications.GET("/unread-count", notificationHandler.UnreadCount)
		notifications.PUT("/:id/read", notificationHandler.MarkAsRead)
	}

	devices := r.Group("/devices")
	devices.Use(auth)
	{
		devices.PUT("", notificationHandler.RegisterDevice)
		devices.DELETE("", notificationHandler.UnregisterDevice)
	}
}

func SetupSuggestionRoutes(r *gin.RouterGroup, auth gin.HandlerFunc, suggestionHandler *handlers.SuggestionHandler) {
	suggestions := r.Group("/suggestions")
	suggestions.Use(auth)
	{
		suggestions.POST("/route", suggestionHandler.SuggestRoute)
	}
}

// SetupWebSocketRoutes mounts the realtime endpoint. Clients join ride_<id>
// rooms after connecting; their user_<id> room is joined automatically.
func SetupWebSocketRoutes(r *gin.RouterGroup, path string, auth gin.HandlerFunc, wsHandler *websocket.Handler) {
	r.GET(path, auth, wsHandler.HandleWebSocket)
}
