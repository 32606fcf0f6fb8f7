package handlers

import (
	"context"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"ridepair/internal/models"
	"ridepair/internal/services"
	"ridepair/internal/utils"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
)

type RideHandler struct {
	rideService services.RideService
	logger      *logger.Logger
}

func NewRideHandler(rideService services.RideService, log *logger.Logger) *RideHandler {
	return &RideHandler{
		rideService: rideService,
		logger:      log,
	}
}

// CreateOffer posts a ride the caller will drive.
func (h *RideHandler) CreateOffer(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req validators.CreateRideRequest
	if !bindJSON(c, &req) {
		return
	}

	ride, err := h.rideService.CreateOffer(c.Request.Context(), userID, req.Details())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, "Ride offer created", ride)
}

// CreateRideRequest posts a ride the caller needs a driver for.
func (h *RideHandler) CreateRideRequest(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req validators.CreateRideRequest
	if !bindJSON(c, &req) {
		return
	}

	ride, err := h.rideService.CreateRideRequest(c.Request.Context(), userID, req.Details())
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, "Ride request created", ride)
}

func (h *RideHandler) ListOpenRides(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	filter := services.OpenRideFilter{
		Status:      models.RideStatus(c.Query("status")),
		Origin:      models.RideOrigin(c.Query("origin")),
		VehicleType: models.VehicleType(c.Query("vehicle_type")),
	}
	rides, total, err := h.rideService.ListOpenRides(c.Request.Context(), userID, filter, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Open rides retrieved", rides, paginationMeta(params, total))
}

func (h *RideHandler) ListMyRides(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	var statuses []models.RideStatus
	for _, s := range c.QueryArray("status") {
		statuses = append(statuses, models.RideStatus(s))
	}
	params := utils.GetPaginationParams(c)
	rides, total, err := h.rideService.ListMyRides(c.Request.Context(), userID, statuses, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Rides retrieved", rides, paginationMeta(params, total))
}

func (h *RideHandler) GetRide(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	ride, err := h.rideService.GetRide(c.Request.Context(), userID, rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Ride retrieved", ride)
}

// CanAccess reports whether the caller may use the ride's chat and emergency channels.
func (h *RideHandler) CanAccess(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	allowed, err := h.rideService.CanAccess(c.Request.Context(), userID, rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Access checked", gin.H{"can_access": allowed})
}

func (h *RideHandler) RequestToJoin(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}
	var req validators.JoinRideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	request, err := h.rideService.RequestToJoin(c.Request.Context(), userID, rideID, req.Message)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, "Join request sent", request)
}

func (h *RideHandler) ListRideRequests(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	requests, err := h.rideService.ListRideRequests(c.Request.Context(), userID, rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Join requests retrieved", requests, &utils.Meta{Count: len(requests)})
}

func (h *RideHandler) ClaimRide(c *gin.Context) {
	h.transition(c, "Ride claimed", h.rideService.ClaimRide)
}

func (h *RideHandler) VerifyOTP(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}
	var req validators.VerifyOTPRequest
	if !bindJSON(c, &req) {
		return
	}

	ride, err := h.rideService.VerifyOTP(c.Request.Context(), userID, rideID, req.OTP)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Ride code verified", ride)
}

func (h *RideHandler) ConfirmStart(c *gin.Context) {
	h.transition(c, "Start confirmed", h.rideService.ConfirmStart)
}

func (h *RideHandler) ConfirmCompletion(c *gin.Context) {
	h.transition(c, "Completion confirmed", h.rideService.ConfirmCompletion)
}

func (h *RideHandler) CancelRide(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}
	var req validators.CancelRideRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	ride, err := h.rideService.CancelRide(c.Request.Context(), userID, rideID, req.Reason)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Ride cancelled", ride)
}

func (h *RideHandler) transition(c *gin.Context, message string, op func(ctx context.Context, actorID string, rideID primitive.ObjectID) (*models.Ride, error)) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	ride, err := op(c.Request.Context(), userID, rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, message, ride)
}

func rideParams(c *gin.Context) (string, primitive.ObjectID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	rideID, err := validators.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid ride ID")
		return "", primitive.NilObjectID, false
	}
	return userID, rideID, true
}

// bindOptionalJSON accepts an empty body for endpoints whose payload is optional.
func bindOptionalJSON(c *gin.Context, dest interface{}) bool {
	if c.Request.ContentLength == 0 {
		return true
	}
	return bindJSON(c, dest)
}
