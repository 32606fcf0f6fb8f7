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

// RequestHandler serves the join requests of offered rides.
type RequestHandler struct {
	rideService services.RideService
	logger      *logger.Logger
}

func NewRequestHandler(rideService services.RideService, log *logger.Logger) *RequestHandler {
	return &RequestHandler{rideService: rideService, logger: log}
}

func (h *RequestHandler) ListMyRequests(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	requests, err := h.rideService.ListMyRequests(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Join requests retrieved", requests, &utils.Meta{Count: len(requests)})
}

// AcceptRequest confirms the ride for the requesting passenger and declines
// every other pending request.
func (h *RequestHandler) AcceptRequest(c *gin.Context) {
	userID, requestID, ok := requestParams(c)
	if !ok {
		return
	}

	ride, err := h.rideService.AcceptRequest(c.Request.Context(), userID, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Join request accepted", ride)
}

func (h *RequestHandler) RejectRequest(c *gin.Context) {
	h.resolve(c, "Join request rejected", h.rideService.RejectRequest)
}

func (h *RequestHandler) WithdrawRequest(c *gin.Context) {
	h.resolve(c, "Join request withdrawn", h.rideService.WithdrawRequest)
}

func (h *RequestHandler) resolve(c *gin.Context, message string, op func(ctx context.Context, actorID string, requestID primitive.ObjectID) (*models.RideRequest, error)) {
	userID, requestID, ok := requestParams(c)
	if !ok {
		return
	}

	request, err := op(c.Request.Context(), userID, requestID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, message, request)
}

func requestParams(c *gin.Context) (string, primitive.ObjectID, bool) {
	userID, ok := currentUser(c)
	if !ok {
		return "", primitive.NilObjectID, false
	}
	requestID, err := validators.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid request ID")
		return "", primitive.NilObjectID, false
	}
	return userID, requestID, true
}
