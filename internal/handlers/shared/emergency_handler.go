package handlers

import (
	"github.com/gin-gonic/gin"

	"ridepair/internal/services"
	"ridepair/internal/utils"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
)

type EmergencyHandler struct {
	emergencyService services.EmergencyService
	logger           *logger.Logger
}

func NewEmergencyHandler(emergencyService services.EmergencyService, log *logger.Logger) *EmergencyHandler {
	return &EmergencyHandler{emergencyService: emergencyService, logger: log}
}

// RaiseAlert records an SOS on a matched ride and texts the emergency contacts.
func (h *EmergencyHandler) RaiseAlert(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}
	var req validators.RaiseEmergencyRequest
	if !bindOptionalJSON(c, &req) {
		return
	}

	alert, err := h.emergencyService.RaiseAlert(c.Request.Context(), userID, rideID, services.EmergencyInput{
		Message:   req.Message,
		Latitude:  req.Latitude,
		Longitude: req.Longitude,
		Contacts:  req.Contacts,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, "Emergency alert raised", alert)
}

func (h *EmergencyHandler) ListAlerts(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	alerts, err := h.emergencyService.ListAlerts(c.Request.Context(), userID, rideID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Emergency alerts retrieved", alerts, &utils.Meta{Count: len(alerts)})
}

func (h *EmergencyHandler) ResolveAlert(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	alertID, err := validators.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid alert ID")
		return
	}

	alert, err := h.emergencyService.ResolveAlert(c.Request.Context(), userID, alertID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Emergency alert resolved", alert)
}
