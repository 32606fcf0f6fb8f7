package handlers

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"ridepair/internal/services"
	"ridepair/internal/utils"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
)

type NotificationHandler struct {
	notificationService services.NotificationService
	deviceService       services.DeviceService
	logger              *logger.Logger
}

func NewNotificationHandler(notificationService services.NotificationService, deviceService services.DeviceService, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		notificationService: notificationService,
		deviceService:       deviceService,
		logger:              log,
	}
}

func (h *NotificationHandler) ListNotifications(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unread", "false"))
	params := utils.GetPaginationParams(c)
	notifications, total, err := h.notificationService.ListNotifications(c.Request.Context(), userID, unreadOnly, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Notifications retrieved", notifications, paginationMeta(params, total))
}

func (h *NotificationHandler) UnreadCount(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}

	count, err := h.notificationService.UnreadCount(c.Request.Context(), userID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Unread count retrieved", gin.H{"unread": count})
}

func (h *NotificationHandler) MarkAsRead(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	id, err := validators.ParseObjectID(c.Param("id"))
	if err != nil {
		utils.BadRequestResponse(c, "Invalid notification ID")
		return
	}

	if err := h.notificationService.MarkAsRead(c.Request.Context(), userID, id); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Notification marked as read", nil)
}

func (h *NotificationHandler) RegisterDevice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req validators.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.deviceService.RegisterDevice(c.Request.Context(), userID, req.Platform, req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Device registered", nil)
}

func (h *NotificationHandler) UnregisterDevice(c *gin.Context) {
	userID, ok := currentUser(c)
	if !ok {
		return
	}
	var req validators.RegisterDeviceRequest
	if !bindJSON(c, &req) {
		return
	}

	if err := h.deviceService.UnregisterDevice(c.Request.Context(), userID, req.Platform, req.Token); err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Device removed", nil)
}
