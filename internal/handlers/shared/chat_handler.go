package handlers

import (
	"github.com/gin-gonic/gin"

	"ridepair/internal/services"
	"ridepair/internal/utils"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
)

type ChatHandler struct {
	chatService services.ChatService
	logger      *logger.Logger
}

func NewChatHandler(chatService services.ChatService, log *logger.Logger) *ChatHandler {
	return &ChatHandler{chatService: chatService, logger: log}
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}
	var req validators.SendMessageRequest
	if !bindJSON(c, &req) {
		return
	}

	message, err := h.chatService.SendMessage(c.Request.Context(), userID, rideID, req.Text)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.CreatedResponse(c, "Message sent", message)
}

func (h *ChatHandler) ListMessages(c *gin.Context) {
	userID, rideID, ok := rideParams(c)
	if !ok {
		return
	}

	params := utils.GetPaginationParams(c)
	messages, total, err := h.chatService.ListMessages(c.Request.Context(), userID, rideID, params)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponseWithMeta(c, "Messages retrieved", messages, paginationMeta(params, total))
}
