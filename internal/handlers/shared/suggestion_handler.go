package handlers

import (
	"github.com/gin-gonic/gin"

	"ridepair/internal/models"
	"ridepair/internal/services"
	"ridepair/internal/utils"
	"ridepair/pkg/logger"
)

type SuggestionHandler struct {
	suggestionService services.SuggestionService
	logger            *logger.Logger
}

func NewSuggestionHandler(suggestionService services.SuggestionService, log *logger.Logger) *SuggestionHandler {
	return &SuggestionHandler{suggestionService: suggestionService, logger: log}
}

func (h *SuggestionHandler) SuggestRoute(c *gin.Context) {
	if _, ok := currentUser(c); !ok {
		return
	}
	var req models.RouteSuggestionRequest
	if !bindJSON(c, &req) {
		return
	}

	suggestion, err := h.suggestionService.SuggestRoute(c.Request.Context(), &req)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}
	utils.SuccessResponse(c, "Route suggestion generated", suggestion)
}
