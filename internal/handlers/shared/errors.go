package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"ridepair/internal/middleware"
	"ridepair/internal/models"
	"ridepair/internal/utils"
	"ridepair/internal/validators"
	"ridepair/pkg/logger"
)

type errorMapping struct {
	err    error
	status int
	code   string
}

var errorMappings = []errorMapping{
	{models.ErrRideNotFound, http.StatusNotFound, utils.CodeNotFound},
	{models.ErrRequestNotFound, http.StatusNotFound, utils.CodeNotFound},
	{models.ErrNotificationMissing, http.StatusNotFound, utils.CodeNotFound},
	{models.ErrAlertNotFound, http.StatusNotFound, utils.CodeNotFound},
	{models.ErrNotAuthorized, http.StatusForbidden, utils.CodeNotAuthorized},
	{models.ErrInvalidTransition, http.StatusConflict, utils.CodeInvalidTransition},
	{models.ErrStaleState, http.StatusConflict, utils.CodeStaleState},
	{models.ErrDuplicateRequest, http.StatusConflict, utils.CodeDuplicateRequest},
	{models.ErrValidation, http.StatusBadRequest, utils.CodeValidation},
	{models.ErrInvalidOTPFormat, http.StatusBadRequest, utils.CodeValidation},
	{models.ErrOTPMismatch, http.StatusUnprocessableEntity, utils.CodeOTPMismatch},
	{models.ErrOTPAttemptsExceeded, http.StatusTooManyRequests, utils.CodeOTPAttemptsExceeded},
	{models.ErrSuggestionFailed, http.StatusBadGateway, utils.CodeSuggestionUnavailable},
	{models.ErrStoreUnavailable, http.StatusServiceUnavailable, utils.CodeStoreUnavailable},
}

// respondError maps service errors onto the response envelope. Infrastructure
// failures are logged and answered without detail.
func respondError(c *gin.Context, log *logger.Logger, err error) {
	for _, m := range errorMappings {
		if !errors.Is(err, m.err) {
			continue
		}
		message := err.Error()
		if m.status >= http.StatusInternalServerError {
			log.WithContext(c.Request.Context()).WithError(err).Error("request failed")
			message = m.err.Error()
		}
		utils.ErrorResponse(c, m.status, m.code, message)
		return
	}

	log.WithContext(c.Request.Context()).WithError(err).Error("unhandled error")
	utils.InternalServerErrorResponse(c)
}

// bindJSON decodes and validates the request body, answering 400 on failure.
func bindJSON(c *gin.Context, dest interface{}) bool {
	if err := c.ShouldBindJSON(dest); err != nil {
		utils.BadRequestResponse(c, "Invalid request body: "+err.Error())
		return false
	}
	if errs := validators.ValidateStruct(dest); errs != nil {
		utils.ValidationErrorResponse(c, errs.Map())
		return false
	}
	return true
}

// currentUser answers 401 when the auth middleware did not run.
func currentUser(c *gin.Context) (string, bool) {
	userID, ok := middleware.UserID(c)
	if !ok {
		utils.UnauthorizedResponse(c)
	}
	return userID, ok
}

func paginationMeta(params *utils.PaginationParams, total int64) *utils.Meta {
	return &utils.Meta{Pagination: utils.CreatePaginationMeta(params, total)}
}
