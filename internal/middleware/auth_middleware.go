package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"ridepair/internal/utils"
	"ridepair/pkg/identity"
	"ridepair/pkg/logger"
)

const (
	ContextUserID    = "user_id"
	ContextUserName  = "user_name"
	ContextUserEmail = "user_email"
)

// AuthRequired verifies the bearer token and sets the caller on the context.
// Browsers cannot set headers on websocket upgrades, so a "token" query
// parameter is accepted as well.
func AuthRequired(verifier identity.Verifier, log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, "Authorization header required")
			c.Abort()
			return
		}

		user, err := verifier.Verify(c.Request.Context(), token)
		if err != nil {
			log.WithError(err).WithField("path", c.FullPath()).Debug("rejected bearer token")
			utils.ErrorResponse(c, http.StatusUnauthorized, utils.CodeUnauthorized, utils.ErrInvalidToken)
			c.Abort()
			return
		}

		c.Set(ContextUserID, user.ID)
		c.Set(ContextUserName, user.Name)
		c.Set(ContextUserEmail, user.Email)
		c.Request = c.Request.WithContext(logger.ContextWithUserID(c.Request.Context(), user.ID))

		c.Next()
	}
}

func bearerToken(c *gin.Context) string {
	header := c.GetHeader("Authorization")
	if header != "" {
		token := strings.TrimPrefix(header, "Bearer ")
		if token == header {
			return ""
		}
		return strings.TrimSpace(token)
	}
	return c.Query("token")
}

// UserID returns the authenticated caller set by AuthRequired.
func UserID(c *gin.Context) (string, bool) {
	id := c.GetString(ContextUserID)
	return id, id != ""
}
