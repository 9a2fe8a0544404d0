package v1

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const userIDCtxKey = "user_id"

// HandleAuthMiddleware resolves the bearer token into a user id and stores
// it in the request context. Missing, malformed, or expired credentials all
// abort with 401.
func (h *handlerImpl) HandleAuthMiddleware(c *gin.Context) {
	const authHeader = "Authorization"
	header := c.GetHeader(authHeader)
	if header == "" {
		h.logger.Warn().Msg("authorization header required")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	const bearerPrefix = "Bearer"
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || parts[0] != bearerPrefix {
		h.logger.Warn().Msg("invalid authorization header")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	claims, err := h.auth.ParseJWTToken(parts[1])
	if err != nil {
		h.logger.Warn().
			Err(err).
			Msg("failed to parse token")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}
	if claims.Subject == "" {
		h.logger.Warn().Msg("token has no subject")
		c.AbortWithStatus(http.StatusUnauthorized)
		return
	}

	c.Set(userIDCtxKey, claims.Subject)
	c.Next()
}

// userIDFromContext returns the authenticated user id placed there by the
// middleware, aborting with 401 when it is missing.
func (h *handlerImpl) userIDFromContext(c *gin.Context) (string, bool) {
	userIDValue, exists := c.Get(userIDCtxKey)
	if !exists {
		h.logger.Error().Msg("no user id found in context")
		c.AbortWithStatus(http.StatusUnauthorized)
		return "", false
	}
	userID, _ := userIDValue.(string)
	if userID == "" {
		h.logger.Error().Msg("empty user id in context")
		c.AbortWithStatus(http.StatusUnauthorized)
		return "", false
	}
	return userID, true
}
