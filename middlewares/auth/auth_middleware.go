package auth

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/utils"
	"github.com/chargeops/dispatch/utils/jwt_parse"
)

// AuthMiddleware validates the bearer token and ensures a usable user
// identity is in the context before the handler runs.
func AuthMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		jwt_parse.ParseJWTToken()(c)
		if c.IsAborted() {
			return
		}

		if _, exists := c.Get("user_id"); !exists {
			logger.ErrorLogger.Error("User ID not found in context after token parse")
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"code": "UNAUTHORIZED", "error": "Unauthorized: Missing user identification from token."})
			return
		}

		c.Next()
	}
}

// RequireRole rejects requests whose token does not carry one of the given
// roles. Runs after AuthMiddleware.
func RequireRole(roles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		role := utils.GetUserRoleFromContext(c)
		for _, allowed := range roles {
			if role == allowed {
				c.Next()
				return
			}
		}
		logger.WarnLogger.Warnf("Role %q not permitted for %s %s", role, c.Request.Method, c.FullPath())
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"code": "ACCESS_DENIED", "error": "Forbidden: insufficient role."})
	}
}
