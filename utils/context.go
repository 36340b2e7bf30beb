package utils

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/chargeops/dispatch/logger"
)

// GetUserIDFromContext extracts the authenticated user ID from the Gin
// context. The auth middleware stores it under "user_id" as a uuid.UUID.
func GetUserIDFromContext(c *gin.Context) (uuid.UUID, error) {
	val, exists := c.Get("user_id")
	if !exists {
		logger.ErrorLogger.Error("User ID not found in context.")
		return uuid.Nil, ErrUserIDNotFound
	}

	userID, ok := val.(uuid.UUID)
	if !ok {
		logger.ErrorLogger.Errorf("User ID in context is not a uuid.UUID, actual type: %T", val)
		return uuid.Nil, ErrUnauthorized
	}
	return userID, nil
}

// GetUserRoleFromContext returns the role claim set by the auth middleware,
// or an empty string when the token carried none.
func GetUserRoleFromContext(c *gin.Context) string {
	val, exists := c.Get("role")
	if !exists {
		return ""
	}
	role, _ := val.(string)
	return role
}
