package jwt_parse

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/chargeops/dispatch/logger"
	"github.com/chargeops/dispatch/utils"
)

// ParseJWTToken parses and validates the bearer token, setting claims in
// the context. "user_id" is stored as a uuid.UUID; "role" as a string when
// the claim is present.
func ParseJWTToken() gin.HandlerFunc {
	return func(c *gin.Context) {
		authHeader := c.GetHeader("Authorization")
		if authHeader == "" {
			logger.ErrorLogger.Error("No authorization header provided")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "No authorization token"})
			c.Abort()
			return
		}

		var tokenString string
		if len(authHeader) > 7 && strings.ToLower(authHeader[:7]) == "bearer " {
			tokenString = authHeader[7:]
		} else {
			logger.ErrorLogger.Error("Invalid authorization header format")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization format"})
			c.Abort()
			return
		}

		token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
			if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
				return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
			}
			return utils.GetJWTSecret(), nil
		})
		if err != nil {
			logger.ErrorLogger.Errorf("Failed to parse JWT token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		claims, ok := token.Claims.(jwt.MapClaims)
		if !ok || !token.Valid {
			logger.ErrorLogger.Error("Invalid token claims")
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token"})
			c.Abort()
			return
		}

		subject, err := subjectFromClaims(claims)
		if err != nil {
			logger.ErrorLogger.Errorf("No usable user identifier in token: %v", err)
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid token claims"})
			c.Abort()
			return
		}
		c.Set("user_id", subject)

		if role, exists := claims["role"]; exists {
			if roleStr, ok := role.(string); ok {
				c.Set("role", roleStr)
			}
		}
		if jti, exists := claims["jti"]; exists {
			c.Set("jti", jti)
		}

		c.Next()
	}
}

// subjectFromClaims resolves the user ID from the "user_id" claim, falling
// back to "sub".
func subjectFromClaims(claims jwt.MapClaims) (uuid.UUID, error) {
	for _, key := range []string{"user_id", "sub"} {
		raw, exists := claims[key]
		if !exists {
			continue
		}
		str, ok := raw.(string)
		if !ok {
			return uuid.Nil, fmt.Errorf("claim %q is not a string: %T", key, raw)
		}
		id, err := uuid.Parse(str)
		if err != nil {
			return uuid.Nil, fmt.Errorf("claim %q is not a UUID: %w", key, err)
		}
		return id, nil
	}
	return uuid.Nil, errors.New("no user identifier claim found")
}

// ExtractUserID parses the bearer token directly and returns its subject.
// Used where the full middleware chain has not run.
func ExtractUserID(c *gin.Context) (uuid.UUID, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader == "" {
		return uuid.Nil, errors.New("authorization header required")
	}

	tokenString := strings.TrimPrefix(authHeader, "Bearer ")
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return utils.GetJWTSecret(), nil
	})
	if err != nil || !token.Valid {
		return uuid.Nil, fmt.Errorf("invalid token: %v", err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return uuid.Nil, errors.New("invalid token claims")
	}
	return subjectFromClaims(claims)
}
