package middleware

import (
	"errors"
	"strings"

	"github.com/gin-gonic/gin"

	"tubecast/internal/auth"
	"tubecast/pkg/utils"
)

const (
	// UserIDKey is the gin context key for the authenticated user's id.
	UserIDKey = "user_id"
	// UsernameKey is the gin context key for the authenticated username.
	UsernameKey = "username"
)

// AuthRequired validates the bearer token and stores the user identity in
// the gin context. The token may arrive in the Authorization header or,
// for websocket upgrades where headers are awkward, a "token" query
// parameter.
func AuthRequired(authService *auth.Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString, err := extractToken(c)
		if err != nil {
			utils.UnauthorizedResponse(c, err.Error())
			c.Abort()
			return
		}

		claims, err := authService.ValidateToken(tokenString)
		if err != nil {
			utils.UnauthorizedResponse(c, "Invalid or expired token")
			c.Abort()
			return
		}

		c.Set(UserIDKey, claims.UserID)
		c.Set(UsernameKey, claims.Username)
		c.Next()
	}
}

func extractToken(c *gin.Context) (string, error) {
	authHeader := c.GetHeader("Authorization")
	if authHeader != "" {
		parts := strings.SplitN(authHeader, " ", 2)
		if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
			return "", errors.New("invalid authorization header format")
		}
		return parts[1], nil
	}

	if token := c.Query("token"); token != "" {
		return token, nil
	}

	return "", errors.New("authorization required")
}

// GetUserID retrieves the authenticated user's id from the gin context.
func GetUserID(c *gin.Context) (string, error) {
	value, exists := c.Get(UserIDKey)
	if !exists {
		return "", errors.New("user id not found in context")
	}

	userID, ok := value.(string)
	if !ok || userID == "" {
		return "", errors.New("invalid user id in context")
	}
	return userID, nil
}
