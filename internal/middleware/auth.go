package middleware

import (
	"strings"

	"github.com/eproba/eproba-api/internal/constants"
	apierrors "github.com/eproba/eproba-api/internal/errors"
	"github.com/eproba/eproba-api/internal/models"
	"github.com/eproba/eproba-api/internal/services"
	"github.com/gin-contrib/sessions"
	"github.com/gin-gonic/gin"
)

// RequireAuth authenticates the request via the session cookie or an
// Authorization bearer token, and loads the active user into context.
func RequireAuth(authService *services.AuthService) gin.HandlerFunc {
	return func(c *gin.Context) {
		user := resolveUser(c, authService)
		if user == nil {
			apierrors.Unauthorized(c, "")
			c.Abort()
			return
		}
		if !user.IsActive {
			apierrors.Unauthorized(c, "account is deactivated")
			c.Abort()
			return
		}

		c.Set(constants.ContextKeyUserID, user.ID)
		c.Set(constants.ContextKeyCurrentUser, user)
		c.Next()
	}
}

func resolveUser(c *gin.Context, authService *services.AuthService) *models.User {
	session := sessions.Default(c)
	if raw := session.Get(constants.ContextKeyUserID); raw != nil {
		if userID, ok := toUint64(raw); ok {
			user, err := authService.GetUser(userID)
			if err == nil {
				return user
			}
		}
	}

	header := c.GetHeader("Authorization")
	if token, ok := strings.CutPrefix(header, "Bearer "); ok && token != "" {
		user, err := authService.ResolveAccessToken(token)
		if err == nil {
			return user
		}
	}

	return nil
}

// GetUserID retrieves the current user ID from context
func GetUserID(c *gin.Context) (uint64, bool) {
	userID, exists := c.Get(constants.ContextKeyUserID)
	if !exists {
		return 0, false
	}
	return toUint64(userID)
}

// GetCurrentUser retrieves the authenticated user from context
func GetCurrentUser(c *gin.Context) (*models.User, bool) {
	raw, exists := c.Get(constants.ContextKeyCurrentUser)
	if !exists {
		return nil, false
	}
	user, ok := raw.(*models.User)
	return user, ok
}

func toUint64(value interface{}) (uint64, bool) {
	switch v := value.(type) {
	case uint64:
		return v, true
	case uint:
		return uint64(v), true
	case int:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	case int64:
		if v < 0 {
			return 0, false
		}
		return uint64(v), true
	default:
		return 0, false
	}
}
