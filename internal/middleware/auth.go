package middleware

import (
	"net/http"
	"strings"

	"pitchfeed/internal/models"
	"pitchfeed/internal/services"

	"github.com/gin-gonic/gin"
)

const CheckUserKey = "user"
const UserHeader = "X-User-ID"

// LoadUser resolves the acting user from the X-User-ID header and stores it
// in the context. Unknown ids leave the request anonymous.
func LoadUser(identity *services.IdentityService) gin.HandlerFunc {
	return func(c *gin.Context) {
		if id := strings.TrimSpace(c.GetHeader(UserHeader)); id != "" {
			if user, err := identity.GetUser(c.Request.Context(), id); err == nil {
				c.Set(CheckUserKey, user)
			}
		}
		c.Next()
	}
}

// AuthRequired rejects anonymous requests.
func AuthRequired() gin.HandlerFunc {
	return func(c *gin.Context) {
		if _, exists := c.Get(CheckUserKey); !exists {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "unauthorized", "message": "a valid " + UserHeader + " header is required"})
			return
		}
		c.Next()
	}
}

// CurrentUser returns the user set by LoadUser, if any.
func CurrentUser(c *gin.Context) *models.User {
	if v, ok := c.Get(CheckUserKey); ok {
		if u, ok := v.(*models.User); ok {
			return u
		}
	}
	return nil
}
