package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/auth"
	"venture-backend/internal/shared/server/respond"
)

const (
	ownerIDKey      = "ownerId"
	ownerEmailKey   = "ownerEmail"
	ownerNameKey    = "ownerName"
	ownerPictureKey = "ownerPicture"
)

// Auth validates JWTs or guest headers and stores the owner identity in context.
func Auth(env string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Method == http.MethodOptions {
			c.Status(http.StatusNoContent)
			return
		}

		path := c.Request.URL.Path
		if strings.HasPrefix(path, "/api/v1/auth/google/") {
			c.Next()
			return
		}

		authHeader := strings.TrimSpace(c.GetHeader("Authorization"))

		if authHeader != "" {
			if !strings.HasPrefix(authHeader, "Bearer ") {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			token := strings.TrimSpace(strings.TrimPrefix(authHeader, "Bearer"))
			if token == "" {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			claims, err := auth.VerifyJWT(token)
			if err != nil {
				respond.Error(c, http.StatusUnauthorized, "unauthorized", "missing or invalid token", nil)
				return
			}

			c.Set(ownerIDKey, claims.Sub)
			if claims.Email != "" {
				c.Set(ownerEmailKey, claims.Email)
			}
			if claims.Name != "" {
				c.Set(ownerNameKey, claims.Name)
			}
			if claims.Picture != "" {
				c.Set(ownerPictureKey, claims.Picture)
			}
			c.Set("isGuest", false)
			c.Next()
			return
		}

		guestID := strings.TrimSpace(c.GetHeader("X-Guest-Id"))
		if guestID == "" {
			respond.Error(c, http.StatusUnauthorized, "unauthorized", "Missing identity", nil)
			return
		}

		c.Set(ownerIDKey, "guest:"+guestID)
		c.Set("isGuest", true)
		c.Next()
	}
}

// OwnerIDFromContext fetches the owner ID set by the auth middleware.
func OwnerIDFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerIDKey)
	if id, ok := val.(string); ok {
		return id
	}
	return ""
}

// OwnerEmailFromContext fetches the owner email set by the auth middleware.
func OwnerEmailFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerEmailKey)
	if email, ok := val.(string); ok {
		return email
	}
	return ""
}

// OwnerNameFromContext fetches the owner name set by the auth middleware.
func OwnerNameFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerNameKey)
	if name, ok := val.(string); ok {
		return name
	}
	return ""
}

// OwnerPictureFromContext fetches the owner picture set by the auth middleware.
func OwnerPictureFromContext(c *gin.Context) string {
	if c == nil {
		return ""
	}
	val, _ := c.Get(ownerPictureKey)
	if picture, ok := val.(string); ok {
		return picture
	}
	return ""
}
