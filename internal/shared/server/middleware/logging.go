package middleware

import (
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/shared/telemetry"
)

// Logging emits a structured log per request.
func Logging() gin.HandlerFunc {
	return func(c *gin.Context) {
		if strings.EqualFold(c.Request.Method, "OPTIONS") {
			c.Next()
			return
		}

		start := time.Now()
		c.Next()
		latency := time.Since(start)
		status := c.Writer.Status()
		reqID := RequestIDFromContext(c)

		ownerID, _ := c.Get(ownerIDKey)
		isGuest, _ := c.Get("isGuest")
		businessID, _ := c.Get("businessId")
		analysisKind, _ := c.Get("analysisKind")
		statusTransition := ""
		if raw, ok := c.Get("statusTransition"); ok {
			if s, ok := raw.(string); ok {
				statusTransition = s
			}
		}

		telemetry.Info("request.complete", map[string]any{
			"request_id":        reqID,
			"method":            c.Request.Method,
			"path":              c.Request.URL.Path,
			"status":            status,
			"status_transition": statusTransition,
			"duration_ms":       float64(latency.Microseconds()) / 1000.0,
			"owner_id":          ownerID,
			"business_id":       businessID,
			"analysis_kind":     analysisKind,
			"is_guest":          isGuest,
			"client_ip":         c.ClientIP(),
			"user_agent":        c.Request.UserAgent(),
		})
	}
}
