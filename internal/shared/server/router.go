package server

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"venture-backend/internal/account"
	"venture-backend/internal/analyses"
	googleauth "venture-backend/internal/auth"
	"venture-backend/internal/businesses"
	"venture-backend/internal/owners"
	"venture-backend/internal/shared/config"
	"venture-backend/internal/shared/metrics"
	"venture-backend/internal/shared/server/middleware"
	"venture-backend/internal/shared/server/respond"
)

// RouterDeps carries the handlers the router mounts.
type RouterDeps struct {
	Config          config.Config
	BusinessHandler *businesses.Handler
	AnalysisHandler *analyses.Handler
	AccountHandler  *account.Handler
	OwnerHandler    *owners.Handler
	GoogleAuth      *googleauth.GoogleService
}

// NewRouter constructs the Gin engine with middleware and routes registered.
func NewRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	r.Use(
		middleware.RequestID(),
		middleware.Logging(),
		middleware.Recovery(),
		middleware.CORS(deps.Config.CORSAllowOrigin),
		middleware.Auth(deps.Config.Env),
		middleware.RateLimit(middleware.RateLimitConfig{
			Rules: map[string]middleware.RateLimitRule{
				"ANALYSES_WRITE": {Rate: 0.5, Burst: 3},
			},
			GroupFor: func(c *gin.Context) string {
				if c.Request.Method == http.MethodPost && c.FullPath() == "/api/v1/businesses/:id/analyses" {
					return "ANALYSES_WRITE"
				}
				return ""
			},
		}),
	)

	api := r.Group("/api/v1")
	api.GET("/health", func(c *gin.Context) {
		respond.JSON(c, http.StatusOK, gin.H{"ok": true})
	})
	api.GET("/metrics", metrics.Handler())
	if deps.GoogleAuth != nil {
		deps.GoogleAuth.RegisterRoutes(api)
	}
	if deps.OwnerHandler != nil {
		deps.OwnerHandler.RegisterRoutes(api)
	}
	if deps.BusinessHandler != nil {
		deps.BusinessHandler.RegisterRoutes(api)
	}
	if deps.AnalysisHandler != nil {
		deps.AnalysisHandler.RegisterRoutes(api)
	}
	if deps.AccountHandler != nil {
		deps.AccountHandler.RegisterRoutes(api)
	}

	return r
}

// Addr normalizes the listen address.
func Addr(port string) string {
	if port == "" {
		return ":8080"
	}
	if port[0] == ':' {
		return port
	}
	return ":" + port
}
