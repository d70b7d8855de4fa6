package api

import (
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/b3u/sitekit/app/cfg"
)

// NewServer creates a new HTTP server with all routes configured
func NewServer(handler *Handler) *gin.Engine {
	// Set Gin mode (can be controlled via GIN_MODE environment variable)
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()

	// Middleware
	r.Use(gin.LoggerWithConfig(gin.LoggerConfig{
		Formatter: func(param gin.LogFormatterParams) string {
			return fmt.Sprintf("%s - [%s] \"%s %s %s %d %s \"%s\" %s\"\n",
				param.ClientIP,
				param.TimeStamp.Format(time.RFC3339),
				param.Method,
				param.Path,
				param.Request.Proto,
				param.StatusCode,
				param.Latency,
				param.Request.UserAgent(),
				param.ErrorMessage,
			)
		},
	}))

	r.Use(gin.Recovery())

	// CORS middleware; the static site is served from a different origin
	r.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	setupRoutes(r, handler)

	return r
}

// setupRoutes configures all the application routes
func setupRoutes(r *gin.Engine, handler *Handler) {
	appCfg := cfg.Get()

	// Public endpoints
	r.GET("/health", handler.GetHealth)
	r.POST("/subscribers", handler.Subscribe)
	r.POST("/track", handler.TrackPageView)
	r.POST("/relay/:endpoint", handler.RelayForm)
	r.POST("/submit", handler.LegacySubmit)
	r.POST("/login", handler.Login)
	r.POST("/logout", handler.Logout)

	// Admin endpoints (conditionally enabled with authentication)
	if appCfg.AdminUsername != "" {
		admin := r.Group("/admin")
		admin.Use(sessionMiddleware(handler.sessionSecret))
		{
			admin.GET("/subscribers", handler.GetSubscribers)
			admin.GET("/analytics", handler.GetAnalytics)
			admin.GET("/relay-endpoint", handler.GetRelayEndpoint)
			admin.PUT("/relay-endpoint", handler.SetRelayEndpoint)
		}
		slog.Info("Admin endpoints enabled with authentication")
	} else {
		slog.Info("Admin endpoints disabled (ADMIN_USERNAME not set)")
	}

	// Root endpoint with basic information
	r.GET("/", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"service":     "SiteKit",
			"version":     appCfg.Version,
			"description": "Backend toolkit: feed artifact ingestion, form relay, newsletter and analytics API",
			"endpoints": map[string]string{
				"health":      "/health",
				"subscribe":   "/subscribers (POST)",
				"track":       "/track (POST)",
				"relay":       "/relay/<endpoint> (POST)",
				"login":       "/login (POST)",
				"subscribers": "/admin/subscribers (requires session)",
				"analytics":   "/admin/analytics (requires session)",
			},
		})
	})

	// Favicon handler (return 204 to avoid 404s)
	r.GET("/favicon.ico", func(c *gin.Context) {
		c.Status(204)
	})
}

// sessionMiddleware gates admin endpoints on a valid signed session cookie
func sessionMiddleware(secret []byte) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, err := c.Cookie(sessionCookieName)
		if err != nil || !verifySession(secret, token) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			c.Abort()
			return
		}

		c.Next()
	}
}
