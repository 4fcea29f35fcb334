package main

import (
	"net/http"
	"time"

	"dialer-platform/internal/app"
	"dialer-platform/internal/auth"
	"dialer-platform/pkg/utils"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers delegate to internal modules.
func registerRoutes(r *gin.Engine, a *app.App) {
	r.GET("/healthz", func(c *gin.Context) {
		if err := utils.HealthCheck(c.Request.Context(), a.DB, 2*time.Second); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "db": err.Error()})
			return
		}
		if err := a.Redis.Ping(c.Request.Context()).Err(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "redis": err.Error()})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Vendor callbacks are public. Twilio requests are signature-checked when enabled.
	a.WebhookHandler().Register(r.Group("/webhooks"))

	a.HTTPHandlers().Register(r, auth.RequireAccessToken(a.Auth))
}
