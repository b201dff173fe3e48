package controllers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// HealthController handles health check endpoints
type HealthController struct {
	version   string
	startedAt time.Time
}

// NewHealthController creates a new HealthController instance
func NewHealthController(version string) *HealthController {
	return &HealthController{
		version:   version,
		startedAt: time.Now(),
	}
}

// GetName returns the name of this controller for logging
func (c *HealthController) GetName() string {
	return "HealthController"
}

// RegisterRoutes registers GET /health
func (c *HealthController) RegisterRoutes(e *echo.Echo) {
	e.GET("/health", c.HealthCheck)
}

// HealthCheck reports process liveness only; credential health is under /api/bigquery/auth/status
func (c *HealthController) HealthCheck(ctx echo.Context) error {
	return ctx.JSON(http.StatusOK, map[string]string{
		"status":  "ok",
		"version": c.version,
		"uptime":  time.Since(c.startedAt).Truncate(time.Second).String(),
	})
}
