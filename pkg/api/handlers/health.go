package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
)

// Pinger checks a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// PingFunc adapts a function to Pinger
type PingFunc func(ctx context.Context) error

// Ping calls f
func (f PingFunc) Ping(ctx context.Context) error { return f(ctx) }

// HealthHandler reports database and cache reachability
type HealthHandler struct {
	database Pinger
	cache    Pinger
	timeout  time.Duration
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(database, cache Pinger) *HealthHandler {
	return &HealthHandler{database: database, cache: cache, timeout: 2 * time.Second}
}

// Check godoc
// @Summary Health check
// @Description Reports whether the database and cache are reachable
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Failure 503 {object} map[string]string
// @Router /health [get]
func (h *HealthHandler) Check(c echo.Context) error {
	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	body := map[string]string{"status": "healthy", "database": "up", "cache": "up"}
	status := http.StatusOK

	if err := h.database.Ping(ctx); err != nil {
		body["database"] = "down"
		status = http.StatusServiceUnavailable
	}
	if err := h.cache.Ping(ctx); err != nil {
		body["cache"] = "down"
		status = http.StatusServiceUnavailable
	}
	if status != http.StatusOK {
		body["status"] = "unhealthy"
	}
	return c.JSON(status, body)
}
