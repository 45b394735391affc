package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salvatorelai/ocd/internal/app"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	tracker *app.RunTracker
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(tracker *app.RunTracker) *HealthHandler {
	return &HealthHandler{
		tracker: tracker,
	}
}

// HealthResponse represents a health check response
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version"`
	Run     struct {
		Active bool `json:"active"`
	} `json:"run"`
}

// Health handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	response := HealthResponse{
		Status:  "ok",
		Version: "1.0.0",
	}
	response.Run.Active = h.tracker.IsRunning()

	c.JSON(http.StatusOK, response)
}
