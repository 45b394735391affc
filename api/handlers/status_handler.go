package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/salvatorelai/ocd/internal/app"
	"github.com/salvatorelai/ocd/internal/domain"
)

// StatusHandler exposes run progress over HTTP
type StatusHandler struct {
	tracker *app.RunTracker
}

// NewStatusHandler creates a new status handler
func NewStatusHandler(tracker *app.RunTracker) *StatusHandler {
	return &StatusHandler{
		tracker: tracker,
	}
}

// GetStatus handles GET /api/v1/status
func (h *StatusHandler) GetStatus(c *gin.Context) {
	c.JSON(http.StatusOK, h.tracker.Status())
}

// ListAssets handles GET /api/v1/assets
//
// An optional ?state= query filters to one progress state.
func (h *StatusHandler) ListAssets(c *gin.Context) {
	assets := h.tracker.Assets()

	if state := c.Query("state"); state != "" {
		filtered := make([]app.AssetStatus, 0, len(assets))
		for _, a := range assets {
			if a.State == domain.AssetState(state) {
				filtered = append(filtered, a)
			}
		}
		assets = filtered
	}

	c.JSON(http.StatusOK, gin.H{
		"total":  len(assets),
		"assets": assets,
	})
}
