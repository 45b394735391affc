package api

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/salvatorelai/ocd/api/handlers"
	"github.com/salvatorelai/ocd/api/middleware"
	"github.com/salvatorelai/ocd/internal/app"
)

// SetupRouter sets up the HTTP router for the status API
func SetupRouter(tracker *app.RunTracker, log *zap.Logger) *gin.Engine {
	// Set Gin mode
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()

	// Middleware
	router.Use(middleware.Logger(log))
	router.Use(middleware.Recovery(log))

	// Health endpoint
	healthHandler := handlers.NewHealthHandler(tracker)
	router.GET("/health", healthHandler.Health)

	// API v1 routes
	v1 := router.Group("/api/v1")
	{
		statusHandler := handlers.NewStatusHandler(tracker)
		v1.GET("/status", statusHandler.GetStatus)
		v1.GET("/assets", statusHandler.ListAssets)
	}

	return router
}
