package api

import (
	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/api/handlers"
	"github.com/moby-ops/moby-backend-go/internal/api/middleware"
	"github.com/moby-ops/moby-backend-go/internal/config"
	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database/sqlite"
	"github.com/moby-ops/moby-backend-go/internal/metrics"
	"github.com/moby-ops/moby-backend-go/internal/websocket"
)

// NewRouter creates and configures the main HTTP router
func NewRouter(cfg *config.Config, engine *alerting.Engine, telemetry *sqlite.TelemetryRepository, alerts *sqlite.AlertRepository, wsHub *websocket.Hub, logger *logrus.Logger) *gin.Engine {
	if cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	} else {
		gin.SetMode(gin.DebugMode)
	}

	router := gin.New()

	router.Use(gin.Recovery())
	router.Use(middleware.LoggingMiddleware(logger))
	router.Use(middleware.CORSMiddleware(cfg.Server.AllowedOrigins))

	h := handlers.NewHandlers(cfg, engine, telemetry, alerts, wsHub, logger)

	router.GET("/health", h.Health)
	router.GET("/metrics", metrics.Handler())

	// Dashboard push stream and edge-device ingest stream.
	router.GET("/ws", h.WebSocketHandler())
	router.GET("/ws/sensor", h.SensorSocket)

	api := router.Group("/api/v1")
	{
		api.POST("/telemetry", h.IngestTelemetry)

		alertRoutes := api.Group("/alerts")
		{
			alertRoutes.GET("/history", h.GetAlertHistory)
			alertRoutes.GET("/persisted", h.GetPersistedAlerts)
			alertRoutes.POST("/:id/acknowledge", h.AcknowledgeAlert)
			alertRoutes.POST("/:id/resolve", h.ResolveAlert)
		}

		api.GET("/policies", h.GetPolicies)
	}

	return router
}
