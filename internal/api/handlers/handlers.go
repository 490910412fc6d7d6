package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/moby-ops/moby-backend-go/internal/config"
	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database/sqlite"
	"github.com/moby-ops/moby-backend-go/internal/websocket"
	"github.com/moby-ops/moby-backend-go/pkg/utils"
)

// Handlers carries the dependencies shared by all HTTP handlers
type Handlers struct {
	cfg       *config.Config
	engine    *alerting.Engine
	telemetry *sqlite.TelemetryRepository
	alerts    *sqlite.AlertRepository
	hub       *websocket.Hub
	logger    *logrus.Logger
	started   time.Time
}

// NewHandlers creates the handler set
func NewHandlers(cfg *config.Config, engine *alerting.Engine, telemetry *sqlite.TelemetryRepository, alerts *sqlite.AlertRepository, hub *websocket.Hub, logger *logrus.Logger) *Handlers {
	return &Handlers{
		cfg:       cfg,
		engine:    engine,
		telemetry: telemetry,
		alerts:    alerts,
		hub:       hub,
		logger:    logger,
		started:   time.Now(),
	}
}

// Health reports service liveness
func (h *Handlers) Health(c *gin.Context) {
	utils.SendSuccess(c, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(h.started).String(),
		"timestamp": time.Now().UTC(),
	})
}

// WebSocketHandler upgrades dashboard connections
func (h *Handlers) WebSocketHandler() gin.HandlerFunc {
	return websocket.HandleWebSocketGin(h.hub)
}

func badRequest(c *gin.Context, message string) {
	utils.SendError(c, http.StatusBadRequest, message)
}
