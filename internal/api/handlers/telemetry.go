package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	gorilla "github.com/gorilla/websocket"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database/models"
	"github.com/moby-ops/moby-backend-go/pkg/utils"
)

// TelemetryRequest is one ingested snapshot from an edge device.
type TelemetryRequest struct {
	EquipmentID string             `json:"equipment_id" binding:"required"`
	Timestamp   time.Time          `json:"timestamp"`
	Values      map[string]float64 `json:"values" binding:"required"`
}

// IngestTelemetry stores a telemetry snapshot and evaluates it against
// the alert policies in the same request.
func (h *Handlers) IngestTelemetry(c *gin.Context) {
	var req TelemetryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid telemetry payload: "+err.Error())
		return
	}
	if len(req.Values) == 0 {
		badRequest(c, "telemetry payload has no values")
		return
	}

	alerts, err := h.processTelemetry(c.Request.Context(), req)
	if err != nil {
		h.logger.WithError(err).Error("Failed to store telemetry")
		utils.SendError(c, http.StatusInternalServerError, "Failed to store telemetry")
		return
	}

	utils.SendSuccess(c, gin.H{
		"stored": len(req.Values),
		"alerts": alerts,
	})
}

func (h *Handlers) processTelemetry(ctx context.Context, req TelemetryRequest) ([]alerting.Alert, error) {
	ts := req.Timestamp
	if ts.IsZero() {
		ts = time.Now().UTC()
	}

	for field, value := range req.Values {
		reading := &models.Reading{
			SensorType: req.EquipmentID,
			Field:      field,
			Value:      value,
			Timestamp:  ts,
		}
		if err := h.telemetry.InsertReading(ctx, reading); err != nil {
			return nil, err
		}
	}

	snap := alerting.Snapshot{
		EquipmentID: req.EquipmentID,
		Timestamp:   ts,
		Values:      req.Values,
	}
	return h.engine.EvaluateTick(ctx, snap), nil
}

var sensorUpgrader = gorilla.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin:     func(r *http.Request) bool { return true },
}

// SensorSocket accepts a streaming ingest connection from an edge
// device. Each text frame is one TelemetryRequest; malformed frames are
// reported back without dropping the connection.
func (h *Handlers) SensorSocket(c *gin.Context) {
	conn, err := sensorUpgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.logger.WithError(err).Error("Failed to upgrade sensor connection")
		return
	}
	defer conn.Close()

	h.logger.WithField("remote_addr", conn.RemoteAddr().String()).Info("Sensor stream connected")

	for {
		var req TelemetryRequest
		if err := conn.ReadJSON(&req); err != nil {
			if gorilla.IsUnexpectedCloseError(err, gorilla.CloseGoingAway, gorilla.CloseNormalClosure) {
				h.logger.WithError(err).Warn("Sensor stream error")
			}
			return
		}
		if req.EquipmentID == "" || len(req.Values) == 0 {
			conn.WriteJSON(gin.H{"error": "equipment_id and values are required"})
			continue
		}

		alerts, err := h.processTelemetry(c.Request.Context(), req)
		if err != nil {
			h.logger.WithError(err).Error("Failed to store streamed telemetry")
			conn.WriteJSON(gin.H{"error": "failed to store telemetry"})
			continue
		}
		conn.WriteJSON(gin.H{"stored": len(req.Values), "alerts": len(alerts)})
	}
}
