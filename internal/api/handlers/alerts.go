package handlers

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	apperrors "github.com/moby-ops/moby-backend-go/pkg/errors"
	"github.com/moby-ops/moby-backend-go/pkg/utils"
)

// transitionError maps engine transition failures onto API errors:
// unknown ids are 404, invalid transitions are 409.
func transitionError(err error) *apperrors.AppError {
	if strings.Contains(err.Error(), "not found") {
		return apperrors.WithDetails(apperrors.ErrNotFound, err.Error())
	}
	return apperrors.WithDetails(apperrors.ErrConflict, err.Error())
}

// GetAlertHistory returns alerts from the in-memory history. The hours
// query parameter bounds the lookback; it defaults to 24.
func (h *Handlers) GetAlertHistory(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	alerts := h.engine.History(time.Duration(hours) * time.Hour)
	utils.SendSuccess(c, gin.H{
		"alerts": alerts,
		"count":  len(alerts),
	})
}

// GetPersistedAlerts returns alerts from storage, which outlives the
// bounded in-memory history.
func (h *Handlers) GetPersistedAlerts(c *gin.Context) {
	hours := 24
	if raw := c.Query("hours"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			badRequest(c, "hours must be a positive integer")
			return
		}
		hours = parsed
	}

	records, err := h.alerts.History(c.Request.Context(), time.Now().UTC().Add(-time.Duration(hours)*time.Hour))
	if err != nil {
		h.logger.WithError(err).Error("Failed to query persisted alerts")
		utils.SendError(c, http.StatusInternalServerError, "Failed to query alert history")
		return
	}
	utils.SendSuccess(c, gin.H{
		"alerts": records,
		"count":  len(records),
	})
}

// AcknowledgeAlert marks an alert acknowledged
func (h *Handlers) AcknowledgeAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Acknowledge(c.Request.Context(), id); err != nil {
		appErr := transitionError(err)
		utils.SendError(c, appErr.Code, appErr.Details)
		return
	}
	utils.SendSuccess(c, gin.H{"id": id, "status": "acknowledged"})
}

// ResolveAlert marks an alert resolved
func (h *Handlers) ResolveAlert(c *gin.Context) {
	id := c.Param("id")
	if err := h.engine.Resolve(c.Request.Context(), id); err != nil {
		appErr := transitionError(err)
		utils.SendError(c, appErr.Code, appErr.Details)
		return
	}
	utils.SendSuccess(c, gin.H{"id": id, "status": "resolved"})
}

// GetPolicies lists the registered alert policies
func (h *Handlers) GetPolicies(c *gin.Context) {
	policies := h.engine.Registry().Policies()
	utils.SendSuccess(c, gin.H{
		"policies": policies,
		"count":    len(policies),
	})
}
