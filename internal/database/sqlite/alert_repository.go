package sqlite

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database/models"
)

// AlertRepository persists alert records. It implements the engine's
// store interface.
type AlertRepository struct {
	db *sqlx.DB
}

// NewAlertRepository creates a new AlertRepository
func NewAlertRepository(db *sqlx.DB) *AlertRepository {
	return &AlertRepository{db: db}
}

// Save inserts a new alert record.
func (r *AlertRepository) Save(ctx context.Context, alert alerting.Alert) error {
	values, err := json.Marshal(alert.SensorValues)
	if err != nil {
		return fmt.Errorf("failed to encode sensor values: %w", err)
	}
	actions, err := json.Marshal(alert.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to encode recommended actions: %w", err)
	}

	query := `
		INSERT INTO alerts (id, created_at, policy_name, severity, equipment_id, sensor_values, summary, recommended_actions, escalation_deadline, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.ExecContext(ctx, query,
		alert.ID,
		alert.CreatedAt,
		alert.PolicyName,
		alert.Severity.String(),
		alert.EquipmentID,
		string(values),
		alert.Summary,
		string(actions),
		alert.EscalationDeadline,
		string(alert.Status),
	)
	if err != nil {
		return fmt.Errorf("failed to insert alert: %w", err)
	}
	return nil
}

// UpdateStatus updates an alert's status and severity.
func (r *AlertRepository) UpdateStatus(ctx context.Context, id string, status alerting.Status, severity alerting.Severity) error {
	result, err := r.db.ExecContext(ctx,
		`UPDATE alerts SET status = ?, severity = ? WHERE id = ?`,
		string(status), severity.String(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update alert status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read update result: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("alert %s not found", id)
	}
	return nil
}

// History returns alerts created after the cutoff, oldest first.
func (r *AlertRepository) History(ctx context.Context, since time.Time) ([]models.AlertRecord, error) {
	query := `
		SELECT id, created_at, policy_name, severity, equipment_id, sensor_values, summary, recommended_actions, escalation_deadline, status
		FROM alerts
		WHERE created_at >= ?
		ORDER BY created_at ASC
	`
	var records []models.AlertRecord
	if err := r.db.SelectContext(ctx, &records, query, since.UTC()); err != nil {
		return nil, fmt.Errorf("failed to query alert history: %w", err)
	}
	return records, nil
}
