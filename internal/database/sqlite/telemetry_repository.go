package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/moby-ops/moby-backend-go/internal/database/models"
)

// TelemetryRepository stores and queries sensor readings. It backs both
// the point checks (latest value, count above threshold) and trend
// conditions.
type TelemetryRepository struct {
	db *sqlx.DB
}

// NewTelemetryRepository creates a new TelemetryRepository
func NewTelemetryRepository(db *sqlx.DB) *TelemetryRepository {
	return &TelemetryRepository{db: db}
}

// InsertReading stores one telemetry sample.
func (r *TelemetryRepository) InsertReading(ctx context.Context, reading *models.Reading) error {
	query := `
		INSERT INTO readings (sensor_type, field, value, timestamp)
		VALUES (?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query, reading.SensorType, reading.Field, reading.Value, reading.Timestamp.UTC())
	if err != nil {
		return fmt.Errorf("failed to insert reading: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get inserted reading ID: %w", err)
	}
	reading.ID = id
	return nil
}

// Latest returns the most recent value of a field for a sensor type
// inside the window. The measurement argument names the logical series
// and is currently a single table.
func (r *TelemetryRepository) Latest(ctx context.Context, measurement, sensorType, field string, window time.Duration) (float64, time.Time, bool, error) {
	query := `
		SELECT value, timestamp FROM readings
		WHERE sensor_type = ? AND field = ? AND timestamp >= ?
		ORDER BY timestamp DESC
		LIMIT 1
	`
	cutoff := time.Now().UTC().Add(-window)

	var row struct {
		Value     float64   `db:"value"`
		Timestamp time.Time `db:"timestamp"`
	}
	err := r.db.GetContext(ctx, &row, query, sensorType, field, cutoff)
	if err == sql.ErrNoRows {
		return 0, time.Time{}, false, nil
	}
	if err != nil {
		return 0, time.Time{}, false, fmt.Errorf("failed to query latest reading: %w", err)
	}
	return row.Value, row.Timestamp, true, nil
}

// CountAbove counts readings of a field above the threshold inside the
// window.
func (r *TelemetryRepository) CountAbove(ctx context.Context, field, sensorType string, threshold float64, window time.Duration) (int64, error) {
	query := `
		SELECT COUNT(*) FROM readings
		WHERE sensor_type = ? AND field = ? AND value > ? AND timestamp >= ?
	`
	cutoff := time.Now().UTC().Add(-window)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, sensorType, field, threshold, cutoff); err != nil {
		return 0, fmt.Errorf("failed to count readings: %w", err)
	}
	return count, nil
}

// Increasing reports whether the metric's average over the second half
// of the window exceeds its average over the first half. Fewer than two
// samples per half means no trend.
func (r *TelemetryRepository) Increasing(ctx context.Context, metric string, window time.Duration) (bool, error) {
	now := time.Now().UTC()
	start := now.Add(-window)
	mid := now.Add(-window / 2)

	firstAvg, firstN, err := r.averageBetween(ctx, metric, start, mid)
	if err != nil {
		return false, err
	}
	secondAvg, secondN, err := r.averageBetween(ctx, metric, mid, now)
	if err != nil {
		return false, err
	}
	if firstN < 2 || secondN < 2 {
		return false, nil
	}
	return secondAvg > firstAvg, nil
}

func (r *TelemetryRepository) averageBetween(ctx context.Context, field string, from, to time.Time) (float64, int64, error) {
	query := `
		SELECT COALESCE(AVG(value), 0), COUNT(*) FROM readings
		WHERE field = ? AND timestamp >= ? AND timestamp < ?
	`
	var avg float64
	var count int64
	if err := r.db.QueryRowxContext(ctx, query, field, from, to).Scan(&avg, &count); err != nil {
		return 0, 0, fmt.Errorf("failed to query average: %w", err)
	}
	return avg, count, nil
}

// PruneBefore deletes readings older than the cutoff and returns the
// number removed.
func (r *TelemetryRepository) PruneBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM readings WHERE timestamp < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune readings: %w", err)
	}
	return result.RowsAffected()
}
