package sqlite

import (
	"context"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/moby-ops/moby-backend-go/internal/core/alerting"
	"github.com/moby-ops/moby-backend-go/internal/database/models"
)

const testSchema = `
CREATE TABLE readings (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    sensor_type TEXT NOT NULL,
    field TEXT NOT NULL,
    value REAL NOT NULL,
    timestamp DATETIME NOT NULL
);
CREATE TABLE alerts (
    id TEXT PRIMARY KEY,
    created_at DATETIME NOT NULL,
    policy_name TEXT NOT NULL,
    severity TEXT NOT NULL,
    equipment_id TEXT NOT NULL,
    sensor_values TEXT NOT NULL DEFAULT '{}',
    summary TEXT NOT NULL DEFAULT '',
    recommended_actions TEXT NOT NULL DEFAULT '[]',
    escalation_deadline DATETIME NOT NULL,
    status TEXT NOT NULL DEFAULT 'pending'
);
`

func testDB(t *testing.T) *sqlx.DB {
	t.Helper()
	db, err := sqlx.Connect("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	db.MustExec(testSchema)
	return db
}

func insertReading(t *testing.T, repo *TelemetryRepository, sensorType, field string, value float64, ts time.Time) {
	t.Helper()
	require.NoError(t, repo.InsertReading(context.Background(), &models.Reading{
		SensorType: sensorType,
		Field:      field,
		Value:      value,
		Timestamp:  ts,
	}))
}

func TestTelemetryLatest(t *testing.T) {
	repo := NewTelemetryRepository(testDB(t))
	now := time.Now().UTC()

	insertReading(t, repo, "temperature", "temperature_c", 42.5, now.Add(-30*time.Second))
	insertReading(t, repo, "temperature", "temperature_c", 43.0, now.Add(-10*time.Second))
	insertReading(t, repo, "vibration", "vibration_voltage", 2.5, now.Add(-5*time.Second))

	value, _, ok, err := repo.Latest(context.Background(), "sensor_reading", "temperature", "temperature_c", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 43.0, value)

	t.Run("window excludes stale readings", func(t *testing.T) {
		_, _, ok, err := repo.Latest(context.Background(), "sensor_reading", "temperature", "temperature_c", 5*time.Second)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("unknown sensor type", func(t *testing.T) {
		_, _, ok, err := repo.Latest(context.Background(), "sensor_reading", "pressure", "pressure_kpa", time.Minute)
		require.NoError(t, err)
		assert.False(t, ok)
	})
}

func TestTelemetryCountAbove(t *testing.T) {
	repo := NewTelemetryRepository(testDB(t))
	now := time.Now().UTC()

	for i := 0; i < 5; i++ {
		insertReading(t, repo, "vibration", "vibration_voltage", 2.5, now.Add(-time.Duration(i)*time.Second))
	}
	insertReading(t, repo, "vibration", "vibration_voltage", 1.0, now)
	insertReading(t, repo, "vibration", "vibration_voltage", 2.0, now) // exactly at threshold

	count, err := repo.CountAbove(context.Background(), "vibration_voltage", "vibration", 2.0, time.Minute)
	require.NoError(t, err)
	assert.Equal(t, int64(5), count)
}

func TestTelemetryIncreasing(t *testing.T) {
	repo := NewTelemetryRepository(testDB(t))
	now := time.Now().UTC()

	t.Run("rising series", func(t *testing.T) {
		for i := 0; i < 4; i++ {
			insertReading(t, repo, "vibration", "trend_metric", 1.0, now.Add(-50*time.Minute).Add(time.Duration(i)*time.Minute))
			insertReading(t, repo, "vibration", "trend_metric", 5.0, now.Add(-20*time.Minute).Add(time.Duration(i)*time.Minute))
		}
		increasing, err := repo.Increasing(context.Background(), "trend_metric", time.Hour)
		require.NoError(t, err)
		assert.True(t, increasing)
	})

	t.Run("too few samples is no trend", func(t *testing.T) {
		increasing, err := repo.Increasing(context.Background(), "sparse_metric", time.Hour)
		require.NoError(t, err)
		assert.False(t, increasing)
	})
}

func TestTelemetryPruneBefore(t *testing.T) {
	repo := NewTelemetryRepository(testDB(t))
	now := time.Now().UTC()

	insertReading(t, repo, "temperature", "temperature_c", 40, now.Add(-48*time.Hour))
	insertReading(t, repo, "temperature", "temperature_c", 41, now)

	removed, err := repo.PruneBefore(context.Background(), now.Add(-24*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)
}

func sampleAlert(createdAt time.Time) alerting.Alert {
	return alerting.Alert{
		ID:                 "alert-1",
		CreatedAt:          createdAt,
		PolicyName:         "equipment_critical_state",
		Severity:           alerting.SeverityEmergency,
		EquipmentID:        "M1",
		SensorValues:       map[string]float64{"temperature": 95},
		Summary:            "shut it down",
		RecommendedActions: []string{"log", "emergency_shutdown"},
		EscalationDeadline: createdAt.Add(5 * time.Minute),
		Status:             alerting.StatusPending,
	}
}

func TestAlertSaveAndHistory(t *testing.T) {
	repo := NewAlertRepository(testDB(t))
	now := time.Now().UTC().Truncate(time.Second)

	require.NoError(t, repo.Save(context.Background(), sampleAlert(now)))

	records, err := repo.History(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)

	record := records[0]
	assert.Equal(t, "alert-1", record.ID)
	assert.Equal(t, "EMERGENCY", record.Severity)
	assert.Equal(t, "pending", record.Status)
	assert.Contains(t, record.SensorValues, `"temperature":95`)
	assert.Contains(t, record.RecommendedActions, "emergency_shutdown")

	t.Run("cutoff excludes old alerts", func(t *testing.T) {
		records, err := repo.History(context.Background(), now.Add(time.Hour))
		require.NoError(t, err)
		assert.Empty(t, records)
	})
}

func TestAlertUpdateStatus(t *testing.T) {
	repo := NewAlertRepository(testDB(t))
	now := time.Now().UTC()

	require.NoError(t, repo.Save(context.Background(), sampleAlert(now)))
	require.NoError(t, repo.UpdateStatus(context.Background(), "alert-1", alerting.StatusEscalated, alerting.SeverityEmergency))

	records, err := repo.History(context.Background(), now.Add(-time.Hour))
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "escalated", records[0].Status)

	assert.Error(t, repo.UpdateStatus(context.Background(), "missing", alerting.StatusResolved, alerting.SeverityInfo))
}
