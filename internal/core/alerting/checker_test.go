package alerting

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	latest    float64
	latestOK  bool
	latestErr error

	countAbove int64
	countErr   error
}

func (s stubSource) Latest(ctx context.Context, measurement, sensorType, field string, window time.Duration) (float64, time.Time, bool, error) {
	return s.latest, time.Now().UTC(), s.latestOK, s.latestErr
}

func (s stubSource) CountAbove(ctx context.Context, field, sensorType string, threshold float64, window time.Duration) (int64, error) {
	return s.countAbove, s.countErr
}

func newCheckerEngine(t *testing.T) *Engine {
	t.Helper()
	log := testLogger()
	policies := []Policy{
		TemperatureCriticalPolicy(50, 0),
		SustainedVibrationPolicy(0),
	}
	registry, err := NewRegistry(policies, NewEvaluator(nil, log))
	require.NoError(t, err)
	return NewEngine(EngineOptions{
		Registry:    registry,
		Suppression: NewSuppressionState(0),
		Factory:     NewFactory(nil, 0, log),
		Logger:      log,
	})
}

func vibrationConfig() VibrationCheckConfig {
	return VibrationCheckConfig{
		SensorType:   "vibration",
		Threshold:    2.0,
		Duration:     5 * time.Minute,
		SampleRateHz: 16.0,
	}
}

func TestCheckTemperatureCritical(t *testing.T) {
	tests := []struct {
		name   string
		source stubSource
		alerts int
	}{
		{"above threshold fires", stubSource{latest: 60, latestOK: true}, 1},
		{"below threshold is quiet", stubSource{latest: 40, latestOK: true}, 0},
		{"exactly at threshold is quiet", stubSource{latest: 50, latestOK: true}, 0},
		{"no reading is quiet", stubSource{latestOK: false}, 0},
		{"query error is quiet", stubSource{latestErr: fmt.Errorf("db locked")}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newCheckerEngine(t)
			checker := NewChecker(tt.source, engine, TemperatureCheckConfig{SensorType: "temperature"}, vibrationConfig(), testLogger())

			checker.CheckTemperatureCritical(context.Background())
			assert.Len(t, engine.History(0), tt.alerts)
		})
	}
}

func TestCheckVibrationSustained(t *testing.T) {
	// 5 minutes at 16 Hz is 4800 samples; the sustained cutoff sits at
	// an 0.8 duty ratio, 3840 samples.
	tests := []struct {
		name     string
		observed int64
		alerts   int
	}{
		{"duty ratio above cutoff fires", 4000, 1},
		{"duty ratio exactly at cutoff is quiet", 3840, 0},
		{"transient spike is quiet", 500, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := newCheckerEngine(t)
			checker := NewChecker(stubSource{countAbove: tt.observed}, engine, TemperatureCheckConfig{SensorType: "temperature"}, vibrationConfig(), testLogger())

			checker.CheckVibrationSustained(context.Background())
			history := engine.History(0)
			require.Len(t, history, tt.alerts)
			if tt.alerts > 0 {
				assert.Equal(t, PolicyVibrationSustained, history[0].PolicyName)
				assert.Equal(t, float64(tt.observed), history[0].SensorValues["vibration_samples"])
			}
		})
	}
}

func TestCheckerAppliesDefaults(t *testing.T) {
	checker := NewChecker(stubSource{}, newCheckerEngine(t), TemperatureCheckConfig{SensorType: "temperature"}, vibrationConfig(), testLogger())
	assert.Equal(t, "temperature_c", checker.temperature.Field)
	assert.Equal(t, time.Minute, checker.temperature.Window)
	assert.Equal(t, "vibration_voltage", checker.vibration.Field)
}

func TestRunChecksIsFailureIsolated(t *testing.T) {
	engine := newCheckerEngine(t)
	// The temperature query fails but the vibration check still runs.
	source := stubSource{latestErr: fmt.Errorf("db locked"), countAbove: 4000}
	checker := NewChecker(source, engine, TemperatureCheckConfig{SensorType: "temperature"}, vibrationConfig(), testLogger())

	checker.RunChecks(context.Background())
	history := engine.History(0)
	require.Len(t, history, 1)
	assert.Equal(t, PolicyVibrationSustained, history[0].PolicyName)
}
