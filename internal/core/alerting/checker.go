package alerting

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// TimeSeriesSource reads recent telemetry from storage for the point
// checks.
type TimeSeriesSource interface {
	// Latest returns the most recent value of a field for a sensor type
	// inside the window. ok is false when no reading exists.
	Latest(ctx context.Context, measurement, sensorType, field string, window time.Duration) (value float64, ts time.Time, ok bool, err error)

	// CountAbove counts readings of a field above the threshold inside
	// the window.
	CountAbove(ctx context.Context, field, sensorType string, threshold float64, window time.Duration) (int64, error)
}

// TemperatureCheckConfig shapes the instantaneous temperature check.
type TemperatureCheckConfig struct {
	SensorType string
	Field      string
	Window     time.Duration
}

// VibrationCheckConfig shapes the sustained vibration check.
type VibrationCheckConfig struct {
	SensorType   string
	Field        string
	Threshold    float64
	Duration     time.Duration
	SampleRateHz float64
}

// Checker runs the periodic equipment point checks against stored
// telemetry and feeds derived snapshots to the engine.
type Checker struct {
	source      TimeSeriesSource
	detector    SustainedEventDetector
	engine      *Engine
	temperature TemperatureCheckConfig
	vibration   VibrationCheckConfig
	logger      *logrus.Logger
}

// NewChecker creates a checker, filling field and window defaults.
func NewChecker(source TimeSeriesSource, engine *Engine, temperature TemperatureCheckConfig, vibration VibrationCheckConfig, logger *logrus.Logger) *Checker {
	if temperature.Field == "" {
		temperature.Field = "temperature_c"
	}
	if temperature.Window <= 0 {
		temperature.Window = time.Minute
	}
	if vibration.Field == "" {
		vibration.Field = "vibration_voltage"
	}
	return &Checker{
		source:      source,
		engine:      engine,
		temperature: temperature,
		vibration:   vibration,
		logger:      logger,
	}
}

// RunChecks performs one pass of every point check. A failing check
// logs and skips; it never aborts the other checks.
func (c *Checker) RunChecks(ctx context.Context) {
	c.CheckTemperatureCritical(ctx)
	c.CheckVibrationSustained(ctx)
}

// CheckTemperatureCritical evaluates the latest temperature reading
// through the policy path.
func (c *Checker) CheckTemperatureCritical(ctx context.Context) {
	value, ts, ok, err := c.source.Latest(ctx, "sensor_reading", c.temperature.SensorType, c.temperature.Field, c.temperature.Window)
	if err != nil {
		c.logger.WithError(err).WithField("sensor_type", c.temperature.SensorType).Error("Temperature check query failed")
		return
	}
	if !ok {
		return
	}

	snap := Snapshot{
		EquipmentID: c.temperature.SensorType,
		Timestamp:   ts,
		Values:      map[string]float64{"temperature": value},
	}
	c.engine.EvaluateTick(ctx, snap)
}

// CheckVibrationSustained counts over-threshold vibration samples in
// the window and evaluates the derived duty ratio through the policy
// path.
func (c *Checker) CheckVibrationSustained(ctx context.Context) {
	observed, err := c.source.CountAbove(ctx, c.vibration.Field, c.vibration.SensorType, c.vibration.Threshold, c.vibration.Duration)
	if err != nil {
		c.logger.WithError(err).WithField("sensor_type", c.vibration.SensorType).Error("Vibration check query failed")
		return
	}

	ratio := c.detector.DutyRatio(observed, c.vibration.Duration, c.vibration.SampleRateHz)
	snap := Snapshot{
		EquipmentID: c.vibration.SensorType,
		Timestamp:   time.Now().UTC(),
		Values: map[string]float64{
			MetricVibrationDutyRatio: ratio,
			"vibration_samples":      float64(observed),
		},
	}
	c.engine.EvaluateTick(ctx, snap)
}
