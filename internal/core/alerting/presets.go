package alerting

import "time"

// Preset policy names for the built-in equipment point checks.
const (
	PolicyTemperatureCritical = "temperature_critical"
	PolicyVibrationSustained  = "vibration_sustained"

	// MetricVibrationDutyRatio is the derived metric carrying the
	// fraction of window samples above the vibration threshold, so the
	// sustained check flows through the same condition path as every
	// other policy.
	MetricVibrationDutyRatio = "vibration_duty_ratio"
)

// TemperatureCriticalPolicy fires when the latest temperature reading
// exceeds the threshold.
func TemperatureCriticalPolicy(thresholdC float64, cooldown time.Duration) Policy {
	return Policy{
		Name: PolicyTemperatureCritical,
		Conditions: []Condition{
			{Metric: "temperature", Operator: OpGreaterThan, Threshold: threshold(thresholdC)},
		},
		Severity:             SeverityCritical,
		EscalationTime:       15 * time.Minute,
		NotificationChannels: []string{"email"},
		AutoActions:          []string{ActionLog, ActionNotifyOperator},
		Cooldown:             cooldown,
	}
}

// SustainedVibrationPolicy fires when the vibration duty ratio over the
// check window exceeds the sustained duty cycle.
func SustainedVibrationPolicy(cooldown time.Duration) Policy {
	return Policy{
		Name: PolicyVibrationSustained,
		Conditions: []Condition{
			{Metric: MetricVibrationDutyRatio, Operator: OpGreaterThan, Threshold: threshold(sustainedDutyCycle)},
		},
		Severity:             SeverityCritical,
		EscalationTime:       15 * time.Minute,
		NotificationChannels: []string{"email"},
		AutoActions:          []string{ActionLog, ActionNotifyOperator},
		Cooldown:             cooldown,
	}
}
