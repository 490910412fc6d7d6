package alerting

import "time"

// Status is the lifecycle state of an alert.
type Status string

const (
	StatusPending      Status = "pending"
	StatusEscalated    Status = "escalated"
	StatusAcknowledged Status = "acknowledged"
	StatusResolved     Status = "resolved"
)

// Snapshot is the point-in-time set of metric values evaluated against
// policies on one tick. Snapshots are ephemeral and not owned by the
// engine; the engine copies what it needs into alerts.
type Snapshot struct {
	EquipmentID string             `json:"equipment_id"`
	Timestamp   time.Time          `json:"timestamp"`
	Values      map[string]float64 `json:"values"`
}

// Value returns the named metric and whether it is present.
func (s Snapshot) Value(metric string) (float64, bool) {
	v, ok := s.Values[metric]
	return v, ok
}

// Alert is an operator-facing alert record. Created by the Factory;
// status and severity are mutated only by the escalation monitor and
// by external acknowledge/resolve calls through the engine.
type Alert struct {
	ID                 string             `json:"id"`
	CreatedAt          time.Time          `json:"created_at"`
	PolicyName         string             `json:"policy_name"`
	Severity           Severity           `json:"severity"`
	EquipmentID        string             `json:"equipment_id"`
	SensorValues       map[string]float64 `json:"sensor_values"`
	Summary            string             `json:"llm_summary,omitempty"`
	RecommendedActions []string           `json:"recommended_actions"`
	EscalationDeadline time.Time          `json:"escalation_deadline"`
	Status             Status             `json:"status"`
}

// Overdue reports whether the alert has passed its escalation deadline
// while still pending.
func (a Alert) Overdue(now time.Time) bool {
	return a.Status == StatusPending && !now.Before(a.EscalationDeadline)
}

// clone deep-copies the alert so callers cannot mutate engine-owned
// history entries through the shared map and slice.
func (a Alert) clone() Alert {
	out := a
	if a.SensorValues != nil {
		out.SensorValues = make(map[string]float64, len(a.SensorValues))
		for k, v := range a.SensorValues {
			out.SensorValues[k] = v
		}
	}
	if a.RecommendedActions != nil {
		out.RecommendedActions = append([]string(nil), a.RecommendedActions...)
	}
	return out
}
