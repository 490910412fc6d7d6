package models

import "time"

// Reading is a stored telemetry sample.
type Reading struct {
	ID         int64     `db:"id" json:"id"`
	SensorType string    `db:"sensor_type" json:"sensor_type"`
	Field      string    `db:"field" json:"field"`
	Value      float64   `db:"value" json:"value"`
	Timestamp  time.Time `db:"timestamp" json:"timestamp"`
}

// AlertRecord is the persisted form of an alert.
type AlertRecord struct {
	ID                 string    `db:"id" json:"id"`
	CreatedAt          time.Time `db:"created_at" json:"created_at"`
	PolicyName         string    `db:"policy_name" json:"policy_name"`
	Severity           string    `db:"severity" json:"severity"`
	EquipmentID        string    `db:"equipment_id" json:"equipment_id"`
	SensorValues       string    `db:"sensor_values" json:"sensor_values"`
	Summary            string    `db:"summary" json:"summary"`
	RecommendedActions string    `db:"recommended_actions" json:"recommended_actions"`
	EscalationDeadline time.Time `db:"escalation_deadline" json:"escalation_deadline"`
	Status             string    `db:"status" json:"status"`
}
