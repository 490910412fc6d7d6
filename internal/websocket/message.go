package websocket

import (
	"encoding/json"
	"time"
)

// Message types pushed to dashboard clients.
const (
	MessageTypeAlert      = "alert"
	MessageTypeTelemetry  = "telemetry"
	MessageTypeConnection = "connection"
	MessageTypeHeartbeat  = "heartbeat"
)

// Message is the envelope for everything sent over the socket. Alerts
// travel as {"type": "alert", "payload": <alert>}.
type Message struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

// ToJSON converts the message to JSON bytes, stamping the send time.
func (m Message) ToJSON() []byte {
	m.Timestamp = time.Now().UTC()
	data, _ := json.Marshal(m)
	return data
}
