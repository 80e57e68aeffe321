// Package domain holds the telemetry event type shared by producers and consumers.
package domain

import (
	"encoding/json"
	"time"
)

// Event is a single telemetry event. Serialized as JSON on the Kafka topic and
// as OTel log record attributes; field names are stable wire contract.
type Event struct {
	UserID    string          `json:"userId,omitempty"`
	EventType string          `json:"eventType"`
	Source    string          `json:"source"`
	Metadata  json.RawMessage `json:"metadata,omitempty"`
	CreatedAt time.Time       `json:"createdAt"`
}
