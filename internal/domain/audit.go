package domain

import "time"

const (
	OperationDetect = "detect"
	OperationRedact = "redact_and_chat"
)

// AuditEvent records what a request did without carrying any of the PII it saw.
type AuditEvent struct {
	RequestID  string           `json:"request_id,omitempty"`
	Operation  string           `json:"operation"`
	Tokens     int              `json:"tokens"`
	Items      map[Category]int `json:"items,omitempty"`
	Selected   int              `json:"selected,omitempty"`
	Redacted   int              `json:"redacted,omitempty"`
	DurationMS int64            `json:"duration_ms"`
	Timestamp  time.Time        `json:"timestamp"`
}
