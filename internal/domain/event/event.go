package event

import (
	"time"

	"github.com/google/uuid"
)

// Event is a domain event emitted by the workflow engine or the
// processing pipeline and consumed through the dispatcher.
type Event struct {
	ID        string                 `json:"id"`
	Type      Type                   `json:"type"`
	RequestID string                 `json:"request_id"`
	JobID     string                 `json:"job_id,omitempty"`
	Payload   map[string]interface{} `json:"payload"`
	Timestamp time.Time              `json:"timestamp"`
}

// NewEvent creates an event with a generated ID and current timestamp
func NewEvent(eventType Type, requestID string, payload map[string]interface{}) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Type:      eventType,
		RequestID: requestID,
		Payload:   payload,
		Timestamp: time.Now(),
	}
}

// NewJobEvent creates an event tied to a processing job
func NewJobEvent(eventType Type, requestID, jobID string, payload map[string]interface{}) *Event {
	evt := NewEvent(eventType, requestID, payload)
	evt.JobID = jobID
	return evt
}
