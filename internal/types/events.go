package types

import "time"

// EventType represents the type of real-time event
type EventType string

const (
	EventSubmissionCreated  EventType = "submission.created"
	EventSubmissionRejected EventType = "submission.rejected"
)

// Event represents a real-time event that can be sent over WebSocket
type Event struct {
	Type      EventType   `json:"type"`
	Data      interface{} `json:"data"`
	Timestamp string      `json:"timestamp"`
}

// SubmissionCreatedEvent is sent to the author once a record exists.
type SubmissionCreatedEvent struct {
	RecordID      string      `json:"record_id"`
	Kind          ContentKind `json:"kind"`
	Tier          string      `json:"tier"`
	Uploaded      int         `json:"uploaded"`
	FailedUploads []string    `json:"failed_uploads,omitempty"`
	RejectedFiles []string    `json:"rejected_files,omitempty"`
	Degraded      bool        `json:"degraded"`
	CreatedAt     string      `json:"created_at"`
}

// SubmissionRejectedEvent is sent when every creation tier failed.
type SubmissionRejectedEvent struct {
	Kind       ContentKind `json:"kind"`
	Message    string      `json:"message"`
	RejectedAt string      `json:"rejected_at"`
}

// NewEvent creates a new event with the current timestamp
func NewEvent(eventType EventType, data interface{}) *Event {
	return &Event{
		Type:      eventType,
		Data:      data,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}
