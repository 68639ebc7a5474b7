package events

import (
	"github.com/princekumarofficial/submission-service/internal/types"
)

// Publisher interface for publishing events
type Publisher interface {
	PublishSubmissionCreated(userID string, data *types.SubmissionCreatedEvent) error
	PublishSubmissionRejected(userID string, data *types.SubmissionRejectedEvent) error
}

// EventPublisher implements the Publisher interface
type EventPublisher struct {
	hub WebSocketHub
}

// WebSocketHub interface for the WebSocket hub
type WebSocketHub interface {
	BroadcastToUser(userID string, event *types.Event)
	IsUserConnected(userID string) bool
}

// NewEventPublisher creates a new event publisher
func NewEventPublisher(hub WebSocketHub) *EventPublisher {
	return &EventPublisher{
		hub: hub,
	}
}

// PublishSubmissionCreated tells the author their record exists.
func (p *EventPublisher) PublishSubmissionCreated(userID string, data *types.SubmissionCreatedEvent) error {
	return p.publish(userID, types.EventSubmissionCreated, data)
}

// PublishSubmissionRejected tells the author every creation tier failed.
func (p *EventPublisher) PublishSubmissionRejected(userID string, data *types.SubmissionRejectedEvent) error {
	return p.publish(userID, types.EventSubmissionRejected, data)
}

func (p *EventPublisher) publish(userID string, eventType types.EventType, data interface{}) error {
	// Only send if the author is connected
	if userID == "" || !p.hub.IsUserConnected(userID) {
		return nil
	}

	p.hub.BroadcastToUser(userID, types.NewEvent(eventType, data))
	return nil
}
