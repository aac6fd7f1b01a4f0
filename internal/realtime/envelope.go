// Package realtime pushes workflow events to connected websocket clients.
package realtime

import (
	"time"

	"github.com/frahmantamala/audit-workflow/internal/core/events"
)

// Envelope is the wire form of a workflow event, shared by relays and clients.
type Envelope struct {
	ID             string                  `json:"id"`
	Type           string                  `json:"type"`
	OccurredAt     time.Time               `json:"occurred_at"`
	OrganizationID string                  `json:"organization_id,omitempty"`
	Request        *events.RequestSnapshot `json:"request,omitempty"`
	UserID         string                  `json:"user_id,omitempty"`
	ProfileID      string                  `json:"profile_id,omitempty"`
	Data           map[string]interface{}  `json:"data,omitempty"`
}

// EnvelopeFrom converts a bus event. ok is false for event types the feed
// does not carry.
func EnvelopeFrom(e events.Event) (env Envelope, ok bool) {
	env = Envelope{
		ID:         e.EventID(),
		Type:       e.EventType(),
		OccurredAt: e.OccurredAt(),
	}
	if data, isMap := e.Payload().(map[string]interface{}); isMap {
		env.Data = data
	}

	switch ev := e.(type) {
	case *events.RequestChangedEvent:
		snapshot := ev.Request
		env.Request = &snapshot
		env.OrganizationID = snapshot.OrganizationID
	case *events.CommentAddedEvent:
		snapshot := ev.Request
		env.Request = &snapshot
		env.OrganizationID = snapshot.OrganizationID
	case *events.NotificationCreatedEvent:
		env.UserID = ev.UserID
	case *events.ProfileChangedEvent:
		env.ProfileID = ev.ProfileID
		env.OrganizationID = ev.OrganizationID
	default:
		return Envelope{}, false
	}
	return env, true
}
