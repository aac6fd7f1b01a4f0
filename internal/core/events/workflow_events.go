package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeRequestChanged      = "request.changed"
	EventTypeCommentAdded        = "comment.added"
	EventTypeNotificationCreated = "notification.created"
	EventTypeProfileChanged      = "profile.changed"
)

// WorkflowEventTypes lists every event type forwarded to realtime clients.
var WorkflowEventTypes = []string{
	EventTypeRequestChanged,
	EventTypeCommentAdded,
	EventTypeNotificationCreated,
	EventTypeProfileChanged,
}

type ChangeKind string

const (
	ChangeCreated       ChangeKind = "created"
	ChangeResubmitted   ChangeKind = "resubmitted"
	ChangeStatusChanged ChangeKind = "status_changed"
	ChangeDeleted       ChangeKind = "deleted"
)

// RequestSnapshot carries the fields needed to decide who may see an event.
type RequestSnapshot struct {
	RequestID      string `json:"request_id"`
	OrganizationID string `json:"organization_id"`
	EmployeeID     string `json:"employee_id"`
	Department     string `json:"department"`
	Status         string `json:"status"`
}

type RequestChangedEvent struct {
	BaseEvent
	Request RequestSnapshot `json:"request"`
	Change  ChangeKind      `json:"change"`
	ActorID string          `json:"actor_id"`
}

func NewRequestChangedEvent(snapshot RequestSnapshot, change ChangeKind, actorID string) *RequestChangedEvent {
	return &RequestChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeRequestChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"request_id": snapshot.RequestID,
				"status":     snapshot.Status,
				"change":     string(change),
				"actor_id":   actorID,
			},
		},
		Request: snapshot,
		Change:  change,
		ActorID: actorID,
	}
}

type CommentAddedEvent struct {
	BaseEvent
	CommentID string          `json:"comment_id"`
	Request   RequestSnapshot `json:"request"`
	IsSystem  bool            `json:"is_system"`
}

func NewCommentAddedEvent(commentID string, snapshot RequestSnapshot, isSystem bool) *CommentAddedEvent {
	return &CommentAddedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeCommentAdded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"comment_id": commentID,
				"request_id": snapshot.RequestID,
				"is_system":  isSystem,
			},
		},
		CommentID: commentID,
		Request:   snapshot,
		IsSystem:  isSystem,
	}
}

type NotificationCreatedEvent struct {
	BaseEvent
	NotificationID string `json:"notification_id"`
	UserID         string `json:"user_id"`
	RequestID      string `json:"request_id,omitempty"`
}

func NewNotificationCreatedEvent(notificationID, userID, requestID string) *NotificationCreatedEvent {
	return &NotificationCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeNotificationCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"notification_id": notificationID,
				"user_id":         userID,
				"request_id":      requestID,
			},
		},
		NotificationID: notificationID,
		UserID:         userID,
		RequestID:      requestID,
	}
}

type ProfileChangedEvent struct {
	BaseEvent
	ProfileID      string `json:"profile_id"`
	OrganizationID string `json:"organization_id"`
}

func NewProfileChangedEvent(profileID, organizationID string) *ProfileChangedEvent {
	return &ProfileChangedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeProfileChanged,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"profile_id":      profileID,
				"organization_id": organizationID,
			},
		},
		ProfileID:      profileID,
		OrganizationID: organizationID,
	}
}
