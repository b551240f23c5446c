package events

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	// EventAny subscribes a handler to every event type.
	EventAny EventType = "*"

	EventIncidentCreated       EventType = "incident.created"
	EventIncidentStatusChanged EventType = "incident.status_changed"
	EventIncidentUpdated       EventType = "incident.updated"
	EventIncidentCommented     EventType = "incident.commented"
	EventIncidentAssigned      EventType = "incident.assigned"
	EventIncidentsMerged       EventType = "incident.merged"
)

// Event represents an activity event emitted by services after commit.
type Event struct {
	ID             string      `json:"id"`
	Type           EventType   `json:"type"`
	OrganizationID string      `json:"organization_id"`
	IncidentID     string      `json:"incident_id"`
	TicketNumber   string      `json:"ticket_number,omitempty"`
	ActorID        *string     `json:"actor_id,omitempty"`
	Timestamp      time.Time   `json:"timestamp"`
	Payload        interface{} `json:"payload"`
}

// IncidentCreatedPayload payload.
type IncidentCreatedPayload struct {
	TicketNumber string          `json:"ticket_number"`
	Title        string          `json:"title"`
	Priority     domain.Priority `json:"priority"`
	TeamID       *string         `json:"team_id,omitempty"`
	AssigneeID   *string         `json:"assignee_id,omitempty"`
}

// IncidentStatusChangedPayload payload.
type IncidentStatusChangedPayload struct {
	From   domain.IncidentStatus `json:"from"`
	To     domain.IncidentStatus `json:"to"`
	Reason string                `json:"reason,omitempty"`
}

// IncidentUpdatedPayload payload.
type IncidentUpdatedPayload struct {
	Fields []string `json:"fields"`
}

// IncidentCommentedPayload payload.
type IncidentCommentedPayload struct {
	CommentID   string `json:"comment_id"`
	IsInternal  bool   `json:"is_internal"`
	BodyPreview string `json:"body_preview"`
}

// IncidentAssignedPayload payload.
type IncidentAssignedPayload struct {
	AssigneeID string  `json:"assignee_id"`
	TeamID     *string `json:"team_id,omitempty"`
}

// IncidentsMergedPayload payload.
type IncidentsMergedPayload struct {
	SourceIDs []string `json:"source_ids"`
	Reason    string   `json:"reason,omitempty"`
}
