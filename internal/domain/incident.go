package domain

import (
	"strings"
	"time"
)

// IncidentStatus enumerates lifecycle states for incidents.
type IncidentStatus string

const (
	IncidentStatusNew        IncidentStatus = "new"
	IncidentStatusAssigned   IncidentStatus = "assigned"
	IncidentStatusInProgress IncidentStatus = "in_progress"
	IncidentStatusPending    IncidentStatus = "pending"
	IncidentStatusEscalated  IncidentStatus = "escalated"
	IncidentStatusResolved   IncidentStatus = "resolved"
	IncidentStatusClosed     IncidentStatus = "closed"
	IncidentStatusCancelled  IncidentStatus = "cancelled"
)

// legacyStatusOpen is accepted on input and stored as assigned.
const legacyStatusOpen = "open"

// AllIncidentStatuses lists every valid status in lifecycle order.
var AllIncidentStatuses = []IncidentStatus{
	IncidentStatusNew,
	IncidentStatusAssigned,
	IncidentStatusInProgress,
	IncidentStatusPending,
	IncidentStatusEscalated,
	IncidentStatusResolved,
	IncidentStatusClosed,
	IncidentStatusCancelled,
}

// NormalizeStatus maps raw input onto a known status. The legacy "open"
// alias becomes assigned; anything else unknown is rejected.
func NormalizeStatus(raw string) (IncidentStatus, bool) {
	value := strings.ToLower(strings.TrimSpace(raw))
	if value == legacyStatusOpen {
		return IncidentStatusAssigned, true
	}
	for _, status := range AllIncidentStatuses {
		if string(status) == value {
			return status, true
		}
	}
	return "", false
}

// IsTerminal reports whether no transition can leave the status.
func (s IncidentStatus) IsTerminal() bool {
	return s == IncidentStatusClosed || s == IncidentStatusCancelled
}

// IsActiveWork reports whether the status means someone is working the incident.
func (s IncidentStatus) IsActiveWork() bool {
	return s == IncidentStatusAssigned || s == IncidentStatusInProgress || s == IncidentStatusEscalated
}

// Priority enumerates classification levels shared by priority, impact and urgency.
type Priority string

const (
	PriorityCritical Priority = "critical"
	PriorityHigh     Priority = "high"
	PriorityMedium   Priority = "medium"
	PriorityLow      Priority = "low"
)

// ParsePriority normalizes raw input into a Priority.
func ParsePriority(raw string) (Priority, bool) {
	switch p := Priority(strings.ToLower(strings.TrimSpace(raw))); p {
	case PriorityCritical, PriorityHigh, PriorityMedium, PriorityLow:
		return p, true
	default:
		return "", false
	}
}

// Incident is the aggregate tracked through the lifecycle.
type Incident struct {
	ID             string
	OrganizationID string
	TicketNumber   string
	ReporterID     string
	Title          string
	Description    string
	Category       string
	Channel        string
	Priority       Priority
	Impact         *Priority
	Urgency        *Priority
	Status         IncidentStatus
	AssigneeID     *string
	TeamID         *string
	Tags           []string

	ConfigItemIDs   []string
	ProblemID       *string
	ChangeRequestID *string

	SLAResponseDue     *time.Time
	SLAResponseAt      *time.Time
	SLAResponseMet     *bool
	SLAResolutionDue   *time.Time
	SLAResolutionMet   *bool
	SLAPausedAt        *time.Time
	SLATotalPausedMins int

	OnHoldReason *string
	OnHoldUntil  *time.Time

	ResolutionSummary *string
	ClosureCode       *string

	Version    int
	CreatedAt  time.Time
	UpdatedAt  time.Time
	ResolvedAt *time.Time
	ClosedAt   *time.Time
}

// HasTag reports whether the incident carries tag.
func (i *Incident) HasTag(tag string) bool {
	for _, t := range i.Tags {
		if t == tag {
			return true
		}
	}
	return false
}

// AddTag appends tag once.
func (i *Incident) AddTag(tag string) {
	if !i.HasTag(tag) {
		i.Tags = append(i.Tags, tag)
	}
}

// ClearHold drops hold bookkeeping.
func (i *Incident) ClearHold() {
	i.OnHoldReason = nil
	i.OnHoldUntil = nil
	i.SLAPausedAt = nil
}

// Clone returns a deep copy safe to mutate independently.
func (i *Incident) Clone() *Incident {
	if i == nil {
		return nil
	}
	c := *i
	c.Impact = clonePtr(i.Impact)
	c.Urgency = clonePtr(i.Urgency)
	c.AssigneeID = clonePtr(i.AssigneeID)
	c.TeamID = clonePtr(i.TeamID)
	c.Tags = append([]string(nil), i.Tags...)
	c.ConfigItemIDs = append([]string(nil), i.ConfigItemIDs...)
	c.ProblemID = clonePtr(i.ProblemID)
	c.ChangeRequestID = clonePtr(i.ChangeRequestID)
	c.SLAResponseDue = clonePtr(i.SLAResponseDue)
	c.SLAResponseAt = clonePtr(i.SLAResponseAt)
	c.SLAResponseMet = clonePtr(i.SLAResponseMet)
	c.SLAResolutionDue = clonePtr(i.SLAResolutionDue)
	c.SLAResolutionMet = clonePtr(i.SLAResolutionMet)
	c.SLAPausedAt = clonePtr(i.SLAPausedAt)
	c.OnHoldReason = clonePtr(i.OnHoldReason)
	c.OnHoldUntil = clonePtr(i.OnHoldUntil)
	c.ResolutionSummary = clonePtr(i.ResolutionSummary)
	c.ClosureCode = clonePtr(i.ClosureCode)
	c.ResolvedAt = clonePtr(i.ResolvedAt)
	c.ClosedAt = clonePtr(i.ClosedAt)
	return &c
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

// Comment is a note appended to an incident thread.
type Comment struct {
	ID             string
	OrganizationID string
	IncidentID     string
	AuthorID       string
	Content        string
	IsInternal     bool
	CreatedAt      time.Time
}
