package dto

import (
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/sla"
)

// CreateIncidentRequest payload.
type CreateIncidentRequest struct {
	Title           string   `json:"title"`
	Description     string   `json:"description"`
	Category        string   `json:"category"`
	Channel         string   `json:"channel"`
	Impact          string   `json:"impact"`
	Urgency         string   `json:"urgency"`
	Priority        string   `json:"priority"`
	AssigneeID      *string  `json:"assigneeId"`
	TeamID          *string  `json:"teamId"`
	Tags            []string `json:"tags"`
	ConfigItemIDs   []string `json:"configItemIds"`
	ProblemID       *string  `json:"problemId"`
	ChangeRequestID *string  `json:"changeRequestId"`
}

// UpdateIncidentRequest is a partial edit; omitted fields stay unchanged.
type UpdateIncidentRequest struct {
	Title           *string  `json:"title"`
	Description     *string  `json:"description"`
	Category        *string  `json:"category"`
	Channel         *string  `json:"channel"`
	Impact          *string  `json:"impact"`
	Urgency         *string  `json:"urgency"`
	Priority        *string  `json:"priority"`
	Tags            []string `json:"tags"`
	ConfigItemIDs   []string `json:"configItemIds"`
	ProblemID       *string  `json:"problemId"`
	ChangeRequestID *string  `json:"changeRequestId"`
}

// TransitionRequest moves an incident to Status.
type TransitionRequest struct {
	Status            string          `json:"status"`
	AssigneeID        *string         `json:"assigneeId"`
	TeamID            *string         `json:"teamId"`
	Reason            string          `json:"reason"`
	Comment           string          `json:"comment"`
	PendingReason     string          `json:"pendingReason"`
	OnHoldUntil       *time.Time      `json:"onHoldUntil"`
	ResolutionSummary string          `json:"resolutionSummary"`
	ClosureCode       string          `json:"closureCode"`
	ProblemID         *string         `json:"problemId"`
	Metadata          domain.Metadata `json:"metadata"`
}

// CreateCommentRequest payload.
type CreateCommentRequest struct {
	Content    string `json:"content"`
	IsInternal bool   `json:"isInternal"`
}

// MergeRequest folds SourceIDs into the incident of the path.
type MergeRequest struct {
	SourceIDs []string `json:"sourceIds"`
	Reason    string   `json:"reason"`
}

// IncidentResponse is the full incident representation.
type IncidentResponse struct {
	ID                 string           `json:"id"`
	TicketNumber       string           `json:"ticketNumber"`
	ReporterID         string           `json:"reporterId"`
	Title              string           `json:"title"`
	Description        string           `json:"description"`
	Category           string           `json:"category,omitempty"`
	Channel            string           `json:"channel,omitempty"`
	Priority           domain.Priority  `json:"priority"`
	Impact             *domain.Priority `json:"impact,omitempty"`
	Urgency            *domain.Priority `json:"urgency,omitempty"`
	Status             string           `json:"status"`
	AssigneeID         *string          `json:"assigneeId"`
	TeamID             *string          `json:"teamId"`
	Tags               []string         `json:"tags"`
	ConfigItemIDs      []string         `json:"configItemIds"`
	ProblemID          *string          `json:"problemId,omitempty"`
	ChangeRequestID    *string          `json:"changeRequestId,omitempty"`
	SLAResponseDue     *time.Time       `json:"slaResponseDue"`
	SLAResponseAt      *time.Time       `json:"slaResponseAt"`
	SLAResponseMet     *bool            `json:"slaResponseMet"`
	SLAResolutionDue   *time.Time       `json:"slaResolutionDue"`
	SLAResolutionMet   *bool            `json:"slaResolutionMet"`
	SLAPausedAt        *time.Time       `json:"slaPausedAt"`
	SLATotalPausedMins int              `json:"slaTotalPausedMins"`
	OnHoldReason       *string          `json:"onHoldReason,omitempty"`
	OnHoldUntil        *time.Time       `json:"onHoldUntil,omitempty"`
	ResolutionSummary  *string          `json:"resolutionSummary,omitempty"`
	ClosureCode        *string          `json:"closureCode,omitempty"`
	Version            int              `json:"version"`
	CreatedAt          time.Time        `json:"createdAt"`
	UpdatedAt          time.Time        `json:"updatedAt"`
	ResolvedAt         *time.Time       `json:"resolvedAt"`
	ClosedAt           *time.Time       `json:"closedAt"`
	SLA                *SLAResponse     `json:"sla,omitempty"`
}

// SLAResponse is the live SLA position of an incident.
type SLAResponse struct {
	Response      SLAMeasurement `json:"response"`
	Resolution    SLAMeasurement `json:"resolution"`
	PausedMinutes int            `json:"pausedMinutes"`
	ElapsedMins   int            `json:"elapsedBusinessMinutes"`
}

// SLAMeasurement describes one target.
type SLAMeasurement struct {
	Due    *time.Time `json:"due"`
	Status sla.Status `json:"status"`
}

// TimelineEntryResponse is one lifecycle record.
type TimelineEntryResponse struct {
	ID            string          `json:"id"`
	Action        string          `json:"action"`
	PreviousValue *string         `json:"previousValue"`
	NewValue      *string         `json:"newValue"`
	ActorID       *string         `json:"actorId"`
	Metadata      domain.Metadata `json:"metadata"`
	CreatedAt     time.Time       `json:"createdAt"`
}

// CommentResponse is a stored comment.
type CommentResponse struct {
	ID         string    `json:"id"`
	IncidentID string    `json:"incidentId"`
	AuthorID   string    `json:"authorId"`
	Content    string    `json:"content"`
	IsInternal bool      `json:"isInternal"`
	CreatedAt  time.Time `json:"createdAt"`
}

// DuplicateCandidateResponse pairs an incident with its similarity score.
type DuplicateCandidateResponse struct {
	Incident IncidentResponse `json:"incident"`
	Score    float64          `json:"score"`
}

// DuplicatesResponse lists candidates for a target.
type DuplicatesResponse struct {
	Target     IncidentResponse             `json:"target"`
	Duplicates []DuplicateCandidateResponse `json:"duplicates"`
}

// MergeResponse reports a completed merge.
type MergeResponse struct {
	Data              IncidentResponse `json:"data"`
	MergedCount       int              `json:"mergedCount"`
	MergedIncidentIDs []string         `json:"mergedIncidentIds"`
}

// NewIncidentResponse converts a domain incident.
func NewIncidentResponse(inc *domain.Incident) IncidentResponse {
	tags := inc.Tags
	if tags == nil {
		tags = []string{}
	}
	items := inc.ConfigItemIDs
	if items == nil {
		items = []string{}
	}
	return IncidentResponse{
		ID:                 inc.ID,
		TicketNumber:       inc.TicketNumber,
		ReporterID:         inc.ReporterID,
		Title:              inc.Title,
		Description:        inc.Description,
		Category:           inc.Category,
		Channel:            inc.Channel,
		Priority:           inc.Priority,
		Impact:             inc.Impact,
		Urgency:            inc.Urgency,
		Status:             string(inc.Status),
		AssigneeID:         inc.AssigneeID,
		TeamID:             inc.TeamID,
		Tags:               tags,
		ConfigItemIDs:      items,
		ProblemID:          inc.ProblemID,
		ChangeRequestID:    inc.ChangeRequestID,
		SLAResponseDue:     inc.SLAResponseDue,
		SLAResponseAt:      inc.SLAResponseAt,
		SLAResponseMet:     inc.SLAResponseMet,
		SLAResolutionDue:   inc.SLAResolutionDue,
		SLAResolutionMet:   inc.SLAResolutionMet,
		SLAPausedAt:        inc.SLAPausedAt,
		SLATotalPausedMins: inc.SLATotalPausedMins,
		OnHoldReason:       inc.OnHoldReason,
		OnHoldUntil:        inc.OnHoldUntil,
		ResolutionSummary:  inc.ResolutionSummary,
		ClosureCode:        inc.ClosureCode,
		Version:            inc.Version,
		CreatedAt:          inc.CreatedAt,
		UpdatedAt:          inc.UpdatedAt,
		ResolvedAt:         inc.ResolvedAt,
		ClosedAt:           inc.ClosedAt,
	}
}

// NewSLAResponse converts an SLA snapshot.
func NewSLAResponse(snap sla.Snapshot) *SLAResponse {
	return &SLAResponse{
		Response:      SLAMeasurement{Due: snap.Response.Due, Status: snap.Response.Status},
		Resolution:    SLAMeasurement{Due: snap.Resolution.Due, Status: snap.Resolution.Status},
		PausedMinutes: snap.PausedMinutes,
		ElapsedMins:   snap.ElapsedBusinessMinutes,
	}
}

// NewTimelineResponse converts timeline entries.
func NewTimelineResponse(entries []domain.TimelineEntry) []TimelineEntryResponse {
	out := make([]TimelineEntryResponse, 0, len(entries))
	for _, e := range entries {
		metadata := e.Metadata
		if metadata == nil {
			metadata = domain.Metadata{}
		}
		out = append(out, TimelineEntryResponse{
			ID:            e.ID,
			Action:        string(e.Action),
			PreviousValue: e.PreviousValue,
			NewValue:      e.NewValue,
			ActorID:       e.ActorID,
			Metadata:      metadata,
			CreatedAt:     e.CreatedAt,
		})
	}
	return out
}

// NewCommentResponse converts a comment.
func NewCommentResponse(c *domain.Comment) CommentResponse {
	return CommentResponse{
		ID:         c.ID,
		IncidentID: c.IncidentID,
		AuthorID:   c.AuthorID,
		Content:    c.Content,
		IsInternal: c.IsInternal,
		CreatedAt:  c.CreatedAt,
	}
}
