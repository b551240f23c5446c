package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/priority"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/sla"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

const entityIncident = "incident"

// TicketNumberer allocates human-readable ticket numbers per tenant.
type TicketNumberer interface {
	Next(ctx context.Context, organizationID string) (string, error)
}

// AutoAssigner picks an owner for a freshly created incident.
type AutoAssigner interface {
	AutoAssign(ctx context.Context, organizationID, incidentID string) (*domain.Incident, error)
}

// IncidentService drives the incident lifecycle.
type IncidentService struct {
	store      repository.Store
	numbers    TicketNumberer
	calendars  *sla.CalendarSet
	dispatcher events.Dispatcher
	assigner   AutoAssigner
	autoAssign bool
	reporter   SideEffectReporter
	metrics    *observability.Metrics
	logger     *zap.Logger
	now        func() time.Time
}

// IncidentDependencies bundles collaborators for the incident service.
type IncidentDependencies struct {
	Store      repository.Store
	Numbers    TicketNumberer
	Calendars  *sla.CalendarSet
	Dispatcher events.Dispatcher
	Assigner   AutoAssigner
	AutoAssign bool
	Reporter   SideEffectReporter
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewIncidentService constructs the service.
func NewIncidentService(deps IncidentDependencies) *IncidentService {
	svc := &IncidentService{
		store:      deps.Store,
		numbers:    deps.Numbers,
		calendars:  deps.Calendars,
		dispatcher: deps.Dispatcher,
		assigner:   deps.Assigner,
		autoAssign: deps.AutoAssign,
		reporter:   deps.Reporter,
		metrics:    deps.Metrics,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.calendars == nil {
		svc.calendars = sla.NewCalendarSet(sla.DefaultCalendar())
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.reporter == nil {
		svc.reporter = NewLoggingReporter(svc.logger, svc.metrics)
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// CreateIncidentInput describes a new incident.
type CreateIncidentInput struct {
	Title           string
	Description     string
	Category        string
	Channel         string
	Impact          string
	Urgency         string
	Priority        string
	AssigneeID      *string
	TeamID          *string
	Tags            []string
	ConfigItemIDs   []string
	ProblemID       *string
	ChangeRequestID *string
}

// CreateResult is the created incident plus failures of best-effort steps.
type CreateResult struct {
	Incident *domain.Incident
	Warnings []string
}

// CreateIncident persists a new incident in the new status with SLA deadlines.
func (s *IncidentService) CreateIncident(ctx context.Context, organizationID, reporterID string, input CreateIncidentInput) (*CreateResult, error) {
	title := strings.TrimSpace(input.Title)
	if title == "" {
		return nil, apperrors.NewValidationError("title is required", map[string]any{"field": "title"})
	}
	prio, impact, urgency, err := resolvePriority(input.Impact, input.Urgency, input.Priority)
	if err != nil {
		return nil, err
	}

	ticketNumber, err := s.numbers.Next(ctx, organizationID)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	now := s.now()
	incident := &domain.Incident{
		OrganizationID:  organizationID,
		TicketNumber:    ticketNumber,
		ReporterID:      reporterID,
		Title:           title,
		Description:     strings.TrimSpace(input.Description),
		Category:        strings.TrimSpace(input.Category),
		Channel:         strings.TrimSpace(input.Channel),
		Priority:        prio,
		Impact:          impact,
		Urgency:         urgency,
		Status:          domain.IncidentStatusNew,
		AssigneeID:      trimmedPtr(input.AssigneeID),
		TeamID:          trimmedPtr(input.TeamID),
		Tags:            input.Tags,
		ConfigItemIDs:   input.ConfigItemIDs,
		ProblemID:       trimmedPtr(input.ProblemID),
		ChangeRequestID: trimmedPtr(input.ChangeRequestID),
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	err = s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		if err := ensureOwnersExist(ctx, repos, organizationID, incident.AssigneeID, incident.TeamID); err != nil {
			return err
		}
		deadlines, err := sla.ResolveIncidentSLA(ctx, repos.Policies, organizationID, prio, now, s.calendars.For(organizationID))
		if err != nil {
			return err
		}
		incident.SLAResponseDue = &deadlines.ResponseDue
		incident.SLAResolutionDue = &deadlines.ResolutionDue

		if err := repos.Incidents.Create(ctx, incident); err != nil {
			return err
		}
		newStatus := string(incident.Status)
		metadata := domain.Metadata{
			"ticketNumber": incident.TicketNumber,
			"priority":     string(incident.Priority),
			"impact":       incident.Impact,
			"urgency":      incident.Urgency,
			"assigneeId":   incident.AssigneeID,
			"teamId":       incident.TeamID,
			"slaPolicyId":  deadlines.PolicyID,
		}.Compact()
		if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID: incident.ID,
			Action:     domain.TimelineActionCreated,
			NewValue:   &newStatus,
			ActorID:    actorPtr(reporterID),
			Metadata:   metadata,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		return repos.Audit.Create(ctx, &domain.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorPtr(reporterID),
			Action:         "incident.created",
			EntityType:     entityIncident,
			EntityID:       incident.ID,
			Metadata:       metadata,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, toServiceError(err, incident.ID)
	}

	result := &CreateResult{Incident: incident}
	if warning, ok := s.publish(ctx, events.Event{
		Type:           events.EventIncidentCreated,
		OrganizationID: organizationID,
		IncidentID:     incident.ID,
		TicketNumber:   incident.TicketNumber,
		ActorID:        actorPtr(reporterID),
		Payload: events.IncidentCreatedPayload{
			TicketNumber: incident.TicketNumber,
			Title:        incident.Title,
			Priority:     incident.Priority,
			TeamID:       incident.TeamID,
			AssigneeID:   incident.AssigneeID,
		},
	}); !ok {
		result.Warnings = append(result.Warnings, warning)
	}

	if s.autoAssign && s.assigner != nil && incident.TeamID != nil && incident.AssigneeID == nil {
		assigned, err := s.assigner.AutoAssign(ctx, organizationID, incident.ID)
		if err != nil {
			result.Warnings = append(result.Warnings, report(ctx, s.reporter, SideEffectFailure{
				Operation:      OpAutoAssign,
				OrganizationID: organizationID,
				IncidentID:     incident.ID,
				Err:            err,
			}))
		} else if assigned != nil {
			result.Incident = assigned
		}
	}
	return result, nil
}

// TransitionDetails carries caller-supplied data for a status change.
type TransitionDetails struct {
	AssigneeID        *string
	TeamID            *string
	Reason            string
	Comment           string
	PendingReason     string
	OnHoldUntil       *time.Time
	ResolutionSummary string
	ClosureCode       string
	ProblemID         *string
	Metadata          domain.Metadata
}

// Transition moves an incident to toStatus after validating the lifecycle
// table and gates. Every write of one transition commits together.
func (s *IncidentService) Transition(ctx context.Context, organizationID, incidentID, actorID, toStatus string, details TransitionDetails) (*domain.Incident, error) {
	to, ok := domain.NormalizeStatus(toStatus)
	if !ok {
		return nil, apperrors.NewInvalidState(toStatus)
	}
	if keys := details.Metadata.NonScalarKeys(); len(keys) > 0 {
		return nil, apperrors.NewValidationError("metadata values must be scalar", map[string]any{
			"field": "metadata",
			"keys":  keys,
		})
	}

	var (
		result  *domain.Incident
		from    domain.IncidentStatus
		changed bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		incident, err := repos.Incidents.GetForUpdate(ctx, organizationID, incidentID)
		if err != nil {
			return err
		}
		current, ok := domain.NormalizeStatus(string(incident.Status))
		if !ok {
			return apperrors.NewInvalidState(string(incident.Status))
		}
		from = current
		if from == to {
			result = incident
			return nil
		}
		if !IsValidTransition(from, to) {
			return apperrors.NewIllegalTransition("transition not allowed", map[string]any{
				"from":    string(from),
				"to":      string(to),
				"allowed": statusStrings(AllowedTransitions(from)),
			})
		}
		if err := s.checkGates(ctx, repos, incident, from, to, details); err != nil {
			return err
		}

		now := s.now()
		pausedMinutes := applyTransition(incident, from, to, details, now)

		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}

		metadata := domain.Metadata{
			"from":              string(from),
			"to":                string(to),
			"reason":            details.Reason,
			"comment":           details.Comment,
			"pendingReason":     details.PendingReason,
			"onHoldUntil":       details.OnHoldUntil,
			"resolutionSummary": details.ResolutionSummary,
			"closureCode":       details.ClosureCode,
			"assigneeId":        details.AssigneeID,
			"teamId":            details.TeamID,
			"problemId":         details.ProblemID,
		}
		if pausedMinutes > 0 {
			metadata["pausedMinutes"] = pausedMinutes
		}
		metadata = metadata.Merge(details.Metadata).Compact()

		prev, next := string(from), string(to)
		if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID:    incident.ID,
			Action:        domain.TimelineActionStatusChanged,
			PreviousValue: &prev,
			NewValue:      &next,
			ActorID:       actorPtr(actorID),
			Metadata:      metadata,
			CreatedAt:     now,
		}); err != nil {
			return err
		}
		if err := repos.Audit.Create(ctx, &domain.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorPtr(actorID),
			Action:         "incident.status_changed",
			EntityType:     entityIncident,
			EntityID:       incident.ID,
			Metadata:       metadata,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		result = incident
		changed = true
		return nil
	})
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}
	if !changed {
		return result, nil
	}

	s.metrics.RecordTransition(string(from), string(to))
	s.publish(ctx, events.Event{
		Type:           events.EventIncidentStatusChanged,
		OrganizationID: organizationID,
		IncidentID:     result.ID,
		TicketNumber:   result.TicketNumber,
		ActorID:        actorPtr(actorID),
		Payload: events.IncidentStatusChangedPayload{
			From:   from,
			To:     to,
			Reason: firstNonEmpty(details.Reason, details.PendingReason, details.ResolutionSummary, details.ClosureCode),
		},
	})
	return result, nil
}

// checkGates validates per-target preconditions before any write.
func (s *IncidentService) checkGates(ctx context.Context, repos repository.Repositories, incident *domain.Incident, from, to domain.IncidentStatus, details TransitionDetails) error {
	assigneeID := trimmedPtr(details.AssigneeID)
	teamID := trimmedPtr(details.TeamID)
	if err := ensureOwnersExist(ctx, repos, incident.OrganizationID, assigneeID, teamID); err != nil {
		return err
	}

	switch to {
	case domain.IncidentStatusAssigned, domain.IncidentStatusInProgress, domain.IncidentStatusEscalated:
		if assigneeID == nil && teamID == nil && incident.AssigneeID == nil && incident.TeamID == nil {
			return apperrors.NewIllegalTransition("an assignee or team is required", map[string]any{"to": string(to)})
		}
	case domain.IncidentStatusPending:
		if strings.TrimSpace(details.PendingReason) == "" {
			return apperrors.NewIllegalTransition("pendingReason is required", map[string]any{"to": string(to)})
		}
	case domain.IncidentStatusResolved:
		if strings.TrimSpace(details.ResolutionSummary) == "" {
			return apperrors.NewIllegalTransition("resolutionSummary is required", map[string]any{"to": string(to)})
		}
		open, err := repos.Tasks.CountOpenByIncident(ctx, incident.OrganizationID, incident.ID)
		if err != nil {
			return err
		}
		if open > 0 {
			return apperrors.NewIllegalTransition("workflow tasks must complete first", map[string]any{"openTasks": open})
		}
	case domain.IncidentStatusClosed:
		if from != domain.IncidentStatusResolved {
			return apperrors.NewIllegalTransition("only resolved incidents can be closed", map[string]any{"from": string(from)})
		}
		if strings.TrimSpace(details.ClosureCode) == "" {
			return apperrors.NewIllegalTransition("closureCode is required", map[string]any{"to": string(to)})
		}
	case domain.IncidentStatusCancelled:
		if strings.TrimSpace(details.Reason) == "" {
			return apperrors.NewIllegalTransition("reason is required", map[string]any{"to": string(to)})
		}
	}
	return nil
}

// applyTransition mutates incident for the from -> to change and returns the
// minutes spent on hold when leaving pending.
func applyTransition(incident *domain.Incident, from, to domain.IncidentStatus, details TransitionDetails, now time.Time) int {
	if id := trimmedPtr(details.AssigneeID); id != nil {
		incident.AssigneeID = id
	}
	if id := trimmedPtr(details.TeamID); id != nil {
		incident.TeamID = id
	}
	if id := trimmedPtr(details.ProblemID); id != nil {
		incident.ProblemID = id
	}

	pausedMinutes := 0
	if from == domain.IncidentStatusPending && incident.SLAPausedAt != nil {
		pausedMinutes = sla.DiffMinutes(*incident.SLAPausedAt, now)
		if incident.SLAResponseDue != nil && incident.SLAResponseAt == nil {
			shifted := sla.AddMinutes(*incident.SLAResponseDue, pausedMinutes)
			incident.SLAResponseDue = &shifted
		}
		if incident.SLAResolutionDue != nil && incident.ResolvedAt == nil {
			shifted := sla.AddMinutes(*incident.SLAResolutionDue, pausedMinutes)
			incident.SLAResolutionDue = &shifted
		}
		incident.SLATotalPausedMins += pausedMinutes
	}
	if from == domain.IncidentStatusPending {
		incident.ClearHold()
	}

	if to.IsActiveWork() && incident.SLAResponseAt == nil {
		stamp := now
		incident.SLAResponseAt = &stamp
		if incident.SLAResponseDue != nil {
			met := !now.After(*incident.SLAResponseDue)
			incident.SLAResponseMet = &met
		}
	}

	switch to {
	case domain.IncidentStatusPending:
		reason := strings.TrimSpace(details.PendingReason)
		incident.OnHoldReason = &reason
		incident.OnHoldUntil = details.OnHoldUntil
		if incident.SLAPausedAt == nil {
			stamp := now
			incident.SLAPausedAt = &stamp
		}
	case domain.IncidentStatusResolved:
		stamp := now
		incident.ResolvedAt = &stamp
		summary := strings.TrimSpace(details.ResolutionSummary)
		incident.ResolutionSummary = &summary
		if incident.SLAResolutionDue != nil {
			met := !now.After(*incident.SLAResolutionDue)
			incident.SLAResolutionMet = &met
		}
	case domain.IncidentStatusClosed:
		stamp := now
		incident.ClosedAt = &stamp
		code := strings.TrimSpace(details.ClosureCode)
		incident.ClosureCode = &code
	case domain.IncidentStatusCancelled:
		stamp := now
		incident.ClosedAt = &stamp
	}

	if from == domain.IncidentStatusResolved && to == domain.IncidentStatusInProgress {
		incident.ResolvedAt = nil
		incident.ClosedAt = nil
		incident.SLAResolutionMet = nil
	}

	incident.Status = to
	incident.UpdatedAt = now
	return pausedMinutes
}

// UpdateIncidentInput is a partial edit of non-status fields. Nil fields are
// left unchanged.
type UpdateIncidentInput struct {
	Title           *string
	Description     *string
	Category        *string
	Channel         *string
	Impact          *string
	Urgency         *string
	Priority        *string
	Tags            []string
	ConfigItemIDs   []string
	ProblemID       *string
	ChangeRequestID *string
}

// UpdateIncident applies a limited patch. Status and SLA fields are never
// touched here.
func (s *IncidentService) UpdateIncident(ctx context.Context, organizationID, incidentID, actorID string, input UpdateIncidentInput) (*domain.Incident, error) {
	var (
		result *domain.Incident
		fields []string
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		incident, err := repos.Incidents.GetForUpdate(ctx, organizationID, incidentID)
		if err != nil {
			return err
		}
		if incident.Status.IsTerminal() {
			return apperrors.NewIllegalTransition("closed or cancelled incidents cannot be updated", map[string]any{"status": string(incident.Status)})
		}
		previousPriority := incident.Priority

		fields, err = applyPatch(incident, input)
		if err != nil {
			return err
		}
		if len(fields) == 0 {
			result = incident
			return nil
		}

		now := s.now()
		incident.UpdatedAt = now
		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}
		metadata := domain.Metadata{"fields": fields}
		if incident.Priority != previousPriority {
			metadata["previousPriority"] = string(previousPriority)
			metadata["priority"] = string(incident.Priority)
		}
		if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID: incident.ID,
			Action:     domain.TimelineActionUpdated,
			ActorID:    actorPtr(actorID),
			Metadata:   metadata,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if err := repos.Audit.Create(ctx, &domain.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorPtr(actorID),
			Action:         "incident.updated",
			EntityType:     entityIncident,
			EntityID:       incident.ID,
			Metadata:       metadata,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		result = incident
		return nil
	})
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}
	if len(fields) > 0 {
		s.publish(ctx, events.Event{
			Type:           events.EventIncidentUpdated,
			OrganizationID: organizationID,
			IncidentID:     result.ID,
			TicketNumber:   result.TicketNumber,
			ActorID:        actorPtr(actorID),
			Payload:        events.IncidentUpdatedPayload{Fields: fields},
		})
	}
	return result, nil
}

func applyPatch(incident *domain.Incident, input UpdateIncidentInput) ([]string, error) {
	var fields []string
	setString := func(name string, target *string, value *string) {
		if value == nil {
			return
		}
		v := strings.TrimSpace(*value)
		if v != *target {
			*target = v
			fields = append(fields, name)
		}
	}
	setRef := func(name string, target **string, value *string) {
		if value == nil {
			return
		}
		v := trimmedPtr(value)
		if !sameRef(*target, v) {
			*target = v
			fields = append(fields, name)
		}
	}

	if input.Title != nil && strings.TrimSpace(*input.Title) == "" {
		return nil, apperrors.NewValidationError("title cannot be empty", map[string]any{"field": "title"})
	}
	setString("title", &incident.Title, input.Title)
	setString("description", &incident.Description, input.Description)
	setString("category", &incident.Category, input.Category)
	setString("channel", &incident.Channel, input.Channel)
	setRef("problemId", &incident.ProblemID, input.ProblemID)
	setRef("changeRequestId", &incident.ChangeRequestID, input.ChangeRequestID)

	if input.Impact != nil {
		impact, ok := domain.ParsePriority(*input.Impact)
		if !ok {
			return nil, apperrors.NewValidationError("invalid impact", map[string]any{"impact": *input.Impact})
		}
		if incident.Impact == nil || *incident.Impact != impact {
			incident.Impact = &impact
			fields = append(fields, "impact")
		}
	}
	if input.Urgency != nil {
		urgency, ok := domain.ParsePriority(*input.Urgency)
		if !ok {
			return nil, apperrors.NewValidationError("invalid urgency", map[string]any{"urgency": *input.Urgency})
		}
		if incident.Urgency == nil || *incident.Urgency != urgency {
			incident.Urgency = &urgency
			fields = append(fields, "urgency")
		}
	}

	next := incident.Priority
	switch {
	case (input.Impact != nil || input.Urgency != nil) && incident.Impact != nil && incident.Urgency != nil:
		next = priority.Calculate(*incident.Impact, *incident.Urgency)
	case input.Priority != nil:
		p, ok := domain.ParsePriority(*input.Priority)
		if !ok {
			return nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": *input.Priority})
		}
		next = p
	}
	if next != incident.Priority {
		incident.Priority = next
		fields = append(fields, "priority")
	}

	if input.Tags != nil && !sameStrings(incident.Tags, input.Tags) {
		incident.Tags = append([]string(nil), input.Tags...)
		fields = append(fields, "tags")
	}
	if input.ConfigItemIDs != nil && !sameStrings(incident.ConfigItemIDs, input.ConfigItemIDs) {
		incident.ConfigItemIDs = append([]string(nil), input.ConfigItemIDs...)
		fields = append(fields, "configItemIds")
	}
	return fields, nil
}

// IncidentView is an incident with its live SLA position.
type IncidentView struct {
	Incident *domain.Incident
	SLA      sla.Snapshot
}

// GetIncident loads an incident within the tenant.
func (s *IncidentService) GetIncident(ctx context.Context, organizationID, incidentID string) (*IncidentView, error) {
	incident, err := s.store.Repos().Incidents.GetByID(ctx, organizationID, incidentID)
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}
	return &IncidentView{Incident: incident, SLA: sla.Evaluate(incident, s.now(), s.calendars.For(organizationID))}, nil
}

// ListTimeline returns the incident's timeline oldest first.
func (s *IncidentService) ListTimeline(ctx context.Context, organizationID, incidentID string) ([]domain.TimelineEntry, error) {
	repos := s.store.Repos()
	if _, err := repos.Incidents.GetByID(ctx, organizationID, incidentID); err != nil {
		return nil, toServiceError(err, incidentID)
	}
	entries, err := repos.Timeline.ListByIncident(ctx, incidentID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return entries, nil
}

// CommentResult is the stored comment plus failures of best-effort steps.
type CommentResult struct {
	Comment  *domain.Comment
	Warnings []string
}

// AddComment appends a comment and a commented timeline entry. The audit
// record is best-effort and reported on failure.
func (s *IncidentService) AddComment(ctx context.Context, organizationID, incidentID, actorID, content string, isInternal bool) (*CommentResult, error) {
	body := strings.TrimSpace(content)
	if body == "" {
		return nil, apperrors.NewValidationError("content is required", map[string]any{"field": "content"})
	}

	now := s.now()
	var (
		incident *domain.Incident
		comment  *domain.Comment
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		var err error
		incident, err = repos.Incidents.GetByID(ctx, organizationID, incidentID)
		if err != nil {
			return err
		}
		comment = &domain.Comment{
			OrganizationID: organizationID,
			IncidentID:     incident.ID,
			AuthorID:       actorID,
			Content:        body,
			IsInternal:     isInternal,
			CreatedAt:      now,
		}
		if err := repos.Comments.Create(ctx, comment); err != nil {
			return err
		}
		return repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID: incident.ID,
			Action:     domain.TimelineActionCommented,
			ActorID:    actorPtr(actorID),
			Metadata:   domain.Metadata{"commentId": comment.ID, "isInternal": isInternal},
			CreatedAt:  now,
		})
	})
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}

	result := &CommentResult{Comment: comment}
	if err := s.store.Repos().Audit.Create(ctx, &domain.AuditLog{
		OrganizationID: organizationID,
		ActorID:        actorPtr(actorID),
		Action:         "incident.commented",
		EntityType:     entityIncident,
		EntityID:       incident.ID,
		Metadata:       domain.Metadata{"commentId": comment.ID, "isInternal": isInternal},
		CreatedAt:      now,
	}); err != nil {
		result.Warnings = append(result.Warnings, report(ctx, s.reporter, SideEffectFailure{
			Operation:      OpCommentAudit,
			OrganizationID: organizationID,
			IncidentID:     incident.ID,
			Err:            err,
		}))
	}
	if warning, ok := s.publish(ctx, events.Event{
		Type:           events.EventIncidentCommented,
		OrganizationID: organizationID,
		IncidentID:     incident.ID,
		TicketNumber:   incident.TicketNumber,
		ActorID:        actorPtr(actorID),
		Payload: events.IncidentCommentedPayload{
			CommentID:   comment.ID,
			IsInternal:  isInternal,
			BodyPreview: stringPreview(body, 120),
		},
	}); !ok {
		result.Warnings = append(result.Warnings, warning)
	}
	return result, nil
}

// publish sends an activity event after commit. A failure is reported and
// returned as a warning.
func (s *IncidentService) publish(ctx context.Context, event events.Event) (string, bool) {
	return publishEvent(ctx, s.dispatcher, s.reporter, s.now(), event)
}

func publishEvent(ctx context.Context, dispatcher events.Dispatcher, reporter SideEffectReporter, now time.Time, event events.Event) (string, bool) {
	if dispatcher == nil {
		return "", true
	}
	event.ID = uuid.NewString()
	event.Timestamp = now
	if err := dispatcher.Publish(ctx, event); err != nil {
		return report(ctx, reporter, SideEffectFailure{
			Operation:      OpActivityPublish,
			OrganizationID: event.OrganizationID,
			IncidentID:     event.IncidentID,
			Err:            err,
		}), false
	}
	return "", true
}

// resolvePriority derives priority from impact and urgency when both are
// given, else from the explicit value, else medium.
func resolvePriority(rawImpact, rawUrgency, rawPriority string) (domain.Priority, *domain.Priority, *domain.Priority, error) {
	var impact, urgency *domain.Priority
	if p, ok := domain.ParsePriority(rawImpact); ok {
		impact = &p
	}
	if p, ok := domain.ParsePriority(rawUrgency); ok {
		urgency = &p
	}
	if strings.TrimSpace(rawImpact) != "" && strings.TrimSpace(rawUrgency) != "" {
		calculated := priority.Calculate(
			domain.Priority(strings.ToLower(strings.TrimSpace(rawImpact))),
			domain.Priority(strings.ToLower(strings.TrimSpace(rawUrgency))),
		)
		return calculated, impact, urgency, nil
	}
	if strings.TrimSpace(rawPriority) != "" {
		p, ok := domain.ParsePriority(rawPriority)
		if !ok {
			return "", nil, nil, apperrors.NewValidationError("invalid priority", map[string]any{"priority": rawPriority})
		}
		return p, impact, urgency, nil
	}
	return domain.PriorityMedium, impact, urgency, nil
}

// ensureOwnersExist checks that supplied assignee and team ids resolve
// within the tenant.
func ensureOwnersExist(ctx context.Context, repos repository.Repositories, organizationID string, assigneeID, teamID *string) error {
	if assigneeID != nil {
		if _, err := repos.Staff.GetByID(ctx, organizationID, *assigneeID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("assignee", map[string]any{"assigneeId": *assigneeID})
			}
			return err
		}
	}
	if teamID != nil {
		if _, err := repos.Teams.GetByID(ctx, organizationID, *teamID); err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("team", map[string]any{"teamId": *teamID})
			}
			return err
		}
	}
	return nil
}

// toServiceError maps repository failures onto the domain taxonomy.
func toServiceError(err error, incidentID string) error {
	var domainErr *apperrors.DomainError
	switch {
	case errors.As(err, &domainErr):
		return domainErr
	case errors.Is(err, repository.ErrNotFound):
		return apperrors.NewNotFound("incident", map[string]any{"incidentId": incidentID})
	case errors.Is(err, repository.ErrVersionConflict):
		return apperrors.NewConflict("incident was modified concurrently", map[string]any{"incidentId": incidentID})
	default:
		return apperrors.MapError(err)
	}
}

func actorPtr(actorID string) *string {
	if strings.TrimSpace(actorID) == "" {
		return nil
	}
	return &actorID
}

func trimmedPtr(value *string) *string {
	if value == nil {
		return nil
	}
	v := strings.TrimSpace(*value)
	if v == "" {
		return nil
	}
	return &v
}

func sameRef(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameStrings(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func statusStrings(statuses []domain.IncidentStatus) []string {
	out := make([]string, len(statuses))
	for i, s := range statuses {
		out[i] = string(s)
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return strings.TrimSpace(v)
		}
	}
	return ""
}

func stringPreview(body string, max int) string {
	runes := []rune(body)
	if len(runes) <= max {
		return body
	}
	return string(runes[:max]) + "..."
}
