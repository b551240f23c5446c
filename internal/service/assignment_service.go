package service

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// AssignmentService picks owners for incidents routed to a team.
type AssignmentService struct {
	store      repository.Store
	dispatcher events.Dispatcher
	reporter   SideEffectReporter
	logger     *zap.Logger
	now        func() time.Time
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Store      repository.Store
	Dispatcher events.Dispatcher
	Reporter   SideEffectReporter
	Logger     *zap.Logger
	Now        func() time.Time
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	svc := &AssignmentService{
		store:      deps.Store,
		dispatcher: deps.Dispatcher,
		reporter:   deps.Reporter,
		logger:     deps.Logger,
		now:        deps.Now,
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// AutoAssign selects an active member of the incident's team. The choice is
// stable for a given incident id. Incidents that already have an assignee
// or are closed are returned unchanged. Status is never changed here.
func (s *AssignmentService) AutoAssign(ctx context.Context, organizationID, incidentID string) (*domain.Incident, error) {
	var (
		result   *domain.Incident
		assigned bool
	)
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		incident, err := repos.Incidents.GetForUpdate(ctx, organizationID, incidentID)
		if err != nil {
			return err
		}
		result = incident
		if incident.AssigneeID != nil || incident.TeamID == nil || incident.Status.IsTerminal() {
			return nil
		}

		teamID := *incident.TeamID
		team, err := repos.Teams.GetByID(ctx, organizationID, teamID)
		if err != nil {
			if errors.Is(err, repository.ErrNotFound) {
				return apperrors.NewNotFound("team", map[string]any{"teamId": teamID})
			}
			return err
		}
		if !team.IsActive {
			return apperrors.NewConflict("team inactive", map[string]any{"teamId": teamID})
		}
		members, err := repos.Staff.ListActiveByTeam(ctx, organizationID, teamID)
		if err != nil {
			return err
		}
		if len(members) == 0 {
			return apperrors.NewConflict("no eligible staff for team", map[string]any{"teamId": teamID})
		}

		assignee := members[selectIndex(incident.ID, len(members))]
		now := s.now()
		incident.AssigneeID = &assignee.ID
		incident.UpdatedAt = now
		if err := repos.Incidents.Update(ctx, incident); err != nil {
			return err
		}
		metadata := domain.Metadata{"teamId": teamID, "assigneeId": assignee.ID}
		if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID: incident.ID,
			Action:     domain.TimelineActionAutoAssigned,
			NewValue:   &assignee.ID,
			Metadata:   metadata,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		if err := repos.Audit.Create(ctx, &domain.AuditLog{
			OrganizationID: organizationID,
			Action:         "incident.auto_assigned",
			EntityType:     entityIncident,
			EntityID:       incident.ID,
			Metadata:       metadata,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		assigned = true
		return nil
	})
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}
	if assigned {
		s.logger.Info("incident auto-assigned",
			zap.String("organization_id", organizationID),
			zap.String("incident_id", result.ID),
			zap.String("assignee_id", *result.AssigneeID))
		publishEvent(ctx, s.dispatcher, s.reporter, s.now(), events.Event{
			Type:           events.EventIncidentAssigned,
			OrganizationID: organizationID,
			IncidentID:     result.ID,
			TicketNumber:   result.TicketNumber,
			Payload: events.IncidentAssignedPayload{
				AssigneeID: *result.AssigneeID,
				TeamID:     result.TeamID,
			},
		})
	}
	return result, nil
}

func selectIndex(key string, length int) int {
	if length == 0 {
		return 0
	}
	sum := 0
	for _, ch := range key {
		sum += int(ch)
	}
	return sum % length
}
