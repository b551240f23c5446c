package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/duplicate"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

// DuplicateTag marks incidents cancelled by a merge.
const DuplicateTag = "duplicate"

// DuplicateService finds and merges duplicate incidents.
type DuplicateService struct {
	store        repository.Store
	dispatcher   events.Dispatcher
	reporter     SideEffectReporter
	logger       *zap.Logger
	window       int
	defaultLimit int
	maxLimit     int
	now          func() time.Time
}

// DuplicateDependencies bundles collaborators.
type DuplicateDependencies struct {
	Store        repository.Store
	Dispatcher   events.Dispatcher
	Reporter     SideEffectReporter
	Logger       *zap.Logger
	Window       int
	DefaultLimit int
	MaxLimit     int
	Now          func() time.Time
}

// NewDuplicateService creates the service.
func NewDuplicateService(deps DuplicateDependencies) *DuplicateService {
	svc := &DuplicateService{
		store:        deps.Store,
		dispatcher:   deps.Dispatcher,
		reporter:     deps.Reporter,
		logger:       deps.Logger,
		window:       deps.Window,
		defaultLimit: deps.DefaultLimit,
		maxLimit:     deps.MaxLimit,
		now:          deps.Now,
	}
	if svc.window <= 0 {
		svc.window = 80
	}
	if svc.defaultLimit <= 0 {
		svc.defaultLimit = 5
	}
	if svc.maxLimit <= 0 {
		svc.maxLimit = 20
	}
	if svc.logger == nil {
		svc.logger = zap.NewNop()
	}
	if svc.now == nil {
		svc.now = time.Now
	}
	return svc
}

// DuplicateResult is the target incident with ranked candidates.
type DuplicateResult struct {
	Target     *domain.Incident
	Duplicates []duplicate.Candidate
}

// FindPotentialDuplicates ranks recent open incidents of the tenant by
// similarity to the target.
func (s *DuplicateService) FindPotentialDuplicates(ctx context.Context, organizationID, incidentID string, limit int) (*DuplicateResult, error) {
	if limit <= 0 {
		limit = s.defaultLimit
	}
	if limit > s.maxLimit {
		limit = s.maxLimit
	}

	repos := s.store.Repos()
	target, err := repos.Incidents.GetByID(ctx, organizationID, incidentID)
	if err != nil {
		return nil, toServiceError(err, incidentID)
	}
	pool, err := repos.Incidents.ListRecentOpen(ctx, organizationID, s.window)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return &DuplicateResult{
		Target:     target,
		Duplicates: duplicate.FindCandidates(target, pool, limit),
	}, nil
}

// MergeResult reports a completed merge.
type MergeResult struct {
	Data              *domain.Incident
	MergedCount       int
	MergedIncidentIDs []string
}

// MergeIncidents cancels every source as a duplicate of the target. Either
// all sources are merged or nothing changes.
func (s *DuplicateService) MergeIncidents(ctx context.Context, organizationID, actorID, targetID string, sourceIDs []string, reason string) (*MergeResult, error) {
	targetID = strings.TrimSpace(targetID)
	sources := dedupeIDs(sourceIDs)
	if len(sources) == 0 {
		return nil, apperrors.NewValidationError("sourceIds must not be empty", map[string]any{"field": "sourceIds"})
	}
	for _, id := range sources {
		if id == targetID {
			return nil, apperrors.NewValidationError("target cannot be merged into itself", map[string]any{"incidentId": targetID})
		}
	}
	reason = strings.TrimSpace(reason)

	var target *domain.Incident
	err := s.store.WithinTx(ctx, func(ctx context.Context, repos repository.Repositories) error {
		lockOrder := append([]string{targetID}, sources...)
		sort.Strings(lockOrder)
		locked := make(map[string]*domain.Incident, len(lockOrder))
		for _, id := range lockOrder {
			incident, err := repos.Incidents.GetForUpdate(ctx, organizationID, id)
			if err != nil {
				return mergeLookupError(err, id)
			}
			locked[id] = incident
		}

		target = locked[targetID]
		if target.Status.IsTerminal() {
			return apperrors.NewIllegalTransition("target not eligible for merge", map[string]any{
				"incidentId": targetID,
				"status":     string(target.Status),
			})
		}
		for _, id := range sources {
			if source := locked[id]; source.Status.IsTerminal() {
				return apperrors.NewIllegalTransition("source incident already closed", map[string]any{
					"incidentId": id,
					"status":     string(source.Status),
				})
			}
		}

		now := s.now()
		for _, id := range sources {
			source := locked[id]
			previous := string(source.Status)
			source.Status = domain.IncidentStatusCancelled
			stamp := now
			source.ClosedAt = &stamp
			source.AddTag(DuplicateTag)
			source.ClearHold()
			source.UpdatedAt = now
			if err := repos.Incidents.Update(ctx, source); err != nil {
				return err
			}
			cancelled := string(domain.IncidentStatusCancelled)
			if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
				IncidentID:    source.ID,
				Action:        domain.TimelineActionMergedInto,
				PreviousValue: &previous,
				NewValue:      &cancelled,
				ActorID:       actorPtr(actorID),
				Metadata: domain.Metadata{
					"targetId":           target.ID,
					"targetTicketNumber": target.TicketNumber,
					"reason":             reason,
				}.Compact(),
				CreatedAt: now,
			}); err != nil {
				return err
			}
		}

		metadata := domain.Metadata{
			"sourceIds":   append([]string(nil), sources...),
			"mergedCount": len(sources),
			"reason":      reason,
		}.Compact()
		if err := repos.Timeline.Create(ctx, &domain.TimelineEntry{
			IncidentID: target.ID,
			Action:     domain.TimelineActionMergedFrom,
			ActorID:    actorPtr(actorID),
			Metadata:   metadata,
			CreatedAt:  now,
		}); err != nil {
			return err
		}
		return repos.Audit.Create(ctx, &domain.AuditLog{
			OrganizationID: organizationID,
			ActorID:        actorPtr(actorID),
			Action:         "incident.merged",
			EntityType:     entityIncident,
			EntityID:       target.ID,
			Metadata:       metadata,
			CreatedAt:      now,
		})
	})
	if err != nil {
		return nil, toServiceError(err, targetID)
	}

	s.logger.Info("incidents merged",
		zap.String("organization_id", organizationID),
		zap.String("incident_id", target.ID),
		zap.Strings("source_ids", sources))
	publishEvent(ctx, s.dispatcher, s.reporter, s.now(), events.Event{
		Type:           events.EventIncidentsMerged,
		OrganizationID: organizationID,
		IncidentID:     target.ID,
		TicketNumber:   target.TicketNumber,
		ActorID:        actorPtr(actorID),
		Payload:        events.IncidentsMergedPayload{SourceIDs: sources, Reason: reason},
	})

	return &MergeResult{
		Data:              target,
		MergedCount:       len(sources),
		MergedIncidentIDs: sources,
	}, nil
}

func mergeLookupError(err error, incidentID string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return apperrors.NewNotFound("incident", map[string]any{"incidentId": incidentID})
	}
	return err
}

func dedupeIDs(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
