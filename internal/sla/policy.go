package sla

import (
	"context"
	"time"

	"github.com/spec-kit/incident-service/internal/domain"
)

// PolicyLookup finds the active policy for a tenant and priority. A nil policy
// with a nil error means none is configured.
type PolicyLookup interface {
	GetActive(ctx context.Context, organizationID string, priority domain.Priority) (*domain.SLAPolicy, error)
}

// Targets are response/resolution durations in minutes.
type Targets struct {
	ResponseMinutes   int
	ResolutionMinutes int
	BusinessHoursOnly bool
}

var defaultTargets = map[domain.Priority]Targets{
	domain.PriorityCritical: {ResponseMinutes: 15, ResolutionMinutes: 240, BusinessHoursOnly: true},
	domain.PriorityHigh:     {ResponseMinutes: 30, ResolutionMinutes: 480, BusinessHoursOnly: true},
	domain.PriorityMedium:   {ResponseMinutes: 120, ResolutionMinutes: 1440, BusinessHoursOnly: true},
	domain.PriorityLow:      {ResponseMinutes: 480, ResolutionMinutes: 10080, BusinessHoursOnly: true},
}

// DefaultTargets returns the fallback targets used when a tenant has no policy.
func DefaultTargets(priority domain.Priority) Targets {
	if t, ok := defaultTargets[priority]; ok {
		return t
	}
	return defaultTargets[domain.PriorityMedium]
}

// Deadlines are the resolved due instants for a new incident.
type Deadlines struct {
	ResponseDue   time.Time
	ResolutionDue time.Time
	PolicyID      *string
}

// ResolveIncidentSLA computes deadlines from the tenant's active policy for the
// priority, falling back to the default table.
func ResolveIncidentSLA(ctx context.Context, lookup PolicyLookup, organizationID string, priority domain.Priority, createdAt time.Time, cal Calendar) (Deadlines, error) {
	targets := DefaultTargets(priority)
	var policyID *string
	if lookup != nil {
		policy, err := lookup.GetActive(ctx, organizationID, priority)
		if err != nil {
			return Deadlines{}, err
		}
		if policy != nil {
			targets = Targets{
				ResponseMinutes:   policy.ResponseMinutes,
				ResolutionMinutes: policy.ResolutionMinutes,
				BusinessHoursOnly: policy.BusinessHoursOnly,
			}
			id := policy.ID
			policyID = &id
		}
	}
	return Deadlines{
		ResponseDue:   CalculateDeadline(createdAt, targets.ResponseMinutes, targets.BusinessHoursOnly, cal),
		ResolutionDue: CalculateDeadline(createdAt, targets.ResolutionMinutes, targets.BusinessHoursOnly, cal),
		PolicyID:      policyID,
	}, nil
}

// Measurement is the live state of one SLA target.
type Measurement struct {
	Due    *time.Time
	Status Status
}

// Snapshot summarizes an incident's SLA position at a given instant.
type Snapshot struct {
	Response      Measurement
	Resolution    Measurement
	PausedMinutes int
	// ElapsedBusinessMinutes runs from creation to resolution, closure or now.
	ElapsedBusinessMinutes int
}

// Evaluate builds a Snapshot for inc at now against cal.
func Evaluate(inc *domain.Incident, now time.Time, cal Calendar) Snapshot {
	snap := Snapshot{PausedMinutes: inc.SLATotalPausedMins}
	if !inc.CreatedAt.IsZero() {
		end := now
		switch {
		case inc.ResolvedAt != nil:
			end = *inc.ResolvedAt
		case inc.ClosedAt != nil:
			end = *inc.ClosedAt
		}
		snap.ElapsedBusinessMinutes = ElapsedBusinessMinutes(inc.CreatedAt, end, cal)
	}
	if inc.SLAPausedAt != nil {
		snap.PausedMinutes += DiffMinutes(*inc.SLAPausedAt, now)
	}

	snap.Response = Measurement{Due: inc.SLAResponseDue, Status: StatusNone}
	switch {
	case inc.SLAResponseAt != nil && inc.SLAResponseMet != nil && !*inc.SLAResponseMet:
		snap.Response.Status = StatusBreached
	case inc.SLAResponseAt != nil:
		snap.Response.Status = StatusMet
	case inc.SLAResponseDue != nil && inc.SLAPausedAt != nil:
		snap.Response.Status = StatusPaused
	case inc.SLAResponseDue != nil:
		snap.Response.Status = Classify(*inc.SLAResponseDue, now)
	}

	snap.Resolution = Measurement{Due: inc.SLAResolutionDue, Status: StatusNone}
	switch {
	case inc.ResolvedAt != nil && inc.SLAResolutionMet != nil && !*inc.SLAResolutionMet:
		snap.Resolution.Status = StatusBreached
	case inc.ResolvedAt != nil:
		snap.Resolution.Status = StatusMet
	case inc.Status == domain.IncidentStatusCancelled:
		snap.Resolution.Status = StatusNone
	case inc.SLAResolutionDue != nil && inc.SLAPausedAt != nil:
		snap.Resolution.Status = StatusPaused
	case inc.SLAResolutionDue != nil:
		snap.Resolution.Status = Classify(*inc.SLAResolutionDue, now)
	}
	return snap
}
