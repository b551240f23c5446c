package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/repository"
	"github.com/spec-kit/incident-service/internal/sla"
	apperrors "github.com/spec-kit/incident-service/pkg/util/errorutil"
)

func fullDetails() TransitionDetails {
	return TransitionDetails{
		Reason:            "customer request",
		PendingReason:     "waiting on vendor",
		ResolutionSummary: "restarted service",
		ClosureCode:       "solved",
	}
}

func TestCreateIncidentDerivesPriorityAndDeadlines(t *testing.T) {
	f := newFixture(t)
	res, err := f.incidents.CreateIncident(context.Background(), testOrg, "reporter-1", CreateIncidentInput{
		Title:   "  Email outage ",
		Impact:  "medium",
		Urgency: "critical",
		Tags:    []string{"email"},
	})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	inc := res.Incident
	assert.Equal(t, "Email outage", inc.Title)
	assert.Equal(t, "INC-000001", inc.TicketNumber)
	assert.Equal(t, domain.PriorityHigh, inc.Priority)
	assert.Equal(t, domain.IncidentStatusNew, inc.Status)
	require.NotNil(t, inc.Impact)
	assert.Equal(t, domain.PriorityMedium, *inc.Impact)

	// high: 30 business minutes to respond, 480 to resolve (420 today, 60 Tuesday).
	assert.Equal(t, testStart.Add(30*time.Minute), *inc.SLAResponseDue)
	assert.Equal(t, time.Date(2024, time.March, 5, 10, 0, 0, 0, time.UTC), *inc.SLAResolutionDue)

	timeline := f.store.Timeline(inc.ID)
	require.Len(t, timeline, 1)
	assert.Equal(t, domain.TimelineActionCreated, timeline[0].Action)
	assert.Equal(t, "INC-000001", timeline[0].Metadata["ticketNumber"])
	assert.Len(t, f.store.AuditLogs(), 1)

	second := f.create(t, CreateIncidentInput{Title: "Second"})
	assert.Equal(t, "INC-000002", second.TicketNumber)
}

func TestCreateIncidentPrioritySources(t *testing.T) {
	f := newFixture(t)

	assert.Equal(t, domain.PriorityMedium, f.create(t, CreateIncidentInput{Title: "no hints"}).Priority)
	assert.Equal(t, domain.PriorityLow, f.create(t, CreateIncidentInput{Title: "explicit", Priority: "LOW"}).Priority)
	assert.Equal(t, domain.PriorityMedium, f.create(t, CreateIncidentInput{Title: "unknown impact", Impact: "huge", Urgency: "high"}).Priority)
	assert.Equal(t, domain.PriorityCritical, f.create(t, CreateIncidentInput{
		Title: "matrix wins", Impact: "critical", Urgency: "high", Priority: "low",
	}).Priority)

	_, err := f.incidents.CreateIncident(context.Background(), testOrg, "r", CreateIncidentInput{Title: "bad", Priority: "urgent"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = f.incidents.CreateIncident(context.Background(), testOrg, "r", CreateIncidentInput{Title: "   "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestCreateIncidentUsesTenantPolicy(t *testing.T) {
	f := newFixture(t)
	f.store.AddPolicy(domain.SLAPolicy{
		OrganizationID:    testOrg,
		Priority:          domain.PriorityHigh,
		ResponseMinutes:   60,
		ResolutionMinutes: 600,
		BusinessHoursOnly: false,
		IsActive:          true,
	})

	inc := f.create(t, CreateIncidentInput{Title: "policy", Priority: "high"})
	assert.Equal(t, testStart.Add(time.Hour), *inc.SLAResponseDue)
	assert.Equal(t, testStart.Add(10*time.Hour), *inc.SLAResolutionDue)
}

func TestCreateIncidentUsesTenantCalendar(t *testing.T) {
	f := newFixture(t)
	calendars := sla.NewCalendarSet(sla.DefaultCalendar())
	calendars.Set(testOrg, sla.Calendar{StartHour: 10, EndHour: 11, WorkDays: []time.Weekday{time.Monday, time.Tuesday}, Location: time.UTC})
	f.incidents.calendars = calendars

	inc := f.create(t, CreateIncidentInput{Title: "short days", Priority: "critical"})
	assert.Equal(t, testStart.Add(15*time.Minute), *inc.SLAResponseDue)
	// 240 minutes at one hour per day, Monday and Tuesday only.
	assert.Equal(t, time.Date(2024, time.March, 12, 11, 0, 0, 0, time.UTC), *inc.SLAResolutionDue)
}

func TestCreateIncidentRejectsUnknownOwners(t *testing.T) {
	f := newFixture(t)
	_, err := f.incidents.CreateIncident(context.Background(), testOrg, "r", CreateIncidentInput{Title: "x", AssigneeID: strPtr("ghost")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.incidents.CreateIncident(context.Background(), "org-2", "r", CreateIncidentInput{Title: "x", TeamID: strPtr(f.team.ID)})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestEndToEndScenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	inc := f.create(t, CreateIncidentInput{Title: "VPN down", Impact: "medium", Urgency: "critical"})
	assert.Equal(t, domain.PriorityHigh, inc.Priority)
	assert.Equal(t, domain.IncidentStatusNew, inc.Status)

	_, err := f.incidents.Transition(ctx, testOrg, inc.ID, "agent-1", "resolved", TransitionDetails{ResolutionSummary: "fixed"})
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))
	assert.Equal(t, domain.IncidentStatusNew, f.store.Incident(inc.ID).Status)

	f.clock.Advance(5 * time.Minute)
	updated, err := f.incidents.Transition(ctx, testOrg, inc.ID, "agent-1", "assigned", TransitionDetails{AssigneeID: strPtr(f.agent.ID)})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusAssigned, updated.Status)
	require.NotNil(t, updated.SLAResponseAt)
	assert.Equal(t, testStart.Add(5*time.Minute), *updated.SLAResponseAt)
	require.NotNil(t, updated.SLAResponseMet)
	assert.True(t, *updated.SLAResponseMet)
	assert.Equal(t, f.agent.ID, *updated.AssigneeID)
	assert.Equal(t, int64(1), f.metrics.Snapshot().Transitions["new->assigned"])
}

func TestTransitionToSameStatusIsNoop(t *testing.T) {
	for _, status := range domain.AllIncidentStatuses {
		t.Run(string(status), func(t *testing.T) {
			f := newFixture(t)
			seeded := f.seed(status)

			got, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", string(status), TransitionDetails{})
			require.NoError(t, err)
			assert.Equal(t, seeded, got)
			assert.Equal(t, seeded, f.store.Incident(seeded.ID))
			assert.Empty(t, f.store.Timeline(seeded.ID))
			assert.Empty(t, f.store.AuditLogs())
		})
	}
}

func TestIllegalTransitionsLeaveStateUnchanged(t *testing.T) {
	for _, from := range domain.AllIncidentStatuses {
		for _, to := range domain.AllIncidentStatuses {
			if from == to || IsValidTransition(from, to) {
				continue
			}
			t.Run(string(from)+"->"+string(to), func(t *testing.T) {
				f := newFixture(t)
				seeded := f.seed(from)

				_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", string(to), fullDetails())
				require.Error(t, err)
				assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))
				assert.Equal(t, seeded, f.store.Incident(seeded.ID))
				assert.Empty(t, f.store.Timeline(seeded.ID))
			})
		}
	}
}

func TestTerminalStatesHaveNoExits(t *testing.T) {
	assert.Empty(t, AllowedTransitions(domain.IncidentStatusClosed))
	assert.Empty(t, AllowedTransitions(domain.IncidentStatusCancelled))
	assert.ElementsMatch(t, []domain.IncidentStatus{domain.IncidentStatusClosed, domain.IncidentStatusInProgress},
		AllowedTransitions(domain.IncidentStatusResolved))
}

func TestTransitionRejectsUnknownStatus(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusNew)

	_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "bogus", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidState))

	got, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "open", TransitionDetails{})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusAssigned, got.Status)
}

func TestTransitionUnknownIncident(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusNew)

	_, err := f.incidents.Transition(context.Background(), "org-2", seeded.ID, "agent-1", "assigned", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestOwnerGate(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seed(domain.IncidentStatusNew, func(i *domain.Incident) { i.AssigneeID = nil })

	_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))

	_, err = f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{TeamID: strPtr("missing")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	_, err = f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "escalated", TransitionDetails{AssigneeID: strPtr("ghost")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	assert.Equal(t, seeded, f.store.Incident(seeded.ID))

	got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "escalated", TransitionDetails{TeamID: strPtr(f.team.ID)})
	require.NoError(t, err)
	assert.Equal(t, domain.IncidentStatusEscalated, got.Status)
	assert.Equal(t, f.team.ID, *got.TeamID)
	assert.Nil(t, got.AssigneeID)
}

func TestPendingGateAndPause(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seed(domain.IncidentStatusAssigned)

	_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "pending", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))

	until := testStart.Add(24 * time.Hour)
	got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "pending", TransitionDetails{
		PendingReason: "waiting on vendor",
		OnHoldUntil:   &until,
	})
	require.NoError(t, err)
	require.NotNil(t, got.SLAPausedAt)
	assert.Equal(t, testStart, *got.SLAPausedAt)
	assert.Equal(t, "waiting on vendor", *got.OnHoldReason)
	assert.Equal(t, until, *got.OnHoldUntil)
}

func TestLeavingPendingShiftsUnmetDeadlines(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seed(domain.IncidentStatusAssigned)
	responseDue, resolutionDue := *seeded.SLAResponseDue, *seeded.SLAResolutionDue

	_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "pending", TransitionDetails{PendingReason: "user away"})
	require.NoError(t, err)

	const m = 45
	f.clock.Advance(m * time.Minute)
	got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{})
	require.NoError(t, err)

	assert.Equal(t, responseDue.Add(m*time.Minute), *got.SLAResponseDue)
	assert.Equal(t, resolutionDue.Add(m*time.Minute), *got.SLAResolutionDue)
	assert.Equal(t, m, got.SLATotalPausedMins)
	assert.Nil(t, got.SLAPausedAt)
	assert.Nil(t, got.OnHoldReason)
	assert.Nil(t, got.OnHoldUntil)
	// Response is stamped after the shift.
	require.NotNil(t, got.SLAResponseMet)
	assert.True(t, *got.SLAResponseMet)

	timeline := f.store.Timeline(seeded.ID)
	require.Len(t, timeline, 2)
	assert.Equal(t, m, timeline[1].Metadata["pausedMinutes"])
}

func TestPauseAfterResponseShiftsOnlyResolution(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.create(t, CreateIncidentInput{Title: "VPN down", Priority: "high"})
	responseDue, resolutionDue := *inc.SLAResponseDue, *inc.SLAResolutionDue

	f.clock.Advance(5 * time.Minute)
	assigned, err := f.incidents.Transition(ctx, testOrg, inc.ID, "agent-1", "assigned", TransitionDetails{AssigneeID: strPtr(f.agent.ID)})
	require.NoError(t, err)
	require.NotNil(t, assigned.SLAResponseAt)
	respondedAt := *assigned.SLAResponseAt

	f.clock.Advance(5 * time.Minute)
	_, err = f.incidents.Transition(ctx, testOrg, inc.ID, "agent-1", "pending", TransitionDetails{PendingReason: "user away"})
	require.NoError(t, err)

	f.clock.Advance(45 * time.Minute)
	got, err := f.incidents.Transition(ctx, testOrg, inc.ID, "agent-1", "in_progress", TransitionDetails{})
	require.NoError(t, err)

	assert.Equal(t, responseDue, *got.SLAResponseDue)
	assert.Equal(t, respondedAt, *got.SLAResponseAt)
	require.NotNil(t, got.SLAResponseMet)
	assert.True(t, *got.SLAResponseMet)
	assert.Equal(t, resolutionDue.Add(45*time.Minute), *got.SLAResolutionDue)
	assert.Equal(t, 45, got.SLATotalPausedMins)
}

func TestLeavingPendingRoundsUpAndSkipsMetDeadlines(t *testing.T) {
	f := newFixture(t)
	respondedAt := testStart.Add(-20 * time.Minute)
	seeded := f.seed(domain.IncidentStatusPending, func(i *domain.Incident) {
		i.SLAResponseAt = &respondedAt
		i.SLAResponseMet = boolPtr(true)
		i.SLAPausedAt = timePtr(testStart.Add(-90 * time.Second))
		i.SLATotalPausedMins = 5
		i.OnHoldReason = strPtr("parts")
	})

	got, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "resolved", TransitionDetails{ResolutionSummary: "replaced part"})
	require.NoError(t, err)
	assert.Equal(t, 7, got.SLATotalPausedMins)
	assert.Equal(t, *seeded.SLAResponseDue, *got.SLAResponseDue)
	assert.Equal(t, seeded.SLAResolutionDue.Add(2*time.Minute), *got.SLAResolutionDue)
	assert.Equal(t, respondedAt, *got.SLAResponseAt)
}

func TestResolveGates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	seeded := f.seed(domain.IncidentStatusInProgress)
	task := f.store.AddTask(domain.WorkflowTask{OrganizationID: testOrg, IncidentID: seeded.ID, Title: "Approve", Status: domain.WorkflowTaskInProgress})

	_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "resolved", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))

	_, err = f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "resolved", TransitionDetails{ResolutionSummary: "done"})
	require.Error(t, err)
	assert.Equal(t, "workflow tasks must complete first", apperrors.ToDomainError(err).Message)
	assert.Equal(t, seeded, f.store.Incident(seeded.ID))

	task.Status = domain.WorkflowTaskCompleted
	f.store.AddTask(task)
	got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "resolved", TransitionDetails{ResolutionSummary: "done"})
	require.NoError(t, err)
	assert.Equal(t, testStart, *got.ResolvedAt)
	assert.True(t, *got.SLAResolutionMet)
	assert.Equal(t, "done", *got.ResolutionSummary)
}

func TestResolveAfterDeadlineIsNotMet(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusInProgress)
	f.clock.Advance(9 * time.Hour)

	got, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "resolved", TransitionDetails{ResolutionSummary: "late"})
	require.NoError(t, err)
	assert.False(t, *got.SLAResolutionMet)
}

func TestCloseCancelAndReopen(t *testing.T) {
	ctx := context.Background()

	t.Run("close requires closure code", func(t *testing.T) {
		f := newFixture(t)
		seeded := f.seed(domain.IncidentStatusResolved, func(i *domain.Incident) { i.ResolvedAt = timePtr(testStart) })
		_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "closed", TransitionDetails{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))

		got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "closed", TransitionDetails{ClosureCode: "solved"})
		require.NoError(t, err)
		assert.Equal(t, testStart, *got.ClosedAt)
		assert.Equal(t, "solved", *got.ClosureCode)
	})

	t.Run("cancel requires reason", func(t *testing.T) {
		f := newFixture(t)
		seeded := f.seed(domain.IncidentStatusNew)
		_, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "cancelled", TransitionDetails{})
		assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))

		got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "cancelled", TransitionDetails{Reason: "raised twice"})
		require.NoError(t, err)
		assert.Equal(t, testStart, *got.ClosedAt)
	})

	t.Run("cancel from pending clears hold", func(t *testing.T) {
		f := newFixture(t)
		seeded := f.seed(domain.IncidentStatusPending, func(i *domain.Incident) {
			i.SLAPausedAt = timePtr(testStart.Add(-10 * time.Minute))
			i.OnHoldReason = strPtr("waiting")
		})
		got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "cancelled", TransitionDetails{Reason: "obsolete"})
		require.NoError(t, err)
		assert.Nil(t, got.SLAPausedAt)
		assert.Nil(t, got.OnHoldReason)
		assert.Equal(t, 10, got.SLATotalPausedMins)
	})

	t.Run("reopen clears resolution", func(t *testing.T) {
		f := newFixture(t)
		seeded := f.seed(domain.IncidentStatusResolved, func(i *domain.Incident) {
			i.ResolvedAt = timePtr(testStart.Add(-time.Hour))
			i.SLAResolutionMet = boolPtr(true)
		})
		got, err := f.incidents.Transition(ctx, testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{Reason: "still broken"})
		require.NoError(t, err)
		assert.Nil(t, got.ResolvedAt)
		assert.Nil(t, got.ClosedAt)
		assert.Nil(t, got.SLAResolutionMet)
	})
}

func TestTransitionWritesTimelineAndAudit(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusAssigned)

	_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "pending", TransitionDetails{
		PendingReason: "waiting on vendor",
		Metadata:      domain.Metadata{"vendorTicket": "VEN-1", "empty": "", "from": "spoofed"},
	})
	require.NoError(t, err)

	timeline := f.store.Timeline(seeded.ID)
	require.Len(t, timeline, 1)
	entry := timeline[0]
	assert.Equal(t, domain.TimelineActionStatusChanged, entry.Action)
	assert.Equal(t, "assigned", *entry.PreviousValue)
	assert.Equal(t, "pending", *entry.NewValue)
	assert.Equal(t, "agent-1", *entry.ActorID)
	assert.Equal(t, domain.Metadata{
		"from":          "assigned",
		"to":            "pending",
		"pendingReason": "waiting on vendor",
		"vendorTicket":  "VEN-1",
	}, entry.Metadata)

	audit := f.store.AuditLogs()
	require.Len(t, audit, 1)
	assert.Equal(t, "incident.status_changed", audit[0].Action)
	assert.Equal(t, seeded.ID, audit[0].EntityID)
	assert.Equal(t, entry.Metadata, audit[0].Metadata)
}

func TestTransitionRejectsNonScalarMetadata(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusAssigned)

	_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{
		Metadata: domain.Metadata{
			"status": "hijack",
			"nested": map[string]any{"deep": []any{1, map[string]any{"x": nil}}},
		},
	})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeValidation, domainErr.Code)
	assert.Equal(t, []string{"nested"}, domainErr.Details["keys"])

	assert.Equal(t, domain.IncidentStatusAssigned, f.store.Incident(seeded.ID).Status)
	assert.Empty(t, f.store.Timeline(seeded.ID))
	assert.Empty(t, f.store.AuditLogs())
}

func TestStorageFailureRollsBackTransition(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusAssigned)
	f.store.FailOn("audit.create", errors.New("disk full"))

	_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{})
	require.Error(t, err)
	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, apperrors.CodeInternal, domainErr.Code)
	assert.NotContains(t, domainErr.Message, "disk full")

	assert.Equal(t, seeded, f.store.Incident(seeded.ID))
	assert.Empty(t, f.store.Timeline(seeded.ID))
}

func TestVersionConflictSurfacesAsConflict(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusAssigned)
	f.store.FailOn("incidents.update", repository.ErrVersionConflict)

	_, err := f.incidents.Transition(context.Background(), testOrg, seeded.ID, "agent-1", "in_progress", TransitionDetails{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestPublishFailureIsReportedNotFatal(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.Subscribe(events.EventAny, func(context.Context, events.Event) error {
		return errors.New("feed offline")
	})

	res, err := f.incidents.CreateIncident(context.Background(), testOrg, "reporter-1", CreateIncidentInput{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, []string{"activity.publish failed"}, res.Warnings)

	_, err = f.incidents.Transition(context.Background(), testOrg, res.Incident.ID, "agent-1", "cancelled", TransitionDetails{Reason: "dup"})
	require.NoError(t, err)
	assert.Equal(t, []string{OpActivityPublish, OpActivityPublish}, f.reporter.operations())
}

func TestCreateWithAssigneeStartsNew(t *testing.T) {
	f := newFixture(t)
	inc := f.create(t, CreateIncidentInput{Title: "Laptop broken", AssigneeID: strPtr(f.agent.ID)})

	assert.Equal(t, domain.IncidentStatusNew, inc.Status)
	assert.Equal(t, f.agent.ID, *inc.AssigneeID)
	assert.Nil(t, inc.SLAResponseAt)
}

func TestCreateAutoAssignsTeamMember(t *testing.T) {
	f := newFixture(t)
	first := f.store.AddStaff(domain.StaffMember{ID: "m-1", OrganizationID: testOrg, TeamID: strPtr(f.team.ID), Active: true, CreatedAt: testStart.Add(-2 * time.Hour)})
	second := f.store.AddStaff(domain.StaffMember{ID: "m-2", OrganizationID: testOrg, TeamID: strPtr(f.team.ID), Active: true, CreatedAt: testStart.Add(-time.Hour)})
	f.store.AddStaff(domain.StaffMember{ID: "m-3", OrganizationID: testOrg, TeamID: strPtr(f.team.ID), Active: false})

	res, err := f.incidents.CreateIncident(context.Background(), testOrg, "reporter-1", CreateIncidentInput{Title: "printer", TeamID: strPtr(f.team.ID)})
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)

	members := []domain.StaffMember{first, second}
	expected := members[selectIndex(res.Incident.ID, len(members))].ID
	require.NotNil(t, res.Incident.AssigneeID)
	assert.Equal(t, expected, *res.Incident.AssigneeID)
	assert.Equal(t, domain.IncidentStatusNew, res.Incident.Status)

	timeline := f.store.Timeline(res.Incident.ID)
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.TimelineActionAutoAssigned, timeline[1].Action)
}

func TestCreateSurvivesAutoAssignFailure(t *testing.T) {
	f := newFixture(t)

	res, err := f.incidents.CreateIncident(context.Background(), testOrg, "reporter-1", CreateIncidentInput{Title: "printer", TeamID: strPtr(f.team.ID)})
	require.NoError(t, err)
	assert.Equal(t, []string{"workflow.auto_assign failed"}, res.Warnings)
	assert.Equal(t, []string{OpAutoAssign}, f.reporter.operations())
	assert.Nil(t, res.Incident.AssigneeID)
	assert.NotNil(t, f.store.Incident(res.Incident.ID))
}

func TestUpdateIncident(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.create(t, CreateIncidentInput{Title: "Slow laptop", Priority: "low"})
	dueBefore := *inc.SLAResolutionDue

	got, err := f.incidents.UpdateIncident(ctx, testOrg, inc.ID, "agent-1", UpdateIncidentInput{
		Title:   strPtr("Laptop will not boot"),
		Impact:  strPtr("high"),
		Urgency: strPtr("critical"),
		Tags:    []string{"hardware"},
	})
	require.NoError(t, err)
	assert.Equal(t, "Laptop will not boot", got.Title)
	assert.Equal(t, domain.PriorityCritical, got.Priority)
	assert.Equal(t, []string{"hardware"}, got.Tags)
	assert.Equal(t, dueBefore, *got.SLAResolutionDue)
	assert.Equal(t, domain.IncidentStatusNew, got.Status)

	timeline := f.store.Timeline(inc.ID)
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.TimelineActionUpdated, timeline[1].Action)
	assert.Equal(t, "low", timeline[1].Metadata["previousPriority"])
	assert.Equal(t, []string{"title", "impact", "urgency", "priority", "tags"}, timeline[1].Metadata["fields"])

	unchanged, err := f.incidents.UpdateIncident(ctx, testOrg, inc.ID, "agent-1", UpdateIncidentInput{Title: strPtr("Laptop will not boot")})
	require.NoError(t, err)
	assert.Equal(t, got.Version, unchanged.Version)
	assert.Len(t, f.store.Timeline(inc.ID), 2)

	_, err = f.incidents.UpdateIncident(ctx, testOrg, inc.ID, "agent-1", UpdateIncidentInput{Title: strPtr(" ")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.incidents.UpdateIncident(ctx, testOrg, inc.ID, "agent-1", UpdateIncidentInput{Priority: strPtr("p1")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestUpdateTerminalIncidentFails(t *testing.T) {
	f := newFixture(t)
	seeded := f.seed(domain.IncidentStatusClosed)

	_, err := f.incidents.UpdateIncident(context.Background(), testOrg, seeded.ID, "agent-1", UpdateIncidentInput{Title: strPtr("new")})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeIllegalTransition))
}

func TestGetIncidentReportsSLA(t *testing.T) {
	f := newFixture(t)
	inc := f.create(t, CreateIncidentInput{Title: "x", Priority: "high"})

	view, err := f.incidents.GetIncident(context.Background(), testOrg, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusOnTrack, view.SLA.Response.Status)

	f.clock.Advance(10 * time.Minute)
	view, err = f.incidents.GetIncident(context.Background(), testOrg, inc.ID)
	require.NoError(t, err)
	assert.Equal(t, sla.StatusAtRisk, view.SLA.Response.Status)
	assert.Equal(t, 10, view.SLA.ElapsedBusinessMinutes)

	_, err = f.incidents.GetIncident(context.Background(), "org-2", inc.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
	_, err = f.incidents.ListTimeline(context.Background(), "org-2", inc.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	entries, err := f.incidents.ListTimeline(context.Background(), testOrg, inc.ID)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestAddComment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	inc := f.create(t, CreateIncidentInput{Title: "x"})

	res, err := f.incidents.AddComment(ctx, testOrg, inc.ID, "agent-1", "  Rebooted the router ", true)
	require.NoError(t, err)
	assert.Empty(t, res.Warnings)
	assert.Equal(t, "Rebooted the router", res.Comment.Content)
	assert.True(t, res.Comment.IsInternal)

	timeline := f.store.Timeline(inc.ID)
	require.Len(t, timeline, 2)
	assert.Equal(t, domain.TimelineActionCommented, timeline[1].Action)
	assert.Equal(t, res.Comment.ID, timeline[1].Metadata["commentId"])

	_, err = f.incidents.AddComment(ctx, testOrg, inc.ID, "agent-1", " ", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = f.incidents.AddComment(ctx, "org-2", inc.ID, "agent-1", "hi", false)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}

func TestAddCommentAuditFailureIsReported(t *testing.T) {
	f := newFixture(t)
	inc := f.create(t, CreateIncidentInput{Title: "x"})
	f.store.FailOn("audit.create", errors.New("audit store down"))

	res, err := f.incidents.AddComment(context.Background(), testOrg, inc.ID, "agent-1", "hello", false)
	require.NoError(t, err)
	assert.Equal(t, []string{"audit.comment failed"}, res.Warnings)
	assert.Equal(t, []string{OpCommentAudit}, f.reporter.operations())
	assert.Len(t, f.store.Comments(), 1)
}

func boolPtr(v bool) *bool { return &v }
