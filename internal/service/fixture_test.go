package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/events"
	"github.com/spec-kit/incident-service/internal/observability"
	"github.com/spec-kit/incident-service/internal/repository/memory"
	"github.com/spec-kit/incident-service/internal/sequence"
)

const testOrg = "org-1"

// Monday 2024-03-04 10:00 UTC, inside the default business window.
var testStart = time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type recordingReporter struct {
	mu       sync.Mutex
	failures []SideEffectFailure
}

func (r *recordingReporter) Report(_ context.Context, failure SideEffectFailure) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.failures = append(r.failures, failure)
}

func (r *recordingReporter) operations() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	ops := make([]string, len(r.failures))
	for i, f := range r.failures {
		ops[i] = f.Operation
	}
	return ops
}

type fixture struct {
	store      *memory.Store
	clock      *fakeClock
	reporter   *recordingReporter
	dispatcher events.Dispatcher
	metrics    *observability.Metrics
	incidents  *IncidentService
	duplicates *DuplicateService
	assignment *AssignmentService
	agent      domain.StaffMember
	team       domain.Team
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		store:      memory.NewStore(),
		clock:      &fakeClock{now: testStart},
		reporter:   &recordingReporter{},
		dispatcher: events.NewInMemoryDispatcher(),
		metrics:    observability.NewMetrics(),
	}
	f.team = f.store.AddTeam(domain.Team{ID: "team-1", OrganizationID: testOrg, Name: "Service Desk", IsActive: true})
	f.agent = f.store.AddStaff(domain.StaffMember{
		ID:             "agent-1",
		OrganizationID: testOrg,
		Name:           "Agent One",
		Role:           domain.StaffRoleAgent,
		Active:         true,
		CreatedAt:      testStart.Add(-time.Hour),
	})
	f.assignment = NewAssignmentService(AssignmentDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Reporter:   f.reporter,
		Now:        f.clock.Now,
	})
	f.incidents = NewIncidentService(IncidentDependencies{
		Store:      f.store,
		Numbers:    sequence.NewNumberer(sequence.NewMemoryAllocator(), "INC"),
		Dispatcher: f.dispatcher,
		Assigner:   f.assignment,
		AutoAssign: true,
		Reporter:   f.reporter,
		Metrics:    f.metrics,
		Now:        f.clock.Now,
	})
	f.duplicates = NewDuplicateService(DuplicateDependencies{
		Store:      f.store,
		Dispatcher: f.dispatcher,
		Reporter:   f.reporter,
		Now:        f.clock.Now,
	})
	return f
}

// seed stores an incident directly, bypassing the lifecycle.
func (f *fixture) seed(status domain.IncidentStatus, mutate ...func(*domain.Incident)) *domain.Incident {
	responseDue := testStart.Add(30 * time.Minute)
	resolutionDue := testStart.Add(8 * time.Hour)
	inc := &domain.Incident{
		OrganizationID:   testOrg,
		TicketNumber:     "INC-999999",
		Title:            "Seeded incident",
		Priority:         domain.PriorityHigh,
		Status:           status,
		AssigneeID:       strPtr(f.agent.ID),
		SLAResponseDue:   &responseDue,
		SLAResolutionDue: &resolutionDue,
		CreatedAt:        testStart.Add(-time.Hour),
		UpdatedAt:        testStart.Add(-time.Hour),
	}
	for _, m := range mutate {
		m(inc)
	}
	return f.store.PutIncident(inc)
}

func (f *fixture) create(t *testing.T, input CreateIncidentInput) *domain.Incident {
	t.Helper()
	res, err := f.incidents.CreateIncident(context.Background(), testOrg, "reporter-1", input)
	require.NoError(t, err)
	return res.Incident
}

func strPtr(v string) *string { return &v }

func timePtr(v time.Time) *time.Time { return &v }
