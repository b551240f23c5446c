// Package memory provides an in-process Store used when no database is
// configured and in tests.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"github.com/spec-kit/incident-service/internal/domain"
	"github.com/spec-kit/incident-service/internal/repository"
)

type state struct {
	incidents map[string]*domain.Incident
	timeline  []domain.TimelineEntry
	audit     []domain.AuditLog
	comments  []domain.Comment
	staff     map[string]domain.StaffMember
	teams     map[string]domain.Team
	tasks     map[string]domain.WorkflowTask
	policies  []domain.SLAPolicy
}

func newState() *state {
	return &state{
		incidents: map[string]*domain.Incident{},
		staff:     map[string]domain.StaffMember{},
		teams:     map[string]domain.Team{},
		tasks:     map[string]domain.WorkflowTask{},
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, inc := range s.incidents {
		c.incidents[id] = inc.Clone()
	}
	c.timeline = append([]domain.TimelineEntry(nil), s.timeline...)
	c.audit = append([]domain.AuditLog(nil), s.audit...)
	c.comments = append([]domain.Comment(nil), s.comments...)
	for k, v := range s.staff {
		c.staff[k] = v
	}
	for k, v := range s.teams {
		c.teams[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	c.policies = append([]domain.SLAPolicy(nil), s.policies...)
	return c
}

// Store keeps every record in memory. Transactions are serialized and roll
// back by restoring a snapshot taken when they began.
type Store struct {
	mu       sync.Mutex
	data     *state
	failures map[string]error
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{data: newState(), failures: map[string]error{}}
}

// Repos returns repositories that lock the store per call.
func (s *Store) Repos() repository.Repositories {
	return s.repos(false)
}

// WithinTx runs fn holding the store lock and restores the prior state when
// fn returns an error.
func (s *Store) WithinTx(ctx context.Context, fn func(ctx context.Context, repos repository.Repositories) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	snapshot := s.data.clone()
	if err := fn(ctx, s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// FailOn makes the next call of op return err. Ops are named
// "<repository>.<method>", for example "audit.create".
func (s *Store) FailOn(op string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[op] = err
}

func (s *Store) repos(inTx bool) repository.Repositories {
	b := &binding{store: s, inTx: inTx}
	return repository.Repositories{
		Incidents: incidentRepo{b},
		Timeline:  timelineRepo{b},
		Audit:     auditRepo{b},
		Comments:  commentRepo{b},
		Staff:     staffRepo{b},
		Teams:     teamRepo{b},
		Tasks:     taskRepo{b},
		Policies:  policyRepo{b},
	}
}

// binding runs repository calls against the store, taking the lock unless
// the caller already holds it through WithinTx.
type binding struct {
	store *Store
	inTx  bool
}

func (b *binding) do(op string, fn func(st *state) error) error {
	if !b.inTx {
		b.store.mu.Lock()
		defer b.store.mu.Unlock()
	}
	if err, ok := b.store.failures[op]; ok {
		delete(b.store.failures, op)
		return err
	}
	return fn(b.store.data)
}

// PutIncident stores a copy of inc as is, assigning an ID when missing.
func (s *Store) PutIncident(inc *domain.Incident) *domain.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	stored := inc.Clone()
	if stored.ID == "" {
		stored.ID = uuid.NewString()
	}
	if stored.Version == 0 {
		stored.Version = 1
	}
	s.data.incidents[stored.ID] = stored
	return stored.Clone()
}

// Incident returns a copy of the stored incident or nil.
func (s *Store) Incident(id string) *domain.Incident {
	s.mu.Lock()
	defer s.mu.Unlock()
	if inc, ok := s.data.incidents[id]; ok {
		return inc.Clone()
	}
	return nil
}

// Timeline returns the entries written for incidentID in insertion order.
func (s *Store) Timeline(incidentID string) []domain.TimelineEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return timelineFor(s.data, incidentID)
}

// AuditLogs returns every audit entry in insertion order.
func (s *Store) AuditLogs() []domain.AuditLog {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.AuditLog(nil), s.data.audit...)
}

// Comments returns every stored comment.
func (s *Store) Comments() []domain.Comment {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]domain.Comment(nil), s.data.comments...)
}

// AddStaff seeds a staff member.
func (s *Store) AddStaff(member domain.StaffMember) domain.StaffMember {
	s.mu.Lock()
	defer s.mu.Unlock()
	if member.ID == "" {
		member.ID = uuid.NewString()
	}
	s.data.staff[member.ID] = member
	return member
}

// AddTeam seeds a team.
func (s *Store) AddTeam(team domain.Team) domain.Team {
	s.mu.Lock()
	defer s.mu.Unlock()
	if team.ID == "" {
		team.ID = uuid.NewString()
	}
	s.data.teams[team.ID] = team
	return team
}

// AddTask seeds or replaces a workflow task.
func (s *Store) AddTask(task domain.WorkflowTask) domain.WorkflowTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	s.data.tasks[task.ID] = task
	return task
}

// AddPolicy seeds an SLA policy.
func (s *Store) AddPolicy(policy domain.SLAPolicy) domain.SLAPolicy {
	s.mu.Lock()
	defer s.mu.Unlock()
	if policy.ID == "" {
		policy.ID = uuid.NewString()
	}
	s.data.policies = append(s.data.policies, policy)
	return policy
}

func timelineFor(st *state, incidentID string) []domain.TimelineEntry {
	var out []domain.TimelineEntry
	for _, entry := range st.timeline {
		if entry.IncidentID == incidentID {
			out = append(out, entry)
		}
	}
	return out
}

type incidentRepo struct{ b *binding }

func (r incidentRepo) Create(_ context.Context, inc *domain.Incident) error {
	return r.b.do("incidents.create", func(st *state) error {
		if inc.ID == "" {
			inc.ID = uuid.NewString()
		}
		inc.Version = 1
		inc.UpdatedAt = inc.CreatedAt
		st.incidents[inc.ID] = inc.Clone()
		return nil
	})
}

func (r incidentRepo) Update(_ context.Context, inc *domain.Incident) error {
	return r.b.do("incidents.update", func(st *state) error {
		current, ok := st.incidents[inc.ID]
		if !ok || current.OrganizationID != inc.OrganizationID || current.Version != inc.Version {
			return repository.ErrVersionConflict
		}
		inc.Version++
		st.incidents[inc.ID] = inc.Clone()
		return nil
	})
}

func (r incidentRepo) get(op, organizationID, id string) (*domain.Incident, error) {
	var out *domain.Incident
	err := r.b.do(op, func(st *state) error {
		inc, ok := st.incidents[id]
		if !ok || inc.OrganizationID != organizationID {
			return repository.ErrNotFound
		}
		out = inc.Clone()
		return nil
	})
	return out, err
}

func (r incidentRepo) GetByID(_ context.Context, organizationID, id string) (*domain.Incident, error) {
	return r.get("incidents.get", organizationID, id)
}

func (r incidentRepo) GetForUpdate(_ context.Context, organizationID, id string) (*domain.Incident, error) {
	return r.get("incidents.get_for_update", organizationID, id)
}

func (r incidentRepo) ListRecentOpen(_ context.Context, organizationID string, limit int) ([]*domain.Incident, error) {
	var out []*domain.Incident
	err := r.b.do("incidents.list_recent_open", func(st *state) error {
		for _, inc := range st.incidents {
			if inc.OrganizationID == organizationID && !inc.Status.IsTerminal() {
				out = append(out, inc.Clone())
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].CreatedAt.After(out[j].CreatedAt)
		})
		if limit > 0 && len(out) > limit {
			out = out[:limit]
		}
		return nil
	})
	return out, err
}

type timelineRepo struct{ b *binding }

func (r timelineRepo) Create(_ context.Context, entry *domain.TimelineEntry) error {
	return r.b.do("timeline.create", func(st *state) error {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		stored := *entry
		stored.Metadata = entry.Metadata.Merge(nil)
		st.timeline = append(st.timeline, stored)
		return nil
	})
}

func (r timelineRepo) ListByIncident(_ context.Context, incidentID string) ([]domain.TimelineEntry, error) {
	var out []domain.TimelineEntry
	err := r.b.do("timeline.list", func(st *state) error {
		out = timelineFor(st, incidentID)
		return nil
	})
	return out, err
}

type auditRepo struct{ b *binding }

func (r auditRepo) Create(_ context.Context, entry *domain.AuditLog) error {
	return r.b.do("audit.create", func(st *state) error {
		if entry.ID == "" {
			entry.ID = uuid.NewString()
		}
		st.audit = append(st.audit, *entry)
		return nil
	})
}

type commentRepo struct{ b *binding }

func (r commentRepo) Create(_ context.Context, comment *domain.Comment) error {
	return r.b.do("comments.create", func(st *state) error {
		if comment.ID == "" {
			comment.ID = uuid.NewString()
		}
		st.comments = append(st.comments, *comment)
		return nil
	})
}

type staffRepo struct{ b *binding }

func (r staffRepo) GetByID(_ context.Context, organizationID, id string) (*domain.StaffMember, error) {
	var out *domain.StaffMember
	err := r.b.do("staff.get", func(st *state) error {
		member, ok := st.staff[id]
		if !ok || member.OrganizationID != organizationID {
			return repository.ErrNotFound
		}
		out = &member
		return nil
	})
	return out, err
}

func (r staffRepo) ListActiveByTeam(_ context.Context, organizationID, teamID string) ([]domain.StaffMember, error) {
	var out []domain.StaffMember
	err := r.b.do("staff.list_active_by_team", func(st *state) error {
		for _, member := range st.staff {
			if member.OrganizationID == organizationID && member.Active && member.TeamID != nil && *member.TeamID == teamID {
				out = append(out, member)
			}
		}
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].CreatedAt.Equal(out[j].CreatedAt) {
				return out[i].ID < out[j].ID
			}
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		})
		return nil
	})
	return out, err
}

type teamRepo struct{ b *binding }

func (r teamRepo) GetByID(_ context.Context, organizationID, id string) (*domain.Team, error) {
	var out *domain.Team
	err := r.b.do("teams.get", func(st *state) error {
		team, ok := st.teams[id]
		if !ok || team.OrganizationID != organizationID {
			return repository.ErrNotFound
		}
		out = &team
		return nil
	})
	return out, err
}

type taskRepo struct{ b *binding }

func (r taskRepo) CountOpenByIncident(_ context.Context, organizationID, incidentID string) (int, error) {
	count := 0
	err := r.b.do("tasks.count_open", func(st *state) error {
		for _, task := range st.tasks {
			if task.OrganizationID == organizationID && task.IncidentID == incidentID && task.Status.IsOpen() {
				count++
			}
		}
		return nil
	})
	return count, err
}

type policyRepo struct{ b *binding }

func (r policyRepo) GetActive(_ context.Context, organizationID string, priority domain.Priority) (*domain.SLAPolicy, error) {
	var out *domain.SLAPolicy
	err := r.b.do("policies.get_active", func(st *state) error {
		for i := len(st.policies) - 1; i >= 0; i-- {
			policy := st.policies[i]
			if policy.OrganizationID == organizationID && policy.Priority == priority && policy.IsActive {
				out = &policy
				return nil
			}
		}
		return nil
	})
	return out, err
}
