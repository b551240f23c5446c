package repository

import (
	"context"
	"errors"

	"github.com/spec-kit/incident-service/internal/domain"
)

var (
	// ErrNotFound is returned when a tenant-scoped lookup matches nothing.
	ErrNotFound = errors.New("record not found")
	// ErrVersionConflict is returned when an incident changed since it was read.
	ErrVersionConflict = errors.New("incident version conflict")
)

// IncidentRepository encapsulates incident persistence.
type IncidentRepository interface {
	Create(ctx context.Context, incident *domain.Incident) error
	// Update writes incident if its Version still matches the stored row and
	// bumps Version on success.
	Update(ctx context.Context, incident *domain.Incident) error
	GetByID(ctx context.Context, organizationID, id string) (*domain.Incident, error)
	// GetForUpdate reads and locks the row for the rest of the transaction.
	GetForUpdate(ctx context.Context, organizationID, id string) (*domain.Incident, error)
	// ListRecentOpen returns the newest non-terminal incidents of a tenant.
	ListRecentOpen(ctx context.Context, organizationID string, limit int) ([]*domain.Incident, error)
}

// TimelineRepository stores append-only timeline entries.
type TimelineRepository interface {
	Create(ctx context.Context, entry *domain.TimelineEntry) error
	ListByIncident(ctx context.Context, incidentID string) ([]domain.TimelineEntry, error)
}

// AuditRepository stores audit log entries.
type AuditRepository interface {
	Create(ctx context.Context, entry *domain.AuditLog) error
}

// CommentRepository stores incident comments.
type CommentRepository interface {
	Create(ctx context.Context, comment *domain.Comment) error
}

// StaffRepository reads tenant users that can own incidents.
type StaffRepository interface {
	GetByID(ctx context.Context, organizationID, id string) (*domain.StaffMember, error)
	ListActiveByTeam(ctx context.Context, organizationID, teamID string) ([]domain.StaffMember, error)
}

// TeamRepository reads tenant teams.
type TeamRepository interface {
	GetByID(ctx context.Context, organizationID, id string) (*domain.Team, error)
}

// WorkflowTaskRepository queries tasks linked to incidents by workflows.
type WorkflowTaskRepository interface {
	CountOpenByIncident(ctx context.Context, organizationID, incidentID string) (int, error)
}

// SLAPolicyRepository looks up active SLA policies. A nil policy with a nil
// error means the tenant has none for that priority.
type SLAPolicyRepository interface {
	GetActive(ctx context.Context, organizationID string, priority domain.Priority) (*domain.SLAPolicy, error)
}

// Repositories bundles every repository bound to one connection or transaction.
type Repositories struct {
	Incidents IncidentRepository
	Timeline  TimelineRepository
	Audit     AuditRepository
	Comments  CommentRepository
	Staff     StaffRepository
	Teams     TeamRepository
	Tasks     WorkflowTaskRepository
	Policies  SLAPolicyRepository
}

// Store is the transactional record store.
type Store interface {
	// Repos returns repositories outside any transaction.
	Repos() Repositories
	// WithinTx runs fn in one transaction. Any error returned by fn rolls back
	// every write made through the supplied repositories.
	WithinTx(ctx context.Context, fn func(ctx context.Context, repos Repositories) error) error
}
