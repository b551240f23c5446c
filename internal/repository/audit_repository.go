package repository

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
)

type auditRepository struct {
	db Querier
}

// NewAuditRepository constructs repository.
func NewAuditRepository(db Querier) AuditRepository {
	return &auditRepository{db: db}
}

func (r *auditRepository) Create(ctx context.Context, entry *domain.AuditLog) error {
	const query = `
        INSERT INTO audit_logs (organization_id, actor_id, action, entity_type, entity_id, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.OrganizationID,
		entry.ActorID,
		entry.Action,
		entry.EntityType,
		entry.EntityID,
		entry.Metadata,
		entry.CreatedAt,
	).Scan(&entry.ID)
}
