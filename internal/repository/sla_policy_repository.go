package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
)

type slaPolicyRepository struct {
	db Querier
}

// NewSLAPolicyRepository constructs repository.
func NewSLAPolicyRepository(db Querier) SLAPolicyRepository {
	return &slaPolicyRepository{db: db}
}

func (r *slaPolicyRepository) GetActive(ctx context.Context, organizationID string, priority domain.Priority) (*domain.SLAPolicy, error) {
	const query = `
        SELECT id, organization_id, name, priority, response_minutes, resolution_minutes,
               business_hours_only, is_active, created_at, updated_at
        FROM sla_policies
        WHERE organization_id=$1 AND priority=$2 AND is_active=TRUE
        ORDER BY updated_at DESC
        LIMIT 1`
	var policy domain.SLAPolicy
	err := r.db.QueryRow(ctx, query, organizationID, priority).Scan(
		&policy.ID,
		&policy.OrganizationID,
		&policy.Name,
		&policy.Priority,
		&policy.ResponseMinutes,
		&policy.ResolutionMinutes,
		&policy.BusinessHoursOnly,
		&policy.IsActive,
		&policy.CreatedAt,
		&policy.UpdatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &policy, nil
}
