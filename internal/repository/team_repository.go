package repository

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
)

type teamRepository struct {
	db Querier
}

// NewTeamRepository constructs repository.
func NewTeamRepository(db Querier) TeamRepository {
	return &teamRepository{db: db}
}

func (r *teamRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Team, error) {
	const query = `
        SELECT id, organization_id, name, description, is_active, created_at, updated_at
        FROM teams WHERE id=$1 AND organization_id=$2`
	var team domain.Team
	if err := r.db.QueryRow(ctx, query, id, organizationID).Scan(
		&team.ID,
		&team.OrganizationID,
		&team.Name,
		&team.Description,
		&team.IsActive,
		&team.CreatedAt,
		&team.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &team, nil
}
