package repository

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
)

type staffRepository struct {
	db Querier
}

// NewStaffRepository constructs repository.
func NewStaffRepository(db Querier) StaffRepository {
	return &staffRepository{db: db}
}

func (r *staffRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.StaffMember, error) {
	const query = `
        SELECT id, organization_id, name, email, role, team_id, active, created_at, updated_at
        FROM staff_members WHERE id=$1 AND organization_id=$2`
	var staff domain.StaffMember
	if err := r.db.QueryRow(ctx, query, id, organizationID).Scan(
		&staff.ID,
		&staff.OrganizationID,
		&staff.Name,
		&staff.Email,
		&staff.Role,
		&staff.TeamID,
		&staff.Active,
		&staff.CreatedAt,
		&staff.UpdatedAt,
	); err != nil {
		return nil, notFound(err)
	}
	return &staff, nil
}

func (r *staffRepository) ListActiveByTeam(ctx context.Context, organizationID, teamID string) ([]domain.StaffMember, error) {
	const query = `
        SELECT id, organization_id, name, email, role, team_id, active, created_at, updated_at
        FROM staff_members
        WHERE organization_id=$1 AND team_id=$2 AND active=TRUE
        ORDER BY created_at ASC`
	rows, err := r.db.Query(ctx, query, organizationID, teamID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.StaffMember
	for rows.Next() {
		var staff domain.StaffMember
		if err := rows.Scan(&staff.ID, &staff.OrganizationID, &staff.Name, &staff.Email, &staff.Role, &staff.TeamID, &staff.Active, &staff.CreatedAt, &staff.UpdatedAt); err != nil {
			return nil, err
		}
		result = append(result, staff)
	}
	return result, rows.Err()
}
