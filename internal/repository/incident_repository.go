package repository

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/incident-service/internal/domain"
)

const incidentColumns = `id, organization_id, ticket_number, reporter_id, title, description, category, channel,
               priority, impact, urgency, status, assignee_id, team_id, tags, config_item_ids, problem_id,
               change_request_id, sla_response_due, sla_response_at, sla_response_met, sla_resolution_due,
               sla_resolution_met, sla_paused_at, sla_total_paused_minutes, on_hold_reason, on_hold_until,
               resolution_summary, closure_code, version, created_at, updated_at, resolved_at, closed_at`

type incidentRepository struct {
	db Querier
}

// NewIncidentRepository instantiates repository.
func NewIncidentRepository(db Querier) IncidentRepository {
	return &incidentRepository{db: db}
}

func (r *incidentRepository) Create(ctx context.Context, inc *domain.Incident) error {
	const query = `
        INSERT INTO incidents (organization_id, ticket_number, reporter_id, title, description, category, channel,
            priority, impact, urgency, status, assignee_id, team_id, tags, config_item_ids, problem_id,
            change_request_id, sla_response_due, sla_resolution_due, version, created_at, updated_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,$19,1,$20,$20)
        RETURNING id, version`
	return r.db.QueryRow(ctx, query,
		inc.OrganizationID,
		inc.TicketNumber,
		inc.ReporterID,
		inc.Title,
		inc.Description,
		inc.Category,
		inc.Channel,
		inc.Priority,
		inc.Impact,
		inc.Urgency,
		inc.Status,
		inc.AssigneeID,
		inc.TeamID,
		nonNil(inc.Tags),
		nonNil(inc.ConfigItemIDs),
		inc.ProblemID,
		inc.ChangeRequestID,
		inc.SLAResponseDue,
		inc.SLAResolutionDue,
		inc.CreatedAt,
	).Scan(&inc.ID, &inc.Version)
}

func (r *incidentRepository) Update(ctx context.Context, inc *domain.Incident) error {
	const query = `
        UPDATE incidents SET title=$1, description=$2, category=$3, channel=$4, priority=$5, impact=$6, urgency=$7,
            status=$8, assignee_id=$9, team_id=$10, tags=$11, config_item_ids=$12, problem_id=$13,
            change_request_id=$14, sla_response_due=$15, sla_response_at=$16, sla_response_met=$17,
            sla_resolution_due=$18, sla_resolution_met=$19, sla_paused_at=$20, sla_total_paused_minutes=$21,
            on_hold_reason=$22, on_hold_until=$23, resolution_summary=$24, closure_code=$25,
            resolved_at=$26, closed_at=$27, updated_at=$28, version=version+1
        WHERE id=$29 AND organization_id=$30 AND version=$31
        RETURNING version`
	err := r.db.QueryRow(ctx, query,
		inc.Title,
		inc.Description,
		inc.Category,
		inc.Channel,
		inc.Priority,
		inc.Impact,
		inc.Urgency,
		inc.Status,
		inc.AssigneeID,
		inc.TeamID,
		nonNil(inc.Tags),
		nonNil(inc.ConfigItemIDs),
		inc.ProblemID,
		inc.ChangeRequestID,
		inc.SLAResponseDue,
		inc.SLAResponseAt,
		inc.SLAResponseMet,
		inc.SLAResolutionDue,
		inc.SLAResolutionMet,
		inc.SLAPausedAt,
		inc.SLATotalPausedMins,
		inc.OnHoldReason,
		inc.OnHoldUntil,
		inc.ResolutionSummary,
		inc.ClosureCode,
		inc.ResolvedAt,
		inc.ClosedAt,
		inc.UpdatedAt,
		inc.ID,
		inc.OrganizationID,
		inc.Version,
	).Scan(&inc.Version)
	if errors.Is(err, pgx.ErrNoRows) {
		return ErrVersionConflict
	}
	return err
}

func (r *incidentRepository) GetByID(ctx context.Context, organizationID, id string) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1 AND organization_id=$2`
	inc, err := scanIncident(r.db.QueryRow(ctx, query, id, organizationID))
	return inc, notFound(err)
}

func (r *incidentRepository) GetForUpdate(ctx context.Context, organizationID, id string) (*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + ` FROM incidents WHERE id=$1 AND organization_id=$2 FOR UPDATE`
	inc, err := scanIncident(r.db.QueryRow(ctx, query, id, organizationID))
	return inc, notFound(err)
}

func (r *incidentRepository) ListRecentOpen(ctx context.Context, organizationID string, limit int) ([]*domain.Incident, error) {
	const query = `SELECT ` + incidentColumns + `
        FROM incidents
        WHERE organization_id=$1 AND status NOT IN ('closed','cancelled')
        ORDER BY created_at DESC
        LIMIT $2`
	rows, err := r.db.Query(ctx, query, organizationID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []*domain.Incident
	for rows.Next() {
		inc, err := scanIncident(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, inc)
	}
	return result, rows.Err()
}

func scanIncident(row pgx.Row) (*domain.Incident, error) {
	var inc domain.Incident
	if err := row.Scan(
		&inc.ID,
		&inc.OrganizationID,
		&inc.TicketNumber,
		&inc.ReporterID,
		&inc.Title,
		&inc.Description,
		&inc.Category,
		&inc.Channel,
		&inc.Priority,
		&inc.Impact,
		&inc.Urgency,
		&inc.Status,
		&inc.AssigneeID,
		&inc.TeamID,
		&inc.Tags,
		&inc.ConfigItemIDs,
		&inc.ProblemID,
		&inc.ChangeRequestID,
		&inc.SLAResponseDue,
		&inc.SLAResponseAt,
		&inc.SLAResponseMet,
		&inc.SLAResolutionDue,
		&inc.SLAResolutionMet,
		&inc.SLAPausedAt,
		&inc.SLATotalPausedMins,
		&inc.OnHoldReason,
		&inc.OnHoldUntil,
		&inc.ResolutionSummary,
		&inc.ClosureCode,
		&inc.Version,
		&inc.CreatedAt,
		&inc.UpdatedAt,
		&inc.ResolvedAt,
		&inc.ClosedAt,
	); err != nil {
		return nil, err
	}
	return &inc, nil
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
