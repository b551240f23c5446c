package repository

import (
	"context"

	"github.com/spec-kit/incident-service/internal/domain"
)

type timelineRepository struct {
	db Querier
}

// NewTimelineRepository constructs repository.
func NewTimelineRepository(db Querier) TimelineRepository {
	return &timelineRepository{db: db}
}

func (r *timelineRepository) Create(ctx context.Context, entry *domain.TimelineEntry) error {
	const query = `
        INSERT INTO incident_timeline (incident_id, action, previous_value, new_value, actor_id, metadata, created_at)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id`
	return r.db.QueryRow(ctx, query,
		entry.IncidentID,
		entry.Action,
		entry.PreviousValue,
		entry.NewValue,
		entry.ActorID,
		entry.Metadata,
		entry.CreatedAt,
	).Scan(&entry.ID)
}

func (r *timelineRepository) ListByIncident(ctx context.Context, incidentID string) ([]domain.TimelineEntry, error) {
	const query = `
        SELECT id, incident_id, action, previous_value, new_value, actor_id, metadata, created_at
        FROM incident_timeline WHERE incident_id=$1 ORDER BY created_at ASC, seq ASC`
	rows, err := r.db.Query(ctx, query, incidentID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.TimelineEntry
	for rows.Next() {
		var entry domain.TimelineEntry
		if err := rows.Scan(
			&entry.ID,
			&entry.IncidentID,
			&entry.Action,
			&entry.PreviousValue,
			&entry.NewValue,
			&entry.ActorID,
			&entry.Metadata,
			&entry.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, entry)
	}
	return result, rows.Err()
}
