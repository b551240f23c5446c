package repository

import (
	"context"
)

type workflowTaskRepository struct {
	db Querier
}

// NewWorkflowTaskRepository constructs repository.
func NewWorkflowTaskRepository(db Querier) WorkflowTaskRepository {
	return &workflowTaskRepository{db: db}
}

func (r *workflowTaskRepository) CountOpenByIncident(ctx context.Context, organizationID, incidentID string) (int, error) {
	const query = `
        SELECT COUNT(*) FROM workflow_tasks
        WHERE organization_id=$1 AND incident_id=$2 AND status IN ('pending','in_progress')`
	var count int
	if err := r.db.QueryRow(ctx, query, organizationID, incidentID).Scan(&count); err != nil {
		return 0, err
	}
	return count, nil
}
