package domain

import "time"

// WorkflowTaskStatus enumerates task states owned by the workflow engine.
type WorkflowTaskStatus string

const (
	WorkflowTaskPending    WorkflowTaskStatus = "pending"
	WorkflowTaskInProgress WorkflowTaskStatus = "in_progress"
	WorkflowTaskCompleted  WorkflowTaskStatus = "completed"
	WorkflowTaskSkipped    WorkflowTaskStatus = "skipped"
)

// IsOpen reports whether the task still blocks resolution.
func (s WorkflowTaskStatus) IsOpen() bool {
	return s == WorkflowTaskPending || s == WorkflowTaskInProgress
}

// WorkflowTask is a task linked to an incident through a workflow run.
type WorkflowTask struct {
	ID             string
	OrganizationID string
	IncidentID     string
	Title          string
	Status         WorkflowTaskStatus
	CreatedAt      time.Time
}
