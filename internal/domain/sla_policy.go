package domain

import "time"

// SLAPolicy defines response and resolution targets for one priority of a tenant.
type SLAPolicy struct {
	ID                string
	OrganizationID    string
	Name              string
	Priority          Priority
	ResponseMinutes   int
	ResolutionMinutes int
	BusinessHoursOnly bool
	IsActive          bool
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
