package domain

import "time"

// Team represents a resolver group inside a tenant.
type Team struct {
	ID             string
	OrganizationID string
	Name           string
	Description    string
	IsActive       bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
