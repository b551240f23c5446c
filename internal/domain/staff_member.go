package domain

import "time"

// StaffRole enumerates internal operator roles.
type StaffRole string

const (
	StaffRoleAgent    StaffRole = "agent"
	StaffRoleTeamLead StaffRole = "team_lead"
	StaffRoleAdmin    StaffRole = "admin"
)

// StaffMember models a tenant user who can own incidents.
type StaffMember struct {
	ID             string
	OrganizationID string
	Name           string
	Email          string
	Role           StaffRole
	TeamID         *string
	Active         bool
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
