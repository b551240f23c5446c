package service

import (
	"github.com/spec-kit/incident-service/internal/domain"
)

var allowedTransitions = map[domain.IncidentStatus][]domain.IncidentStatus{
	domain.IncidentStatusNew: {
		domain.IncidentStatusAssigned,
		domain.IncidentStatusInProgress,
		domain.IncidentStatusCancelled,
		domain.IncidentStatusEscalated,
	},
	domain.IncidentStatusAssigned: {
		domain.IncidentStatusInProgress,
		domain.IncidentStatusPending,
		domain.IncidentStatusResolved,
		domain.IncidentStatusCancelled,
		domain.IncidentStatusEscalated,
	},
	domain.IncidentStatusInProgress: {
		domain.IncidentStatusPending,
		domain.IncidentStatusResolved,
		domain.IncidentStatusCancelled,
		domain.IncidentStatusEscalated,
	},
	domain.IncidentStatusPending: {
		domain.IncidentStatusInProgress,
		domain.IncidentStatusResolved,
		domain.IncidentStatusCancelled,
		domain.IncidentStatusEscalated,
	},
	domain.IncidentStatusEscalated: {
		domain.IncidentStatusAssigned,
		domain.IncidentStatusInProgress,
		domain.IncidentStatusPending,
		domain.IncidentStatusResolved,
		domain.IncidentStatusCancelled,
	},
	domain.IncidentStatusResolved: {
		domain.IncidentStatusClosed,
		domain.IncidentStatusInProgress,
	},
	domain.IncidentStatusClosed:    {},
	domain.IncidentStatusCancelled: {},
}

// IsValidTransition reports whether next is reachable from current in one step.
func IsValidTransition(current, next domain.IncidentStatus) bool {
	for _, candidate := range allowedTransitions[current] {
		if candidate == next {
			return true
		}
	}
	return false
}

// AllowedTransitions returns the statuses reachable from current.
func AllowedTransitions(current domain.IncidentStatus) []domain.IncidentStatus {
	return append([]domain.IncidentStatus(nil), allowedTransitions[current]...)
}
