// Package priority derives incident priority from impact and urgency.
package priority

import "github.com/spec-kit/incident-service/internal/domain"

// matrix is indexed impact -> urgency. Impact dominates, so the table is not symmetric.
var matrix = map[domain.Priority]map[domain.Priority]domain.Priority{
	domain.PriorityCritical: {
		domain.PriorityCritical: domain.PriorityCritical,
		domain.PriorityHigh:     domain.PriorityCritical,
		domain.PriorityMedium:   domain.PriorityHigh,
		domain.PriorityLow:      domain.PriorityMedium,
	},
	domain.PriorityHigh: {
		domain.PriorityCritical: domain.PriorityCritical,
		domain.PriorityHigh:     domain.PriorityHigh,
		domain.PriorityMedium:   domain.PriorityHigh,
		domain.PriorityLow:      domain.PriorityMedium,
	},
	domain.PriorityMedium: {
		domain.PriorityCritical: domain.PriorityHigh,
		domain.PriorityHigh:     domain.PriorityHigh,
		domain.PriorityMedium:   domain.PriorityMedium,
		domain.PriorityLow:      domain.PriorityLow,
	},
	domain.PriorityLow: {
		domain.PriorityCritical: domain.PriorityMedium,
		domain.PriorityHigh:     domain.PriorityMedium,
		domain.PriorityMedium:   domain.PriorityLow,
		domain.PriorityLow:      domain.PriorityLow,
	},
}

// Calculate maps impact and urgency to a priority. Unknown values fall back to medium.
func Calculate(impact, urgency domain.Priority) domain.Priority {
	row, ok := matrix[impact]
	if !ok {
		return domain.PriorityMedium
	}
	p, ok := row[urgency]
	if !ok {
		return domain.PriorityMedium
	}
	return p
}

// Weight orders priorities for sorting. It is never persisted.
func Weight(p domain.Priority) int {
	switch p {
	case domain.PriorityCritical:
		return 4
	case domain.PriorityHigh:
		return 3
	case domain.PriorityMedium:
		return 2
	case domain.PriorityLow:
		return 1
	default:
		return 2
	}
}
