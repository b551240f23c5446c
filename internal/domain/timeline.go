package domain

import (
	"reflect"
	"sort"
	"time"
)

// TimelineAction captures what happened in a timeline entry.
type TimelineAction string

const (
	TimelineActionCreated       TimelineAction = "created"
	TimelineActionStatusChanged TimelineAction = "status_changed"
	TimelineActionUpdated       TimelineAction = "updated"
	TimelineActionCommented     TimelineAction = "commented"
	TimelineActionAutoAssigned  TimelineAction = "auto_assigned"
	TimelineActionMergedInto    TimelineAction = "merged_into"
	TimelineActionMergedFrom    TimelineAction = "merged_from"
)

// TimelineEntry is an immutable, append-only lifecycle record.
type TimelineEntry struct {
	ID            string
	IncidentID    string
	Action        TimelineAction
	PreviousValue *string
	NewValue      *string
	ActorID       *string
	Metadata      Metadata
	CreatedAt     time.Time
}

// AuditLog records an administrative trail entry for a tenant.
type AuditLog struct {
	ID             string
	OrganizationID string
	ActorID        *string
	Action         string
	EntityType     string
	EntityID       string
	Metadata       Metadata
	CreatedAt      time.Time
}

// Metadata is an open string-keyed bag of scalar values (and string lists)
// attached to timeline and audit entries.
type Metadata map[string]any

// IsScalar reports whether v may be stored in Metadata: strings, booleans,
// numbers, times and string lists, or a pointer to one of those.
func IsScalar(v any) bool {
	if v == nil {
		return true
	}
	if _, ok := v.(time.Time); ok {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.String, reflect.Bool,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	case reflect.Slice:
		return rv.Type().Elem().Kind() == reflect.String
	case reflect.Pointer:
		return rv.IsNil() || IsScalar(rv.Elem().Interface())
	}
	return false
}

// NonScalarKeys lists, sorted, the keys whose values are not scalar.
func (m Metadata) NonScalarKeys() []string {
	var keys []string
	for k, v := range m {
		if !IsScalar(v) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Compact returns a copy without absent values: nil, nil pointers and
// empty strings. Pointer values are dereferenced and non-scalar values
// are dropped.
func (m Metadata) Compact() Metadata {
	out := Metadata{}
	for k, v := range m {
		if v == nil {
			continue
		}
		switch val := v.(type) {
		case string:
			if val == "" {
				continue
			}
			out[k] = val
			continue
		case *string:
			if val == nil || *val == "" {
				continue
			}
			out[k] = *val
			continue
		}
		rv := reflect.ValueOf(v)
		if rv.Kind() == reflect.Pointer {
			if rv.IsNil() {
				continue
			}
			v = rv.Elem().Interface()
		}
		if !IsScalar(v) {
			continue
		}
		out[k] = v
	}
	return out
}

// Merge copies entries from other, keeping existing keys.
func (m Metadata) Merge(other Metadata) Metadata {
	out := Metadata{}
	for k, v := range other {
		out[k] = v
	}
	for k, v := range m {
		out[k] = v
	}
	return out
}
