package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeStatus(t *testing.T) {
	for _, s := range AllIncidentStatuses {
		got, ok := NormalizeStatus(string(s))
		assert.True(t, ok)
		assert.Equal(t, s, got)
	}

	got, ok := NormalizeStatus(" Open ")
	assert.True(t, ok)
	assert.Equal(t, IncidentStatusAssigned, got)

	got, ok = NormalizeStatus("IN_PROGRESS")
	assert.True(t, ok)
	assert.Equal(t, IncidentStatusInProgress, got)

	_, ok = NormalizeStatus("reopened")
	assert.False(t, ok)
	_, ok = NormalizeStatus("")
	assert.False(t, ok)
}

func TestIncidentCloneIsDeep(t *testing.T) {
	due := time.Now()
	assignee := "u-1"
	inc := &Incident{ID: "i-1", Tags: []string{"a"}, SLAResponseDue: &due, AssigneeID: &assignee}

	c := inc.Clone()
	c.Tags[0] = "b"
	*c.AssigneeID = "u-2"
	c.AddTag("duplicate")

	assert.Equal(t, []string{"a"}, inc.Tags)
	assert.Equal(t, "u-1", *inc.AssigneeID)
	assert.True(t, c.HasTag("duplicate"))
	assert.False(t, inc.HasTag("duplicate"))
}

func TestMetadataCompact(t *testing.T) {
	var nilStr *string
	empty := ""
	reason := "customer asked"
	var nilTime *time.Time

	got := Metadata{
		"reason":    &reason,
		"comment":   &empty,
		"summary":   nilStr,
		"until":     nilTime,
		"note":      "",
		"count":     3,
		"flag":      false,
		"nothing":   nil,
		"sourceIds": []string{"a", "b"},
	}.Compact()

	assert.Equal(t, Metadata{
		"reason":    "customer asked",
		"count":     3,
		"flag":      false,
		"sourceIds": []string{"a", "b"},
	}, got)
}

func TestMetadataScalarValues(t *testing.T) {
	priority := PriorityHigh
	at := time.Date(2024, time.March, 4, 10, 0, 0, 0, time.UTC)

	for _, v := range []any{nil, "x", true, 3, int64(4), uint8(5), 1.5, at, &at, []string{"a"}, priority, &priority} {
		assert.True(t, IsScalar(v), "%T", v)
	}
	for _, v := range []any{map[string]any{"x": 1}, []any{1}, []int{1}, struct{}{}} {
		assert.False(t, IsScalar(v), "%T", v)
	}

	m := Metadata{
		"vendorTicket": "VEN-1",
		"nested":       map[string]any{"deep": []any{1, map[string]any{"x": nil}}},
		"list":         []any{"a"},
	}
	assert.Equal(t, []string{"list", "nested"}, m.NonScalarKeys())
	assert.Equal(t, Metadata{"vendorTicket": "VEN-1"}, m.Compact())
	assert.Empty(t, Metadata{"count": 2, "flag": true}.NonScalarKeys())
}
