// Package sla computes service-level deadlines against business-hours calendars.
// Every function is stateless; pause accounting is applied by the caller through
// AddMinutes and DiffMinutes.
package sla

import (
	"math"
	"time"
)

// AtRiskThreshold is a fixed cutoff, independent of the total SLA duration.
const AtRiskThreshold = 30 * time.Minute

// Status classifies a deadline relative to now.
type Status string

const (
	StatusOnTrack  Status = "on_track"
	StatusAtRisk   Status = "at_risk"
	StatusBreached Status = "breached"

	// Snapshot-only states.
	StatusMet    Status = "met"
	StatusPaused Status = "paused"
	StatusNone   Status = "none"
)

// CalculateDeadline returns the instant durationMinutes after start. With
// businessHoursOnly the minutes are consumed only inside cal's window.
func CalculateDeadline(start time.Time, durationMinutes int, businessHoursOnly bool, cal Calendar) time.Time {
	if durationMinutes <= 0 {
		return start
	}
	if !businessHoursOnly {
		return start.Add(time.Duration(durationMinutes) * time.Minute)
	}
	cal = cal.orDefault()

	t := cal.clamp(start.In(cal.location()))
	remaining := time.Duration(durationMinutes) * time.Minute
	for {
		available := cal.dayEnd(t).Sub(t)
		if remaining <= available {
			return t.Add(remaining).In(start.Location())
		}
		remaining -= available
		t = cal.nextWorkDayStart(t)
	}
}

// IsWithinBusinessHours reports whether t falls on a work day inside the window.
func IsWithinBusinessHours(t time.Time, cal Calendar) bool {
	local := t.In(cal.location())
	if !cal.isWorkDay(local.Weekday()) {
		return false
	}
	hour := local.Hour()
	return hour >= cal.StartHour && hour < cal.EndHour
}

// Classify reports breached once now is past the deadline and at_risk when
// less than AtRiskThreshold remains.
func Classify(deadline, now time.Time) Status {
	if now.After(deadline) {
		return StatusBreached
	}
	if deadline.Sub(now) < AtRiskThreshold {
		return StatusAtRisk
	}
	return StatusOnTrack
}

// ElapsedBusinessMinutes counts whole minutes between start and end that fall
// inside business hours. Cost is linear in the span, which is bounded by an
// incident's lifetime.
func ElapsedBusinessMinutes(start, end time.Time, cal Calendar) int {
	if !end.After(start) {
		return 0
	}
	count := 0
	for t := start.Truncate(time.Minute); t.Before(end); t = t.Add(time.Minute) {
		if IsWithinBusinessHours(t, cal) {
			count++
		}
	}
	return count
}

// AddMinutes shifts t forward by minutes.
func AddMinutes(t time.Time, minutes int) time.Time {
	return t.Add(time.Duration(minutes) * time.Minute)
}

// DiffMinutes returns the whole minutes from -> to, rounded up. Negative spans yield zero.
func DiffMinutes(from, to time.Time) int {
	d := to.Sub(from)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Minutes()))
}
