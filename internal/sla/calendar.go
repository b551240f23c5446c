package sla

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Calendar describes the business window deadlines are charged against.
// EndHour is exclusive: a 9-17 calendar closes at 17:00.
type Calendar struct {
	StartHour int
	EndHour   int
	WorkDays  []time.Weekday
	Location  *time.Location
}

// DefaultCalendar is Monday to Friday, 09:00-17:00 UTC.
func DefaultCalendar() Calendar {
	return Calendar{
		StartHour: 9,
		EndHour:   17,
		WorkDays:  []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday},
		Location:  time.UTC,
	}
}

// Validate checks the calendar has a non-empty window on at least one day.
func (c Calendar) Validate() error {
	if c.StartHour < 0 || c.StartHour > 23 {
		return fmt.Errorf("start hour %d out of range", c.StartHour)
	}
	if c.EndHour < 1 || c.EndHour > 24 {
		return fmt.Errorf("end hour %d out of range", c.EndHour)
	}
	if c.StartHour >= c.EndHour {
		return fmt.Errorf("start hour %d must be before end hour %d", c.StartHour, c.EndHour)
	}
	if len(c.WorkDays) == 0 {
		return fmt.Errorf("at least one work day required")
	}
	return nil
}

// orDefault substitutes the default calendar for an unusable one so deadline
// walks always terminate.
func (c Calendar) orDefault() Calendar {
	if c.Validate() != nil {
		return DefaultCalendar()
	}
	return c
}

func (c Calendar) location() *time.Location {
	if c.Location == nil {
		return time.UTC
	}
	return c.Location
}

func (c Calendar) isWorkDay(day time.Weekday) bool {
	for _, d := range c.WorkDays {
		if d == day {
			return true
		}
	}
	return false
}

func (c Calendar) dayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.StartHour, 0, 0, 0, t.Location())
}

func (c Calendar) dayEnd(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, c.EndHour, 0, 0, 0, t.Location())
}

// nextWorkDayStart returns the opening instant of the first work day after t's date.
func (c Calendar) nextWorkDayStart(t time.Time) time.Time {
	y, m, d := t.Date()
	day := time.Date(y, m, d, 12, 0, 0, 0, t.Location())
	for i := 0; i < 7; i++ {
		day = day.AddDate(0, 0, 1)
		if c.isWorkDay(day.Weekday()) {
			return c.dayStart(day)
		}
	}
	return c.dayStart(day)
}

// clamp moves t into the business window: before opening snaps to opening,
// after closing or on a non-work day snaps to the next work day's opening.
func (c Calendar) clamp(t time.Time) time.Time {
	if c.isWorkDay(t.Weekday()) {
		start := c.dayStart(t)
		if t.Before(start) {
			return start
		}
		if t.Before(c.dayEnd(t)) {
			return t
		}
	}
	return c.nextWorkDayStart(t)
}

// ParseWorkDays accepts weekday numbers (0=Sunday) or English day names.
func ParseWorkDays(values []string) ([]time.Weekday, error) {
	days := make([]time.Weekday, 0, len(values))
	seen := map[time.Weekday]bool{}
	for _, raw := range values {
		value := strings.ToLower(strings.TrimSpace(raw))
		if value == "" {
			continue
		}
		day, ok := parseWeekday(value)
		if !ok {
			return nil, fmt.Errorf("unknown work day %q", raw)
		}
		if !seen[day] {
			seen[day] = true
			days = append(days, day)
		}
	}
	return days, nil
}

func parseWeekday(value string) (time.Weekday, bool) {
	if n, err := strconv.Atoi(value); err == nil {
		if n < 0 || n > 6 {
			return 0, false
		}
		return time.Weekday(n), true
	}
	for d := time.Sunday; d <= time.Saturday; d++ {
		name := strings.ToLower(d.String())
		if value == name || value == name[:3] {
			return d, true
		}
	}
	return 0, false
}
