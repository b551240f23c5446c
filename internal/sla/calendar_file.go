package sla

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/spec-kit/incident-service/internal/config"
)

// CalendarSpec is the YAML form of a Calendar.
type CalendarSpec struct {
	// StartHour is the opening hour, 0-23.
	StartHour int `yaml:"start_hour"`

	// EndHour is the exclusive closing hour, 1-24.
	EndHour int `yaml:"end_hour"`

	// WorkDays accepts day names ("mon", "tuesday") or numbers (0=Sunday).
	WorkDays []string `yaml:"work_days"`

	// Timezone is an IANA zone name. Empty means UTC.
	Timezone string `yaml:"timezone"`
}

// CalendarFile is the top-level layout of SLA_CALENDAR_FILE.
type CalendarFile struct {
	Default       *CalendarSpec           `yaml:"default"`
	Organizations map[string]CalendarSpec `yaml:"organizations"`
}

// CalendarSet resolves the business calendar for a tenant.
type CalendarSet struct {
	fallback Calendar
	byOrg    map[string]Calendar
}

// NewCalendarSet returns a set where every tenant uses fallback.
func NewCalendarSet(fallback Calendar) *CalendarSet {
	return &CalendarSet{fallback: fallback, byOrg: map[string]Calendar{}}
}

// For returns the calendar configured for organizationID.
func (s *CalendarSet) For(organizationID string) Calendar {
	if s == nil {
		return DefaultCalendar()
	}
	if cal, ok := s.byOrg[organizationID]; ok {
		return cal
	}
	return s.fallback
}

// Set overrides the calendar of one tenant.
func (s *CalendarSet) Set(organizationID string, cal Calendar) {
	s.byOrg[organizationID] = cal
}

// Build converts the entry into a validated Calendar.
func (cs CalendarSpec) Build() (Calendar, error) {
	days, err := ParseWorkDays(cs.WorkDays)
	if err != nil {
		return Calendar{}, err
	}
	loc := time.UTC
	if cs.Timezone != "" {
		loc, err = time.LoadLocation(cs.Timezone)
		if err != nil {
			return Calendar{}, fmt.Errorf("load timezone %q: %w", cs.Timezone, err)
		}
	}
	cal := Calendar{StartHour: cs.StartHour, EndHour: cs.EndHour, WorkDays: days, Location: loc}
	if err := cal.Validate(); err != nil {
		return Calendar{}, err
	}
	return cal, nil
}

// ParseCalendarFile decodes YAML calendar definitions.
func ParseCalendarFile(data []byte, fallback Calendar) (*CalendarSet, error) {
	var file CalendarFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("parse calendar file: %w", err)
	}
	if file.Default != nil {
		cal, err := file.Default.Build()
		if err != nil {
			return nil, fmt.Errorf("default calendar: %w", err)
		}
		fallback = cal
	}
	set := NewCalendarSet(fallback)
	for orgID, entry := range file.Organizations {
		cal, err := entry.Build()
		if err != nil {
			return nil, fmt.Errorf("calendar for %s: %w", orgID, err)
		}
		set.Set(orgID, cal)
	}
	return set, nil
}

// LoadCalendars builds the calendar set from configuration: the env calendar
// as default, overlaid by the optional YAML file.
func LoadCalendars(cfg config.SLAConfig) (*CalendarSet, error) {
	workDays := make([]string, 0, len(cfg.WorkDays))
	for _, d := range cfg.WorkDays {
		workDays = append(workDays, strconv.Itoa(d))
	}
	fallback, err := CalendarSpec{
		StartHour: cfg.BusinessStartHour,
		EndHour:   cfg.BusinessEndHour,
		WorkDays:  workDays,
		Timezone:  cfg.Timezone,
	}.Build()
	if err != nil {
		return nil, fmt.Errorf("env calendar: %w", err)
	}
	if strings.TrimSpace(cfg.CalendarFile) == "" {
		return NewCalendarSet(fallback), nil
	}
	data, err := os.ReadFile(cfg.CalendarFile)
	if err != nil {
		return nil, fmt.Errorf("read calendar file: %w", err)
	}
	return ParseCalendarFile(data, fallback)
}
