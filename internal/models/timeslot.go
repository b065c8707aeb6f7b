package models

import (
	"fmt"
	"strings"
	"time"
)

// DayOfWeek is the weekday a recurring slot repeats on.
type DayOfWeek string

const (
	Monday    DayOfWeek = "MONDAY"
	Tuesday   DayOfWeek = "TUESDAY"
	Wednesday DayOfWeek = "WEDNESDAY"
	Thursday  DayOfWeek = "THURSDAY"
	Friday    DayOfWeek = "FRIDAY"
	Saturday  DayOfWeek = "SATURDAY"
	Sunday    DayOfWeek = "SUNDAY"
)

var weekdays = map[DayOfWeek]struct{}{
	Monday:    {},
	Tuesday:   {},
	Wednesday: {},
	Thursday:  {},
	Friday:    {},
	Saturday:  {},
	Sunday:    {},
}

// ParseDayOfWeek accepts the enum name in any case.
func ParseDayOfWeek(s string) (DayOfWeek, error) {
	d := DayOfWeek(strings.ToUpper(strings.TrimSpace(s)))
	if !d.Valid() {
		return "", fmt.Errorf("invalid day of week %q", s)
	}
	return d, nil
}

func (d DayOfWeek) Valid() bool {
	_, ok := weekdays[d]
	return ok
}

// TimeOfDay is a wall-clock time expressed in minutes after midnight.
type TimeOfDay int

const (
	timeOfDayLayout = "15:04"

	// endOfDay is accepted as a slot end only.
	endOfDay TimeOfDay = 24 * 60
)

// ParseTimeOfDay parses "HH:MM" (seconds are accepted and dropped).
func ParseTimeOfDay(s string) (TimeOfDay, error) {
	s = strings.TrimSpace(s)
	if s == "24:00" || s == "24:00:00" {
		return endOfDay, nil
	}
	layout := timeOfDayLayout
	if strings.Count(s, ":") == 2 {
		layout = "15:04:05"
	}
	t, err := time.Parse(layout, s)
	if err != nil {
		return 0, fmt.Errorf("invalid time of day %q; expected HH:MM", s)
	}
	return TimeOfDay(t.Hour()*60 + t.Minute()), nil
}

// MustTimeOfDay is ParseTimeOfDay for literals.
func MustTimeOfDay(s string) TimeOfDay {
	t, err := ParseTimeOfDay(s)
	if err != nil {
		panic(err)
	}
	return t
}

func (t TimeOfDay) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

func (t TimeOfDay) MarshalText() ([]byte, error) {
	return []byte(t.String()), nil
}

func (t *TimeOfDay) UnmarshalText(b []byte) error {
	parsed, err := ParseTimeOfDay(string(b))
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimeSlot is a recurring weekly interval. Once referenced by a reservation
// it is never modified.
type TimeSlot struct {
	ID        int64     `json:"id" yaml:"id"`
	DayOfWeek DayOfWeek `json:"day_of_week" yaml:"day_of_week"`
	StartTime TimeOfDay `json:"start_time" yaml:"start_time"`
	EndTime   TimeOfDay `json:"end_time" yaml:"end_time"`
}

// Overlaps reports whether both slots share a day and their half-open
// [start, end) intervals intersect. Touching boundaries do not overlap.
func (s TimeSlot) Overlaps(other TimeSlot) bool {
	if s.DayOfWeek != other.DayOfWeek {
		return false
	}
	return s.StartTime < other.EndTime && other.StartTime < s.EndTime
}

// Validate checks the invariants enforced when a slot is created.
func (s TimeSlot) Validate() error {
	if !s.DayOfWeek.Valid() {
		return fmt.Errorf("invalid day of week %q", s.DayOfWeek)
	}
	if s.StartTime < 0 || s.StartTime >= endOfDay || s.EndTime > endOfDay {
		return fmt.Errorf("time out of range")
	}
	if s.StartTime >= s.EndTime {
		return fmt.Errorf("start time %s must be before end time %s", s.StartTime, s.EndTime)
	}
	return nil
}

func (s TimeSlot) String() string {
	return fmt.Sprintf("%s %s-%s", s.DayOfWeek, s.StartTime, s.EndTime)
}
