// Package schedule computes fire instants for scheduled job recurrences.
package schedule

import (
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"home_dispatch/internal/models"
)

var ErrInvalidRecurrence = errors.New("invalid recurrence")

// ParseClock parses "HH:MM" in 24-hour form.
func ParseClock(s string) (hour, minute int, err error) {
	hh, mm, ok := strings.Cut(strings.TrimSpace(s), ":")
	if !ok || len(hh) == 0 || len(hh) > 2 || len(mm) != 2 {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidRecurrence, s)
	}
	hour, err1 := strconv.Atoi(hh)
	minute, err2 := strconv.Atoi(mm)
	if err1 != nil || err2 != nil || hour < 0 || hour > 23 || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("%w: time %q is not HH:MM", ErrInvalidRecurrence, s)
	}
	return hour, minute, nil
}

// Days returns the weekdays a recurrence may fire on, sorted.
func Days(r models.Recurrence) ([]time.Weekday, error) {
	switch r.Type {
	case models.RecurrenceOnce, models.RecurrenceDaily:
		return []time.Weekday{0, 1, 2, 3, 4, 5, 6}, nil
	case models.RecurrenceWeekdays:
		return []time.Weekday{time.Monday, time.Tuesday, time.Wednesday, time.Thursday, time.Friday}, nil
	case models.RecurrenceWeekends:
		return []time.Weekday{time.Sunday, time.Saturday}, nil
	case models.RecurrenceWeekly:
		raw := r.Weekdays
		if len(raw) == 0 && r.Weekday != nil {
			raw = []int{*r.Weekday}
		}
		if len(raw) == 0 {
			return nil, fmt.Errorf("%w: weekly needs weekday or weekdays", ErrInvalidRecurrence)
		}
		seen := map[int]bool{}
		var out []time.Weekday
		for _, d := range raw {
			if d < 0 || d > 6 {
				return nil, fmt.Errorf("%w: weekday %d out of range 0-6", ErrInvalidRecurrence, d)
			}
			if !seen[d] {
				seen[d] = true
				out = append(out, time.Weekday(d))
			}
		}
		sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
		return out, nil
	default:
		return nil, fmt.Errorf("%w: unknown type %q", ErrInvalidRecurrence, r.Type)
	}
}

// Validate checks the recurrence without computing a fire time.
func Validate(r models.Recurrence) error {
	if _, _, err := ParseClock(r.Time); err != nil {
		return err
	}
	_, err := Days(r)
	return err
}

// Next returns the first fire instant strictly after the given instant, in loc.
func Next(r models.Recurrence, after time.Time, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	hour, minute, err := ParseClock(r.Time)
	if err != nil {
		return time.Time{}, err
	}
	days, err := Days(r)
	if err != nil {
		return time.Time{}, err
	}
	allowed := [7]bool{}
	for _, d := range days {
		allowed[d] = true
	}

	local := after.In(loc)
	for i := 0; i <= 7; i++ {
		at := time.Date(local.Year(), local.Month(), local.Day()+i, hour, minute, 0, 0, loc)
		if at.After(after) && allowed[at.Weekday()] {
			return at, nil
		}
	}
	// unreachable for a non-empty day set
	return time.Time{}, fmt.Errorf("%w: no fire time within a week", ErrInvalidRecurrence)
}

// Describe renders a recurrence for listings, e.g. "weekly Mon,Fri 07:30".
func Describe(r models.Recurrence) string {
	switch r.Type {
	case models.RecurrenceWeekly:
		days, err := Days(r)
		if err != nil {
			return string(r.Type) + " " + r.Time
		}
		names := make([]string, len(days))
		for i, d := range days {
			names[i] = d.String()[:3]
		}
		return fmt.Sprintf("weekly %s %s", strings.Join(names, ","), r.Time)
	default:
		return string(r.Type) + " " + r.Time
	}
}
