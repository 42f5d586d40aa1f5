package models

import "time"

// RecurrenceType enumerates the supported repeat rules.
type RecurrenceType string

const (
	RecurrenceOnce     RecurrenceType = "once"
	RecurrenceDaily    RecurrenceType = "daily"
	RecurrenceWeekly   RecurrenceType = "weekly"
	RecurrenceWeekdays RecurrenceType = "weekdays"
	RecurrenceWeekends RecurrenceType = "weekends"
)

// Recurrence describes when a job fires. Weekdays use 0=Sunday..6=Saturday.
type Recurrence struct {
	Type     RecurrenceType `json:"type"`
	Time     string         `json:"time"` // "HH:MM"
	Weekday  *int           `json:"weekday,omitempty"`
	Weekdays []int          `json:"weekdays,omitempty"`
}

// ScheduledJob fires a (device, action) pair on a recurrence.
// Next fire time is always derived and never stored.
type ScheduledJob struct {
	ID         string     `json:"id"`
	Name       string     `json:"name"`
	DeviceID   string     `json:"device_id"`
	ActionID   string     `json:"action_id"`
	Recurrence Recurrence `json:"recurrence"`
	Enabled    bool       `json:"enabled"`
	CreatedAt  time.Time  `json:"created_at"`
	UpdatedAt  time.Time  `json:"updated_at"`
}
