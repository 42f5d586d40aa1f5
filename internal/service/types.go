package service

import (
	"errors"
	"time"

	"home_dispatch/internal/models"
)

var (
	// ErrNotFound wraps lookups of devices, actions or jobs that do not exist.
	ErrNotFound = errors.New("not found")
	// ErrInvalidInput wraps request validation failures.
	ErrInvalidInput = errors.New("invalid input")
)

// ActionRequest triggers a known (device, action) pair.
type ActionRequest struct {
	DeviceID string
	ActionID string
	Source   models.Source
	Label    string // recorded as the instruction text; defaults to the action name
}

// DispatchRequest is a resolved pair ready for rendering and submission.
type DispatchRequest struct {
	Instruction string
	Source      models.Source
	Device      models.Device
	Action      models.Action
	Resolution  models.Resolution
}

// Preview is a dry-run resolution.
type Preview struct {
	Resolution models.Resolution `json:"resolution"`
	Command    string            `json:"command,omitempty"`
}

// LogFilter supports history filtering by time range, source and outcome.
type LogFilter struct {
	From     time.Time // inclusive; zero means no lower bound
	To       time.Time // inclusive; zero means no upper bound
	Source   string    // "", "panel", "voice", "scheduler"
	Status   string    // "", "matched", "unresolved"
	DeviceID string
	Limit    int
}

// JobInput creates or updates a scheduled job. A nil Enabled keeps the
// current value on update and defaults to true on create.
type JobInput struct {
	Name       string            `json:"name"`
	DeviceID   string            `json:"device_id"`
	ActionID   string            `json:"action_id"`
	Recurrence models.Recurrence `json:"recurrence"`
	Enabled    *bool             `json:"enabled"`
}

// JobState is the scheduler's view of one job.
type JobState string

const (
	JobIdle        JobState = "idle"
	JobDue         JobState = "due"
	JobDispatching JobState = "dispatching"
)

// JobStatus is a read-only snapshot of a registered job.
type JobStatus struct {
	JobID        string     `json:"job_id"`
	State        JobState   `json:"state"`
	Enabled      bool       `json:"enabled"`
	NextFire     *time.Time `json:"next_fire,omitempty"`
	LastFire     *time.Time `json:"last_fire,omitempty"`
	LastRecordID string     `json:"last_record_id,omitempty"`
	LastError    string     `json:"last_error,omitempty"`
}

// JobView is a job enriched for listings.
type JobView struct {
	models.ScheduledJob
	DeviceName  string     `json:"device_name,omitempty"`
	ActionName  string     `json:"action_name,omitempty"`
	Description string     `json:"description"`
	State       JobState   `json:"state"`
	NextFire    *time.Time `json:"next_fire,omitempty"`
}
