package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"home_dispatch/internal/models"
)

// ErrNotFound is returned when a row addressed by id does not exist.
var ErrNotFound = errors.New("not found")

type Authorization interface {
	Create(ctx context.Context, username, hash string) (int, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// ExecutionFilter narrows an execution log listing. Zero values mean no filter.
type ExecutionFilter struct {
	From     time.Time
	To       time.Time
	Source   models.Source
	Status   models.ResolutionStatus
	DeviceID string
	Limit    int
}

// ExecutionRepo is append-only: records are never updated or deleted.
type ExecutionRepo interface {
	Append(ctx context.Context, rec models.ExecutionRecord) error
	List(ctx context.Context, f ExecutionFilter) ([]models.ExecutionRecord, error)
}

type ScheduleRepo interface {
	Create(ctx context.Context, job models.ScheduledJob) error
	Update(ctx context.Context, job models.ScheduledJob) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (models.ScheduledJob, error)
	List(ctx context.Context) ([]models.ScheduledJob, error)
}

type Repository struct {
	Executions ExecutionRepo
	Schedules  ScheduleRepo
	Auth       Authorization
}

func NewRepository(db *sql.DB) *Repository {
	return &Repository{
		Executions: NewExecutionSQLite(db),
		Schedules:  NewScheduleSQLite(db),
		Auth:       NewUserRepository(db),
	}
}

// timeLayout is fixed width so stored timestamps sort lexicographically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

func formatTime(t time.Time) string { return t.UTC().Format(timeLayout) }

func parseTime(s string) (time.Time, error) {
	t, err := time.Parse(timeLayout, s)
	if err != nil {
		// rows written by hand may use plain RFC 3339
		t, err = time.Parse(time.RFC3339Nano, s)
	}
	return t.UTC(), err
}
