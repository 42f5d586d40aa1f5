package repository

import (
	"database/sql"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"

	"home_dispatch/internal/models"
)

func newScheduleMock(t *testing.T) (*ScheduleSQLite, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock new: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("mock expectations: %v", err)
		}
		_ = db.Close()
	})
	return NewScheduleSQLite(db), mock
}

var jobColumns = []string{"id", "name", "device_id", "action_id", "recurrence", "enabled", "created_at", "updated_at"}

func sampleJob() models.ScheduledJob {
	created := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	return models.ScheduledJob{
		ID: "j1", Name: "morning ac", DeviceID: "living_room_ac", ActionID: "turn_on",
		Recurrence: models.Recurrence{Type: models.RecurrenceWeekdays, Time: "07:30"},
		Enabled:    true, CreatedAt: created, UpdatedAt: created,
	}
}

func TestScheduleCreate(t *testing.T) {
	t.Parallel()
	repo, mock := newScheduleMock(t)
	job := sampleJob()

	mock.ExpectExec(regexp.QuoteMeta(insertJobSQL)).
		WithArgs("j1", "morning ac", "living_room_ac", "turn_on",
			`{"type":"weekdays","time":"07:30"}`, true,
			"2026-10-01T00:00:00.000000000Z", "2026-10-01T00:00:00.000000000Z").
		WillReturnResult(sqlmock.NewResult(0, 1))

	if err := repo.Create(ctx(t), job); err != nil {
		t.Fatalf("Create: %v", err)
	}
}

func TestScheduleUpdate_NotFound(t *testing.T) {
	t.Parallel()
	repo, mock := newScheduleMock(t)

	mock.ExpectExec(regexp.QuoteMeta(updateJobSQL)).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(ctx(t), sampleJob())
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestScheduleDelete(t *testing.T) {
	t.Parallel()
	repo, mock := newScheduleMock(t)

	mock.ExpectExec(regexp.QuoteMeta(deleteJobSQL)).WithArgs("j1").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(regexp.QuoteMeta(deleteJobSQL)).WithArgs("j1").WillReturnResult(sqlmock.NewResult(0, 0))

	if err := repo.Delete(ctx(t), "j1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := repo.Delete(ctx(t), "j1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("second Delete: want ErrNotFound, got %v", err)
	}
}

func TestScheduleGet(t *testing.T) {
	t.Parallel()
	repo, mock := newScheduleMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectJobSQL)).WithArgs("j1").
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow("j1", "n", "d", "a",
			`{"type":"weekly","time":"06:00","weekdays":[1,3]}`, false,
			"2026-10-01T00:00:00Z", "2026-10-02T00:00:00Z"))
	mock.ExpectQuery(regexp.QuoteMeta(selectJobSQL)).WithArgs("missing").WillReturnError(sql.ErrNoRows)

	job, err := repo.Get(ctx(t), "j1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if job.Enabled || job.Recurrence.Type != models.RecurrenceWeekly || len(job.Recurrence.Weekdays) != 2 {
		t.Fatalf("unexpected job: %+v", job)
	}
	if !job.UpdatedAt.After(job.CreatedAt) {
		t.Fatalf("timestamps not parsed: %+v", job)
	}

	if _, err := repo.Get(ctx(t), "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("want ErrNotFound, got %v", err)
	}
}

func TestScheduleList_BadRecurrence(t *testing.T) {
	t.Parallel()
	repo, mock := newScheduleMock(t)

	mock.ExpectQuery(regexp.QuoteMeta(selectJobsSQL)).
		WillReturnRows(sqlmock.NewRows(jobColumns).AddRow("j1", "n", "d", "a", `{`, true, "2026-10-01T00:00:00Z", "2026-10-01T00:00:00Z"))

	if _, err := repo.List(ctx(t)); err == nil {
		t.Fatal("expected error for malformed recurrence")
	}
}
