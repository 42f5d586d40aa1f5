package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"home_dispatch/internal/models"
)

type ScheduleSQLite struct {
	db *sql.DB
}

func NewScheduleSQLite(db *sql.DB) *ScheduleSQLite {
	return &ScheduleSQLite{db: db}
}

var _ ScheduleRepo = (*ScheduleSQLite)(nil)

const (
	insertJobSQL = `
		INSERT INTO scheduled_jobs (id, name, device_id, action_id, recurrence, enabled, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`

	updateJobSQL = `
		UPDATE scheduled_jobs
		SET name=?, device_id=?, action_id=?, recurrence=?, enabled=?, updated_at=?
		WHERE id=?
	`

	deleteJobSQL = `DELETE FROM scheduled_jobs WHERE id=?`

	selectJobColumns = `SELECT id, name, device_id, action_id, recurrence, enabled, created_at, updated_at FROM scheduled_jobs`
	selectJobSQL     = selectJobColumns + ` WHERE id=?`
	selectJobsSQL    = selectJobColumns + ` ORDER BY created_at ASC, id ASC`
)

// marshalRecurrence converts the recurrence to its JSON column form.
func marshalRecurrence(r models.Recurrence) (string, error) {
	b, err := json.Marshal(r)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// unmarshalRecurrence parses the JSON column form.
func unmarshalRecurrence(s string) (models.Recurrence, error) {
	var r models.Recurrence
	if err := json.Unmarshal([]byte(s), &r); err != nil {
		return models.Recurrence{}, err
	}
	return r, nil
}

func (r *ScheduleSQLite) Create(ctx context.Context, job models.ScheduledJob) error {
	rec, err := marshalRecurrence(job.Recurrence)
	if err != nil {
		return err
	}
	_, err = r.db.ExecContext(ctx, insertJobSQL,
		job.ID, job.Name, job.DeviceID, job.ActionID, rec, job.Enabled,
		formatTime(job.CreatedAt), formatTime(job.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("insert scheduled job %s: %w", job.ID, err)
	}
	return nil
}

func (r *ScheduleSQLite) Update(ctx context.Context, job models.ScheduledJob) error {
	rec, err := marshalRecurrence(job.Recurrence)
	if err != nil {
		return err
	}
	res, err := r.db.ExecContext(ctx, updateJobSQL,
		job.Name, job.DeviceID, job.ActionID, rec, job.Enabled, formatTime(job.UpdatedAt), job.ID,
	)
	if err != nil {
		return fmt.Errorf("update scheduled job %s: %w", job.ID, err)
	}
	return expectOneRow(res, job.ID)
}

func (r *ScheduleSQLite) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, deleteJobSQL, id)
	if err != nil {
		return fmt.Errorf("delete scheduled job %s: %w", id, err)
	}
	return expectOneRow(res, id)
}

func (r *ScheduleSQLite) Get(ctx context.Context, id string) (models.ScheduledJob, error) {
	job, err := scanJob(r.db.QueryRowContext(ctx, selectJobSQL, id))
	if errors.Is(err, sql.ErrNoRows) {
		return models.ScheduledJob{}, fmt.Errorf("scheduled job %s: %w", id, ErrNotFound)
	}
	return job, err
}

func (r *ScheduleSQLite) List(ctx context.Context) ([]models.ScheduledJob, error) {
	rows, err := r.db.QueryContext(ctx, selectJobsSQL)
	if err != nil {
		return nil, fmt.Errorf("query scheduled jobs: %w", err)
	}
	defer rows.Close()

	var out []models.ScheduledJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, job)
	}
	return out, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (models.ScheduledJob, error) {
	var (
		job                  models.ScheduledJob
		rec                  string
		createdAt, updatedAt string
	)
	if err := row.Scan(&job.ID, &job.Name, &job.DeviceID, &job.ActionID, &rec, &job.Enabled, &createdAt, &updatedAt); err != nil {
		return models.ScheduledJob{}, err
	}
	var err error
	if job.Recurrence, err = unmarshalRecurrence(rec); err != nil {
		return models.ScheduledJob{}, fmt.Errorf("scheduled job %s: recurrence: %w", job.ID, err)
	}
	if job.CreatedAt, err = parseTime(createdAt); err != nil {
		return models.ScheduledJob{}, fmt.Errorf("scheduled job %s: created_at: %w", job.ID, err)
	}
	if job.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return models.ScheduledJob{}, fmt.Errorf("scheduled job %s: updated_at: %w", job.ID, err)
	}
	return job, nil
}

func expectOneRow(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("scheduled job %s: %w", id, ErrNotFound)
	}
	return nil
}
