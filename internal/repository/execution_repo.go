package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"home_dispatch/internal/models"
)

type ExecutionSQLite struct {
	db *sql.DB
}

func NewExecutionSQLite(db *sql.DB) *ExecutionSQLite { return &ExecutionSQLite{db: db} }

var _ ExecutionRepo = (*ExecutionSQLite)(nil)

const (
	defaultListLimit = 100
	maxListLimit     = 1000

	insertExecutionSQL = `
		INSERT INTO execution_records (id, occurred_at, source, instruction, status, device_id, action_id, resolution, dispatch)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	selectExecutionsSQL = `SELECT id, occurred_at, source, instruction, resolution, dispatch FROM execution_records`
)

// Append inserts a record. Missing ID and OccurredAt are filled in.
func (r *ExecutionSQLite) Append(ctx context.Context, rec models.ExecutionRecord) error {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.OccurredAt.IsZero() {
		rec.OccurredAt = time.Now().UTC()
	}

	resolution, err := json.Marshal(rec.Resolution)
	if err != nil {
		return fmt.Errorf("marshal resolution: %w", err)
	}
	var dispatch *string
	if rec.Dispatch != nil {
		b, err := json.Marshal(rec.Dispatch)
		if err != nil {
			return fmt.Errorf("marshal dispatch: %w", err)
		}
		s := string(b)
		dispatch = &s
	}

	_, err = r.db.ExecContext(ctx, insertExecutionSQL,
		rec.ID,
		formatTime(rec.OccurredAt),
		string(rec.Source),
		rec.Instruction,
		string(rec.Resolution.Status),
		nullIfEmpty(rec.Resolution.DeviceID),
		nullIfEmpty(rec.Resolution.ActionID),
		string(resolution),
		dispatch,
	)
	if err != nil {
		return fmt.Errorf("insert execution record %s: %w", rec.ID, err)
	}
	return nil
}

// List returns records matching f, newest first.
func (r *ExecutionSQLite) List(ctx context.Context, f ExecutionFilter) ([]models.ExecutionRecord, error) {
	var (
		conds []string
		args  []any
	)
	if !f.From.IsZero() {
		conds = append(conds, "occurred_at >= ?")
		args = append(args, formatTime(f.From))
	}
	if !f.To.IsZero() {
		conds = append(conds, "occurred_at <= ?")
		args = append(args, formatTime(f.To))
	}
	if f.Source != "" {
		conds = append(conds, "source = ?")
		args = append(args, string(f.Source))
	}
	if f.Status != "" {
		conds = append(conds, "status = ?")
		args = append(args, string(f.Status))
	}
	if f.DeviceID != "" {
		conds = append(conds, "device_id = ?")
		args = append(args, f.DeviceID)
	}

	limit := f.Limit
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}

	q := selectExecutionsSQL
	if len(conds) > 0 {
		q += " WHERE " + strings.Join(conds, " AND ")
	}
	q += " ORDER BY occurred_at DESC, rowid DESC LIMIT ?"
	args = append(args, limit)

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("query execution records: %w", err)
	}
	defer rows.Close()

	out := make([]models.ExecutionRecord, 0, 64)
	for rows.Next() {
		var (
			rec        models.ExecutionRecord
			occurredAt string
			source     string
			resolution string
			dispatch   sql.NullString
		)
		if err := rows.Scan(&rec.ID, &occurredAt, &source, &rec.Instruction, &resolution, &dispatch); err != nil {
			return nil, fmt.Errorf("scan execution record: %w", err)
		}
		if rec.OccurredAt, err = parseTime(occurredAt); err != nil {
			return nil, fmt.Errorf("record %s: occurred_at: %w", rec.ID, err)
		}
		rec.Source = models.Source(source)
		if err := json.Unmarshal([]byte(resolution), &rec.Resolution); err != nil {
			return nil, fmt.Errorf("record %s: resolution: %w", rec.ID, err)
		}
		if dispatch.Valid && dispatch.String != "" {
			var d models.DispatchOutcome
			if err := json.Unmarshal([]byte(dispatch.String), &d); err != nil {
				return nil, fmt.Errorf("record %s: dispatch: %w", rec.ID, err)
			}
			rec.Dispatch = &d
		}
		out = append(out, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func nullIfEmpty(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
