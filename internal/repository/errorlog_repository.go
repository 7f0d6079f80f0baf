package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/refstore/referral-engine/internal/model"
)

// ErrorLogRepo persists operational error reports in the `error_logs`
// table so they survive restarts and are visible from every instance.
type ErrorLogRepo struct{ DB *sql.DB }

// NewErrorLogRepo returns a new ErrorLogRepo bound to the given database.
func NewErrorLogRepo(db *sql.DB) *ErrorLogRepo { return &ErrorLogRepo{DB: db} }

// Insert stores a single entry. CreatedAt defaults to now when unset.
func (r *ErrorLogRepo) Insert(ctx context.Context, e model.ErrorLogEntry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := r.DB.ExecContext(ctx,
		`INSERT INTO error_logs (severity, source, message, context, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		e.Severity, e.Source, e.Message, e.Context, e.CreatedAt)
	return err
}

// List returns entries newest first, optionally filtered by severity,
// with limit/offset paging. It also returns the total row count for the
// filter so callers can page.
func (r *ErrorLogRepo) List(ctx context.Context, severity string, limit, offset int) ([]model.ErrorLogEntry, int, error) {
	where := ""
	args := []any{}
	if severity != "" {
		where = " WHERE severity = ?"
		args = append(args, severity)
	}

	var total int
	if err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM error_logs"+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	rows, err := r.DB.QueryContext(ctx,
		`SELECT id, severity, source, message, context, created_at FROM error_logs`+
			where+` ORDER BY created_at DESC, id DESC LIMIT ? OFFSET ?`, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()
	out := make([]model.ErrorLogEntry, 0, limit)
	for rows.Next() {
		var e model.ErrorLogEntry
		if err := rows.Scan(&e.ID, &e.Severity, &e.Source, &e.Message, &e.Context, &e.CreatedAt); err != nil {
			return nil, 0, err
		}
		out = append(out, e)
	}
	return out, total, rows.Err()
}

// CountsBySeverity returns the entry count per severity across the
// whole table, used for the error log summary block.
func (r *ErrorLogRepo) CountsBySeverity(ctx context.Context) (map[string]int, error) {
	rows, err := r.DB.QueryContext(ctx,
		"SELECT severity, COUNT(*) FROM error_logs GROUP BY severity")
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[string]int)
	for rows.Next() {
		var sev string
		var n int
		if err := rows.Scan(&sev, &n); err != nil {
			return nil, err
		}
		counts[sev] = n
	}
	return counts, rows.Err()
}

// CountSince counts entries created at or after the given time. The
// health monitor uses a one hour window.
func (r *ErrorLogRepo) CountSince(ctx context.Context, since time.Time) (int, error) {
	var n int
	err := r.DB.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM error_logs WHERE created_at >= ?", since).Scan(&n)
	return n, err
}
