package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/database"
)

// EntryRepository handles timesheet entry data operations.
type EntryRepository struct {
	db *database.DB
}

// NewEntryRepository creates a new entry repository.
func NewEntryRepository(db *database.DB) *EntryRepository {
	return &EntryRepository{db: db}
}

const entryColumns = `
	e.id, e.user_id, u.username, e.project_id, p.name,
	e.work_date, e.start_time, e.end_time,
	e.break_minutes, e.duration_minutes, e.billable, e.notes,
	e.created_at, e.updated_at`

const entryFrom = `
	FROM timesheet_entries e
	JOIN users u ON u.id = e.user_id
	LEFT JOIN projects p ON p.id = e.project_id`

// SaveChecked inserts or updates an entry after running check against
// the user's other entries for the same work date. The candidate rows
// are locked for the duration of the transaction, so two concurrent
// saves cannot both pass the overlap check.
func (r *EntryRepository) SaveChecked(ctx context.Context, entry *TimesheetEntry, check func(existing []*TimesheetEntry) error) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		existing, err := lockDayEntries(ctx, tx, entry.UserID, entry.WorkDate, entry.ID)
		if err != nil {
			return err
		}
		if err := check(existing); err != nil {
			return err
		}

		if entry.ID == "" {
			query := `
				INSERT INTO timesheet_entries
				    (user_id, project_id, work_date, start_time, end_time,
				     break_minutes, duration_minutes, billable, notes)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
				RETURNING id, created_at, updated_at
			`
			err = tx.QueryRow(ctx, query,
				entry.UserID,
				entry.ProjectID,
				entry.WorkDate,
				entry.StartTime,
				entry.EndTime,
				entry.BreakMinutes,
				entry.DurationMinutes,
				entry.Billable,
				entry.Notes,
			).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
			if err != nil {
				return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create entry")
			}
			return nil
		}

		query := `
			UPDATE timesheet_entries
			SET project_id = $3,
			    work_date = $4,
			    start_time = $5,
			    end_time = $6,
			    break_minutes = $7,
			    duration_minutes = $8,
			    billable = $9,
			    notes = $10,
			    updated_at = NOW()
			WHERE id = $1 AND user_id = $2
			RETURNING created_at, updated_at
		`
		err = tx.QueryRow(ctx, query,
			entry.ID,
			entry.UserID,
			entry.ProjectID,
			entry.WorkDate,
			entry.StartTime,
			entry.EndTime,
			entry.BreakMinutes,
			entry.DurationMinutes,
			entry.Billable,
			entry.Notes,
		).Scan(&entry.CreatedAt, &entry.UpdatedAt)
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("entry", entry.ID)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update entry")
		}
		return nil
	})
}

// lockDayEntries selects the user's entries for one work date with a row
// lock, excluding excludeID when editing.
func lockDayEntries(ctx context.Context, tx pgx.Tx, userID, workDate, excludeID string) ([]*TimesheetEntry, error) {
	query := `
		SELECT id, user_id, project_id, work_date, start_time, end_time,
		       break_minutes, duration_minutes, billable, notes,
		       created_at, updated_at
		FROM timesheet_entries
		WHERE user_id = $1 AND work_date = $2 AND ($3 = '' OR id::text <> $3)
		FOR UPDATE
	`
	rows, err := tx.Query(ctx, query, userID, workDate, excludeID)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to lock day entries")
	}
	defer rows.Close()

	entries := make([]*TimesheetEntry, 0)
	for rows.Next() {
		e := &TimesheetEntry{}
		var workDay time.Time
		err := rows.Scan(
			&e.ID, &e.UserID, &e.ProjectID, &workDay, &e.StartTime, &e.EndTime,
			&e.BreakMinutes, &e.DurationMinutes, &e.Billable, &e.Notes,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan day entry")
		}
		e.WorkDate = workDay.Format("2006-01-02")
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// StartTimer inserts a running entry for the user, failing when another
// running entry exists. The existence check and the insert share one
// transaction holding a lock on the user's running rows.
func (r *EntryRepository) StartTimer(ctx context.Context, entry *TimesheetEntry) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var runningID string
		err := tx.QueryRow(ctx, `
			SELECT id FROM timesheet_entries
			WHERE user_id = $1 AND end_time IS NULL
			ORDER BY start_time DESC
			LIMIT 1
			FOR UPDATE
		`, entry.UserID).Scan(&runningID)
		if err == nil {
			return apperrors.New(apperrors.ErrCodeTimerRunning, "you already have a running timer")
		}
		if err != pgx.ErrNoRows {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check running timer")
		}

		query := `
			INSERT INTO timesheet_entries
			    (user_id, project_id, work_date, start_time, duration_minutes, billable, notes)
			VALUES ($1, $2, $3, $4, 0, $5, $6)
			RETURNING id, created_at, updated_at
		`
		err = tx.QueryRow(ctx, query,
			entry.UserID,
			entry.ProjectID,
			entry.WorkDate,
			entry.StartTime,
			entry.Billable,
			entry.Notes,
		).Scan(&entry.ID, &entry.CreatedAt, &entry.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to start timer")
		}
		return nil
	})
}

// StopTimer loads the entry under a row lock, applies stop to set the
// end time and duration, and persists the result.
func (r *EntryRepository) StopTimer(ctx context.Context, id, userID string, stop func(e *TimesheetEntry) error) (*TimesheetEntry, error) {
	var stopped *TimesheetEntry
	err := r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		e := &TimesheetEntry{}
		var workDay time.Time
		err := tx.QueryRow(ctx, `
			SELECT id, user_id, project_id, work_date, start_time, end_time,
			       break_minutes, duration_minutes, billable, notes,
			       created_at, updated_at
			FROM timesheet_entries
			WHERE id = $1 AND user_id = $2
			FOR UPDATE
		`, id, userID).Scan(
			&e.ID, &e.UserID, &e.ProjectID, &workDay, &e.StartTime, &e.EndTime,
			&e.BreakMinutes, &e.DurationMinutes, &e.Billable, &e.Notes,
			&e.CreatedAt, &e.UpdatedAt,
		)
		if err == pgx.ErrNoRows {
			return apperrors.NotFound("entry", id)
		}
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to load entry")
		}
		e.WorkDate = workDay.Format("2006-01-02")

		if err := stop(e); err != nil {
			return err
		}

		_, err = tx.Exec(ctx, `
			UPDATE timesheet_entries
			SET end_time = $3, duration_minutes = $4, updated_at = NOW()
			WHERE id = $1 AND user_id = $2
		`, id, userID, e.EndTime, e.DurationMinutes)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to stop timer")
		}
		stopped = e
		return nil
	})
	return stopped, err
}

// GetByID retrieves one entry owned by userID.
func (r *EntryRepository) GetByID(ctx context.Context, id, userID string) (*TimesheetEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.id = $1 AND e.user_id = $2`

	e, err := scanEntry(r.db.QueryRow(ctx, query, id, userID))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("entry", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get entry")
	}
	return e, nil
}

// Delete removes an entry owned by userID.
func (r *EntryRepository) Delete(ctx context.Context, id, userID string) error {
	tag, err := r.db.Exec(ctx,
		`DELETE FROM timesheet_entries WHERE id = $1 AND user_id = $2`, id, userID)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete entry")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("entry", id)
	}
	return nil
}

// List retrieves entries matching the filter ordered by work date then
// start time. The result is a materialized slice, never a cursor.
func (r *EntryRepository) List(ctx context.Context, f EntryFilter) ([]*TimesheetEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.work_date >= $1 AND e.work_date <= $2`

	args := []any{f.StartDate, f.EndDate}
	argCount := 3

	if f.UserID != nil {
		query += fmt.Sprintf(" AND e.user_id = $%d", argCount)
		args = append(args, *f.UserID)
		argCount++
	}
	if f.ProjectID != nil {
		query += fmt.Sprintf(" AND e.project_id = $%d", argCount)
		args = append(args, *f.ProjectID)
		argCount++
	}
	if f.EmployeesOnly {
		query += " AND u.role = 'employee'"
	}

	query += " ORDER BY e.work_date, e.start_time"

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list entries")
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Recent retrieves the user's newest entries, most recent first.
func (r *EntryRepository) Recent(ctx context.Context, userID string, limit int) ([]*TimesheetEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.user_id = $1
		ORDER BY e.work_date DESC, e.start_time DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, userID, limit)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list recent entries")
	}
	defer rows.Close()

	return scanEntries(rows)
}

// Running returns the user's running entry, or nil when none exists.
func (r *EntryRepository) Running(ctx context.Context, userID string) (*TimesheetEntry, error) {
	query := `SELECT` + entryColumns + entryFrom + `
		WHERE e.user_id = $1 AND e.end_time IS NULL
		ORDER BY e.start_time DESC
		LIMIT 1`

	e, err := scanEntry(r.db.QueryRow(ctx, query, userID))
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get running entry")
	}
	return e, nil
}

// DailyTotals sums stored duration minutes per work date in the range.
func (r *EntryRepository) DailyTotals(ctx context.Context, userID, startDate, endDate string) ([]DayTotal, error) {
	rows, err := r.db.Query(ctx, `
		SELECT work_date, COALESCE(SUM(duration_minutes), 0)
		FROM timesheet_entries
		WHERE user_id = $1 AND work_date >= $2 AND work_date <= $3
		GROUP BY work_date
		ORDER BY work_date
	`, userID, startDate, endDate)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to sum daily totals")
	}
	defer rows.Close()

	totals := make([]DayTotal, 0)
	for rows.Next() {
		var day time.Time
		var minutes int
		if err := rows.Scan(&day, &minutes); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan daily total")
		}
		totals = append(totals, DayTotal{Date: day.Format("2006-01-02"), Minutes: minutes})
	}
	return totals, rows.Err()
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type entryScanner interface {
	Scan(dest ...any) error
}

func scanEntry(sc entryScanner) (*TimesheetEntry, error) {
	e := &TimesheetEntry{}
	var workDay time.Time
	err := sc.Scan(
		&e.ID, &e.UserID, &e.Username, &e.ProjectID, &e.ProjectName,
		&workDay, &e.StartTime, &e.EndTime,
		&e.BreakMinutes, &e.DurationMinutes, &e.Billable, &e.Notes,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.WorkDate = workDay.Format("2006-01-02")
	return e, nil
}

func scanEntries(rows pgx.Rows) ([]*TimesheetEntry, error) {
	entries := make([]*TimesheetEntry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan entry")
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
