package repository

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/database"
)

// WeekRepository handles week summary data operations.
type WeekRepository struct {
	db *database.DB
}

// NewWeekRepository creates a new week summary repository.
func NewWeekRepository(db *database.DB) *WeekRepository {
	return &WeekRepository{db: db}
}

const weekColumns = `
	w.id, w.user_id, u.username, w.week_start, w.status,
	w.approver_id, w.submitted_at, w.approved_at,
	w.audit_note, w.manager_comment, w.created_at, w.updated_at`

const weekFrom = `
	FROM week_summaries w
	JOIN users u ON u.id = w.user_id`

// GetOrCreate returns the summary for (user, weekStart), creating it in
// draft state when missing. Idempotent: the unique constraint plus
// ON CONFLICT DO NOTHING makes concurrent callers converge on one row.
func (r *WeekRepository) GetOrCreate(ctx context.Context, userID, weekStart string) (*WeekSummary, error) {
	_, err := r.db.Exec(ctx, `
		INSERT INTO week_summaries (user_id, week_start)
		VALUES ($1, $2)
		ON CONFLICT (user_id, week_start) DO NOTHING
	`, userID, weekStart)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create week summary")
	}

	query := `SELECT` + weekColumns + weekFrom + `
		WHERE w.user_id = $1 AND w.week_start = $2`

	w, err := scanWeek(r.db.QueryRow(ctx, query, userID, weekStart))
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get week summary")
	}
	return w, nil
}

// GetByID retrieves a week summary by ID.
func (r *WeekRepository) GetByID(ctx context.Context, id string) (*WeekSummary, error) {
	query := `SELECT` + weekColumns + weekFrom + `
		WHERE w.id = $1`

	w, err := scanWeek(r.db.QueryRow(ctx, query, id))
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("week summary", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get week summary")
	}
	return w, nil
}

// MarkSubmitted moves a draft week to submitted. The status guard in the
// WHERE clause makes the transition atomic; losing a race surfaces as
// the same AlreadySubmitted error the caller's pre-check produces.
func (r *WeekRepository) MarkSubmitted(ctx context.Context, id string, at time.Time) error {
	var returnedID string
	err := r.db.QueryRow(ctx, `
		UPDATE week_summaries
		SET status = $2, submitted_at = $3, updated_at = NOW()
		WHERE id = $1 AND status = $4
		RETURNING id
	`, id, StatusSubmitted, at, StatusDraft).Scan(&returnedID)

	if err == pgx.ErrNoRows {
		return apperrors.New(apperrors.ErrCodeAlreadySubmitted, "week has already been submitted")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to submit week")
	}
	return nil
}

// Decide moves a submitted week to approved or rejected, recording the
// approver, decision time, audit note and manager comment.
func (r *WeekRepository) Decide(ctx context.Context, id, status, approverID string, at time.Time, auditNote string, managerComment *string) error {
	var returnedID string
	err := r.db.QueryRow(ctx, `
		UPDATE week_summaries
		SET status = $2,
		    approver_id = $3,
		    approved_at = $4,
		    audit_note = $5,
		    manager_comment = $6,
		    updated_at = NOW()
		WHERE id = $1 AND status = $7
		RETURNING id
	`, id, status, approverID, at, auditNote, managerComment, StatusSubmitted).Scan(&returnedID)

	if err == pgx.ErrNoRows {
		return apperrors.New(apperrors.ErrCodeNotSubmitted, "week is not awaiting approval")
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to record decision")
	}
	return nil
}

// ListByStatus retrieves summaries in one status. Pending weeks come
// oldest week first; decided weeks come latest decision first.
func (r *WeekRepository) ListByStatus(ctx context.Context, status string, limit int) ([]*WeekSummary, error) {
	query := `SELECT` + weekColumns + weekFrom + `
		WHERE w.status = $1`

	if status == StatusSubmitted {
		query += " ORDER BY w.week_start"
	} else {
		query += " ORDER BY w.approved_at DESC NULLS LAST"
	}

	args := []any{status}
	if limit > 0 {
		query += " LIMIT $2"
		args = append(args, limit)
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list week summaries")
	}
	defer rows.Close()

	weeks := make([]*WeekSummary, 0)
	for rows.Next() {
		w, err := scanWeek(rows)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan week summary")
		}
		weeks = append(weeks, w)
	}
	return weeks, rows.Err()
}

// ApprovedExists reports whether (user, weekStart) is approved.
func (r *WeekRepository) ApprovedExists(ctx context.Context, userID, weekStart string) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM week_summaries
			WHERE user_id = $1 AND week_start = $2 AND status = $3
		)
	`, userID, weekStart, StatusApproved).Scan(&exists)
	if err != nil {
		return false, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check approved week")
	}
	return exists, nil
}

// ApprovedCountSince counts approvals decided on or after the date.
func (r *WeekRepository) ApprovedCountSince(ctx context.Context, date string) (int, error) {
	var count int
	err := r.db.QueryRow(ctx, `
		SELECT COUNT(*) FROM week_summaries
		WHERE status = $1 AND approved_at >= $2::date
	`, StatusApproved, date).Scan(&count)
	if err != nil {
		return 0, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to count approved weeks")
	}
	return count, nil
}

// ── scan helpers ──────────────────────────────────────────────────────────────

type weekScanner interface {
	Scan(dest ...any) error
}

func scanWeek(sc weekScanner) (*WeekSummary, error) {
	w := &WeekSummary{}
	var weekStart time.Time
	err := sc.Scan(
		&w.ID, &w.UserID, &w.Username, &weekStart, &w.Status,
		&w.ApproverID, &w.SubmittedAt, &w.ApprovedAt,
		&w.AuditNote, &w.ManagerComment, &w.CreatedAt, &w.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	w.WeekStart = weekStart.Format("2006-01-02")
	return w, nil
}
