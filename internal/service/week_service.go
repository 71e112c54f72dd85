package service

import (
	"context"
	"fmt"
	"time"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/chronoworks/be-timesheets/internal/timeutil"
)

// WeekService owns the week summary lifecycle: assembling the weekly
// timesheet view and driving the draft/submitted/approved/rejected
// transitions.
type WeekService struct {
	weeks   WeekStore
	entries EntryStore
	log     *logger.Logger
	now     func() time.Time
}

// NewWeekService creates a new week service.
func NewWeekService(weeks WeekStore, entries EntryStore, log *logger.Logger) *WeekService {
	return &WeekService{
		weeks:   weeks,
		entries: entries,
		log:     log,
		now:     time.Now,
	}
}

// WeekTimesheet is one user's week: its summary record, the entries it
// covers and the hour totals derived from them.
type WeekTimesheet struct {
	Summary    *repository.WeekSummary `json:"summary"`
	WeekStart  string                  `json:"week_start"`
	WeekEnd    string                  `json:"week_end"`
	Entries    []EntryView             `json:"entries"`
	TotalHours float64                 `json:"total_hours"`
}

// Timesheet assembles the week containing day for the given user,
// creating the summary record in draft state when it does not exist yet.
func (s *WeekService) Timesheet(ctx context.Context, userID string, day time.Time) (*WeekTimesheet, error) {
	monday, sunday := timeutil.WeekBounds(day)
	weekStart := monday.Format(timeutil.DateLayout)
	weekEnd := sunday.Format(timeutil.DateLayout)

	summary, err := s.weeks.GetOrCreate(ctx, userID, weekStart)
	if err != nil {
		return nil, err
	}

	uid := userID
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		UserID:    &uid,
		StartDate: weekStart,
		EndDate:   weekEnd,
	})
	if err != nil {
		return nil, err
	}

	views := make([]EntryView, 0, len(entries))
	totalMinutes := 0
	for _, e := range entries {
		views = append(views, EntryView{Entry: e, Hours: entryHours(e)})
		totalMinutes += e.DurationMinutes
	}

	return &WeekTimesheet{
		Summary:    summary,
		WeekStart:  weekStart,
		WeekEnd:    weekEnd,
		Entries:    views,
		TotalHours: round2(float64(totalMinutes) / 60.0),
	}, nil
}

// Submit moves the actor's week containing day from draft to submitted.
// Weeks in any other status, including rejected ones, cannot be
// resubmitted.
func (s *WeekService) Submit(ctx context.Context, actor *repository.User, day time.Time) (*repository.WeekSummary, error) {
	weekStart := timeutil.WeekStart(day)
	summary, err := s.weeks.GetOrCreate(ctx, actor.ID, weekStart)
	if err != nil {
		return nil, err
	}

	if err := s.weeks.MarkSubmitted(ctx, summary.ID, s.now().UTC()); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("week_id", summary.ID).
		Str("user_id", actor.ID).
		Str("week_start", weekStart).
		Msg("Week submitted")

	return s.weeks.GetByID(ctx, summary.ID)
}

// Approve moves a submitted week to approved. Only managers may decide.
func (s *WeekService) Approve(ctx context.Context, actor *repository.User, weekID string, comment *string) (*repository.WeekSummary, error) {
	return s.decide(ctx, actor, weekID, repository.StatusApproved, comment)
}

// Reject moves a submitted week to rejected. Only managers may decide.
func (s *WeekService) Reject(ctx context.Context, actor *repository.User, weekID string, comment *string) (*repository.WeekSummary, error) {
	return s.decide(ctx, actor, weekID, repository.StatusRejected, comment)
}

func (s *WeekService) decide(ctx context.Context, actor *repository.User, weekID, status string, comment *string) (*repository.WeekSummary, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can decide on submitted weeks")
	}

	week, err := s.weeks.GetByID(ctx, weekID)
	if err != nil {
		return nil, err
	}

	at := s.now().UTC()
	auditNote := fmt.Sprintf("%s by %s on %s",
		status, actor.Username, at.Format("2006-01-02 15:04"))

	if err := s.weeks.Decide(ctx, weekID, status, actor.ID, at, auditNote, comment); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("week_id", weekID).
		Str("user_id", week.UserID).
		Str("approver_id", actor.ID).
		Str("status", status).
		Msg("Week decided")

	return s.weeks.GetByID(ctx, weekID)
}

// Detail returns a week summary together with its timesheet, for the
// manager review screen.
func (s *WeekService) Detail(ctx context.Context, actor *repository.User, weekID string) (*WeekTimesheet, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can review submitted weeks")
	}
	week, err := s.weeks.GetByID(ctx, weekID)
	if err != nil {
		return nil, err
	}
	day, err := time.Parse(timeutil.DateLayout, week.WeekStart)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "invalid week start date")
	}
	ts, err := s.Timesheet(ctx, week.UserID, day)
	if err != nil {
		return nil, err
	}
	ts.Summary = week
	return ts, nil
}

// ApprovalsOverview feeds the manager approvals screen: the pending
// queue plus recent decisions and a this-month approval count.
type ApprovalsOverview struct {
	Pending           []*repository.WeekSummary `json:"pending"`
	Decided           []*repository.WeekSummary `json:"decided"`
	ApprovedThisMonth int                       `json:"approved_this_month"`
}

const decidedListLimit = 50

// Approvals lists submitted weeks awaiting a decision alongside the
// latest decided ones.
func (s *WeekService) Approvals(ctx context.Context, actor *repository.User) (*ApprovalsOverview, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can view approvals")
	}

	pending, err := s.weeks.ListByStatus(ctx, repository.StatusSubmitted, 0)
	if err != nil {
		return nil, err
	}
	approved, err := s.weeks.ListByStatus(ctx, repository.StatusApproved, decidedListLimit)
	if err != nil {
		return nil, err
	}
	rejected, err := s.weeks.ListByStatus(ctx, repository.StatusRejected, decidedListLimit)
	if err != nil {
		return nil, err
	}

	now := s.now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	count, err := s.weeks.ApprovedCountSince(ctx, monthStart.Format(timeutil.DateLayout))
	if err != nil {
		return nil, err
	}

	decided := make([]*repository.WeekSummary, 0, len(approved)+len(rejected))
	decided = append(decided, approved...)
	decided = append(decided, rejected...)

	return &ApprovalsOverview{
		Pending:           pending,
		Decided:           decided,
		ApprovedThisMonth: count,
	}, nil
}

// WeekStatus summarizes the actor's current week for the dashboard.
type WeekStatus struct {
	WeekStart  string  `json:"week_start"`
	Status     string  `json:"status"`
	TotalHours float64 `json:"total_hours"`
	Approved   bool    `json:"approved"`
}

// CurrentWeekStatus returns the actor's current-week hours and approval
// state.
func (s *WeekService) CurrentWeekStatus(ctx context.Context, userID string) (*WeekStatus, error) {
	ts, err := s.Timesheet(ctx, userID, s.now().UTC())
	if err != nil {
		return nil, err
	}
	approved, err := s.weeks.ApprovedExists(ctx, userID, ts.WeekStart)
	if err != nil {
		return nil, err
	}
	return &WeekStatus{
		WeekStart:  ts.WeekStart,
		Status:     ts.Summary.Status,
		TotalHours: ts.TotalHours,
		Approved:   approved,
	}, nil
}
