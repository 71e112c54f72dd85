package service

import (
	"context"
	"math"
	"time"

	"github.com/chronoworks/be-timesheets/internal/repository"
)

// The services depend on narrow store interfaces so business rules can
// be exercised against in-memory fakes. The pgx repositories satisfy
// them; main wires the concrete types.

// EntryStore persists timesheet entries.
type EntryStore interface {
	SaveChecked(ctx context.Context, entry *repository.TimesheetEntry, check func(existing []*repository.TimesheetEntry) error) error
	StartTimer(ctx context.Context, entry *repository.TimesheetEntry) error
	StopTimer(ctx context.Context, id, userID string, stop func(e *repository.TimesheetEntry) error) (*repository.TimesheetEntry, error)
	GetByID(ctx context.Context, id, userID string) (*repository.TimesheetEntry, error)
	Delete(ctx context.Context, id, userID string) error
	List(ctx context.Context, f repository.EntryFilter) ([]*repository.TimesheetEntry, error)
	Recent(ctx context.Context, userID string, limit int) ([]*repository.TimesheetEntry, error)
	Running(ctx context.Context, userID string) (*repository.TimesheetEntry, error)
	DailyTotals(ctx context.Context, userID, startDate, endDate string) ([]repository.DayTotal, error)
}

// WeekStore persists week summaries.
type WeekStore interface {
	GetOrCreate(ctx context.Context, userID, weekStart string) (*repository.WeekSummary, error)
	GetByID(ctx context.Context, id string) (*repository.WeekSummary, error)
	MarkSubmitted(ctx context.Context, id string, at time.Time) error
	Decide(ctx context.Context, id, status, approverID string, at time.Time, auditNote string, managerComment *string) error
	ListByStatus(ctx context.Context, status string, limit int) ([]*repository.WeekSummary, error)
	ApprovedExists(ctx context.Context, userID, weekStart string) (bool, error)
	ApprovedCountSince(ctx context.Context, date string) (int, error)
}

// ProjectStore persists projects.
type ProjectStore interface {
	Create(ctx context.Context, p *repository.Project) error
	Update(ctx context.Context, p *repository.Project) error
	GetByID(ctx context.Context, id string) (*repository.Project, error)
	List(ctx context.Context, activeOnly bool) ([]*repository.Project, error)
	Delete(ctx context.Context, id string) error
}

// UserStore persists users and profiles.
type UserStore interface {
	Create(ctx context.Context, u *repository.User) error
	GetByID(ctx context.Context, id string) (*repository.User, error)
	ListEmployees(ctx context.Context) ([]*repository.User, error)
	GetProfile(ctx context.Context, userID string) (*repository.Profile, error)
	UpdateAvatar(ctx context.Context, userID, path string) error
}

// round2 rounds to two decimal places; every hour figure the service
// reports goes through it so CSV and on-screen numbers agree exactly.
func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

// entryHours converts an entry's stored duration to display hours.
// Entries without a stored duration (running timers) report 0.
func entryHours(e *repository.TimesheetEntry) float64 {
	return round2(float64(e.DurationMinutes) / 60.0)
}
