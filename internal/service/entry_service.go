package service

import (
	"context"
	"time"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/chronoworks/be-timesheets/internal/timeutil"
)

// EntryService validates and persists timesheet entries and owns the
// timer start/stop transitions layered on them.
type EntryService struct {
	entries  EntryStore
	projects ProjectStore
	log      *logger.Logger
	now      func() time.Time
}

// NewEntryService creates a new entry service.
func NewEntryService(entries EntryStore, projects ProjectStore, log *logger.Logger) *EntryService {
	return &EntryService{
		entries:  entries,
		projects: projects,
		log:      log,
		now:      time.Now,
	}
}

// SaveEntryRequest is a candidate entry from the form layer. ID is set
// when editing an existing entry. StartTime and EndTime are wall-clock
// times on WorkDate, formatted "15:04".
type SaveEntryRequest struct {
	ID           string
	WorkDate     string
	StartTime    string
	EndTime      string
	BreakMinutes int
	ProjectID    *string
	Billable     bool
	Notes        string
}

const clockLayout = "15:04"

// SaveEntry validates the candidate against the owner's other entries
// for the same work date and persists it. The overlap check runs inside
// the store transaction that locks those rows, so two concurrent saves
// cannot both pass.
func (s *EntryService) SaveEntry(ctx context.Context, actor *repository.User, req *SaveEntryRequest) (*repository.TimesheetEntry, error) {
	workDay, err := time.Parse(timeutil.DateLayout, req.WorkDate)
	if err != nil {
		return nil, apperrors.InvalidInput("work_date", "invalid date format, expected YYYY-MM-DD")
	}
	start, err := combineClock(workDay, req.StartTime)
	if err != nil {
		return nil, apperrors.InvalidInput("start_time", "invalid time format, expected HH:MM")
	}
	end, err := combineClock(workDay, req.EndTime)
	if err != nil {
		return nil, apperrors.InvalidInput("end_time", "invalid time format, expected HH:MM")
	}
	if req.BreakMinutes < 0 {
		return nil, apperrors.InvalidInput("break_minutes", "break minutes cannot be negative")
	}

	if req.ProjectID != nil {
		if err := s.checkProject(ctx, *req.ProjectID, req.ID == ""); err != nil {
			return nil, err
		}
	}

	entry := &repository.TimesheetEntry{
		ID:           req.ID,
		UserID:       actor.ID,
		ProjectID:    req.ProjectID,
		WorkDate:     req.WorkDate,
		StartTime:    &start,
		EndTime:      &end,
		BreakMinutes: req.BreakMinutes,
		Billable:     req.Billable,
		Notes:        req.Notes,
	}

	err = s.entries.SaveChecked(ctx, entry, func(existing []*repository.TimesheetEntry) error {
		return ValidateEntry(entry, existing)
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("user_id", actor.ID).
		Str("work_date", entry.WorkDate).
		Int("duration_minutes", entry.DurationMinutes).
		Msg("Entry saved")

	return entry, nil
}

// ValidateEntry enforces the per-entry invariants against the owner's
// other entries for the same work date. On acceptance it stores the
// computed duration on the candidate. The function is idempotent: the
// form layer and the store transaction may both invoke it for the same
// candidate.
func ValidateEntry(entry *repository.TimesheetEntry, existing []*repository.TimesheetEntry) error {
	if entry.StartTime == nil || entry.EndTime == nil {
		return nil
	}
	start, end := *entry.StartTime, *entry.EndTime

	if !end.After(start) {
		return apperrors.Validation(apperrors.ErrCodeInvalidRange,
			"end_time", "end time must be after start time")
	}

	netMinutes := int(end.Sub(start).Seconds())/60 - entry.BreakMinutes
	if netMinutes <= 0 {
		return apperrors.Validation(apperrors.ErrCodeNonPositiveDuration,
			"break_minutes", "duration must be greater than zero after break")
	}

	for _, other := range existing {
		if other.ID != "" && other.ID == entry.ID {
			continue
		}
		// Entries without a start time cannot be compared.
		if other.StartTime == nil {
			continue
		}
		// A running entry extends to the open future: it conflicts with
		// anything ending after its start.
		if end.After(*other.StartTime) && (other.EndTime == nil || start.Before(*other.EndTime)) {
			return apperrors.Validation(apperrors.ErrCodeOverlapConflict,
				"start_time", "overlapping entry for this day exists")
		}
	}

	entry.DurationMinutes = netMinutes
	return nil
}

// StartTimer creates a running entry for the actor dated today. Fails
// when the actor already has a running timer; the check and the insert
// share the store's transaction.
func (s *EntryService) StartTimer(ctx context.Context, actor *repository.User, projectID *string, notes string) (*repository.TimesheetEntry, error) {
	billable := true
	if projectID != nil {
		p, err := s.projects.GetByID(ctx, *projectID)
		if err != nil {
			return nil, err
		}
		billable = p.BillableDefault
	}

	now := s.now().UTC()
	entry := &repository.TimesheetEntry{
		UserID:    actor.ID,
		ProjectID: projectID,
		WorkDate:  now.Format(timeutil.DateLayout),
		StartTime: &now,
		Billable:  billable,
		Notes:     notes,
	}

	if err := s.entries.StartTimer(ctx, entry); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("user_id", actor.ID).
		Msg("Timer started")

	return entry, nil
}

// StopTimer closes the actor's running entry, computing the stored
// duration from wall time.
func (s *EntryService) StopTimer(ctx context.Context, actor *repository.User, entryID string) (*repository.TimesheetEntry, error) {
	now := s.now().UTC()
	entry, err := s.entries.StopTimer(ctx, entryID, actor.ID, func(e *repository.TimesheetEntry) error {
		if e.EndTime != nil {
			return apperrors.New(apperrors.ErrCodeTimerStopped, "this timer is already stopped")
		}
		if e.StartTime == nil {
			return apperrors.New(apperrors.ErrCodeConflict, "entry has no start time")
		}
		e.EndTime = &now
		e.DurationMinutes = int(now.Sub(*e.StartTime).Seconds()) / 60
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.log.Info().
		Str("entry_id", entry.ID).
		Str("user_id", actor.ID).
		Int("duration_minutes", entry.DurationMinutes).
		Msg("Timer stopped")

	return entry, nil
}

// GetEntry retrieves one entry owned by the actor, with display hours,
// for the edit form.
func (s *EntryService) GetEntry(ctx context.Context, actor *repository.User, entryID string) (*EntryView, error) {
	entry, err := s.entries.GetByID(ctx, entryID, actor.ID)
	if err != nil {
		return nil, err
	}
	return &EntryView{Entry: entry, Hours: entryHours(entry)}, nil
}

// DeleteEntry removes an entry owned by the actor.
func (s *EntryService) DeleteEntry(ctx context.Context, actor *repository.User, entryID string) error {
	if err := s.entries.Delete(ctx, entryID, actor.ID); err != nil {
		return err
	}
	s.log.Info().
		Str("entry_id", entryID).
		Str("user_id", actor.ID).
		Msg("Entry deleted")
	return nil
}

// EntryView is an entry with its display hours.
type EntryView struct {
	Entry *repository.TimesheetEntry `json:"entry"`
	Hours float64                    `json:"hours"`
}

// RecentEntries returns the actor's newest entries with display hours.
func (s *EntryService) RecentEntries(ctx context.Context, actor *repository.User, limit int) ([]EntryView, error) {
	entries, err := s.entries.Recent(ctx, actor.ID, limit)
	if err != nil {
		return nil, err
	}
	views := make([]EntryView, 0, len(entries))
	for _, e := range entries {
		views = append(views, EntryView{Entry: e, Hours: entryHours(e)})
	}
	return views, nil
}

// RunningTimer describes the actor's live timer, if any.
type RunningTimer struct {
	Entry        *repository.TimesheetEntry `json:"entry"`
	ElapsedHours float64                    `json:"elapsed_hours"`
	StartMillis  int64                      `json:"start_millis"`
}

// Running returns the actor's running timer with live elapsed hours, or
// nil when no timer is running. The elapsed figure is display-only; the
// stored duration stays 0 until the timer stops.
func (s *EntryService) Running(ctx context.Context, actor *repository.User) (*RunningTimer, error) {
	entry, err := s.entries.Running(ctx, actor.ID)
	if err != nil {
		return nil, err
	}
	if entry == nil || entry.StartTime == nil {
		return nil, nil
	}
	elapsed := s.now().UTC().Sub(*entry.StartTime)
	return &RunningTimer{
		Entry:        entry,
		ElapsedHours: round2(elapsed.Hours()),
		StartMillis:  entry.StartTime.UnixMilli(),
	}, nil
}

func (s *EntryService) checkProject(ctx context.Context, projectID string, creating bool) error {
	p, err := s.projects.GetByID(ctx, projectID)
	if err != nil {
		if apperrors.CodeOf(err) == apperrors.ErrCodeNotFound {
			return apperrors.InvalidInput("project", "unknown project")
		}
		return err
	}
	// Edits may keep a deactivated project; new entries may not book
	// against one.
	if creating && !p.Active {
		return apperrors.InvalidInput("project", "project is not active")
	}
	return nil
}

func combineClock(day time.Time, clock string) (time.Time, error) {
	t, err := time.Parse(clockLayout, clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(day.Year(), day.Month(), day.Day(),
		t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}
