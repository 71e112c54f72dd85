package service

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/google/uuid"
)

// The fakes mirror the transactional behavior of the pgx repositories:
// one mutex per store stands in for the row locks, so the check
// callbacks run with the same exclusivity the real queries get.

func testLogger() *logger.Logger {
	return logger.New(logger.Config{Level: "error", Environment: "test"})
}

type fakeEntryStore struct {
	mu      sync.Mutex
	entries map[string]*repository.TimesheetEntry
}

func newFakeEntryStore() *fakeEntryStore {
	return &fakeEntryStore{entries: make(map[string]*repository.TimesheetEntry)}
}

func (s *fakeEntryStore) SaveChecked(_ context.Context, entry *repository.TimesheetEntry, check func([]*repository.TimesheetEntry) error) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	existing := make([]*repository.TimesheetEntry, 0)
	for _, e := range s.entries {
		if e.UserID == entry.UserID && e.WorkDate == entry.WorkDate && e.ID != entry.ID {
			existing = append(existing, e)
		}
	}
	if err := check(existing); err != nil {
		return err
	}

	if entry.ID == "" {
		entry.ID = uuid.NewString()
		entry.CreatedAt = time.Now().UTC()
	} else if _, ok := s.entries[entry.ID]; !ok {
		return apperrors.NotFound("timesheet entry", entry.ID)
	}
	entry.UpdatedAt = time.Now().UTC()
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *fakeEntryStore) StartTimer(_ context.Context, entry *repository.TimesheetEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, e := range s.entries {
		if e.UserID == entry.UserID && e.EndTime == nil {
			return apperrors.New(apperrors.ErrCodeTimerRunning, "you already have a running timer")
		}
	}
	entry.ID = uuid.NewString()
	entry.CreatedAt = time.Now().UTC()
	entry.UpdatedAt = entry.CreatedAt
	cp := *entry
	s.entries[entry.ID] = &cp
	return nil
}

func (s *fakeEntryStore) StopTimer(_ context.Context, id, userID string, stop func(*repository.TimesheetEntry) error) (*repository.TimesheetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return nil, apperrors.NotFound("timesheet entry", id)
	}
	cp := *e
	if err := stop(&cp); err != nil {
		return nil, err
	}
	cp.UpdatedAt = time.Now().UTC()
	s.entries[id] = &cp
	out := cp
	return &out, nil
}

func (s *fakeEntryStore) GetByID(_ context.Context, id, userID string) (*repository.TimesheetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return nil, apperrors.NotFound("timesheet entry", id)
	}
	cp := *e
	return &cp, nil
}

func (s *fakeEntryStore) Delete(_ context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	e, ok := s.entries[id]
	if !ok || e.UserID != userID {
		return apperrors.NotFound("timesheet entry", id)
	}
	delete(s.entries, id)
	return nil
}

func (s *fakeEntryStore) List(_ context.Context, f repository.EntryFilter) ([]*repository.TimesheetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]*repository.TimesheetEntry, 0)
	for _, e := range s.entries {
		if f.UserID != nil && e.UserID != *f.UserID {
			continue
		}
		if f.StartDate != "" && e.WorkDate < f.StartDate {
			continue
		}
		if f.EndDate != "" && e.WorkDate > f.EndDate {
			continue
		}
		if f.ProjectID != nil && (e.ProjectID == nil || *e.ProjectID != *f.ProjectID) {
			continue
		}
		cp := *e
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].WorkDate != out[j].WorkDate {
			return out[i].WorkDate < out[j].WorkDate
		}
		si, sj := out[i].StartTime, out[j].StartTime
		if si == nil || sj == nil {
			return sj == nil
		}
		return si.Before(*sj)
	})
	return out, nil
}

func (s *fakeEntryStore) Recent(ctx context.Context, userID string, limit int) ([]*repository.TimesheetEntry, error) {
	all, err := s.List(ctx, repository.EntryFilter{UserID: &userID})
	if err != nil {
		return nil, err
	}
	sort.Slice(all, func(i, j int) bool { return all[i].WorkDate > all[j].WorkDate })
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *fakeEntryStore) Running(_ context.Context, userID string) (*repository.TimesheetEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.UserID == userID && e.EndTime == nil {
			cp := *e
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *fakeEntryStore) DailyTotals(_ context.Context, userID, startDate, endDate string) ([]repository.DayTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	perDay := make(map[string]int)
	for _, e := range s.entries {
		if e.UserID != userID || e.WorkDate < startDate || e.WorkDate > endDate {
			continue
		}
		perDay[e.WorkDate] += e.DurationMinutes
	}
	totals := make([]repository.DayTotal, 0, len(perDay))
	for date, minutes := range perDay {
		totals = append(totals, repository.DayTotal{Date: date, Minutes: minutes})
	}
	sort.Slice(totals, func(i, j int) bool { return totals[i].Date < totals[j].Date })
	return totals, nil
}

type fakeWeekStore struct {
	mu    sync.Mutex
	weeks map[string]*repository.WeekSummary
}

func newFakeWeekStore() *fakeWeekStore {
	return &fakeWeekStore{weeks: make(map[string]*repository.WeekSummary)}
}

func (s *fakeWeekStore) GetOrCreate(_ context.Context, userID, weekStart string) (*repository.WeekSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, w := range s.weeks {
		if w.UserID == userID && w.WeekStart == weekStart {
			cp := *w
			return &cp, nil
		}
	}
	w := &repository.WeekSummary{
		ID:        uuid.NewString(),
		UserID:    userID,
		Username:  fmt.Sprintf("user-%s", userID),
		WeekStart: weekStart,
		Status:    repository.StatusDraft,
		CreatedAt: time.Now().UTC(),
		UpdatedAt: time.Now().UTC(),
	}
	s.weeks[w.ID] = w
	cp := *w
	return &cp, nil
}

func (s *fakeWeekStore) GetByID(_ context.Context, id string) (*repository.WeekSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok {
		return nil, apperrors.NotFound("week summary", id)
	}
	cp := *w
	return &cp, nil
}

func (s *fakeWeekStore) MarkSubmitted(_ context.Context, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok {
		return apperrors.NotFound("week summary", id)
	}
	if w.Status != repository.StatusDraft {
		return apperrors.New(apperrors.ErrCodeAlreadySubmitted, "week has already been submitted")
	}
	w.Status = repository.StatusSubmitted
	w.SubmittedAt = &at
	w.UpdatedAt = at
	return nil
}

func (s *fakeWeekStore) Decide(_ context.Context, id, status, approverID string, at time.Time, auditNote string, managerComment *string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	w, ok := s.weeks[id]
	if !ok {
		return apperrors.NotFound("week summary", id)
	}
	if w.Status != repository.StatusSubmitted {
		return apperrors.New(apperrors.ErrCodeNotSubmitted, "week is not awaiting approval")
	}
	w.Status = status
	w.ApproverID = &approverID
	w.ApprovedAt = &at
	w.AuditNote = auditNote
	w.ManagerComment = managerComment
	w.UpdatedAt = at
	return nil
}

func (s *fakeWeekStore) ListByStatus(_ context.Context, status string, limit int) ([]*repository.WeekSummary, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.WeekSummary, 0)
	for _, w := range s.weeks {
		if w.Status == status {
			cp := *w
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].WeekStart < out[j].WeekStart })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *fakeWeekStore) ApprovedExists(_ context.Context, userID, weekStart string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, w := range s.weeks {
		if w.UserID == userID && w.WeekStart == weekStart && w.Status == repository.StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (s *fakeWeekStore) ApprovedCountSince(_ context.Context, date string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	cutoff, err := time.Parse("2006-01-02", date)
	if err != nil {
		return 0, err
	}
	count := 0
	for _, w := range s.weeks {
		if w.Status == repository.StatusApproved && w.ApprovedAt != nil && !w.ApprovedAt.Before(cutoff) {
			count++
		}
	}
	return count, nil
}

type fakeProjectStore struct {
	mu         sync.Mutex
	projects   map[string]*repository.Project
	referenced map[string]bool
}

func newFakeProjectStore() *fakeProjectStore {
	return &fakeProjectStore{
		projects:   make(map[string]*repository.Project),
		referenced: make(map[string]bool),
	}
}

func (s *fakeProjectStore) Create(_ context.Context, p *repository.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p.ID = uuid.NewString()
	p.CreatedAt = time.Now().UTC()
	p.UpdatedAt = p.CreatedAt
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *fakeProjectStore) Update(_ context.Context, p *repository.Project) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[p.ID]; !ok {
		return apperrors.NotFound("project", p.ID)
	}
	p.UpdatedAt = time.Now().UTC()
	cp := *p
	s.projects[p.ID] = &cp
	return nil
}

func (s *fakeProjectStore) GetByID(_ context.Context, id string) (*repository.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.projects[id]
	if !ok {
		return nil, apperrors.NotFound("project", id)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeProjectStore) List(_ context.Context, activeOnly bool) ([]*repository.Project, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.Project, 0)
	for _, p := range s.projects {
		if activeOnly && !p.Active {
			continue
		}
		cp := *p
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (s *fakeProjectStore) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.projects[id]; !ok {
		return apperrors.NotFound("project", id)
	}
	if s.referenced[id] {
		return apperrors.New(apperrors.ErrCodeReferenced, "cannot delete project linked to timesheet entries")
	}
	delete(s.projects, id)
	return nil
}

type fakeUserStore struct {
	mu       sync.Mutex
	users    map[string]*repository.User
	profiles map[string]*repository.Profile
}

func newFakeUserStore() *fakeUserStore {
	return &fakeUserStore{
		users:    make(map[string]*repository.User),
		profiles: make(map[string]*repository.Profile),
	}
}

func (s *fakeUserStore) Create(_ context.Context, u *repository.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u.ID = uuid.NewString()
	u.CreatedAt = time.Now().UTC()
	u.UpdatedAt = u.CreatedAt
	cp := *u
	s.users[u.ID] = &cp
	s.profiles[u.ID] = &repository.Profile{
		ID:        uuid.NewString(),
		UserID:    u.ID,
		CreatedAt: u.CreatedAt,
	}
	return nil
}

func (s *fakeUserStore) GetByID(_ context.Context, id string) (*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	cp := *u
	return &cp, nil
}

func (s *fakeUserStore) ListEmployees(_ context.Context) ([]*repository.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*repository.User, 0)
	for _, u := range s.users {
		if u.Role == repository.RoleEmployee {
			cp := *u
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Username < out[j].Username })
	return out, nil
}

func (s *fakeUserStore) GetProfile(_ context.Context, userID string) (*repository.Profile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return nil, apperrors.NotFound("profile", userID)
	}
	cp := *p
	return &cp, nil
}

func (s *fakeUserStore) UpdateAvatar(_ context.Context, userID, path string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.profiles[userID]
	if !ok {
		return apperrors.NotFound("profile", userID)
	}
	p.AvatarPath = &path
	return nil
}

// test fixture helpers

func testEmployee() *repository.User {
	return &repository.User{ID: "emp-1", Username: "alice", Role: repository.RoleEmployee}
}

func testManager() *repository.User {
	return &repository.User{ID: "mgr-1", Username: "mallory", Role: repository.RoleManager}
}

func at(date, clock string) *time.Time {
	t, err := time.Parse("2006-01-02 15:04", date+" "+clock)
	if err != nil {
		panic(err)
	}
	t = t.UTC()
	return &t
}
