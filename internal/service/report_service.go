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

// unassignedProject labels entries booked without a project in report
// groupings.
const unassignedProject = "Unassigned"

// defaultRangeDays is how far back a report reaches when a range bound
// is missing or unparseable.
const defaultRangeDays = 30

// ReportService aggregates entries into the reporting views: project
// and employee breakdowns, daily charts, CSV exports and the activity
// heatmap.
type ReportService struct {
	entries EntryStore
	log     *logger.Logger
	now     func() time.Time
}

// NewReportService creates a new report service.
func NewReportService(entries EntryStore, log *logger.Logger) *ReportService {
	return &ReportService{
		entries: entries,
		log:     log,
		now:     time.Now,
	}
}

// ReportRequest carries raw report filters. StartDate and EndDate are
// user-supplied strings in any accepted format; a nil UserID reports
// across all employees.
type ReportRequest struct {
	UserID    *string
	StartDate string
	EndDate   string
	ProjectID *string
}

// SummaryRow is one project's total hours.
type SummaryRow struct {
	Name  string  `json:"name"`
	Hours float64 `json:"hours"`
}

// ProjectRow is one project's hours split by billability.
type ProjectRow struct {
	Project         string  `json:"project"`
	Hours           float64 `json:"hours"`
	BillableHours   float64 `json:"billable_hours"`
	PercentBillable float64 `json:"percent_billable"`
}

// EmployeeRow is one (employee, project) pair's hours, used by the
// all-employees report.
type EmployeeRow struct {
	Employee string  `json:"employee"`
	Project  string  `json:"project"`
	Hours    float64 `json:"hours"`
}

// Report is the assembled reporting view for one filter set.
type Report struct {
	StartDate    string        `json:"start_date"`
	EndDate      string        `json:"end_date"`
	Warnings     []string      `json:"warnings,omitempty"`
	Entries      []EntryView   `json:"entries"`
	TotalHours   float64       `json:"total_hours"`
	SummaryRows  []SummaryRow  `json:"summary_rows"`
	ProjectRows  []ProjectRow  `json:"project_rows"`
	EmployeeRows []EmployeeRow `json:"employee_rows,omitempty"`
	ChartLabels  []string      `json:"chart_labels"`
	ChartData    []float64     `json:"chart_data"`
}

// Build assembles a report for the request. Unparseable range bounds
// fall back to the default range and add a warning instead of failing.
func (s *ReportService) Build(ctx context.Context, req ReportRequest) (*Report, error) {
	start, end, warnings := s.resolveRange(req.StartDate, req.EndDate)

	filter := repository.EntryFilter{
		UserID:    req.UserID,
		StartDate: start.Format(timeutil.DateLayout),
		EndDate:   end.Format(timeutil.DateLayout),
		ProjectID: req.ProjectID,
	}
	if req.UserID == nil {
		filter.EmployeesOnly = true
	}

	entries, err := s.entries.List(ctx, filter)
	if err != nil {
		return nil, err
	}

	report := &Report{
		StartDate: filter.StartDate,
		EndDate:   filter.EndDate,
		Warnings:  warnings,
	}

	totalMinutes := 0
	for _, e := range entries {
		report.Entries = append(report.Entries, EntryView{Entry: e, Hours: entryHours(e)})
		totalMinutes += e.DurationMinutes
	}
	report.TotalHours = round2(float64(totalMinutes) / 60.0)

	report.SummaryRows, report.ProjectRows = groupByProject(entries)
	if req.UserID == nil {
		report.EmployeeRows = groupByEmployee(entries)
	}
	report.ChartLabels, report.ChartData = dailyChart(entries, start, end)

	return report, nil
}

// resolveRange parses the raw bounds, substituting the default range
// for anything that does not parse. A swapped range is reordered.
func (s *ReportService) resolveRange(rawStart, rawEnd string) (start, end time.Time, warnings []string) {
	today := s.now().UTC()
	y, m, d := today.Date()
	today = time.Date(y, m, d, 0, 0, 0, 0, time.UTC)

	end, ok := timeutil.ParseQueryDate(rawEnd)
	if !ok {
		if rawEnd != "" {
			warnings = append(warnings,
				fmt.Sprintf("could not understand end date %q, using today", rawEnd))
		}
		end = today
	}
	start, ok = timeutil.ParseQueryDate(rawStart)
	if !ok {
		if rawStart != "" {
			warnings = append(warnings,
				fmt.Sprintf("could not understand start date %q, using the last %d days", rawStart, defaultRangeDays))
		}
		start = end.AddDate(0, 0, -defaultRangeDays)
	}
	if start.After(end) {
		start, end = end, start
	}
	return start, end, warnings
}

// groupByProject totals hours per project in first-seen order, keeping
// the billable split alongside the plain summary.
func groupByProject(entries []*repository.TimesheetEntry) ([]SummaryRow, []ProjectRow) {
	type bucket struct {
		minutes         int
		billableMinutes int
	}
	order := make([]string, 0)
	buckets := make(map[string]*bucket)

	for _, e := range entries {
		name := unassignedProject
		if e.ProjectName != nil {
			name = *e.ProjectName
		}
		b, seen := buckets[name]
		if !seen {
			b = &bucket{}
			buckets[name] = b
			order = append(order, name)
		}
		b.minutes += e.DurationMinutes
		if e.Billable {
			b.billableMinutes += e.DurationMinutes
		}
	}

	summary := make([]SummaryRow, 0, len(order))
	rows := make([]ProjectRow, 0, len(order))
	for _, name := range order {
		b := buckets[name]
		hours := round2(float64(b.minutes) / 60.0)
		billable := round2(float64(b.billableMinutes) / 60.0)
		percent := 0.0
		if b.minutes > 0 {
			percent = round2(float64(b.billableMinutes) / float64(b.minutes) * 100)
		}
		summary = append(summary, SummaryRow{Name: name, Hours: hours})
		rows = append(rows, ProjectRow{
			Project:         name,
			Hours:           hours,
			BillableHours:   billable,
			PercentBillable: percent,
		})
	}
	return summary, rows
}

// groupByEmployee totals hours per (employee, project) pair in
// first-seen order.
func groupByEmployee(entries []*repository.TimesheetEntry) []EmployeeRow {
	type key struct{ employee, project string }
	order := make([]key, 0)
	minutes := make(map[key]int)

	for _, e := range entries {
		project := unassignedProject
		if e.ProjectName != nil {
			project = *e.ProjectName
		}
		k := key{employee: e.Username, project: project}
		if _, seen := minutes[k]; !seen {
			order = append(order, k)
		}
		minutes[k] += e.DurationMinutes
	}

	rows := make([]EmployeeRow, 0, len(order))
	for _, k := range order {
		rows = append(rows, EmployeeRow{
			Employee: k.employee,
			Project:  k.project,
			Hours:    round2(float64(minutes[k]) / 60.0),
		})
	}
	return rows
}

// dailyChart produces one labeled point per calendar day in the range,
// zero-filled for days without entries. Labels use DD-MM-YYYY.
func dailyChart(entries []*repository.TimesheetEntry, start, end time.Time) ([]string, []float64) {
	perDay := make(map[string]int)
	for _, e := range entries {
		perDay[e.WorkDate] += e.DurationMinutes
	}

	days := timeutil.DaysBetween(start, end)
	labels := make([]string, 0, len(days))
	data := make([]float64, 0, len(days))
	for _, day := range days {
		labels = append(labels, day.Format(timeutil.DisplayDateLayout))
		data = append(data, round2(float64(perDay[day.Format(timeutil.DateLayout)])/60.0))
	}
	return labels, data
}

// CSVRows renders a report as export rows. format is "summary" for the
// per-project totals or "details" for one row per entry.
func CSVRows(r *Report, format string) ([][]string, error) {
	switch format {
	case "summary":
		rows := [][]string{{"Project", "Total Hours"}}
		for _, row := range r.SummaryRows {
			rows = append(rows, []string{row.Name, fmt.Sprintf("%.2f", row.Hours)})
		}
		return rows, nil
	case "details":
		rows := [][]string{{"Date", "Project", "Start", "End", "Break (min)", "Hours", "Notes"}}
		for _, v := range r.Entries {
			e := v.Entry
			project := unassignedProject
			if e.ProjectName != nil {
				project = *e.ProjectName
			}
			date := e.WorkDate
			if d, err := time.Parse(timeutil.DateLayout, e.WorkDate); err == nil {
				date = d.Format(timeutil.DisplayDateLayout)
			}
			rows = append(rows, []string{
				date,
				project,
				clockOrEmpty(e.StartTime),
				clockOrEmpty(e.EndTime),
				fmt.Sprintf("%d", e.BreakMinutes),
				fmt.Sprintf("%.2f", v.Hours),
				e.Notes,
			})
		}
		return rows, nil
	default:
		return nil, apperrors.InvalidInput("export", "unknown export format")
	}
}

func clockOrEmpty(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format("15:04")
}

// ── heatmap ───────────────────────────────────────────────────────────────────

// HeatmapCell is one day in the activity heatmap.
type HeatmapCell struct {
	Date  string  `json:"date"`
	Hours float64 `json:"hours"`
	Color string  `json:"color"`
}

// HeatmapWeek is one Monday-starting column of seven cells.
type HeatmapWeek struct {
	Days []HeatmapCell `json:"days"`
}

// Heatmap lays out one calendar year of daily totals in Monday-starting
// week columns. The first column is padded backwards and the last
// forwards so every column holds exactly seven days.
func (s *ReportService) Heatmap(ctx context.Context, userID string, year int) ([]HeatmapWeek, error) {
	yearStart := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	yearEnd := time.Date(year, time.December, 31, 0, 0, 0, 0, time.UTC)

	totals, err := s.entries.DailyTotals(ctx, userID,
		yearStart.Format(timeutil.DateLayout), yearEnd.Format(timeutil.DateLayout))
	if err != nil {
		return nil, err
	}
	perDay := make(map[string]int, len(totals))
	for _, t := range totals {
		perDay[t.Date] = t.Minutes
	}

	first, _ := timeutil.WeekBounds(yearStart)
	_, last := timeutil.WeekBounds(yearEnd)

	weeks := make([]HeatmapWeek, 0, 54)
	for monday := first; !monday.After(last); monday = monday.AddDate(0, 0, 7) {
		week := HeatmapWeek{Days: make([]HeatmapCell, 0, 7)}
		for i := 0; i < 7; i++ {
			day := monday.AddDate(0, 0, i)
			date := day.Format(timeutil.DateLayout)
			hours := round2(float64(perDay[date]) / 60.0)
			week.Days = append(week.Days, HeatmapCell{
				Date:  date,
				Hours: hours,
				Color: HeatColor(hours),
			})
		}
		weeks = append(weeks, week)
	}
	return weeks, nil
}

// HeatColor bands daily hours into the heatmap palette.
func HeatColor(hours float64) string {
	switch {
	case hours == 0:
		return "#ebedf0"
	case hours < 2:
		return "#9be9a8"
	case hours < 4:
		return "#40c463"
	default:
		return "#30a14e"
	}
}

// EmployeeProjectHours reports per-project hours for one employee over
// the trailing 90 days, for the manager dashboard.
func (s *ReportService) EmployeeProjectHours(ctx context.Context, userID string) ([]SummaryRow, error) {
	end := s.now().UTC()
	start := end.AddDate(0, 0, -90)

	uid := userID
	entries, err := s.entries.List(ctx, repository.EntryFilter{
		UserID:    &uid,
		StartDate: start.Format(timeutil.DateLayout),
		EndDate:   end.Format(timeutil.DateLayout),
	})
	if err != nil {
		return nil, err
	}
	summary, _ := groupByProject(entries)
	return summary, nil
}
