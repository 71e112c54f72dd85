package handler

import (
	"encoding/csv"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/chronoworks/be-timesheets/internal/service"
	"github.com/chronoworks/be-timesheets/internal/timeutil"
)

// HTTPHandler handles HTTP requests.
type HTTPHandler struct {
	entries  *service.EntryService
	weeks    *service.WeekService
	reports  *service.ReportService
	projects *service.ProjectService
	users    *service.UserService
	log      *logger.Logger
}

// NewHTTPHandler creates a new HTTP handler.
func NewHTTPHandler(
	entries *service.EntryService,
	weeks *service.WeekService,
	reports *service.ReportService,
	projects *service.ProjectService,
	users *service.UserService,
	log *logger.Logger,
) *HTTPHandler {
	return &HTTPHandler{
		entries:  entries,
		weeks:    weeks,
		reports:  reports,
		projects: projects,
		users:    users,
		log:      log,
	}
}

// actorHeader carries the authenticated user ID set by the gateway.
const actorHeader = "X-User-ID"

// actor resolves the request's user from the gateway header.
func (h *HTTPHandler) actor(r *http.Request) (*repository.User, error) {
	id := r.Header.Get(actorHeader)
	if id == "" {
		return nil, apperrors.Forbidden("missing user identity")
	}
	return h.users.Get(r.Context(), id)
}

func (h *HTTPHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode response")
	}
}

func (h *HTTPHandler) writeError(w http.ResponseWriter, err error) {
	status := apperrors.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Msg("Request failed")
	}
	body := map[string]string{
		"error": err.Error(),
		"code":  apperrors.CodeOf(err),
	}
	if field := apperrors.FieldOf(err); field != "" {
		body["field"] = field
	}
	h.writeJSON(w, status, body)
}

// ── entries ───────────────────────────────────────────────────────────────────

type entryRequest struct {
	ID           string  `json:"id"`
	WorkDate     string  `json:"work_date"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	BreakMinutes int     `json:"break_minutes"`
	ProjectID    *string `json:"project_id"`
	Billable     bool    `json:"billable"`
	Notes        string  `json:"notes"`
}

// SaveEntry handles create and update entry requests.
func (h *HTTPHandler) SaveEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req entryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	entry, err := h.entries.SaveEntry(r.Context(), actor, &service.SaveEntryRequest{
		ID:           req.ID,
		WorkDate:     req.WorkDate,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		BreakMinutes: req.BreakMinutes,
		ProjectID:    req.ProjectID,
		Billable:     req.Billable,
		Notes:        req.Notes,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}

	status := http.StatusOK
	if req.ID == "" {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, entry)
}

// ListEntries handles recent entry list requests.
func (h *HTTPHandler) ListEntries(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	if limit < 1 || limit > 100 {
		limit = 20
	}

	views, err := h.entries.RecentEntries(r.Context(), actor, limit)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"entries": views})
}

// GetEntry handles single entry lookups.
func (h *HTTPHandler) GetEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "entry id is required"))
		return
	}

	view, err := h.entries.GetEntry(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, view)
}

// DeleteEntry handles delete entry requests.
func (h *HTTPHandler) DeleteEntry(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "entry id is required"))
		return
	}

	if err := h.entries.DeleteEntry(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── timer ─────────────────────────────────────────────────────────────────────

// StartTimer handles timer start requests.
func (h *HTTPHandler) StartTimer(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ProjectID *string `json:"project_id"`
		Notes     string  `json:"notes"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	entry, err := h.entries.StartTimer(r.Context(), actor, req.ProjectID, req.Notes)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, entry)
}

// StopTimer handles timer stop requests.
func (h *HTTPHandler) StopTimer(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		ID string `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}
	if req.ID == "" {
		h.writeError(w, apperrors.InvalidInput("id", "entry id is required"))
		return
	}

	entry, err := h.entries.StopTimer(r.Context(), actor, req.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, entry)
}

// GetTimer handles running timer lookups.
func (h *HTTPHandler) GetTimer(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	timer, err := h.entries.Running(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"timer": timer})
}

// ── weeks ─────────────────────────────────────────────────────────────────────

// WeekTimesheet handles weekly timesheet requests. The date parameter
// selects the week; it defaults to today.
func (h *HTTPHandler) WeekTimesheet(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	day := time.Now().UTC()
	if raw := r.URL.Query().Get("date"); raw != "" {
		parsed, err := time.Parse(timeutil.DateLayout, raw)
		if err != nil {
			h.writeError(w, apperrors.InvalidInput("date", "invalid date format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	ts, err := h.weeks.Timesheet(r.Context(), actor.ID, day)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ts)
}

// SubmitWeek handles week submission requests.
func (h *HTTPHandler) SubmitWeek(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		Date string `json:"date"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	day := time.Now().UTC()
	if req.Date != "" {
		parsed, err := time.Parse(timeutil.DateLayout, req.Date)
		if err != nil {
			h.writeError(w, apperrors.InvalidInput("date", "invalid date format, expected YYYY-MM-DD"))
			return
		}
		day = parsed
	}

	week, err := h.weeks.Submit(r.Context(), actor, day)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, week)
}

type decisionRequest struct {
	ID      string  `json:"id"`
	Comment *string `json:"comment"`
}

// ApproveWeek handles week approval requests.
func (h *HTTPHandler) ApproveWeek(w http.ResponseWriter, r *http.Request) {
	h.decideWeek(w, r, true)
}

// RejectWeek handles week rejection requests.
func (h *HTTPHandler) RejectWeek(w http.ResponseWriter, r *http.Request) {
	h.decideWeek(w, r, false)
}

func (h *HTTPHandler) decideWeek(w http.ResponseWriter, r *http.Request, approve bool) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req decisionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}
	if req.ID == "" {
		h.writeError(w, apperrors.InvalidInput("id", "week id is required"))
		return
	}

	var week *repository.WeekSummary
	if approve {
		week, err = h.weeks.Approve(r.Context(), actor, req.ID, req.Comment)
	} else {
		week, err = h.weeks.Reject(r.Context(), actor, req.ID, req.Comment)
	}
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, week)
}

// WeekDetail handles manager review requests for one week.
func (h *HTTPHandler) WeekDetail(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "week id is required"))
		return
	}

	ts, err := h.weeks.Detail(r.Context(), actor, id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ts)
}

// Approvals handles the manager approvals overview.
func (h *HTTPHandler) Approvals(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	overview, err := h.weeks.Approvals(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, overview)
}

// ── reports ───────────────────────────────────────────────────────────────────

// Report handles report requests. Without an export parameter the
// response is JSON; export=summary or export=details streams CSV.
func (h *HTTPHandler) Report(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	req := service.ReportRequest{
		StartDate: r.URL.Query().Get("start_date"),
		EndDate:   r.URL.Query().Get("end_date"),
	}

	if projectID := r.URL.Query().Get("project_id"); projectID != "" {
		req.ProjectID = &projectID
	}

	// Employees only ever see their own hours; managers can report on
	// one user or on everyone.
	if actor.IsManager() {
		if userID := r.URL.Query().Get("user_id"); userID != "" {
			req.UserID = &userID
		}
	} else {
		uid := actor.ID
		req.UserID = &uid
	}

	report, err := h.reports.Build(r.Context(), req)
	if err != nil {
		h.writeError(w, err)
		return
	}

	if format := r.URL.Query().Get("export"); format != "" {
		h.writeCSV(w, report, format)
		return
	}
	h.writeJSON(w, http.StatusOK, report)
}

// writeCSV streams a report export. The UTF-8 BOM keeps spreadsheet
// applications from misreading accented names.
func (h *HTTPHandler) writeCSV(w http.ResponseWriter, report *service.Report, format string) {
	rows, err := service.CSVRows(report, format)
	if err != nil {
		h.writeError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="timesheet_report.csv"`)
	w.WriteHeader(http.StatusOK)

	if _, err := w.Write([]byte("\ufeff")); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
		return
	}
	cw := csv.NewWriter(w)
	if err := cw.WriteAll(rows); err != nil {
		h.log.Error().Err(err).Msg("Failed to write CSV export")
	}
}

// Heatmap handles activity heatmap requests for one calendar year.
func (h *HTTPHandler) Heatmap(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	userID := actor.ID
	if actor.IsManager() {
		if qid := r.URL.Query().Get("user_id"); qid != "" {
			userID = qid
		}
	}

	year := time.Now().UTC().Year()
	if raw := r.URL.Query().Get("year"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			h.writeError(w, apperrors.InvalidInput("year", "invalid year"))
			return
		}
		year = parsed
	}

	weeks, err := h.reports.Heatmap(r.Context(), userID, year)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"year": year, "weeks": weeks})
}

// ── dashboard ─────────────────────────────────────────────────────────────────

// Dashboard handles the landing page payload: running timer, recent
// entries and the current week's status. Managers additionally get the
// per-employee project hours for the trailing 90 days.
func (h *HTTPHandler) Dashboard(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}
	ctx := r.Context()

	timer, err := h.entries.Running(ctx, actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	recent, err := h.entries.RecentEntries(ctx, actor, 5)
	if err != nil {
		h.writeError(w, err)
		return
	}
	weekStatus, err := h.weeks.CurrentWeekStatus(ctx, actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}

	payload := map[string]any{
		"timer":   timer,
		"recent":  recent,
		"week":    weekStatus,
		"manager": actor.IsManager(),
	}

	if actor.IsManager() {
		employees, err := h.users.ListEmployees(ctx, actor)
		if err != nil {
			h.writeError(w, err)
			return
		}
		teamHours := make(map[string][]service.SummaryRow, len(employees))
		for _, emp := range employees {
			rows, err := h.reports.EmployeeProjectHours(ctx, emp.ID)
			if err != nil {
				h.writeError(w, err)
				return
			}
			teamHours[emp.Username] = rows
		}
		payload["team_hours"] = teamHours
	}

	h.writeJSON(w, http.StatusOK, payload)
}

// ── projects ──────────────────────────────────────────────────────────────────

type projectRequest struct {
	Name            string `json:"name"`
	Client          string `json:"client"`
	BillableDefault bool   `json:"billable_default"`
	Active          bool   `json:"active"`
}

// CreateProject handles create project requests.
func (h *HTTPHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	project, err := h.projects.Create(r.Context(), actor, &service.ProjectRequest{
		Name:            req.Name,
		Client:          req.Client,
		BillableDefault: req.BillableDefault,
		Active:          req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, project)
}

// UpdateProject handles update project requests.
func (h *HTTPHandler) UpdateProject(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "project id is required"))
		return
	}

	var req projectRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	project, err := h.projects.Update(r.Context(), actor, id, &service.ProjectRequest{
		Name:            req.Name,
		Client:          req.Client,
		BillableDefault: req.BillableDefault,
		Active:          req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// GetProject handles single project lookups.
func (h *HTTPHandler) GetProject(w http.ResponseWriter, r *http.Request) {
	if _, err := h.actor(r); err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "project id is required"))
		return
	}

	project, err := h.projects.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, project)
}

// ListProjects handles project list requests.
func (h *HTTPHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	if _, err := h.actor(r); err != nil {
		h.writeError(w, err)
		return
	}

	activeOnly := r.URL.Query().Get("active") == "true"
	projects, err := h.projects.List(r.Context(), activeOnly)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"projects": projects})
}

// DeleteProject handles delete project requests.
func (h *HTTPHandler) DeleteProject(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		h.writeError(w, apperrors.InvalidInput("id", "project id is required"))
		return
	}

	if err := h.projects.Delete(r.Context(), actor, id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ── users ─────────────────────────────────────────────────────────────────────

// Register handles account registration requests.
func (h *HTTPHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Username string `json:"username"`
		Email    string `json:"email"`
		Role     string `json:"role"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	user, err := h.users.Register(r.Context(), &service.RegisterRequest{
		Username: req.Username,
		Email:    req.Email,
		Role:     req.Role,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, user)
}

// ListEmployees handles employee list requests for manager screens.
func (h *HTTPHandler) ListEmployees(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	employees, err := h.users.ListEmployees(r.Context(), actor)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"employees": employees})
}

// Profile handles profile lookups for the current user.
func (h *HTTPHandler) Profile(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	profile, err := h.users.Profile(r.Context(), actor.ID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, profile)
}

// UpdateAvatar handles avatar path updates for the current user.
func (h *HTTPHandler) UpdateAvatar(w http.ResponseWriter, r *http.Request) {
	actor, err := h.actor(r)
	if err != nil {
		h.writeError(w, err)
		return
	}

	var req struct {
		AvatarPath string `json:"avatar_path"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, apperrors.InvalidInput("body", "invalid request body"))
		return
	}

	if err := h.users.UpdateAvatar(r.Context(), actor, req.AvatarPath); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
