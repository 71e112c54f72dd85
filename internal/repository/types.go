package repository

import "time"

// User roles.
const (
	RoleEmployee = "employee"
	RoleManager  = "manager"
)

// Week summary statuses.
const (
	StatusDraft     = "draft"
	StatusSubmitted = "submitted"
	StatusApproved  = "approved"
	StatusRejected  = "rejected"
)

// User is an account that owns timesheet entries and week summaries.
type User struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// IsManager reports whether the user holds the manager role.
func (u *User) IsManager() bool {
	return u.Role == RoleManager
}

// Profile is the one-to-one companion record for a user, created
// alongside the user row. Avatar storage itself is out of scope; only
// the path is kept here.
type Profile struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	AvatarPath *string   `json:"avatar_path,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Project is a client project entries can be booked against. Projects
// referenced by entries cannot be deleted; they are deactivated instead.
type Project struct {
	ID              string    `json:"id"`
	Name            string    `json:"name"`
	Client          string    `json:"client"`
	BillableDefault bool      `json:"billable_default"`
	Active          bool      `json:"active"`
	CreatedAt       time.Time `json:"created_at"`
	UpdatedAt       time.Time `json:"updated_at"`
}

// TimesheetEntry is one logged block of work time. A nil EndTime means
// the entry is a running timer. Username and ProjectName are joined in
// by list queries for display and grouping.
type TimesheetEntry struct {
	ID              string     `json:"id"`
	UserID          string     `json:"user_id"`
	Username        string     `json:"username"`
	ProjectID       *string    `json:"project_id,omitempty"`
	ProjectName     *string    `json:"project_name,omitempty"`
	WorkDate        string     `json:"work_date"`
	StartTime       *time.Time `json:"start_time,omitempty"`
	EndTime         *time.Time `json:"end_time,omitempty"`
	BreakMinutes    int        `json:"break_minutes"`
	DurationMinutes int        `json:"duration_minutes"`
	Billable        bool       `json:"billable"`
	Notes           string     `json:"notes"`
	CreatedAt       time.Time  `json:"created_at"`
	UpdatedAt       time.Time  `json:"updated_at"`
}

// WeekSummary is the approval unit for one user's Monday-starting week.
type WeekSummary struct {
	ID             string     `json:"id"`
	UserID         string     `json:"user_id"`
	Username       string     `json:"username"`
	WeekStart      string     `json:"week_start"`
	Status         string     `json:"status"`
	ApproverID     *string    `json:"approver_id,omitempty"`
	SubmittedAt    *time.Time `json:"submitted_at,omitempty"`
	ApprovedAt     *time.Time `json:"approved_at,omitempty"`
	AuditNote      string     `json:"audit_note,omitempty"`
	ManagerComment *string    `json:"manager_comment,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

// EntryFilter narrows entry list queries. A nil UserID means all users.
type EntryFilter struct {
	UserID        *string
	StartDate     string
	EndDate       string
	ProjectID     *string
	EmployeesOnly bool
}

// DayTotal is the summed worked minutes for one calendar date.
type DayTotal struct {
	Date    string `json:"date"`
	Minutes int    `json:"minutes"`
}
