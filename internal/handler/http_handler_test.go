package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
	"github.com/chronoworks/be-timesheets/internal/service"
)

type stubUserStore struct {
	users map[string]*repository.User
}

func (s *stubUserStore) Create(_ context.Context, u *repository.User) error {
	u.ID = "u-" + u.Username
	s.users[u.ID] = u
	return nil
}

func (s *stubUserStore) GetByID(_ context.Context, id string) (*repository.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, apperrors.NotFound("user", id)
	}
	return u, nil
}

func (s *stubUserStore) ListEmployees(context.Context) ([]*repository.User, error) {
	return nil, nil
}

func (s *stubUserStore) GetProfile(_ context.Context, userID string) (*repository.Profile, error) {
	return &repository.Profile{UserID: userID}, nil
}

func (s *stubUserStore) UpdateAvatar(context.Context, string, string) error {
	return nil
}

func newTestHandler() (*HTTPHandler, *stubUserStore) {
	log := logger.New(logger.Config{Level: "error", Environment: "test"})
	users := &stubUserStore{users: map[string]*repository.User{
		"emp-1": {ID: "emp-1", Username: "alice", Role: repository.RoleEmployee},
	}}
	h := NewHTTPHandler(nil, nil, nil, nil, service.NewUserService(users, log), log)
	return h, users
}

func TestActorMissingIdentity(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/entries", nil)
	rec := httptest.NewRecorder()
	h.ListEntries(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.ErrCodeForbidden, body["code"])
}

func TestActorUnknownUser(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set(actorHeader, "ghost")
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileResolvesActorFromHeader(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/users/profile", nil)
	req.Header.Set(actorHeader, "emp-1")
	rec := httptest.NewRecorder()
	h.Profile(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var profile repository.Profile
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&profile))
	assert.Equal(t, "emp-1", profile.UserID)
}

func TestWriteErrorIncludesFieldForValidation(t *testing.T) {
	h, _ := newTestHandler()

	rec := httptest.NewRecorder()
	h.writeError(rec, apperrors.Validation(apperrors.ErrCodeOverlapConflict, "start_time", "overlapping entry for this day exists"))

	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))

	var body map[string]string
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
	assert.Equal(t, apperrors.ErrCodeOverlapConflict, body["code"])
	assert.Equal(t, "start_time", body["field"])
	assert.Contains(t, body["error"], "overlapping entry")
}

func TestRegisterRejectsBadRole(t *testing.T) {
	h, _ := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register",
		strings.NewReader(`{"username":"carol","role":"admin"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegisterCreatesUser(t *testing.T) {
	h, users := newTestHandler()

	req := httptest.NewRequest(http.MethodPost, "/api/v1/users/register",
		strings.NewReader(`{"username":"carol","email":"carol@example.com"}`))
	rec := httptest.NewRecorder()
	h.Register(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	created, ok := users.users["u-carol"]
	require.True(t, ok)
	assert.Equal(t, repository.RoleEmployee, created.Role)
}

func TestWriteCSVStartsWithBOM(t *testing.T) {
	h, _ := newTestHandler()

	report := &service.Report{
		SummaryRows: []service.SummaryRow{{Name: "Project A", Hours: 3}},
	}
	rec := httptest.NewRecorder()
	h.writeCSV(rec, report, "summary")

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")

	body := rec.Body.String()
	require.True(t, strings.HasPrefix(body, "\ufeff"))
	assert.Contains(t, body, "Project,Total Hours")
	assert.Contains(t, body, "Project A,3.00")
}

func TestWriteCSVUnknownFormat(t *testing.T) {
	h, _ := newTestHandler()

	rec := httptest.NewRecorder()
	h.writeCSV(rec, &service.Report{}, "pivot")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
