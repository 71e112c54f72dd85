package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/repository"
)

func TestRegisterCreatesUserWithProfile(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())

	u, err := svc.Register(context.Background(), &RegisterRequest{
		Username: " carol ",
		Email:    "carol@example.com",
	})
	require.NoError(t, err)
	assert.Equal(t, "carol", u.Username)
	assert.Equal(t, repository.RoleEmployee, u.Role)

	profile, err := svc.Profile(context.Background(), u.ID)
	require.NoError(t, err)
	assert.Equal(t, u.ID, profile.UserID)
}

func TestRegisterValidatesRole(t *testing.T) {
	svc := NewUserService(newFakeUserStore(), testLogger())

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "carol", Role: "admin"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))

	_, err = svc.Register(context.Background(), &RegisterRequest{Username: "dave", Role: repository.RoleManager})
	require.NoError(t, err)
}

func TestRegisterRequiresUsername(t *testing.T) {
	svc := NewUserService(newFakeUserStore(), testLogger())

	_, err := svc.Register(context.Background(), &RegisterRequest{Username: "  "})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestListEmployeesRequiresManager(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())
	ctx := context.Background()

	_, err := svc.Register(ctx, &RegisterRequest{Username: "alice"})
	require.NoError(t, err)
	_, err = svc.Register(ctx, &RegisterRequest{Username: "mallory", Role: repository.RoleManager})
	require.NoError(t, err)

	_, err = svc.ListEmployees(ctx, testEmployee())
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))

	employees, err := svc.ListEmployees(ctx, testManager())
	require.NoError(t, err)
	require.Len(t, employees, 1)
	assert.Equal(t, "alice", employees[0].Username)
}

func TestUpdateAvatar(t *testing.T) {
	store := newFakeUserStore()
	svc := NewUserService(store, testLogger())
	ctx := context.Background()

	u, err := svc.Register(ctx, &RegisterRequest{Username: "alice"})
	require.NoError(t, err)

	require.NoError(t, svc.UpdateAvatar(ctx, u, "avatars/alice.png"))

	profile, err := svc.Profile(ctx, u.ID)
	require.NoError(t, err)
	require.NotNil(t, profile.AvatarPath)
	assert.Equal(t, "avatars/alice.png", *profile.AvatarPath)

	err = svc.UpdateAvatar(ctx, u, "  ")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}
