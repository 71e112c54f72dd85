package service

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
)

func TestProjectCreateRequiresManager(t *testing.T) {
	svc := NewProjectService(newFakeProjectStore(), testLogger())

	_, err := svc.Create(context.Background(), testEmployee(), &ProjectRequest{Name: "Project A"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeForbidden, apperrors.CodeOf(err))
}

func TestProjectCreateAndUpdate(t *testing.T) {
	svc := NewProjectService(newFakeProjectStore(), testLogger())
	mgr := testManager()
	ctx := context.Background()

	p, err := svc.Create(ctx, mgr, &ProjectRequest{
		Name:            "  Project A  ",
		Client:          "ACME",
		BillableDefault: true,
		Active:          true,
	})
	require.NoError(t, err)
	assert.Equal(t, "Project A", p.Name)
	assert.NotEmpty(t, p.ID)

	updated, err := svc.Update(ctx, mgr, p.ID, &ProjectRequest{
		Name:   "Project A",
		Client: "ACME",
		Active: false,
	})
	require.NoError(t, err)
	assert.False(t, updated.Active)
	assert.False(t, updated.BillableDefault)
}

func TestProjectCreateRejectsBlankName(t *testing.T) {
	svc := NewProjectService(newFakeProjectStore(), testLogger())

	_, err := svc.Create(context.Background(), testManager(), &ProjectRequest{Name: "   "})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeInvalidInput, apperrors.CodeOf(err))
}

func TestProjectDeleteBlockedWhenReferenced(t *testing.T) {
	store := newFakeProjectStore()
	svc := NewProjectService(store, testLogger())
	mgr := testManager()
	ctx := context.Background()

	p, err := svc.Create(ctx, mgr, &ProjectRequest{Name: "Project A", Active: true})
	require.NoError(t, err)
	store.referenced[p.ID] = true

	err = svc.Delete(ctx, mgr, p.ID)
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeReferenced, apperrors.CodeOf(err))

	// Still listable; deactivation is the way out.
	projects, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, projects, 1)
}

func TestProjectDeleteUnreferenced(t *testing.T) {
	store := newFakeProjectStore()
	svc := NewProjectService(store, testLogger())
	mgr := testManager()
	ctx := context.Background()

	p, err := svc.Create(ctx, mgr, &ProjectRequest{Name: "Scratch", Active: true})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, mgr, p.ID))
	_, err = svc.Get(ctx, p.ID)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.CodeOf(err))
}

func TestProjectListActiveOnly(t *testing.T) {
	store := newFakeProjectStore()
	svc := NewProjectService(store, testLogger())
	mgr := testManager()
	ctx := context.Background()

	_, err := svc.Create(ctx, mgr, &ProjectRequest{Name: "Active", Active: true})
	require.NoError(t, err)
	_, err = svc.Create(ctx, mgr, &ProjectRequest{Name: "Dormant", Active: false})
	require.NoError(t, err)

	all, err := svc.List(ctx, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	active, err := svc.List(ctx, true)
	require.NoError(t, err)
	require.Len(t, active, 1)
	assert.Equal(t, "Active", active[0].Name)
}
