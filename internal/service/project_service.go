package service

import (
	"context"
	"strings"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/logger"
	"github.com/chronoworks/be-timesheets/internal/repository"
)

// ProjectService owns project management. Mutations are manager-only;
// listing is open to every account so the entry form can offer choices.
type ProjectService struct {
	projects ProjectStore
	log      *logger.Logger
}

// NewProjectService creates a new project service.
func NewProjectService(projects ProjectStore, log *logger.Logger) *ProjectService {
	return &ProjectService{projects: projects, log: log}
}

// ProjectRequest carries project fields from the form layer.
type ProjectRequest struct {
	Name            string
	Client          string
	BillableDefault bool
	Active          bool
}

// Create adds a project.
func (s *ProjectService) Create(ctx context.Context, actor *repository.User, req *ProjectRequest) (*repository.Project, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can manage projects")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.InvalidInput("name", "project name is required")
	}

	p := &repository.Project{
		Name:            strings.TrimSpace(req.Name),
		Client:          strings.TrimSpace(req.Client),
		BillableDefault: req.BillableDefault,
		Active:          req.Active,
	}
	if err := s.projects.Create(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("project_id", p.ID).
		Str("name", p.Name).
		Msg("Project created")

	return p, nil
}

// Update rewrites a project's editable fields.
func (s *ProjectService) Update(ctx context.Context, actor *repository.User, id string, req *ProjectRequest) (*repository.Project, error) {
	if !actor.IsManager() {
		return nil, apperrors.Forbidden("only managers can manage projects")
	}
	if strings.TrimSpace(req.Name) == "" {
		return nil, apperrors.InvalidInput("name", "project name is required")
	}

	p, err := s.projects.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	p.Name = strings.TrimSpace(req.Name)
	p.Client = strings.TrimSpace(req.Client)
	p.BillableDefault = req.BillableDefault
	p.Active = req.Active

	if err := s.projects.Update(ctx, p); err != nil {
		return nil, err
	}

	s.log.Info().
		Str("project_id", p.ID).
		Str("name", p.Name).
		Msg("Project updated")

	return p, nil
}

// Get retrieves a project.
func (s *ProjectService) Get(ctx context.Context, id string) (*repository.Project, error) {
	return s.projects.GetByID(ctx, id)
}

// List retrieves projects, optionally active only.
func (s *ProjectService) List(ctx context.Context, activeOnly bool) ([]*repository.Project, error) {
	return s.projects.List(ctx, activeOnly)
}

// Delete removes a project. Projects referenced by timesheet entries
// cannot be deleted; callers deactivate them instead.
func (s *ProjectService) Delete(ctx context.Context, actor *repository.User, id string) error {
	if !actor.IsManager() {
		return apperrors.Forbidden("only managers can manage projects")
	}
	if err := s.projects.Delete(ctx, id); err != nil {
		return err
	}
	s.log.Info().
		Str("project_id", id).
		Msg("Project deleted")
	return nil
}
