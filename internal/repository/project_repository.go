package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/database"
)

// ProjectRepository handles project data operations.
type ProjectRepository struct {
	db *database.DB
}

// NewProjectRepository creates a new project repository.
func NewProjectRepository(db *database.DB) *ProjectRepository {
	return &ProjectRepository{db: db}
}

// Create inserts a new project.
func (r *ProjectRepository) Create(ctx context.Context, p *Project) error {
	query := `
		INSERT INTO projects (name, client, billable_default, active)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.Name, p.Client, p.BillableDefault, p.Active,
	).Scan(&p.ID, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create project")
	}
	return nil
}

// Update rewrites a project's editable fields.
func (r *ProjectRepository) Update(ctx context.Context, p *Project) error {
	query := `
		UPDATE projects
		SET name = $2, client = $3, billable_default = $4, active = $5, updated_at = NOW()
		WHERE id = $1
		RETURNING updated_at
	`
	err := r.db.QueryRow(ctx, query,
		p.ID, p.Name, p.Client, p.BillableDefault, p.Active,
	).Scan(&p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return apperrors.NotFound("project", p.ID)
	}
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update project")
	}
	return nil
}

// GetByID retrieves a project.
func (r *ProjectRepository) GetByID(ctx context.Context, id string) (*Project, error) {
	p := &Project{}
	err := r.db.QueryRow(ctx, `
		SELECT id, name, client, billable_default, active, created_at, updated_at
		FROM projects
		WHERE id = $1
	`, id).Scan(&p.ID, &p.Name, &p.Client, &p.BillableDefault, &p.Active, &p.CreatedAt, &p.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("project", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get project")
	}
	return p, nil
}

// List retrieves projects ordered by name, optionally active only.
func (r *ProjectRepository) List(ctx context.Context, activeOnly bool) ([]*Project, error) {
	query := `
		SELECT id, name, client, billable_default, active, created_at, updated_at
		FROM projects
	`
	if activeOnly {
		query += " WHERE active"
	}
	query += " ORDER BY name"

	rows, err := r.db.Query(ctx, query)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list projects")
	}
	defer rows.Close()

	projects := make([]*Project, 0)
	for rows.Next() {
		p := &Project{}
		err := rows.Scan(&p.ID, &p.Name, &p.Client, &p.BillableDefault, &p.Active, &p.CreatedAt, &p.UpdatedAt)
		if err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan project")
		}
		projects = append(projects, p)
	}
	return projects, rows.Err()
}

// Delete removes a project unless timesheet entries reference it. The
// reference check and the delete run in one transaction; the FK RESTRICT
// constraint backstops any race.
func (r *ProjectRepository) Delete(ctx context.Context, id string) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		var referenced bool
		err := tx.QueryRow(ctx,
			`SELECT EXISTS (SELECT 1 FROM timesheet_entries WHERE project_id = $1)`,
			id).Scan(&referenced)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to check project references")
		}
		if referenced {
			return apperrors.New(apperrors.ErrCodeReferenced,
				"cannot delete project linked to timesheet entries")
		}

		tag, err := tx.Exec(ctx, `DELETE FROM projects WHERE id = $1`, id)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to delete project")
		}
		if tag.RowsAffected() == 0 {
			return apperrors.NotFound("project", id)
		}
		return nil
	})
}
