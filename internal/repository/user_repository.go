package repository

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/chronoworks/be-timesheets/internal/apperrors"
	"github.com/chronoworks/be-timesheets/internal/database"
)

// UserRepository handles user and profile data operations.
type UserRepository struct {
	db *database.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *database.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create inserts a user together with their default profile. The two
// inserts share a transaction so a user can never exist without a
// profile row.
func (r *UserRepository) Create(ctx context.Context, u *User) error {
	return r.db.InTransaction(ctx, func(tx pgx.Tx) error {
		err := tx.QueryRow(ctx, `
			INSERT INTO users (username, email, role)
			VALUES ($1, $2, $3)
			RETURNING id, created_at, updated_at
		`, u.Username, u.Email, u.Role).Scan(&u.ID, &u.CreatedAt, &u.UpdatedAt)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create user")
		}

		_, err = tx.Exec(ctx, `INSERT INTO profiles (user_id) VALUES ($1)`, u.ID)
		if err != nil {
			return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to create profile")
		}
		return nil
	})
}

// GetByID retrieves a user.
func (r *UserRepository) GetByID(ctx context.Context, id string) (*User, error) {
	u := &User{}
	err := r.db.QueryRow(ctx, `
		SELECT id, username, email, role, created_at, updated_at
		FROM users
		WHERE id = $1
	`, id).Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("user", id)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get user")
	}
	return u, nil
}

// ListEmployees retrieves employee accounts ordered by username.
func (r *UserRepository) ListEmployees(ctx context.Context) ([]*User, error) {
	rows, err := r.db.Query(ctx, `
		SELECT id, username, email, role, created_at, updated_at
		FROM users
		WHERE role = $1
		ORDER BY username
	`, RoleEmployee)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to list employees")
	}
	defer rows.Close()

	users := make([]*User, 0)
	for rows.Next() {
		u := &User{}
		if err := rows.Scan(&u.ID, &u.Username, &u.Email, &u.Role, &u.CreatedAt, &u.UpdatedAt); err != nil {
			return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to scan user")
		}
		users = append(users, u)
	}
	return users, rows.Err()
}

// GetProfile retrieves the profile for a user.
func (r *UserRepository) GetProfile(ctx context.Context, userID string) (*Profile, error) {
	p := &Profile{}
	err := r.db.QueryRow(ctx, `
		SELECT id, user_id, avatar_path, created_at
		FROM profiles
		WHERE user_id = $1
	`, userID).Scan(&p.ID, &p.UserID, &p.AvatarPath, &p.CreatedAt)
	if err == pgx.ErrNoRows {
		return nil, apperrors.NotFound("profile", userID)
	}
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to get profile")
	}
	return p, nil
}

// UpdateAvatar stores the avatar path written by the upload collaborator.
func (r *UserRepository) UpdateAvatar(ctx context.Context, userID, path string) error {
	tag, err := r.db.Exec(ctx,
		`UPDATE profiles SET avatar_path = $2 WHERE user_id = $1`, userID, path)
	if err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeInternal, "failed to update avatar")
	}
	if tag.RowsAffected() == 0 {
		return apperrors.NotFound("profile", userID)
	}
	return nil
}
