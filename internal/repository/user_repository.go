package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// UserRepository provides persistence for account headers and
// registration submissions.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new user repository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// BeginTxx exposes transaction creation for account onboarding flows.
func (r *UserRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// FindByUsername loads a user by its primary key.
func (r *UserRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	const query = `SELECT username, password_hash, kind, created_at, updated_at FROM users WHERE username = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		return nil, err
	}
	return &user, nil
}

// Create stores a new user header.
func (r *UserRepository) Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error {
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	const query = `INSERT INTO users (username, password_hash, kind, created_at, updated_at) VALUES (:username, :password_hash, :kind, :created_at, :updated_at)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, user); err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}

// UpdatePassword replaces the stored hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, username, passwordHash string) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE username = $1`
	if _, err := r.db.ExecContext(ctx, query, username, passwordHash, time.Now().UTC()); err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	return nil
}

// CreateRegistration stores a pending sign-up.
func (r *UserRepository) CreateRegistration(ctx context.Context, reg *models.Registration) error {
	if reg.CreatedAt.IsZero() {
		reg.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO registrations (username, password_hash, name, degree, created_at) VALUES (:username, :password_hash, :name, :degree, :created_at) RETURNING id`
	rows, err := sqlx.NamedQueryContext(ctx, r.db, query, reg)
	if err != nil {
		return fmt.Errorf("create registration: %w", err)
	}
	defer rows.Close()
	if rows.Next() {
		if err := rows.Scan(&reg.ID); err != nil {
			return fmt.Errorf("scan registration id: %w", err)
		}
	}
	return nil
}

// FindRegistration loads a pending sign-up.
func (r *UserRepository) FindRegistration(ctx context.Context, id int64) (*models.Registration, error) {
	const query = `SELECT id, username, password_hash, name, degree, approved, created_at FROM registrations WHERE id = $1`
	var reg models.Registration
	if err := r.db.GetContext(ctx, &reg, query, id); err != nil {
		return nil, err
	}
	return &reg, nil
}

// ResolveRegistration records the admin decision.
func (r *UserRepository) ResolveRegistration(ctx context.Context, exec sqlx.ExtContext, id int64, approved bool) error {
	const query = `UPDATE registrations SET approved = $2 WHERE id = $1`
	if _, err := exec.ExecContext(ctx, query, id, approved); err != nil {
		return fmt.Errorf("resolve registration: %w", err)
	}
	return nil
}

// HasRegistration reports whether a username already has a pending or
// approved submission.
func (r *UserRepository) HasRegistration(ctx context.Context, username string) (bool, error) {
	const query = `SELECT COUNT(*) FROM registrations WHERE username = $1 AND (approved IS NULL OR approved = TRUE)`
	var count int
	if err := r.db.GetContext(ctx, &count, query, username); err != nil {
		return false, fmt.Errorf("count registrations: %w", err)
	}
	return count > 0, nil
}
