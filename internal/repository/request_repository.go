package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// RequestRepository provides persistence for shift-change requests.
type RequestRepository struct {
	db *sqlx.DB
}

// NewRequestRepository creates a new request repository.
func NewRequestRepository(db *sqlx.DB) *RequestRepository {
	return &RequestRepository{db: db}
}

// Create stores a pending request and fills its id.
func (r *RequestRepository) Create(ctx context.Context, req *models.Request) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO requests (username, shift_id, reason, replacement, status, created_at) VALUES ($1, $2, $3, $4, $5, $6) RETURNING id`
	row := r.db.QueryRowxContext(ctx, query, req.Username, req.ShiftID, req.Reason, req.Replacement, req.Status, req.CreatedAt)
	if err := row.Scan(&req.ID); err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// FindByID loads one request.
func (r *RequestRepository) FindByID(ctx context.Context, id int64) (*models.Request, error) {
	const query = `SELECT id, username, shift_id, reason, replacement, status, created_at, resolved_at FROM requests WHERE id = $1`
	var req models.Request
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		return nil, err
	}
	return &req, nil
}

// Transition moves a request out of PENDING exactly once; stale
// transitions report sql.ErrNoRows.
func (r *RequestRepository) Transition(ctx context.Context, id int64, to models.RequestStatus, resolvedAt time.Time) error {
	const query = `UPDATE requests SET status = $2, resolved_at = $3 WHERE id = $1 AND status = 'PENDING'`
	result, err := r.db.ExecContext(ctx, query, id, to, resolvedAt)
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition request rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ListByStaff returns the staff member's requests, newest first.
func (r *RequestRepository) ListByStaff(ctx context.Context, username string) ([]models.Request, error) {
	const query = `SELECT id, username, shift_id, reason, replacement, status, created_at, resolved_at FROM requests WHERE username = $1 ORDER BY created_at DESC`
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query, username); err != nil {
		return nil, fmt.Errorf("list requests by staff: %w", err)
	}
	return requests, nil
}

// ListPending returns every pending request, oldest first.
func (r *RequestRepository) ListPending(ctx context.Context) ([]models.Request, error) {
	const query = `SELECT id, username, shift_id, reason, replacement, status, created_at, resolved_at FROM requests WHERE status = 'PENDING' ORDER BY created_at`
	var requests []models.Request
	if err := r.db.SelectContext(ctx, &requests, query); err != nil {
		return nil, fmt.Errorf("list pending requests: %w", err)
	}
	return requests, nil
}
