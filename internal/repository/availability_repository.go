package repository

import (
	"context"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// AvailabilityRepository provides persistence for recurring weekly
// availability windows.
type AvailabilityRepository struct {
	db *sqlx.DB
}

// NewAvailabilityRepository creates a new availability repository.
func NewAvailabilityRepository(db *sqlx.DB) *AvailabilityRepository {
	return &AvailabilityRepository{db: db}
}

// ListForStaff returns all windows for a staff member ordered by day.
func (r *AvailabilityRepository) ListForStaff(ctx context.Context, username string) ([]models.Availability, error) {
	const query = `SELECT id, username, day_of_week, start_minutes, end_minutes FROM availability WHERE username = $1 ORDER BY day_of_week, start_minutes`
	var windows []models.Availability
	if err := r.db.SelectContext(ctx, &windows, query, username); err != nil {
		return nil, fmt.Errorf("list availability: %w", err)
	}
	return windows, nil
}

// ListForDay returns every window on a weekday, for batch resolution.
func (r *AvailabilityRepository) ListForDay(ctx context.Context, day int) ([]models.Availability, error) {
	const query = `SELECT id, username, day_of_week, start_minutes, end_minutes FROM availability WHERE day_of_week = $1 ORDER BY username, start_minutes`
	var windows []models.Availability
	if err := r.db.SelectContext(ctx, &windows, query, day); err != nil {
		return nil, fmt.Errorf("list availability for day: %w", err)
	}
	return windows, nil
}

// ListForStaffSet returns all windows of the given staff in one query.
func (r *AvailabilityRepository) ListForStaffSet(ctx context.Context, usernames []string) ([]models.Availability, error) {
	if len(usernames) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, username, day_of_week, start_minutes, end_minutes FROM availability WHERE username IN (?) ORDER BY username, day_of_week, start_minutes`, usernames)
	if err != nil {
		return nil, fmt.Errorf("build availability query: %w", err)
	}
	query = r.db.Rebind(query)

	var windows []models.Availability
	if err := r.db.SelectContext(ctx, &windows, query, args...); err != nil {
		return nil, fmt.Errorf("list availability for staff set: %w", err)
	}
	return windows, nil
}

// Create stores one window. start < end is enforced by a check
// constraint; the service validates first for a friendlier error.
func (r *AvailabilityRepository) Create(ctx context.Context, exec sqlx.ExtContext, window *models.Availability) error {
	const query = `INSERT INTO availability (username, day_of_week, start_minutes, end_minutes) VALUES (:username, :day_of_week, :start_minutes, :end_minutes)`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, window); err != nil {
		return fmt.Errorf("create availability: %w", err)
	}
	return nil
}

// Delete removes one window owned by the staff member.
func (r *AvailabilityRepository) Delete(ctx context.Context, username string, id int64) (int64, error) {
	result, err := r.db.ExecContext(ctx, `DELETE FROM availability WHERE id = $1 AND username = $2`, id, username)
	if err != nil {
		return 0, fmt.Errorf("delete availability: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete availability rows affected: %w", err)
	}
	return affected, nil
}
