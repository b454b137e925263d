package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/campusworks/roster-api/internal/models"
)

// ErrDuplicateAllocation marks a unique-constraint violation on
// (shift_id, username).
var ErrDuplicateAllocation = errors.New("allocation already exists")

// AllocationRepository provides persistence for shift allocations.
type AllocationRepository struct {
	db *sqlx.DB
}

// NewAllocationRepository creates a new allocation repository.
func NewAllocationRepository(db *sqlx.DB) *AllocationRepository {
	return &AllocationRepository{db: db}
}

// LockShift takes a row-level lock on the parent shift for the duration
// of the transaction, serializing concurrent allocation writes. The
// unique constraint is the second line of defense.
func (r *AllocationRepository) LockShift(ctx context.Context, exec sqlx.ExtContext, shiftID int64) error {
	var id int64
	row := exec.QueryRowxContext(ctx, `SELECT id FROM shifts WHERE id = $1 FOR UPDATE`, shiftID)
	if err := row.Scan(&id); err != nil {
		return err
	}
	return nil
}

// Insert stores one allocation. Duplicate (shift, staff) pairs surface
// as ErrDuplicateAllocation.
func (r *AllocationRepository) Insert(ctx context.Context, exec sqlx.ExtContext, alloc *models.Allocation) error {
	const query = `INSERT INTO allocations (schedule_id, shift_id, username) VALUES ($1, $2, $3) RETURNING id`
	row := exec.QueryRowxContext(ctx, query, alloc.ScheduleID, alloc.ShiftID, alloc.Username)
	if err := row.Scan(&alloc.ID); err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrDuplicateAllocation
		}
		return fmt.Errorf("insert allocation: %w", err)
	}
	return nil
}

// Delete removes one allocation by (shift, staff); the returned count
// is zero when no such row exists.
func (r *AllocationRepository) Delete(ctx context.Context, exec sqlx.ExtContext, shiftID int64, username string) (int64, error) {
	result, err := exec.ExecContext(ctx, `DELETE FROM allocations WHERE shift_id = $1 AND username = $2`, shiftID, username)
	if err != nil {
		return 0, fmt.Errorf("delete allocation: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("delete allocation rows affected: %w", err)
	}
	return affected, nil
}

// DeleteInRange clears a schedule's allocations whose shift date falls
// in [start, end].
func (r *AllocationRepository) DeleteInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error {
	const query = `DELETE FROM allocations WHERE schedule_id = $1 AND shift_id IN (SELECT id FROM shifts WHERE schedule_id = $1 AND date >= $2 AND date <= $3)`
	if _, err := exec.ExecContext(ctx, query, scheduleID, start, end); err != nil {
		return fmt.Errorf("delete allocations in range: %w", err)
	}
	return nil
}

// Exists reports whether (shift, staff) is already allocated.
func (r *AllocationRepository) Exists(ctx context.Context, shiftID int64, username string) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM allocations WHERE shift_id = $1 AND username = $2`, shiftID, username); err != nil {
		return false, fmt.Errorf("check allocation exists: %w", err)
	}
	return count > 0, nil
}

// ListByShifts returns allocations grouped under the given shifts.
func (r *AllocationRepository) ListByShifts(ctx context.Context, shiftIDs []int64) ([]models.Allocation, error) {
	if len(shiftIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, schedule_id, shift_id, username FROM allocations WHERE shift_id IN (?) ORDER BY shift_id, username`, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("build allocations query: %w", err)
	}
	query = r.db.Rebind(query)

	var allocations []models.Allocation
	if err := r.db.SelectContext(ctx, &allocations, query, args...); err != nil {
		return nil, fmt.Errorf("list allocations by shifts: %w", err)
	}
	return allocations, nil
}

// DistinctStaff returns every staff member allocated on a schedule.
func (r *AllocationRepository) DistinctStaff(ctx context.Context, scheduleID int64) ([]string, error) {
	const query = `SELECT DISTINCT username FROM allocations WHERE schedule_id = $1 ORDER BY username`
	var usernames []string
	if err := r.db.SelectContext(ctx, &usernames, query, scheduleID); err != nil {
		return nil, fmt.Errorf("list distinct allocated staff: %w", err)
	}
	return usernames, nil
}

// ShiftsForStaffOnDate returns the staff member's allocated shifts on a
// date, earliest first.
func (r *AllocationRepository) ShiftsForStaffOnDate(ctx context.Context, scheduleID int64, username string, date time.Time) ([]models.Shift, error) {
	const query = `
		SELECT s.id, s.schedule_id, s.date, s.start_time, s.end_time
		FROM allocations a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.schedule_id = $1 AND a.username = $2 AND s.date = $3
		ORDER BY s.start_time`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, scheduleID, username, date); err != nil {
		return nil, fmt.Errorf("list staff shifts on date: %w", err)
	}
	return shifts, nil
}

// UpcomingShiftsForStaff returns allocated shifts on or after a date.
func (r *AllocationRepository) UpcomingShiftsForStaff(ctx context.Context, scheduleID int64, username string, from time.Time, limit int) ([]models.Shift, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `
		SELECT s.id, s.schedule_id, s.date, s.start_time, s.end_time
		FROM allocations a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.schedule_id = $1 AND a.username = $2 AND s.date >= $3
		ORDER BY s.date, s.start_time
		LIMIT $4`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, scheduleID, username, from, limit); err != nil {
		return nil, fmt.Errorf("list upcoming staff shifts: %w", err)
	}
	return shifts, nil
}

// StaffAllocatedAt reports whether the staff member holds an allocation
// on the schedule at the given weekday and hour.
func (r *AllocationRepository) StaffAllocatedAt(ctx context.Context, scheduleID int64, username string, day, hour int) (bool, error) {
	const query = `
		SELECT COUNT(*)
		FROM allocations a
		JOIN shifts s ON s.id = a.shift_id
		WHERE a.schedule_id = $1 AND a.username = $2
		  AND EXTRACT(ISODOW FROM s.date) - 1 = $3
		  AND EXTRACT(HOUR FROM s.start_time) = $4`
	var count int
	if err := r.db.GetContext(ctx, &count, query, scheduleID, username, day, hour); err != nil {
		return false, fmt.Errorf("check staff allocated at slot: %w", err)
	}
	return count > 0, nil
}
