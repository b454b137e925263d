package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// ScheduleRepository provides persistence for schedules, shifts and
// per-shift course demands.
type ScheduleRepository struct {
	db *sqlx.DB
}

// NewScheduleRepository creates a new schedule repository.
func NewScheduleRepository(db *sqlx.DB) *ScheduleRepository {
	return &ScheduleRepository{db: db}
}

// BeginTxx exposes transaction creation to the services.
func (r *ScheduleRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// EnsurePrimary upserts the fixed-id schedule for a pool so that it
// spans at least [start, end]. Regeneration refreshes generated_at.
func (r *ScheduleRepository) EnsurePrimary(ctx context.Context, exec sqlx.ExtContext, kind models.StaffKind, start, end, generatedAt time.Time) (int64, error) {
	id := models.PrimaryScheduleID(kind)
	const query = `
		INSERT INTO schedules (id, start_date, end_date, kind, generated_at, is_published)
		VALUES ($1, $2, $3, $4, $5, FALSE)
		ON CONFLICT (id) DO UPDATE SET
			start_date = LEAST(schedules.start_date, EXCLUDED.start_date),
			end_date = GREATEST(schedules.end_date, EXCLUDED.end_date),
			generated_at = EXCLUDED.generated_at`
	if _, err := exec.ExecContext(ctx, query, id, start, end, kind, generatedAt); err != nil {
		return 0, fmt.Errorf("ensure primary schedule: %w", err)
	}
	return id, nil
}

// FindByID loads a schedule.
func (r *ScheduleRepository) FindByID(ctx context.Context, id int64) (*models.Schedule, error) {
	const query = `SELECT id, start_date, end_date, kind, generated_at, is_published FROM schedules WHERE id = $1`
	var schedule models.Schedule
	if err := r.db.GetContext(ctx, &schedule, query, id); err != nil {
		return nil, err
	}
	return &schedule, nil
}

// MarkPublished flips is_published exactly once; the returned count is
// zero when the schedule was already published.
func (r *ScheduleRepository) MarkPublished(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error) {
	result, err := exec.ExecContext(ctx, `UPDATE schedules SET is_published = TRUE WHERE id = $1 AND is_published = FALSE`, id)
	if err != nil {
		return 0, fmt.Errorf("mark schedule published: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark published rows affected: %w", err)
	}
	return affected, nil
}

// DeleteShiftsInRange removes a schedule's shifts whose date falls in
// [start, end]; demands and allocations cascade.
func (r *ScheduleRepository) DeleteShiftsInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error {
	const query = `DELETE FROM shifts WHERE schedule_id = $1 AND date >= $2 AND date <= $3`
	if _, err := exec.ExecContext(ctx, query, scheduleID, start, end); err != nil {
		return fmt.Errorf("delete shifts in range: %w", err)
	}
	return nil
}

// CreateShift inserts a shift and fills its id.
func (r *ScheduleRepository) CreateShift(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) error {
	const query = `INSERT INTO shifts (schedule_id, date, start_time, end_time) VALUES ($1, $2, $3, $4) RETURNING id`
	row := exec.QueryRowxContext(ctx, query, shift.ScheduleID, shift.Date, shift.StartTime, shift.EndTime)
	if err := row.Scan(&shift.ID); err != nil {
		return fmt.Errorf("create shift: %w", err)
	}
	return nil
}

// CreateDemand attaches one course-coverage goal to a shift.
func (r *ScheduleRepository) CreateDemand(ctx context.Context, exec sqlx.ExtContext, demand *models.ShiftCourseDemand) error {
	const query = `INSERT INTO shift_course_demands (shift_id, course_code, tutors_required, weight) VALUES (:shift_id, :course_code, :tutors_required, :weight) ON CONFLICT (shift_id, course_code) DO UPDATE SET tutors_required = EXCLUDED.tutors_required, weight = EXCLUDED.weight`
	if _, err := sqlx.NamedExecContext(ctx, exec, query, demand); err != nil {
		return fmt.Errorf("create shift course demand: %w", err)
	}
	return nil
}

// FindShift loads one shift.
func (r *ScheduleRepository) FindShift(ctx context.Context, id int64) (*models.Shift, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE id = $1`
	var shift models.Shift
	if err := r.db.GetContext(ctx, &shift, query, id); err != nil {
		return nil, err
	}
	return &shift, nil
}

// FindShiftBySlot resolves a shift by schedule, date and starting hour.
func (r *ScheduleRepository) FindShiftBySlot(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, date time.Time, hour int) (*models.Shift, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE schedule_id = $1 AND date = $2 AND EXTRACT(HOUR FROM start_time) = $3 LIMIT 1`
	row := exec.QueryRowxContext(ctx, query, scheduleID, date, hour)
	var shift models.Shift
	if err := row.StructScan(&shift); err != nil {
		return nil, err
	}
	return &shift, nil
}

// ListShiftsInRange returns a schedule's shifts in [start, end] ordered
// by date and start time.
func (r *ScheduleRepository) ListShiftsInRange(ctx context.Context, scheduleID int64, start, end time.Time) ([]models.Shift, error) {
	const query = `SELECT id, schedule_id, date, start_time, end_time FROM shifts WHERE schedule_id = $1 AND date >= $2 AND date <= $3 ORDER BY date, start_time`
	var shifts []models.Shift
	if err := r.db.SelectContext(ctx, &shifts, query, scheduleID, start, end); err != nil {
		return nil, fmt.Errorf("list shifts in range: %w", err)
	}
	return shifts, nil
}

// ListDemands returns the coverage goals for a set of shifts.
func (r *ScheduleRepository) ListDemands(ctx context.Context, shiftIDs []int64) ([]models.ShiftCourseDemand, error) {
	if len(shiftIDs) == 0 {
		return nil, nil
	}
	query, args, err := sqlx.In(`SELECT id, shift_id, course_code, tutors_required, weight FROM shift_course_demands WHERE shift_id IN (?)`, shiftIDs)
	if err != nil {
		return nil, fmt.Errorf("build demands query: %w", err)
	}
	query = r.db.Rebind(query)

	var demands []models.ShiftCourseDemand
	if err := r.db.SelectContext(ctx, &demands, query, args...); err != nil {
		return nil, fmt.Errorf("list shift demands: %w", err)
	}
	return demands, nil
}
