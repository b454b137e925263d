package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// TimeEntryRepository provides persistence for attendance records.
type TimeEntryRepository struct {
	db *sqlx.DB
}

// NewTimeEntryRepository creates a new time-entry repository.
func NewTimeEntryRepository(db *sqlx.DB) *TimeEntryRepository {
	return &TimeEntryRepository{db: db}
}

// BeginTxx exposes transaction creation to the attendance engine.
func (r *TimeEntryRepository) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return r.db.BeginTxx(ctx, opts)
}

// FindActiveForUpdate loads and row-locks the staff member's active
// entry, serializing clock-in/clock-out races. Returns nil when none.
func (r *TimeEntryRepository) FindActiveForUpdate(ctx context.Context, exec sqlx.ExtContext, username string) (*models.TimeEntry, error) {
	const query = `SELECT id, username, shift_id, clock_in, clock_out, status FROM time_entries WHERE username = $1 AND status = 'active' FOR UPDATE`
	row := exec.QueryRowxContext(ctx, query, username)
	var entry models.TimeEntry
	if err := row.StructScan(&entry); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("find active time entry: %w", err)
	}
	return &entry, nil
}

// Create inserts an entry and fills its id.
func (r *TimeEntryRepository) Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimeEntry) error {
	const query = `INSERT INTO time_entries (username, shift_id, clock_in, clock_out, status) VALUES ($1, $2, $3, $4, $5) RETURNING id`
	row := exec.QueryRowxContext(ctx, query, entry.Username, entry.ShiftID, entry.ClockIn, entry.ClockOut, entry.Status)
	if err := row.Scan(&entry.ID); err != nil {
		return fmt.Errorf("create time entry: %w", err)
	}
	return nil
}

// Complete transitions an entry out of the active state.
func (r *TimeEntryRepository) Complete(ctx context.Context, exec sqlx.ExtContext, id int64, clockOut time.Time, status models.TimeEntryStatus) error {
	const query = `UPDATE time_entries SET clock_out = $2, status = $3 WHERE id = $1 AND status = 'active'`
	result, err := exec.ExecContext(ctx, query, id, clockOut, status)
	if err != nil {
		return fmt.Errorf("complete time entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("complete time entry rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// ExistsForShift reports whether any entry exists for (staff, shift).
func (r *TimeEntryRepository) ExistsForShift(ctx context.Context, username string, shiftID int64) (bool, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM time_entries WHERE username = $1 AND shift_id = $2`, username, shiftID); err != nil {
		return false, fmt.Errorf("check time entry for shift: %w", err)
	}
	return count > 0, nil
}

// ActiveEntry pairs an active time entry with its shift bounds, when
// the entry is attached to a shift.
type ActiveEntry struct {
	models.TimeEntry
	ShiftEnd *time.Time `db:"shift_end"`
}

// ListActive returns every active entry with its shift end, for the
// auto-completion sweep.
func (r *TimeEntryRepository) ListActive(ctx context.Context, username string) ([]ActiveEntry, error) {
	query := `
		SELECT e.id, e.username, e.shift_id, e.clock_in, e.clock_out, e.status, s.end_time AS shift_end
		FROM time_entries e
		LEFT JOIN shifts s ON s.id = e.shift_id
		WHERE e.status = 'active'`
	args := []interface{}{}
	if username != "" {
		query += ` AND e.username = $1`
		args = append(args, username)
	}
	var entries []ActiveEntry
	if err := r.db.SelectContext(ctx, &entries, query, args...); err != nil {
		return nil, fmt.Errorf("list active time entries: %w", err)
	}
	return entries, nil
}

// SumCompletedHours aggregates completed durations inside [from, to).
func (r *TimeEntryRepository) SumCompletedHours(ctx context.Context, username string, from, to time.Time) (float64, error) {
	const query = `
		SELECT COALESCE(SUM(EXTRACT(EPOCH FROM (clock_out - clock_in)) / 3600.0), 0)
		FROM time_entries
		WHERE username = $1 AND status = 'completed' AND clock_in >= $2 AND clock_in < $3`
	var hours float64
	if err := r.db.GetContext(ctx, &hours, query, username, from, to); err != nil {
		return 0, fmt.Errorf("sum completed hours: %w", err)
	}
	return hours, nil
}

// CountAbsences counts absent entries for the staff member.
func (r *TimeEntryRepository) CountAbsences(ctx context.Context, username string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM time_entries WHERE username = $1 AND status = 'absent'`, username); err != nil {
		return 0, fmt.Errorf("count absences: %w", err)
	}
	return count, nil
}

// HistoryRow is one attendance-history record joined with its shift.
type HistoryRow struct {
	models.TimeEntry
	ShiftStart *time.Time `db:"shift_start"`
	ShiftEnd   *time.Time `db:"shift_end"`
}

// History returns the staff member's most recent entries.
func (r *TimeEntryRepository) History(ctx context.Context, username string, limit int) ([]HistoryRow, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	const query = `
		SELECT e.id, e.username, e.shift_id, e.clock_in, e.clock_out, e.status, s.start_time AS shift_start, s.end_time AS shift_end
		FROM time_entries e
		LEFT JOIN shifts s ON s.id = e.shift_id
		WHERE e.username = $1
		ORDER BY e.clock_in DESC
		LIMIT $2`
	var rows []HistoryRow
	if err := r.db.SelectContext(ctx, &rows, query, username, limit); err != nil {
		return nil, fmt.Errorf("list time entry history: %w", err)
	}
	return rows, nil
}

// WeekdayDistribution aggregates completed hours per weekday
// (Monday=0) for the volunteer's plot.
func (r *TimeEntryRepository) WeekdayDistribution(ctx context.Context, username string) ([]models.WeekdayHours, error) {
	const query = `
		SELECT (EXTRACT(ISODOW FROM clock_in)::int - 1) AS day_of_week,
		       COALESCE(SUM(EXTRACT(EPOCH FROM (clock_out - clock_in)) / 3600.0), 0) AS hours
		FROM time_entries
		WHERE username = $1 AND status = 'completed'
		GROUP BY day_of_week
		ORDER BY day_of_week`
	var rows []models.WeekdayHours
	if err := r.db.SelectContext(ctx, &rows, query, username); err != nil {
		return nil, fmt.Errorf("weekday distribution: %w", err)
	}
	return rows, nil
}
