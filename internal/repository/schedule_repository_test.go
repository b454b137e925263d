package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/models"
)

func newScheduleRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestScheduleRepositoryEnsurePrimaryUsesFixedID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	start := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 6)
	now := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO schedules")).
		WithArgs(models.LabScheduleID, start, end, models.StaffLab, now).
		WillReturnResult(sqlmock.NewResult(0, 1))

	id, err := repo.EnsurePrimary(context.Background(), db, models.StaffLab, start, end, now)
	require.NoError(t, err)
	require.Equal(t, models.LabScheduleID, id)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryMarkPublishedOnce(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET is_published = TRUE")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 1))

	affected, err := repo.MarkPublished(context.Background(), db, 1)
	require.NoError(t, err)
	require.Equal(t, int64(1), affected)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE schedules SET is_published = TRUE")).
		WithArgs(int64(1)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	affected, err = repo.MarkPublished(context.Background(), db, 1)
	require.NoError(t, err)
	require.Zero(t, affected)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryCreateShiftFillsID(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	shift := &models.Shift{
		ScheduleID: 1,
		Date:       date,
		StartTime:  date.Add(9 * time.Hour),
		EndTime:    date.Add(10 * time.Hour),
	}

	mock.ExpectQuery(regexp.QuoteMeta("INSERT INTO shifts")).
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(int64(7)))

	require.NoError(t, repo.CreateShift(context.Background(), db, shift))
	require.Equal(t, int64(7), shift.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListShiftsInRange(t *testing.T) {
	db, mock, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"id", "schedule_id", "date", "start_time", "end_time"}).
		AddRow(int64(7), int64(1), date, date.Add(9*time.Hour), date.Add(10*time.Hour)).
		AddRow(int64(8), int64(1), date, date.Add(10*time.Hour), date.Add(11*time.Hour))
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, schedule_id, date")).
		WithArgs(int64(1), date, date.AddDate(0, 0, 6)).
		WillReturnRows(rows)

	shifts, err := repo.ListShiftsInRange(context.Background(), 1, date, date.AddDate(0, 0, 6))
	require.NoError(t, err)
	require.Len(t, shifts, 2)
	require.Equal(t, 9, shifts[0].StartHour())
	// start_time and end_time are date-anchored instants, not bare clock times.
	require.True(t, shifts[0].StartTime.Equal(date.Add(9*time.Hour)))
	require.True(t, shifts[0].EndTime.After(shifts[0].StartTime))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestScheduleRepositoryListDemandsEmptyInput(t *testing.T) {
	db, _, cleanup := newScheduleRepoMock(t)
	defer cleanup()

	repo := NewScheduleRepository(db)
	demands, err := repo.ListDemands(context.Background(), nil)
	require.NoError(t, err)
	require.Nil(t, demands)
}
