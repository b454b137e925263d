package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/repository"
	"github.com/campusworks/roster-api/pkg/config"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type completion struct {
	id     int64
	out    time.Time
	status models.TimeEntryStatus
}

type mockEntryStore struct {
	db          *sqlx.DB
	active      *models.TimeEntry
	existing    map[int64]bool
	created     []*models.TimeEntry
	completions []completion
	activeList  []repository.ActiveEntry
	summed      float64
	absences    int
	history     []repository.HistoryRow
}

func (m *mockEntryStore) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func (m *mockEntryStore) FindActiveForUpdate(_ context.Context, _ sqlx.ExtContext, username string) (*models.TimeEntry, error) {
	if m.active != nil && m.active.Username == username {
		return m.active, nil
	}
	return nil, nil
}

func (m *mockEntryStore) Create(_ context.Context, _ sqlx.ExtContext, entry *models.TimeEntry) error {
	entry.ID = int64(100 + len(m.created))
	m.created = append(m.created, entry)
	if entry.Status == models.TimeEntryActive {
		m.active = entry
	}
	return nil
}

func (m *mockEntryStore) Complete(_ context.Context, _ sqlx.ExtContext, id int64, clockOut time.Time, status models.TimeEntryStatus) error {
	m.completions = append(m.completions, completion{id: id, out: clockOut, status: status})
	if m.active != nil && m.active.ID == id {
		m.active = nil
	}
	for i := range m.activeList {
		if m.activeList[i].ID == id {
			m.activeList = append(m.activeList[:i], m.activeList[i+1:]...)
			break
		}
	}
	return nil
}

func (m *mockEntryStore) ExistsForShift(_ context.Context, _ string, shiftID int64) (bool, error) {
	return m.existing[shiftID], nil
}

func (m *mockEntryStore) ListActive(_ context.Context, username string) ([]repository.ActiveEntry, error) {
	if username == "" {
		return m.activeList, nil
	}
	var out []repository.ActiveEntry
	for _, e := range m.activeList {
		if e.Username == username {
			out = append(out, e)
		}
	}
	return out, nil
}

func (m *mockEntryStore) SumCompletedHours(_ context.Context, _ string, _, _ time.Time) (float64, error) {
	return m.summed, nil
}

func (m *mockEntryStore) CountAbsences(_ context.Context, _ string) (int, error) {
	return m.absences, nil
}

func (m *mockEntryStore) History(_ context.Context, _ string, _ int) ([]repository.HistoryRow, error) {
	return m.history, nil
}

func (m *mockEntryStore) WeekdayDistribution(_ context.Context, _ string) ([]models.WeekdayHours, error) {
	return []models.WeekdayHours{{DayOfWeek: 2, Hours: 3}}, nil
}

type mockShiftStore struct {
	shifts map[int64]*models.Shift
}

func (m *mockShiftStore) FindShift(_ context.Context, id int64) (*models.Shift, error) {
	shift, ok := m.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

type mockAllocStore struct {
	allocated map[int64]map[string]bool
	today     []models.Shift
}

func (m *mockAllocStore) Exists(_ context.Context, shiftID int64, username string) (bool, error) {
	return m.allocated[shiftID][username], nil
}

func (m *mockAllocStore) ShiftsForStaffOnDate(_ context.Context, scheduleID int64, _ string, _ time.Time) ([]models.Shift, error) {
	var out []models.Shift
	for _, shift := range m.today {
		if shift.ScheduleID == scheduleID {
			out = append(out, shift)
		}
	}
	return out, nil
}

type mockLedger struct {
	deltas []float64
	total  float64
}

func (m *mockLedger) AddHoursWorked(_ context.Context, _ sqlx.ExtContext, _ string, delta float64) error {
	m.deltas = append(m.deltas, delta)
	m.total += delta
	return nil
}

func (m *mockLedger) FindHelpDesk(_ context.Context, username string) (*models.HelpDeskAssistant, error) {
	return &models.HelpDeskAssistant{Username: username, HoursWorked: m.total, Active: true}, nil
}

type attendanceFixture struct {
	svc     *AttendanceService
	entries *mockEntryStore
	shifts  *mockShiftStore
	allocs  *mockAllocStore
	ledger  *mockLedger
	sink    *sinkRepo
	clock   *clock.Stepped
}

// newAttendanceFixture builds the service around a Monday 10:00-11:00
// help-desk shift for "amy", with the wall clock at 09:00.
func newAttendanceFixture(t *testing.T) *attendanceFixture {
	t.Helper()
	zone := clock.Zone(clock.DefaultOffsetHours)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, zone)
	shift := &models.Shift{
		ID:         7,
		ScheduleID: models.HelpDeskScheduleID,
		Date:       day,
		StartTime:  day.Add(10 * time.Hour),
		EndTime:    day.Add(11 * time.Hour),
	}

	db, mock := newTxDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 16; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	stepped := &clock.Stepped{Current: day.Add(9 * time.Hour)}
	entries := &mockEntryStore{db: db, existing: map[int64]bool{}}
	shifts := &mockShiftStore{shifts: map[int64]*models.Shift{shift.ID: shift}}
	allocs := &mockAllocStore{
		allocated: map[int64]map[string]bool{shift.ID: {"amy": true}},
		today:     []models.Shift{*shift},
	}
	ledger := &mockLedger{}
	sink := &sinkRepo{}

	svc := NewAttendanceService(entries, shifts, allocs, ledger, newSink(sink, stepped.Current), nil, stepped,
		config.AttendanceConfig{EarlyClockInWindow: 15 * time.Minute, MaxSession: 8 * time.Hour}, nil, nil)
	return &attendanceFixture{svc: svc, entries: entries, shifts: shifts, allocs: allocs, ledger: ledger, sink: sink, clock: stepped}
}

func (f *attendanceFixture) shift() *models.Shift { return f.shifts.shifts[7] }

func TestClockInBoundaries(t *testing.T) {
	cases := []struct {
		name    string
		at      time.Duration // offset from shift start
		wantErr *appErrors.Error
	}{
		{name: "sixteen minutes early", at: -16 * time.Minute, wantErr: appErrors.ErrTooEarly},
		{name: "fifteen minutes early", at: -15 * time.Minute},
		{name: "one second before end", at: time.Hour - time.Second},
		{name: "exactly at end", at: time.Hour, wantErr: appErrors.ErrShiftEnded},
		{name: "after end", at: 2 * time.Hour, wantErr: appErrors.ErrShiftEnded},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			f := newAttendanceFixture(t)
			f.clock.Current = f.shift().StartTime.Add(tc.at)

			shiftID := f.shift().ID
			resp, err := f.svc.ClockIn(context.Background(), "amy", dto.ClockInRequest{ShiftID: &shiftID})

			if tc.wantErr != nil {
				require.Error(t, err)
				assert.True(t, appErrors.Is(err, tc.wantErr), "got %v", err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, &shiftID, resp.ShiftID)
			require.Len(t, f.entries.created, 1)
			assert.Equal(t, models.TimeEntryActive, f.entries.created[0].Status)
			assert.Len(t, f.sink.byKind(models.NotifyClockIn), 1)
		})
	}
}

func TestClockInRejectsSecondActiveSession(t *testing.T) {
	f := newAttendanceFixture(t)
	f.clock.Current = f.shift().StartTime
	f.entries.active = &models.TimeEntry{ID: 55, Username: "amy", ClockIn: f.clock.Current, Status: models.TimeEntryActive}

	shiftID := f.shift().ID
	_, err := f.svc.ClockIn(context.Background(), "amy", dto.ClockInRequest{ShiftID: &shiftID})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrActiveEntry))
}

func TestClockInRejectsUnallocatedShift(t *testing.T) {
	f := newAttendanceFixture(t)
	f.clock.Current = f.shift().StartTime

	shiftID := f.shift().ID
	_, err := f.svc.ClockIn(context.Background(), "bob", dto.ClockInRequest{ShiftID: &shiftID})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAvailable))
}

func TestClockInInfersTodayShift(t *testing.T) {
	f := newAttendanceFixture(t)
	f.clock.Current = f.shift().StartTime.Add(-10 * time.Minute)

	resp, err := f.svc.ClockIn(context.Background(), "amy", dto.ClockInRequest{})

	require.NoError(t, err)
	require.NotNil(t, resp.ShiftID)
	assert.Equal(t, f.shift().ID, *resp.ShiftID)
}

func TestClockOutClampsAtShiftEnd(t *testing.T) {
	f := newAttendanceFixture(t)
	shift := f.shift()
	f.entries.active = &models.TimeEntry{
		ID:       61,
		Username: "amy",
		ShiftID:  &shift.ID,
		ClockIn:  shift.StartTime,
		Status:   models.TimeEntryActive,
	}
	f.clock.Current = shift.EndTime.Add(30 * time.Minute)

	resp, err := f.svc.ClockOut(context.Background(), "amy")

	require.NoError(t, err)
	require.Len(t, f.entries.completions, 1)
	assert.True(t, f.entries.completions[0].out.Equal(shift.EndTime))
	assert.InDelta(t, 1.0, resp.SessionHours, 1e-9)
	require.Len(t, f.ledger.deltas, 1)
	assert.InDelta(t, 1.0, f.ledger.deltas[0], 1e-9)
	assert.Len(t, f.sink.byKind(models.NotifyClockOut), 1)
}

func TestClockOutWithoutActiveSession(t *testing.T) {
	f := newAttendanceFixture(t)

	_, err := f.svc.ClockOut(context.Background(), "amy")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoActiveEntry))

	// A second attempt after a successful clock-out fails the same way.
	shift := f.shift()
	f.entries.active = &models.TimeEntry{ID: 62, Username: "amy", ShiftID: &shift.ID, ClockIn: shift.StartTime, Status: models.TimeEntryActive}
	f.clock.Current = shift.StartTime.Add(45 * time.Minute)
	_, err = f.svc.ClockOut(context.Background(), "amy")
	require.NoError(t, err)

	_, err = f.svc.ClockOut(context.Background(), "amy")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNoActiveEntry))
}

func TestMarkMissedRejectsDuplicate(t *testing.T) {
	f := newAttendanceFixture(t)
	f.entries.existing[f.shift().ID] = true

	err := f.svc.MarkMissed(context.Background(), dto.MarkMissedRequest{Username: "amy", ShiftID: f.shift().ID})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRow))
}

func TestMarkMissedRecordsAbsence(t *testing.T) {
	f := newAttendanceFixture(t)

	err := f.svc.MarkMissed(context.Background(), dto.MarkMissedRequest{Username: "amy", ShiftID: f.shift().ID})

	require.NoError(t, err)
	require.Len(t, f.entries.created, 1)
	entry := f.entries.created[0]
	assert.Equal(t, models.TimeEntryAbsent, entry.Status)
	assert.True(t, entry.ClockIn.Equal(f.shift().StartTime))
	require.NotNil(t, entry.ClockOut)
	assert.True(t, entry.ClockOut.Equal(f.shift().EndTime))
	assert.True(t, entry.ClockIn.Before(*entry.ClockOut))
	assert.Len(t, f.sink.byKind(models.NotifyMissed), 1)
}

func TestAutoCompleteSweepIsIdempotent(t *testing.T) {
	f := newAttendanceFixture(t)
	shift := f.shift()
	end := shift.EndTime
	entry := &models.TimeEntry{ID: 70, Username: "amy", ShiftID: &shift.ID, ClockIn: shift.StartTime, Status: models.TimeEntryActive}
	f.entries.active = entry
	f.entries.activeList = []repository.ActiveEntry{{TimeEntry: *entry, ShiftEnd: &end}}
	f.clock.Current = end.Add(time.Hour)

	first, err := f.svc.AutoCompleteSweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, first)
	require.Len(t, f.entries.completions, 1)
	assert.True(t, f.entries.completions[0].out.Equal(end))
	require.Len(t, f.ledger.deltas, 1)
	assert.InDelta(t, 1.0, f.ledger.deltas[0], 1e-9)

	second, err := f.svc.AutoCompleteSweep(context.Background())
	require.NoError(t, err)
	assert.Zero(t, second)
	assert.Len(t, f.entries.completions, 1)
}

func TestSweepSkipsRunningSessions(t *testing.T) {
	f := newAttendanceFixture(t)
	shift := f.shift()
	end := shift.EndTime
	entry := &models.TimeEntry{ID: 71, Username: "amy", ShiftID: &shift.ID, ClockIn: shift.StartTime, Status: models.TimeEntryActive}
	f.entries.active = entry
	f.entries.activeList = []repository.ActiveEntry{{TimeEntry: *entry, ShiftEnd: &end}}
	f.clock.Current = shift.StartTime.Add(30 * time.Minute)

	count, err := f.svc.AutoCompleteSweep(context.Background())

	require.NoError(t, err)
	assert.Zero(t, count)
	assert.Empty(t, f.entries.completions)
}

func TestTodayShiftSnapshot(t *testing.T) {
	f := newAttendanceFixture(t)
	shift := f.shift()

	f.clock.Current = shift.StartTime.Add(-2 * time.Hour)
	snapshot, err := f.svc.TodayShift(context.Background(), "amy")
	require.NoError(t, err)
	assert.Equal(t, dto.TodayFuture, snapshot.Status)
	assert.False(t, snapshot.StartsNow)
	assert.Equal(t, "2h0m0s", snapshot.TimeUntil)

	f.clock.Current = shift.StartTime.Add(-10 * time.Minute)
	snapshot, err = f.svc.TodayShift(context.Background(), "amy")
	require.NoError(t, err)
	assert.Equal(t, dto.TodayFuture, snapshot.Status)
	assert.True(t, snapshot.StartsNow)

	f.entries.existing[shift.ID] = true
	f.clock.Current = shift.EndTime.Add(time.Hour)
	snapshot, err = f.svc.TodayShift(context.Background(), "amy")
	require.NoError(t, err)
	assert.Equal(t, dto.TodayCompleted, snapshot.Status)
}

func TestTodayShiftReportsActiveSession(t *testing.T) {
	f := newAttendanceFixture(t)
	shift := f.shift()
	end := shift.EndTime
	entry := &models.TimeEntry{ID: 80, Username: "amy", ShiftID: &shift.ID, ClockIn: shift.StartTime, Status: models.TimeEntryActive}
	f.entries.active = entry
	f.entries.activeList = []repository.ActiveEntry{{TimeEntry: *entry, ShiftEnd: &end}}
	f.clock.Current = shift.StartTime.Add(20 * time.Minute)

	snapshot, err := f.svc.TodayShift(context.Background(), "amy")

	require.NoError(t, err)
	assert.Equal(t, dto.TodayActive, snapshot.Status)
	assert.True(t, snapshot.StartsNow)
	require.NotNil(t, snapshot.ShiftID)
	assert.Equal(t, shift.ID, *snapshot.ShiftID)
	assert.NotEmpty(t, snapshot.TimeRange)
}

func TestTodayShiftWithoutAllocations(t *testing.T) {
	f := newAttendanceFixture(t)
	f.allocs.today = nil

	snapshot, err := f.svc.TodayShift(context.Background(), "bob")

	require.NoError(t, err)
	assert.Equal(t, dto.TodayNone, snapshot.Status)
}

func TestStatsAggregatesWindows(t *testing.T) {
	f := newAttendanceFixture(t)
	f.entries.summed = 6.5
	f.entries.absences = 2

	stats, err := f.svc.Stats(context.Background(), "amy")

	require.NoError(t, err)
	assert.InDelta(t, 6.5, stats.Daily, 1e-9)
	assert.InDelta(t, 6.5, stats.Semester, 1e-9)
	assert.Equal(t, 2, stats.Absences)
}

func TestTimeDistributionFillsAllDays(t *testing.T) {
	f := newAttendanceFixture(t)

	distribution, err := f.svc.TimeDistribution(context.Background(), "amy")

	require.NoError(t, err)
	require.Len(t, distribution, 7)
	assert.InDelta(t, 3.0, distribution[2].Hours, 1e-9)
	assert.Zero(t, distribution[0].Hours)
}
