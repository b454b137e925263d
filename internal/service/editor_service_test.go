package service

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/repository"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type mockScheduleEditor struct {
	db        *sqlx.DB
	schedule  *models.Schedule
	shifts    map[int64]*models.Shift
	nextShift int64
	published bool
	cleared   int
}

func (m *mockScheduleEditor) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func (m *mockScheduleEditor) EnsurePrimary(_ context.Context, _ sqlx.ExtContext, kind models.StaffKind, _, _, _ time.Time) (int64, error) {
	return models.PrimaryScheduleID(kind), nil
}

func (m *mockScheduleEditor) FindByID(_ context.Context, id int64) (*models.Schedule, error) {
	if m.schedule == nil || m.schedule.ID != id {
		return nil, sql.ErrNoRows
	}
	copied := *m.schedule
	return &copied, nil
}

func (m *mockScheduleEditor) MarkPublished(_ context.Context, _ sqlx.ExtContext, id int64) (int64, error) {
	if m.schedule == nil || m.schedule.ID != id {
		return 0, nil
	}
	if m.published {
		return 0, nil
	}
	m.published = true
	m.schedule.IsPublished = true
	return 1, nil
}

func (m *mockScheduleEditor) FindShift(_ context.Context, id int64) (*models.Shift, error) {
	shift, ok := m.shifts[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	return shift, nil
}

func (m *mockScheduleEditor) FindShiftBySlot(_ context.Context, _ sqlx.ExtContext, scheduleID int64, date time.Time, hour int) (*models.Shift, error) {
	for _, shift := range m.shifts {
		if shift.ScheduleID == scheduleID && shift.Date.Equal(date) && shift.StartHour() == hour {
			return shift, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockScheduleEditor) CreateShift(_ context.Context, _ sqlx.ExtContext, shift *models.Shift) error {
	m.nextShift++
	shift.ID = m.nextShift
	m.shifts[shift.ID] = shift
	return nil
}

func (m *mockScheduleEditor) ListShiftsInRange(_ context.Context, scheduleID int64, _, _ time.Time) ([]models.Shift, error) {
	var out []models.Shift
	for _, shift := range m.shifts {
		if shift.ScheduleID == scheduleID {
			out = append(out, *shift)
		}
	}
	return out, nil
}

func (m *mockScheduleEditor) DeleteShiftsInRange(_ context.Context, _ sqlx.ExtContext, _ int64, _, _ time.Time) error {
	m.cleared++
	return nil
}

type mockAllocEditor struct {
	rows       map[string]bool
	inserted   []models.Allocation
	deleted    []string
	rangeWipes int
	staff      []string
	lockErr    error
}

func allocKey(shiftID int64, username string) string {
	return fmt.Sprintf("%d/%s", shiftID, username)
}

func (m *mockAllocEditor) LockShift(_ context.Context, _ sqlx.ExtContext, _ int64) error {
	return m.lockErr
}

func (m *mockAllocEditor) Insert(_ context.Context, _ sqlx.ExtContext, alloc *models.Allocation) error {
	key := allocKey(alloc.ShiftID, alloc.Username)
	if m.rows[key] {
		return repository.ErrDuplicateAllocation
	}
	if m.rows == nil {
		m.rows = map[string]bool{}
	}
	m.rows[key] = true
	m.inserted = append(m.inserted, *alloc)
	return nil
}

func (m *mockAllocEditor) Delete(_ context.Context, _ sqlx.ExtContext, shiftID int64, username string) (int64, error) {
	key := allocKey(shiftID, username)
	if !m.rows[key] {
		return 0, nil
	}
	delete(m.rows, key)
	m.deleted = append(m.deleted, key)
	return 1, nil
}

func (m *mockAllocEditor) DeleteInRange(_ context.Context, _ sqlx.ExtContext, _ int64, _, _ time.Time) error {
	m.rangeWipes++
	return nil
}

func (m *mockAllocEditor) DistinctStaff(_ context.Context, _ int64) ([]string, error) {
	return m.staff, nil
}

type mockWindows struct {
	windows map[string][]models.Availability
}

func (m *mockWindows) ListForStaff(_ context.Context, username string) ([]models.Availability, error) {
	return m.windows[username], nil
}

func (m *mockWindows) ListForStaffSet(_ context.Context, usernames []string) ([]models.Availability, error) {
	var out []models.Availability
	for _, username := range usernames {
		out = append(out, m.windows[username]...)
	}
	return out, nil
}

type mockPool struct {
	active map[string]bool
}

func (m *mockPool) IsActive(_ context.Context, _ models.StaffKind, username string) (bool, error) {
	return m.active[username], nil
}

func (m *mockPool) ListActive(_ context.Context, _ models.StaffKind) ([]string, error) {
	var out []string
	for username, active := range m.active {
		if active {
			out = append(out, username)
		}
	}
	return out, nil
}

type editorFixture struct {
	svc   *EditorService
	sched *mockScheduleEditor
	alloc *mockAllocEditor
	sink  *sinkRepo
}

func newEditorFixture(t *testing.T) *editorFixture {
	t.Helper()
	zone := clock.Zone(clock.DefaultOffsetHours)
	day := time.Date(2026, time.March, 2, 0, 0, 0, 0, zone)
	shift := &models.Shift{
		ID:         7,
		ScheduleID: models.HelpDeskScheduleID,
		Date:       day,
		StartTime:  day.Add(9 * time.Hour),
		EndTime:    day.Add(10 * time.Hour),
	}

	db, mock := newTxDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 8; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	sched := &mockScheduleEditor{
		db: db,
		schedule: &models.Schedule{
			ID:        models.HelpDeskScheduleID,
			StartDate: day,
			EndDate:   day.AddDate(0, 0, 4),
			Kind:      models.StaffHelpDesk,
		},
		shifts:    map[int64]*models.Shift{shift.ID: shift},
		nextShift: 7,
	}
	alloc := &mockAllocEditor{rows: map[string]bool{}}
	windows := &mockWindows{windows: map[string][]models.Availability{
		"amy": {{Username: "amy", DayOfWeek: 0, StartMinutes: 8 * 60, EndMinutes: 17 * 60}},
		"bob": {{Username: "bob", DayOfWeek: 3, StartMinutes: 8 * 60, EndMinutes: 12 * 60}},
	}}
	pool := &mockPool{active: map[string]bool{"amy": true, "bob": true}}
	sink := &sinkRepo{}

	svc := NewEditorService(sched, alloc, windows, pool, newSink(sink, day),
		clock.Fixed{At: day.Add(8 * time.Hour)}, nil, nil)
	return &editorFixture{svc: svc, sched: sched, alloc: alloc, sink: sink}
}

func TestAddAllocation(t *testing.T) {
	f := newEditorFixture(t)
	req := dto.AddAllocationRequest{Kind: "helpdesk", Username: "amy", ShiftID: 7}

	require.NoError(t, f.svc.AddAllocation(context.Background(), req))
	require.Len(t, f.alloc.inserted, 1)
	assert.Equal(t, "amy", f.alloc.inserted[0].Username)

	err := f.svc.AddAllocation(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrDuplicateRow))
}

func TestAddAllocationRejectsUncoveredSlot(t *testing.T) {
	f := newEditorFixture(t)

	// bob is only available on Thursdays; the shift is on a Monday.
	err := f.svc.AddAllocation(context.Background(), dto.AddAllocationRequest{Kind: "helpdesk", Username: "bob", ShiftID: 7})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAvailable))
	assert.Empty(t, f.alloc.inserted)
}

func TestAddAllocationUnknownShift(t *testing.T) {
	f := newEditorFixture(t)

	err := f.svc.AddAllocation(context.Background(), dto.AddAllocationRequest{Kind: "helpdesk", Username: "amy", ShiftID: 99})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRemoveAllocation(t *testing.T) {
	f := newEditorFixture(t)
	f.alloc.rows[allocKey(7, "amy")] = true

	shiftID := int64(7)
	err := f.svc.RemoveAllocation(context.Background(), dto.RemoveAllocationRequest{Kind: "helpdesk", Username: "amy", ShiftID: &shiftID})
	require.NoError(t, err)

	err = f.svc.RemoveAllocation(context.Background(), dto.RemoveAllocationRequest{Kind: "helpdesk", Username: "amy", ShiftID: &shiftID})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestRemoveAllocationBySlot(t *testing.T) {
	f := newEditorFixture(t)
	f.alloc.rows[allocKey(7, "amy")] = true

	err := f.svc.RemoveAllocation(context.Background(), dto.RemoveAllocationRequest{
		Kind: "helpdesk", Username: "amy", Day: "monday", Time: "9:00",
	})

	require.NoError(t, err)
	assert.Equal(t, []string{allocKey(7, "amy")}, f.alloc.deleted)
}

func TestPublishIsIdempotent(t *testing.T) {
	f := newEditorFixture(t)
	f.alloc.staff = []string{"amy", "bob"}

	schedule, err := f.svc.Publish(context.Background(), models.HelpDeskScheduleID)
	require.NoError(t, err)
	assert.True(t, schedule.IsPublished)
	assert.Len(t, f.sink.byKind(models.NotifySchedule), 2)

	// Republishing succeeds without another notification fanout.
	schedule, err = f.svc.Publish(context.Background(), models.HelpDeskScheduleID)
	require.NoError(t, err)
	assert.True(t, schedule.IsPublished)
	assert.Len(t, f.sink.byKind(models.NotifySchedule), 2)
}

func TestPublishUnknownSchedule(t *testing.T) {
	f := newEditorFixture(t)

	_, err := f.svc.Publish(context.Background(), 42)

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestSaveAssignmentsWritesWindow(t *testing.T) {
	f := newEditorFixture(t)

	written, err := f.svc.SaveAssignments(context.Background(), dto.SaveAssignmentsRequest{
		Kind:      "helpdesk",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-06",
		Rows: []dto.AssignmentRow{
			{Day: "monday", Time: "9:00", Staff: []string{"amy"}},
			{Day: "monday", Time: "10:00", Staff: []string{"amy"}},
		},
	})

	require.NoError(t, err)
	assert.Equal(t, 2, written)
	assert.Equal(t, 1, f.alloc.rangeWipes)
	// The 09:00 shift already existed; only the 10:00 one is new.
	assert.Len(t, f.sched.shifts, 2)
}

func TestSaveAssignmentsRejectsUnavailableStaff(t *testing.T) {
	f := newEditorFixture(t)

	_, err := f.svc.SaveAssignments(context.Background(), dto.SaveAssignmentsRequest{
		Kind:      "helpdesk",
		StartDate: "2026-03-02",
		EndDate:   "2026-03-06",
		Rows:      []dto.AssignmentRow{{Day: "monday", Time: "9:00", Staff: []string{"bob"}}},
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotAvailable))
}

func TestClearSchedule(t *testing.T) {
	f := newEditorFixture(t)

	err := f.svc.Clear(context.Background(), dto.ClearScheduleRequest{
		Kind: "helpdesk", StartDate: "2026-03-02", EndDate: "2026-03-06",
	})

	require.NoError(t, err)
	assert.Equal(t, 1, f.alloc.rangeWipes)
	assert.Equal(t, 1, f.sched.cleared)
}
