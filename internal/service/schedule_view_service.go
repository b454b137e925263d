package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/timeslot"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type scheduleReadStore interface {
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	ListShiftsInRange(ctx context.Context, scheduleID int64, start, end time.Time) ([]models.Shift, error)
}

type allocationReadStore interface {
	ListByShifts(ctx context.Context, shiftIDs []int64) ([]models.Allocation, error)
	UpcomingShiftsForStaff(ctx context.Context, scheduleID int64, username string, from time.Time, limit int) ([]models.Shift, error)
}

type studentReadStore interface {
	FindByUsername(ctx context.Context, username string) (*models.Student, error)
	NamesByUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

// ScheduleViewService renders the grid trees the admin editor and the
// volunteer dashboard consume.
type ScheduleViewService struct {
	scheduleRepo   scheduleReadStore
	allocationRepo allocationReadStore
	studentRepo    studentReadStore
	availability   *AvailabilityService
	attendance     *AttendanceService
	clock          clock.Clock
	logger         *zap.Logger
}

// NewScheduleViewService constructs the viewer.
func NewScheduleViewService(
	scheduleRepo scheduleReadStore,
	allocationRepo allocationReadStore,
	studentRepo studentReadStore,
	availability *AvailabilityService,
	attendance *AttendanceService,
	clk clock.Clock,
	logger *zap.Logger,
) *ScheduleViewService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	return &ScheduleViewService{
		scheduleRepo:   scheduleRepo,
		allocationRepo: allocationRepo,
		studentRepo:    studentRepo,
		availability:   availability,
		attendance:     attendance,
		clock:          clk,
		logger:         logger,
	}
}

// Grid renders the pool's current schedule as a day-grouped tree. With
// includeAvailable set, each cell also lists who could still cover it.
func (s *ScheduleViewService) Grid(ctx context.Context, kind models.StaffKind, includeAvailable bool) (*dto.ScheduleGrid, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown staff kind %q", kind))
	}
	scheduleID := models.PrimaryScheduleID(kind)

	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no %s schedule has been generated yet", kind))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	shifts, err := s.scheduleRepo.ListShiftsInRange(ctx, scheduleID, schedule.StartDate, schedule.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}

	shiftIDs := make([]int64, len(shifts))
	for i, shift := range shifts {
		shiftIDs[i] = shift.ID
	}
	allocations, err := s.allocationRepo.ListByShifts(ctx, shiftIDs)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list allocations")
	}
	byShift := map[int64][]string{}
	usernameSet := map[string]bool{}
	for _, alloc := range allocations {
		byShift[alloc.ShiftID] = append(byShift[alloc.ShiftID], alloc.Username)
		usernameSet[alloc.Username] = true
	}
	usernames := make([]string, 0, len(usernameSet))
	for username := range usernameSet {
		usernames = append(usernames, username)
	}
	names, err := s.studentRepo.NamesByUsernames(ctx, usernames)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve staff names")
	}

	days := map[string]*dto.GridDay{}
	var dayKeys []string
	for _, shift := range shifts {
		date := shift.Date.Format(dateLayout)
		day, ok := days[date]
		if !ok {
			code := timeslot.DayIndex(shift.Date.Weekday())
			day = &dto.GridDay{Day: timeslot.DayName(code), DayCode: code, Date: date}
			days[date] = day
			dayKeys = append(dayKeys, date)
		}
		cell := dto.GridShift{
			ShiftID:    shift.ID,
			Time:       shiftRange(shift),
			Hour:       shift.StartHour(),
			Date:       date,
			Assistants: gridStaff(byShift[shift.ID], names),
		}
		if includeAvailable {
			available, err := s.availability.ListAvailable(ctx, kind,
				timeslot.DayName(day.DayCode), timeslot.FormatHour(shift.StartHour()))
			if err != nil {
				s.logger.Warn("available staff lookup failed",
					zap.Int64("shift_id", shift.ID), zap.Error(err))
			} else {
				cell.AvailableStaff = available
			}
		}
		day.Shifts = append(day.Shifts, cell)
	}
	sort.Strings(dayKeys)

	grid := &dto.ScheduleGrid{
		ScheduleID:  schedule.ID,
		DateRange:   fmt.Sprintf("%s - %s", schedule.StartDate.Format(dateLayout), schedule.EndDate.Format(dateLayout)),
		IsPublished: schedule.IsPublished,
		Kind:        string(kind),
		Days:        make([]dto.GridDay, 0, len(dayKeys)),
	}
	for _, key := range dayKeys {
		day := days[key]
		sort.Slice(day.Shifts, func(i, j int) bool { return day.Shifts[i].Hour < day.Shifts[j].Hour })
		grid.Days = append(grid.Days, *day)
	}
	return grid, nil
}

// Dashboard assembles the volunteer's aggregate snapshot.
func (s *ScheduleViewService) Dashboard(ctx context.Context, username string) (*dto.VolunteerDashboard, error) {
	student, err := s.studentRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "student record not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load student")
	}

	today, err := s.attendance.TodayShift(ctx, username)
	if err != nil {
		return nil, err
	}

	now := s.clock.Now()
	todayDate := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	var upcoming []models.Shift
	for _, scheduleID := range []int64{models.HelpDeskScheduleID, models.LabScheduleID} {
		part, err := s.allocationRepo.UpcomingShiftsForStaff(ctx, scheduleID, username, todayDate, 10)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load upcoming shifts")
		}
		upcoming = append(upcoming, part...)
	}
	sort.Slice(upcoming, func(i, j int) bool { return upcoming[i].StartTime.Before(upcoming[j].StartTime) })

	myShifts := make([]dto.GridShift, 0, len(upcoming))
	for _, shift := range upcoming {
		myShifts = append(myShifts, dto.GridShift{
			ShiftID: shift.ID,
			Time:    shiftRange(shift),
			Hour:    shift.StartHour(),
			Date:    shift.Date.Format(dateLayout),
		})
	}

	dashboard := &dto.VolunteerDashboard{
		Student:  student,
		MyShifts: myShifts,
		Today:    today,
	}
	if len(myShifts) > 0 {
		dashboard.NextShift = &myShifts[0]
	}

	// Volunteers only see the schedule once it is published.
	if grid, err := s.Grid(ctx, models.StaffHelpDesk, false); err == nil && grid.IsPublished {
		dashboard.Schedule = grid
	}
	return dashboard, nil
}

func gridStaff(usernames []string, names map[string]string) []dto.GridStaff {
	staff := make([]dto.GridStaff, 0, len(usernames))
	for _, username := range usernames {
		staff = append(staff, dto.GridStaff{Username: username, Name: names[username]})
	}
	sortGridStaff(staff)
	return staff
}
