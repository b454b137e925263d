package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/repository"
	"github.com/campusworks/roster-api/internal/timeslot"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type scheduleEditorStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	EnsurePrimary(ctx context.Context, exec sqlx.ExtContext, kind models.StaffKind, start, end, generatedAt time.Time) (int64, error)
	FindByID(ctx context.Context, id int64) (*models.Schedule, error)
	MarkPublished(ctx context.Context, exec sqlx.ExtContext, id int64) (int64, error)
	FindShift(ctx context.Context, id int64) (*models.Shift, error)
	FindShiftBySlot(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, date time.Time, hour int) (*models.Shift, error)
	CreateShift(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) error
	ListShiftsInRange(ctx context.Context, scheduleID int64, start, end time.Time) ([]models.Shift, error)
	DeleteShiftsInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error
}

type allocationEditorStore interface {
	LockShift(ctx context.Context, exec sqlx.ExtContext, shiftID int64) error
	Insert(ctx context.Context, exec sqlx.ExtContext, alloc *models.Allocation) error
	Delete(ctx context.Context, exec sqlx.ExtContext, shiftID int64, username string) (int64, error)
	DeleteInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error
	DistinctStaff(ctx context.Context, scheduleID int64) ([]string, error)
}

type editorAvailabilityReader interface {
	ListForStaff(ctx context.Context, username string) ([]models.Availability, error)
	ListForStaffSet(ctx context.Context, usernames []string) ([]models.Availability, error)
}

// EditorService applies manual schedule edits. Every mutation runs in
// one transaction and re-checks availability authoritatively inside it;
// allocation writes lock the parent shift row first.
type EditorService struct {
	scheduleRepo     scheduleEditorStore
	allocationRepo   allocationEditorStore
	availabilityRepo editorAvailabilityReader
	assistantRepo    assistantPoolRepository
	notifications    *NotificationService
	clock            clock.Clock
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewEditorService constructs the editor.
func NewEditorService(
	scheduleRepo scheduleEditorStore,
	allocationRepo allocationEditorStore,
	availabilityRepo editorAvailabilityReader,
	assistantRepo assistantPoolRepository,
	notifications *NotificationService,
	clk clock.Clock,
	validate *validator.Validate,
	logger *zap.Logger,
) *EditorService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	return &EditorService{
		scheduleRepo:     scheduleRepo,
		allocationRepo:   allocationRepo,
		availabilityRepo: availabilityRepo,
		assistantRepo:    assistantRepo,
		notifications:    notifications,
		clock:            clk,
		validator:        validate,
		logger:           logger,
	}
}

// SaveAssignments bulk-writes a grid window: the window's allocations
// are replaced by the submitted rows atomically.
func (s *EditorService) SaveAssignments(ctx context.Context, req dto.SaveAssignmentsRequest) (int, error) {
	if err := s.validator.Struct(req); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid save request")
	}
	kind := models.StaffKind(req.Kind)

	loc := s.clock.Now().Location()
	start, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable start date %q", req.StartDate))
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return 0, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable end date %q", req.EndDate))
	}
	if end.Before(start) {
		return 0, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	type parsedRow struct {
		day   int
		hour  int
		staff []string
	}
	rows := make([]parsedRow, len(req.Rows))
	staffSet := map[string]bool{}
	for i, row := range req.Rows {
		day, err := timeslot.ParseDay(row.Day)
		if err != nil {
			return 0, err
		}
		hour, err := timeslot.ParseHour(row.Time)
		if err != nil {
			return 0, err
		}
		rows[i] = parsedRow{day: day, hour: hour, staff: row.Staff}
		for _, username := range row.Staff {
			staffSet[username] = true
		}
	}

	activeSet, windowsByStaff, err := s.loadStaffContext(ctx, kind, staffSet)
	if err != nil {
		return 0, err
	}

	duration := shiftHours(kind)

	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	scheduleID, err := s.scheduleRepo.EnsurePrimary(ctx, tx, kind, start, end, s.clock.Now())
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure schedule")
	}
	if err := s.allocationRepo.DeleteInRange(ctx, tx, scheduleID, start, end); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear allocations")
	}

	written := 0
	for _, row := range rows {
		for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
			if timeslot.DayIndex(date.Weekday()) != row.day {
				continue
			}
			shift, err := s.resolveOrCreateShift(ctx, tx, scheduleID, date, row.hour, duration)
			if err != nil {
				return 0, err
			}
			for _, username := range row.staff {
				if !activeSet[username] {
					return 0, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown or inactive staff %q", username))
				}
				if !covers(windowsByStaff[username], row.day, row.hour, row.hour+duration) {
					return 0, appErrors.Clone(appErrors.ErrNotAvailable,
						fmt.Sprintf("staff %q is not available on %s at %s", username, timeslot.DayName(row.day), timeslot.FormatHour(row.hour)))
				}
				alloc := &models.Allocation{ScheduleID: scheduleID, ShiftID: shift.ID, Username: username}
				if err := s.allocationRepo.Insert(ctx, tx, alloc); err != nil {
					if errors.Is(err, repository.ErrDuplicateAllocation) {
						return 0, appErrors.Clone(appErrors.ErrDuplicateRow, fmt.Sprintf("staff %q listed twice for the same shift", username))
					}
					return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert allocation")
				}
				written++
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit assignments")
	}
	return written, nil
}

// AddAllocation inserts one allocation onto an existing shift.
func (s *EditorService) AddAllocation(ctx context.Context, req dto.AddAllocationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid allocation request")
	}
	kind := models.StaffKind(req.Kind)

	shift, err := s.scheduleRepo.FindShift(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %d not found", req.ShiftID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	if shift.ScheduleID != models.PrimaryScheduleID(kind) {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %d does not belong to the %s schedule", req.ShiftID, kind))
	}

	active, err := s.assistantRepo.IsActive(ctx, kind, req.Username)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff status")
	}
	if !active {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("unknown or inactive staff %q", req.Username))
	}

	windows, err := s.availabilityRepo.ListForStaff(ctx, req.Username)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	day := timeslot.DayIndex(shift.Date.Weekday())
	if !covers(windows, day, shift.StartHour(), shift.EndTime.Hour()) {
		return appErrors.Clone(appErrors.ErrNotAvailable,
			fmt.Sprintf("staff %q availability does not cover the shift", req.Username))
	}

	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.allocationRepo.LockShift(ctx, tx, shift.ID); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock shift")
	}
	alloc := &models.Allocation{ScheduleID: shift.ScheduleID, ShiftID: shift.ID, Username: req.Username}
	if err := s.allocationRepo.Insert(ctx, tx, alloc); err != nil {
		if errors.Is(err, repository.ErrDuplicateAllocation) {
			return appErrors.Clone(appErrors.ErrDuplicateRow, fmt.Sprintf("staff %q already allocated to shift %d", req.Username, shift.ID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to insert allocation")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit allocation")
	}
	return nil
}

// RemoveAllocation deletes one allocation, addressed by shift id or by
// a (day, time) slot on the pool's schedule.
func (s *EditorService) RemoveAllocation(ctx context.Context, req dto.RemoveAllocationRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid removal request")
	}
	kind := models.StaffKind(req.Kind)

	var shiftID int64
	switch {
	case req.ShiftID != nil:
		shiftID = *req.ShiftID
	case req.Day != "" && req.Time != "":
		shift, err := s.findShiftBySlotLabels(ctx, kind, req.Day, req.Time)
		if err != nil {
			return err
		}
		shiftID = shift.ID
	default:
		return appErrors.Clone(appErrors.ErrValidation, "either shift_id or day and time are required")
	}

	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.allocationRepo.LockShift(ctx, tx, shiftID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %d not found", shiftID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to lock shift")
	}
	affected, err := s.allocationRepo.Delete(ctx, tx, shiftID, req.Username)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete allocation")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("staff %q holds no allocation on shift %d", req.Username, shiftID))
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit removal")
	}
	return nil
}

// Publish flips the schedule's published flag. The flip is idempotent;
// only the first publish notifies the allocated staff.
func (s *EditorService) Publish(ctx context.Context, scheduleID int64) (*models.Schedule, error) {
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("schedule %d not found", scheduleID))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}

	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	affected, err := s.scheduleRepo.MarkPublished(ctx, tx, scheduleID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to publish schedule")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit publish")
	}
	schedule.IsPublished = true

	if affected > 0 {
		staff, err := s.allocationRepo.DistinctStaff(ctx, scheduleID)
		if err != nil {
			s.logger.Error("publish notification fanout failed", zap.Int64("schedule_id", scheduleID), zap.Error(err))
			return schedule, nil
		}
		message := fmt.Sprintf("The %s schedule for %s to %s has been published.",
			schedule.Kind, schedule.StartDate.Format(dateLayout), schedule.EndDate.Format(dateLayout))
		for _, username := range staff {
			s.notifications.Emit(ctx, username, models.NotifySchedule, message)
		}
	}
	return schedule, nil
}

// Clear removes the window's shifts and their allocations.
func (s *EditorService) Clear(ctx context.Context, req dto.ClearScheduleRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid clear request")
	}
	kind := models.StaffKind(req.Kind)

	loc := s.clock.Now().Location()
	start, err := time.ParseInLocation(dateLayout, req.StartDate, loc)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable start date %q", req.StartDate))
	}
	end, err := time.ParseInLocation(dateLayout, req.EndDate, loc)
	if err != nil {
		return appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable end date %q", req.EndDate))
	}
	if end.Before(start) {
		return appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}

	scheduleID := models.PrimaryScheduleID(kind)

	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.allocationRepo.DeleteInRange(ctx, tx, scheduleID, start, end); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear allocations")
	}
	if err := s.scheduleRepo.DeleteShiftsInRange(ctx, tx, scheduleID, start, end); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear shifts")
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit clear")
	}
	return nil
}

func (s *EditorService) loadStaffContext(ctx context.Context, kind models.StaffKind, staffSet map[string]bool) (map[string]bool, map[string][]models.Availability, error) {
	active, err := s.assistantRepo.ListActive(ctx, kind)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active staff")
	}
	activeSet := make(map[string]bool, len(active))
	for _, username := range active {
		activeSet[username] = true
	}

	usernames := make([]string, 0, len(staffSet))
	for username := range staffSet {
		usernames = append(usernames, username)
	}
	windows, err := s.availabilityRepo.ListForStaffSet(ctx, usernames)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	byStaff := map[string][]models.Availability{}
	for _, window := range windows {
		byStaff[window.Username] = append(byStaff[window.Username], window)
	}
	return activeSet, byStaff, nil
}

func (s *EditorService) resolveOrCreateShift(ctx context.Context, tx *sqlx.Tx, scheduleID int64, date time.Time, hour, duration int) (*models.Shift, error) {
	shift, err := s.scheduleRepo.FindShiftBySlot(ctx, tx, scheduleID, date, hour)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve shift")
	}
	if shift != nil {
		return shift, nil
	}
	shift = &models.Shift{
		ScheduleID: scheduleID,
		Date:       date,
		StartTime:  date.Add(time.Duration(hour) * time.Hour),
		EndTime:    date.Add(time.Duration(hour+duration) * time.Hour),
	}
	if err := s.scheduleRepo.CreateShift(ctx, tx, shift); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift")
	}
	return shift, nil
}

func (s *EditorService) findShiftBySlotLabels(ctx context.Context, kind models.StaffKind, dayLabel, slot string) (*models.Shift, error) {
	day, err := timeslot.ParseDay(dayLabel)
	if err != nil {
		return nil, err
	}
	hour, err := timeslot.ParseHour(slot)
	if err != nil {
		return nil, err
	}

	scheduleID := models.PrimaryScheduleID(kind)
	schedule, err := s.scheduleRepo.FindByID(ctx, scheduleID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("no %s schedule exists", kind))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load schedule")
	}
	shifts, err := s.scheduleRepo.ListShiftsInRange(ctx, scheduleID, schedule.StartDate, schedule.EndDate)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list shifts")
	}
	for i := range shifts {
		if timeslot.DayIndex(shifts[i].Date.Weekday()) == day && shifts[i].StartHour() == hour {
			return &shifts[i], nil
		}
	}
	return nil, appErrors.Clone(appErrors.ErrNotFound,
		fmt.Sprintf("no shift on %s at %s", timeslot.DayName(day), timeslot.FormatHour(hour)))
}

// shiftHours is the slot length of the pool's grid.
func shiftHours(kind models.StaffKind) int {
	if kind == models.StaffLab {
		return 4
	}
	return 1
}

func covers(windows []models.Availability, day, startHour, endHour int) bool {
	for _, window := range windows {
		if window.DayOfWeek == day && window.CoversSpan(startHour*60, endHour*60) {
			return true
		}
	}
	return false
}
