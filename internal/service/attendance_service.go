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
	"github.com/campusworks/roster-api/pkg/config"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type timeEntryStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	FindActiveForUpdate(ctx context.Context, exec sqlx.ExtContext, username string) (*models.TimeEntry, error)
	Create(ctx context.Context, exec sqlx.ExtContext, entry *models.TimeEntry) error
	Complete(ctx context.Context, exec sqlx.ExtContext, id int64, clockOut time.Time, status models.TimeEntryStatus) error
	ExistsForShift(ctx context.Context, username string, shiftID int64) (bool, error)
	ListActive(ctx context.Context, username string) ([]repository.ActiveEntry, error)
	SumCompletedHours(ctx context.Context, username string, from, to time.Time) (float64, error)
	CountAbsences(ctx context.Context, username string) (int, error)
	History(ctx context.Context, username string, limit int) ([]repository.HistoryRow, error)
	WeekdayDistribution(ctx context.Context, username string) ([]models.WeekdayHours, error)
}

type shiftLookupStore interface {
	FindShift(ctx context.Context, id int64) (*models.Shift, error)
}

type allocationAttendanceStore interface {
	Exists(ctx context.Context, shiftID int64, username string) (bool, error)
	ShiftsForStaffOnDate(ctx context.Context, scheduleID int64, username string, date time.Time) ([]models.Shift, error)
}

type hoursLedger interface {
	AddHoursWorked(ctx context.Context, exec sqlx.ExtContext, username string, delta float64) error
	FindHelpDesk(ctx context.Context, username string) (*models.HelpDeskAssistant, error)
}

// AttendanceService drives the time-tracking state machine. Each staff
// member has at most one active entry; every transition runs in one
// transaction that row-locks the active entry first.
type AttendanceService struct {
	entryRepo      timeEntryStore
	shiftRepo      shiftLookupStore
	allocationRepo allocationAttendanceStore
	ledger         hoursLedger
	notifications  *NotificationService
	metrics        *MetricsService
	clock          clock.Clock
	cfg            config.AttendanceConfig
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewAttendanceService constructs the attendance engine.
func NewAttendanceService(
	entryRepo timeEntryStore,
	shiftRepo shiftLookupStore,
	allocationRepo allocationAttendanceStore,
	ledger hoursLedger,
	notifications *NotificationService,
	metrics *MetricsService,
	clk clock.Clock,
	cfg config.AttendanceConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AttendanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	if cfg.EarlyClockInWindow <= 0 {
		cfg.EarlyClockInWindow = 15 * time.Minute
	}
	if cfg.MaxSession <= 0 {
		cfg.MaxSession = 8 * time.Hour
	}
	return &AttendanceService{
		entryRepo:      entryRepo,
		shiftRepo:      shiftRepo,
		allocationRepo: allocationRepo,
		ledger:         ledger,
		notifications:  notifications,
		metrics:        metrics,
		clock:          clk,
		cfg:            cfg,
		validator:      validate,
		logger:         logger,
	}
}

// ClockIn opens a time entry. When no shift id is given, the caller's
// allocation whose window covers now (within the early margin) is used.
func (s *AttendanceService) ClockIn(ctx context.Context, username string, req dto.ClockInRequest) (*dto.ClockInResponse, error) {
	now := s.clock.Now()

	var shift *models.Shift
	if req.ShiftID != nil {
		found, err := s.shiftRepo.FindShift(ctx, *req.ShiftID)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %d not found", *req.ShiftID))
			}
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
		}
		allocated, err := s.allocationRepo.Exists(ctx, found.ID, username)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check allocation")
		}
		if !allocated {
			return nil, appErrors.Clone(appErrors.ErrNotAvailable, fmt.Sprintf("staff %q is not allocated to shift %d", username, found.ID))
		}
		exists, err := s.entryRepo.ExistsForShift(ctx, username, found.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing entry")
		}
		if exists {
			return nil, appErrors.Clone(appErrors.ErrDuplicateRow, "an attendance record already exists for this shift")
		}
		shift = found
	} else {
		found, err := s.inferShift(ctx, username, now)
		if err != nil {
			return nil, err
		}
		shift = found
	}

	// The shift opens for clock-in at start minus the early margin and
	// closes exactly at its end.
	if now.Before(shift.StartTime.Add(-s.cfg.EarlyClockInWindow)) {
		return nil, appErrors.Clone(appErrors.ErrTooEarly,
			fmt.Sprintf("shift opens for clock-in at %s", timestamp(shift.StartTime.Add(-s.cfg.EarlyClockInWindow))))
	}
	if !now.Before(shift.EndTime) {
		return nil, appErrors.Clone(appErrors.ErrShiftEnded, fmt.Sprintf("shift ended at %s", timestamp(shift.EndTime)))
	}

	tx, err := s.entryRepo.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if active, err := s.entryRepo.FindActiveForUpdate(ctx, tx, username); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active entry")
	} else if active != nil {
		return nil, appErrors.Clone(appErrors.ErrActiveEntry, "clock out before starting a new session")
	}

	entry := &models.TimeEntry{
		Username: username,
		ShiftID:  &shift.ID,
		ClockIn:  now,
		Status:   models.TimeEntryActive,
	}
	if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create time entry")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit clock-in")
	}

	s.notifications.Emit(ctx, username, models.NotifyClockIn,
		fmt.Sprintf("Clocked in at %s for your %s shift.", timestamp(now), timeslot.FormatHour(shift.StartHour())))

	return &dto.ClockInResponse{
		TimeEntryID: entry.ID,
		ShiftID:     entry.ShiftID,
		ClockIn:     timestamp(now),
	}, nil
}

// ClockOut closes the caller's active entry. The recorded end is capped
// at the shift's end and the capped duration feeds the hours ledger.
func (s *AttendanceService) ClockOut(ctx context.Context, username string) (*dto.ClockOutResponse, error) {
	now := s.clock.Now()

	tx, err := s.entryRepo.BeginTxx(ctx, nil)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	entry, err := s.entryRepo.FindActiveForUpdate(ctx, tx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load active entry")
	}
	if entry == nil {
		return nil, appErrors.Clone(appErrors.ErrNoActiveEntry, "no active session to clock out of")
	}

	effectiveOut := now
	if entry.ShiftID != nil {
		shift, err := s.shiftRepo.FindShift(ctx, *entry.ShiftID)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
		}
		if shift != nil && effectiveOut.After(shift.EndTime) {
			effectiveOut = shift.EndTime
		}
	}
	if effectiveOut.Before(entry.ClockIn) {
		effectiveOut = entry.ClockIn
	}

	if err := s.entryRepo.Complete(ctx, tx, entry.ID, effectiveOut, models.TimeEntryCompleted); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to complete entry")
	}
	session := effectiveOut.Sub(entry.ClockIn).Hours()
	if err := s.ledger.AddHoursWorked(ctx, tx, username, session); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update hours ledger")
	}
	if err := tx.Commit(); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit clock-out")
	}

	s.notifications.Emit(ctx, username, models.NotifyClockOut,
		fmt.Sprintf("Clocked out at %s (%.2f hours).", timestamp(effectiveOut), session))

	var hoursWorked float64
	if assistant, err := s.ledger.FindHelpDesk(ctx, username); err == nil && assistant != nil {
		hoursWorked = assistant.HoursWorked
	}

	return &dto.ClockOutResponse{
		TimeEntryID:  entry.ID,
		ClockOut:     timestamp(effectiveOut),
		SessionHours: session,
		HoursWorked:  hoursWorked,
	}, nil
}

// MarkMissed records an absence for an allocated shift.
func (s *AttendanceService) MarkMissed(ctx context.Context, req dto.MarkMissedRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid missed-shift request")
	}

	shift, err := s.shiftRepo.FindShift(ctx, req.ShiftID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("shift %d not found", req.ShiftID))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load shift")
	}
	allocated, err := s.allocationRepo.Exists(ctx, shift.ID, req.Username)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check allocation")
	}
	if !allocated {
		return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("staff %q holds no allocation on shift %d", req.Username, shift.ID))
	}
	exists, err := s.entryRepo.ExistsForShift(ctx, req.Username, shift.ID)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing entry")
	}
	if exists {
		return appErrors.Clone(appErrors.ErrDuplicateRow, "an attendance record already exists for this shift")
	}

	tx, err := s.entryRepo.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	entry := &models.TimeEntry{
		Username: req.Username,
		ShiftID:  &shift.ID,
		ClockIn:  shift.StartTime,
		ClockOut: &shift.EndTime,
		Status:   models.TimeEntryAbsent,
	}
	if err := s.entryRepo.Create(ctx, tx, entry); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create absence entry")
	}
	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit absence")
	}

	s.notifications.Emit(ctx, req.Username, models.NotifyMissed,
		fmt.Sprintf("You were marked absent for your shift on %s.", shift.Date.Format(dateLayout)))
	return nil
}

// AutoCompleteSweep closes every active entry that ran past its shift
// end, or past the session cap when no shift is attached. Re-running
// the sweep is a no-op for entries it already closed.
func (s *AttendanceService) AutoCompleteSweep(ctx context.Context) (int, error) {
	return s.sweep(ctx, "")
}

// CheckAndCompleteAbandoned runs the sweep for a single staff member,
// used before snapshot reads so stale sessions never leak into views.
func (s *AttendanceService) CheckAndCompleteAbandoned(ctx context.Context, username string) error {
	_, err := s.sweep(ctx, username)
	return err
}

func (s *AttendanceService) sweep(ctx context.Context, username string) (int, error) {
	now := s.clock.Now()
	entries, err := s.entryRepo.ListActive(ctx, username)
	if err != nil {
		return 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active entries")
	}

	completed := 0
	for _, candidate := range entries {
		cutoff := candidate.ClockIn.Add(s.cfg.MaxSession)
		if candidate.ShiftEnd != nil {
			cutoff = *candidate.ShiftEnd
		}
		if now.Before(cutoff) {
			continue
		}
		if cutoff.Before(candidate.ClockIn) {
			cutoff = candidate.ClockIn
		}
		if err := s.completeAbandoned(ctx, candidate, cutoff); err != nil {
			s.logger.Error("auto-complete failed",
				zap.Int64("time_entry_id", candidate.ID),
				zap.String("username", candidate.Username),
				zap.Error(err))
			continue
		}
		completed++
		s.notifications.Emit(ctx, candidate.Username, models.NotifyClockOut,
			fmt.Sprintf("Your session was automatically clocked out at %s (auto_completed=true).", timestamp(cutoff)))
	}
	s.metrics.RecordAutoCompleted(completed)
	return completed, nil
}

func (s *AttendanceService) completeAbandoned(ctx context.Context, candidate repository.ActiveEntry, cutoff time.Time) error {
	tx, err := s.entryRepo.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin sweep tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	current, err := s.entryRepo.FindActiveForUpdate(ctx, tx, candidate.Username)
	if err != nil {
		return fmt.Errorf("reload active entry: %w", err)
	}
	if current == nil || current.ID != candidate.ID {
		return nil
	}
	if err := s.entryRepo.Complete(ctx, tx, current.ID, cutoff, models.TimeEntryCompleted); err != nil {
		return fmt.Errorf("complete entry: %w", err)
	}
	if err := s.ledger.AddHoursWorked(ctx, tx, current.Username, cutoff.Sub(current.ClockIn).Hours()); err != nil {
		return fmt.Errorf("update hours ledger: %w", err)
	}
	return tx.Commit()
}

// TodayShift is the volunteer's same-day snapshot.
func (s *AttendanceService) TodayShift(ctx context.Context, username string) (*dto.TodayShiftResponse, error) {
	if err := s.CheckAndCompleteAbandoned(ctx, username); err != nil {
		return &dto.TodayShiftResponse{Status: dto.TodayError}, nil
	}
	now := s.clock.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())

	shifts, err := s.todayAllocations(ctx, username, today)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return &dto.TodayShiftResponse{Status: dto.TodayNone}, nil
	}

	active, err := s.entryRepo.ListActive(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check active session")
	}
	if len(active) > 0 {
		response := &dto.TodayShiftResponse{Status: dto.TodayActive, ShiftID: active[0].ShiftID, StartsNow: true}
		if shift := matchShift(shifts, active[0].ShiftID); shift != nil {
			response.TimeRange = shiftRange(*shift)
		}
		return response, nil
	}

	sawEntry := false
	for i := range shifts {
		shift := shifts[i]
		exists, err := s.entryRepo.ExistsForShift(ctx, username, shift.ID)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check entries")
		}
		if exists {
			sawEntry = true
			continue
		}
		if !now.Before(shift.EndTime) {
			continue
		}
		response := &dto.TodayShiftResponse{
			Status:    dto.TodayFuture,
			ShiftID:   &shift.ID,
			TimeRange: shiftRange(shift),
			StartsNow: !now.Before(shift.StartTime.Add(-s.cfg.EarlyClockInWindow)),
		}
		if now.Before(shift.StartTime) {
			response.TimeUntil = shift.StartTime.Sub(now).Truncate(time.Minute).String()
		}
		return response, nil
	}

	if sawEntry {
		return &dto.TodayShiftResponse{Status: dto.TodayCompleted}, nil
	}
	return &dto.TodayShiftResponse{Status: dto.TodayNone}, nil
}

// Stats aggregates completed hours over the standard windows. The week
// starts on Monday; the semester boundary is the calendar half-year.
func (s *AttendanceService) Stats(ctx context.Context, username string) (*models.AttendanceStats, error) {
	if err := s.CheckAndCompleteAbandoned(ctx, username); err != nil {
		return nil, err
	}
	now := s.clock.Now()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	weekStart := dayStart.AddDate(0, 0, -timeslot.DayIndex(now.Weekday()))
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())
	semesterMonth := time.January
	if now.Month() >= time.July {
		semesterMonth = time.July
	}
	semesterStart := time.Date(now.Year(), semesterMonth, 1, 0, 0, 0, 0, now.Location())

	stats := &models.AttendanceStats{}
	windows := []struct {
		from time.Time
		into *float64
	}{
		{dayStart, &stats.Daily},
		{weekStart, &stats.Weekly},
		{monthStart, &stats.Monthly},
		{semesterStart, &stats.Semester},
	}
	for _, window := range windows {
		hours, err := s.entryRepo.SumCompletedHours(ctx, username, window.from, now.Add(time.Second))
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to aggregate hours")
		}
		*window.into = hours
	}

	absences, err := s.entryRepo.CountAbsences(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count absences")
	}
	stats.Absences = absences
	return stats, nil
}

// ShiftHistory lists the staff member's recent attendance records.
func (s *AttendanceService) ShiftHistory(ctx context.Context, username string, limit int) ([]dto.ShiftHistoryEntry, error) {
	rows, err := s.entryRepo.History(ctx, username, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load history")
	}
	history := make([]dto.ShiftHistoryEntry, 0, len(rows))
	for _, row := range rows {
		entry := dto.ShiftHistoryEntry{
			TimeEntryID: row.ID,
			ShiftID:     row.ShiftID,
			Date:        row.ClockIn.Format(dateLayout),
			Hours:       row.Hours(),
			Status:      string(row.Status),
		}
		if row.ShiftStart != nil && row.ShiftEnd != nil {
			entry.TimeRange = timeslot.Label(row.ShiftStart.Hour(), row.ShiftEnd.Hour())
		} else if row.ClockOut != nil {
			entry.TimeRange = fmt.Sprintf("%s - %s", row.ClockIn.Format("15:04"), row.ClockOut.Format("15:04"))
		}
		history = append(history, entry)
	}
	return history, nil
}

// TimeDistribution returns completed hours per weekday, Monday first,
// with every day present.
func (s *AttendanceService) TimeDistribution(ctx context.Context, username string) ([]models.WeekdayHours, error) {
	rows, err := s.entryRepo.WeekdayDistribution(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load distribution")
	}
	full := make([]models.WeekdayHours, 7)
	for day := range full {
		full[day] = models.WeekdayHours{DayOfWeek: day}
	}
	for _, row := range rows {
		if row.DayOfWeek >= 0 && row.DayOfWeek < 7 {
			full[row.DayOfWeek].Hours = row.Hours
		}
	}
	return full, nil
}

// inferShift finds the caller's allocation whose clock-in window covers
// now, looking across both pools.
func (s *AttendanceService) inferShift(ctx context.Context, username string, now time.Time) (*models.Shift, error) {
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	shifts, err := s.todayAllocations(ctx, username, today)
	if err != nil {
		return nil, err
	}
	if len(shifts) == 0 {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "no allocated shift today")
	}

	upcoming := false
	for i := range shifts {
		shift := &shifts[i]
		if now.Before(shift.StartTime.Add(-s.cfg.EarlyClockInWindow)) {
			upcoming = true
			continue
		}
		if now.Before(shift.EndTime) {
			exists, err := s.entryRepo.ExistsForShift(ctx, username, shift.ID)
			if err != nil {
				return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check entries")
			}
			if !exists {
				return shift, nil
			}
		}
	}
	if upcoming {
		return nil, appErrors.Clone(appErrors.ErrTooEarly, "your next shift has not opened for clock-in yet")
	}
	return nil, appErrors.Clone(appErrors.ErrShiftEnded, "all of today's shifts have ended")
}

func (s *AttendanceService) todayAllocations(ctx context.Context, username string, date time.Time) ([]models.Shift, error) {
	var shifts []models.Shift
	for _, scheduleID := range []int64{models.HelpDeskScheduleID, models.LabScheduleID} {
		part, err := s.allocationRepo.ShiftsForStaffOnDate(ctx, scheduleID, username, date)
		if err != nil {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load today's shifts")
		}
		shifts = append(shifts, part...)
	}
	return shifts, nil
}

func matchShift(shifts []models.Shift, id *int64) *models.Shift {
	if id == nil {
		return nil
	}
	for i := range shifts {
		if shifts[i].ID == *id {
			return &shifts[i]
		}
	}
	return nil
}

func shiftRange(shift models.Shift) string {
	return timeslot.Label(shift.StartHour(), shift.EndTime.Hour())
}
