package service

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/solver"
	"github.com/campusworks/roster-api/internal/timeslot"
	"github.com/campusworks/roster-api/pkg/config"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

const dateLayout = "2006-01-02"

// Generator result statuses carried in the 200 payload. Solver
// infeasibility and timeouts are outcomes, not transport failures.
const (
	GenerateSuccess = "success"
	GenerateError   = "error"

	ReasonInfeasible = "solver_infeasible"
	ReasonTimeout    = "solver_timeout"
)

type scheduleStore interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	EnsurePrimary(ctx context.Context, exec sqlx.ExtContext, kind models.StaffKind, start, end, generatedAt time.Time) (int64, error)
	DeleteShiftsInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error
	CreateShift(ctx context.Context, exec sqlx.ExtContext, shift *models.Shift) error
	CreateDemand(ctx context.Context, exec sqlx.ExtContext, demand *models.ShiftCourseDemand) error
}

type allocationGeneratorStore interface {
	Insert(ctx context.Context, exec sqlx.ExtContext, alloc *models.Allocation) error
	DeleteInRange(ctx context.Context, exec sqlx.ExtContext, scheduleID int64, start, end time.Time) error
}

type assistantRosterRepository interface {
	ListActive(ctx context.Context, kind models.StaffKind) ([]string, error)
	HoursMinimums(ctx context.Context, kind models.StaffKind) (map[string]int, error)
	Capabilities(ctx context.Context, usernames []string) (map[string][]string, error)
}

type courseCatalogRepository interface {
	ListActive(ctx context.Context) ([]models.Course, error)
}

type availabilityReader interface {
	ListForStaffSet(ctx context.Context, usernames []string) ([]models.Availability, error)
}

// SchedulerService generates rosters: it builds the shift grid for a
// pool and date range, assembles the assignment instance from the
// store, runs the solver under its wall-time budget and atomically
// replaces the window's shifts and allocations.
type SchedulerService struct {
	scheduleRepo     scheduleStore
	allocationRepo   allocationGeneratorStore
	assistantRepo    assistantRosterRepository
	courseRepo       courseCatalogRepository
	availabilityRepo availabilityReader
	metrics          *MetricsService
	clock            clock.Clock
	cfg              config.SchedulerConfig
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewSchedulerService constructs the generator.
func NewSchedulerService(
	scheduleRepo scheduleStore,
	allocationRepo allocationGeneratorStore,
	assistantRepo assistantRosterRepository,
	courseRepo courseCatalogRepository,
	availabilityRepo availabilityReader,
	metrics *MetricsService,
	clk clock.Clock,
	cfg config.SchedulerConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *SchedulerService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	return &SchedulerService{
		scheduleRepo:     scheduleRepo,
		allocationRepo:   allocationRepo,
		assistantRepo:    assistantRepo,
		courseRepo:       courseRepo,
		availabilityRepo: availabilityRepo,
		metrics:          metrics,
		clock:            clk,
		cfg:              cfg,
		validator:        validate,
		logger:           logger,
	}
}

// gridSlot is one cell of the generated grid before persistence.
type gridSlot struct {
	date      time.Time
	day       int
	startHour int
	endHour   int
}

// Generate runs the full pipeline for one pool and window.
func (s *SchedulerService) Generate(ctx context.Context, req dto.GenerateScheduleRequest) (*dto.GenerateScheduleResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid generate request")
	}
	kind := models.StaffKind(req.Kind)

	start, end, err := s.parseRange(req.StartDate, req.EndDate)
	if err != nil {
		return nil, err
	}

	slots := buildGrid(kind, start, end)
	if len(slots) == 0 {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range contains no working days for this pool")
	}

	demands, err := s.buildDemands(ctx, req.Options)
	if err != nil {
		return nil, err
	}

	input, err := s.buildInstance(ctx, kind, slots, demands, req.Options)
	if err != nil {
		return nil, err
	}

	budget := s.cfg.SolverBudget
	if budget <= 0 {
		budget = 10 * time.Second
	}
	solveCtx, cancel := context.WithTimeout(ctx, budget)
	defer cancel()

	began := time.Now()
	result := solver.Solve(solveCtx, input)
	elapsed := time.Since(began)

	s.metrics.ObserveSolverRun(string(kind), result.Status, elapsed, result.Relaxations)
	if s.cfg.SlowSolve > 0 && elapsed > s.cfg.SlowSolve {
		s.logger.Warn("slow schedule solve",
			zap.String("kind", string(kind)),
			zap.Duration("elapsed", elapsed),
			zap.Int("shifts", len(slots)),
			zap.Int("staff", len(input.Staff)))
	}

	switch result.Status {
	case solver.StatusTimeout:
		return &dto.GenerateScheduleResponse{Status: GenerateError, Reason: ReasonTimeout}, nil
	case solver.StatusInfeasible:
		return &dto.GenerateScheduleResponse{Status: GenerateError, Reason: ReasonInfeasible}, nil
	}

	scheduleID, assignments, err := s.persist(ctx, kind, start, end, slots, demands, result)
	if err != nil {
		return nil, err
	}

	relaxations := result.Relaxations
	if relaxations == nil {
		relaxations = []string{}
	}
	return &dto.GenerateScheduleResponse{
		Status:     GenerateSuccess,
		ScheduleID: scheduleID,
		Details: &dto.GenerateDetails{
			StartDate:          req.StartDate,
			EndDate:            req.EndDate,
			ShiftsCreated:      len(slots),
			AssignmentsCreated: assignments,
			RelaxationsApplied: relaxations,
			SolveMillis:        elapsed.Milliseconds(),
		},
	}, nil
}

func (s *SchedulerService) parseRange(startRaw, endRaw string) (time.Time, time.Time, error) {
	loc := s.clock.Now().Location()
	start, err := time.ParseInLocation(dateLayout, startRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable start date %q", startRaw))
	}
	end, err := time.ParseInLocation(dateLayout, endRaw, loc)
	if err != nil {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unparseable end date %q", endRaw))
	}
	if end.Before(start) {
		return time.Time{}, time.Time{}, appErrors.Clone(appErrors.ErrValidation, "end date precedes start date")
	}
	return start, end, nil
}

// buildGrid lays out the pool's weekly pattern across the range:
// help desk runs Monday-Friday 09:00-17:00 in one-hour shifts, the lab
// Monday-Saturday in three four-hour blocks.
func buildGrid(kind models.StaffKind, start, end time.Time) []gridSlot {
	var slots []gridSlot
	for date := start; !date.After(end); date = date.AddDate(0, 0, 1) {
		day := timeslot.DayIndex(date.Weekday())
		switch kind {
		case models.StaffHelpDesk:
			if day > timeslot.Friday {
				continue
			}
			for hour := 9; hour < 17; hour++ {
				slots = append(slots, gridSlot{date: date, day: day, startHour: hour, endHour: hour + 1})
			}
		case models.StaffLab:
			if day > timeslot.Saturday {
				continue
			}
			for _, startHour := range []int{8, 12, 16} {
				slots = append(slots, gridSlot{date: date, day: day, startHour: startHour, endHour: startHour + 4})
			}
		}
	}
	return slots
}

func (s *SchedulerService) buildDemands(ctx context.Context, opts dto.GenerateOptions) ([]solver.Demand, error) {
	courses, err := s.courseRepo.ListActive(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active courses")
	}

	tutors := s.cfg.DefaultTutors
	if tutors <= 0 {
		tutors = 2
	}
	weight := s.cfg.DefaultWeight
	if weight <= 0 {
		weight = 2
	}

	overrides := make(map[string]dto.CourseDemandOverride, len(opts.CourseDemands))
	for _, override := range opts.CourseDemands {
		overrides[override.CourseCode] = override
	}

	demands := make([]solver.Demand, 0, len(courses))
	for _, course := range courses {
		demand := solver.Demand{Course: course.Code, Required: tutors, Weight: weight}
		if override, ok := overrides[course.Code]; ok {
			demand.Required = override.TutorsRequired
			demand.Weight = override.Weight
			delete(overrides, course.Code)
		}
		demands = append(demands, demand)
	}
	for code := range overrides {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("demand override for unknown course %q", code))
	}
	return demands, nil
}

func (s *SchedulerService) buildInstance(ctx context.Context, kind models.StaffKind, slots []gridSlot, demands []solver.Demand, opts dto.GenerateOptions) (solver.Input, error) {
	usernames, err := s.assistantRepo.ListActive(ctx, kind)
	if err != nil {
		return solver.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active staff")
	}

	windows, err := s.availabilityRepo.ListForStaffSet(ctx, usernames)
	if err != nil {
		return solver.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	windowsByStaff := map[string][]models.Availability{}
	for _, window := range windows {
		windowsByStaff[window.Username] = append(windowsByStaff[window.Username], window)
	}

	var capabilities map[string][]string
	if kind == models.StaffHelpDesk {
		capabilities, err = s.assistantRepo.Capabilities(ctx, usernames)
		if err != nil {
			return solver.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load course capabilities")
		}
	}

	floors, err := s.assistantRepo.HoursMinimums(ctx, kind)
	if err != nil {
		return solver.Input{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load staff floors")
	}

	staff := make([]solver.Staff, 0, len(usernames))
	for _, username := range usernames {
		available := make(map[int]bool)
		for j, slot := range slots {
			for _, window := range windowsByStaff[username] {
				if window.DayOfWeek == slot.day && window.CoversSpan(slot.startHour*60, slot.endHour*60) {
					available[j] = true
					break
				}
			}
		}
		member := solver.Staff{Username: username, Available: available}
		if kind == models.StaffLab {
			member.AllCapable = true
		} else {
			member.Courses = make(map[string]bool, len(capabilities[username]))
			for _, code := range capabilities[username] {
				member.Courses[code] = true
			}
		}
		staff = append(staff, member)
	}

	shifts := make([]solver.Shift, len(slots))
	for j := range slots {
		shifts[j] = solver.Shift{Index: j, Demands: demands}
	}

	minimum := opts.MinimumStaff
	if minimum <= 0 {
		minimum = s.cfg.MinimumStaff
	}
	if minimum <= 0 {
		minimum = 2
	}

	return solver.Input{
		Staff:        staff,
		Shifts:       shifts,
		MinimumStaff: minimum,
		MaximumStaff: opts.MaximumStaff,
		StaffFloors:  floors,
	}, nil
}

// persist replaces the window's shifts and allocations in one
// transaction against the pool's fixed-id schedule.
func (s *SchedulerService) persist(ctx context.Context, kind models.StaffKind, start, end time.Time, slots []gridSlot, demands []solver.Demand, result solver.Result) (int64, int, error) {
	tx, err := s.scheduleRepo.BeginTxx(ctx, nil)
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	scheduleID, err := s.scheduleRepo.EnsurePrimary(ctx, tx, kind, start, end, s.clock.Now())
	if err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to ensure schedule")
	}

	if err := s.allocationRepo.DeleteInRange(ctx, tx, scheduleID, start, end); err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear allocations")
	}
	if err := s.scheduleRepo.DeleteShiftsInRange(ctx, tx, scheduleID, start, end); err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to clear shifts")
	}

	assignments := 0
	for j, slot := range slots {
		shift := &models.Shift{
			ScheduleID: scheduleID,
			Date:       slot.date,
			StartTime:  slot.date.Add(time.Duration(slot.startHour) * time.Hour),
			EndTime:    slot.date.Add(time.Duration(slot.endHour) * time.Hour),
		}
		if err := s.scheduleRepo.CreateShift(ctx, tx, shift); err != nil {
			return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift")
		}
		for _, demand := range demands {
			row := &models.ShiftCourseDemand{
				ShiftID:        shift.ID,
				CourseCode:     demand.Course,
				TutorsRequired: demand.Required,
				Weight:         demand.Weight,
			}
			if err := s.scheduleRepo.CreateDemand(ctx, tx, row); err != nil {
				return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create shift demand")
			}
		}
		for _, username := range result.Assignments[j] {
			alloc := &models.Allocation{ScheduleID: scheduleID, ShiftID: shift.ID, Username: username}
			if err := s.allocationRepo.Insert(ctx, tx, alloc); err != nil {
				return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create allocation")
			}
			assignments++
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, 0, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit schedule")
	}
	return scheduleID, assignments, nil
}
