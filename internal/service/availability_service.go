package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/internal/timeslot"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type availabilityRepository interface {
	ListForStaff(ctx context.Context, username string) ([]models.Availability, error)
	ListForStaffSet(ctx context.Context, usernames []string) ([]models.Availability, error)
	Create(ctx context.Context, exec sqlx.ExtContext, window *models.Availability) error
	Delete(ctx context.Context, username string, id int64) (int64, error)
}

type assistantPoolRepository interface {
	IsActive(ctx context.Context, kind models.StaffKind, username string) (bool, error)
	ListActive(ctx context.Context, kind models.StaffKind) ([]string, error)
}

type allocationLookupRepository interface {
	StaffAllocatedAt(ctx context.Context, scheduleID int64, username string, day, hour int) (bool, error)
}

type studentNameRepository interface {
	NamesByUsernames(ctx context.Context, usernames []string) (map[string]string, error)
}

type availabilityCache interface {
	MGet(ctx context.Context, keys ...string) *redis.SliceCmd
	Set(ctx context.Context, key string, value interface{}, expiration time.Duration) *redis.StatusCmd
}

// AvailabilityService resolves who can work a slot. Batch answers are
// served through a short TTL cache; the authoritative re-check always
// happens inside the editor's write transaction.
type AvailabilityService struct {
	availabilityRepo availabilityRepository
	assistantRepo    assistantPoolRepository
	allocationRepo   allocationLookupRepository
	studentRepo      studentNameRepository
	db               sqlx.ExtContext
	cache            availabilityCache
	cacheTTL         time.Duration
	metrics          *MetricsService
	validator        *validator.Validate
	logger           *zap.Logger
}

// NewAvailabilityService constructs the resolver. cache may be nil, in
// which case every batch query hits the store.
func NewAvailabilityService(
	availabilityRepo availabilityRepository,
	assistantRepo assistantPoolRepository,
	allocationRepo allocationLookupRepository,
	studentRepo studentNameRepository,
	db sqlx.ExtContext,
	cache availabilityCache,
	cacheTTL time.Duration,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
) *AvailabilityService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Second
	}
	return &AvailabilityService{
		availabilityRepo: availabilityRepo,
		assistantRepo:    assistantRepo,
		allocationRepo:   allocationRepo,
		studentRepo:      studentRepo,
		db:               db,
		cache:            cache,
		cacheTTL:         cacheTTL,
		metrics:          metrics,
		validator:        validate,
		logger:           logger,
	}
}

// ListAvailable returns the active assistants of the pool whose windows
// cover the slot's hour.
func (s *AvailabilityService) ListAvailable(ctx context.Context, kind models.StaffKind, dayLabel, slot string) ([]dto.GridStaff, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown staff kind %q", kind))
	}
	day, err := timeslot.ParseDay(dayLabel)
	if err != nil {
		return nil, err
	}
	hour, err := timeslot.ParseHour(slot)
	if err != nil {
		return nil, err
	}

	covered, err := s.coveredSet(ctx, kind, day, hour)
	if err != nil {
		return nil, err
	}

	usernames := make([]string, 0, len(covered))
	for name := range covered {
		usernames = append(usernames, name)
	}
	names, err := s.studentRepo.NamesByUsernames(ctx, usernames)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve staff names")
	}

	staff := make([]dto.GridStaff, 0, len(usernames))
	for _, username := range usernames {
		staff = append(staff, dto.GridStaff{Username: username, Name: names[username]})
	}
	sortGridStaff(staff)
	return staff, nil
}

// IsAvailable answers one (staff, day, hour) question. AlreadyAllocated
// is informational and never turns the answer negative.
func (s *AvailabilityService) IsAvailable(ctx context.Context, kind models.StaffKind, username, dayLabel, slot string) (*dto.AvailabilityCheck, error) {
	if !kind.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, fmt.Sprintf("unknown staff kind %q", kind))
	}
	day, err := timeslot.ParseDay(dayLabel)
	if err != nil {
		return nil, err
	}
	hour, err := timeslot.ParseHour(slot)
	if err != nil {
		return nil, err
	}

	active, err := s.assistantRepo.IsActive(ctx, kind, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check staff status")
	}
	if !active {
		return nil, appErrors.Clone(appErrors.ErrInactiveAccount, fmt.Sprintf("staff %q is not an active %s assistant", username, kind))
	}

	windows, err := s.availabilityRepo.ListForStaff(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}

	check := &dto.AvailabilityCheck{}
	for _, window := range windows {
		if window.DayOfWeek == day && window.CoversHour(hour) {
			check.IsAvailable = true
			check.MatchedWindow = windowLabel(window)
			break
		}
	}

	allocated, err := s.allocationRepo.StaffAllocatedAt(ctx, models.PrimaryScheduleID(kind), username, day, hour)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check existing allocation")
	}
	check.AlreadyAllocated = allocated

	return check, nil
}

// BatchAvailable evaluates many queries in one store round-trip, with
// a per-tuple TTL cache in front. Stale reads inside the TTL are
// acceptable for this endpoint.
func (s *AvailabilityService) BatchAvailable(ctx context.Context, req dto.BatchAvailabilityRequest) ([]dto.AvailabilityResult, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid batch availability request")
	}
	kind := models.StaffKind(req.Kind)

	type parsed struct {
		day  int
		hour int
		key  string
	}
	queries := make([]parsed, len(req.Queries))
	keys := make([]string, len(req.Queries))
	for i, q := range req.Queries {
		day, err := timeslot.ParseDay(q.Day)
		if err != nil {
			return nil, err
		}
		hour, err := timeslot.ParseHour(q.Time)
		if err != nil {
			return nil, err
		}
		queries[i] = parsed{day: day, hour: hour, key: availabilityKey(kind, q.Username, day, hour)}
		keys[i] = queries[i].key
	}

	results := make([]dto.AvailabilityResult, len(req.Queries))
	pending := make([]int, 0, len(req.Queries))

	cached := s.cacheLookup(ctx, keys)
	for i, q := range req.Queries {
		results[i] = dto.AvailabilityResult{Username: q.Username, Day: q.Day, Time: q.Time}
		if hit, ok := cached[queries[i].key]; ok {
			results[i].IsAvailable = hit
		} else {
			pending = append(pending, i)
		}
	}
	if len(pending) == 0 {
		return results, nil
	}

	activeSet, err := s.activeSet(ctx, kind)
	if err != nil {
		return nil, err
	}
	usernames := make([]string, 0, len(pending))
	seen := map[string]bool{}
	for _, i := range pending {
		if name := req.Queries[i].Username; !seen[name] {
			seen[name] = true
			usernames = append(usernames, name)
		}
	}
	windows, err := s.availabilityRepo.ListForStaffSet(ctx, usernames)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	byStaff := map[string][]models.Availability{}
	for _, w := range windows {
		byStaff[w.Username] = append(byStaff[w.Username], w)
	}

	for _, i := range pending {
		q := queries[i]
		username := req.Queries[i].Username
		available := false
		if activeSet[username] {
			for _, w := range byStaff[username] {
				if w.DayOfWeek == q.day && w.CoversHour(q.hour) {
					available = true
					break
				}
			}
		}
		results[i].IsAvailable = available
		s.cacheStore(ctx, q.key, available)
	}

	return results, nil
}

// AddWindow creates a recurring weekly window for the staff member.
func (s *AvailabilityService) AddWindow(ctx context.Context, username string, req dto.AvailabilityWindowRequest) (*models.Availability, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid availability window")
	}
	day, err := timeslot.ParseDay(req.Day)
	if err != nil {
		return nil, err
	}
	startHour, err := timeslot.ParseHour(req.Start)
	if err != nil {
		return nil, err
	}
	endHour, err := timeslot.ParseHour(req.End)
	if err != nil {
		return nil, err
	}
	if endHour <= startHour {
		return nil, appErrors.Clone(appErrors.ErrValidation, "window end must be after start")
	}

	window := &models.Availability{
		Username:     username,
		DayOfWeek:    day,
		StartMinutes: startHour * 60,
		EndMinutes:   endHour * 60,
	}
	if err := s.availabilityRepo.Create(ctx, s.db, window); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create availability window")
	}
	return window, nil
}

// RemoveWindow deletes one of the staff member's windows.
func (s *AvailabilityService) RemoveWindow(ctx context.Context, username string, id int64) error {
	affected, err := s.availabilityRepo.Delete(ctx, username, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete availability window")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "availability window not found")
	}
	return nil
}

// ListWindows returns the staff member's recurring windows.
func (s *AvailabilityService) ListWindows(ctx context.Context, username string) ([]models.Availability, error) {
	windows, err := s.availabilityRepo.ListForStaff(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list availability windows")
	}
	if windows == nil {
		windows = []models.Availability{}
	}
	return windows, nil
}

func (s *AvailabilityService) coveredSet(ctx context.Context, kind models.StaffKind, day, hour int) (map[string]bool, error) {
	active, err := s.assistantRepo.ListActive(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active staff")
	}
	if len(active) == 0 {
		return map[string]bool{}, nil
	}
	windows, err := s.availabilityRepo.ListForStaffSet(ctx, active)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load availability")
	}
	covered := map[string]bool{}
	for _, w := range windows {
		if w.DayOfWeek == day && w.CoversHour(hour) {
			covered[w.Username] = true
		}
	}
	return covered, nil
}

func (s *AvailabilityService) activeSet(ctx context.Context, kind models.StaffKind) (map[string]bool, error) {
	active, err := s.assistantRepo.ListActive(ctx, kind)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list active staff")
	}
	set := make(map[string]bool, len(active))
	for _, name := range active {
		set[name] = true
	}
	return set, nil
}

func (s *AvailabilityService) cacheLookup(ctx context.Context, keys []string) map[string]bool {
	hits := map[string]bool{}
	if s.cache == nil || len(keys) == 0 {
		return hits
	}
	values, err := s.cache.MGet(ctx, keys...).Result()
	if err != nil {
		s.logger.Warn("availability cache lookup failed", zap.Error(err))
		return hits
	}
	for i, value := range values {
		if raw, ok := value.(string); ok {
			hits[keys[i]] = raw == "1"
		}
	}
	for _, key := range keys {
		_, hit := hits[key]
		s.metrics.RecordCacheLookup(hit)
	}
	return hits
}

func (s *AvailabilityService) cacheStore(ctx context.Context, key string, available bool) {
	if s.cache == nil {
		return
	}
	value := "0"
	if available {
		value = "1"
	}
	if err := s.cache.Set(ctx, key, value, s.cacheTTL).Err(); err != nil {
		s.logger.Warn("availability cache store failed", zap.String("key", key), zap.Error(err))
	}
}

func availabilityKey(kind models.StaffKind, username string, day, hour int) string {
	return fmt.Sprintf("avail:%s:%s:%d:%d", kind, username, day, hour)
}

func windowLabel(w models.Availability) string {
	return fmt.Sprintf("%02d:%02d - %02d:%02d",
		w.StartMinutes/60, w.StartMinutes%60, w.EndMinutes/60, w.EndMinutes%60)
}

func sortGridStaff(staff []dto.GridStaff) {
	sort.Slice(staff, func(i, j int) bool { return staff[i].Username < staff[j].Username })
}
