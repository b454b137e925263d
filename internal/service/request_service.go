package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type requestRepository interface {
	Create(ctx context.Context, req *models.Request) error
	FindByID(ctx context.Context, id int64) (*models.Request, error)
	Transition(ctx context.Context, id int64, to models.RequestStatus, resolvedAt time.Time) error
	ListByStaff(ctx context.Context, username string) ([]models.Request, error)
	ListPending(ctx context.Context) ([]models.Request, error)
}

type requestAllocationStore interface {
	Exists(ctx context.Context, shiftID int64, username string) (bool, error)
}

// RequestService runs the shift-change lifecycle. Approval is advisory:
// it acknowledges the request without touching allocations, which stay
// an editor concern.
type RequestService struct {
	requestRepo    requestRepository
	allocationRepo requestAllocationStore
	notifications  *NotificationService
	clock          clock.Clock
	validator      *validator.Validate
	logger         *zap.Logger
}

// NewRequestService constructs the request workflow.
func NewRequestService(
	requestRepo requestRepository,
	allocationRepo requestAllocationStore,
	notifications *NotificationService,
	clk clock.Clock,
	validate *validator.Validate,
	logger *zap.Logger,
) *RequestService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	return &RequestService{
		requestRepo:    requestRepo,
		allocationRepo: allocationRepo,
		notifications:  notifications,
		clock:          clk,
		validator:      validate,
		logger:         logger,
	}
}

// Submit files a pending request over one of the caller's allocations.
func (s *RequestService) Submit(ctx context.Context, username string, payload dto.SubmitRequestPayload) (*models.Request, error) {
	if err := s.validator.Struct(payload); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid request payload")
	}

	allocated, err := s.allocationRepo.Exists(ctx, payload.ShiftID, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check allocation")
	}
	if !allocated {
		return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("you hold no allocation on shift %d", payload.ShiftID))
	}

	request := &models.Request{
		Username:    username,
		ShiftID:     payload.ShiftID,
		Reason:      payload.Reason,
		Replacement: payload.Replacement,
		Status:      models.RequestPending,
		CreatedAt:   clock.ToUTC(s.clock.Now()),
	}
	if err := s.requestRepo.Create(ctx, request); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create request")
	}

	s.notifications.EmitToAdmins(ctx, models.NotifyRequest,
		fmt.Sprintf("%s filed a shift-change request for shift %d: %s", username, payload.ShiftID, payload.Reason))
	return request, nil
}

// Resolve approves or rejects a pending request. The transition is
// terminal and guarded against concurrent resolutions.
func (s *RequestService) Resolve(ctx context.Context, id int64, payload dto.ResolveRequestPayload) (*models.Request, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Status != models.RequestPending {
		return nil, appErrors.Clone(appErrors.ErrRequestNotOpen, fmt.Sprintf("request %d is already %s", id, request.Status))
	}

	status := models.RequestRejected
	kind := models.NotifyRejection
	verdict := "rejected"
	if payload.Approve {
		status = models.RequestApproved
		kind = models.NotifyApproval
		verdict = "approved"
	}

	resolvedAt := clock.ToUTC(s.clock.Now())
	if err := s.requestRepo.Transition(ctx, id, status, resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRequestNotOpen, fmt.Sprintf("request %d was resolved concurrently", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve request")
	}
	request.Status = status
	request.ResolvedAt = &resolvedAt

	message := fmt.Sprintf("Your shift-change request for shift %d was %s.", request.ShiftID, verdict)
	if payload.Note != "" {
		message += " " + payload.Note
	}
	s.notifications.Emit(ctx, request.Username, kind, message)
	return request, nil
}

// Cancel withdraws the caller's own pending request.
func (s *RequestService) Cancel(ctx context.Context, id int64, username string) (*models.Request, error) {
	request, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if request.Username != username {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only the requester may cancel a request")
	}
	if request.Status != models.RequestPending {
		return nil, appErrors.Clone(appErrors.ErrRequestNotOpen, fmt.Sprintf("request %d is already %s", id, request.Status))
	}

	resolvedAt := clock.ToUTC(s.clock.Now())
	if err := s.requestRepo.Transition(ctx, id, models.RequestCancelled, resolvedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrRequestNotOpen, fmt.Sprintf("request %d was resolved concurrently", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to cancel request")
	}
	request.Status = models.RequestCancelled
	request.ResolvedAt = &resolvedAt
	return request, nil
}

// ListMine returns the caller's requests, newest first.
func (s *RequestService) ListMine(ctx context.Context, username string) ([]models.Request, error) {
	requests, err := s.requestRepo.ListByStaff(ctx, username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list requests")
	}
	if requests == nil {
		requests = []models.Request{}
	}
	return requests, nil
}

// ListPending returns every open request for the admin review queue.
func (s *RequestService) ListPending(ctx context.Context) ([]models.Request, error) {
	requests, err := s.requestRepo.ListPending(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list pending requests")
	}
	if requests == nil {
		requests = []models.Request{}
	}
	return requests, nil
}

func (s *RequestService) load(ctx context.Context, id int64) (*models.Request, error) {
	request, err := s.requestRepo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("request %d not found", id))
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load request")
	}
	return request, nil
}
