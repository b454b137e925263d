package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type notificationRepository interface {
	Append(ctx context.Context, notification *models.Notification) error
	ListForRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipient, id string) (int64, error)
	AdminRecipients(ctx context.Context) ([]string, error)
}

// NotificationService is the append-only event sink. Emission is
// best-effort: failures are logged and never propagate into the
// mutation that triggered them, so callers emit after commit.
type NotificationService struct {
	repo   notificationRepository
	clock  clock.Clock
	logger *zap.Logger
}

// NewNotificationService constructs the notification sink.
func NewNotificationService(repo notificationRepository, clk clock.Clock, logger *zap.Logger) *NotificationService {
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{repo: repo, clock: clk, logger: logger}
}

// Emit appends one notification for a recipient.
func (s *NotificationService) Emit(ctx context.Context, recipient string, kind models.NotificationKind, message string) {
	if !kind.Valid() {
		s.logger.Error("dropping notification with unknown kind",
			zap.String("kind", string(kind)), zap.String("recipient", recipient))
		return
	}
	notification := &models.Notification{
		Recipient: recipient,
		Message:   message,
		Kind:      kind,
		CreatedAt: clock.ToUTC(s.clock.Now()),
	}
	if err := s.repo.Append(ctx, notification); err != nil {
		s.logger.Error("notification emit failed",
			zap.String("kind", string(kind)), zap.String("recipient", recipient), zap.Error(err))
	}
}

// EmitToAdmins fans one message out to every admin account.
func (s *NotificationService) EmitToAdmins(ctx context.Context, kind models.NotificationKind, message string) {
	admins, err := s.repo.AdminRecipients(ctx)
	if err != nil {
		s.logger.Error("admin recipient lookup failed", zap.Error(err))
		return
	}
	for _, admin := range admins {
		s.Emit(ctx, admin, kind, message)
	}
}

// List returns the recipient's notifications, newest first.
func (s *NotificationService) List(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error) {
	notifications, err := s.repo.ListForRecipient(ctx, recipient, unreadOnly, limit)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list notifications")
	}
	if notifications == nil {
		notifications = []models.Notification{}
	}
	return notifications, nil
}

// MarkRead flags one of the recipient's notifications as consumed.
func (s *NotificationService) MarkRead(ctx context.Context, recipient, id string) error {
	affected, err := s.repo.MarkRead(ctx, recipient, id)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to mark notification read")
	}
	if affected == 0 {
		return appErrors.Clone(appErrors.ErrNotFound, "notification not found")
	}
	return nil
}

// timestamp renders a wall-clock instant for notification messages.
func timestamp(t time.Time) string {
	return t.Format("2006-01-02 15:04")
}
