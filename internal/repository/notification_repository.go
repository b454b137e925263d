package repository

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/campusworks/roster-api/internal/models"
)

// NotificationRepository provides append-only persistence for the
// event sink.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository creates a new notification repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Append stores one notification. CreatedAt is the caller's timestamp;
// the repository never stamps its own.
func (r *NotificationRepository) Append(ctx context.Context, notification *models.Notification) error {
	if notification.ID == "" {
		notification.ID = uuid.NewString()
	}
	const query = `INSERT INTO notifications (id, recipient, message, kind, read, created_at) VALUES (:id, :recipient, :message, :kind, :read, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, notification); err != nil {
		return fmt.Errorf("append notification: %w", err)
	}
	return nil
}

// ListForRecipient returns notifications newest first.
func (r *NotificationRepository) ListForRecipient(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	query := `SELECT id, recipient, message, kind, read, created_at FROM notifications WHERE recipient = $1`
	if unreadOnly {
		query += ` AND read = FALSE`
	}
	query += ` ORDER BY created_at DESC LIMIT $2`

	var notifications []models.Notification
	if err := r.db.SelectContext(ctx, &notifications, query, recipient, limit); err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return notifications, nil
}

// MarkRead flags one notification as consumed.
func (r *NotificationRepository) MarkRead(ctx context.Context, recipient, id string) (int64, error) {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET read = TRUE WHERE id = $1 AND recipient = $2`, id, recipient)
	if err != nil {
		return 0, fmt.Errorf("mark notification read: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("mark read rows affected: %w", err)
	}
	return affected, nil
}

// AdminRecipients lists admin usernames for broadcast kinds.
func (r *NotificationRepository) AdminRecipients(ctx context.Context) ([]string, error) {
	var usernames []string
	if err := r.db.SelectContext(ctx, &usernames, `SELECT username FROM users WHERE kind = 'admin' ORDER BY username`); err != nil {
		return nil, fmt.Errorf("list admin recipients: %w", err)
	}
	return usernames, nil
}
