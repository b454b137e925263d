package service

import (
	"context"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/models"
)

// newTxDB returns a sqlx handle backed by sqlmock for services that
// open transactions around mocked repository calls.
func newTxDB(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return sqlx.NewDb(db, "sqlmock"), mock
}

type sinkRepo struct {
	appended []models.Notification
	admins   []string
}

func (s *sinkRepo) Append(_ context.Context, notification *models.Notification) error {
	s.appended = append(s.appended, *notification)
	return nil
}

func (s *sinkRepo) ListForRecipient(_ context.Context, recipient string, unreadOnly bool, _ int) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range s.appended {
		if n.Recipient == recipient && (!unreadOnly || !n.Read) {
			out = append(out, n)
		}
	}
	return out, nil
}

func (s *sinkRepo) MarkRead(_ context.Context, recipient, id string) (int64, error) {
	for i := range s.appended {
		if s.appended[i].Recipient == recipient && s.appended[i].ID == id {
			s.appended[i].Read = true
			return 1, nil
		}
	}
	return 0, nil
}

func (s *sinkRepo) AdminRecipients(_ context.Context) ([]string, error) {
	return s.admins, nil
}

func (s *sinkRepo) byKind(kind models.NotificationKind) []models.Notification {
	var out []models.Notification
	for _, n := range s.appended {
		if n.Kind == kind {
			out = append(out, n)
		}
	}
	return out
}

func newSink(sink *sinkRepo, at time.Time) *NotificationService {
	return NewNotificationService(sink, clock.Fixed{At: at}, nil)
}
