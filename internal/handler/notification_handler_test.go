package handler

import (
	"context"
	"net/http"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type notificationFeedMock struct {
	listRecipient string
	listLimit     int
	unreadOnly    bool
	markedID      string
	markErr       error
}

func (m *notificationFeedMock) List(_ context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error) {
	m.listRecipient = recipient
	m.unreadOnly = unreadOnly
	m.listLimit = limit
	return []models.Notification{{ID: "n-1", Recipient: recipient}}, nil
}

func (m *notificationFeedMock) MarkRead(_ context.Context, _, id string) error {
	if m.markErr != nil {
		return m.markErr
	}
	m.markedID = id
	return nil
}

func TestNotificationHandlerListDefaults(t *testing.T) {
	mock := &notificationFeedMock{}
	h := NewNotificationHandler(mock)

	c, w := testContext(t, http.MethodGet, "/notifications", nil)
	asStudent(c, "amy")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "amy", mock.listRecipient)
	assert.Equal(t, 50, mock.listLimit)
	assert.False(t, mock.unreadOnly)
}

func TestNotificationHandlerListUnreadWithLimit(t *testing.T) {
	mock := &notificationFeedMock{}
	h := NewNotificationHandler(mock)

	c, w := testContext(t, http.MethodGet, "/notifications?unread=true&limit=5", nil)
	asStudent(c, "amy")

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, mock.unreadOnly)
	assert.Equal(t, 5, mock.listLimit)
}

func TestNotificationHandlerListWithoutClaims(t *testing.T) {
	h := NewNotificationHandler(&notificationFeedMock{})

	c, w := testContext(t, http.MethodGet, "/notifications", nil)

	h.List(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	mock := &notificationFeedMock{}
	h := NewNotificationHandler(mock)

	c, w := testContext(t, http.MethodPost, "/notifications/n-1/read", nil)
	asStudent(c, "amy")
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}

	h.MarkRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "n-1", mock.markedID)
}

func TestNotificationHandlerMarkReadNotFound(t *testing.T) {
	h := NewNotificationHandler(&notificationFeedMock{markErr: appErrors.ErrNotFound})

	c, w := testContext(t, http.MethodPost, "/notifications/missing/read", nil)
	asStudent(c, "amy")
	c.Params = gin.Params{{Key: "id", Value: "missing"}}

	h.MarkRead(c)
	assert.Equal(t, http.StatusNotFound, w.Code)
}
