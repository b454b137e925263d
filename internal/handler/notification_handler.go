package handler

import (
	"context"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

type notificationFeed interface {
	List(ctx context.Context, recipient string, unreadOnly bool, limit int) ([]models.Notification, error)
	MarkRead(ctx context.Context, recipient, id string) error
}

// NotificationHandler serves the caller's notification feed.
type NotificationHandler struct {
	service notificationFeed
}

// NewNotificationHandler creates a new handler.
func NewNotificationHandler(svc notificationFeed) *NotificationHandler {
	return &NotificationHandler{service: svc}
}

// List godoc
// @Summary List the caller's notifications
// @Tags Notifications
// @Produce json
// @Param unread query bool false "Unread only"
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /notifications [get]
func (h *NotificationHandler) List(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	unreadOnly := c.Query("unread") == "true"
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 200 {
		limit = 50
	}

	notifications, err := h.service.List(c.Request.Context(), claims.Username, unreadOnly, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", notifications)
}

// MarkRead godoc
// @Summary Mark one notification as read
// @Tags Notifications
// @Produce json
// @Param id path string true "Notification id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /notifications/{id}/read [post]
func (h *NotificationHandler) MarkRead(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	if err := h.service.MarkRead(c.Request.Context(), claims.Username, c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "notification marked read", nil)
}
