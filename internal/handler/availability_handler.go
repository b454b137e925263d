package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/service"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

// AvailabilityHandler serves availability lookups and the caller's
// self-service availability windows.
type AvailabilityHandler struct {
	service *service.AvailabilityService
}

// NewAvailabilityHandler creates a new handler.
func NewAvailabilityHandler(svc *service.AvailabilityService) *AvailabilityHandler {
	return &AvailabilityHandler{service: svc}
}

// Available godoc
// @Summary List assistants available for one slot
// @Tags Availability
// @Produce json
// @Param kind query string false "helpdesk or lab"
// @Param day query string true "Day label, e.g. monday"
// @Param time query string true "Slot label, e.g. 9:00"
// @Success 200 {object} response.Envelope
// @Router /staff/available [get]
func (h *AvailabilityHandler) Available(c *gin.Context) {
	kind, err := staffKindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	day := c.Query("day")
	slot := c.Query("time")
	if day == "" || slot == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "day and time query parameters are required"))
		return
	}

	staff, err := h.service.ListAvailable(c.Request.Context(), kind, day, slot)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", staff)
}

// Check godoc
// @Summary Check one assistant's availability for one slot
// @Tags Availability
// @Produce json
// @Param kind query string false "helpdesk or lab"
// @Param username query string true "Assistant username"
// @Param day query string true "Day label"
// @Param time query string true "Slot label"
// @Success 200 {object} response.Envelope
// @Router /staff/check-availability [get]
func (h *AvailabilityHandler) Check(c *gin.Context) {
	kind, err := staffKindQuery(c)
	if err != nil {
		response.Error(c, err)
		return
	}

	username := c.Query("username")
	day := c.Query("day")
	slot := c.Query("time")
	if username == "" || day == "" || slot == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "username, day and time query parameters are required"))
		return
	}

	check, err := h.service.IsAvailable(c.Request.Context(), kind, username, day, slot)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", check)
}

// CheckBatch godoc
// @Summary Check many availability queries in one call
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.BatchAvailabilityRequest true "Queries"
// @Success 200 {object} response.Envelope
// @Router /staff/check-availability/batch [post]
func (h *AvailabilityHandler) CheckBatch(c *gin.Context) {
	var req dto.BatchAvailabilityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid batch payload"))
		return
	}

	results, err := h.service.BatchAvailable(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", results)
}

// ListWindows godoc
// @Summary List the caller's availability windows
// @Tags Availability
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /staff/availability [get]
func (h *AvailabilityHandler) ListWindows(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	windows, err := h.service.ListWindows(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", windows)
}

// AddWindow godoc
// @Summary Add an availability window for the caller
// @Tags Availability
// @Accept json
// @Produce json
// @Param payload body dto.AvailabilityWindowRequest true "Window"
// @Success 201 {object} response.Envelope
// @Router /staff/availability [post]
func (h *AvailabilityHandler) AddWindow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.AvailabilityWindowRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid window payload"))
		return
	}

	window, err := h.service.AddWindow(c.Request.Context(), claims.Username, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "availability window added", window)
}

// RemoveWindow godoc
// @Summary Remove one of the caller's availability windows
// @Tags Availability
// @Produce json
// @Param id path int true "Window id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /staff/availability/{id} [delete]
func (h *AvailabilityHandler) RemoveWindow(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	if err := h.service.RemoveWindow(c.Request.Context(), claims.Username, id); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "availability window removed", nil)
}
