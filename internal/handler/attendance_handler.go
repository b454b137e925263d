package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/service"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

// AttendanceHandler exposes clock-in/out and attendance reporting.
type AttendanceHandler struct {
	service *service.AttendanceService
}

// NewAttendanceHandler creates a new handler.
func NewAttendanceHandler(svc *service.AttendanceService) *AttendanceHandler {
	return &AttendanceHandler{service: svc}
}

// ClockIn godoc
// @Summary Start a time entry for the caller
// @Tags TimeTracking
// @Accept json
// @Produce json
// @Success 201 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /time-tracking/clock-in [post]
func (h *AttendanceHandler) ClockIn(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var req dto.ClockInRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clock-in payload"))
			return
		}
	}

	res, err := h.service.ClockIn(c.Request.Context(), claims.Username, req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "clocked in", res)
}

// ClockOut godoc
// @Summary Close the caller's active time entry
// @Tags TimeTracking
// @Produce json
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /time-tracking/clock-out [post]
func (h *AttendanceHandler) ClockOut(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.ClockOut(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "clocked out", res)
}

// Today godoc
// @Summary Caller's shift status for today
// @Tags TimeTracking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/today [get]
func (h *AttendanceHandler) Today(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	res, err := h.service.TodayShift(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", res)
}

// Stats godoc
// @Summary Caller's attendance statistics
// @Tags TimeTracking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/stats [get]
func (h *AttendanceHandler) Stats(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	stats, err := h.service.Stats(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", stats)
}

// History godoc
// @Summary Caller's recent completed shifts
// @Tags TimeTracking
// @Produce json
// @Param limit query int false "Row limit"
// @Success 200 {object} response.Envelope
// @Router /time-tracking/history [get]
func (h *AttendanceHandler) History(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	history, err := h.service.ShiftHistory(c.Request.Context(), claims.Username, limit)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", history)
}

// Distribution godoc
// @Summary Caller's hours split per weekday
// @Tags TimeTracking
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /time-tracking/distribution [get]
func (h *AttendanceHandler) Distribution(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	distribution, err := h.service.TimeDistribution(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", distribution)
}

// MarkMissed godoc
// @Summary Flag an assistant's shift as missed
// @Tags TimeTracking
// @Accept json
// @Produce json
// @Param payload body dto.MarkMissedRequest true "Target shift"
// @Success 200 {object} response.Envelope
// @Router /time-tracking/mark-missed [post]
func (h *AttendanceHandler) MarkMissed(c *gin.Context) {
	var req dto.MarkMissedRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid mark-missed payload"))
		return
	}

	if err := h.service.MarkMissed(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "shift marked missed", nil)
}
