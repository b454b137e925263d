package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/service"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

// EditorHandler exposes the manual schedule editing operations.
type EditorHandler struct {
	service *service.EditorService
}

// NewEditorHandler creates a new handler.
func NewEditorHandler(svc *service.EditorService) *EditorHandler {
	return &EditorHandler{service: svc}
}

// Save godoc
// @Summary Replace assignments for a date range
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.SaveAssignmentsRequest true "Assignment rows"
// @Success 200 {object} response.Envelope
// @Failure 422 {object} response.Envelope
// @Router /schedule/save [post]
func (h *EditorHandler) Save(c *gin.Context) {
	var req dto.SaveAssignmentsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid assignments payload"))
		return
	}

	written, err := h.service.SaveAssignments(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "assignments saved", gin.H{"allocations_written": written})
}

// AddStaff godoc
// @Summary Allocate one assistant to a shift
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.AddAllocationRequest true "Allocation"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /schedule/add-staff [post]
func (h *EditorHandler) AddStaff(c *gin.Context) {
	var req dto.AddAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}

	if err := h.service.AddAllocation(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "staff allocated", nil)
}

// RemoveStaff godoc
// @Summary Remove one assistant from a shift
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.RemoveAllocationRequest true "Allocation reference"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/remove-staff [post]
func (h *EditorHandler) RemoveStaff(c *gin.Context) {
	var req dto.RemoveAllocationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid allocation payload"))
		return
	}

	if err := h.service.RemoveAllocation(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "staff removed", nil)
}

// Publish godoc
// @Summary Publish a schedule and notify allocated staff
// @Tags Schedule
// @Produce json
// @Param id path int true "Schedule id"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /schedule/{id}/publish [post]
func (h *EditorHandler) Publish(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	schedule, err := h.service.Publish(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "schedule published", schedule)
}

// Clear godoc
// @Summary Remove all shifts and allocations in a date range
// @Tags Schedule
// @Accept json
// @Produce json
// @Param payload body dto.ClearScheduleRequest true "Range"
// @Success 200 {object} response.Envelope
// @Router /schedule/clear [post]
func (h *EditorHandler) Clear(c *gin.Context) {
	var req dto.ClearScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid clear payload"))
		return
	}

	if err := h.service.Clear(c.Request.Context(), req); err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "schedule cleared", nil)
}
