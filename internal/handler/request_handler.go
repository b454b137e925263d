package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
	"github.com/campusworks/roster-api/pkg/response"
)

type requestService interface {
	Submit(ctx context.Context, username string, payload dto.SubmitRequestPayload) (*models.Request, error)
	Resolve(ctx context.Context, id int64, payload dto.ResolveRequestPayload) (*models.Request, error)
	Cancel(ctx context.Context, id int64, username string) (*models.Request, error)
	ListMine(ctx context.Context, username string) ([]models.Request, error)
	ListPending(ctx context.Context) ([]models.Request, error)
}

// RequestHandler exposes shift-change requests.
type RequestHandler struct {
	service requestService
}

// NewRequestHandler creates a new handler.
func NewRequestHandler(svc requestService) *RequestHandler {
	return &RequestHandler{service: svc}
}

// Submit godoc
// @Summary Submit a shift-change request
// @Tags Requests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitRequestPayload true "Request"
// @Success 201 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /requests [post]
func (h *RequestHandler) Submit(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	var payload dto.SubmitRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request payload"))
		return
	}

	request, err := h.service.Submit(c.Request.Context(), claims.Username, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.Created(c, "request submitted", request)
}

// ListMine godoc
// @Summary List the caller's requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests [get]
func (h *RequestHandler) ListMine(c *gin.Context) {
	claims := claimsFromContext(c)
	if claims == nil {
		response.Error(c, appErrors.ErrUnauthorized)
		return
	}

	requests, err := h.service.ListMine(c.Request.Context(), claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", requests)
}

// ListPending godoc
// @Summary List all pending requests
// @Tags Requests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /requests/pending [get]
func (h *RequestHandler) ListPending(c *gin.Context) {
	requests, err := h.service.ListPending(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "", requests)
}

// Resolve godoc
// @Summary Approve or reject a pending request
// @Tags Requests
// @Accept json
// @Produce json
// @Param id path int true "Request id"
// @Param payload body dto.ResolveRequestPayload true "Verdict"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /requests/{id}/resolve [post]
func (h *RequestHandler) Resolve(c *gin.Context) {
	id, err := pathID(c, "id")
	if err != nil {
		response.Error(c, err)
		return
	}

	var payload dto.ResolveRequestPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid verdict payload"))
		return
	}

	request, err := h.service.Resolve(c.Request.Context(), id, payload)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "request resolved", request)
}

// Cancel godoc
// @Summary Cancel one of the caller's pending requests
// @Tags Requests
// @Produce json
// @Param id path int true "Request id"
// @Success 200 {object} response.Envelope
// @Failure 403 {object} response.Envelope
// @Router /requests/{id} [delete]
func (h *RequestHandler) Cancel(c *gin.Context) {
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

	request, err := h.service.Cancel(c.Request.Context(), id, claims.Username)
	if err != nil {
		response.Error(c, err)
		return
	}

	response.OK(c, "request cancelled", request)
}
