package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/middleware"
	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type requestServiceMock struct {
	submitted  *models.Request
	submitErr  error
	resolveErr error
	cancelErr  error
	pending    []models.Request
}

func (m *requestServiceMock) Submit(_ context.Context, username string, payload dto.SubmitRequestPayload) (*models.Request, error) {
	if m.submitErr != nil {
		return nil, m.submitErr
	}
	m.submitted = &models.Request{ID: 1, Username: username, ShiftID: payload.ShiftID, Reason: payload.Reason, Status: models.RequestPending}
	return m.submitted, nil
}

func (m *requestServiceMock) Resolve(_ context.Context, id int64, payload dto.ResolveRequestPayload) (*models.Request, error) {
	if m.resolveErr != nil {
		return nil, m.resolveErr
	}
	status := models.RequestRejected
	if payload.Approve {
		status = models.RequestApproved
	}
	return &models.Request{ID: id, Status: status}, nil
}

func (m *requestServiceMock) Cancel(_ context.Context, id int64, username string) (*models.Request, error) {
	if m.cancelErr != nil {
		return nil, m.cancelErr
	}
	return &models.Request{ID: id, Username: username, Status: models.RequestCancelled}, nil
}

func (m *requestServiceMock) ListMine(_ context.Context, username string) ([]models.Request, error) {
	return []models.Request{{ID: 1, Username: username}}, nil
}

func (m *requestServiceMock) ListPending(_ context.Context) ([]models.Request, error) {
	return m.pending, nil
}

func testContext(t *testing.T, method, path string, body interface{}) (*gin.Context, *httptest.ResponseRecorder) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequest(method, path, reader)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func asStudent(c *gin.Context, username string) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: username, Kind: models.KindStudent})
}

func TestRequestHandlerSubmit(t *testing.T) {
	mock := &requestServiceMock{}
	h := NewRequestHandler(mock)

	c, w := testContext(t, http.MethodPost, "/requests", dto.SubmitRequestPayload{ShiftID: 7, Reason: "exam conflict"})
	asStudent(c, "amy")

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.NotNil(t, mock.submitted)
	assert.Equal(t, "amy", mock.submitted.Username)
}

func TestRequestHandlerSubmitInvalidBody(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})

	c, w := testContext(t, http.MethodPost, "/requests", nil)
	c.Request.Body = http.NoBody
	asStudent(c, "amy")

	h.Submit(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestRequestHandlerSubmitWithoutClaims(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})

	c, w := testContext(t, http.MethodPost, "/requests", dto.SubmitRequestPayload{ShiftID: 7, Reason: "exam conflict"})

	h.Submit(c)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestRequestHandlerCancelForbidden(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{cancelErr: appErrors.ErrForbidden})

	c, w := testContext(t, http.MethodDelete, "/requests/1", nil)
	asStudent(c, "bob")
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.Cancel(c)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestRequestHandlerResolveConflict(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{resolveErr: appErrors.ErrRequestNotOpen})

	c, w := testContext(t, http.MethodPost, "/requests/1/resolve", dto.ResolveRequestPayload{Approve: true})
	asStudent(c, "admin")
	c.Params = gin.Params{{Key: "id", Value: "1"}}

	h.Resolve(c)
	assert.Equal(t, http.StatusConflict, w.Code)
}

func TestRequestHandlerResolveBadID(t *testing.T) {
	h := NewRequestHandler(&requestServiceMock{})

	c, w := testContext(t, http.MethodPost, "/requests/abc/resolve", dto.ResolveRequestPayload{})
	c.Params = gin.Params{{Key: "id", Value: "abc"}}

	h.Resolve(c)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
