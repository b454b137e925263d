package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/dto"
	"github.com/campusworks/roster-api/internal/models"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type mockRequestRepo struct {
	requests map[int64]*models.Request
	nextID   int64

	// staleReads makes FindByID report PENDING even after a transition,
	// simulating a concurrent resolution between load and update.
	staleReads bool
}

func (m *mockRequestRepo) Create(_ context.Context, req *models.Request) error {
	m.nextID++
	req.ID = m.nextID
	if m.requests == nil {
		m.requests = map[int64]*models.Request{}
	}
	copied := *req
	m.requests[req.ID] = &copied
	return nil
}

func (m *mockRequestRepo) FindByID(_ context.Context, id int64) (*models.Request, error) {
	req, ok := m.requests[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *req
	if m.staleReads {
		copied.Status = models.RequestPending
	}
	return &copied, nil
}

func (m *mockRequestRepo) Transition(_ context.Context, id int64, to models.RequestStatus, resolvedAt time.Time) error {
	req, ok := m.requests[id]
	if !ok || req.Status != models.RequestPending {
		return sql.ErrNoRows
	}
	req.Status = to
	req.ResolvedAt = &resolvedAt
	return nil
}

func (m *mockRequestRepo) ListByStaff(_ context.Context, username string) ([]models.Request, error) {
	var out []models.Request
	for _, req := range m.requests {
		if req.Username == username {
			out = append(out, *req)
		}
	}
	return out, nil
}

func (m *mockRequestRepo) ListPending(_ context.Context) ([]models.Request, error) {
	var out []models.Request
	for _, req := range m.requests {
		if req.Status == models.RequestPending {
			out = append(out, *req)
		}
	}
	return out, nil
}

type mockRequestAllocations struct {
	allocated map[string]bool
}

func (m *mockRequestAllocations) Exists(_ context.Context, shiftID int64, username string) (bool, error) {
	return m.allocated[allocKey(shiftID, username)], nil
}

type requestFixture struct {
	svc  *RequestService
	repo *mockRequestRepo
	sink *sinkRepo
}

func newRequestFixture() *requestFixture {
	at := time.Date(2026, time.March, 2, 12, 0, 0, 0, clock.Zone(clock.DefaultOffsetHours))
	repo := &mockRequestRepo{requests: map[int64]*models.Request{}}
	allocs := &mockRequestAllocations{allocated: map[string]bool{allocKey(7, "amy"): true}}
	sink := &sinkRepo{admins: []string{"admin"}}

	svc := NewRequestService(repo, allocs, newSink(sink, at), clock.Fixed{At: at}, nil, nil)
	return &requestFixture{svc: svc, repo: repo, sink: sink}
}

func (f *requestFixture) submit(t *testing.T) *models.Request {
	t.Helper()
	req, err := f.svc.Submit(context.Background(), "amy", dto.SubmitRequestPayload{
		ShiftID: 7, Reason: "doctor appointment",
	})
	require.NoError(t, err)
	return req
}

func TestSubmitRequest(t *testing.T) {
	f := newRequestFixture()

	req := f.submit(t)

	assert.Equal(t, models.RequestPending, req.Status)
	assert.Equal(t, "amy", req.Username)
	require.Len(t, f.sink.byKind(models.NotifyRequest), 1)
	assert.Equal(t, "admin", f.sink.byKind(models.NotifyRequest)[0].Recipient)
}

func TestSubmitRequiresAllocation(t *testing.T) {
	f := newRequestFixture()

	_, err := f.svc.Submit(context.Background(), "bob", dto.SubmitRequestPayload{
		ShiftID: 7, Reason: "doctor appointment",
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
	assert.Empty(t, f.sink.appended)
}

func TestResolveApproves(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	resolved, err := f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: true, Note: "covered by carl"})

	require.NoError(t, err)
	assert.Equal(t, models.RequestApproved, resolved.Status)
	require.NotNil(t, resolved.ResolvedAt)
	approvals := f.sink.byKind(models.NotifyApproval)
	require.Len(t, approvals, 1)
	assert.Equal(t, "amy", approvals[0].Recipient)
	assert.Contains(t, approvals[0].Message, "covered by carl")
}

func TestResolveRejects(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	resolved, err := f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: false})

	require.NoError(t, err)
	assert.Equal(t, models.RequestRejected, resolved.Status)
	require.Len(t, f.sink.byKind(models.NotifyRejection), 1)
}

func TestResolveIsTerminal(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	_, err := f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: true})
	require.NoError(t, err)

	_, err = f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: false})
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRequestNotOpen))
}

func TestResolveConcurrentTransition(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	// Another admin resolves between the load and the transition.
	f.repo.requests[req.ID].Status = models.RequestRejected
	f.repo.staleReads = true

	_, err := f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: true})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRequestNotOpen))
}

func TestResolveUnknownRequest(t *testing.T) {
	f := newRequestFixture()

	_, err := f.svc.Resolve(context.Background(), 99, dto.ResolveRequestPayload{Approve: true})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrNotFound))
}

func TestCancelOwnRequest(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	cancelled, err := f.svc.Cancel(context.Background(), req.ID, "amy")

	require.NoError(t, err)
	assert.Equal(t, models.RequestCancelled, cancelled.Status)
}

func TestCancelRejectsOtherUsers(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	_, err := f.svc.Cancel(context.Background(), req.ID, "bob")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrForbidden))
	assert.Equal(t, models.RequestPending, f.repo.requests[req.ID].Status)
}

func TestCancelResolvedRequest(t *testing.T) {
	f := newRequestFixture()
	req := f.submit(t)

	_, err := f.svc.Resolve(context.Background(), req.ID, dto.ResolveRequestPayload{Approve: true})
	require.NoError(t, err)

	_, err = f.svc.Cancel(context.Background(), req.ID, "amy")
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrRequestNotOpen))
}

func TestListPendingFiltersResolved(t *testing.T) {
	f := newRequestFixture()
	first := f.submit(t)
	second := f.submit(t)

	_, err := f.svc.Resolve(context.Background(), first.ID, dto.ResolveRequestPayload{Approve: true})
	require.NoError(t, err)

	pending, err := f.svc.ListPending(context.Background())
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, second.ID, pending[0].ID)

	mine, err := f.svc.ListMine(context.Background(), "amy")
	require.NoError(t, err)
	assert.Len(t, mine, 2)
}
