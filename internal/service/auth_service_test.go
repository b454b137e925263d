package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/pkg/config"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type mockUserRepo struct {
	db            *sqlx.DB
	users         map[string]*models.User
	registrations map[int64]*models.Registration
	nextReg       int64
	passwords     map[string]string
}

func (m *mockUserRepo) BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error) {
	return m.db.BeginTxx(ctx, opts)
}

func (m *mockUserRepo) FindByUsername(_ context.Context, username string) (*models.User, error) {
	user, ok := m.users[username]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *user
	return &copied, nil
}

func (m *mockUserRepo) Create(_ context.Context, _ sqlx.ExtContext, user *models.User) error {
	m.users[user.Username] = user
	return nil
}

func (m *mockUserRepo) UpdatePassword(_ context.Context, username, passwordHash string) error {
	if m.passwords == nil {
		m.passwords = map[string]string{}
	}
	m.passwords[username] = passwordHash
	m.users[username].PasswordHash = passwordHash
	return nil
}

func (m *mockUserRepo) CreateRegistration(_ context.Context, reg *models.Registration) error {
	m.nextReg++
	reg.ID = m.nextReg
	if m.registrations == nil {
		m.registrations = map[int64]*models.Registration{}
	}
	m.registrations[reg.ID] = reg
	return nil
}

func (m *mockUserRepo) FindRegistration(_ context.Context, id int64) (*models.Registration, error) {
	reg, ok := m.registrations[id]
	if !ok {
		return nil, sql.ErrNoRows
	}
	copied := *reg
	return &copied, nil
}

func (m *mockUserRepo) ResolveRegistration(_ context.Context, _ sqlx.ExtContext, id int64, approved bool) error {
	reg, ok := m.registrations[id]
	if !ok {
		return sql.ErrNoRows
	}
	reg.Approved = &approved
	return nil
}

func (m *mockUserRepo) HasRegistration(_ context.Context, username string) (bool, error) {
	for _, reg := range m.registrations {
		if reg.Username == username && reg.Approved == nil {
			return true, nil
		}
	}
	return false, nil
}

type mockStudentWriter struct {
	created []models.Student
}

func (m *mockStudentWriter) Create(_ context.Context, _ sqlx.ExtContext, student *models.Student) error {
	m.created = append(m.created, *student)
	return nil
}

type mockOnboarder struct {
	created []models.HelpDeskAssistant
}

func (m *mockOnboarder) CreateHelpDesk(_ context.Context, _ sqlx.ExtContext, assistant *models.HelpDeskAssistant) error {
	m.created = append(m.created, *assistant)
	return nil
}

type authFixture struct {
	svc       *AuthService
	users     *mockUserRepo
	students  *mockStudentWriter
	onboarder *mockOnboarder
	sink      *sinkRepo
	now       time.Time
}

func newAuthFixture(t *testing.T) *authFixture {
	t.Helper()
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, clock.Zone(clock.DefaultOffsetHours))

	db, mock := newTxDB(t)
	mock.MatchExpectationsInOrder(false)
	for i := 0; i < 4; i++ {
		mock.ExpectBegin()
		mock.ExpectCommit()
		mock.ExpectRollback()
	}

	hash, err := bcrypt.GenerateFromPassword([]byte("correct horse"), bcrypt.MinCost)
	require.NoError(t, err)
	users := &mockUserRepo{
		db: db,
		users: map[string]*models.User{
			"amy": {Username: "amy", PasswordHash: string(hash), Kind: models.KindStudent},
		},
		registrations: map[int64]*models.Registration{},
	}
	students := &mockStudentWriter{}
	onboarder := &mockOnboarder{}
	sink := &sinkRepo{admins: []string{"admin"}}

	cfg := config.JWTConfig{Secret: "test-secret", Issuer: "roster-api", Expiration: time.Hour}
	svc := NewAuthService(users, students, onboarder, newSink(sink, now), clock.Fixed{At: now}, cfg, nil, nil)
	return &authFixture{svc: svc, users: users, students: students, onboarder: onboarder, sink: sink, now: now}
}

func TestLoginIssuesVerifiableToken(t *testing.T) {
	f := newAuthFixture(t)

	resp, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "amy", Password: "correct horse"})

	require.NoError(t, err)
	assert.Equal(t, models.KindStudent, resp.Role)
	assert.Equal(t, int64(3600), resp.ExpiresIn)

	claims, err := f.svc.ValidateToken(resp.Token)
	require.NoError(t, err)
	assert.Equal(t, "amy", claims.Username)
	assert.Equal(t, models.KindStudent, claims.Kind)
}

func TestLoginRejectsWrongPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "amy", Password: "wrong"})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestLoginUnknownUserLooksLikeBadPassword(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "whatever"})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.ValidateToken("not.a.token")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrUnauthorized))
}

func TestRegisterFilesPendingSignup(t *testing.T) {
	f := newAuthFixture(t)

	reg, err := f.svc.Register(context.Background(), models.RegistrationRequest{
		Username: "newbie", Password: "hunter2hunter2", Name: "New B.", Degree: models.DegreeBSc,
	})

	require.NoError(t, err)
	assert.Nil(t, reg.Approved)
	assert.NotEqual(t, "hunter2hunter2", reg.PasswordHash)
	require.Len(t, f.sink.byKind(models.NotifyUpdate), 1)
	assert.Equal(t, "admin", f.sink.byKind(models.NotifyUpdate)[0].Recipient)
}

func TestRegisterRejectsTakenUsername(t *testing.T) {
	f := newAuthFixture(t)

	_, err := f.svc.Register(context.Background(), models.RegistrationRequest{
		Username: "amy", Password: "hunter2hunter2", Name: "Impostor", Degree: models.DegreeBSc,
	})

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestRegisterRejectsDuplicateSignup(t *testing.T) {
	f := newAuthFixture(t)
	req := models.RegistrationRequest{Username: "newbie", Password: "hunter2hunter2", Name: "New B.", Degree: models.DegreeBSc}

	_, err := f.svc.Register(context.Background(), req)
	require.NoError(t, err)

	_, err = f.svc.Register(context.Background(), req)
	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestApproveRegistrationOnboardsAssistant(t *testing.T) {
	f := newAuthFixture(t)
	reg, err := f.svc.Register(context.Background(), models.RegistrationRequest{
		Username: "newbie", Password: "hunter2hunter2", Name: "New B.", Degree: models.DegreeMSc,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveRegistration(context.Background(), reg.ID, true))

	user, ok := f.users.users["newbie"]
	require.True(t, ok)
	assert.Equal(t, models.KindStudent, user.Kind)

	require.Len(t, f.students.created, 1)
	assert.Equal(t, "New B.", f.students.created[0].Name)

	require.Len(t, f.onboarder.created, 1)
	assistant := f.onboarder.created[0]
	assert.True(t, assistant.Active)
	assert.Equal(t, float64(35), assistant.HourlyRate)
	assert.Equal(t, models.DefaultHoursMinimum, assistant.HoursMinimum)

	approvals := f.sink.byKind(models.NotifyApproval)
	require.Len(t, approvals, 1)
	assert.Equal(t, "newbie", approvals[0].Recipient)
}

func TestRejectRegistrationCreatesNothing(t *testing.T) {
	f := newAuthFixture(t)
	reg, err := f.svc.Register(context.Background(), models.RegistrationRequest{
		Username: "newbie", Password: "hunter2hunter2", Name: "New B.", Degree: models.DegreeBSc,
	})
	require.NoError(t, err)

	require.NoError(t, f.svc.ApproveRegistration(context.Background(), reg.ID, false))

	_, ok := f.users.users["newbie"]
	assert.False(t, ok)
	assert.Empty(t, f.onboarder.created)
	assert.Len(t, f.sink.byKind(models.NotifyRejection), 1)
}

func TestApproveRegistrationIsTerminal(t *testing.T) {
	f := newAuthFixture(t)
	reg, err := f.svc.Register(context.Background(), models.RegistrationRequest{
		Username: "newbie", Password: "hunter2hunter2", Name: "New B.", Degree: models.DegreeBSc,
	})
	require.NoError(t, err)
	require.NoError(t, f.svc.ApproveRegistration(context.Background(), reg.ID, false))

	err = f.svc.ApproveRegistration(context.Background(), reg.ID, true)

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrConflict))
}

func TestChangePassword(t *testing.T) {
	f := newAuthFixture(t)

	require.NoError(t, f.svc.ChangePassword(context.Background(), "amy", "correct horse", "battery staple"))

	err := bcrypt.CompareHashAndPassword([]byte(f.users.users["amy"].PasswordHash), []byte("battery staple"))
	assert.NoError(t, err)
	assert.Len(t, f.sink.byKind(models.NotifyPasswordReset), 1)
}

func TestChangePasswordChecksCurrent(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ChangePassword(context.Background(), "amy", "wrong", "battery staple")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrInvalidCredentials))
}

func TestChangePasswordRejectsShort(t *testing.T) {
	f := newAuthFixture(t)

	err := f.svc.ChangePassword(context.Background(), "amy", "correct horse", "short")

	require.Error(t, err)
	assert.True(t, appErrors.Is(err, appErrors.ErrValidation))
}
