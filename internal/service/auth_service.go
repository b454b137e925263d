package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/campusworks/roster-api/internal/clock"
	"github.com/campusworks/roster-api/internal/models"
	"github.com/campusworks/roster-api/pkg/config"
	appErrors "github.com/campusworks/roster-api/pkg/errors"
)

type authUserRepository interface {
	BeginTxx(ctx context.Context, opts *sql.TxOptions) (*sqlx.Tx, error)
	FindByUsername(ctx context.Context, username string) (*models.User, error)
	Create(ctx context.Context, exec sqlx.ExtContext, user *models.User) error
	UpdatePassword(ctx context.Context, username, passwordHash string) error
	CreateRegistration(ctx context.Context, reg *models.Registration) error
	FindRegistration(ctx context.Context, id int64) (*models.Registration, error)
	ResolveRegistration(ctx context.Context, exec sqlx.ExtContext, id int64, approved bool) error
	HasRegistration(ctx context.Context, username string) (bool, error)
}

type studentWriter interface {
	Create(ctx context.Context, exec sqlx.ExtContext, student *models.Student) error
}

type assistantOnboarder interface {
	CreateHelpDesk(ctx context.Context, exec sqlx.ExtContext, assistant *models.HelpDeskAssistant) error
}

// AuthService covers login, token verification, registration and the
// admin approval that turns a submission into a staffed assistant.
type AuthService struct {
	userRepo      authUserRepository
	studentRepo   studentWriter
	assistantRepo assistantOnboarder
	notifications *NotificationService
	clock         clock.Clock
	cfg           config.JWTConfig
	validator     *validator.Validate
	logger        *zap.Logger
}

// NewAuthService constructs the auth service.
func NewAuthService(
	userRepo authUserRepository,
	studentRepo studentWriter,
	assistantRepo assistantOnboarder,
	notifications *NotificationService,
	clk clock.Clock,
	cfg config.JWTConfig,
	validate *validator.Validate,
	logger *zap.Logger,
) *AuthService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if clk == nil {
		clk = clock.System(clock.DefaultOffsetHours)
	}
	if cfg.Expiration <= 0 {
		cfg.Expiration = 24 * time.Hour
	}
	return &AuthService{
		userRepo:      userRepo,
		studentRepo:   studentRepo,
		assistantRepo: assistantRepo,
		notifications: notifications,
		clock:         clk,
		cfg:           cfg,
		validator:     validate,
		logger:        logger,
	}
}

// Login authenticates a user and issues a bearer token.
func (s *AuthService) Login(ctx context.Context, req models.LoginRequest) (*models.LoginResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid login payload")
	}

	user, err := s.userRepo.FindByUsername(ctx, req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, appErrors.Clone(appErrors.ErrInvalidCredentials, "")
	}

	issuedAt := clock.ToUTC(s.clock.Now())
	token, err := s.issueToken(user, issuedAt)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to sign token")
	}

	return &models.LoginResponse{
		Token:     token,
		Role:      user.Kind,
		ExpiresIn: int64(s.cfg.Expiration.Seconds()),
		IssuedAt:  issuedAt,
	}, nil
}

// ValidateToken parses and verifies a bearer token.
func (s *AuthService) ValidateToken(tokenString string) (*models.JWTClaims, error) {
	claims := &models.JWTClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return []byte(s.cfg.Secret), nil
	})
	if err != nil || !token.Valid {
		return nil, appErrors.Clone(appErrors.ErrUnauthorized, "invalid or expired token")
	}
	return claims, nil
}

// Register files a volunteer sign-up for admin review.
func (s *AuthService) Register(ctx context.Context, req models.RegistrationRequest) (*models.Registration, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid registration payload")
	}

	if _, err := s.userRepo.FindByUsername(ctx, req.Username); err == nil {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("username %q is already taken", req.Username))
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check username")
	}
	exists, err := s.userRepo.HasRegistration(ctx, req.Username)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check registrations")
	}
	if exists {
		return nil, appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("a registration for %q is already on file", req.Username))
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}

	registration := &models.Registration{
		Username:     req.Username,
		PasswordHash: string(hash),
		Name:         req.Name,
		Degree:       req.Degree,
		CreatedAt:    clock.ToUTC(s.clock.Now()),
	}
	if err := s.userRepo.CreateRegistration(ctx, registration); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to store registration")
	}

	s.notifications.EmitToAdmins(ctx, models.NotifyUpdate,
		fmt.Sprintf("%s (%s) applied to join the help desk.", req.Name, req.Username))
	return registration, nil
}

// ApproveRegistration resolves a pending sign-up. Approval creates the
// user account, the student record and an active help-desk assistant
// with the degree-based rate in one transaction.
func (s *AuthService) ApproveRegistration(ctx context.Context, id int64, approve bool) error {
	registration, err := s.userRepo.FindRegistration(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, fmt.Sprintf("registration %d not found", id))
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load registration")
	}
	if registration.Approved != nil {
		return appErrors.Clone(appErrors.ErrConflict, fmt.Sprintf("registration %d is already resolved", id))
	}

	tx, err := s.userRepo.BeginTxx(ctx, nil)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to begin transaction")
	}
	defer func() { _ = tx.Rollback() }()

	if err := s.userRepo.ResolveRegistration(ctx, tx, id, approve); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to resolve registration")
	}

	if approve {
		user := &models.User{
			Username:     registration.Username,
			PasswordHash: registration.PasswordHash,
			Kind:         models.KindStudent,
		}
		if err := s.userRepo.Create(ctx, tx, user); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
		}
		student := &models.Student{
			Username: registration.Username,
			Name:     registration.Name,
			Degree:   registration.Degree,
		}
		if err := s.studentRepo.Create(ctx, tx, student); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create student")
		}
		assistant := &models.HelpDeskAssistant{
			Username:     registration.Username,
			HourlyRate:   models.DefaultHourlyRate(registration.Degree),
			Active:       true,
			HoursMinimum: models.DefaultHoursMinimum,
		}
		if err := s.assistantRepo.CreateHelpDesk(ctx, tx, assistant); err != nil {
			return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create assistant")
		}
	}

	if err := tx.Commit(); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to commit approval")
	}

	if approve {
		s.notifications.Emit(ctx, registration.Username, models.NotifyApproval,
			"Your registration was approved. Welcome to the help desk!")
	} else {
		s.notifications.Emit(ctx, registration.Username, models.NotifyRejection,
			"Your registration was not approved.")
	}
	return nil
}

// ChangePassword rotates the caller's credential.
func (s *AuthService) ChangePassword(ctx context.Context, username, current, next string) error {
	if len(next) < 8 {
		return appErrors.Clone(appErrors.ErrValidation, "new password must be at least 8 characters")
	}

	user, err := s.userRepo.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "user not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to fetch user")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(current)); err != nil {
		return appErrors.Clone(appErrors.ErrInvalidCredentials, "current password is incorrect")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(next), bcrypt.DefaultCost)
	if err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to hash password")
	}
	if err := s.userRepo.UpdatePassword(ctx, username, string(hash)); err != nil {
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update password")
	}

	s.notifications.Emit(ctx, username, models.NotifyPasswordReset, "Your password was changed.")
	return nil
}

func (s *AuthService) issueToken(user *models.User, issuedAt time.Time) (string, error) {
	claims := models.JWTClaims{
		Username: user.Username,
		Kind:     user.Kind,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    s.cfg.Issuer,
			Subject:   user.Username,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(issuedAt.Add(s.cfg.Expiration)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString([]byte(s.cfg.Secret))
}
