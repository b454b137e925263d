package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims is the access-token payload.
type JWTClaims struct {
	Username string   `json:"username"`
	Kind     UserKind `json:"kind"`
	jwt.RegisteredClaims
}

// LoginRequest carries credentials for token exchange.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse returns the issued token and the caller's role.
type LoginResponse struct {
	Token     string    `json:"token"`
	Role      UserKind  `json:"role"`
	ExpiresIn int64     `json:"expires_in"`
	IssuedAt  time.Time `json:"issued_at"`
}

// RegistrationRequest is a volunteer sign-up submission. Approval by an
// admin turns it into a Student + HelpDeskAssistant pair.
type RegistrationRequest struct {
	Username string `json:"username" validate:"required,min=3,max=64"`
	Password string `json:"password" validate:"required,min=8"`
	Name     string `json:"name" validate:"required"`
	Degree   Degree `json:"degree" validate:"required,oneof=BSc MSc"`
}

// Registration is a pending sign-up awaiting admin review.
type Registration struct {
	ID           int64     `db:"id" json:"id"`
	Username     string    `db:"username" json:"username"`
	PasswordHash string    `db:"password_hash" json:"-"`
	Name         string    `db:"name" json:"name"`
	Degree       Degree    `db:"degree" json:"degree"`
	Approved     *bool     `db:"approved" json:"approved,omitempty"`
	CreatedAt    time.Time `db:"created_at" json:"created_at"`
}
