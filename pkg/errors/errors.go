package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// Predefined errors for common scenarios.
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid username or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")

	// Domain-specific preconditions surface as 422 per the API contract.
	ErrNotAvailable    = New("NOT_AVAILABLE", http.StatusUnprocessableEntity, "staff availability does not cover the shift")
	ErrTooEarly        = New("CLOCK_IN_TOO_EARLY", http.StatusUnprocessableEntity, "shift has not opened for clock-in yet")
	ErrShiftEnded      = New("SHIFT_ENDED", http.StatusUnprocessableEntity, "shift has already ended")
	ErrActiveEntry     = New("ACTIVE_ENTRY_EXISTS", http.StatusConflict, "an active time entry already exists")
	ErrNoActiveEntry   = New("NO_ACTIVE_ENTRY", http.StatusNotFound, "no active time entry")
	ErrDuplicateRow    = New("DUPLICATE", http.StatusConflict, "duplicate record")
	ErrRequestNotOpen  = New("REQUEST_NOT_PENDING", http.StatusConflict, "request is no longer pending")
	ErrUnknownDay      = New("UNKNOWN_DAY", http.StatusUnprocessableEntity, "unknown day label")
	ErrUnknownTimeSlot = New("UNKNOWN_TIME_SLOT", http.StatusUnprocessableEntity, "unparseable time slot")
)

// FromError normalises any error into an *Error.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return Wrap(err, ErrInternal.Code, ErrInternal.Status, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}

// Is reports whether err carries the same code as target.
func Is(err error, target *Error) bool {
	if err == nil || target == nil {
		return false
	}
	var e *Error
	if !errors.As(err, &e) {
		return false
	}
	return e.Code == target.Code
}
