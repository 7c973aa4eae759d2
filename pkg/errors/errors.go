package errors

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/lib/pq"
)

// Error represents a typed domain error with HTTP awareness.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"-"`
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
	ErrInvalidCredentials  = New("INVALID_CREDENTIALS", http.StatusBadRequest, "invalid email or password")
	ErrNotFound            = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden           = New("FORBIDDEN", http.StatusForbidden, "access denied")
	ErrUnauthorized        = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrValidation          = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrAlreadyExists       = New("ALREADY_EXISTS", http.StatusBadRequest, "already exists")
	ErrNoActiveSchoolYear  = New("NO_ACTIVE_SCHOOL_YEAR", http.StatusBadRequest, "no active school year found")
	ErrInternal            = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrCacheMiss           = New("CACHE_MISS", http.StatusInternalServerError, "cache miss")
	ErrPreconditionFailed  = New("PRECONDITION_FAILED", http.StatusBadRequest, "precondition failed")
	ErrApplicationNumber   = New("APPLICATION_NUMBER_EXHAUSTED", http.StatusInternalServerError, "could not allocate a unique application number")
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

// IsUniqueViolation reports whether the error is a Postgres unique
// constraint violation (SQLSTATE 23505).
func IsUniqueViolation(err error) bool {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code == "23505"
	}
	return false
}
