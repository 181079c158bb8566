// Package common defines shared constants and sentinel errors used across
// the server layers. Callers should use errors.Is / errors.As to match them.
package common

import (
	"errors"
	"fmt"
)

var (
	// Repository-level errors.
	ErrorNotFound      = errors.New("not found")
	ErrUniqueViolation = errors.New("unique constraint violation")

	// Service-level errors (generic/internal flow control).
	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Token errors (invalid or malformed token, wrong purpose).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")

	// Auth workflow errors.
	ErrConflict         = errors.New("already exists")
	ErrAuthentication   = errors.New("invalid username or password")
	ErrUnconfirmedEmail = errors.New("email is not confirmed")
	ErrVerification     = errors.New("verification error")
	ErrValidation       = errors.New("validation error")
)

// ConflictError reports that a unique field (email, username, phone...)
// already belongs to another record.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s already exists", e.Field)
}

// Is makes errors.Is(err, ErrConflict) hold for any ConflictError.
func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NewConflictError builds a ConflictError for field.
func NewConflictError(field string) error {
	return &ConflictError{Field: field}
}

// ValidationError describes a rejected input field.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError builds a ValidationError.
func NewValidationError(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}

// UniqueViolationError is returned by repositories when the database rejects
// a row because of a unique constraint. Field names the logical column.
type UniqueViolationError struct {
	Field      string
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique constraint violation on %s (%s)", e.Field, e.Constraint)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}
