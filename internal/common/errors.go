// Package common defines shared constants and sentinel errors used across
// equipkeeper layers. Callers should use errors.Is to match these values.
package common

import (
	"errors"
	"fmt"
)

var (
	// ErrorNotFound is returned when an entity does not exist or is not
	// reachable from the acting principal.
	ErrorNotFound = errors.New("not found")

	// ErrorForbidden is the credential error: the entity is visible but the
	// principal may not mutate it.
	ErrorForbidden = errors.New("forbidden")

	// ErrorValidation marks caller-supplied input that failed checks.
	ErrorValidation = errors.New("validation error")

	// ErrInvariantViolation is fatal: stored data breaks a referential or
	// ownership invariant. Never retried silently.
	ErrInvariantViolation = errors.New("invariant violation")

	ErrorInternal     = errors.New("internal error")
	ErrorUnauthorized = errors.New("unauthorized")

	// Auth errors (invalid, malformed or expired token).
	ErrInvalidToken = errors.New("invalid token")
	ErrTokenExpired = errors.New("token expired")
)

// InvariantError carries the offending entity for investigation.
type InvariantError struct {
	Entity string
	ID     string
	Reason string
}

func (e *InvariantError) Error() string {
	return fmt.Sprintf("%s: %s %s: %s", ErrInvariantViolation, e.Entity, e.ID, e.Reason)
}

func (e *InvariantError) Unwrap() error {
	return ErrInvariantViolation
}

// NewInvariantError builds an InvariantError for entity/id.
func NewInvariantError(entity, id, reason string) error {
	return &InvariantError{Entity: entity, ID: id, Reason: reason}
}

// Validationf wraps a formatted message with ErrorValidation.
func Validationf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrorValidation, fmt.Sprintf(format, args...))
}
