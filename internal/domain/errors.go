package domain

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors shared across the repositories, the enrichment
// pipeline, and the HTTP layer. Wrapped detail types below unwrap to
// these so callers can branch with errors.Is without caring which
// layer produced the error.
var (
	ErrNotFound           = errors.New("not found")
	ErrAlreadyExists      = errors.New("already exists")
	ErrInvalidInput       = errors.New("invalid input")
	ErrRateLimited        = errors.New("rate limited")
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrNoIdentifier is returned when a researcher carries no external
	// provider ID that a profile refresh could be keyed on.
	ErrNoIdentifier = errors.New("no identifier")

	// ErrTitleMismatch is returned when a title-based provider lookup
	// produced a result, but one not similar enough to trust.
	ErrTitleMismatch = errors.New("title mismatch")
)

// ValidationError reports a rejected field and why it was rejected.
type ValidationError struct {
	Field   string
	Message string
}

// NewValidationError creates a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s: %s", e.Field, e.Message)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// NotFoundError identifies which entity could not be found.
type NotFoundError struct {
	Entity string
	ID     string
}

// NewNotFoundError creates a NotFoundError for the given entity and ID.
func NewNotFoundError(entity, id string) *NotFoundError {
	return &NotFoundError{Entity: entity, ID: id}
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s not found: %s", e.Entity, e.ID)
}

func (e *NotFoundError) Unwrap() error { return ErrNotFound }

// AlreadyExistsError identifies the entity a write collided with.
type AlreadyExistsError struct {
	Entity string
	ID     string
}

// NewAlreadyExistsError creates an AlreadyExistsError for the given
// entity and ID.
func NewAlreadyExistsError(entity, id string) *AlreadyExistsError {
	return &AlreadyExistsError{Entity: entity, ID: id}
}

func (e *AlreadyExistsError) Error() string {
	return fmt.Sprintf("%s already exists: %s", e.Entity, e.ID)
}

func (e *AlreadyExistsError) Unwrap() error { return ErrAlreadyExists }

// RateLimitError records which provider throttled us and for how long.
type RateLimitError struct {
	Source     string
	RetryAfter time.Duration
}

// NewRateLimitError creates a RateLimitError for the given provider.
func NewRateLimitError(source string, retryAfter time.Duration) *RateLimitError {
	return &RateLimitError{Source: source, RetryAfter: retryAfter}
}

func (e *RateLimitError) Error() string {
	return fmt.Sprintf("rate limited by %s: retry after %s", e.Source, e.RetryAfter)
}

func (e *RateLimitError) Unwrap() error { return ErrRateLimited }

// ExternalAPIError captures a failed call to a metadata provider,
// keeping the HTTP status so callers can distinguish transient
// provider trouble from hard failures.
type ExternalAPIError struct {
	Source     string
	StatusCode int
	Message    string
	Cause      error
}

// NewExternalAPIError creates an ExternalAPIError for the given
// provider call.
func NewExternalAPIError(source string, statusCode int, message string, cause error) *ExternalAPIError {
	return &ExternalAPIError{Source: source, StatusCode: statusCode, Message: message, Cause: cause}
}

func (e *ExternalAPIError) Error() string {
	return fmt.Sprintf("%s API error (status %d): %s", e.Source, e.StatusCode, e.Message)
}

func (e *ExternalAPIError) Unwrap() error { return e.Cause }
