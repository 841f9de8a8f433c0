// Package shared contains common domain types, errors, events, and value objects
// that are used across all domain packages. This package has zero external dependencies.
package shared

import (
	"errors"
	"fmt"
)

// Base domain errors that can be used for error checking with errors.Is().
var (
	// Entity errors
	ErrNotFound      = errors.New("entity not found")
	ErrAlreadyExists = errors.New("entity already exists")

	// Validation errors
	ErrValidation    = errors.New("validation error")
	ErrInvalidID     = errors.New("invalid ID")
	ErrInvalidInput  = errors.New("invalid input")
	ErrNegativeValue = errors.New("value cannot be negative")

	// Authorization errors
	ErrForbidden = errors.New("forbidden")

	// Progression errors
	ErrTierRestricted = fmt.Errorf("tier restricted: %w", ErrForbidden)
	ErrAlreadyVisited = fmt.Errorf("already visited: %w", ErrAlreadyExists)
)

// DomainError represents a domain-specific error with context.
type DomainError struct {
	Domain  string // e.g., "visit", "landmark", "tier"
	Op      string // Operation that failed, e.g., "Record", "Get"
	Kind    error  // Base error type for errors.Is() checking
	Message string // Human-readable message
	Err     error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s.%s: %s: %v", e.Domain, e.Op, e.Message, e.Err)
	}
	return fmt.Sprintf("%s.%s: %s", e.Domain, e.Op, e.Message)
}

// Unwrap returns the underlying error for errors.Unwrap().
func (e *DomainError) Unwrap() error {
	if e.Err != nil {
		return e.Err
	}
	return e.Kind
}

// Is implements errors.Is() matching.
func (e *DomainError) Is(target error) bool {
	if e.Kind != nil && errors.Is(e.Kind, target) {
		return true
	}
	if e.Err != nil && errors.Is(e.Err, target) {
		return true
	}
	return false
}

// NewDomainError creates a new domain error.
func NewDomainError(domain, op string, kind error, message string) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
	}
}

// WrapError wraps an existing error with domain context.
func WrapError(domain, op string, kind error, message string, err error) *DomainError {
	return &DomainError{
		Domain:  domain,
		Op:      op,
		Kind:    kind,
		Message: message,
		Err:     err,
	}
}

// Landmark / user lookup errors
var (
	ErrLandmarkNotFound = NewDomainError("landmark", "Get", ErrNotFound, "landmark not found")
	ErrInvalidUserID    = NewDomainError("user", "Validate", ErrInvalidID, "invalid user ID")
	ErrInvalidLandmark  = NewDomainError("landmark", "Validate", ErrInvalidID, "invalid landmark ID")
)

// Visit errors
var (
	ErrVisitAlreadyRecorded = NewDomainError("visit", "Record", ErrAlreadyVisited, "landmark already visited by this user")
	ErrVisitNotFound        = NewDomainError("visit", "Find", ErrNotFound, "visit not found")
)

// TierRestrictedError builds an error for an action the subscription tier forbids.
func TierRestrictedError(op, message string) *DomainError {
	return NewDomainError("tier", op, ErrTierRestricted, message)
}

// ValidationError builds a validation error for a rejected input.
func ValidationError(domain, op, message string, err error) *DomainError {
	return WrapError(domain, op, ErrValidation, message, err)
}

// IsNotFound checks if the error is a "not found" error.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

// IsAlreadyExists checks if the error is an "already exists" error.
func IsAlreadyExists(err error) bool {
	return errors.Is(err, ErrAlreadyExists)
}

// IsAlreadyVisited checks if the error reports a duplicate visit submission.
func IsAlreadyVisited(err error) bool {
	return errors.Is(err, ErrAlreadyVisited)
}

// IsTierRestricted checks if the error reports a subscription-tier restriction.
func IsTierRestricted(err error) bool {
	return errors.Is(err, ErrTierRestricted)
}

// IsValidation checks if the error is a validation error.
func IsValidation(err error) bool {
	return errors.Is(err, ErrValidation) ||
		errors.Is(err, ErrInvalidID) ||
		errors.Is(err, ErrInvalidInput) ||
		errors.Is(err, ErrNegativeValue)
}

// IsClientError reports whether the error is caused by the request rather than
// by infrastructure. Client errors are never worth retrying unchanged.
func IsClientError(err error) bool {
	return IsNotFound(err) || IsAlreadyExists(err) || IsTierRestricted(err) || IsValidation(err)
}
