package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrSignatureInvalid means request authentication failed
	ErrSignatureInvalid = errors.New("signature invalid")
	// ErrIdentityNotFound means a claim or user id did not resolve to an identity
	ErrIdentityNotFound = errors.New("unknown user")
	// ErrUpstreamUnavailable is a transport-level failure calling the marketplace or a collaborator; retryable
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrActivationRejected means the marketplace answered the unlock call without the success triple
	ErrActivationRejected = errors.New("activation rejected")
	// ErrOrderRejected means an order confirmation failed its status or signature checks
	ErrOrderRejected = errors.New("order rejected")
	// ErrClaimConflict means an extended claim is already held by another identity
	ErrClaimConflict = errors.New("extended claim already bound to another identity")
	// ErrNotActivated means the identity has no shared secret yet
	ErrNotActivated = errors.New("integration not activated")
)

// ValidationError reports a malformed input field
type ValidationError struct {
	Field  string
	Reason string
}

// NewValidationError creates a validation error for a field
func NewValidationError(field, reason string) *ValidationError {
	return &ValidationError{Field: field, Reason: reason}
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return "validation failed: " + e.Reason
	}
	return fmt.Sprintf("validation failed: %s: %s", e.Field, e.Reason)
}

// IsValidation reports whether err wraps a ValidationError
func IsValidation(err error) bool {
	var v *ValidationError
	return errors.As(err, &v)
}
