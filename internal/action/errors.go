package action

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Code categorizes failures reported by the store.
type Code string

const (
	// CodeTransitionFailed indicates a transition or middleware link failed.
	CodeTransitionFailed Code = "TRANSITION_FAILED"

	// CodeTimeout indicates a pending transition exceeded its bound with no
	// fallback supplied.
	CodeTimeout Code = "TIMEOUT"

	// CodeValidationFailed indicates a candidate state failed validation.
	CodeValidationFailed Code = "VALIDATION_FAILED"

	// CodeUnauthorized indicates a guard rejected the transition.
	CodeUnauthorized Code = "UNAUTHORIZED"

	// CodeDisposed indicates an operation on a disposed store.
	CodeDisposed Code = "DISPOSED"
)

// ErrDisposed is returned (or logged) for operations on a disposed store.
var ErrDisposed = errors.New("store is disposed")

// TransitionError wraps a failure raised by a transition or middleware link.
type TransitionError struct {
	Action string
	Err    error
}

func (e *TransitionError) Error() string {
	return fmt.Sprintf("%s: action %s failed: %v", CodeTransitionFailed, e.Action, e.Err)
}

func (e *TransitionError) Unwrap() error { return e.Err }

// TimeoutError reports a pending transition that did not finish in time.
type TimeoutError struct {
	Action  string
	Timeout time.Duration
}

func (e *TimeoutError) Error() string {
	return fmt.Sprintf("%s: action %s exceeded %s", CodeTimeout, e.Action, e.Timeout)
}

// ValidationError carries human-readable validation failures.
type ValidationError struct {
	Errors []string
}

func (e *ValidationError) Error() string {
	if len(e.Errors) == 0 {
		return fmt.Sprintf("%s: state is invalid", CodeValidationFailed)
	}
	return fmt.Sprintf("%s: %s", CodeValidationFailed, strings.Join(e.Errors, "; "))
}

// AuthorizationError reports a rejected guard.
type AuthorizationError struct {
	Reason string
}

func (e *AuthorizationError) Error() string {
	if e.Reason == "" {
		return fmt.Sprintf("%s: guard rejected transition", CodeUnauthorized)
	}
	return fmt.Sprintf("%s: %s", CodeUnauthorized, e.Reason)
}

// NewValidationError creates a ValidationError from messages.
func NewValidationError(msgs ...string) *ValidationError {
	return &ValidationError{Errors: msgs}
}

// NewAuthorizationError creates an AuthorizationError.
func NewAuthorizationError(reason string) *AuthorizationError {
	return &AuthorizationError{Reason: reason}
}

// IsTimeoutError reports whether err is or wraps a TimeoutError.
func IsTimeoutError(err error) bool {
	var te *TimeoutError
	return errors.As(err, &te)
}

// IsValidationError reports whether err is or wraps a ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsAuthorizationError reports whether err is or wraps an AuthorizationError.
func IsAuthorizationError(err error) bool {
	var ae *AuthorizationError
	return errors.As(err, &ae)
}

// IsPanicError reports whether err is or wraps a recovered panic.
func IsPanicError(err error) bool {
	var pe *PanicError
	return errors.As(err, &pe)
}

// CodeOf classifies err. The most specific cause wins, so a validation
// failure wrapped in a TransitionError reports CodeValidationFailed.
func CodeOf(err error) Code {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ErrDisposed):
		return CodeDisposed
	case IsTimeoutError(err):
		return CodeTimeout
	case IsValidationError(err):
		return CodeValidationFailed
	case IsAuthorizationError(err):
		return CodeUnauthorized
	default:
		return CodeTransitionFailed
	}
}
