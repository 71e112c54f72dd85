// Package apperrors carries coded errors across the service, repository
// and handler layers. Every error the core returns is recoverable at the
// request boundary; the HTTP layer maps codes to statuses and messages.
package apperrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes.
const (
	// Validation failures on a candidate timesheet entry. These are
	// user-correctable and surface as field errors on the form.
	ErrCodeInvalidRange        = "INVALID_RANGE"
	ErrCodeNonPositiveDuration = "NON_POSITIVE_DURATION"
	ErrCodeOverlapConflict     = "OVERLAP_CONFLICT"

	// Timer conflicts, surfaced as warnings.
	ErrCodeTimerRunning = "TIMER_ALREADY_RUNNING"
	ErrCodeTimerStopped = "TIMER_ALREADY_STOPPED"

	// Week summary state machine conflicts.
	ErrCodeAlreadySubmitted = "ALREADY_SUBMITTED"
	ErrCodeNotSubmitted     = "NOT_SUBMITTED"

	// Delete blocked by referencing rows.
	ErrCodeReferenced = "REFERENCE_CONFLICT"

	ErrCodeInvalidInput = "INVALID_INPUT"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeNotFound     = "NOT_FOUND"
	ErrCodeConflict     = "CONFLICT"
	ErrCodeInternal     = "INTERNAL"
)

// Error is a coded application error. Field is set for validation errors
// so the caller can attach the message to the offending form field.
type Error struct {
	Code    string
	Field   string
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code, message string) *Error {
	return &Error{Code: code, Message: message}
}

// Wrap attaches a code and message to an underlying error.
func Wrap(err error, code, message string) *Error {
	return &Error{Code: code, Message: message, Err: err}
}

// Validation creates a field-level validation error.
func Validation(code, field, message string) *Error {
	return &Error{Code: code, Field: field, Message: message}
}

// InvalidInput reports a malformed request field.
func InvalidInput(field, message string) *Error {
	return &Error{Code: ErrCodeInvalidInput, Field: field, Message: message}
}

// NotFound reports a missing resource.
func NotFound(resource, id string) *Error {
	return &Error{Code: ErrCodeNotFound, Message: fmt.Sprintf("%s %q not found", resource, id)}
}

// Forbidden reports an actor lacking the required role.
func Forbidden(message string) *Error {
	return &Error{Code: ErrCodeForbidden, Message: message}
}

// CodeOf extracts the code from err, or ErrCodeInternal for uncoded errors.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ErrCodeInternal
}

// FieldOf extracts the field name from a validation error, if any.
func FieldOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Field
	}
	return ""
}

// HTTPStatus maps an error code to the response status.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case ErrCodeInvalidRange, ErrCodeNonPositiveDuration, ErrCodeOverlapConflict, ErrCodeInvalidInput:
		return http.StatusBadRequest
	case ErrCodeTimerRunning, ErrCodeTimerStopped,
		ErrCodeAlreadySubmitted, ErrCodeNotSubmitted,
		ErrCodeReferenced, ErrCodeConflict:
		return http.StatusConflict
	case ErrCodeForbidden:
		return http.StatusForbidden
	case ErrCodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
