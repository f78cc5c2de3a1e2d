package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies an application error.
type Kind int

const (
	KindInternal Kind = iota
	KindValidation
	KindConflict
	KindNotFound
)

// String returns the lowercase name of the kind.
func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	default:
		return "internal"
	}
}

// ValidationError represents one or more field-level input failures
type ValidationError struct {
	Messages []string
}

// NewValidationError creates a new validation error
func NewValidationError(messages ...string) *ValidationError {
	return &ValidationError{Messages: messages}
}

// Error implements the error interface
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation failed: %s", strings.Join(e.Messages, ", "))
}

// Kind returns KindValidation
func (e *ValidationError) Kind() Kind { return KindValidation }

// StatusCode returns the HTTP status for this error
func (e *ValidationError) StatusCode() int { return http.StatusBadRequest }

// ConflictError represents a request that would break a uniqueness rule
type ConflictError struct {
	Resource string
	Message  string
}

// NewConflictError creates a new conflict error
func NewConflictError(resource, message string) *ConflictError {
	return &ConflictError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *ConflictError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s already exists", e.Resource)
}

// Kind returns KindConflict
func (e *ConflictError) Kind() Kind { return KindConflict }

// StatusCode returns the HTTP status for this error.
// Conflicts are reported as 400 to keep the public contract of the API.
func (e *ConflictError) StatusCode() int { return http.StatusBadRequest }

// NotFoundError represents a resource not found error
type NotFoundError struct {
	Resource string
	Message  string
}

// NewNotFoundError creates a new not found error
func NewNotFoundError(resource, message string) *NotFoundError {
	return &NotFoundError{
		Resource: resource,
		Message:  message,
	}
}

// Error implements the error interface
func (e *NotFoundError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("%s not found", e.Resource)
}

// Kind returns KindNotFound
func (e *NotFoundError) Kind() Kind { return KindNotFound }

// StatusCode returns the HTTP status for this error
func (e *NotFoundError) StatusCode() int { return http.StatusNotFound }

// InternalError represents an unclassified failure. Its message is the
// message of the wrapped cause unless one is given explicitly.
type InternalError struct {
	Message string
	Err     error
}

// NewInternalError creates a new internal error
func NewInternalError(message string, err error) *InternalError {
	return &InternalError{
		Message: message,
		Err:     err,
	}
}

// Internal wraps err so that its own message is the one reported.
func Internal(err error) *InternalError {
	return &InternalError{Err: err}
}

// Error implements the error interface
func (e *InternalError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	if e.Err != nil {
		return e.Err.Error()
	}
	return "internal server error"
}

// Unwrap returns the wrapped error
func (e *InternalError) Unwrap() error {
	return e.Err
}

// Kind returns KindInternal
func (e *InternalError) Kind() Kind { return KindInternal }

// StatusCode returns the HTTP status for this error
func (e *InternalError) StatusCode() int { return http.StatusInternalServerError }

// AppError is implemented by every error type of this package.
type AppError interface {
	error
	Kind() Kind
	StatusCode() int
}

// As returns the first AppError in err's chain.
func As(err error) (AppError, bool) {
	var appErr AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// KindOf reports the kind of err. Unknown errors are internal.
func KindOf(err error) Kind {
	if appErr, ok := As(err); ok {
		return appErr.Kind()
	}
	return KindInternal
}

// StatusCode reports the HTTP status of err. Unknown errors map to 500.
func StatusCode(err error) int {
	if appErr, ok := As(err); ok {
		return appErr.StatusCode()
	}
	return http.StatusInternalServerError
}

// Messages returns the client-facing messages carried by err.
func Messages(err error) []string {
	var vErr *ValidationError
	if stderrors.As(err, &vErr) {
		return vErr.Messages
	}
	if appErr, ok := As(err); ok {
		return []string{appErr.Error()}
	}
	return []string{err.Error()}
}
