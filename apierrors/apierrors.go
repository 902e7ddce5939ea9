package apierrors

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind identifies an error class. Values match the wire-level error_type field.
type Kind string

// Error kinds
const (
	KindValidation       Kind = "validation_error"
	KindBadRequest       Kind = "bad_request"
	KindExecution        Kind = "execution_error"
	KindInternal         Kind = "internal_error"
	KindNotFound         Kind = "not_found"
	KindMethodNotAllowed Kind = "method_not_allowed"
)

// Error is a tagged error carrying a kind and a caller-facing message
type Error struct {
	Kind    Kind   // Error class, translated to an HTTP status at the boundary
	Message string // Caller-facing message
	Err     error  // Underlying error (for wrapping)
}

// Error implements the error interface
func (e *Error) Error() string {
	return e.Message
}

// Unwrap returns the underlying error (for errors.Is and errors.As)
func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a tagged error with the given kind and message
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Newf creates a tagged error with a formatted message
func Newf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap tags an existing error, keeping it reachable through Unwrap
func Wrap(kind Kind, err error) *Error {
	if err == nil {
		return nil
	}
	return &Error{Kind: kind, Message: err.Error(), Err: err}
}

// Validation creates a validation_error
func Validation(message string) *Error {
	return New(KindValidation, message)
}

// BadRequest creates a bad_request error
func BadRequest(message string) *Error {
	return New(KindBadRequest, message)
}

// Execution creates an execution_error
func Execution(message string) *Error {
	return New(KindExecution, message)
}

// Executionf creates an execution_error with a formatted message
func Executionf(format string, args ...any) *Error {
	return Newf(KindExecution, format, args...)
}

// Internal creates an internal_error
func Internal(message string) *Error {
	return New(KindInternal, message)
}

// KindOf returns the kind of a tagged error. Untagged errors classify as
// internal_error.
func KindOf(err error) Kind {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindInternal
}

// HTTPStatus maps an error kind to its HTTP status code
func HTTPStatus(kind Kind) int {
	switch kind {
	case KindValidation, KindBadRequest:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindMethodNotAllowed:
		return http.StatusMethodNotAllowed
	case KindExecution, KindInternal:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}
