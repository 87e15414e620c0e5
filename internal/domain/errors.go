// Package domain provides the stage model, the collaborator contracts, and
// the canonical error types shared across the control plane.
package domain

import (
	"fmt"
	"net/http"
)

// ErrorType represents the category of a control-plane error.
type ErrorType string

const (
	// ErrorTypeInvalidArgument indicates a payload failed structural or
	// business-rule validation.
	ErrorTypeInvalidArgument ErrorType = "invalid_argument"

	// ErrorTypeForbidden indicates the caller lacks the required role.
	ErrorTypeForbidden ErrorType = "forbidden"

	// ErrorTypeNotFound indicates the referenced stage does not exist.
	ErrorTypeNotFound ErrorType = "not_found"

	// ErrorTypeConflict indicates the store rejected a write because the
	// record changed between this call's read and write.
	ErrorTypeConflict ErrorType = "conflict"

	// ErrorTypeStoreFailure indicates the persistence layer failed the write.
	ErrorTypeStoreFailure ErrorType = "store_failure"

	// ErrorTypeAuditEmission indicates the primary mutation succeeded but
	// appending its audit record failed.
	ErrorTypeAuditEmission ErrorType = "audit_emission"
)

// Error is the canonical error returned by the lifecycle manager and its
// collaborators, translated to the appropriate wire format by the boundary.
type Error struct {
	// Type is the category of error
	Type ErrorType `json:"type"`

	// Message is the human-readable error message
	Message string `json:"message"`

	// Param is the field or value that caused the error (if applicable)
	Param string `json:"param,omitempty"`

	// StatusCode is the suggested HTTP status code
	StatusCode int `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Param != "" {
		return fmt.Sprintf("%s (%s): %s", e.Type, e.Param, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// HTTPStatusCode returns the appropriate HTTP status code for this error.
func (e *Error) HTTPStatusCode() int {
	if e.StatusCode != 0 {
		return e.StatusCode
	}

	switch e.Type {
	case ErrorTypeInvalidArgument:
		return http.StatusBadRequest
	case ErrorTypeForbidden:
		return http.StatusForbidden
	case ErrorTypeNotFound:
		return http.StatusNotFound
	case ErrorTypeConflict:
		return http.StatusConflict
	case ErrorTypeStoreFailure, ErrorTypeAuditEmission:
		return http.StatusInternalServerError
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new canonical error.
func NewError(errType ErrorType, message string) *Error {
	return &Error{
		Type:    errType,
		Message: message,
	}
}

// WithParam adds the offending field or value to the error.
func (e *Error) WithParam(param string) *Error {
	e.Param = param
	return e
}

// WithStatusCode sets a specific HTTP status code.
func (e *Error) WithStatusCode(code int) *Error {
	e.StatusCode = code
	return e
}

// Convenience constructors for common errors

// ErrInvalidArgument creates a validation error.
func ErrInvalidArgument(message string) *Error {
	return NewError(ErrorTypeInvalidArgument, message)
}

// ErrForbidden creates an authorization error.
func ErrForbidden(message string) *Error {
	return NewError(ErrorTypeForbidden, message)
}

// ErrNotFound creates a not found error.
func ErrNotFound(message string) *Error {
	return NewError(ErrorTypeNotFound, message)
}

// ErrStageNotFound creates a not found error for a stage key.
func ErrStageNotFound(env, stage string) *Error {
	return ErrNotFound(fmt.Sprintf("environment %s/%s does not exist", env, stage))
}

// ErrConflict creates an optimistic-concurrency conflict error.
func ErrConflict(message string) *Error {
	return NewError(ErrorTypeConflict, message)
}

// ErrStoreFailure creates a persistence failure error.
func ErrStoreFailure(message string) *Error {
	return NewError(ErrorTypeStoreFailure, message)
}

// ErrAuditEmission creates an audit emission failure error. The primary
// mutation is durable when this is returned; only its record is not.
func ErrAuditEmission(message string) *Error {
	return NewError(ErrorTypeAuditEmission, message)
}
