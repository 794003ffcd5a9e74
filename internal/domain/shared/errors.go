package shared

import (
	"errors"
	"fmt"
	"strings"
)

// Error codes for the catalog error taxonomy
const (
	CodeValidation          = "VALIDATION_ERROR"
	CodeUnknownReference    = "UNKNOWN_REFERENCE"
	CodeConstraintViolation = "CONSTRAINT_VIOLATION"
	CodeTransientStorage    = "TRANSIENT_STORAGE"
)

// FieldError describes a single invalid field of a submitted document.
// Field uses the JSON path of the offending value, e.g. "options[0].variants[1].sku".
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// DomainError represents a domain-level error
type DomainError struct {
	Code    string       `json:"code"`
	Message string       `json:"message"`
	Details []FieldError `json:"details,omitempty"`
	cause   error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, if any
func (e *DomainError) Unwrap() error {
	return e.cause
}

// Is reports whether target is a DomainError with the same code.
// Sentinel errors like ErrNotFound therefore match any error carrying their code.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Common domain errors
var (
	ErrNotFound            = NewDomainError("NOT_FOUND", "Resource not found")
	ErrAlreadyExists       = NewDomainError("ALREADY_EXISTS", "Resource already exists")
	ErrInvalidInput        = NewDomainError("INVALID_INPUT", "Invalid input provided")
	ErrConcurrencyConflict = NewDomainError("CONCURRENCY_CONFLICT", "Resource was modified by another process")
	ErrUnauthorized        = NewDomainError("UNAUTHORIZED", "Not authorized to perform this action")
	ErrForbidden           = NewDomainError("FORBIDDEN", "Access to this resource is forbidden")
	ErrInvalidState        = NewDomainError("INVALID_STATE", "Operation not allowed in current state")
)

// NewValidationError builds a ValidationError carrying field-level details.
func NewValidationError(details ...FieldError) *DomainError {
	msg := "Submitted document is invalid"
	if len(details) == 1 {
		msg = details[0].Field + ": " + details[0].Message
	} else if len(details) > 1 {
		msg = fmt.Sprintf("Submitted document is invalid (%d problems)", len(details))
	}
	return &DomainError{
		Code:    CodeValidation,
		Message: msg,
		Details: details,
	}
}

// NewUnknownReferenceError reports identities in a submitted document that
// cannot be resolved against storage.
func NewUnknownReferenceError(kind string, ids ...string) *DomainError {
	details := make([]FieldError, 0, len(ids))
	for _, id := range ids {
		details = append(details, FieldError{Field: kind, Message: "unknown " + kind + " " + id})
	}
	return &DomainError{
		Code:    CodeUnknownReference,
		Message: fmt.Sprintf("Unknown %s reference: %s", kind, strings.Join(ids, ", ")),
		Details: details,
	}
}

// NewConstraintViolationError wraps a storage constraint failure.
func NewConstraintViolationError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeConstraintViolation,
		Message: message,
		cause:   cause,
	}
}

// NewTransientStorageError wraps a connection or timeout failure.
func NewTransientStorageError(message string, cause error) *DomainError {
	return &DomainError{
		Code:    CodeTransientStorage,
		Message: message,
		cause:   cause,
	}
}

// IsCode reports whether err is a DomainError with the given code
func IsCode(err error, code string) bool {
	var domainErr *DomainError
	return errors.As(err, &domainErr) && domainErr.Code == code
}
