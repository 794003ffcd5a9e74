package dto

import "net/http"

// Error codes returned in the error envelope. The catalog codes are the
// domain error codes unchanged so clients can match on either.

// Catalog error codes
const (
	// ErrCodeValidation is used when a submitted document fails field validation
	ErrCodeValidation = "VALIDATION_ERROR"
	// ErrCodeUnknownReference is used when a document names an ID that does not
	// exist or belongs to another product
	ErrCodeUnknownReference = "UNKNOWN_REFERENCE"
	// ErrCodeConstraintViolation is used when storage rejects a write
	ErrCodeConstraintViolation = "CONSTRAINT_VIOLATION"
	// ErrCodeTransientStorage is used when storage is unreachable or timed out
	ErrCodeTransientStorage = "TRANSIENT_STORAGE"
)

// Resource error codes
const (
	ErrCodeNotFound            = "NOT_FOUND"
	ErrCodeAlreadyExists       = "ALREADY_EXISTS"
	ErrCodeConcurrencyConflict = "CONCURRENCY_CONFLICT"
	ErrCodeInvalidState        = "INVALID_STATE"
)

// Authentication error codes
const (
	ErrCodeUnauthorized = "UNAUTHORIZED"
	ErrCodeForbidden    = "FORBIDDEN"
	ErrCodeTokenExpired = "TOKEN_EXPIRED"
	ErrCodeTokenInvalid = "INVALID_TOKEN"
	ErrCodeTokenRevoked = "TOKEN_REVOKED"
)

// Input error codes
const (
	// ErrCodeBadRequest is used for malformed path or query parameters
	ErrCodeBadRequest = "BAD_REQUEST"
	// ErrCodeInvalidJSON is used when the body is not syntactically valid JSON
	ErrCodeInvalidJSON = "INVALID_JSON"
	// ErrCodeInvalidInput is used for other rejected input
	ErrCodeInvalidInput = "INVALID_INPUT"
	// ErrCodeRequestTooLarge is used when the body exceeds the configured limit
	ErrCodeRequestTooLarge = "REQUEST_TOO_LARGE"
)

// General error codes
const (
	ErrCodeInternal           = "INTERNAL_ERROR"
	ErrCodeServiceUnavailable = "SERVICE_UNAVAILABLE"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	// A well-formed document that cannot be applied -> 422
	ErrCodeValidation:       http.StatusUnprocessableEntity,
	ErrCodeUnknownReference: http.StatusUnprocessableEntity,
	ErrCodeInvalidState:     http.StatusUnprocessableEntity,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeConstraintViolation: http.StatusConflict,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeTokenExpired: http.StatusUnauthorized,
	ErrCodeTokenInvalid: http.StatusUnauthorized,
	ErrCodeTokenRevoked: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeRequestTooLarge: http.StatusRequestEntityTooLarge,

	ErrCodeTransientStorage:   http.StatusServiceUnavailable,
	ErrCodeServiceUnavailable: http.StatusServiceUnavailable,
	ErrCodeInternal:           http.StatusInternalServerError,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}
