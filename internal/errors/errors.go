// Package errors provides the error taxonomy for the Immoshift delivery tier.
// Content loading, lead submission and page handlers all report failures as
// *Error values so callers can branch on the code instead of on message text.
package errors

import (
	stderrors "errors"
	"fmt"
	"net/http"
)

// ErrorCode represents a standardized error code.
type ErrorCode string

const (
	// Content errors
	IMMO_NOT_FOUND ErrorCode = "IMMO_NOT_FOUND" // Slug does not resolve to a record
	IMMO_TRANSPORT ErrorCode = "IMMO_TRANSPORT" // Network failure, non-2xx status or malformed body

	// Lead capture errors
	IMMO_VALIDATION         ErrorCode = "IMMO_VALIDATION"         // Client-side form validation failed
	IMMO_BUSINESS_REJECTION ErrorCode = "IMMO_BUSINESS_REJECTION" // 2xx response carrying success=false
	IMMO_FORM_TOKEN         ErrorCode = "IMMO_FORM_TOKEN"         // Missing or forged form token

	// Request errors
	IMMO_BAD_REQUEST ErrorCode = "IMMO_BAD_REQUEST"

	// Server errors
	IMMO_INTERNAL    ErrorCode = "IMMO_INTERNAL"
	IMMO_UNAVAILABLE ErrorCode = "IMMO_UNAVAILABLE"
)

// Error represents a classified failure.
type Error struct {
	Code          ErrorCode   `json:"code"`
	Message       string      `json:"message"`
	CorrelationID string      `json:"correlationId,omitempty"`
	Details       interface{} `json:"details,omitempty"`
	HTTPStatus    int         `json:"-"`

	cause error
}

// New creates a new Error with the specified code and message.
func New(code ErrorCode, message string, correlationID string) *Error {
	return &Error{
		Code:          code,
		Message:       message,
		CorrelationID: correlationID,
		HTTPStatus:    httpStatusCodeForCode(code),
	}
}

// NewWithDetails creates a new Error with the specified code, message, and details.
func NewWithDetails(code ErrorCode, message string, correlationID string, details interface{}) *Error {
	e := New(code, message, correlationID)
	e.Details = details
	return e
}

// Wrap classifies cause under code. The cause stays reachable through errors.Is/As.
func Wrap(code ErrorCode, message string, cause error) *Error {
	e := New(code, message, "")
	e.cause = cause
	return e
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.Details != nil {
		msg = fmt.Sprintf("%s (details: %v)", msg, e.Details)
	}
	if e.cause != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.cause)
	}
	return msg
}

// Unwrap returns the underlying cause, if any.
func (e *Error) Unwrap() error {
	return e.cause
}

// Is reports whether target is an *Error with the same code. This lets callers
// write errors.Is(err, errors.New(IMMO_NOT_FOUND, "", "")) when convenient.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code
}

// CodeOf returns the code of the first *Error in err's chain, or IMMO_INTERNAL
// when err is non-nil but unclassified. A nil error yields the empty code.
func CodeOf(err error) ErrorCode {
	if err == nil {
		return ""
	}
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code
	}
	return IMMO_INTERNAL
}

// HasCode reports whether err carries code anywhere in its chain.
func HasCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// HTTPStatusOf returns the HTTP status associated with err's code.
func HTTPStatusOf(err error) int {
	var e *Error
	if stderrors.As(err, &e) {
		return e.HTTPStatus
	}
	return http.StatusInternalServerError
}

// httpStatusCodeForCode maps error codes to HTTP status codes.
func httpStatusCodeForCode(code ErrorCode) int {
	switch code {
	case IMMO_VALIDATION, IMMO_BAD_REQUEST:
		return http.StatusBadRequest
	case IMMO_FORM_TOKEN:
		return http.StatusForbidden
	case IMMO_NOT_FOUND:
		return http.StatusNotFound
	case IMMO_BUSINESS_REJECTION:
		return http.StatusUnprocessableEntity
	case IMMO_TRANSPORT:
		return http.StatusBadGateway
	case IMMO_UNAVAILABLE:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
