package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation   Code = "VALIDATION_ERROR"
	CodeUnauthorized Code = "UNAUTHORIZED"
	CodeForbidden    Code = "FORBIDDEN"
	CodeNotFound     Code = "NOT_FOUND"
	CodeConflict     Code = "CONFLICT"
	CodeIdempotency  Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit    Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal     Code = "INTERNAL_ERROR"
	CodeDependency   Code = "DEPENDENCY_ERROR"

	// CodeInsufficientFunds is returned when a purchase violates the credit policy.
	CodeInsufficientFunds Code = "INSUFFICIENT_FUNDS"
	// CodeInvalidReference is returned when a supplied foreign key does not resolve.
	CodeInvalidReference Code = "INVALID_REFERENCE"
)

// Metadata describes how a Code is surfaced to API clients.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

func clientError(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details}
}

func serverError(status int, msg string, details bool) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: msg, DetailsAllowed: details, Retryable: true}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:        clientError(http.StatusBadRequest, "validation failed", true),
	CodeUnauthorized:      clientError(http.StatusUnauthorized, "authentication required", false),
	CodeForbidden:         clientError(http.StatusForbidden, "access denied", false),
	CodeNotFound:          clientError(http.StatusNotFound, "resource not found", false),
	CodeConflict:          clientError(http.StatusConflict, "conflict detected", false),
	CodeInsufficientFunds: clientError(http.StatusForbidden, "insufficient funds", true),
	CodeInvalidReference:  clientError(http.StatusBadRequest, "invalid reference", true),
	CodeIdempotency:       clientError(http.StatusConflict, "idempotency key reused", true),
	CodeRateLimit:         clientError(http.StatusTooManyRequests, "rate limit exceeded", false),

	CodeInternal:   serverError(http.StatusInternalServerError, "internal server error", false),
	CodeDependency: serverError(http.StatusServiceUnavailable, "dependency unavailable", true),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// IsCode reports whether err carries the given code anywhere in its chain.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.Code() == code
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}
