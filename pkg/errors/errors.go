// Package errors carries the typed application errors handlers return and the
// HTTP metadata the response writer derives from their codes.
package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation    Code = "VALIDATION_ERROR"
	CodeUnauthorized  Code = "UNAUTHORIZED"
	CodeForbidden     Code = "FORBIDDEN"
	CodeNotFound      Code = "NOT_FOUND"
	CodeConflict      Code = "CONFLICT"
	CodeStateConflict Code = "STATE_CONFLICT"
	CodeIdempotency   Code = "IDEMPOTENCY_KEY_REUSED"
	CodeRateLimit     Code = "RATE_LIMIT_EXCEEDED"
	CodeInternal      Code = "INTERNAL_ERROR"
	CodeDependency    Code = "DEPENDENCY_ERROR"
	CodeDB            Code = "DB_ERROR"

	CodeInvalidDelta            Code = "INVALID_DELTA"
	CodeExceedsCapacity         Code = "EXCEEDS_CAPACITY"
	CodeExceedsRemoval          Code = "EXCEEDS_REMOVAL"
	CodeAlreadyParticipating    Code = "ALREADY_PARTICIPATING"
	CodeCodeGenerationExhausted Code = "CODE_GENERATION_EXHAUSTED"
)

// Metadata describes how a code is rendered to clients. ExposeMessage lets
// the error's own message replace PublicMessage; ExposeDetails lets its
// details through.
type Metadata struct {
	HTTPStatus    int
	Retryable     bool
	PublicMessage string
	ExposeMessage bool
	ExposeDetails bool
}

type exposure uint8

const hidden exposure = 0

const (
	exposeMsg exposure = 1 << iota
	exposeDetails
)

func meta(status int, retryable bool, public string, exp exposure) Metadata {
	return Metadata{
		HTTPStatus:    status,
		Retryable:     retryable,
		PublicMessage: public,
		ExposeMessage: exp&exposeMsg != 0,
		ExposeDetails: exp&exposeDetails != 0,
	}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    meta(http.StatusBadRequest, false, "validation failed", exposeMsg|exposeDetails),
	CodeUnauthorized:  meta(http.StatusUnauthorized, false, "authentication required", exposeMsg),
	CodeForbidden:     meta(http.StatusForbidden, false, "access denied", exposeMsg),
	CodeNotFound:      meta(http.StatusNotFound, false, "resource not found", exposeMsg),
	CodeConflict:      meta(http.StatusConflict, false, "conflict detected", exposeMsg),
	CodeStateConflict: meta(http.StatusUnprocessableEntity, false, "state transition disallowed", exposeMsg|exposeDetails),
	CodeIdempotency:   meta(http.StatusConflict, false, "idempotency key reused", exposeMsg|exposeDetails),
	CodeRateLimit:     meta(http.StatusTooManyRequests, true, "rate limit exceeded", exposeMsg),
	CodeInternal:      meta(http.StatusInternalServerError, true, "internal server error", hidden),
	CodeDependency:    meta(http.StatusServiceUnavailable, true, "dependency unavailable", exposeDetails),
	CodeDB:            meta(http.StatusInternalServerError, true, "database error", hidden),

	CodeInvalidDelta:            meta(http.StatusBadRequest, false, "seal delta must be a non-zero integer", exposeDetails),
	CodeExceedsCapacity:         meta(http.StatusUnprocessableEntity, false, "seal grant exceeds card capacity", exposeMsg|exposeDetails),
	CodeExceedsRemoval:          meta(http.StatusUnprocessableEntity, false, "cannot remove more seals than present", exposeMsg|exposeDetails),
	CodeAlreadyParticipating:    meta(http.StatusConflict, false, "customer already participates in this program", hidden),
	CodeCodeGenerationExhausted: meta(http.StatusConflict, false, "could not allocate a unique card code", hidden),
}

// MetadataFor falls back to CodeInternal for codes it does not know.
func MetadataFor(code Code) Metadata {
	if m, ok := metadataByCode[code]; ok {
		return m
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

// Newf is New with a formatted message.
func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

func Wrap(code Code, err error, message string) *Error {
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
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	switch {
	case e == nil:
		return ""
	case e.cause != nil:
		return fmt.Sprintf("%s: %s: %v", e.code, e.message, e.cause)
	default:
		return fmt.Sprintf("%s: %s", e.code, e.message)
	}
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain, or nil.
func As(err error) *Error {
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether the outermost typed error in err's chain has code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
