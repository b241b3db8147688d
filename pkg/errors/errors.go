// Package errors is the typed error vocabulary shared by services and the
// HTTP layer. A Code fixes the response status, the message shown for
// non-client-facing failures, and whether details may leave the process.
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
)

// Metadata describes how a code surfaces. Retryable means an identical
// request may succeed later: after a price confirmation, a fresh order
// number, a new rate window, or a recovered dependency. ShowMessage lets the
// error's own message through instead of PublicMessage.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	ShowMessage    bool
	DetailsAllowed bool
	PublicMessage  string
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:    {HTTPStatus: http.StatusBadRequest, ShowMessage: true, DetailsAllowed: true, PublicMessage: "validation failed"},
	CodeUnauthorized:  {HTTPStatus: http.StatusUnauthorized, ShowMessage: true, PublicMessage: "authentication required"},
	CodeForbidden:     {HTTPStatus: http.StatusForbidden, ShowMessage: true, PublicMessage: "access denied"},
	CodeNotFound:      {HTTPStatus: http.StatusNotFound, ShowMessage: true, PublicMessage: "resource not found"},
	CodeConflict:      {HTTPStatus: http.StatusConflict, Retryable: true, ShowMessage: true, PublicMessage: "conflict detected"},
	CodeStateConflict: {HTTPStatus: http.StatusUnprocessableEntity, Retryable: true, ShowMessage: true, DetailsAllowed: true, PublicMessage: "state transition disallowed"},
	CodeIdempotency:   {HTTPStatus: http.StatusConflict, ShowMessage: true, DetailsAllowed: true, PublicMessage: "idempotency key reused"},
	CodeRateLimit:     {HTTPStatus: http.StatusTooManyRequests, Retryable: true, ShowMessage: true, PublicMessage: "rate limit exceeded"},
	CodeInternal:      {HTTPStatus: http.StatusInternalServerError, Retryable: true, PublicMessage: "internal server error"},
	CodeDependency:    {HTTPStatus: http.StatusServiceUnavailable, Retryable: true, PublicMessage: "dependency unavailable"},
}

// MetadataFor falls back to CodeInternal for unknown codes.
func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

// RetryableStatus reports whether any retryable code answers with status.
// Middleware that only sees the written status uses it.
func RetryableStatus(status int) bool {
	if status >= http.StatusInternalServerError {
		return true
	}
	for _, meta := range metadataByCode {
		if meta.HTTPStatus == status && meta.Retryable {
			return true
		}
	}
	return false
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

func Newf(code Code, format string, args ...any) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap attaches cause for logging; cause text never reaches the client.
func Wrap(code Code, cause error, message string) *Error {
	return &Error{code: code, message: message, cause: cause}
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

// WithDetails sets the client-visible payload, shown only for codes whose
// metadata allows it.
func (e *Error) WithDetails(details any) *Error {
	if e != nil {
		e.details = details
	}
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return string(e.code) + ": " + e.message
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

// As returns the outermost *Error in err's chain.
func As(err error) *Error {
	var typed *Error
	if err != nil && stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// CodeOf returns the code of the first typed error in the chain, or CodeInternal.
func CodeOf(err error) Code {
	return As(err).Code()
}

// Is reports whether err carries the given code.
func Is(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}

// PassThrough returns err untouched when it is already typed, otherwise wraps it.
func PassThrough(err error, code Code, message string) error {
	switch {
	case err == nil:
		return nil
	case As(err) != nil:
		return err
	default:
		return Wrap(code, err, message)
	}
}
