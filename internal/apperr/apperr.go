// Package apperr defines the typed errors returned by services and
// translated to HTTP responses at the handler boundary.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error. It is also the machine readable "code" sent to clients.
type Kind string

const (
	KindValidation         Kind = "VALIDATION_ERROR"
	KindDuplicateKey       Kind = "DUPLICATE_KEY"
	KindInvalidCredentials Kind = "INVALID_CREDENTIALS"
	KindTokenInvalid       Kind = "TOKEN_INVALID"
	KindForbidden          Kind = "FORBIDDEN"
	KindNotFound           Kind = "NOT_FOUND"
	KindConflict           Kind = "CONFLICT"
	KindInternal           Kind = "INTERNAL_ERROR"
)

// Error is the application error type.
type Error struct {
	Kind    Kind              `json:"code"`
	Message string            `json:"error"`
	Fields  map[string]string `json:"fields,omitempty"`
	Cause   error             `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Cause }

// Is matches any *Error of the same kind, so errors.Is(err, apperr.ErrTokenInvalid)
// works whatever the message.
func (e *Error) Is(target error) bool {
	var t *Error
	if !errors.As(target, &t) {
		return false
	}
	return e.Kind == t.Kind
}

// Sentinels for errors.Is comparisons. Never mutate them.
var (
	ErrInvalidCredentials = New(KindInvalidCredentials, "invalid credentials")
	ErrTokenInvalid       = New(KindTokenInvalid, "invalid or expired token")
)

func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap attaches cause to a new error of the given kind.
func Wrap(cause error, kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// Validation builds a 400 error carrying per-field messages.
func Validation(fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Message: "validation failed", Fields: fields}
}

// Duplicate reports a uniqueness violation on field.
func Duplicate(field string) *Error {
	return &Error{
		Kind:    KindDuplicateKey,
		Message: "duplicate value",
		Fields:  map[string]string{field: "already exists"},
	}
}

func NotFound(what string) *Error { return New(KindNotFound, what+" not found") }
func Conflict(msg string) *Error { return New(KindConflict, msg) }
func Internal(cause error) *Error { return Wrap(cause, KindInternal, "internal error") }
func Forbidden(msg string) *Error { return New(KindForbidden, msg) }

// KindOf returns the kind of err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// HTTPStatus maps a kind to its response status.
func HTTPStatus(k Kind) int {
	switch k {
	case KindValidation, KindDuplicateKey:
		return http.StatusBadRequest
	case KindInvalidCredentials, KindTokenInvalid:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}
