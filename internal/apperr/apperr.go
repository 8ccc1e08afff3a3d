// Package apperr defines the error taxonomy shared by services and HTTP handlers.
//
// Services return *Error values; handlers translate them to status codes through
// HTTPStatus. Anything that is not an *Error is treated as an internal failure.
package apperr

import (
	"errors"
	"net/http"
)

// Kind classifies an error for callers and for the HTTP layer.
type Kind string

const (
	KindNotFound              Kind = "NOT_FOUND"
	KindAlreadyExists         Kind = "ALREADY_EXISTS"
	KindNotAuthorized         Kind = "NOT_AUTHORIZED"
	KindNotAMember            Kind = "NOT_A_MEMBER"
	KindNotEnrolled           Kind = "NOT_ENROLLED"
	KindInvalidState          Kind = "INVALID_STATE"
	KindValidation            Kind = "VALIDATION_ERROR"
	KindTokenGenerationFailed Kind = "TOKEN_GENERATION_FAILED"
	KindUnauthenticated       Kind = "UNAUTHENTICATED"
	KindInternal              Kind = "INTERNAL"
)

// Error is the canonical service error.
//
// Code narrows the kind (for example "group_full" within INVALID_STATE) and is
// what clients switch on. Cause is kept for server-side logging only.
type Error struct {
	Kind    Kind         `json:"kind"`
	Code    string       `json:"code"`
	Message string       `json:"error"`
	Cause   error        `json:"-"`
	Details []FieldError `json:"details,omitempty"`
}

// FieldError is a single field-level validation failure.
type FieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (e *Error) Error() string { return e.Message }

func (e *Error) Unwrap() error { return e.Cause }

// Is matches on kind, and on code when the target carries one.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if e.Kind != t.Kind {
		return false
	}
	return t.Code == "" || e.Code == t.Code
}

// HTTPStatus maps the kind to a response status.
func (e *Error) HTTPStatus() int {
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindAlreadyExists, KindInvalidState:
		return http.StatusConflict
	case KindNotAuthorized, KindNotAMember, KindNotEnrolled:
		return http.StatusForbidden
	case KindValidation:
		return http.StatusBadRequest
	case KindUnauthenticated:
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

// NotFound reports a missing entity, e.g. NotFound("Group") -> "Group not found".
func NotFound(entity string) *Error {
	return &Error{Kind: KindNotFound, Code: "not_found", Message: entity + " not found"}
}

func AlreadyExists(code, msg string) *Error {
	return &Error{Kind: KindAlreadyExists, Code: code, Message: msg}
}

func NotAuthorized(msg string) *Error {
	return &Error{Kind: KindNotAuthorized, Code: "not_authorized", Message: msg}
}

func NotAMember(msg string) *Error {
	return &Error{Kind: KindNotAMember, Code: "not_a_member", Message: msg}
}

func NotEnrolled(msg string) *Error {
	return &Error{Kind: KindNotEnrolled, Code: "not_enrolled", Message: msg}
}

func InvalidState(code, msg string) *Error {
	return &Error{Kind: KindInvalidState, Code: code, Message: msg}
}

// Validation builds a VALIDATION_ERROR with optional per-field details.
func Validation(msg string, details ...FieldError) *Error {
	return &Error{Kind: KindValidation, Code: "validation_error", Message: msg, Details: details}
}

func TokenGenerationFailed(cause error) *Error {
	return &Error{
		Kind:    KindTokenGenerationFailed,
		Code:    "token_generation_failed",
		Message: "Could not generate a unique token",
		Cause:   cause,
	}
}

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Code: "unauthenticated", Message: msg}
}

// Internal wraps an unexpected failure. The message never exposes the cause.
func Internal(cause error) *Error {
	return &Error{
		Kind:    KindInternal,
		Code:    "internal_error",
		Message: "An unexpected error occurred",
		Cause:   cause,
	}
}

// As extracts the *Error from err's chain, or nil.
func As(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return nil
}

// IsKind reports whether err carries an *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	ae := As(err)
	return ae != nil && ae.Kind == kind
}
