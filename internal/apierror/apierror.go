// Package apierror provides standardized error response structures for the API.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import (
	"errors"
	"net/http"
)

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
	Code   string `json:"code,omitempty"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// Validation wraps multiple field errors.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields"`
}

func NewValidation(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "validation failed", Fields: fields}
}

// Kind classifies a domain error so the HTTP layer can pick a status code
// without knowing every sentinel.
type Kind int

const (
	KindValidation  Kind = iota + 1 // malformed input, rejected before any write
	KindNotFound                    // referenced entity absent
	KindConflict                    // state-machine violation or lost race
	KindConsistency                 // business rule blocking the operation
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNotFound:
		return "not_found"
	case KindConflict:
		return "conflict"
	case KindConsistency:
		return "consistency"
	default:
		return "unknown"
	}
}

// Error is a coded domain error. Sentinels are compared with errors.Is, so
// Error values must be created once at package level and wrapped with %w.
type Error struct {
	Kind Kind
	Code string
	Msg  string
}

func (e *Error) Error() string { return e.Msg }

func Validation(code, msg string) *Error  { return &Error{Kind: KindValidation, Code: code, Msg: msg} }
func NotFound(code, msg string) *Error    { return &Error{Kind: KindNotFound, Code: code, Msg: msg} }
func Conflict(code, msg string) *Error    { return &Error{Kind: KindConflict, Code: code, Msg: msg} }
func Consistency(code, msg string) *Error { return &Error{Kind: KindConsistency, Code: code, Msg: msg} }

// StatusOf maps err to an HTTP status. Unknown errors are 500.
func StatusOf(err error) int {
	var de *Error
	if !errors.As(err, &de) {
		return http.StatusInternalServerError
	}
	switch de.Kind {
	case KindValidation:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict, KindConsistency:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// From builds the response envelope for err. The message of an unknown error
// is never exposed.
func From(err error) *APIError {
	var de *Error
	if !errors.As(err, &de) {
		return New("internal server error")
	}
	return &APIError{Detail: err.Error(), Code: de.Code}
}
