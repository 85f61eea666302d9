package domain

import (
	"fmt"
	"strings"
)

// ErrorKind classifies every failure the core can produce. The transport
// layer maps kinds to HTTP statuses in exactly one place.
type ErrorKind string

const (
	KindValidation   ErrorKind = "VALIDATION_ERROR"
	KindAuthRequired ErrorKind = "AUTH_REQUIRED"
	KindAuthInvalid  ErrorKind = "AUTH_INVALID"
	KindForbidden    ErrorKind = "FORBIDDEN"
	KindNotFound     ErrorKind = "NOT_FOUND"
	KindConflict     ErrorKind = "CONFLICT"
	KindRateLimited  ErrorKind = "RATE_LIMITED"
	KindInternal     ErrorKind = "INTERNAL"
)

// FieldViolation is one machine-readable schema or input violation.
type FieldViolation struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Message string `json:"message"`
}

func (v FieldViolation) String() string {
	return v.Field + ": " + v.Message
}

// Error is the tagged error type carried from the point of creation.
// Validation errors enumerate every violation found, not just the first.
type Error struct {
	Kind       ErrorKind
	Message    string
	Details    []FieldViolation
	RetryAfter int // seconds, set only for KindRateLimited
	cause      error
}

func (e *Error) Error() string {
	if len(e.Details) == 0 {
		return e.Message
	}
	parts := make([]string, len(e.Details))
	for i, d := range e.Details {
		parts[i] = d.String()
	}
	return e.Message + ": " + strings.Join(parts, "; ")
}

func (e *Error) Unwrap() error { return e.cause }

// KindOf returns the kind of err when it is a *Error, KindInternal otherwise.
func KindOf(err error) ErrorKind {
	if de, ok := err.(*Error); ok {
		return de.Kind
	}
	return KindInternal
}

func NewValidation(msg string, details ...FieldViolation) *Error {
	return &Error{Kind: KindValidation, Message: msg, Details: details}
}

func NewAuthRequired(msg string) *Error {
	return &Error{Kind: KindAuthRequired, Message: msg}
}

func NewAuthInvalid(msg string) *Error {
	return &Error{Kind: KindAuthInvalid, Message: msg}
}

func NewForbidden(msg string) *Error {
	return &Error{Kind: KindForbidden, Message: msg}
}

func NewNotFound(resource string) *Error {
	return &Error{Kind: KindNotFound, Message: resource + " not found"}
}

func NewConflict(msg string) *Error {
	return &Error{Kind: KindConflict, Message: msg}
}

func NewRateLimited(retryAfter int) *Error {
	return &Error{
		Kind:       KindRateLimited,
		Message:    fmt.Sprintf("rate limit exceeded, retry in %ds", retryAfter),
		RetryAfter: retryAfter,
	}
}

// NewInternal wraps an unexpected failure (storage timeout, driver error).
// The cause stays available for logging; the message is safe for clients.
func NewInternal(cause error) *Error {
	return &Error{Kind: KindInternal, Message: "internal error", cause: cause}
}
