// Package apperr defines the application error taxonomy and its mapping onto
// HTTP responses. Services return apperr values; the echo error handler turns
// them into JSON payloads with a user-readable message and a severity tag.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for transport mapping and caller recovery.
type Kind int

const (
	KindUnknown Kind = iota
	KindValidation
	KindConflict
	KindNotFound
	KindUnauthenticated
	KindForbidden
	KindSlotsExhausted
	KindInvalidCredentials
	KindPersistence
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConflict:
		return "conflict"
	case KindNotFound:
		return "not_found"
	case KindUnauthenticated:
		return "unauthenticated"
	case KindForbidden:
		return "forbidden"
	case KindSlotsExhausted:
		return "slots_exhausted"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindPersistence:
		return "persistence"
	default:
		return "unknown"
	}
}

// Error is a classified application error carrying a user-visible message.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// E constructs a classified error with a user-visible message.
func E(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Ef constructs a classified error with a formatted message.
func Ef(kind Kind, format string, args ...interface{}) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap classifies an underlying error, preserving it for logs.
func Wrap(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// KindOf returns the Kind of err, or KindUnknown if err is not classified.
func KindOf(err error) Kind {
	var ae *Error
	if errors.As(err, &ae) {
		return ae.Kind
	}
	return KindUnknown
}

// Is reports whether err carries the given Kind.
func Is(err error, kind Kind) bool {
	return KindOf(err) == kind
}

// Status maps a Kind to its HTTP status code.
func (k Kind) Status() int {
	switch k {
	case KindValidation:
		return http.StatusBadRequest
	case KindConflict, KindSlotsExhausted:
		return http.StatusConflict
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthenticated, KindInvalidCredentials:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindPersistence:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

// Severity returns the user-facing severity tag for a Kind. Recoverable
// business-rule rejections are warnings; everything else is an error.
func (k Kind) Severity() string {
	switch k {
	case KindValidation, KindConflict, KindSlotsExhausted, KindInvalidCredentials:
		return "warning"
	default:
		return "error"
	}
}
