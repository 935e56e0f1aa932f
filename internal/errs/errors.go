// Package errs provides the unified error type used across schemascope.
//
// Every subsystem (dialect adapters, inspector, renderer, snapshot store)
// wraps its native errors into *errs.Error before returning them to callers.
// Callers use the Is* predicates to handle errors without importing
// driver-specific packages.
//
// Usage:
//
//	// In an adapter — wrap native errors:
//	return errs.Wrap(errs.KindFetch, "schema crawl failed", sqlErr)
//
//	// In a handler — check error kind:
//	if errs.IsValidation(err) {
//	    http.Error(w, err.Error(), http.StatusBadRequest)
//	}
package errs

import (
	"errors"
	"fmt"
)

// Kind categorises an error without exposing driver-specific codes.
// All dialect adapters (MySQL, Postgres, SQLite) map their native errors to
// one of these kinds, giving callers a single consistent API.
type Kind int

const (
	KindUnknown    Kind = iota
	KindValidation      // an identifier failed the allow-list
	KindConnection      // cannot reach or authenticate to the database
	KindTimeout         // context deadline / cancellation
	KindFetch           // schema crawl failed on a reachable database
	KindNotFound        // unknown table, project, or row
	KindFormat          // rendering failure on otherwise valid input
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindConnection:
		return "connection_failed"
	case KindTimeout:
		return "timeout"
	case KindFetch:
		return "fetch_failed"
	case KindNotFound:
		return "not_found"
	case KindFormat:
		return "format_failed"
	default:
		return "unknown"
	}
}

// Error is the single error type returned by all schemascope subsystems.
// Adapters produce it; callers inspect it via the Is* predicates below.
type Error struct {
	Kind    Kind
	Message string
	Cause   error // original driver-level error, preserved for logging
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Kind, e.Message)
}

// Unwrap allows errors.Is / errors.As to traverse the cause chain.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates an *Error with the given kind and message and no cause.
func New(kind Kind, msg string) *Error {
	return &Error{Kind: kind, Message: msg}
}

// Wrap creates an *Error with the given kind, message, and an underlying cause.
func Wrap(kind Kind, msg string, cause error) *Error {
	return &Error{Kind: kind, Message: msg, Cause: cause}
}

// IsValidation reports whether err was caused by an identifier failing
// the allow-list.
func IsValidation(err error) bool {
	return kindOf(err) == KindValidation
}

// IsConnection reports whether err is a connectivity or auth failure.
func IsConnection(err error) bool {
	return kindOf(err) == KindConnection
}

// IsTimeout reports whether err was caused by a deadline or context cancellation.
func IsTimeout(err error) bool {
	return kindOf(err) == KindTimeout
}

// IsFetch reports whether err is a schema crawl failure.
func IsFetch(err error) bool {
	return kindOf(err) == KindFetch
}

// IsNotFound reports whether err represents a missing table, project, or row.
func IsNotFound(err error) bool {
	return kindOf(err) == KindNotFound
}

// IsFormat reports whether err is a rendering failure.
func IsFormat(err error) bool {
	return kindOf(err) == KindFormat
}

// kindOf extracts the Kind from any error in the chain.
func kindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}
