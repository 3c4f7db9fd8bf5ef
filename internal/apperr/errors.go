// Package apperr defines the error kinds the workflow core raises and
// the HTTP layer maps onto status codes.
package apperr

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers.
type Kind int

const (
	// KindInternal is anything unexpected: persistence failures,
	// programming errors. Maps to 500.
	KindInternal Kind = iota
	// KindNotFound means a referenced entity does not exist. Maps to 404.
	KindNotFound
	// KindBadRequest means a structural or business rule was violated,
	// including missing roles and permissions. Maps to 400.
	KindBadRequest
	// KindConflict means a concurrent writer won; the caller should
	// re-read and retry. Maps to 409.
	KindConflict
)

// Error carries a kind, a human-readable message and an optional cause.
type Error struct {
	kind Kind
	msg  string
	err  error
}

func (e *Error) Error() string {
	if e.err != nil {
		return fmt.Sprintf("%s: %v", e.msg, e.err)
	}
	return e.msg
}

// Unwrap exposes the cause for errors.Is/As chains.
func (e *Error) Unwrap() error { return e.err }

// Kind returns the error's kind.
func (e *Error) Kind() Kind { return e.kind }

// NotFound creates a not-found error.
func NotFound(format string, args ...interface{}) *Error {
	return &Error{kind: KindNotFound, msg: fmt.Sprintf(format, args...)}
}

// BadRequest creates a bad-request error.
func BadRequest(format string, args ...interface{}) *Error {
	return &Error{kind: KindBadRequest, msg: fmt.Sprintf(format, args...)}
}

// Conflict creates a conflict error.
func Conflict(format string, args ...interface{}) *Error {
	return &Error{kind: KindConflict, msg: fmt.Sprintf(format, args...)}
}

// Wrap attaches a kind and message to an underlying error.
func Wrap(kind Kind, err error, format string, args ...interface{}) *Error {
	return &Error{kind: kind, msg: fmt.Sprintf(format, args...), err: err}
}

// KindOf extracts the kind from an error chain; unknown errors are
// internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.kind
	}
	return KindInternal
}

// IsNotFound reports whether the error chain carries KindNotFound.
func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

// IsBadRequest reports whether the error chain carries KindBadRequest.
func IsBadRequest(err error) bool { return KindOf(err) == KindBadRequest }

// IsConflict reports whether the error chain carries KindConflict.
func IsConflict(err error) bool { return KindOf(err) == KindConflict }
