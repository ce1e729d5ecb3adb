package errors

import (
	"errors"
	"fmt"
)

// Kind classifies a domain failure. Transport layers map kinds to status codes.
type Kind string

const (
	KindNotFound        Kind = "NOT_FOUND"
	KindConflict        Kind = "CONFLICT"
	KindExpired         Kind = "EXPIRED"
	KindInvalid         Kind = "INVALID"
	KindUnauthenticated Kind = "UNAUTHENTICATED"
	KindInternal        Kind = "INTERNAL"
)

// Error is the domain error returned by services.
type Error struct {
	Kind    Kind
	Message string
	Details map[string]string

	cause    error
	kindOnly bool
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.cause }

// Is lets the generic sentinels below match any error of the same kind,
// while named errors only match themselves.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.kindOnly {
		return e.Kind == t.Kind
	}
	return e == t
}

// WithCause returns a copy of e that wraps cause.
func (e *Error) WithCause(cause error) *Error {
	cp := *e
	cp.cause = cause
	cp.kindOnly = false
	return &cp
}

// Kind sentinels for errors.Is checks.
var (
	ErrNotFound        = &Error{Kind: KindNotFound, Message: "not found", kindOnly: true}
	ErrConflict        = &Error{Kind: KindConflict, Message: "conflict", kindOnly: true}
	ErrExpired         = &Error{Kind: KindExpired, Message: "expired", kindOnly: true}
	ErrInvalid         = &Error{Kind: KindInvalid, Message: "invalid", kindOnly: true}
	ErrUnauthenticated = &Error{Kind: KindUnauthenticated, Message: "unauthenticated", kindOnly: true}
	ErrInternal        = &Error{Kind: KindInternal, Message: "internal error", kindOnly: true}
)

func NotFound(msg string) *Error { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) *Error { return &Error{Kind: KindConflict, Message: msg} }
func Expired(msg string) *Error  { return &Error{Kind: KindExpired, Message: msg} }
func Invalid(msg string) *Error  { return &Error{Kind: KindInvalid, Message: msg} }

func Unauthenticated(msg string) *Error {
	return &Error{Kind: KindUnauthenticated, Message: msg}
}

// InvalidWithDetails carries per-field validation messages.
func InvalidWithDetails(msg string, details map[string]string) *Error {
	return &Error{Kind: KindInvalid, Message: msg, Details: details}
}

// Internal wraps an infrastructure failure.
func Internal(msg string, cause error) *Error {
	return &Error{Kind: KindInternal, Message: msg, cause: cause}
}

// KindOf reports the kind of the first domain error in err's chain,
// or KindInternal when there is none.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}
