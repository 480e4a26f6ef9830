package apperrors

import (
	"errors"
	"fmt"
)

// Kind classifies an error for callers. Every kind except KindInternal is an
// expected, caller-recoverable condition.
type Kind string

const (
	KindForbidden         Kind = "FORBIDDEN"
	KindIllegalTransition Kind = "ILLEGAL_TRANSITION"
	KindInvalidState      Kind = "INVALID_STATE"
	KindIncompleteTeam    Kind = "INCOMPLETE_TEAM"
	KindConflict          Kind = "CONFLICT"
	KindValidation        Kind = "VALIDATION"
	KindNotFound          Kind = "NOT_FOUND"
	KindInternal          Kind = "INTERNAL"
)

var (
	ErrForbidden         = &Error{Kind: KindForbidden}
	ErrIllegalTransition = &Error{Kind: KindIllegalTransition}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrIncompleteTeam    = &Error{Kind: KindIncompleteTeam}
	ErrConflict          = &Error{Kind: KindConflict}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInternal          = &Error{Kind: KindInternal}
)

// Error is the typed error returned by repositories and services.
type Error struct {
	Kind    Kind
	Op      string
	Reason  string
	Message string
	Fields  map[string]string
	Err     error
}

func (e *Error) Error() string {
	msg := e.Message
	if msg == "" {
		msg = defaultMessage(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		msg = msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so sentinel comparisons work
// regardless of Op or Message.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

func defaultMessage(k Kind) string {
	switch k {
	case KindForbidden:
		return "operation not permitted"
	case KindIllegalTransition:
		return "status transition not allowed"
	case KindInvalidState:
		return "operation not allowed in current state"
	case KindIncompleteTeam:
		return "team members have not all approved"
	case KindConflict:
		return "conflict"
	case KindValidation:
		return "invalid input"
	case KindNotFound:
		return "not found"
	default:
		return "internal error"
	}
}

func newf(kind Kind, op, format string, args ...any) *Error {
	return &Error{Kind: kind, Op: op, Message: fmt.Sprintf(format, args...)}
}

func Forbidden(op, reason string) *Error {
	return &Error{Kind: KindForbidden, Op: op, Reason: reason}
}

func IllegalTransition(op string, from, to any) *Error {
	return newf(KindIllegalTransition, op, "cannot move from %v to %v", from, to)
}

func InvalidState(op, format string, args ...any) *Error {
	return newf(KindInvalidState, op, format, args...)
}

func IncompleteTeam(op string, pending int) *Error {
	return newf(KindIncompleteTeam, op, "%d team member(s) have not approved", pending)
}

func Conflict(op, format string, args ...any) *Error {
	return newf(KindConflict, op, format, args...)
}

func Validation(op, format string, args ...any) *Error {
	return newf(KindValidation, op, format, args...)
}

// ValidationFields reports per-field validation failures.
func ValidationFields(op string, fields map[string]string) *Error {
	return &Error{Kind: KindValidation, Op: op, Message: "invalid input", Fields: fields}
}

func NotFound(op, what string) *Error {
	return newf(KindNotFound, op, "%s not found", what)
}

// Internal wraps an unexpected failure, typically storage or connectivity.
func Internal(op string, err error) *Error {
	return &Error{Kind: KindInternal, Op: op, Err: err}
}

// KindOf returns the kind carried by err, or KindInternal for foreign errors.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// IsExpected reports whether err is one of the caller-recoverable kinds.
func IsExpected(err error) bool {
	return err != nil && KindOf(err) != KindInternal
}
