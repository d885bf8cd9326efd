package service

import (
	"errors"
	"fmt"
)

// Kind classifies a service error for the HTTP layer.
type Kind int

const (
	KindInvalid      Kind = iota + 1 // input failed validation
	KindBadRequest                   // request not allowed in the current state
	KindUnauthorized                 // bad credentials
	KindForbidden                    // authenticated but not allowed
	KindNotFound
	KindConflict
	KindUnavailable // optional backend not configured or down
)

// Error is an expected failure with a message safe to show to clients.
type Error struct {
	Kind    Kind
	Message string
	Details []string
}

func (e *Error) Error() string { return e.Message }

func errf(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func invalid(format string, args ...any) *Error    { return errf(KindInvalid, format, args...) }
func badRequest(format string, args ...any) *Error { return errf(KindBadRequest, format, args...) }
func forbidden(format string, args ...any) *Error  { return errf(KindForbidden, format, args...) }
func notFound(format string, args ...any) *Error   { return errf(KindNotFound, format, args...) }
func conflict(format string, args ...any) *Error   { return errf(KindConflict, format, args...) }

// KindOf returns the kind of err, or 0 for unexpected errors.
func KindOf(err error) Kind {
	var se *Error
	if errors.As(err, &se) {
		return se.Kind
	}
	return 0
}
