// Package common defines the error taxonomy, shared constants and small
// helpers used across the account service. Callers should match errors by
// kind with errors.Is against the Err* sentinels or with KindOf.
package common

import (
	"errors"
	"fmt"
)

// Kind classifies a failure. The set is closed: every error surfaced by the
// core is one of these kinds.
type Kind int

const (
	KindInternal Kind = iota
	KindBadRequest
	KindUnauthorized
	KindForbidden
	KindConflict
	KindNotFound
	KindTeapot
	KindEnhanceYourCalm
)

var kindPrefixes = map[Kind]string{
	KindInternal:        "Error",
	KindBadRequest:      "Bad Request",
	KindUnauthorized:    "Unauthorized",
	KindForbidden:       "Forbidden",
	KindConflict:        "Conflict",
	KindNotFound:        "Not Found",
	KindTeapot:          "Teapot",
	KindEnhanceYourCalm: "Enhance Your Calm",
}

func (k Kind) String() string {
	if p, ok := kindPrefixes[k]; ok {
		return p
	}
	return kindPrefixes[KindInternal]
}

// Error is the single error type returned by the core.
//
// Field and Value are set by validation failures and carry the offending
// input. Err is the wrapped collaborator error, if any.
type Error struct {
	Kind  Kind
	Msg   string
	Field string
	Value string
	Err   error
}

func (e *Error) Error() string {
	return e.Kind.String() + ": " + e.Msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is reports whether target is an *Error of the same kind. Sentinels carry
// no message, so errors.Is(err, ErrConflict) matches any conflict.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	if t.Msg != "" && t.Msg != e.Msg {
		return false
	}
	return t.Kind == e.Kind
}

// Kind sentinels.
var (
	ErrInternal        = &Error{Kind: KindInternal}
	ErrBadRequest      = &Error{Kind: KindBadRequest}
	ErrUnauthorized    = &Error{Kind: KindUnauthorized}
	ErrForbidden       = &Error{Kind: KindForbidden}
	ErrConflict        = &Error{Kind: KindConflict}
	ErrNotFound        = &Error{Kind: KindNotFound}
	ErrTeapot          = &Error{Kind: KindTeapot}
	ErrEnhanceYourCalm = &Error{Kind: KindEnhanceYourCalm}
)

func newError(k Kind, format string, args ...any) *Error {
	return &Error{Kind: k, Msg: fmt.Sprintf(format, args...)}
}

func BadRequest(format string, args ...any) *Error {
	return newError(KindBadRequest, format, args...)
}

// InvalidField reports a malformed input value. The message names both the
// field and the value.
func InvalidField(field, value, reason string) *Error {
	return &Error{
		Kind:  KindBadRequest,
		Msg:   fmt.Sprintf("passed %s %s %s.", field, value, reason),
		Field: field,
		Value: value,
	}
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, format, args...)
}

func Forbidden(format string, args ...any) *Error {
	return newError(KindForbidden, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, format, args...)
}

func Teapot(format string, args ...any) *Error {
	return newError(KindTeapot, format, args...)
}

func EnhanceYourCalm(format string, args ...any) *Error {
	return newError(KindEnhanceYourCalm, format, args...)
}

// Internal wraps a collaborator or infrastructure failure.
func Internal(err error, format string, args ...any) *Error {
	e := newError(KindInternal, format, args...)
	e.Err = err
	if err != nil {
		e.Msg = e.Msg + ": " + err.Error()
	}
	return e
}

// KindOf returns the kind of err. Errors outside the taxonomy are Internal.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// AsInternal passes taxonomy errors through and wraps anything else as an
// Internal error with the given context.
func AsInternal(err error, context string) error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return err
	}
	return Internal(err, "%s", context)
}
