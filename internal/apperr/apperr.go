// Package apperr defines the error taxonomy shared by the room state
// machine, the relay protocol, and the HTTP layer. Every error carries a
// Kind that maps one-to-one onto a wire code, so a peer can reconstruct
// the typed error from a response body instead of matching on message
// text.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindValidation   Kind = "validation"
	KindNotFound     Kind = "not_found"
	KindUnauthorized Kind = "unauthorized"
	KindConflict     Kind = "conflict"
	KindUnreachable  Kind = "unreachable"
	KindPersistence  Kind = "persistence"
)

type Error struct {
	Kind Kind
	Msg  string
	Err  error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Msg, e.Err)
	}
	return e.Msg
}

func (e *Error) Unwrap() error { return e.Err }

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// Wrap keeps the cause reachable through errors.Is/As.
func Wrap(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Msg: fmt.Sprintf(format, args...), Err: err}
}

func Validation(format string, args ...any) *Error {
	return New(KindValidation, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return New(KindUnauthorized, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return New(KindConflict, format, args...)
}

func Unreachable(err error, format string, args ...any) *Error {
	return Wrap(KindUnreachable, err, format, args...)
}

func Persistence(err error, format string, args ...any) *Error {
	return Wrap(KindPersistence, err, format, args...)
}

// KindOf returns the Kind of err, or KindPersistence for errors outside
// the taxonomy (anything unclassified is treated as an internal fault).
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindPersistence
}

func HTTPStatus(err error) int {
	switch KindOf(err) {
	case KindValidation:
		return http.StatusBadRequest
	case KindNotFound:
		return http.StatusNotFound
	case KindUnauthorized:
		return http.StatusForbidden
	case KindConflict:
		return http.StatusConflict
	case KindUnreachable:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// FromWire rebuilds a typed error from a relay response body.
func FromWire(code, msg string) *Error {
	switch Kind(code) {
	case KindValidation, KindNotFound, KindUnauthorized, KindConflict, KindUnreachable, KindPersistence:
		return New(Kind(code), "%s", msg)
	default:
		return New(KindPersistence, "%s", msg)
	}
}
