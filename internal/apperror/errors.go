// Package apperror defines the error kinds the services surface to callers.
package apperror

import (
	"errors"
	"fmt"
)

// Kind classifies an error so the transport layer can react to it specifically.
type Kind string

const (
	KindNotFound           Kind = "not_found"
	KindInvalidOperation   Kind = "invalid_operation"
	KindUnauthorized       Kind = "unauthorized"
	KindConflict           Kind = "conflict"
	KindStorageUnavailable Kind = "storage_unavailable"
	KindInternal           Kind = "internal"
)

// Error is a typed application error.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(kind Kind, err error, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

func NotFound(format string, args ...any) *Error {
	return newError(KindNotFound, nil, format, args...)
}

func InvalidOperation(format string, args ...any) *Error {
	return newError(KindInvalidOperation, nil, format, args...)
}

func Unauthorized(format string, args ...any) *Error {
	return newError(KindUnauthorized, nil, format, args...)
}

func Conflict(format string, args ...any) *Error {
	return newError(KindConflict, nil, format, args...)
}

// StorageUnavailable wraps a store failure the caller may retry.
func StorageUnavailable(err error, format string, args ...any) *Error {
	return newError(KindStorageUnavailable, err, format, args...)
}

// KindOf returns the kind of the first *Error in err's chain, or KindInternal.
func KindOf(err error) Kind {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Kind
	}
	return KindInternal
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// MessageOf returns the client-facing message carried by err.
func MessageOf(err error) string {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr.Message
	}
	return "Something went wrong"
}
