package filedepot

import (
	"errors"
	"fmt"
	"net/http"
)

var (
	// ErrNotFound is returned when a file, version, or record is not found
	ErrNotFound = errors.New("not found")
	// ErrInternal is returned when a storage or metadata backend fails
	ErrInternal = errors.New("internal error")
	// ErrInvalidInput is returned when input validation fails
	ErrInvalidInput = errors.New("invalid input")
	// ErrForbidden is returned when an operation is rejected
	ErrForbidden = errors.New("forbidden")
)

// Error carries an HTTP-style status code alongside a message. All public
// surfaces of the package report failures through this type so the blocking
// and channel call forms observe identical code/message pairs.
type Error struct {
	Code    int
	Message string
	err     error
}

func (e *Error) Error() string {
	return fmt.Sprintf("[%d] %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error { return e.err }

// NewError builds a coded error wrapping the sentinel matching code, so
// errors.Is keeps working across the coded and sentinel representations.
func NewError(code int, message string) *Error {
	var sentinel error
	switch code {
	case http.StatusBadRequest:
		sentinel = ErrInvalidInput
	case http.StatusForbidden:
		sentinel = ErrForbidden
	case http.StatusNotFound:
		sentinel = ErrNotFound
	default:
		sentinel = ErrInternal
	}
	return &Error{Code: code, Message: message, err: sentinel}
}

func newErrorf(code int, format string, args ...any) *Error {
	return NewError(code, fmt.Sprintf(format, args...))
}

// HookRejectedError is returned when an OnBeforeUpload hook rejects a
// prepared upload. Reason is whatever the hook returned.
type HookRejectedError struct {
	Reason string
}

func (e *HookRejectedError) Error() string { return e.Reason }

func (e *HookRejectedError) Unwrap() error { return ErrForbidden }

// Code maps err to its HTTP-style status code. Unknown errors map to 500.
func Code(err error) int {
	var ce *Error
	if errors.As(err, &ce) {
		return ce.Code
	}
	var hr *HookRejectedError
	if errors.As(err, &hr) {
		return http.StatusForbidden
	}
	switch {
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
