// Package api
// Author: momentics <momentics@gmail.com>
//
// Common error types and error handling utilities for hioload-frame.

package api

import (
	"errors"
	"fmt"
)

// Common errors used across the library.
var (
	// ErrIndexOutOfBounds reports an invalid offset or length passed to a
	// Buffer or Segment accessor. It indicates a programming error.
	ErrIndexOutOfBounds = errors.New("index out of bounds")

	// ErrInsufficientData reports a sequential read that demands more bytes
	// than remain. The caller may retry once more bytes arrive.
	ErrInsufficientData = errors.New("insufficient data")

	// ErrFraming reports a fatal framing protocol error.
	ErrFraming = errors.New("framing error")

	// ErrFilterRejected reports a filter that refused a message.
	ErrFilterRejected = errors.New("filter rejected message")

	// ErrReleased reports use of a pooled object after it was released.
	ErrReleased = errors.New("use of released object")

	ErrChannelClosed     = errors.New("channel is closed")
	ErrTransportClosed   = errors.New("transport is closed")
	ErrInvalidArgument   = errors.New("invalid argument")
	ErrResourceExhausted = errors.New("resource exhausted")
	ErrNotSupported      = errors.New("operation not supported")
	ErrExecutorClosed    = errors.New("executor is closed")
)

// ErrorCode represents specific error conditions in the library.
type ErrorCode int

const (
	ErrCodeOK ErrorCode = iota
	ErrCodeInvalidArgument
	ErrCodeResourceExhausted
	ErrCodeNotSupported
	ErrCodeFraming
	ErrCodeTransport
	ErrCodeInternal
)

func (c ErrorCode) String() string {
	switch c {
	case ErrCodeOK:
		return "ok"
	case ErrCodeInvalidArgument:
		return "invalid_argument"
	case ErrCodeResourceExhausted:
		return "resource_exhausted"
	case ErrCodeNotSupported:
		return "not_supported"
	case ErrCodeFraming:
		return "framing"
	case ErrCodeTransport:
		return "transport"
	default:
		return "internal"
	}
}

// Error represents a structured error with code and context.
type Error struct {
	Code    ErrorCode
	Message string
	Context map[string]any
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	msg := e.Message
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	if len(e.Context) == 0 {
		return msg
	}
	return fmt.Sprintf("%s (context: %+v)", msg, e.Context)
}

// Unwrap exposes the wrapped sentinel to errors.Is.
func (e *Error) Unwrap() error { return e.Err }

// NewError creates a new structured error.
func NewError(code ErrorCode, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Context: make(map[string]any),
	}
}

// WithContext adds context information to the error.
func (e *Error) WithContext(key string, value any) *Error {
	if e.Context == nil {
		e.Context = make(map[string]any)
	}
	e.Context[key] = value
	return e
}

// Wrap attaches a cause, usually one of the sentinels above.
func (e *Error) Wrap(err error) *Error {
	e.Err = err
	return e
}

// FramingError builds the error returned when a filter stage fails.
func FramingError(stage int, message string) *Error {
	return NewError(ErrCodeFraming, message).Wrap(ErrFraming).WithContext("stage", stage)
}
