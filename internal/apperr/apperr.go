// Package apperr gives the ring runtime a single error shape for the
// programmer-precondition failures spec.md §7 calls out as never recovered.
// It is a trimmed copy of the teacher's pkg/errors: the HTTP/gRPC status
// mapping half has no home here, since this service has no HTTP surface.
package apperr

import "fmt"

const (
	CodeInvalidArgument = "INVALID_ARGUMENT"
	CodeNotFound        = "NOT_FOUND"
	CodeInternal        = "INTERNAL"
)

// AppError is a coded error with an optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Err     error
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

func New(code, message string, err error) *AppError {
	return &AppError{Code: code, Message: message, Err: err}
}

func InvalidArgument(msg string, err error) *AppError {
	if msg == "" {
		msg = "invalid argument"
	}
	return New(CodeInvalidArgument, msg, err)
}

func NotFound(msg string, err error) *AppError {
	if msg == "" {
		msg = "not found"
	}
	return New(CodeNotFound, msg, err)
}

func Internal(msg string, err error) *AppError {
	if msg == "" {
		msg = "internal error"
	}
	return New(CodeInternal, msg, err)
}
