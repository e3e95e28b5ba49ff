package utils

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidArgument marks errors caused by caller input.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound marks lookups of unknown entities.
	ErrNotFound = errors.New("not found")
)

// AppError wraps an operation, human-facing message, and underlying error.
type AppError struct {
	Op  string
	Msg string
	Err error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op, msg string, err error) error {
	return &AppError{Op: op, Msg: msg, Err: err}
}

// InvalidArgument reports bad caller input for op.
func InvalidArgument(op, msg string) error {
	return &AppError{Op: op, Msg: msg, Err: ErrInvalidArgument}
}

// Message returns the human-facing part of err when it is an AppError.
func Message(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Msg
	}
	if err == nil {
		return ""
	}
	return err.Error()
}
