package mc

import (
	"errors"
	"fmt"
)

// Error is the typed error shared by every mcjob component.
//
// The code decides how far an error propagates:
//   - Configuration: fatal, surfaced immediately, aborts the task
//   - Persistence: fatal to the affected run only
//   - InsufficientData: marks one statistic unavailable
//   - CollectiveDesync: fatal to the whole parallel-run group
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Task is the affected task name, if known.
	Task string

	// Run is the affected run index, or -1 if not run specific.
	Run int

	// Err is the underlying cause, if any.
	Err error
}

// ErrorCode categorizes errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates malformed parameters, mismatched
	// observable shapes or an incompatible checkpoint version.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodePersistence indicates a checkpoint write or read failure.
	ErrCodePersistence ErrorCode = "PERSISTENCE"

	// ErrCodeInsufficientData indicates too few bins for a statistic.
	ErrCodeInsufficientData ErrorCode = "INSUFFICIENT_DATA"

	// ErrCodeCollectiveDesync indicates ranks disagreeing on a collective round.
	ErrCodeCollectiveDesync ErrorCode = "COLLECTIVE_DESYNC"
)

// Error implements the error interface.
func (e *Error) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	switch {
	case e.Task != "" && e.Run >= 0:
		msg = fmt.Sprintf("%s (task=%s, run=%d)", msg, e.Task, e.Run)
	case e.Task != "":
		msg = fmt.Sprintf("%s (task=%s)", msg, e.Task)
	}
	if e.Err != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.Err
}

// WithTask returns a copy of e annotated with a task name and run index.
// Existing annotations are kept.
func (e *Error) WithTask(task string, run int) *Error {
	c := *e
	if c.Task == "" {
		c.Task = task
	}
	if c.Run < 0 {
		c.Run = run
	}
	return &c
}

// NewConfigurationError creates a configuration error.
func NewConfigurationError(message string) *Error {
	return &Error{Code: ErrCodeConfiguration, Message: message, Run: -1}
}

// NewPersistenceError creates a persistence error wrapping err.
func NewPersistenceError(message string, err error) *Error {
	return &Error{Code: ErrCodePersistence, Message: message, Run: -1, Err: err}
}

// NewInsufficientDataError creates an insufficient data error.
func NewInsufficientDataError(message string) *Error {
	return &Error{Code: ErrCodeInsufficientData, Message: message, Run: -1}
}

// NewDesyncError creates a collective desync error.
func NewDesyncError(message string) *Error {
	return &Error{Code: ErrCodeCollectiveDesync, Message: message, Run: -1}
}

// CodeOf returns the code of the first Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// IsConfigurationError returns true if err is a configuration error.
func IsConfigurationError(err error) bool {
	return CodeOf(err) == ErrCodeConfiguration
}

// IsPersistenceError returns true if err is a persistence error.
func IsPersistenceError(err error) bool {
	return CodeOf(err) == ErrCodePersistence
}

// IsInsufficientDataError returns true if err is an insufficient data error.
func IsInsufficientDataError(err error) bool {
	return CodeOf(err) == ErrCodeInsufficientData
}

// IsDesyncError returns true if err is a collective desync error.
func IsDesyncError(err error) bool {
	return CodeOf(err) == ErrCodeCollectiveDesync
}
