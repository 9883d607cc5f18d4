package errors

import (
	stderrors "errors"
	"fmt"
	"time"
)

// Error is a structured error carrying a code, category, and metadata.
type Error struct {
	code      ErrorCode
	category  ErrorCategory
	message   string
	cause     error
	taskID    string
	url       string
	timestamp time.Time
}

// Error returns the error message.
func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %v", e.message, e.cause)
	}
	return e.message
}

// Code returns the error code.
func (e *Error) Code() ErrorCode {
	return e.code
}

// Category returns the error category.
func (e *Error) Category() ErrorCategory {
	return e.category
}

// Unwrap returns the underlying cause.
func (e *Error) Unwrap() error {
	return e.cause
}

// TaskID returns the related task ID, if set.
func (e *Error) TaskID() string {
	return e.taskID
}

// URL returns the related URL, if set.
func (e *Error) URL() string {
	return e.url
}

// Timestamp returns when the error occurred.
func (e *Error) Timestamp() time.Time {
	return e.timestamp
}

// Option is a functional option for configuring an Error.
type Option func(*Error)

// WithCategory overrides the code's default category.
func WithCategory(cat ErrorCategory) Option {
	return func(e *Error) {
		e.category = cat
	}
}

// WithCause sets the underlying cause.
func WithCause(cause error) Option {
	return func(e *Error) {
		e.cause = cause
	}
}

// WithTaskID sets the related task ID.
func WithTaskID(id string) Option {
	return func(e *Error) {
		e.taskID = id
	}
}

// WithURL sets the related URL.
func WithURL(url string) Option {
	return func(e *Error) {
		e.url = url
	}
}

// New creates a new Error with the given code and message.
func New(code ErrorCode, message string, opts ...Option) *Error {
	e := &Error{
		code:      code,
		category:  code.DefaultCategory(),
		message:   message,
		timestamp: time.Now(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Newf creates a new Error with a formatted message.
func Newf(code ErrorCode, format string, args ...interface{}) *Error {
	return New(code, fmt.Sprintf(format, args...))
}

// Wrap creates a new Error with the given cause attached.
func Wrap(code ErrorCode, message string, cause error, opts ...Option) *Error {
	opts = append([]Option{WithCause(cause)}, opts...)
	return New(code, message, opts...)
}

// BadArguments creates a validation error for malformed task arguments.
func BadArguments(taskID string, cause error) *Error {
	return New(ErrCodeBadArguments, "invalid task arguments",
		WithTaskID(taskID), WithCause(cause))
}

// UnsafeURL creates a validation error for a URL that failed the safety check.
// The message carries the "Security Error: " prefix the ledger expects in the
// Failed payload.
func UnsafeURL(url, reason string) *Error {
	return New(ErrCodeUnsafeURL, "Security Error: "+reason, WithURL(url))
}

// BackendFailed creates an execution error wrapping a backend failure.
func BackendFailed(url string, cause error) *Error {
	return New(ErrCodeBackendFailed, fmt.Sprintf("Failed to process webpage: %v", cause),
		WithURL(url), WithCause(cause))
}

// AlreadyTerminal creates a benign gateway rejection for a task whose
// terminal state was already set on the ledger.
func AlreadyTerminal(taskID string) *Error {
	return New(ErrCodeAlreadyTerminal,
		fmt.Sprintf("task %s already in terminal state", taskID), WithTaskID(taskID))
}

// LedgerFault creates a gateway fault error.
func LedgerFault(message string, cause error) *Error {
	return Wrap(ErrCodeLedgerFault, message, cause)
}

// Config creates a fatal configuration error.
func Config(message string, opts ...Option) *Error {
	return New(ErrCodeConfig, message, opts...)
}

// CategoryOf returns the category of err, unwrapping as needed.
// Unclassified errors default to CategoryExecution.
func CategoryOf(err error) ErrorCategory {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Category()
	}
	return CategoryExecution
}

// CodeOf returns the code of err, or empty for unclassified errors.
func CodeOf(err error) ErrorCode {
	var e *Error
	if stderrors.As(err, &e) {
		return e.Code()
	}
	return ""
}

// IsAlreadyTerminal reports whether err is the benign idempotent rejection
// from a terminal transition that had already been applied.
func IsAlreadyTerminal(err error) bool {
	return CodeOf(err) == ErrCodeAlreadyTerminal
}

// IsFatal reports whether err must abort process startup.
func IsFatal(err error) bool {
	return CategoryOf(err) == CategoryFatal
}
