// Package errors provides structured error handling for the bridge.
// It defines error types carrying a category, severity, and context so callers
// can classify failures (retry the session, drop the line, log and move on)
// without string matching.
package errors

import (
	"fmt"
)

// Category classifies an error for recovery decisions.
type Category string

const (
	CategoryTransport  Category = "transport"
	CategoryProtocol   Category = "protocol"
	CategoryValidation Category = "validation"
	CategoryDelivery   Category = "delivery"
	CategoryTimeout    Category = "timeout"
	CategoryInternal   Category = "internal"
)

// Severity indicates how critical an error is.
type Severity string

const (
	SeverityWarning  Severity = "warning"
	SeverityError    Severity = "error"
	SeverityCritical Severity = "critical"
)

// Context records where an error occurred.
type Context struct {
	Component string `json:"component,omitempty"`
	Operation string `json:"operation,omitempty"`
	Endpoint  string `json:"endpoint,omitempty"`
}

// BridgeError is the interface implemented by all bridge errors.
type BridgeError interface {
	error

	// Code returns the numeric error code.
	Code() int

	// Message returns the human-readable error message.
	Message() string

	// Category returns the error category for classification.
	Category() Category

	// Severity returns the error severity level.
	Severity() Severity

	// Context returns the error context, or nil.
	Context() *Context

	// WithContext returns a copy of the error with the provided context.
	WithContext(ctx *Context) BridgeError

	// WithDetail returns a copy of the error with additional detail.
	WithDetail(detail string) BridgeError

	// Unwrap returns the underlying cause for error chain traversal.
	Unwrap() error
}

// baseError implements BridgeError.
type baseError struct {
	code     int
	message  string
	detail   string
	category Category
	severity Severity
	context  *Context
	cause    error
}

func (e *baseError) Error() string {
	if e.detail != "" {
		return fmt.Sprintf("%s: %s", e.message, e.detail)
	}
	return e.message
}

func (e *baseError) Code() int          { return e.code }
func (e *baseError) Message() string    { return e.message }
func (e *baseError) Category() Category { return e.category }
func (e *baseError) Severity() Severity { return e.severity }
func (e *baseError) Context() *Context  { return e.context }
func (e *baseError) Unwrap() error      { return e.cause }

func (e *baseError) WithContext(ctx *Context) BridgeError {
	clone := *e
	clone.context = ctx
	return &clone
}

func (e *baseError) WithDetail(detail string) BridgeError {
	clone := *e
	clone.detail = detail
	return &clone
}

// NewError creates a new BridgeError.
func NewError(code int, message string, category Category, severity Severity) BridgeError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
	}
}

// WrapError creates a new BridgeError wrapping an underlying cause.
func WrapError(cause error, code int, message string, category Category, severity Severity) BridgeError {
	return &baseError{
		code:     code,
		message:  message,
		category: category,
		severity: severity,
		cause:    cause,
	}
}

// CategoryOf returns the category of err if it is a BridgeError, or
// CategoryInternal otherwise.
func CategoryOf(err error) Category {
	if be, ok := err.(BridgeError); ok {
		return be.Category()
	}
	return CategoryInternal
}
