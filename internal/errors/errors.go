// Package errors provides a lightweight structured error type for
// category-based classification across the session, replication and
// persistence layers.
package errors

import (
	"fmt"
)

// ErrorCategory classifies a pickit error.
type ErrorCategory string

const (
	// User-facing configuration and input errors
	CategoryConfig     ErrorCategory = "config"
	CategoryValidation ErrorCategory = "validation"

	// Peer link and replication errors
	CategoryTransport ErrorCategory = "transport"
	CategorySession   ErrorCategory = "session"

	// Durable cache errors
	CategoryPersistence ErrorCategory = "persistence"

	// Runtime and infrastructure errors
	CategoryInternal ErrorCategory = "internal"
)

// ErrorSeverity indicates how critical an error is.
type ErrorSeverity string

const (
	SeverityFatal   ErrorSeverity = "fatal"   // Stops execution
	SeverityError   ErrorSeverity = "error"   // Error, but not fatal
	SeverityWarning ErrorSeverity = "warning" // Continues with degraded functionality
)

// ContextFields carries structured context for a PickitError.
type ContextFields map[string]any

// PickitError is a structured error with category, severity and context.
// Nothing in the core escalates one of these to a process exit; the
// worst case is a logged warning and a temporarily unsynchronized peer.
type PickitError struct {
	Category ErrorCategory `json:"category"`
	Severity ErrorSeverity `json:"severity"`
	Message  string        `json:"message"`
	Cause    error         `json:"cause,omitempty"`
	Context  ContextFields `json:"context,omitempty"`
}

// Error implements the error interface.
func (e *PickitError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s (%s): %s: %v", e.Category, e.Severity, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s (%s): %s", e.Category, e.Severity, e.Message)
}

// Unwrap implements error unwrapping.
func (e *PickitError) Unwrap() error {
	return e.Cause
}

// WithContext adds context information to the error.
func (e *PickitError) WithContext(key string, value any) *PickitError {
	if e.Context == nil {
		e.Context = make(ContextFields)
	}
	e.Context[key] = value
	return e
}

// New creates a new PickitError.
func New(category ErrorCategory, severity ErrorSeverity, message string) *PickitError {
	return &PickitError{
		Category: category,
		Severity: severity,
		Message:  message,
	}
}

// Wrap creates a new PickitError that wraps an existing error.
func Wrap(err error, category ErrorCategory, severity ErrorSeverity, message string) *PickitError {
	return &PickitError{
		Category: category,
		Severity: severity,
		Message:  message,
		Cause:    err,
	}
}

// IsCategory checks if an error belongs to a specific category.
func IsCategory(err error, category ErrorCategory) bool {
	if pe, ok := err.(*PickitError); ok {
		return pe.Category == category
	}
	return false
}

// GetCategory extracts the category from an error, or CategoryInternal
// if it is not a PickitError.
func GetCategory(err error) ErrorCategory {
	if pe, ok := err.(*PickitError); ok {
		return pe.Category
	}
	return CategoryInternal
}
