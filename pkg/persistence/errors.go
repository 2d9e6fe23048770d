// Package persistence provides standardized error types for persistence operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrFlowNotFound indicates a flow was not found by the given identifier.
	ErrFlowNotFound = errors.New("flow not found")

	// ErrLeadSourceNotFound indicates a lead source was not found by the given identifier.
	ErrLeadSourceNotFound = errors.New("lead source not found")

	// ErrEmailTemplateNotFound indicates an email template was not found by the given identifier.
	ErrEmailTemplateNotFound = errors.New("email template not found")

	// ErrScheduledEmailNotFound indicates a scheduled email row was not found.
	ErrScheduledEmailNotFound = errors.New("scheduled email not found")
)

// RecordError wraps record-level errors with the operation and record that failed.
type RecordError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Kind     string // Record kind ("flow", "lead source", ...)
	RecordID string // Record ID if applicable
	Err      error  // Underlying error
}

func (e *RecordError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Kind, e.RecordID, e.Err)
}

func (e *RecordError) Unwrap() error {
	return e.Err
}

// Is implements error comparison for record errors.
func (e *RecordError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewFlowError creates a new flow error with context.
func NewFlowError(op, flowID string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "flow", RecordID: flowID, Err: err}
}

// NewLeadSourceError creates a new lead source error with context.
func NewLeadSourceError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "lead source", RecordID: id, Err: err}
}

// NewEmailTemplateError creates a new email template error with context.
func NewEmailTemplateError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "email template", RecordID: id, Err: err}
}

// NewScheduledEmailError creates a new scheduled email error with context.
func NewScheduledEmailError(op, id string, err error) *RecordError {
	return &RecordError{Op: op, Kind: "scheduled email", RecordID: id, Err: err}
}

// IsFlowNotFound checks if an error indicates a flow was not found.
func IsFlowNotFound(err error) bool {
	return errors.Is(err, ErrFlowNotFound)
}

// IsLeadSourceNotFound checks if an error indicates a lead source was not found.
func IsLeadSourceNotFound(err error) bool {
	return errors.Is(err, ErrLeadSourceNotFound)
}

// IsEmailTemplateNotFound checks if an error indicates an email template was not found.
func IsEmailTemplateNotFound(err error) bool {
	return errors.Is(err, ErrEmailTemplateNotFound)
}

// IsNotFound checks if an error indicates any record was not found.
func IsNotFound(err error) bool {
	return IsFlowNotFound(err) ||
		IsLeadSourceNotFound(err) ||
		IsEmailTemplateNotFound(err) ||
		errors.Is(err, ErrScheduledEmailNotFound)
}
