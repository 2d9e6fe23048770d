// Package services implements the flow, lead source and email template
// operations behind the HTTP API.
package services

import (
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"

	"github.com/dukex/mailflow/pkg/engine"
	"github.com/dukex/mailflow/pkg/persistence"
)

var (
	// ErrFlowNotFound is returned when a flow does not exist or belongs to another user.
	ErrFlowNotFound = persistence.ErrFlowNotFound
	// ErrLeadSourceNotFound is returned when a lead source does not exist or belongs to another user.
	ErrLeadSourceNotFound = persistence.ErrLeadSourceNotFound
	// ErrEmailTemplateNotFound is returned when a template does not exist or belongs to another user.
	ErrEmailTemplateNotFound = persistence.ErrEmailTemplateNotFound
)

// Business Logic Errors - These indicate client errors (4xx responses).
var (
	ErrInvalidRequest = errors.New("invalid request")
	ErrEmptyOwnerID   = errors.New("owner ID cannot be empty")
	ErrEmptyOwnerMail = errors.New("owner email cannot be empty when starting a flow")
)

// Conflict Errors - These indicate a state conflict (409 responses).
var (
	ErrResourceInUse = errors.New("resource is used by a running flow")
)

// ServiceError wraps service-level errors with additional context.
type ServiceError struct {
	Op      string // Operation name
	Code    string // Error code for API responses
	Message string // Human-readable message
	Err     error  // Underlying error
}

func (e *ServiceError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("%s: %s", e.Op, e.Message)
	}

	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

func (e *ServiceError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// IsValidationError checks if an error is a validation error that should return HTTP 400.
func IsValidationError(err error) bool {
	return errors.Is(err, ErrInvalidRequest) ||
		errors.Is(err, ErrEmptyOwnerID) ||
		errors.Is(err, ErrEmptyOwnerMail) ||
		engine.IsValidationError(err)
}

// IsConflictError checks if an error is a conflict error that should return HTTP 409.
func IsConflictError(err error) bool {
	return errors.Is(err, ErrResourceInUse)
}

// IsNotFound checks if an error should return HTTP 404.
func IsNotFound(err error) bool {
	return persistence.IsNotFound(err)
}

// IsCancellationError checks if outstanding jobs could not be canceled (HTTP 502).
func IsCancellationError(err error) bool {
	return engine.IsCancellationError(err)
}

// NewValidationError creates a new validation error with context.
func NewValidationError(op, code, message string, err error) *ServiceError {
	return &ServiceError{
		Op:      op,
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// invalidInput turns struct validation failures into a ServiceError naming the first bad field.
func invalidInput(op string, err error) error {
	var fieldErrs validator.ValidationErrors
	if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
		field := fieldErrs[0]

		return NewValidationError(op, "invalid_"+field.Tag(),
			fmt.Sprintf("%s failed on the '%s' rule", field.Namespace(), field.Tag()), ErrInvalidRequest)
	}

	return NewValidationError(op, "invalid_request", err.Error(), ErrInvalidRequest)
}
