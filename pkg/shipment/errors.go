package shipment

import (
	"errors"
	"fmt"
)

// ValidationError is a business rule violation detected before any carrier call.
type ValidationError struct {
	Rule    string
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return e.Message
}

// NewValidationError creates a new ValidationError.
func NewValidationError(rule, message string) *ValidationError {
	return &ValidationError{Rule: rule, Message: message}
}

// MappingError means the request data is incomplete or malformed and no
// carrier request could be built from it.
type MappingError struct {
	Field   string
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *MappingError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause.
func (e *MappingError) Unwrap() error {
	return e.Cause
}

// NewMappingError creates a new MappingError.
func NewMappingError(field, message string) *MappingError {
	return &MappingError{Field: field, Message: message}
}

// WithCause adds a cause to the error.
func (e *MappingError) WithCause(err error) *MappingError {
	e.Cause = err
	return e
}

// ServiceError represents a general carrier web service failure that cannot be
// attributed to a single item (transport, authentication, unparseable response).
type ServiceError struct {
	Code       string
	Message    string
	StatusCode int
	Retryable  bool
	Cause      error
}

// Error implements the error interface.
func (e *ServiceError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("carrier error (%s): %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("carrier error (%s): %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *ServiceError) Unwrap() error {
	return e.Cause
}

// Is implements errors.Is for ServiceError.
func (e *ServiceError) Is(target error) bool {
	t, ok := target.(*ServiceError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewServiceError creates a new ServiceError.
func NewServiceError(code, message string) *ServiceError {
	return &ServiceError{
		Code:    code,
		Message: message,
	}
}

// WithCause adds a cause to the error.
func (e *ServiceError) WithCause(err error) *ServiceError {
	e.Cause = err
	return e
}

// WithStatusCode adds an HTTP status code to the error.
func (e *ServiceError) WithStatusCode(code int) *ServiceError {
	e.StatusCode = code
	return e
}

// WithRetryable marks the error as retryable.
func (e *ServiceError) WithRetryable(retryable bool) *ServiceError {
	e.Retryable = retryable
	return e
}

// DetailedServiceError means the carrier rejected the batch with a
// structured, human-readable message.
type DetailedServiceError struct {
	Code     string
	Messages []string
}

// Error implements the error interface.
func (e *DetailedServiceError) Error() string {
	if len(e.Messages) == 0 {
		return fmt.Sprintf("request rejected by carrier (%s)", e.Code)
	}
	msg := e.Messages[0]
	for _, m := range e.Messages[1:] {
		msg += " " + m
	}
	return msg
}

// Sentinel errors.
var (
	// ErrStoreNotConfigured indicates no carrier settings exist for a store.
	ErrStoreNotConfigured = errors.New("store not configured")

	// ErrDuplicateRequestIndex indicates two items of one batch share an index.
	ErrDuplicateRequestIndex = errors.New("duplicate request index")

	// ErrIncompleteRun indicates a pipeline run left items without an outcome.
	ErrIncompleteRun = errors.New("pipeline run incomplete")

	// ErrServiceUnavailable indicates the carrier service is temporarily unavailable.
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrAuthenticationFailed indicates carrier authentication failed.
	ErrAuthenticationFailed = errors.New("authentication failed")
)

// IsRetryable returns true if the error is retryable.
func IsRetryable(err error) bool {
	var detailed *DetailedServiceError
	if errors.As(err, &detailed) {
		return false
	}
	var serviceErr *ServiceError
	if errors.As(err, &serviceErr) {
		return serviceErr.Retryable
	}
	return errors.Is(err, ErrServiceUnavailable)
}
