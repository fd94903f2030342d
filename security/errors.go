package security

import (
	"errors"
	"fmt"
)

// ErrorType represents the category of a security failure
type ErrorType string

const (
	ErrorTypeNotConfigured       ErrorType = "not_configured"
	ErrorTypeValidation          ErrorType = "validation"
	ErrorTypeUnauthenticated     ErrorType = "unauthenticated"
	ErrorTypeForbidden           ErrorType = "forbidden"
	ErrorTypeMalformedCredential ErrorType = "malformed_credential"
)

// NotConfiguredMessage is reported when Setup was never called for the application.
const NotConfiguredMessage = "Security subsystem is not initialized, call security.Setup(...) first"

// Error is a structured security failure
type Error struct {
	Type    ErrorType
	Message string
	Err     error
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s (%v)", e.Type, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Type, e.Message)
}

// Unwrap implements errors.Unwrap
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches any *Error of the same type.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Type == t.Type
}

// NewError creates a new security error
func NewError(errType ErrorType, message string, err error) *Error {
	return &Error{
		Type:    errType,
		Message: message,
		Err:     err,
	}
}

var (
	ErrNotConfigured = NewError(ErrorTypeNotConfigured, NotConfiguredMessage, nil)

	ErrInvalidIdentity   = NewError(ErrorTypeValidation, "identity must be a non-empty token", nil)
	ErrInvalidPermission = NewError(ErrorTypeValidation, "permission must be non-empty", nil)
	ErrInvalidPolicy     = NewError(ErrorTypeNotConfigured, "identity and authorization policies are required", nil)

	ErrUnauthenticated = NewError(ErrorTypeUnauthenticated, "authentication required", nil)
	ErrForbidden       = NewError(ErrorTypeForbidden, "access forbidden", nil)

	ErrMalformedCredential = NewError(ErrorTypeMalformedCredential, "malformed credential", nil)
)

// MalformedCredential wraps a parsing or verification failure of a presented credential.
func MalformedCredential(message string, err error) error {
	return NewError(ErrorTypeMalformedCredential, message, err)
}

// IsConfigurationError checks if err reports an unbound or misconfigured security subsystem
func IsConfigurationError(err error) bool {
	return errorType(err) == ErrorTypeNotConfigured
}

// IsValidationError checks if err is a caller contract violation
func IsValidationError(err error) bool {
	return errorType(err) == ErrorTypeValidation
}

// IsUnauthenticated checks if err means no identity could be resolved
func IsUnauthenticated(err error) bool {
	return errorType(err) == ErrorTypeUnauthenticated
}

// IsForbidden checks if err means the identity lacks the permission
func IsForbidden(err error) bool {
	return errorType(err) == ErrorTypeForbidden
}

// IsMalformedCredential checks if err means a presented credential was rejected
func IsMalformedCredential(err error) bool {
	return errorType(err) == ErrorTypeMalformedCredential
}

// GetErrorType returns the ErrorType of a security error, or empty string otherwise
func GetErrorType(err error) ErrorType {
	return errorType(err)
}

func errorType(err error) ErrorType {
	var secErr *Error
	if errors.As(err, &secErr) {
		return secErr.Type
	}
	return ""
}
