package errors

import (
	"errors"
	"fmt"
	"runtime"
	"strings"
)

// ErrorType classifies an error for HTTP mapping and retry decisions
type ErrorType string

const (
	ErrorTypeValidation     ErrorType = "validation"
	ErrorTypeAuthentication ErrorType = "authentication"
	ErrorTypeNotFound       ErrorType = "not_found"
	ErrorTypeConflict       ErrorType = "conflict"
	ErrorTypeInternal       ErrorType = "internal"
	ErrorTypeExternal       ErrorType = "external"
	ErrorTypeTimeout        ErrorType = "timeout"
	ErrorTypeRateLimit      ErrorType = "rate_limit"
	ErrorTypeDatabase       ErrorType = "database"
	ErrorTypeNetwork        ErrorType = "network"
	ErrorTypeConfiguration  ErrorType = "configuration"
)

// ErrorCode identifies the specific failure
type ErrorCode string

const (
	// Signature verification
	CodeSignatureMissing ErrorCode = "signature_missing"
	CodeSignatureInvalid ErrorCode = "signature_invalid"
	CodeWebhookUnknown   ErrorCode = "webhook_unknown"

	// Validation
	CodeInvalidInput  ErrorCode = "invalid_input"
	CodeMissingField  ErrorCode = "missing_field"
	CodeInvalidFormat ErrorCode = "invalid_format"

	// Resources
	CodeResourceNotFound ErrorCode = "resource_not_found"
	CodeResourceExists   ErrorCode = "resource_exists"

	// Delivery processing
	CodeDuplicateDelivery ErrorCode = "duplicate_delivery"
	CodeDispatchFailed    ErrorCode = "dispatch_failed"

	// System
	CodeDatabaseConnection ErrorCode = "database_connection"
	CodeDatabaseQuery      ErrorCode = "database_query"
	CodeExternalService    ErrorCode = "external_service"
	CodeTimeout            ErrorCode = "timeout"
	CodeRateLimit          ErrorCode = "rate_limit"
	CodeConfiguration      ErrorCode = "configuration"
	CodeInternal           ErrorCode = "internal_error"
)

// AppError is the structured error carried through the service
type AppError struct {
	Type         ErrorType              `json:"type"`
	Code         ErrorCode              `json:"code"`
	Message      string                 `json:"message"`
	Details      string                 `json:"details,omitempty"`
	Cause        error                  `json:"-"`
	Context      map[string]interface{} `json:"context,omitempty"`
	StackTrace   string                 `json:"stack_trace,omitempty"`
	Retryable    bool                   `json:"retryable"`
	retryableSet bool
}

func (e *AppError) Error() string {
	if e.Details != "" {
		return fmt.Sprintf("%s: %s - %s", e.Code, e.Message, e.Details)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// WithContext adds a key/value pair to the error context
func (e *AppError) WithContext(key string, value interface{}) *AppError {
	if e.Context == nil {
		e.Context = make(map[string]interface{})
	}
	e.Context[key] = value
	return e
}

// WithDetails adds additional details
func (e *AppError) WithDetails(details string) *AppError {
	e.Details = details
	return e
}

// New creates a new AppError
func New(errorType ErrorType, code ErrorCode, message string) *AppError {
	return &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Context: make(map[string]interface{}),
	}
}

// Newf creates a new AppError with a formatted message
func Newf(errorType ErrorType, code ErrorCode, format string, args ...interface{}) *AppError {
	return New(errorType, code, fmt.Sprintf(format, args...))
}

// Wrap wraps an existing error with classification. Retryability of a
// wrapped AppError is preserved.
func Wrap(err error, errorType ErrorType, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}

	wrapped := &AppError{
		Type:    errorType,
		Code:    code,
		Message: message,
		Cause:   err,
		Context: make(map[string]interface{}),
	}
	if appErr, ok := err.(*AppError); ok {
		wrapped.Retryable = appErr.Retryable
		wrapped.retryableSet = appErr.retryableSet
	}
	return wrapped
}

// Wrapf wraps an existing error with a formatted message
func Wrapf(err error, errorType ErrorType, code ErrorCode, format string, args ...interface{}) *AppError {
	return Wrap(err, errorType, code, fmt.Sprintf(format, args...))
}

// Is reports whether any error in err's chain matches target
func Is(err error, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// GetAppError extracts an AppError from the error chain, or nil
func GetAppError(err error) *AppError {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if As(err, &appErr) {
		return appErr
	}
	return nil
}

// Common error constructors

// ValidationError creates a validation error
func ValidationError(code ErrorCode, message string) *AppError {
	return New(ErrorTypeValidation, code, message)
}

// AuthenticationError creates an authentication error
func AuthenticationError(code ErrorCode, message string) *AppError {
	return New(ErrorTypeAuthentication, code, message)
}

// NotFoundError creates a not found error
func NotFoundError(resource string) *AppError {
	return New(ErrorTypeNotFound, CodeResourceNotFound, fmt.Sprintf("%s not found", resource))
}

// ConflictError creates a conflict error
func ConflictError(resource string) *AppError {
	return New(ErrorTypeConflict, CodeResourceExists, fmt.Sprintf("%s already exists", resource))
}

// InternalError creates an internal error with a stack trace
func InternalError(message string) *AppError {
	err := New(ErrorTypeInternal, CodeInternal, message)
	err.StackTrace = captureStackTrace()
	return err
}

// ExternalError creates an external service error
func ExternalError(service string, err error) *AppError {
	return Wrap(err, ErrorTypeExternal, CodeExternalService, fmt.Sprintf("external service %s failed", service))
}

// TimeoutError creates a timeout error
func TimeoutError(operation string) *AppError {
	return New(ErrorTypeTimeout, CodeTimeout, fmt.Sprintf("operation %s timed out", operation))
}

// DatabaseError creates a database error
func DatabaseError(operation string, err error) *AppError {
	return Wrap(err, ErrorTypeDatabase, CodeDatabaseQuery, fmt.Sprintf("database operation %s failed", operation))
}

// ConfigurationError creates a configuration error
func ConfigurationError(message string) *AppError {
	return New(ErrorTypeConfiguration, CodeConfiguration, message)
}

// HTTPStatus maps the error type to an HTTP status code
func (e *AppError) HTTPStatus() int {
	switch e.Type {
	case ErrorTypeValidation:
		return 400
	case ErrorTypeAuthentication:
		return 401
	case ErrorTypeNotFound:
		return 404
	case ErrorTypeConflict:
		return 409
	case ErrorTypeTimeout:
		return 408
	case ErrorTypeRateLimit:
		return 429
	default:
		return 500
	}
}

// IsRetryable reports whether a retry could succeed. Explicit settings win;
// otherwise transient classes (timeout, network, external, rate limit) are
// considered retryable.
func (e *AppError) IsRetryable() bool {
	if e.retryableSet {
		return e.Retryable
	}
	switch e.Type {
	case ErrorTypeTimeout, ErrorTypeNetwork, ErrorTypeExternal, ErrorTypeRateLimit:
		return true
	default:
		return false
	}
}

// SetRetryable explicitly marks the error as retryable or not
func (e *AppError) SetRetryable(retryable bool) *AppError {
	e.Retryable = retryable
	e.retryableSet = true
	return e
}

func captureStackTrace() string {
	const depth = 32
	var pcs [depth]uintptr
	n := runtime.Callers(3, pcs[:])
	frames := runtime.CallersFrames(pcs[:n])

	var builder strings.Builder
	for {
		frame, more := frames.Next()
		builder.WriteString(fmt.Sprintf("%s:%d %s\n", frame.File, frame.Line, frame.Function))
		if !more {
			break
		}
	}
	return builder.String()
}
