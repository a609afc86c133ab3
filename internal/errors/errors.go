package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeNotFound indicates a resource was not found.
	ErrCodeNotFound ErrorCode = "not_found"
	// ErrCodeConflict indicates a conflict with existing data (e.g., unique constraint violation).
	ErrCodeConflict ErrorCode = "conflict"
	// ErrCodeValidation indicates invalid input data.
	ErrCodeValidation ErrorCode = "validation"
	// ErrCodeBlocked indicates the linking policy rejected the attempt. The message is user-facing.
	ErrCodeBlocked ErrorCode = "blocked"
	// ErrCodeTransport indicates the account store or identity provider could not be reached.
	ErrCodeTransport ErrorCode = "transport"
	// ErrCodeInternal indicates an internal server error.
	ErrCodeInternal ErrorCode = "internal"
	// ErrCodeTimeout indicates a timeout occurred.
	ErrCodeTimeout ErrorCode = "timeout"
	// ErrCodeCanceled indicates the operation was canceled.
	ErrCodeCanceled ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message, and optional cause.
// It supports error wrapping and unwrapping for use with errors.Is and errors.As.
type AppError struct {
	// Code categorizes the error type
	Code ErrorCode
	// Message is a human-readable error message
	Message string
	// Cause is the underlying error that caused this error (optional)
	Cause error
	// Field is the specific field that caused the error (optional, for validation errors)
	Field string
}

// Error implements the error interface.
func (e *AppError) Error() string {
	if e.Cause != nil && e.Code != ErrCodeBlocked {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether the caller may try the same operation again.
// Policy blocks and validation failures are final.
func (e *AppError) Retryable() bool {
	switch e.Code {
	case ErrCodeTransport, ErrCodeTimeout:
		return true
	default:
		return false
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return &AppError{Code: ErrCodeNotFound, Message: message}
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return &AppError{Code: ErrCodeConflict, Message: message}
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message}
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Blocked wraps a policy rejection. cause is usually a *linking.BlockError and is kept
// reachable through errors.As; the message shown to the user is cause.Error().
func Blocked(cause error) *AppError {
	if cause == nil {
		return nil
	}
	return &AppError{Code: ErrCodeBlocked, Message: cause.Error(), Cause: cause}
}

// Transport wraps a failure talking to a backing service.
func Transport(err error, op string) *AppError {
	return Wrap(err, ErrCodeTransport, op)
}

// Transportf is Transport with a formatted operation description.
func Transportf(err error, format string, args ...any) *AppError {
	return Wrapf(err, ErrCodeTransport, format, args...)
}

// Wrap wraps an existing error with an AppError, preserving the cause.
func Wrap(err error, code ErrorCode, message string) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: message, Cause: err}
}

// Wrapf wraps an existing error with an AppError and formatted message.
func Wrapf(err error, code ErrorCode, format string, args ...any) *AppError {
	if err == nil {
		return nil
	}
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...), Cause: err}
}

// isCode checks if an error has a specific error code.
func isCode(err error, code ErrorCode) bool {
	var appErr *AppError
	return errors.As(err, &appErr) && appErr.Code == code
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool { return isCode(err, ErrCodeNotFound) }

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool { return isCode(err, ErrCodeConflict) }

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool { return isCode(err, ErrCodeValidation) }

// IsBlocked checks if an error is a policy block.
func IsBlocked(err error) bool { return isCode(err, ErrCodeBlocked) }

// IsTransport checks if an error came from an unreachable backing service.
// Timeouts count as transport failures.
func IsTransport(err error) bool {
	return isCode(err, ErrCodeTransport) || isCode(err, ErrCodeTimeout)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// UserMessage returns the message safe to show an end user or API caller: the
// message itself for blocks and client errors, and a generic text for everything else.
func UserMessage(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		switch appErr.Code {
		case ErrCodeBlocked, ErrCodeValidation, ErrCodeNotFound, ErrCodeConflict:
			return appErr.Message
		case ErrCodeTransport, ErrCodeTimeout:
			return "Sign-in is temporarily unavailable. Please try again."
		}
	}
	return "An unexpected error occurred."
}
