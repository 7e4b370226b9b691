package errors

import (
	"errors"
	"fmt"
)

// ErrorCode represents a category of application error.
type ErrorCode string

const (
	// ErrCodeAuthenticationFailed indicates bad credentials. Locally
	// recoverable; the user retries.
	ErrCodeAuthenticationFailed ErrorCode = "authentication_failed"
	// ErrCodeRegistrationFailed indicates the account could not be
	// created (email in use, weak secret).
	ErrCodeRegistrationFailed ErrorCode = "registration_failed"
	// ErrCodeProfileProvisioningFailed indicates the principal was
	// created but the profile write failed, leaving a dangling
	// principal. Surfaced distinctly, never masked as a generic failure.
	ErrCodeProfileProvisioningFailed ErrorCode = "profile_provisioning_failed"
	// ErrCodeProfileNotFound indicates a principal exists without a
	// profile record. A representable session state, not a fatal error.
	ErrCodeProfileNotFound ErrorCode = "profile_not_found"
	// ErrCodeProviderUnavailable indicates a network or provider-side
	// outage. The operation is retryable.
	ErrCodeProviderUnavailable ErrorCode = "provider_unavailable"
	// ErrCodePasswordResetFailed indicates the reset request failed.
	// Its user-visible message never distinguishes unknown emails.
	ErrCodePasswordResetFailed ErrorCode = "password_reset_failed"

	// Data-layer categories.
	ErrCodeNotFound   ErrorCode = "not_found"
	ErrCodeConflict   ErrorCode = "conflict"
	ErrCodeValidation ErrorCode = "validation"
	ErrCodeInternal   ErrorCode = "internal"
	ErrCodeTimeout    ErrorCode = "timeout"
	ErrCodeCanceled   ErrorCode = "canceled"
)

// AppError represents a structured application error with a code, message,
// and optional cause. It supports error wrapping and unwrapping for use
// with errors.Is and errors.As.
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
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

// Unwrap returns the underlying cause, enabling errors.Is and errors.As.
func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with the given code and message.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Newf creates an AppError with the given code and formatted message.
func Newf(code ErrorCode, format string, args ...any) *AppError {
	return &AppError{Code: code, Message: fmt.Sprintf(format, args...)}
}

// AuthenticationFailed creates an authentication failure error.
func AuthenticationFailed(message string) *AppError {
	return New(ErrCodeAuthenticationFailed, message)
}

// RegistrationFailed creates a registration failure error.
func RegistrationFailed(message string) *AppError {
	return New(ErrCodeRegistrationFailed, message)
}

// RegistrationField creates a registration failure error for a specific field.
func RegistrationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeRegistrationFailed, Message: message, Field: field}
}

// ProfileProvisioningFailed wraps a profile write failure that followed a
// successful principal creation.
func ProfileProvisioningFailed(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProfileProvisioningFailed,
		Message: "account created but profile provisioning failed",
		Cause:   cause,
	}
}

// ProfileNotFound creates a profile-not-found error for the given principal id.
func ProfileNotFound(id string) *AppError {
	return Newf(ErrCodeProfileNotFound, "no profile record for principal %s", id)
}

// ProviderUnavailable wraps a provider outage error.
func ProviderUnavailable(cause error) *AppError {
	return &AppError{
		Code:    ErrCodeProviderUnavailable,
		Message: "identity provider unavailable",
		Cause:   cause,
	}
}

// PasswordResetFailed wraps a reset request failure. The message is fixed
// so callers cannot leak whether the email is registered.
func PasswordResetFailed(cause error) *AppError {
	return &AppError{
		Code:    ErrCodePasswordResetFailed,
		Message: "password reset request could not be completed",
		Cause:   cause,
	}
}

// NotFound creates a new NotFound error.
func NotFound(message string) *AppError {
	return New(ErrCodeNotFound, message)
}

// Conflict creates a new Conflict error.
func Conflict(message string) *AppError {
	return New(ErrCodeConflict, message)
}

// Validation creates a new Validation error.
func Validation(message string) *AppError {
	return New(ErrCodeValidation, message)
}

// ValidationField creates a new Validation error for a specific field.
func ValidationField(field, message string) *AppError {
	return &AppError{Code: ErrCodeValidation, Message: message, Field: field}
}

// Internal creates a new Internal error.
func Internal(message string) *AppError {
	return New(ErrCodeInternal, message)
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

// IsAuthenticationFailed checks for bad-credential failures.
func IsAuthenticationFailed(err error) bool {
	return isCode(err, ErrCodeAuthenticationFailed)
}

// IsRegistrationFailed checks for registration failures.
func IsRegistrationFailed(err error) bool {
	return isCode(err, ErrCodeRegistrationFailed)
}

// IsProfileProvisioningFailed checks for dangling-principal failures.
func IsProfileProvisioningFailed(err error) bool {
	return isCode(err, ErrCodeProfileProvisioningFailed)
}

// IsProfileNotFound checks for the principal-without-profile state.
func IsProfileNotFound(err error) bool {
	return isCode(err, ErrCodeProfileNotFound)
}

// IsProviderUnavailable checks for provider outages.
func IsProviderUnavailable(err error) bool {
	return isCode(err, ErrCodeProviderUnavailable)
}

// IsPasswordResetFailed checks for reset request failures.
func IsPasswordResetFailed(err error) bool {
	return isCode(err, ErrCodePasswordResetFailed)
}

// IsNotFound checks if an error is a NotFound error.
func IsNotFound(err error) bool {
	return isCode(err, ErrCodeNotFound)
}

// IsConflict checks if an error is a Conflict error.
func IsConflict(err error) bool {
	return isCode(err, ErrCodeConflict)
}

// IsValidation checks if an error is a Validation error.
func IsValidation(err error) bool {
	return isCode(err, ErrCodeValidation)
}

// IsTimeout checks if an error is a Timeout error.
func IsTimeout(err error) bool {
	return isCode(err, ErrCodeTimeout)
}

// GetCode returns the ErrorCode from an error, or empty string if not an AppError.
func GetCode(err error) ErrorCode {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Code
	}
	return ""
}

// GetField returns the Field from an error, or empty string if not an AppError or no field set.
func GetField(err error) string {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr.Field
	}
	return ""
}
