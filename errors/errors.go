package errors

import (
	stderrors "errors"
	"fmt"
)

// AppError is the unified error type of the module.
type AppError struct {
	// Code is a machine-readable error code.
	Code ErrorCode `json:"code"`
	// Message is a human-readable error message.
	Message string `json:"message"`
	// Details contains additional context for the error.
	Details map[string]any `json:"details,omitempty"`
	// Cause is the underlying error that caused this error.
	Cause error `json:"-"`
}

// Error returns the string representation of the error.
func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s (cause: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause of the error.
func (e *AppError) Unwrap() error { return e.Cause }

// WithCause sets the underlying cause of the error and returns the receiver.
func (e *AppError) WithCause(cause error) *AppError {
	e.Cause = cause
	return e
}

// WithDetails merges the provided details into the error and returns the receiver.
func (e *AppError) WithDetails(details map[string]any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	for k, v := range details {
		e.Details[k] = v
	}
	return e
}

// WithDetail sets a single detail key-value pair and returns the receiver.
func (e *AppError) WithDetail(key string, value any) *AppError {
	if e.Details == nil {
		e.Details = make(map[string]any)
	}
	e.Details[key] = value
	return e
}

// New creates a new AppError.
func New(code ErrorCode, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// --- Configuration errors ---

// Configuration creates an error for a pipeline that was wired incorrectly.
func Configuration(reason string) *AppError {
	return &AppError{Code: ErrCodeConfiguration, Message: reason}
}

// MixedPayload creates the error raised when a single outcome carries both
// a value and a sequence of values.
func MixedPayload() *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: "outcome sets both a value and a sequence of values",
	}
}

// NotMaterializable creates the error raised when a payload exposes no way to
// obtain a puller.
func NotMaterializable(typeName string) *AppError {
	return &AppError{
		Code:    ErrCodeConfiguration,
		Message: fmt.Sprintf("value of type %s cannot be materialized into a puller", typeName),
		Details: map[string]any{"type": typeName},
	}
}

// InvalidInput creates a new AppError for an invalid option or field.
func InvalidInput(field, reason string) *AppError {
	details := make(map[string]any)
	if field != "" {
		details["field"] = field
	}
	return &AppError{
		Code: ErrCodeInvalidInput, Message: fmt.Sprintf("Invalid input: %s", reason),
		Details: details,
	}
}

// Validation creates a new AppError for struct validation errors.
func Validation(message string) *AppError {
	return &AppError{Code: ErrCodeInvalidInput, Message: message}
}

// --- Runtime errors ---

// TransitionFailed wraps a failure raised by the transition function of step.
func TransitionFailed(step string, cause error) *AppError {
	return &AppError{
		Code: ErrCodeTransitionFailed, Message: fmt.Sprintf("transition of step %q failed", step),
		Details: map[string]any{"step": step}, Cause: cause,
	}
}

// HandlerFailed wraps a failure raised by a drain handler.
func HandlerFailed(cause error) *AppError {
	return &AppError{Code: ErrCodeHandlerFailed, Message: "handler failed", Cause: cause}
}

// Panicked converts a recovered panic value into an error. When the value is
// itself an error it becomes the cause.
func Panicked(value any) *AppError {
	e := &AppError{Code: ErrCodePanic, Message: fmt.Sprintf("panic: %v", value)}
	if err, ok := value.(error); ok {
		e.Cause = err
	}
	return e
}

// Cancelled wraps a context error observed while waiting on a deferred value.
func Cancelled(cause error) *AppError {
	return &AppError{Code: ErrCodeCancelled, Message: "wait cancelled", Cause: cause}
}

// NotSettled creates the error returned when a pending value is read
// without waiting for it.
func NotSettled() *AppError {
	return &AppError{Code: ErrCodePending, Message: "value is still pending"}
}

// --- Inspection ---

// IsAppError checks if an error is an AppError.
func IsAppError(err error) bool {
	var appErr *AppError
	return stderrors.As(err, &appErr)
}

// AsAppError converts an error to an AppError if possible.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// CodeOf returns the code of the outermost AppError in err's chain, or the
// empty code when there is none.
func CodeOf(err error) ErrorCode {
	if appErr, ok := AsAppError(err); ok {
		return appErr.Code
	}
	return ""
}

// Is reports whether any AppError in err's chain carries code.
func Is(err error, code ErrorCode) bool {
	for err != nil {
		if appErr, ok := err.(*AppError); ok && appErr.Code == code {
			return true
		}
		err = stderrors.Unwrap(err)
	}
	return false
}
