package errors

// ErrorCode represents a machine-readable error code.
type ErrorCode string

// Pipeline construction errors
const (
	// ErrCodeConfiguration indicates a transition outcome or payload that the
	// engine cannot act on.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"
	// ErrCodeInvalidInput indicates invalid options or configuration values.
	ErrCodeInvalidInput ErrorCode = "INVALID_INPUT"
)

// Runtime errors
const (
	// ErrCodeTransitionFailed indicates the transition function failed.
	ErrCodeTransitionFailed ErrorCode = "TRANSITION_FAILED"
	// ErrCodeHandlerFailed indicates a drain handler failed.
	ErrCodeHandlerFailed ErrorCode = "HANDLER_FAILED"
	// ErrCodePanic indicates a recovered panic.
	ErrCodePanic ErrorCode = "PANIC"
	// ErrCodeCancelled indicates the context ended while waiting.
	ErrCodeCancelled ErrorCode = "CANCELLED"
	// ErrCodePending indicates a deferred value was read before it settled.
	ErrCodePending ErrorCode = "PENDING"
)

var fatalCodes = map[ErrorCode]bool{
	ErrCodeConfiguration: true,
	ErrCodeInvalidInput:  true,
	ErrCodePanic:         true,
}

// IsFatalCode returns true if the code describes a programming or setup
// mistake rather than a failure of the data being processed.
func IsFatalCode(code ErrorCode) bool {
	return fatalCodes[code]
}
