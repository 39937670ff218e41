package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppError_New_Success(t *testing.T) {
	err := New(ErrCodeConfiguration, "bad wiring")
	if err.Code != ErrCodeConfiguration {
		t.Errorf("expected code %s, got %s", ErrCodeConfiguration, err.Code)
	}
	if err.Message != "bad wiring" {
		t.Errorf("expected message 'bad wiring', got %q", err.Message)
	}
}

func TestAppError_TransitionFailed_KeepsCause(t *testing.T) {
	cause := fmt.Errorf("boom")
	err := TransitionFailed("double", cause)
	if err.Code != ErrCodeTransitionFailed {
		t.Errorf("expected TRANSITION_FAILED, got %s", err.Code)
	}
	if err.Details["step"] != "double" {
		t.Errorf("expected step=double, got %v", err.Details["step"])
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
}

func TestAppError_NotMaterializable_Details(t *testing.T) {
	err := NotMaterializable("int")
	if err.Details["type"] != "int" {
		t.Errorf("expected type=int, got %v", err.Details["type"])
	}
	if !strings.Contains(err.Error(), "cannot be materialized") {
		t.Errorf("unexpected message %q", err.Error())
	}
}

func TestAppError_Panicked(t *testing.T) {
	t.Run("plain value", func(t *testing.T) {
		err := Panicked("kaput")
		if err.Cause != nil {
			t.Error("expected no cause for non-error panic value")
		}
		if !strings.Contains(err.Message, "kaput") {
			t.Errorf("expected message to mention panic value, got %q", err.Message)
		}
	})
	t.Run("error value", func(t *testing.T) {
		inner := fmt.Errorf("inner")
		err := Panicked(inner)
		if !stderrors.Is(err, inner) {
			t.Error("expected panic error to wrap the error value")
		}
	})
}

func TestAppError_InvalidInput_Success(t *testing.T) {
	err := InvalidInput("concurrency", "must be positive")
	if err.Code != ErrCodeInvalidInput {
		t.Errorf("expected INVALID_INPUT, got %s", err.Code)
	}
	if err.Details["field"] != "concurrency" {
		t.Errorf("expected field=concurrency, got %v", err.Details["field"])
	}
	if _, ok := InvalidInput("", "x").Details["field"]; ok {
		t.Error("expected no 'field' key when field is empty")
	}
}

func TestAppError_WithDetails_Merge(t *testing.T) {
	err := Configuration("x").WithDetails(map[string]any{"a": 1})
	err.WithDetails(map[string]any{"b": 2})
	if err.Details["a"] != 1 || err.Details["b"] != 2 {
		t.Errorf("expected merged details, got %v", err.Details)
	}
}

func TestAppError_WithDetail_NilMap(t *testing.T) {
	err := &AppError{Code: ErrCodeHandlerFailed}
	err.WithDetail("k", "v")
	if err.Details["k"] != "v" {
		t.Errorf("expected k=v, got %v", err.Details)
	}
}

func TestAppError_Error_Format(t *testing.T) {
	err := Configuration("oops")
	if err.Error() != "CONFIGURATION: oops" {
		t.Errorf("unexpected format %q", err.Error())
	}
	err.WithCause(fmt.Errorf("root"))
	if err.Error() != "CONFIGURATION: oops (cause: root)" {
		t.Errorf("unexpected format with cause %q", err.Error())
	}
}

func TestAppError_Constructors_Table(t *testing.T) {
	tests := []struct {
		name string
		err  *AppError
		code ErrorCode
	}{
		{"configuration", Configuration("x"), ErrCodeConfiguration},
		{"mixed payload", MixedPayload(), ErrCodeConfiguration},
		{"not materializable", NotMaterializable("T"), ErrCodeConfiguration},
		{"validation", Validation("x"), ErrCodeInvalidInput},
		{"handler", HandlerFailed(fmt.Errorf("x")), ErrCodeHandlerFailed},
		{"panic", Panicked(1), ErrCodePanic},
		{"cancelled", Cancelled(fmt.Errorf("x")), ErrCodeCancelled},
		{"pending", NotSettled(), ErrCodePending},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if tc.err.Code != tc.code {
				t.Errorf("got %s, want %s", tc.err.Code, tc.code)
			}
		})
	}
}

func TestIsFatalCode_Table(t *testing.T) {
	tests := []struct {
		code  ErrorCode
		fatal bool
	}{
		{ErrCodeConfiguration, true},
		{ErrCodeInvalidInput, true},
		{ErrCodePanic, true},
		{ErrCodeTransitionFailed, false},
		{ErrCodeHandlerFailed, false},
		{ErrCodeCancelled, false},
	}
	for _, tc := range tests {
		if got := IsFatalCode(tc.code); got != tc.fatal {
			t.Errorf("IsFatalCode(%s) = %v, want %v", tc.code, got, tc.fatal)
		}
	}
}

func TestCodeOf_And_Is(t *testing.T) {
	wrapped := fmt.Errorf("outer: %w", HandlerFailed(Cancelled(fmt.Errorf("deadline"))))
	if CodeOf(wrapped) != ErrCodeHandlerFailed {
		t.Errorf("expected HANDLER_FAILED, got %q", CodeOf(wrapped))
	}
	if !Is(wrapped, ErrCodeCancelled) {
		t.Error("expected nested CANCELLED code to be found")
	}
	if Is(wrapped, ErrCodePanic) {
		t.Error("did not expect PANIC code")
	}
	if CodeOf(fmt.Errorf("plain")) != "" {
		t.Error("expected empty code for plain error")
	}
	if Is(nil, ErrCodePanic) {
		t.Error("nil error carries no code")
	}
}

func TestAsAppError(t *testing.T) {
	if _, ok := AsAppError(fmt.Errorf("plain")); ok {
		t.Error("plain error is not an AppError")
	}
	appErr, ok := AsAppError(fmt.Errorf("wrap: %w", NotSettled()))
	if !ok || appErr.Code != ErrCodePending {
		t.Errorf("expected wrapped PENDING AppError, got %v", appErr)
	}
	if !IsAppError(Configuration("x")) {
		t.Error("expected IsAppError to be true")
	}
}
