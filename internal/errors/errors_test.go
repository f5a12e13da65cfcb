package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
	"testing"
)

func TestAppErrorMessage(t *testing.T) {
	err := New(ErrStorage, "disk full")
	if !strings.Contains(err.Error(), "STORAGE_ERROR") {
		t.Errorf("expected code in message, got %q", err.Error())
	}
	if !strings.Contains(err.Error(), "disk full") {
		t.Errorf("expected message in output, got %q", err.Error())
	}
}

func TestWrapPreservesCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Wrap(ErrNetwork, "create note", cause)

	if !stderrors.Is(err, cause) {
		t.Error("expected wrapped error to match cause via errors.Is")
	}
	if !strings.Contains(err.Error(), "connection refused") {
		t.Errorf("expected cause in message, got %q", err.Error())
	}
}

func TestIsMatchesThroughChain(t *testing.T) {
	inner := Wrap(ErrConflict, "version mismatch", nil)
	outer := fmt.Errorf("replay item: %w", inner)

	if !Is(outer, ErrConflict) {
		t.Error("expected Is to find CONFLICT through fmt wrapping")
	}
	if Is(outer, ErrNetwork) {
		t.Error("did not expect NETWORK_ERROR match")
	}
}

func TestRetryableTerminalClassification(t *testing.T) {
	tests := []struct {
		code      ErrorCode
		retryable bool
		terminal  bool
	}{
		{ErrNetwork, true, false},
		{ErrServer, true, false},
		{ErrConflict, false, true},
		{ErrValidation, false, true},
		{ErrStorage, false, false},
		{ErrNotFound, false, false},
	}

	for _, tt := range tests {
		err := New(tt.code, "x")
		if got := Retryable(err); got != tt.retryable {
			t.Errorf("Retryable(%s) = %v, want %v", tt.code, got, tt.retryable)
		}
		if got := Terminal(err); got != tt.terminal {
			t.Errorf("Terminal(%s) = %v, want %v", tt.code, got, tt.terminal)
		}
	}
}

func TestClassificationOfPlainErrors(t *testing.T) {
	plain := stderrors.New("something broke")
	if Retryable(plain) || Terminal(plain) {
		t.Error("plain errors must classify as neither retryable nor terminal")
	}
}
