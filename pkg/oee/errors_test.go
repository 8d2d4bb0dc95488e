package oee

import (
	"errors"
	"fmt"
	"testing"
)

func TestNormalizeUnknownError(t *testing.T) {
	ae := Normalize(fmt.Errorf("boom"))

	if ae.Class != ErrorClassUnknown {
		t.Errorf("class = %s, want unknown", ae.Class)
	}
	if ae.Code != ErrCodeUnknown {
		t.Errorf("code = %s, want %s", ae.Code, ErrCodeUnknown)
	}
	if ae.MessageKey != "api.error.unknown" {
		t.Errorf("message key = %s, want api.error.unknown", ae.MessageKey)
	}
}

func TestNormalizePassesThroughAnalysisErrors(t *testing.T) {
	orig := NewNetworkError(ErrCodeTimeout, errors.New("deadline exceeded"))
	wrapped := fmt.Errorf("calculate: %w", orig)

	ae := Normalize(wrapped)
	if ae != orig {
		t.Error("Normalize did not unwrap to the original AnalysisError")
	}
}

func TestNormalizeNil(t *testing.T) {
	if Normalize(nil) != nil {
		t.Error("Normalize(nil) should be nil")
	}
}

func TestRetryClassification(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
		timeout   bool
	}{
		{"timeout", NewNetworkError(ErrCodeTimeout, nil), true, true},
		{"network", NewNetworkError(ErrCodeNetwork, nil), true, false},
		{"api 4xx", NewAPIError(ErrorClassValidation, "INVALID_INPUT", "api.error.invalid", nil, 422), false, false},
		{"api 5xx", NewAPIError(ErrorClassCompute, "INTERNAL", "api.error.internal", nil, 500), false, false},
		{"plain", errors.New("x"), false, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := IsRetryable(tt.err); got != tt.retryable {
				t.Errorf("IsRetryable = %v, want %v", got, tt.retryable)
			}
			if got := IsTimeout(tt.err); got != tt.timeout {
				t.Errorf("IsTimeout = %v, want %v", got, tt.timeout)
			}
		})
	}
}
