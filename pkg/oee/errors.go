package oee

import (
	"errors"
	"fmt"
)

// ErrorClass classifies an analysis error for retry and display logic.
type ErrorClass string

const (
	// ErrorClassNetwork indicates a transport failure or timeout.
	// Always retryable by re-invoking the calculation.
	ErrorClassNetwork ErrorClass = "network"

	// ErrorClassValidation indicates a caller-side fault (HTTP 4xx).
	ErrorClassValidation ErrorClass = "validation"

	// ErrorClassCompute indicates a compute-side fault (HTTP 5xx).
	ErrorClassCompute ErrorClass = "compute"

	// ErrorClassUnknown indicates an error that matched no other class.
	ErrorClassUnknown ErrorClass = "unknown"
)

// AnalysisError is the uniform error shape placed into the session's
// failed state. API error bodies are surfaced verbatim through Code,
// MessageKey and Params; anything else is normalized first.
type AnalysisError struct {
	// Class is the error classification.
	Class ErrorClass `json:"class"`

	// Code is the stable error code (e.g. "TIMEOUT").
	Code string `json:"code"`

	// MessageKey is the i18n key for the error message.
	MessageKey string `json:"message_key"`

	// Params are the message parameters from the error body.
	Params map[string]any `json:"params,omitempty"`

	// Endpoint is the compute endpoint involved, if any.
	Endpoint string `json:"endpoint,omitempty"`

	// HTTPStatus is the response status, when one was received.
	HTTPStatus int `json:"http_status,omitempty"`

	// Err is the underlying error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *AnalysisError) Error() string {
	if e.Endpoint != "" {
		return fmt.Sprintf("[%s] %s (endpoint=%s): %s", e.Class, e.Code, e.Endpoint, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Code, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *AnalysisError) Unwrap() error {
	return e.Err
}

func (e *AnalysisError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return e.MessageKey
}

// Is implements error equality for errors.Is.
func (e *AnalysisError) Is(target error) bool {
	t, ok := target.(*AnalysisError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// WithEndpoint adds endpoint context to the error.
func (e *AnalysisError) WithEndpoint(endpoint string) *AnalysisError {
	e.Endpoint = endpoint
	return e
}

// NewNetworkError creates a network-class error.
func NewNetworkError(code string, err error) *AnalysisError {
	return &AnalysisError{
		Class:      ErrorClassNetwork,
		Code:       code,
		MessageKey: "api.error.network",
		Err:        err,
	}
}

// NewAPIError creates an error carrying a verbatim compute error body.
func NewAPIError(class ErrorClass, code, messageKey string, params map[string]any, status int) *AnalysisError {
	return &AnalysisError{
		Class:      class,
		Code:       code,
		MessageKey: messageKey,
		Params:     params,
		HTTPStatus: status,
	}
}

// Normalize maps any error to an AnalysisError so the session's failed
// state always carries a uniform shape. AnalysisErrors pass through
// untouched; everything else becomes UNKNOWN_ERROR.
func Normalize(err error) *AnalysisError {
	if err == nil {
		return nil
	}
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae
	}
	return &AnalysisError{
		Class:      ErrorClassUnknown,
		Code:       ErrCodeUnknown,
		MessageKey: "api.error.unknown",
		Err:        err,
	}
}

// IsRetryable reports whether re-invoking the calculation may succeed.
// Only network-class failures are retryable.
func IsRetryable(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Class == ErrorClassNetwork
	}
	return false
}

// IsTimeout reports whether the error is a client-classified timeout.
func IsTimeout(err error) bool {
	var ae *AnalysisError
	if errors.As(err, &ae) {
		return ae.Code == ErrCodeTimeout
	}
	return false
}

// Common error codes.
const (
	ErrCodeNetwork    = "NETWORK_ERROR"
	ErrCodeTimeout    = "TIMEOUT"
	ErrCodeUnknown    = "UNKNOWN_ERROR"
	ErrCodeValidation = "VALIDATION_ERROR"
	ErrCodeCompute    = "COMPUTE_ERROR"
	ErrCodeDecode     = "DECODE_ERROR"
)
