package entities

import (
	"fmt"
	"strings"
)

// ErrorCode is the coarse failure class reported through the boundary's
// error state. The numeric values are part of the C ABI.
type ErrorCode uint32

const (
	// ErrorCodeNoError means no fault since the last clear or last fallible call.
	ErrorCodeNoError ErrorCode = 0
	// ErrorCodePanic means an internal fault was intercepted at the boundary.
	ErrorCodePanic ErrorCode = 1
	// ErrorCodeEngine means a well-formed, domain-level failure from the engine.
	ErrorCodeEngine ErrorCode = 2
)

func (c ErrorCode) String() string {
	switch c {
	case ErrorCodeNoError:
		return "no_error"
	case ErrorCodePanic:
		return "panic"
	case ErrorCodeEngine:
		return "engine_error"
	default:
		return fmt.Sprintf("error_code(%d)", uint32(c))
	}
}

// Error types carried in ErrorDetail.Type.
const (
	ErrorTypeEngine     = "engine"
	ErrorTypePanic      = "panic"
	ErrorTypeValidation = "validation"
	ErrorTypeIO         = "io"
	ErrorTypeInternal   = "internal"
)

// ErrorDetail provides structured error information.
// It is the record behind the boundary's error state and the wire format
// used by the wasm exporter.
type ErrorDetail struct {
	// Wrapped contains a wrapped error for error chains.
	Wrapped *ErrorDetail `json:"wrapped,omitempty"`

	// Details contains additional error context.
	Details map[string]any `json:"details,omitempty"`

	// Message is a human-readable error description.
	Message string `json:"message"`

	// Type categorizes the error.
	Type string `json:"type"`

	// Code is a machine-readable error code (the engine error kind).
	Code string `json:"code"`

	// Stack contains the stack trace for panic errors.
	Stack []byte `json:"stack,omitempty"`

	// IsNotFound indicates if this was a "not found" error.
	IsNotFound bool `json:"is_not_found,omitempty"`
}

// Error implements the error interface.
// Wrapped causes are rendered on their own "caused by:" lines.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	var b strings.Builder
	b.WriteString(e.Message)
	for cause := e.Wrapped; cause != nil; cause = cause.Wrapped {
		b.WriteString("\n  caused by: ")
		b.WriteString(cause.Message)
	}
	return b.String()
}

// ErrorCode maps the detail onto the boundary's coarse error classes.
func (e *ErrorDetail) ErrorCode() ErrorCode {
	switch {
	case e == nil:
		return ErrorCodeNoError
	case e.Type == ErrorTypePanic:
		return ErrorCodePanic
	default:
		return ErrorCodeEngine
	}
}

// NewErrorDetail creates a new ErrorDetail with the given type and message.
func NewErrorDetail(errorType, message string) *ErrorDetail {
	return &ErrorDetail{
		Type:    errorType,
		Message: message,
	}
}

// WithDetails attaches details and returns the same ErrorDetail.
func (e *ErrorDetail) WithDetails(details map[string]any) *ErrorDetail {
	e.Details = details
	return e
}

// WithCode attaches a code and returns the same ErrorDetail.
func (e *ErrorDetail) WithCode(code string) *ErrorDetail {
	e.Code = code
	return e
}

// Wrap attaches a cause and returns the same ErrorDetail.
func (e *ErrorDetail) Wrap(cause *ErrorDetail) *ErrorDetail {
	e.Wrapped = cause
	return e
}
