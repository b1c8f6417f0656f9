// Package errors provides domain-specific error types for the library.
// All error types support error unwrapping via errors.As() and errors.Is().
package errors

import (
	stdErrors "errors"
	"fmt"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// ErrorDetail is an alias to entities.ErrorDetail for convenience.
type ErrorDetail = entities.ErrorDetail

// DetailedError is an interface for custom error types that can convert themselves
// to a structured ErrorDetail. New error types only need to implement this
// interface without modifying ToErrorDetail.
type DetailedError interface {
	error
	ToErrorDetail() *entities.ErrorDetail
}

// ToErrorDetail converts a Go error to our structured ErrorDetail.
// Wrapped causes of domain errors are carried along as ErrorDetail.Wrapped.
func ToErrorDetail(err error) *entities.ErrorDetail {
	if err == nil {
		return nil
	}

	// If the error is already a *ErrorDetail (entity), use it directly.
	var e *entities.ErrorDetail
	if stdErrors.As(err, &e) {
		return e
	}

	var de DetailedError
	if stdErrors.As(err, &de) {
		return de.ToErrorDetail()
	}

	// Generic error - categorize as internal
	return &entities.ErrorDetail{
		Message: err.Error(),
		Type:    entities.ErrorTypeInternal,
	}
}

// Kind classifies an engine failure.
type Kind string

// Engine error kinds.
const (
	KindAlgorithmNotSelected Kind = "algorithm_not_selected"
	KindEmptyData            Kind = "empty_data"
	KindParamNotFound        Kind = "param_not_found"
	KindInvalidArgument      Kind = "invalid_argument"
	KindValueError           Kind = "value_error"
	KindInvalidModel         Kind = "invalid_model"
	KindLengthMismatch       Kind = "length_mismatch"
	KindInvalidHandle        Kind = "invalid_handle"
	KindNotConverged         Kind = "not_converged"
	KindIO                   Kind = "io"
)

// Sentinel engine errors for errors.Is comparisons.
var (
	ErrAlgorithmNotSelected = &EngineError{
		Kind:    KindAlgorithmNotSelected,
		Message: "the trainer is not initialized, call select before train",
	}
	ErrEmptyData = &EngineError{
		Kind:    KindEmptyData,
		Message: "the data is empty, call append before train",
	}
)

// EngineError is a well-formed, domain-level failure from the sequence model
// engine or the boundary validating its inputs.
type EngineError struct {
	Err     error
	Kind    Kind
	Op      string
	Message string
}

func (e *EngineError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

func (e *EngineError) Unwrap() error {
	return e.Err
}

// Is matches any EngineError of the same kind.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return t.Kind == e.Kind
}

// ToErrorDetail implements DetailedError.
func (e *EngineError) ToErrorDetail() *entities.ErrorDetail {
	msg := e.Message
	if msg == "" {
		msg = string(e.Kind)
	}
	if e.Op != "" {
		msg = e.Op + ": " + msg
	}
	detail := entities.NewErrorDetail(entities.ErrorTypeEngine, msg).WithCode(string(e.Kind))
	if e.Err != nil {
		detail.Wrapped = ToErrorDetail(e.Err)
	}
	return detail
}

// New creates an EngineError of the given kind.
func New(kind Kind, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

// Wrap creates an EngineError of the given kind caused by err.
func Wrap(kind Kind, err error, format string, args ...any) *EngineError {
	return &EngineError{Kind: kind, Message: fmt.Sprintf(format, args...), Err: err}
}

// ParamNotFound reports an unknown parameter name.
func ParamNotFound(name string) *EngineError {
	return &EngineError{Kind: KindParamNotFound, Message: fmt.Sprintf("parameter %s not found", name)}
}

// InvalidHandle reports a null, stale or mistyped handle.
func InvalidHandle(kind string, handle uint64) *EngineError {
	return &EngineError{Kind: KindInvalidHandle, Message: fmt.Sprintf("invalid %s handle %#x", kind, handle)}
}

// LengthMismatch reports sequences whose lengths must agree but do not.
func LengthMismatch(what string, want, got int) *EngineError {
	return &EngineError{
		Kind:    KindLengthMismatch,
		Message: fmt.Sprintf("%s length mismatch: expected %d, got %d", what, want, got),
	}
}

// KindOf returns the engine error kind of err, or "" when err is not an
// EngineError.
func KindOf(err error) Kind {
	var e *EngineError
	if stdErrors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// PanicError is an internal fault intercepted at the boundary.
type PanicError struct {
	Value any
	Op    string
	Stack []byte
}

func (e *PanicError) Error() string {
	if err, ok := e.Value.(error); ok {
		return err.Error()
	}
	return fmt.Sprint(e.Value)
}

func (e *PanicError) Unwrap() error {
	if err, ok := e.Value.(error); ok {
		return err
	}
	return nil
}

// ToErrorDetail implements DetailedError.
func (e *PanicError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{
		Message: e.Error(),
		Type:    entities.ErrorTypePanic,
		Code:    e.Op,
		Stack:   e.Stack,
	}
}

// ConfigError represents a configuration validation error.
type ConfigError struct {
	Err   error
	Field string
}

func (e *ConfigError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("config validation failed for field '%s': %v", e.Field, e.Err)
	}
	return fmt.Sprintf("config validation failed: %v", e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *ConfigError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeValidation, Code: e.Field}
}

// SchemaError represents a schema generation error.
type SchemaError struct {
	Err  error
	Type string
}

func (e *SchemaError) Error() string {
	if e.Type != "" {
		return fmt.Sprintf("schema error for type %s: %v", e.Type, e.Err)
	}
	return fmt.Sprintf("schema error: %v", e.Err)
}

func (e *SchemaError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *SchemaError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeValidation, Code: "schema"}
}

// MemoryError represents a boundary memory allocation failure.
type MemoryError struct {
	Requested int // Requested allocation size
	Current   int // Current total allocated
	Limit     int // Maximum allowed
}

func (e *MemoryError) Error() string {
	return fmt.Sprintf("memory allocation failed: requested %d bytes, current %d bytes, limit %d bytes",
		e.Requested, e.Current, e.Limit)
}

// ToErrorDetail implements DetailedError.
func (e *MemoryError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInternal, Code: "memory_limit"}
}

// WireFormatError represents a failure decoding a record read from boundary
// memory.
type WireFormatError struct {
	Err       error
	Operation string
	Type      string
}

func (e *WireFormatError) Error() string {
	return fmt.Sprintf("wire format %s failed for %s: %v", e.Operation, e.Type, e.Err)
}

func (e *WireFormatError) Unwrap() error {
	return e.Err
}

// ToErrorDetail implements DetailedError.
func (e *WireFormatError) ToErrorDetail() *entities.ErrorDetail {
	return &entities.ErrorDetail{Message: e.Error(), Type: entities.ErrorTypeInternal, Code: "wire_format"}
}
