// Package wireformat defines the JSON structures the wasm guest hands to its
// host for data too rich for flat records: the structured error state and
// the training report. These types must remain stable and backward
// compatible as they are part of the guest ABI.
package wireformat

import (
	"encoding/json"
	"fmt"

	"github.com/reglet-dev/crfsuite-go/domain/entities"
)

// ErrorDetail provides structured error information, consistent across host and guest.
// Error Types: "engine", "panic", "validation", "io", "internal"
type ErrorDetail struct {
	Wrapped   *ErrorDetail `json:"wrapped,omitempty"`
	Message   string       `json:"message"`
	Type      string       `json:"type"`
	Code      string       `json:"code"`
	Stack     []byte       `json:"stack,omitempty"`
	ErrorCode uint32       `json:"error_code"`
}

// Error implements the error interface for ErrorDetail.
func (e *ErrorDetail) Error() string {
	if e == nil {
		return ""
	}
	msg := e.Message
	if e.Type != "" && e.Type != entities.ErrorTypeInternal {
		msg = fmt.Sprintf("%s: %s", e.Type, msg)
	}
	if e.Code != "" {
		msg = fmt.Sprintf("%s [%s]", msg, e.Code)
	}
	if e.Wrapped != nil {
		msg = fmt.Sprintf("%s: %v", msg, e.Wrapped.Error())
	}
	return msg
}

// FromEntity converts the error state record to its wire form.
func FromEntity(d *entities.ErrorDetail) *ErrorDetail {
	if d == nil {
		return nil
	}
	return &ErrorDetail{
		Wrapped:   FromEntity(d.Wrapped),
		Message:   d.Message,
		Type:      d.Type,
		Code:      d.Code,
		Stack:     d.Stack,
		ErrorCode: uint32(d.ErrorCode()),
	}
}

// ToEntity converts the wire form back to an error state record.
func (e *ErrorDetail) ToEntity() *entities.ErrorDetail {
	if e == nil {
		return nil
	}
	return &entities.ErrorDetail{
		Wrapped: e.Wrapped.ToEntity(),
		Message: e.Message,
		Type:    e.Type,
		Code:    e.Code,
		Stack:   e.Stack,
	}
}

// EncodeError serializes d. A nil detail encodes as JSON null.
func EncodeError(d *entities.ErrorDetail) ([]byte, error) {
	return json.Marshal(FromEntity(d))
}

// DecodeError parses an encoded error detail; null yields nil.
func DecodeError(data []byte) (*ErrorDetail, error) {
	var e *ErrorDetail
	if err := json.Unmarshal(data, &e); err != nil {
		return nil, fmt.Errorf("failed to decode error detail: %w", err)
	}
	return e, nil
}

// EncodeReport serializes a training report.
func EncodeReport(r entities.TrainingReport) ([]byte, error) {
	return json.Marshal(r)
}

// DecodeReport parses an encoded training report.
func DecodeReport(data []byte) (entities.TrainingReport, error) {
	var r entities.TrainingReport
	if err := json.Unmarshal(data, &r); err != nil {
		return entities.TrainingReport{}, fmt.Errorf("failed to decode training report: %w", err)
	}
	return r, nil
}
