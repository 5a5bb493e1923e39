package domain

import (
	"errors"
	"fmt"
)

// ErrorCode classifies pipeline failures so transports can map them.
type ErrorCode string

const (
	ErrorMissingInput  ErrorCode = "MISSING_INPUT"
	ErrorDecodeFailure ErrorCode = "DECODE_FAILURE"
	ErrorEngineFailure ErrorCode = "ENGINE_FAILURE"
	ErrorEncodeFailure ErrorCode = "ENCODE_FAILURE"
)

type PipelineError struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

func (e *PipelineError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *PipelineError) Unwrap() error {
	return e.Cause
}

func NewMissingInputError(op, field string) *PipelineError {
	return &PipelineError{
		Code:    ErrorMissingInput,
		Op:      op,
		Message: fmt.Sprintf("%s is required", field),
	}
}

func NewDecodeError(op string, cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrorDecodeFailure,
		Op:      op,
		Message: "cannot decode image",
		Cause:   cause,
	}
}

// NewEngineError wraps an OCR or AI call failure. engine names the collaborator.
func NewEngineError(op, engine string, cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrorEngineFailure,
		Op:      op,
		Message: fmt.Sprintf("%s failed", engine),
		Cause:   cause,
	}
}

func NewEncodeError(op string, cause error) *PipelineError {
	return &PipelineError{
		Code:    ErrorEncodeFailure,
		Op:      op,
		Message: "cannot encode redacted image",
		Cause:   cause,
	}
}

// CodeOf returns the code of the first PipelineError in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var pe *PipelineError
	if errors.As(err, &pe) {
		return pe.Code
	}
	return ""
}
