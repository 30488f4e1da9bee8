// Package errors defines the coded error taxonomy shared by training, decoding
// and the outer surfaces (CLI and HTTP API).
package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a specific error type for tagging operations.
type ErrorCode string

const (
	// ErrCodeMalformedRecord indicates a corpus line violates the token or bracket grammar.
	ErrCodeMalformedRecord ErrorCode = "MALFORMED_RECORD"
	// ErrCodeEmptyInput indicates decode was called with zero-length text.
	ErrCodeEmptyInput ErrorCode = "EMPTY_INPUT"
	// ErrCodeDecodeDegenerate indicates no state kept a positive probability.
	ErrCodeDecodeDegenerate ErrorCode = "DECODE_DEGENERATE"
	// ErrCodeInconsistentTagRun indicates a reconstructed word mixes POS labels.
	ErrCodeInconsistentTagRun ErrorCode = "INCONSISTENT_TAG_RUN"
	// ErrCodeModelNotFound indicates the requested model is not persisted.
	ErrCodeModelNotFound ErrorCode = "MODEL_NOT_FOUND"
	// ErrCodeInvalidArgument indicates invalid input parameters.
	ErrCodeInvalidArgument ErrorCode = "INVALID_ARGUMENT"
	// ErrCodeRateLimitExceeded indicates rate limit has been exceeded.
	ErrCodeRateLimitExceeded ErrorCode = "RATE_LIMIT_EXCEEDED"
	// ErrCodeInternal indicates an unexpected failure (I/O, storage).
	ErrCodeInternal ErrorCode = "INTERNAL"
)

// Sentinels for errors.Is. A *TaggerError matches any sentinel with the same code.
var (
	ErrMalformedRecord    = &TaggerError{Code: ErrCodeMalformedRecord, Message: "malformed record"}
	ErrEmptyInput         = &TaggerError{Code: ErrCodeEmptyInput, Message: "empty input"}
	ErrDecodeDegenerate   = &TaggerError{Code: ErrCodeDecodeDegenerate, Message: "decode degenerate"}
	ErrInconsistentTagRun = &TaggerError{Code: ErrCodeInconsistentTagRun, Message: "inconsistent tag run"}
	ErrModelNotFound      = &TaggerError{Code: ErrCodeModelNotFound, Message: "model not found"}
	ErrInvalidArgument    = &TaggerError{Code: ErrCodeInvalidArgument, Message: "invalid argument"}
)

// TaggerError represents a structured error for tagging operations.
type TaggerError struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error implements the error interface.
func (e *TaggerError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause.
func (e *TaggerError) Unwrap() error {
	return e.Cause
}

// Is reports whether target is a TaggerError carrying the same code.
func (e *TaggerError) Is(target error) bool {
	t, ok := target.(*TaggerError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// Convenience constructors for common error types.

// MalformedRecord creates a malformed record error.
func MalformedRecord(format string, args ...interface{}) *TaggerError {
	return &TaggerError{Code: ErrCodeMalformedRecord, Message: fmt.Sprintf(format, args...)}
}

// EmptyInput creates an empty input error.
func EmptyInput(msg string) *TaggerError {
	return &TaggerError{Code: ErrCodeEmptyInput, Message: msg}
}

// DecodeDegenerate creates a decode degenerate error for position t.
func DecodeDegenerate(position int) *TaggerError {
	return &TaggerError{
		Code:    ErrCodeDecodeDegenerate,
		Message: fmt.Sprintf("no state has positive probability at position %d", position),
	}
}

// InconsistentTagRun creates an inconsistent tag run error.
func InconsistentTagRun(word string, first, second string) *TaggerError {
	return &TaggerError{
		Code:    ErrCodeInconsistentTagRun,
		Message: fmt.Sprintf("word %q mixes POS labels %s and %s", word, first, second),
	}
}

// ModelNotFound creates a model not found error.
func ModelNotFound(name string) *TaggerError {
	return &TaggerError{
		Code:    ErrCodeModelNotFound,
		Message: fmt.Sprintf("model not found: %s", name),
	}
}

// InvalidArgument creates an invalid argument error.
func InvalidArgument(msg string) *TaggerError {
	return &TaggerError{Code: ErrCodeInvalidArgument, Message: msg}
}

// RateLimitExceeded creates a rate limit exceeded error.
func RateLimitExceeded(msg string) *TaggerError {
	return &TaggerError{Code: ErrCodeRateLimitExceeded, Message: msg}
}

// Wrap wraps an existing error with additional context.
func Wrap(cause error, code ErrorCode, msg string) *TaggerError {
	return &TaggerError{Code: code, Message: msg, Cause: cause}
}

// IsCode checks if an error, or any error it wraps, carries a specific code.
func IsCode(err error, code ErrorCode) bool {
	var te *TaggerError
	if stderrors.As(err, &te) {
		return te.Code == code
	}
	return false
}

// GetCodeFromError extracts the error code from any error.
// Returns the provided default code if the error is not a TaggerError.
func GetCodeFromError(err error, defaultCode ErrorCode) ErrorCode {
	var te *TaggerError
	if stderrors.As(err, &te) {
		return te.Code
	}
	return defaultCode
}
