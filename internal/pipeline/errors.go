package pipeline

import (
	"errors"
	"fmt"
	"strings"

	"github.com/roach88/neuromap/internal/ir"
	"github.com/roach88/neuromap/internal/passes"
)

// ErrorCode categorizes pipeline errors.
type ErrorCode string

const (
	// ErrCodeConfiguration indicates an unknown pass name or unmet pass
	// ordering requirement. Detected before any pass runs.
	ErrCodeConfiguration ErrorCode = "CONFIGURATION"

	// ErrCodeStructural indicates the network failed validation.
	ErrCodeStructural ErrorCode = "STRUCTURAL"

	// ErrCodePartition indicates a population larger than one core in
	// fail-fast mode.
	ErrCodePartition ErrorCode = "PARTITION"

	// ErrCodeInternalInvariant indicates a pass produced an inconsistent
	// report, such as a partition plan that is not total.
	ErrCodeInternalInvariant ErrorCode = "INTERNAL_INVARIANT"

	// ErrCodePassFailed indicates a pass returned an unexpected error.
	ErrCodePassFailed ErrorCode = "PASS_FAILED"
)

// Error is a pipeline error with structured fields for diagnostics.
type Error struct {
	// Code identifies the error category.
	Code ErrorCode

	// Message is a human-readable description.
	Message string

	// Pass names the pass that failed, if any.
	Pass string

	// Problems lists every configuration problem found.
	Problems []string

	// Structural holds the validation findings of a structural error.
	Structural []ir.StructuralError

	// Cause is the underlying error.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(string(e.Code))
	b.WriteString(": ")
	b.WriteString(e.Message)
	if e.Pass != "" {
		fmt.Fprintf(&b, " (pass=%s)", e.Pass)
	}
	for _, p := range e.Problems {
		b.WriteString("\n  - ")
		b.WriteString(p)
	}
	for _, s := range e.Structural {
		b.WriteString("\n  - ")
		b.WriteString(s.Error())
	}
	return b.String()
}

// Unwrap returns the cause.
func (e *Error) Unwrap() error {
	return e.Cause
}

func hasCode(err error, code ErrorCode) bool {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Code == code
	}
	return false
}

// IsConfigurationError reports whether err is a configuration error.
// Uses errors.As to handle wrapped errors.
func IsConfigurationError(err error) bool {
	return hasCode(err, ErrCodeConfiguration)
}

// IsStructuralError reports whether err is a structural validation error.
func IsStructuralError(err error) bool {
	return hasCode(err, ErrCodeStructural)
}

// IsPartitionError reports whether err is a fail-fast partition error.
// Matches both a pipeline Error and a bare passes.PartitionError.
func IsPartitionError(err error) bool {
	if hasCode(err, ErrCodePartition) {
		return true
	}
	var pe *passes.PartitionError
	return errors.As(err, &pe)
}

// IsInternalInvariantError reports whether err is an internal invariant
// violation.
func IsInternalInvariantError(err error) bool {
	return hasCode(err, ErrCodeInternalInvariant)
}

// StructuralErrors returns the validation findings carried by err.
func StructuralErrors(err error) []ir.StructuralError {
	var pe *Error
	if errors.As(err, &pe) {
		return pe.Structural
	}
	return nil
}

// NewConfigurationError creates an Error listing every problem.
func NewConfigurationError(problems []string) *Error {
	return &Error{
		Code:     ErrCodeConfiguration,
		Message:  fmt.Sprintf("invalid pass list (%d problems)", len(problems)),
		Problems: problems,
	}
}

// NewStructuralError creates an Error for a failed validation.
func NewStructuralError(errs []ir.StructuralError) *Error {
	return &Error{
		Code:       ErrCodeStructural,
		Message:    fmt.Sprintf("network failed validation with %d errors", len(errs)),
		Pass:       passes.NameValidate,
		Structural: errs,
	}
}

// NewPartitionError wraps a fail-fast partition failure.
func NewPartitionError(cause *passes.PartitionError) *Error {
	return &Error{
		Code:    ErrCodePartition,
		Message: cause.Error(),
		Pass:    passes.NamePartition,
		Cause:   cause,
	}
}

// NewInvariantError creates an Error for an inconsistent report.
func NewInvariantError(pass, msg string) *Error {
	return &Error{
		Code:    ErrCodeInternalInvariant,
		Message: msg,
		Pass:    pass,
	}
}

// NewPassError wraps an unexpected pass failure.
func NewPassError(pass string, cause error) *Error {
	return &Error{
		Code:    ErrCodePassFailed,
		Message: cause.Error(),
		Pass:    pass,
		Cause:   cause,
	}
}
