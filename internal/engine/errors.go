package engine

import (
	"errors"
	"fmt"
)

// RuleError represents a statement that violated a ledger precondition.
//
// Rule errors are non-fatal with one exception: a grant with no matching
// request, a grant against an exhausted resource, and a release of an
// instance the process does not hold are all logged, counted as a
// processed step, and recovered by moving to the next statement. An
// out-of-range index is fatal to the run because it indicates a
// scenario/statement mismatch rather than a recoverable condition.
type RuleError struct {
	// Code identifies the error category.
	Code RuleErrorCode

	// Message is a human-readable description.
	Message string

	// Process is the acting process index (-1 if unknown).
	Process int

	// Resource is the target resource index (-1 if unknown).
	Resource int
}

// RuleErrorCode categorizes rule errors.
type RuleErrorCode string

const (
	// ErrCodeMalformedStatement indicates an unparsable statement.
	ErrCodeMalformedStatement RuleErrorCode = "MALFORMED_STATEMENT"

	// ErrCodeNoSuchRequest indicates a grant with no pending request.
	ErrCodeNoSuchRequest RuleErrorCode = "NO_SUCH_REQUEST"

	// ErrCodeResourceUnavailable indicates a grant against a resource
	// with no free instance. The request remains pending.
	ErrCodeResourceUnavailable RuleErrorCode = "RESOURCE_UNAVAILABLE"

	// ErrCodeNotHeld indicates a release of an instance not held.
	ErrCodeNotHeld RuleErrorCode = "NOT_HELD"

	// ErrCodeIndexOutOfRange indicates a process or resource index
	// outside the configured bounds. Fatal to the run.
	ErrCodeIndexOutOfRange RuleErrorCode = "INDEX_OUT_OF_RANGE"
)

// Error implements the error interface.
func (e *RuleError) Error() string {
	if e.Process >= 0 && e.Resource >= 0 {
		return fmt.Sprintf("%s: %s (process=P%d, resource=R%d)", e.Code, e.Message, e.Process, e.Resource)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Fatal reports whether the error terminates the run.
func (e *RuleError) Fatal() bool {
	return e.Code == ErrCodeIndexOutOfRange
}

// AsRuleError unwraps err into a *RuleError if possible.
func AsRuleError(err error) (*RuleError, bool) {
	var re *RuleError
	if errors.As(err, &re) {
		return re, true
	}
	return nil, false
}

// NewNoSuchRequestError creates a RuleError for a grant without a
// matching pending request.
func NewNoSuchRequestError(process, resource int) *RuleError {
	return &RuleError{
		Code:     ErrCodeNoSuchRequest,
		Message:  "grant attempted with no pending request",
		Process:  process,
		Resource: resource,
	}
}

// NewResourceUnavailableError creates a RuleError for a grant against a
// resource with no free instance.
func NewResourceUnavailableError(process, resource int) *RuleError {
	return &RuleError{
		Code:     ErrCodeResourceUnavailable,
		Message:  "no available instance to grant",
		Process:  process,
		Resource: resource,
	}
}

// NewNotHeldError creates a RuleError for a release of an instance the
// process does not hold.
func NewNotHeldError(process, resource int) *RuleError {
	return &RuleError{
		Code:     ErrCodeNotHeld,
		Message:  "release attempted on an instance not held",
		Process:  process,
		Resource: resource,
	}
}
