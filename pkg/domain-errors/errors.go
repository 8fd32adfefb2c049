// Package domainerrors defines the coded errors services return to their callers.
//
// Stores return sentinel errors (pkg/platform/sentinel); services translate them into
// coded errors here so transports can map them to responses without inspecting messages.
package domainerrors

import (
	"errors"
)

// Code identifies an error category. Codes are stable strings exposed to API clients.
type Code string

const (
	// Caller contract violations.
	CodeBadRequest   Code = "bad_request"
	CodeValidation   Code = "validation_error"
	CodeInvalidInput Code = "invalid_input"
	CodeNotFound     Code = "not_found"
	CodeUnauthorized Code = "unauthorized"
	CodeForbidden    Code = "forbidden"
	CodeConflict     Code = "conflict"

	// Policy rejections: expected in normal operation, never change state.
	CodeRequestNotPending     Code = "request_not_pending"
	CodeAlreadyResponded      Code = "already_responded"
	CodeDonorCommitted        Code = "donor_committed"
	CodeCooldownActive        Code = "cooldown_active"
	CodeCancelWindowExpired   Code = "cancel_window_expired"
	CodeIncompatibleBloodType Code = "incompatible_blood_type"
	CodeMaxStageReached       Code = "max_stage_reached"
	CodeNoActiveCommitment    Code = "no_active_commitment"

	// Infrastructure and internal failures.
	CodeInvariantViolation Code = "invariant_violation"
	CodeInternal           Code = "internal_error"
	CodeTimeout            Code = "timeout"
	CodeUnavailable        Code = "unavailable"
)

var policyCodes = map[Code]struct{}{
	CodeRequestNotPending:     {},
	CodeAlreadyResponded:      {},
	CodeDonorCommitted:        {},
	CodeCooldownActive:        {},
	CodeCancelWindowExpired:   {},
	CodeIncompatibleBloodType: {},
	CodeMaxStageReached:       {},
	CodeNoActiveCommitment:    {},
}

// Error is a coded error with a client-safe message and an optional cause.
type Error struct {
	Code    Code
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// New creates a coded error.
func New(code Code, msg string) error {
	return &Error{Code: code, Message: msg}
}

// Wrap attaches a code and message to an underlying cause.
func Wrap(err error, code Code, msg string) error {
	if err == nil {
		return nil
	}
	return &Error{Code: code, Message: msg, Err: err}
}

// As extracts the outermost coded error from the chain.
func As(err error) (*Error, bool) {
	var de *Error
	if errors.As(err, &de) {
		return de, true
	}
	return nil, false
}

// HasCode reports whether the outermost coded error in the chain carries code.
func HasCode(err error, code Code) bool {
	de, ok := As(err)
	return ok && de.Code == code
}

// Is is an alias of HasCode kept for call-site readability.
func Is(err error, code Code) bool {
	return HasCode(err, code)
}

// CodeOf returns the outermost code, or CodeInternal for uncoded errors.
func CodeOf(err error) Code {
	if de, ok := As(err); ok {
		return de.Code
	}
	return CodeInternal
}

// IsPolicy reports whether err is a policy rejection.
func IsPolicy(err error) bool {
	de, ok := As(err)
	if !ok {
		return false
	}
	_, policy := policyCodes[de.Code]
	return policy
}
