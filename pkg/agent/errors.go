package agent

import (
	"errors"
	"fmt"
)

// Code is a stable, caller-visible error code. The transport layer maps
// codes to status codes; the codes themselves are the contract.
type Code string

const (
	CodeRateLimited   Code = "RATE_LIMITED"
	CodeAPIError      Code = "API_ERROR"
	CodeMaxIterations Code = "MAX_ITERATIONS"
	CodeToolError     Code = "TOOL_ERROR"
	CodeUnknown       Code = "UNKNOWN"
)

// Error is the single typed error raised at the loop boundary. It carries a
// stable code, a message, and the original cause.
type Error struct {
	Code    Code
	Message string
	Cause   error
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a typed loop error.
func NewError(code Code, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// CodeOf extracts the stable code from err, or CodeUnknown for anything that
// is not a typed loop error.
func CodeOf(err error) Code {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr.Code
	}
	return CodeUnknown
}

// classifyStatus maps a provider HTTP status to a typed error. 429 is a rate
// limit, 5xx a provider fault, everything else unrecognized.
func classifyStatus(status int, cause error) *Error {
	switch {
	case status == 429:
		return NewError(CodeRateLimited, "provider rate limited the request", cause)
	case status >= 500:
		return NewError(CodeAPIError, fmt.Sprintf("provider returned status %d", status), cause)
	default:
		return NewError(CodeUnknown, "provider call failed", cause)
	}
}

// wrapProviderError normalizes an adapter error into a typed loop error.
// Adapters classify SDK errors themselves; anything unclassified becomes
// UNKNOWN with the cause attached.
func wrapProviderError(err error) *Error {
	var agentErr *Error
	if errors.As(err, &agentErr) {
		return agentErr
	}
	return NewError(CodeUnknown, "provider call failed", err)
}
