// Package fdaerr defines the error-kind taxonomy the controller branches on.
// Tool-level failures are captured as values inside a ToolCall, never
// raised (spec §7); only the kinds below that reach the controller directly
// (UsageCapExceeded, SessionNotFound) short-circuit an episode.
package fdaerr

import (
	"errors"
	"fmt"
)

// Kind identifies one of the error categories from the error handling design.
type Kind string

const (
	KindTransport         Kind = "transport_error"
	KindRateLimited       Kind = "rate_limited"
	KindClientRequest     Kind = "client_request_error"
	KindValidation        Kind = "validation_error"
	KindLLM               Kind = "llm_error"
	KindUsageCapExceeded  Kind = "usage_cap_exceeded"
	KindSessionNotFound   Kind = "session_not_found"
)

// Error wraps an underlying error with a Kind the controller can branch on
// via errors.Is / errors.As without string-matching messages.
type Error struct {
	Kind    Kind
	Message string
	Wrapped error
}

func (e *Error) Error() string {
	if e.Wrapped != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Wrapped)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Wrapped }

// Is makes errors.Is(err, &Error{Kind: K}) match any *Error of kind K,
// whatever its message or wrapped cause. A bare Kind is not an error and
// cannot be a target; callers check a kind with Of(err) == Kind.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return e.Kind == t.Kind
	}
	return false
}

// New constructs an Error of the given kind.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap constructs an Error of the given kind around an underlying cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Wrapped: cause}
}

// Of returns the Kind of err if it is (or wraps) an *Error, and ok=false
// otherwise.
func Of(err error) (Kind, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind, true
	}
	return "", false
}
