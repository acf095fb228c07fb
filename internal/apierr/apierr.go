// Package apierr provides the structured error type shared across the
// dispatch pipeline. Every error that crosses a component boundary (ingress
// validation, rate limiting, gateway authorization, tool execution, model
// parsing, persistence) is represented as an *Error carrying one of the
// closed Kind values, so callers can branch on Kind instead of matching
// error strings.
package apierr

import (
	"errors"
	"fmt"
)

// Kind enumerates the closed set of error categories the dispatch pipeline
// can produce.
type Kind string

const (
	// KindValidation marks a malformed or unrecognised CloudEvent or payload.
	KindValidation Kind = "validation-error"
	// KindRateLimited marks a request rejected by a rate limit or back-pressure ceiling.
	KindRateLimited Kind = "rate-limited"
	// KindAccessDenied marks a gateway authorization denial.
	KindAccessDenied Kind = "access-denied"
	// KindNotFound marks a lookup that found nothing.
	KindNotFound Kind = "not-found"
	// KindServiceUnavailable marks a back-end the gateway could not reach.
	KindServiceUnavailable Kind = "service-unavailable"
	// KindUpstreamTimeout marks a call that exceeded its deadline.
	KindUpstreamTimeout Kind = "upstream-timeout"
	// KindUpstreamError marks a back-end call that returned an application error.
	KindUpstreamError Kind = "upstream-error"
	// KindParseError marks a language-model output that failed to parse against its schema.
	KindParseError Kind = "parse-error"
	// KindIO marks a local filesystem or persistence failure.
	KindIO Kind = "io-error"
	// KindInternal marks an unexpected internal failure never surfaced verbatim to users.
	KindInternal Kind = "internal-error"
)

// Error is a structured failure that preserves its Kind and an optional
// wrapped cause, while still supporting errors.Is/As through Unwrap.
type Error struct {
	// Kind categorizes the failure for branching and for the chat adapter's
	// prose-reply mapping (see apierr.Prose).
	Kind Kind
	// Message is the human-readable summary of the failure.
	Message string
	// Field optionally names the offending field for validation errors.
	Field string
	// Cause links to the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("%s: %s (field %q)", e.Kind, e.Message, e.Field)
	}
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

// Unwrap exposes the wrapped cause for errors.Is/As.
func (e *Error) Unwrap() error { return e.Cause }

// New constructs an *Error of the given kind with a message.
func New(kind Kind, message string) *Error {
	if message == "" {
		message = string(kind)
	}
	return &Error{Kind: kind, Message: message}
}

// Newf formats a message according to a format specifier.
func Newf(kind Kind, format string, args ...any) *Error {
	return New(kind, fmt.Sprintf(format, args...))
}

// Wrap constructs an *Error of the given kind wrapping an existing error.
func Wrap(kind Kind, message string, cause error) *Error {
	if message == "" && cause != nil {
		message = cause.Error()
	}
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// ValidationField constructs a KindValidation error naming the offending field.
func ValidationField(field, message string) *Error {
	return &Error{Kind: KindValidation, Message: message, Field: field}
}

// KindOf extracts the Kind from err, returning KindInternal if err does not
// chain to an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Prose converts a Kind into the user-visible reply the chat adapter sends,
// per spec §7: internal errors are never surfaced verbatim.
func Prose(kind Kind) string {
	switch kind {
	case KindValidation:
		return "I didn't understand that."
	case KindRateLimited:
		return "Things are busy right now, try again later."
	case KindServiceUnavailable:
		return "I can't reach that service right now."
	case KindAccessDenied:
		return "You don't have permission to do that."
	default:
		return "Sorry, something went wrong on my end."
	}
}
