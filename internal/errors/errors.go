// Package errors defines the client-side error taxonomy for the bizdir API.
//
// Every failure surfaced by the SDK is an *Error carrying a Kind. The Kind
// decides how the transport layer reacts: KindAuth enters the refresh-retry
// protocol, KindBlocked carries the account resumption timestamp through to
// the caller unmodified, and everything else propagates as-is.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// Kind classifies a failure into one of the client's categories.
type Kind string

const (
	// KindValidation is a structured 4xx failure with per-field messages.
	KindValidation Kind = "validation"

	// KindAuth is a 401 unauthenticated failure. Triggers the transport
	// refresh protocol on non-exempt endpoints.
	KindAuth Kind = "auth"

	// KindBlocked is a 403 carrying a blocked-account resumption timestamp.
	// Must never trigger the refresh retry.
	KindBlocked Kind = "blocked"

	// KindForbidden is an authorization failure, either remote (plain 403)
	// or raised locally by a client-side role check.
	KindForbidden Kind = "forbidden"

	// KindNotFound is a 404.
	KindNotFound Kind = "not_found"

	// KindNetwork means no response was received at all.
	KindNetwork Kind = "network"

	// KindServer is a 5xx.
	KindServer Kind = "server"
)

// Error is the SDK's error type.
type Error struct {
	// Kind is the failure category.
	Kind Kind

	// Message is the server-provided or synthesized human-readable message.
	Message string

	// Status is the HTTP status code, 0 when no response was received.
	Status int

	// Fields holds per-field validation messages for KindValidation.
	Fields map[string]string

	// ResumeAt is the blocked-account resumption timestamp for KindBlocked.
	ResumeAt time.Time

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("%s: %s", e.Kind, e.Message))
	if len(e.Fields) > 0 {
		b.WriteString(" (")
		first := true
		for field, msg := range e.Fields {
			if !first {
				b.WriteString("; ")
			}
			b.WriteString(fmt.Sprintf("%s: %s", field, msg))
			first = false
		}
		b.WriteString(")")
	}
	if e.Cause != nil {
		b.WriteString(fmt.Sprintf(": %v", e.Cause))
	}
	return b.String()
}

// Unwrap supports errors.Is and errors.As chains.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error.
func New(kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message}
}

// Wrap creates a new Error wrapping a cause.
func Wrap(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Cause: cause}
}

// KindOf returns the Kind of err, or "" if err is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// As extracts the *Error from err, if present.
func As(err error) (*Error, bool) {
	var e *Error
	ok := errors.As(err, &e)
	return e, ok
}

// IsAuth reports whether err is a 401 unauthenticated failure.
func IsAuth(err error) bool { return KindOf(err) == KindAuth }

// IsBlocked reports whether err is a blocked-account failure.
func IsBlocked(err error) bool { return KindOf(err) == KindBlocked }

// IsForbidden reports whether err is an authorization failure.
func IsForbidden(err error) bool { return KindOf(err) == KindForbidden }

// IsNetwork reports whether err means no response was received.
func IsNetwork(err error) bool { return KindOf(err) == KindNetwork }

// wireError is the loosely-typed shape of a failure envelope. The data
// object is only inspected for the blocked-account window.
type wireError struct {
	Success bool              `json:"success"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
	Data    *struct {
		BlockedUntil string `json:"blockedUntil,omitempty"`
	} `json:"data,omitempty"`
}

// FromResponse maps a non-2xx API response to an *Error.
//
// A 403 whose envelope carries a blockedUntil timestamp becomes KindBlocked;
// a plain 403 becomes KindForbidden. Unparseable bodies fall back to a
// generic message for the mapped kind.
func FromResponse(status int, body []byte) *Error {
	var wire wireError
	_ = json.Unmarshal(body, &wire)

	message := wire.Message
	if message == "" {
		message = http.StatusText(status)
	}

	switch {
	case status == http.StatusUnauthorized:
		return &Error{Kind: KindAuth, Message: message, Status: status}
	case status == http.StatusForbidden:
		if wire.Data != nil && wire.Data.BlockedUntil != "" {
			resumeAt, err := time.Parse(time.RFC3339, wire.Data.BlockedUntil)
			if err == nil {
				return &Error{Kind: KindBlocked, Message: message, Status: status, ResumeAt: resumeAt}
			}
		}
		return &Error{Kind: KindForbidden, Message: message, Status: status}
	case status == http.StatusNotFound:
		return &Error{Kind: KindNotFound, Message: message, Status: status}
	case status >= 500:
		return &Error{Kind: KindServer, Message: message, Status: status}
	default:
		return &Error{Kind: KindValidation, Message: message, Status: status, Fields: wire.Errors}
	}
}

// NewNetwork wraps a transport-level failure where no response arrived.
func NewNetwork(cause error) *Error {
	return &Error{Kind: KindNetwork, Message: "no response from server", Cause: cause}
}

// NewForbiddenLocal builds the error raised by a client-side role check.
// It mirrors the server's enforcement for UX purposes only; the remote side
// still enforces authorization independently.
func NewForbiddenLocal(action string) *Error {
	return &Error{Kind: KindForbidden, Message: fmt.Sprintf("insufficient role for %s", action)}
}
