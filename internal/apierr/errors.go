// Package apierr defines the closed set of failure kinds the remote API can
// produce. Responses are classified once, at the API client boundary, so the
// rest of the client switches on a Kind instead of raw status codes.
package apierr

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind enumerates failure classes.
type Kind int

const (
	KindUnknown Kind = iota
	KindPinRequired
	KindPinRejected
	KindForbidden
	KindNotFound
	KindTimeout
	KindTransport
	KindSessionExpired
	KindInvalidCredentials
	KindValidation
	KindServer
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindPinRequired:
		return "pin_required"
	case KindPinRejected:
		return "pin_rejected"
	case KindForbidden:
		return "forbidden"
	case KindNotFound:
		return "not_found"
	case KindTimeout:
		return "timeout"
	case KindTransport:
		return "transport"
	case KindSessionExpired:
		return "session_expired"
	case KindInvalidCredentials:
		return "invalid_credentials"
	case KindValidation:
		return "validation"
	case KindServer:
		return "server"
	default:
		return "unknown"
	}
}

// Retryable reports whether the user should be offered a manual retry.
// Nothing in the client retries on its own.
func (k Kind) Retryable() bool {
	return k == KindTimeout || k == KindTransport || k == KindServer
}

// Error is a classified API failure.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	msg := e.Message
	if msg == "" {
		msg = e.Kind.String()
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", msg, e.Err)
	}
	return msg
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// Is matches any *Error of the same kind, so callers can write
// errors.Is(err, apierr.ErrNotFound).
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok || e == nil || t == nil {
		return false
	}
	return e.Kind == t.Kind
}

// New creates an Error of the given kind.
func New(kind Kind, status int, message string) *Error {
	return &Error{Kind: kind, Status: status, Message: message}
}

// Wrap classifies an underlying error.
func Wrap(err error, kind Kind, message string) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

// Sentinels for errors.Is comparisons.
var (
	ErrPinRequired        = New(KindPinRequired, http.StatusUnauthorized, "pin required")
	ErrPinRejected        = New(KindPinRejected, http.StatusUnauthorized, "incorrect pin")
	ErrForbidden          = New(KindForbidden, http.StatusForbidden, "access denied")
	ErrNotFound           = New(KindNotFound, http.StatusNotFound, "not found")
	ErrTimeout            = New(KindTimeout, 0, "request timed out")
	ErrTransport          = New(KindTransport, 0, "transport error")
	ErrSessionExpired     = New(KindSessionExpired, http.StatusUnauthorized, "session expired, please log in again")
	ErrInvalidCredentials = New(KindInvalidCredentials, http.StatusUnauthorized, "invalid email or password")
	ErrValidation         = New(KindValidation, http.StatusBadRequest, "validation failed")
	ErrServer             = New(KindServer, http.StatusInternalServerError, "server error")
)

// KindOf extracts the kind of err, or KindUnknown when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindUnknown
}

// FromStatus maps an HTTP status to a kind. 401 is not handled here because
// its meaning depends on the response body and the operation.
func FromStatus(status int) Kind {
	switch {
	case status == http.StatusForbidden:
		return KindForbidden
	case status == http.StatusNotFound:
		return KindNotFound
	case status == http.StatusRequestTimeout || status == http.StatusGatewayTimeout:
		return KindTimeout
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity ||
		status == http.StatusConflict || status == http.StatusRequestEntityTooLarge:
		return KindValidation
	case status >= 500:
		return KindServer
	default:
		return KindUnknown
	}
}
