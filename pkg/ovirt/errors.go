package ovirt

import (
	"errors"
	"fmt"
	"net/http"
)

// Kind classifies an error for callers. The set is closed: transport
// libraries are mapped into it and never leak raw.
type Kind string

const (
	// KindConnectFailure: connection parameters were malformed.
	KindConnectFailure Kind = "connect_failure"
	// KindUnreachable: network or DNS failure.
	KindUnreachable Kind = "unreachable"
	// KindInvalidCredentials: authentication was rejected.
	KindInvalidCredentials Kind = "invalid_credentials"
	// KindLoginError: anything else; detail is logged, not returned.
	KindLoginError Kind = "login_error"
	// KindInventoryUnavailable: no API connection could be established during refresh.
	KindInventoryUnavailable Kind = "inventory_unavailable"
)

const (
	msgInvalidCredentials = "Incorrect user name or password."
	msgLoginError         = "Login failed due to an unexpected error. See logs for details."
)

// Error is a classified error. Error() returns only the human-readable
// message; the cause is kept for logging through Unwrap.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Message == "" {
		return string(e.Kind)
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// NewError builds a classified error.
func NewError(kind Kind, message string, cause error) *Error {
	return &Error{Kind: kind, Message: message, Err: cause}
}

// ConnectFailure reports malformed connection parameters.
func ConnectFailure(format string, args ...any) *Error {
	return &Error{Kind: KindConnectFailure, Message: fmt.Sprintf(format, args...)}
}

// KindOf returns the kind of the first classified error in err's chain,
// or "" when err is not classified.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return ""
}

// IsKind reports whether err carries the given classification.
func IsKind(err error, kind Kind) bool {
	return err != nil && KindOf(err) == kind
}

// ClientError wraps an error returned by an API client library so the
// classifier can tell which library produced it.
type ClientError struct {
	Version Version
	Err     error
}

func (e *ClientError) Error() string {
	return e.Err.Error()
}

func (e *ClientError) Unwrap() error {
	return e.Err
}

// StatusError is a non-success HTTP response from the version 3 API.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d %s", e.StatusCode, http.StatusText(e.StatusCode))
}

// Unauthorized reports whether the response rejected the credentials.
func (e *StatusError) Unauthorized() bool {
	return e.StatusCode == http.StatusUnauthorized || e.StatusCode == http.StatusForbidden
}
