package ovirt

import (
	"errors"
	"log/slog"
	"net"
	"regexp"
	"strings"
	"syscall"

	ovirtsdk "github.com/ovirt/go-ovirt"
)

var ssoErrorPattern = regexp.MustCompile(`(?i)error.*sso`)

// IsSSOError reports whether err is an SSO/authentication-protocol failure
// from the version 4 API. Such failures are definitive credential errors.
// The SDK reports a rejected token request (HTTP 401) as an AuthError whose
// text does not mention SSO, so the error type is checked first.
func IsSSOError(err error) bool {
	var ce *ClientError
	if !errors.As(err, &ce) || ce.Version != V4 {
		return false
	}
	if isAuthError(ce) {
		return true
	}
	return ssoErrorPattern.MatchString(ce.Error())
}

func isAuthError(err error) bool {
	var authErr *ovirtsdk.AuthError
	return errors.As(err, &authErr)
}

// isNetworkError reports whether err belongs to the network-unreachable family.
func isNetworkError(err error) bool {
	if errors.Is(err, syscall.EHOSTUNREACH) || errors.Is(err, syscall.ENETUNREACH) {
		return true
	}
	var dnsErr *net.DNSError
	if errors.As(err, &dnsErr) {
		return true
	}
	var opErr *net.OpError
	if errors.As(err, &opErr) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// HandleVerificationError maps any error raised while verifying credentials
// into the Unreachable / InvalidCredentials / LoginError taxonomy. Errors that
// are already classified pass through unchanged.
func HandleVerificationError(err error, logger *slog.Logger) *Error {
	if err == nil {
		return nil
	}
	if logger == nil {
		logger = slog.Default()
	}

	var tagged *Error
	if errors.As(err, &tagged) {
		return tagged
	}

	if isNetworkError(err) {
		logger.Warn("Engine unreachable", "error", err)
		return NewError(KindUnreachable, err.Error(), err)
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) && statusErr.Unauthorized() {
		return NewError(KindInvalidCredentials, msgInvalidCredentials, err)
	}

	var clientErr *ClientError
	if errors.As(err, &clientErr) && clientErr.Version == V4 {
		return classifyV4Error(clientErr, logger)
	}

	logger.Error("Error while verifying credentials", "error", err)
	return NewError(KindLoginError, msgLoginError, err)
}

func classifyV4Error(err *ClientError, logger *slog.Logger) *Error {
	msg := strings.ToLower(err.Error())
	switch {
	case isAuthError(err),
		strings.Contains(msg, "username or password is incorrect"):
		return NewError(KindInvalidCredentials, msgInvalidCredentials, err)
	case strings.Contains(msg, "couldn't connect to server"),
		strings.Contains(msg, "couldn't resolve host name"):
		return NewError(KindUnreachable, err.Error(), err)
	default:
		logger.Error("Error while verifying credentials", "error", err)
		return NewError(KindLoginError, msgLoginError, err)
	}
}
