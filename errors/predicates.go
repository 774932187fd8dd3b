package errors

import (
	"errors"
	"strings"

	"github.com/quilr/qonboard/config"
	qhttp "github.com/quilr/qonboard/http"
)

// IsAuthError reports a 401 from any HTTP adapter or an auth failure from
// a database driver.
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrNotAuthenticated) || qhttp.IsUnauthorized(err) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	return strings.Contains(errStr, "password authentication failed") ||
		strings.Contains(errStr, "unauthorized") ||
		strings.Contains(errStr, "authentication failure")
}

// IsConnectionError reports network, TLS and timeout failures.
func IsConnectionError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrConnectionFailed) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused", "no such host", "network is unreachable", "dial tcp",
		"certificate", "tls", "x509",
		"timeout", "deadline exceeded",
	} {
		if strings.Contains(errStr, marker) {
			return true
		}
	}
	return false
}

// IsPermissionError reports a 403.
func IsPermissionError(err error) bool {
	if err == nil {
		return false
	}
	return errors.Is(err, ErrPermissionDenied) || qhttp.IsForbidden(err)
}

// IsConfigError reports a missing or invalid configuration value.
func IsConfigError(err error) bool {
	return errors.Is(err, config.ErrMissingKey) ||
		errors.Is(err, config.ErrInvalidValue) ||
		errors.Is(err, config.ErrUnknownEnvironment)
}
