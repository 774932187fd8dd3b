// Package http is the JSON HTTP client and error taxonomy shared by the
// Jira, provisioning and extraction adapters.
package http

import (
	"errors"
	"fmt"
	"net/http"
)

// Sentinels matched by APIError.Unwrap.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrUnauthorized = errors.New("authentication failed")
	ErrForbidden    = errors.New("permission denied")
	ErrRateLimited  = errors.New("rate limit exceeded")
	ErrBadRequest   = errors.New("bad request")
	ErrServerError  = errors.New("server error")
)

var statusSentinels = map[int]error{
	http.StatusBadRequest:      ErrBadRequest,
	http.StatusUnauthorized:    ErrUnauthorized,
	http.StatusForbidden:       ErrForbidden,
	http.StatusNotFound:        ErrNotFound,
	http.StatusTooManyRequests: ErrRateLimited,
}

// APIError is a non-2xx response from a remote service.
type APIError struct {
	// Service names the integration, e.g. "jira" or "onboard api".
	Service    string
	StatusCode int
	// Message is the most specific error text found in the body.
	Message  string
	Endpoint string
	// RequestID is the X-Request-Id response header, when present.
	RequestID string
}

func (e *APIError) Error() string {
	where := e.Endpoint
	if e.RequestID != "" {
		where += " [" + e.RequestID + "]"
	}
	return fmt.Sprintf("%s API error (%d) at %s: %s", e.Service, e.StatusCode, where, e.Message)
}

// Unwrap maps the status code to a sentinel. Unlisted 4xx codes unwrap to
// nil.
func (e *APIError) Unwrap() error {
	if err, ok := statusSentinels[e.StatusCode]; ok {
		return err
	}
	if e.StatusCode >= 500 {
		return ErrServerError
	}
	return nil
}

// AuthError is a failure to authenticate before a request was sent, such
// as a service token that could not be signed.
type AuthError struct {
	Service string
	Reason  string
}

func (e *AuthError) Error() string {
	return fmt.Sprintf("%s authentication failed: %s", e.Service, e.Reason)
}

func (e *AuthError) Unwrap() error { return ErrUnauthorized }

// IsNotFound reports whether err is a 404.
func IsNotFound(err error) bool { return errors.Is(err, ErrNotFound) }

// IsUnauthorized reports whether err is a 401 or an AuthError.
func IsUnauthorized(err error) bool { return errors.Is(err, ErrUnauthorized) }

// IsForbidden reports whether err is a 403.
func IsForbidden(err error) bool { return errors.Is(err, ErrForbidden) }

// IsRateLimited reports whether err is a 429.
func IsRateLimited(err error) bool { return errors.Is(err, ErrRateLimited) }

// IsRetryable reports whether err is a 429 or 5xx.
func IsRetryable(err error) bool {
	return IsRateLimited(err) || errors.Is(err, ErrServerError)
}
