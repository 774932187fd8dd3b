package errors

import (
	"errors"
	"fmt"
	"strings"

	"github.com/quilr/qonboard/config"
)

// CLIError wraps an error with an operator-facing message and a next step.
type CLIError struct {
	// Err is the underlying error
	Err error

	// Message says what went wrong
	Message string

	// Suggestion is the command or check that fixes it
	Suggestion string

	// Details is optional extra context
	Details string
}

func (e *CLIError) Error() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString("\n")
		sb.WriteString(e.Details)
	}

	if e.Suggestion != "" {
		sb.WriteString("\n\n")
		sb.WriteString(e.Suggestion)
	}

	return sb.String()
}

func (e *CLIError) Unwrap() error {
	return e.Err
}

// ErrorMessenger supplies messages and suggestions. Service names the
// integration ("jira", "azure-openai", "onboard api", ...).
type ErrorMessenger interface {
	AuthErrorMessage(service string) (message, suggestion string)
	PermissionDeniedMessage(service string) (message, suggestion string)
	ConnectionErrorMessage(target string) (message, suggestion string)
	TLSErrorMessage(target string) (message, suggestion string)
	TimeoutErrorMessage(target string) (message, suggestion string)
	MissingConfigMessage(key, env string) (message, suggestion string)
}

// credentialKeys maps a service to the config keys holding its credentials.
var credentialKeys = map[string][]string{
	"jira":         {"JIRA_USERNAME", "JIRA_API_TOKEN"},
	"azure-openai": {"AZURE_OPENAI_API_KEY"},
	"onboard api":  {"ONBOARD_API_JWT_SECRET"},
	"github":       {"GITHUB_TOKEN"},
	"gitlab":       {"GITLAB_TOKEN"},
}

// DefaultMessenger provides qonboard's messages.
type DefaultMessenger struct{}

func (DefaultMessenger) AuthErrorMessage(service string) (string, string) {
	keys := credentialKeys[service]
	if len(keys) == 0 {
		return fmt.Sprintf("%s rejected the credentials.", service), "Check the stored credentials with: qonboard config show"
	}
	return fmt.Sprintf("%s rejected the credentials.", service),
		fmt.Sprintf("Check %s, then update with: qonboard config set %s VALUE", strings.Join(keys, " and "), keys[len(keys)-1])
}

func (DefaultMessenger) PermissionDeniedMessage(service string) (string, string) {
	return fmt.Sprintf("%s denied the request.", service),
		"The configured account lacks permission for this action. Ask an administrator for access."
}

func (DefaultMessenger) ConnectionErrorMessage(target string) (string, string) {
	return fmt.Sprintf("Cannot connect to %s", target),
		"Check that:\n  - The host is correct (qonboard config show)\n  - You are on the VPN for this environment\n  - Your network connection is working"
}

func (DefaultMessenger) TLSErrorMessage(target string) (string, string) {
	return fmt.Sprintf("TLS/certificate error connecting to %s", target),
		"Check the host name and, for PostgreSQL, PG_SSLMODE."
}

func (DefaultMessenger) TimeoutErrorMessage(target string) (string, string) {
	return fmt.Sprintf("Connection to %s timed out", target),
		"The service may be overloaded or unreachable.\nRe-run to resume from the last completed step."
}

func (DefaultMessenger) MissingConfigMessage(key, env string) (string, string) {
	set := (&config.MissingKeyError{Key: key, Env: env}).SetCommand()
	if env == "" {
		return fmt.Sprintf("Required config key %s is missing or empty.", key),
			fmt.Sprintf("Run '%s', or 'qonboard config init' to ingest from .env.", set)
	}
	return fmt.Sprintf("Required config key %s is missing for environment %s.", key, env),
		fmt.Sprintf("Run '%s'.", set)
}

// WrapConfig configures error wrapping behavior.
type WrapConfig struct {
	Messenger ErrorMessenger
}

// Option configures WrapConfig.
type Option func(*WrapConfig)

// WithMessenger sets a custom error messenger.
func WithMessenger(m ErrorMessenger) Option {
	return func(c *WrapConfig) {
		c.Messenger = m
	}
}

func getMessenger(opts []Option) ErrorMessenger {
	cfg := &WrapConfig{
		Messenger: DefaultMessenger{},
	}
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg.Messenger
}

// WrapConfigError turns a *config.MissingKeyError into a CLIError whose
// suggestion is the exact `qonboard config set` command.
func WrapConfigError(err error, opts ...Option) error {
	var missing *config.MissingKeyError
	if !errors.As(err, &missing) {
		return err
	}
	msg, suggestion := getMessenger(opts).MissingConfigMessage(missing.Key, missing.Env)
	return &CLIError{Err: err, Message: msg, Suggestion: suggestion}
}

// WrapAuthError wraps 401 and 403 responses from service.
func WrapAuthError(err error, service string, opts ...Option) error {
	if err == nil {
		return nil
	}
	messenger := getMessenger(opts)

	if IsAuthError(err) {
		msg, suggestion := messenger.AuthErrorMessage(service)
		return &CLIError{Err: errors.Join(ErrNotAuthenticated, err), Message: msg, Suggestion: suggestion}
	}
	if IsPermissionError(err) {
		msg, suggestion := messenger.PermissionDeniedMessage(service)
		return &CLIError{Err: errors.Join(ErrPermissionDenied, err), Message: msg, Suggestion: suggestion}
	}
	return err
}

// WrapConnectionError wraps network failures reaching target.
func WrapConnectionError(err error, target string, opts ...Option) error {
	if err == nil {
		return nil
	}

	errStr := strings.ToLower(err.Error())
	messenger := getMessenger(opts)

	if strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") ||
		strings.Contains(errStr, "network is unreachable") ||
		strings.Contains(errStr, "dial tcp") {
		msg, suggestion := messenger.ConnectionErrorMessage(target)
		return &CLIError{Err: errors.Join(ErrConnectionFailed, err), Message: msg, Suggestion: suggestion}
	}

	if strings.Contains(errStr, "certificate") || strings.Contains(errStr, "tls") ||
		strings.Contains(errStr, "x509") {
		msg, suggestion := messenger.TLSErrorMessage(target)
		return &CLIError{Err: errors.Join(ErrConnectionFailed, err), Message: msg, Details: err.Error(), Suggestion: suggestion}
	}

	if strings.Contains(errStr, "timeout") || strings.Contains(errStr, "deadline exceeded") {
		msg, suggestion := messenger.TimeoutErrorMessage(target)
		return &CLIError{Err: errors.Join(ErrConnectionFailed, err), Message: msg, Suggestion: suggestion}
	}

	return err
}

// Wrap applies the config, auth and connection wrappers in turn, returning
// the first CLIError produced.
func Wrap(err error, service, target string, opts ...Option) error {
	if err == nil {
		return nil
	}
	var cliErr *CLIError
	if errors.As(err, &cliErr) {
		return err
	}
	for _, wrap := range []func(error) error{
		func(e error) error { return WrapConfigError(e, opts...) },
		func(e error) error { return WrapAuthError(e, service, opts...) },
		func(e error) error { return WrapConnectionError(e, target, opts...) },
	} {
		if wrapped := wrap(err); errors.As(wrapped, &cliErr) {
			return wrapped
		}
	}
	return err
}
