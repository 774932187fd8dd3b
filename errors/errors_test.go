package errors

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/quilr/qonboard/config"
	qhttp "github.com/quilr/qonboard/http"
)

func TestCLIError(t *testing.T) {
	err := &CLIError{
		Err:        ErrNotAuthenticated,
		Message:    "Test message",
		Suggestion: "Test suggestion",
		Details:    "Test details",
	}

	if got, want := err.Error(), "Test message\nTest details\n\nTest suggestion"; got != want {
		t.Errorf("Error() = %q, want %q", got, want)
	}
	if !errors.Is(err, ErrNotAuthenticated) {
		t.Error("expected error to unwrap to ErrNotAuthenticated")
	}
}

func TestCLIError_MinimalFields(t *testing.T) {
	err := &CLIError{Err: ErrConnectionFailed, Message: "Connection failed"}
	if got := err.Error(); got != "Connection failed" {
		t.Errorf("expected 'Connection failed', got %q", got)
	}
}

func TestWrapConfigError(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		wantSuggestion string
	}{
		{
			name:           "global key",
			err:            fmt.Errorf("load: %w", &config.MissingKeyError{Key: "JIRA_URL"}),
			wantSuggestion: "Run 'qonboard config set JIRA_URL VALUE', or 'qonboard config init' to ingest from .env.",
		},
		{
			name:           "environment key",
			err:            &config.MissingKeyError{Key: "PG_HOST", Env: "UAE POC"},
			wantSuggestion: `Run 'qonboard config set PG_HOST VALUE --env "UAE POC"'.`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cliErr *CLIError
			if !errors.As(WrapConfigError(tt.err), &cliErr) {
				t.Fatalf("WrapConfigError() did not return a CLIError")
			}
			if cliErr.Suggestion != tt.wantSuggestion {
				t.Errorf("Suggestion = %q, want %q", cliErr.Suggestion, tt.wantSuggestion)
			}
			if !errors.Is(cliErr, config.ErrMissingKey) {
				t.Error("expected CLIError to unwrap to config.ErrMissingKey")
			}
		})
	}

	plain := errors.New("boom")
	if WrapConfigError(plain) != plain {
		t.Error("unrelated errors should pass through")
	}
}

func TestWrapAuthError(t *testing.T) {
	unauthorized := &qhttp.APIError{Service: "jira", StatusCode: 401, Message: "bad token"}
	forbidden := &qhttp.APIError{Service: "jira", StatusCode: 403, Message: "no access"}

	tests := []struct {
		name     string
		err      error
		wantType error
		wantIn   string
	}{
		{"401", unauthorized, ErrNotAuthenticated, "JIRA_USERNAME and JIRA_API_TOKEN"},
		{"403", forbidden, ErrPermissionDenied, "lacks permission"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			wrapped := WrapAuthError(tt.err, "jira")
			var cliErr *CLIError
			if !errors.As(wrapped, &cliErr) {
				t.Fatalf("expected CLIError, got %T", wrapped)
			}
			if !errors.Is(wrapped, tt.wantType) {
				t.Errorf("expected %v in chain", tt.wantType)
			}
			if !errors.Is(wrapped, tt.err) {
				t.Error("original error lost")
			}
			if !strings.Contains(cliErr.Suggestion, tt.wantIn) {
				t.Errorf("Suggestion = %q, want it to contain %q", cliErr.Suggestion, tt.wantIn)
			}
		})
	}

	if WrapAuthError(nil, "jira") != nil {
		t.Error("WrapAuthError(nil) should be nil")
	}
}

func TestWrapConnectionError(t *testing.T) {
	tests := []struct {
		name        string
		err         error
		wantDetails bool
	}{
		{"refused", errors.New("dial tcp 10.0.0.1:5432: connect: connection refused"), false},
		{"tls", errors.New("x509: certificate signed by unknown authority"), true},
		{"timeout", context.DeadlineExceeded, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var cliErr *CLIError
			if !errors.As(WrapConnectionError(tt.err, "pg.uae:5432"), &cliErr) {
				t.Fatal("expected CLIError")
			}
			if !errors.Is(cliErr, ErrConnectionFailed) {
				t.Error("expected ErrConnectionFailed in chain")
			}
			if (cliErr.Details != "") != tt.wantDetails {
				t.Errorf("Details = %q", cliErr.Details)
			}
			if !strings.Contains(cliErr.Message, "pg.uae:5432") {
				t.Errorf("Message = %q", cliErr.Message)
			}
		})
	}
}

func TestWrap(t *testing.T) {
	existing := &CLIError{Message: "already wrapped"}
	if Wrap(existing, "jira", "x") != error(existing) {
		t.Error("CLIError should pass through unchanged")
	}

	plain := errors.New("tenant not found")
	if Wrap(plain, "jira", "x") != plain {
		t.Error("unclassified errors should pass through")
	}

	var cliErr *CLIError
	if !errors.As(Wrap(&config.MissingKeyError{Key: "JIRA_URL"}, "jira", "x"), &cliErr) {
		t.Error("missing key should be wrapped")
	}
}

type customMessenger struct{ DefaultMessenger }

func (customMessenger) AuthErrorMessage(string) (string, string) {
	return "custom", "custom suggestion"
}

func TestWithMessenger(t *testing.T) {
	wrapped := WrapAuthError(qhttp.ErrUnauthorized, "jira", WithMessenger(customMessenger{}))
	var cliErr *CLIError
	if !errors.As(wrapped, &cliErr) || cliErr.Message != "custom" {
		t.Errorf("wrapped = %v", wrapped)
	}
}

func TestPredicates(t *testing.T) {
	tests := []struct {
		name string
		fn   func(error) bool
		err  error
		want bool
	}{
		{"auth sentinel", IsAuthError, fmt.Errorf("x: %w", qhttp.ErrUnauthorized), true},
		{"auth postgres", IsAuthError, errors.New(`FATAL: password authentication failed for user "ops"`), true},
		{"auth nil", IsAuthError, nil, false},
		{"connection", IsConnectionError, errors.New("lookup pg.uae: no such host"), true},
		{"connection other", IsConnectionError, errors.New("tenant not found"), false},
		{"permission", IsPermissionError, &qhttp.APIError{StatusCode: 403}, true},
		{"config missing", IsConfigError, &config.MissingKeyError{Key: "K"}, true},
		{"config env", IsConfigError, fmt.Errorf("%w %q", config.ErrUnknownEnvironment, "Mars"), true},
		{"config other", IsConfigError, errors.New("x"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.fn(tt.err); got != tt.want {
				t.Errorf("got %v, want %v", got, tt.want)
			}
		})
	}
}
