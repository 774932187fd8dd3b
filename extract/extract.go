package extract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	qhttp "github.com/quilr/qonboard/http"
	"github.com/quilr/qonboard/onboard"
)

// Sentinel errors for extraction.
var (
	ErrEmptyDescription = errors.New("ticket description is empty")
	ErrNoCustomers      = errors.New("no customers could be extracted from the description")
	ErrNoToolCall       = errors.New("model response did not call extract_customers")
)

// FunctionName is the tool the model is forced to call.
const FunctionName = "extract_customers"

// DefaultMaxTokens bounds the completion size.
const DefaultMaxTokens = 512

// Config identifies the Azure OpenAI deployment.
type Config struct {
	APIKey     string
	Endpoint   string
	Deployment string
	APIVersion string
	Timeout    time.Duration
	MaxTokens  int
}

// Extractor pulls customer records out of free-form ticket text with an
// Azure OpenAI chat completion and a forced function call.
type Extractor struct {
	cfg    Config
	api    *qhttp.Client
	logger *slog.Logger
}

// Option configures an Extractor.
type Option func(*Extractor)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(e *Extractor) {
		if logger != nil {
			e.logger = logger
		}
	}
}

// WithHTTPClient overrides the underlying HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Extractor) {
		e.api = e.newAPI(client)
	}
}

// New creates an Extractor.
func New(cfg Config, opts ...Option) *Extractor {
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = qhttp.DefaultTimeout
	}
	e := &Extractor{
		cfg:    cfg,
		logger: slog.Default(),
	}
	e.api = e.newAPI(nil)
	for _, opt := range opts {
		opt(e)
	}
	return e
}

func (e *Extractor) newAPI(client *http.Client) *qhttp.Client {
	if client == nil {
		client = &http.Client{Timeout: e.cfg.Timeout}
	}
	return qhttp.NewClient(qhttp.ClientConfig{
		Client:      client,
		BaseURL:     e.cfg.Endpoint,
		ServiceName: "azure-openai",
		Headers:     map[string]string{"api-key": e.cfg.APIKey},
	})
}

// Extract returns one user per valid customer entry in description.
// Entries missing a first name or email are skipped with a warning.
func (e *Extractor) Extract(ctx context.Context, description string) ([]onboard.User, error) {
	description = strings.TrimSpace(description)
	if description == "" {
		return nil, ErrEmptyDescription
	}

	e.logger.Debug("extracting customers", "chars", len(description))

	var resp chatResponse
	if err := e.api.Post(ctx, e.completionsPath(), e.request(description), &resp); err != nil {
		return nil, fmt.Errorf("extract customers: %w", err)
	}

	args, err := resp.arguments()
	if err != nil {
		return nil, err
	}

	var payload struct {
		Customers []customer `json:"customers"`
	}
	if err := json.Unmarshal([]byte(args), &payload); err != nil {
		return nil, fmt.Errorf("decode %s arguments: %w", FunctionName, err)
	}
	if len(payload.Customers) == 0 {
		return nil, ErrNoCustomers
	}

	users := make([]onboard.User, 0, len(payload.Customers))
	for i, c := range payload.Customers {
		first := strings.TrimSpace(c.Firstname)
		last := strings.TrimSpace(c.Lastname)
		email := strings.ToLower(strings.TrimSpace(c.Email))

		if first == "" || email == "" {
			e.logger.Warn("customer entry skipped, missing firstname or email", "entry", i+1)
			continue
		}

		u := onboard.User{
			Firstname: normalizeName(first),
			Lastname:  normalizeName(last),
			Email:     email,
		}
		if u.Lastname == "" {
			u.Lastname = " "
		}
		users = append(users, u)
		e.logger.Info("extracted customer", "entry", i+1, "name", u.FullName(), "email", u.Email)
	}

	if len(users) == 0 {
		return nil, ErrNoCustomers
	}
	return users, nil
}

// normalizeName title-cases names typed entirely in lower case and leaves
// anything with deliberate capitals alone.
func normalizeName(name string) string {
	if name == "" || name != strings.ToLower(name) {
		return name
	}
	return cases.Title(language.Und).String(name)
}

func (e *Extractor) completionsPath() string {
	return fmt.Sprintf("/openai/deployments/%s/chat/completions?api-version=%s",
		url.PathEscape(e.cfg.Deployment), url.QueryEscape(e.cfg.APIVersion))
}

func (e *Extractor) request(description string) chatRequest {
	return chatRequest{
		Messages: []chatMessage{{
			Role: "user",
			Content: "Extract all customer entries from this Jira ticket description. " +
				"Each entry has a name (one or two words) followed by an email.\n\n" + description,
		}},
		Tools:      []tool{{Type: "function", Function: extractFunction}},
		ToolChoice: toolChoice{Type: "function", Function: toolName{Name: FunctionName}},
		MaxTokens:  e.cfg.MaxTokens,
	}
}
