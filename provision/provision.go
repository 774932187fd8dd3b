package provision

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/quilr/qonboard/auth"
	qhttp "github.com/quilr/qonboard/http"
	"github.com/quilr/qonboard/onboard"
)

// OnboardPath is the BFF route that creates a user in a tenant.
const OnboardPath = "/bff/auth/auth/onboard"

// DefaultVendor is sent when Config.Vendor is empty.
const DefaultVendor = "microsoft"

// DefaultDomains maps environment names to their API host. An empty host
// marks an environment that exists but has no endpoint yet.
var DefaultDomains = map[string]string{
	"UAE POC":  "trust.quilr.ai",
	"UAE PROD": "trust.quilr.ai",
	"IND POC":  "platform.quilr.ai",
	"IND PROD": "platform.quilrai.com",
	"USA POC":  "app.quilr.ai",
	"USA PROD": "app.quilrai.com",
}

// Config configures the provisioning client.
type Config struct {
	// Vendor is the identity vendor sent with every user.
	Vendor string

	// Timeout bounds each call. Zero uses the shared client default.
	Timeout time.Duration

	// Scheme is "https" unless overridden.
	Scheme string

	// Domains overrides DefaultDomains.
	Domains map[string]string

	// TokenSecret, when set, signs a short-lived bearer token per call.
	TokenSecret string

	// TokenSubject is the token subject. Defaults to "qonboard".
	TokenSubject string
}

// Client calls the per-environment onboarding API.
type Client struct {
	cfg     Config
	api     *qhttp.Client
	logger  *slog.Logger
	domains map[string]string
}

// Option configures a Client.
type Option func(*Client)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a provisioning client. Calls are attempted once: creating a
// user is not idempotent.
func New(cfg Config, opts ...Option) *Client {
	if cfg.Scheme == "" {
		cfg.Scheme = "https"
	}
	if cfg.Vendor == "" {
		cfg.Vendor = DefaultVendor
	}
	if cfg.TokenSubject == "" {
		cfg.TokenSubject = "qonboard"
	}

	c := &Client{cfg: cfg, logger: slog.Default(), domains: cfg.Domains}
	if c.domains == nil {
		c.domains = DefaultDomains
	}
	for _, opt := range opts {
		opt(c)
	}

	var httpClient *http.Client
	if cfg.Timeout > 0 {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	var before func(*http.Request) error
	if cfg.TokenSecret != "" {
		before = c.signRequest
	}

	c.api = qhttp.NewClient(qhttp.ClientConfig{
		Client:        httpClient,
		ServiceName:   "onboard api",
		MaxRetries:    1,
		BeforeRequest: before,
	})
	return c
}

// Environments lists the known environment names, sorted.
func (c *Client) Environments() []string {
	names := make([]string, 0, len(c.domains))
	for name := range c.domains {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ResolveDomain returns the API host for env.
func (c *Client) ResolveDomain(env string) (string, error) {
	key := strings.TrimSpace(env)
	domain, ok := c.domains[key]
	if !ok {
		return "", fmt.Errorf("%w: unknown environment %q (valid: %s)",
			onboard.ErrDomainUnavailable, key, strings.Join(c.Environments(), ", "))
	}
	if domain == "" {
		return "", fmt.Errorf("%w: %q is not available yet", onboard.ErrDomainUnavailable, key)
	}
	return domain, nil
}

// Endpoint is the onboarding URL for domain.
func (c *Client) Endpoint(domain string) string {
	return c.cfg.Scheme + "://" + domain + OnboardPath
}

// ProvisionUser creates user in the tenant served by domain and returns the
// decoded response. A non-JSON body is returned as {"raw": text}.
func (c *Client) ProvisionUser(ctx context.Context, user onboard.User, domain string) (map[string]any, error) {
	payload := map[string]string{
		"email":     user.Email,
		"firstname": user.Firstname,
		"lastname":  user.Lastname,
		"vendor":    c.cfg.Vendor,
	}
	c.logger.Debug("onboard payload", "email", user.Email, "domain", domain)

	result, err := c.api.PostForMap(ctx, c.Endpoint(domain), payload)
	if err != nil {
		return nil, fmt.Errorf("onboard %s on %s: %w", user.Email, domain, err)
	}

	c.logger.Info("user onboarded", "email", user.Email, "domain", domain)
	return result, nil
}

func (c *Client) signRequest(req *http.Request) error {
	token, err := auth.GenerateServiceToken(auth.JWTConfig{
		Secret: []byte(c.cfg.TokenSecret),
		Issuer: "qonboard",
	}, c.cfg.TokenSubject, req.URL.Host, "")
	if err != nil {
		return &qhttp.AuthError{Service: "onboard api", Reason: err.Error()}
	}
	req.Header.Set("Authorization", "Bearer "+token)
	return nil
}

var _ onboard.ProvisioningClient = (*Client)(nil)
