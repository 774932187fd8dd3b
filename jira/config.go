package jira

import (
	"time"
)

// AuthType represents the type of authentication to use.
type AuthType string

// Authentication types supported by the Jira client.
const (
	AuthAPIToken AuthType = "api_token" // Cloud: email + API token
	AuthBasic    AuthType = "basic"     // Server: username + password
	AuthPAT      AuthType = "pat"       // Server/DC: Personal Access Token
)

// Config holds the configuration for the Jira client.
type Config struct {
	// URL is the base URL of the Jira instance.
	URL string `yaml:"url"`

	// APIVersion selects the REST API. Cloud requires v3 for search.
	APIVersion APIVersion `yaml:"api_version"`

	Auth AuthConfig `yaml:"auth"`

	// Timeout is the per-request timeout.
	Timeout time.Duration `yaml:"timeout"`

	// MaxRetries is the total number of attempts for 429 and 5xx responses.
	MaxRetries int `yaml:"max_retries"`

	// RetryWait is the initial backoff between attempts.
	RetryWait time.Duration `yaml:"retry_wait"`

	// PageSize is the maxResults sent with each search page.
	PageSize int `yaml:"page_size"`
}

// AuthConfig holds authentication configuration.
type AuthConfig struct {
	Type AuthType `yaml:"type"`

	// Email is the account for api_token auth.
	Email string `yaml:"email"`

	// Token is the API token (Cloud) or PAT (Server/DC).
	Token string `yaml:"token"`

	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		APIVersion: APIVersionV3,
		Timeout:    30 * time.Second,
		MaxRetries: 3,
		RetryWait:  1 * time.Second,
		PageSize:   50,
	}
}

// Validate reports the first missing or inconsistent setting.
func (c *Config) Validate() error {
	if c.URL == "" {
		return ErrConfigURLRequired
	}
	if err := c.Auth.validate(); err != nil {
		return err
	}
	switch c.APIVersion {
	case "", APIVersionV2, APIVersionV3:
		return nil
	}
	return ErrConfigAPIVersionInvalid
}

func (a AuthConfig) validate() error {
	var missing bool
	var err error
	switch a.Type {
	case "":
		return ErrConfigAuthTypeRequired
	case AuthAPIToken:
		missing, err = a.Email == "" || a.Token == "", ErrConfigAPITokenAuth
	case AuthBasic:
		missing, err = a.Username == "" || a.Password == "", ErrConfigBasicAuth
	case AuthPAT:
		missing, err = a.Token == "", ErrConfigPATAuth
	default:
		return ErrConfigAuthTypeInvalid
	}
	if missing {
		return err
	}
	return nil
}

// GetAPIVersion returns the configured API version, v3 when unset.
func (c *Config) GetAPIVersion() APIVersion {
	if c.APIVersion == "" {
		return APIVersionV3
	}
	return c.APIVersion
}
