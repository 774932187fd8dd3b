package http

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DefaultTimeout is the default HTTP request timeout.
const DefaultTimeout = 30 * time.Second

// DefaultMaxRetries is the default number of attempts per request.
const DefaultMaxRetries = 3

// DefaultRetryWait is the default initial wait between retries.
const DefaultRetryWait = 1 * time.Second

// Client is a small JSON client shared by the Jira, provisioning and
// extraction adapters.
type Client struct {
	client      *http.Client
	baseURL     string
	serviceName string
	maxRetries  int
	retryWait   time.Duration
	headers     map[string]string

	// beforeRequest is called before each attempt (auth headers, tokens).
	beforeRequest func(req *http.Request) error
}

// ClientConfig holds configuration for Client.
type ClientConfig struct {
	Client      *http.Client
	BaseURL     string
	ServiceName string

	// MaxRetries is the total number of attempts. 1 disables retries.
	MaxRetries int
	RetryWait  time.Duration

	// Headers are set on every request.
	Headers map[string]string

	// BeforeRequest may decorate or reject each attempt.
	BeforeRequest func(req *http.Request) error
}

// NewClient creates a new Client with the given configuration.
func NewClient(cfg ClientConfig) *Client {
	c := &Client{
		client:        cfg.Client,
		baseURL:       strings.TrimSuffix(cfg.BaseURL, "/"),
		serviceName:   cfg.ServiceName,
		maxRetries:    cfg.MaxRetries,
		retryWait:     cfg.RetryWait,
		headers:       cfg.Headers,
		beforeRequest: cfg.BeforeRequest,
	}

	if c.client == nil {
		c.client = &http.Client{Timeout: DefaultTimeout}
	}
	if c.maxRetries <= 0 {
		c.maxRetries = DefaultMaxRetries
	}
	if c.retryWait <= 0 {
		c.retryWait = DefaultRetryWait
	}
	if c.serviceName == "" {
		c.serviceName = "http"
	}

	return c
}

// BaseURL returns the URL prefix applied to every path.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Request executes an HTTP request, retrying network failures, 429 and 5xx
// responses with exponential backoff.
func (c *Client) Request(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var payload []byte
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal %s request body: %w", c.serviceName, err)
		}
		payload = data
	}

	url := c.baseURL + path

	var lastErr error
	for attempt := range c.maxRetries {
		var bodyReader io.Reader
		if payload != nil {
			bodyReader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("create request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Accept", "application/json")
		for k, v := range c.headers {
			req.Header.Set(k, v)
		}

		if c.beforeRequest != nil {
			if err := c.beforeRequest(req); err != nil {
				return nil, fmt.Errorf("prepare %s request: %w", c.serviceName, err)
			}
		}

		resp, err := c.client.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%s request failed: %w", c.serviceName, err)
			if attempt < c.maxRetries-1 && ctx.Err() == nil {
				if waitErr := sleep(ctx, c.retryWait*time.Duration(1<<attempt)); waitErr != nil {
					return nil, waitErr
				}
				continue
			}
			return nil, lastErr
		}

		if retryableStatus(resp.StatusCode) && attempt < c.maxRetries-1 {
			wait := c.getRetryWait(resp, attempt)
			resp.Body.Close()
			if waitErr := sleep(ctx, wait); waitErr != nil {
				return nil, waitErr
			}
			continue
		}

		return resp, nil
	}

	return nil, lastErr
}

// Get performs a GET request and decodes the response into result.
func (c *Client) Get(ctx context.Context, path string, result any) error {
	resp, err := c.Request(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, path, result)
}

// Post performs a POST request and decodes the response into result.
// A nil result discards the body.
func (c *Client) Post(ctx context.Context, path string, body, result any) error {
	resp, err := c.Request(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return c.handleResponse(resp, path, result)
}

// PostForMap performs a POST request and returns the decoded JSON object.
// A body that is not a JSON object is returned as {"raw": text}.
func (c *Client) PostForMap(ctx context.Context, path string, body any) (map[string]any, error) {
	resp, err := c.Request(ctx, http.MethodPost, path, body)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, c.parseError(resp, path)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s response: %w", c.serviceName, err)
	}

	var out map[string]any
	if json.Unmarshal(data, &out) != nil || out == nil {
		return map[string]any{"raw": string(data)}, nil
	}
	return out, nil
}

// handleResponse checks status and decodes the response body.
func (c *Client) handleResponse(resp *http.Response, path string, result any) error {
	if resp.StatusCode >= 400 {
		return c.parseError(resp, path)
	}

	if result == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}

	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("decode %s response: %w", c.serviceName, err)
	}

	return nil
}

// parseError parses an error response into an APIError. It understands the
// {"message"}, {"error"} and Jira {"errorMessages", "errors"} shapes.
func (c *Client) parseError(resp *http.Response, path string) error {
	body, _ := io.ReadAll(resp.Body)

	apiErr := &APIError{
		Service:    c.serviceName,
		StatusCode: resp.StatusCode,
		Endpoint:   path,
		RequestID:  resp.Header.Get("X-Request-Id"),
	}

	var errResp struct {
		Message       string            `json:"message"`
		Error         any               `json:"error"`
		ErrorMessages []string          `json:"errorMessages"`
		Errors        map[string]string `json:"errors"`
	}
	if json.Unmarshal(body, &errResp) == nil {
		switch {
		case errResp.Message != "":
			apiErr.Message = errResp.Message
		case len(errResp.ErrorMessages) > 0:
			apiErr.Message = strings.Join(errResp.ErrorMessages, "; ")
		case len(errResp.Errors) > 0:
			apiErr.Message = joinFieldErrors(errResp.Errors)
		case errResp.Error != nil:
			apiErr.Message = errorText(errResp.Error)
		}
	}

	if apiErr.Message == "" {
		if text := strings.TrimSpace(string(body)); text != "" && len(text) <= 512 {
			apiErr.Message = text
		} else {
			apiErr.Message = http.StatusText(resp.StatusCode)
		}
	}

	return apiErr
}

// getRetryWait honours Retry-After, falling back to exponential backoff.
func (c *Client) getRetryWait(resp *http.Response, attempt int) time.Duration {
	if retryAfter := resp.Header.Get("Retry-After"); retryAfter != "" {
		if seconds, err := strconv.Atoi(retryAfter); err == nil {
			return time.Duration(seconds) * time.Second
		}
	}
	return c.retryWait * time.Duration(1<<attempt)
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code >= 500
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func joinFieldErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	sort.Strings(parts)
	return strings.Join(parts, "; ")
}

// errorText handles both {"error": "text"} and Azure's {"error": {"message": ...}}.
func errorText(v any) string {
	switch e := v.(type) {
	case string:
		return e
	case map[string]any:
		if msg, ok := e["message"].(string); ok {
			return msg
		}
	}
	return ""
}
