package jira

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	qhttp "github.com/quilr/qonboard/http"
)

// Client provides access to the Jira REST API.
type Client struct {
	cfg        *Config
	api        *qhttp.Client
	apiVersion APIVersion
}

// ClientOption configures the client.
type ClientOption func(*clientOptions)

type clientOptions struct {
	httpClient *http.Client
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) ClientOption {
	return func(o *clientOptions) {
		o.httpClient = httpClient
	}
}

// NewClient creates a new Jira client.
func NewClient(cfg *Config, opts ...ClientOption) (*Client, error) {
	if validateErr := cfg.Validate(); validateErr != nil {
		return nil, validateErr
	}

	var o clientOptions
	for _, opt := range opts {
		opt(&o)
	}

	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = qhttp.DefaultTimeout
	}
	if o.httpClient == nil {
		o.httpClient = &http.Client{Timeout: timeout}
	}

	c := &Client{
		cfg:        cfg,
		apiVersion: cfg.GetAPIVersion(),
	}
	c.api = qhttp.NewClient(qhttp.ClientConfig{
		Client:      o.httpClient,
		BaseURL:     cfg.URL,
		ServiceName: "jira",
		MaxRetries:  cfg.MaxRetries,
		RetryWait:   cfg.RetryWait,
		BeforeRequest: func(req *http.Request) error {
			c.setAuth(req)
			return nil
		},
	})

	return c, nil
}

// GetIssue retrieves an issue by key. An empty fields list returns all fields.
func (c *Client) GetIssue(ctx context.Context, key string, fields ...string) (*Issue, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	path := c.apiPath("/issue/" + key)
	if len(fields) > 0 {
		path += "?fields=" + url.QueryEscape(strings.Join(fields, ","))
	}

	var issue Issue
	if getErr := c.api.Get(ctx, path, &issue); getErr != nil {
		if qhttp.IsNotFound(getErr) {
			return nil, fmt.Errorf("%s: %w", key, ErrIssueNotFound)
		}
		return nil, getErr
	}

	return &issue, nil
}

// SearchPage fetches one page of the enhanced JQL search. An empty token
// requests the first page.
func (c *Client) SearchPage(ctx context.Context, jql string, fields []string, pageToken string) (*SearchResponse, error) {
	body := &SearchRequest{
		JQL:           jql,
		Fields:        fields,
		MaxResults:    c.pageSize(),
		NextPageToken: pageToken,
	}

	var result SearchResponse
	if postErr := c.api.Post(ctx, c.apiPath("/search/jql"), body, &result); postErr != nil {
		return nil, postErr
	}

	return &result, nil
}

// SearchIssues returns every issue matching jql, following nextPageToken
// until the last page.
func (c *Client) SearchIssues(ctx context.Context, jql string, fields ...string) ([]Issue, error) {
	iter := qhttp.NewPageIterator(func(ctx context.Context, token string) ([]Issue, string, error) {
		page, pageErr := c.SearchPage(ctx, jql, fields, token)
		if pageErr != nil {
			return nil, "", pageErr
		}
		if page.IsLast {
			return page.Issues, "", nil
		}
		return page.Issues, page.NextPageToken, nil
	})

	issues, iterErr := iter.All(ctx)
	if iterErr != nil {
		return nil, fmt.Errorf("search issues: %w", iterErr)
	}
	return issues, nil
}

// GetTransitions gets available transitions for an issue.
func (c *Client) GetTransitions(ctx context.Context, key string) ([]Transition, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	var result TransitionsResponse
	if getErr := c.api.Get(ctx, c.apiPath("/issue/"+key+"/transitions"), &result); getErr != nil {
		if qhttp.IsNotFound(getErr) {
			return nil, fmt.Errorf("%s: %w", key, ErrIssueNotFound)
		}
		return nil, getErr
	}

	return result.Transitions, nil
}

// TransitionIssue transitions an issue to a new status.
func (c *Client) TransitionIssue(ctx context.Context, key, transitionID string) error {
	if !ValidateIssueKey(key) {
		return ErrIssueKeyInvalid
	}
	if transitionID == "" {
		return ErrTransitionIDRequired
	}

	body := &TransitionRequest{Transition: TransitionRef{ID: transitionID}}
	if postErr := c.api.Post(ctx, c.apiPath("/issue/"+key+"/transitions"), body, nil); postErr != nil {
		if qhttp.IsNotFound(postErr) {
			return fmt.Errorf("%s: %w", key, ErrIssueNotFound)
		}
		return postErr
	}

	return nil
}

// TransitionIssueByName finds and executes a transition by name,
// case-insensitively.
func (c *Client) TransitionIssueByName(ctx context.Context, key, transitionName string) error {
	transitions, getErr := c.GetTransitions(ctx, key)
	if getErr != nil {
		return getErr
	}

	for _, t := range transitions {
		if strings.EqualFold(t.Name, transitionName) {
			return c.TransitionIssue(ctx, key, t.ID)
		}
	}

	return fmt.Errorf("%w: %q on %s", ErrTransitionNotFound, transitionName, key)
}

// AddComment adds a plain-text comment to an issue. On API v3 the text is
// converted to ADF; on v2 it is sent as wiki markup.
func (c *Client) AddComment(ctx context.Context, key, text string) (*Comment, error) {
	if !ValidateIssueKey(key) {
		return nil, ErrIssueKeyInvalid
	}

	var body any = text
	if c.apiVersion == APIVersionV3 {
		body = TextToADF(text)
	}

	var comment Comment
	postErr := c.api.Post(ctx, c.apiPath("/issue/"+key+"/comment"), &AddCommentRequest{Body: body}, &comment)
	if postErr != nil {
		if qhttp.IsNotFound(postErr) {
			return nil, fmt.Errorf("%s: %w", key, ErrIssueNotFound)
		}
		return nil, postErr
	}

	return &comment, nil
}

// apiPath returns the full API path for the given endpoint.
func (c *Client) apiPath(endpoint string) string {
	return fmt.Sprintf("/rest/api/%s%s", strings.TrimPrefix(string(c.apiVersion), "v"), endpoint)
}

func (c *Client) pageSize() int {
	if c.cfg.PageSize > 0 {
		return c.cfg.PageSize
	}
	return 50
}

// setAuth sets the authentication header based on config.
func (c *Client) setAuth(req *http.Request) {
	switch c.cfg.Auth.Type {
	case AuthAPIToken:
		credentials := c.cfg.Auth.Email + ":" + c.cfg.Auth.Token
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))

	case AuthBasic:
		credentials := c.cfg.Auth.Username + ":" + c.cfg.Auth.Password
		req.Header.Set("Authorization", "Basic "+base64.StdEncoding.EncodeToString([]byte(credentials)))

	case AuthPAT:
		req.Header.Set("Authorization", "Bearer "+c.cfg.Auth.Token)
	}
}
