package jira

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

// TimeFormat is the standard Jira timestamp format.
const TimeFormat = "2006-01-02T15:04:05.000-0700"

// APIVersion represents the Jira REST API version.
type APIVersion string

// API versions supported by the Jira REST API.
const (
	APIVersionV2 APIVersion = "v2"
	APIVersionV3 APIVersion = "v3"
)

// IssueType represents an issue type in Jira.
type IssueType struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Status represents an issue status.
type Status struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Issue represents a Jira issue.
type Issue struct {
	ID     string      `json:"id"`
	Key    string      `json:"key"`
	Self   string      `json:"self"`
	Fields IssueFields `json:"fields"`
}

// IssueFields contains the fields of a Jira issue that the tool reads.
type IssueFields struct {
	Summary     string     `json:"summary"`
	Description any        `json:"description,omitempty"` // ADF (v3) or string (v2)
	Status      *Status    `json:"status,omitempty"`
	IssueType   *IssueType `json:"issuetype,omitempty"`
	Labels      []string   `json:"labels,omitempty"`
	Created     string     `json:"created,omitempty"`
	Updated     string     `json:"updated,omitempty"`

	// CustomFields holds every customfield_* value keyed by field ID.
	CustomFields map[string]json.RawMessage `json:"-"`
}

// UnmarshalJSON decodes the known fields and collects custom fields.
func (f *IssueFields) UnmarshalJSON(data []byte) error {
	type plain IssueFields
	var known plain
	if err := json.Unmarshal(data, &known); err != nil {
		return err
	}

	var all map[string]json.RawMessage
	if err := json.Unmarshal(data, &all); err != nil {
		return err
	}

	*f = IssueFields(known)
	for k, v := range all {
		if !strings.HasPrefix(k, "customfield_") {
			continue
		}
		if f.CustomFields == nil {
			f.CustomFields = make(map[string]json.RawMessage)
		}
		f.CustomFields[k] = v
	}
	return nil
}

// FieldValue returns the display value of a custom field. Plain strings are
// returned as-is; select fields yield their "value". Missing and null
// fields report false.
func (f *IssueFields) FieldValue(id string) (string, bool) {
	raw, ok := f.CustomFields[id]
	if !ok || len(raw) == 0 || string(raw) == "null" {
		return "", false
	}

	var s string
	if json.Unmarshal(raw, &s) == nil {
		return s, true
	}

	var option struct {
		Value *string `json:"value"`
		Name  *string `json:"name"`
	}
	if json.Unmarshal(raw, &option) == nil {
		switch {
		case option.Value != nil:
			return *option.Value, true
		case option.Name != nil:
			return *option.Name, true
		}
	}

	return strings.TrimSpace(string(raw)), true
}

// CreatedTime parses and returns the Created timestamp.
func (f *IssueFields) CreatedTime() (time.Time, error) {
	return ParseTime(f.Created)
}

// Transition represents an available status transition.
type Transition struct {
	ID   string  `json:"id"`
	Name string  `json:"name"`
	To   *Status `json:"to"`
}

// TransitionsResponse represents the response from the transitions endpoint.
type TransitionsResponse struct {
	Transitions []Transition `json:"transitions"`
}

// Comment represents a Jira comment.
type Comment struct {
	ID      string `json:"id"`
	Self    string `json:"self,omitempty"`
	Body    any    `json:"body"` // ADF (v3) or string (v2)
	Created string `json:"created"`
}

// SearchRequest is the body of the enhanced JQL search endpoint.
type SearchRequest struct {
	JQL           string   `json:"jql"`
	Fields        []string `json:"fields,omitempty"`
	MaxResults    int      `json:"maxResults,omitempty"`
	NextPageToken string   `json:"nextPageToken,omitempty"`
}

// SearchResponse is one page of the enhanced JQL search endpoint.
type SearchResponse struct {
	Issues        []Issue `json:"issues"`
	NextPageToken string  `json:"nextPageToken,omitempty"`
	IsLast        bool    `json:"isLast"`
}

// TransitionRequest represents a request to transition an issue.
type TransitionRequest struct {
	Transition TransitionRef `json:"transition"`
}

// TransitionRef references a transition by ID.
type TransitionRef struct {
	ID string `json:"id"`
}

// AddCommentRequest represents a request to add a comment.
type AddCommentRequest struct {
	Body any `json:"body"` // ADF or string
}

// issueKeyRegex validates Jira issue keys (e.g., OPS-123).
var issueKeyRegex = regexp.MustCompile(`^[A-Z][A-Z0-9_]*-\d+$`)

// ValidateIssueKey validates a Jira issue key format.
func ValidateIssueKey(key string) bool {
	return issueKeyRegex.MatchString(key)
}

// NormalizeIssueKey trims and upper-cases an operator-typed key.
func NormalizeIssueKey(key string) (string, error) {
	k := strings.ToUpper(strings.TrimSpace(key))
	if !ValidateIssueKey(k) {
		return "", fmt.Errorf("%w: %q", ErrIssueKeyInvalid, key)
	}
	return k, nil
}

// ParseTime parses a Jira timestamp string.
func ParseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	formats := []string{
		"2006-01-02T15:04:05.000-0700",
		"2006-01-02T15:04:05.000Z",
		"2006-01-02T15:04:05-0700",
		"2006-01-02T15:04:05Z",
		time.RFC3339,
	}
	for _, format := range formats {
		if t, err := time.Parse(format, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &time.ParseError{Value: s}
}

// FormatTime formats a time.Time as a Jira timestamp string.
func FormatTime(t time.Time) string {
	return t.Format(TimeFormat)
}
