package jira

import (
	"errors"

	qhttp "github.com/quilr/qonboard/http"
)

var (
	ErrConfigURLRequired       = errors.New("jira: url not set")
	ErrConfigAuthTypeRequired  = errors.New("jira: auth type not set")
	ErrConfigAuthTypeInvalid   = errors.New("jira: auth type must be one of api_token, basic, pat")
	ErrConfigAPITokenAuth      = errors.New("jira: api_token auth needs an email and a token")
	ErrConfigBasicAuth         = errors.New("jira: basic auth needs a username and a password")
	ErrConfigPATAuth           = errors.New("jira: pat auth needs a token")
	ErrConfigAPIVersionInvalid = errors.New("jira: api version must be v2 or v3")
)

var (
	ErrIssueNotFound        = errors.New("issue does not exist or is not visible")
	ErrIssueKeyInvalid      = errors.New("issue key must look like PROJ-123")
	ErrTransitionNotFound   = errors.New("no transition leads to the requested status")
	ErrTransitionIDRequired = errors.New("empty transition id")
)

// Description documents that are not ADF v1 are rejected.
var (
	ErrADFVersionOnly = errors.New("unsupported ADF version")
	ErrADFTypeInvalid = errors.New("ADF document root is not a doc node")
)

// IsNotFound matches both the typed HTTP 404 and ErrIssueNotFound.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrIssueNotFound) || qhttp.IsNotFound(err)
}
