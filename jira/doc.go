// Package jira is a small client for the Jira REST API covering what the
// onboarding tracker needs: issue fetch, enhanced JQL search, transitions
// by name and comments.
//
// Jira Cloud (API v3) returns descriptions as Atlassian Document Format.
// ADFToText flattens them for extraction and TextToADF turns plain-text
// comments into ADF, mapping {code} segments to code blocks. With API v2
// comments are sent as wiki text unchanged.
//
//	cfg := jira.DefaultConfig()
//	cfg.URL = "https://your-domain.atlassian.net"
//	cfg.Auth = jira.AuthConfig{Type: jira.AuthAPIToken, Email: email, Token: token}
//
//	client, err := jira.NewClient(cfg)
//	if err != nil {
//		return err
//	}
//	issues, err := client.SearchIssues(ctx, jql, "summary", "description")
//
// Errors from the API are *http.APIError values from the shared http
// package; use errors.Is with its sentinels or the IsNotFound helpers here.
package jira
