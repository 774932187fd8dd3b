// Package tracker provides the ticket sources the onboarding run reads from:
// Jira (the default), GitHub issues and GitLab issues.
//
// Every source parses a ticket the same way. A ticket without an
// environment or description, or whose description yields no users, is
// skipped with a warning. Status changes are best effort and never fail a
// run.
package tracker
