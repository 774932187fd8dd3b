package tracker

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/quilr/qonboard/jira"
	"github.com/quilr/qonboard/onboard"
)

// JiraConfig names the issue type, statuses and environment field used to
// find and move onboarding tickets.
type JiraConfig struct {
	IssueType        string
	PendingStatus    string
	InProgressStatus string
	DoneStatus       string
	EnvironmentField string
}

// Jira reads Customer Onboard issues from Jira.
type Jira struct {
	client    *jira.Client
	extractor Extractor
	cfg       JiraConfig
	logger    *slog.Logger
}

// NewJira creates a Jira ticket source.
func NewJira(client *jira.Client, extractor Extractor, cfg JiraConfig, logger *slog.Logger) *Jira {
	if logger == nil {
		logger = slog.Default()
	}
	return &Jira{client: client, extractor: extractor, cfg: cfg, logger: logger}
}

// PendingJQL is the query for tickets waiting to be onboarded.
func (j *Jira) PendingJQL() string {
	return fmt.Sprintf(`issuetype = "%s" AND status in ("%s") ORDER BY created ASC`,
		j.cfg.IssueType, j.cfg.PendingStatus)
}

func (j *Jira) fields() []string {
	return []string{"summary", "description", j.cfg.EnvironmentField}
}

// FetchPendingTickets returns every parseable pending ticket, oldest first.
func (j *Jira) FetchPendingTickets(ctx context.Context) ([]onboard.Ticket, error) {
	jql := j.PendingJQL()
	j.logger.Debug("searching jira", "jql", jql)

	issues, err := j.client.SearchIssues(ctx, jql, j.fields()...)
	if err != nil {
		return nil, fmt.Errorf("fetch pending tickets: %w", err)
	}

	tickets := make([]onboard.Ticket, 0, len(issues))
	for i := range issues {
		if t := j.parse(ctx, &issues[i]); t != nil {
			tickets = append(tickets, *t)
		}
	}
	j.logger.Info("pending tickets", "found", len(issues), "parsed", len(tickets))
	return tickets, nil
}

// FetchTicket fetches and parses a single ticket.
func (j *Jira) FetchTicket(ctx context.Context, key string) (*onboard.Ticket, error) {
	issue, err := j.client.GetIssue(ctx, key, j.fields()...)
	if err != nil {
		return nil, fmt.Errorf("fetch ticket %s: %w", key, err)
	}
	return j.parse(ctx, issue), nil
}

// MarkInProgress moves the ticket to the in-progress status, best effort.
func (j *Jira) MarkInProgress(ctx context.Context, key string) error {
	j.transition(ctx, key, j.cfg.InProgressStatus)
	return nil
}

// MarkDone moves the ticket to the done status, best effort.
func (j *Jira) MarkDone(ctx context.Context, key string) error {
	j.transition(ctx, key, j.cfg.DoneStatus)
	return nil
}

// AddComment posts text as a comment.
func (j *Jira) AddComment(ctx context.Context, key, text string) error {
	if _, err := j.client.AddComment(ctx, key, text); err != nil {
		return fmt.Errorf("comment on %s: %w", key, err)
	}
	j.logger.Debug("comment added", "ticket", key)
	return nil
}

func (j *Jira) transition(ctx context.Context, key, status string) {
	if status == "" {
		return
	}
	if err := j.client.TransitionIssueByName(ctx, key, status); err != nil {
		j.logger.Warn("could not transition ticket", "ticket", key, "status", status, "error", err)
		return
	}
	j.logger.Info("ticket transitioned", "ticket", key, "status", status)
}

func (j *Jira) parse(ctx context.Context, issue *jira.Issue) *onboard.Ticket {
	env, _ := issue.Fields.FieldValue(j.cfg.EnvironmentField)
	return parse(ctx, rawTicket{
		key:         issue.Key,
		summary:     issue.Fields.Summary,
		environment: env,
		description: jira.ADFToText(issue.Fields.Description),
	}, j.extractor, j.logger)
}
