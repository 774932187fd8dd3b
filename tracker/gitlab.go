package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"

	"github.com/xanzy/go-gitlab"

	"github.com/quilr/qonboard/onboard"
)

// GitLab reads onboarding requests from project issues labelled
// onboard:pending. The ticket key is the issue IID.
type GitLab struct {
	client    *gitlab.Client
	projectID string
	extractor Extractor
	logger    *slog.Logger
}

// NewGitLab creates a GitLab ticket source. baseURL may be empty for gitlab.com.
func NewGitLab(token, baseURL, projectID string, extractor Extractor, logger *slog.Logger) (*GitLab, error) {
	if token == "" {
		return nil, fmt.Errorf("GitLab token is required")
	}

	var client *gitlab.Client
	var err error
	if baseURL != "" {
		client, err = gitlab.NewClient(token, gitlab.WithBaseURL(baseURL))
	} else {
		client, err = gitlab.NewClient(token)
	}
	if err != nil {
		return nil, fmt.Errorf("create GitLab client: %w", err)
	}
	return NewGitLabWithClient(client, projectID, extractor, logger)
}

// NewGitLabWithClient creates a GitLab ticket source around an existing client.
func NewGitLabWithClient(client *gitlab.Client, projectID string, extractor Extractor, logger *slog.Logger) (*GitLab, error) {
	if projectID == "" {
		return nil, fmt.Errorf("GitLab project is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitLab{client: client, projectID: projectID, extractor: extractor, logger: logger}, nil
}

// FetchPendingTickets returns every parseable opened issue labelled pending.
func (g *GitLab) FetchPendingTickets(ctx context.Context) ([]onboard.Ticket, error) {
	opts := &gitlab.ListProjectIssuesOptions{
		ListOptions: gitlab.ListOptions{PerPage: 100},
		State:       gitlab.Ptr("opened"),
		Labels:      gitlab.Ptr(gitlab.LabelOptions{LabelPending}),
		OrderBy:     gitlab.Ptr("created_at"),
		Sort:        gitlab.Ptr("asc"),
	}

	var tickets []onboard.Ticket
	for {
		issues, resp, err := g.client.Issues.ListProjectIssues(g.projectID, opts, gitlab.WithContext(ctx))
		if err != nil {
			return nil, fmt.Errorf("list GitLab issues: %w", err)
		}
		for _, issue := range issues {
			if t := g.parse(ctx, issue); t != nil {
				tickets = append(tickets, *t)
			}
		}
		if resp == nil || resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	g.logger.Info("pending tickets", "parsed", len(tickets))
	return tickets, nil
}

// FetchTicket fetches and parses a single issue.
func (g *GitLab) FetchTicket(ctx context.Context, key string) (*onboard.Ticket, error) {
	iid, err := parseIssueNumber(key)
	if err != nil {
		return nil, err
	}
	issue, _, err := g.client.Issues.GetIssue(g.projectID, iid, gitlab.WithContext(ctx))
	if err != nil {
		return nil, fmt.Errorf("fetch GitLab issue %d: %w", iid, err)
	}
	return g.parse(ctx, issue), nil
}

// MarkInProgress swaps the pending label for in-progress, best effort.
func (g *GitLab) MarkInProgress(ctx context.Context, key string) error {
	g.update(ctx, key, &gitlab.UpdateIssueOptions{
		AddLabels:    gitlab.Ptr(gitlab.LabelOptions{LabelInProgress}),
		RemoveLabels: gitlab.Ptr(gitlab.LabelOptions{LabelPending}),
	})
	return nil
}

// MarkDone labels the issue done and closes it, best effort.
func (g *GitLab) MarkDone(ctx context.Context, key string) error {
	g.update(ctx, key, &gitlab.UpdateIssueOptions{
		AddLabels:    gitlab.Ptr(gitlab.LabelOptions{LabelDone}),
		RemoveLabels: gitlab.Ptr(gitlab.LabelOptions{LabelInProgress}),
		StateEvent:   gitlab.Ptr("close"),
	})
	return nil
}

// AddComment posts text as an issue note.
func (g *GitLab) AddComment(ctx context.Context, key, text string) error {
	iid, err := parseIssueNumber(key)
	if err != nil {
		return err
	}
	_, _, err = g.client.Notes.CreateIssueNote(g.projectID, iid,
		&gitlab.CreateIssueNoteOptions{Body: gitlab.Ptr(text)}, gitlab.WithContext(ctx))
	if err != nil {
		return fmt.Errorf("comment on issue %d: %w", iid, err)
	}
	return nil
}

func (g *GitLab) update(ctx context.Context, key string, opts *gitlab.UpdateIssueOptions) {
	iid, err := parseIssueNumber(key)
	if err != nil {
		g.logger.Warn("could not update issue", "ticket", key, "error", err)
		return
	}
	if _, _, err := g.client.Issues.UpdateIssue(g.projectID, iid, opts, gitlab.WithContext(ctx)); err != nil {
		g.logger.Warn("could not update issue", "ticket", key, "error", err)
	}
}

func (g *GitLab) parse(ctx context.Context, issue *gitlab.Issue) *onboard.Ticket {
	return parse(ctx, rawTicket{
		key:         strconv.Itoa(issue.IID),
		summary:     issue.Title,
		environment: envFromLabels(issue.Labels),
		description: issue.Description,
	}, g.extractor, g.logger)
}
