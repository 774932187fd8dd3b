package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/go-github/v57/github"
	"golang.org/x/oauth2"

	"github.com/quilr/qonboard/onboard"
)

// GitHub reads onboarding requests from issues labelled onboard:pending.
// The ticket key is the issue number.
type GitHub struct {
	client    *github.Client
	owner     string
	repo      string
	extractor Extractor
	logger    *slog.Logger
}

// NewGitHub creates a GitHub ticket source for repo ("owner/name").
func NewGitHub(ctx context.Context, token, repo string, extractor Extractor, logger *slog.Logger) (*GitHub, error) {
	if token == "" {
		return nil, fmt.Errorf("GitHub token is required")
	}
	ts := oauth2.StaticTokenSource(&oauth2.Token{AccessToken: token})
	return NewGitHubWithClient(github.NewClient(oauth2.NewClient(ctx, ts)), repo, extractor, logger)
}

// NewGitHubWithClient creates a GitHub ticket source around an existing client.
func NewGitHubWithClient(client *github.Client, repo string, extractor Extractor, logger *slog.Logger) (*GitHub, error) {
	owner, name, ok := strings.Cut(repo, "/")
	if !ok || owner == "" || name == "" {
		return nil, fmt.Errorf("GitHub repo must be owner/name, got %q", repo)
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &GitHub{client: client, owner: owner, repo: name, extractor: extractor, logger: logger}, nil
}

// FetchPendingTickets returns every parseable open issue labelled pending.
func (g *GitHub) FetchPendingTickets(ctx context.Context) ([]onboard.Ticket, error) {
	opts := &github.IssueListByRepoOptions{
		State:       "open",
		Labels:      []string{LabelPending},
		Sort:        "created",
		Direction:   "asc",
		ListOptions: github.ListOptions{PerPage: 100},
	}

	var tickets []onboard.Ticket
	for {
		issues, resp, err := g.client.Issues.ListByRepo(ctx, g.owner, g.repo, opts)
		if err != nil {
			return nil, fmt.Errorf("list GitHub issues: %w", err)
		}
		for _, issue := range issues {
			if issue.IsPullRequest() {
				continue
			}
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
func (g *GitHub) FetchTicket(ctx context.Context, key string) (*onboard.Ticket, error) {
	n, err := parseIssueNumber(key)
	if err != nil {
		return nil, err
	}
	issue, _, err := g.client.Issues.Get(ctx, g.owner, g.repo, n)
	if err != nil {
		return nil, fmt.Errorf("fetch GitHub issue %d: %w", n, err)
	}
	return g.parse(ctx, issue), nil
}

// MarkInProgress swaps the pending label for in-progress, best effort.
func (g *GitHub) MarkInProgress(ctx context.Context, key string) error {
	g.relabel(ctx, key, LabelPending, LabelInProgress)
	return nil
}

// MarkDone labels the issue done and closes it, best effort.
func (g *GitHub) MarkDone(ctx context.Context, key string) error {
	n := g.relabel(ctx, key, LabelInProgress, LabelDone)
	if n == 0 {
		return nil
	}
	if _, _, err := g.client.Issues.Edit(ctx, g.owner, g.repo, n, &github.IssueRequest{State: github.String("closed")}); err != nil {
		g.logger.Warn("could not close issue", "ticket", key, "error", err)
	}
	return nil
}

// AddComment posts text as an issue comment.
func (g *GitHub) AddComment(ctx context.Context, key, text string) error {
	n, err := parseIssueNumber(key)
	if err != nil {
		return err
	}
	if _, _, err := g.client.Issues.CreateComment(ctx, g.owner, g.repo, n, &github.IssueComment{Body: github.String(text)}); err != nil {
		return fmt.Errorf("comment on issue %d: %w", n, err)
	}
	return nil
}

// relabel returns the issue number, or 0 when key is not a number.
func (g *GitHub) relabel(ctx context.Context, key, remove, add string) int {
	n, err := parseIssueNumber(key)
	if err != nil {
		g.logger.Warn("could not relabel issue", "ticket", key, "error", err)
		return 0
	}
	if _, _, err := g.client.Issues.AddLabelsToIssue(ctx, g.owner, g.repo, n, []string{add}); err != nil {
		g.logger.Warn("could not add label", "ticket", key, "label", add, "error", err)
	}
	resp, err := g.client.Issues.RemoveLabelForIssue(ctx, g.owner, g.repo, n, remove)
	if err != nil && (resp == nil || resp.StatusCode != http.StatusNotFound) {
		g.logger.Warn("could not remove label", "ticket", key, "label", remove, "error", err)
	}
	return n
}

func (g *GitHub) parse(ctx context.Context, issue *github.Issue) *onboard.Ticket {
	labels := make([]string, 0, len(issue.Labels))
	for _, l := range issue.Labels {
		labels = append(labels, l.GetName())
	}
	return parse(ctx, rawTicket{
		key:         strconv.Itoa(issue.GetNumber()),
		summary:     issue.GetTitle(),
		environment: envFromLabels(labels),
		description: issue.GetBody(),
	}, g.extractor, g.logger)
}
