package main

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quilr/qonboard/auth"
	"github.com/quilr/qonboard/config"
	qerrors "github.com/quilr/qonboard/errors"
	"github.com/quilr/qonboard/extract"
	"github.com/quilr/qonboard/jira"
	"github.com/quilr/qonboard/notify"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/provision"
	"github.com/quilr/qonboard/registry"
	"github.com/quilr/qonboard/tracker"
	"github.com/quilr/qonboard/ui"
)

func runOnboard(cmd *cobra.Command, args []string, opts *rootOptions) error {
	ctx := cmd.Context()
	a := setup(cmd, opts)
	if err := a.openStore(ctx); err != nil {
		return err
	}
	defer a.close()

	rt := a.runtime
	g, err := config.LoadGlobal(ctx, a.store, rt.Tracker)
	if err != nil {
		return qerrors.WrapConfigError(err)
	}

	term := ui.New(cmd.OutOrStdout(), cmd.InOrStdin())
	key, err := ticketKey(ctx, term, rt.Tracker, args, opts.all)
	if err != nil {
		return err
	}

	extractor := extract.New(extract.Config{
		APIKey:     g.AzureOpenAIKey,
		Endpoint:   g.AzureOpenAIEndpoint,
		Deployment: g.AzureOpenAIDeployment,
		APIVersion: g.AzureOpenAIAPIVersion,
		Timeout:    g.APITimeout,
	}, extract.WithLogger(a.logger))

	tickets, err := buildTracker(ctx, rt.Tracker, g, extractor, a.logger)
	if err != nil {
		return err
	}

	runner := onboard.NewRunner(onboard.Deps{
		Tickets: tickets,
		Provisioning: provision.New(provision.Config{
			Vendor:      g.OnboardVendor,
			Timeout:     g.APITimeout,
			TokenSecret: g.OnboardJWTSecret,
		}, provision.WithLogger(a.logger)),
		Environments: registry.FromStore(a.store, registry.WithLogger(a.logger)),
		Progress:     progress.Open(rt.StateFile, progress.WithLogger(a.logger)),
		UI:           term,
		Notifier: notify.New(notify.Options{
			WebhookURL:   rt.NotifyWebhook,
			SlackWebhook: rt.SlackWebhook,
			SlackChannel: rt.SlackChannel,
			Logger:       a.logger,
		}),
		Logger:           a.logger,
		GeneratePassword: auth.GeneratePassword,
		HashPassword:     auth.HashPassword,
	})

	sum, err := runner.Run(ctx, key)
	if err != nil {
		return qerrors.Wrap(err, rt.Tracker, trackerTarget(rt.Tracker, g))
	}
	if !sum.OK() {
		return fmt.Errorf("%w: %s", qerrors.ErrTicketsFailed, strings.Join(sum.Failed, ", "))
	}
	return nil
}

// asker reads a line from the operator.
type asker interface {
	Ask(ctx context.Context, question string) (string, error)
}

// ticketKey returns the ticket to process, or "" for every pending ticket.
func ticketKey(ctx context.Context, in asker, trackerName string, args []string, all bool) (string, error) {
	var key string
	switch {
	case len(args) == 1:
		key = args[0]
	case all:
		return "", nil
	default:
		question := "Enter Jira ticket ID (or press Enter for all open tickets)"
		if trackerName != config.TrackerJira {
			question = "Enter issue number (or press Enter for all open issues)"
		}
		answer, err := in.Ask(ctx, question)
		if err != nil {
			return "", err
		}
		key = answer
	}

	key = strings.TrimSpace(key)
	if key == "" || trackerName != config.TrackerJira {
		return key, nil
	}
	normalized, err := jira.NormalizeIssueKey(key)
	if err != nil {
		return "", &qerrors.CLIError{
			Err:        err,
			Message:    fmt.Sprintf("%q is not a Jira issue key", key),
			Suggestion: "Use the form PROJ-123.",
		}
	}
	return normalized, nil
}

func buildTracker(ctx context.Context, name string, g config.Global, extractor tracker.Extractor, logger *slog.Logger) (onboard.TicketSource, error) {
	switch name {
	case config.TrackerJira:
		cfg := jira.DefaultConfig()
		cfg.URL = g.JiraURL
		cfg.Auth = jira.AuthConfig{Type: jira.AuthAPIToken, Email: g.JiraUsername, Token: g.JiraAPIToken}
		cfg.Timeout = g.APITimeout
		client, err := jira.NewClient(cfg)
		if err != nil {
			return nil, fmt.Errorf("create jira client: %w", err)
		}
		return tracker.NewJira(client, extractor, tracker.JiraConfig{
			IssueType:        g.JiraIssueType,
			PendingStatus:    g.JiraPendingStatus,
			InProgressStatus: g.JiraInProgressStatus,
			DoneStatus:       g.JiraDoneStatus,
			EnvironmentField: g.JiraEnvironmentField,
		}, logger), nil
	case config.TrackerGitHub:
		return tracker.NewGitHub(ctx, g.GitHubToken, g.GitHubRepo, extractor, logger)
	case config.TrackerGitLab:
		return tracker.NewGitLab(g.GitLabToken, g.GitLabURL, g.GitLabProject, extractor, logger)
	default:
		return nil, &qerrors.CLIError{
			Message:    fmt.Sprintf("Unknown tracker %q", name),
			Suggestion: "Use --tracker jira, github or gitlab.",
		}
	}
}

// trackerTarget names the host a tracker connects to, for error messages.
func trackerTarget(name string, g config.Global) string {
	switch name {
	case config.TrackerGitHub:
		return "api.github.com"
	case config.TrackerGitLab:
		if g.GitLabURL != "" {
			return g.GitLabURL
		}
		return "gitlab.com"
	default:
		return g.JiraURL
	}
}
