package notify

import (
	"context"
	"errors"
	"log/slog"
	"time"
)

// EventType names an onboarding milestone.
type EventType string

const (
	EventTicketStarted        EventType = "ticket_started"
	EventTicketCompleted      EventType = "ticket_completed"
	EventTicketPaused         EventType = "ticket_paused"
	EventTicketFailed         EventType = "ticket_failed"
	EventEnvironmentCompleted EventType = "environment_completed"
	EventRunCompleted         EventType = "run_completed"
)

// Severities map onto slog levels and Slack attachment colours.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
	SeverityInfo    = "info"
)

// Event is the payload delivered to every notifier. Webhook targets receive
// it as JSON.
type Event struct {
	Type        EventType      `json:"type"`
	RunID       string         `json:"run_id"`
	Ticket      string         `json:"ticket,omitempty"`
	Environment string         `json:"environment,omitempty"`
	Message     string         `json:"message"`
	Severity    string         `json:"severity"`
	Timestamp   time.Time      `json:"timestamp"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// Notifier delivers events. Callers log and ignore errors.
type Notifier interface {
	Notify(ctx context.Context, event Event) error
}

// NopNotifier drops every event.
type NopNotifier struct{}

// Notify implements Notifier.
func (NopNotifier) Notify(context.Context, Event) error { return nil }

// Options selects the targets built by New. An empty URL disables a target.
type Options struct {
	WebhookURL   string
	SlackWebhook string
	SlackChannel string
	Logger       *slog.Logger
}

// New returns the run notifier. Events always go to the log; the webhook and
// Slack targets are added when configured.
func New(opts Options) Notifier {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	targets := []Notifier{&logNotifier{logger: logger}}
	if opts.WebhookURL != "" {
		targets = append(targets, newWebhookNotifier(opts.WebhookURL))
	}
	if opts.SlackWebhook != "" {
		targets = append(targets, newSlackNotifier(opts.SlackWebhook, opts.SlackChannel))
	}
	if len(targets) == 1 {
		return targets[0]
	}
	return &fanout{targets: targets, logger: logger}
}

// fanout delivers to every target even when an earlier one fails.
type fanout struct {
	targets []Notifier
	logger  *slog.Logger
}

func (f *fanout) Notify(ctx context.Context, event Event) error {
	var failed []error
	for _, n := range f.targets {
		if err := n.Notify(ctx, event); err != nil {
			f.logger.Warn("notification not delivered", "event", event.Type, "ticket", event.Ticket, "error", err)
			failed = append(failed, err)
		}
	}
	return errors.Join(failed...)
}
