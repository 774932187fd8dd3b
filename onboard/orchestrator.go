package onboard

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/quilr/qonboard/auth"
	"github.com/quilr/qonboard/notify"
)

// TicketOutcome is the result of processing one ticket.
type TicketOutcome int

// Ticket outcomes.
const (
	TicketCompleted TicketOutcome = iota
	TicketPaused
	TicketFailed
)

func (o TicketOutcome) String() string {
	switch o {
	case TicketCompleted:
		return "completed"
	case TicketPaused:
		return "paused"
	case TicketFailed:
		return "failed"
	default:
		return fmt.Sprintf("TicketOutcome(%d)", int(o))
	}
}

// Deps are the collaborators of an onboarding run.
type Deps struct {
	Tickets      TicketSource
	Provisioning ProvisioningClient
	Environments Environments
	Progress     Progress
	UI           UI

	// Optional.
	Notifier         notify.Notifier
	Logger           *slog.Logger
	GeneratePassword func() (string, error)
	HashPassword     func(string) (string, error)
}

func (d Deps) withDefaults() Deps {
	if d.Notifier == nil {
		d.Notifier = notify.NopNotifier{}
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.GeneratePassword == nil {
		d.GeneratePassword = auth.GeneratePassword
	}
	if d.HashPassword == nil {
		d.HashPassword = auth.HashPassword
	}
	return d
}

// Orchestrator processes one ticket across all of its environments.
type Orchestrator struct {
	deps  Deps
	seq   *Sequencer
	runID string
}

// NewOrchestrator creates an Orchestrator. RunID tags notifications.
func NewOrchestrator(deps Deps, runID string) *Orchestrator {
	deps = deps.withDefaults()
	return &Orchestrator{
		deps:  deps,
		runID: runID,
		seq: &Sequencer{
			exec:         NewExecutor(deps.Progress, deps.UI, deps.Logger),
			progress:     deps.Progress,
			envs:         deps.Environments,
			provisioning: deps.Provisioning,
			ui:           deps.UI,
			logger:       deps.Logger,
			hash:         deps.HashPassword,
		},
	}
}

// Process runs every incomplete environment of t and finalizes the ticket
// once all of them are complete. A declined step pauses the ticket and is
// not an error. Any other failure is posted as a ticket comment and
// returned.
func (o *Orchestrator) Process(ctx context.Context, t Ticket) (TicketOutcome, error) {
	log := o.deps.Logger.With("ticket", t.Key)

	if len(t.Environments) == 0 {
		return o.fail(ctx, t, fmt.Errorf("%s: %w", t.Key, ErrNoEnvironments), log)
	}
	if len(t.Users) == 0 {
		return o.fail(ctx, t, fmt.Errorf("%s: %w", t.Key, ErrNoUsers), log)
	}

	o.deps.UI.TicketHeader(t)

	if err := o.deps.Tickets.MarkInProgress(ctx, t.Key); err != nil {
		log.Warn("could not move ticket to in progress", "error", err)
	}

	domain, err := EmailDomain(t.Users[0].Email)
	if err != nil {
		return o.fail(ctx, t, err, log)
	}

	secret, err := o.ticketSecret(t.Key, log)
	if err != nil {
		return o.fail(ctx, t, fmt.Errorf("generate monitoring password: %w", err), log)
	}

	for _, env := range t.Environments {
		if o.deps.Progress.IsEnvironmentComplete(t.Key, env) {
			o.deps.UI.Rule(RuleSkipped, fmt.Sprintf("✓  %s — already completed, skipping", env))
			continue
		}

		res := o.seq.Run(ctx, t, env, domain, secret)
		switch res.Outcome {
		case OutcomeDeclined:
			comment := pausedComment(res, env)
			log.Warn("step skipped by operator", "env", env, "step", res.Step)
			o.comment(ctx, t.Key, comment, log)
			o.notify(ctx, notify.Event{
				Type:        notify.EventTicketPaused,
				Ticket:      t.Key,
				Environment: env,
				Message:     comment,
				Severity:    notify.SeverityWarning,
				Metadata:    map[string]any{"step": res.Step},
			})
			return TicketPaused, nil

		case OutcomeFailed:
			log.Error("environment failed", "env", env, "step", res.Step, "error", res.Err)
			o.deps.UI.Status(StatusFail, fmt.Sprintf("Failed to process %s / %s: %v", t.Key, env, res.Err))
			o.comment(ctx, t.Key, failedComment(env, res.Err), log)
			return TicketFailed, fmt.Errorf("%s / %s: %w", t.Key, env, res.Err)

		default:
			o.notify(ctx, notify.Event{
				Type:        notify.EventEnvironmentCompleted,
				Ticket:      t.Key,
				Environment: env,
				Message:     fmt.Sprintf("%s completed for %s", env, t.Key),
				Severity:    notify.SeverityInfo,
			})
		}
	}

	if err := o.deps.Tickets.AddComment(ctx, t.Key, completedComment(t, domain)); err != nil {
		return TicketFailed, fmt.Errorf("post completion comment on %s: %w", t.Key, err)
	}
	if err := o.deps.Tickets.MarkDone(ctx, t.Key); err != nil {
		log.Warn("could not move ticket to done", "error", err)
	}
	o.deps.Progress.MarkTicketComplete(t.Key)
	o.deps.UI.Rule(RuleDone, fmt.Sprintf("✓  %s — %s completed", t.Key, joinEnvs(t.Environments)))
	return TicketCompleted, nil
}

// ticketSecret returns the monitoring password shared by all environments
// of a ticket, generating and storing it on first use.
func (o *Orchestrator) ticketSecret(key string, log *slog.Logger) (string, error) {
	if secret, ok := o.deps.Progress.TicketSecret(key); ok {
		log.Debug("reusing monitoring password", "fingerprint", auth.Fingerprint(secret))
		return secret, nil
	}
	secret, err := o.deps.GeneratePassword()
	if err != nil {
		return "", err
	}
	o.deps.Progress.SetTicketSecret(key, secret)
	log.Debug("generated monitoring password", "fingerprint", auth.Fingerprint(secret))
	return secret, nil
}

// fail reports a failure that happened before any environment ran.
func (o *Orchestrator) fail(ctx context.Context, t Ticket, err error, log *slog.Logger) (TicketOutcome, error) {
	scope := joinEnvs(t.Environments)
	if scope == "" {
		scope = t.Key
	}
	log.Error("ticket failed before processing environments", "error", err)
	o.comment(ctx, t.Key, failedComment(scope, err), log)
	return TicketFailed, err
}

// comment posts text on the ticket; failures are logged only.
func (o *Orchestrator) comment(ctx context.Context, key, text string, log *slog.Logger) {
	if err := o.deps.Tickets.AddComment(ctx, key, text); err != nil {
		log.Warn("could not post comment", "error", err)
	}
}

func (o *Orchestrator) notify(ctx context.Context, ev notify.Event) {
	ev.RunID = o.runID
	if ev.Timestamp.IsZero() {
		ev.Timestamp = time.Now().UTC()
	}
	if err := o.deps.Notifier.Notify(ctx, ev); err != nil {
		o.deps.Logger.Warn("notification failed", "type", ev.Type, "error", err)
	}
}
