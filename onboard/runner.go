package onboard

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/quilr/qonboard/notify"
)

// Summary is the aggregate outcome of a run.
type Summary struct {
	RunID     string
	Completed []string
	Paused    []string
	// Skipped lists tickets that were already fully onboarded.
	Skipped []string
	Failed  []string
}

// OK reports whether no ticket failed.
func (s Summary) OK() bool {
	return len(s.Failed) == 0
}

// Runner processes a working set of tickets one at a time. A failing
// ticket is recorded and the run moves on to the next one.
type Runner struct {
	deps  Deps
	newID func() string
}

// NewRunner creates a Runner.
func NewRunner(deps Deps) *Runner {
	return &Runner{
		deps:  deps.withDefaults(),
		newID: uuid.NewString,
	}
}

// Run processes the ticket named by key, or every pending ticket when key
// is empty. Connections opened during the run are closed before it returns.
// The returned error covers only failures to build the working set; ticket
// failures are reported in the Summary.
func (r *Runner) Run(ctx context.Context, key string) (Summary, error) {
	sum := Summary{RunID: r.newID()}
	log := r.deps.Logger.With("run_id", sum.RunID)

	defer func() {
		if err := r.deps.Environments.CloseAll(ctx); err != nil {
			log.Warn("could not close connections", "error", err)
		}
	}()

	tickets, err := r.workingSet(ctx, key)
	if err != nil {
		return sum, err
	}
	if len(tickets) == 0 {
		r.deps.UI.Status(StatusOK, "No pending Customer Onboard tickets found.")
		return sum, nil
	}

	r.deps.UI.Rule(RuleHeading, fmt.Sprintf("Processing %d ticket(s)", len(tickets)))
	orch := NewOrchestrator(r.deps, sum.RunID)

	for _, t := range tickets {
		if err := ctx.Err(); err != nil {
			return sum, err
		}

		if r.deps.Progress.IsTicketComplete(t.Key, t.Environments) && r.deps.Progress.IsTicketFinalized(t.Key) {
			r.deps.UI.Rule(RuleSkipped, fmt.Sprintf("✓  %s — already fully onboarded, skipping", t.Key))
			sum.Skipped = append(sum.Skipped, t.Key)
			continue
		}

		orch.notify(ctx, notify.Event{
			Type:     notify.EventTicketStarted,
			Ticket:   t.Key,
			Message:  fmt.Sprintf("Onboarding %s: %s", t.Key, t.Summary),
			Severity: notify.SeverityInfo,
		})

		outcome, err := orch.Process(ctx, t)
		switch outcome {
		case TicketCompleted:
			sum.Completed = append(sum.Completed, t.Key)
			orch.notify(ctx, notify.Event{
				Type:     notify.EventTicketCompleted,
				Ticket:   t.Key,
				Message:  fmt.Sprintf("Onboarding completed for %s", t.Key),
				Severity: notify.SeverityInfo,
			})
		case TicketPaused:
			sum.Paused = append(sum.Paused, t.Key)
		default:
			sum.Failed = append(sum.Failed, t.Key)
			log.Error("ticket failed", "ticket", t.Key, "error", err)
			orch.notify(ctx, notify.Event{
				Type:     notify.EventTicketFailed,
				Ticket:   t.Key,
				Message:  fmt.Sprintf("Onboarding failed for %s: %v", t.Key, err),
				Severity: notify.SeverityError,
			})
		}
	}

	if sum.OK() {
		r.deps.UI.Rule(RuleDone, "✓  All done")
	} else {
		r.deps.UI.Rule(RuleFailed, fmt.Sprintf("✗  %d ticket(s) failed: %s",
			len(sum.Failed), strings.Join(sum.Failed, ", ")))
	}

	severity := notify.SeverityInfo
	if !sum.OK() {
		severity = notify.SeverityError
	}
	orch.notify(ctx, notify.Event{
		Type:     notify.EventRunCompleted,
		Message:  fmt.Sprintf("Run finished: %d completed, %d paused, %d skipped, %d failed", len(sum.Completed), len(sum.Paused), len(sum.Skipped), len(sum.Failed)),
		Severity: severity,
		Metadata: map[string]any{"failed": sum.Failed},
	})
	return sum, nil
}

func (r *Runner) workingSet(ctx context.Context, key string) ([]Ticket, error) {
	if key == "" {
		tickets, err := r.deps.Tickets.FetchPendingTickets(ctx)
		if err != nil {
			return nil, fmt.Errorf("fetch pending tickets: %w", err)
		}
		return tickets, nil
	}

	t, err := r.deps.Tickets.FetchTicket(ctx, key)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", key, err)
	}
	if t == nil {
		return nil, fmt.Errorf("%s: %w", key, ErrTicketUnparseable)
	}
	return []Ticket{*t}, nil
}

func joinEnvs(envs []string) string {
	return strings.Join(envs, ", ")
}
