package onboard

import (
	"context"
	"fmt"
	"log/slog"
)

// Sequencer runs the fixed steps for one (ticket, environment) pair in
// ascending order and stops at the first step that is not done.
type Sequencer struct {
	exec         *Executor
	progress     Progress
	envs         Environments
	provisioning ProvisioningClient
	ui           UI
	logger       *slog.Logger
	hash         func(string) (string, error)
}

// Run executes the sequence. Secret is the ticket-scoped monitoring
// password and domain the organization domain of the ticket's users.
// The environment is marked complete when the last step is done.
func (s *Sequencer) Run(ctx context.Context, ticket Ticket, env, domain, secret string) Result {
	s.ui.Rule(RuleEnvironment, env)

	run := &envRun{
		seq:    s,
		ticket: ticket,
		env:    env,
		domain: domain,
		secret: secret,
	}

	for _, step := range run.steps() {
		if err := ctx.Err(); err != nil {
			return Result{Outcome: OutcomeFailed, Step: step.Ordinal, Title: step.Title, Err: err}
		}
		res := s.exec.Execute(ctx, ticket.Key, env, step)
		if res.Outcome != OutcomeDone {
			return res
		}
	}

	s.progress.MarkEnvironmentComplete(ticket.Key, env)
	s.ui.Rule(RuleDone, fmt.Sprintf("✓  %s — all steps completed", env))
	return Result{Outcome: OutcomeDone, Step: TotalSteps}
}
