package onboard

import (
	"context"
	"fmt"
	"log/slog"
)

// Outcome is the result kind of running a step or a sequence.
type Outcome int

// Outcomes.
const (
	// OutcomeDone means the step is recorded as done, either now or earlier.
	OutcomeDone Outcome = iota
	// OutcomeDeclined means the operator refused the step. It is not an error.
	OutcomeDeclined
	// OutcomeFailed means the step returned an error and was not recorded.
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeDone:
		return "done"
	case OutcomeDeclined:
		return "declined"
	case OutcomeFailed:
		return "failed"
	default:
		return fmt.Sprintf("Outcome(%d)", int(o))
	}
}

// Result is the outcome of one step, or of the step that ended a sequence.
type Result struct {
	Outcome Outcome
	Step    int
	Title   string
	Err     error
}

// Plan is what a step intends to do, shown to the operator before it runs.
type Plan struct {
	// Title overrides the step title in the prompt.
	Title   string
	Syntax  string
	Preview string

	// AutoComplete records the step as done without prompting or running
	// the action. Reason is logged.
	AutoComplete bool
	Reason       string
}

// Step is one idempotent unit of external work.
type Step struct {
	Ordinal int
	Title   string

	// Prepare builds the preview. It may read external state but must not
	// change it. Nil means an empty preview.
	Prepare func(ctx context.Context) (Plan, error)

	// Action performs the mutation.
	Action func(ctx context.Context) error

	// Resume runs instead of Prepare and Action when the step is already
	// done. It restores values later steps need and must not repeat the
	// mutation.
	Resume func(ctx context.Context) error
}

// Executor runs a single step under operator consent and records it.
type Executor struct {
	progress Progress
	ui       UI
	logger   *slog.Logger
}

// NewExecutor creates an Executor.
func NewExecutor(progress Progress, ui UI, logger *slog.Logger) *Executor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Executor{progress: progress, ui: ui, logger: logger}
}

// Execute runs step for (key, env).
//
// A step already recorded as done only runs Resume. Otherwise the preview
// is shown and the action runs once the operator approves; the step is
// recorded only after the action succeeds.
func (e *Executor) Execute(ctx context.Context, key, env string, step Step) Result {
	res := Result{Step: step.Ordinal, Title: step.Title}

	if e.progress.IsStepDone(key, env, step.Ordinal) {
		e.ui.Rule(RuleSkipped, fmt.Sprintf("✓  Step %d/%d — %s (%s) — already completed",
			step.Ordinal, TotalSteps, step.Title, env))
		if step.Resume != nil {
			if err := step.Resume(ctx); err != nil {
				res.Outcome = OutcomeFailed
				res.Err = fmt.Errorf("step %d (%s): %w", step.Ordinal, step.Title, err)
				return res
			}
		}
		res.Outcome = OutcomeDone
		return res
	}

	var plan Plan
	if step.Prepare != nil {
		var err error
		plan, err = step.Prepare(ctx)
		if err != nil {
			res.Outcome = OutcomeFailed
			res.Err = fmt.Errorf("step %d (%s): %w", step.Ordinal, step.Title, err)
			return res
		}
	}

	if plan.AutoComplete {
		e.logger.Warn("step completed without running", "ticket", key, "env", env,
			"step", step.Ordinal, "reason", plan.Reason)
		e.ui.Status(StatusWarn, plan.Reason)
		e.progress.MarkStepDone(key, env, step.Ordinal)
		res.Outcome = OutcomeDone
		return res
	}

	title := step.Title
	if plan.Title != "" {
		title = plan.Title
	}
	approved, err := e.ui.Confirm(ctx, Prompt{
		Step:    step.Ordinal,
		Total:   TotalSteps,
		Title:   title,
		Env:     env,
		Syntax:  plan.Syntax,
		Preview: plan.Preview,
	})
	if err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("step %d (%s): confirm: %w", step.Ordinal, step.Title, err)
		return res
	}
	if !approved {
		e.logger.Debug("step declined", "ticket", key, "env", env, "step", step.Ordinal)
		res.Outcome = OutcomeDeclined
		return res
	}

	if err := step.Action(ctx); err != nil {
		res.Outcome = OutcomeFailed
		res.Err = fmt.Errorf("step %d (%s): %w", step.Ordinal, step.Title, err)
		return res
	}

	e.progress.MarkStepDone(key, env, step.Ordinal)
	e.logger.Debug("step recorded", "ticket", key, "env", env, "step", step.Ordinal)
	res.Outcome = OutcomeDone
	return res
}
