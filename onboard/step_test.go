package onboard_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/testutil"
)

type stepCalls struct {
	prepare, action, resume int
}

func countingStep(calls *stepCalls, actionErr error) onboard.Step {
	return onboard.Step{
		Ordinal: 2,
		Title:   "Example",
		Prepare: func(ctx context.Context) (onboard.Plan, error) {
			calls.prepare++
			return onboard.Plan{Syntax: "sql", Preview: "SELECT 1;"}, nil
		},
		Action: func(ctx context.Context) error {
			calls.action++
			return actionErr
		},
		Resume: func(ctx context.Context) error {
			calls.resume++
			return nil
		},
	}
}

func TestExecutor_DoneStepOnlyResumes(t *testing.T) {
	h := newHarness(t)
	h.store.MarkStepDone("OPS-1", envA, 2)
	var calls stepCalls

	res := onboard.NewExecutor(h.store, h.ui, discard()).
		Execute(testutil.TestContext(t), "OPS-1", envA, countingStep(&calls, nil))

	assert.Equal(t, onboard.OutcomeDone, res.Outcome)
	assert.Equal(t, stepCalls{resume: 1}, calls)
	assert.Empty(t, h.ui.Prompts)
	assert.Equal(t, []string{"✓  Step 2/5 — Example (ENV-A) — already completed"}, h.ui.Rules)
}

func TestExecutor_ApprovedStepIsRecorded(t *testing.T) {
	h := newHarness(t)
	var calls stepCalls

	res := onboard.NewExecutor(h.store, h.ui, discard()).
		Execute(testutil.TestContext(t), "OPS-1", envA, countingStep(&calls, nil))

	assert.Equal(t, onboard.OutcomeDone, res.Outcome)
	assert.Equal(t, stepCalls{prepare: 1, action: 1}, calls)
	assert.Equal(t, []onboard.Prompt{{
		Step: 2, Total: onboard.TotalSteps, Title: "Example", Env: envA, Syntax: "sql", Preview: "SELECT 1;",
	}}, h.ui.Prompts)
	assert.True(t, h.store.IsStepDone("OPS-1", envA, 2))
}

func TestExecutor_DeclinedStepIsNotRecorded(t *testing.T) {
	h := newHarness(t)
	h.ui.Approve = testutil.DeclineStep(2)
	var calls stepCalls

	res := onboard.NewExecutor(h.store, h.ui, discard()).
		Execute(testutil.TestContext(t), "OPS-1", envA, countingStep(&calls, nil))

	assert.Equal(t, onboard.OutcomeDeclined, res.Outcome)
	assert.NoError(t, res.Err)
	assert.Equal(t, 2, res.Step)
	assert.Equal(t, "Example", res.Title)
	assert.Zero(t, calls.action)
	assert.False(t, h.store.IsStepDone("OPS-1", envA, 2))
}

func TestExecutor_FailedActionIsNotRecorded(t *testing.T) {
	h := newHarness(t)
	boom := errors.New("boom")
	var calls stepCalls

	res := onboard.NewExecutor(h.store, h.ui, discard()).
		Execute(testutil.TestContext(t), "OPS-1", envA, countingStep(&calls, boom))

	assert.Equal(t, onboard.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, boom)
	assert.False(t, h.store.IsStepDone("OPS-1", envA, 2))
}

func TestExecutor_AutoCompleteSkipsPrompt(t *testing.T) {
	h := newHarness(t)
	var actions int
	step := onboard.Step{
		Ordinal: 1,
		Title:   "Onboard API",
		Prepare: func(ctx context.Context) (onboard.Plan, error) {
			return onboard.Plan{AutoComplete: true, Reason: "nothing to do"}, nil
		},
		Action: func(ctx context.Context) error { actions++; return nil },
	}

	res := onboard.NewExecutor(h.store, h.ui, discard()).Execute(testutil.TestContext(t), "OPS-1", envA, step)

	assert.Equal(t, onboard.OutcomeDone, res.Outcome)
	assert.Zero(t, actions)
	assert.Empty(t, h.ui.Prompts)
	assert.Equal(t, []string{"nothing to do"}, h.ui.Statuses)
	assert.True(t, h.store.IsStepDone("OPS-1", envA, 1))
}

func TestExecutor_PrepareErrorFails(t *testing.T) {
	h := newHarness(t)
	step := onboard.Step{
		Ordinal: 3,
		Title:   "Lookup",
		Prepare: func(ctx context.Context) (onboard.Plan, error) {
			return onboard.Plan{}, onboard.ErrTenantNotFound
		},
		Action: func(ctx context.Context) error { return nil },
	}

	res := onboard.NewExecutor(h.store, h.ui, discard()).Execute(testutil.TestContext(t), "OPS-1", envA, step)

	assert.Equal(t, onboard.OutcomeFailed, res.Outcome)
	assert.ErrorIs(t, res.Err, onboard.ErrTenantNotFound)
	assert.Empty(t, h.ui.Prompts)
}

func TestProgressIsMonotonic(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	outcomes := []func(onboard.Prompt) bool{
		testutil.DeclineStep(2),
		testutil.DeclineStep(4),
		func(onboard.Prompt) bool { return false },
		nil,
	}

	var previous []int
	for _, approve := range outcomes {
		h.ui.Approve = approve
		h.run(t, "OPS-1")

		current := h.store.StepsDone("OPS-1", envA)
		for _, s := range previous {
			assert.Contains(t, current, s)
		}
		previous = current
	}
	assert.Equal(t, []int{1, 2, 3, 4, 5}, previous)
}

func TestOutcomeString(t *testing.T) {
	assert.Equal(t, "done", onboard.OutcomeDone.String())
	assert.Equal(t, "declined", onboard.OutcomeDeclined.String())
	assert.Equal(t, "failed", onboard.OutcomeFailed.String())
	assert.Equal(t, "paused", onboard.TicketPaused.String())
}
