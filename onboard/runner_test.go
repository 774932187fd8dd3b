package onboard_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilr/qonboard/notify"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/testutil"
)

func TestRun_CompletesTicket(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.True(t, sum.OK())
	assert.NotEmpty(t, sum.RunID)

	assert.Equal(t, []int{1, 2, 3, 4, 5}, h.ui.PromptedSteps())
	assert.Equal(t, []int{1, 2, 3, 4, 5}, h.store.StepsDone("OPS-1", envA))
	assert.True(t, h.store.IsEnvironmentComplete("OPS-1", envA))
	assert.True(t, h.store.IsTicketComplete("OPS-1", []string{envA}))

	comments := h.tickets.CommentsFor("OPS-1")
	require.Len(t, comments, 1)
	assert.Equal(t, "*Onboarding completed.*\n\n"+
		"*Users onboarded:*\n"+
		"  - Alice Smith `alice@acme.com`\n\n"+
		"- Environment: ENV-A\n"+
		"- Monitoring user: `monitor+acme@quilr.ai`", comments[0])

	assert.Equal(t, []string{"OPS-1"}, h.tickets.InProgress)
	assert.Equal(t, []string{"OPS-1"}, h.tickets.Done)
	assert.Equal(t, []string{"alice@acme.com"}, h.provisioning.Provisioned)
	assert.Equal(t, 1, h.envs.Closed)

	db := h.envs.RelationalFor(envA)
	require.Contains(t, db.MonitoringUsers, "monitor+acme@quilr.ai")
	mu := db.MonitoringUsers["monitor+acme@quilr.ai"]
	assert.Equal(t, "hashed:secret-pw", mu.PasswordHash)
	assert.Equal(t, acmeTenant, mu.Tenant)
	assert.Equal(t, []string{"role-1", "role-2"}, mu.RoleIDs)
	assert.Equal(t, []string{domain}, db.Updated)
	assert.Contains(t, h.envs.GraphFor(envA).Nodes, acmeTenant.ID)

	require.Len(t, h.ui.Credentials, 1)
	assert.False(t, h.ui.Credentials[0].FromPreviousRun)
	assert.Equal(t, "secret-pw", h.ui.Credentials[0].Password)

	var cached onboard.MonitoringUser
	require.True(t, h.store.CachedValue("OPS-1", envA, progress.CacheMonitoringUser, &cached))
	assert.True(t, cached.Created)
}

func TestRun_DeclineIsNotFailure(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.ui.Approve = testutil.DeclineStep(3)

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Paused)
	assert.Empty(t, sum.Failed)
	assert.True(t, sum.OK())

	assert.Equal(t, []int{1, 2}, h.store.StepsDone("OPS-1", envA))
	assert.False(t, h.store.IsStepDone("OPS-1", envA, 3))
	assert.False(t, h.store.IsEnvironmentComplete("OPS-1", envA))
	assert.False(t, h.store.IsTicketComplete("OPS-1", []string{envA}))

	assert.Equal(t, []string{
		"Onboarding paused — Step 3/5 — PostgreSQL — Create Monitoring User (ENV-A) skipped by operator",
	}, h.tickets.CommentsFor("OPS-1"))
	assert.Empty(t, h.tickets.Done)
	assert.Empty(t, h.envs.RelationalFor(envA).MonitoringUsers)
	assert.Contains(t, h.notifier.types(), notify.EventTicketPaused)
}

func TestRun_DeclineContinuesToNextTicket(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA), ticket("OPS-2", envB))
	h.ui.Approve = func(p onboard.Prompt) bool { return !(p.Env == envA && p.Step == 1) }

	sum := h.run(t, "")

	assert.Equal(t, []string{"OPS-1"}, sum.Paused)
	assert.Equal(t, []string{"OPS-2"}, sum.Completed)
	assert.True(t, sum.OK())
}

func TestRun_ResumesAfterCrash(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.store.MarkStepDone("OPS-1", envA, 1)
	h.store.MarkStepDone("OPS-1", envA, 2)
	cachedTenant := onboard.Tenant{ID: "cached-id", SubscriberID: "cached-sub", Name: domain}
	require.NoError(t, h.store.SetCachedValue("OPS-1", envA, progress.CacheTenant, cachedTenant))

	// Reopen to prove resumption reads from disk.
	h.store = progress.Open(h.statePath, progress.WithLogger(discard()))
	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Equal(t, []int{3, 4, 5}, h.ui.PromptedSteps())
	assert.Empty(t, h.provisioning.Provisioned)

	db := h.envs.RelationalFor(envA)
	assert.Zero(t, db.CallCount("GetTenant"), "tenant must come from the progress cache")
	assert.Zero(t, db.CallCount("GetUserAccountType"))
	assert.Equal(t, cachedTenant, db.MonitoringUsers["monitor+acme@quilr.ai"].Tenant)
	assert.Contains(t, h.envs.GraphFor(envA).Nodes, "cached-id")
	assert.Equal(t, []int{1, 2, 3, 4, 5}, h.store.StepsDone("OPS-1", envA))
}

func TestRun_DoneStepsAreNotRepeated(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	for step := 1; step <= onboard.TotalSteps; step++ {
		h.store.MarkStepDone("OPS-1", envA, step)
	}
	require.NoError(t, h.store.SetCachedValue("OPS-1", envA, progress.CacheTenant, acmeTenant))
	h.store.SetTicketSecret("OPS-1", "earlier-pw")

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Empty(t, h.ui.Prompts)
	assert.Empty(t, h.provisioning.Provisioned)
	assert.Empty(t, h.envs.Opened, "no external store is touched for recorded steps")
	assert.Zero(t, h.generated)

	require.Len(t, h.ui.Credentials, 1)
	assert.Equal(t, testutil.CredentialsShown{
		Email: "monitor+acme@quilr.ai", Password: "earlier-pw", FromPreviousRun: true,
	}, h.ui.Credentials[0])
	assert.True(t, h.store.IsEnvironmentComplete("OPS-1", envA))
}

func TestRun_RefetchesTenantMissingFromCache(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.store.MarkStepDone("OPS-1", envA, 1)
	h.store.MarkStepDone("OPS-1", envA, 2)

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Equal(t, []int{3, 4, 5}, h.ui.PromptedSteps())
	assert.Equal(t, 1, h.envs.RelationalFor(envA).CallCount("GetTenant"))

	var tenant onboard.Tenant
	require.True(t, h.store.CachedValue("OPS-1", envA, progress.CacheTenant, &tenant))
	assert.Equal(t, acmeTenant, tenant)
}

func TestRun_FailureIsIsolatedPerTicket(t *testing.T) {
	broken := ticket("OPS-1", envA)
	broken.Users = []onboard.User{{Firstname: "Bob", Lastname: " ", Email: "bob@unknown.org"}}
	h := newHarness(t, broken, ticket("OPS-2", envB))

	sum := h.run(t, "")

	assert.Equal(t, []string{"OPS-1"}, sum.Failed)
	assert.Equal(t, []string{"OPS-2"}, sum.Completed)
	assert.False(t, sum.OK())

	assert.Equal(t, []int{1}, h.store.StepsDone("OPS-1", envA))
	assert.False(t, h.store.IsTicketComplete("OPS-1", []string{envA}))

	comments := h.tickets.CommentsFor("OPS-1")
	require.Len(t, comments, 1)
	assert.True(t, strings.HasPrefix(comments[0], "*Onboarding failed for ENV-A — manual intervention required.*\n\n{code}\n"))
	assert.Contains(t, comments[0], "tenant not found")
	assert.True(t, strings.HasSuffix(comments[0], "\n{code}"))

	assert.Contains(t, h.ui.Rules, "✗  1 ticket(s) failed: OPS-1")
	assert.Equal(t, 1, h.envs.Closed)
}

func TestRun_FailedStepIsRetriedNextRun(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.envs.RelationalFor(envA).Errs["ApplyOnboardingUpdates"] = errors.New("connection reset")

	sum := h.run(t, "OPS-1")
	require.Equal(t, []string{"OPS-1"}, sum.Failed)
	assert.Equal(t, []int{1, 2, 3}, h.store.StepsDone("OPS-1", envA))

	delete(h.envs.RelationalFor(envA).Errs, "ApplyOnboardingUpdates")
	h.ui.Prompts = nil

	sum = h.run(t, "OPS-1")
	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Equal(t, []int{4, 5}, h.ui.PromptedSteps())
	assert.Len(t, h.envs.RelationalFor(envA).MonitoringUsers, 1)
}

func TestRun_ProvisioningFailureLeavesStepOpen(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.provisioning.Errs["alice@acme.com"] = errors.New("502 bad gateway")

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Failed)
	assert.Empty(t, h.store.StepsDone("OPS-1", envA))
}

func TestRun_UnavailableDomainAutoCompletesStepOne(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	delete(h.provisioning.Domains, envA)

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Equal(t, []int{2, 3, 4, 5}, h.ui.PromptedSteps())
	assert.Empty(t, h.provisioning.Provisioned)
	assert.True(t, h.store.IsStepDone("OPS-1", envA, 1))
}

func TestRun_PartitionsExistingUsers(t *testing.T) {
	tk := ticket("OPS-1", envA)
	tk.Users = append(tk.Users,
		onboard.User{Firstname: "Carol", Lastname: "Jones", Email: "carol@acme.com"},
		onboard.User{Firstname: "Dan", Lastname: " ", Email: "dan@acme.com"},
	)
	h := newHarness(t, tk)
	db := h.envs.RelationalFor(envA)
	db.AccountTypes["carol@acme.com"] = "Credentials"
	db.AccountTypes["dan@acme.com"] = "google"

	h.run(t, "OPS-1")

	require.NotEmpty(t, h.ui.Prompts)
	first := h.ui.Prompts[0]
	assert.Equal(t, 1, first.Step)
	assert.Equal(t, "Onboard API  (1 new, 2 skipped user(s))", first.Title)
	assert.Contains(t, first.Preview, "POST  https://a.example/bff/auth/auth/onboard")
	assert.Contains(t, first.Preview, "(internal user — credentials account)")
	assert.Contains(t, first.Preview, "(already onboarded — google account)")
	assert.Equal(t, []string{"alice@acme.com"}, h.provisioning.Provisioned)
}

func TestRun_NoNewUsersSkipsPrompt(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.envs.RelationalFor(envA).AccountTypes["alice@acme.com"] = "microsoft"

	h.run(t, "OPS-1")

	assert.Equal(t, []int{2, 3, 4, 5}, h.ui.PromptedSteps())
	assert.True(t, h.store.IsStepDone("OPS-1", envA, 1))
	assert.Empty(t, h.provisioning.Provisioned)
}

func TestRun_SecretSharedAcrossEnvironments(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA, envB))

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Equal(t, 1, h.generated)
	for _, env := range []string{envA, envB} {
		mu := h.envs.RelationalFor(env).MonitoringUsers["monitor+acme@quilr.ai"]
		assert.Equal(t, "hashed:secret-pw", mu.PasswordHash, env)
		assert.True(t, h.store.IsEnvironmentComplete("OPS-1", env))
	}
	comments := h.tickets.CommentsFor("OPS-1")
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0], "- Environment: ENV-A, ENV-B")
}

func TestRun_SkipsCompletedEnvironmentButFinalizes(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA, envB))
	h.store.MarkEnvironmentComplete("OPS-1", envA)

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	for _, p := range h.ui.Prompts {
		assert.Equal(t, envB, p.Env)
	}
	assert.Contains(t, h.ui.Rules, "✓  ENV-A — already completed, skipping")
	assert.True(t, h.store.IsTicketComplete("OPS-1", []string{envA, envB}))
}

func TestRun_SkipsCompletedTicket(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.store.MarkEnvironmentComplete("OPS-1", envA)
	h.store.MarkTicketComplete("OPS-1")

	sum := h.run(t, "")

	assert.Equal(t, []string{"OPS-1"}, sum.Skipped)
	assert.Empty(t, h.tickets.InProgress)
	assert.Empty(t, h.tickets.CommentsFor("OPS-1"))
}

func TestRun_UnparseableTicket(t *testing.T) {
	h := newHarness(t)
	h.tickets.ByKey["OPS-9"] = nil

	_, err := onboard.NewRunner(h.deps()).Run(testutil.TestContext(t), "OPS-9")

	assert.ErrorIs(t, err, onboard.ErrTicketUnparseable)
	assert.Equal(t, 1, h.envs.Closed, "connections are released on every exit path")
}

func TestRun_NoPendingTickets(t *testing.T) {
	h := newHarness(t)

	sum := h.run(t, "")

	assert.True(t, sum.OK())
	assert.Empty(t, sum.Completed)
	assert.Contains(t, h.ui.Statuses, "No pending Customer Onboard tickets found.")
}

func TestRun_ConfirmErrorFailsTicket(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.ui.ConfirmErr = errors.New("stdin closed")

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Failed)
	assert.Empty(t, h.store.StepsDone("OPS-1", envA))
}

func TestRun_Notifications(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []notify.EventType{
		notify.EventTicketStarted,
		notify.EventEnvironmentCompleted,
		notify.EventTicketCompleted,
		notify.EventRunCompleted,
	}, h.notifier.types())
	for _, ev := range h.notifier.events {
		assert.Equal(t, sum.RunID, ev.RunID)
		assert.False(t, ev.Timestamp.IsZero())
	}
}

func TestRun_CompletionCommentFailureFailsTicket(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	h.tickets.CommentErr = errors.New("jira down")

	sum := h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Failed)
	assert.True(t, h.store.IsEnvironmentComplete("OPS-1", envA))
	assert.False(t, h.store.Snapshot().Tickets["OPS-1"].Completed)
	assert.Empty(t, h.tickets.Done)

	h.tickets.CommentErr = nil
	sum = h.run(t, "OPS-1")

	assert.Equal(t, []string{"OPS-1"}, sum.Completed)
	assert.Empty(t, sum.Skipped)
	comments := h.tickets.CommentsFor("OPS-1")
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0], "Onboarding completed")
	assert.Equal(t, []string{"OPS-1"}, h.tickets.Done)
	assert.True(t, h.store.IsTicketFinalized("OPS-1"))
	assert.Equal(t, 1, h.envs.RelationalFor(envA).CallCount("GetTenant"), "completed environment is not rerun")
}

func TestRun_InvalidTicketIsCommented(t *testing.T) {
	tests := []struct {
		name   string
		ticket onboard.Ticket
		want   error
		scope  string
	}{
		{"no environments", onboard.Ticket{Key: "OPS-1", Users: ticket("x").Users}, onboard.ErrNoEnvironments, "OPS-1"},
		{"no users", onboard.Ticket{Key: "OPS-1", Environments: []string{envA}}, onboard.ErrNoUsers, envA},
		{"bad first email", onboard.Ticket{Key: "OPS-1", Environments: []string{envA},
			Users: []onboard.User{{Firstname: "Bob", Lastname: " ", Email: "bob-at-acme"}}}, onboard.ErrInvalidEmail, envA},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h := newHarness(t, tt.ticket)

			sum := h.run(t, "OPS-1")

			assert.Equal(t, []string{"OPS-1"}, sum.Failed)
			comments := h.tickets.CommentsFor("OPS-1")
			require.Len(t, comments, 1)
			assert.Contains(t, comments[0], "*Onboarding failed for "+tt.scope)
			assert.Contains(t, comments[0], tt.want.Error())
			assert.Empty(t, h.ui.PromptedSteps())
		})
	}
}

func TestRun_PasswordGenerationFailureIsCommented(t *testing.T) {
	h := newHarness(t, ticket("OPS-1", envA))
	deps := h.deps()
	deps.GeneratePassword = func() (string, error) { return "", errors.New("entropy unavailable") }

	sum, err := onboard.NewRunner(deps).Run(testutil.TestContext(t), "OPS-1")
	require.NoError(t, err)

	assert.Equal(t, []string{"OPS-1"}, sum.Failed)
	comments := h.tickets.CommentsFor("OPS-1")
	require.Len(t, comments, 1)
	assert.Contains(t, comments[0], "entropy unavailable")
	assert.False(t, h.store.IsStepDone("OPS-1", envA, 1))
}
