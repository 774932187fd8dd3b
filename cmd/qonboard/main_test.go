package main

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quilr/qonboard/config"
	qerrors "github.com/quilr/qonboard/errors"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/tracker"
)

// isolate points every runtime path into a temp dir and returns it.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("QONBOARD_CONFIG_DB", filepath.Join(dir, "config.db"))
	t.Setenv("QONBOARD_STATE_FILE", filepath.Join(dir, "state.json"))
	t.Setenv("QONBOARD_TRACKER", "")
	t.Setenv("QONBOARD_LOG_LEVEL", "")
	t.Chdir(dir)
	return dir
}

func run(t *testing.T, args ...string) (code int, stdout, stderr string) {
	t.Helper()
	var out, errOut bytes.Buffer
	code = execute(context.Background(), args, bytes.NewReader(nil), &out, &errOut)
	return code, out.String(), errOut.String()
}

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in   string
		want slog.Level
	}{
		{"debug", slog.LevelDebug},
		{" DEBUG ", slog.LevelDebug},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"chatty", slog.LevelInfo},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, parseLevel(tt.in), tt.in)
	}
}

func TestRootOptionsFlags(t *testing.T) {
	opts := &rootOptions{stateFile: "s.json", debug: true}
	flags := opts.flags()
	assert.Equal(t, "s.json", flags[config.KeyStateFile])
	assert.Equal(t, "debug", flags[config.KeyLogLevel])
	assert.Empty(t, flags[config.KeyTracker])

	opts.debug = false
	_, ok := opts.flags()[config.KeyLogLevel]
	assert.False(t, ok)
}

type fakeAsker struct {
	answer string
	err    error
	asked  string
}

func (f *fakeAsker) Ask(_ context.Context, question string) (string, error) {
	f.asked = question
	return f.answer, f.err
}

func TestTicketKey(t *testing.T) {
	tests := []struct {
		name    string
		tracker string
		args    []string
		all     bool
		answer  string
		want    string
		asked   bool
		wantErr bool
	}{
		{name: "argument normalised", tracker: "jira", args: []string{" co-12 "}, want: "CO-12"},
		{name: "all skips prompt", tracker: "jira", all: true, want: ""},
		{name: "prompt empty means all", tracker: "jira", answer: "", want: "", asked: true},
		{name: "prompt key", tracker: "jira", answer: "ops-3", want: "OPS-3", asked: true},
		{name: "invalid jira key", tracker: "jira", args: []string{"not a key"}, wantErr: true},
		{name: "github issue number", tracker: "github", args: []string{"#42"}, want: "#42"},
		{name: "gitlab prompt", tracker: "gitlab", answer: "7", want: "7", asked: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := &fakeAsker{answer: tt.answer}
			got, err := ticketKey(context.Background(), in, tt.tracker, tt.args, tt.all)
			if tt.wantErr {
				var cliErr *qerrors.CLIError
				require.ErrorAs(t, err, &cliErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.asked, in.asked != "")
		})
	}
}

func TestTicketKey_PromptWording(t *testing.T) {
	in := &fakeAsker{}
	_, err := ticketKey(context.Background(), in, "jira", nil, false)
	require.NoError(t, err)
	assert.Equal(t, "Enter Jira ticket ID (or press Enter for all open tickets)", in.asked)
}

func TestTicketKey_AskError(t *testing.T) {
	boom := errors.New("stdin closed")
	_, err := ticketKey(context.Background(), &fakeAsker{err: boom}, "jira", nil, false)
	require.ErrorIs(t, err, boom)
}

type extractorStub struct{}

func (extractorStub) Extract(context.Context, string) ([]onboard.User, error) { return nil, nil }

func TestBuildTracker(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	ctx := context.Background()
	g := config.Global{
		JiraURL: "https://acme.atlassian.net", JiraUsername: "ops@acme.io", JiraAPIToken: "tok",
		JiraEnvironmentField: "customfield_1", APITimeout: time.Second,
		GitHubToken: "gh", GitHubRepo: "acme/onboarding",
		GitLabToken: "gl", GitLabProject: "7",
	}

	src, err := buildTracker(ctx, config.TrackerJira, g, extractorStub{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &tracker.Jira{}, src)

	src, err = buildTracker(ctx, config.TrackerGitHub, g, extractorStub{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &tracker.GitHub{}, src)

	src, err = buildTracker(ctx, config.TrackerGitLab, g, extractorStub{}, logger)
	require.NoError(t, err)
	assert.IsType(t, &tracker.GitLab{}, src)

	_, err = buildTracker(ctx, "trello", g, extractorStub{}, logger)
	var cliErr *qerrors.CLIError
	require.ErrorAs(t, err, &cliErr)

	g.GitHubRepo = "no-slash"
	_, err = buildTracker(ctx, config.TrackerGitHub, g, extractorStub{}, logger)
	require.Error(t, err)
}

func TestTrackerTarget(t *testing.T) {
	g := config.Global{JiraURL: "https://acme.atlassian.net"}
	assert.Equal(t, "https://acme.atlassian.net", trackerTarget("jira", g))
	assert.Equal(t, "api.github.com", trackerTarget("github", g))
	assert.Equal(t, "gitlab.com", trackerTarget("gitlab", g))
	g.GitLabURL = "https://git.acme.io"
	assert.Equal(t, "https://git.acme.io", trackerTarget("gitlab", g))
}

func TestFormatSteps(t *testing.T) {
	assert.Equal(t, "1,2,3/5", formatSteps([]int{3, 1, 2}))
	assert.Equal(t, "-/5", formatSteps(nil))
}

func TestStatusRows(t *testing.T) {
	started := time.Date(2026, 1, 2, 3, 4, 0, 0, time.UTC)
	done := started.Add(time.Hour)
	doc := &progress.Document{
		SchemaVersion: progress.SchemaVersion,
		Tickets: map[string]*progress.Ticket{
			"CO-2": {StartedAt: started, Environments: map[string]*progress.Environment{}},
			"CO-1": {
				StartedAt:   started,
				Completed:   true,
				CompletedAt: &done,
				Environments: map[string]*progress.Environment{
					"UAE POC": {StepsDone: []int{1, 2, 3, 4, 5}, Completed: true},
					"IND POC": {StepsDone: []int{2, 1}},
				},
			},
		},
	}

	rows := statusRows(doc, "")
	require.Len(t, rows, 3)
	assert.Equal(t, []string{"CO-1", "IND POC", "1,2/5", "no"}, rows[0][:4])
	assert.Equal(t, []string{"CO-1", "UAE POC", "1,2,3,4,5/5", "yes"}, rows[1][:4])
	assert.Equal(t, formatTime(&done), rows[1][5])
	assert.Equal(t, []string{"CO-2", "-", "-", "-"}, rows[2][:4])
	assert.Equal(t, "no", rows[2][5])

	rows = statusRows(doc, "co-2")
	require.Len(t, rows, 1)
	assert.Equal(t, "CO-2", rows[0][0])

	assert.Empty(t, statusRows(doc, "CO-9"))
}

func TestConfigCommands(t *testing.T) {
	isolate(t)

	code, out, stderr := run(t, "config", "set", "JIRA_API_TOKEN", "abcdef123")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "JIRA_API_TOKEN saved")

	code, out, stderr = run(t, "config", "set", "PG_HOST", "db.internal", "--env", "UAE POC")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "PG_HOST saved for UAE POC")

	code, _, stderr = run(t, "config", "set", "PG_HOST", "x", "--env", "MARS")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, `Unknown environment "MARS"`)

	code, _, stderr = run(t, "config", "set", "tracker", "github", "--runtime")
	require.Equal(t, 0, code, stderr)

	code, out, stderr = run(t, "config", "show")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "ab***23")
	assert.NotContains(t, out, "abcdef123")
	assert.Contains(t, out, "db.internal")
	assert.Contains(t, out, "UAE POC")
	assert.Contains(t, out, "github")
	assert.Contains(t, out, "Runtime files:")

	code, out, stderr = run(t, "config", "show", "--env", "IND POC")
	require.Equal(t, 0, code, stderr)
	assert.NotContains(t, out, "db.internal")
}

func TestConfigInit(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env"), []byte("JIRA_URL=https://acme.atlassian.net\nJIRA_USERNAME=ops\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(dir, ".env_ind"), []byte("PG_HOST=ind-db\n"), 0o600))

	code, out, stderr := run(t, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "global: 2 key(s) imported")
	assert.Contains(t, out, "IND POC: 1 key(s) imported")

	code, out, stderr = run(t, "config", "init")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "global: 0 key(s) imported")
}

func TestRun_MissingConfig(t *testing.T) {
	isolate(t)

	code, _, stderr := run(t, "--all")
	assert.Equal(t, 1, code)
	assert.Contains(t, stderr, "Required config key JIRA_URL")
	assert.Contains(t, stderr, "qonboard config set JIRA_URL VALUE")
}

func TestStatusCommand(t *testing.T) {
	dir := isolate(t)
	state := `{"schema_version":2,"tickets":{"CO-1":{"started_at":"2026-01-02T03:04:05Z",
"environments":{"UAE POC":{"steps_done":[2,1],"cache":{},"completed":false}},"completed":false}}}`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "state.json"), []byte(state), 0o600))

	code, out, stderr := run(t, "status")
	require.Equal(t, 0, code, stderr)
	assert.Contains(t, out, "CO-1")
	assert.Contains(t, out, "1,2/5")

	code, out, _ = run(t, "status", "CO-404")
	assert.Equal(t, 0, code)
	assert.Contains(t, out, "No progress recorded for CO-404")
}
