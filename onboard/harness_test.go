package onboard_test

import (
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/quilr/qonboard/notify"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/testutil"
)

const (
	envA   = "ENV-A"
	envB   = "ENV-B"
	domain = "acme.com"
)

var acmeTenant = onboard.Tenant{ID: "tenant-1", SubscriberID: "sub-1", Name: domain}

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
}

func (n *recordingNotifier) Notify(ctx context.Context, ev notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, ev)
	return nil
}

func (n *recordingNotifier) types() []notify.EventType {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := make([]notify.EventType, 0, len(n.events))
	for _, ev := range n.events {
		out = append(out, ev.Type)
	}
	return out
}

type harness struct {
	tickets      *testutil.FakeTickets
	provisioning *testutil.FakeProvisioning
	envs         *testutil.FakeEnvironments
	ui           *testutil.ScriptedUI
	notifier     *recordingNotifier
	store        *progress.Store
	statePath    string
	generated    int
}

func ticket(key string, envs ...string) onboard.Ticket {
	return onboard.Ticket{
		Key:          key,
		Summary:      "Onboard Acme",
		Environments: envs,
		Users:        []onboard.User{{Firstname: "Alice", Lastname: "Smith", Email: "alice@acme.com"}},
	}
}

func newHarness(t *testing.T, tickets ...onboard.Ticket) *harness {
	t.Helper()
	path := filepath.Join(t.TempDir(), progress.DefaultFileName)
	h := &harness{
		tickets:      testutil.NewFakeTickets(tickets...),
		provisioning: testutil.NewFakeProvisioning(map[string]string{envA: "a.example", envB: "b.example"}),
		envs:         testutil.NewFakeEnvironments(),
		ui:           &testutil.ScriptedUI{},
		notifier:     &recordingNotifier{},
		store:        progress.Open(path, progress.WithLogger(discard())),
		statePath:    path,
	}
	for _, env := range []string{envA, envB} {
		h.envs.RelationalFor(env).Tenants[domain] = acmeTenant
		h.envs.RelationalFor(env).RoleIDs = []string{"role-1", "role-2"}
		h.envs.RelationalFor(env).GroupIDs = []string{"group-1"}
	}
	return h
}

func discard() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func (h *harness) deps() onboard.Deps {
	return onboard.Deps{
		Tickets:      h.tickets,
		Provisioning: h.provisioning,
		Environments: h.envs,
		Progress:     h.store,
		UI:           h.ui,
		Notifier:     h.notifier,
		Logger:       discard(),
		GeneratePassword: func() (string, error) {
			h.generated++
			return "secret-pw", nil
		},
		HashPassword: func(s string) (string, error) { return "hashed:" + s, nil },
	}
}

func (h *harness) run(t *testing.T, key string) onboard.Summary {
	t.Helper()
	sum, err := onboard.NewRunner(h.deps()).Run(testutil.TestContext(t), key)
	if err != nil {
		t.Fatalf("Run(%q) error = %v", key, err)
	}
	return sum
}
