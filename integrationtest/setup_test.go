package integrationtest

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/quilr/qonboard/auth"
	"github.com/quilr/qonboard/extract"
	"github.com/quilr/qonboard/jira"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/provision"
	"github.com/quilr/qonboard/testutil"
	"github.com/quilr/qonboard/tracker"
)

const (
	env        = "UAE POC"
	orgDomain  = "acme.com"
	monitorFor = "monitor+acme@quilr.ai"
)

var acme = onboard.Tenant{ID: "tenant-1", SubscriberID: "sub-1", Name: orgDomain}

// jiraFake serves search, transitions and comments.
type jiraFake struct {
	mu          sync.Mutex
	search      []byte
	transitions []string
	comments    []string
}

func (f *jiraFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	switch {
	case r.Method == http.MethodPost && r.URL.Path == "/rest/api/3/search/jql":
		_, _ = w.Write(f.search)
	case r.Method == http.MethodGet && strings.HasSuffix(r.URL.Path, "/transitions"):
		_, _ = w.Write([]byte(`{"transitions":[{"id":"21","name":"New Tenant"},{"id":"31","name":"Tenant Ready"}]}`))
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/transitions"):
		var req jira.TransitionRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		f.transitions = append(f.transitions, req.Transition.ID)
		w.WriteHeader(http.StatusNoContent)
	case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "/comment"):
		body, _ := io.ReadAll(r.Body)
		f.comments = append(f.comments, string(body))
		_, _ = w.Write([]byte(`{"id":"100"}`))
	default:
		w.WriteHeader(http.StatusNotFound)
	}
}

func (f *jiraFake) snapshot() (transitions, comments []string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.transitions...), append([]string(nil), f.comments...)
}

// bffFake records provisioning calls.
type bffFake struct {
	mu      sync.Mutex
	payload []map[string]string
}

func (f *bffFake) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if r.URL.Path != provision.OnboardPath {
		w.WriteHeader(http.StatusNotFound)
		return
	}
	var body map[string]string
	_ = json.NewDecoder(r.Body).Decode(&body)
	f.payload = append(f.payload, body)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}

func (f *bffFake) calls() []map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]map[string]string(nil), f.payload...)
}

// azureHandler answers every extraction with Alice.
func azureHandler(t *testing.T) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		args, _ := json.Marshal(map[string]any{"customers": []map[string]string{
			{"firstname": "alice", "lastname": "smith", "email": "Alice@Acme.com"},
		}})
		resp := map[string]any{"choices": []any{map[string]any{
			"message": map[string]any{"tool_calls": []any{map[string]any{
				"type":     "function",
				"function": map[string]any{"name": extract.FunctionName, "arguments": string(args)},
			}}},
		}}}
		if err := json.NewEncoder(w).Encode(resp); err != nil {
			t.Errorf("encode azure response: %v", err)
		}
	}
}

// stack is one wired onboarding deployment. The progress file and the
// in-memory databases outlive individual runs.
type stack struct {
	jira      *jiraFake
	bff       *bffFake
	envs      *testutil.FakeEnvironments
	statePath string

	source *tracker.Jira
	prov   *provision.Client
	logger *slog.Logger
}

func newStack(t *testing.T) *stack {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	s := &stack{
		jira:      &jiraFake{search: testutil.LoadFixture(t, "search.json")},
		bff:       &bffFake{},
		envs:      testutil.NewFakeEnvironments(),
		statePath: filepath.Join(t.TempDir(), progress.DefaultFileName),
		logger:    logger,
	}
	db := s.envs.RelationalFor(env)
	db.Tenants[orgDomain] = acme
	db.RoleIDs = []string{"role-1"}
	db.GroupIDs = []string{"group-1"}

	jiraServer := httptest.NewServer(s.jira)
	t.Cleanup(jiraServer.Close)
	azureServer := httptest.NewServer(azureHandler(t))
	t.Cleanup(azureServer.Close)
	bffServer := httptest.NewServer(s.bff)
	t.Cleanup(bffServer.Close)

	jcfg := jira.DefaultConfig()
	jcfg.URL = jiraServer.URL
	jcfg.Auth = jira.AuthConfig{Type: jira.AuthAPIToken, Email: "ops@quilr.ai", Token: "tok"}
	jcfg.RetryWait = time.Millisecond
	client, err := jira.NewClient(jcfg)
	require.NoError(t, err)

	extractor := extract.New(extract.Config{
		APIKey:     "az-key",
		Endpoint:   azureServer.URL,
		Deployment: "gpt-4o",
		APIVersion: "2024-02-01",
	}, extract.WithLogger(logger))

	s.source = tracker.NewJira(client, extractor, tracker.JiraConfig{
		IssueType:        "Customer Onboard",
		PendingStatus:    "To Do",
		InProgressStatus: "New Tenant",
		DoneStatus:       "Tenant Ready",
		EnvironmentField: "customfield_10479",
	}, logger)

	s.prov = provision.New(provision.Config{
		Vendor:  provision.DefaultVendor,
		Scheme:  "http",
		Domains: map[string]string{env: strings.TrimPrefix(bffServer.URL, "http://")},
	}, provision.WithLogger(logger))

	return s
}

// run performs one onboarding run with a fresh progress store read from
// the shared file, as a new process would.
func (s *stack) run(t *testing.T, ui onboard.UI, key string) onboard.Summary {
	t.Helper()
	runner := onboard.NewRunner(onboard.Deps{
		Tickets:          s.source,
		Provisioning:     s.prov,
		Environments:     s.envs,
		Progress:         progress.Open(s.statePath, progress.WithLogger(s.logger)),
		UI:               ui,
		Logger:           s.logger,
		GeneratePassword: auth.GeneratePassword,
		HashPassword:     auth.HashPassword,
	})
	sum, err := runner.Run(testutil.TestContextWithTimeout(t, 30*time.Second), key)
	require.NoError(t, err)
	return sum
}
