package testutil

import (
	"context"
	"fmt"
	"sync"

	"github.com/quilr/qonboard/onboard"
)

// =============================================================================
// Tickets
// =============================================================================

// FakeTickets is an in-memory onboard.TicketSource.
type FakeTickets struct {
	mu sync.Mutex

	Pending []onboard.Ticket
	// ByKey backs FetchTicket. A key mapped to nil is an unparseable issue.
	ByKey map[string]*onboard.Ticket

	FetchErr   error
	CommentErr error

	Comments   map[string][]string
	InProgress []string
	Done       []string
}

// NewFakeTickets returns a FakeTickets serving tickets both as pending and
// by key.
func NewFakeTickets(tickets ...onboard.Ticket) *FakeTickets {
	f := &FakeTickets{
		ByKey:    make(map[string]*onboard.Ticket),
		Comments: make(map[string][]string),
	}
	for _, t := range tickets {
		t := t
		f.Pending = append(f.Pending, t)
		f.ByKey[t.Key] = &t
	}
	return f
}

// FetchPendingTickets implements onboard.TicketSource.
func (f *FakeTickets) FetchPendingTickets(ctx context.Context) ([]onboard.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	return append([]onboard.Ticket(nil), f.Pending...), nil
}

// FetchTicket implements onboard.TicketSource.
func (f *FakeTickets) FetchTicket(ctx context.Context, key string) (*onboard.Ticket, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.FetchErr != nil {
		return nil, f.FetchErr
	}
	t, ok := f.ByKey[key]
	if !ok {
		return nil, fmt.Errorf("issue %s not found", key)
	}
	if t == nil {
		return nil, nil
	}
	cp := *t
	return &cp, nil
}

// MarkInProgress implements onboard.TicketSource.
func (f *FakeTickets) MarkInProgress(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.InProgress = append(f.InProgress, key)
	return nil
}

// MarkDone implements onboard.TicketSource.
func (f *FakeTickets) MarkDone(ctx context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Done = append(f.Done, key)
	return nil
}

// AddComment implements onboard.TicketSource.
func (f *FakeTickets) AddComment(ctx context.Context, key, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.CommentErr != nil {
		return f.CommentErr
	}
	if f.Comments == nil {
		f.Comments = make(map[string][]string)
	}
	f.Comments[key] = append(f.Comments[key], text)
	return nil
}

// CommentsFor returns the comments posted on key.
func (f *FakeTickets) CommentsFor(key string) []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.Comments[key]...)
}

// =============================================================================
// Provisioning
// =============================================================================

// FakeProvisioning is an in-memory onboard.ProvisioningClient.
type FakeProvisioning struct {
	mu sync.Mutex

	// Domains maps environment to API domain. Missing environments are
	// reported as unavailable.
	Domains map[string]string
	// Errs fails ProvisionUser for the given email.
	Errs map[string]error

	Provisioned []string
}

// NewFakeProvisioning returns a FakeProvisioning with the given domains.
func NewFakeProvisioning(domains map[string]string) *FakeProvisioning {
	return &FakeProvisioning{Domains: domains, Errs: make(map[string]error)}
}

// ResolveDomain implements onboard.ProvisioningClient.
func (f *FakeProvisioning) ResolveDomain(env string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	d, ok := f.Domains[env]
	if !ok {
		return "", fmt.Errorf("%w: %s", onboard.ErrDomainUnavailable, env)
	}
	return d, nil
}

// Endpoint implements onboard.ProvisioningClient.
func (f *FakeProvisioning) Endpoint(domain string) string {
	return "https://" + domain + "/bff/auth/auth/onboard"
}

// ProvisionUser implements onboard.ProvisioningClient.
func (f *FakeProvisioning) ProvisionUser(ctx context.Context, user onboard.User, domain string) (map[string]any, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.Errs[user.Email]; err != nil {
		return nil, err
	}
	f.Provisioned = append(f.Provisioned, user.Email)
	return map[string]any{"status": "ok"}, nil
}

// =============================================================================
// Relational store
// =============================================================================

// FakeRelational is an in-memory onboard.RelationalStore.
type FakeRelational struct {
	mu sync.Mutex

	// AccountTypes maps existing user emails to their account type.
	AccountTypes map[string]string
	// Tenants maps organization domain to tenant row.
	Tenants  map[string]onboard.Tenant
	RoleIDs  []string
	GroupIDs []string

	// Errs fails the named method, e.g. "GetTenant".
	Errs map[string]error

	MonitoringUsers map[string]onboard.NewMonitoringUser
	Updated         []string
	Calls           []string
}

// NewFakeRelational returns an empty FakeRelational.
func NewFakeRelational() *FakeRelational {
	return &FakeRelational{
		AccountTypes:    make(map[string]string),
		Tenants:         make(map[string]onboard.Tenant),
		Errs:            make(map[string]error),
		MonitoringUsers: make(map[string]onboard.NewMonitoringUser),
	}
}

func (f *FakeRelational) call(name string) error {
	f.Calls = append(f.Calls, name)
	return f.Errs[name]
}

// CallCount returns how often the named method was called.
func (f *FakeRelational) CallCount(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.Calls {
		if c == name {
			n++
		}
	}
	return n
}

// GetUserAccountType implements onboard.RelationalStore.
func (f *FakeRelational) GetUserAccountType(ctx context.Context, email string) (string, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetUserAccountType"); err != nil {
		return "", false, err
	}
	kind, ok := f.AccountTypes[email]
	return kind, ok, nil
}

// GetTenant implements onboard.RelationalStore.
func (f *FakeRelational) GetTenant(ctx context.Context, domain string) (onboard.Tenant, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetTenant"); err != nil {
		return onboard.Tenant{}, err
	}
	t, ok := f.Tenants[domain]
	if !ok {
		return onboard.Tenant{}, fmt.Errorf("%w: name = '%s'", onboard.ErrTenantNotFound, domain)
	}
	return t, nil
}

// GetTenantRoleIDs implements onboard.RelationalStore.
func (f *FakeRelational) GetTenantRoleIDs(ctx context.Context, tenantID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetTenantRoleIDs"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.RoleIDs...), nil
}

// GetTenantGroupIDs implements onboard.RelationalStore.
func (f *FakeRelational) GetTenantGroupIDs(ctx context.Context, tenantID string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("GetTenantGroupIDs"); err != nil {
		return nil, err
	}
	return append([]string(nil), f.GroupIDs...), nil
}

// CreateMonitoringUser implements onboard.RelationalStore.
func (f *FakeRelational) CreateMonitoringUser(ctx context.Context, u onboard.NewMonitoringUser) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("CreateMonitoringUser"); err != nil {
		return false, err
	}
	if _, exists := f.MonitoringUsers[u.Email]; exists {
		return false, nil
	}
	f.MonitoringUsers[u.Email] = u
	return true, nil
}

// ApplyOnboardingUpdates implements onboard.RelationalStore.
func (f *FakeRelational) ApplyOnboardingUpdates(ctx context.Context, domain string) (onboard.UpdateResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.call("ApplyOnboardingUpdates"); err != nil {
		return onboard.UpdateResult{}, err
	}
	f.Updated = append(f.Updated, domain)
	return onboard.UpdateResult{TenantRows: 1, SubscriberRows: 1}, nil
}

// =============================================================================
// Graph store
// =============================================================================

// FakeGraph is an in-memory onboard.GraphStore with merge semantics.
type FakeGraph struct {
	mu sync.Mutex

	Err    error
	Nodes  map[string]onboard.Tenant
	Merges int
}

// NewFakeGraph returns an empty FakeGraph.
func NewFakeGraph() *FakeGraph {
	return &FakeGraph{Nodes: make(map[string]onboard.Tenant)}
}

// MergeTenantNode implements onboard.GraphStore.
func (f *FakeGraph) MergeTenantNode(ctx context.Context, t onboard.Tenant) (onboard.MergeResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.Err != nil {
		return onboard.MergeResult{}, f.Err
	}
	f.Merges++
	_, exists := f.Nodes[t.ID]
	f.Nodes[t.ID] = t
	return onboard.MergeResult{InternalID: "internal-" + t.ID, Created: !exists}, nil
}

// =============================================================================
// Environments
// =============================================================================

// FakeEnvironments hands out one fake relational and graph store per
// environment, creating them on first use.
type FakeEnvironments struct {
	mu sync.Mutex

	Relationals map[string]*FakeRelational
	Graphs      map[string]*FakeGraph
	OpenErr     error

	Opened []string
	Closed int
}

// NewFakeEnvironments returns an empty FakeEnvironments.
func NewFakeEnvironments() *FakeEnvironments {
	return &FakeEnvironments{
		Relationals: make(map[string]*FakeRelational),
		Graphs:      make(map[string]*FakeGraph),
	}
}

// RelationalFor returns the relational fake for env, creating it if needed.
func (f *FakeEnvironments) RelationalFor(env string) *FakeRelational {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.relationalLocked(env)
}

func (f *FakeEnvironments) relationalLocked(env string) *FakeRelational {
	r, ok := f.Relationals[env]
	if !ok {
		r = NewFakeRelational()
		f.Relationals[env] = r
	}
	return r
}

// GraphFor returns the graph fake for env, creating it if needed.
func (f *FakeEnvironments) GraphFor(env string) *FakeGraph {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.graphLocked(env)
}

func (f *FakeEnvironments) graphLocked(env string) *FakeGraph {
	g, ok := f.Graphs[env]
	if !ok {
		g = NewFakeGraph()
		f.Graphs[env] = g
	}
	return g
}

// Relational implements onboard.Environments.
func (f *FakeEnvironments) Relational(ctx context.Context, env string) (onboard.RelationalStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.Opened = append(f.Opened, "relational:"+env)
	return f.relationalLocked(env), nil
}

// Graph implements onboard.Environments.
func (f *FakeEnvironments) Graph(ctx context.Context, env string) (onboard.GraphStore, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.OpenErr != nil {
		return nil, f.OpenErr
	}
	f.Opened = append(f.Opened, "graph:"+env)
	return f.graphLocked(env), nil
}

// CloseAll implements onboard.Environments.
func (f *FakeEnvironments) CloseAll(ctx context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Closed++
	return nil
}

// =============================================================================
// UI
// =============================================================================

// CredentialsShown records one credentials panel.
type CredentialsShown struct {
	Email           string
	Password        string
	FromPreviousRun bool
}

// ScriptedUI is an onboard.UI that answers prompts from a script and
// records everything rendered.
type ScriptedUI struct {
	mu sync.Mutex

	// Approve decides each prompt. Nil approves everything.
	Approve    func(p onboard.Prompt) bool
	ConfirmErr error

	Headers     []string
	Prompts     []onboard.Prompt
	Rules       []string
	Statuses    []string
	Credentials []CredentialsShown
}

// DeclineStep returns an Approve function that refuses the given ordinal.
func DeclineStep(ordinal int) func(onboard.Prompt) bool {
	return func(p onboard.Prompt) bool { return p.Step != ordinal }
}

// TicketHeader implements onboard.UI.
func (u *ScriptedUI) TicketHeader(t onboard.Ticket) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Headers = append(u.Headers, t.Key)
}

// Rule implements onboard.UI.
func (u *ScriptedUI) Rule(style onboard.RuleStyle, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Rules = append(u.Rules, text)
}

// Status implements onboard.UI.
func (u *ScriptedUI) Status(kind onboard.StatusKind, text string) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Statuses = append(u.Statuses, text)
}

// ShowCredentials implements onboard.UI.
func (u *ScriptedUI) ShowCredentials(email, password string, fromPreviousRun bool) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Credentials = append(u.Credentials, CredentialsShown{email, password, fromPreviousRun})
}

// Confirm implements onboard.UI.
func (u *ScriptedUI) Confirm(ctx context.Context, p onboard.Prompt) (bool, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.Prompts = append(u.Prompts, p)
	if u.ConfirmErr != nil {
		return false, u.ConfirmErr
	}
	if u.Approve == nil {
		return true, nil
	}
	return u.Approve(p), nil
}

// PromptedSteps returns the ordinals of every prompt shown.
func (u *ScriptedUI) PromptedSteps() []int {
	u.mu.Lock()
	defer u.mu.Unlock()
	steps := make([]int, 0, len(u.Prompts))
	for _, p := range u.Prompts {
		steps = append(steps, p.Step)
	}
	return steps
}
