package onboard

import "context"

// TicketSource is the issue tracker. Transitions are best effort: a missing
// target status is logged by the implementation and reported as success.
type TicketSource interface {
	FetchPendingTickets(ctx context.Context) ([]Ticket, error)
	// FetchTicket returns nil and no error when the issue exists but cannot
	// be parsed into a ticket.
	FetchTicket(ctx context.Context, key string) (*Ticket, error)
	MarkInProgress(ctx context.Context, key string) error
	MarkDone(ctx context.Context, key string) error
	AddComment(ctx context.Context, key, text string) error
}

// ProvisioningClient calls the per-environment onboarding API.
type ProvisioningClient interface {
	// ResolveDomain returns the API host for env, or an error wrapping
	// ErrDomainUnavailable.
	ResolveDomain(env string) (string, error)
	// Endpoint is the onboarding URL for a resolved domain.
	Endpoint(domain string) string
	ProvisionUser(ctx context.Context, user User, domain string) (map[string]any, error)
}

// RelationalStore is the per-environment identity database.
type RelationalStore interface {
	// GetUserAccountType returns the account type and whether the user exists.
	GetUserAccountType(ctx context.Context, email string) (string, bool, error)
	// GetTenant returns an error wrapping ErrTenantNotFound when no row matches.
	GetTenant(ctx context.Context, domain string) (Tenant, error)
	GetTenantRoleIDs(ctx context.Context, tenantID string) ([]string, error)
	GetTenantGroupIDs(ctx context.Context, tenantID string) ([]string, error)
	// CreateMonitoringUser inserts the user unless the email already exists
	// and reports whether a row was created.
	CreateMonitoringUser(ctx context.Context, u NewMonitoringUser) (bool, error)
	// ApplyOnboardingUpdates runs in a single transaction.
	ApplyOnboardingUpdates(ctx context.Context, domain string) (UpdateResult, error)
}

// GraphStore is the per-environment graph database.
type GraphStore interface {
	// MergeTenantNode upserts the tenant node keyed by tenant identifier.
	MergeTenantNode(ctx context.Context, t Tenant) (MergeResult, error)
}

// Environments opens database clients per environment on first use and
// keeps them for the rest of the run.
type Environments interface {
	Relational(ctx context.Context, env string) (RelationalStore, error)
	Graph(ctx context.Context, env string) (GraphStore, error)
	CloseAll(ctx context.Context) error
}

// Progress is the durable step ledger. *progress.Store implements it.
type Progress interface {
	IsStepDone(key, env string, step int) bool
	MarkStepDone(key, env string, step int)
	CachedValue(key, env, name string, dst any) bool
	SetCachedValue(key, env, name string, value any) error
	IsEnvironmentComplete(key, env string) bool
	MarkEnvironmentComplete(key, env string)
	IsTicketComplete(key string, required []string) bool
	IsTicketFinalized(key string) bool
	MarkTicketComplete(key string)
	TicketSecret(key string) (string, bool)
	SetTicketSecret(key, secret string)
}

// RuleStyle selects how a horizontal status rule is rendered.
type RuleStyle int

// Rule styles.
const (
	RuleHeading RuleStyle = iota
	RuleEnvironment
	RuleDone
	RuleSkipped
	RuleFailed
)

// StatusKind selects the marker of a one-line status message.
type StatusKind int

// Status kinds.
const (
	StatusOK StatusKind = iota
	StatusWarn
	StatusFail
)

// Prompt is a step preview awaiting operator approval.
type Prompt struct {
	Step    int
	Total   int
	Title   string
	Env     string
	Syntax  string // "sql", "cypher" or "" for plain text
	Preview string
}

// UI is the operator terminal. Confirm blocks until the operator answers.
type UI interface {
	TicketHeader(t Ticket)
	Rule(style RuleStyle, text string)
	Status(kind StatusKind, text string)
	ShowCredentials(email, password string, fromPreviousRun bool)
	Confirm(ctx context.Context, p Prompt) (bool, error)
}
