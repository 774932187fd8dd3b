package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Global holds the settings shared by every environment.
type Global struct {
	JiraURL              string
	JiraUsername         string
	JiraAPIToken         string
	JiraIssueType        string
	JiraPendingStatus    string
	JiraInProgressStatus string
	JiraDoneStatus       string
	JiraEnvironmentField string

	AzureOpenAIKey        string
	AzureOpenAIEndpoint   string
	AzureOpenAIDeployment string
	AzureOpenAIAPIVersion string

	OnboardVendor    string
	APITimeout       time.Duration
	OnboardJWTSecret string

	GitHubToken   string
	GitHubRepo    string
	GitLabToken   string
	GitLabURL     string
	GitLabProject string
}

// EnvDB holds one environment's database settings.
type EnvDB struct {
	Env string

	PGHost     string
	PGPort     int
	PGDBName   string
	PGUser     string
	PGPassword string
	PGSSLMode  string

	Neo4jHost     string
	Neo4jPort     int
	Neo4jUser     string
	Neo4jPassword string
	Neo4jDatabase string
}


// reader collects the first error while reading keys of one scope.
type reader struct {
	ctx context.Context
	get func(ctx context.Context, key string) (string, bool, error)
	env string
	err error
}

func (r *reader) value(key string) string {
	if r.err != nil {
		return ""
	}
	v, _, err := r.get(r.ctx, key)
	if err != nil {
		r.err = err
		return ""
	}
	return strings.TrimSpace(v)
}

func (r *reader) need(key string) string {
	v := r.value(key)
	if v == "" && r.err == nil {
		r.err = &MissingKeyError{Key: key, Env: r.env}
	}
	return v
}

func (r *reader) opt(key, def string) string {
	if v := r.value(key); v != "" {
		return v
	}
	return def
}

func (r *reader) number(key string, def int) int {
	raw := r.opt(key, strconv.Itoa(def))
	n, err := strconv.Atoi(raw)
	if err != nil && r.err == nil {
		r.err = fmt.Errorf("%w: %s=%q is not a number", ErrInvalidValue, key, raw)
	}
	return n
}

// Tracker names.
const (
	TrackerJira   = "jira"
	TrackerGitHub = "github"
	TrackerGitLab = "gitlab"
)

// LoadGlobal reads the global settings. Keys required by every run (the
// extractor) and by tracker are checked; the others fall back to defaults.
func LoadGlobal(ctx context.Context, s *Store, tracker string) (Global, error) {
	r := &reader{ctx: ctx, get: s.Global}

	var g Global
	switch tracker {
	case TrackerJira, "":
		g.JiraURL = r.need("JIRA_URL")
		g.JiraUsername = r.need("JIRA_USERNAME")
		g.JiraAPIToken = r.need("JIRA_API_TOKEN")
	case TrackerGitHub:
		g.GitHubToken = r.need("GITHUB_TOKEN")
		g.GitHubRepo = r.need("GITHUB_REPO")
	case TrackerGitLab:
		g.GitLabToken = r.need("GITLAB_TOKEN")
		g.GitLabProject = r.need("GITLAB_PROJECT")
		g.GitLabURL = r.opt("GITLAB_URL", "")
	default:
		return Global{}, fmt.Errorf("%w: tracker %q (valid: jira, github, gitlab)", ErrInvalidValue, tracker)
	}

	g.JiraIssueType = r.opt("JIRA_ISSUE_TYPE", "Customer Onboard")
	g.JiraPendingStatus = r.opt("JIRA_PENDING_STATUS", "To Do")
	g.JiraInProgressStatus = r.opt("JIRA_IN_PROGRESS_STATUS", "New Tenant")
	g.JiraDoneStatus = r.opt("JIRA_DONE_STATUS", "Tenant Ready")
	g.JiraEnvironmentField = r.opt("JIRA_FIELD_ENVIRONMENT", "customfield_10479")

	g.AzureOpenAIKey = r.need("AZURE_OPENAI_API_KEY")
	g.AzureOpenAIEndpoint = r.need("AZURE_OPENAI_ENDPOINT")
	g.AzureOpenAIDeployment = r.need("AZURE_OPENAI_DEPLOYMENT")
	g.AzureOpenAIAPIVersion = r.opt("AZURE_OPENAI_API_VERSION", "2024-02-01")

	g.OnboardVendor = r.opt("ONBOARD_VENDOR", "microsoft")
	g.APITimeout = time.Duration(r.number("API_TIMEOUT_SECONDS", 30)) * time.Second
	g.OnboardJWTSecret = r.opt("ONBOARD_API_JWT_SECRET", "")

	if r.err != nil {
		return Global{}, r.err
	}
	return g, nil
}

// LoadEnvDB reads the database settings for env.
func LoadEnvDB(ctx context.Context, s *Store, env string) (EnvDB, error) {
	env = strings.TrimSpace(env)
	if _, ok := EnvFiles[env]; !ok {
		return EnvDB{}, fmt.Errorf("%w %q (valid: %s)", ErrUnknownEnvironment, env, strings.Join(Environments(), ", "))
	}

	r := &reader{
		ctx: ctx,
		get: func(ctx context.Context, key string) (string, bool, error) { return s.Env(ctx, env, key) },
		env: env,
	}
	e := EnvDB{
		Env:           env,
		PGHost:        r.need("PG_HOST"),
		PGPort:        r.number("PG_PORT", 5432),
		PGDBName:      r.opt("PG_DBNAME", "quilr_auth"),
		PGUser:        r.need("PG_USER"),
		PGPassword:    r.need("PG_PASSWORD"),
		PGSSLMode:     r.opt("PG_SSLMODE", "require"),
		Neo4jHost:     r.need("NEO4J_HOST"),
		Neo4jPort:     r.number("NEO4J_PORT", 7687),
		Neo4jUser:     r.need("NEO4J_USER"),
		Neo4jPassword: r.need("NEO4J_PASSWORD"),
		Neo4jDatabase: r.opt("NEO4J_DATABASE", "neo4j"),
	}
	if r.err != nil {
		return EnvDB{}, r.err
	}
	return e, nil
}
