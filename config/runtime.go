package config

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"
)

// Runtime keys.
const (
	KeyStateFile     = "state_file"
	KeyConfigDB      = "config_db"
	KeyTracker       = "tracker"
	KeyLogLevel      = "log_level"
	KeyNotifyWebhook = "notify_webhook"
	KeySlackWebhook  = "slack_webhook"
	KeySlackChannel  = "slack_channel"
)

const (
	// EnvPrefix maps runtime keys to environment variables: state_file is
	// read from QONBOARD_STATE_FILE.
	EnvPrefix = "QONBOARD_"

	// AppDir is the directory under ~/.config holding config.yaml.
	AppDir = "qonboard"

	// LocalConfigName is the per-repository override file in the git root.
	LocalConfigName = ".qonboard.yaml"

	// DefaultStateFile is the progress file written in the working directory.
	DefaultStateFile = ".onboard_state.json"
)

// RuntimeKeys lists every key the resolver understands, sorted.
func RuntimeKeys() []string {
	keys := []string{
		KeyStateFile, KeyConfigDB, KeyTracker, KeyLogLevel,
		KeyNotifyWebhook, KeySlackWebhook, KeySlackChannel,
	}
	sort.Strings(keys)
	return keys
}

// DefaultRuntime returns the built-in values.
func DefaultRuntime() map[string]string {
	return map[string]string{
		KeyStateFile:     DefaultStateFile,
		KeyConfigDB:      DefaultDBPath(),
		KeyTracker:       "jira",
		KeyLogLevel:      "info",
		KeyNotifyWebhook: "",
		KeySlackWebhook:  "",
		KeySlackChannel:  "",
	}
}

// Runtime is the typed view of resolved runtime settings.
type Runtime struct {
	StateFile     string
	ConfigDB      string
	Tracker       string
	LogLevel      string
	NotifyWebhook string
	SlackWebhook  string
	SlackChannel  string
}

// Resolver layers runtime settings: defaults < global YAML < local YAML <
// QONBOARD_* environment < flags.
type Resolver struct {
	defaults   map[string]string
	globalPath string
	localPath  string
	errWriter  io.Writer
	getenv     func(string) string

	// Warnings collects non-fatal issues found while resolving.
	Warnings []string
}

// ResolverOption configures a Resolver.
type ResolverOption func(*Resolver)

// WithPaths sets the global and local YAML files explicitly. Empty paths
// disable that layer.
func WithPaths(globalPath, localPath string) ResolverOption {
	return func(r *Resolver) {
		r.globalPath = globalPath
		r.localPath = localPath
	}
}

// WithErrWriter sets where warnings are printed. Nil silences them.
func WithErrWriter(w io.Writer) ResolverOption {
	return func(r *Resolver) { r.errWriter = w }
}

// WithGetenv replaces os.Getenv.
func WithGetenv(fn func(string) string) ResolverOption {
	return func(r *Resolver) { r.getenv = fn }
}

// NewResolver creates a resolver over ~/.config/qonboard/config.yaml and
// .qonboard.yaml in the enclosing git root.
func NewResolver(opts ...ResolverOption) *Resolver {
	r := &Resolver{
		defaults:  DefaultRuntime(),
		errWriter: os.Stderr,
		getenv:    os.Getenv,
	}
	if home, err := os.UserHomeDir(); err == nil {
		r.globalPath = filepath.Join(home, ".config", AppDir, "config.yaml")
	}
	if root := findGitRoot("."); root != "" {
		r.localPath = filepath.Join(root, LocalConfigName)
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// GlobalPath returns the global YAML path.
func (r *Resolver) GlobalPath() string { return r.globalPath }

// LocalPath returns the local YAML path, empty outside a git checkout.
func (r *Resolver) LocalPath() string { return r.localPath }

// Resolved holds merged values and where each came from.
type Resolved struct {
	values  map[string]string
	sources map[string]Source
}

// Get returns the value for key.
func (c *Resolved) Get(key string) string { return c.values[key] }

// Source returns the layer key was resolved from.
func (c *Resolved) Source(key string) Source { return c.sources[key] }

// Runtime returns the typed settings.
func (c *Resolved) Runtime() Runtime {
	return Runtime{
		StateFile:     c.values[KeyStateFile],
		ConfigDB:      c.values[KeyConfigDB],
		Tracker:       strings.ToLower(c.values[KeyTracker]),
		LogLevel:      strings.ToLower(c.values[KeyLogLevel]),
		NotifyWebhook: c.values[KeyNotifyWebhook],
		SlackWebhook:  c.values[KeySlackWebhook],
		SlackChannel:  c.values[KeySlackChannel],
	}
}

// Resolve merges every layer. Non-empty flag values win.
func (r *Resolver) Resolve(flags map[string]string) *Resolved {
	cfg := &Resolved{values: map[string]string{}, sources: map[string]Source{}}

	for k, v := range r.defaults {
		cfg.set(k, v, SourceDefault)
	}
	r.applyFile(cfg, r.globalPath, SourceGlobal)
	r.applyFile(cfg, r.localPath, SourceLocal)

	for k := range r.defaults {
		if v := r.getenv(EnvPrefix + strings.ToUpper(k)); v != "" {
			cfg.set(k, v, SourceEnv)
		}
	}
	for k, v := range flags {
		if v != "" {
			cfg.set(k, v, SourceFlag)
		}
	}
	return cfg
}

func (c *Resolved) set(key, value string, src Source) {
	c.values[key] = value
	c.sources[key] = src
}

func (r *Resolver) applyFile(cfg *Resolved, path string, src Source) {
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return
	}

	var parsed map[string]any
	if err := yaml.Unmarshal(data, &parsed); err != nil {
		r.warn(fmt.Sprintf("could not parse %s: %v", path, err))
		return
	}
	for key, value := range parsed {
		if _, known := r.defaults[key]; !known {
			r.warn(fmt.Sprintf("%s: unknown key %q", path, key))
			continue
		}
		if s := toString(value); s != "" {
			cfg.set(key, s, src)
		}
	}
}

func (r *Resolver) warn(msg string) {
	r.Warnings = append(r.Warnings, msg)
	if r.errWriter != nil {
		fmt.Fprintf(r.errWriter, "Warning: %s\n", msg)
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case string:
		return val
	case bool, int, int64, float64:
		return fmt.Sprint(val)
	default:
		return ""
	}
}

// findGitRoot walks up from startDir looking for a .git directory.
func findGitRoot(startDir string) string {
	dir, err := filepath.Abs(startDir)
	if err != nil {
		return ""
	}
	for {
		if info, err := os.Stat(filepath.Join(dir, ".git")); err == nil && info.IsDir() {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
