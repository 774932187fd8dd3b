// Package registry opens database clients per environment on first use
// and keeps them for the rest of the run.
package registry

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/quilr/qonboard/config"
	"github.com/quilr/qonboard/graphdb"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/postgres"
)

// Relational is a relational store that can be closed.
type Relational interface {
	onboard.RelationalStore
	Close(ctx context.Context) error
}

// Graph is a graph store that can be closed.
type Graph interface {
	onboard.GraphStore
	Close(ctx context.Context) error
}

// SettingsFunc loads the database settings for an environment.
type SettingsFunc func(ctx context.Context, env string) (config.EnvDB, error)

// RelationalOpener connects a relational store.
type RelationalOpener func(ctx context.Context, env string, cfg postgres.Config, logger *slog.Logger) (Relational, error)

// GraphOpener creates a graph store.
type GraphOpener func(ctx context.Context, env string, cfg graphdb.Config, logger *slog.Logger) (Graph, error)

// Registry implements onboard.Environments.
type Registry struct {
	mu        sync.Mutex
	settings  SettingsFunc
	openRel   RelationalOpener
	openGraph GraphOpener
	logger    *slog.Logger

	dbs    map[string]config.EnvDB
	rel    map[string]Relational
	graphs map[string]Graph
}

var _ onboard.Environments = (*Registry)(nil)

// Option configures a Registry.
type Option func(*Registry)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(r *Registry) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithRelationalOpener replaces the postgres connector.
func WithRelationalOpener(fn RelationalOpener) Option {
	return func(r *Registry) { r.openRel = fn }
}

// WithGraphOpener replaces the neo4j connector.
func WithGraphOpener(fn GraphOpener) Option {
	return func(r *Registry) { r.openGraph = fn }
}

// New creates a registry reading environment settings with settings.
func New(settings SettingsFunc, opts ...Option) *Registry {
	r := &Registry{
		settings:  settings,
		openRel:   openPostgres,
		openGraph: openGraph,
		logger:    slog.Default(),
		dbs:       make(map[string]config.EnvDB),
		rel:       make(map[string]Relational),
		graphs:    make(map[string]Graph),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// FromStore creates a registry backed by the config store.
func FromStore(store *config.Store, opts ...Option) *Registry {
	return New(func(ctx context.Context, env string) (config.EnvDB, error) {
		return config.LoadEnvDB(ctx, store, env)
	}, opts...)
}

func openPostgres(ctx context.Context, env string, cfg postgres.Config, logger *slog.Logger) (Relational, error) {
	return postgres.Open(ctx, env, cfg, logger)
}

func openGraph(_ context.Context, env string, cfg graphdb.Config, logger *slog.Logger) (Graph, error) {
	return graphdb.Open(env, cfg, logger)
}

// envDB loads and caches settings. Caller holds r.mu.
func (r *Registry) envDB(ctx context.Context, env string) (config.EnvDB, error) {
	if db, ok := r.dbs[env]; ok {
		return db, nil
	}
	db, err := r.settings(ctx, env)
	if err != nil {
		return config.EnvDB{}, err
	}
	r.dbs[env] = db
	return db, nil
}

// Relational returns the postgres store for env, connecting on first use.
func (r *Registry) Relational(ctx context.Context, env string) (onboard.RelationalStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.rel[env]; ok {
		return s, nil
	}
	db, err := r.envDB(ctx, env)
	if err != nil {
		return nil, err
	}
	s, err := r.openRel(ctx, env, postgres.Config{
		Host:     db.PGHost,
		Port:     db.PGPort,
		User:     db.PGUser,
		Password: db.PGPassword,
		Database: db.PGDBName,
		SSLMode:  db.PGSSLMode,
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("open postgres for %s: %w", env, err)
	}
	r.rel[env] = s
	return s, nil
}

// Graph returns the neo4j store for env, creating it on first use.
func (r *Registry) Graph(ctx context.Context, env string) (onboard.GraphStore, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if s, ok := r.graphs[env]; ok {
		return s, nil
	}
	db, err := r.envDB(ctx, env)
	if err != nil {
		return nil, err
	}
	s, err := r.openGraph(ctx, env, graphdb.Config{
		Host:     db.Neo4jHost,
		Port:     db.Neo4jPort,
		User:     db.Neo4jUser,
		Password: db.Neo4jPassword,
		Database: db.Neo4jDatabase,
	}, r.logger)
	if err != nil {
		return nil, fmt.Errorf("open neo4j for %s: %w", env, err)
	}
	r.graphs[env] = s
	return s, nil
}

// CloseAll closes every open client. Every client is attempted; close
// failures are logged and joined.
func (r *Registry) CloseAll(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if envs := r.openEnvs(); len(envs) > 0 {
		r.logger.Debug("closing connections", "envs", envs)
	}

	var errs []error
	for _, env := range sortedKeys(r.rel) {
		if err := r.rel[env].Close(ctx); err != nil {
			r.logger.Warn("close postgres failed", "env", env, "error", err)
			errs = append(errs, fmt.Errorf("close postgres %s: %w", env, err))
		}
	}
	for _, env := range sortedKeys(r.graphs) {
		if err := r.graphs[env].Close(ctx); err != nil {
			r.logger.Warn("close neo4j failed", "env", env, "error", err)
			errs = append(errs, fmt.Errorf("close neo4j %s: %w", env, err))
		}
	}
	clear(r.rel)
	clear(r.graphs)
	return errors.Join(errs...)
}

// openEnvs lists environments with at least one open client. Callers hold r.mu.
func (r *Registry) openEnvs() []string {
	seen := make(map[string]struct{}, len(r.rel)+len(r.graphs))
	for env := range r.rel {
		seen[env] = struct{}{}
	}
	for env := range r.graphs {
		seen[env] = struct{}{}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
