package config

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/pressly/goose/v3"
	_ "modernc.org/sqlite" // registers the "sqlite" driver
)

//go:embed migrations/*.sql
var migrations embed.FS

// GlobalEnvFile holds the global keys ingested on first use.
const GlobalEnvFile = ".env"

// EnvFiles maps each environment to the dotenv file holding its database
// credentials. UAE POC and UAE PROD share infrastructure and a file.
var EnvFiles = map[string]string{
	"UAE POC":  ".env_uae",
	"UAE PROD": ".env_uae",
	"IND POC":  ".env_ind",
	"IND PROD": ".env_ind_prod",
	"USA POC":  ".env_us",
	"USA PROD": ".env_us_prod",
}

// Environments returns the known environment names, sorted.
func Environments() []string {
	names := make([]string, 0, len(EnvFiles))
	for name := range EnvFiles {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Entry is one stored key. Env is empty for global keys.
type Entry struct {
	Env       string
	Key       string
	Value     string
	UpdatedAt string
}

// IngestResult counts keys written per scope.
type IngestResult struct {
	Global int
	Env    map[string]int
}

// Store is the SQLite-backed key/value store for global and
// per-environment settings.
type Store struct {
	db        *sql.DB
	path      string
	ingestDir string
	ingest    bool
	logger    *slog.Logger
}

// StoreOption configures a Store.
type StoreOption func(*Store)

// WithStoreLogger sets the logger.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithIngestDir sets the directory dotenv files are read from. Defaults to
// the working directory.
func WithIngestDir(dir string) StoreOption {
	return func(s *Store) { s.ingestDir = dir }
}

// WithoutAutoIngest disables ingestion when the store is empty.
func WithoutAutoIngest() StoreOption {
	return func(s *Store) { s.ingest = false }
}

// OpenStore opens (creating if needed) the store at path and applies
// pending migrations. An empty store is populated from dotenv files.
func OpenStore(ctx context.Context, path string, opts ...StoreOption) (*Store, error) {
	s := &Store{path: path, ingestDir: ".", ingest: true, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return nil, fmt.Errorf("create config directory: %w", err)
	}
	db, err := sql.Open("sqlite", path+"?_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open config store %s: %w", path, err)
	}
	db.SetMaxOpenConns(1)
	s.db = db

	if err := s.migrate(ctx); err != nil {
		db.Close()
		return nil, err
	}
	s.logger.Debug("config store opened", "path", path)

	if s.ingest {
		empty, err := s.empty(ctx)
		if err != nil {
			db.Close()
			return nil, err
		}
		if empty {
			s.logger.Info("config store is empty, ingesting dotenv files", "dir", s.ingestDir)
			if _, err := s.Ingest(ctx, false); err != nil {
				db.Close()
				return nil, err
			}
		}
	}
	return s, nil
}

func (s *Store) migrate(ctx context.Context) error {
	fsys, err := fs.Sub(migrations, "migrations")
	if err != nil {
		return err
	}
	provider, err := goose.NewProvider(goose.DialectSQLite3, s.db, fsys)
	if err != nil {
		return fmt.Errorf("configure migrations: %w", err)
	}
	results, err := provider.Up(ctx)
	if err != nil {
		return fmt.Errorf("apply migrations: %w", err)
	}
	for _, r := range results {
		s.logger.Debug("migration applied", "version", r.Source.Version, "path", r.Source.Path)
	}
	return nil
}

// Path returns the database file path.
func (s *Store) Path() string { return s.path }

// Close closes the database.
func (s *Store) Close() error { return s.db.Close() }

func (s *Store) empty(ctx context.Context) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx,
		`SELECT (SELECT COUNT(*) FROM global_config) + (SELECT COUNT(*) FROM env_config)`).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("count config rows: %w", err)
	}
	return n == 0, nil
}

// Global returns a global value and whether it is set.
func (s *Store) Global(ctx context.Context, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM global_config WHERE key = ?`, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s: %w", key, err)
	}
	return v, true, nil
}

// SetGlobal upserts a global value.
func (s *Store) SetGlobal(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `INSERT INTO global_config (key, value, updated_at)
		VALUES (?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		key, value)
	if err != nil {
		return fmt.Errorf("set %s: %w", key, err)
	}
	s.logger.Debug("global config set", "key", key)
	return nil
}

// Env returns an environment value and whether it is set.
func (s *Store) Env(ctx context.Context, env, key string) (string, bool, error) {
	var v string
	err := s.db.QueryRowContext(ctx,
		`SELECT value FROM env_config WHERE env_name = ? AND key = ?`, env, key).Scan(&v)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read %s/%s: %w", env, key, err)
	}
	return v, true, nil
}

// SetEnv upserts an environment value. Unknown environments are rejected.
func (s *Store) SetEnv(ctx context.Context, env, key, value string) error {
	if _, ok := EnvFiles[env]; !ok {
		return fmt.Errorf("%w %q (valid: %s)", ErrUnknownEnvironment, env, strings.Join(Environments(), ", "))
	}
	_, err := s.db.ExecContext(ctx, `INSERT INTO env_config (env_name, key, value, updated_at)
		VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%SZ', 'now'))
		ON CONFLICT(env_name, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`,
		env, key, value)
	if err != nil {
		return fmt.Errorf("set %s/%s: %w", env, key, err)
	}
	s.logger.Debug("env config set", "env", env, "key", key)
	return nil
}

// ListGlobal returns every global key ordered by key.
func (s *Store) ListGlobal(ctx context.Context) ([]Entry, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value, updated_at FROM global_config ORDER BY key`)
	if err != nil {
		return nil, fmt.Errorf("list global config: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// ListEnv returns environment keys for env, or for every environment when
// env is empty, ordered by environment then key.
func (s *Store) ListEnv(ctx context.Context, env string) ([]Entry, error) {
	query := `SELECT env_name, key, value, updated_at FROM env_config`
	var args []any
	if env != "" {
		query += ` WHERE env_name = ?`
		args = append(args, env)
	}
	query += ` ORDER BY env_name, key`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list env config: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.Env, &e.Key, &e.Value, &e.UpdatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
