package postgres

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/url"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/quilr/qonboard/onboard"
)

// Config is the connection target for one environment's identity database.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

// ConnString renders cfg as a postgres:// URL.
func (c Config) ConnString() string {
	port := c.Port
	if port == 0 {
		port = 5432
	}
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(c.User, c.Password),
		Host:   net.JoinHostPort(c.Host, strconv.Itoa(port)),
		Path:   "/" + c.Database,
	}
	if c.SSLMode != "" {
		u.RawQuery = url.Values{"sslmode": {c.SSLMode}}.Encode()
	}
	return u.String()
}

// conn is the subset of *pgx.Conn the store uses.
type conn interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	Begin(ctx context.Context) (pgx.Tx, error)
	Close(ctx context.Context) error
}

// Store implements onboard.RelationalStore over a single connection. It is
// not safe for concurrent use.
type Store struct {
	conn   conn
	env    string
	logger *slog.Logger
}

var _ onboard.RelationalStore = (*Store)(nil)

// Open connects to the database described by cfg.
func Open(ctx context.Context, env string, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c, err := pgx.Connect(ctx, cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect to postgres %s:%d/%s: %w", cfg.Host, cfg.Port, cfg.Database, err)
	}
	logger.Info("connected to postgres", "env", env, "host", cfg.Host, "db", cfg.Database)
	return &Store{conn: c, env: env, logger: logger}, nil
}

// Close closes the connection.
func (s *Store) Close(ctx context.Context) error {
	return s.conn.Close(ctx)
}

// GetUserAccountType returns the account type of the user with email.
func (s *Store) GetUserAccountType(ctx context.Context, email string) (string, bool, error) {
	var accountType *string
	err := s.conn.QueryRow(ctx, queryAccountType, email).Scan(&accountType)
	if errors.Is(err, pgx.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("look up account type for %s: %w", email, err)
	}
	if accountType == nil {
		return "", true, nil
	}
	return *accountType, true, nil
}

// GetTenant fetches the tenant whose name is domain.
func (s *Store) GetTenant(ctx context.Context, domain string) (onboard.Tenant, error) {
	var t onboard.Tenant
	err := s.conn.QueryRow(ctx, queryTenant, domain).Scan(&t.ID, &t.SubscriberID, &t.Name)
	if errors.Is(err, pgx.ErrNoRows) {
		return onboard.Tenant{}, fmt.Errorf("%w: no tenant named %q", onboard.ErrTenantNotFound, domain)
	}
	if err != nil {
		return onboard.Tenant{}, fmt.Errorf("fetch tenant %s: %w", domain, err)
	}
	return t, nil
}

// GetTenantRoleIDs returns the live role ids of a tenant.
func (s *Store) GetTenantRoleIDs(ctx context.Context, tenantID string) ([]string, error) {
	return s.ids(ctx, queryRoleIDs, tenantID, "roles")
}

// GetTenantGroupIDs returns the live group ids of a tenant.
func (s *Store) GetTenantGroupIDs(ctx context.Context, tenantID string) ([]string, error) {
	return s.ids(ctx, queryGroupIDs, tenantID, "groups")
}

func (s *Store) ids(ctx context.Context, query, tenantID, what string) ([]string, error) {
	rows, err := s.conn.Query(ctx, query, tenantID)
	if err != nil {
		return nil, fmt.Errorf("list %s of tenant %s: %w", what, tenantID, err)
	}
	ids, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		return nil, fmt.Errorf("list %s of tenant %s: %w", what, tenantID, err)
	}
	return ids, nil
}

// CreateMonitoringUser inserts u unless its email already exists.
func (s *Store) CreateMonitoringUser(ctx context.Context, u onboard.NewMonitoringUser) (created bool, err error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
		}
	}()

	var one int
	switch scanErr := tx.QueryRow(ctx, queryUserExists, u.Email).Scan(&one); {
	case scanErr == nil:
		s.logger.Info("monitoring user already exists", "env", s.env, "email", u.Email)
		return false, tx.Rollback(ctx)
	case !errors.Is(scanErr, pgx.ErrNoRows):
		return false, fmt.Errorf("check monitoring user %s: %w", u.Email, scanErr)
	}

	roleIDs := nonNil(u.RoleIDs)
	groupIDs := nonNil(u.GroupIDs)
	if _, err = tx.Exec(ctx, insertMonitoringUser,
		u.Email, u.Email, u.PasswordHash,
		u.Tenant.SubscriberID, []string{u.Tenant.ID}, roleIDs, groupIDs,
	); err != nil {
		return false, fmt.Errorf("insert monitoring user %s: %w", u.Email, err)
	}
	if err = tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit monitoring user %s: %w", u.Email, err)
	}

	s.logger.Info("monitoring user created", "env", s.env, "email", u.Email)
	return true, nil
}

// ApplyOnboardingUpdates enables the tenant license and marks the
// subscriber onboarded in one transaction.
func (s *Store) ApplyOnboardingUpdates(ctx context.Context, domain string) (res onboard.UpdateResult, err error) {
	tx, err := s.conn.Begin(ctx)
	if err != nil {
		return res, fmt.Errorf("begin: %w", err)
	}
	defer func() {
		if err != nil {
			_ = tx.Rollback(ctx)
			s.logger.Warn("onboarding updates rolled back", "env", s.env, "domain", domain)
		}
	}()

	tag, err := tx.Exec(ctx, updateTenantLicense, LicenseConfig, domain)
	if err != nil {
		return res, fmt.Errorf("update tenant %s: %w", domain, err)
	}
	res.TenantRows = tag.RowsAffected()
	s.logger.Info("tenant updated", "env", s.env, "domain", domain, "rows", res.TenantRows)

	tag, err = tx.Exec(ctx, updateSubscriber, domain)
	if err != nil {
		return res, fmt.Errorf("update subscriber %s: %w", domain, err)
	}
	res.SubscriberRows = tag.RowsAffected()
	s.logger.Info("subscriber updated", "env", s.env, "domain", domain, "rows", res.SubscriberRows)

	if err = tx.Commit(ctx); err != nil {
		return res, fmt.Errorf("commit onboarding updates for %s: %w", domain, err)
	}
	return res, nil
}

func nonNil(ids []string) []string {
	if ids == nil {
		return []string{}
	}
	return ids
}
