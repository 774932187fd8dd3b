package graphdb

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/quilr/qonboard/onboard"
)

// MergeTenantCypher upserts the TENANT node for a tenant.
const MergeTenantCypher = `MERGE (TENANT_0:TENANT {
    id:         $TENANT_0_id,
    subscriber: $TENANT_0_subscriber,
    tenant:     $TENANT_0_tenant
})
ON CREATE SET
    TENANT_0.creationTime = $TENANT_0_creationTime,
    TENANT_0.subscriber   = $TENANT_0_subscriber,
    TENANT_0.tenant       = $TENANT_0_tenant,
    TENANT_0.internalId   = randomUUID(),
    TENANT_0.new          = true,
    TENANT_0.timestamp    = timestamp()
ON MATCH SET
    TENANT_0.subscriber   = $TENANT_0_subscriber,
    TENANT_0.tenant       = $TENANT_0_tenant,
    TENANT_0.new          = false,
    TENANT_0.timestamp    = timestamp()
RETURN TENANT_0.internalId AS internalId, TENANT_0.new AS isNew`

// Config is the Neo4j target for one environment.
type Config struct {
	Host     string
	Port     int
	User     string
	Password string
	Database string
}

// URI returns the bolt URI for cfg.
func (c Config) URI() string {
	port := c.Port
	if port == 0 {
		port = 7687
	}
	return "bolt://" + net.JoinHostPort(c.Host, strconv.Itoa(port))
}

// Store implements onboard.GraphStore.
type Store struct {
	driver   neo4j.DriverWithContext
	database string
	env      string
	logger   *slog.Logger
	now      func() time.Time
}

var _ onboard.GraphStore = (*Store)(nil)

// Open creates a driver for cfg. The connection is established lazily on
// the first query.
func Open(env string, cfg Config, logger *slog.Logger) (*Store, error) {
	if logger == nil {
		logger = slog.Default()
	}
	driver, err := neo4j.NewDriverWithContext(cfg.URI(), neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("create neo4j driver for %s: %w", cfg.URI(), err)
	}
	logger.Info("neo4j driver initialised", "env", env, "uri", cfg.URI())
	return &Store{driver: driver, database: cfg.Database, env: env, logger: logger, now: time.Now}, nil
}

// Close closes the driver.
func (s *Store) Close(ctx context.Context) error {
	return s.driver.Close(ctx)
}

// MergeTenantNode upserts the TENANT node for t.
func (s *Store) MergeTenantNode(ctx context.Context, t onboard.Tenant) (onboard.MergeResult, error) {
	session := s.driver.NewSession(ctx, neo4j.SessionConfig{
		AccessMode:   neo4j.AccessModeWrite,
		DatabaseName: s.database,
	})
	defer session.Close(ctx)

	out, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		res, err := tx.Run(ctx, MergeTenantCypher, MergeParams(t, s.now()))
		if err != nil {
			return nil, err
		}
		rec, err := res.Single(ctx)
		if err != nil {
			return nil, err
		}
		return decodeMerge(rec)
	})
	if err != nil {
		return onboard.MergeResult{}, fmt.Errorf("merge tenant node %s: %w", t.ID, err)
	}

	result := out.(onboard.MergeResult)
	action := "MATCHED"
	if result.Created {
		action = "CREATED"
	}
	s.logger.Info("tenant node "+action, "env", s.env, "tenant", t.Name, "internal_id", result.InternalID)
	return result, nil
}

// MergeParams builds the query parameters for t. The node's tenant
// property is the tenant id.
func MergeParams(t onboard.Tenant, now time.Time) map[string]any {
	return map[string]any{
		"TENANT_0_id":           t.ID,
		"TENANT_0_subscriber":   t.SubscriberID,
		"TENANT_0_tenant":       t.ID,
		"TENANT_0_creationTime": now.UTC().Format(time.RFC3339),
	}
}

func decodeMerge(rec *neo4j.Record) (onboard.MergeResult, error) {
	id, _, err := neo4j.GetRecordValue[string](rec, "internalId")
	if err != nil {
		return onboard.MergeResult{}, fmt.Errorf("read internalId: %w", err)
	}
	isNew, _, err := neo4j.GetRecordValue[bool](rec, "isNew")
	if err != nil {
		return onboard.MergeResult{}, fmt.Errorf("read isNew: %w", err)
	}
	return onboard.MergeResult{InternalID: id, Created: isNew}, nil
}
