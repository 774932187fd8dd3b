package progress

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"
)

// legacyTicket is the unversioned layout: tickets keyed at the top level and
// step outputs stored as direct environment fields.
type legacyTicket struct {
	StartedAt       string                        `json:"started_at"`
	MonitorPassword *string                       `json:"monitor_password"`
	Environments    map[string]*legacyEnvironment `json:"environments"`
	Completed       bool                          `json:"completed"`
	CompletedAt     *string                       `json:"completed_at"`
}

type legacyEnvironment struct {
	StepsDone      []int           `json:"steps_done"`
	Tenant         json.RawMessage `json:"tenant"`
	MonitoringUser json.RawMessage `json:"monitoring_user"`
	Completed      bool            `json:"completed"`
	CompletedAt    *string         `json:"completed_at"`
}

// decode parses a progress file of any known schema version and returns it
// upgraded to SchemaVersion.
func decode(data []byte, logger *slog.Logger) (*Document, error) {
	var probe map[string]json.RawMessage
	if err := json.Unmarshal(data, &probe); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	rawVersion, versioned := probe["schema_version"]
	if !versioned {
		logger.Info("migrating progress file", "from", 1, "to", SchemaVersion)
		return migrateV1(probe, logger), nil
	}

	var version int
	if err := json.Unmarshal(rawVersion, &version); err != nil {
		return nil, fmt.Errorf("%w: schema_version: %v", ErrCorrupt, err)
	}
	if version > SchemaVersion {
		logger.Warn("progress file written by a newer version, reading known fields only",
			"schema_version", version, "supported", SchemaVersion)
	}

	var raw struct {
		Tickets map[string]json.RawMessage `json:"tickets"`
	}
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	// An unreadable ticket record is dropped; the others are kept.
	doc := newDocument()
	for key, rt := range raw.Tickets {
		var t Ticket
		if err := json.Unmarshal(rt, &t); err != nil {
			logger.Warn("dropping unreadable ticket record", "ticket", key, "error", err)
			continue
		}
		doc.Tickets[key] = &t
	}
	doc.fill()
	return doc, nil
}

func migrateV1(tickets map[string]json.RawMessage, logger *slog.Logger) *Document {
	doc := newDocument()
	for key, raw := range tickets {
		var lt legacyTicket
		if err := json.Unmarshal(raw, &lt); err != nil {
			logger.Warn("dropping unreadable legacy ticket record", "ticket", key, "error", err)
			continue
		}

		t := &Ticket{
			StartedAt:       parseLegacyTime(lt.StartedAt),
			MonitorPassword: lt.MonitorPassword,
			Environments:    make(map[string]*Environment, len(lt.Environments)),
			Completed:       lt.Completed,
			CompletedAt:     parseLegacyTimePtr(lt.CompletedAt),
		}
		for name, le := range lt.Environments {
			env := newEnvironment()
			if le != nil {
				env.StepsDone = append(env.StepsDone, le.StepsDone...)
				env.Completed = le.Completed
				env.CompletedAt = parseLegacyTimePtr(le.CompletedAt)
				if present(le.Tenant) {
					env.Cache[CacheTenant] = le.Tenant
				}
				if present(le.MonitoringUser) {
					env.Cache[CacheMonitoringUser] = le.MonitoringUser
				}
			}
			t.Environments[name] = env
		}
		doc.Tickets[key] = t
	}
	doc.fill()
	return doc
}

func present(raw json.RawMessage) bool {
	return len(raw) > 0 && string(raw) != "null"
}

func parseLegacyTime(s string) time.Time {
	if s == "" {
		return time.Time{}
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t
	}
	// Naive timestamps carry no offset.
	if t, err := time.Parse("2006-01-02T15:04:05.999999", s); err == nil {
		return t.UTC()
	}
	return time.Time{}
}

func parseLegacyTimePtr(s *string) *time.Time {
	if s == nil || *s == "" {
		return nil
	}
	t := parseLegacyTime(*s)
	if t.IsZero() {
		return nil
	}
	return &t
}
