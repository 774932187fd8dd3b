package tracker

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/quilr/qonboard/onboard"
)

// Extractor turns a ticket description into the users to onboard.
// *extract.Extractor implements it.
type Extractor interface {
	Extract(ctx context.Context, description string) ([]onboard.User, error)
}

// Label conventions shared by the GitHub and GitLab sources.
const (
	LabelPending    = "onboard:pending"
	LabelInProgress = "onboard:in-progress"
	LabelDone       = "onboard:done"
	LabelEnvPrefix  = "env:"
)

// Compile-time interface checks.
var (
	_ onboard.TicketSource = (*Jira)(nil)
	_ onboard.TicketSource = (*GitHub)(nil)
	_ onboard.TicketSource = (*GitLab)(nil)
)

// rawTicket is the tracker-neutral shape parsed into an onboard.Ticket.
type rawTicket struct {
	key         string
	summary     string
	environment string
	description string
}

// parse validates raw and extracts its users. It returns nil when the
// ticket should be skipped; the reason is logged.
func parse(ctx context.Context, raw rawTicket, extractor Extractor, logger *slog.Logger) *onboard.Ticket {
	log := logger.With("ticket", raw.key)

	env := strings.TrimSpace(raw.environment)
	if env == "" {
		log.Warn("ticket skipped, environment is missing")
		return nil
	}

	description := strings.TrimSpace(raw.description)
	if description == "" {
		log.Warn("ticket skipped, description is blank")
		return nil
	}
	log.Debug("ticket description", "text", description)

	users, err := extractor.Extract(ctx, description)
	if err != nil {
		log.Warn("ticket skipped, extraction failed", "error", err)
		return nil
	}

	log.Info("users extracted", "count", len(users), "env", env)
	return &onboard.Ticket{
		Key:          raw.key,
		Summary:      raw.summary,
		Environments: []string{env},
		Users:        users,
	}
}

// envFromLabels returns the environment named by the first env:NAME label.
func envFromLabels(labels []string) string {
	for _, l := range labels {
		if name, ok := strings.CutPrefix(l, LabelEnvPrefix); ok {
			return strings.TrimSpace(name)
		}
	}
	return ""
}

// parseIssueNumber accepts "42" or "#42".
func parseIssueNumber(key string) (int, error) {
	n, err := strconv.Atoi(strings.TrimPrefix(strings.TrimSpace(key), "#"))
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("invalid issue number %q", key)
	}
	return n, nil
}
