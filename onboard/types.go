package onboard

import (
	"fmt"
	"strings"
)

// TotalSteps is the number of steps run for every environment.
const TotalSteps = 5

// Ticket is one unit of onboarding work parsed from the issue tracker.
type Ticket struct {
	Key          string
	Summary      string
	Environments []string
	Users        []User
}

// User is a person to provision. Lastname is a single space when unknown.
type User struct {
	Firstname string
	Lastname  string
	Email     string
}

// FullName joins first and last name.
func (u User) FullName() string {
	return strings.TrimSpace(u.Firstname + " " + u.Lastname)
}

// Tenant is the tenant row for an organization domain. The JSON names are
// the ones persisted in the progress file.
type Tenant struct {
	ID           string `json:"id"`
	SubscriberID string `json:"subscriberid"`
	Name         string `json:"name"`
}

// MonitoringUser is the cached result of creating the monitoring account.
type MonitoringUser struct {
	Email   string `json:"email"`
	Created bool   `json:"created"`
}

// NewMonitoringUser is the row inserted for the monitoring account.
type NewMonitoringUser struct {
	Email        string
	PasswordHash string
	Tenant       Tenant
	RoleIDs      []string
	GroupIDs     []string
}

// UpdateResult reports rows touched by the onboarding updates.
type UpdateResult struct {
	TenantRows     int64
	SubscriberRows int64
}

// MergeResult reports the outcome of merging the tenant graph node.
type MergeResult struct {
	InternalID string
	Created    bool
}

// EmailDomain returns the lowercase domain part of email.
func EmailDomain(email string) (string, error) {
	at := strings.Index(email, "@")
	if at < 0 {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	domain := strings.ToLower(strings.TrimSpace(email[at+1:]))
	if domain == "" {
		return "", fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return domain, nil
}

// MonitoringEmail derives the monitoring account address for an
// organization domain: the domain minus its last label.
func MonitoringEmail(domain string) string {
	label := domain
	if i := strings.LastIndex(domain, "."); i >= 0 {
		label = domain[:i]
	}
	return "monitor+" + label + "@quilr.ai"
}
