package onboard

import "errors"

var (
	// ErrDomainUnavailable marks an environment without a provisioning
	// endpoint. Steps that need one complete without running.
	ErrDomainUnavailable = errors.New("no provisioning domain for environment")

	// ErrTenantNotFound is returned when no tenant row matches the domain.
	ErrTenantNotFound = errors.New("tenant not found")

	// ErrInvalidEmail is returned for addresses without a domain part.
	ErrInvalidEmail = errors.New("invalid email address")

	// ErrNoUsers is returned for a ticket without user records.
	ErrNoUsers = errors.New("ticket has no users")

	// ErrNoEnvironments is returned for a ticket without environments.
	ErrNoEnvironments = errors.New("ticket has no environments")

	// ErrTicketUnparseable is returned when an explicitly requested ticket
	// cannot be turned into an onboarding ticket.
	ErrTicketUnparseable = errors.New("ticket could not be parsed")
)
