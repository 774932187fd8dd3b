package errors

import "errors"

// Sentinels carried inside CLIError.
var (
	// ErrNotAuthenticated indicates a service rejected the credentials.
	ErrNotAuthenticated = errors.New("not authenticated")

	// ErrConnectionFailed indicates a host is unreachable.
	ErrConnectionFailed = errors.New("connection failed")

	// ErrPermissionDenied indicates the account lacks access.
	ErrPermissionDenied = errors.New("permission denied")

	// ErrTicketsFailed is returned by a run in which a ticket failed.
	ErrTicketsFailed = errors.New("one or more tickets failed")
)
