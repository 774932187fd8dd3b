// Package notify reports onboarding milestones outside the terminal.
//
// New always logs events through slog and can additionally post them to a
// generic JSON webhook and a Slack incoming webhook. Delivery failures are
// returned to the caller, which logs them and carries on.
package notify
