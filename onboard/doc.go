// Package onboard drives tenant onboarding as a resumable state machine.
//
// A run is layered:
//   - Runner resolves the tickets to process and isolates per-ticket failures
//   - Orchestrator processes one ticket across its environments and posts
//     the paused, failed or completed comment
//   - Sequencer runs the five steps of one environment in order
//   - Executor runs one step: skip when recorded, preview, confirm, act, record
//
// Progress is read before and written after every step, so a rerun skips
// recorded steps and resumes at the first unrecorded one. Values a later step
// needs, such as the tenant row, are cached in the progress store by the step
// that produces them.
//
// Example usage:
//
//	runner := onboard.NewRunner(onboard.Deps{
//	    Tickets:      tickets,
//	    Provisioning: provisioning,
//	    Environments: registry,
//	    Progress:     progress.Open(".onboard_state.json"),
//	    UI:           ui.NewTerminal(os.Stdin, os.Stdout),
//	})
//	summary, err := runner.Run(ctx, "OPS-123")
package onboard
