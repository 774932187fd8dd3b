// Package progress persists resumable onboarding state.
//
// Progress is recorded per ticket and, within a ticket, per environment:
//   - the step ordinals completed so far (monotonic, never removed)
//   - cached step outputs such as the resolved tenant and monitoring user
//   - completion flags with timestamps
//
// The ticket-scoped monitoring password lives on the ticket record so every
// environment of one ticket shares it.
//
// Every mutation rewrites the whole file atomically, so a crash between two
// steps leaves the last completed step recorded. A missing or unreadable file
// is treated as empty state.
//
// Example usage:
//
//	store := progress.Open(".onboard_state.json", progress.WithLogger(logger))
//	if !store.IsStepDone("ONB-1", "USA PROD", 2) {
//	    // ... run step 2 ...
//	    store.MarkStepDone("ONB-1", "USA PROD", 2)
//	}
package progress
