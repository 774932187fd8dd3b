// Package provision calls the per-environment BFF onboarding endpoint.
//
// Environments map to API hosts; an unknown or unavailable environment
// yields an error wrapping onboard.ErrDomainUnavailable so the onboarding
// step can complete without calling out. When a token secret is
// configured each call carries a short-lived HS256 bearer token whose
// audience is the target host.
package provision
