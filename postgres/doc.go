// Package postgres is the identity database adapter: tenant lookup,
// monitoring user creation and the onboarding updates, over one pgx
// connection per environment.
package postgres
