// Package integrationtest runs whole onboarding runs against the real
// tracker, extraction, provisioning and progress adapters, with the
// remote services replaced by httptest servers and the databases by
// in-memory doubles.
package integrationtest
