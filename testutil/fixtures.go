// Package testutil holds in-memory doubles for the onboarding ports and
// small helpers for fixtures and contexts.
package testutil

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

// LoadFixture reads testdata/path relative to the test's package.
func LoadFixture(t *testing.T, path string) []byte {
	t.Helper()

	data, err := os.ReadFile(filepath.Join("testdata", path))
	if err != nil {
		t.Fatalf("load fixture %s: %v", path, err)
	}
	return data
}

// LoadJSONFixture reads testdata/path and decodes it into T.
func LoadJSONFixture[T any](t *testing.T, path string) T {
	t.Helper()

	var v T
	if err := json.Unmarshal(LoadFixture(t, path), &v); err != nil {
		t.Fatalf("decode fixture %s: %v", path, err)
	}
	return v
}

// TempFile writes content to name inside a fresh temp dir and returns the
// path.
func TempFile(t *testing.T, name string, content []byte) string {
	t.Helper()

	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, content, 0o600); err != nil {
		t.Fatalf("write temp file %s: %v", name, err)
	}
	return path
}
