package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// SaveRuntime writes key=value into the YAML file at path, keeping any
// other keys already there.
func SaveRuntime(path, key, value string) error {
	if path == "" {
		return fmt.Errorf("no runtime config path")
	}
	if _, known := DefaultRuntime()[key]; !known {
		return fmt.Errorf("unknown runtime key %q (valid: %s)", key, strings.Join(RuntimeKeys(), ", "))
	}

	existing := map[string]any{}
	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, &existing); err != nil {
			return fmt.Errorf("parse %s: %w", path, err)
		}
		if existing == nil {
			existing = map[string]any{}
		}
	}
	existing[key] = value

	if err := os.MkdirAll(filepath.Dir(path), 0o700); err != nil {
		return err
	}
	data, err := yaml.Marshal(existing)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}
