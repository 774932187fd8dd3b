package config

import (
	"os"
	"path/filepath"
	"runtime"
)

// dataDirName is the per-user directory holding config.db.
const dataDirName = "QOnboard"

// UserDataDir returns the per-user data directory: %APPDATA% on Windows,
// ~/Library/Application Support on macOS, $XDG_DATA_HOME or
// ~/.local/share elsewhere.
func UserDataDir() string {
	home, _ := os.UserHomeDir()

	var base string
	switch runtime.GOOS {
	case "windows":
		base = os.Getenv("APPDATA")
		if base == "" {
			base = filepath.Join(home, "AppData", "Roaming")
		}
	case "darwin":
		base = filepath.Join(home, "Library", "Application Support")
	default:
		base = os.Getenv("XDG_DATA_HOME")
		if base == "" {
			base = filepath.Join(home, ".local", "share")
		}
	}
	return filepath.Join(base, dataDirName)
}

// DefaultDBPath is the config store location.
func DefaultDBPath() string {
	return filepath.Join(UserDataDir(), "config.db")
}
