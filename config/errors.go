package config

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingKey is wrapped by MissingKeyError.
	ErrMissingKey = errors.New("required config key is missing")

	// ErrUnknownEnvironment is returned for an environment name with no
	// entry in EnvFiles.
	ErrUnknownEnvironment = errors.New("unknown environment")

	// ErrInvalidValue is returned for a value that cannot be parsed.
	ErrInvalidValue = errors.New("invalid config value")
)

// MissingKeyError names a required key that is unset or blank. Env is
// empty for global keys.
type MissingKeyError struct {
	Key string
	Env string
}

func (e *MissingKeyError) Error() string {
	if e.Env == "" {
		return fmt.Sprintf("required config key %q is missing or empty", e.Key)
	}
	return fmt.Sprintf("required config key %q is missing for environment %q", e.Key, e.Env)
}

func (e *MissingKeyError) Unwrap() error { return ErrMissingKey }

// SetCommand is the command that fixes the missing key.
func (e *MissingKeyError) SetCommand() string {
	if e.Env == "" {
		return fmt.Sprintf("qonboard config set %s VALUE", e.Key)
	}
	return fmt.Sprintf("qonboard config set %s VALUE --env %q", e.Key, e.Env)
}
