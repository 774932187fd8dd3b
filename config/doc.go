// Package config holds qonboard's two configuration layers.
//
// Runtime settings (state file, config database path, tracker, log level,
// notification targets) are resolved from defaults, then
// ~/.config/qonboard/config.yaml, then .qonboard.yaml in the git root,
// then QONBOARD_* environment variables, then flags.
//
// Credentials and endpoints live in a SQLite store under the user data
// directory, with one global scope and one scope per environment. The
// schema is managed by embedded goose migrations. An empty store is filled
// from .env and the per-environment .env_* files in the working directory:
//
//	store, err := config.OpenStore(ctx, config.DefaultDBPath())
//	global, err := config.LoadGlobal(ctx, store, config.TrackerJira)
//	db, err := config.LoadEnvDB(ctx, store, "UAE POC")
//
// A required key that is unset or blank is reported as a *MissingKeyError.
package config
