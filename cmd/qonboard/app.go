package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quilr/qonboard/config"
	qerrors "github.com/quilr/qonboard/errors"
)

// app is the per-invocation state shared by every command.
type app struct {
	resolver *config.Resolver
	runtime  config.Runtime
	logger   *slog.Logger
	store    *config.Store
}

// setup resolves runtime settings and installs the logger. It does not
// touch the config database.
func setup(cmd *cobra.Command, opts *rootOptions) *app {
	resolver := config.NewResolver(config.WithErrWriter(cmd.ErrOrStderr()))
	rt := resolver.Resolve(opts.flags()).Runtime()

	logger := newLogger(cmd.ErrOrStderr(), rt.LogLevel)
	slog.SetDefault(logger)
	logger.Debug("runtime resolved", "state_file", rt.StateFile, "config_db", rt.ConfigDB, "tracker", rt.Tracker)

	return &app{resolver: resolver, runtime: rt, logger: logger}
}

// openStore opens the config database.
func (a *app) openStore(ctx context.Context, opts ...config.StoreOption) error {
	opts = append([]config.StoreOption{config.WithStoreLogger(a.logger)}, opts...)
	store, err := config.OpenStore(ctx, a.runtime.ConfigDB, opts...)
	if err != nil {
		return &qerrors.CLIError{
			Err:        err,
			Message:    fmt.Sprintf("Cannot open config database %s", a.runtime.ConfigDB),
			Suggestion: "Check the path, or set another with --config-db.",
		}
	}
	a.store = store
	return nil
}

func (a *app) close() {
	if a.store == nil {
		return
	}
	if err := a.store.Close(); err != nil {
		a.logger.Warn("could not close config database", "error", err)
	}
}

func newLogger(w io.Writer, level string) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: parseLevel(level)}))
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
