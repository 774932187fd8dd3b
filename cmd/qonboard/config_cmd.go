package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/quilr/qonboard/config"
	qerrors "github.com/quilr/qonboard/errors"
	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/ui"
)

func newConfigCmd(root *rootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show and edit stored configuration",
		Long: `Global keys (Jira, Azure OpenAI, onboarding API) and per-environment
database keys live in a local SQLite database. On first use it is filled
from .env and the .env_* files in the working directory.`,
	}
	cmd.AddCommand(newConfigShowCmd(root), newConfigSetCmd(root), newConfigInitCmd(root))
	return cmd
}

func newConfigShowCmd(root *rootOptions) *cobra.Command {
	var env string
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Show stored keys with secrets masked",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := setup(cmd, root)
			if env != "" {
				if err := checkEnv(env); err != nil {
					return err
				}
			}
			if err := a.openStore(ctx); err != nil {
				return err
			}
			defer a.close()

			term := ui.New(cmd.OutOrStdout(), cmd.InOrStdin())

			if env == "" {
				global, err := a.store.ListGlobal(ctx)
				if err != nil {
					return err
				}
				term.Table("Global", []string{"Key", "Value", "Updated"}, entryRows(global, false))
			}
			entries, err := a.store.ListEnv(ctx, env)
			if err != nil {
				return err
			}
			term.Table("Environments", []string{"Env", "Key", "Value", "Updated"}, entryRows(entries, true))

			if env == "" {
				term.Table("Runtime", []string{"Key", "Value", "Source"}, runtimeRows(a.resolver.Resolve(root.flags())))
			}
			term.Println(fmt.Sprintf("Config database: %s", a.store.Path()))
			term.Println(fmt.Sprintf("Runtime files:   %s", runtimeFiles(a.resolver)))
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "Show one environment only")
	return cmd
}

func newConfigSetCmd(root *rootOptions) *cobra.Command {
	var (
		env     string
		runtime bool
	)
	cmd := &cobra.Command{
		Use:   "set KEY VALUE",
		Short: "Set a global, per-environment or runtime key",
		Example: `  qonboard config set JIRA_API_TOKEN abc123
  qonboard config set PG_HOST db.internal --env "UAE POC"
  qonboard config set tracker github --runtime`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			key, value := strings.TrimSpace(args[0]), args[1]
			a := setup(cmd, root)
			term := ui.New(cmd.OutOrStdout(), cmd.InOrStdin())

			if runtime {
				if env != "" {
					return fmt.Errorf("--runtime and --env cannot be combined")
				}
				if err := config.SaveRuntime(a.resolver.GlobalPath(), key, value); err != nil {
					return err
				}
				term.Status(onboard.StatusOK, fmt.Sprintf("%s saved to %s", key, a.resolver.GlobalPath()))
				return nil
			}

			if env != "" {
				if err := checkEnv(env); err != nil {
					return err
				}
			}
			if err := a.openStore(ctx); err != nil {
				return err
			}
			defer a.close()

			if env != "" {
				if err := a.store.SetEnv(ctx, env, key, value); err != nil {
					return err
				}
				term.Status(onboard.StatusOK, fmt.Sprintf("%s saved for %s", key, env))
				return nil
			}
			if err := a.store.SetGlobal(ctx, key, value); err != nil {
				return err
			}
			term.Status(onboard.StatusOK, fmt.Sprintf("%s saved", key))
			return nil
		},
	}
	cmd.Flags().StringVar(&env, "env", "", "Environment the key belongs to")
	cmd.Flags().BoolVar(&runtime, "runtime", false, "Write a runtime setting to the global YAML file")
	return cmd
}

func newConfigInitCmd(root *rootOptions) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Import keys from .env and .env_* files",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			a := setup(cmd, root)
			if err := a.openStore(ctx, config.WithoutAutoIngest()); err != nil {
				return err
			}
			defer a.close()

			res, err := a.store.Ingest(ctx, force)
			if err != nil {
				return err
			}

			term := ui.New(cmd.OutOrStdout(), cmd.InOrStdin())
			term.Status(onboard.StatusOK, fmt.Sprintf("global: %d key(s) imported", res.Global))
			for _, env := range config.Environments() {
				if n, ok := res.Env[env]; ok {
					term.Status(onboard.StatusOK, fmt.Sprintf("%s: %d key(s) imported", env, n))
				}
			}
			if !force {
				term.Println("Existing keys were kept. Use --force to overwrite them.")
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite keys that already exist")
	return cmd
}

// runtimeFiles lists the YAML files consulted for runtime settings.
func runtimeFiles(r *config.Resolver) string {
	if r.LocalPath() == "" {
		return r.GlobalPath()
	}
	return r.GlobalPath() + ", " + r.LocalPath()
}

func checkEnv(env string) error {
	if _, ok := config.EnvFiles[env]; ok {
		return nil
	}
	return &qerrors.CLIError{
		Err:        fmt.Errorf("%w %q", config.ErrUnknownEnvironment, env),
		Message:    fmt.Sprintf("Unknown environment %q", env),
		Suggestion: "Valid environments: " + strings.Join(config.Environments(), ", "),
	}
}

func entryRows(entries []config.Entry, withEnv bool) [][]string {
	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		row := []string{e.Key, config.Mask(e.Key, e.Value), e.UpdatedAt}
		if withEnv {
			row = append([]string{e.Env}, row...)
		}
		rows = append(rows, row)
	}
	return rows
}

func runtimeRows(r *config.Resolved) [][]string {
	keys := config.RuntimeKeys()
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, config.Mask(k, r.Get(k)), string(r.Source(k))})
	}
	return rows
}
