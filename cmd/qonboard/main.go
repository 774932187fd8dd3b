// Command qonboard onboards customer tenants from tracker tickets, one
// operator-approved step at a time. Progress is saved after every step so
// an interrupted run resumes where it stopped.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	qerrors "github.com/quilr/qonboard/errors"
)

// Set at build time via ldflags.
var (
	version = "dev"
	commit  = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := execute(ctx, os.Args[1:], os.Stdin, os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

// execute runs the CLI and returns the process exit code.
func execute(ctx context.Context, args []string, in io.Reader, out, errOut io.Writer) int {
	root := newRootCmd()
	root.SetArgs(args)
	root.SetIn(in)
	root.SetOut(out)
	root.SetErr(errOut)

	if err := root.ExecuteContext(ctx); err != nil {
		printError(errOut, err)
		return 1
	}
	return 0
}

func printError(w io.Writer, err error) {
	var cliErr *qerrors.CLIError
	switch {
	case errors.As(err, &cliErr):
		fmt.Fprintf(w, "Error: %s\n", cliErr.Error())
	case errors.Is(err, context.Canceled):
		fmt.Fprintln(w, "Interrupted. Progress is saved; run again to resume.")
	default:
		fmt.Fprintf(w, "Error: %v\n", err)
	}
}

type rootOptions struct {
	all       bool
	stateFile string
	configDB  string
	tracker   string
	debug     bool
}

// flags returns the runtime overrides given on the command line.
func (o *rootOptions) flags() map[string]string {
	m := map[string]string{
		"state_file": o.stateFile,
		"config_db":  o.configDB,
		"tracker":    o.tracker,
	}
	if o.debug {
		m["log_level"] = "debug"
	}
	return m
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "qonboard [TICKET]",
		Short: "Onboard customer tenants from tracker tickets",
		Long: `qonboard reads Customer Onboard tickets and, for each target environment,
runs five steps: provision users, fetch the tenant, create the monitoring
user, apply the onboarding updates and merge the tenant graph node.

Every step is previewed and needs approval. Completed steps are recorded in
the state file and never repeated.`,
		Version:       fmt.Sprintf("%s (%s)", version, commit),
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOnboard(cmd, args, opts)
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVar(&opts.stateFile, "state-file", "", "Progress file (default .onboard_state.json)")
	pf.StringVar(&opts.configDB, "config-db", "", "Config database path")
	pf.StringVar(&opts.tracker, "tracker", "", "Ticket source: jira, github or gitlab")
	pf.BoolVar(&opts.debug, "debug", false, "Enable debug logging")
	cmd.Flags().BoolVar(&opts.all, "all", false, "Process every pending ticket without prompting")

	cmd.AddCommand(newConfigCmd(opts), newStatusCmd(opts))
	return cmd
}
