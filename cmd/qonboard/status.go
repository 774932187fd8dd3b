package main

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/quilr/qonboard/onboard"
	"github.com/quilr/qonboard/progress"
	"github.com/quilr/qonboard/ui"
)

func newStatusCmd(root *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status [TICKET]",
		Short: "Show recorded onboarding progress",
		Long:  "Reads the state file and lists the steps completed per ticket and environment. Nothing is changed.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := setup(cmd, root)
			doc := progress.Open(a.runtime.StateFile, progress.WithLogger(a.logger)).Snapshot()

			var key string
			if len(args) == 1 {
				key = strings.TrimSpace(args[0])
			}

			term := ui.New(cmd.OutOrStdout(), cmd.InOrStdin())
			rows := statusRows(doc, key)
			if len(rows) == 0 {
				if key != "" {
					term.Status(onboard.StatusWarn, fmt.Sprintf("No progress recorded for %s in %s", key, a.runtime.StateFile))
				} else {
					term.Status(onboard.StatusWarn, fmt.Sprintf("No progress recorded in %s", a.runtime.StateFile))
				}
				return nil
			}
			term.Table("Progress", []string{"Ticket", "Environment", "Steps", "Env done", "Started", "Completed"}, rows)
			return nil
		},
	}
}

// statusRows lists one row per (ticket, environment), sorted by ticket then
// environment. A ticket without environments gets a single row.
func statusRows(doc *progress.Document, key string) [][]string {
	keys := make([]string, 0, len(doc.Tickets))
	for k := range doc.Tickets {
		if key == "" || strings.EqualFold(k, key) {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	var rows [][]string
	for _, k := range keys {
		t := doc.Tickets[k]
		started := formatTime(&t.StartedAt)
		completed := "no"
		if t.Completed {
			completed = formatTime(t.CompletedAt)
		}

		envs := make([]string, 0, len(t.Environments))
		for env := range t.Environments {
			envs = append(envs, env)
		}
		sort.Strings(envs)

		if len(envs) == 0 {
			rows = append(rows, []string{k, "-", "-", "-", started, completed})
			continue
		}
		for _, env := range envs {
			e := t.Environments[env]
			envDone := "no"
			if e.Completed {
				envDone = "yes"
			}
			rows = append(rows, []string{k, env, formatSteps(e.StepsDone), envDone, started, completed})
		}
	}
	return rows
}

// formatSteps renders done ordinals as "1,2,3/5".
func formatSteps(steps []int) string {
	sorted := append([]int(nil), steps...)
	sort.Ints(sorted)
	parts := make([]string, len(sorted))
	for i, s := range sorted {
		parts[i] = strconv.Itoa(s)
	}
	if len(parts) == 0 {
		parts = []string{"-"}
	}
	return strings.Join(parts, ",") + "/" + strconv.Itoa(onboard.TotalSteps)
}

func formatTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return "-"
	}
	return t.Local().Format("2006-01-02 15:04")
}
