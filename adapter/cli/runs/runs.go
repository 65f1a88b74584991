// Package runs implements the "runs" CLI command: list recent solve
// attempts from the audit trail.
package runs

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kilgorjn/patient-scheduling/adapter/cli"
)

var limit int

// Cmd is the "runs" command.
var Cmd = &cobra.Command{
	Use:   "runs",
	Short: "List recent solve runs",
	Long:  `Lists the most recent recorded solve attempts, newest first.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Container == nil {
			return fmt.Errorf("runs requires a wired container; start with a database configured")
		}

		recent, err := app.Container.AuditRepo.ListRecent(cmd.Context(), limit)
		if err != nil {
			return fmt.Errorf("failed to list recent runs: %w", err)
		}

		if len(recent) == 0 {
			fmt.Println("No solve runs recorded yet.")
			return nil
		}

		for _, run := range recent {
			objective := "-"
			if run.Objective != nil {
				objective = fmt.Sprintf("%d", *run.Objective)
			}
			fmt.Printf("%s  %-10s  objective=%-8s  %5dms  %s\n",
				run.CreatedAt.Format("2006-01-02T15:04:05Z07:00"),
				run.Status,
				objective,
				run.SolveTimeMs,
				run.Fingerprint[:12],
			)
		}
		return nil
	},
}

func init() {
	Cmd.Flags().IntVarP(&limit, "limit", "n", 20, "maximum number of runs to show")
}
