package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cognicore/triage/pkg/triage/report"
)

func newRunsCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "runs",
		Short: "List past training runs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			runs, err := a.triage.ListRuns(cmd.Context(), limit)
			if err != nil {
				return fmt.Errorf("error listing runs: %w", err)
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No training runs found.")
				return nil
			}
			report.RunsTable(cmd.OutOrStdout(), runs)
			return nil
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show")
	return cmd
}
