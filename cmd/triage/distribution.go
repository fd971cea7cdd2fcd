package main

import (
	"github.com/spf13/cobra"

	"github.com/cognicore/triage/pkg/triage/report"
)

func newDistributionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "distribution",
		Short: "Validate the dataset and show how tickets spread over categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			ds, err := a.comp.Loader.Load(a.cfg.Dataset.Path)
			if err != nil {
				return err
			}
			report.DistributionTable(cmd.OutOrStdout(), ds.Counts())
			return nil
		},
	}

	cmd.Flags().StringP("data", "d", "", "labelled dataset (CSV or JSONL)")
	cmd.Flags().Bool("strip-html", false, "flatten HTML in ticket text")
	return cmd
}
