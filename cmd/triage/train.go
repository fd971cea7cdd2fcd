package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/cognicore/triage/pkg/triage"
	"github.com/cognicore/triage/pkg/triage/report"
)

func newTrainCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "train",
		Short: "Train on the labelled dataset, evaluate on a held-out split and save the model",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}

			res, err := a.triage.TrainFile(cmd.Context(), a.cfg.Dataset.Path)
			if err != nil {
				return err
			}
			printTrainResult(cmd.OutOrStdout(), res)

			if path := a.cfg.Metrics.Textfile; path != "" {
				if err := report.WriteTextfile(path, res.Report, res.Run); err != nil {
					return fmt.Errorf("write metrics textfile: %w", err)
				}
				a.log.Info("wrote metrics textfile", zap.String("path", path))
			}
			return nil
		},
	}

	f := cmd.Flags()
	f.StringP("data", "d", "", "labelled dataset (CSV or JSONL)")
	f.Bool("strip-html", false, "flatten HTML in ticket text")
	f.Uint64("seed", 0, "split seed")
	f.Float64("test-fraction", 0, "held-out share")
	f.String("metrics-textfile", "", "write Prometheus gauges to this file")
	return cmd
}

func printTrainResult(w io.Writer, res *triage.Result) {
	fmt.Fprintln(w, "Dataset distribution")
	report.DistributionTable(w, res.Counts)

	fmt.Fprintf(w, "\nTrained on %d tickets, evaluated on %d\n\n", res.Run.TrainSize, res.Run.TestSize)
	fmt.Fprintln(w, "Classification report")
	report.MetricsTable(w, res.Report)

	fmt.Fprintln(w, "\nConfusion matrix")
	report.ConfusionTable(w, res.Confusion)

	fmt.Fprintln(w, "\nBusiness insights")
	report.WriteInsights(w, res.Report)

	fmt.Fprintf(w, "\nAccuracy %.3f, run %s\n", res.Report.Accuracy, res.Run.ID)
}
