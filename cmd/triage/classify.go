package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/cognicore/triage/pkg/triage"
	"github.com/cognicore/triage/pkg/triage/report"
)

var demoTickets = []string{
	"My internet is very slow",
	"Gebühren auf meiner Rechnung sind zu hoch",
	"SIM-Karte funktioniert nicht",
	"Ich möchte meinen Vertrag kündigen",
}

type classifyFunc func(ctx context.Context, text string) (triage.Prediction, error)

func newClassifyCmd() *cobra.Command {
	var (
		text      string
		showProba bool
	)

	cmd := &cobra.Command{
		Use:   "classify",
		Short: "Classify tickets with the saved model",
		Long: `Classify one ticket given with --text, or start an interactive session
that shows a few example predictions and then reads tickets from stdin.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return err
			}
			if err := a.triage.Load(cmd.Context()); err != nil {
				return fmt.Errorf("load model (run `triage train` first): %w", err)
			}

			out := cmd.OutOrStdout()
			if text != "" {
				pred, err := a.triage.ClassifyProba(cmd.Context(), text)
				if err != nil {
					return err
				}
				printPrediction(out, text, pred, showProba)
				return nil
			}

			fmt.Fprintln(out, "Example predictions")
			for _, demo := range demoTickets {
				pred, err := a.triage.ClassifyProba(cmd.Context(), demo)
				if err != nil {
					return err
				}
				printPrediction(out, demo, pred, false)
			}
			fmt.Fprintln(out)
			return interactive(cmd.Context(), cmd.InOrStdin(), out, a.triage.ClassifyProba, showProba)
		},
	}

	cmd.Flags().StringVarP(&text, "text", "t", "", "ticket text to classify")
	cmd.Flags().BoolVarP(&showProba, "proba", "p", false, "print class probabilities")
	return cmd
}

func printPrediction(w io.Writer, text string, pred triage.Prediction, proba bool) {
	fmt.Fprintf(w, "%q -> %s\n", text, pred.Category)
	if proba {
		report.ProbabilityTable(w, pred.Classes, pred.Probabilities)
	}
}

// interactive reads tickets until the user declines to continue or input
// ends. Blank tickets are asked for again.
func interactive(ctx context.Context, in io.Reader, out io.Writer, classify classifyFunc, proba bool) error {
	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "Enter a support ticket: ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		text := strings.TrimSpace(scanner.Text())
		if text == "" {
			fmt.Fprintln(out, "Please enter some text.")
			continue
		}

		pred, err := classify(ctx, text)
		if err != nil {
			return err
		}
		printPrediction(out, text, pred, proba)

		fmt.Fprint(out, "Classify another ticket? (y/n): ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}
		if answer := strings.ToLower(strings.TrimSpace(scanner.Text())); answer != "y" && answer != "yes" {
			return nil
		}
	}
}
