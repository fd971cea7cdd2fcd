// Package report renders evaluation results for people and for monitoring.
package report

import (
	"fmt"
	"io"
	"sort"
	"strconv"

	"github.com/olekukonko/tablewriter"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/store"
)

func newTable(w io.Writer, header []string) *tablewriter.Table {
	table := tablewriter.NewWriter(w)
	table.SetHeader(header)
	table.SetBorder(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	return table
}

func f3(x float64) string { return fmt.Sprintf("%.3f", x) }

// MetricsTable writes the per-category classification report followed by
// the accuracy, macro and weighted average rows.
func MetricsTable(w io.Writer, r eval.Report) {
	table := newTable(w, []string{"Category", "Precision", "Recall", "F1", "Support"})
	for _, label := range r.Labels {
		c := r.Classes[label]
		table.Append([]string{label, f3(c.Precision), f3(c.Recall), f3(c.F1), strconv.Itoa(c.Support)})
	}
	table.Append([]string{"accuracy", "", "", f3(r.Accuracy), strconv.Itoa(r.Total)})
	for _, avg := range []struct {
		name string
		m    eval.ClassMetrics
	}{{"macro avg", r.MacroAvg}, {"weighted avg", r.WeightedAvg}} {
		table.Append([]string{avg.name, f3(avg.m.Precision), f3(avg.m.Recall), f3(avg.m.F1), strconv.Itoa(avg.m.Support)})
	}
	table.Render()
}

// ConfusionTable writes the matrix with true labels as rows.
func ConfusionTable(w io.Writer, m eval.Confusion) {
	header := append([]string{"true \\ predicted"}, m.Labels...)
	table := newTable(w, header)
	for i, label := range m.Labels {
		row := []string{label}
		for j := range m.Labels {
			row = append(row, strconv.Itoa(m.Counts[i][j]))
		}
		table.Append(row)
	}
	table.Render()
}

// DistributionTable writes the count and share of each category. Categories
// are listed by descending count, ties by name.
func DistributionTable(w io.Writer, counts map[string]int) {
	labels := make([]string, 0, len(counts))
	total := 0
	for label, n := range counts {
		labels = append(labels, label)
		total += n
	}
	sort.Slice(labels, func(i, j int) bool {
		if counts[labels[i]] != counts[labels[j]] {
			return counts[labels[i]] > counts[labels[j]]
		}
		return labels[i] < labels[j]
	})

	table := newTable(w, []string{"Category", "Tickets", "Share"})
	for _, label := range labels {
		share := 0.0
		if total > 0 {
			share = float64(counts[label]) / float64(total) * 100
		}
		table.Append([]string{label, strconv.Itoa(counts[label]), fmt.Sprintf("%.1f%%", share)})
	}
	table.SetFooter([]string{"total", strconv.Itoa(total), ""})
	table.Render()
}

// RunsTable lists training runs, newest first as given.
func RunsTable(w io.Writer, runs []store.Run) {
	table := newTable(w, []string{"ID", "Started", "Duration", "Train", "Test", "Accuracy", "Converged"})
	for _, r := range runs {
		table.Append([]string{
			r.ID,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			r.Duration.String(),
			strconv.Itoa(r.TrainSize),
			strconv.Itoa(r.TestSize),
			f3(r.Accuracy),
			strconv.FormatBool(r.Converged),
		})
	}
	table.Render()
}

// ProbabilityTable lists class probabilities for one ticket, most likely first.
func ProbabilityTable(w io.Writer, classes []string, probs []float64) {
	idx := make([]int, len(classes))
	for i := range idx {
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return probs[idx[a]] > probs[idx[b]] })

	table := newTable(w, []string{"Category", "Probability"})
	for _, i := range idx {
		table.Append([]string{classes[i], f3(probs[i])})
	}
	table.Render()
}
