package report

import (
	"fmt"
	"io"

	"github.com/cognicore/triage/pkg/triage/eval"
)

// RecallThreshold separates reliably detected categories from those at risk
// of being misrouted.
const RecallThreshold = 0.8

// Insight is a plain-language note on one category.
type Insight struct {
	Category string
	Recall   float64
	Reliable bool
}

func (i Insight) String() string {
	if i.Reliable {
		return fmt.Sprintf("%s: recall %.2f, reliably detected", i.Category, i.Recall)
	}
	return fmt.Sprintf("%s: recall %.2f, lower recall may cause misrouting delays", i.Category, i.Recall)
}

// Insights derives one note per category in report label order.
func Insights(r eval.Report) []Insight {
	out := make([]Insight, 0, len(r.Labels))
	for _, label := range r.Labels {
		recall := r.Classes[label].Recall
		out = append(out, Insight{Category: label, Recall: recall, Reliable: recall >= RecallThreshold})
	}
	return out
}

// WriteInsights prints one line per category.
func WriteInsights(w io.Writer, r eval.Report) {
	for _, in := range Insights(r) {
		fmt.Fprintf(w, "- %s\n", in)
	}
}
