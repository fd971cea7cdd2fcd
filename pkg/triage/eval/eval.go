package eval

import (
	"fmt"
	"math"
)

// Confusion cross-tabulates true (rows) against predicted (columns) labels.
type Confusion struct {
	Labels []string
	Counts [][]int
}

// NewConfusion counts label pairs. Labels fixes row and column order; pairs
// whose true or predicted label is not listed are skipped, matching a
// label-restricted confusion matrix.
func NewConfusion(yTrue, yPred, labels []string) (Confusion, error) {
	if len(yTrue) != len(yPred) {
		return Confusion{}, fmt.Errorf("confusion: %d true labels but %d predictions", len(yTrue), len(yPred))
	}

	index := make(map[string]int, len(labels))
	for i, l := range labels {
		if _, dup := index[l]; dup {
			return Confusion{}, fmt.Errorf("confusion: duplicate label %q", l)
		}
		index[l] = i
	}

	m := Confusion{
		Labels: append([]string(nil), labels...),
		Counts: make([][]int, len(labels)),
	}
	for i := range m.Counts {
		m.Counts[i] = make([]int, len(labels))
	}

	for i := range yTrue {
		r, ok1 := index[yTrue[i]]
		c, ok2 := index[yPred[i]]
		if ok1 && ok2 {
			m.Counts[r][c]++
		}
	}
	return m, nil
}

// Total returns the sum of all cells.
func (m Confusion) Total() int {
	var n int
	for _, row := range m.Counts {
		for _, v := range row {
			n += v
		}
	}
	return n
}

// Trace returns the number of correct predictions.
func (m Confusion) Trace() int {
	var n int
	for i := range m.Counts {
		n += m.Counts[i][i]
	}
	return n
}

// Accuracy is trace/sum, or 0 for an empty matrix.
func (m Confusion) Accuracy() float64 {
	total := m.Total()
	if total == 0 {
		return 0
	}
	return float64(m.Trace()) / float64(total)
}

// AsMap returns the matrix as true -> predicted -> count.
func (m Confusion) AsMap() map[string]map[string]int {
	out := make(map[string]map[string]int, len(m.Labels))
	for i, t := range m.Labels {
		row := make(map[string]int, len(m.Labels))
		for j, p := range m.Labels {
			row[p] = m.Counts[i][j]
		}
		out[t] = row
	}
	return out
}

// ClassMetrics holds per-class scores, rounded to 3 decimals.
type ClassMetrics struct {
	Precision float64 `json:"precision"`
	Recall    float64 `json:"recall"`
	F1        float64 `json:"f1"`
	Support   int     `json:"support"`
}

// Report summarises a confusion matrix.
type Report struct {
	Labels      []string                `json:"labels"`
	Classes     map[string]ClassMetrics `json:"classes"`
	Accuracy    float64                 `json:"accuracy"`
	Correct     int                     `json:"correct"`
	Total       int                     `json:"total"`
	MacroAvg    ClassMetrics            `json:"macro_avg"`
	WeightedAvg ClassMetrics            `json:"weighted_avg"`
}

// Metrics derives precision, recall and F1 per label. Every ratio whose
// denominator is zero is 0, never NaN.
func Metrics(m Confusion) Report {
	r := Report{
		Labels:   append([]string(nil), m.Labels...),
		Classes:  make(map[string]ClassMetrics, len(m.Labels)),
		Accuracy: m.Accuracy(),
		Correct:  m.Trace(),
		Total:    m.Total(),
	}

	var macro, weighted [3]float64
	for i, label := range m.Labels {
		tp := m.Counts[i][i]
		var colSum, rowSum int
		for j := range m.Labels {
			colSum += m.Counts[j][i]
			rowSum += m.Counts[i][j]
		}
		fp := colSum - tp
		fn := rowSum - tp

		precision := ratio(float64(tp), float64(tp+fp))
		recall := ratio(float64(tp), float64(tp+fn))
		f1 := ratio(2*precision*recall, precision+recall)

		r.Classes[label] = ClassMetrics{
			Precision: Round3(precision),
			Recall:    Round3(recall),
			F1:        Round3(f1),
			Support:   rowSum,
		}

		macro[0] += precision
		macro[1] += recall
		macro[2] += f1
		w := float64(rowSum)
		weighted[0] += precision * w
		weighted[1] += recall * w
		weighted[2] += f1 * w
	}

	if k := float64(len(m.Labels)); k > 0 {
		r.MacroAvg = ClassMetrics{
			Precision: Round3(macro[0] / k),
			Recall:    Round3(macro[1] / k),
			F1:        Round3(macro[2] / k),
			Support:   r.Total,
		}
	}
	if r.Total > 0 {
		n := float64(r.Total)
		r.WeightedAvg = ClassMetrics{
			Precision: Round3(weighted[0] / n),
			Recall:    Round3(weighted[1] / n),
			F1:        Round3(weighted[2] / n),
			Support:   r.Total,
		}
	}
	return r
}

// AsMap returns label -> {precision, recall, f1}.
func (r Report) AsMap() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(r.Classes))
	for label, c := range r.Classes {
		out[label] = map[string]float64{
			"precision": c.Precision,
			"recall":    c.Recall,
			"f1":        c.F1,
		}
	}
	return out
}

func ratio(num, den float64) float64 {
	if den == 0 {
		return 0
	}
	return num / den
}

// Round3 rounds half away from zero to 3 decimals.
func Round3(x float64) float64 {
	return math.Round(x*1000) / 1000
}
