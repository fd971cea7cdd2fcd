package logreg

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"gonum.org/v1/gonum/optimize"

	"github.com/cognicore/triage/pkg/triage/tfidf"
)

// Defaults mirror a plain L2-regularised multinomial logistic regression.
const (
	DefaultC       = 1.0
	DefaultMaxIter = 1000
	DefaultTol     = 1e-4
)

// Options configures training.
type Options struct {
	C       float64 `json:"c"`        // inverse regularisation strength
	MaxIter int     `json:"max_iter"` // L-BFGS iteration cap
	Tol     float64 `json:"tol"`      // gradient norm threshold
}

// DefaultOptions returns C=1, 1000 iterations, tol 1e-4.
func DefaultOptions() Options {
	return Options{C: DefaultC, MaxIter: DefaultMaxIter, Tol: DefaultTol}
}

func (o Options) withDefaults() Options {
	if o.C <= 0 {
		o.C = DefaultC
	}
	if o.MaxIter <= 0 {
		o.MaxIter = DefaultMaxIter
	}
	if o.Tol <= 0 {
		o.Tol = DefaultTol
	}
	return o
}

// Classifier is a fitted multinomial logistic regression model.
type Classifier struct {
	classes   []string    // sorted
	coef      [][]float64 // [class][feature]
	intercept []float64
	features  int

	Iterations int  // L-BFGS major iterations used
	Converged  bool // false when the iteration cap was hit
}

// Fit trains on sparse rows X with string labels. nFeatures is the width of
// the feature space. Parameters start at zero, so identical inputs always
// produce identical coefficients.
func Fit(X []tfidf.Vector, labels []string, nFeatures int, opts Options) (*Classifier, error) {
	opts = opts.withDefaults()
	if len(X) == 0 {
		return nil, errors.New("logreg: no training samples")
	}
	if len(X) != len(labels) {
		return nil, fmt.Errorf("logreg: %d samples but %d labels", len(X), len(labels))
	}
	if nFeatures <= 0 {
		return nil, errors.New("logreg: empty feature space")
	}

	classes := distinct(labels)
	if len(classes) < 2 {
		return nil, fmt.Errorf("logreg: need at least 2 classes, got %d", len(classes))
	}
	classIdx := make(map[string]int, len(classes))
	for i, c := range classes {
		classIdx[c] = i
	}
	y := make([]int, len(labels))
	for i, l := range labels {
		y[i] = classIdx[l]
	}

	obj := &objective{
		X:       X,
		y:       y,
		k:       len(classes),
		d:       nFeatures,
		lambda:  1 / (opts.C * float64(len(X))),
		scratch: make([]float64, len(classes)),
	}

	problem := optimize.Problem{
		Func: obj.value,
		Grad: obj.gradient,
	}
	settings := &optimize.Settings{
		GradientThreshold: opts.Tol,
		MajorIterations:   opts.MaxIter,
	}
	x0 := make([]float64, obj.k*(obj.d+1))

	result, err := optimize.Minimize(problem, x0, settings, &optimize.LBFGS{})
	if result == nil {
		return nil, fmt.Errorf("logreg: optimize: %w", err)
	}
	// Line-search stalls still leave a usable iterate; only a missing result is fatal.

	c := &Classifier{
		classes:    classes,
		coef:       make([][]float64, obj.k),
		intercept:  make([]float64, obj.k),
		features:   nFeatures,
		Iterations: result.Stats.MajorIterations,
		Converged:  err == nil && result.Status != optimize.IterationLimit,
	}
	for k := 0; k < obj.k; k++ {
		off := k * (obj.d + 1)
		c.coef[k] = append([]float64(nil), result.X[off:off+obj.d]...)
		c.intercept[k] = result.X[off+obj.d]
	}
	return c, nil
}

// objective is mean cross-entropy plus lambda/2 * ||W||^2 (intercepts are not
// penalised). Parameters are laid out per class as [w_0..w_{d-1}, b].
type objective struct {
	X       []tfidf.Vector
	y       []int
	k, d    int
	lambda  float64
	scratch []float64
}

func (o *objective) value(x []float64) float64 {
	var loss float64
	p := o.scratch
	for i, row := range o.X {
		lse := o.logProbs(x, row, p)
		loss += lse - p[o.y[i]]
	}
	loss /= float64(len(o.X))

	var reg float64
	for k := 0; k < o.k; k++ {
		off := k * (o.d + 1)
		for _, w := range x[off : off+o.d] {
			reg += w * w
		}
	}
	return loss + 0.5*o.lambda*reg
}

func (o *objective) gradient(grad, x []float64) {
	for i := range grad {
		grad[i] = 0
	}

	p := o.scratch
	inv := 1 / float64(len(o.X))
	for i, row := range o.X {
		lse := o.logProbs(x, row, p)
		for k := 0; k < o.k; k++ {
			r := math.Exp(p[k] - lse)
			if k == o.y[i] {
				r--
			}
			r *= inv
			off := k * (o.d + 1)
			for j, col := range row.Index {
				grad[off+col] += r * row.Value[j]
			}
			grad[off+o.d] += r
		}
	}

	for k := 0; k < o.k; k++ {
		off := k * (o.d + 1)
		for j := 0; j < o.d; j++ {
			grad[off+j] += o.lambda * x[off+j]
		}
	}
}

// logProbs fills scores with the raw class scores and returns their log-sum-exp.
func (o *objective) logProbs(x []float64, row tfidf.Vector, scores []float64) float64 {
	maxScore := math.Inf(-1)
	for k := 0; k < o.k; k++ {
		off := k * (o.d + 1)
		s := x[off+o.d]
		for j, col := range row.Index {
			s += x[off+col] * row.Value[j]
		}
		scores[k] = s
		if s > maxScore {
			maxScore = s
		}
	}
	var sum float64
	for _, s := range scores {
		sum += math.Exp(s - maxScore)
	}
	return maxScore + math.Log(sum)
}

// Classes returns the class labels in coefficient order.
func (c *Classifier) Classes() []string {
	return append([]string(nil), c.classes...)
}

// Decision returns the raw per-class scores for one row.
func (c *Classifier) Decision(row tfidf.Vector) []float64 {
	scores := make([]float64, len(c.classes))
	for k := range c.classes {
		s := c.intercept[k]
		for j, col := range row.Index {
			if col < c.features {
				s += c.coef[k][col] * row.Value[j]
			}
		}
		scores[k] = s
	}
	return scores
}

// Predict returns the arg-max class per row; ties go to the earlier class.
func (c *Classifier) Predict(X []tfidf.Vector) []string {
	out := make([]string, len(X))
	for i, row := range X {
		scores := c.Decision(row)
		best := 0
		for k := 1; k < len(scores); k++ {
			if scores[k] > scores[best] {
				best = k
			}
		}
		out[i] = c.classes[best]
	}
	return out
}

// PredictProba returns softmax probabilities per row, in Classes() order.
func (c *Classifier) PredictProba(X []tfidf.Vector) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		scores := c.Decision(row)
		maxScore := math.Inf(-1)
		for _, s := range scores {
			maxScore = math.Max(maxScore, s)
		}
		var sum float64
		for k, s := range scores {
			scores[k] = math.Exp(s - maxScore)
			sum += scores[k]
		}
		for k := range scores {
			scores[k] /= sum
		}
		out[i] = scores
	}
	return out
}

// State is the serialisable form of a fitted classifier.
type State struct {
	Classes    []string    `json:"classes"`
	Coef       [][]float64 `json:"coef"`
	Intercept  []float64   `json:"intercept"`
	Features   int         `json:"features"`
	Iterations int         `json:"iterations"`
	Converged  bool        `json:"converged"`
}

// State exports the fitted parameters.
func (c *Classifier) State() State {
	coef := make([][]float64, len(c.coef))
	for k := range c.coef {
		coef[k] = append([]float64(nil), c.coef[k]...)
	}
	return State{
		Classes:    c.Classes(),
		Coef:       coef,
		Intercept:  append([]float64(nil), c.intercept...),
		Features:   c.features,
		Iterations: c.Iterations,
		Converged:  c.Converged,
	}
}

// FromState rebuilds a classifier from exported parameters.
func FromState(s State) (*Classifier, error) {
	if len(s.Classes) < 2 {
		return nil, errors.New("logreg: state has fewer than 2 classes")
	}
	if len(s.Coef) != len(s.Classes) || len(s.Intercept) != len(s.Classes) {
		return nil, errors.New("logreg: coefficient shape does not match classes")
	}
	c := &Classifier{
		classes:    append([]string(nil), s.Classes...),
		coef:       make([][]float64, len(s.Coef)),
		intercept:  append([]float64(nil), s.Intercept...),
		features:   s.Features,
		Iterations: s.Iterations,
		Converged:  s.Converged,
	}
	for k, row := range s.Coef {
		if len(row) != s.Features {
			return nil, fmt.Errorf("logreg: class %s has %d weights, want %d", s.Classes[k], len(row), s.Features)
		}
		c.coef[k] = append([]float64(nil), row...)
	}
	return c, nil
}

func distinct(labels []string) []string {
	seen := make(map[string]struct{})
	var out []string
	for _, l := range labels {
		if _, ok := seen[l]; ok {
			continue
		}
		seen[l] = struct{}{}
		out = append(out, l)
	}
	sort.Strings(out)
	return out
}
