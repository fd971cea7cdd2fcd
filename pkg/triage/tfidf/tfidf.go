package tfidf

import (
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"unicode/utf8"
)

// Defaults for the ticket vectorizer.
const (
	DefaultMaxFeatures = 5000
	DefaultMinN        = 1
	DefaultMaxN        = 2
	DefaultMinTokenLen = 2
)

// Options configures vocabulary building.
type Options struct {
	MaxFeatures int `json:"max_features"` // cap on vocabulary size, by corpus frequency
	MinN        int `json:"min_n"`        // smallest n-gram length
	MaxN        int `json:"max_n"`        // largest n-gram length
	MinTokenLen int `json:"min_token_len"`
}

// DefaultOptions returns unigrams+bigrams capped at 5000 terms.
func DefaultOptions() Options {
	return Options{
		MaxFeatures: DefaultMaxFeatures,
		MinN:        DefaultMinN,
		MaxN:        DefaultMaxN,
		MinTokenLen: DefaultMinTokenLen,
	}
}

func (o Options) withDefaults() Options {
	d := DefaultOptions()
	if o.MaxFeatures <= 0 {
		o.MaxFeatures = d.MaxFeatures
	}
	if o.MinN <= 0 {
		o.MinN = d.MinN
	}
	if o.MaxN < o.MinN {
		o.MaxN = o.MinN
	}
	if o.MinTokenLen <= 0 {
		o.MinTokenLen = d.MinTokenLen
	}
	return o
}

// Vector is a sparse row: ascending column indices with their weights.
type Vector struct {
	Index []int
	Value []float64
}

// Vectorizer maps text to L2-normalised TF-IDF vectors over a frozen vocabulary.
type Vectorizer struct {
	opts  Options
	terms []string // column -> term, sorted
	vocab map[string]int
	idf   []float64
}

// Fit builds the vocabulary and IDF weights from docs.
//
// Terms are ranked by total corpus frequency (ties by term order) and the top
// MaxFeatures are kept. IDF is smoothed: ln((1+n)/(1+df)) + 1.
func Fit(docs []string, opts Options) (*Vectorizer, error) {
	opts = opts.withDefaults()
	if len(docs) == 0 {
		return nil, errors.New("tfidf: no documents")
	}

	counter := NewCounter()
	for _, d := range docs {
		counter.AddDocument(Analyze(d, opts))
	}
	if counter.UniqueTerms() == 0 {
		return nil, errors.New("tfidf: empty vocabulary; documents contain only stopwords or short tokens")
	}

	terms := make([]string, 0, counter.UniqueTerms())
	for t := range counter.DF {
		terms = append(terms, t)
	}
	sort.Slice(terms, func(i, j int) bool {
		ti, tj := counter.TF[terms[i]], counter.TF[terms[j]]
		if ti != tj {
			return ti > tj
		}
		return terms[i] < terms[j]
	})
	if len(terms) > opts.MaxFeatures {
		terms = terms[:opts.MaxFeatures]
	}
	sort.Strings(terms)

	n := float64(counter.TotalDocs())
	idf := make([]float64, len(terms))
	for i, t := range terms {
		idf[i] = math.Log((1+n)/(1+float64(counter.DF[t]))) + 1
	}

	return newVectorizer(opts, terms, idf), nil
}

func newVectorizer(opts Options, terms []string, idf []float64) *Vectorizer {
	vocab := make(map[string]int, len(terms))
	for i, t := range terms {
		vocab[t] = i
	}
	return &Vectorizer{opts: opts, terms: terms, vocab: vocab, idf: idf}
}

// Analyze splits cleaned text into n-gram terms. Tokens shorter than
// MinTokenLen runes are discarded before n-grams are formed.
func Analyze(text string, opts Options) []string {
	opts = opts.withDefaults()

	var tokens []string
	for _, tok := range strings.Fields(text) {
		if utf8.RuneCountInString(tok) >= opts.MinTokenLen {
			tokens = append(tokens, tok)
		}
	}

	var out []string
	for n := opts.MinN; n <= opts.MaxN; n++ {
		for i := 0; i+n <= len(tokens); i++ {
			out = append(out, strings.Join(tokens[i:i+n], " "))
		}
	}
	return out
}

// Transform vectorizes docs. Out-of-vocabulary terms are ignored.
func (v *Vectorizer) Transform(docs []string) []Vector {
	out := make([]Vector, len(docs))
	for i, d := range docs {
		out[i] = v.transformOne(d)
	}
	return out
}

func (v *Vectorizer) transformOne(doc string) Vector {
	counts := make(map[int]float64)
	for _, term := range Analyze(doc, v.opts) {
		if col, ok := v.vocab[term]; ok {
			counts[col]++
		}
	}

	vec := Vector{
		Index: make([]int, 0, len(counts)),
		Value: make([]float64, 0, len(counts)),
	}
	for col := range counts {
		vec.Index = append(vec.Index, col)
	}
	sort.Ints(vec.Index)

	var norm float64
	for _, col := range vec.Index {
		w := counts[col] * v.idf[col]
		vec.Value = append(vec.Value, w)
		norm += w * w
	}
	if norm > 0 {
		norm = math.Sqrt(norm)
		for i := range vec.Value {
			vec.Value[i] /= norm
		}
	}
	return vec
}

// Len returns the vocabulary size.
func (v *Vectorizer) Len() int { return len(v.terms) }

// Terms returns a copy of the vocabulary in column order.
func (v *Vectorizer) Terms() []string {
	return append([]string(nil), v.terms...)
}

// Column returns the column of term, if present.
func (v *Vectorizer) Column(term string) (int, bool) {
	col, ok := v.vocab[term]
	return col, ok
}

// State is the serialisable form of a fitted vectorizer.
type State struct {
	Options Options   `json:"options"`
	Terms   []string  `json:"terms"`
	IDF     []float64 `json:"idf"`
}

// State exports the fitted parameters.
func (v *Vectorizer) State() State {
	return State{
		Options: v.opts,
		Terms:   v.Terms(),
		IDF:     append([]float64(nil), v.idf...),
	}
}

// FromState rebuilds a vectorizer from exported parameters.
func FromState(s State) (*Vectorizer, error) {
	if len(s.Terms) != len(s.IDF) {
		return nil, fmt.Errorf("tfidf: %d terms but %d idf weights", len(s.Terms), len(s.IDF))
	}
	if !sort.StringsAreSorted(s.Terms) {
		return nil, errors.New("tfidf: vocabulary not sorted")
	}
	return newVectorizer(s.Options.withDefaults(), append([]string(nil), s.Terms...), append([]float64(nil), s.IDF...)), nil
}
