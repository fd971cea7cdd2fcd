package model

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/logreg"
	"github.com/cognicore/triage/pkg/triage/tfidf"
)

// FormatVersion tags serialised pipelines.
const FormatVersion = 1

// Options configures both pipeline stages.
type Options struct {
	Vectorizer tfidf.Options  `json:"vectorizer"`
	Classifier logreg.Options `json:"classifier"`
}

// DefaultOptions returns the standard ticket pipeline settings.
func DefaultOptions() Options {
	return Options{
		Vectorizer: tfidf.DefaultOptions(),
		Classifier: logreg.DefaultOptions(),
	}
}

// Pipeline chains a TF-IDF vectorizer and a logistic regression classifier.
// A fitted pipeline is never modified; Fit returns a new one.
type Pipeline struct {
	opts       Options
	vectorizer *tfidf.Vectorizer
	classifier *logreg.Classifier
}

// New returns an unfitted pipeline.
func New(opts Options) *Pipeline {
	return &Pipeline{opts: opts}
}

// Fit trains both stages on already-cleaned texts and returns the fitted
// pipeline. The receiver is left untouched.
func (p *Pipeline) Fit(texts, labels []string) (*Pipeline, error) {
	if len(texts) != len(labels) {
		return nil, fmt.Errorf("fit: %d texts but %d labels", len(texts), len(labels))
	}

	vec, err := tfidf.Fit(texts, p.opts.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("fit vectorizer: %w", err)
	}
	clf, err := logreg.Fit(vec.Transform(texts), labels, vec.Len(), p.opts.Classifier)
	if err != nil {
		return nil, fmt.Errorf("fit classifier: %w", err)
	}

	return &Pipeline{opts: p.opts, vectorizer: vec, classifier: clf}, nil
}

// Fitted reports whether both stages carry learned parameters.
func (p *Pipeline) Fitted() bool {
	return p != nil && p.vectorizer != nil && p.classifier != nil
}

// Predict returns the most likely category per cleaned text.
func (p *Pipeline) Predict(texts []string) ([]string, error) {
	if !p.Fitted() {
		return nil, &internalerr.NotFittedError{Op: "predict"}
	}
	return p.classifier.Predict(p.vectorizer.Transform(texts)), nil
}

// PredictProba returns class probabilities per text in Classes() order.
func (p *Pipeline) PredictProba(texts []string) ([][]float64, error) {
	if !p.Fitted() {
		return nil, &internalerr.NotFittedError{Op: "predict_proba"}
	}
	return p.classifier.PredictProba(p.vectorizer.Transform(texts)), nil
}

// Classes returns the categories the classifier knows, sorted.
func (p *Pipeline) Classes() []string {
	if !p.Fitted() {
		return nil
	}
	return p.classifier.Classes()
}

// Vectorizer exposes the fitted first stage.
func (p *Pipeline) Vectorizer() *tfidf.Vectorizer { return p.vectorizer }

// Classifier exposes the fitted second stage.
func (p *Pipeline) Classifier() *logreg.Classifier { return p.classifier }

// Options returns the settings the pipeline was built with.
func (p *Pipeline) Options() Options { return p.opts }

type snapshot struct {
	Version    int          `json:"version"`
	Options    Options      `json:"options"`
	Vectorizer tfidf.State  `json:"tfidf"`
	Classifier logreg.State `json:"clf"`
}

// MarshalJSON encodes a fitted pipeline.
func (p *Pipeline) MarshalJSON() ([]byte, error) {
	if !p.Fitted() {
		return nil, &internalerr.NotFittedError{Op: "marshal"}
	}
	return json.Marshal(snapshot{
		Version:    FormatVersion,
		Options:    p.opts,
		Vectorizer: p.vectorizer.State(),
		Classifier: p.classifier.State(),
	})
}

// Decode rebuilds a pipeline from MarshalJSON output.
func Decode(data []byte) (*Pipeline, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if s.Version != FormatVersion {
		return nil, fmt.Errorf("decode pipeline: unsupported format version %d", s.Version)
	}

	vec, err := tfidf.FromState(s.Vectorizer)
	if err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	clf, err := logreg.FromState(s.Classifier)
	if err != nil {
		return nil, fmt.Errorf("decode pipeline: %w", err)
	}
	if s.Classifier.Features != vec.Len() {
		return nil, errors.New("decode pipeline: classifier width does not match vocabulary")
	}

	return &Pipeline{opts: s.Options, vectorizer: vec, classifier: clf}, nil
}
