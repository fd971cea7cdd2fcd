// Package triage trains and serves the support-ticket category classifier.
package triage

import (
	"context"
	"crypto/rand"
	"fmt"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"go.uber.org/zap"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/ingest"
	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/split"
	"github.com/cognicore/triage/pkg/triage/stoplist"
	"github.com/cognicore/triage/pkg/triage/store"
)

// Triage is the training and classification facade
type Triage struct {
	cleaner  *ingest.Cleaner
	loader   *ingest.Loader
	store    store.Store
	split    split.Options
	model    model.Options
	artifact string
	log      *zap.Logger
	now      func() time.Time

	mu      sync.Mutex
	entropy *ulid.MonotonicEntropy

	// pipeline serves Classify; set by TrainAndEvaluate or Load.
	pipelineMu sync.RWMutex
	pipeline   *model.Pipeline
}

// Options configures a Triage instance
type Options struct {
	Cleaner  *ingest.Cleaner // defaults to the bundled German+English stopwords
	Loader   *ingest.Loader  // used by TrainFile
	Store    store.Store     // nil skips persistence
	Split    split.Options
	Model    model.Options
	Artifact string // defaults to store.DefaultArtifact
	Logger   *zap.Logger
	Now      func() time.Time
}

// New creates a Triage instance with the given dependencies
func New(opts Options) (*Triage, error) {
	cleaner := opts.Cleaner
	if cleaner == nil {
		stops, err := stoplist.Bundled()
		if err != nil {
			return nil, err
		}
		cleaner = ingest.NewCleaner(stops)
	}
	loader := opts.Loader
	if loader == nil {
		loader = &ingest.Loader{}
	}
	artifact := opts.Artifact
	if artifact == "" {
		artifact = store.DefaultArtifact
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	sp := opts.Split
	if sp.TestFraction == 0 {
		sp = split.DefaultOptions()
	}

	return &Triage{
		cleaner:  cleaner,
		loader:   loader,
		store:    opts.Store,
		split:    sp,
		model:    opts.Model,
		artifact: artifact,
		log:      log,
		now:      now,
		entropy:  ulid.Monotonic(rand.Reader, 0),
	}, nil
}

// Close cleanly shuts down the store
func (t *Triage) Close() error {
	if t.store == nil {
		return nil
	}
	return t.store.Close()
}

// Cleaner returns the text normaliser used for training and inference.
func (t *Triage) Cleaner() *ingest.Cleaner { return t.cleaner }

// Result is everything one training run produced.
type Result struct {
	Run       store.Run
	Pipeline  *model.Pipeline
	Confusion eval.Confusion
	Report    eval.Report
	Counts    map[string]int // category distribution of the full dataset

	// Held-out side of the split, cleaned, with gold and predicted labels.
	TestTexts   []string
	TestLabels  []string
	Predictions []string
}

// TrainFile loads and validates the dataset at path, then trains on it. A
// dataset that fails validation never produces or persists a pipeline.
func (t *Triage) TrainFile(ctx context.Context, path string) (*Result, error) {
	t.log.Info("loading dataset", zap.String("path", path))
	ds, err := t.loader.Load(path)
	if err != nil {
		return nil, err
	}
	return t.TrainAndEvaluate(ctx, ds)
}

// TrainAndEvaluate cleans the dataset, holds out a stratified test share,
// fits a fresh pipeline on the rest and scores it on the held-out tickets.
// The fitted pipeline overwrites the configured artifact and the run is
// appended to the history. A failed history write is logged, not returned.
func (t *Triage) TrainAndEvaluate(ctx context.Context, ds ingest.Dataset) (*Result, error) {
	if ds.Len() == 0 {
		return nil, &internalerr.ValidationError{Rule: internalerr.RuleSize, Detail: "dataset is empty"}
	}
	started := t.now()

	texts := t.cleaner.CleanAll(ds.Texts())
	labels := ds.Labels()

	parts, err := split.Stratified(labels, t.split)
	if err != nil {
		return nil, fmt.Errorf("split: %w", err)
	}
	trainX, trainY := split.Pick(texts, parts.Train), split.Pick(labels, parts.Train)
	testX, testY := split.Pick(texts, parts.Test), split.Pick(labels, parts.Test)
	t.log.Info("split dataset",
		zap.Int("train", len(trainX)),
		zap.Int("test", len(testX)),
		zap.Uint64("seed", t.split.Seed))

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	fitted, err := model.New(t.model).Fit(trainX, trainY)
	if err != nil {
		return nil, fmt.Errorf("fit: %w", err)
	}
	clf := fitted.Classifier()
	if !clf.Converged {
		t.log.Warn("classifier did not converge", zap.Int("iterations", clf.Iterations))
	}

	predicted, err := fitted.Predict(testX)
	if err != nil {
		return nil, err
	}
	conf, err := eval.NewConfusion(testY, predicted, ds.CategorySet())
	if err != nil {
		return nil, err
	}
	rep := eval.Metrics(conf)

	run := store.Run{
		ID:         t.newID(started),
		StartedAt:  started,
		Artifact:   t.artifact,
		TrainSize:  len(trainX),
		TestSize:   len(testX),
		Accuracy:   rep.Accuracy,
		Iterations: clf.Iterations,
		Converged:  clf.Converged,
		Metrics:    rep.Classes,
	}
	run.Duration = t.now().Sub(started)

	if t.store != nil {
		if err := t.store.SavePipeline(ctx, t.artifact, fitted); err != nil {
			return nil, fmt.Errorf("save pipeline: %w", err)
		}
	}
	t.setPipeline(fitted)

	// The artifact is already replaced; history is best effort from here.
	if t.store != nil {
		if err := t.store.RecordRun(ctx, run); err != nil {
			t.log.Warn("record run failed", zap.String("run", run.ID), zap.Error(err))
		}
	}

	t.log.Info("training run complete",
		zap.String("run", run.ID),
		zap.Float64("accuracy", eval.Round3(rep.Accuracy)),
		zap.Int("iterations", clf.Iterations),
		zap.Duration("duration", run.Duration))

	return &Result{
		Run:       run,
		Pipeline:  fitted,
		Confusion: conf,
		Report:    rep,
		Counts:    ds.Counts(),

		TestTexts:   testX,
		TestLabels:  testY,
		Predictions: predicted,
	}, nil
}

func (t *Triage) newID(at time.Time) string {
	t.mu.Lock()
	defer t.mu.Unlock()
	return ulid.MustNew(ulid.Timestamp(at), t.entropy).String()
}

// Load makes the stored artifact the pipeline used by Classify.
func (t *Triage) Load(ctx context.Context) error {
	if t.store == nil {
		return fmt.Errorf("load %s: no store configured: %w", t.artifact, internalerr.ErrNotFound)
	}
	p, err := t.store.LoadPipeline(ctx, t.artifact)
	if err != nil {
		return err
	}
	t.setPipeline(p)
	t.log.Debug("loaded pipeline", zap.String("artifact", t.artifact), zap.Strings("classes", p.Classes()))
	return nil
}

// Pipeline returns the pipeline serving Classify, or nil.
func (t *Triage) Pipeline() *model.Pipeline {
	t.pipelineMu.RLock()
	defer t.pipelineMu.RUnlock()
	return t.pipeline
}

func (t *Triage) setPipeline(p *model.Pipeline) {
	t.pipelineMu.Lock()
	t.pipeline = p
	t.pipelineMu.Unlock()
}

// Classify cleans text and predicts its category.
func (t *Triage) Classify(ctx context.Context, text string) (string, error) {
	out, err := t.Pipeline().Predict([]string{t.cleaner.Clean(text)})
	if err != nil {
		return "", err
	}
	return out[0], nil
}

// Prediction is a category with the class probabilities behind it.
type Prediction struct {
	Category      string
	Classes       []string
	Probabilities []float64
}

// ClassifyProba is Classify with the full probability distribution.
func (t *Triage) ClassifyProba(ctx context.Context, text string) (Prediction, error) {
	p := t.Pipeline()
	cleaned := []string{t.cleaner.Clean(text)}
	labels, err := p.Predict(cleaned)
	if err != nil {
		return Prediction{}, err
	}
	probs, err := p.PredictProba(cleaned)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{Category: labels[0], Classes: p.Classes(), Probabilities: probs[0]}, nil
}

// ListRuns returns the most recent training runs.
func (t *Triage) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if t.store == nil {
		return nil, nil
	}
	return t.store.ListRuns(ctx, limit)
}
