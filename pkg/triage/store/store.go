package store

import (
	"context"
	"time"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/model"
)

// DefaultArtifact is the name the trained pipeline is saved under. Each
// successful training run overwrites it.
const DefaultArtifact = "model"

// Store persists trained pipelines and the history of training runs
type Store interface {
	Close() error

	// Pipelines
	SavePipeline(ctx context.Context, name string, p *model.Pipeline) error
	LoadPipeline(ctx context.Context, name string) (*model.Pipeline, error)

	// Run history
	RecordRun(ctx context.Context, r Run) error
	ListRuns(ctx context.Context, limit int) ([]Run, error)
}

// Run summarises one training run
type Run struct {
	ID         string                       `json:"id"`
	StartedAt  time.Time                    `json:"started_at"`
	Duration   time.Duration                `json:"duration"`
	Artifact   string                       `json:"artifact"`
	TrainSize  int                          `json:"train_size"`
	TestSize   int                          `json:"test_size"`
	Accuracy   float64                      `json:"accuracy"`
	Iterations int                          `json:"iterations"`
	Converged  bool                         `json:"converged"`
	Metrics    map[string]eval.ClassMetrics `json:"metrics"`
}
