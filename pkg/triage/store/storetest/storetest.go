// Package storetest holds behaviour checks shared by every store.Store
// implementation.
package storetest

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/store"
)

var (
	texts = []string{
		"rechnung falsch", "invoice double charge", "gebuehren hoch", "refund payment",
		"internet slow", "kein netz", "wifi drops signal", "verbindung bricht",
		"screen broken", "handy startet", "router overheats", "sim karte funktioniert",
		"cancel contract", "vertrag kuendigen", "extend subscription", "vertragslaufzeit",
		"opening hours", "allgemeine frage", "friendly staff", "filiale finden",
	}
	labels = []string{
		"billing", "billing", "billing", "billing",
		"network", "network", "network", "network",
		"device", "device", "device", "device",
		"contract", "contract", "contract", "contract",
		"other", "other", "other", "other",
	}
	// Probe mixes English and German inputs.
	Probe = []string{"internet slow", "rechnung", "vertrag kuendigen", "sim karte", "frage"}
)

// Pipeline fits a small bilingual pipeline.
func Pipeline(t testing.TB) *model.Pipeline {
	t.Helper()
	p, err := model.New(model.DefaultOptions()).Fit(texts, labels)
	if err != nil {
		t.Fatalf("fit: %v", err)
	}
	return p
}

// Run exercises the store.Store contract against a fresh store from open.
func Run(t *testing.T, open func(t *testing.T) store.Store) {
	t.Run("RoundTrip", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()

		p := Pipeline(t)
		if err := st.SavePipeline(ctx, store.DefaultArtifact, p); err != nil {
			t.Fatalf("SavePipeline: %v", err)
		}
		loaded, err := st.LoadPipeline(ctx, store.DefaultArtifact)
		if err != nil {
			t.Fatalf("LoadPipeline: %v", err)
		}

		want, _ := p.Predict(Probe)
		got, err := loaded.Predict(Probe)
		if err != nil {
			t.Fatalf("Predict: %v", err)
		}
		if !reflect.DeepEqual(got, want) {
			t.Errorf("loaded predictions %v, want %v", got, want)
		}
	})

	t.Run("Overwrite", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()

		small, err := model.New(model.DefaultOptions()).Fit(texts[:8], labels[:8])
		if err != nil {
			t.Fatalf("fit: %v", err)
		}
		if err := st.SavePipeline(ctx, "m", small); err != nil {
			t.Fatalf("save small: %v", err)
		}
		if err := st.SavePipeline(ctx, "m", Pipeline(t)); err != nil {
			t.Fatalf("save full: %v", err)
		}

		loaded, err := st.LoadPipeline(ctx, "m")
		if err != nil {
			t.Fatalf("LoadPipeline: %v", err)
		}
		if n := len(loaded.Classes()); n != 5 {
			t.Errorf("expected latest artifact with 5 classes, got %d", n)
		}
	})

	t.Run("SaveUnfitted", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		err := st.SavePipeline(context.Background(), "m", model.New(model.DefaultOptions()))
		if !errors.Is(err, internalerr.ErrNotFitted) {
			t.Errorf("expected ErrNotFitted, got %v", err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		st := open(t)
		defer st.Close()

		_, err := st.LoadPipeline(context.Background(), "missing")
		if !errors.Is(err, internalerr.ErrNotFound) {
			t.Errorf("expected ErrNotFound, got %v", err)
		}
	})

	t.Run("Runs", func(t *testing.T) {
		ctx := context.Background()
		st := open(t)
		defer st.Close()

		runs, err := st.ListRuns(ctx, 0)
		if err != nil {
			t.Fatalf("ListRuns empty: %v", err)
		}
		if len(runs) != 0 {
			t.Fatalf("expected no runs, got %d", len(runs))
		}

		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
		for i, id := range []string{"run-a", "run-b", "run-c"} {
			r := store.Run{
				ID:         id,
				StartedAt:  base.Add(time.Duration(i) * time.Minute),
				Duration:   1500 * time.Millisecond,
				Artifact:   store.DefaultArtifact,
				TrainSize:  300,
				TestSize:   100,
				Accuracy:   0.9 + float64(i)/100,
				Iterations: 42,
				Converged:  true,
				Metrics: map[string]eval.ClassMetrics{
					"billing": {Precision: 0.9, Recall: 0.8, F1: 0.847, Support: 20},
				},
			}
			if err := st.RecordRun(ctx, r); err != nil {
				t.Fatalf("RecordRun %s: %v", id, err)
			}
		}

		runs, err = st.ListRuns(ctx, 2)
		if err != nil {
			t.Fatalf("ListRuns: %v", err)
		}
		if len(runs) != 2 {
			t.Fatalf("expected 2 runs, got %d", len(runs))
		}
		if runs[0].ID != "run-c" || runs[1].ID != "run-b" {
			t.Errorf("expected newest first, got %s, %s", runs[0].ID, runs[1].ID)
		}

		r := runs[0]
		if !r.StartedAt.Equal(base.Add(2*time.Minute)) {
			t.Errorf("StartedAt = %v", r.StartedAt)
		}
		if r.Duration != 1500*time.Millisecond || r.TrainSize != 300 || r.TestSize != 100 || !r.Converged {
			t.Errorf("unexpected run fields: %+v", r)
		}
		if r.Metrics["billing"].Support != 20 || r.Metrics["billing"].F1 != 0.847 {
			t.Errorf("metrics not preserved: %+v", r.Metrics)
		}
	})
}
