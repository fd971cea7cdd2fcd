package memstore

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/cognicore/triage/pkg/triage/eval"
	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/store"
)

// Store is an in-memory implementation of store.Store for tests.
// Pipelines are kept in encoded form so loads always rebuild from bytes,
// like the persistent stores do.
type Store struct {
	mu        sync.RWMutex
	pipelines map[string][]byte
	runs      []store.Run
	saves     map[string]int
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		pipelines: make(map[string][]byte),
		saves:     make(map[string]int),
	}
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// SavePipeline implements store.Store.
func (s *Store) SavePipeline(ctx context.Context, name string, p *model.Pipeline) error {
	data, err := p.MarshalJSON()
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.pipelines[name] = data
	s.saves[name]++
	return nil
}

// LoadPipeline implements store.Store.
func (s *Store) LoadPipeline(ctx context.Context, name string) (*model.Pipeline, error) {
	s.mu.RLock()
	data, ok := s.pipelines[name]
	s.mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("pipeline %s: %w", name, internalerr.ErrNotFound)
	}
	return model.Decode(data)
}

// Saves returns how many times the named pipeline has been written.
func (s *Store) Saves(name string) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.saves[name]
}

// Artifacts returns the names of stored pipelines, sorted.
func (s *Store) Artifacts() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]string, 0, len(s.pipelines))
	for name := range s.pipelines {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// RecordRun implements store.Store.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.runs = append(s.runs, copyRun(r))
	return nil
}

// ListRuns implements store.Store, newest first.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if limit <= 0 {
		limit = 20
	}

	out := make([]store.Run, 0, len(s.runs))
	for i := len(s.runs) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, copyRun(s.runs[i]))
	}
	return out, nil
}

func copyRun(r store.Run) store.Run {
	if r.Metrics != nil {
		m := make(map[string]eval.ClassMetrics, len(r.Metrics))
		for k, v := range r.Metrics {
			m[k] = v
		}
		r.Metrics = m
	}
	return r
}
