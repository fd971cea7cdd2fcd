package filestore

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/store"
)

const runsFile = "runs.jsonl"

// Store keeps each pipeline as <dir>/<name>.json and appends runs to
// <dir>/runs.jsonl.
type Store struct {
	dir string
}

// Open creates dir if needed.
func Open(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Close implements store.Store.
func (s *Store) Close() error { return nil }

// Path returns the artifact file for name.
func (s *Store) Path(name string) string {
	return filepath.Join(s.dir, name+".json")
}

// SavePipeline writes the artifact atomically, replacing any previous one.
func (s *Store) SavePipeline(ctx context.Context, name string, p *model.Pipeline) error {
	if strings.ContainsAny(name, `/\`) || name == "" {
		return fmt.Errorf("invalid artifact name %q", name)
	}
	data, err := p.MarshalJSON()
	if err != nil {
		return err
	}

	path := s.Path(name)
	tmp, err := os.CreateTemp(s.dir, name+".*.tmp")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("save pipeline %s: %w", name, err)
	}
	return nil
}

// LoadPipeline implements store.Store.
func (s *Store) LoadPipeline(ctx context.Context, name string) (*model.Pipeline, error) {
	data, err := os.ReadFile(s.Path(name))
	if errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("pipeline %s: %w", name, internalerr.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return model.Decode(data)
}

// RecordRun appends one JSON line.
func (s *Store) RecordRun(ctx context.Context, r store.Run) error {
	line, err := json.Marshal(r)
	if err != nil {
		return err
	}

	f, err := os.OpenFile(filepath.Join(s.dir, runsFile), os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()

	if _, err := f.Write(append(line, '\n')); err != nil {
		return fmt.Errorf("record run %s: %w", r.ID, err)
	}
	return nil
}

// ListRuns returns the most recent runs first. Malformed lines are skipped.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]store.Run, error) {
	if limit <= 0 {
		limit = 20
	}

	data, err := os.ReadFile(filepath.Join(s.dir, runsFile))
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}

	var all []store.Run
	sc := bufio.NewScanner(bytes.NewReader(data))
	sc.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for sc.Scan() {
		line := bytes.TrimSpace(sc.Bytes())
		if len(line) == 0 {
			continue
		}
		var r store.Run
		if err := json.Unmarshal(line, &r); err != nil {
			continue
		}
		all = append(all, r)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	out := make([]store.Run, 0, min(limit, len(all)))
	for i := len(all) - 1; i >= 0 && len(out) < limit; i-- {
		out = append(out, all[i])
	}
	return out, nil
}
