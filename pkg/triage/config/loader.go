package config

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cognicore/triage/pkg/triage/ingest"
	"github.com/cognicore/triage/pkg/triage/logreg"
	"github.com/cognicore/triage/pkg/triage/model"
	"github.com/cognicore/triage/pkg/triage/split"
	"github.com/cognicore/triage/pkg/triage/stoplist"
	"github.com/cognicore/triage/pkg/triage/store"
	"github.com/cognicore/triage/pkg/triage/store/filestore"
	"github.com/cognicore/triage/pkg/triage/store/memstore"
	"github.com/cognicore/triage/pkg/triage/store/sqlite"
	"github.com/cognicore/triage/pkg/triage/tfidf"
)

// Components holds everything built from a Config
type Components struct {
	Stopwords *stoplist.Set
	Cleaner   *ingest.Cleaner
	Loader    *ingest.Loader
	Split     split.Options
	Model     model.Options
}

// Build resolves the stop-word lists and constructs the pipeline components.
func Build(ctx context.Context, cfg Config) (*Components, error) {
	stops, err := loadStopwords(ctx, cfg.Stopwords)
	if err != nil {
		return nil, err
	}

	return &Components{
		Stopwords: stops,
		Cleaner:   ingest.NewCleaner(stops),
		Loader: &ingest.Loader{
			Rules: ingest.Rules{
				Categories:   cfg.Dataset.Categories,
				ExpectedSize: cfg.Dataset.ExpectedSize,
			},
			StripHTML: cfg.Dataset.StripHTML,
		},
		Split: split.Options{TestFraction: cfg.Split.TestFraction, Seed: cfg.Split.Seed},
		Model: model.Options{
			Vectorizer: tfidf.Options{
				MaxFeatures: cfg.Model.MaxFeatures,
				MinN:        cfg.Model.MinN,
				MaxN:        cfg.Model.MaxN,
				MinTokenLen: tfidf.DefaultMinTokenLen,
			},
			Classifier: logreg.Options{C: cfg.Model.C, MaxIter: cfg.Model.MaxIter, Tol: cfg.Model.Tol},
		},
	}, nil
}

func loadStopwords(ctx context.Context, sw Stopwords) (*stoplist.Set, error) {
	res := stoplist.Resource{Dir: sw.Dir, Languages: sw.Languages}

	if sw.Dir != "" {
		if sw.FetchURL != "" {
			res.Fetcher = stoplist.HTTPFetcher{BaseURL: sw.FetchURL}
		} else {
			res.Fetcher = stoplist.BundledFetcher{}
		}
	}

	if sw.ExtraPath != "" {
		extra, err := LoadStoplist(sw.ExtraPath)
		if err != nil {
			return nil, fmt.Errorf("load stoplist: %w", err)
		}
		res.Extra = extra.Terms
	}

	return stoplist.Load(ctx, res)
}

// OpenStore opens the configured artifact store.
func OpenStore(ctx context.Context, sc StoreConf) (store.Store, error) {
	switch sc.Kind {
	case StoreSQLite:
		if dir := filepath.Dir(sc.Path); dir != "." {
			if err := ensureDir(dir); err != nil {
				return nil, err
			}
		}
		return sqlite.OpenSQLite(ctx, sc.Path)
	case StoreFile:
		return filestore.Open(sc.Path)
	case StoreMemory:
		return memstore.New(), nil
	default:
		return nil, fmt.Errorf("unknown store kind %q", sc.Kind)
	}
}

func ensureDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create store dir %s: %w", dir, err)
	}
	return nil
}
