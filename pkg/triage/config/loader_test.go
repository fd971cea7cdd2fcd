package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/cognicore/triage/pkg/triage/store/filestore"
	"github.com/cognicore/triage/pkg/triage/store/memstore"
)

func TestBuildDefaults(t *testing.T) {
	comp, err := Build(context.Background(), DefaultConfig())
	if err != nil {
		t.Fatalf("Build: %v", err)
	}

	if comp.Stopwords.Len() == 0 {
		t.Error("bundled stopwords should be loaded")
	}
	if got := comp.Cleaner.Clean("SIM-Karte funktioniert nicht"); got != "sim karte funktioniert" {
		t.Errorf("Clean = %q", got)
	}
	if comp.Loader.Rules.ExpectedSize != 400 {
		t.Errorf("ExpectedSize = %d", comp.Loader.Rules.ExpectedSize)
	}
	if comp.Split.Seed != 42 || comp.Model.Classifier.MaxIter != 1000 {
		t.Errorf("unexpected options: %+v %+v", comp.Split, comp.Model)
	}
}

func TestBuildExtraStoplist(t *testing.T) {
	path := filepath.Join(t.TempDir(), "extra.yaml")
	if err := os.WriteFile(path, []byte("terms:\n  - hallo\n"), 0644); err != nil {
		t.Fatal(err)
	}

	cfg := DefaultConfig()
	cfg.Stopwords.ExtraPath = path
	comp, err := Build(context.Background(), cfg)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if got := comp.Cleaner.Clean("Hallo Rechnung"); got != "rechnung" {
		t.Errorf("Clean = %q, want rechnung", got)
	}
}

func TestBuildNonExistentStoplist(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Stopwords.ExtraPath = "/nonexistent/stoplist.yaml"
	if _, err := Build(context.Background(), cfg); err == nil {
		t.Error("Should error on nonexistent stoplist")
	}
}

func TestBuildCachesStopwordsInDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nltk")
	cfg := DefaultConfig()
	cfg.Stopwords.Dir = dir

	if _, err := Build(context.Background(), cfg); err != nil {
		t.Fatalf("Build: %v", err)
	}
	for _, lang := range []string{"german", "english"} {
		if _, err := os.Stat(filepath.Join(dir, lang)); err != nil {
			t.Errorf("%s list not cached: %v", lang, err)
		}
	}
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()

	st, err := OpenStore(ctx, StoreConf{Kind: StoreMemory})
	if err != nil {
		t.Fatalf("memory: %v", err)
	}
	if _, ok := st.(*memstore.Store); !ok {
		t.Errorf("memory kind returned %T", st)
	}

	st, err = OpenStore(ctx, StoreConf{Kind: StoreFile, Path: filepath.Join(dir, "outputs")})
	if err != nil {
		t.Fatalf("file: %v", err)
	}
	if _, ok := st.(*filestore.Store); !ok {
		t.Errorf("file kind returned %T", st)
	}

	st, err = OpenStore(ctx, StoreConf{Kind: StoreSQLite, Path: filepath.Join(dir, "db", "triage.db")})
	if err != nil {
		t.Fatalf("sqlite: %v", err)
	}
	st.Close()

	if _, err := OpenStore(ctx, StoreConf{Kind: "redis"}); err == nil {
		t.Error("expected error for unknown kind")
	}
}
