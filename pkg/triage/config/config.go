package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/cognicore/triage/pkg/triage/ingest"
	"github.com/cognicore/triage/pkg/triage/internalerr"
	"github.com/cognicore/triage/pkg/triage/logreg"
	"github.com/cognicore/triage/pkg/triage/split"
	"github.com/cognicore/triage/pkg/triage/store"
	"github.com/cognicore/triage/pkg/triage/tfidf"
)

// Store kinds.
const (
	StoreSQLite = "sqlite"
	StoreFile   = "file"
	StoreMemory = "memory"
)

// Config is the full run configuration of a training or classification run.
type Config struct {
	Dataset   Dataset    `yaml:"dataset"`
	Split     Split      `yaml:"split"`
	Model     Model      `yaml:"model"`
	Stopwords Stopwords  `yaml:"stopwords"`
	Store     StoreConf  `yaml:"store"`
	Metrics   MetricsOut `yaml:"metrics"`
	Log       Log        `yaml:"log"`
}

// Dataset describes the labelled input table.
type Dataset struct {
	Path         string   `yaml:"path"`
	ExpectedSize int      `yaml:"expected_size"`
	Categories   []string `yaml:"categories"`
	StripHTML    bool     `yaml:"strip_html"`
}

// Split configures the stratified hold-out.
type Split struct {
	TestFraction float64 `yaml:"test_fraction"`
	Seed         uint64  `yaml:"seed"`
}

// Model carries vectorizer and classifier hyper-parameters.
type Model struct {
	MaxFeatures int     `yaml:"max_features"`
	MinN        int     `yaml:"min_n"`
	MaxN        int     `yaml:"max_n"`
	C           float64 `yaml:"c"`
	MaxIter     int     `yaml:"max_iter"`
	Tol         float64 `yaml:"tol"`
}

// Stopwords locates the word lists. An empty Dir uses the lists compiled
// into the binary.
type Stopwords struct {
	Dir       string   `yaml:"dir"`
	FetchURL  string   `yaml:"fetch_url"`
	Languages []string `yaml:"languages"`
	ExtraPath string   `yaml:"extra_path"` // YAML file with a terms list
}

// StoreConf selects where pipelines and run history are kept.
type StoreConf struct {
	Kind     string `yaml:"kind"`
	Path     string `yaml:"path"`
	Artifact string `yaml:"artifact"`
}

// MetricsOut configures the Prometheus textfile export. Empty disables it.
type MetricsOut struct {
	Textfile string `yaml:"textfile"`
}

// Log configures the process logger.
type Log struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// DefaultConfig returns the configuration used when no file is given.
func DefaultConfig() Config {
	sp := split.DefaultOptions()
	vec := tfidf.DefaultOptions()
	clf := logreg.DefaultOptions()
	return Config{
		Dataset: Dataset{
			Path:         "data/tickets.csv",
			ExpectedSize: ingest.DefaultExpectedSize,
			Categories:   ingest.Categories(),
		},
		Split: Split{TestFraction: sp.TestFraction, Seed: sp.Seed},
		Model: Model{
			MaxFeatures: vec.MaxFeatures,
			MinN:        vec.MinN,
			MaxN:        vec.MaxN,
			C:           clf.C,
			MaxIter:     clf.MaxIter,
			Tol:         clf.Tol,
		},
		Store: StoreConf{Kind: StoreFile, Path: "outputs", Artifact: store.DefaultArtifact},
		Log:   Log{Level: "info", Format: "console"},
	}
}

// Load reads a YAML config file on top of DefaultConfig. Unknown keys are
// rejected.
func Load(path string) (Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return cfg, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, cfg.Validate()
}

// Validate checks value ranges and enumerations.
func (c Config) Validate() error {
	var problems []string

	if c.Dataset.ExpectedSize <= 0 {
		problems = append(problems, "dataset.expected_size must be positive")
	}
	if len(c.Dataset.Categories) < 2 {
		problems = append(problems, "dataset.categories needs at least two entries")
	}
	if c.Split.TestFraction <= 0 || c.Split.TestFraction >= 1 {
		problems = append(problems, "split.test_fraction must be in (0, 1)")
	}
	if c.Model.MaxFeatures <= 0 {
		problems = append(problems, "model.max_features must be positive")
	}
	if c.Model.MinN < 1 || c.Model.MaxN < c.Model.MinN {
		problems = append(problems, "model n-gram range is invalid")
	}
	if c.Model.C <= 0 {
		problems = append(problems, "model.c must be positive")
	}
	if c.Model.MaxIter <= 0 {
		problems = append(problems, "model.max_iter must be positive")
	}
	if c.Model.Tol <= 0 {
		problems = append(problems, "model.tol must be positive")
	}
	switch c.Store.Kind {
	case StoreSQLite, StoreFile:
		if c.Store.Path == "" {
			problems = append(problems, "store.path is required for "+c.Store.Kind)
		}
	case StoreMemory:
	default:
		problems = append(problems, fmt.Sprintf("unknown store.kind %q", c.Store.Kind))
	}
	if c.Store.Artifact == "" {
		problems = append(problems, "store.artifact is required")
	}
	switch c.Log.Format {
	case "console", "json":
	default:
		problems = append(problems, fmt.Sprintf("unknown log.format %q", c.Log.Format))
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", internalerr.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// Overlay copies every key set in v (flags or TRIAGE_* environment variables)
// over c. Keys use the YAML paths, e.g. "store.kind".
func (c *Config) Overlay(v *viper.Viper) {
	if v == nil {
		return
	}
	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}

	str("dataset.path", &c.Dataset.Path)
	if v.IsSet("dataset.expected_size") {
		c.Dataset.ExpectedSize = v.GetInt("dataset.expected_size")
	}
	if v.IsSet("dataset.strip_html") {
		c.Dataset.StripHTML = v.GetBool("dataset.strip_html")
	}
	if v.IsSet("split.test_fraction") {
		c.Split.TestFraction = v.GetFloat64("split.test_fraction")
	}
	if v.IsSet("split.seed") {
		c.Split.Seed = v.GetUint64("split.seed")
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}
	num("model.max_features", &c.Model.MaxFeatures)
	num("model.min_n", &c.Model.MinN)
	num("model.max_n", &c.Model.MaxN)
	num("model.max_iter", &c.Model.MaxIter)
	if v.IsSet("model.c") {
		c.Model.C = v.GetFloat64("model.c")
	}
	if v.IsSet("model.tol") {
		c.Model.Tol = v.GetFloat64("model.tol")
	}
	str("stopwords.dir", &c.Stopwords.Dir)
	str("stopwords.fetch_url", &c.Stopwords.FetchURL)
	str("store.kind", &c.Store.Kind)
	str("store.path", &c.Store.Path)
	str("store.artifact", &c.Store.Artifact)
	str("metrics.textfile", &c.Metrics.Textfile)
	str("log.level", &c.Log.Level)
	str("log.format", &c.Log.Format)
}

// NewViper returns a viper instance reading TRIAGE_* environment variables,
// e.g. TRIAGE_STORE_KIND for "store.kind".
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix("TRIAGE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range OverlayKeys {
		v.BindEnv(key)
	}
	return v
}

// OverlayKeys are the keys Overlay understands.
var OverlayKeys = []string{
	"dataset.path", "dataset.expected_size", "dataset.strip_html",
	"split.test_fraction", "split.seed",
	"model.max_features", "model.min_n", "model.max_n",
	"model.c", "model.max_iter", "model.tol",
	"stopwords.dir", "stopwords.fetch_url",
	"store.kind", "store.path", "store.artifact",
	"metrics.textfile",
	"log.level", "log.format",
}

// Stoplist is an extra stop-word file.
type Stoplist struct {
	Terms []string `yaml:"terms"`
}

// LoadStoplist loads stopwords from a YAML file
func LoadStoplist(path string) (*Stoplist, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var sl Stoplist
	if err := yaml.Unmarshal(data, &sl); err != nil {
		return nil, err
	}

	return &sl, nil
}
