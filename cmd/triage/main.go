package main

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/cognicore/triage/internal/logging"
	"github.com/cognicore/triage/pkg/triage"
	"github.com/cognicore/triage/pkg/triage/config"
)

// app is what every subcommand works with once the root command has run.
type app struct {
	cfg    config.Config
	comp   *config.Components
	log    *zap.Logger
	triage *triage.Triage
}

type contextKey string

const appKey contextKey = "app"

func appFromContext(ctx context.Context) (*app, error) {
	a, ok := ctx.Value(appKey).(*app)
	if !ok || a == nil {
		return nil, fmt.Errorf("application not initialised")
	}
	return a, nil
}

// flagKeys maps command-line flags to config keys.
var flagKeys = map[string]string{
	"data":             "dataset.path",
	"strip-html":       "dataset.strip_html",
	"seed":             "split.seed",
	"test-fraction":    "split.test_fraction",
	"store":            "store.kind",
	"store-path":       "store.path",
	"artifact":         "store.artifact",
	"stopwords-dir":    "stopwords.dir",
	"stopwords-url":    "stopwords.fetch_url",
	"metrics-textfile": "metrics.textfile",
	"log-level":        "log.level",
	"log-format":       "log.format",
}

func newRootCmd() *cobra.Command {
	var configPath string

	root := &cobra.Command{
		Use:   "triage",
		Short: "Support ticket category classifier",
		Long: `triage trains a TF-IDF + logistic regression classifier that routes
English and German support tickets to billing, network, device, contract or
other, and classifies new tickets with the saved model.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if cmd.Name() == "help" {
				return nil
			}
			v := config.NewViper()
			if err := bindFlags(v, cmd); err != nil {
				return err
			}
			a, err := setup(cmd.Context(), configPath, v)
			if err != nil {
				return err
			}
			cmd.SetContext(context.WithValue(cmd.Context(), appKey, a))
			return nil
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			a, err := appFromContext(cmd.Context())
			if err != nil {
				return nil
			}
			a.log.Sync()
			return a.triage.Close()
		},
	}

	pf := root.PersistentFlags()
	pf.StringVarP(&configPath, "config", "c", "", "YAML config file")
	pf.String("store", "", "artifact store: file, sqlite or memory")
	pf.String("store-path", "", "store directory (file) or database path (sqlite)")
	pf.String("artifact", "", "name the pipeline is saved under")
	pf.String("stopwords-dir", "", "directory caching the stop-word lists")
	pf.String("stopwords-url", "", "base URL to fetch missing stop-word lists from")
	pf.String("log-level", "", "debug, info, warn or error")
	pf.String("log-format", "", "console or json")

	root.AddCommand(newTrainCmd(), newClassifyCmd(), newRunsCmd(), newDistributionCmd())
	return root
}

func bindFlags(v *viper.Viper, cmd *cobra.Command) error {
	for name, key := range flagKeys {
		f := cmd.Flags().Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("bind --%s: %w", name, err)
		}
	}
	return nil
}

func setup(ctx context.Context, configPath string, v *viper.Viper) (*app, error) {
	cfg := config.DefaultConfig()
	if configPath != "" {
		loaded, err := config.Load(configPath)
		if err != nil {
			return nil, fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}
	cfg.Overlay(v)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		return nil, err
	}

	comp, err := config.Build(ctx, cfg)
	if err != nil {
		return nil, err
	}

	st, err := config.OpenStore(ctx, cfg.Store)
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}

	tr, err := triage.New(triage.Options{
		Cleaner:  comp.Cleaner,
		Loader:   comp.Loader,
		Store:    st,
		Split:    comp.Split,
		Model:    comp.Model,
		Artifact: cfg.Store.Artifact,
		Logger:   log,
	})
	if err != nil {
		st.Close()
		return nil, err
	}

	log.Debug("configured",
		zap.String("store", cfg.Store.Kind),
		zap.String("store_path", cfg.Store.Path),
		zap.Int("stopwords", comp.Stopwords.Len()))

	return &app{cfg: cfg, comp: comp, log: log, triage: tr}, nil
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
