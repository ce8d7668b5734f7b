// Package cli implements the emojitools command line interface. Commands
// share one lazily-constructed application context: config and logging come
// up for every command, the engine and history store only for commands that
// need them.
package cli

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/browniellc/emojitools/internal/dataset"
	"github.com/browniellc/emojitools/internal/engine"
	"github.com/browniellc/emojitools/internal/history"
	"github.com/browniellc/emojitools/pkg/config"
	"github.com/browniellc/emojitools/pkg/logger"
)

var (
	cfgFile string
	cfg     *config.Config

	eng    *engine.Engine
	loader *dataset.Loader
	hist   *history.Store
)

var rootCmd = &cobra.Command{
	Use:   "emojitools",
	Short: "Fast emoji search and lookup",
	Long: `emojitools finds emoji by name, keyword, category, or collection.
The dataset is cached locally and indexed in memory; repeated queries are
served from an LRU cache.`,
	SilenceUsage:      true,
	PersistentPreRunE: setup,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "path to config file")
}

// Execute runs the CLI and releases whatever the invoked command wired up.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// setup loads config and logging for every command. Heavier dependencies
// are built on demand by ensureEngine and ensureHistory.
func setup(cmd *cobra.Command, args []string) error {
	var err error
	cfg, err = config.Load(cfgFile)
	if err != nil {
		return err
	}
	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	return nil
}

// ensureEngine builds the engine and loads the dataset into it. One-shot
// commands run without metrics; the serve command builds its own wiring.
func ensureEngine(ctx context.Context) error {
	if eng != nil {
		return nil
	}
	e, err := engine.New(cfg, nil)
	if err != nil {
		return err
	}
	loader = dataset.NewLoader(cfg.Dataset)
	records, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	e.Reload(records)
	eng = e
	return nil
}

// ensureHistory opens the history store when enabled. Returns false when
// history is disabled in config.
func ensureHistory() (bool, error) {
	if hist != nil {
		return true, nil
	}
	if !cfg.History.Enabled {
		return false, nil
	}
	h, err := history.Open(cfg.History.Path, cfg.History.MaxEntries)
	if err != nil {
		return false, err
	}
	hist = h
	return true, nil
}

func teardown() {
	if hist != nil {
		if err := hist.Close(); err != nil {
			slog.Warn("closing history store", "error", err)
		}
		hist = nil
	}
	if eng != nil {
		eng.Close()
		eng = nil
	}
}

// recordSearch appends to the search history when enabled, best effort.
func recordSearch(ctx context.Context, query string, results int) {
	ok, err := ensureHistory()
	if err != nil || !ok {
		return
	}
	if err := hist.RecordSearch(ctx, query, results); err != nil {
		slog.Warn("failed to record search", "query", query, "error", err)
	}
}
