package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/browniellc/emojitools/internal/dataset"
	"github.com/browniellc/emojitools/internal/engine"
	"github.com/browniellc/emojitools/internal/history"
	"github.com/browniellc/emojitools/internal/server"
	"github.com/browniellc/emojitools/pkg/health"
	"github.com/browniellc/emojitools/pkg/metrics"
	"github.com/browniellc/emojitools/pkg/resilience"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API server",
	Long: `Serves the search API over HTTP. The dataset is loaded at startup and
kept warm in memory; with dataset.watchEnabled the local copy is watched
and reloaded on change, and dataset.refreshInterval re-downloads it in the
background once it ages past dataset.maxAge.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var m *metrics.Metrics
	if cfg.Metrics.Enabled {
		m = metrics.New()
	}

	eng, err := engine.New(cfg, m)
	if err != nil {
		return err
	}
	defer eng.Close()

	loader := dataset.NewLoader(cfg.Dataset)
	records, err := loader.Load(ctx)
	if err != nil {
		return fmt.Errorf("loading dataset: %w", err)
	}
	snap := eng.Reload(records)
	slog.Info("dataset loaded", "version", snap.Version, "records", snap.Len())

	var (
		hist     *history.Store
		recorder *history.Recorder
	)
	if cfg.History.Enabled {
		hist, err = history.Open(cfg.History.Path, cfg.History.MaxEntries)
		if err != nil {
			slog.Warn("history unavailable, searches will not be recorded", "error", err)
		} else {
			defer hist.Close()
			recorder = history.NewRecorder(hist, cfg.History.RecorderBuffer)
			recorder.Start(ctx)
			defer recorder.Close()
		}
	}

	if cfg.Dataset.WatchEnabled {
		watcher, err := dataset.NewWatcher(cfg.Dataset.LocalPath, func() {
			records, err := loader.LoadLocal()
			if err != nil {
				slog.Warn("reload after dataset change failed", "error", err)
				return
			}
			eng.Reload(records)
		})
		if err != nil {
			slog.Warn("dataset watch unavailable", "error", err)
		} else {
			defer watcher.Stop()
			slog.Info("watching dataset file", "path", cfg.Dataset.LocalPath)
		}
	}

	if cfg.Dataset.RefreshInterval > 0 {
		go refreshLoop(ctx, loader, eng, cfg.Dataset.RefreshInterval)
	}

	if cfg.Warmup.Enabled {
		eng.Warmup(ctx)
	}

	checker := health.NewChecker()
	checker.Register("dataset", func(ctx context.Context) health.ComponentHealth {
		if eng.Snapshot().Len() == 0 {
			return health.ComponentHealth{Status: health.StatusDown, Message: "no records loaded"}
		}
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d records, version %d", eng.Snapshot().Len(), eng.Version()),
		}
	})
	checker.Register("downloader", func(ctx context.Context) health.ComponentHealth {
		if state := loader.BreakerState(); state != resilience.StateClosed {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit " + state.String()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	if hist != nil {
		checker.Register("history", func(ctx context.Context) health.ComponentHealth {
			if _, err := hist.Recent(ctx, 1); err != nil {
				return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
			}
			return health.ComponentHealth{Status: health.StatusUp}
		})
	}

	if m != nil && cfg.Metrics.Port > 0 {
		shutdown := m.StartServer(cfg.Metrics.Port)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := shutdown(shutdownCtx); err != nil {
				slog.Error("metrics server shutdown error", "error", err)
			}
		}()
	}

	h := server.New(eng, loader, recorder)
	srv := server.NewServer(cfg.Server, h, checker, m)
	return srv.Start(ctx)
}

// refreshLoop re-downloads the dataset once the local copy ages past
// dataset.maxAge. Ticks while the copy is still fresh do nothing, so the
// interval can be much shorter than maxAge.
func refreshLoop(ctx context.Context, loader *dataset.Loader, eng *engine.Engine, interval time.Duration) {
	logger := slog.Default().With("component", "refresher")
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if !loader.Stale() {
				continue
			}
			records, err := loader.Refresh(ctx)
			if err != nil {
				logger.Warn("scheduled dataset refresh failed", "error", err)
				continue
			}
			snap := eng.Reload(records)
			logger.Info("scheduled dataset refresh applied", "version", snap.Version, "records", snap.Len())
		}
	}
}
