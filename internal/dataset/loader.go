package dataset

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"golang.org/x/time/rate"

	"github.com/browniellc/emojitools/internal/emoji"
	"github.com/browniellc/emojitools/pkg/config"
	pkgerrors "github.com/browniellc/emojitools/pkg/errors"
	"github.com/browniellc/emojitools/pkg/resilience"
	"github.com/browniellc/emojitools/pkg/tracing"
)

// Loader fetches the emoji dataset from the configured source and keeps a
// local copy. Downloads go through a rate limiter, a circuit breaker, and
// retry with backoff.
type Loader struct {
	cfg     config.DatasetConfig
	client  *http.Client
	limiter *rate.Limiter
	breaker *resilience.CircuitBreaker
	logger  *slog.Logger
}

// NewLoader builds a Loader from dataset config.
func NewLoader(cfg config.DatasetConfig) *Loader {
	limit := rate.Inf
	if cfg.RateLimit > 0 {
		limit = rate.Limit(cfg.RateLimit)
	}
	burst := cfg.RateBurst
	if burst < 1 {
		burst = 1
	}
	return &Loader{
		cfg:     cfg,
		client:  &http.Client{},
		limiter: rate.NewLimiter(limit, burst),
		breaker: resilience.NewCircuitBreaker("dataset-download", resilience.CircuitBreakerConfig{}),
		logger:  slog.Default().With("component", "dataset-loader"),
	}
}

// Load returns the dataset, preferring a local copy younger than MaxAge.
// A stale or missing local copy triggers a refresh; if the refresh fails
// but a stale copy exists, the stale copy is served with a warning.
func (l *Loader) Load(ctx context.Context) ([]emoji.Record, error) {
	if l.localFresh() {
		records, err := l.LoadLocal()
		if err == nil {
			return records, nil
		}
		l.logger.Warn("local dataset unreadable, refreshing", "path", l.cfg.LocalPath, "error", err)
	}

	records, err := l.Refresh(ctx)
	if err == nil {
		return records, nil
	}

	if stale, staleErr := l.LoadLocal(); staleErr == nil {
		l.logger.Warn("dataset refresh failed, serving stale local copy",
			"path", l.cfg.LocalPath,
			"error", err,
		)
		return stale, nil
	}
	return nil, fmt.Errorf("%w: %v", pkgerrors.ErrDatasetUnavailable, err)
}

// LoadLocal parses the local dataset copy without touching the network.
func (l *Loader) LoadLocal() ([]emoji.Record, error) {
	data, err := os.ReadFile(l.cfg.LocalPath)
	if err != nil {
		return nil, fmt.Errorf("reading local dataset: %w", err)
	}
	records, err := Parse(data, l.formatFor(l.cfg.LocalPath))
	if err != nil {
		return nil, err
	}
	return records, nil
}

// Refresh downloads the dataset unconditionally and rewrites the local copy.
func (l *Loader) Refresh(ctx context.Context) ([]emoji.Record, error) {
	ctx, span := tracing.StartSpan(ctx, "dataset-refresh")
	span.SetAttr("url", l.cfg.SourceURL)
	defer span.Log()
	defer span.End()

	data, err := l.download(ctx)
	if err != nil {
		return nil, err
	}

	_, parseSpan := tracing.StartChild(ctx, "dataset-parse")
	records, err := Parse(data, l.formatFor(l.cfg.SourceURL))
	parseSpan.End()
	if err != nil {
		return nil, err
	}
	span.SetAttr("records", len(records))

	if err := l.writeLocal(data); err != nil {
		l.logger.Warn("failed to persist dataset copy", "path", l.cfg.LocalPath, "error", err)
	}
	l.logger.Info("dataset refreshed", "records", len(records), "url", l.cfg.SourceURL)
	return records, nil
}

// LocalAge returns how old the local copy is, or false when none exists.
func (l *Loader) LocalAge() (time.Duration, bool) {
	info, err := os.Stat(l.cfg.LocalPath)
	if err != nil {
		return 0, false
	}
	return time.Since(info.ModTime()), true
}

// BreakerState exposes the download circuit state for health reporting.
func (l *Loader) BreakerState() resilience.State {
	return l.breaker.CurrentState()
}

// Stale reports whether the local copy is missing or older than MaxAge.
// With MaxAge <= 0 a present copy never goes stale.
func (l *Loader) Stale() bool {
	age, ok := l.LocalAge()
	if !ok {
		return true
	}
	return l.cfg.MaxAge > 0 && age >= l.cfg.MaxAge
}

func (l *Loader) localFresh() bool {
	return !l.Stale()
}

func (l *Loader) download(ctx context.Context) ([]byte, error) {
	_, span := tracing.StartChild(ctx, "dataset-download")
	defer span.End()

	if err := l.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("waiting for download slot: %w", err)
	}

	var body []byte
	err := l.breaker.Execute(func() error {
		return resilience.Retry(ctx, "dataset-download", resilience.RetryConfig{}, func() error {
			return resilience.WithTimeout(ctx, l.cfg.RequestTimeout, "dataset-download", func(ctx context.Context) error {
				var err error
				body, err = l.fetch(ctx)
				return err
			})
		})
	})
	if err != nil {
		return nil, err
	}
	span.SetAttr("bytes", len(body))
	return body, nil
}

func (l *Loader) fetch(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, l.cfg.SourceURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building dataset request: %w", err)
	}
	req.Header.Set("Accept", "application/json, text/csv")

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetching dataset: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetching dataset: unexpected status %s", resp.Status)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading dataset response: %w", err)
	}
	return body, nil
}

// writeLocal replaces the local copy atomically via a temp file and rename.
func (l *Loader) writeLocal(data []byte) error {
	dir := filepath.Dir(l.cfg.LocalPath)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating dataset dir: %w", err)
	}
	tmp, err := os.CreateTemp(dir, ".emoji-*.tmp")
	if err != nil {
		return fmt.Errorf("creating temp dataset file: %w", err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("writing temp dataset file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("closing temp dataset file: %w", err)
	}
	if err := os.Rename(tmp.Name(), l.cfg.LocalPath); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("replacing dataset file: %w", err)
	}
	return nil
}

// formatFor resolves the configured format, falling back to the path
// extension when set to auto.
func (l *Loader) formatFor(path string) string {
	if l.cfg.Format != "" && l.cfg.Format != "auto" {
		return l.cfg.Format
	}
	switch filepath.Ext(path) {
	case ".json":
		return "json"
	case ".csv":
		return "csv"
	default:
		return "auto"
	}
}
