package engine

import (
	"context"

	"golang.org/x/sync/errgroup"
)

// Warmup pre-populates the query cache by running the configured warmup
// queries through the normal search path on a background goroutine, bounded
// by the configured concurrency. It returns immediately; the returned
// channel is closed when the run finishes. Failures are logged and counted
// but never surfaced to callers. With warmup disabled in the current config
// the call is a no-op whose channel is already closed.
//
// At most one warmup runs at a time. A call made while one is in flight
// returns the in-flight run's channel instead of starting another.
func (e *Engine) Warmup(ctx context.Context) <-chan struct{} {
	if !e.opts.Load().warmupEnabled {
		done := make(chan struct{})
		close(done)
		return done
	}
	e.warmupMu.Lock()
	if e.warmupRunning {
		done := e.warmupDone
		e.warmupMu.Unlock()
		return done
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	e.warmupRunning = true
	e.warmupCancel = cancel
	e.warmupDone = done
	e.warmupMu.Unlock()

	go func() {
		defer func() {
			cancel()
			e.warmupMu.Lock()
			e.warmupRunning = false
			e.warmupCancel = nil
			e.warmupDone = nil
			e.warmupMu.Unlock()
			close(done)
		}()
		e.runWarmup(ctx)
	}()
	return done
}

func (e *Engine) runWarmup(ctx context.Context) {
	o := e.opts.Load()
	concurrency := o.warmupConcurrency
	if concurrency < 1 {
		concurrency = 1
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, query := range o.warmupQueries {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if _, err := e.Search(gctx, query, SearchOptions{}); err != nil {
				e.stats.WarmupFailure()
				e.logger.Warn("warmup query failed", "query", query, "error", err)
				return nil
			}
			e.stats.WarmupSuccess()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		e.logger.Debug("warmup aborted", "error", err)
		return
	}
	e.logger.Debug("warmup finished", "queries", len(o.warmupQueries))
}
