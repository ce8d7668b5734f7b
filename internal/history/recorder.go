package history

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// searchEvent is one buffered history write.
type searchEvent struct {
	query   string
	results int
}

// Recorder decouples request handling from history writes: events are
// buffered on a channel and written to the store by a background goroutine.
// Track never blocks; when the buffer is full the event is dropped and
// counted instead.
type Recorder struct {
	store   *Store
	eventCh chan searchEvent
	dropped atomic.Int64
	logger  *slog.Logger
	done    chan struct{}
}

// NewRecorder creates a Recorder buffering up to bufferSize events.
func NewRecorder(store *Store, bufferSize int) *Recorder {
	if bufferSize <= 0 {
		bufferSize = 1024
	}
	return &Recorder{
		store:   store,
		eventCh: make(chan searchEvent, bufferSize),
		logger:  slog.Default().With("component", "history-recorder"),
		done:    make(chan struct{}),
	}
}

// Start launches the background write loop. When ctx is cancelled the
// remaining buffered events are drained before the loop exits.
func (r *Recorder) Start(ctx context.Context) {
	go func() {
		defer close(r.done)
		for {
			select {
			case ev, ok := <-r.eventCh:
				if !ok {
					return
				}
				r.write(ev)
			case <-ctx.Done():
				r.drainRemaining()
				return
			}
		}
	}()
	r.logger.Debug("history recorder started", "buffer_size", cap(r.eventCh))
}

// Track queues a search for recording. Never blocks.
func (r *Recorder) Track(query string, results int) {
	select {
	case r.eventCh <- searchEvent{query: query, results: results}:
	default:
		r.dropped.Add(1)
		r.logger.Warn("history event dropped (buffer full)", "query", query)
	}
}

// Dropped returns how many events were discarded because the buffer was
// full.
func (r *Recorder) Dropped() int64 {
	return r.dropped.Load()
}

// Close stops accepting events and waits for the loop to write out what is
// buffered. Call at most once, after all Track callers have stopped.
func (r *Recorder) Close() {
	close(r.eventCh)
	<-r.done
}

// write persists one event with its own deadline so buffered history
// survives cancellation of the serving context.
func (r *Recorder) write(ev searchEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.store.RecordSearch(ctx, ev.query, ev.results); err != nil {
		r.logger.Warn("failed to record search", "query", ev.query, "error", err)
	}
}

func (r *Recorder) drainRemaining() {
	for {
		select {
		case ev, ok := <-r.eventCh:
			if !ok {
				return
			}
			r.write(ev)
		default:
			return
		}
	}
}
