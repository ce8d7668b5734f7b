// Package tracing provides lightweight timing spans propagated through
// contexts. Spans form parent-child trees and are emitted as structured
// slog records; the dataset refresh path uses them to break down where a
// slow reload spent its time.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

type contextKey struct{}

// Span is a timed operation within a trace tree.
type Span struct {
	Name      string
	StartTime time.Time
	Duration  time.Duration

	mu       sync.Mutex
	children []*Span
	attrs    []any
}

// StartSpan creates a root span and stores it in the returned context.
func StartSpan(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{Name: name, StartTime: time.Now()}
	return context.WithValue(ctx, contextKey{}, span), span
}

// StartChild creates a span parented to the one in ctx, or a root span when
// ctx carries none.
func StartChild(ctx context.Context, name string) (context.Context, *Span) {
	child := &Span{Name: name, StartTime: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		parent.mu.Lock()
		parent.children = append(parent.children, child)
		parent.mu.Unlock()
	}
	return context.WithValue(ctx, contextKey{}, child), child
}

// FromContext returns the current span, or nil.
func FromContext(ctx context.Context) *Span {
	if span, ok := ctx.Value(contextKey{}).(*Span); ok {
		return span
	}
	return nil
}

// End freezes the span's duration.
func (s *Span) End() {
	s.Duration = time.Since(s.StartTime)
}

// SetAttr attaches a key-value pair to the span's log record.
func (s *Span) SetAttr(key string, value any) {
	s.mu.Lock()
	s.attrs = append(s.attrs, key, value)
	s.mu.Unlock()
}

// Log writes the span tree to slog at debug level.
func (s *Span) Log() {
	s.logTree(0)
}

func (s *Span) logTree(depth int) {
	attrs := []any{
		"span", s.Name,
		"duration_ms", s.Duration.Milliseconds(),
		"depth", depth,
	}
	s.mu.Lock()
	attrs = append(attrs, s.attrs...)
	children := s.children
	s.mu.Unlock()

	slog.Debug("span", attrs...)
	for _, child := range children {
		child.logTree(depth + 1)
	}
}
