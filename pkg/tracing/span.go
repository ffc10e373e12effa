// Package tracing times the stages of a request as a tree of spans carried
// in the context. A finished tree is written as one slog record whose
// nested groups mirror the tree.
package tracing

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
)

type spanKey struct{}

type Span struct {
	name    string
	traceID string
	start   time.Time

	mu       sync.Mutex
	elapsed  time.Duration
	ended    bool
	attrs    []slog.Attr
	children []*Span
}

// Start opens a span under the one already in ctx, or a new root. A root
// takes the request id from ctx as its trace id.
func Start(ctx context.Context, name string) (context.Context, *Span) {
	span := &Span{name: name, start: time.Now()}
	if parent := FromContext(ctx); parent != nil {
		span.traceID = parent.traceID
		parent.mu.Lock()
		parent.children = append(parent.children, span)
		parent.mu.Unlock()
	} else {
		span.traceID = logger.RequestID(ctx)
	}
	return context.WithValue(ctx, spanKey{}, span), span
}

func FromContext(ctx context.Context) *Span {
	span, _ := ctx.Value(spanKey{}).(*Span)
	return span
}

func (s *Span) Name() string    { return s.name }
func (s *Span) TraceID() string { return s.traceID }

// End stops the clock and returns the elapsed time. Later calls return the
// first measurement.
func (s *Span) End() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ended {
		s.elapsed = time.Since(s.start)
		s.ended = true
	}
	return s.elapsed
}

// Set records attributes; a repeated key keeps the latest value.
func (s *Span) Set(attrs ...slog.Attr) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range attrs {
		replaced := false
		for i := range s.attrs {
			if s.attrs[i].Key == a.Key {
				s.attrs[i] = a
				replaced = true
				break
			}
		}
		if !replaced {
			s.attrs = append(s.attrs, a)
		}
	}
}

// Attr returns the value recorded under key.
func (s *Span) Attr(key string) (slog.Value, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, a := range s.attrs {
		if a.Key == key {
			return a.Value, true
		}
	}
	return slog.Value{}, false
}

// Find walks the tree depth first.
func (s *Span) Find(name string) *Span {
	if s.name == name {
		return s
	}
	for _, child := range s.snapshotChildren() {
		if found := child.Find(name); found != nil {
			return found
		}
	}
	return nil
}

func (s *Span) snapshotChildren() []*Span {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*Span(nil), s.children...)
}

// LogValue renders the span and its children as nested groups.
func (s *Span) LogValue() slog.Value {
	s.mu.Lock()
	attrs := make([]slog.Attr, 0, len(s.attrs)+2)
	attrs = append(attrs, slog.Duration("elapsed", s.elapsed))
	attrs = append(attrs, s.attrs...)
	s.mu.Unlock()

	for _, child := range s.snapshotChildren() {
		attrs = append(attrs, slog.Any(child.name, child))
	}
	return slog.GroupValue(attrs...)
}

// Log writes the tree at debug level through the request logger.
func (s *Span) Log(ctx context.Context) {
	logger.FromContext(ctx).LogAttrs(ctx, slog.LevelDebug, "trace",
		slog.String("trace_id", s.traceID),
		slog.Any(s.name, s),
	)
}
