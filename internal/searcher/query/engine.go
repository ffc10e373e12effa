package query

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
)

// Source provides versioned snapshots. *store.Store satisfies it.
type Source interface {
	Snapshot() ([]restaurant.Restaurant, uint64)
	Version() uint64
}

// Result is a query answer and the snapshot version it was computed from.
type Result struct {
	Version     uint64                  `json:"version"`
	Restaurants []restaurant.Restaurant `json:"restaurants"`
}

// Engine answers queries over the current snapshot of a Source. The index
// is rebuilt on the first call after the source version moves.
type Engine struct {
	source   Source
	index    *index.Index
	metrics  *metrics.Metrics
	logger   *slog.Logger
	// mu guards records and version and keeps them in step with index:
	// queries hold the read side across Run, rebuilds the write side.
	mu       sync.RWMutex
	records  []restaurant.Restaurant
	version  uint64
	built    bool
	rebuilds atomic.Int64
}

func NewEngine(source Source, m *metrics.Metrics) *Engine {
	return &Engine{
		source:  source,
		index:   index.New(),
		metrics: m,
		logger:  slog.Default().With("component", "query-engine"),
	}
}

// Query runs req against a fresh index. Records, index and the reported
// version all belong to one snapshot.
func (e *Engine) Query(_ context.Context, req Request) Result {
	e.refresh()
	e.mu.RLock()
	out := Run(e.records, e.index, req)
	version := e.version
	e.mu.RUnlock()
	e.metrics.ObserveQuery(len(out))
	return Result{Version: version, Restaurants: out}
}

// LookupByID finds a record through the id table of a fresh index.
func (e *Engine) LookupByID(_ context.Context, id int) (restaurant.Restaurant, bool) {
	e.refresh()
	e.mu.RLock()
	defer e.mu.RUnlock()
	return e.index.LookupByID(id)
}

// Rebuilds is the number of index rebuilds so far.
func (e *Engine) Rebuilds() int64 {
	return e.rebuilds.Load()
}

// Index exposes the underlying index for introspection.
func (e *Engine) Index() *index.Index {
	return e.index
}

// refresh rebuilds the index when the source has moved past it.
func (e *Engine) refresh() {
	current := e.source.Version()
	e.mu.RLock()
	fresh := e.built && e.version == current
	e.mu.RUnlock()
	if fresh {
		return
	}

	e.mu.Lock()
	defer e.mu.Unlock()
	records, version := e.source.Snapshot()
	if e.built && e.version == version {
		return
	}

	start := time.Now()
	e.index.Rebuild(records, version)
	e.records = records
	e.version = version
	e.built = true
	e.rebuilds.Add(1)

	elapsed := time.Since(start)
	e.metrics.ObserveRebuild(elapsed, e.index.TermCount())
	e.logger.Debug("index rebuilt",
		"version", version,
		"records", len(records),
		"terms", e.index.TermCount(),
		"duration", elapsed,
	)
}
