package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/sqlite"
)

type recordingPublisher struct {
	mu      sync.Mutex
	batches [][]kafka.Event
	fail    error
}

func (p *recordingPublisher) PublishBatch(_ context.Context, events []kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.fail != nil {
		return p.fail
	}
	p.batches = append(p.batches, events)
	return nil
}

func (p *recordingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	n := 0
	for _, b := range p.batches {
		n += len(b)
	}
	return n
}

func TestAggregatorStats(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "Sushi", Returned: 1, LatencyMs: 4, CacheHit: true, Cuisine: "Japanese", Version: 2})
	agg.RecordSearch(SearchEvent{Query: "sushi ", Returned: 1, LatencyMs: 8})
	agg.RecordSearch(SearchEvent{Query: "tacos", Returned: 0, LatencyMs: 12, Cuisine: "all"})
	agg.RecordRestaurant(RestaurantEvent{Type: EventRestaurantCreated, Version: 5})
	agg.RecordRestaurant(RestaurantEvent{Type: EventRestaurantDeleted, Version: 6})

	s := agg.Stats()
	assert.Equal(t, s.TotalSearches, int64(3))
	assert.Equal(t, s.CacheHits, int64(1))
	assert.Equal(t, s.CacheMisses, int64(2))
	assert.Equal(t, s.ZeroResultCount, int64(1))
	assert.Equal(t, s.AvgLatencyMs, 8.0)
	assert.Equal(t, s.P50LatencyMs, int64(8))
	assert.DeepEqual(t, s.TopQueries, []QueryCount{{Query: "sushi", Count: 2}, {Query: "tacos", Count: 1}})
	assert.DeepEqual(t, s.ZeroResultQueries, []QueryCount{{Query: "tacos", Count: 1}})
	assert.DeepEqual(t, s.TopCuisines, []QueryCount{{Query: "japanese", Count: 1}})
	assert.Equal(t, s.Created, int64(1))
	assert.Equal(t, s.Deleted, int64(1))
	assert.Equal(t, s.LastVersion, uint64(6))
}

func TestLatencyWindowIsBounded(t *testing.T) {
	agg := NewAggregator()
	for i := 0; i < maxLatencySamples+50; i++ {
		agg.RecordSearch(SearchEvent{Query: "x", Returned: 1, LatencyMs: int64(i)})
	}
	assert.Equal(t, len(agg.latencies), maxLatencySamples)
	assert.Equal(t, agg.Stats().TotalSearches, int64(maxLatencySamples+50))
}

func TestHandleEventDispatchesByType(t *testing.T) {
	agg := NewAggregator()
	handle := HandleEvent(agg)
	ctx := context.Background()

	search, _ := json.Marshal(SearchEvent{Type: EventZeroResult, Query: "ramen"})
	created, _ := json.Marshal(RestaurantEvent{Type: EventRestaurantCreated, RestaurantID: 3, Version: 1})
	untyped, _ := json.Marshal(RestaurantEvent{RestaurantID: 4, Version: 2})

	assert.NilError(t, handle(ctx, kafka.Message{Key: []byte("r1"), Value: search}))
	assert.NilError(t, handle(ctx, kafka.Message{Key: []byte("3"), Value: created, Type: string(EventRestaurantCreated)}))
	// The header wins over the body.
	assert.NilError(t, handle(ctx, kafka.Message{Key: []byte("4"), Value: untyped, Type: string(EventRestaurantDeleted)}))
	assert.NilError(t, handle(ctx, kafka.Message{Value: []byte(`{"type":"mystery"}`)}))
	assert.NilError(t, handle(ctx, kafka.Message{Value: []byte(`not json`)}))
	assert.NilError(t, handle(ctx, kafka.Message{Value: []byte(`not json`), Type: string(EventSearch)}))

	s := agg.Stats()
	assert.Equal(t, s.TotalSearches, int64(1))
	assert.Equal(t, s.ZeroResultCount, int64(1))
	assert.Equal(t, s.Created, int64(1))
	assert.Equal(t, s.Deleted, int64(1))
	assert.Equal(t, s.LastVersion, uint64(2))
}

func TestEventsDescribeThemselves(t *testing.T) {
	var typed kafka.Typed = SearchEvent{Type: EventSearch}
	assert.Equal(t, typed.EventType(), "search")
	var traced kafka.Traced = SearchEvent{RequestID: "req-1"}
	assert.Equal(t, traced.TraceID(), "req-1")
	typed = RestaurantEvent{Type: EventRestaurantUpdated}
	assert.Equal(t, typed.EventType(), "restaurant_updated")
}

func TestCollectorFlushesOnBatchSize(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, "search-events", 2, time.Hour, nil)
	ctx, cancel := context.WithCancel(context.Background())
	c.Start(ctx)

	c.Track("a", SearchEvent{Query: "one"})
	c.Track("b", SearchEvent{Query: "two"})

	deadline := time.Now().Add(2 * time.Second)
	for pub.count() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	assert.Equal(t, pub.count(), 2)

	c.Track("c", SearchEvent{Query: "three"})
	cancel()
	c.Close()
	assert.Equal(t, pub.count(), 3)
	assert.Equal(t, c.BufferLen(), 0)
}

func TestCollectorRequeuesOnFailure(t *testing.T) {
	pub := &recordingPublisher{fail: errors.New("broker down")}
	c := NewCollector(pub, "restaurant-events", 2, time.Hour, nil)

	for i := 0; i < 10; i++ {
		c.Track("k", i)
		c.flush(context.Background())
	}
	assert.Equal(t, c.BufferLen(), 6)
	assert.Equal(t, pub.count(), 0)
}

func TestTrackerForwardsStoreChanges(t *testing.T) {
	ctx := context.Background()
	pub := &recordingPublisher{}
	changes := NewCollector(pub, "restaurant-events", 100, time.Hour, nil)
	tracker := NewTracker(NewAggregator(), nil, changes)

	s, err := store.Open(ctx, store.NewMemoryBackend(), nil)
	assert.NilError(t, err)
	s.OnChange(tracker.TrackChange)

	_, err = s.Create(ctx, restaurant.CreateInput{Name: "Pho", Type: "Vietnamese", Location: "Houston"})
	assert.NilError(t, err)
	assert.NilError(t, s.Delete(ctx, 1))

	stats := tracker.Stats()
	assert.Equal(t, stats.Created, int64(1))
	assert.Equal(t, stats.Deleted, int64(1))
	assert.Equal(t, stats.LastVersion, uint64(2))
	assert.Equal(t, changes.BufferLen(), 2)

	tracker.TrackSearch(SearchEvent{Query: "pho", Returned: 0})
	assert.Equal(t, tracker.Stats().ZeroResultCount, int64(1))
}

func TestHandlerServesStats(t *testing.T) {
	agg := NewAggregator()
	agg.RecordSearch(SearchEvent{Query: "pizza", Returned: 3})

	rec := httptest.NewRecorder()
	NewHandler(agg).Stats(rec, httptest.NewRequest("GET", "/api/analytics", nil))
	assert.Equal(t, rec.Code, 200)

	var got Stats
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, got.TotalSearches, int64(1))
}

func TestSnapshotStoreRoundTrip(t *testing.T) {
	ctx := context.Background()
	db := sqlite.OpenMemory(t)
	ss, err := NewSnapshotStore(ctx, db.DB, store.SQLite.Placeholder)
	assert.NilError(t, err)

	_, _, ok, err := ss.Latest(ctx)
	assert.NilError(t, err)
	assert.Assert(t, !ok)

	first := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	assert.NilError(t, ss.SaveSnapshot(ctx, Stats{TotalSearches: 1}, first))
	assert.NilError(t, ss.SaveSnapshot(ctx, Stats{TotalSearches: 7}, first.Add(time.Minute)))

	stats, at, ok, err := ss.Latest(ctx)
	assert.NilError(t, err)
	assert.Assert(t, ok)
	assert.Equal(t, stats.TotalSearches, int64(7))
	assert.Assert(t, at.Equal(first.Add(time.Minute)))
}

func TestHandlerTrimsTopLists(t *testing.T) {
	agg := NewAggregator()
	for _, q := range []string{"pizza", "pizza", "sushi", "tacos"} {
		agg.RecordSearch(SearchEvent{Query: q, Returned: 1})
	}
	h := NewHandler(agg)

	rec := httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest("GET", "/api/analytics?top=1", nil))
	assert.Equal(t, rec.Code, 200)
	var got Stats
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.DeepEqual(t, got.TopQueries, []QueryCount{{Query: "pizza", Count: 2}})

	rec = httptest.NewRecorder()
	h.Stats(rec, httptest.NewRequest("GET", "/api/analytics?top=-2", nil))
	assert.Equal(t, rec.Code, 400)
}

func TestHandlerServesLatestSnapshot(t *testing.T) {
	ctx := context.Background()
	db := sqlite.OpenMemory(t)
	ss, err := NewSnapshotStore(ctx, db.DB, store.SQLite.Placeholder)
	assert.NilError(t, err)
	h := NewHandler(NewAggregator()).WithSnapshots(ss)

	rec := httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest("GET", "/api/analytics/snapshot", nil))
	assert.Equal(t, rec.Code, 404)

	at := time.Date(2026, 5, 2, 8, 30, 0, 0, time.UTC)
	assert.NilError(t, ss.SaveSnapshot(ctx, Stats{TotalSearches: 12, LastVersion: 4}, at))

	rec = httptest.NewRecorder()
	h.Snapshot(rec, httptest.NewRequest("GET", "/api/analytics/snapshot", nil))
	assert.Equal(t, rec.Code, 200)
	var got snapshotResponse
	assert.NilError(t, json.NewDecoder(rec.Body).Decode(&got))
	assert.Equal(t, got.Stats.TotalSearches, int64(12))
	assert.Assert(t, got.CapturedAt.Equal(at))

	rec = httptest.NewRecorder()
	NewHandler(NewAggregator()).Snapshot(rec, httptest.NewRequest("GET", "/api/analytics/snapshot", nil))
	assert.Equal(t, rec.Code, 404)
}
