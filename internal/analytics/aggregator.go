package analytics

import (
	"context"
	"encoding/json"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/kafka"
)

// maxLatencySamples bounds the latency window used for percentiles.
const maxLatencySamples = 10000

type Stats struct {
	TotalSearches     int64        `json:"total_searches"`
	CacheHits         int64        `json:"cache_hits"`
	CacheMisses       int64        `json:"cache_misses"`
	ZeroResultCount   int64        `json:"zero_result_count"`
	AvgLatencyMs      float64      `json:"avg_latency_ms"`
	P50LatencyMs      int64        `json:"p50_latency_ms"`
	P95LatencyMs      int64        `json:"p95_latency_ms"`
	P99LatencyMs      int64        `json:"p99_latency_ms"`
	TopQueries        []QueryCount `json:"top_queries"`
	ZeroResultQueries []QueryCount `json:"zero_result_queries"`
	TopCuisines       []QueryCount `json:"top_cuisines"`
	Created           int64        `json:"restaurants_created"`
	Updated           int64        `json:"restaurants_updated"`
	Deleted           int64        `json:"restaurants_deleted"`
	LastVersion       uint64       `json:"last_version"`
	QueriesPerMinute  float64      `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator keeps running statistics over search and restaurant events.
type Aggregator struct {
	mu                sync.RWMutex
	stats             Stats
	latencies         []int64
	next              int
	queryCounts       map[string]int64
	zeroResultQueries map[string]int64
	cuisineCounts     map[string]int64
	startTime         time.Time
	now               func() time.Time
	logger            *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:         make([]int64, 0, 1024),
		queryCounts:       make(map[string]int64),
		zeroResultQueries: make(map[string]int64),
		cuisineCounts:     make(map[string]int64),
		startTime:         time.Now(),
		now:               time.Now,
		logger:            slog.Default().With("component", "analytics-aggregator"),
	}
}

func (a *Aggregator) RecordSearch(event SearchEvent) {
	query := strings.ToLower(strings.TrimSpace(event.Query))

	a.mu.Lock()
	defer a.mu.Unlock()

	a.stats.TotalSearches++
	if event.CacheHit {
		a.stats.CacheHits++
	} else {
		a.stats.CacheMisses++
	}
	if event.Returned == 0 {
		a.stats.ZeroResultCount++
		a.zeroResultQueries[query]++
	}
	if query != "" {
		a.queryCounts[query]++
	}
	if c := strings.ToLower(event.Cuisine); c != "" && c != "all" {
		a.cuisineCounts[c]++
	}
	if event.Version > a.stats.LastVersion {
		a.stats.LastVersion = event.Version
	}

	if len(a.latencies) < maxLatencySamples {
		a.latencies = append(a.latencies, event.LatencyMs)
	} else {
		a.latencies[a.next] = event.LatencyMs
		a.next = (a.next + 1) % maxLatencySamples
	}
}

func (a *Aggregator) RecordRestaurant(event RestaurantEvent) {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch event.Type {
	case EventRestaurantCreated:
		a.stats.Created++
	case EventRestaurantUpdated:
		a.stats.Updated++
	case EventRestaurantDeleted:
		a.stats.Deleted++
	}
	if event.Version > a.stats.LastVersion {
		a.stats.LastVersion = event.Version
	}
}

func (a *Aggregator) Stats() Stats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := a.stats
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.ZeroResultQueries = topN(a.zeroResultQueries, 10)
	stats.TopCuisines = topN(a.cuisineCounts, 10)
	if elapsed := a.now().Sub(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

// HandleEvent feeds events read from the stream into agg. The event-type
// header picks the decoder; messages from producers that did not set it
// fall back to the type field of the body. Unknown or undecodable events
// are logged and skipped so the consumer keeps committing.
func HandleEvent(agg *Aggregator) kafka.MessageHandler {
	return func(_ context.Context, msg kafka.Message) error {
		eventType := EventType(msg.Type)
		if eventType == "" {
			var head struct {
				Type EventType `json:"type"`
			}
			if err := json.Unmarshal(msg.Value, &head); err != nil {
				agg.logger.Error("failed to decode analytics event", "key", string(msg.Key), "error", err)
				return nil
			}
			eventType = head.Type
		}
		switch eventType {
		case EventSearch, EventZeroResult:
			event, err := kafka.DecodeJSON[SearchEvent](msg.Value)
			if err != nil {
				agg.logger.Error("bad search event", "key", string(msg.Key), "error", err)
				return nil
			}
			event.Type = eventType
			agg.RecordSearch(event)
		case EventRestaurantCreated, EventRestaurantUpdated, EventRestaurantDeleted:
			event, err := kafka.DecodeJSON[RestaurantEvent](msg.Value)
			if err != nil {
				agg.logger.Error("bad restaurant event", "key", string(msg.Key), "error", err)
				return nil
			}
			event.Type = eventType
			agg.RecordRestaurant(event)
		default:
			agg.logger.Warn("skipping unknown analytics event", "type", eventType, "topic", msg.Topic)
		}
		return nil
	}
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
