// Package cache keeps query results in Redis. Keys carry the snapshot
// version, so a mutation makes every older entry unreachable. Redis calls
// go through a circuit breaker: while Redis is failing, lookups are
// misses and writes are skipped without waiting on the network.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/redis"
)

const keyPrefix = "catalog:query:"

// KV is the subset of *pkgredis.Client the cache needs.
type KV interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	DeleteByPrefix(ctx context.Context, prefix string) (int64, error)
}

type QueryCache struct {
	kv      KV
	breaker *resilience.CircuitBreaker
	ttl     time.Duration
	group   singleflight.Group
	metrics *metrics.Metrics
	logger  *slog.Logger
	hits    atomic.Int64
	misses  atomic.Int64
}

func New(kv KV, ttl time.Duration, m *metrics.Metrics) *QueryCache {
	breaker := resilience.NewCircuitBreaker("redis-cache", resilience.CircuitBreakerConfig{
		FailureThreshold: 5,
		ResetTimeout:     10 * time.Second,
		IsFailure: func(err error) bool {
			return err != nil && !pkgredis.IsNilError(err)
		},
		OnStateChange: func(name string, _, to resilience.State) {
			m.SetBreakerState(name, int(to))
		},
	})
	return &QueryCache{
		kv:      kv,
		breaker: breaker,
		ttl:     ttl,
		metrics: m,
		logger:  slog.Default().With("component", "query-cache"),
	}
}

func (c *QueryCache) Get(ctx context.Context, version uint64, req query.Request) (query.Result, bool) {
	key := BuildKey(version, req)
	done, err := c.breaker.Allow()
	if err != nil {
		c.miss()
		return query.Result{}, false
	}
	data, err := c.kv.Get(ctx, key)
	done(err)
	if err != nil {
		if !pkgredis.IsNilError(err) {
			c.logger.Error("cache get failed", "key", key, "error", err)
		}
		c.miss()
		return query.Result{}, false
	}
	var result query.Result
	if err := json.Unmarshal([]byte(data), &result); err != nil {
		c.logger.Error("cache unmarshal failed", "key", key, "error", err)
		c.miss()
		return query.Result{}, false
	}
	c.hits.Add(1)
	c.metrics.RecordCache(true)
	c.logger.Debug("cache hit", "key", key, "version", version)
	return result, true
}

func (c *QueryCache) Set(ctx context.Context, version uint64, req query.Request, result query.Result) {
	key := BuildKey(version, req)
	data, err := json.Marshal(result)
	if err != nil {
		c.logger.Error("cache marshal failed", "key", key, "error", err)
		return
	}
	err = c.breaker.Execute(func() error {
		return c.kv.Set(ctx, key, data, c.ttl)
	})
	if err != nil && !errors.Is(err, resilience.ErrCircuitOpen) {
		c.logger.Error("cache set failed", "key", key, "error", err)
	}
}

// GetOrCompute returns the cached result for (version, req) or runs
// compute once per key, however many callers are waiting on it.
func (c *QueryCache) GetOrCompute(
	ctx context.Context,
	version uint64,
	req query.Request,
	compute func() (query.Result, error),
) (query.Result, bool, error) {
	if result, ok := c.Get(ctx, version, req); ok {
		return result, true, nil
	}
	key := BuildKey(version, req)
	val, err, _ := c.group.Do(key, func() (any, error) {
		result, err := compute()
		if err != nil {
			return nil, err
		}
		// A write may land between the caller reading version and compute
		// refreshing the engine; store under the version actually used.
		c.Set(ctx, result.Version, req, result)
		return result, nil
	})
	if err != nil {
		return query.Result{}, false, err
	}
	return val.(query.Result), false, nil
}

// Invalidate drops every cached query.
func (c *QueryCache) Invalidate(ctx context.Context) error {
	deleted, err := c.kv.DeleteByPrefix(ctx, keyPrefix)
	if err != nil {
		return fmt.Errorf("invalidating cache: %w", err)
	}
	c.logger.Info("cache invalidate", "keys_deleted", deleted)
	return nil
}

// Breaker exposes the Redis breaker for health reporting.
func (c *QueryCache) Breaker() *resilience.CircuitBreaker {
	return c.breaker
}

func (c *QueryCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

func (c *QueryCache) miss() {
	c.misses.Add(1)
	c.metrics.RecordCache(false)
}

// BuildKey hashes the snapshot version and the normalised request.
// Requests that differ only in word order, letter case of the term or
// cuisine, or a spelled-out "all" share a key. Repeated words only collapse
// in index mode, since fuzzy ranking counts every occurrence.
func BuildKey(version uint64, req query.Request) string {
	raw := fmt.Sprintf("v=%d|q=%s|m=%s|c=%s|p=%s|r=%g|s=%s-%s",
		version,
		normalizeTerm(req.Term, req.Match != query.MatchFuzzy),
		req.Match,
		normalizeFilter(strings.ToLower(req.Cuisine)),
		normalizeFilter(req.PriceRange),
		req.MinRating,
		req.SortField,
		req.SortDirection,
	)
	hash := sha256.Sum256([]byte(raw))
	return fmt.Sprintf("%s%x", keyPrefix, hash[:16])
}

func normalizeTerm(term string, dedupe bool) string {
	words := strings.Fields(strings.ToLower(term))
	sort.Strings(words)
	if !dedupe {
		return strings.Join(words, ",")
	}
	out := words[:0]
	for _, w := range words {
		if len(out) > 0 && out[len(out)-1] == w {
			continue
		}
		out = append(out, w)
	}
	return strings.Join(out, ",")
}

func normalizeFilter(v string) string {
	if v == query.FilterAll {
		return ""
	}
	return v
}
