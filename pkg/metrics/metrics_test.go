package metrics

import (
	"errors"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/assert"
)

func scrape(t *testing.T, m *Metrics) string {
	t.Helper()
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, rec.Code, 200)
	return rec.Body.String()
}

func TestHelpersRecord(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.RecordMutation("create", "ok", 3)
	m.RecordMutation("create", "ok", 4)
	m.ObserveRebuild(time.Millisecond, 12)
	m.ObserveQuery(0)
	m.RecordCache(true)
	m.RecordCache(false)
	m.RecordPublish("restaurant-events", errors.New("down"))

	body := scrape(t, m)
	for _, line := range []string{
		`catalog_store_mutations_total{op="create",outcome="ok"} 2`,
		`catalog_store_records 4`,
		`catalog_index_terms 12`,
		`catalog_index_rebuilds_total 1`,
		`catalog_queries_total{result_type="zero_result"} 1`,
		`cache_hits_total 1`,
		`cache_misses_total 1`,
		`catalog_events_published_total{status="error",topic="restaurant-events"} 1`,
	} {
		assert.Assert(t, strings.Contains(body, line), line)
	}
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordMutation("delete", "ok", 0)
	m.ObservePersist("file", time.Second)
	m.ObserveQuery(3)
	m.RecordCache(true)
	m.SetBreakerState("catalog", 1)
}

func TestRegistriesAreIndependent(t *testing.T) {
	a := New(prometheus.NewRegistry())
	b := New(prometheus.NewRegistry())
	a.RecordMutation("update", "not_found", 2)

	assert.Assert(t, strings.Contains(scrape(t, a), `outcome="not_found"`))
	assert.Assert(t, !strings.Contains(scrape(t, b), `outcome="not_found"`))
}

func TestServerMux(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.RecordCache(true)

	rec := httptest.NewRecorder()
	ServerMux(m, false).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, rec.Code, 200)
	assert.Assert(t, strings.Contains(rec.Body.String(), "cache_hits_total 1"))

	rec = httptest.NewRecorder()
	ServerMux(m, false).ServeHTTP(rec, httptest.NewRequest("GET", "/debug/pprof/", nil))
	assert.Equal(t, rec.Code, 404)

	rec = httptest.NewRecorder()
	ServerMux(m, true).ServeHTTP(rec, httptest.NewRequest("GET", "/debug/pprof/", nil))
	assert.Equal(t, rec.Code, 200)
}
