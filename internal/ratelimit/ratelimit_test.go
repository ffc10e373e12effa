package ratelimit

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/assert"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
)

type fakeClock struct{ t time.Time }

func (c *fakeClock) now() time.Time { return c.t }

func TestAllowRefills(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(2, time.Minute)
	l.now = clock.now

	assert.Assert(t, l.Allow("a"))
	assert.Assert(t, l.Allow("a"))
	assert.Assert(t, !l.Allow("a"))
	assert.Assert(t, l.Allow("b"))

	clock.t = clock.t.Add(30 * time.Second)
	assert.Assert(t, l.Allow("a"))
	assert.Assert(t, !l.Allow("a"))

	l.Reset("a")
	assert.Assert(t, l.Allow("a"))
}

func TestSweepDropsIdleKeys(t *testing.T) {
	clock := &fakeClock{t: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)}
	l := New(5, time.Minute)
	l.now = clock.now
	l.Allow("old")
	clock.t = clock.t.Add(3 * time.Minute)
	l.Allow("new")
	l.sweep()
	assert.Equal(t, l.Len(), 1)
}

func TestClientKey(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.5:4321"
	assert.Equal(t, ClientKey(r), "10.0.0.5")

	r.Header.Set("X-Forwarded-For", " 203.0.113.9 , 10.0.0.1")
	assert.Equal(t, ClientKey(r), "203.0.113.9")
}

func TestMiddleware(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := Middleware(New(1, time.Hour), m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	do := func(path string) *httptest.ResponseRecorder {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, path, nil))
		return rec
	}

	assert.Equal(t, do("/restaurants").Code, http.StatusOK)
	rec := do("/restaurants")
	assert.Equal(t, rec.Code, http.StatusTooManyRequests)
	assert.Assert(t, strings.Contains(rec.Body.String(), "Too many requests"))
	assert.Equal(t, do("/health/live").Code, http.StatusOK)

	scrape := httptest.NewRecorder()
	m.Handler().ServeHTTP(scrape, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Assert(t, strings.Contains(scrape.Body.String(), "rate_limited_requests_total 1"), scrape.Body.String())
}
