package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gotest.tools/assert"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
)

func TestRequestIDGeneratesAndPropagates(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/restaurants", nil))
	assert.Assert(t, seen != "")
	assert.Equal(t, rec.Header().Get(RequestIDHeader), seen)

	req := httptest.NewRequest(http.MethodGet, "/restaurants", nil)
	req.Header.Set(RequestIDHeader, "abc-123")
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, seen, "abc-123")
	assert.Equal(t, rec.Header().Get(RequestIDHeader), "abc-123")
}

func TestRequestIDRejectsOversizedHeader(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = GetRequestID(r.Context())
	}))
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set(RequestIDHeader, strings.Repeat("x", maxRequestIDLength+1))
	h.ServeHTTP(httptest.NewRecorder(), req)
	assert.Equal(t, len(seen), 36)
}

func TestRouteLabel(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"/restaurants", "/restaurants"},
		{"/restaurants/12", "/restaurants/{id}"},
		{"/api/restaurants/7/", "/restaurants/{id}"},
		{"/api/sort-options", "/api/sort-options"},
		{"/api/events", "/api/events"},
		{"/health/ready", "/health/ready"},
		{"/wp-login.php", "other"},
		{"/api/unknown/3", "other"},
		{"/", "/"},
	}
	for _, tt := range tests {
		assert.Equal(t, routeLabel(tt.in), tt.want, tt.in)
	}
}

func TestMetricsRecordsStatus(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/restaurants/99", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Assert(t, strings.Contains(body, `path="/restaurants/{id}"`), body)
	assert.Assert(t, strings.Contains(body, `status="404"`), body)
}

func TestMetricsCountsUpgradesWithoutTiming(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	h := Metrics(m)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusSwitchingProtocols)
	}))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/api/events", nil))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body := rec.Body.String()
	assert.Assert(t, strings.Contains(body, `status="101"`), body)
	assert.Assert(t, !strings.Contains(body, `http_request_duration_seconds_count{method="GET",path="/api/events"}`), body)
}

func TestMetricsNilIsPassthrough(t *testing.T) {
	called := false
	h := Metrics(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Assert(t, called)
}

func TestTimeoutWritesGatewayTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)
	h := Timeout(20 * time.Millisecond)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
		<-release
		w.Write([]byte("late"))
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slow", nil))
	assert.Equal(t, rec.Code, http.StatusGatewayTimeout)
	body, _ := io.ReadAll(rec.Body)
	assert.Equal(t, string(body), timeoutBody)
}

func TestTimeoutPassesFastResponses(t *testing.T) {
	h := Timeout(time.Second)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{}`))
	}))
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/restaurants", nil))
	assert.Equal(t, rec.Code, http.StatusCreated)
	assert.Equal(t, rec.Header().Get("Content-Type"), "application/json")
	assert.Equal(t, rec.Body.String(), `{}`)
}
