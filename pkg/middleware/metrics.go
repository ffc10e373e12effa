package middleware

import (
	"bufio"
	"errors"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
)

// Metrics counts requests by route and status and observes their latency.
// Upgraded connections are counted but not timed, since they stay open for
// the life of the subscriber. A nil m disables recording.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			m.HTTPRequestsInFlight.Inc()
			defer m.HTTPRequestsInFlight.Dec()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r)

			route := routeLabel(r.URL.Path)
			status := rec.Status()
			m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status)).Inc()
			if status != http.StatusSwitchingProtocols {
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
			}
		})
	}
}

var knownRoots = map[string]bool{
	"restaurants":  true,
	"sort-options": true,
	"analytics":    true,
	"events":       true,
	"test":         true,
	"health":       true,
}

// routeLabel folds /api/restaurants onto /restaurants, replaces numeric
// segments with {id} and maps anything outside the route table to "other".
func routeLabel(path string) string {
	segments := strings.Split(strings.Trim(path, "/"), "/")
	if segments[0] == "api" && len(segments) > 1 && segments[1] == "restaurants" {
		segments = segments[1:]
	}
	root := segments[0]
	if root == "api" && len(segments) > 1 {
		root = segments[1]
	}
	if root == "" {
		return "/"
	}
	if !knownRoots[root] {
		return "other"
	}
	for i, seg := range segments {
		if _, err := strconv.Atoi(seg); err == nil {
			segments[i] = "{id}"
		}
	}
	return "/" + strings.Join(segments, "/")
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

// Status is 200 when the handler wrote nothing.
func (r *statusRecorder) Status() int {
	if r.status == 0 {
		return http.StatusOK
	}
	return r.status
}

func (r *statusRecorder) WriteHeader(code int) {
	if r.status == 0 {
		r.status = code
	}
	r.ResponseWriter.WriteHeader(code)
}

func (r *statusRecorder) Write(b []byte) (int, error) {
	if r.status == 0 {
		r.status = http.StatusOK
	}
	return r.ResponseWriter.Write(b)
}

// Hijack lets websocket upgrades through.
func (r *statusRecorder) Hijack() (net.Conn, *bufio.ReadWriter, error) {
	hj, ok := r.ResponseWriter.(http.Hijacker)
	if !ok {
		return nil, nil, errors.New("response writer does not support hijacking")
	}
	if r.status == 0 {
		r.status = http.StatusSwitchingProtocols
	}
	return hj.Hijack()
}

func (r *statusRecorder) Unwrap() http.ResponseWriter {
	return r.ResponseWriter
}
