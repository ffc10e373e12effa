package metrics

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/http/pprof"
	"time"
)

// ServerMux routes the scrape endpoint and, with withPprof, the runtime
// profiles under /debug/pprof/.
func ServerMux(m *Metrics, withPprof bool) *http.ServeMux {
	mux := http.NewServeMux()
	mux.Handle("GET /metrics", m.Handler())
	if withPprof {
		mux.HandleFunc("/debug/pprof/", pprof.Index)
		mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
		mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
		mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
		mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	}
	return mux
}

// StartServer serves ServerMux on its own port in the background and
// returns the server's Shutdown.
func StartServer(port int, m *Metrics, withPprof bool) (shutdown func(context.Context) error) {
	server := &http.Server{
		Addr:        fmt.Sprintf(":%d", port),
		Handler:     ServerMux(m, withPprof),
		ReadTimeout: 5 * time.Second,
		// CPU profiles stream for up to 30s by default.
		WriteTimeout: 60 * time.Second,
	}
	go func() {
		slog.Info("metrics server listening", "addr", server.Addr, "pprof", withPprof)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			slog.Error("metrics server error", "error", err)
		}
	}()
	return server.Shutdown
}
