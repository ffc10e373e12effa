package analytics

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
)

// StatsSource is satisfied by *Aggregator and *Tracker.
type StatsSource interface {
	Stats() Stats
}

// SnapshotReader is satisfied by *SnapshotStore.
type SnapshotReader interface {
	Latest(ctx context.Context) (Stats, time.Time, bool, error)
}

type Handler struct {
	source    StatsSource
	snapshots SnapshotReader
}

func NewHandler(source StatsSource) *Handler {
	return &Handler{source: source}
}

// WithSnapshots enables the Snapshot endpoint.
func (h *Handler) WithSnapshots(r SnapshotReader) *Handler {
	h.snapshots = r
	return h
}

// Stats serves the live aggregate. ?top=N trims the ranked lists to N
// entries.
func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	stats := h.source.Stats()
	if raw := r.URL.Query().Get("top"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			h.write(w, r, http.StatusBadRequest, map[string]string{"message": "top must be a non-negative integer"})
			return
		}
		stats.TopQueries = limit(stats.TopQueries, n)
		stats.ZeroResultQueries = limit(stats.ZeroResultQueries, n)
		stats.TopCuisines = limit(stats.TopCuisines, n)
	}
	h.write(w, r, http.StatusOK, stats)
}

type snapshotResponse struct {
	CapturedAt time.Time `json:"captured_at"`
	Stats      Stats     `json:"stats"`
}

// Snapshot serves the most recently persisted aggregate.
func (h *Handler) Snapshot(w http.ResponseWriter, r *http.Request) {
	if h.snapshots == nil {
		h.write(w, r, http.StatusNotFound, map[string]string{"message": "snapshots are not enabled"})
		return
	}
	stats, at, ok, err := h.snapshots.Latest(r.Context())
	switch {
	case err != nil:
		logger.FromContext(r.Context()).Error("reading snapshot", "error", err)
		h.write(w, r, http.StatusInternalServerError, map[string]string{"message": "Error reading snapshot"})
	case !ok:
		h.write(w, r, http.StatusNotFound, map[string]string{"message": "no snapshot saved yet"})
	default:
		h.write(w, r, http.StatusOK, snapshotResponse{CapturedAt: at, Stats: stats})
	}
}

func (h *Handler) write(w http.ResponseWriter, r *http.Request, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logger.FromContext(r.Context()).Error("failed to write analytics response", "component", "analytics-handler", "error", err)
	}
}

func limit(list []QueryCount, n int) []QueryCount {
	if len(list) > n {
		return list[:n]
	}
	return list
}
