package analytics

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"
)

// SnapshotStore persists aggregated stats in an analytics_snapshots table.
// placeholder renders the n-th bind parameter for the target database.
type SnapshotStore struct {
	db          *sql.DB
	placeholder func(n int) string
	logger      *slog.Logger
}

const snapshotSchema = `CREATE TABLE IF NOT EXISTS analytics_snapshots (
	captured_at TEXT NOT NULL,
	data        TEXT NOT NULL
)`

// NewSnapshotStore creates the table if needed.
func NewSnapshotStore(ctx context.Context, db *sql.DB, placeholder func(n int) string) (*SnapshotStore, error) {
	if _, err := db.ExecContext(ctx, snapshotSchema); err != nil {
		return nil, fmt.Errorf("creating analytics_snapshots: %w", err)
	}
	return &SnapshotStore{
		db:          db,
		placeholder: placeholder,
		logger:      slog.Default().With("component", "analytics-store"),
	}, nil
}

func (s *SnapshotStore) SaveSnapshot(ctx context.Context, stats Stats, at time.Time) error {
	data, err := json.Marshal(stats)
	if err != nil {
		return fmt.Errorf("marshaling stats: %w", err)
	}
	_, err = s.db.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO analytics_snapshots (captured_at, data) VALUES (%s, %s)",
			s.placeholder(1), s.placeholder(2)),
		at.UTC().Format(time.RFC3339Nano), string(data),
	)
	if err != nil {
		return fmt.Errorf("saving analytics snapshot: %w", err)
	}
	s.logger.Info("analytics snapshot saved",
		"total_searches", stats.TotalSearches,
		"last_version", stats.LastVersion,
	)
	return nil
}

// Latest returns the most recent snapshot, or false when none exists.
func (s *SnapshotStore) Latest(ctx context.Context) (Stats, time.Time, bool, error) {
	var capturedAt, data string
	err := s.db.QueryRowContext(ctx,
		"SELECT captured_at, data FROM analytics_snapshots ORDER BY captured_at DESC LIMIT 1",
	).Scan(&capturedAt, &data)
	if errors.Is(err, sql.ErrNoRows) {
		return Stats{}, time.Time{}, false, nil
	}
	if err != nil {
		return Stats{}, time.Time{}, false, fmt.Errorf("reading analytics snapshot: %w", err)
	}
	var stats Stats
	if err := json.Unmarshal([]byte(data), &stats); err != nil {
		return Stats{}, time.Time{}, false, fmt.Errorf("decoding analytics snapshot: %w", err)
	}
	at, err := time.Parse(time.RFC3339Nano, capturedAt)
	if err != nil {
		return Stats{}, time.Time{}, false, fmt.Errorf("parsing snapshot time: %w", err)
	}
	return stats, at, true, nil
}

// Run saves a snapshot of source every interval until ctx is cancelled.
func (s *SnapshotStore) Run(ctx context.Context, source StatsSource, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case t := <-ticker.C:
			if err := s.SaveSnapshot(ctx, source.Stats(), t); err != nil {
				s.logger.Error("periodic snapshot failed", "error", err)
			}
		}
	}
}
