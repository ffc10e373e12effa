// Command eventlog tails the catalog's restaurant and search event topics.
//
// It aggregates both streams in memory, saves a stats snapshot every
// interval to SQLite (or PostgreSQL when the catalog itself runs on it),
// and serves the live aggregate at GET /api/analytics and the last saved
// one at GET /api/analytics/snapshot.
//
// Usage:
//
//	go run ./cmd/eventlog [-config catalog.yaml] [-port 5060] [-from-start]
package main

import (
	"context"
	"database/sql"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/sqlite"
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	port := flag.Int("port", 5060, "HTTP port for the stats endpoint")
	fromStart := flag.Bool("from-start", false, "replay topics from the first message when the group has no offsets")
	snapshotPath := flag.String("snapshot-db", "data/analytics.db", "SQLite file for stats snapshots")
	interval := flag.Duration("snapshot-interval", time.Minute, "time between stats snapshots")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Setup("eventlog", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting event log",
		"port", *port,
		"restaurant_topic", cfg.Kafka.Topics.RestaurantEvents,
		"search_topic", cfg.Kafka.Topics.SearchEvents,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	checker := health.NewChecker(2 * time.Second)
	db, placeholder, closeDB, err := openSnapshotDB(ctx, cfg, *snapshotPath, checker)
	if err != nil {
		slog.Error("failed to open snapshot database", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	snapshots, err := analytics.NewSnapshotStore(ctx, db, placeholder)
	if err != nil {
		slog.Error("failed to prepare snapshot store", "error", err)
		os.Exit(1)
	}
	if last, at, ok, err := snapshots.Latest(ctx); err != nil {
		slog.Warn("reading last snapshot failed", "error", err)
	} else if ok {
		slog.Info("last snapshot", "captured_at", at, "total_searches", last.TotalSearches, "last_version", last.LastVersion)
	}

	agg := analytics.NewAggregator()
	handle := analytics.HandleEvent(agg)
	consumers := []*kafka.Consumer{
		kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RestaurantEvents, *fromStart, handle),
		kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents, *fromStart, handle),
	}

	for _, c := range consumers {
		topic := c.Topic()
		checker.Register("consumer:"+topic, func(context.Context) health.ComponentHealth {
			processed, dropped := c.Counts()
			status := health.StatusUp
			if dropped > 0 {
				status = health.StatusDegraded
			}
			return health.ComponentHealth{
				Status:  status,
				Message: fmt.Sprintf("processed=%d dropped=%d", processed, dropped),
			}
		})
	}

	mux := http.NewServeMux()
	stats := analytics.NewHandler(agg).WithSnapshots(snapshots)
	mux.HandleFunc("GET /api/analytics", stats.Stats)
	mux.HandleFunc("GET /api/analytics/snapshot", stats.Snapshot)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", *port),
		Handler:      middleware.RequestID(mux),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, c := range consumers {
		g.Go(func() error { return c.Start(gctx) })
	}
	g.Go(func() error {
		snapshots.Run(gctx, agg, *interval)
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})
	g.Go(func() error {
		slog.Info("event log listening", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		slog.Error("event log stopped with error", "error", err)
	}

	final, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := snapshots.SaveSnapshot(final, agg.Stats(), time.Now()); err != nil {
		slog.Error("final snapshot failed", "error", err)
	}
	slog.Info("event log stopped")
}

func openSnapshotDB(ctx context.Context, cfg *config.Config, path string, checker *health.Checker) (*sql.DB, func(int) string, func(), error) {
	if cfg.Storage.Backend == config.BackendPostgres {
		pg, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, nil, nil, err
		}
		checker.Register("postgres", health.PingCheck(pg.Ping, false))
		return pg.DB, store.Postgres.Placeholder, func() { pg.Close() }, nil
	}
	lite, err := sqlite.Open(ctx, path, sqlite.WithMkdirAll())
	if err != nil {
		return nil, nil, nil, err
	}
	checker.Register("sqlite", health.PingCheck(lite.Ping, false))
	return lite.DB, store.SQLite.Placeholder, func() { lite.Close() }, nil
}
