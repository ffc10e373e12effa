package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/postgres"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/sqlite"
)

// openBackend builds the configured persistence backend. The returned
// close function releases any database handle it opened.
func openBackend(ctx context.Context, cfg *config.Config, checker *health.Checker) (store.Backend, func(), error) {
	noop := func() {}
	switch cfg.Storage.Backend {
	case config.BackendMemory:
		slog.Warn("memory backend selected, changes are lost on restart")
		return store.NewMemoryBackend(), noop, nil

	case config.BackendFile:
		slog.Info("file backend", "path", cfg.Storage.FilePath)
		return store.NewFileBackend(cfg.Storage.FilePath), noop, nil

	case config.BackendSQLite:
		db, err := sqlite.Open(ctx, cfg.Storage.SQLitePath, sqlite.WithMkdirAll())
		if err != nil {
			return nil, noop, err
		}
		backend, err := store.NewSQLBackend(ctx, db, store.SQLite)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		checker.Register("sqlite", health.PingCheck(db.Ping, false))
		slog.Info("sqlite backend", "path", db.Path())
		return backend, func() { db.Close() }, nil

	case config.BackendPostgres:
		db, err := postgres.New(ctx, cfg.Postgres)
		if err != nil {
			return nil, noop, err
		}
		backend, err := store.NewSQLBackend(ctx, db, store.Postgres)
		if err != nil {
			db.Close()
			return nil, noop, err
		}
		checker.Register("postgres", health.PingCheck(db.Ping, false))
		slog.Info("postgres backend", "host", cfg.Postgres.Host, "database", cfg.Postgres.Database)
		return backend, func() { db.Close() }, nil
	}
	return nil, noop, fmt.Errorf("unknown storage backend %q", cfg.Storage.Backend)
}
