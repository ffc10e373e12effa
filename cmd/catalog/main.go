package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/feed"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/handler"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/router"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
)

const (
	eventBatchSize     = 100
	eventFlushInterval = 2 * time.Second
)

func main() {
	configPath := flag.String("config", "", "path to YAML config file")
	flag.Parse()

	_ = godotenv.Load()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup("catalog", cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting restaurant catalog",
		"port", cfg.Server.Port,
		"backend", cfg.Storage.Backend,
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New(prometheus.DefaultRegisterer)
	checker := health.NewChecker(2 * time.Second)

	backend, closeDB, err := openBackend(ctx, cfg, checker)
	if err != nil {
		slog.Error("failed to open storage backend", "error", err)
		os.Exit(1)
	}
	defer closeDB()

	s, err := store.Open(ctx, backend, m)
	if err != nil {
		slog.Error("failed to open record store", "error", err)
		os.Exit(1)
	}
	defer s.Close()
	checker.Register("store", func(context.Context) health.ComponentHealth {
		return health.ComponentHealth{
			Status:  health.StatusUp,
			Message: fmt.Sprintf("%d restaurants, version %d", s.Len(), s.Version()),
		}
	})

	engine := query.NewEngine(s, m)

	var queryCache *cache.QueryCache
	if cfg.Redis.Enabled {
		redisClient, err := pkgredis.NewClient(ctx, cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, query caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			ping := health.PingCheck(redisClient.Ping, true)
			checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
				if queryCache.Breaker().State() == resilience.StateOpen {
					return health.ComponentHealth{Status: health.StatusDegraded, Message: "circuit open, cache bypassed"}
				}
				return ping(ctx)
			})
			slog.Info("query cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	var searchEvents, changeEvents *analytics.Collector
	if cfg.Kafka.Enabled {
		searchProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.SearchEvents)
		defer searchProducer.Close()
		changeProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.RestaurantEvents)
		defer changeProducer.Close()

		searchEvents = analytics.NewCollector(searchProducer, searchProducer.Topic(), eventBatchSize, eventFlushInterval, m)
		changeEvents = analytics.NewCollector(changeProducer, changeProducer.Topic(), eventBatchSize, eventFlushInterval, m)
		searchEvents.Start(ctx)
		changeEvents.Start(ctx)
		defer searchEvents.Close()
		defer changeEvents.Close()
		slog.Info("event stream enabled", "brokers", cfg.Kafka.Brokers)
	}

	tracker := analytics.NewTracker(analytics.NewAggregator(), searchEvents, changeEvents)
	s.OnChange(tracker.TrackChange)
	hub := feed.NewHub()
	s.OnChange(hub.Publish)
	if queryCache != nil {
		s.OnChange(func(c store.Change) {
			go func() {
				invCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := queryCache.Invalidate(invCtx); err != nil {
					slog.Warn("query cache invalidation failed", "version", c.Version, "error", err)
				}
			}()
		})
	}

	var limiter *ratelimit.Limiter
	if rpm := cfg.RateLimit.RequestsPerMinute; rpm > 0 {
		limiter = ratelimit.New(rpm, time.Minute)
		limiter.Start(ctx, 5*time.Minute)
	}

	if cfg.Metrics.Enabled {
		shutdownMetrics := metrics.StartServer(cfg.Metrics.Port, m, cfg.Metrics.Pprof)
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			shutdownMetrics(shutdownCtx)
		}()
	}

	chain := router.New(router.Deps{
		Handler:        handler.New(s, engine, queryCache, tracker),
		Analytics:      analytics.NewHandler(tracker),
		Feed:           hub,
		Health:         checker,
		Limiter:        limiter,
		Metrics:        m,
		AllowedOrigins: cfg.CORS.AllowedOrigins,
		RequestTimeout: cfg.Server.RequestTimeout,
	})

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("restaurant catalog listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("restaurant catalog stopped")
}
