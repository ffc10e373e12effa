// Package router wires up the catalog routes and applies the middleware
// chain (RequestID → CORS → Metrics → RateLimit → Timeout).
package router

import (
	"net/http"
	"time"

	"github.com/rs/cors"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/feed"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/handler"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/ratelimit"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/middleware"
)

// Deps are the pieces the router mounts. Feed, Limiter and Metrics may be nil.
type Deps struct {
	Handler        *handler.Handler
	Analytics      *analytics.Handler
	Feed           *feed.Hub
	Health         *health.Checker
	Limiter        *ratelimit.Limiter
	Metrics        *metrics.Metrics
	AllowedOrigins []string
	RequestTimeout time.Duration
}

// prefixes the record routes are served under.
var prefixes = []string{"/restaurants", "/api/restaurants"}

// New builds the catalog HTTP handler.
//
// Route table (each record route also under /api/restaurants):
//
//	GET    /restaurants            → list, or query with q/cuisine/priceRange/minRating/sort
//	POST   /restaurants            → create
//	GET    /restaurants/{id}       → get
//	PUT    /restaurants/{id}       → partial update
//	DELETE /restaurants/{id}       → delete
//	GET    /api/sort-options       → sort dropdown choices
//	GET    /api/analytics          → aggregated search and mutation stats
//	GET    /api/test               → liveness message
//	GET    /api/events             → websocket stream of restaurant changes
//	GET    /health/live            → liveness probe
//	GET    /health/ready           → readiness probe
func New(d Deps) http.Handler {
	mux := http.NewServeMux()
	h := d.Handler

	for _, p := range prefixes {
		mux.HandleFunc("GET "+p, h.List)
		mux.HandleFunc("POST "+p, h.Create)
		mux.HandleFunc("GET "+p+"/{id}", h.Get)
		mux.HandleFunc("PUT "+p+"/{id}", h.Update)
		mux.HandleFunc("DELETE "+p+"/{id}", h.Delete)
	}

	mux.HandleFunc("GET /api/sort-options", h.SortOptions)
	mux.HandleFunc("GET /api/test", h.Ping)
	if d.Analytics != nil {
		mux.HandleFunc("GET /api/analytics", d.Analytics.Stats)
	}
	if d.Health != nil {
		mux.HandleFunc("GET /health/live", d.Health.LiveHandler())
		mux.HandleFunc("GET /health/ready", d.Health.ReadyHandler())
	}

	origins := d.AllowedOrigins
	if len(origins) == 0 {
		origins = []string{"*"}
	}
	c := cors.New(cors.Options{
		AllowedOrigins: origins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Origin", "X-Requested-With", "Content-Type", "Accept", middleware.RequestIDHeader},
		ExposedHeaders: []string{middleware.RequestIDHeader, handler.VersionHeader},
		MaxAge:         86400,
	})

	// The feed is long-lived, so it sits beside the timeout layer.
	root := http.NewServeMux()
	root.Handle("/", middleware.Timeout(d.RequestTimeout)(mux))
	if d.Feed != nil {
		root.Handle("GET /api/events", d.Feed)
	}

	// Middleware chain, applied inside-out:
	// request → RequestID → CORS → Metrics → RateLimit → Timeout → mux
	var chain http.Handler = root
	chain = ratelimit.Middleware(d.Limiter, d.Metrics)(chain)
	chain = middleware.Metrics(d.Metrics)(chain)
	chain = c.Handler(chain)
	chain = middleware.RequestID(chain)

	return chain
}
