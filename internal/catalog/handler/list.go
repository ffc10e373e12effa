package handler

import (
	"log/slog"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/sorter"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/tracing"
)

// listParams are the query parameters that turn a plain listing into a
// query over the catalog.
var listParams = []string{"q", "match", "cuisine", "priceRange", "minRating", "sort", "sortBy", "sortOrder"}

type badRequest string

func (e badRequest) Error() string { return string(e) }

// List returns every restaurant in insertion order, or the search, filter
// and sort result when any listing parameter is given.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	params := r.URL.Query()
	if !hasAny(params, listParams) {
		w.Header().Set(VersionHeader, strconv.FormatUint(h.store.Version(), 10))
		h.writeJSON(w, http.StatusOK, h.store.List(ctx))
		return
	}

	req, err := parseRequest(params)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	ctx, span := tracing.Start(ctx, "list-restaurants")
	span.Set(slog.String("term", req.Term))

	var (
		result   query.Result
		cacheHit bool
	)
	compute := func() (query.Result, error) {
		_, qspan := tracing.Start(ctx, "query")
		defer qspan.End()
		res := h.engine.Query(ctx, req)
		qspan.Set(slog.Int("results", len(res.Restaurants)))
		return res, nil
	}
	if h.cache != nil {
		result, cacheHit, err = h.cache.GetOrCompute(ctx, h.store.Version(), req, compute)
		if err != nil {
			result, _ = compute()
		}
	} else {
		result, _ = compute()
	}
	span.Set(slog.Bool("cache_hit", cacheHit))
	latency := span.End()
	span.Log(ctx)

	logger.FromContext(ctx).Info("restaurants queried",
		"term", req.Term,
		"returned", len(result.Restaurants),
		"version", result.Version,
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	if h.tracker != nil {
		h.tracker.TrackSearch(analytics.SearchEvent{
			Query:      req.Term,
			Match:      string(req.Match),
			Cuisine:    req.Cuisine,
			PriceRange: req.PriceRange,
			MinRating:  req.MinRating,
			Sort:       sortLabel(req),
			Returned:   len(result.Restaurants),
			LatencyMs:  latency.Milliseconds(),
			CacheHit:   cacheHit,
			Version:    result.Version,
			Timestamp:  time.Now().UTC(),
			RequestID:  logger.RequestID(ctx),
		})
	}

	w.Header().Set(VersionHeader, strconv.FormatUint(result.Version, 10))
	h.writeJSON(w, http.StatusOK, result.Restaurants)
}

// parseRequest builds a query request. sortBy and sortOrder override the
// matching half of sort.
func parseRequest(params url.Values) (query.Request, error) {
	req := query.Request{
		Term:       params.Get("q"),
		Match:      query.Match(params.Get("match")),
		Cuisine:    params.Get("cuisine"),
		PriceRange: params.Get("priceRange"),
	}
	if req.Match != "" && req.Match != query.MatchIndex && req.Match != query.MatchFuzzy {
		return query.Request{}, badRequest("match must be index or fuzzy")
	}
	if v := params.Get("minRating"); v != "" {
		rating, err := strconv.ParseFloat(v, 64)
		if err != nil || math.IsNaN(rating) || math.IsInf(rating, 0) {
			return query.Request{}, badRequest("minRating must be a number")
		}
		req.MinRating = rating
	}
	if v := params.Get("sort"); v != "" {
		req.SortField, req.SortDirection = sorter.ParseSortValue(v)
	}
	if v := params.Get("sortBy"); v != "" {
		req.SortField = sorter.Field(v)
	}
	if v := params.Get("sortOrder"); v != "" {
		req.SortDirection = sorter.Direction(v)
	}
	return req, nil
}

func sortLabel(req query.Request) string {
	if req.SortField == "" {
		return ""
	}
	field, dir := sorter.Normalize(req.SortField, req.SortDirection)
	return string(field) + "-" + string(dir)
}

func hasAny(params url.Values, keys []string) bool {
	for _, k := range keys {
		if params.Get(k) != "" {
			return true
		}
	}
	return false
}
