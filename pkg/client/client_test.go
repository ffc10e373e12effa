package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"gotest.tools/assert"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/handler"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/catalog/router"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
)

func newCatalogServer(t *testing.T) *httptest.Server {
	t.Helper()
	s, err := store.Open(context.Background(), store.NewMemoryBackend(), nil)
	assert.NilError(t, err)
	srv := httptest.NewServer(router.New(router.Deps{
		Handler: handler.New(s, query.NewEngine(s, nil), nil, nil),
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestClientCRUD(t *testing.T) {
	ctx := context.Background()
	c := New(newCatalogServer(t).URL + "/api")

	all, err := c.List(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(all), 2)

	created, err := c.Create(ctx, restaurant.CreateInput{
		Name: "Curry House", Type: "Indian", Location: "Chicago", Rating: restaurant.RatingOf(4.1),
	})
	assert.NilError(t, err)
	assert.Equal(t, created.ID, 3)
	assert.Equal(t, created.PriceRange, "$$")

	updated, err := c.UpdateRating(ctx, created.ID, 4.9)
	assert.NilError(t, err)
	assert.Equal(t, updated.Rating, 4.9)
	assert.Equal(t, updated.Name, "Curry House")

	got, err := c.Get(ctx, created.ID)
	assert.NilError(t, err)
	assert.Equal(t, got.Rating, 4.9)

	msg, err := c.Delete(ctx, created.ID)
	assert.NilError(t, err)
	assert.Equal(t, msg, "Restaurant deleted successfully")

	_, err = c.Get(ctx, created.ID)
	assert.Assert(t, errors.Is(err, apperrors.ErrNotFound))
	var appErr *apperrors.AppError
	assert.Assert(t, errors.As(err, &appErr))
	assert.Equal(t, appErr.Message, "Restaurant not found")
	assert.Equal(t, appErr.StatusCode, http.StatusNotFound)
}

func TestClientSearchAndOptions(t *testing.T) {
	ctx := context.Background()
	c := New(newCatalogServer(t).URL + "/api")

	got, err := c.Search(ctx, SearchParams{Sort: "rating-asc"})
	assert.NilError(t, err)
	assert.Equal(t, got[0].Name, "Trattoria Bella")

	got, err = c.Search(ctx, SearchParams{Term: "sushi", MinRating: 4})
	assert.NilError(t, err)
	assert.Equal(t, len(got), 1)
	assert.Equal(t, got[0].Name, "Sakura Sushi")

	opts, err := c.SortOptions(ctx)
	assert.NilError(t, err)
	assert.Equal(t, len(opts), 10)
}

func TestClientValidationError(t *testing.T) {
	c := New(newCatalogServer(t).URL + "/api")
	_, err := c.Create(context.Background(), restaurant.CreateInput{Name: "No Location", Type: "Cafe"})
	assert.Assert(t, errors.Is(err, apperrors.ErrValidation))
	assert.ErrorContains(t, err, "Name, type, and location are required")
}

func TestClassify(t *testing.T) {
	tests := []struct {
		status int
		body   string
		want   error
		msg    string
	}{
		{http.StatusBadRequest, `{"message":"bad"}`, apperrors.ErrValidation, "bad"},
		{http.StatusNotFound, ``, apperrors.ErrNotFound, "HTTP 404"},
		{http.StatusTooManyRequests, `{}`, apperrors.ErrRateLimited, "HTTP 429"},
		{http.StatusInternalServerError, `{"message":"Error creating restaurant"}`, apperrors.ErrStorage, "Error creating restaurant"},
		{http.StatusGatewayTimeout, `{"message":"request timeout"}`, apperrors.ErrTimeout, "request timeout"},
		{http.StatusTeapot, `oops`, apperrors.ErrUnknown, "HTTP 418"},
	}
	for _, tt := range tests {
		err := classify(tt.status, []byte(tt.body))
		assert.Assert(t, errors.Is(err, tt.want), tt.status)
		var appErr *apperrors.AppError
		assert.Assert(t, errors.As(err, &appErr))
		assert.Equal(t, appErr.Message, tt.msg)
	}
}

func TestNetworkErrorIsClassified(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	_, err := New(url).List(context.Background())
	assert.Assert(t, errors.Is(err, apperrors.ErrNetwork), err)
}

func TestRetryAndBreaker(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL,
		WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}),
		WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 5}, nil),
	)
	got, err := c.List(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, len(got), 0)
	assert.Equal(t, calls.Load(), int32(3))
}

func TestPostIsNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond}))
	_, err := c.Create(context.Background(), restaurant.CreateInput{Name: "a", Type: "b", Location: "c"})
	assert.Assert(t, errors.Is(err, apperrors.ErrTimeout))
	assert.Equal(t, calls.Load(), int32(1))
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, WithCircuitBreaker(resilience.CircuitBreakerConfig{FailureThreshold: 2, ResetTimeout: time.Hour}, nil))
	for i := 0; i < 2; i++ {
		_, err := c.List(context.Background())
		assert.Assert(t, errors.Is(err, apperrors.ErrStorage))
	}
	_, err := c.List(context.Background())
	assert.Assert(t, errors.Is(err, resilience.ErrCircuitOpen))
	assert.Equal(t, calls.Load(), int32(2))
}

func TestRetryHonorsRetryAfter(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "60")
		w.WriteHeader(http.StatusTooManyRequests)
		w.Write([]byte(`{"message":"Too many requests"}`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(resilience.RetryConfig{MaxAttempts: 3, InitialDelay: time.Millisecond, MaxDelay: time.Second}))
	_, err := c.List(context.Background())
	assert.Assert(t, errors.Is(err, apperrors.ErrRateLimited))
	var appErr *apperrors.AppError
	assert.Assert(t, errors.As(err, &appErr))
	assert.Equal(t, appErr.RetryAfter, time.Minute)
	assert.Equal(t, appErr.Message, "Too many requests")
	assert.Equal(t, calls.Load(), int32(1))
}

func TestRetryRecoversFromThrottling(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`[]`))
	}))
	defer srv.Close()

	c := New(srv.URL, WithRetry(resilience.RetryConfig{MaxAttempts: 2, InitialDelay: time.Millisecond}))
	_, err := c.List(context.Background())
	assert.NilError(t, err)
	assert.Equal(t, calls.Load(), int32(2))
}
