// Package client is a Go client for the restaurant catalog API. Failed
// calls return *errors.AppError values whose sentinel classifies the
// failure: ErrNetwork for transport problems, ErrValidation, ErrNotFound,
// ErrRateLimited, ErrStorage and ErrTimeout for the matching statuses, and
// ErrUnknown for anything else.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/sorter"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
)

// DefaultBaseURL matches the server's default port and API prefix.
const DefaultBaseURL = "http://localhost:5050/api"

type Client struct {
	baseURL string
	http    *http.Client
	retry   *resilience.RetryConfig
	breaker *resilience.CircuitBreaker
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithRetry retries network failures, timeouts and throttled calls. A
// Retry-After sent by the server replaces the computed backoff. POST is
// never retried.
func WithRetry(cfg resilience.RetryConfig) Option {
	return func(c *Client) {
		cfg.Retryable = func(err error) bool {
			return retryable(err) || errors.Is(err, apperrors.ErrRateLimited)
		}
		cfg.Hint = retryAfter
		c.retry = &cfg
	}
}

// WithCircuitBreaker stops calling the server after repeated transport or
// server failures. Client errors such as 404 do not count. State changes
// are exported through m when it is non-nil.
func WithCircuitBreaker(cfg resilience.CircuitBreakerConfig, m *metrics.Metrics) Option {
	return func(c *Client) {
		cfg.IsFailure = countsAgainstBreaker
		if m != nil {
			cfg.OnStateChange = func(name string, _, to resilience.State) {
				m.SetBreakerState(name, int(to))
			}
		}
		c.breaker = resilience.NewCircuitBreaker("catalog-api", cfg)
	}
}

// New returns a client for the API rooted at baseURL, for example
// "http://localhost:5050/api".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) List(ctx context.Context) ([]restaurant.Restaurant, error) {
	var out []restaurant.Restaurant
	err := c.do(ctx, http.MethodGet, "/restaurants", nil, &out)
	return out, err
}

func (c *Client) Get(ctx context.Context, id int) (restaurant.Restaurant, error) {
	var out restaurant.Restaurant
	err := c.do(ctx, http.MethodGet, "/restaurants/"+strconv.Itoa(id), nil, &out)
	return out, err
}

func (c *Client) Create(ctx context.Context, in restaurant.CreateInput) (restaurant.Restaurant, error) {
	var out restaurant.Restaurant
	err := c.do(ctx, http.MethodPost, "/restaurants", in, &out)
	return out, err
}

// Update sends only the fields present in p.
func (c *Client) Update(ctx context.Context, id int, p restaurant.Patch) (restaurant.Restaurant, error) {
	var out restaurant.Restaurant
	err := c.do(ctx, http.MethodPut, "/restaurants/"+strconv.Itoa(id), p, &out)
	return out, err
}

func (c *Client) UpdateRating(ctx context.Context, id int, rating float64) (restaurant.Restaurant, error) {
	return c.Update(ctx, id, restaurant.Patch{Rating: restaurant.Some(restaurant.RatingOf(rating))})
}

// Delete removes a record and returns the server's confirmation message.
func (c *Client) Delete(ctx context.Context, id int) (string, error) {
	var out struct {
		Message string `json:"message"`
	}
	err := c.do(ctx, http.MethodDelete, "/restaurants/"+strconv.Itoa(id), nil, &out)
	return out.Message, err
}

// SearchParams mirror the listing query parameters. Zero values are
// omitted.
type SearchParams struct {
	Term       string
	Match      string
	Cuisine    string
	PriceRange string
	MinRating  float64
	Sort       string
}

func (p SearchParams) values() url.Values {
	v := url.Values{}
	set := func(key, value string) {
		if value != "" {
			v.Set(key, value)
		}
	}
	set("q", p.Term)
	set("match", p.Match)
	set("cuisine", p.Cuisine)
	set("priceRange", p.PriceRange)
	set("sort", p.Sort)
	if p.MinRating != 0 {
		v.Set("minRating", strconv.FormatFloat(p.MinRating, 'f', -1, 64))
	}
	return v
}

func (c *Client) Search(ctx context.Context, p SearchParams) ([]restaurant.Restaurant, error) {
	path := "/restaurants"
	if q := p.values().Encode(); q != "" {
		path += "?" + q
	}
	var out []restaurant.Restaurant
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out, err
}

func (c *Client) SortOptions(ctx context.Context) ([]sorter.Option, error) {
	var out []sorter.Option
	err := c.do(ctx, http.MethodGet, "/sort-options", nil, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		if payload, err = json.Marshal(body); err != nil {
			return fmt.Errorf("encoding request body: %w", err)
		}
	}

	call := func() error {
		if c.breaker != nil {
			return c.breaker.Execute(func() error { return c.once(ctx, method, path, payload, out) })
		}
		return c.once(ctx, method, path, payload, out)
	}
	if c.retry != nil && method != http.MethodPost {
		return resilience.Retry(ctx, method+" "+path, *c.retry, call)
	}
	return call()
}

func (c *Client) once(ctx context.Context, method, path string, payload []byte, out any) error {
	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return &apperrors.AppError{Err: apperrors.ErrNetwork, Message: err.Error()}
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &apperrors.AppError{Err: apperrors.ErrNetwork, Message: err.Error(), StatusCode: resp.StatusCode}
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		appErr := classify(resp.StatusCode, data)
		if secs, err := strconv.Atoi(resp.Header.Get("Retry-After")); err == nil && secs >= 0 {
			appErr.RetryAfter = time.Duration(secs) * time.Second
		}
		return appErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return &apperrors.AppError{
			Err:        apperrors.ErrUnknown,
			Message:    "decoding response: " + err.Error(),
			StatusCode: resp.StatusCode,
		}
	}
	return nil
}

// classify turns an error response into an AppError carrying the server's
// message, or "HTTP <status>" when the body has none.
func classify(status int, body []byte) *apperrors.AppError {
	var msg struct {
		Message string `json:"message"`
	}
	_ = json.Unmarshal(body, &msg)
	if msg.Message == "" {
		msg.Message = "HTTP " + strconv.Itoa(status)
	}

	var sentinel error
	switch {
	case status == http.StatusBadRequest:
		sentinel = apperrors.ErrValidation
	case status == http.StatusNotFound:
		sentinel = apperrors.ErrNotFound
	case status == http.StatusTooManyRequests:
		sentinel = apperrors.ErrRateLimited
	case status == http.StatusServiceUnavailable, status == http.StatusGatewayTimeout:
		sentinel = apperrors.ErrTimeout
	case status == http.StatusInternalServerError:
		sentinel = apperrors.ErrStorage
	default:
		sentinel = apperrors.ErrUnknown
	}
	return &apperrors.AppError{Err: sentinel, Message: msg.Message, StatusCode: status}
}

func retryable(err error) bool {
	return errors.Is(err, apperrors.ErrNetwork) || errors.Is(err, apperrors.ErrTimeout)
}

func retryAfter(err error) (time.Duration, bool) {
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) && appErr.RetryAfter > 0 {
		return appErr.RetryAfter, true
	}
	return 0, false
}

func countsAgainstBreaker(err error) bool {
	return retryable(err) || errors.Is(err, apperrors.ErrStorage)
}
