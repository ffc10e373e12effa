// Command loadtest drives a mixed read/write workload against a running
// catalog through the Go client and reports throughput, latency
// percentiles and failures by kind.
//
// Usage:
//
//	go run ./cmd/loadtest [-url http://localhost:5050/api] [-concurrency 10]
//	    [-duration 30s] [-write-ratio 0.05] [-attempts 1] [-json]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/client"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/resilience"
)

type Config struct {
	BaseURL     string
	Concurrency int
	Duration    time.Duration
	// WriteRatio is the share of operations that update a rating.
	WriteRatio float64
	Queries    []client.SearchParams
	// IDs are the records writes pick from.
	IDs []int
}

type opStats struct {
	latencies []time.Duration
	failures  map[string]int64
}

// Recorder collects results per operation ("search", "update").
type Recorder struct {
	mu  sync.Mutex
	ops map[string]*opStats
}

func NewRecorder() *Recorder {
	return &Recorder{ops: make(map[string]*opStats)}
}

func (r *Recorder) Record(op string, d time.Duration, err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.ops[op]
	if !ok {
		s = &opStats{failures: make(map[string]int64)}
		r.ops[op] = s
	}
	if err != nil {
		s.failures[apperrors.Kind(err).Error()]++
		return
	}
	s.latencies = append(s.latencies, d)
}

// OpReport summarises one operation.
type OpReport struct {
	Op        string           `json:"op"`
	Succeeded int              `json:"succeeded"`
	Failed    map[string]int64 `json:"failed,omitempty"`
	PerSecond float64          `json:"per_second"`
	Min       time.Duration    `json:"min_ns"`
	P50       time.Duration    `json:"p50_ns"`
	P90       time.Duration    `json:"p90_ns"`
	P99       time.Duration    `json:"p99_ns"`
	Max       time.Duration    `json:"max_ns"`
	StdDev    time.Duration    `json:"stddev_ns"`
}

// Report orders operations by name.
func (r *Recorder) Report(elapsed time.Duration) []OpReport {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]OpReport, 0, len(r.ops))
	for op, s := range r.ops {
		lat := append([]time.Duration(nil), s.latencies...)
		sort.Slice(lat, func(i, j int) bool { return lat[i] < lat[j] })
		rep := OpReport{Op: op, Succeeded: len(lat), Failed: s.failures}
		var failed int64
		for _, n := range s.failures {
			failed += n
		}
		if elapsed > 0 {
			rep.PerSecond = float64(int64(len(lat))+failed) / elapsed.Seconds()
		}
		if len(lat) > 0 {
			rep.Min, rep.Max = lat[0], lat[len(lat)-1]
			rep.P50 = percentile(lat, 50)
			rep.P90 = percentile(lat, 90)
			rep.P99 = percentile(lat, 99)
			rep.StdDev = stddev(lat)
		}
		out = append(out, rep)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Op < out[j].Op })
	return out
}

func main() {
	baseURL := flag.String("url", client.DefaultBaseURL, "catalog API root")
	concurrency := flag.Int("concurrency", 10, "number of concurrent workers")
	duration := flag.Duration("duration", 30*time.Second, "test duration")
	writeRatio := flag.Float64("write-ratio", 0.05, "share of operations that update a rating")
	attempts := flag.Int("attempts", 1, "attempts per call; above 1 retries throttled and failed calls")
	asJSON := flag.Bool("json", false, "print the report as JSON")
	flag.Parse()

	opts := []client.Option{client.WithHTTPClient(&http.Client{
		Timeout: 10 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        *concurrency * 2,
			MaxIdleConnsPerHost: *concurrency * 2,
			IdleConnTimeout:     90 * time.Second,
		},
	})}
	if *attempts > 1 {
		opts = append(opts, client.WithRetry(resilience.RetryConfig{
			MaxAttempts:  *attempts,
			InitialDelay: 50 * time.Millisecond,
			MaxDelay:     2 * time.Second,
		}))
	}
	c := client.New(*baseURL, opts...)

	ctx := context.Background()
	records, err := c.List(ctx)
	if err != nil {
		fmt.Fprintf(os.Stderr, "catalog unreachable at %s: %v\n", *baseURL, err)
		os.Exit(1)
	}
	ids := make([]int, 0, len(records))
	for _, r := range records {
		ids = append(ids, r.ID)
	}

	cfg := Config{
		BaseURL:     *baseURL,
		Concurrency: *concurrency,
		Duration:    *duration,
		WriteRatio:  *writeRatio,
		Queries: buildQueries(
			[]string{"sushi", "pasta", "italian", "new york", "japanese sushi", "family", "chef", "tacos", ""},
			[]string{"", "rating-desc", "name-asc", "priceRange-asc", "location-desc"},
			[]string{"", "all", "Japanese", "Italian"},
		),
		IDs: ids,
	}
	fmt.Fprintf(os.Stderr, "load testing %s: %d workers for %s, %d query shapes, %d records\n",
		cfg.BaseURL, cfg.Concurrency, cfg.Duration, len(cfg.Queries), len(cfg.IDs))

	rec, elapsed := run(ctx, c, cfg)
	report := rec.Report(elapsed)
	if *asJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		enc.Encode(report)
	} else {
		printReport(os.Stdout, report)
	}

	for _, op := range report {
		if op.Succeeded > 0 {
			return
		}
	}
	fmt.Fprintln(os.Stderr, "no request succeeded; is the catalog running?")
	os.Exit(1)
}

// run keeps every worker busy until cfg.Duration elapses.
func run(parent context.Context, c *client.Client, cfg Config) (*Recorder, time.Duration) {
	rec := NewRecorder()
	ctx, cancel := context.WithTimeout(parent, cfg.Duration)
	defer cancel()

	start := time.Now()
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < cfg.Concurrency; w++ {
		rng := rand.New(rand.NewSource(int64(w) + 1))
		g.Go(func() error {
			for i := w; ctx.Err() == nil; i++ {
				op, call := pick(c, cfg, rng, i)
				began := time.Now()
				err := call(ctx)
				if ctx.Err() != nil {
					// Calls cut short by the deadline are not results.
					return nil
				}
				rec.Record(op, time.Since(began), err)
			}
			return nil
		})
	}
	g.Wait()
	return rec, time.Since(start)
}

func pick(c *client.Client, cfg Config, rng *rand.Rand, i int) (string, func(context.Context) error) {
	if len(cfg.IDs) > 0 && rng.Float64() < cfg.WriteRatio {
		id := cfg.IDs[rng.Intn(len(cfg.IDs))]
		rating := math.Round((1+rng.Float64()*4)*10) / 10
		return "update", func(ctx context.Context) error {
			_, err := c.UpdateRating(ctx, id, rating)
			return err
		}
	}
	params := cfg.Queries[i%len(cfg.Queries)]
	return "search", func(ctx context.Context) error {
		_, err := c.Search(ctx, params)
		return err
	}
}

// buildQueries crosses terms, sort values and cuisine filters.
func buildQueries(terms, sorts, cuisines []string) []client.SearchParams {
	out := make([]client.SearchParams, 0, len(terms)*len(sorts)*len(cuisines))
	for _, term := range terms {
		for _, sortValue := range sorts {
			for _, cuisine := range cuisines {
				out = append(out, client.SearchParams{Term: term, Sort: sortValue, Cuisine: cuisine})
			}
		}
	}
	return out
}

func printReport(w io.Writer, report []OpReport) {
	for _, op := range report {
		fmt.Fprintf(w, "== %s ==\n", op.Op)
		fmt.Fprintf(w, "  ok %d  rate %.1f/s\n", op.Succeeded, op.PerSecond)
		kinds := make([]string, 0, len(op.Failed))
		for k := range op.Failed {
			kinds = append(kinds, k)
		}
		sort.Strings(kinds)
		for _, k := range kinds {
			fmt.Fprintf(w, "  failed (%s) %d\n", k, op.Failed[k])
		}
		if op.Succeeded > 0 {
			fmt.Fprintf(w, "  min %s  p50 %s  p90 %s  p99 %s  max %s  stddev %s\n",
				op.Min, op.P50, op.P90, op.P99, op.Max, op.StdDev)
		}
	}
}

func percentile(sorted []time.Duration, p float64) time.Duration {
	if len(sorted) == 0 {
		return 0
	}
	idx := int(math.Ceil(p/100*float64(len(sorted)))) - 1
	return sorted[max(0, min(idx, len(sorted)-1))]
}

func stddev(values []time.Duration) time.Duration {
	var sum float64
	for _, v := range values {
		sum += float64(v)
	}
	mean := sum / float64(len(values))
	var sq float64
	for _, v := range values {
		d := float64(v) - mean
		sq += d * d
	}
	return time.Duration(math.Sqrt(sq / float64(len(values))))
}
