package store

import (
	"context"
	"errors"
	"sync"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
)

var (
	// ErrNoData means the backend has never been written.
	ErrNoData = errors.New("backend holds no catalog")
	// ErrCorrupt means the backend holds data that cannot be decoded.
	ErrCorrupt = errors.New("catalog data cannot be decoded")
)

// Backend is the durable medium behind a Store. Save always receives the
// whole collection and replaces whatever was stored before.
type Backend interface {
	Name() string
	Load(ctx context.Context) ([]restaurant.Restaurant, error)
	Save(ctx context.Context, records []restaurant.Restaurant) error
	Close() error
}

// MemoryBackend keeps the last saved collection in memory.
type MemoryBackend struct {
	mu      sync.Mutex
	records []restaurant.Restaurant
	saved   bool
	saves   int
	failErr error
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Name() string { return "memory" }

func (b *MemoryBackend) Load(_ context.Context) ([]restaurant.Restaurant, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.saved {
		return nil, ErrNoData
	}
	return cloneRecords(b.records), nil
}

func (b *MemoryBackend) Save(_ context.Context, records []restaurant.Restaurant) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.failErr != nil {
		return b.failErr
	}
	b.records = cloneRecords(records)
	b.saved = true
	b.saves++
	return nil
}

// FailWith makes every later Save return err until it is called with nil.
func (b *MemoryBackend) FailWith(err error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.failErr = err
}

// Saves is the number of successful saves.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *MemoryBackend) Close() error { return nil }

func cloneRecords(records []restaurant.Restaurant) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, len(records))
	copy(out, records)
	return out
}
