// Package store owns the canonical list of catalog records. It assigns
// ids, applies validated mutations, and writes the whole collection to its
// Backend after every change.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/metrics"
)

type Op string

const (
	OpCreate Op = "create"
	OpUpdate Op = "update"
	OpDelete Op = "delete"
)

// Change describes one applied mutation. For deletes Restaurant is the
// removed record.
type Change struct {
	Op         Op
	Restaurant restaurant.Restaurant
	Version    uint64
}

// Store is safe for concurrent use. Mutations are serialised and the write
// lock is held while the backend saves, so the backend sees snapshots in
// version order.
type Store struct {
	mu        sync.RWMutex
	records   []restaurant.Restaurant
	version   uint64
	backend   Backend
	observers []func(Change)
	metrics   *metrics.Metrics
	logger    *slog.Logger
}

// Open loads the catalog from backend. A backend that was never written,
// or whose contents cannot be decoded, yields the seed records; the seed is
// not saved until the first mutation. m may be nil.
func Open(ctx context.Context, backend Backend, m *metrics.Metrics) (*Store, error) {
	s := &Store{
		backend: backend,
		metrics: m,
		logger:  slog.Default().With("component", "store", "backend", backend.Name()),
	}

	records, err := backend.Load(ctx)
	switch {
	case err == nil:
		s.logger.Info("catalog loaded", "records", len(records))
	case errors.Is(err, ErrNoData):
		records = restaurant.Seed()
		s.logger.Info("no stored catalog, starting from seed", "records", len(records))
	case errors.Is(err, ErrCorrupt):
		records = restaurant.Seed()
		s.logger.Error("stored catalog unreadable, starting from seed", "error", err)
	default:
		return nil, fmt.Errorf("loading catalog from %s: %w", backend.Name(), err)
	}

	s.records = records
	if m != nil {
		m.StoreRecords.Set(float64(len(records)))
	}
	return s, nil
}

// OnChange registers fn to run after every mutation, including ones whose
// save failed. fn runs outside the store lock.
func (s *Store) OnChange(fn func(Change)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observers = append(s.observers, fn)
}

// List returns a copy of the records in insertion order.
func (s *Store) List(_ context.Context) []restaurant.Restaurant {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records)
}

// Snapshot returns a copy of the records and the current version.
func (s *Store) Snapshot() ([]restaurant.Restaurant, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return cloneRecords(s.records), s.version
}

// Version increments on every applied mutation.
func (s *Store) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

func (s *Store) Get(_ context.Context, id int) (restaurant.Restaurant, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i := s.indexOf(id)
	if i < 0 {
		return restaurant.Restaurant{}, notFound(id)
	}
	return s.records[i], nil
}

// Create validates in, assigns the next id and saves. On a save failure
// the record stays in memory and is returned along with the error.
func (s *Store) Create(ctx context.Context, in restaurant.CreateInput) (restaurant.Restaurant, error) {
	r, err := in.Build()
	if err != nil {
		s.metrics.RecordMutation(string(OpCreate), "invalid", s.Len())
		return restaurant.Restaurant{}, err
	}

	s.mu.Lock()
	r.ID = s.nextID()
	s.records = append(s.records, r)
	change, saveErr := s.commit(ctx, OpCreate, r)
	s.mu.Unlock()

	s.notify(change)
	if saveErr != nil {
		return r, apperrors.Storage("creating", saveErr)
	}
	s.logger.Info("restaurant created", "id", r.ID, "name", r.Name)
	return r, nil
}

// Update merges the present fields of p over the record with id.
func (s *Store) Update(ctx context.Context, id int, p restaurant.Patch) (restaurant.Restaurant, error) {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		n := len(s.records)
		s.mu.Unlock()
		s.metrics.RecordMutation(string(OpUpdate), "not_found", n)
		return restaurant.Restaurant{}, notFound(id)
	}
	updated, err := p.Apply(s.records[i])
	if err != nil {
		n := len(s.records)
		s.mu.Unlock()
		s.metrics.RecordMutation(string(OpUpdate), "invalid", n)
		return restaurant.Restaurant{}, err
	}
	s.records[i] = updated
	change, saveErr := s.commit(ctx, OpUpdate, updated)
	s.mu.Unlock()

	s.notify(change)
	if saveErr != nil {
		return updated, apperrors.Storage("updating", saveErr)
	}
	s.logger.Info("restaurant updated", "id", id)
	return updated, nil
}

// Delete removes the record with id.
func (s *Store) Delete(ctx context.Context, id int) error {
	s.mu.Lock()
	i := s.indexOf(id)
	if i < 0 {
		n := len(s.records)
		s.mu.Unlock()
		s.metrics.RecordMutation(string(OpDelete), "not_found", n)
		return notFound(id)
	}
	removed := s.records[i]
	s.records = append(s.records[:i:i], s.records[i+1:]...)
	change, saveErr := s.commit(ctx, OpDelete, removed)
	s.mu.Unlock()

	s.notify(change)
	if saveErr != nil {
		return apperrors.Storage("deleting", saveErr)
	}
	s.logger.Info("restaurant deleted", "id", id)
	return nil
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}

// Backend exposes the backend name for health and logs.
func (s *Store) Backend() string { return s.backend.Name() }

func (s *Store) Close() error {
	return s.backend.Close()
}

// commit bumps the version and saves the collection. Callers hold s.mu.
func (s *Store) commit(ctx context.Context, op Op, r restaurant.Restaurant) (Change, error) {
	s.version++
	change := Change{Op: op, Restaurant: r, Version: s.version}

	start := time.Now()
	err := s.backend.Save(ctx, s.records)
	s.metrics.ObservePersist(s.backend.Name(), time.Since(start))

	outcome := "ok"
	if err != nil {
		outcome = "storage_error"
		s.logger.Error("saving catalog failed", "op", op, "id", r.ID, "version", s.version, "error", err)
	}
	s.metrics.RecordMutation(string(op), outcome, len(s.records))
	return change, err
}

func (s *Store) notify(change Change) {
	s.mu.RLock()
	observers := make([]func(Change), len(s.observers))
	copy(observers, s.observers)
	s.mu.RUnlock()
	for _, fn := range observers {
		fn(change)
	}
}

// nextID is one more than the largest id held, or 1 when empty. A deleted
// maximum id is handed out again.
func (s *Store) nextID() int {
	maxID := 0
	for _, r := range s.records {
		if r.ID > maxID {
			maxID = r.ID
		}
	}
	return maxID + 1
}

func (s *Store) indexOf(id int) int {
	for i, r := range s.records {
		if r.ID == id {
			return i
		}
	}
	return -1
}

func notFound(id int) error {
	return fmt.Errorf("restaurant %d: %w", id, apperrors.ErrNotFound)
}
