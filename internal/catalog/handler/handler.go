// Package handler serves the restaurant catalog over HTTP: CRUD on
// records plus the search, filter and sort listing.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/query"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/sorter"
	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/logger"
)

// VersionHeader reports the store version a listing was computed from.
const VersionHeader = "X-Catalog-Version"

const (
	msgNotFound    = "Restaurant not found"
	msgDeleted     = "Restaurant deleted successfully"
	msgInvalidJSON = "Invalid JSON body"
	msgRunning     = "Backend is running!"
)

// RecordStore is the part of store.Store the handlers need.
type RecordStore interface {
	List(ctx context.Context) []restaurant.Restaurant
	Version() uint64
	Create(ctx context.Context, in restaurant.CreateInput) (restaurant.Restaurant, error)
	Update(ctx context.Context, id int, p restaurant.Patch) (restaurant.Restaurant, error)
	Delete(ctx context.Context, id int) error
}

type Handler struct {
	store   RecordStore
	engine  *query.Engine
	cache   *cache.QueryCache
	tracker *analytics.Tracker
	logger  *slog.Logger
}

// New returns a Handler. queryCache and tracker may be nil.
func New(store RecordStore, engine *query.Engine, queryCache *cache.QueryCache, tracker *analytics.Tracker) *Handler {
	return &Handler{
		store:   store,
		engine:  engine,
		cache:   queryCache,
		tracker: tracker,
		logger:  slog.Default().With("component", "catalog-handler"),
	}
}

type messageResponse struct {
	Message string            `json:"message"`
	Fields  map[string]string `json:"fields,omitempty"`
}

func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	rec, found := h.engine.LookupByID(r.Context(), id)
	if !found {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	var in restaurant.CreateInput
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		h.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	rec, err := h.store.Create(ctx, in)
	if err != nil {
		h.writeStoreError(ctx, w, err, "creating")
		return
	}
	logger.FromContext(ctx).Info("restaurant created", "id", rec.ID, "name", rec.Name)
	h.writeJSON(w, http.StatusCreated, rec)
}

func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	var p restaurant.Patch
	if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
		h.writeError(w, http.StatusBadRequest, msgInvalidJSON)
		return
	}
	rec, err := h.store.Update(ctx, id, p)
	if err != nil {
		h.writeStoreError(ctx, w, err, "updating")
		return
	}
	logger.FromContext(ctx).Info("restaurant updated", "id", rec.ID)
	h.writeJSON(w, http.StatusOK, rec)
}

func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	id, ok := pathID(r)
	if !ok {
		h.writeError(w, http.StatusNotFound, msgNotFound)
		return
	}
	if err := h.store.Delete(ctx, id); err != nil {
		h.writeStoreError(ctx, w, err, "deleting")
		return
	}
	logger.FromContext(ctx).Info("restaurant deleted", "id", id)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: msgDeleted})
}

// SortOptions lists the sort choices a client can offer.
func (h *Handler) SortOptions(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, sorter.Options())
}

func (h *Handler) Ping(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, messageResponse{Message: msgRunning})
}

// writeStoreError maps a store failure to its status and client message.
// op is the gerund used in the 500 message, e.g. "creating".
func (h *Handler) writeStoreError(ctx context.Context, w http.ResponseWriter, err error, op string) {
	var verr *restaurant.ValidationError
	switch {
	case errors.As(err, &verr):
		h.writeJSON(w, http.StatusBadRequest, messageResponse{Message: verr.Message, Fields: verr.Fields})
	case errors.Is(err, apperrors.ErrNotFound):
		h.writeError(w, http.StatusNotFound, msgNotFound)
	default:
		logger.FromContext(ctx).Error("store operation failed", "op", op, "error", err)
		h.writeError(w, apperrors.HTTPStatusCode(err), "Error "+op+" restaurant")
	}
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, messageResponse{Message: message})
}

// pathID parses the {id} path value. Anything but a positive integer
// cannot name a record.
func pathID(r *http.Request) (int, bool) {
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}
