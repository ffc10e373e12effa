package analytics

import (
	"time"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
)

type EventType string

const (
	EventSearch            EventType = "search"
	EventZeroResult        EventType = "zero_result"
	EventRestaurantCreated EventType = "restaurant_created"
	EventRestaurantUpdated EventType = "restaurant_updated"
	EventRestaurantDeleted EventType = "restaurant_deleted"
)

// SearchEvent describes one filtered listing request.
type SearchEvent struct {
	Type       EventType `json:"type"`
	Query      string    `json:"query"`
	Match      string    `json:"match,omitempty"`
	Cuisine    string    `json:"cuisine,omitempty"`
	PriceRange string    `json:"price_range,omitempty"`
	MinRating  float64   `json:"min_rating,omitempty"`
	Sort       string    `json:"sort,omitempty"`
	Returned   int       `json:"returned"`
	LatencyMs  int64     `json:"latency_ms"`
	CacheHit   bool      `json:"cache_hit"`
	Version    uint64    `json:"version"`
	Timestamp  time.Time `json:"timestamp"`
	RequestID  string    `json:"request_id"`
}

// RestaurantEvent describes one applied store mutation.
type RestaurantEvent struct {
	Type         EventType `json:"type"`
	RestaurantID int       `json:"restaurant_id"`
	Name         string    `json:"name"`
	Cuisine      string    `json:"cuisine"`
	Rating       float64   `json:"rating"`
	Version      uint64    `json:"version"`
	Timestamp    time.Time `json:"timestamp"`
}

func (e SearchEvent) EventType() string { return string(e.Type) }
func (e SearchEvent) TraceID() string   { return e.RequestID }

func (e RestaurantEvent) EventType() string { return string(e.Type) }

var changeTypes = map[store.Op]EventType{
	store.OpCreate: EventRestaurantCreated,
	store.OpUpdate: EventRestaurantUpdated,
	store.OpDelete: EventRestaurantDeleted,
}

// FromChange converts a store change into its event.
func FromChange(c store.Change) RestaurantEvent {
	return RestaurantEvent{
		Type:         changeTypes[c.Op],
		RestaurantID: c.Restaurant.ID,
		Name:         c.Restaurant.Name,
		Cuisine:      c.Restaurant.Type,
		Rating:       c.Restaurant.Rating,
		Version:      c.Version,
		Timestamp:    time.Now().UTC(),
	}
}
