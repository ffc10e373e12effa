package analytics

import (
	"strconv"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/store"
)

// Tracker records events locally and, when collectors are configured,
// forwards them to the event stream.
type Tracker struct {
	agg      *Aggregator
	searches *Collector
	changes  *Collector
}

// NewTracker returns a Tracker. Either collector may be nil.
func NewTracker(agg *Aggregator, searches, changes *Collector) *Tracker {
	return &Tracker{agg: agg, searches: searches, changes: changes}
}

func (t *Tracker) TrackSearch(event SearchEvent) {
	if event.Type == "" {
		event.Type = EventSearch
		if event.Returned == 0 {
			event.Type = EventZeroResult
		}
	}
	t.agg.RecordSearch(event)
	if t.searches != nil {
		t.searches.Track(event.RequestID, event)
	}
}

// TrackChange is registered with store.Store.OnChange.
func (t *Tracker) TrackChange(c store.Change) {
	event := FromChange(c)
	t.agg.RecordRestaurant(event)
	if t.changes != nil {
		t.changes.Track(strconv.Itoa(event.RestaurantID), event)
	}
}

func (t *Tracker) Stats() Stats {
	return t.agg.Stats()
}
