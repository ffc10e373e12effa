// Package query composes search, attribute filters and sorting into the
// ordered list a client sees. Nothing here mutates the store.
package query

import (
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/indexer/index"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/searcher/sorter"
)

// FilterAll disables the cuisine or price filter.
const FilterAll = "all"

// Match selects how the search term is applied.
type Match string

const (
	// MatchIndex keeps records sharing any token with the term.
	MatchIndex Match = "index"
	// MatchFuzzy keeps records whose text contains any word of the term as
	// a substring, most matching words first. A non-empty sort field still
	// reorders the result.
	MatchFuzzy Match = "fuzzy"
)

type Request struct {
	Term          string
	Match         Match
	Cuisine       string
	PriceRange    string
	MinRating     float64
	SortField     sorter.Field
	SortDirection sorter.Direction
}

// Filtered reports whether any step besides sorting applies.
func (r Request) Filtered() bool {
	return strings.TrimSpace(r.Term) != "" || active(r.Cuisine) || active(r.PriceRange) || r.MinRating != 0
}

// Run answers req over records and an index built from the same snapshot.
func Run(records []restaurant.Restaurant, idx *index.Index, req Request) []restaurant.Restaurant {
	matched := search(records, idx, req)

	filtered := make([]restaurant.Restaurant, 0, len(matched))
	for _, r := range matched {
		if keep(r, req) {
			filtered = append(filtered, r)
		}
	}

	if req.Match == MatchFuzzy && req.SortField == "" && strings.TrimSpace(req.Term) != "" {
		return filtered
	}
	return sorter.Sort(filtered, req.SortField, req.SortDirection)
}

func search(records []restaurant.Restaurant, idx *index.Index, req Request) []restaurant.Restaurant {
	if strings.TrimSpace(req.Term) == "" {
		return records
	}
	if req.Match == MatchFuzzy {
		return Fuzzy(records, req.Term)
	}
	return idx.Search(req.Term)
}

func keep(r restaurant.Restaurant, req Request) bool {
	if active(req.Cuisine) && !strings.EqualFold(r.Type, req.Cuisine) {
		return false
	}
	if active(req.PriceRange) && r.PriceRange != req.PriceRange {
		return false
	}
	if req.MinRating != 0 && r.Rating < req.MinRating {
		return false
	}
	return true
}

func active(filter string) bool {
	return filter != "" && filter != FilterAll
}

// Fuzzy scores each record by how many words of term occur as substrings
// of its lowercased search text and returns the matches, best first. Ties
// keep snapshot order.
func Fuzzy(records []restaurant.Restaurant, term string) []restaurant.Restaurant {
	words := strings.Fields(strings.ToLower(term))
	if len(words) == 0 {
		return records
	}

	type scored struct {
		r     restaurant.Restaurant
		score int
	}
	hits := make([]scored, 0, len(records))
	for _, r := range records {
		text := strings.ToLower(r.SearchText())
		score := 0
		for _, w := range words {
			if strings.Contains(text, w) {
				score++
			}
		}
		if score > 0 {
			hits = append(hits, scored{r: r, score: score})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].score > hits[j].score })

	out := make([]restaurant.Restaurant, len(hits))
	for i, h := range hits {
		out[i] = h.r
	}
	return out
}
