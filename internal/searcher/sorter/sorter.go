// Package sorter orders catalog records by one field and direction. Every
// ordering is stable: records with equal keys keep their input order in
// both directions.
package sorter

import (
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
)

type Field string

const (
	FieldName       Field = "name"
	FieldLocation   Field = "location"
	FieldType       Field = "type"
	FieldRating     Field = "rating"
	FieldPriceRange Field = "priceRange"
)

type Direction string

const (
	Asc  Direction = "asc"
	Desc Direction = "desc"
)

var priceRank = map[string]int{"$": 1, "$$": 2, "$$$": 3, "$$$$": 4}

// PriceRank is the rank of a price band; unknown bands rank 0.
func PriceRank(band string) int {
	return priceRank[band]
}

// Collators keep per-call state, so each Sort borrows its own.
var collators = sync.Pool{
	New: func() any {
		return collate.New(language.Und, collate.IgnoreCase)
	},
}

type compareFunc func(c *collate.Collator, a, b restaurant.Restaurant) int

func textCompare(get func(restaurant.Restaurant) string) compareFunc {
	return func(c *collate.Collator, a, b restaurant.Restaurant) int {
		return c.CompareString(get(a), get(b))
	}
}

var comparators = map[Field]compareFunc{
	FieldName:     textCompare(func(r restaurant.Restaurant) string { return r.Name }),
	FieldLocation: textCompare(func(r restaurant.Restaurant) string { return r.Location }),
	FieldType:     textCompare(func(r restaurant.Restaurant) string { return r.Type }),
	FieldRating: func(_ *collate.Collator, a, b restaurant.Restaurant) int {
		switch {
		case a.Rating < b.Rating:
			return -1
		case a.Rating > b.Rating:
			return 1
		}
		return 0
	},
	FieldPriceRange: func(_ *collate.Collator, a, b restaurant.Restaurant) int {
		return PriceRank(a.PriceRange) - PriceRank(b.PriceRange)
	},
}

// Normalize resolves an unknown field to name ascending and an unknown
// direction to ascending.
func Normalize(field Field, dir Direction) (Field, Direction) {
	if _, ok := comparators[field]; !ok {
		return FieldName, Asc
	}
	if dir != Desc {
		dir = Asc
	}
	return field, dir
}

// Sort returns a new slice holding records ordered by field and dir. The
// input is not modified.
func Sort(records []restaurant.Restaurant, field Field, dir Direction) []restaurant.Restaurant {
	out := make([]restaurant.Restaurant, len(records))
	copy(out, records)

	field, dir = Normalize(field, dir)
	cmp := comparators[field]

	c := collators.Get().(*collate.Collator)
	defer collators.Put(c)

	if dir == Desc {
		sort.SliceStable(out, func(i, j int) bool { return cmp(c, out[j], out[i]) < 0 })
	} else {
		sort.SliceStable(out, func(i, j int) bool { return cmp(c, out[i], out[j]) < 0 })
	}
	return out
}

// ParseSortValue splits a "field-direction" value such as "rating-desc".
// A value without a dash yields an empty direction.
func ParseSortValue(value string) (Field, Direction) {
	field, dir, _ := strings.Cut(value, "-")
	return Field(field), Direction(dir)
}

// Option is one entry of the sort dropdown offered to clients.
type Option struct {
	Value string `json:"value"`
	Label string `json:"label"`
}

var options = []Option{
	{Value: "name-asc", Label: "Name (A-Z)"},
	{Value: "name-desc", Label: "Name (Z-A)"},
	{Value: "rating-desc", Label: "Rating (High to Low)"},
	{Value: "rating-asc", Label: "Rating (Low to High)"},
	{Value: "location-asc", Label: "Location (A-Z)"},
	{Value: "location-desc", Label: "Location (Z-A)"},
	{Value: "type-asc", Label: "Type (A-Z)"},
	{Value: "type-desc", Label: "Type (Z-A)"},
	{Value: "priceRange-asc", Label: "Price (Low to High)"},
	{Value: "priceRange-desc", Label: "Price (High to Low)"},
}

// Options returns a copy of the supported sort choices.
func Options() []Option {
	out := make([]Option, len(options))
	copy(out, options)
	return out
}
