package sorter

import (
	"testing"

	"github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/internal/restaurant"
	"gotest.tools/assert"
)

func ids(records []restaurant.Restaurant) []int {
	out := make([]int, len(records))
	for i, r := range records {
		out[i] = r.ID
	}
	return out
}

func sample() []restaurant.Restaurant {
	return []restaurant.Restaurant{
		{ID: 1, Name: "bistro", Location: "Paris", Type: "French", Rating: 4.0, PriceRange: "$$$"},
		{ID: 2, Name: "Alpha", Location: "austin", Type: "Tex-Mex", Rating: 4.5, PriceRange: "$"},
		{ID: 3, Name: "Cantina", Location: "Boston", Type: "mexican", Rating: 4.0, PriceRange: "??"},
		{ID: 4, Name: "Deli", Location: "Chicago", Type: "American", Rating: 3.2, PriceRange: "$$$$"},
		{ID: 5, Name: "Echo", Location: "Denver", Type: "Fusion", Rating: 4.0, PriceRange: "$$"},
	}
}

func TestSortFields(t *testing.T) {
	tests := []struct {
		field Field
		dir   Direction
		want  []int
	}{
		{FieldName, Asc, []int{2, 1, 3, 4, 5}},
		{FieldName, Desc, []int{5, 4, 3, 1, 2}},
		{FieldLocation, Asc, []int{2, 3, 4, 5, 1}},
		{FieldType, Asc, []int{4, 1, 5, 3, 2}},
		{FieldRating, Asc, []int{4, 1, 3, 5, 2}},
		{FieldRating, Desc, []int{2, 1, 3, 5, 4}},
		{FieldPriceRange, Asc, []int{3, 2, 5, 1, 4}},
		{FieldPriceRange, Desc, []int{4, 1, 5, 2, 3}},
	}
	for _, tt := range tests {
		t.Run(string(tt.field)+"-"+string(tt.dir), func(t *testing.T) {
			assert.DeepEqual(t, ids(Sort(sample(), tt.field, tt.dir)), tt.want)
		})
	}
}

func TestSortStableInBothDirections(t *testing.T) {
	in := sample()
	asc := ids(Sort(in, FieldRating, Asc))
	desc := ids(Sort(in, FieldRating, Desc))

	// Ratings of 4.0 (ids 1, 3, 5) keep their input order either way.
	assert.DeepEqual(t, asc[1:4], []int{1, 3, 5})
	assert.DeepEqual(t, desc[1:4], []int{1, 3, 5})
	assert.Equal(t, asc[0], desc[4])
	assert.Equal(t, asc[4], desc[0])
}

func TestSortDoesNotMutateInput(t *testing.T) {
	in := sample()
	_ = Sort(in, FieldName, Desc)
	assert.DeepEqual(t, ids(in), []int{1, 2, 3, 4, 5})
}

func TestSortFallbacks(t *testing.T) {
	byName := ids(Sort(sample(), FieldName, Asc))
	assert.DeepEqual(t, ids(Sort(sample(), "cuisine", Desc)), byName)
	assert.DeepEqual(t, ids(Sort(sample(), FieldName, "sideways")), byName)
	assert.DeepEqual(t, ids(Sort(sample(), "", "")), byName)
}

func TestParseSortValue(t *testing.T) {
	f, d := ParseSortValue("rating-desc")
	assert.Equal(t, f, FieldRating)
	assert.Equal(t, d, Desc)

	f, d = ParseSortValue("priceRange-asc")
	assert.Equal(t, f, FieldPriceRange)
	assert.Equal(t, d, Asc)

	f, d = ParseSortValue("name")
	assert.Equal(t, f, FieldName)
	assert.Equal(t, d, Direction(""))
}

func TestOptionsAreParseable(t *testing.T) {
	opts := Options()
	assert.Equal(t, len(opts), 10)
	for _, o := range opts {
		f, d := ParseSortValue(o.Value)
		nf, nd := Normalize(f, d)
		assert.Equal(t, nf, f, o.Value)
		assert.Equal(t, nd, d, o.Value)
	}
}

func TestPriceRank(t *testing.T) {
	assert.Equal(t, PriceRank("$"), 1)
	assert.Equal(t, PriceRank("$$$$"), 4)
	assert.Equal(t, PriceRank(""), 0)
}
