package restaurant

import (
	"encoding/json"
	"errors"
	"testing"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
	"gotest.tools/assert"
)

func decodeCreate(t *testing.T, body string) CreateInput {
	t.Helper()
	var in CreateInput
	assert.NilError(t, json.Unmarshal([]byte(body), &in))
	return in
}

func TestBuildFillsDefaults(t *testing.T) {
	in := decodeCreate(t, `{"name":"Taco Loco","type":"Mexican","location":"Austin"}`)
	r, err := in.Build()
	assert.NilError(t, err)
	assert.Equal(t, r.Image, "")
	assert.Equal(t, r.Description, "")
	assert.Equal(t, r.PriceRange, DefaultPriceRange)
	assert.Equal(t, r.Rating, 0.0)
	assert.Equal(t, r.ID, 0)
}

func TestBuildRatingParsing(t *testing.T) {
	tests := []struct {
		body string
		want float64
	}{
		{`{"name":"a","type":"b","location":"c","rating":"abc"}`, 0},
		{`{"name":"a","type":"b","location":"c","rating":4.5}`, 4.5},
		{`{"name":"a","type":"b","location":"c","rating":"3.7"}`, 3.7},
		{`{"name":"a","type":"b","location":"c","rating":"4 stars"}`, 4},
		{`{"name":"a","type":"b","location":"c","rating":null}`, 0},
		{`{"name":"a","type":"b","location":"c","rating":""}`, 0},
		{`{"name":"a","type":"b","location":"c","rating":"NaN"}`, 0},
		{`{"name":"a","type":"b","location":"c","rating":true}`, 0},
	}
	for _, tt := range tests {
		r, err := decodeCreate(t, tt.body).Build()
		assert.NilError(t, err, tt.body)
		assert.Equal(t, r.Rating, tt.want, tt.body)
	}
}

func TestBuildRequiresFields(t *testing.T) {
	_, err := decodeCreate(t, `{"name":"  ","location":"Paris"}`).Build()
	assert.Assert(t, errors.Is(err, apperrors.ErrValidation))

	var verr *ValidationError
	assert.Assert(t, errors.As(err, &verr))
	assert.Equal(t, verr.Message, RequiredFieldsMessage)
	assert.Equal(t, len(verr.Fields), 2)
	assert.Equal(t, verr.Fields["name"], "name is required")
	assert.Equal(t, verr.Fields["type"], "type is required")
}

func TestBuildRejectsOutOfRangeRating(t *testing.T) {
	_, err := decodeCreate(t, `{"name":"a","type":"b","location":"c","rating":7}`).Build()
	assert.Assert(t, errors.Is(err, apperrors.ErrValidation))
}

func TestPatchPresence(t *testing.T) {
	var p Patch
	assert.NilError(t, json.Unmarshal([]byte(`{"rating":"4.8","description":"","image":null,"id":99}`), &p))

	assert.Assert(t, p.Rating.Set)
	assert.Assert(t, p.Description.Set)
	assert.Assert(t, p.Image.Set)
	assert.Assert(t, !p.Name.Set)
	assert.Assert(t, !p.PriceRange.Set)

	before := Seed()[0]
	after, err := p.Apply(before)
	assert.NilError(t, err)
	assert.Equal(t, after.ID, before.ID)
	assert.Equal(t, after.Name, before.Name)
	assert.Equal(t, after.Location, before.Location)
	assert.Equal(t, after.PriceRange, before.PriceRange)
	assert.Equal(t, after.Rating, 4.8)
	assert.Equal(t, after.Description, "")
	assert.Equal(t, after.Image, "")
}

func TestPatchRejectsOutOfRangeRating(t *testing.T) {
	p := Patch{Rating: Some(RatingOf(-1))}
	before := Seed()[1]
	after, err := p.Apply(before)
	assert.Assert(t, errors.Is(err, apperrors.ErrValidation))
	assert.Equal(t, after, before)
}

func TestPatchMarshalOnlyPresentFields(t *testing.T) {
	p := Patch{Rating: Some(RatingOf(3)), Name: Some("")}
	data, err := json.Marshal(p)
	assert.NilError(t, err)
	assert.Equal(t, string(data), `{"name":"","rating":3}`)
	assert.Assert(t, !p.Empty())
	assert.Assert(t, Patch{}.Empty())
}

func TestSearchText(t *testing.T) {
	r := Seed()[0]
	assert.Equal(t, r.SearchText(), "Sakura Sushi Japanese New York Authentic Japanese sushi and sashimi prepared by master chefs.")
}
