// Package restaurant defines the catalog record, the input accepted when
// creating one, and the patch applied on update.
package restaurant

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

const DefaultPriceRange = "$$"

// Restaurant is one catalog entry. The JSON field names are the wire and
// on-disk format.
type Restaurant struct {
	ID          int     `json:"id"`
	Name        string  `json:"name"`
	Type        string  `json:"type"`
	Image       string  `json:"image"`
	Location    string  `json:"location"`
	Rating      float64 `json:"rating"`
	Description string  `json:"description"`
	PriceRange  string  `json:"priceRange"`
}

// SearchText is the text the index tokenizes for this record.
func (r Restaurant) SearchText() string {
	return strings.Join([]string{r.Name, r.Type, r.Location, r.Description}, " ")
}

// CreateInput is the body of a create request. Rating stays loose because
// clients send numbers, numeric strings, or nothing at all.
type CreateInput struct {
	Name        string `json:"name"`
	Type        string `json:"type"`
	Image       string `json:"image"`
	Location    string `json:"location"`
	Rating      Rating `json:"rating"`
	Description string `json:"description"`
	PriceRange  string `json:"priceRange"`
}

// Build validates the input and returns a record with defaults filled in.
// The id is left zero for the store to assign.
func (in CreateInput) Build() (Restaurant, error) {
	if err := validateCreate(in); err != nil {
		return Restaurant{}, err
	}
	priceRange := in.PriceRange
	if priceRange == "" {
		priceRange = DefaultPriceRange
	}
	return Restaurant{
		Name:        in.Name,
		Type:        in.Type,
		Image:       in.Image,
		Location:    in.Location,
		Rating:      in.Rating.Value(),
		Description: in.Description,
		PriceRange:  priceRange,
	}, nil
}

// Optional marks whether a patch field was present in the request.
type Optional[T any] struct {
	Value T
	Set   bool
}

// Some returns a present Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{Value: v, Set: true}
}

// Patch carries the fields of a partial update. Present fields overwrite,
// absent ones are preserved.
type Patch struct {
	Name        Optional[string]
	Type        Optional[string]
	Image       Optional[string]
	Location    Optional[string]
	Rating      Optional[Rating]
	Description Optional[string]
	PriceRange  Optional[string]
}

// Empty reports whether the patch changes nothing.
func (p Patch) Empty() bool {
	return !p.Name.Set && !p.Type.Set && !p.Image.Set && !p.Location.Set &&
		!p.Rating.Set && !p.Description.Set && !p.PriceRange.Set
}

// Apply returns r with the present fields of p merged over it. The id is
// never touched.
func (p Patch) Apply(r Restaurant) (Restaurant, error) {
	if err := validatePatch(p); err != nil {
		return r, err
	}
	if p.Name.Set {
		r.Name = p.Name.Value
	}
	if p.Type.Set {
		r.Type = p.Type.Value
	}
	if p.Image.Set {
		r.Image = p.Image.Value
	}
	if p.Location.Set {
		r.Location = p.Location.Value
	}
	if p.Rating.Set {
		r.Rating = p.Rating.Value.Value()
	}
	if p.Description.Set {
		r.Description = p.Description.Value
	}
	if p.PriceRange.Set {
		r.PriceRange = p.PriceRange.Value
	}
	return r, nil
}

// UnmarshalJSON records which known keys appear in the object. A key with
// a null value is present and sets the zero value.
func (p *Patch) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	fields := map[string]*Optional[string]{
		"name":        &p.Name,
		"type":        &p.Type,
		"image":       &p.Image,
		"location":    &p.Location,
		"description": &p.Description,
		"priceRange":  &p.PriceRange,
	}
	for key, dst := range fields {
		value, ok := raw[key]
		if !ok {
			continue
		}
		dst.Set = true
		if isNull(value) {
			continue
		}
		if err := json.Unmarshal(value, &dst.Value); err != nil {
			return fmt.Errorf("field %q: %w", key, err)
		}
	}
	if value, ok := raw["rating"]; ok {
		p.Rating.Set = true
		if err := json.Unmarshal(value, &p.Rating.Value); err != nil {
			return fmt.Errorf("field %q: %w", "rating", err)
		}
	}
	return nil
}

// MarshalJSON writes only the present fields, so a Patch round-trips.
func (p Patch) MarshalJSON() ([]byte, error) {
	out := make(map[string]any)
	add := func(key string, o Optional[string]) {
		if o.Set {
			out[key] = o.Value
		}
	}
	add("name", p.Name)
	add("type", p.Type)
	add("image", p.Image)
	add("location", p.Location)
	add("description", p.Description)
	add("priceRange", p.PriceRange)
	if p.Rating.Set {
		out["rating"] = p.Rating.Value
	}
	return json.Marshal(out)
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
