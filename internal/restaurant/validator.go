package restaurant

import (
	"fmt"
	"sort"
	"strings"

	apperrors "github.com/Adithya-Monish-Kumar-K/Restaurant-Catalog-Platform/pkg/errors"
)

// RequiredFieldsMessage is returned to clients when a create request is
// missing a mandatory field.
const RequiredFieldsMessage = "Name, type, and location are required"

// ValidationError holds per-field validation failure messages.
type ValidationError struct {
	Message string
	Fields  map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for field := range e.Fields {
		keys = append(keys, field)
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, field := range keys {
		parts = append(parts, fmt.Sprintf("%s:%s", field, e.Fields[field]))
	}
	return e.Message + " (" + strings.Join(parts, "; ") + ")"
}

func (e *ValidationError) Unwrap() error {
	return apperrors.ErrValidation
}

func validateCreate(in CreateInput) error {
	errs := make(map[string]string)
	if strings.TrimSpace(in.Name) == "" {
		errs["name"] = "name is required"
	}
	if strings.TrimSpace(in.Type) == "" {
		errs["type"] = "type is required"
	}
	if strings.TrimSpace(in.Location) == "" {
		errs["location"] = "location is required"
	}
	if len(errs) > 0 {
		if !in.Rating.InRange() {
			errs["rating"] = ratingRangeMessage
		}
		return &ValidationError{Message: RequiredFieldsMessage, Fields: errs}
	}
	if !in.Rating.InRange() {
		return ratingError()
	}
	return nil
}

func validatePatch(p Patch) error {
	if p.Rating.Set && !p.Rating.Value.InRange() {
		return ratingError()
	}
	return nil
}

var ratingRangeMessage = fmt.Sprintf("rating must be between %g and %g", MinRating, MaxRating)

func ratingError() error {
	return &ValidationError{
		Message: "Please enter a rating between 0 and 5",
		Fields:  map[string]string{"rating": ratingRangeMessage},
	}
}
