package restaurant

import (
	"bytes"
	"encoding/json"
	"math"
	"regexp"
	"strconv"
	"strings"
)

const (
	MinRating = 0.0
	MaxRating = 5.0
)

var leadingNumber = regexp.MustCompile(`^[+-]?(\d+\.?\d*|\.\d+)([eE][+-]?\d+)?`)

// Rating is a rating as received from a client. An unparseable rating is
// not an error: it reads as zero.
type Rating struct {
	value  float64
	parsed bool
}

// RatingOf wraps an already numeric rating.
func RatingOf(v float64) Rating {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Rating{}
	}
	return Rating{value: v, parsed: true}
}

// ParseRating reads the longest leading decimal number of s, ignoring
// leading whitespace. "4.5 stars" is 4.5; "abc" is unparsed.
func ParseRating(s string) Rating {
	m := leadingNumber.FindString(strings.TrimSpace(s))
	if m == "" {
		return Rating{}
	}
	v, err := strconv.ParseFloat(m, 64)
	if err != nil {
		return Rating{}
	}
	return RatingOf(v)
}

// Value is the numeric rating, zero when unparsed.
func (r Rating) Value() float64 {
	if !r.parsed {
		return 0
	}
	return r.value
}

// Parsed reports whether a number was found.
func (r Rating) Parsed() bool { return r.parsed }

// InRange reports whether the value lies in [MinRating, MaxRating].
func (r Rating) InRange() bool {
	v := r.Value()
	return v >= MinRating && v <= MaxRating
}

func (r *Rating) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch {
	case len(data) == 0, bytes.Equal(data, []byte("null")), bytes.Equal(data, []byte("true")), bytes.Equal(data, []byte("false")):
		*r = Rating{}
	case data[0] == '"':
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*r = ParseRating(s)
	case data[0] == '{' || data[0] == '[':
		*r = Rating{}
	default:
		*r = ParseRating(string(data))
	}
	return nil
}

func (r Rating) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.Value())
}
