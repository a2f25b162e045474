package highlight

import (
	"encoding/json"
	"fmt"
	"math"
)

// Letters used by the compact tuple encoding.
const (
	letterObject   = "o"
	letterBreak    = "b"
	letterBookmark = "k"
)

// Letter returns the one-letter code for k.
func (k Kind) Letter() string {
	switch k {
	case KindBreak:
		return letterBreak
	case KindBookmark:
		return letterBookmark
	default:
		return letterObject
	}
}

// KindFromLetter maps a code back to its kind. Unknown letters decode as
// objects so older or newer files still load.
func KindFromLetter(s string) Kind {
	switch s {
	case letterBreak:
		return KindBreak
	case letterBookmark:
		return KindBookmark
	default:
		return KindObject
	}
}

func round4(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}

// tuple is the persisted shape: [start, end, kind].
func (r Range) tuple() []any {
	return []any{round4(r.Start), round4(r.End), r.Kind.Letter()}
}

// MarshalJSON encodes r as [start, end, "o"|"b"|"k"].
func (r Range) MarshalJSON() ([]byte, error) {
	return json.Marshal(r.tuple())
}

// UnmarshalJSON decodes the tuple form. A missing kind decodes as object.
func (r *Range) UnmarshalJSON(data []byte) error {
	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("highlight range: %w", err)
	}
	if len(raw) < 2 || len(raw) > 3 {
		return fmt.Errorf("highlight range: want 2 or 3 elements, got %d", len(raw))
	}
	var start, end float64
	if err := json.Unmarshal(raw[0], &start); err != nil {
		return fmt.Errorf("highlight range start: %w", err)
	}
	if err := json.Unmarshal(raw[1], &end); err != nil {
		return fmt.Errorf("highlight range end: %w", err)
	}
	var letter string
	if len(raw) == 3 {
		if err := json.Unmarshal(raw[2], &letter); err != nil {
			return fmt.Errorf("highlight range kind: %w", err)
		}
	}
	*r = Range{Start: start, End: end, Kind: KindFromLetter(letter)}
	return nil
}

// MarshalYAML uses the same tuple shape as JSON.
func (r Range) MarshalYAML() (any, error) {
	return r.tuple(), nil
}

// Encode serializes ranges as a JSON array of tuples. A nil list encodes as
// an empty array.
func Encode(r Ranges) ([]byte, error) {
	if r == nil {
		r = Ranges{}
	}
	return json.Marshal(r)
}

// Decode is the inverse of Encode.
func Decode(data []byte) (Ranges, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var r Ranges
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, err
	}
	return r, nil
}
