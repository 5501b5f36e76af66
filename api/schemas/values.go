package schemas

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// unknownSentinel is how the upstream data marks a value nobody has filled in.
// It is only ever interpreted at the JSON boundary.
const unknownSentinel = "Unknown"

// ID is an entity identifier. Upstream collections use either integers or strings,
// so both decode into the same canonical string form.
type ID string

// UnmarshalJSON accepts a JSON string, a JSON number, or null.
func (id *ID) UnmarshalJSON(data []byte) error {
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		*id = ""
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("%w: id must be a string or number, got %s", ErrMalformedInput, raw)
	}
	*id = ID(n.String())
	return nil
}

func (id ID) String() string { return string(id) }

// Coordinate is a latitude or longitude that may be unknown.
type Coordinate struct {
	Value float64
	Known bool
}

// KnownCoordinate builds a known coordinate.
func KnownCoordinate(v float64) Coordinate { return Coordinate{Value: v, Known: true} }

// UnmarshalJSON accepts numbers, numeric strings, and the unknown markers
// ("Unknown", "", null). Values that are not finite or lie outside [-180, 180]
// are malformed.
func (c *Coordinate) UnmarshalJSON(data []byte) error {
	*c = Coordinate{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	if strings.HasPrefix(raw, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, unknownSentinel) {
			return nil
		}
		raw = s
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return fmt.Errorf("%w: invalid coordinate %q", ErrMalformedInput, raw)
	}
	if math.Abs(v) > 180 {
		return fmt.Errorf("%w: coordinate %q is out of range", ErrMalformedInput, raw)
	}
	*c = KnownCoordinate(v)
	return nil
}

// MarshalJSON writes the unknown marker back out for unknown values.
func (c Coordinate) MarshalJSON() ([]byte, error) {
	if !c.Known {
		return json.Marshal(unknownSentinel)
	}
	return json.Marshal(c.Value)
}

// Identifier is an optional textual identifier such as a stock symbol or CIK.
type Identifier struct {
	Value string
	Known bool
}

// KnownIdentifier builds a known identifier.
func KnownIdentifier(v string) Identifier { return Identifier{Value: v, Known: true} }

// UnmarshalJSON treats "Unknown", blank strings and null as absent.
func (i *Identifier) UnmarshalJSON(data []byte) error {
	*i = Identifier{}
	raw := strings.TrimSpace(string(data))
	if raw == "null" {
		return nil
	}
	var s string
	if strings.HasPrefix(raw, `"`) {
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
	} else {
		// Some collections store CIKs as bare numbers.
		s = raw
	}
	s = strings.TrimSpace(s)
	if s == "" || strings.EqualFold(s, unknownSentinel) {
		return nil
	}
	*i = KnownIdentifier(s)
	return nil
}

// MarshalJSON writes the unknown marker back out for unknown values.
func (i Identifier) MarshalJSON() ([]byte, error) {
	if !i.Known {
		return json.Marshal(unknownSentinel)
	}
	return json.Marshal(i.Value)
}

// Display returns the value, or the unknown marker for display purposes.
func (i Identifier) Display() string {
	if !i.Known {
		return unknownSentinel
	}
	return i.Value
}
