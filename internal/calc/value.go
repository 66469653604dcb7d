package calc

import (
	"encoding/json"
	"strconv"
)

// Value is one scaled nutrient cell. Empty marks a source cell with no
// numeric data; it is distinct from a real zero.
type Value struct {
	Num   float64
	Empty bool
}

// Num returns a numeric Value.
func Num(f float64) Value { return Value{Num: f} }

// EmptyValue returns the "no data" marker.
func EmptyValue() Value { return Value{Empty: true} }

// OrZero returns the number, or 0 for an empty marker.
func (v Value) OrZero() float64 {
	if v.Empty {
		return 0
	}
	return v.Num
}

// MarshalJSON encodes the empty marker as null.
func (v Value) MarshalJSON() ([]byte, error) {
	if v.Empty {
		return []byte("null"), nil
	}
	return json.Marshal(v.Num)
}

// UnmarshalJSON accepts a number or null.
func (v *Value) UnmarshalJSON(b []byte) error {
	if string(b) == "null" {
		*v = EmptyValue()
		return nil
	}
	var f float64
	if err := json.Unmarshal(b, &f); err != nil {
		return err
	}
	*v = Num(f)
	return nil
}

// Round2 rounds f to two decimals from its exact binary value, sending exact
// halves to the even neighbour.
func Round2(f float64) float64 {
	r, err := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	if err != nil {
		return f
	}
	if r == 0 {
		// -0 would encode as "-0"
		r = 0
	}
	return r
}
