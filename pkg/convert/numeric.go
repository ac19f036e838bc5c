// Package convert provides exact conversions from Go-native values for NornicFed.
//
// Property values arrive from many places: JSON exports (json.Number when decoded
// with UseNumber), YAML fixtures (int, float64), BadgerDB records (int8..int64,
// uint8..uint64 depending on the msgpack width) and the Neo4j driver (int64,
// float64). The value model only knows two numeric representations, INTEGER
// (int64) and FLOAT (float64), so everything has to be funnelled into one of them
// without silently changing which one it is.
//
// Key Functions:
//   - Integer: integral Go types and integral json.Number -> int64
//   - Float: float32/float64 and fractional json.Number -> float64
//   - CompareIntFloat: exact ordering between an int64 and a float64
//   - ToStringSlice: []any of strings -> []string
//
// Conversions never go through strings (other than json.Number) and never truncate:
// a float is not an integer, and a uint64 above math.MaxInt64 is rejected.
package convert

import (
	"encoding/json"
	"math"
	"strconv"
)

// Integer converts integral Go values to int64.
// Returns (value, true) on success, (0, false) when v is not an integer that fits.
//
// Example:
//
//	i, ok := Integer(int32(7))              // (7, true)
//	i, ok := Integer(json.Number("42"))     // (42, true)
//	i, ok := Integer(3.0)                   // (0, false) - floats stay floats
//	i, ok := Integer(uint64(math.MaxUint64)) // (0, false) - overflow
func Integer(v any) (int64, bool) {
	switch val := v.(type) {
	case int64:
		return val, true
	case int:
		return int64(val), true
	case int32:
		return int64(val), true
	case int16:
		return int64(val), true
	case int8:
		return int64(val), true
	case uint8:
		return int64(val), true
	case uint16:
		return int64(val), true
	case uint32:
		return int64(val), true
	case uint:
		if uint64(val) > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case uint64:
		if val > math.MaxInt64 {
			return 0, false
		}
		return int64(val), true
	case json.Number:
		if i, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return i, true
		}
	}
	return 0, false
}

// Float converts floating point Go values to float64.
// json.Number values that do not parse as an int64 are parsed as floats.
func Float(v any) (float64, bool) {
	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case json.Number:
		if _, err := strconv.ParseInt(string(val), 10, 64); err == nil {
			return 0, false
		}
		if f, err := strconv.ParseFloat(string(val), 64); err == nil {
			return f, true
		}
	}
	return 0, false
}

// twoTo63 is 2^63 as a float64, the first float above every int64.
const twoTo63 = float64(1 << 63)

// CompareIntFloat compares i and f exactly, returning -1, 0 or 1.
//
// Promoting i to float64 loses precision above 2^53, which would make numeric
// ordering intransitive (2^53+1 would equal 2^53 as a float but not as an int).
// Instead the float is split into integral and fractional parts. NaN compares
// greater than every integer.
func CompareIntFloat(i int64, f float64) int {
	switch {
	case math.IsNaN(f):
		return -1
	case f >= twoTo63:
		return -1
	case f < -twoTo63:
		return 1
	}

	whole, frac := math.Modf(f)
	w := int64(whole)
	switch {
	case i < w:
		return -1
	case i > w:
		return 1
	case frac > 0:
		return -1
	case frac < 0:
		return 1
	}
	return 0
}

// ToStringSlice converts a list of strings to []string.
//
// Supported types:
//   - []string (returned as-is)
//   - []any where every element is a string
//
// Returns nil for anything else, including mixed lists.
func ToStringSlice(v any) []string {
	switch val := v.(type) {
	case []string:
		return val
	case []any:
		result := make([]string, len(val))
		for i, item := range val {
			s, ok := item.(string)
			if !ok {
				return nil
			}
			result[i] = s
		}
		return result
	}
	return nil
}
