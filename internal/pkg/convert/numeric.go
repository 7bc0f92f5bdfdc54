// Package convert coerces loosely typed feed values. Market APIs and
// catalyst files carry numbers as strings, json.Number, or floats
// interchangeably.
package convert

import (
	"encoding/json"
	"strconv"
	"strings"
)

// ToFloat64 reads a price, depth, or score out of whatever numeric shape
// the payload used. Returns 0 for unsupported types or parse failures.
func ToFloat64(v any) float64 {
	switch t := v.(type) {
	case nil:
		return 0
	case float64:
		return t
	case float32:
		return float64(t)
	case int:
		return float64(t)
	case int64:
		return float64(t)
	case int32:
		return float64(t)
	case uint64:
		return float64(t)
	case json.Number:
		f, _ := t.Float64()
		return f
	case string:
		f, _ := strconv.ParseFloat(strings.TrimSpace(t), 64)
		return f
	default:
		return 0
	}
}
