package generators

import (
	"fmt"
	"strconv"
)

// JSON and YAML decoders hand numbers over as float64, int or int64
// depending on source; these helpers normalize.

func toFloat64(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	default:
		return 0
	}
}

func toInt64(v any) int64 {
	switch val := v.(type) {
	case int:
		return int64(val)
	case int64:
		return val
	case float64:
		return int64(val)
	default:
		return 0
	}
}

func toString(v any) string {
	switch val := v.(type) {
	case nil:
		return ""
	case string:
		return val
	case float64:
		return strconv.FormatFloat(val, 'f', -1, 64)
	case int:
		return strconv.Itoa(val)
	case int64:
		return strconv.FormatInt(val, 10)
	default:
		return fmt.Sprintf("%v", val)
	}
}

func toStringSlice(v any) []string {
	raw, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]string); ok {
			return typed
		}
		return nil
	}
	out := make([]string, len(raw))
	for i, item := range raw {
		out[i] = toString(item)
	}
	return out
}

func toFloat64Slice(v any) []float64 {
	raw, ok := v.([]any)
	if !ok {
		if typed, ok := v.([]float64); ok {
			return typed
		}
		return nil
	}
	out := make([]float64, len(raw))
	for i, item := range raw {
		out[i] = toFloat64(item)
	}
	return out
}
