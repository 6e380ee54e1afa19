package utils

import "encoding/json"

// ToFloat64 converts various numeric types to float64.
// Returns the converted value and true if successful, or 0 and false if conversion fails.
// Supports: float64, float32, the sized int/uint types and json.Number
func ToFloat64(v interface{}) (float64, bool) {
	if v == nil {
		return 0, false
	}

	switch val := v.(type) {
	case float64:
		return val, true
	case float32:
		return float64(val), true
	case int:
		return float64(val), true
	case int8:
		return float64(val), true
	case int16:
		return float64(val), true
	case int32:
		return float64(val), true
	case int64:
		return float64(val), true
	case uint:
		return float64(val), true
	case uint8:
		return float64(val), true
	case uint16:
		return float64(val), true
	case uint32:
		return float64(val), true
	case uint64:
		return float64(val), true
	case json.Number:
		f, err := val.Float64()
		if err != nil {
			return 0, false
		}
		return f, true
	default:
		return 0, false
	}
}

// IsNumeric checks if a value can be converted to float64.
func IsNumeric(v interface{}) bool {
	_, ok := ToFloat64(v)
	return ok
}

// AllNumeric converts every element of values, failing on the first non-numeric one.
func AllNumeric(values []interface{}) ([]float64, bool) {
	result := make([]float64, 0, len(values))
	for _, v := range values {
		f, ok := ToFloat64(v)
		if !ok {
			return nil, false
		}
		result = append(result, f)
	}
	return result, true
}
