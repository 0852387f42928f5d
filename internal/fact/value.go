package fact

import (
	"encoding/json"
	"math"
	"strconv"
	"unicode/utf16"
)

// Value is a sealed interface over the field value types.
// Only String, Number, and Boolean implement it.
type Value interface {
	fieldValue() // Sealed
}

// String is a string field value.
type String string

func (String) fieldValue() {}

// Number is a numeric field value. All numbers are float64, matching the
// number model of the canonical JSON encoding.
type Number float64

func (Number) fieldValue() {}

// Boolean is a boolean field value.
type Boolean bool

func (Boolean) fieldValue() {}

// ValueOf converts a Go value to a field Value.
// Returns an UnsupportedFieldType error for any other type.
func ValueOf(v any) (Value, error) {
	return valueOf("", v)
}

func valueOf(name string, v any) (Value, error) {
	switch val := v.(type) {
	case Value:
		return checkValue(name, val)
	case string:
		return String(val), nil
	case bool:
		return Boolean(val), nil
	case int:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint32:
		return Number(val), nil
	case float32:
		return checkValue(name, Number(val))
	case float64:
		return checkValue(name, Number(val))
	case json.Number:
		f, err := strconv.ParseFloat(string(val), 64)
		if err != nil {
			return nil, &DataError{Code: CodeInvalidFieldValue, Name: name, Message: err.Error()}
		}
		return checkValue(name, Number(f))
	default:
		return nil, unsupported(name, v)
	}
}

func checkValue(name string, v Value) (Value, error) {
	if n, ok := v.(Number); ok {
		if math.IsNaN(float64(n)) || math.IsInf(float64(n), 0) {
			return nil, &DataError{
				Code:    CodeInvalidFieldValue,
				Name:    name,
				Message: "NaN and infinite numbers have no canonical encoding",
			}
		}
	}
	return v, nil
}

// Interface returns the plain Go value held by v.
func Interface(v Value) any {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Boolean:
		return bool(val)
	default:
		return nil
	}
}

// compareKeys orders names by UTF-16 code units, matching the default
// string ordering of JavaScript and ordinal ordering in .NET.
func compareKeys(a, b string) int {
	a16 := utf16.Encode([]rune(a))
	b16 := utf16.Encode([]rune(b))

	n := min(len(a16), len(b16))
	for i := 0; i < n; i++ {
		if a16[i] != b16[i] {
			if a16[i] < b16[i] {
				return -1
			}
			return 1
		}
	}

	switch {
	case len(a16) < len(b16):
		return -1
	case len(a16) > len(b16):
		return 1
	}
	return 0
}
