package value

import (
	"bytes"
	"fmt"

	json "github.com/goccy/go-json"
)

// numberLiteral matches json.Number from both encoding/json and go-json.
type numberLiteral interface {
	Float64() (float64, error)
	String() string
}

// FromAny converts a decoded Go value (JSON, YAML, literals) to a Value.
// Nested maps become Objects; a top-level map is also an Object, use
// RecordFromAny for whole records.
func FromAny(v any) (Value, error) {
	switch val := v.(type) {
	case nil:
		return Null{}, nil
	case Value:
		return val, nil
	case string:
		return String(val), nil
	case bool:
		return Bool(val), nil
	case int:
		return Number(val), nil
	case int32:
		return Number(val), nil
	case int64:
		return Number(val), nil
	case uint:
		return Number(val), nil
	case uint64:
		return Number(val), nil
	case float32:
		return Number(val), nil
	case float64:
		return Number(val), nil
	case numberLiteral:
		f, err := val.Float64()
		if err != nil {
			return nil, fmt.Errorf("number %s: %w", val.String(), err)
		}
		return Number(f), nil
	case []any:
		arr := make(Array, len(val))
		for i, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("[%d]: %w", i, err)
			}
			arr[i] = conv
		}
		return arr, nil
	case []string:
		arr := make(Array, len(val))
		for i, s := range val {
			arr[i] = String(s)
		}
		return arr, nil
	case map[string]any:
		obj := make(Object, len(val))
		for k, elem := range val {
			conv, err := FromAny(elem)
			if err != nil {
				return nil, fmt.Errorf("%q: %w", k, err)
			}
			obj[k] = conv
		}
		return obj, nil
	case Record:
		return Object(val), nil
	default:
		return nil, fmt.Errorf("unsupported type: %T", v)
	}
}

// RecordFromAny converts a decoded map to a Record.
func RecordFromAny(m map[string]any) (Record, error) {
	rec := make(Record, len(m))
	for k, v := range m {
		conv, err := FromAny(v)
		if err != nil {
			return nil, fmt.Errorf("%q: %w", k, err)
		}
		rec[k] = conv
	}
	return rec, nil
}

// ToAny converts a Value back to plain Go values for display and encoding.
func ToAny(v Value) any {
	switch val := v.(type) {
	case nil, Null:
		return nil
	case String:
		return string(val)
	case Number:
		return float64(val)
	case Bool:
		return bool(val)
	case Array:
		out := make([]any, len(val))
		for i, elem := range val {
			out[i] = ToAny(elem)
		}
		return out
	case Object:
		out := make(map[string]any, len(val))
		for k, elem := range val {
			out[k] = ToAny(elem)
		}
		return out
	}
	return nil
}

// RecordToAny converts a Record to a plain map.
func RecordToAny(r Record) map[string]any {
	if r == nil {
		return nil
	}
	out := make(map[string]any, len(r))
	for k, v := range r {
		out[k] = ToAny(v)
	}
	return out
}

// ParseJSON decodes a single JSON value. Numbers keep full precision
// until converted to Number.
func ParseJSON(data []byte) (Value, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse json: %w", err)
	}
	return FromAny(raw)
}

// ParseRecord decodes a JSON object into a Record.
func ParseRecord(data []byte) (Record, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	var raw map[string]any
	if err := dec.Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse record: %w", err)
	}
	if raw == nil {
		return nil, fmt.Errorf("parse record: not a JSON object")
	}
	return RecordFromAny(raw)
}

// UnmarshalJSON implements json.Unmarshaler.
func (r *Record) UnmarshalJSON(data []byte) error {
	rec, err := ParseRecord(data)
	if err != nil {
		return err
	}
	*r = rec
	return nil
}
