package schema

import (
	"math"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"

	"github.com/roach88/wizard/internal/value"
)

// CleanOptions controls Clean.
type CleanOptions struct {
	// PreserveEmptyStrings keeps "" values. The engine sets it: an empty
	// string is the unset sentinel of string and number fields.
	PreserveEmptyStrings bool
	// KeepUnknown keeps keys the schema does not declare.
	KeepUnknown bool
}

// Clean coerces rec to the declared field kinds and returns a new record.
// rec is not modified. Strings are trimmed and put in Unicode NFC, so a
// decomposed "e\u0301" and a precomposed "\u00e9" compare equal.
//
// Keys may be top-level names or indexed addresses; an indexed key is
// cleaned with its subfield's kind. The id key passes through untouched.
// Values that cannot be coerced are kept as they are so validation can
// report them.
func (s *Schema) Clean(rec value.Record, opts CleanOptions) value.Record {
	out := make(value.Record, len(rec))
	for k, v := range rec {
		if k == value.IDKey {
			out[k] = v
			continue
		}
		f, ok := s.Field(k)
		if !ok {
			if opts.KeepUnknown {
				out[k] = v
			}
			continue
		}
		cleaned := cleanValue(f, v, opts)
		if !opts.PreserveEmptyStrings && isBlank(cleaned) {
			continue
		}
		out[k] = cleaned
	}
	return out
}

func isBlank(v value.Value) bool {
	s, ok := v.(value.String)
	return ok && s == ""
}

func cleanValue(f *Field, v value.Value, opts CleanOptions) value.Value {
	switch f.Kind {
	case KindString:
		return cleanString(v)
	case KindNumber:
		return cleanNumber(v)
	case KindBoolean:
		return cleanBool(v)
	case KindArray:
		return cleanArray(f.Of, v)
	case KindObjectArray:
		return cleanObjectArray(f, v, opts)
	}
	return v
}

func cleanScalar(k Kind, v value.Value) value.Value {
	switch k {
	case KindNumber:
		return cleanNumber(v)
	case KindBoolean:
		return cleanBool(v)
	default:
		return cleanString(v)
	}
}

func cleanString(v value.Value) value.Value {
	switch val := v.(type) {
	case nil, value.Null:
		return value.String("")
	case value.String:
		return value.String(norm.NFC.String(strings.TrimSpace(string(val))))
	case value.Number, value.Bool:
		return value.String(value.Text(val))
	}
	return v
}

func cleanNumber(v value.Value) value.Value {
	switch val := v.(type) {
	case nil, value.Null:
		return value.String("")
	case value.String:
		text := strings.TrimSpace(string(val))
		if text == "" {
			return value.String("")
		}
		n, err := strconv.ParseFloat(text, 64)
		if err != nil || math.IsInf(n, 0) || math.IsNaN(n) {
			return value.String(text)
		}
		return value.Number(n)
	}
	return v
}

func cleanBool(v value.Value) value.Value {
	switch val := v.(type) {
	case nil, value.Null:
		return value.Bool(false)
	case value.String:
		switch strings.ToLower(strings.TrimSpace(string(val))) {
		case "true", "on", "1", "yes":
			return value.Bool(true)
		case "false", "off", "0", "no", "":
			return value.Bool(false)
		}
	case value.Number:
		return value.Bool(val != 0)
	}
	return v
}

func cleanArray(of Kind, v value.Value) value.Value {
	switch val := v.(type) {
	case nil, value.Null:
		return value.Array{}
	case value.Array:
		out := make(value.Array, 0, len(val))
		for _, elem := range val {
			if !value.IsScalar(elem) {
				out = append(out, elem)
				continue
			}
			c := cleanScalar(of, elem)
			if isBlank(c) {
				continue
			}
			out = append(out, c)
		}
		return out
	case value.String, value.Number, value.Bool:
		c := cleanScalar(of, val)
		if isBlank(c) {
			return value.Array{}
		}
		return value.Array{c}
	}
	return v
}

func cleanObjectArray(f *Field, v value.Value, opts CleanOptions) value.Value {
	switch val := v.(type) {
	case nil, value.Null:
		return value.Array{}
	case value.Object:
		return cleanObject(f, val, opts)
	case value.Array:
		out := make(value.Array, len(val))
		for i, elem := range val {
			if obj, ok := elem.(value.Object); ok {
				out[i] = cleanObject(f, obj, opts)
				continue
			}
			out[i] = elem
		}
		return out
	}
	return v
}

func cleanObject(f *Field, obj value.Object, opts CleanOptions) value.Object {
	if len(f.Subfields) == 0 {
		return obj.Clone()
	}
	out := make(value.Object, len(obj))
	for k, v := range obj {
		sf, ok := f.Subfield(k)
		if !ok {
			if opts.KeepUnknown {
				out[k] = v
			}
			continue
		}
		c := cleanScalar(sf.Kind, v)
		if !opts.PreserveEmptyStrings && isBlank(c) {
			continue
		}
		out[k] = c
	}
	return out
}
