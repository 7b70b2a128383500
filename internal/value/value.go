package value

import (
	"math"
	"slices"
	"strconv"
)

// IDKey is the reserved record key holding the persisted identifier.
const IDKey = "id"

// Value is a sealed interface over the shapes a context field can hold.
type Value interface {
	value() // Sealed - only the types below implement it
}

// Null is an explicit absent value.
type Null struct{}

func (Null) value() {}

// String is a string scalar. String and number fields hold String("")
// while unset.
type String string

func (String) value() {}

// Number is a numeric scalar.
type Number float64

func (Number) value() {}

// Bool is a boolean scalar.
type Bool bool

func (Bool) value() {}

// Array is a sequence of scalars or of objects.
type Array []Value

func (Array) value() {}

// Object is a nested object, the element type of arrays-of-objects.
type Object map[string]Value

func (Object) value() {}

// Record is a whole data context or persisted entity.
type Record map[string]Value

// Getter reads a field from the current data context.
type Getter func(field string) Value

// IsScalar reports whether v is a String, Number or Bool.
func IsScalar(v Value) bool {
	switch v.(type) {
	case String, Number, Bool:
		return true
	}
	return false
}

// IsEmpty reports whether v counts as "not filled in": nil, Null or "".
func IsEmpty(v Value) bool {
	switch val := v.(type) {
	case nil, Null:
		return true
	case String:
		return val == ""
	}
	return false
}

// Text renders a scalar the way it appears in a form control.
// Non-scalars render as "".
func Text(v Value) string {
	switch val := v.(type) {
	case String:
		return string(val)
	case Number:
		return FormatNumber(float64(val))
	case Bool:
		return strconv.FormatBool(bool(val))
	}
	return ""
}

// FormatNumber formats n with the shortest representation that round-trips.
func FormatNumber(n float64) string {
	if n == math.Trunc(n) && math.Abs(n) < 1e15 {
		return strconv.FormatInt(int64(n), 10)
	}
	return strconv.FormatFloat(n, 'g', -1, 64)
}

// ID returns the persisted identifier and whether one is set.
func (r Record) ID() (string, bool) {
	v, ok := r[IDKey]
	if !ok {
		return "", false
	}
	s, ok := v.(String)
	if !ok || s == "" {
		return "", false
	}
	return string(s), true
}

// SortedKeys returns the record keys in lexical order.
func (r Record) SortedKeys() []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// SortedKeys returns the object keys in lexical order.
func (o Object) SortedKeys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Clone returns a shallow copy of r. Values are shared; callers that
// change a nested Array or Object must copy it too.
func (r Record) Clone() Record {
	if r == nil {
		return nil
	}
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// Without returns a shallow copy of r without the given keys.
func (r Record) Without(keys ...string) Record {
	out := r.Clone()
	for _, k := range keys {
		delete(out, k)
	}
	return out
}

// Getter returns a Getter over r. Missing fields read as nil.
func (r Record) Getter() Getter {
	return func(field string) Value {
		return r[field]
	}
}

// Clone returns a shallow copy of o.
func (o Object) Clone() Object {
	if o == nil {
		return nil
	}
	out := make(Object, len(o))
	for k, v := range o {
		out[k] = v
	}
	return out
}

// Append returns a new array holding a's elements followed by v.
// a itself is never modified, even if it has spare capacity.
func (a Array) Append(v Value) Array {
	out := make(Array, len(a), len(a)+1)
	copy(out, a)
	return append(out, v)
}

// Clone returns a shallow copy of a.
func (a Array) Clone() Array {
	if a == nil {
		return nil
	}
	out := make(Array, len(a))
	copy(out, a)
	return out
}

// Contains reports whether any element of a renders to the same text as s.
func (a Array) Contains(s string) bool {
	for _, elem := range a {
		if IsScalar(elem) && Text(elem) == s {
			return true
		}
	}
	return false
}
