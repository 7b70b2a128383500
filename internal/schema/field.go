package schema

import (
	"fmt"
	"regexp"

	"github.com/roach88/wizard/internal/value"
)

// Kind is the declared type of a field.
type Kind int

const (
	// KindString is a free-text scalar.
	KindString Kind = iota + 1
	// KindNumber is a numeric scalar. It holds "" while unset and is
	// coerced from text by Clean.
	KindNumber
	// KindBoolean is a checkbox-style flag.
	KindBoolean
	// KindArray is a sequence of scalars (multi-select).
	KindArray
	// KindObjectArray is a sequence of objects (repeated rows).
	KindObjectArray
)

var kindNames = map[Kind]string{
	KindString:      "string",
	KindNumber:      "number",
	KindBoolean:     "boolean",
	KindArray:       "array",
	KindObjectArray: "object_array",
}

// String returns the kind name used in CUE schemas and CLI output.
func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// IsScalar reports whether values of this kind are single scalars.
func (k Kind) IsScalar() bool {
	return k == KindString || k == KindNumber || k == KindBoolean
}

// IsArray reports whether values of this kind are sequences.
func (k Kind) IsArray() bool {
	return k == KindArray || k == KindObjectArray
}

// DefaultValue returns the value an unset field of kind k holds:
// "" for strings and numbers, false for booleans, [] for arrays.
func DefaultValue(k Kind) value.Value {
	switch k {
	case KindBoolean:
		return value.Bool(false)
	case KindArray, KindObjectArray:
		return value.Array{}
	default:
		return value.String("")
	}
}

// Option is one entry of an allowed-value list.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// AllowedFunc computes allowed values from the current data context.
type AllowedFunc func(get value.Getter) []Option

// Rule is a custom validation check. It returns an issue code, or "" when
// the value is acceptable. rec is the whole data context so rules can
// look at sibling fields.
type Rule func(field string, v value.Value, rec value.Record) string

// Field describes one schema field.
type Field struct {
	Name  string
	Kind  Kind
	Of    Kind // element kind for KindArray
	Label string

	Optional bool
	Min      *float64 // string length or numeric value
	Max      *float64
	MinCount *int
	MaxCount *int
	Pattern  *regexp.Regexp

	// Dependencies are reset to their defaults whenever this field changes.
	Dependencies []string

	Allowed     []Option
	AllowedFunc AllowedFunc

	// Subfields describe the element objects of a KindObjectArray.
	Subfields []*Field

	Rules []Rule
}

// HasAllowedValues reports whether the field declares an allowed-value source.
func (f *Field) HasAllowedValues() bool {
	return f.AllowedFunc != nil || len(f.Allowed) > 0
}

// MaxLength returns the declared maximum string length, or -1.
func (f *Field) MaxLength() int {
	if f.Kind != KindString || f.Max == nil {
		return -1
	}
	return int(*f.Max)
}

// Subfield returns the named subfield of an object array.
func (f *Field) Subfield(name string) (*Field, bool) {
	for _, sf := range f.Subfields {
		if sf.Name == name {
			return sf, true
		}
	}
	return nil, false
}
