// Package fieldpath parses field addresses into a data context.
//
// A field address is either a simple field name ("country") or an indexed
// address into an array-of-objects ("tags.1.label"). Only one level of
// nesting is addressable and the index is a single digit, so positions
// 0-9 are reachable through indexed addresses. Anything else, including
// "tags.10.label" or "a.1.b.c", is treated as a simple field name.
package fieldpath

import (
	"regexp"
	"strconv"

	"github.com/roach88/wizard/internal/value"
)

// Kind classifies a field address.
type Kind int

const (
	// Simple addresses a top-level field.
	Simple Kind = iota
	// Indexed addresses a subfield of one element of an array-of-objects.
	Indexed
)

// String returns the kind name.
func (k Kind) String() string {
	if k == Indexed {
		return "indexed"
	}
	return "simple"
}

// Placeholder replaces the index in normalized schema paths ("tags.$.label").
const Placeholder = "$"

var (
	indexedPattern = regexp.MustCompile(`^([^.]+)\.(\d)\.([^.]+)$`)
	indexToken     = regexp.MustCompile(`\.\d\.`)
)

// Address is a parsed field address.
type Address struct {
	Raw       string
	Kind      Kind
	Container string // Indexed only
	Index     int    // Indexed only
	Subfield  string // Indexed only
}

// Parse classifies s. It never fails: every string that is not an indexed
// address is a simple one.
func Parse(s string) Address {
	m := indexedPattern.FindStringSubmatch(s)
	if m == nil {
		return Address{Raw: s, Kind: Simple}
	}
	idx, _ := strconv.Atoi(m[2]) // single digit, cannot fail
	return Address{
		Raw:       s,
		Kind:      Indexed,
		Container: m[1],
		Index:     idx,
		Subfield:  m[3],
	}
}

// IsIndexed reports whether the address points inside an array element.
func (a Address) IsIndexed() bool {
	return a.Kind == Indexed
}

// Field returns the top-level field the address writes to.
func (a Address) Field() string {
	if a.Kind == Indexed {
		return a.Container
	}
	return a.Raw
}

// SchemaKey returns the address in schema form: "tags.1.label" becomes
// "tags.$.label", simple names are unchanged.
func (a Address) SchemaKey() string {
	if a.Kind == Indexed {
		return a.Container + "." + Placeholder + "." + a.Subfield
	}
	return a.Raw
}

// Normalize replaces a ".N." index segment with ".$." so an address can be
// matched against schema and visible-field definitions.
func Normalize(s string) string {
	return indexToken.ReplaceAllLiteralString(s, "."+Placeholder+".")
}

// Join builds the indexed address for element i of container.
func Join(container string, i int, subfield string) string {
	return container + "." + strconv.Itoa(i) + "." + subfield
}

// Lookup resolves s against rec. Indexed addresses whose container or
// element does not exist report false.
func Lookup(rec value.Record, s string) (value.Value, bool) {
	if rec == nil {
		return nil, false
	}
	a := Parse(s)
	if a.Kind == Simple {
		v, ok := rec[s]
		return v, ok
	}
	arr, ok := rec[a.Container].(value.Array)
	if !ok || a.Index >= len(arr) {
		return nil, false
	}
	obj, ok := arr[a.Index].(value.Object)
	if !ok {
		return nil, false
	}
	v, ok := obj[a.Subfield]
	return v, ok
}
