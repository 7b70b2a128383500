package engine

import (
	"fmt"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// mergeField returns a copy of ctx with v written at addr.
//
// Merge rules:
//   - indexed address: the element must already exist; its subfield is
//     replaced in a copy of the element inside a copy of the container
//   - object-array field given a single object: the object is appended to
//     a copy of the current array (or to an empty one)
//   - anything else: direct key replacement
//
// ctx and every Array or Object reachable from it are left untouched, so
// readers holding the previous context never observe the write.
func mergeField(ctx value.Record, s *schema.Schema, addr fieldpath.Address, v value.Value) (value.Record, error) {
	next := ctx.Clone()
	if next == nil {
		next = value.Record{}
	}

	if addr.IsIndexed() {
		arr, ok := ctx[addr.Container].(value.Array)
		if !ok {
			return nil, &Error{
				Code:    CodeContainerMissing,
				Message: fmt.Sprintf("%s does not hold an array", addr.Container),
				Field:   addr.Raw,
			}
		}
		if addr.Index >= len(arr) {
			return nil, &Error{
				Code:    CodeIndexOutOfRange,
				Message: fmt.Sprintf("%s has %d elements", addr.Container, len(arr)),
				Field:   addr.Raw,
			}
		}
		elem, ok := arr[addr.Index].(value.Object)
		if !ok {
			return nil, &Error{
				Code:    CodeContainerMissing,
				Message: fmt.Sprintf("%s.%d is not an object", addr.Container, addr.Index),
				Field:   addr.Raw,
			}
		}

		elem = elem.Clone()
		elem[addr.Subfield] = v
		arr = arr.Clone()
		arr[addr.Index] = elem
		next[addr.Container] = arr
		return next, nil
	}

	if obj, ok := v.(value.Object); ok {
		if k, known := s.Kind(addr.Raw); known && k == schema.KindObjectArray {
			cur, _ := ctx[addr.Raw].(value.Array)
			next[addr.Raw] = cur.Append(obj)
			return next, nil
		}
	}

	next[addr.Raw] = v
	return next, nil
}

// resetDependencies overwrites every dependent of field with its default.
// next must already be a private copy.
func resetDependencies(next value.Record, s *schema.Schema, field string) []string {
	deps := s.DependenciesOf(field)
	for _, dep := range deps {
		if def, ok := s.DefaultFor(dep); ok {
			next[dep] = def
		}
	}
	return deps
}
