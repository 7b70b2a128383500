// Package schema describes the fields a wizard edits.
//
// A Schema is a typed descriptor built once, at configuration time, either
// programmatically with New or by compiling CUE (see Compile). The engine
// consults it by value: field kinds, type-derived defaults, dependent
// fields, allowed-value sources and the Clean coercion step.
//
// Fields of arrays-of-objects are addressed in schema form as
// "container.$.subfield"; lookups accept either that form or an indexed
// address ("tags.2.label"), which is normalized first.
package schema

import (
	"fmt"
	"strings"
	"unicode"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/value"
)

// Schema is an ordered set of field descriptors.
type Schema struct {
	name   string
	fields []*Field
	index  map[string]*Field
}

// New builds a schema from field descriptors. Field order is preserved.
//
// New validates that:
//   - names are unique and do not use the reserved "id" key
//   - every field has a known kind
//   - subfields appear only on object arrays and are scalars
//   - dependencies, of fields and subfields, name declared top-level fields
func New(name string, fields ...*Field) (*Schema, error) {
	s := &Schema{
		name:  name,
		index: make(map[string]*Field),
	}

	for _, f := range fields {
		if err := s.add(f); err != nil {
			return nil, err
		}
	}

	for _, f := range s.fields {
		if err := s.checkDependencies(f.Name, f); err != nil {
			return nil, err
		}
		for _, sf := range f.Subfields {
			if err := s.checkDependencies(f.Name+"."+fieldpath.Placeholder+"."+sf.Name, sf); err != nil {
				return nil, err
			}
		}
	}

	return s, nil
}

// checkDependencies requires every dependency of f to name a top-level field.
func (s *Schema) checkDependencies(path string, f *Field) error {
	for _, dep := range f.Dependencies {
		if _, ok := s.index[dep]; !ok || strings.Contains(dep, ".") {
			return fmt.Errorf("field %q: dependency %q is not declared", path, dep)
		}
	}
	return nil
}

// MustNew is New for statically known schemas. It panics on error.
func MustNew(name string, fields ...*Field) *Schema {
	s, err := New(name, fields...)
	if err != nil {
		panic(err)
	}
	return s
}

func (s *Schema) add(f *Field) error {
	if f == nil {
		return fmt.Errorf("nil field")
	}
	if f.Name == "" || strings.Contains(f.Name, ".") {
		return fmt.Errorf("invalid field name %q", f.Name)
	}
	if f.Name == value.IDKey {
		return fmt.Errorf("field name %q is reserved", value.IDKey)
	}
	if _, dup := s.index[f.Name]; dup {
		return fmt.Errorf("duplicate field %q", f.Name)
	}
	if _, ok := kindNames[f.Kind]; !ok {
		return fmt.Errorf("field %q: unknown kind %d", f.Name, int(f.Kind))
	}
	if f.Kind == KindArray {
		if f.Of == 0 {
			f.Of = KindString
		}
		if !f.Of.IsScalar() {
			return fmt.Errorf("field %q: array elements must be scalars, got %s", f.Name, f.Of)
		}
	}
	if len(f.Subfields) > 0 && f.Kind != KindObjectArray {
		return fmt.Errorf("field %q: subfields require an object array", f.Name)
	}
	if f.Label == "" {
		f.Label = Humanize(f.Name)
	}

	s.fields = append(s.fields, f)
	s.index[f.Name] = f

	for _, sf := range f.Subfields {
		if !sf.Kind.IsScalar() {
			return fmt.Errorf("field %q: subfield %q must be a scalar", f.Name, sf.Name)
		}
		if sf.Label == "" {
			sf.Label = Humanize(sf.Name)
		}
		s.index[f.Name+"."+fieldpath.Placeholder+"."+sf.Name] = sf
	}
	return nil
}

// Name returns the schema name.
func (s *Schema) Name() string {
	return s.name
}

// Fields returns the top-level fields in declaration order.
func (s *Schema) Fields() []*Field {
	return s.fields
}

// FieldNames returns the top-level field names in declaration order.
func (s *Schema) FieldNames() []string {
	names := make([]string, len(s.fields))
	for i, f := range s.fields {
		names[i] = f.Name
	}
	return names
}

// Field looks up a field by name, schema path or indexed address.
func (s *Schema) Field(path string) (*Field, bool) {
	f, ok := s.index[fieldpath.Normalize(path)]
	return f, ok
}

// Kind returns the declared kind of a field.
func (s *Schema) Kind(path string) (Kind, bool) {
	f, ok := s.Field(path)
	if !ok {
		return 0, false
	}
	return f.Kind, true
}

// DefaultFor returns the type-derived default of a field.
func (s *Schema) DefaultFor(path string) (value.Value, bool) {
	f, ok := s.Field(path)
	if !ok {
		return nil, false
	}
	return DefaultValue(f.Kind), true
}

// DependenciesOf returns the fields reset when path changes.
func (s *Schema) DependenciesOf(path string) []string {
	f, ok := s.Field(path)
	if !ok {
		return nil
	}
	return f.Dependencies
}

// Label returns the display label, or "" for unknown fields.
func (s *Schema) Label(path string) string {
	f, ok := s.Field(path)
	if !ok {
		return ""
	}
	return f.Label
}

// Defaults returns a record holding the default of every top-level field.
// The id key is left unset.
func (s *Schema) Defaults() value.Record {
	rec := make(value.Record, len(s.fields))
	for _, f := range s.fields {
		rec[f.Name] = DefaultValue(f.Kind)
	}
	return rec
}

// AllowedValues lists the allowed values of a field. A function source
// wins over a static list; static entries are labelled with their value.
// Fields with neither yield an empty list.
func (s *Schema) AllowedValues(path string, get value.Getter) []Option {
	f, ok := s.Field(path)
	if !ok {
		return []Option{}
	}
	if f.AllowedFunc != nil {
		if get == nil {
			get = func(string) value.Value { return nil }
		}
		return f.AllowedFunc(get)
	}
	out := make([]Option, len(f.Allowed))
	for i, opt := range f.Allowed {
		if opt.Label == "" {
			opt.Label = opt.Value
		}
		out[i] = opt
	}
	return out
}

// SetAllowedFunc attaches a context-dependent allowed-value source.
func (s *Schema) SetAllowedFunc(path string, fn AllowedFunc) error {
	f, ok := s.Field(path)
	if !ok {
		return fmt.Errorf("unknown field %q", path)
	}
	f.AllowedFunc = fn
	return nil
}

// AddRule attaches a custom validation rule to a field.
func (s *Schema) AddRule(path string, rule Rule) error {
	f, ok := s.Field(path)
	if !ok {
		return fmt.Errorf("unknown field %q", path)
	}
	f.Rules = append(f.Rules, rule)
	return nil
}

// Humanize turns a field name into a label: "firstName" and "first_name"
// both become "First name".
func Humanize(name string) string {
	var words []string
	var cur []rune
	flush := func() {
		if len(cur) > 0 {
			words = append(words, strings.ToLower(string(cur)))
			cur = cur[:0]
		}
	}
	for _, r := range name {
		switch {
		case r == '_' || r == '-' || r == ' ':
			flush()
		case unicode.IsUpper(r):
			flush()
			cur = append(cur, r)
		default:
			cur = append(cur, r)
		}
	}
	flush()
	if len(words) == 0 {
		return ""
	}
	words[0] = cases.Title(language.English).String(words[0])
	return strings.Join(words, " ")
}
