package schema

import (
	"fmt"
	"os"
	"regexp"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	"cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/load"
	"cuelang.org/go/cue/token"
)

// CompileError is a schema authoring error with its CUE source position.
type CompileError struct {
	Field   string
	Message string
	Pos     token.Pos
}

func (e *CompileError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(),
			e.Field, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Catalog is a set of compiled schemas keyed by name, in source order.
type Catalog struct {
	order   []string
	schemas map[string]*Schema
}

// Get returns the named schema.
func (c *Catalog) Get(name string) (*Schema, bool) {
	s, ok := c.schemas[name]
	return s, ok
}

// Names returns schema names in source order.
func (c *Catalog) Names() []string {
	return c.order
}

// Len returns the number of schemas.
func (c *Catalog) Len() int {
	return len(c.order)
}

// LoadFile compiles every schema declared in a single CUE file.
func LoadFile(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema file: %w", err)
	}
	v := cuecontext.New().CompileBytes(data, cue.Filename(path))
	return CompileCatalog(v)
}

// LoadDir compiles the CUE package in dir.
func LoadDir(dir string) (*Catalog, error) {
	instances := load.Instances([]string{"."}, &load.Config{Dir: dir})
	if len(instances) == 0 {
		return nil, fmt.Errorf("no CUE instances in %s", dir)
	}
	inst := instances[0]
	if inst.Err != nil {
		return nil, formatCUEError(inst.Err)
	}
	v := cuecontext.New().BuildInstance(inst)
	return CompileCatalog(v)
}

// CompileCatalog compiles every entry under the top-level "schema" key.
func CompileCatalog(v cue.Value) (*Catalog, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	cat := &Catalog{schemas: make(map[string]*Schema)}

	root := v.LookupPath(cue.ParsePath("schema"))
	if !root.Exists() {
		return cat, nil
	}

	iter, err := root.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}
	for iter.Next() {
		s, err := Compile(iter.Value())
		if err != nil {
			return nil, err
		}
		cat.order = append(cat.order, s.Name())
		cat.schemas[s.Name()] = s
	}
	return cat, nil
}

// Compile parses one schema struct, e.g. the value at "schema.contacts":
//
//	schema: contacts: fields: {
//		name:    {type: "string", max: 40}
//		country: {type: "string", allowedValues: ["FR", "US"], dependencies: ["region"]}
//		region:  {type: "string", optional: true}
//		tags:    {type: "array", items: {label: {type: "string"}}}
//	}
func Compile(v cue.Value) (*Schema, error) {
	if err := v.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	var name string
	labels := v.Path().Selectors()
	if len(labels) > 0 {
		name = labels[len(labels)-1].String()
	}

	fieldsVal := v.LookupPath(cue.ParsePath("fields"))
	if !fieldsVal.Exists() {
		return nil, &CompileError{Field: "fields", Message: "fields is required", Pos: v.Pos()}
	}

	iter, err := fieldsVal.Fields()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var fields []*Field
	for iter.Next() {
		f, err := compileField(iter.Label(), iter.Value(), false)
		if err != nil {
			return nil, err
		}
		fields = append(fields, f)
	}

	s, err := New(name, fields...)
	if err != nil {
		return nil, &CompileError{Field: name, Message: err.Error(), Pos: v.Pos()}
	}
	return s, nil
}

func compileField(name string, v cue.Value, sub bool) (*Field, error) {
	f := &Field{Name: name}

	typeName, err := lookupString(v, "type")
	if err != nil {
		return nil, err
	}
	items := v.LookupPath(cue.ParsePath("items"))

	switch typeName {
	case "string", "":
		f.Kind = KindString
	case "number":
		f.Kind = KindNumber
	case "boolean":
		f.Kind = KindBoolean
	case "array":
		f.Kind = KindArray
		if items.Exists() {
			f.Kind = KindObjectArray
		}
	case "object_array":
		f.Kind = KindObjectArray
	default:
		return nil, &CompileError{Field: name, Message: fmt.Sprintf("unknown type %q", typeName), Pos: v.Pos()}
	}

	if sub && !f.Kind.IsScalar() {
		return nil, &CompileError{Field: name, Message: "subfields must be scalars", Pos: v.Pos()}
	}

	if f.Kind == KindArray {
		of, err := lookupString(v, "of")
		if err != nil {
			return nil, err
		}
		switch of {
		case "", "string":
			f.Of = KindString
		case "number":
			f.Of = KindNumber
		case "boolean":
			f.Of = KindBoolean
		default:
			return nil, &CompileError{Field: name, Message: fmt.Sprintf("unknown element type %q", of), Pos: v.Pos()}
		}
	}

	if f.Label, err = lookupString(v, "label"); err != nil {
		return nil, err
	}

	if opt := v.LookupPath(cue.ParsePath("optional")); opt.Exists() {
		b, err := opt.Bool()
		if err != nil {
			return nil, formatCUEError(err)
		}
		f.Optional = b
	}

	if f.Min, err = lookupFloat(v, "min"); err != nil {
		return nil, err
	}
	if f.Max, err = lookupFloat(v, "max"); err != nil {
		return nil, err
	}
	if f.MinCount, err = lookupInt(v, "minCount"); err != nil {
		return nil, err
	}
	if f.MaxCount, err = lookupInt(v, "maxCount"); err != nil {
		return nil, err
	}

	pattern, err := lookupString(v, "pattern")
	if err != nil {
		return nil, err
	}
	if pattern != "" {
		re, err := regexp.Compile(pattern)
		if err != nil {
			return nil, &CompileError{Field: name, Message: fmt.Sprintf("invalid pattern: %v", err), Pos: v.Pos()}
		}
		f.Pattern = re
	}

	if f.Dependencies, err = lookupStrings(v, "dependencies"); err != nil {
		return nil, err
	}

	if f.Allowed, err = parseAllowed(v); err != nil {
		return nil, err
	}

	if f.Kind == KindObjectArray && items.Exists() {
		subIter, err := items.Fields()
		if err != nil {
			return nil, formatCUEError(err)
		}
		for subIter.Next() {
			sf, err := compileField(subIter.Label(), subIter.Value(), true)
			if err != nil {
				return nil, err
			}
			f.Subfields = append(f.Subfields, sf)
		}
	}

	return f, nil
}

// parseAllowed reads allowedValues: a list of strings or {label, value}.
func parseAllowed(v cue.Value) ([]Option, error) {
	av := v.LookupPath(cue.ParsePath("allowedValues"))
	if !av.Exists() {
		return nil, nil
	}
	list, err := av.List()
	if err != nil {
		return nil, formatCUEError(err)
	}

	var opts []Option
	for list.Next() {
		elem := list.Value()
		if s, err := elem.String(); err == nil {
			opts = append(opts, Option{Label: s, Value: s})
			continue
		}
		val, err := lookupString(elem, "value")
		if err != nil {
			return nil, err
		}
		if val == "" {
			return nil, &CompileError{
				Field:   "allowedValues",
				Message: "entries must be strings or objects with a value",
				Pos:     elem.Pos(),
			}
		}
		label, err := lookupString(elem, "label")
		if err != nil {
			return nil, err
		}
		if label == "" {
			label = val
		}
		opts = append(opts, Option{Label: label, Value: val})
	}
	return opts, nil
}

func lookupString(v cue.Value, path string) (string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return "", nil
	}
	s, err := fv.String()
	if err != nil {
		return "", formatCUEError(err)
	}
	return s, nil
}

func lookupStrings(v cue.Value, path string) ([]string, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	list, err := fv.List()
	if err != nil {
		return nil, formatCUEError(err)
	}
	var out []string
	for list.Next() {
		s, err := list.Value().String()
		if err != nil {
			return nil, formatCUEError(err)
		}
		out = append(out, s)
	}
	return out, nil
}

func lookupFloat(v cue.Value, path string) (*float64, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	n, err := fv.Float64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	return &n, nil
}

func lookupInt(v cue.Value, path string) (*int, error) {
	fv := v.LookupPath(cue.ParsePath(path))
	if !fv.Exists() {
		return nil, nil
	}
	n, err := fv.Int64()
	if err != nil {
		return nil, formatCUEError(err)
	}
	i := int(n)
	return &i, nil
}

// formatCUEError extracts position info from CUE errors.
func formatCUEError(err error) error {
	if err == nil {
		return nil
	}

	errs := errors.Errors(err)
	if len(errs) == 0 {
		return err
	}

	first := errs[0]
	positions := errors.Positions(first)
	if len(positions) > 0 {
		return &CompileError{
			Field:   "cue",
			Message: first.Error(),
			Pos:     positions[0],
		}
	}
	return err
}
