package validation

import (
	"context"
	"encoding/json"
	"math"
	"slices"
	"strconv"
	"unicode/utf8"

	"github.com/reoring/goskema"
	"github.com/reoring/goskema/dsl"
	js "github.com/reoring/goskema/jsonschema"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// ruleSet is a wizard schema compiled to goskema schemas: one object
// schema for whole records and one parser per field for single-field passes.
type ruleSet struct {
	root   goskema.Schema[map[string]any]
	fields map[string]fieldRule // keyed by schema path ("name", "tags.$.label")
}

type fieldRule struct {
	field *schema.Field
	parse func(context.Context, any) error
}

func (rs *ruleSet) lookup(addr string) (fieldRule, bool) {
	fr, ok := rs.fields[fieldpath.Normalize(addr)]
	return fr, ok
}

func compile(s *schema.Schema) *ruleSet {
	rs := &ruleSet{fields: make(map[string]fieldRule)}
	b := dsl.Object().UnknownStrict()
	for _, f := range s.Fields() {
		b.Field(f.Name, rs.field(s, f, f.Name))
	}
	rs.root = b.Require(required(s.Fields())...).MustBuild()
	return rs
}

func required(fields []*schema.Field) []string {
	var names []string
	for _, f := range fields {
		if !f.Optional {
			names = append(names, f.Name)
		}
	}
	return names
}

func (rs *ruleSet) field(s *schema.Schema, f *schema.Field, key string) dsl.AnyAdapter {
	switch f.Kind {
	case schema.KindNumber:
		return register[json.Number](rs, key, f, &refined[json.Number]{
			Schema: dsl.NumberJSON(), field: f, schema: s, checks: numberChecks(f),
		})
	case schema.KindBoolean:
		return register[bool](rs, key, f, &refined[bool]{Schema: dsl.Bool(), field: f, schema: s})
	case schema.KindArray:
		switch f.Of {
		case schema.KindNumber:
			return register[[]json.Number](rs, key, f, elements[json.Number](dsl.NumberJSON(), f, s, finite))
		case schema.KindBoolean:
			return register[[]bool](rs, key, f, elements[bool](dsl.Bool(), f, s, nil))
		default:
			return register[[]string](rs, key, f, elements[string](dsl.String(), f, s, matches(f)))
		}
	case schema.KindObjectArray:
		row := dsl.Object().UnknownStrip()
		for _, sf := range f.Subfields {
			row.Field(sf.Name, rs.field(s, sf, f.Name+"."+fieldpath.Placeholder+"."+sf.Name))
		}
		rows := &rowsSchema{row: row.Require(required(f.Subfields)...).MustBuild(), field: f, schema: s}
		return register[[]map[string]any](rs, key, f, rows)
	default:
		return register[string](rs, key, f, &refined[string]{
			Schema: dsl.String(), field: f, schema: s, checks: stringChecks(f),
		})
	}
}

func register[T any](rs *ruleSet, key string, f *schema.Field, sch goskema.Schema[T]) dsl.AnyAdapter {
	rs.fields[key] = fieldRule{field: f, parse: func(ctx context.Context, v any) error {
		_, err := sch.Parse(ctx, v)
		return err
	}}
	return dsl.SchemaOf(sch)
}

// scope is the part of the record a nested parse needs to see.
type scope struct {
	rec    value.Record
	prefix string // "" at top level, "tags.1." inside a row
}

type scopeKey struct{}

func withScope(ctx context.Context, sc scope) context.Context {
	return context.WithValue(ctx, scopeKey{}, sc)
}

func scopeOf(ctx context.Context) scope {
	sc, _ := ctx.Value(scopeKey{}).(scope)
	return sc
}

type check[T any] func(T) *goskema.Issue

func fail(code string) *goskema.Issue {
	return &goskema.Issue{Path: "/", Code: code}
}

// refined runs field checks on top of a goskema schema. Typed checks see
// the parsed value; allowed values and custom rules see the record value.
type refined[T any] struct {
	goskema.Schema[T]
	field  *schema.Field
	schema *schema.Schema
	checks []check[T]
}

var _ goskema.Refiner[string] = (*refined[string])(nil)

func (r *refined[T]) Parse(ctx context.Context, v any) (T, error) {
	var zero T
	out, err := r.Schema.Parse(ctx, v)
	if err != nil {
		return zero, err
	}
	if err := r.Refine(ctx, out); err != nil {
		return zero, err
	}
	if err := refineValue(ctx, r.schema, r.field, v); err != nil {
		return zero, err
	}
	return out, nil
}

func (r *refined[T]) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[T], error) {
	out, err := r.Parse(ctx, v)
	return goskema.Decoded[T]{Value: out, Presence: goskema.PresenceMap{"/": goskema.PresenceSeen}}, err
}

// Refine reports the first failing typed check.
func (r *refined[T]) Refine(_ context.Context, v T) error {
	for _, c := range r.checks {
		if it := c(v); it != nil {
			return goskema.Issues{*it}
		}
	}
	return nil
}

func stringChecks(f *schema.Field) []check[string] {
	var checks []check[string]
	if f.Min != nil || f.Max != nil {
		checks = append(checks, func(s string) *goskema.Issue {
			n := float64(utf8.RuneCountInString(s))
			switch {
			case f.Min != nil && n < *f.Min:
				return fail(goskema.CodeTooShort)
			case f.Max != nil && n > *f.Max:
				return fail(goskema.CodeTooLong)
			}
			return nil
		})
	}
	if m := matches(f); m != nil {
		checks = append(checks, m)
	}
	return checks
}

func matches(f *schema.Field) check[string] {
	if f.Pattern == nil {
		return nil
	}
	return func(s string) *goskema.Issue {
		if !f.Pattern.MatchString(s) {
			return fail(goskema.CodePattern)
		}
		return nil
	}
}

// finite rejects NaN and the infinities, which dsl.NumberJSON accepts
// as float64 input.
func finite(n json.Number) *goskema.Issue {
	x, err := n.Float64()
	if err != nil || math.IsNaN(x) || math.IsInf(x, 0) {
		return fail(goskema.CodeInvalidType)
	}
	return nil
}

func numberChecks(f *schema.Field) []check[json.Number] {
	return []check[json.Number]{finite, func(n json.Number) *goskema.Issue {
		x, _ := n.Float64()
		switch {
		case f.Min != nil && x < *f.Min:
			return fail(goskema.CodeTooSmall)
		case f.Max != nil && x > *f.Max:
			return fail(goskema.CodeTooBig)
		}
		return nil
	}}
}

// elements builds a scalar array schema. Item counts are enforced by
// dsl.Array; elem, when set, runs on every element.
func elements[E any](item goskema.Schema[E], f *schema.Field, s *schema.Schema, elem check[E]) *refined[[]E] {
	arr := dsl.Array(item)
	if f.MinCount != nil {
		arr = arr.Min(*f.MinCount)
	}
	if f.MaxCount != nil {
		arr = arr.Max(*f.MaxCount)
	}
	r := &refined[[]E]{Schema: arr, field: f, schema: s}
	if elem != nil {
		r.checks = []check[[]E]{func(v []E) *goskema.Issue {
			for i, e := range v {
				if it := elem(e); it != nil {
					it.Path = "/" + strconv.Itoa(i)
					return it
				}
			}
			return nil
		}}
	}
	return r
}

// refineValue checks allowed values and custom rules against the value as
// the record holds it.
func refineValue(ctx context.Context, s *schema.Schema, f *schema.Field, raw any) error {
	v, err := value.FromAny(raw)
	if err != nil {
		return goskema.Issues{*fail(goskema.CodeInvalidType)}
	}
	sc := scopeOf(ctx)
	addr := sc.prefix + f.Name

	if f.HasAllowedValues() && (f.Kind == schema.KindString || f.Kind == schema.KindNumber || f.Kind == schema.KindArray) {
		opts := s.AllowedValues(addr, sc.rec.Getter())
		for _, text := range texts(v) {
			if !slices.ContainsFunc(opts, func(o schema.Option) bool { return o.Value == text }) {
				return goskema.Issues{{Path: "/", Code: CodeNotAllowed, Hint: text}}
			}
		}
	}
	for _, rule := range f.Rules {
		if code := rule(addr, v, sc.rec); code != "" {
			return goskema.Issues{*fail(code)}
		}
	}
	return nil
}

func texts(v value.Value) []string {
	arr, ok := v.(value.Array)
	if !ok {
		return []string{value.Text(v)}
	}
	out := make([]string, len(arr))
	for i, e := range arr {
		out[i] = value.Text(e)
	}
	return out
}

// rowsSchema parses an array of objects with one row schema and, unlike
// dsl.Array, keeps going after a failing row so every row is reported.
type rowsSchema struct {
	row    goskema.Schema[map[string]any]
	field  *schema.Field
	schema *schema.Schema
}

var _ goskema.Schema[[]map[string]any] = (*rowsSchema)(nil)

func (r *rowsSchema) Parse(ctx context.Context, v any) ([]map[string]any, error) {
	if err := r.Validate(ctx, v); err != nil {
		return nil, err
	}
	src := v.([]any)
	sc := scopeOf(ctx)

	out := make([]map[string]any, 0, len(src))
	var iss goskema.Issues
	for i, elem := range src {
		base := "/" + strconv.Itoa(i)
		m, ok := elem.(map[string]any)
		if !ok {
			iss = goskema.AppendIssues(iss, goskema.Issue{Path: base, Code: goskema.CodeInvalidType, Hint: "expected object"})
			continue
		}
		rowCtx := withScope(ctx, scope{rec: sc.rec, prefix: sc.prefix + r.field.Name + "." + strconv.Itoa(i) + "."})
		parsed, err := r.row.Parse(rowCtx, m)
		if err != nil {
			iss = goskema.AppendIssues(iss, rebase(base, err)...)
			continue
		}
		out = append(out, parsed)
	}
	if len(iss) > 0 {
		return nil, iss
	}
	if err := refineValue(ctx, r.schema, r.field, v); err != nil {
		return nil, err
	}
	return out, nil
}

func (r *rowsSchema) ParseWithMeta(ctx context.Context, v any) (goskema.Decoded[[]map[string]any], error) {
	rows, err := r.Parse(ctx, v)
	return goskema.Decoded[[]map[string]any]{Value: rows, Presence: goskema.PresenceMap{"/": goskema.PresenceSeen}}, err
}

func (r *rowsSchema) TypeCheck(_ context.Context, v any) error {
	if _, ok := v.([]any); !ok {
		return goskema.Issues{{Path: "/", Code: goskema.CodeInvalidType, Hint: "expected array"}}
	}
	return nil
}

func (r *rowsSchema) RuleCheck(_ context.Context, v any) error {
	src, ok := v.([]any)
	if !ok {
		return nil
	}
	return r.count(len(src))
}

func (r *rowsSchema) Validate(ctx context.Context, v any) error {
	if err := r.TypeCheck(ctx, v); err != nil {
		return err
	}
	return r.RuleCheck(ctx, v)
}

func (r *rowsSchema) ValidateValue(ctx context.Context, v []map[string]any) error {
	if err := r.count(len(v)); err != nil {
		return err
	}
	for i, row := range v {
		if err := r.row.ValidateValue(ctx, row); err != nil {
			return rebase("/"+strconv.Itoa(i), err)
		}
	}
	return nil
}

func (r *rowsSchema) JSONSchema() (*js.Schema, error) {
	items, err := r.row.JSONSchema()
	if err != nil {
		return nil, err
	}
	return &js.Schema{Type: "array", Items: items, MinItems: r.field.MinCount, MaxItems: r.field.MaxCount}, nil
}

func (r *rowsSchema) count(n int) error {
	if r.field.MinCount != nil && n < *r.field.MinCount {
		return goskema.Issues{*fail(goskema.CodeTooShort)}
	}
	if r.field.MaxCount != nil && n > *r.field.MaxCount {
		return goskema.Issues{*fail(goskema.CodeTooLong)}
	}
	return nil
}

// rebase moves issues reported by a nested schema under base.
func rebase(base string, err error) goskema.Issues {
	child, ok := goskema.AsIssues(err)
	if !ok {
		return goskema.Issues{{Path: base, Code: goskema.CodeParseError, Message: err.Error(), Cause: err}}
	}
	out := make(goskema.Issues, 0, len(child))
	for _, it := range child {
		if it.Path == "" || it.Path == "/" {
			it.Path = base
		} else {
			it.Path = base + it.Path
		}
		out = append(out, it)
	}
	return out
}

// input converts a record value to the plain form goskema parses.
func input(v value.Value) any {
	switch val := v.(type) {
	case value.String:
		return string(val)
	case value.Number:
		return float64(val)
	case value.Bool:
		return bool(val)
	case value.Array:
		out := make([]any, len(val))
		for i, e := range val {
			out[i] = input(e)
		}
		return out
	case value.Object:
		return inputObject(val)
	}
	return nil
}

// inputObject drops empty values so they count as missing.
func inputObject[M ~map[string]value.Value](m M) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		if value.IsEmpty(v) {
			continue
		}
		out[k] = input(v)
	}
	return out
}
