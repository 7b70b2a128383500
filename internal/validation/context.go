// Package validation checks data contexts against a schema and keeps the
// result of the last passes as reactive state.
//
// A Context accumulates issues: ValidateAll replaces them with the result
// of a whole-record pass, ValidateOne replaces only the issues of one
// field. Every pass and every Reset signals the context's dependency, so
// computations reading InvalidFieldNames or MessageFor rerun. Field checks
// are compiled to goskema schemas when the context is created.
package validation

import (
	"context"
	"slices"
	"strings"
	"sync"

	"github.com/reoring/goskema"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/reactive"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// Context is a named validation context bound to one schema.
type Context struct {
	name   string
	schema *schema.Schema
	rules  *ruleSet

	mu     sync.Mutex
	issues Issues
	dep    reactive.Dependency
}

// NewContext creates an empty validation context. The schema's fields are
// compiled once; allowed-value sources and rules added later still apply.
func NewContext(s *schema.Schema, name string) *Context {
	return &Context{name: name, schema: s, rules: compile(s)}
}

// Name returns the context name.
func (c *Context) Name() string {
	return c.name
}

// ValidateAll validates every field of rec and replaces the accumulated
// issues with the result. Keys the schema does not declare are reported as
// unknown_key.
func (c *Context) ValidateAll(rec value.Record) bool {
	var iss Issues
	ctx := withScope(context.Background(), scope{rec: rec})
	if _, err := c.rules.root.Parse(ctx, inputObject(rec.Without(value.IDKey))); err != nil {
		iss = c.translate("", err)
	}

	c.mu.Lock()
	c.issues = iss
	c.mu.Unlock()
	c.dep.Changed()
	return len(iss) == 0
}

// ValidateOne validates a single field against the whole record. Issues of
// other fields are kept; previous issues of this field (including those of
// its array elements) are replaced.
func (c *Context) ValidateOne(rec value.Record, field string) bool {
	fresh := c.validateField(rec, field)

	c.mu.Lock()
	kept := c.issues[:0:0]
	for _, it := range c.issues {
		if !covers(field, it.Field) {
			kept = append(kept, it)
		}
	}
	c.issues = append(kept, fresh...)
	c.mu.Unlock()
	c.dep.Changed()
	return len(fresh) == 0
}

func (c *Context) validateField(rec value.Record, field string) Issues {
	if field == value.IDKey {
		return nil
	}
	fr, ok := c.rules.lookup(field)
	if !ok {
		return c.translate(field, goskema.Issues{{Path: "/", Code: goskema.CodeUnknownKey}})
	}

	v, _ := fieldpath.Lookup(rec, field)
	if value.IsEmpty(v) {
		if fr.field.Optional {
			return nil
		}
		return c.translate(field, goskema.Issues{{Path: "/", Code: goskema.CodeRequired}})
	}

	sc := scope{rec: rec}
	if a := fieldpath.Parse(field); a.IsIndexed() {
		sc.prefix = strings.TrimSuffix(field, a.Subfield)
	}
	if err := fr.parse(withScope(context.Background(), sc), input(v)); err != nil {
		return c.translate(field, err)
	}
	return nil
}

// covers reports whether an issue on addr belongs to field: the field
// itself, or an element path below it.
func covers(field, addr string) bool {
	return addr == field || strings.HasPrefix(addr, field+".")
}

// Reset clears all issues.
func (c *Context) Reset() {
	c.mu.Lock()
	c.issues = nil
	c.mu.Unlock()
	c.dep.Changed()
}

// IsValid reports whether there are no accumulated issues.
func (c *Context) IsValid() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.issues) == 0
}

// Issues returns a copy of the accumulated issues.
func (c *Context) Issues() Issues {
	c.mu.Lock()
	defer c.mu.Unlock()
	return slices.Clone(c.issues)
}

// InvalidFieldNames returns the addresses of invalid fields, in the order
// they were found.
func (c *Context) InvalidFieldNames() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	names := make([]string, 0, len(c.issues))
	for _, it := range c.issues {
		if !slices.Contains(names, it.Field) {
			names = append(names, it.Field)
		}
	}
	return names
}

// KeyIsInvalid reports whether field has an issue.
func (c *Context) KeyIsInvalid(field string) bool {
	_, ok := c.find(field)
	return ok
}

// MessageFor returns the message of the first issue of field, or "".
func (c *Context) MessageFor(field string) string {
	it, ok := c.find(field)
	if !ok {
		return ""
	}
	return it.Message
}

func (c *Context) find(field string) (Issue, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, it := range c.issues {
		if it.Field == field {
			return it, true
		}
	}
	return Issue{}, false
}

// Depend registers comp as dependent on the validation state.
func (c *Context) Depend(comp *reactive.Computation) {
	c.dep.Depend(comp)
}

// Subscribe calls fn after every pass and every Reset.
func (c *Context) Subscribe(fn func()) (unsubscribe func()) {
	return c.dep.Subscribe(fn)
}
