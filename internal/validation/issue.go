package validation

import (
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/reoring/goskema"

	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// Issue codes. All but CodeNotAllowed are goskema's.
const (
	CodeRequired    = goskema.CodeRequired
	CodeInvalidType = goskema.CodeInvalidType
	CodeUnknownKey  = goskema.CodeUnknownKey
	CodeTooSmall    = goskema.CodeTooSmall
	CodeTooBig      = goskema.CodeTooBig
	CodeTooShort    = goskema.CodeTooShort
	CodeTooLong     = goskema.CodeTooLong
	CodePattern     = goskema.CodePattern
	CodeNotAllowed  = "notAllowed"
)

// Issue is one invalid field.
type Issue struct {
	Field   string // field address, indexed for array elements ("tags.1.label")
	Code    string
	Message string
	Params  map[string]any
}

// Issues is a list of validation issues that implements error.
type Issues []Issue

// Error summarizes the first few issues.
func (iss Issues) Error() string {
	if len(iss) == 0 {
		return ""
	}
	const maxShown = 3
	b := &strings.Builder{}
	lim := min(len(iss), maxShown)
	for i := 0; i < lim; i++ {
		if i > 0 {
			b.WriteString("; ")
		}
		fmt.Fprintf(b, "%s at %s", iss[i].Code, iss[i].Field)
	}
	if len(iss) > lim {
		fmt.Fprintf(b, "; ... (total %d)", len(iss))
	}
	return b.String()
}

// Fields returns the field addresses of all issues, in order.
func (iss Issues) Fields() []string {
	out := make([]string, len(iss))
	for i, it := range iss {
		out[i] = it.Field
	}
	return out
}

// DefaultMessage renders the message shown for an issue.
func DefaultMessage(label, code string, params map[string]any) string {
	switch code {
	case CodeRequired:
		return label + " is required"
	case CodeInvalidType:
		return fmt.Sprintf("%s must be of type %v", label, params["expected"])
	case CodeUnknownKey:
		return label + " is not allowed by the schema"
	case CodeTooSmall:
		return fmt.Sprintf("%s must be at least %v", label, params["min"])
	case CodeTooBig:
		return fmt.Sprintf("%s cannot exceed %v", label, params["max"])
	case CodeTooShort:
		if params["unit"] == "items" {
			return fmt.Sprintf("You must specify at least %v values", params["min"])
		}
		return fmt.Sprintf("%s must be at least %v characters", label, params["min"])
	case CodeTooLong:
		if params["unit"] == "items" {
			return fmt.Sprintf("You cannot specify more than %v values", params["max"])
		}
		return fmt.Sprintf("%s cannot exceed %v characters", label, params["max"])
	case CodePattern:
		return label + " has an invalid format"
	case CodeNotAllowed:
		return fmt.Sprintf("%v is not an allowed value", params["value"])
	}
	return label + " is invalid"
}

// translate turns goskema issues reported for the value at base ("" for a
// whole record) into field issues, ordered by schema declaration.
func (c *Context) translate(base string, err error) Issues {
	gi, ok := goskema.AsIssues(err)
	if !ok {
		gi = goskema.Issues{{Path: "/", Code: goskema.CodeParseError, Cause: err}}
	}
	out := make(Issues, 0, len(gi))
	for _, it := range gi {
		out = append(out, c.fieldIssue(address(base, it.Path), it))
	}
	slices.SortStableFunc(out, func(a, b Issue) int {
		return slices.Compare(c.rank(a.Field), c.rank(b.Field))
	})
	return out
}

// address joins base and a JSON pointer: ("", "/tags/1/label") is
// "tags.1.label".
func address(base, pointer string) string {
	rel := strings.ReplaceAll(strings.Trim(pointer, "/"), "/", ".")
	switch {
	case rel == "":
		return base
	case base == "":
		return rel
	}
	return base + "." + rel
}

func (c *Context) fieldIssue(addr string, it goskema.Issue) Issue {
	code := it.Code
	if code == goskema.CodeUnknownKey {
		return Issue{Field: addr, Code: code, Message: DefaultMessage(addr, code, nil)}
	}

	parts := strings.Split(addr, ".")
	f, ok := c.schema.Field(parts[0])
	if !ok {
		return Issue{Field: addr, Code: code, Message: DefaultMessage(addr, code, nil)}
	}
	expected := f.Kind.String()
	switch {
	case len(parts) == 2 && f.Kind == schema.KindArray:
		expected = f.Of.String()
	case len(parts) == 2:
		expected = "object"
	case len(parts) == 3:
		if sf, ok := f.Subfield(parts[2]); ok {
			f, expected = sf, sf.Kind.String()
		}
	}
	whole := len(parts) == 1

	var params map[string]any
	switch code {
	case goskema.CodeInvalidType, goskema.CodeParseError:
		code = CodeInvalidType
		params = map[string]any{"expected": expected}
	case CodeTooSmall:
		params = bound("min", f.Min)
	case CodeTooBig:
		params = bound("max", f.Max)
	case CodeTooShort:
		if f.Kind.IsArray() && whole && f.MinCount != nil {
			params = map[string]any{"min": *f.MinCount, "unit": "items"}
		} else {
			params = bound("min", f.Min)
		}
	case CodeTooLong:
		if f.Kind.IsArray() && whole && f.MaxCount != nil {
			params = map[string]any{"max": *f.MaxCount, "unit": "items"}
		} else {
			params = bound("max", f.Max)
		}
	case CodePattern:
		if f.Pattern != nil {
			params = map[string]any{"pattern": f.Pattern.String()}
		}
	case CodeNotAllowed:
		params = map[string]any{"value": it.Hint}
	}
	return Issue{Field: addr, Code: code, Message: DefaultMessage(f.Label, code, params), Params: params}
}

func bound(key string, n *float64) map[string]any {
	if n == nil {
		return nil
	}
	return map[string]any{key: value.FormatNumber(*n)}
}

// rank orders an address by field declaration, then row, then subfield.
// Undeclared keys sort last.
func (c *Context) rank(addr string) []int {
	fields := c.schema.Fields()
	parts := strings.Split(addr, ".")
	top := slices.IndexFunc(fields, func(f *schema.Field) bool { return f.Name == parts[0] })
	if top < 0 {
		return []int{len(fields)}
	}
	r := []int{top}
	if len(parts) > 1 {
		i, _ := strconv.Atoi(parts[1])
		r = append(r, i)
	}
	if len(parts) > 2 {
		r = append(r, slices.IndexFunc(fields[top].Subfields, func(f *schema.Field) bool { return f.Name == parts[2] }))
	}
	return r
}
