package harness

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/roach88/wizard/internal/engine"
	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/store"
	"github.com/roach88/wizard/internal/value"
)

// AssertionError is returned when an assertion fails.
// It includes detailed context to help debug the failure.
type AssertionError struct {
	Type     string       // Assertion type for categorization
	Expected string       // Human-readable expected outcome
	Actual   string       // Human-readable actual outcome
	Trace    []TraceEvent // Full trace for debugging context
}

// Error implements the error interface.
func (e *AssertionError) Error() string {
	var buf strings.Builder

	fmt.Fprintf(&buf, "Assertion failed: %s\n", e.Type)
	fmt.Fprintf(&buf, "  Expected: %s\n", e.Expected)
	fmt.Fprintf(&buf, "  Actual: %s\n", e.Actual)

	if len(e.Trace) > 0 {
		fmt.Fprintf(&buf, "\nFull trace:\n")
		for _, ev := range e.Trace {
			fmt.Fprintf(&buf, "  [%d] %s", ev.Seq, ev.Action)
			if ev.Field != "" {
				fmt.Fprintf(&buf, " %s", ev.Field)
			}
			fmt.Fprintf(&buf, " -> %s\n", ev.Outcome)
		}
	}

	return buf.String()
}

// AssertionContext gives assertions access to the final engine and store.
type AssertionContext struct {
	Ctx        context.Context
	Engine     *engine.Engine
	Collection *store.Collection
}

// EvaluateAssertions checks every assertion and returns the failure
// messages, in assertion order.
func EvaluateAssertions(result *Result, assertions []Assertion, actx *AssertionContext) []string {
	var failures []string
	for i, a := range assertions {
		if err := evaluateAssertion(result, a, actx); err != nil {
			failures = append(failures, fmt.Sprintf("assertions[%d]: %s", i, err.Error()))
		}
	}
	return failures
}

func evaluateAssertion(result *Result, a Assertion, actx *AssertionContext) error {
	switch a.Type {
	case AssertContext:
		return assertContext(actx.Engine.Context(), a, result.Trace)
	case AssertInvalid:
		return assertInvalid(actx.Engine.InvalidFields(), a, result.Trace)
	case AssertMessage:
		return assertMessage(actx.Engine, a)
	case AssertState:
		return assertState(actx.Engine.State(), a, result.Trace)
	case AssertStored:
		return assertStored(actx.Ctx, actx.Collection, a)
	case AssertActive:
		return assertActive(actx.Engine, a)
	default:
		return fmt.Errorf("unknown assertion type: %s", a.Type)
	}
}

// assertContext checks field values of the final context (subset match).
func assertContext(ctx value.Record, a Assertion, trace []TraceEvent) error {
	if ctx == nil {
		return &AssertionError{
			Type:     AssertContext,
			Expected: "a data context",
			Actual:   "no data context",
			Trace:    trace,
		}
	}
	return matchFields(AssertContext, ctx, a.Expect, trace)
}

func matchFields(kind string, rec value.Record, expect map[string]any, trace []TraceEvent) error {
	for _, field := range sortedKeys(expect) {
		want, err := value.FromAny(expect[field])
		if err != nil {
			return fmt.Errorf("expect %q: %w", field, err)
		}
		got, ok := fieldpath.Lookup(rec, field)
		if !ok {
			// An expected null also matches an absent field.
			if _, isNull := want.(value.Null); isNull {
				continue
			}
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q = %s", field, render(want)),
				Actual:   fmt.Sprintf("field %q not present", field),
				Trace:    trace,
			}
		}
		if !value.Equal(want, got) {
			return &AssertionError{
				Type:     kind,
				Expected: fmt.Sprintf("field %q = %s", field, render(want)),
				Actual:   fmt.Sprintf("field %q = %s", field, render(got)),
				Trace:    trace,
			}
		}
	}
	return nil
}

// assertInvalid checks the exact set of invalid fields.
func assertInvalid(invalid []string, a Assertion, trace []TraceEvent) error {
	if sameSet(invalid, a.Fields) {
		return nil
	}
	return &AssertionError{
		Type:     AssertInvalid,
		Expected: fmt.Sprintf("invalid fields %v", a.Fields),
		Actual:   fmt.Sprintf("invalid fields %v", invalid),
		Trace:    trace,
	}
}

func assertMessage(e *engine.Engine, a Assertion) error {
	got := e.ErrorMessage(a.Field)
	if got == a.Message {
		return nil
	}
	return &AssertionError{
		Type:     AssertMessage,
		Expected: fmt.Sprintf("message for %q = %q", a.Field, a.Message),
		Actual:   fmt.Sprintf("message for %q = %q", a.Field, got),
	}
}

func assertState(s engine.State, a Assertion, trace []TraceEvent) error {
	if s.String() == a.State {
		return nil
	}
	return &AssertionError{
		Type:     AssertState,
		Expected: "state " + a.State,
		Actual:   "state " + s.String(),
		Trace:    trace,
	}
}

// assertStored reads a document straight from the store.
func assertStored(ctx context.Context, coll *store.Collection, a Assertion) error {
	doc, found, err := coll.FindOne(ctx, a.ID)
	if err != nil {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("read document %s", a.ID),
			Actual:   fmt.Sprintf("query error: %v", err),
		}
	}

	if a.Absent {
		if found {
			return &AssertionError{
				Type:     AssertStored,
				Expected: fmt.Sprintf("document %s absent", a.ID),
				Actual:   "document found",
			}
		}
		return nil
	}

	if !found {
		return &AssertionError{
			Type:     AssertStored,
			Expected: fmt.Sprintf("document %s in %s", a.ID, coll.Name()),
			Actual:   "document not found",
		}
	}
	return matchFields(AssertStored, doc, a.Expect, nil)
}

func assertActive(e *engine.Engine, a Assertion) error {
	var inactive []string
	for _, f := range a.Fields {
		if !e.IsFieldActive(f) {
			inactive = append(inactive, f)
		}
	}
	if len(inactive) == 0 {
		return nil
	}
	return &AssertionError{
		Type:     AssertActive,
		Expected: fmt.Sprintf("active fields %v", a.Fields),
		Actual:   fmt.Sprintf("inactive: %v", inactive),
	}
}

// render formats a value as canonical JSON for messages.
func render(v value.Value) string {
	data, err := value.MarshalCanonical(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(data)
}

func sortedKeys(m map[string]any) []string {
	return slices.Sorted(maps.Keys(m))
}
