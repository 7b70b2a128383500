package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"time"

	"github.com/roach88/wizard/internal/engine"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/store"
	"github.com/roach88/wizard/internal/testutil"
	"github.com/roach88/wizard/internal/value"
)

// opTimeout bounds the wait for one queued persistence operation.
const opTimeout = 10 * time.Second

// Harness holds the per-run collaborators of one scenario.
type Harness struct {
	store  *store.Store
	coll   *store.Collection
	engine *engine.Engine
	logger *slog.Logger
}

// Run executes a scenario and returns the result.
//
// Each scenario runs in a fresh in-memory database for isolation.
// Execution flow:
// 1. Compile the schema and open the store
// 2. Store the form definition and seed documents
// 3. Start the engine's persistence worker and call Init
// 4. Execute steps, checking each expect clause
// 5. Evaluate assertions against the final state
//
// The returned error reports a scenario that could not be set up; failed
// expectations and assertions are reported in the Result.
func Run(ctx context.Context, sc *Scenario) (*Result, error) {
	s, err := loadSchema(sc)
	if err != nil {
		return nil, err
	}

	st, err := store.Open(":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to create in-memory store: %w", err)
	}
	defer st.Close()

	collName := sc.Collection
	if collName == "" {
		collName = s.Name()
	}
	coll := st.Collection(collName)
	coll.AttachSchema(s)

	if sc.VisibleFields != nil {
		if err := st.SetVisibleFields(ctx, collName, sc.VisibleFields); err != nil {
			return nil, fmt.Errorf("failed to store form definition: %w", err)
		}
	}
	for i, doc := range sc.Documents {
		rec, err := value.RecordFromAny(doc)
		if err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
		if _, err := coll.Insert(ctx, rec); err != nil {
			return nil, fmt.Errorf("documents[%d]: %w", i, err)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil)) // Suppress logs in tests
	eng := engine.New(
		engine.WithIDGenerator(testutil.NewSequentialIDGenerator(sc.IDPrefix)),
		engine.WithDefinitions(st),
		engine.WithLogger(logger),
	)

	runCtx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = eng.Run(runCtx)
	}()
	defer func() {
		cancel()
		<-done
	}()

	h := &Harness{store: st, coll: coll, engine: eng, logger: logger}
	result := NewResult()

	err = eng.Init(ctx, engine.Config{
		Collection: coll,
		ID:         sc.Init.ID,
		Template:   sc.Init.Template,
		Modal:      sc.Init.Modal,
	})
	h.trace(result, TraceEvent{Action: "init"}, err)
	if err != nil && engine.IsFatal(err) {
		return nil, fmt.Errorf("init: %w", err)
	}

	for i, step := range sc.Steps {
		if err := h.executeStep(ctx, i, step, result); err != nil {
			return nil, fmt.Errorf("steps[%d]: %w", i, err)
		}
	}

	actx := &AssertionContext{Ctx: ctx, Engine: eng, Collection: coll}
	for _, msg := range EvaluateAssertions(result, sc.Assertions, actx) {
		result.AddError(msg)
	}

	result.Context = eng.Context()
	return result, nil
}

func loadSchema(sc *Scenario) (*schema.Schema, error) {
	cat, err := schema.LoadFile(sc.Schema)
	if err != nil {
		return nil, fmt.Errorf("failed to load schema: %w", err)
	}

	name := sc.SchemaName
	if name == "" {
		if cat.Len() != 1 {
			return nil, fmt.Errorf("schema file declares %d schemas, set schema_name", cat.Len())
		}
		name = cat.Names()[0]
	}
	s, ok := cat.Get(name)
	if !ok {
		return nil, fmt.Errorf("schema %q not found in %s", name, sc.Schema)
	}
	return s, nil
}

// executeStep runs one step and checks its expect clause.
// Engine errors are outcomes, not failures of the run; only a step that
// cannot be executed at all returns an error.
func (h *Harness) executeStep(ctx context.Context, index int, step Step, result *Result) error {
	ev := TraceEvent{Action: step.Action, Field: step.Field}
	var err error

	switch step.Action {
	case ActionSet:
		v, convErr := value.FromAny(step.Value)
		if convErr != nil {
			return fmt.Errorf("value: %w", convErr)
		}
		ev.Value = v
		err = h.engine.ProcessFieldValuePair(step.Field, v)

	case ActionControl:
		c := engine.Control{
			Name:     step.Control.Name,
			Type:     engine.ControlType(step.Control.Type),
			Value:    step.Control.Value,
			Checked:  step.Control.Checked,
			Selected: step.Control.Selected,
		}
		ev.Field = c.Name
		if pair, parseErr := engine.ParseControl(c); parseErr == nil {
			ev.Value = pair.Value
		}
		err = h.engine.SaveControl(c)

	case ActionCreate:
		err = h.wait(ctx, h.engine.Create)
	case ActionSave:
		err = h.wait(ctx, h.engine.Save)
	case ActionRemove:
		err = h.wait(ctx, h.engine.Remove)

	case ActionHasChanged:
		var changed bool
		changed, err = h.engine.HasChanged(ctx)
		if err == nil {
			ev.Changed = &changed
		}

	case ActionDiscard:
		err = h.engine.Discard(ctx)
	case ActionReset:
		h.engine.Reset()

	default:
		return fmt.Errorf("unknown action %q", step.Action)
	}

	recorded := h.trace(result, ev, err)
	h.checkExpect(index, step, recorded, result)
	return nil
}

// wait runs a persistence operation and waits for the store to apply it.
func (h *Harness) wait(ctx context.Context, fn func(context.Context) (*engine.Op, error)) error {
	op, err := fn(ctx)
	if err != nil {
		return err
	}
	waitCtx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return op.Wait(waitCtx)
}

// trace records ev with the engine state after the step.
func (h *Harness) trace(result *Result, ev TraceEvent, err error) TraceEvent {
	ev.Outcome = outcomeOf(err)
	ev.State = h.engine.State().String()
	ev.Invalid = h.engine.InvalidFields()
	result.AddTrace(ev)

	h.logger.Debug("scenario step",
		"action", ev.Action,
		"field", ev.Field,
		"outcome", ev.Outcome,
	)
	return result.Trace[len(result.Trace)-1]
}

func (h *Harness) checkExpect(index int, step Step, ev TraceEvent, result *Result) {
	if step.Expect == nil {
		if ev.Outcome != OutcomeOK {
			result.AddError(fmt.Sprintf("steps[%d] %s: unexpected outcome %s", index, step.Action, ev.Outcome))
		}
		return
	}

	want := step.Expect.Outcome
	if want == "" {
		want = OutcomeOK
	}
	if ev.Outcome != want {
		result.AddError(fmt.Sprintf("steps[%d] %s: outcome %s, expected %s", index, step.Action, ev.Outcome, want))
	}

	if step.Expect.Invalid != nil && !sameSet(ev.Invalid, step.Expect.Invalid) {
		result.AddError(fmt.Sprintf("steps[%d] %s: invalid fields %v, expected %v",
			index, step.Action, ev.Invalid, step.Expect.Invalid))
	}

	if step.Expect.Changed != nil {
		if ev.Changed == nil || *ev.Changed != *step.Expect.Changed {
			got := "none"
			if ev.Changed != nil {
				got = fmt.Sprint(*ev.Changed)
			}
			result.AddError(fmt.Sprintf("steps[%d] has_changed: got %s, expected %t",
				index, got, *step.Expect.Changed))
		}
	}
}

// outcomeOf maps a step error to its trace outcome: "ok", the engine
// error code, or "error" for anything else.
func outcomeOf(err error) string {
	if err == nil {
		return OutcomeOK
	}
	var ee *engine.Error
	if errors.As(err, &ee) {
		return string(ee.Code)
	}
	return "error"
}

func sameSet(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	x, y := slices.Clone(a), slices.Clone(b)
	slices.Sort(x)
	slices.Sort(y)
	return slices.Equal(x, y)
}
