package engine

import (
	"context"
	"fmt"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// Config binds an engine to one entity.
type Config struct {
	// Collection is required.
	Collection Collection

	// Schema overrides the schema attached to Collection.
	Schema *schema.Schema

	// ID loads an existing document. Empty starts a new one.
	ID string

	// Template and Modal are session settings for the presentation layer.
	Template string
	Modal    bool
}

// State is the lifecycle state of the data context.
type State int

const (
	// StateUninitialized: no data context (before Init or after Reset).
	StateUninitialized State = iota
	// StateNew: the context has no id yet.
	StateNew
	// StateEditing: the context carries the id of a persisted document.
	StateEditing
)

func (s State) String() string {
	switch s {
	case StateNew:
		return "new"
	case StateEditing:
		return "editing"
	}
	return "uninitialized"
}

var preserveEmpty = schema.CleanOptions{PreserveEmptyStrings: true}

// Init binds the engine to cfg and builds the data context.
//
// Without an id the context holds the default of every schema field and no
// id. With an id the document is loaded through the persistence queue, so
// Run must be running; an unknown id returns a NOT_FOUND error and leaves
// the engine uninitialized.
//
// A missing collection or schema is a fatal configuration error and leaves
// the engine as it was.
func (e *Engine) Init(ctx context.Context, cfg Config) error {
	if cfg.Collection == nil {
		return newConfigError(CodeMissingCollection, "no collection given")
	}
	s := cfg.Schema
	if s == nil {
		s = cfg.Collection.Schema()
	}
	if s == nil {
		return newConfigError(CodeMissingSchema,
			fmt.Sprintf("collection %s has no attached schema and none was given", cfg.Collection.Name()))
	}

	e.collection = cfg.Collection
	e.schema = s
	e.validator.Set(e.newValidator(s))
	e.template = cfg.Template
	e.modal = cfg.Modal
	e.activeFields = nil

	if e.defs != nil {
		fields, ok, err := e.defs.VisibleFields(ctx, cfg.Collection.Name())
		if err != nil {
			e.log.Warn("loading form definition failed, showing all fields",
				"collection", cfg.Collection.Name(),
				"error", err,
			)
		} else if ok {
			e.activeFields = fields
		}
	}

	if cfg.ID == "" {
		e.context.Set(e.BuildFromSchema())
		e.log.Debug("data context initialized",
			"collection", cfg.Collection.Name(),
			"schema", s.Name(),
			"state", StateNew.String(),
		)
		return nil
	}

	rec, found, err := e.find(ctx, cfg.Collection, cfg.ID)
	if err != nil {
		return fmt.Errorf("load %s from %s: %w", cfg.ID, cfg.Collection.Name(), err)
	}
	if !found {
		e.context.Set(nil)
		return &Error{
			Code:    CodeNotFound,
			Message: fmt.Sprintf("no document %s in %s", cfg.ID, cfg.Collection.Name()),
		}
	}
	e.context.Set(rec)
	e.log.Debug("data context initialized",
		"collection", cfg.Collection.Name(),
		"schema", s.Name(),
		"id", cfg.ID,
		"state", StateEditing.String(),
	)
	return nil
}

// State reports the lifecycle state.
func (e *Engine) State() State {
	rec := e.context.Get()
	if rec == nil {
		return StateUninitialized
	}
	if _, ok := rec.ID(); ok {
		return StateEditing
	}
	return StateNew
}

// BuildFromSchema returns a fresh record holding every field's default and
// no id. It returns nil before Init.
func (e *Engine) BuildFromSchema() value.Record {
	if e.schema == nil {
		return nil
	}
	return e.schema.Defaults()
}

// ProcessFieldValuePair cleans v, writes it at field and resets the
// fields that depend on it. The new context is published once, then field
// alone is validated against it.
//
// The write is kept even when validation fails. Errors are returned only
// when the write itself is impossible: no context, or an indexed address
// whose element does not exist (the context is then unchanged).
func (e *Engine) ProcessFieldValuePair(field string, v value.Value) error {
	cur := e.context.Get()
	if cur == nil {
		return errUninitialized()
	}

	addr := fieldpath.Parse(field)
	cleaned, ok := e.schema.Clean(value.Record{field: v}, preserveEmpty)[field]
	if !ok {
		cleaned = v
	}

	next, err := mergeField(cur, e.schema, addr, cleaned)
	if err != nil {
		return err
	}
	reset := resetDependencies(next, e.schema, field)

	e.context.Set(next)
	valid := e.validator.Get().ValidateOne(next, field)

	e.log.Debug("field updated",
		"field", field,
		"kind", addr.Kind.String(),
		"reset", reset,
		"valid", valid,
	)
	return nil
}

// Create validates the whole context and, when valid, assigns it a new id
// and queues its insertion.
//
// An invalid document returns a VALIDATION_FAILED error listing the
// invalid fields; the context keeps no id and nothing is queued. A context
// that already has an id returns ALREADY_CREATED without validating.
func (e *Engine) Create(ctx context.Context) (*Op, error) {
	cur := e.context.Get()
	if cur == nil {
		return nil, errUninitialized()
	}
	if id, ok := cur.ID(); ok {
		return nil, errAlreadyCreated(id)
	}

	doc := e.schema.Clean(cur.Without(value.IDKey), preserveEmpty)
	v := e.validator.Get()
	if !v.ValidateAll(doc) {
		return nil, newValidationError(v.InvalidFieldNames())
	}

	id := e.ids.Generate()
	doc[value.IDKey] = value.String(id)
	e.context.Set(doc)

	return e.submit(OpInsert, e.collection, id, doc), nil
}

// Save validates the whole context and queues an update writing every
// field except id.
//
// A context without id returns NOT_CREATED and an invalid one
// VALIDATION_FAILED; in both cases nothing is queued and the on-save-failure
// callback, if any, is called with the error.
func (e *Engine) Save(ctx context.Context) (*Op, error) {
	cur := e.context.Get()
	if cur == nil {
		return nil, errUninitialized()
	}
	id, ok := cur.ID()
	if !ok {
		return nil, e.saveFailed(errNotCreated())
	}

	v := e.validator.Get()
	v.Reset()
	doc := e.schema.Clean(cur.Without(value.IDKey), preserveEmpty)
	if !v.ValidateAll(doc) {
		return nil, e.saveFailed(newValidationError(v.InvalidFieldNames()))
	}

	fields := doc.Clone()
	doc[value.IDKey] = value.String(id)
	e.context.Set(doc)

	return e.submit(OpUpdate, e.collection, id, fields), nil
}

func (e *Engine) saveFailed(err *Error) error {
	if fn := e.onSaveFailure.Get(); fn != nil {
		fn(err)
	}
	e.log.Debug("save refused", "code", string(err.Code), "invalid", err.Invalid)
	return err
}

// Remove queues deletion of the persisted document. The context is kept;
// call Reset or Discard to leave the entity.
func (e *Engine) Remove(ctx context.Context) (*Op, error) {
	cur := e.context.Get()
	if cur == nil {
		return nil, errUninitialized()
	}
	id, ok := cur.ID()
	if !ok {
		return nil, errNotCreated()
	}
	return e.submit(OpRemove, e.collection, id, nil), nil
}

// HasChanged reports whether the context differs from the stored copy of
// the same document. A context without id, or whose document no longer
// exists, has no stored copy and reports false without error.
func (e *Engine) HasChanged(ctx context.Context) (bool, error) {
	cur := e.context.Get()
	if cur == nil {
		return false, nil
	}
	id, ok := cur.ID()
	if !ok {
		return false, nil
	}

	stored, found, err := e.find(ctx, e.collection, id)
	if err != nil {
		return false, fmt.Errorf("has changed: %w", err)
	}
	if !found {
		return false, nil
	}
	return !value.EqualRecords(stored, cur), nil
}

// Discard drops in-memory edits. The context is reloaded from the store
// for its id, or rebuilt from defaults when there is no id or no stored
// copy. Validation state is cleared.
func (e *Engine) Discard(ctx context.Context) error {
	cur := e.context.Get()
	if cur == nil {
		return errUninitialized()
	}

	next := e.BuildFromSchema()
	if id, ok := cur.ID(); ok {
		stored, found, err := e.find(ctx, e.collection, id)
		if err != nil {
			return fmt.Errorf("discard: %w", err)
		}
		if found {
			next = stored
		}
	}

	e.validator.Get().Reset()
	e.context.Set(next)
	return nil
}

// Reset returns the engine to the uninitialized state. The context,
// validation state and session settings are cleared; the collection and
// schema stay bound.
func (e *Engine) Reset() {
	if v := e.validator.Get(); v != nil {
		v.Reset()
	}
	e.activeFields = nil
	e.template = ""
	e.modal = false
	e.context.Set(nil)
}
