package engine

import (
	"slices"

	"github.com/roach88/wizard/internal/fieldpath"
	"github.com/roach88/wizard/internal/reactive"
	"github.com/roach88/wizard/internal/schema"
	"github.com/roach88/wizard/internal/value"
)

// Context returns the current data context, nil when uninitialized.
// The record is shared: treat it as read-only.
func (e *Engine) Context() value.Record {
	return e.context.Get()
}

// TrackContext returns the current data context and makes c rerun on the
// next change.
func (e *Engine) TrackContext(c *reactive.Computation) value.Record {
	return e.context.Track(c)
}

// TrackValidation makes c rerun whenever validation results change,
// including when Init installs a new validator.
func (e *Engine) TrackValidation(c *reactive.Computation) {
	if v := e.validator.Track(c); v != nil {
		v.Depend(c)
	}
}

// Subscribe calls fn with the new context after every change.
func (e *Engine) Subscribe(fn func(value.Record)) (unsubscribe func()) {
	return e.context.Subscribe(fn)
}

// Schema returns the bound schema, nil before Init.
func (e *Engine) Schema() *schema.Schema {
	return e.schema
}

// Collection returns the bound collection, nil before Init.
func (e *Engine) Collection() Collection {
	return e.collection
}

// FieldValue reads a field, resolving indexed addresses.
func (e *Engine) FieldValue(field string) (value.Value, bool) {
	return fieldpath.Lookup(e.context.Get(), field)
}

// Label returns the display label of field.
func (e *Engine) Label(field string) string {
	if e.schema == nil {
		return ""
	}
	return e.schema.Label(field)
}

// MaxLength returns the maximum length of a string field, -1 if none.
func (e *Engine) MaxLength(field string) int {
	if e.schema == nil {
		return -1
	}
	f, ok := e.schema.Field(field)
	if !ok {
		return -1
	}
	return f.MaxLength()
}

// IsInvalid reports whether the last validation flagged field.
func (e *Engine) IsInvalid(field string) bool {
	v := e.validator.Get()
	return v != nil && v.KeyIsInvalid(field)
}

// ErrorMessage returns the validation message of field, "" if valid.
func (e *Engine) ErrorMessage(field string) string {
	v := e.validator.Get()
	if v == nil {
		return ""
	}
	return v.MessageFor(field)
}

// InvalidFields lists the fields flagged by the last validation.
func (e *Engine) InvalidFields() []string {
	v := e.validator.Get()
	if v == nil {
		return nil
	}
	return v.InvalidFieldNames()
}

// AllowedValues lists the options of field. Function sources see the
// current context.
func (e *Engine) AllowedValues(field string) []schema.Option {
	if e.schema == nil {
		return []schema.Option{}
	}
	return e.schema.AllowedValues(field, e.context.Get().Getter())
}

// OptionSelected reports whether option is the value of field, or one of
// its elements for array fields.
func (e *Engine) OptionSelected(field, option string) bool {
	v, ok := e.FieldValue(field)
	if !ok {
		return false
	}
	if arr, ok := v.(value.Array); ok {
		return arr.Contains(option)
	}
	return value.IsScalar(v) && value.Text(v) == option
}

// IsFieldActive reports whether field is part of the form definition.
// Every field is active when the collection has no definition.
func (e *Engine) IsFieldActive(field string) bool {
	if e.activeFields == nil {
		return true
	}
	return slices.Contains(e.activeFields, fieldpath.Normalize(field))
}

// ActiveFields returns the visible fields of the form definition, nil
// when every field is active.
func (e *Engine) ActiveFields() []string {
	return slices.Clone(e.activeFields)
}

// TemplateName returns the template set by Init.
func (e *Engine) TemplateName() string {
	return e.template
}

// IsModal reports whether the form is shown in a modal.
func (e *Engine) IsModal() bool {
	return e.modal
}

// SetOnSaveFailure registers fn to be called when Save refuses to write.
// A nil fn clears it.
func (e *Engine) SetOnSaveFailure(fn func(error)) {
	e.onSaveFailure.Set(fn)
}

// OnSaveFailure returns the registered save-failure callback.
func (e *Engine) OnSaveFailure() func(error) {
	return e.onSaveFailure.Get()
}
