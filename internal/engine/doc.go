// Package engine implements the data-context reconciliation engine.
//
// An Engine owns the record being edited in one form. Callers submit
// field/value pairs; the engine cleans them against the schema, merges them
// into the context, resets dependent fields, publishes the new context and
// validates the changed field.
//
// ARCHITECTURE:
//
// Synchronous Edit Path:
// Init, ProcessFieldValuePair, Reset and the read helpers run on the
// caller's goroutine and return immediately. Each public operation
// publishes the context at most once, so subscribers and computations
// rerun once per edit.
//
// Update Pipeline (ProcessFieldValuePair):
// 1. Clean {field: value} with empty strings preserved
// 2. Merge into a copy of the context (indexed write, append, or replace)
// 3. Reset the fields declared as dependencies of field to their defaults
// 4. Publish the new context
// 5. Validate field alone against the whole new context
//
// Asynchronous Persistence:
// Create, Save and Remove queue an Op and return it. Engine.Run applies ops
// one at a time in submission order (single writer). Store failures are
// logged and reported to the error sink; the context is not rolled back.
//
// CRITICAL PATTERNS:
//
// Copy-on-write context:
// A published record is never modified again. Merges copy the record, and
// the Array and Object on the written path.
//
// Ordered reads:
// HasChanged, Discard and Init with an id queue their lookup behind
// pending writes, so they observe everything submitted before them.
package engine
