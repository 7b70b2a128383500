// Package harness runs form-editing scenarios against the wizard engine.
//
// A scenario binds an engine to a CUE schema and a fresh in-memory store,
// plays a sequence of edits and lifecycle operations, and checks the
// outcome of each step plus a set of final assertions.
//
// # Scenario Format
//
//	name: country_resets_region
//	description: "Changing country clears the region"
//	schema: ../schemas/contacts.cue
//	collection: contacts
//	visible_fields: [name, country, region]
//	documents:
//	  - {id: c1, name: Ada}
//	init:
//	  id: c1
//	steps:
//	  - action: set
//	    field: region
//	    value: CA
//	  - action: set
//	    field: country
//	    value: FR
//	  - action: save
//	    expect: {outcome: ok}
//	assertions:
//	  - type: context
//	    expect: {country: FR, region: ""}
//	  - type: stored
//	    id: c1
//	    expect: {region: ""}
//
// # Step Actions
//
//   - set: ProcessFieldValuePair(field, value)
//   - control: SaveControl with the control description
//   - create, save, remove: queue the operation and wait for it
//   - has_changed, discard, reset
//
// # Assertion Types
//
//   - context: field values of the final context (indexed addresses allowed)
//   - invalid: the exact set of invalid fields
//   - message: the validation message of one field
//   - state: the lifecycle state (uninitialized, new, editing)
//   - stored: a document in the store, or its absence
//   - active: fields that must be part of the form definition
//
// # Deterministic Testing
//
// Every run uses a new in-memory SQLite database and sequential document
// ids ("doc-1", "doc-2", ...), so traces are byte-identical across runs and
// can be compared with golden files.
package harness
