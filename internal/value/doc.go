// Package value provides the value model shared by every layer of the wizard.
//
// A data context is a Record: a map from field name to Value. Value is a
// sealed interface; only Null, String, Number, Bool, Array and Object
// implement it. Nested objects appear only as elements of an Array
// (arrays-of-objects), which is the deepest shape a schema can declare.
//
// This package imports nothing internal. Every other internal package
// imports it, so it stays the foundational layer.
//
// Key design constraints:
//   - Records are treated as immutable snapshots once published; writers
//     copy (Clone / Array.Append) before changing anything.
//   - Equality is structural (Equal), never by identity.
//   - The "id" key is reserved for the persisted identifier; its absence
//     marks a record that was never created in the store.
package value
