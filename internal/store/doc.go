// Package store provides SQLite-backed persistence for wizard collections.
//
// A Store holds named collections of documents. Each document is a
// value.Record stored as canonical JSON under (collection, id); the id
// lives in its own column and is added back on read. Updates are partial
// "$set" merges: keys present in the update replace stored keys, all
// other stored keys are kept.
//
// A definitions table holds per-collection form settings, currently the
// list of visible field paths.
//
// # Ordering
//
// Documents are numbered with a per-collection seq on insert. List returns
// them ORDER BY seq ASC, id ASC COLLATE BINARY so results are identical
// across runs.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - foreign_keys=ON: Enforce referential integrity
//
// Two drivers are supported: github.com/mattn/go-sqlite3 (DriverCGO, the
// default) and modernc.org/sqlite (DriverPure) for cgo-free builds.
package store
