// Package docstore implements a schema-less JSON document store on top
// of SQLite's JSON1 functions.
//
// A relational table becomes a collection of {id, data} documents:
// upsert by id, point lookup, predicate search over JSON fields, and
// aggregates, with transactional bulk writes that assign generated ids
// in submission order.
//
// ARCHITECTURE:
//
// Per-Context Connections:
// SQLite connections must not be shared between concurrently running
// callers. DB owns the pool; each execution context acquires its own
// Conn, uses it, and releases it. Connection-scoped pragmas
// (foreign_keys, busy_timeout, journal_mode) are applied on every
// checkout. Two usage modes:
//   - Thread-parallel: each goroutine acquires its own Conn (or uses the
//     DB-level methods, which acquire per call). Writers contend on the
//     database file and wait up to the busy timeout.
//   - Single-owner cooperative: Config.SingleConn caps the store at one
//     connection, shared by tasks that never overlap engine calls.
//
// Injection Safety:
// The table name and index fields are validated identifiers frozen at
// Open; they are the only strings interpolated into SQL. Every dynamic
// field name and value is bound as a parameter, and comparison and
// aggregate operators come from docsql's fixed allow-lists. The one
// escape hatch is AggregateRaw, whose WHERE clause the caller owns.
//
// Batch Id Assignment:
// BulkUpsert recovers generated ids with a descending id scan inside the
// write transaction and reverse-assigns them, so ids land on id-less
// documents in submission order. SQLite's single-writer rule keeps other
// writers out of that window.
package docstore
