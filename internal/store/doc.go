// Package store provides the SQLite-backed entity store: typed entities
// and binary fact relations, with lookup-by-key, predicate filtering, and
// idempotent bulk insert/delete.
//
// The store is the engine's only I/O boundary. It persists storable
// relations exclusively; attempting to insert a fact of an inferred-flavor
// relation is an immediate error, never attempted lazily.
//
// One table is provisioned per entity type and per storable relation, with
// DDL derived from the declared schema. All queries carry a deterministic
// ORDER BY so fact enumeration order is stable across runs.
package store
