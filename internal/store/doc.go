// Package store persists cty values in SQLite.
//
// Each snapshot is stored under a unique name as the JSON type descriptor
// and the wire encoding of the value. Storing the descriptor next to the
// bytes makes every row self-contained: Get decodes with exactly the type
// that was used to encode.
//
// # Identity
//
// Snapshot IDs are UUIDv7 and are kept when a name is overwritten; the
// version column counts overwrites. Types and payloads are fingerprinted
// with SHA-256 under a domain prefix (see TypeFingerprint), so snapshots of
// the same type can be found without parsing descriptors, and Get detects a
// payload that no longer matches its fingerprint.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//
// Listing is ordered by name COLLATE BINARY so output is deterministic.
package store
