// Package checkpoint persists run snapshots.
//
// A Snapshot captures everything needed to resume a run: progress
// counters, RNG state, every observable's finalized bins and in-progress
// accumulator, and the algorithm's opaque state.
//
// # Format
//
// Snapshots are JSON wrapped in an envelope carrying the format version and
// a domain-separated SHA-256 checksum of the snapshot bytes:
//
//	{"format_version":1,"checksum":"…","snapshot":{…}}
//
// Encoding is deterministic (struct field order, sorted map keys, shortest
// round-trip floats), so loading a snapshot and saving it again yields the
// same bytes. A version other than mc.CheckpointFormatVersion is refused as
// a configuration error. Any other decode failure, including a checksum
// mismatch, is a persistence error; a corrupt checkpoint is never treated as
// absent.
//
// # Backends
//
//   - FileStore: one file per run and rank, replaced atomically
//     (temp file, fsync, rename, fsync directory)
//   - SQLiteStore: one database per task, one transaction per save
//
// A Store is exclusively owned by one run's controller.
package checkpoint
