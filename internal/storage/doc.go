// Package storage persists the set of record ids that were already notified.
//
// Drivers:
//   - "file": a JSON array of ids, rewritten through a temp file + rename
//   - "sqlite": a sent_records table (modernc.org/sqlite, no cgo)
//
// Every successful MarkAndPersist is durable before it returns, so a crash
// mid-run never causes a duplicate for ids already flushed.
package storage
